package approval

import (
	"github.com/iov-one/weave"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/migration"
)

func init() {
	migration.MustRegister(1, &SignMsg{}, migration.NoModification)
	migration.MustRegister(1, &UnsignMsg{}, migration.NoModification)
}

var _ weave.Msg = (*SignMsg)(nil)
var _ weave.Msg = (*UnsignMsg)(nil)

// Path fulfills weave.Msg interface to allow routing
func (SignMsg) Path() string {
	return "approval/sign"
}

func (m *SignMsg) Validate() error {
	if err := m.Metadata.Validate(); err != nil {
		return errors.Wrap(err, "metadata")
	}
	return validateRequestID(m.RequestID)
}

// Path fulfills weave.Msg interface to allow routing
func (UnsignMsg) Path() string {
	return "approval/unsign"
}

func (m *UnsignMsg) Validate() error {
	if err := m.Metadata.Validate(); err != nil {
		return errors.Wrap(err, "metadata")
	}
	return validateRequestID(m.RequestID)
}

func validateRequestID(id []byte) error {
	if len(id) != 8 {
		return errors.Wrapf(errors.ErrInput, "request id: %X", id)
	}
	return nil
}
