package tokenfactory

import (
	"github.com/iov-one/weave"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/migration"
)

func init() {
	migration.MustRegister(1, &SubmitRequestMsg{}, migration.NoModification)
	migration.MustRegister(1, &ExecuteRequestMsg{}, migration.NoModification)
	migration.MustRegister(1, &UpdateConfigurationMsg{}, migration.NoModification)
}

var _ weave.Msg = (*SubmitRequestMsg)(nil)
var _ weave.Msg = (*ExecuteRequestMsg)(nil)
var _ weave.Msg = (*UpdateConfigurationMsg)(nil)

// Path fulfills weave.Msg interface to allow routing
func (SubmitRequestMsg) Path() string {
	return "tokenfactory/submit_request"
}

func (m *SubmitRequestMsg) Validate() error {
	if err := m.Metadata.Validate(); err != nil {
		return errors.Wrap(err, "metadata")
	}
	// Requester is optional and defaults to the main signer.
	if len(m.Requester) != 0 {
		if err := m.Requester.Validate(); err != nil {
			return errors.Wrap(err, "requester")
		}
	}
	if err := validateSigners(m.Signers); err != nil {
		return err
	}
	if m.Spec == nil {
		return errors.Wrap(errors.ErrEmpty, "spec")
	}
	return errors.Wrap(m.Spec.Validate(), "spec")
}

// Path fulfills weave.Msg interface to allow routing
func (ExecuteRequestMsg) Path() string {
	return "tokenfactory/execute_request"
}

func (m *ExecuteRequestMsg) Validate() error {
	if err := m.Metadata.Validate(); err != nil {
		return errors.Wrap(err, "metadata")
	}
	if len(m.RequestID) != 8 {
		return errors.Wrapf(errors.ErrInput, "request id: %X", m.RequestID)
	}
	return nil
}

// Path fulfills weave.Msg interface to allow routing
func (UpdateConfigurationMsg) Path() string {
	return "tokenfactory/update_configuration"
}

func (m *UpdateConfigurationMsg) Validate() error {
	if err := m.Metadata.Validate(); err != nil {
		return errors.Wrap(err, "metadata")
	}
	if m.Patch == nil {
		return errors.Wrap(errors.ErrEmpty, "patch")
	}
	return nil
}
