package liquidity

import (
	"github.com/iov-one/weave"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/migration"
)

func init() {
	migration.MustRegister(1, &AddLiquidityMsg{}, migration.NoModification)
	migration.MustRegister(1, &UpdateConfigurationMsg{}, migration.NoModification)
}

var _ weave.Msg = (*AddLiquidityMsg)(nil)
var _ weave.Msg = (*UpdateConfigurationMsg)(nil)

// Path fulfills weave.Msg interface to allow routing
func (AddLiquidityMsg) Path() string {
	return "liquidity/add_liquidity"
}

func (m *AddLiquidityMsg) Validate() error {
	if err := m.Metadata.Validate(); err != nil {
		return errors.Wrap(err, "metadata")
	}
	if len(m.PoolID) != 8 {
		return errors.Wrapf(errors.ErrInput, "pool id: %X", m.PoolID)
	}
	if !m.Amount.IsPositive() {
		return errors.Wrap(errors.ErrAmount, "amount must be positive")
	}
	return errors.Wrap(m.Amount.Validate(), "amount")
}

// Path fulfills weave.Msg interface to allow routing
func (UpdateConfigurationMsg) Path() string {
	return "liquidity/update_configuration"
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
