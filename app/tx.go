package app

import (
	"github.com/iov-one/weave"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/x/cash"
	"github.com/iov-one/weave/x/sigs"
)

// TxDecoder creates a Tx and unmarshals bytes into it
func TxDecoder(bz []byte) (weave.Tx, error) {
	tx := new(Tx)
	if err := tx.Unmarshal(bz); err != nil {
		return nil, err
	}
	return tx, nil
}

// make sure tx fulfills all interfaces
var _ weave.Tx = (*Tx)(nil)
var _ cash.FeeTx = (*Tx)(nil)
var _ sigs.SignedTx = (*Tx)(nil)

// GetMsg switches over all types defined in the protobuf file
func (tx *Tx) GetMsg() (weave.Msg, error) {
	sum := tx.GetSum()
	if sum == nil {
		return nil, errors.Wrap(errors.ErrState, "transaction without message")
	}

	// make sure to cover all messages defined in protobuf
	switch t := sum.(type) {
	case *Tx_CashSendMsg:
		return t.CashSendMsg, nil
	case *Tx_CashUpdateConfigurationMsg:
		return t.CashUpdateConfigurationMsg, nil
	case *Tx_MigrationUpgradeSchemaMsg:
		return t.MigrationUpgradeSchemaMsg, nil
	case *Tx_TokenfactorySubmitRequestMsg:
		return t.TokenfactorySubmitRequestMsg, nil
	case *Tx_TokenfactoryExecuteRequestMsg:
		return t.TokenfactoryExecuteRequestMsg, nil
	case *Tx_TokenfactoryUpdateConfigurationMsg:
		return t.TokenfactoryUpdateConfigurationMsg, nil
	case *Tx_ApprovalSignMsg:
		return t.ApprovalSignMsg, nil
	case *Tx_ApprovalUnsignMsg:
		return t.ApprovalUnsignMsg, nil
	case *Tx_LiquidityAddLiquidityMsg:
		return t.LiquidityAddLiquidityMsg, nil
	case *Tx_LiquidityUpdateConfigurationMsg:
		return t.LiquidityUpdateConfigurationMsg, nil
	}
	return nil, errors.Wrapf(errors.ErrMsg, "unknown transaction sum type %T", sum)
}

// GetSignBytes returns the canonical byte representation that is signed.
// Signatures are left out, the sign bytes must come from the data alone.
func (tx *Tx) GetSignBytes() ([]byte, error) {
	s := tx.Signatures
	tx.Signatures = nil
	bz, err := tx.Marshal()
	tx.Signatures = s
	return bz, err
}
