package app

import (
	"testing"

	"github.com/iov-one/weave"
	"github.com/iov-one/weave/crypto"
	"github.com/iov-one/weave/weavetest"
	"github.com/iov-one/weave/x/sigs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/craftmeme/craftd/x/approval"
	"github.com/craftmeme/craftd/x/tokenfactory"
)

func TestTxRoundTrip(t *testing.T) {
	msg := &tokenfactory.SubmitRequestMsg{
		Metadata: &weave.Metadata{Schema: 1},
		Signers: []weave.Address{
			weavetest.NewCondition().Address(),
			weavetest.NewCondition().Address(),
		},
		Spec: &tokenfactory.TokenSpec{
			Name:        "Good Meme",
			Symbol:      "GMEM",
			TotalSupply: 21,
		},
	}
	tx := &Tx{Sum: &Tx_TokenfactorySubmitRequestMsg{msg}}

	priv := crypto.GenPrivKeyEd25519()
	sig, err := sigs.SignTx(priv, tx, "testchain-123", 0)
	require.NoError(t, err)
	tx.Signatures = []*sigs.StdSignature{sig}

	raw, err := tx.Marshal()
	require.NoError(t, err)

	restored, err := TxDecoder(raw)
	require.NoError(t, err)
	got, err := restored.GetMsg()
	require.NoError(t, err)
	restoredMsg, ok := got.(*tokenfactory.SubmitRequestMsg)
	require.True(t, ok, "got %T", got)
	assert.Equal(t, msg.Spec, restoredMsg.Spec)
	assert.Equal(t, msg.Signers, restoredMsg.Signers)

	signed, ok := restored.(sigs.SignedTx)
	require.True(t, ok)
	require.Len(t, signed.GetSignatures(), 1)
}

func TestSignBytesExcludeSignatures(t *testing.T) {
	tx := &Tx{Sum: &Tx_ApprovalSignMsg{&approval.SignMsg{
		Metadata:  &weave.Metadata{Schema: 1},
		RequestID: weavetest.SequenceID(1),
	}}}
	unsigned, err := tx.GetSignBytes()
	require.NoError(t, err)

	priv := crypto.GenPrivKeyEd25519()
	sig, err := sigs.SignTx(priv, tx, "testchain-123", 0)
	require.NoError(t, err)
	tx.Signatures = []*sigs.StdSignature{sig}

	signed, err := tx.GetSignBytes()
	require.NoError(t, err)
	assert.Equal(t, unsigned, signed, "sign bytes must not depend on signatures")
	require.Len(t, tx.Signatures, 1, "signatures must be restored")
}

func TestTxWithoutMessage(t *testing.T) {
	var tx Tx
	if _, err := tx.GetMsg(); err == nil {
		t.Fatal("a transaction without a message must not provide one")
	}
}

func TestTxDecoderRejectsGarbage(t *testing.T) {
	// Wire type 7 is not a valid protobuf encoding.
	raw := []byte{0xff, 0xff, 0xff, 0xff}
	if _, err := TxDecoder(raw); err == nil {
		t.Fatal("decoding garbage bytes must fail")
	}
}
