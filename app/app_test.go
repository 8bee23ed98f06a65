package app

import (
	"context"
	"testing"
	"time"

	"github.com/iov-one/weave"
	weaveapp "github.com/iov-one/weave/app"
	"github.com/iov-one/weave/coin"
	"github.com/iov-one/weave/gconf"
	"github.com/iov-one/weave/migration"
	"github.com/iov-one/weave/store"
	"github.com/iov-one/weave/weavetest"
	"github.com/iov-one/weave/x/cash"
	"github.com/iov-one/weave/x/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/craftmeme/craftd/x/approval"
	"github.com/craftmeme/craftd/x/attestation"
	"github.com/craftmeme/craftd/x/liquidity"
	"github.com/craftmeme/craftd/x/tokenfactory"
)

// TestTokenCreationFlow drives a complete token creation through the wired
// router: the request is submitted, the second of three signatures reaches
// quorum, the supply is minted and the pool bootstrapped, and a provider
// adds liquidity afterwards.
func TestTokenCreationFlow(t *testing.T) {
	db := store.MemStore()
	migration.MustInitPkg(db,
		"cash", "tokenfactory", "approval", "attestation", "liquidity")

	alice := weavetest.NewCondition()
	bob := weavetest.NewCondition()
	carl := weavetest.NewCondition()
	coordinator := weavetest.NewCondition()

	require.NoError(t, gconf.Save(db, "tokenfactory", &tokenfactory.Configuration{
		Metadata:        &weave.Metadata{Schema: 1},
		Owner:           coordinator.Address(),
		Coordinator:     coordinator.Address(),
		ReferenceTicker: "CRFT",
	}))
	require.NoError(t, gconf.Save(db, "liquidity", &liquidity.Configuration{
		Metadata:         &weave.Metadata{Schema: 1},
		Owner:            coordinator.Address(),
		VestingThreshold: coin.NewCoin(100, 0, "CRFT"),
	}))

	auth := &weavetest.CtxAuth{Key: "auth"}
	stack := weaveapp.ChainDecorators(
		utils.NewSavepoint().OnDeliver(),
	).WithHandler(Router(auth))

	blockTime := time.Unix(1234567890, 0)
	asCtx := func(cond weave.Condition) weave.Context {
		ctx := weave.WithHeight(context.Background(), 100)
		ctx = weave.WithChainID(ctx, "testchain-123")
		ctx = weave.WithBlockTime(ctx, blockTime)
		return auth.SetConditions(ctx, cond)
	}
	deliver := func(cond weave.Condition, msg weave.Msg) (*weave.DeliverResult, error) {
		t.Helper()
		return stack.Deliver(asCtx(cond), db, &weavetest.Tx{Msg: msg})
	}

	res, err := deliver(alice, &tokenfactory.SubmitRequestMsg{
		Metadata: &weave.Metadata{Schema: 1},
		Signers: []weave.Address{
			alice.Address(), bob.Address(), carl.Address(),
		},
		Spec: &tokenfactory.TokenSpec{
			Name:        "Good Meme",
			Symbol:      "GMEM",
			TotalSupply: 1000000,
		},
	})
	require.NoError(t, err)
	reqID := res.Data
	assert.Equal(t, weavetest.SequenceID(1), reqID)

	signMsg := &approval.SignMsg{
		Metadata:  &weave.Metadata{Schema: 1},
		RequestID: reqID,
	}
	_, err = deliver(alice, signMsg)
	require.NoError(t, err)
	res, err = deliver(bob, signMsg)
	require.NoError(t, err)
	assert.Equal(t, "memecoin created", res.Log)

	// The request is executed and the ledger updated.
	var req tokenfactory.CreationRequest
	require.NoError(t, tokenfactory.NewRequestBucket().One(db, reqID, &req))
	assert.True(t, req.Executed)

	var token tokenfactory.Token
	require.NoError(t, tokenfactory.NewTokenBucket().One(db, reqID, &token))
	assert.Equal(t, "GMEM", token.Symbol)

	// The initial supply was minted to the requester.
	cashCtrl := cash.NewController(cash.NewBucket())
	coins, err := cashCtrl.Balance(db, alice.Address())
	require.NoError(t, err)
	assert.True(t, coins.Contains(coin.NewCoin(1000000, 0, "GMEM")), "got %v", coins)

	// The pool pairs the token with the reference currency.
	var pool liquidity.Pool
	require.NoError(t, liquidity.NewPoolBucket().One(db, weavetest.SequenceID(1), &pool))
	assert.Equal(t, token.Address, pool.Token)
	assert.Equal(t, "CRFT", pool.ReferenceTicker)

	// Both sign actions were attested.
	var att attestation.Attestation
	require.NoError(t, attestation.NewAttestationBucket().One(db, weavetest.SequenceID(2), &att))

	// No signature is accepted after execution.
	_, err = deliver(carl, signMsg)
	assert.True(t, approval.ErrAlreadyExecuted.Is(err), "got %+v", err)

	// A funded provider can add liquidity to the new pool.
	require.NoError(t, cashCtrl.CoinMint(db, bob.Address(), coin.NewCoin(500, 0, "CRFT")))
	_, err = deliver(bob, &liquidity.AddLiquidityMsg{
		Metadata: &weave.Metadata{Schema: 1},
		PoolID:   weavetest.SequenceID(1),
		Amount:   coin.NewCoin(120, 0, "CRFT"),
	})
	require.NoError(t, err)

	coins, err = cashCtrl.Balance(db, pool.Address)
	require.NoError(t, err)
	assert.True(t, coins.Contains(coin.NewCoin(120, 0, "CRFT")), "got %v", coins)
}

// TestCoordinatorExecutionClosesCollection covers the recovery path. When
// the coordinator forces execution of a pending request, the signature
// collection must be closed as well so that late signers are rejected.
func TestCoordinatorExecutionClosesCollection(t *testing.T) {
	db := store.MemStore()
	migration.MustInitPkg(db,
		"cash", "tokenfactory", "approval", "attestation", "liquidity")

	alice := weavetest.NewCondition()
	bob := weavetest.NewCondition()
	carl := weavetest.NewCondition()
	coordinator := weavetest.NewCondition()

	require.NoError(t, gconf.Save(db, "tokenfactory", &tokenfactory.Configuration{
		Metadata:        &weave.Metadata{Schema: 1},
		Owner:           coordinator.Address(),
		Coordinator:     coordinator.Address(),
		ReferenceTicker: "CRFT",
	}))
	require.NoError(t, gconf.Save(db, "liquidity", &liquidity.Configuration{
		Metadata:         &weave.Metadata{Schema: 1},
		Owner:            coordinator.Address(),
		VestingThreshold: coin.NewCoin(100, 0, "CRFT"),
	}))

	auth := &weavetest.CtxAuth{Key: "auth"}
	stack := weaveapp.ChainDecorators(
		utils.NewSavepoint().OnDeliver(),
	).WithHandler(Router(auth))

	deliver := func(cond weave.Condition, msg weave.Msg) (*weave.DeliverResult, error) {
		t.Helper()
		ctx := weave.WithHeight(context.Background(), 100)
		ctx = weave.WithChainID(ctx, "testchain-123")
		ctx = weave.WithBlockTime(ctx, time.Unix(1234567890, 0))
		return stack.Deliver(auth.SetConditions(ctx, cond), db, &weavetest.Tx{Msg: msg})
	}

	res, err := deliver(alice, &tokenfactory.SubmitRequestMsg{
		Metadata: &weave.Metadata{Schema: 1},
		Signers: []weave.Address{
			alice.Address(), bob.Address(), carl.Address(),
		},
		Spec: &tokenfactory.TokenSpec{
			Name:        "Good Meme",
			Symbol:      "GMEM",
			TotalSupply: 1000000,
		},
	})
	require.NoError(t, err)
	reqID := res.Data

	signMsg := &approval.SignMsg{
		Metadata:  &weave.Metadata{Schema: 1},
		RequestID: reqID,
	}
	_, err = deliver(alice, signMsg)
	require.NoError(t, err)

	// The coordinator forces execution before quorum.
	_, err = deliver(coordinator, &tokenfactory.ExecuteRequestMsg{
		Metadata:  &weave.Metadata{Schema: 1},
		RequestID: reqID,
	})
	require.NoError(t, err)

	var req tokenfactory.CreationRequest
	require.NoError(t, tokenfactory.NewRequestBucket().One(db, reqID, &req))
	assert.True(t, req.Executed)

	// The collection was closed together with the request.
	var set approval.SignatureSet
	require.NoError(t, approval.NewBucket().One(db, reqID, &set))
	assert.True(t, set.Closed)
	assert.Len(t, set.Collected, 0)

	_, err = deliver(bob, signMsg)
	assert.True(t, approval.ErrAlreadyExecuted.Is(err), "got %+v", err)
	_, err = deliver(alice, &approval.UnsignMsg{
		Metadata:  &weave.Metadata{Schema: 1},
		RequestID: reqID,
	})
	assert.True(t, approval.ErrAlreadyExecuted.Is(err), "got %+v", err)
}
