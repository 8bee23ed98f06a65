package tokenfactory

import (
	"bytes"
	"context"
	"testing"

	"github.com/iov-one/weave"
	"github.com/iov-one/weave/app"
	"github.com/iov-one/weave/coin"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/gconf"
	"github.com/iov-one/weave/migration"
	"github.com/iov-one/weave/store"
	"github.com/iov-one/weave/weavetest"
	"github.com/iov-one/weave/x/utils"
)

func TestHandlers(t *testing.T) {
	requester := weavetest.NewCondition()
	signerB := weavetest.NewCondition()
	signerC := weavetest.NewCondition()
	coordinator := weavetest.NewCondition()

	goodSpec := func() *TokenSpec {
		return &TokenSpec{
			Name:        "Good Meme",
			Symbol:      "GMEM",
			TotalSupply: 1000000,
		}
	}
	signers := []weave.Address{
		requester.Address(), signerB.Address(), signerC.Address(),
	}

	cases := map[string]struct {
		actions []action
		poolErr error
		after   func(t *testing.T, db weave.KVStore, deps *testDeps)
	}{
		"submitted request is queued and collection opened": {
			actions: []action{
				{
					conditions: []weave.Condition{requester},
					msg: &SubmitRequestMsg{
						Metadata: &weave.Metadata{Schema: 1},
						Signers:  signers,
						Spec:     goodSpec(),
					},
				},
			},
			after: func(t *testing.T, db weave.KVStore, deps *testDeps) {
				var req CreationRequest
				if err := NewRequestBucket().One(db, weavetest.SequenceID(1), &req); err != nil {
					t.Fatalf("cannot load request: %s", err)
				}
				if !req.Requester.Equals(requester.Address()) {
					t.Fatalf("unexpected requester: %s", req.Requester)
				}
				if req.Executed {
					t.Fatal("request must be pending")
				}
				if len(deps.opener.opened) != 1 || !bytes.Equal(deps.opener.opened[0], weavetest.SequenceID(1)) {
					t.Fatalf("signature set not opened: %v", deps.opener.opened)
				}
			},
		},
		"a single signer is not enough": {
			actions: []action{
				{
					conditions: []weave.Condition{requester},
					msg: &SubmitRequestMsg{
						Metadata: &weave.Metadata{Schema: 1},
						Signers:  []weave.Address{requester.Address()},
						Spec:     goodSpec(),
					},
					wantCheckErr:   ErrSignerCount,
					wantDeliverErr: ErrSignerCount,
				},
			},
		},
		"duplicated signers are rejected": {
			actions: []action{
				{
					conditions: []weave.Condition{requester},
					msg: &SubmitRequestMsg{
						Metadata: &weave.Metadata{Schema: 1},
						Signers: []weave.Address{
							requester.Address(), signerB.Address(), requester.Address(),
						},
						Spec: goodSpec(),
					},
					wantCheckErr:   errors.ErrDuplicate,
					wantDeliverErr: errors.ErrDuplicate,
				},
			},
		},
		"token name is required": {
			actions: []action{
				{
					conditions: []weave.Condition{requester},
					msg: &SubmitRequestMsg{
						Metadata: &weave.Metadata{Schema: 1},
						Signers:  signers,
						Spec:     &TokenSpec{Symbol: "GMEM", TotalSupply: 1},
					},
					wantCheckErr:   errors.ErrEmpty,
					wantDeliverErr: errors.ErrEmpty,
				},
			},
		},
		"token symbol must follow ticker rules": {
			actions: []action{
				{
					conditions: []weave.Condition{requester},
					msg: &SubmitRequestMsg{
						Metadata: &weave.Metadata{Schema: 1},
						Signers:  signers,
						Spec:     &TokenSpec{Name: "Good Meme", Symbol: "toolongsymbol", TotalSupply: 1},
					},
					wantCheckErr:   errors.ErrInput,
					wantDeliverErr: errors.ErrInput,
				},
			},
		},
		"total supply must be positive": {
			actions: []action{
				{
					conditions: []weave.Condition{requester},
					msg: &SubmitRequestMsg{
						Metadata: &weave.Metadata{Schema: 1},
						Signers:  signers,
						Spec:     &TokenSpec{Name: "Good Meme", Symbol: "GMEM", TotalSupply: 0},
					},
					wantCheckErr:   ErrSupply,
					wantDeliverErr: ErrSupply,
				},
			},
		},
		"capped supply cannot be below the total supply": {
			actions: []action{
				{
					conditions: []weave.Condition{requester},
					msg: &SubmitRequestMsg{
						Metadata: &weave.Metadata{Schema: 1},
						Signers:  signers,
						Spec: &TokenSpec{
							Name: "Good Meme", Symbol: "GMEM",
							TotalSupply: 100, MaxSupply: 10, SupplyCapped: true,
						},
					},
					wantCheckErr:   ErrSupply,
					wantDeliverErr: ErrSupply,
				},
			},
		},
		"requester signature is required": {
			actions: []action{
				{
					conditions: []weave.Condition{signerB},
					msg: &SubmitRequestMsg{
						Metadata:  &weave.Metadata{Schema: 1},
						Requester: requester.Address(),
						Signers:   signers,
						Spec:      goodSpec(),
					},
					wantCheckErr:   errors.ErrUnauthorized,
					wantDeliverErr: errors.ErrUnauthorized,
				},
			},
		},
		"execution is restricted to the coordinator": {
			actions: []action{
				{
					conditions: []weave.Condition{requester},
					msg: &SubmitRequestMsg{
						Metadata: &weave.Metadata{Schema: 1},
						Signers:  signers,
						Spec:     goodSpec(),
					},
				},
				{
					conditions: []weave.Condition{requester},
					msg: &ExecuteRequestMsg{
						Metadata:  &weave.Metadata{Schema: 1},
						RequestID: weavetest.SequenceID(1),
					},
					wantCheckErr:   errors.ErrUnauthorized,
					wantDeliverErr: errors.ErrUnauthorized,
				},
			},
		},
		"execution of an unknown request": {
			actions: []action{
				{
					conditions: []weave.Condition{coordinator},
					msg: &ExecuteRequestMsg{
						Metadata:  &weave.Metadata{Schema: 1},
						RequestID: weavetest.SequenceID(42),
					},
					wantDeliverErr: errors.ErrNotFound,
				},
			},
		},
		"execution mints the supply and bootstraps the pool": {
			actions: []action{
				{
					conditions: []weave.Condition{requester},
					msg: &SubmitRequestMsg{
						Metadata: &weave.Metadata{Schema: 1},
						Signers:  signers,
						Spec:     goodSpec(),
					},
				},
				{
					conditions: []weave.Condition{coordinator},
					msg: &ExecuteRequestMsg{
						Metadata:  &weave.Metadata{Schema: 1},
						RequestID: weavetest.SequenceID(1),
					},
				},
			},
			after: func(t *testing.T, db weave.KVStore, deps *testDeps) {
				var req CreationRequest
				if err := NewRequestBucket().One(db, weavetest.SequenceID(1), &req); err != nil {
					t.Fatalf("cannot load request: %s", err)
				}
				if !req.Executed {
					t.Fatal("request must be executed")
				}
				wantAddr := TokenCondition(weavetest.SequenceID(1)).Address()
				if !req.TokenAddress.Equals(wantAddr) {
					t.Fatalf("unexpected token address: %s", req.TokenAddress)
				}

				var token Token
				if err := NewTokenBucket().One(db, weavetest.SequenceID(1), &token); err != nil {
					t.Fatalf("cannot load token: %s", err)
				}
				if token.Symbol != "GMEM" {
					t.Fatalf("unexpected token: %+v", token)
				}

				if len(deps.minter.minted) != 1 {
					t.Fatalf("want one mint, got %v", deps.minter.minted)
				}
				m := deps.minter.minted[0]
				if !m.dest.Equals(requester.Address()) || !m.amount.Equals(coin.NewCoin(1000000, 0, "GMEM")) {
					t.Fatalf("unexpected mint: %+v", m)
				}

				if deps.pools.calls != 1 {
					t.Fatalf("want one pool bootstrap, got %d", deps.pools.calls)
				}
				p := deps.pools.last
				if p.feeTier != PoolFeeTier || p.tickSpacing != PoolTickSpacing || p.sqrtPrice != PoolSqrtPrice {
					t.Fatalf("pool bootstrapped with wrong parameters: %+v", p)
				}
				if p.referenceTicker != "CRFT" {
					t.Fatalf("unexpected reference ticker: %q", p.referenceTicker)
				}

				if len(deps.closer.closed) != 1 || !bytes.Equal(deps.closer.closed[0], weavetest.SequenceID(1)) {
					t.Fatalf("signature set not closed: %v", deps.closer.closed)
				}
			},
		},
		"a request is executed at most once": {
			actions: []action{
				{
					conditions: []weave.Condition{requester},
					msg: &SubmitRequestMsg{
						Metadata: &weave.Metadata{Schema: 1},
						Signers:  signers,
						Spec:     goodSpec(),
					},
				},
				{
					conditions: []weave.Condition{coordinator},
					msg: &ExecuteRequestMsg{
						Metadata:  &weave.Metadata{Schema: 1},
						RequestID: weavetest.SequenceID(1),
					},
				},
				{
					conditions: []weave.Condition{coordinator},
					msg: &ExecuteRequestMsg{
						Metadata:  &weave.Metadata{Schema: 1},
						RequestID: weavetest.SequenceID(1),
					},
					wantDeliverErr: ErrAlreadyExecuted,
				},
			},
		},
		"failed pool bootstrap leaves the request pending": {
			poolErr: errors.ErrState,
			actions: []action{
				{
					conditions: []weave.Condition{requester},
					msg: &SubmitRequestMsg{
						Metadata: &weave.Metadata{Schema: 1},
						Signers:  signers,
						Spec:     goodSpec(),
					},
				},
				{
					conditions: []weave.Condition{coordinator},
					msg: &ExecuteRequestMsg{
						Metadata:  &weave.Metadata{Schema: 1},
						RequestID: weavetest.SequenceID(1),
					},
					wantDeliverErr: errors.ErrState,
				},
			},
			after: func(t *testing.T, db weave.KVStore, deps *testDeps) {
				var req CreationRequest
				if err := NewRequestBucket().One(db, weavetest.SequenceID(1), &req); err != nil {
					t.Fatalf("cannot load request: %s", err)
				}
				if req.Executed {
					t.Fatal("request must stay pending")
				}
				var token Token
				if err := NewTokenBucket().One(db, weavetest.SequenceID(1), &token); !errors.ErrNotFound.Is(err) {
					t.Fatalf("no token must be written: %+v", err)
				}
				if len(deps.closer.closed) != 0 {
					t.Fatalf("failed execution must not close the collection: %v", deps.closer.closed)
				}
			},
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			db := store.MemStore()
			migration.MustInitPkg(db, "tokenfactory")

			conf := Configuration{
				Metadata:        &weave.Metadata{Schema: 1},
				Owner:           coordinator.Address(),
				Coordinator:     coordinator.Address(),
				ReferenceTicker: "CRFT",
			}
			if err := gconf.Save(db, "tokenfactory", &conf); err != nil {
				t.Fatalf("cannot save configuration: %s", err)
			}

			deps := &testDeps{
				minter: &minterMock{},
				pools:  &poolMock{err: tc.poolErr},
				opener: &openerMock{},
				closer: &closerMock{},
			}

			rt := app.NewRouter()
			auth := &weavetest.CtxAuth{Key: "auth"}
			ctrl := NewController(deps.minter, deps.pools)
			RegisterRoutes(rt, auth, ctrl, deps.opener, deps.closer)
			// A failing execution must not leave partial writes behind.
			stack := app.ChainDecorators(utils.NewSavepoint().OnDeliver()).WithHandler(rt)

			for i, a := range tc.actions {
				cache := db.CacheWrap()
				if _, err := stack.Check(a.ctx(), cache, a.tx()); !a.wantCheckErr.Is(err) {
					t.Logf("want: %+v", a.wantCheckErr)
					t.Logf(" got: %+v", err)
					t.Fatalf("action %d check (%T)", i, a.msg)
				}
				cache.Discard()
				if a.wantCheckErr != nil {
					continue
				}

				if _, err := stack.Deliver(a.ctx(), db, a.tx()); !a.wantDeliverErr.Is(err) {
					t.Logf("want: %+v", a.wantDeliverErr)
					t.Logf(" got: %+v", err)
					t.Fatalf("action %d delivery (%T)", i, a.msg)
				}
			}

			if tc.after != nil {
				tc.after(t, db, deps)
			}
		})
	}
}

type testDeps struct {
	minter *minterMock
	pools  *poolMock
	opener *openerMock
	closer *closerMock
}

type mint struct {
	dest   weave.Address
	amount coin.Coin
}

type minterMock struct {
	minted []mint
}

func (m *minterMock) CoinMint(db weave.KVStore, dest weave.Address, amount coin.Coin) error {
	m.minted = append(m.minted, mint{dest: dest, amount: amount})
	return nil
}

type poolInit struct {
	token           weave.Address
	ticker          string
	referenceTicker string
	feeTier         uint32
	tickSpacing     uint32
	sqrtPrice       string
}

type poolMock struct {
	err   error
	calls int
	last  poolInit
}

func (p *poolMock) InitializePool(db weave.KVStore, token weave.Address, ticker, referenceTicker string, feeTier, tickSpacing uint32, sqrtPrice string) ([]byte, error) {
	if p.err != nil {
		return nil, p.err
	}
	p.calls++
	p.last = poolInit{
		token:           token,
		ticker:          ticker,
		referenceTicker: referenceTicker,
		feeTier:         feeTier,
		tickSpacing:     tickSpacing,
		sqrtPrice:       sqrtPrice,
	}
	return weavetest.SequenceID(1), nil
}

type openerMock struct {
	opened [][]byte
}

func (o *openerMock) OpenSignatureSet(db weave.KVStore, requestID []byte, requester weave.Address, signers []weave.Address) error {
	o.opened = append(o.opened, requestID)
	return nil
}

type closerMock struct {
	closed [][]byte
}

func (c *closerMock) CloseSignatureSet(db weave.KVStore, requestID []byte) error {
	c.closed = append(c.closed, requestID)
	return nil
}

type action struct {
	conditions     []weave.Condition
	msg            weave.Msg
	wantCheckErr   *errors.Error
	wantDeliverErr *errors.Error
}

func (a *action) tx() weave.Tx {
	return &weavetest.Tx{Msg: a.msg}
}

func (a *action) ctx() weave.Context {
	ctx := weave.WithHeight(context.Background(), 100)
	ctx = weave.WithChainID(ctx, "testchain-123")
	auth := &weavetest.CtxAuth{Key: "auth"}
	return auth.SetConditions(ctx, a.conditions...)
}
