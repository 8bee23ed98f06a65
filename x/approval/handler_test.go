package approval

import (
	"bytes"
	"context"
	"testing"

	"github.com/iov-one/weave"
	"github.com/iov-one/weave/app"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/migration"
	"github.com/iov-one/weave/store"
	"github.com/iov-one/weave/weavetest"
	"github.com/iov-one/weave/x/utils"
)

func TestHandlers(t *testing.T) {
	requester := weavetest.NewCondition()
	alice := weavetest.NewCondition()
	bob := weavetest.NewCondition()
	carl := weavetest.NewCondition()
	dave := weavetest.NewCondition()

	reqID := weavetest.SequenceID(1)
	sign := func(cond weave.Condition) action {
		return action{
			conditions: []weave.Condition{cond},
			msg:        &SignMsg{Metadata: &weave.Metadata{Schema: 1}, RequestID: reqID},
		}
	}
	unsign := func(cond weave.Condition) action {
		return action{
			conditions: []weave.Condition{cond},
			msg:        &UnsignMsg{Metadata: &weave.Metadata{Schema: 1}, RequestID: reqID},
		}
	}
	failing := func(a action, err *errors.Error) action {
		a.wantCheckErr = err
		a.wantDeliverErr = err
		return a
	}

	cases := map[string]struct {
		signers      []weave.Condition
		executorErrs int
		actions      []action
		after        func(t *testing.T, db weave.KVStore, deps *testDeps)
	}{
		"the second of three signers reaches quorum": {
			signers: []weave.Condition{alice, bob, carl},
			actions: []action{
				sign(alice),
				sign(bob),
				failing(sign(carl), ErrAlreadyExecuted),
			},
			after: func(t *testing.T, db weave.KVStore, deps *testDeps) {
				if len(deps.executor.executed) != 1 {
					t.Fatalf("want one execution, got %d", len(deps.executor.executed))
				}
				if !bytes.Equal(deps.executor.executed[0], reqID) {
					t.Fatalf("executed wrong request: %x", deps.executor.executed[0])
				}
				var set SignatureSet
				if err := NewBucket().One(db, reqID, &set); err != nil {
					t.Fatalf("cannot load signature set: %s", err)
				}
				if !set.Closed || len(set.Collected) != 0 {
					t.Fatalf("set must be closed and cleared: %+v", set)
				}
				// Both collected signatures and the consumed quorum
				// signature are attested.
				if deps.notifier.records != 2 {
					t.Fatalf("want 2 attestations, got %d", deps.notifier.records)
				}
			},
		},
		"four signers need three signatures": {
			signers: []weave.Condition{alice, bob, carl, dave},
			actions: []action{
				sign(alice),
				sign(bob),
				sign(carl),
				failing(sign(dave), ErrAlreadyExecuted),
			},
			after: func(t *testing.T, db weave.KVStore, deps *testDeps) {
				if len(deps.executor.executed) != 1 {
					t.Fatalf("want one execution, got %d", len(deps.executor.executed))
				}
			},
		},
		"only members of the signer set can sign": {
			signers: []weave.Condition{alice, bob, carl},
			actions: []action{
				failing(sign(dave), errors.ErrUnauthorized),
			},
		},
		"signing twice is rejected": {
			signers: []weave.Condition{alice, bob, carl, dave},
			actions: []action{
				sign(alice),
				failing(sign(alice), ErrAlreadySigned),
			},
		},
		"withdrawing requires a collected signature": {
			signers: []weave.Condition{alice, bob, carl},
			actions: []action{
				failing(unsign(alice), ErrNotSigned),
			},
		},
		"only members of the signer set can withdraw": {
			signers: []weave.Condition{alice, bob, carl},
			actions: []action{
				sign(alice),
				failing(unsign(dave), errors.ErrUnauthorized),
			},
		},
		"signing an unknown request": {
			signers: []weave.Condition{alice, bob, carl},
			actions: []action{
				failing(action{
					conditions: []weave.Condition{alice},
					msg: &SignMsg{
						Metadata:  &weave.Metadata{Schema: 1},
						RequestID: weavetest.SequenceID(33),
					},
				}, errors.ErrNotFound),
			},
		},
		"a withdrawn signature revokes its attestation": {
			signers: []weave.Condition{alice, bob, carl, dave},
			actions: []action{
				sign(alice),
				unsign(alice),
			},
			after: func(t *testing.T, db weave.KVStore, deps *testDeps) {
				if len(deps.notifier.revoked) != 1 {
					t.Fatalf("want one revocation, got %d", len(deps.notifier.revoked))
				}
				if deps.notifier.revoked[0].reason != "signature withdrawn" {
					t.Fatalf("unexpected reason: %q", deps.notifier.revoked[0].reason)
				}
				var set SignatureSet
				if err := NewBucket().One(db, reqID, &set); err != nil {
					t.Fatalf("cannot load signature set: %s", err)
				}
				if len(set.Collected) != 0 || len(set.Attestations) != 0 {
					t.Fatalf("withdrawn signature must be removed: %+v", set)
				}
			},
		},
		"a withdrawn signature can be given again": {
			signers: []weave.Condition{alice, bob, carl},
			actions: []action{
				sign(alice),
				unsign(alice),
				sign(alice),
				sign(bob),
			},
			after: func(t *testing.T, db weave.KVStore, deps *testDeps) {
				if len(deps.executor.executed) != 1 {
					t.Fatalf("want one execution, got %d", len(deps.executor.executed))
				}
			},
		},
		"a failed execution does not consume the quorum signature": {
			signers:      []weave.Condition{alice, bob, carl},
			executorErrs: 1,
			actions: []action{
				sign(alice),
				{
					conditions:     []weave.Condition{bob},
					msg:            &SignMsg{Metadata: &weave.Metadata{Schema: 1}, RequestID: reqID},
					wantDeliverErr: errors.ErrState,
				},
				// Once the downstream problem is gone, the same signer
				// can push the request over the line again.
				sign(bob),
			},
			after: func(t *testing.T, db weave.KVStore, deps *testDeps) {
				if len(deps.executor.executed) != 1 {
					t.Fatalf("want one successful execution, got %d", len(deps.executor.executed))
				}
				var set SignatureSet
				if err := NewBucket().One(db, reqID, &set); err != nil {
					t.Fatalf("cannot load signature set: %s", err)
				}
				if !set.Closed {
					t.Fatalf("set must be closed after the retry: %+v", set)
				}
			},
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			db := store.MemStore()
			migration.MustInitPkg(db, "approval")

			var signers []weave.Address
			for _, c := range tc.signers {
				signers = append(signers, c.Address())
			}
			if err := NewController().OpenSignatureSet(db, reqID, requester.Address(), signers); err != nil {
				t.Fatalf("cannot open signature set: %s", err)
			}

			deps := &testDeps{
				executor: &executorMock{errs: tc.executorErrs},
				notifier: &notifierMock{},
			}

			rt := app.NewRouter()
			auth := &weavetest.CtxAuth{Key: "auth"}
			RegisterRoutes(rt, auth, deps.executor, deps.notifier)
			// A failed execution must roll back the whole sign delivery.
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

func TestClosedCollectionAcceptsNoSignatures(t *testing.T) {
	requester := weavetest.NewCondition()
	alice := weavetest.NewCondition()
	bob := weavetest.NewCondition()
	carl := weavetest.NewCondition()

	db := store.MemStore()
	migration.MustInitPkg(db, "approval")

	reqID := weavetest.SequenceID(1)
	ctrl := NewController()
	signers := []weave.Address{alice.Address(), bob.Address(), carl.Address()}
	if err := ctrl.OpenSignatureSet(db, reqID, requester.Address(), signers); err != nil {
		t.Fatalf("cannot open signature set: %s", err)
	}

	rt := app.NewRouter()
	auth := &weavetest.CtxAuth{Key: "auth"}
	RegisterRoutes(rt, auth, &executorMock{}, &notifierMock{})
	stack := app.ChainDecorators(utils.NewSavepoint().OnDeliver()).WithHandler(rt)

	signTx := func(cond weave.Condition) (weave.Context, weave.Tx) {
		ctx := weave.WithHeight(context.Background(), 100)
		ctx = weave.WithChainID(ctx, "testchain-123")
		ctx = auth.SetConditions(ctx, cond)
		return ctx, &weavetest.Tx{Msg: &SignMsg{Metadata: &weave.Metadata{Schema: 1}, RequestID: reqID}}
	}

	ctx, tx := signTx(alice)
	if _, err := stack.Deliver(ctx, db, tx); err != nil {
		t.Fatalf("alice cannot sign: %+v", err)
	}

	// The request was executed through the coordinator recovery path, not
	// through quorum. The collection must terminate all the same.
	if err := ctrl.CloseSignatureSet(db, reqID); err != nil {
		t.Fatalf("cannot close signature set: %s", err)
	}

	ctx, tx = signTx(bob)
	if _, err := stack.Deliver(ctx, db, tx); !ErrAlreadyExecuted.Is(err) {
		t.Fatalf("signing a closed collection must fail: %+v", err)
	}
	ctx, tx = signTx(alice)
	tx = &weavetest.Tx{Msg: &UnsignMsg{Metadata: &weave.Metadata{Schema: 1}, RequestID: reqID}}
	if _, err := stack.Deliver(ctx, db, tx); !ErrAlreadyExecuted.Is(err) {
		t.Fatalf("withdrawing from a closed collection must fail: %+v", err)
	}

	var set SignatureSet
	if err := NewBucket().One(db, reqID, &set); err != nil {
		t.Fatalf("cannot load signature set: %s", err)
	}
	if !set.Closed || len(set.Collected) != 0 || len(set.Attestations) != 0 {
		t.Fatalf("set must be closed and cleared: %+v", set)
	}
}

type testDeps struct {
	executor *executorMock
	notifier *notifierMock
}

type executorMock struct {
	// errs is the number of leading calls that fail.
	errs     int
	executed [][]byte
}

func (e *executorMock) ExecuteCreation(db weave.KVStore, requestID []byte) (weave.Address, error) {
	if e.errs > 0 {
		e.errs--
		return nil, errors.Wrap(errors.ErrState, "downstream failure")
	}
	e.executed = append(e.executed, requestID)
	return weavetest.NewCondition().Address(), nil
}

type revocation struct {
	attestationID []byte
	reason        string
}

type notifierMock struct {
	records int
	revoked []revocation
}

func (n *notifierMock) RecordSignature(db weave.KVStore, requestID []byte, signer weave.Address) ([]byte, error) {
	n.records++
	return weavetest.SequenceID(uint64(n.records)), nil
}

func (n *notifierMock) RevokeSignature(db weave.KVStore, attestationID []byte, reason string) error {
	n.revoked = append(n.revoked, revocation{attestationID: attestationID, reason: reason})
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
