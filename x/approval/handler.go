package approval

import (
	"github.com/iov-one/weave"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/migration"
	"github.com/iov-one/weave/orm"
	"github.com/iov-one/weave/x"
)

const (
	signCost   int64 = 100
	unsignCost int64 = 50
)

// Executor triggers execution of a creation request once quorum is
// reached. Implemented by the x/tokenfactory controller.
type Executor interface {
	ExecuteCreation(db weave.KVStore, requestID []byte) (weave.Address, error)
}

// Notifier records and revokes external attestations of sign actions.
// Implemented by the x/attestation controller.
type Notifier interface {
	RecordSignature(db weave.KVStore, requestID []byte, signer weave.Address) ([]byte, error)
	RevokeSignature(db weave.KVStore, attestationID []byte, reason string) error
}

// RegisterRoutes will instantiate and register all handlers in this package.
func RegisterRoutes(r weave.Registry, auth x.Authenticator, executor Executor, notifier Notifier) {
	r = migration.SchemaMigratingRegistry("approval", r)
	bucket := NewBucket()

	r.Handle(&SignMsg{}, &signHandler{
		auth:     auth,
		sets:     bucket,
		executor: executor,
		notifier: notifier,
	})
	r.Handle(&UnsignMsg{}, &unsignHandler{
		auth:     auth,
		sets:     bucket,
		notifier: notifier,
	})
}

// RegisterQuery registers the signature set bucket for querying.
func RegisterQuery(qr weave.QueryRouter) {
	NewBucket().Register("sigsets", qr)
}

type signHandler struct {
	auth     x.Authenticator
	sets     orm.ModelBucket
	executor Executor
	notifier Notifier
}

var _ weave.Handler = (*signHandler)(nil)

func (h *signHandler) Check(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.CheckResult, error) {
	if _, _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &weave.CheckResult{GasAllocated: signCost}, nil
}

func (h *signHandler) Deliver(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.DeliverResult, error) {
	msg, set, signer, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}

	// Quorum is all-but-one of the signer set, counting the signature
	// being delivered right now. The quorum reaching signature is
	// consumed by triggering execution instead of being recorded.
	if len(set.Collected)+1 == len(set.Signers)-1 {
		// Execution runs before the set is cleared. A failure aborts
		// this whole delivery, so the final approval is not lost to a
		// downstream problem and can be given again later.
		if _, err := h.executor.ExecuteCreation(db, msg.RequestID); err != nil {
			return nil, errors.Wrap(err, "execute creation")
		}
		set.Collected = nil
		set.Attestations = nil
		set.Closed = true
		if _, err := h.sets.Put(db, msg.RequestID, set); err != nil {
			return nil, errors.Wrap(err, "store signature set")
		}
		// The consumed signature is attested as well, even though its
		// id is no longer referenced by the cleared set.
		if _, err := h.notifier.RecordSignature(db, msg.RequestID, signer); err != nil {
			return nil, errors.Wrap(err, "record attestation")
		}
		return &weave.DeliverResult{Log: "memecoin created"}, nil
	}

	attID, err := h.notifier.RecordSignature(db, msg.RequestID, signer)
	if err != nil {
		return nil, errors.Wrap(err, "record attestation")
	}
	set.Collected = append(set.Collected, signer)
	set.Attestations = append(set.Attestations, attID)
	if _, err := h.sets.Put(db, msg.RequestID, set); err != nil {
		return nil, errors.Wrap(err, "store signature set")
	}
	return &weave.DeliverResult{Log: "signature collected"}, nil
}

func (h *signHandler) validate(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*SignMsg, *SignatureSet, weave.Address, error) {
	var msg SignMsg
	if err := weave.LoadMsg(tx, &msg); err != nil {
		return nil, nil, nil, errors.Wrap(err, "load msg")
	}

	var set SignatureSet
	if err := h.sets.One(db, msg.RequestID, &set); err != nil {
		return nil, nil, nil, errors.Wrapf(err, "request %x", msg.RequestID)
	}

	signer, err := mainSigner(ctx, h.auth)
	if err != nil {
		return nil, nil, nil, err
	}
	if !set.isEligible(signer) {
		return nil, nil, nil, errors.Wrapf(errors.ErrUnauthorized, "%s is not a signer", signer)
	}
	if set.Closed {
		return nil, nil, nil, errors.Wrapf(ErrAlreadyExecuted, "request %x", msg.RequestID)
	}
	if set.collectedIndex(signer) != -1 {
		return nil, nil, nil, errors.Wrapf(ErrAlreadySigned, "signer %s", signer)
	}
	return &msg, &set, signer, nil
}

type unsignHandler struct {
	auth     x.Authenticator
	sets     orm.ModelBucket
	notifier Notifier
}

var _ weave.Handler = (*unsignHandler)(nil)

func (h *unsignHandler) Check(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.CheckResult, error) {
	if _, _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &weave.CheckResult{GasAllocated: unsignCost}, nil
}

func (h *unsignHandler) Deliver(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.DeliverResult, error) {
	msg, set, idx, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}

	attID := set.Attestations[idx]
	// True removal, keeping the order of the remaining signatures. A
	// tombstone would leak a hole into every later iteration.
	set.Collected = append(set.Collected[:idx], set.Collected[idx+1:]...)
	set.Attestations = append(set.Attestations[:idx], set.Attestations[idx+1:]...)

	if _, err := h.sets.Put(db, msg.RequestID, set); err != nil {
		return nil, errors.Wrap(err, "store signature set")
	}
	if err := h.notifier.RevokeSignature(db, attID, "signature withdrawn"); err != nil {
		return nil, errors.Wrap(err, "revoke attestation")
	}
	return &weave.DeliverResult{Log: "signature withdrawn"}, nil
}

func (h *unsignHandler) validate(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*UnsignMsg, *SignatureSet, int, error) {
	var msg UnsignMsg
	if err := weave.LoadMsg(tx, &msg); err != nil {
		return nil, nil, 0, errors.Wrap(err, "load msg")
	}

	var set SignatureSet
	if err := h.sets.One(db, msg.RequestID, &set); err != nil {
		return nil, nil, 0, errors.Wrapf(err, "request %x", msg.RequestID)
	}

	signer, err := mainSigner(ctx, h.auth)
	if err != nil {
		return nil, nil, 0, err
	}
	if !set.isEligible(signer) {
		return nil, nil, 0, errors.Wrapf(errors.ErrUnauthorized, "%s is not a signer", signer)
	}
	if set.Closed {
		return nil, nil, 0, errors.Wrapf(ErrAlreadyExecuted, "request %x", msg.RequestID)
	}
	idx := set.collectedIndex(signer)
	if idx == -1 {
		return nil, nil, 0, errors.Wrapf(ErrNotSigned, "signer %s", signer)
	}
	return &msg, &set, idx, nil
}

// mainSigner returns the first condition authenticated for this transaction.
func mainSigner(ctx weave.Context, auth x.Authenticator) (weave.Address, error) {
	conds := auth.GetConditions(ctx)
	if len(conds) == 0 {
		return nil, errors.Wrap(errors.ErrUnauthorized, "no signer")
	}
	return conds[0].Address(), nil
}
