package tokenfactory

import (
	"github.com/iov-one/weave"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/gconf"
	"github.com/iov-one/weave/migration"
	"github.com/iov-one/weave/orm"
	"github.com/iov-one/weave/x"
)

const (
	submitRequestCost  int64 = 300
	executeRequestCost int64 = 100
)

// RegisterRoutes will instantiate and register all handlers in this package.
func RegisterRoutes(r weave.Registry, auth x.Authenticator, ctrl *Controller, opener SignatureOpener, closer SignatureCloser) {
	r = migration.SchemaMigratingRegistry("tokenfactory", r)

	r.Handle(&SubmitRequestMsg{}, &submitRequestHandler{
		auth:     auth,
		requests: NewRequestBucket(),
		opener:   opener,
	})
	r.Handle(&ExecuteRequestMsg{}, &executeRequestHandler{
		auth:   auth,
		ctrl:   ctrl,
		closer: closer,
	})
	r.Handle(&UpdateConfigurationMsg{},
		gconf.NewUpdateConfigurationHandler("tokenfactory", &Configuration{}, auth, nil))
}

// RegisterQuery registers request and token buckets for querying.
func RegisterQuery(qr weave.QueryRouter) {
	NewRequestBucket().Register("requests", qr)
	NewTokenBucket().Register("tokens", qr)
}

type submitRequestHandler struct {
	auth     x.Authenticator
	requests orm.ModelBucket
	opener   SignatureOpener
}

var _ weave.Handler = (*submitRequestHandler)(nil)

func (h *submitRequestHandler) Check(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.CheckResult, error) {
	if _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &weave.CheckResult{GasAllocated: submitRequestCost}, nil
}

func (h *submitRequestHandler) Deliver(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.DeliverResult, error) {
	msg, requester, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}

	req := &CreationRequest{
		Metadata:  &weave.Metadata{Schema: 1},
		Requester: requester,
		Signers:   msg.Signers,
		Spec:      msg.Spec,
	}
	key, err := h.requests.Put(db, nil, req)
	if err != nil {
		return nil, errors.Wrap(err, "store request")
	}

	// The coordinator keeps its own copy of the signer set, so later
	// changes to the ledger record cannot influence a running collection.
	if err := h.opener.OpenSignatureSet(db, key, requester, msg.Signers); err != nil {
		return nil, errors.Wrap(err, "open signature set")
	}

	return &weave.DeliverResult{Data: key, Log: "request queued"}, nil
}

func (h *submitRequestHandler) validate(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*SubmitRequestMsg, weave.Address, error) {
	var msg SubmitRequestMsg
	if err := weave.LoadMsg(tx, &msg); err != nil {
		return nil, nil, errors.Wrap(err, "load msg")
	}

	requester := msg.Requester
	if len(requester) == 0 {
		conds := h.auth.GetConditions(ctx)
		if len(conds) == 0 {
			return nil, nil, errors.Wrap(errors.ErrUnauthorized, "no signer")
		}
		requester = conds[0].Address()
	}
	if !h.auth.HasAddress(ctx, requester) {
		return nil, nil, errors.Wrap(errors.ErrUnauthorized, "requester signature missing")
	}
	return &msg, requester, nil
}

type executeRequestHandler struct {
	auth   x.Authenticator
	ctrl   *Controller
	closer SignatureCloser
}

var _ weave.Handler = (*executeRequestHandler)(nil)

func (h *executeRequestHandler) Check(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.CheckResult, error) {
	if _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &weave.CheckResult{GasAllocated: executeRequestCost}, nil
}

func (h *executeRequestHandler) Deliver(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.DeliverResult, error) {
	msg, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	addr, err := h.ctrl.ExecuteCreation(db, msg.RequestID)
	if err != nil {
		return nil, err
	}
	// The collection must end together with the request, otherwise signers
	// could keep signing an already executed request.
	if err := h.closer.CloseSignatureSet(db, msg.RequestID); err != nil {
		return nil, errors.Wrap(err, "close signature set")
	}
	return &weave.DeliverResult{Data: addr, Log: "memecoin created"}, nil
}

// validate ensures the transaction is signed by the registered coordinator
// identity, falling back to the administrative override.
func (h *executeRequestHandler) validate(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*ExecuteRequestMsg, error) {
	var msg ExecuteRequestMsg
	if err := weave.LoadMsg(tx, &msg); err != nil {
		return nil, errors.Wrap(err, "load msg")
	}
	conf, err := loadConf(db)
	if err != nil {
		return nil, err
	}
	if h.auth.HasAddress(ctx, conf.Coordinator) {
		return &msg, nil
	}
	if len(conf.Admin) != 0 && h.auth.HasAddress(ctx, conf.Admin) {
		return &msg, nil
	}
	return nil, errors.Wrap(errors.ErrUnauthorized, "neither coordinator nor admin")
}
