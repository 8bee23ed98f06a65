package liquidity

import (
	"github.com/iov-one/weave"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/gconf"
	"github.com/iov-one/weave/migration"
	"github.com/iov-one/weave/x"
)

const addLiquidityCost int64 = 200

// RegisterRoutes will instantiate and register all handlers in this package.
func RegisterRoutes(r weave.Registry, auth x.Authenticator, ctrl *Controller) {
	r = migration.SchemaMigratingRegistry("liquidity", r)

	r.Handle(&AddLiquidityMsg{}, &addLiquidityHandler{
		auth: auth,
		ctrl: ctrl,
	})
	r.Handle(&UpdateConfigurationMsg{},
		gconf.NewUpdateConfigurationHandler("liquidity", &Configuration{}, auth, nil))
}

// RegisterQuery registers pool and position buckets for querying.
func RegisterQuery(qr weave.QueryRouter) {
	NewPoolBucket().Register("pools", qr)
	NewPositionBucket().Register("positions", qr)
}

type addLiquidityHandler struct {
	auth x.Authenticator
	ctrl *Controller
}

var _ weave.Handler = (*addLiquidityHandler)(nil)

func (h *addLiquidityHandler) Check(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.CheckResult, error) {
	if _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &weave.CheckResult{GasAllocated: addLiquidityCost}, nil
}

func (h *addLiquidityHandler) Deliver(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.DeliverResult, error) {
	msg, provider, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	now, err := weave.BlockTime(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "block time")
	}
	if err := h.ctrl.Deposit(db, msg.PoolID, provider, msg.Amount, weave.AsUnixTime(now)); err != nil {
		return nil, err
	}
	return &weave.DeliverResult{Log: "liquidity added"}, nil
}

func (h *addLiquidityHandler) validate(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*AddLiquidityMsg, weave.Address, error) {
	var msg AddLiquidityMsg
	if err := weave.LoadMsg(tx, &msg); err != nil {
		return nil, nil, errors.Wrap(err, "load msg")
	}
	conds := h.auth.GetConditions(ctx)
	if len(conds) == 0 {
		return nil, nil, errors.Wrap(errors.ErrUnauthorized, "no signer")
	}
	return &msg, conds[0].Address(), nil
}
