package liquidity

import (
	"github.com/iov-one/weave"
	"github.com/iov-one/weave/coin"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/migration"
	"github.com/iov-one/weave/orm"
)

func init() {
	migration.MustRegister(1, &Pool{}, migration.NoModification)
	migration.MustRegister(1, &Position{}, migration.NoModification)
}

var _ orm.CloneableData = (*Pool)(nil)

func (p *Pool) Validate() error {
	if err := p.Metadata.Validate(); err != nil {
		return errors.Wrap(err, "metadata")
	}
	if err := p.Token.Validate(); err != nil {
		return errors.Wrap(err, "token")
	}
	if !coin.IsCC(p.Ticker) {
		return errors.Wrapf(errors.ErrCurrency, "ticker %q", p.Ticker)
	}
	if !coin.IsCC(p.ReferenceTicker) {
		return errors.Wrapf(errors.ErrCurrency, "reference ticker %q", p.ReferenceTicker)
	}
	if p.FeeTier == 0 {
		return errors.Wrap(errors.ErrEmpty, "fee tier")
	}
	if p.TickSpacing == 0 {
		return errors.Wrap(errors.ErrEmpty, "tick spacing")
	}
	if len(p.SqrtPrice) == 0 {
		return errors.Wrap(errors.ErrEmpty, "sqrt price")
	}
	if err := p.Address.Validate(); err != nil {
		return errors.Wrap(err, "address")
	}
	if err := p.Deposited.Validate(); err != nil {
		return errors.Wrap(err, "deposited")
	}
	if p.Deposited.Ticker != p.ReferenceTicker {
		return errors.Wrapf(errors.ErrCurrency, "deposited in %q", p.Deposited.Ticker)
	}
	if p.ThresholdReached && p.VestingStart == 0 {
		return errors.Wrap(errors.ErrState, "threshold reached without vesting start")
	}
	return nil
}

func (p *Pool) Copy() orm.CloneableData {
	cpy := *p
	cpy.Metadata = p.Metadata.Copy()
	cpy.Token = p.Token.Clone()
	cpy.Address = p.Address.Clone()
	return &cpy
}

var _ orm.CloneableData = (*Position)(nil)

func (p *Position) Validate() error {
	if err := p.Metadata.Validate(); err != nil {
		return errors.Wrap(err, "metadata")
	}
	if len(p.Pool) != 8 {
		return errors.Wrapf(errors.ErrInput, "pool id: %X", p.Pool)
	}
	if err := p.Provider.Validate(); err != nil {
		return errors.Wrap(err, "provider")
	}
	if !p.Amount.IsPositive() {
		return errors.Wrap(errors.ErrAmount, "amount must be positive")
	}
	return errors.Wrap(p.Amount.Validate(), "amount")
}

func (p *Position) Copy() orm.CloneableData {
	cpy := *p
	cpy.Metadata = p.Metadata.Copy()
	cpy.Pool = append([]byte(nil), p.Pool...)
	cpy.Provider = p.Provider.Clone()
	return &cpy
}

// PoolCondition derives the deterministic address holding the deposits of
// the pool with the given id.
func PoolCondition(poolID []byte) weave.Condition {
	return weave.NewCondition("lpool", "seq", poolID)
}

// poolSeq assigns pool ids, starting with 1.
var poolSeq = orm.NewSequence("pool", "id")

// NewPoolBucket returns a bucket for keeping pools, keyed by their 8 byte
// sequence id. The token index is unique, there can be only one pool per
// token.
func NewPoolBucket() orm.ModelBucket {
	b := orm.NewModelBucket("pool", &Pool{},
		orm.WithIDSequence(poolSeq),
		orm.WithIndex("token", idxToken, true),
	)
	return migration.NewModelBucket("liquidity", b)
}

// NewPositionBucket returns a bucket for provider positions, keyed by pool
// id and provider address.
func NewPositionBucket() orm.ModelBucket {
	b := orm.NewModelBucket("pos", &Position{},
		orm.WithIndex("pool", idxPool, false),
		orm.WithIndex("provider", idxProvider, false),
	)
	return migration.NewModelBucket("liquidity", b)
}

// positionKey is the composite key a position is stored under.
func positionKey(poolID []byte, provider weave.Address) []byte {
	key := make([]byte, 0, len(poolID)+len(provider))
	key = append(key, poolID...)
	return append(key, provider...)
}

func idxToken(obj orm.Object) ([]byte, error) {
	if obj == nil {
		return nil, errors.Wrap(errors.ErrHuman, "cannot take index of nil")
	}
	p, ok := obj.Value().(*Pool)
	if !ok {
		return nil, errors.Wrap(errors.ErrHuman, "can only take index of Pool")
	}
	return p.Token, nil
}

func idxPool(obj orm.Object) ([]byte, error) {
	p, err := asPosition(obj)
	if err != nil {
		return nil, err
	}
	return p.Pool, nil
}

func idxProvider(obj orm.Object) ([]byte, error) {
	p, err := asPosition(obj)
	if err != nil {
		return nil, err
	}
	return p.Provider, nil
}

func asPosition(obj orm.Object) (*Position, error) {
	if obj == nil {
		return nil, errors.Wrap(errors.ErrHuman, "cannot take index of nil")
	}
	p, ok := obj.Value().(*Position)
	if !ok {
		return nil, errors.Wrap(errors.ErrHuman, "can only take index of Position")
	}
	return p, nil
}
