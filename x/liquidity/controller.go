package liquidity

import (
	"github.com/iov-one/weave"
	"github.com/iov-one/weave/coin"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/orm"
)

// CashController moves reference currency between wallets. Implemented by
// the x/cash controller.
type CashController interface {
	MoveCoins(db weave.KVStore, src weave.Address, dst weave.Address, amount coin.Coin) error
}

// Controller implements pool bootstrap and the deposit bookkeeping. The
// token factory is handed this controller at wire-up time and calls
// InitializePool during request execution.
type Controller struct {
	pools     orm.ModelBucket
	positions orm.ModelBucket
	mover     CashController
}

func NewController(mover CashController) *Controller {
	return &Controller{
		pools:     NewPoolBucket(),
		positions: NewPositionBucket(),
		mover:     mover,
	}
}

// InitializePool creates a pool pairing the given token with the reference
// currency and returns its id. A token can have at most one pool, a second
// initialization fails with ErrPoolInitialized.
func (c *Controller) InitializePool(db weave.KVStore, token weave.Address, ticker, referenceTicker string, feeTier, tickSpacing uint32, sqrtPrice string) ([]byte, error) {
	var existing []Pool
	switch keys, err := c.pools.ByIndex(db, "token", token, &existing); {
	case err != nil:
		return nil, errors.Wrap(err, "token index")
	case len(keys) != 0:
		return nil, errors.Wrapf(ErrPoolInitialized, "token %s", token)
	}

	// The pool address is derived from the id, so the id must be known
	// before the pool is stored.
	key, err := poolSeq.NextVal(db)
	if err != nil {
		return nil, errors.Wrap(err, "pool sequence")
	}
	pool := &Pool{
		Metadata:        &weave.Metadata{Schema: 1},
		Token:           token,
		Ticker:          ticker,
		ReferenceTicker: referenceTicker,
		FeeTier:         feeTier,
		TickSpacing:     tickSpacing,
		SqrtPrice:       sqrtPrice,
		Address:         PoolCondition(key).Address(),
		Deposited:       coin.NewCoin(0, 0, referenceTicker),
	}
	if _, err := c.pools.Put(db, key, pool); err != nil {
		return nil, errors.Wrap(err, "store pool")
	}
	return key, nil
}

// Deposit moves reference currency from the provider into the pool wallet
// and updates the provider's position. Crossing the configured vesting
// threshold for the first time stamps the pool and marks every position
// existing at that moment, the depositing one included, vesting eligible.
func (c *Controller) Deposit(db weave.KVStore, poolID []byte, provider weave.Address, amount coin.Coin, now weave.UnixTime) error {
	var pool Pool
	if err := c.pools.One(db, poolID, &pool); err != nil {
		if errors.ErrNotFound.Is(err) {
			return errors.Wrapf(ErrPoolNotInitialized, "pool %x", poolID)
		}
		return errors.Wrap(err, "load pool")
	}
	if amount.Ticker != pool.ReferenceTicker {
		return errors.Wrapf(errors.ErrCurrency, "deposit in %q, pool takes %q", amount.Ticker, pool.ReferenceTicker)
	}

	if err := c.mover.MoveCoins(db, provider, pool.Address, amount); err != nil {
		return errors.Wrap(err, "move coins")
	}

	key := positionKey(poolID, provider)
	var pos Position
	switch err := c.positions.One(db, key, &pos); {
	case err == nil:
		total, err := pos.Amount.Add(amount)
		if err != nil {
			return errors.Wrap(err, "accumulate position")
		}
		pos.Amount = total
	case errors.ErrNotFound.Is(err):
		pos = Position{
			Metadata: &weave.Metadata{Schema: 1},
			Pool:     poolID,
			Provider: provider,
			Amount:   amount,
		}
	default:
		return errors.Wrap(err, "load position")
	}
	if _, err := c.positions.Put(db, key, &pos); err != nil {
		return errors.Wrap(err, "store position")
	}

	total, err := pool.Deposited.Add(amount)
	if err != nil {
		return errors.Wrap(err, "accumulate deposits")
	}
	pool.Deposited = total

	if !pool.ThresholdReached {
		conf, err := loadConf(db)
		if err != nil {
			return err
		}
		if pool.Deposited.IsGTE(conf.VestingThreshold) {
			pool.ThresholdReached = true
			pool.VestingStart = now
			if err := c.markVestingEligible(db, poolID); err != nil {
				return err
			}
		}
	}

	if _, err := c.pools.Put(db, poolID, &pool); err != nil {
		return errors.Wrap(err, "store pool")
	}
	return nil
}

func (c *Controller) markVestingEligible(db weave.KVStore, poolID []byte) error {
	var positions []Position
	keys, err := c.positions.ByIndex(db, "pool", poolID, &positions)
	if err != nil {
		return errors.Wrap(err, "pool index")
	}
	for i := range positions {
		positions[i].VestingEligible = true
		if _, err := c.positions.Put(db, keys[i], &positions[i]); err != nil {
			return errors.Wrap(err, "store position")
		}
	}
	return nil
}
