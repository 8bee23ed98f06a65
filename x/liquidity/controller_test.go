package liquidity

import (
	"testing"

	"github.com/iov-one/weave"
	"github.com/iov-one/weave/coin"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/gconf"
	"github.com/iov-one/weave/migration"
	"github.com/iov-one/weave/store"
	"github.com/iov-one/weave/weavetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSqrtPrice = "79228162514264337593543950336"

func TestInitializePool(t *testing.T) {
	db := store.MemStore()
	migration.MustInitPkg(db, "liquidity")
	ctrl := NewController(&moverMock{})

	tokenA := weavetest.NewCondition().Address()
	tokenB := weavetest.NewCondition().Address()

	id, err := ctrl.InitializePool(db, tokenA, "GMEM", "CRFT", 300, 60, testSqrtPrice)
	require.NoError(t, err)
	assert.Equal(t, weavetest.SequenceID(1), id)

	var pool Pool
	require.NoError(t, ctrl.pools.One(db, id, &pool))
	assert.Equal(t, tokenA, pool.Token)
	assert.Equal(t, "CRFT", pool.ReferenceTicker)
	assert.Equal(t, PoolCondition(id).Address(), pool.Address)
	assert.True(t, pool.Deposited.IsZero())
	assert.False(t, pool.ThresholdReached)

	// One pool per token.
	_, err = ctrl.InitializePool(db, tokenA, "GMEM", "CRFT", 300, 60, testSqrtPrice)
	assert.True(t, ErrPoolInitialized.Is(err), "got %+v", err)

	id2, err := ctrl.InitializePool(db, tokenB, "OMEM", "CRFT", 300, 60, testSqrtPrice)
	require.NoError(t, err)
	assert.Equal(t, weavetest.SequenceID(2), id2)
}

func TestDepositAccumulates(t *testing.T) {
	db, ctrl, mover, poolID := depositFixture(t)

	alice := weavetest.NewCondition().Address()
	now := weave.UnixTime(1234567890)

	require.NoError(t, ctrl.Deposit(db, poolID, alice, coin.NewCoin(10, 0, "CRFT"), now))
	require.NoError(t, ctrl.Deposit(db, poolID, alice, coin.NewCoin(15, 0, "CRFT"), now))

	var pos Position
	require.NoError(t, ctrl.positions.One(db, positionKey(poolID, alice), &pos))
	assert.True(t, pos.Amount.Equals(coin.NewCoin(25, 0, "CRFT")))
	assert.False(t, pos.VestingEligible)

	var pool Pool
	require.NoError(t, ctrl.pools.One(db, poolID, &pool))
	assert.True(t, pool.Deposited.Equals(coin.NewCoin(25, 0, "CRFT")))
	assert.False(t, pool.ThresholdReached)

	// Every deposit moves the coins into the pool wallet.
	require.Len(t, mover.moves, 2)
	assert.Equal(t, pool.Address, mover.moves[0].dst)
	assert.Equal(t, alice, mover.moves[0].src)
}

func TestDepositRejections(t *testing.T) {
	db, ctrl, _, poolID := depositFixture(t)
	alice := weavetest.NewCondition().Address()
	now := weave.UnixTime(1234567890)

	err := ctrl.Deposit(db, weavetest.SequenceID(9), alice, coin.NewCoin(1, 0, "CRFT"), now)
	assert.True(t, ErrPoolNotInitialized.Is(err), "got %+v", err)

	err = ctrl.Deposit(db, poolID, alice, coin.NewCoin(1, 0, "DOGE"), now)
	assert.True(t, errors.ErrCurrency.Is(err), "got %+v", err)
}

func TestThresholdCrossingMarksPositions(t *testing.T) {
	db, ctrl, _, poolID := depositFixture(t)

	alice := weavetest.NewCondition().Address()
	bob := weavetest.NewCondition().Address()
	carl := weavetest.NewCondition().Address()
	now := weave.UnixTime(1234567890)
	later := weave.UnixTime(1234567999)

	// Threshold is 100 CRFT. Two deposits stay below it.
	require.NoError(t, ctrl.Deposit(db, poolID, alice, coin.NewCoin(40, 0, "CRFT"), now))
	require.NoError(t, ctrl.Deposit(db, poolID, bob, coin.NewCoin(50, 0, "CRFT"), now))

	var pool Pool
	require.NoError(t, ctrl.pools.One(db, poolID, &pool))
	require.False(t, pool.ThresholdReached)

	// The crossing deposit flags every open position, its own included.
	require.NoError(t, ctrl.Deposit(db, poolID, alice, coin.NewCoin(20, 0, "CRFT"), now))
	require.NoError(t, ctrl.pools.One(db, poolID, &pool))
	assert.True(t, pool.ThresholdReached)
	assert.Equal(t, now, pool.VestingStart)

	var pos Position
	require.NoError(t, ctrl.positions.One(db, positionKey(poolID, alice), &pos))
	assert.True(t, pos.VestingEligible)
	require.NoError(t, ctrl.positions.One(db, positionKey(poolID, bob), &pos))
	assert.True(t, pos.VestingEligible)

	// Late providers are not part of the vesting gate and the start time
	// is stamped only once.
	require.NoError(t, ctrl.Deposit(db, poolID, carl, coin.NewCoin(30, 0, "CRFT"), later))
	require.NoError(t, ctrl.positions.One(db, positionKey(poolID, carl), &pos))
	assert.False(t, pos.VestingEligible)
	require.NoError(t, ctrl.pools.One(db, poolID, &pool))
	assert.Equal(t, now, pool.VestingStart)
}

func depositFixture(t *testing.T) (weave.KVStore, *Controller, *moverMock, []byte) {
	t.Helper()

	db := store.MemStore()
	migration.MustInitPkg(db, "liquidity")

	conf := Configuration{
		Metadata:         &weave.Metadata{Schema: 1},
		Owner:            weavetest.NewCondition().Address(),
		VestingThreshold: coin.NewCoin(100, 0, "CRFT"),
	}
	require.NoError(t, gconf.Save(db, "liquidity", &conf))

	mover := &moverMock{}
	ctrl := NewController(mover)
	poolID, err := ctrl.InitializePool(db,
		weavetest.NewCondition().Address(), "GMEM", "CRFT", 300, 60, testSqrtPrice)
	require.NoError(t, err)
	return db, ctrl, mover, poolID
}

type move struct {
	src    weave.Address
	dst    weave.Address
	amount coin.Coin
}

type moverMock struct {
	moves []move
}

func (m *moverMock) MoveCoins(db weave.KVStore, src weave.Address, dst weave.Address, amount coin.Coin) error {
	m.moves = append(m.moves, move{src: src, dst: dst, amount: amount})
	return nil
}
