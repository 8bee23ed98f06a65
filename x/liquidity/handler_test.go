package liquidity

import (
	"context"
	"testing"
	"time"

	"github.com/iov-one/weave"
	"github.com/iov-one/weave/app"
	"github.com/iov-one/weave/coin"
	"github.com/iov-one/weave/gconf"
	"github.com/iov-one/weave/migration"
	"github.com/iov-one/weave/store"
	"github.com/iov-one/weave/weavetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddLiquidityHandler(t *testing.T) {
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

	rt := app.NewRouter()
	auth := &weavetest.CtxAuth{Key: "auth"}
	RegisterRoutes(rt, auth, ctrl)

	provider := weavetest.NewCondition()
	blockTime := time.Unix(1234567890, 0)
	ctx := weave.WithHeight(context.Background(), 100)
	ctx = weave.WithChainID(ctx, "testchain-123")
	ctx = weave.WithBlockTime(ctx, blockTime)
	ctx = auth.SetConditions(ctx, provider)

	tx := &weavetest.Tx{Msg: &AddLiquidityMsg{
		Metadata: &weave.Metadata{Schema: 1},
		PoolID:   poolID,
		Amount:   coin.NewCoin(120, 0, "CRFT"),
	}}
	cache := db.CacheWrap()
	_, err = rt.Check(ctx, cache, tx)
	require.NoError(t, err)
	cache.Discard()
	_, err = rt.Deliver(ctx, db, tx)
	require.NoError(t, err)

	// The signer is the provider and the deposit crossed the threshold,
	// so the position is opened vesting eligible right away.
	var pos Position
	require.NoError(t, ctrl.positions.One(db, positionKey(poolID, provider.Address()), &pos))
	assert.True(t, pos.Amount.Equals(coin.NewCoin(120, 0, "CRFT")))
	assert.True(t, pos.VestingEligible)

	var pool Pool
	require.NoError(t, ctrl.pools.One(db, poolID, &pool))
	assert.True(t, pool.ThresholdReached)
	assert.Equal(t, weave.AsUnixTime(blockTime), pool.VestingStart)
	require.Len(t, mover.moves, 1)
	assert.Equal(t, provider.Address(), mover.moves[0].src)
	assert.Equal(t, pool.Address, mover.moves[0].dst)
}
