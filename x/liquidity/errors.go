package liquidity

import (
	"github.com/iov-one/weave/errors"
)

var (
	// ErrPoolInitialized is returned when bootstrapping a pool for a
	// token that already has one.
	ErrPoolInitialized = errors.Register(1560, "pool already initialized")

	// ErrPoolNotInitialized is returned when depositing into a pool that
	// does not exist.
	ErrPoolNotInitialized = errors.Register(1561, "pool not initialized")
)
