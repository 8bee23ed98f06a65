package tokenfactory

import (
	"github.com/iov-one/weave/errors"
)

var (
	// ErrSignerCount is returned when a request does not come with enough
	// eligible signers to ever reach quorum.
	ErrSignerCount = errors.Register(1500, "invalid signer count")

	// ErrSupply is returned for a token spec with a non-positive total
	// supply or a cap below the total supply.
	ErrSupply = errors.Register(1501, "invalid supply")

	// ErrAlreadyExecuted is returned when trying to execute a request
	// that is no longer pending.
	ErrAlreadyExecuted = errors.Register(1502, "transaction already executed")
)
