package approval

import (
	"github.com/iov-one/weave/errors"
)

var (
	// ErrAlreadySigned is returned when a signer approves the same
	// request twice.
	ErrAlreadySigned = errors.Register(1520, "already signed")

	// ErrNotSigned is returned when withdrawing an approval that was
	// never given.
	ErrNotSigned = errors.Register(1521, "not signed")

	// ErrAlreadyExecuted is returned when signing a request whose
	// collection is closed because quorum already triggered execution.
	ErrAlreadyExecuted = errors.Register(1522, "transaction already executed")
)
