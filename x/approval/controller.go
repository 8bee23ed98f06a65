package approval

import (
	"github.com/iov-one/weave"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/orm"
)

// Controller exposes signature set management to the factory. Only the
// factory submit handler is given this handle, which is what restricts who
// can open a collection.
type Controller struct {
	sets orm.ModelBucket
}

func NewController() *Controller {
	return &Controller{sets: NewBucket()}
}

// OpenSignatureSet initializes a fresh signature set for the given request.
// Any previous set under that id is overwritten; a correct factory never
// reuses ids, so this is only ever an idempotent re-open.
//
// The signer slice is copied. The collection must not observe later
// mutations of the caller's storage.
func (c *Controller) OpenSignatureSet(db weave.KVStore, requestID []byte, requester weave.Address, signers []weave.Address) error {
	if err := validateRequestID(requestID); err != nil {
		return err
	}
	set := &SignatureSet{
		Metadata:  &weave.Metadata{Schema: 1},
		Requester: requester.Clone(),
		Signers:   make([]weave.Address, 0, len(signers)),
	}
	for _, s := range signers {
		set.Signers = append(set.Signers, s.Clone())
	}
	_, err := c.sets.Put(db, requestID, set)
	return errors.Wrap(err, "store signature set")
}

// CloseSignatureSet terminates the collection for a request that was
// executed outside of the usual quorum flow. The set is wiped and closed
// the same way a quorum execution leaves it, so signers cannot keep signing
// an already executed request.
func (c *Controller) CloseSignatureSet(db weave.KVStore, requestID []byte) error {
	var set SignatureSet
	if err := c.sets.One(db, requestID, &set); err != nil {
		return errors.Wrapf(err, "request %x", requestID)
	}
	set.Collected = nil
	set.Attestations = nil
	set.Closed = true
	_, err := c.sets.Put(db, requestID, &set)
	return errors.Wrap(err, "store signature set")
}
