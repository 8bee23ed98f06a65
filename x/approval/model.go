package approval

import (
	"github.com/iov-one/weave"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/migration"
	"github.com/iov-one/weave/orm"
)

func init() {
	migration.MustRegister(1, &SignatureSet{}, migration.NoModification)
}

var _ orm.CloneableData = (*SignatureSet)(nil)

func (s *SignatureSet) Validate() error {
	if err := s.Metadata.Validate(); err != nil {
		return errors.Wrap(err, "metadata")
	}
	if err := s.Requester.Validate(); err != nil {
		return errors.Wrap(err, "requester")
	}
	if len(s.Signers) < 2 {
		return errors.Wrapf(errors.ErrModel, "got %d signers, need at least 2", len(s.Signers))
	}
	for _, a := range s.Signers {
		if err := a.Validate(); err != nil {
			return errors.Wrapf(err, "signer %s", a)
		}
	}
	if s.Closed && len(s.Collected) != 0 {
		return errors.Wrap(errors.ErrModel, "closed set with collected signatures")
	}
	// The quorum reaching signature is consumed by execution, never
	// stored, so at rest there is always room for at least two more.
	if len(s.Collected) > len(s.Signers)-2 {
		return errors.Wrapf(errors.ErrModel, "%d collected signatures for %d signers",
			len(s.Collected), len(s.Signers))
	}
	if len(s.Attestations) != len(s.Collected) {
		return errors.Wrap(errors.ErrModel, "attestations out of sync with collected signatures")
	}
	seen := make(map[string]struct{}, len(s.Collected))
	for _, a := range s.Collected {
		if !s.isEligible(a) {
			return errors.Wrapf(errors.ErrModel, "collected signature of non signer %s", a)
		}
		if _, ok := seen[string(a)]; ok {
			return errors.Wrapf(errors.ErrModel, "duplicated signature of %s", a)
		}
		seen[string(a)] = struct{}{}
	}
	return nil
}

func (s *SignatureSet) Copy() orm.CloneableData {
	cpy := &SignatureSet{
		Metadata:     s.Metadata.Copy(),
		Requester:    s.Requester.Clone(),
		Signers:      make([]weave.Address, 0, len(s.Signers)),
		Collected:    make([]weave.Address, 0, len(s.Collected)),
		Attestations: make([][]byte, 0, len(s.Attestations)),
		Closed:       s.Closed,
	}
	for _, a := range s.Signers {
		cpy.Signers = append(cpy.Signers, a.Clone())
	}
	for _, a := range s.Collected {
		cpy.Collected = append(cpy.Collected, a.Clone())
	}
	for _, a := range s.Attestations {
		cpy.Attestations = append(cpy.Attestations, append([]byte(nil), a...))
	}
	return cpy
}

func (s *SignatureSet) isEligible(addr weave.Address) bool {
	for _, a := range s.Signers {
		if addr.Equals(a) {
			return true
		}
	}
	return false
}

// collectedIndex returns the position of the signer within the collected
// signatures, or -1.
func (s *SignatureSet) collectedIndex(addr weave.Address) int {
	for i, a := range s.Collected {
		if addr.Equals(a) {
			return i
		}
	}
	return -1
}

// NewBucket returns a bucket for keeping signature sets, keyed by the
// creation request id.
func NewBucket() orm.ModelBucket {
	b := orm.NewModelBucket("sig", &SignatureSet{})
	return migration.NewModelBucket("approval", b)
}
