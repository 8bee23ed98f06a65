package attestation

import (
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/migration"
	"github.com/iov-one/weave/orm"
)

func init() {
	migration.MustRegister(1, &Attestation{}, migration.NoModification)
	migration.MustRegister(1, &LatestRecord{}, migration.NoModification)
}

var _ orm.CloneableData = (*Attestation)(nil)

func (a *Attestation) Validate() error {
	if err := a.Metadata.Validate(); err != nil {
		return errors.Wrap(err, "metadata")
	}
	if len(a.RequestID) != 8 {
		return errors.Wrapf(errors.ErrInput, "request id: %X", a.RequestID)
	}
	if err := a.Signer.Validate(); err != nil {
		return errors.Wrap(err, "signer")
	}
	if !a.Revoked && len(a.Reason) != 0 {
		return errors.Wrap(errors.ErrModel, "reason on a live attestation")
	}
	return nil
}

func (a *Attestation) Copy() orm.CloneableData {
	return &Attestation{
		Metadata:  a.Metadata.Copy(),
		RequestID: append([]byte(nil), a.RequestID...),
		Signer:    a.Signer.Clone(),
		Revoked:   a.Revoked,
		Reason:    a.Reason,
	}
}

var _ orm.CloneableData = (*LatestRecord)(nil)

func (l *LatestRecord) Validate() error {
	if err := l.Metadata.Validate(); err != nil {
		return errors.Wrap(err, "metadata")
	}
	if len(l.AttestationID) != 8 {
		return errors.Wrapf(errors.ErrInput, "attestation id: %X", l.AttestationID)
	}
	return nil
}

func (l *LatestRecord) Copy() orm.CloneableData {
	return &LatestRecord{
		Metadata:      l.Metadata.Copy(),
		AttestationID: append([]byte(nil), l.AttestationID...),
	}
}

var attestationSeq = orm.NewSequence("att", "id")

// NewAttestationBucket returns a bucket for keeping attestations, keyed by
// their 8 byte sequence id.
func NewAttestationBucket() orm.ModelBucket {
	b := orm.NewModelBucket("att", &Attestation{},
		orm.WithIDSequence(attestationSeq),
		orm.WithIndex("signer", idxSigner, false),
	)
	return migration.NewModelBucket("attestation", b)
}

// NewLatestBucket returns a bucket mapping a signer address to the id of
// the most recent attestation issued for it.
func NewLatestBucket() orm.ModelBucket {
	b := orm.NewModelBucket("attlast", &LatestRecord{})
	return migration.NewModelBucket("attestation", b)
}

func idxSigner(obj orm.Object) ([]byte, error) {
	if obj == nil {
		return nil, errors.Wrap(errors.ErrHuman, "cannot take index of nil")
	}
	a, ok := obj.Value().(*Attestation)
	if !ok {
		return nil, errors.Wrap(errors.ErrHuman, "can only take index of Attestation")
	}
	return a.Signer, nil
}
