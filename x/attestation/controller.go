package attestation

import (
	"github.com/iov-one/weave"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/orm"
)

// Recorder notarizes sign actions. It has no message routes of its own;
// other extensions drive it through this controller.
type Recorder struct {
	attestations orm.ModelBucket
	latest       orm.ModelBucket
}

func NewRecorder() *Recorder {
	return &Recorder{
		attestations: NewAttestationBucket(),
		latest:       NewLatestBucket(),
	}
}

// RecordSignature issues a new attestation for the signer's sign action and
// returns its id. The signer's latest-attestation pointer is overwritten.
func (r *Recorder) RecordSignature(db weave.KVStore, requestID []byte, signer weave.Address) ([]byte, error) {
	att := &Attestation{
		Metadata:  &weave.Metadata{Schema: 1},
		RequestID: append([]byte(nil), requestID...),
		Signer:    signer.Clone(),
	}
	id, err := r.attestations.Put(db, nil, att)
	if err != nil {
		return nil, errors.Wrap(err, "store attestation")
	}
	rec := &LatestRecord{
		Metadata:      &weave.Metadata{Schema: 1},
		AttestationID: id,
	}
	if _, err := r.latest.Put(db, signer, rec); err != nil {
		return nil, errors.Wrap(err, "store latest record")
	}
	return id, nil
}

// RevokeSignature marks the attestation revoked. Revoking twice is a state
// conflict, revoking an unknown id a not found error.
func (r *Recorder) RevokeSignature(db weave.KVStore, attestationID []byte, reason string) error {
	var att Attestation
	if err := r.attestations.One(db, attestationID, &att); err != nil {
		return errors.Wrapf(err, "attestation %x", attestationID)
	}
	if att.Revoked {
		return errors.Wrapf(errors.ErrState, "attestation %x already revoked", attestationID)
	}
	att.Revoked = true
	att.Reason = reason
	_, err := r.attestations.Put(db, attestationID, &att)
	return errors.Wrap(err, "store attestation")
}

// Latest returns the id of the most recent attestation issued for the
// signer.
func (r *Recorder) Latest(db weave.ReadOnlyKVStore, signer weave.Address) ([]byte, error) {
	var rec LatestRecord
	if err := r.latest.One(db, signer, &rec); err != nil {
		return nil, errors.Wrapf(err, "signer %s", signer)
	}
	return rec.AttestationID, nil
}

// RegisterQuery registers the attestation bucket for querying.
func RegisterQuery(qr weave.QueryRouter) {
	NewAttestationBucket().Register("attestations", qr)
}
