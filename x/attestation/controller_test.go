package attestation

import (
	"bytes"
	"testing"

	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/migration"
	"github.com/iov-one/weave/store"
	"github.com/iov-one/weave/weavetest"
)

func TestRecordSignature(t *testing.T) {
	db := store.MemStore()
	migration.MustInitPkg(db, "attestation")
	rec := NewRecorder()

	alice := weavetest.NewCondition().Address()
	bob := weavetest.NewCondition().Address()
	reqID := weavetest.SequenceID(1)

	first, err := rec.RecordSignature(db, reqID, alice)
	if err != nil {
		t.Fatalf("cannot record: %s", err)
	}
	if !bytes.Equal(first, weavetest.SequenceID(1)) {
		t.Fatalf("ids must be assigned from 1: %x", first)
	}
	second, err := rec.RecordSignature(db, reqID, bob)
	if err != nil {
		t.Fatalf("cannot record: %s", err)
	}
	if !bytes.Equal(second, weavetest.SequenceID(2)) {
		t.Fatalf("ids must grow: %x", second)
	}

	var att Attestation
	if err := NewAttestationBucket().One(db, first, &att); err != nil {
		t.Fatalf("cannot load attestation: %s", err)
	}
	if !att.Signer.Equals(alice) || !bytes.Equal(att.RequestID, reqID) || att.Revoked {
		t.Fatalf("unexpected attestation: %+v", att)
	}
}

func TestLatestPointerIsOverwritten(t *testing.T) {
	db := store.MemStore()
	migration.MustInitPkg(db, "attestation")
	rec := NewRecorder()

	alice := weavetest.NewCondition().Address()

	if _, err := rec.RecordSignature(db, weavetest.SequenceID(1), alice); err != nil {
		t.Fatalf("cannot record: %s", err)
	}
	second, err := rec.RecordSignature(db, weavetest.SequenceID(2), alice)
	if err != nil {
		t.Fatalf("cannot record: %s", err)
	}

	latest, err := rec.Latest(db, alice)
	if err != nil {
		t.Fatalf("cannot load latest: %s", err)
	}
	if !bytes.Equal(latest, second) {
		t.Fatalf("latest must point to the most recent attestation: %x", latest)
	}
}

func TestRevokeSignature(t *testing.T) {
	db := store.MemStore()
	migration.MustInitPkg(db, "attestation")
	rec := NewRecorder()

	alice := weavetest.NewCondition().Address()
	id, err := rec.RecordSignature(db, weavetest.SequenceID(1), alice)
	if err != nil {
		t.Fatalf("cannot record: %s", err)
	}

	if err := rec.RevokeSignature(db, id, "signature withdrawn"); err != nil {
		t.Fatalf("cannot revoke: %s", err)
	}
	var att Attestation
	if err := NewAttestationBucket().One(db, id, &att); err != nil {
		t.Fatalf("cannot load attestation: %s", err)
	}
	if !att.Revoked || att.Reason != "signature withdrawn" {
		t.Fatalf("attestation must be revoked: %+v", att)
	}

	if err := rec.RevokeSignature(db, id, "again"); !errors.ErrState.Is(err) {
		t.Fatalf("second revocation must conflict, got %+v", err)
	}
	if err := rec.RevokeSignature(db, weavetest.SequenceID(99), "x"); !errors.ErrNotFound.Is(err) {
		t.Fatalf("unknown attestation must not be found, got %+v", err)
	}
}
