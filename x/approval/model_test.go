package approval

import (
	"testing"

	"github.com/iov-one/weave"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/weavetest"
)

func TestSignatureSetValidate(t *testing.T) {
	requester := weavetest.NewCondition().Address()
	a := weavetest.NewCondition().Address()
	b := weavetest.NewCondition().Address()
	c := weavetest.NewCondition().Address()
	outsider := weavetest.NewCondition().Address()

	cases := map[string]struct {
		set     SignatureSet
		wantErr *errors.Error
	}{
		"fresh set": {
			set: SignatureSet{
				Metadata:  &weave.Metadata{Schema: 1},
				Requester: requester,
				Signers:   []weave.Address{a, b, c},
			},
		},
		"set with a collected signature": {
			set: SignatureSet{
				Metadata:     &weave.Metadata{Schema: 1},
				Requester:    requester,
				Signers:      []weave.Address{a, b, c},
				Collected:    []weave.Address{a},
				Attestations: [][]byte{weavetest.SequenceID(1)},
			},
		},
		"closed set": {
			set: SignatureSet{
				Metadata:  &weave.Metadata{Schema: 1},
				Requester: requester,
				Signers:   []weave.Address{a, b, c},
				Closed:    true,
			},
		},
		"missing metadata": {
			set: SignatureSet{
				Requester: requester,
				Signers:   []weave.Address{a, b, c},
			},
			wantErr: errors.ErrMetadata,
		},
		"too few signers": {
			set: SignatureSet{
				Metadata:  &weave.Metadata{Schema: 1},
				Requester: requester,
				Signers:   []weave.Address{a},
			},
			wantErr: errors.ErrModel,
		},
		"closed set must not hold signatures": {
			set: SignatureSet{
				Metadata:     &weave.Metadata{Schema: 1},
				Requester:    requester,
				Signers:      []weave.Address{a, b, c},
				Collected:    []weave.Address{a},
				Attestations: [][]byte{weavetest.SequenceID(1)},
				Closed:       true,
			},
			wantErr: errors.ErrModel,
		},
		"quorum many signatures cannot rest in the store": {
			set: SignatureSet{
				Metadata:  &weave.Metadata{Schema: 1},
				Requester: requester,
				Signers:   []weave.Address{a, b, c},
				Collected: []weave.Address{a, b},
				Attestations: [][]byte{
					weavetest.SequenceID(1), weavetest.SequenceID(2),
				},
			},
			wantErr: errors.ErrModel,
		},
		"attestations must align with signatures": {
			set: SignatureSet{
				Metadata:  &weave.Metadata{Schema: 1},
				Requester: requester,
				Signers:   []weave.Address{a, b, c},
				Collected: []weave.Address{a},
			},
			wantErr: errors.ErrModel,
		},
		"collected signature of an outsider": {
			set: SignatureSet{
				Metadata:     &weave.Metadata{Schema: 1},
				Requester:    requester,
				Signers:      []weave.Address{a, b, c},
				Collected:    []weave.Address{outsider},
				Attestations: [][]byte{weavetest.SequenceID(1)},
			},
			wantErr: errors.ErrModel,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			if err := tc.set.Validate(); !tc.wantErr.Is(err) {
				t.Fatalf("want %+v, got %+v", tc.wantErr, err)
			}
		})
	}
}
