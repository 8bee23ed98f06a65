package tokenfactory

import (
	"testing"

	"github.com/iov-one/weave"
	"github.com/iov-one/weave/coin"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/weavetest"
)

func TestTokenSpecValidate(t *testing.T) {
	cases := map[string]struct {
		spec    TokenSpec
		wantErr *errors.Error
	}{
		"valid minimal spec": {
			spec: TokenSpec{Name: "Meme", Symbol: "MEM", TotalSupply: 1},
		},
		"valid capped spec": {
			spec: TokenSpec{
				Name: "Meme", Symbol: "MEME",
				TotalSupply: 10, MaxSupply: 20, SupplyCapped: true,
			},
		},
		"missing name": {
			spec:    TokenSpec{Symbol: "MEM", TotalSupply: 1},
			wantErr: errors.ErrEmpty,
		},
		"name with forbidden characters": {
			spec:    TokenSpec{Name: "mem€", Symbol: "MEM", TotalSupply: 1},
			wantErr: errors.ErrInput,
		},
		"name too long": {
			spec: TokenSpec{
				Name:   "a name that is way too long to be a token name",
				Symbol: "MEM", TotalSupply: 1,
			},
			wantErr: errors.ErrInput,
		},
		"missing symbol": {
			spec:    TokenSpec{Name: "Meme", TotalSupply: 1},
			wantErr: errors.ErrEmpty,
		},
		"lowercase symbol": {
			spec:    TokenSpec{Name: "Meme", Symbol: "mem", TotalSupply: 1},
			wantErr: errors.ErrInput,
		},
		"zero supply": {
			spec:    TokenSpec{Name: "Meme", Symbol: "MEM"},
			wantErr: ErrSupply,
		},
		"negative supply": {
			spec:    TokenSpec{Name: "Meme", Symbol: "MEM", TotalSupply: -4},
			wantErr: ErrSupply,
		},
		"supply above coin limit": {
			spec: TokenSpec{
				Name: "Meme", Symbol: "MEM",
				TotalSupply: coin.MaxInt + 1,
			},
			wantErr: ErrSupply,
		},
		"cap above coin limit": {
			spec: TokenSpec{
				Name: "Meme", Symbol: "MEM",
				TotalSupply: 10, MaxSupply: coin.MaxInt + 1, SupplyCapped: true,
			},
			wantErr: ErrSupply,
		},
		"supply at coin limit": {
			spec: TokenSpec{
				Name: "Meme", Symbol: "MEM",
				TotalSupply: coin.MaxInt,
			},
		},
		"cap below supply": {
			spec: TokenSpec{
				Name: "Meme", Symbol: "MEM",
				TotalSupply: 10, MaxSupply: 5, SupplyCapped: true,
			},
			wantErr: ErrSupply,
		},
		"cap ignored when not capped": {
			spec: TokenSpec{
				Name: "Meme", Symbol: "MEM",
				TotalSupply: 10, MaxSupply: 5,
			},
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			if err := tc.spec.Validate(); !tc.wantErr.Is(err) {
				t.Fatalf("want %+v, got %+v", tc.wantErr, err)
			}
		})
	}
}

func TestValidateSigners(t *testing.T) {
	a := weavetest.NewCondition().Address()
	b := weavetest.NewCondition().Address()

	cases := map[string]struct {
		signers []weave.Address
		wantErr *errors.Error
	}{
		"two signers": {
			signers: []weave.Address{a, b},
		},
		"no signers": {
			wantErr: ErrSignerCount,
		},
		"one signer": {
			signers: []weave.Address{a},
			wantErr: ErrSignerCount,
		},
		"duplicated signer": {
			signers: []weave.Address{a, b, a},
			wantErr: errors.ErrDuplicate,
		},
		"invalid address": {
			signers: []weave.Address{a, []byte("too-short")},
			wantErr: errors.ErrInput,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			if err := validateSigners(tc.signers); !tc.wantErr.Is(err) {
				t.Fatalf("want %+v, got %+v", tc.wantErr, err)
			}
		})
	}
}

func TestTokenConditionIsDeterministic(t *testing.T) {
	a := TokenCondition(weavetest.SequenceID(1)).Address()
	b := TokenCondition(weavetest.SequenceID(1)).Address()
	if !a.Equals(b) {
		t.Fatalf("token address must be deterministic: %s != %s", a, b)
	}
	c := TokenCondition(weavetest.SequenceID(2)).Address()
	if a.Equals(c) {
		t.Fatal("different requests must derive different token addresses")
	}
}
