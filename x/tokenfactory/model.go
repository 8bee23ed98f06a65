package tokenfactory

import (
	"regexp"

	"github.com/iov-one/weave"
	"github.com/iov-one/weave/coin"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/migration"
	"github.com/iov-one/weave/orm"
)

func init() {
	migration.MustRegister(1, &CreationRequest{}, migration.NoModification)
	migration.MustRegister(1, &Token{}, migration.NoModification)
}

var (
	isTokenName = regexp.MustCompile(`^[A-Za-z0-9 \-_:]{1,32}$`).MatchString
	// Symbols follow ticker rules so the minted supply is a valid coin.
	isTokenSymbol = regexp.MustCompile(`^[A-Z]{3,4}$`).MatchString
)

var _ orm.CloneableData = (*CreationRequest)(nil)

func (r *CreationRequest) Validate() error {
	if err := r.Metadata.Validate(); err != nil {
		return errors.Wrap(err, "metadata")
	}
	if err := r.Requester.Validate(); err != nil {
		return errors.Wrap(err, "requester")
	}
	if err := validateSigners(r.Signers); err != nil {
		return err
	}
	if r.Spec == nil {
		return errors.Wrap(errors.ErrEmpty, "spec")
	}
	if err := r.Spec.Validate(); err != nil {
		return errors.Wrap(err, "spec")
	}
	if r.Executed {
		if err := r.TokenAddress.Validate(); err != nil {
			return errors.Wrap(err, "token address")
		}
	} else if len(r.TokenAddress) != 0 {
		return errors.Wrap(errors.ErrState, "pending request with token address")
	}
	return nil
}

func (r *CreationRequest) Copy() orm.CloneableData {
	cpy := &CreationRequest{
		Metadata:     r.Metadata.Copy(),
		Requester:    r.Requester.Clone(),
		Signers:      make([]weave.Address, 0, len(r.Signers)),
		Executed:     r.Executed,
		TokenAddress: r.TokenAddress.Clone(),
		TokenID:      append([]byte(nil), r.TokenID...),
	}
	for _, s := range r.Signers {
		cpy.Signers = append(cpy.Signers, s.Clone())
	}
	if r.Spec != nil {
		spec := *r.Spec
		cpy.Spec = &spec
	}
	return cpy
}

// Validate enforces the token spec boundaries. The same rules are applied to
// the submit message, so a request that made it into the store is known to
// describe a deployable token.
func (s *TokenSpec) Validate() error {
	if len(s.Name) == 0 {
		return errors.Wrap(errors.ErrEmpty, "name")
	}
	if !isTokenName(s.Name) {
		return errors.Wrapf(errors.ErrInput, "token name %q", s.Name)
	}
	if len(s.Symbol) == 0 {
		return errors.Wrap(errors.ErrEmpty, "symbol")
	}
	if !isTokenSymbol(s.Symbol) {
		return errors.Wrapf(errors.ErrInput, "token symbol %q", s.Symbol)
	}
	if s.TotalSupply <= 0 {
		return errors.Wrap(ErrSupply, "total supply must be greater than 0")
	}
	// The supply is minted as a single coin, so it must not exceed what a
	// coin can hold or every execution attempt would fail.
	if s.TotalSupply > coin.MaxInt {
		return errors.Wrapf(ErrSupply, "total supply above %d", coin.MaxInt)
	}
	if s.MaxSupply > coin.MaxInt {
		return errors.Wrapf(ErrSupply, "max supply above %d", coin.MaxInt)
	}
	if s.SupplyCapped && s.MaxSupply < s.TotalSupply {
		return errors.Wrap(ErrSupply, "max supply below total supply")
	}
	return nil
}

func validateSigners(signers []weave.Address) error {
	if len(signers) < 2 {
		return errors.Wrapf(ErrSignerCount, "got %d signers, need at least 2", len(signers))
	}
	seen := make(map[string]struct{}, len(signers))
	for _, s := range signers {
		if err := s.Validate(); err != nil {
			return errors.Wrapf(err, "signer %s", s)
		}
		if _, ok := seen[string(s)]; ok {
			return errors.Wrapf(errors.ErrDuplicate, "signer %s", s)
		}
		seen[string(s)] = struct{}{}
	}
	return nil
}

var _ orm.CloneableData = (*Token)(nil)

func (t *Token) Validate() error {
	if err := t.Metadata.Validate(); err != nil {
		return errors.Wrap(err, "metadata")
	}
	if !isTokenName(t.Name) {
		return errors.Wrapf(errors.ErrInput, "token name %q", t.Name)
	}
	if !isTokenSymbol(t.Symbol) {
		return errors.Wrapf(errors.ErrInput, "token symbol %q", t.Symbol)
	}
	if t.TotalSupply <= 0 {
		return errors.Wrap(ErrSupply, "total supply must be greater than 0")
	}
	if err := t.Owner.Validate(); err != nil {
		return errors.Wrap(err, "owner")
	}
	return errors.Wrap(t.Address.Validate(), "address")
}

func (t *Token) Copy() orm.CloneableData {
	cpy := *t
	cpy.Metadata = t.Metadata.Copy()
	cpy.Owner = t.Owner.Clone()
	cpy.Address = t.Address.Clone()
	return &cpy
}

// TokenCondition derives the deterministic address of a token created for
// the given request id.
func TokenCondition(requestID []byte) weave.Condition {
	return weave.NewCondition("factory", "token", requestID)
}

// requestSeq assigns request ids. Sequences hand out values starting with 1,
// so id 0 is never allocated and stays a sentinel.
var requestSeq = orm.NewSequence("req", "id")

// NewRequestBucket returns a bucket for keeping creation requests, keyed by
// their 8 byte sequence id.
func NewRequestBucket() orm.ModelBucket {
	b := orm.NewModelBucket("req", &CreationRequest{},
		orm.WithIDSequence(requestSeq),
		orm.WithIndex("requester", idxRequester, false),
	)
	return migration.NewModelBucket("tokenfactory", b)
}

// NewTokenBucket returns a bucket for deployed token registry entries, keyed
// by the creating request id.
func NewTokenBucket() orm.ModelBucket {
	b := orm.NewModelBucket("tkn", &Token{},
		orm.WithIndex("symbol", idxSymbol, true),
	)
	return migration.NewModelBucket("tokenfactory", b)
}

func idxRequester(obj orm.Object) ([]byte, error) {
	r, err := asRequest(obj)
	if err != nil {
		return nil, err
	}
	return r.Requester, nil
}

func idxSymbol(obj orm.Object) ([]byte, error) {
	if obj == nil {
		return nil, errors.Wrap(errors.ErrHuman, "cannot take index of nil")
	}
	t, ok := obj.Value().(*Token)
	if !ok {
		return nil, errors.Wrap(errors.ErrHuman, "can only take index of Token")
	}
	return []byte(t.Symbol), nil
}

func asRequest(obj orm.Object) (*CreationRequest, error) {
	if obj == nil {
		return nil, errors.Wrap(errors.ErrHuman, "cannot take index of nil")
	}
	r, ok := obj.Value().(*CreationRequest)
	if !ok {
		return nil, errors.Wrap(errors.ErrHuman, "can only take index of CreationRequest")
	}
	return r, nil
}
