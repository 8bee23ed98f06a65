package tokenfactory

import (
	"github.com/iov-one/weave"
	"github.com/iov-one/weave/coin"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/orm"
)

// Pool parameters applied to every bootstrapped pool. These are protocol
// constants and cannot be chosen per request. The price is the 1:1 starting
// price in X96 fixed point notation.
const (
	PoolFeeTier     uint32 = 300
	PoolTickSpacing uint32 = 60
	PoolSqrtPrice          = "79228162514264337593543950336"
)

// CoinMinter is implemented by x/cash controller. It is used to issue the
// initial supply of a created token to the requester.
type CoinMinter interface {
	CoinMint(weave.KVStore, weave.Address, coin.Coin) error
}

// PoolBootstrap pairs a newly created token with the reference currency in
// a tradeable pool. Implemented by the x/liquidity controller.
type PoolBootstrap interface {
	InitializePool(db weave.KVStore, token weave.Address, ticker, referenceTicker string, feeTier, tickSpacing uint32, sqrtPrice string) ([]byte, error)
}

// SignatureOpener starts signature collection for a queued request.
// Implemented by the x/approval controller.
type SignatureOpener interface {
	OpenSignatureSet(db weave.KVStore, requestID []byte, requester weave.Address, signers []weave.Address) error
}

// SignatureCloser terminates signature collection for a request. The
// coordinator recovery path uses it so that an execution outside of the
// quorum flow leaves the collection in the same closed state. Implemented
// by the x/approval controller.
type SignatureCloser interface {
	CloseSignatureSet(db weave.KVStore, requestID []byte) error
}

// Controller implements request execution. It is handed to the approval
// extension at wire-up time so that reaching quorum can trigger execution
// in-process, within the same transaction.
type Controller struct {
	requests orm.ModelBucket
	tokens   orm.ModelBucket
	minter   CoinMinter
	pools    PoolBootstrap
}

func NewController(minter CoinMinter, pools PoolBootstrap) *Controller {
	return &Controller{
		requests: NewRequestBucket(),
		tokens:   NewTokenBucket(),
		minter:   minter,
		pools:    pools,
	}
}

// ExecuteCreation deploys the token described by a pending request and
// bootstraps its liquidity pool. The request is marked executed and its
// token address is set exactly once.
//
// All writes happen within the caller's transaction. When any step fails
// the error aborts the whole delivery and the savepoint rolls back every
// mutation, so a request can never end up executed without a pool, or with
// a token but still pending.
func (c *Controller) ExecuteCreation(db weave.KVStore, requestID []byte) (weave.Address, error) {
	var req CreationRequest
	if err := c.requests.One(db, requestID, &req); err != nil {
		return nil, errors.Wrapf(err, "request %x", requestID)
	}
	if req.Executed {
		return nil, errors.Wrapf(ErrAlreadyExecuted, "request %x", requestID)
	}

	conf, err := loadConf(db)
	if err != nil {
		return nil, err
	}

	tokenAddr := TokenCondition(requestID).Address()
	token := &Token{
		Metadata:     &weave.Metadata{Schema: 1},
		Name:         req.Spec.Name,
		Symbol:       req.Spec.Symbol,
		TotalSupply:  req.Spec.TotalSupply,
		MaxSupply:    req.Spec.MaxSupply,
		Mintable:     req.Spec.Mintable,
		Burnable:     req.Spec.Burnable,
		SupplyCapped: req.Spec.SupplyCapped,
		Owner:        req.Requester,
		Address:      tokenAddr,
	}
	if _, err := c.tokens.Put(db, requestID, token); err != nil {
		return nil, errors.Wrap(err, "store token")
	}

	supply := coin.NewCoin(req.Spec.TotalSupply, 0, req.Spec.Symbol)
	if err := c.minter.CoinMint(db, req.Requester, supply); err != nil {
		return nil, errors.Wrap(err, "mint initial supply")
	}

	if _, err := c.pools.InitializePool(db, tokenAddr, req.Spec.Symbol,
		conf.ReferenceTicker, PoolFeeTier, PoolTickSpacing, PoolSqrtPrice); err != nil {
		return nil, errors.Wrap(err, "initialize pool")
	}

	req.Executed = true
	req.TokenAddress = tokenAddr
	req.TokenID = requestID
	if _, err := c.requests.Put(db, requestID, &req); err != nil {
		return nil, errors.Wrap(err, "store request")
	}
	return tokenAddr, nil
}
