/*
Package app wires the extensions into a complete ABCI application.

The token factory, approval and liquidity controllers call each other
through small consumer side interfaces. All of them are constructed and
connected here, so none of the extensions imports another one.
*/
package app

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/iov-one/weave"
	"github.com/iov-one/weave/app"
	"github.com/iov-one/weave/coin"
	"github.com/iov-one/weave/migration"
	"github.com/iov-one/weave/orm"
	"github.com/iov-one/weave/store/iavl"
	"github.com/iov-one/weave/x"
	"github.com/iov-one/weave/x/cash"
	"github.com/iov-one/weave/x/sigs"
	"github.com/iov-one/weave/x/utils"

	"github.com/craftmeme/craftd/x/approval"
	"github.com/craftmeme/craftd/x/attestation"
	"github.com/craftmeme/craftd/x/liquidity"
	"github.com/craftmeme/craftd/x/tokenfactory"
)

// Authenticator returns the typical authentication,
// just using public key signatures
func Authenticator() x.Authenticator {
	return sigs.Authenticate{}
}

// CashControl returns a controller for cash functions. The concrete type
// is returned because token creation needs the minting operations that are
// not part of the cash.Controller interface.
func CashControl() cash.BaseController {
	return cash.NewController(cash.NewBucket())
}

// Chain returns a chain of decorators, to handle authentication,
// fees, logging, and recovery
func Chain(authFn x.Authenticator) app.Decorators {
	return app.ChainDecorators(
		utils.NewLogging(),
		utils.NewRecovery(),
		utils.NewKeyTagger(),
		// on CheckTx, bad tx don't affect state
		utils.NewSavepoint().OnCheck(),
		sigs.NewDecorator(),
		cash.NewFeeDecorator(authFn, CashControl()),
		// on DeliverTx, bad tx will increment nonce and take fee
		// even if the message fails
		utils.NewSavepoint().OnDeliver(),
	)
}

// Router returns the application router with every extension wired up. A
// quorum reaching sign triggers request execution, which in turn mints the
// supply and bootstraps the pool, all within one delivery.
func Router(authFn x.Authenticator) *app.Router {
	r := app.NewRouter()

	cashCtrl := CashControl()
	liquidityCtrl := liquidity.NewController(cashCtrl)
	factoryCtrl := tokenfactory.NewController(cashCtrl, liquidityCtrl)
	approvalCtrl := approval.NewController()
	recorder := attestation.NewRecorder()

	cash.RegisterRoutes(r, authFn, cashCtrl)
	migration.RegisterRoutes(r, authFn)
	tokenfactory.RegisterRoutes(r, authFn, factoryCtrl, approvalCtrl, approvalCtrl)
	approval.RegisterRoutes(r, authFn, factoryCtrl, recorder)
	liquidity.RegisterRoutes(r, authFn, liquidityCtrl)
	return r
}

// QueryRouter returns a default query router
func QueryRouter() weave.QueryRouter {
	r := weave.NewQueryRouter()
	r.RegisterAll(
		cash.RegisterQuery,
		sigs.RegisterQuery,
		migration.RegisterQuery,
		tokenfactory.RegisterQuery,
		approval.RegisterQuery,
		attestation.RegisterQuery,
		liquidity.RegisterQuery,
		orm.RegisterQuery,
	)
	return r
}

// Stack wires up a standard router with a standard decorator
// chain. This can be passed into BaseApp.
func Stack(minFee coin.Coin) weave.Handler {
	authFn := Authenticator()
	return Chain(authFn).WithHandler(Router(authFn))
}

// Application constructs a basic ABCI application with
// the given arguments. If you are not sure what to use
// for the Handler, just use Stack().
func Application(name string, h weave.Handler,
	tx weave.TxDecoder, dbPath string, debug bool) (app.BaseApp, error) {

	ctx := context.Background()
	kv, err := CommitKVStore(dbPath)
	if err != nil {
		return app.BaseApp{}, err
	}
	store := app.NewStoreApp(name, kv, QueryRouter(), ctx)
	base := app.NewBaseApp(store, tx, h, nil, debug)
	return base, nil
}

// CommitKVStore returns an initialized KVStore that persists
// the data to the named path.
func CommitKVStore(dbPath string) (weave.CommitKVStore, error) {
	// memory backed case, just for testing
	if dbPath == "" {
		return iavl.MockCommitStore(), nil
	}

	// Expand the path fully
	path, err := filepath.Abs(dbPath)
	if err != nil {
		return nil, fmt.Errorf("invalid database name: %s", path)
	}

	// Some external calls accidentally add a ".db", which is now removed
	path = strings.TrimSuffix(path, filepath.Ext(path))

	// Split the database name into it's components (dir, name)
	dir := filepath.Dir(path)
	name := filepath.Base(path)
	return iavl.NewCommitStore(dir, name), nil
}
