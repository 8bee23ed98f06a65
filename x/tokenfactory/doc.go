/*
Package tokenfactory keeps the ledger of token creation requests and turns
an approved request into a deployed token with a bootstrapped liquidity
pool.

A request is submitted together with a fixed signer set and a token spec.
Collection of approvals is delegated to the x/approval extension; once
quorum is reached the approval controller calls back into this package's
Controller to execute the creation. Execution mints the initial supply to
the requester through x/cash and initializes the token's pool against the
configured reference currency through x/liquidity. Either everything
happens, or the request stays pending.
*/
package tokenfactory
