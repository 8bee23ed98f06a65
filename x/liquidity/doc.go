/*
Package liquidity bootstraps a trading pool for every created token and
keeps the early provider ledger. The pool pairs the token with the
configured reference currency at a fixed starting price; deposits flow
into a per pool wallet. Once the accumulated deposits cross the vesting
threshold, the positions open at that moment become vesting eligible and
the vesting start time is recorded. The vesting schedule itself is
managed off chain.
*/
package liquidity
