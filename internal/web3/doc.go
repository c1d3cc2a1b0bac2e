// Package web3 houses ledger connectivity for Move based networks: the
// chain-agnostic client contract used by the registration pipeline, the
// records it returns, and the network definitions that map a profile's
// network name to node and faucet endpoints. Concrete REST clients live in
// sub-packages.
package web3
