package web3

import (
	"context"

	"aptos-playground/internal/move"
	"aptos-playground/internal/txn"
)

// LedgerInfo is the node's view of the chain head.
type LedgerInfo struct {
	ChainID             txn.ChainID
	Epoch               uint64
	LedgerVersion       uint64
	OldestLedgerVersion uint64
	BlockHeight         uint64
	LedgerTimestampUsec uint64
	NodeRole            string
}

// AccountInfo is the on-chain account resource summary.
type AccountInfo struct {
	SequenceNumber    uint64
	AuthenticationKey string
}

// PendingTransaction references a transaction accepted into the mempool.
type PendingTransaction struct {
	Hash                    string
	Sender                  move.AccountAddress
	SequenceNumber          uint64
	ExpirationTimestampSecs uint64
}

// TransactionStatus is the lifecycle state observed while polling.
type TransactionStatus string

const (
	StatusPending         TransactionStatus = "pending"
	StatusSuccess         TransactionStatus = "success"
	StatusExecutionFailed TransactionStatus = "execution_failed"
	StatusExpired         TransactionStatus = "expired"
)

// TransactionRecord is what the node reports for a transaction hash.
type TransactionRecord struct {
	Hash      string
	Type      string
	Status    TransactionStatus
	Version   uint64
	Success   bool
	VMStatus  string
	GasUsed   uint64
	Timestamp uint64
}

// Committed reports whether the transaction was included in a block,
// regardless of its execution result.
func (r TransactionRecord) Committed() bool {
	return r.Status == StatusSuccess || r.Status == StatusExecutionFailed
}

// ChainContext resolves the values every transaction needs from the node.
type ChainContext interface {
	ChainID(ctx context.Context) (txn.ChainID, error)
	EstimateGasPrice(ctx context.Context) (uint64, error)
}

// Client defines the common interface that any ledger implementation must
// provide so the registration flow can run against different networks.
type Client interface {
	ChainContext
	LedgerInfo(ctx context.Context) (LedgerInfo, error)
	Account(ctx context.Context, addr move.AccountAddress) (AccountInfo, error)
	CoinBalance(ctx context.Context, addr move.AccountAddress, coinType move.TypeTag) (uint64, error)
	Submit(ctx context.Context, signed *txn.SignedTransaction) (PendingTransaction, error)
	WaitForTransaction(ctx context.Context, pending PendingTransaction) (TransactionRecord, error)
	WaitForTransactionByHash(ctx context.Context, hash string, expirationSecs uint64) (TransactionRecord, error)
	Close()
}
