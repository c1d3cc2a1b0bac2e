package aptos

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	xerrors "aptos-playground/internal/errors"
	"aptos-playground/internal/web3"
)

// WaitForTransaction polls until the pending transaction is committed, the
// node reports it expired, or the wait timeout elapses.
func (c *Client) WaitForTransaction(ctx context.Context, pending web3.PendingTransaction) (web3.TransactionRecord, error) {
	return c.WaitForTransactionByHash(ctx, pending.Hash, pending.ExpirationTimestampSecs)
}

// WaitForTransactionByHash polls the by-hash endpoint. An expirationSecs of
// zero disables the expiry check and leaves only the timeout.
//
// A committed transaction whose execution aborted is returned together with
// an EXECUTION_FAILED error so callers can inspect the record.
func (c *Client) WaitForTransactionByHash(ctx context.Context, hash string, expirationSecs uint64) (web3.TransactionRecord, error) {
	const op = "wait for transaction"
	if hash == "" {
		return web3.TransactionRecord{}, xerrors.New(xerrors.CodeInvalidArgument, "交易哈希为空", xerrors.WithOperation(op))
	}

	waitCtx, cancel := context.WithTimeout(ctx, c.waitTimeout)
	defer cancel()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	polls := 0
	for {
		polls++
		record, done, err := c.lookup(waitCtx, op, hash, expirationSecs)
		if err != nil {
			if waitCtx.Err() != nil {
				return web3.TransactionRecord{}, c.waitAborted(ctx, op, hash, polls)
			}
			return record, err
		}
		if done {
			c.logger.Debug("transaction finalized", "hash", hash, "status", record.Status, "polls", polls)
			return record, nil
		}

		select {
		case <-waitCtx.Done():
			return web3.TransactionRecord{}, c.waitAborted(ctx, op, hash, polls)
		case <-ticker.C:
		}
	}
}

func (c *Client) waitAborted(parent context.Context, op, hash string, polls int) error {
	if err := parent.Err(); err != nil {
		return fmt.Errorf("wait for transaction %s: %w", hash, err)
	}
	return xerrors.New(xerrors.CodeTimeout,
		fmt.Sprintf("等待交易确认超时 (%s)", c.waitTimeout),
		xerrors.WithOperation(op),
		xerrors.WithMetadata("hash", hash),
		xerrors.WithMetadata("polls", strconv.Itoa(polls)))
}

// lookup performs a single status query. done is true once the transaction
// reached a terminal state.
func (c *Client) lookup(ctx context.Context, op, hash string, expirationSecs uint64) (web3.TransactionRecord, bool, error) {
	resp, err := c.get(ctx, op, "transactions/by_hash/"+hash)
	if err != nil {
		return web3.TransactionRecord{}, false, err
	}

	if resp.notFound(errorCodeTransactionNotFound) {
		return c.checkExpired(resp, op, hash, expirationSecs, "")
	}
	if resp.status != http.StatusOK {
		return web3.TransactionRecord{}, false, resp.protocolError(op)
	}

	var body transactionResponse
	if err := resp.decode(op, &body); err != nil {
		return web3.TransactionRecord{}, false, err
	}
	if body.Type == typePendingTransaction {
		return c.checkExpired(resp, op, hash, expirationSecs, body.Type)
	}
	if body.Type != typeUserTransaction {
		return web3.TransactionRecord{}, false, xerrors.New(xerrors.CodeProtocol,
			fmt.Sprintf("意外的交易类型 %q", body.Type), xerrors.WithOperation(op), xerrors.WithMetadata("hash", hash))
	}
	if body.Success == nil {
		return web3.TransactionRecord{}, false, xerrors.New(xerrors.CodeProtocol,
			"交易响应缺少 success 字段", xerrors.WithOperation(op))
	}

	record := web3.TransactionRecord{
		Hash:      body.Hash,
		Type:      body.Type,
		Version:   uint64(body.Version),
		Success:   *body.Success,
		VMStatus:  body.VMStatus,
		GasUsed:   uint64(body.GasUsed),
		Timestamp: uint64(body.Timestamp),
	}
	if record.Hash == "" {
		record.Hash = hash
	}
	if record.Success {
		record.Status = web3.StatusSuccess
		return record, true, nil
	}
	record.Status = web3.StatusExecutionFailed
	return record, true, xerrors.New(xerrors.CodeExecution,
		fmt.Sprintf("交易执行失败: %s", record.VMStatus),
		xerrors.WithOperation(op),
		xerrors.WithMetadata("hash", record.Hash),
		xerrors.WithMetadata("vm_status", record.VMStatus),
		xerrors.WithMetadata("version", strconv.FormatUint(record.Version, 10)))
}

func (c *Client) checkExpired(resp *response, op, hash string, expirationSecs uint64, txnType string) (web3.TransactionRecord, bool, error) {
	record := web3.TransactionRecord{Hash: hash, Type: txnType, Status: web3.StatusPending}
	if expirationSecs == 0 {
		return record, false, nil
	}
	ledgerUsec, ok := resp.ledgerTimestampUsec()
	if !ok || ledgerUsec <= expirationSecs*1_000_000 {
		return record, false, nil
	}
	record.Status = web3.StatusExpired
	return record, true, xerrors.New(xerrors.CodeExpired,
		fmt.Sprintf("账本时间已超过交易过期时间 %d", expirationSecs),
		xerrors.WithOperation(op),
		xerrors.WithMetadata("hash", hash),
		xerrors.WithMetadata("ledger_timestamp_usec", strconv.FormatUint(ledgerUsec, 10)))
}

var _ web3.Client = (*Client)(nil)
