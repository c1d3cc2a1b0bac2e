// Package registrar runs the registration flow end to end: fund the account,
// resolve the chain context, build and sign the managed_coin::register call,
// submit it and wait for finality.
package registrar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"aptos-playground/internal/account"
	xerrors "aptos-playground/internal/errors"
	"aptos-playground/internal/journal"
	"aptos-playground/internal/move"
	"aptos-playground/internal/txn"
	"aptos-playground/internal/web3"
	"aptos-playground/pkg/logger"
)

// RegisterFunction is the entry function every run calls.
const RegisterFunction = "0x1::managed_coin::register"

// AptosCoin is the gas coin checked after funding.
var AptosCoin = move.MustParseTypeTag("0x1::aptos_coin::AptosCoin")

// Funder credits an account with gas coins.
type Funder interface {
	Fund(ctx context.Context, addr move.AccountAddress, amount uint64) ([]string, error)
}

// Registrar holds the collaborators of a run.
type Registrar struct {
	client       web3.Client
	funder       Funder
	fundAmount   uint64
	sink         journal.Sink
	logger       *slog.Logger
	clock        txn.Clock
	network      string
	maxGas       uint64
	gasUnitPrice uint64
	expiration   time.Duration
	syncSequence bool
}

// Option customises a Registrar.
type Option func(*Registrar)

// WithFaucet funds the account with amount before registering.
func WithFaucet(f Funder, amount uint64) Option {
	return func(r *Registrar) {
		r.funder = f
		r.fundAmount = amount
	}
}

// WithJournal records each run's outcome in sink.
func WithJournal(sink journal.Sink) Option {
	return func(r *Registrar) {
		if sink != nil {
			r.sink = sink
		}
	}
}

// WithLogger overrides the component logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registrar) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithClock sets the clock used to stamp expirations.
func WithClock(c txn.Clock) Option {
	return func(r *Registrar) {
		if c != nil {
			r.clock = c
		}
	}
}

// WithNetwork names the network in logs and journal entries.
func WithNetwork(name string) Option {
	return func(r *Registrar) { r.network = name }
}

// WithMaxGasAmount bounds the gas units the transaction may consume.
func WithMaxGasAmount(units uint64) Option {
	return func(r *Registrar) { r.maxGas = units }
}

// WithGasUnitPrice pins the gas price. Zero asks the node for an estimate.
func WithGasUnitPrice(price uint64) Option {
	return func(r *Registrar) { r.gasUnitPrice = price }
}

// WithExpirationWindow sets how long the transaction stays valid.
func WithExpirationWindow(d time.Duration) Option {
	return func(r *Registrar) { r.expiration = d }
}

// WithSequenceSync controls whether the local sequence number is replaced by
// the on-chain value before building.
func WithSequenceSync(enabled bool) Option {
	return func(r *Registrar) { r.syncSequence = enabled }
}

// New creates a Registrar backed by client.
func New(client web3.Client, opts ...Option) (*Registrar, error) {
	if client == nil {
		return nil, xerrors.New(xerrors.CodeConfig, "未提供节点客户端", xerrors.WithOperation("create registrar"))
	}
	r := &Registrar{
		client:       client,
		sink:         journal.Nop{},
		logger:       logger.Named("registrar"),
		clock:        txn.SystemClock{},
		maxGas:       10_000,
		expiration:   txn.DefaultExpirationWindow,
		syncSequence: true,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	if r.maxGas == 0 {
		return nil, xerrors.New(xerrors.CodeConfig, "max gas amount must be positive", xerrors.WithOperation("create registrar"))
	}
	return r, nil
}

// RegisterPayload builds 0x1::managed_coin::register<coinType>().
func RegisterPayload(coinType move.TypeTag) (*txn.EntryFunctionPayload, error) {
	module, fn, err := move.ParseFunctionID(RegisterFunction)
	if err != nil {
		return nil, err
	}
	return txn.NewEntryFunctionPayload(move.NewEntryFunction(module, fn, []move.TypeTag{coinType}, nil)), nil
}

// Result is what a run observed. Fields are filled as far as the run got.
type Result struct {
	RunID          string
	CoinType       move.TypeTag
	FundingHashes  []string
	Balance        uint64
	ChainID        txn.ChainID
	GasUnitPrice   uint64
	Transaction    *txn.SignedTransaction
	Pending        web3.PendingTransaction
	Record         web3.TransactionRecord
	SequenceNumber uint64
}

// Run registers coinType for owner. The owner's sequence number advances only
// when the transaction was committed, whether or not it executed successfully.
//
// The journal is written after the on-chain outcome is known. A journal
// failure on an otherwise successful run is returned with the result.
func (r *Registrar) Run(ctx context.Context, owner *account.LocalAccount, coinType move.TypeTag) (*Result, error) {
	if owner == nil {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "未提供账户", xerrors.WithOperation("register coin"))
	}
	result := &Result{RunID: journal.NewRunID(), CoinType: coinType}
	log := r.logger.With("run_id", result.RunID, "network", r.network)
	started := time.Now()

	log.Debug("registration started", "owner", owner, "coin_type", coinType.String())
	err := r.run(ctx, log, owner, result)
	result.SequenceNumber = owner.SequenceNumber()

	if jerr := r.sink.Record(ctx, r.entry(result, owner, err, started)); jerr != nil {
		jerr = xerrors.Wrap(xerrors.CodeJournal, jerr, "记录运行结果失败", xerrors.WithOperation("record outcome"))
		log.Log(ctx, xerrors.SeverityOf(jerr).Level(), "journal write failed", "error", jerr)
		if err == nil {
			return result, jerr
		}
	}
	if err != nil {
		log.Log(ctx, xerrors.SeverityOf(err).Level(), "registration failed", "error", err, "code", xerrors.CodeOf(err))
		return result, err
	}
	log.Info("coin registered",
		"hash", result.Record.Hash,
		"version", result.Record.Version,
		"gas_used", result.Record.GasUsed,
		"sequence_number", result.SequenceNumber)
	return result, nil
}

func (r *Registrar) run(ctx context.Context, log *slog.Logger, owner *account.LocalAccount, result *Result) error {
	addr := owner.Address()

	if err := r.fund(ctx, log, addr, result); err != nil {
		return err
	}

	if r.syncSequence {
		info, err := r.client.Account(ctx, addr)
		if err != nil {
			return fmt.Errorf("同步序列号失败: %w", err)
		}
		if local := owner.SequenceNumber(); local != info.SequenceNumber {
			log.Debug("sequence number synced from chain", "local", local, "on_chain", info.SequenceNumber)
		}
		owner.SetSequenceNumber(info.SequenceNumber)
	}

	chainID, err := r.client.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("获取链 ID 失败: %w", err)
	}
	result.ChainID = chainID

	price := r.gasUnitPrice
	if price == 0 {
		if price, err = r.client.EstimateGasPrice(ctx); err != nil {
			return fmt.Errorf("估算 gas 价格失败: %w", err)
		}
	}
	result.GasUnitPrice = price

	payload, err := RegisterPayload(result.CoinType)
	if err != nil {
		return xerrors.Wrap(xerrors.CodeInvalidArgument, err, "构建调用负载失败", xerrors.WithOperation("build payload"))
	}
	raw, err := txn.NewBuilder(payload, chainID).
		Sender(addr).
		SequenceNumber(owner.SequenceNumber()).
		MaxGasAmount(r.maxGas).
		GasUnitPrice(price).
		ExpirationWindow(r.expiration).
		Clock(r.clock).
		Build()
	if err != nil {
		return err
	}
	signed, err := txn.Sign(raw, owner)
	if err != nil {
		return err
	}
	result.Transaction = signed
	log.Debug("transaction signed", "transaction", signed.String(), "hash", signed.Hash())

	pending, err := r.client.Submit(ctx, signed)
	if err != nil {
		return err
	}
	result.Pending = pending
	log.Info("transaction submitted", "hash", pending.Hash, "sequence_number", pending.SequenceNumber)

	record, err := r.client.WaitForTransaction(ctx, pending)
	result.Record = record
	if record.Committed() {
		owner.IncrementSequenceNumber()
	}
	return err
}

// fund calls the faucet, waits for the funding transactions and checks that
// the account holds gas coins afterwards. Without a faucet only the balance
// is reported.
func (r *Registrar) fund(ctx context.Context, log *slog.Logger, addr move.AccountAddress, result *Result) error {
	if r.funder == nil || r.fundAmount == 0 {
		balance, err := r.client.CoinBalance(ctx, addr, AptosCoin)
		if err != nil {
			if xerrors.Has(err, xerrors.CodeNotFound) {
				log.Warn("gas coin balance unavailable", "address", addr.ShortString())
				return nil
			}
			return fmt.Errorf("查询余额失败: %w", err)
		}
		result.Balance = balance
		log.Debug("account balance", "balance", balance)
		return nil
	}

	hashes, err := r.funder.Fund(ctx, addr, r.fundAmount)
	if err != nil {
		return err
	}
	result.FundingHashes = hashes
	for _, hash := range hashes {
		if _, err := r.client.WaitForTransactionByHash(ctx, hash, 0); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
				return err
			}
			return xerrors.Wrap(xerrors.CodeFunding, err, "充值交易未成功", xerrors.WithOperation("fund account"), xerrors.WithMetadata("hash", hash))
		}
	}

	balance, err := r.client.CoinBalance(ctx, addr, AptosCoin)
	if err != nil {
		return xerrors.Wrap(xerrors.CodeFunding, err, "充值后查询余额失败", xerrors.WithOperation("fund account"))
	}
	if balance == 0 {
		return xerrors.New(xerrors.CodeFunding, "充值后余额仍为 0", xerrors.WithOperation("fund account"))
	}
	result.Balance = balance
	log.Debug("account funded", "amount", r.fundAmount, "balance", balance, "txns", len(hashes))
	return nil
}

func (r *Registrar) entry(result *Result, owner *account.LocalAccount, runErr error, started time.Time) journal.Entry {
	entry := journal.Entry{
		RunID:         result.RunID,
		Network:       r.network,
		Sender:        owner.Address().String(),
		CoinType:      result.CoinType.String(),
		TxnHash:       result.Pending.Hash,
		ChainID:       uint8(result.ChainID),
		GasUnitPrice:  result.GasUnitPrice,
		MaxGasAmount:  r.maxGas,
		VMStatus:      result.Record.VMStatus,
		LedgerVersion: result.Record.Version,
		StartedAt:     started,
		FinishedAt:    time.Now(),
		Status:        string(result.Record.Status),
	}
	if result.Transaction != nil {
		entry.SequenceNumber = result.Transaction.RawTransaction().SequenceNumber
	}
	if runErr != nil {
		entry.ErrorCode = string(xerrors.CodeOf(runErr))
		entry.Error = runErr.Error()
		if entry.Status == "" || entry.Status == string(web3.StatusPending) {
			entry.Status = "failed"
		}
	}
	return entry
}
