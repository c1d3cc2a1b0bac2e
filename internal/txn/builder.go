package txn

import (
	"time"

	xerrors "aptos-playground/internal/errors"
	"aptos-playground/internal/move"
)

// DefaultExpirationWindow is how long a built transaction stays valid.
const DefaultExpirationWindow = 300 * time.Second

// Builder assembles a RawTransaction. It never touches the network, so a
// build with a fixed clock is reproducible.
type Builder struct {
	payload  Payload
	chainID  ChainID
	sender   *move.AccountAddress
	sequence *uint64
	maxGas   uint64
	gasPrice uint64
	window   time.Duration
	clock    Clock
}

// NewBuilder starts a transaction for payload on chainID.
func NewBuilder(payload Payload, chainID ChainID) *Builder {
	return &Builder{
		payload: payload,
		chainID: chainID,
		window:  DefaultExpirationWindow,
		clock:   SystemClock{},
	}
}

// Sender sets the sending account.
func (b *Builder) Sender(addr move.AccountAddress) *Builder {
	b.sender = &addr
	return b
}

// SequenceNumber sets the sender's expected sequence number.
func (b *Builder) SequenceNumber(seq uint64) *Builder {
	b.sequence = &seq
	return b
}

// MaxGasAmount bounds the gas units the transaction may consume.
func (b *Builder) MaxGasAmount(units uint64) *Builder {
	b.maxGas = units
	return b
}

// GasUnitPrice sets the price paid per gas unit.
func (b *Builder) GasUnitPrice(price uint64) *Builder {
	b.gasPrice = price
	return b
}

// ExpirationWindow overrides DefaultExpirationWindow. Non-positive values are ignored.
func (b *Builder) ExpirationWindow(d time.Duration) *Builder {
	if d > 0 {
		b.window = d
	}
	return b
}

// Clock overrides the system clock.
func (b *Builder) Clock(c Clock) *Builder {
	if c != nil {
		b.clock = c
	}
	return b
}

// Build validates the inputs and stamps the expiration as now + window.
func (b *Builder) Build() (*RawTransaction, error) {
	op := xerrors.WithOperation("build transaction")
	if b.payload == nil {
		return nil, xerrors.New(xerrors.CodeIncomplete, "payload not set", op)
	}
	if b.sender == nil || b.sender.IsZero() {
		return nil, xerrors.New(xerrors.CodeIncomplete, "sender not set", op)
	}
	if b.sequence == nil {
		return nil, xerrors.New(xerrors.CodeIncomplete, "sequence number not set", op)
	}
	if b.chainID == 0 {
		return nil, xerrors.New(xerrors.CodeIncomplete, "chain id not set", op)
	}
	if b.maxGas == 0 {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "max gas amount must be positive", op)
	}
	if b.gasPrice == 0 {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "gas unit price must be positive", op)
	}

	now, err := b.clock.Now()
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeClock, err, "", op)
	}

	return &RawTransaction{
		Sender:                  *b.sender,
		SequenceNumber:          *b.sequence,
		Payload:                 b.payload,
		MaxGasAmount:            b.maxGas,
		GasUnitPrice:            b.gasPrice,
		ExpirationTimestampSecs: uint64(now.Unix()) + uint64(b.window/time.Second),
		ChainID:                 b.chainID,
	}, nil
}
