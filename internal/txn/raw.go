package txn

import (
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"

	"aptos-playground/internal/bcs"
	xerrors "aptos-playground/internal/errors"
	"aptos-playground/internal/move"
)

// ChainID distinguishes networks so a transaction cannot be replayed on
// another one.
type ChainID uint8

const (
	rawTransactionSalt = "APTOS::RawTransaction"
	transactionSalt    = "APTOS::Transaction"
)

// RawTransaction is the unsigned envelope.
type RawTransaction struct {
	Sender                  move.AccountAddress
	SequenceNumber          uint64
	Payload                 Payload
	MaxGasAmount            uint64
	GasUnitPrice            uint64
	ExpirationTimestampSecs uint64
	ChainID                 ChainID
}

// MarshalBCS writes the fields in wire order.
func (r *RawTransaction) MarshalBCS(s *bcs.Serializer) {
	r.Sender.MarshalBCS(s)
	s.U64(r.SequenceNumber)
	r.Payload.MarshalBCS(s)
	s.U64(r.MaxGasAmount)
	s.U64(r.GasUnitPrice)
	s.U64(r.ExpirationTimestampSecs)
	s.U8(uint8(r.ChainID))
}

// Validate reports every unset field. Sequence number zero is legitimate
// and is not checked.
func (r *RawTransaction) Validate() error {
	var missing []string
	if r.Payload == nil {
		missing = append(missing, "payload")
	}
	if r.Sender.IsZero() {
		missing = append(missing, "sender")
	}
	if r.MaxGasAmount == 0 {
		missing = append(missing, "max_gas_amount")
	}
	if r.GasUnitPrice == 0 {
		missing = append(missing, "gas_unit_price")
	}
	if r.ExpirationTimestampSecs == 0 {
		missing = append(missing, "expiration_timestamp_secs")
	}
	if r.ChainID == 0 {
		missing = append(missing, "chain_id")
	}
	if len(missing) > 0 {
		return xerrors.New(xerrors.CodeIncomplete, "missing "+strings.Join(missing, ", "))
	}
	return nil
}

// SigningMessage is sha3-256(salt) followed by the BCS bytes.
func (r *RawTransaction) SigningMessage() ([]byte, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	prefix := sha3.Sum256([]byte(rawTransactionSalt))
	return append(prefix[:], bcs.Serialize(r)...), nil
}

func (r *RawTransaction) String() string {
	payload := "<nil>"
	if r.Payload != nil {
		payload = r.Payload.String()
	}
	return fmt.Sprintf("RawTransaction{sender: %s, sequence_number: %d, payload: %s, max_gas_amount: %d, gas_unit_price: %d, expiration_timestamp_secs: %d, chain_id: %d}",
		r.Sender, r.SequenceNumber, payload, r.MaxGasAmount, r.GasUnitPrice, r.ExpirationTimestampSecs, r.ChainID)
}
