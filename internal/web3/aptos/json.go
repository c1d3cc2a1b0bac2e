package aptos

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// U64 decodes the node's u64 fields, which arrive as decimal strings, while
// still accepting plain JSON numbers.
type U64 uint64

// UnmarshalJSON implements json.Unmarshaler.
func (u *U64) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*u = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		data = []byte(s)
	}
	v, err := strconv.ParseUint(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid u64 %q: %w", data, err)
	}
	*u = U64(v)
	return nil
}

// MarshalJSON renders the value as a decimal string, the way the node does.
func (u U64) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.FormatUint(uint64(u), 10))
}

type indexResponse struct {
	ChainID             uint8  `json:"chain_id"`
	Epoch               U64    `json:"epoch"`
	LedgerVersion       U64    `json:"ledger_version"`
	OldestLedgerVersion U64    `json:"oldest_ledger_version"`
	LedgerTimestamp     U64    `json:"ledger_timestamp"`
	BlockHeight         U64    `json:"block_height"`
	NodeRole            string `json:"node_role"`
}

type gasEstimateResponse struct {
	DeprioritizedGasEstimate U64 `json:"deprioritized_gas_estimate"`
	GasEstimate              U64 `json:"gas_estimate"`
	PrioritizedGasEstimate   U64 `json:"prioritized_gas_estimate"`
}

type accountResponse struct {
	SequenceNumber    *U64   `json:"sequence_number"`
	AuthenticationKey string `json:"authentication_key"`
}

type coinStoreResponse struct {
	Type string `json:"type"`
	Data struct {
		Coin struct {
			Value *U64 `json:"value"`
		} `json:"coin"`
	} `json:"data"`
}

type pendingResponse struct {
	Hash                    string `json:"hash"`
	Sender                  string `json:"sender"`
	SequenceNumber          U64    `json:"sequence_number"`
	ExpirationTimestampSecs U64    `json:"expiration_timestamp_secs"`
}

type transactionResponse struct {
	Type      string `json:"type"`
	Hash      string `json:"hash"`
	Version   U64    `json:"version"`
	Success   *bool  `json:"success"`
	VMStatus  string `json:"vm_status"`
	GasUsed   U64    `json:"gas_used"`
	Timestamp U64    `json:"timestamp"`
}

// APIError is the error body returned by the node for 4xx responses.
type APIError struct {
	StatusCode  int     `json:"-"`
	Message     string  `json:"message"`
	ErrorCode   string  `json:"error_code"`
	VMErrorCode *uint64 `json:"vm_error_code,omitempty"`
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	msg := fmt.Sprintf("node api error (%d)", e.StatusCode)
	if e.ErrorCode != "" {
		msg += ": " + e.ErrorCode
	}
	if e.VMErrorCode != nil {
		msg += fmt.Sprintf(" (vm_error_code %d)", *e.VMErrorCode)
	}
	if e.Message != "" {
		msg += " - " + e.Message
	}
	return msg
}

const (
	typePendingTransaction = "pending_transaction"
	typeUserTransaction    = "user_transaction"

	errorCodeTransactionNotFound = "transaction_not_found"
	errorCodeAccountNotFound     = "account_not_found"
	errorCodeResourceNotFound    = "resource_not_found"
)
