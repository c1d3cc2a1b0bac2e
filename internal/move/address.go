package move

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"aptos-playground/internal/bcs"
)

// AddressLength is the byte length of an account address.
const AddressLength = 32

// AccountAddress identifies an account on a Move ledger.
type AccountAddress [AddressLength]byte

var (
	// AddressZero is the reserved 0x0 address. No key can sign for it.
	AddressZero AccountAddress
	// AddressOne hosts the framework modules (coin, managed_coin, ...).
	AddressOne = AccountAddress{AddressLength - 1: 0x01}
)

// ParseAddress accepts long (64 hex digit) and short (0x1) forms, with or
// without the 0x prefix.
func ParseAddress(s string) (AccountAddress, error) {
	raw := strings.TrimSpace(s)
	raw = strings.TrimPrefix(strings.TrimPrefix(raw, "0x"), "0X")
	if raw == "" {
		return AccountAddress{}, fmt.Errorf("address %q is empty", s)
	}
	if len(raw) > AddressLength*2 {
		return AccountAddress{}, fmt.Errorf("address %q is longer than %d bytes", s, AddressLength)
	}
	padded := strings.Repeat("0", AddressLength*2-len(raw)) + raw
	decoded, err := hexutil.Decode("0x" + padded)
	if err != nil {
		return AccountAddress{}, fmt.Errorf("address %q: %w", s, err)
	}
	var addr AccountAddress
	copy(addr[:], decoded)
	return addr, nil
}

// MustParseAddress panics on malformed input. Intended for constants and tests.
func MustParseAddress(s string) AccountAddress {
	addr, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return addr
}

// IsZero reports whether a is 0x0.
func (a AccountAddress) IsZero() bool {
	return a == AddressZero
}

// String renders the long form, 0x followed by 64 hex digits.
func (a AccountAddress) String() string {
	return hexutil.Encode(a[:])
}

// ShortString renders the address with leading zeros trimmed (0x1).
func (a AccountAddress) ShortString() string {
	trimmed := bytes.TrimLeft(a[:], "\x00")
	if len(trimmed) == 0 {
		return "0x0"
	}
	return "0x" + strings.TrimLeft(hexutil.Encode(trimmed)[2:], "0")
}

// MarshalBCS writes the 32 raw bytes.
func (a AccountAddress) MarshalBCS(s *bcs.Serializer) {
	s.FixedBytes(a[:])
}

// MarshalText implements encoding.TextMarshaler.
func (a AccountAddress) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *AccountAddress) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
