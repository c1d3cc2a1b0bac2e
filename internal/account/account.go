// Package account holds the local identity that signs transactions: an
// address, an ed25519 signing capability and the sequence counter that
// protects the account against replay.
package account

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"golang.org/x/crypto/ed25519"
	"golang.org/x/crypto/sha3"

	xerrors "aptos-playground/internal/errors"
	"aptos-playground/internal/move"
)

// ed25519SchemeID is appended to the public key when deriving an
// authentication key for a single-signer account.
const ed25519SchemeID = 0x00

// LocalAccount is an account whose private key lives in this process. The
// key never leaves the value: callers only get signatures.
type LocalAccount struct {
	address move.AccountAddress
	key     ed25519.PrivateKey

	mu       sync.RWMutex
	sequence uint64
}

// New builds an account from a configured address and a hex private key.
// The key may carry a 0x prefix or the ed25519-priv- prefix used by newer
// CLI profiles.
func New(address string, privateKey string, sequence uint64) (*LocalAccount, error) {
	addr, err := move.ParseAddress(address)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeConfig, err, "账户地址格式错误", xerrors.WithOperation("load account"))
	}
	key, err := parsePrivateKey(privateKey)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeConfig, err, "私钥格式错误", xerrors.WithOperation("load account"))
	}
	return &LocalAccount{address: addr, key: key, sequence: sequence}, nil
}

// FromSeed builds an account from a raw 32 byte ed25519 seed.
func FromSeed(address move.AccountAddress, seed []byte, sequence uint64) (*LocalAccount, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, xerrors.New(xerrors.CodeConfig, fmt.Sprintf("私钥长度应为 %d 字节, 实际 %d", ed25519.SeedSize, len(seed)),
			xerrors.WithOperation("load account"))
	}
	return &LocalAccount{address: address, key: ed25519.NewKeyFromSeed(seed), sequence: sequence}, nil
}

// Generate creates a fresh key and uses its derived address.
func Generate() (*LocalAccount, error) {
	_, key, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, fmt.Errorf("generate ed25519 key: %w", err)
	}
	acct := &LocalAccount{key: key}
	acct.address = acct.DerivedAddress()
	return acct, nil
}

func parsePrivateKey(s string) (ed25519.PrivateKey, error) {
	raw := strings.TrimSpace(s)
	raw = strings.TrimPrefix(raw, "ed25519-priv-")
	if raw == "" {
		return nil, fmt.Errorf("private key is empty")
	}
	if !strings.HasPrefix(raw, "0x") && !strings.HasPrefix(raw, "0X") {
		raw = "0x" + raw
	}
	seed, err := hexutil.Decode(strings.ToLower(raw))
	if err != nil {
		return nil, err
	}
	switch len(seed) {
	case ed25519.SeedSize:
		return ed25519.NewKeyFromSeed(seed), nil
	case ed25519.PrivateKeySize:
		return ed25519.NewKeyFromSeed(seed[:ed25519.SeedSize]), nil
	default:
		return nil, fmt.Errorf("private key must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
}

// Address returns the account address used as transaction sender.
func (a *LocalAccount) Address() move.AccountAddress {
	return a.address
}

// PublicKey returns a copy of the ed25519 public key.
func (a *LocalAccount) PublicKey() ed25519.PublicKey {
	pub := a.key.Public().(ed25519.PublicKey)
	return append(ed25519.PublicKey(nil), pub...)
}

// Sign signs msg with the account key.
func (a *LocalAccount) Sign(msg []byte) []byte {
	return ed25519.Sign(a.key, msg)
}

// AuthenticationKey is sha3-256(public key || scheme id).
func (a *LocalAccount) AuthenticationKey() [32]byte {
	buf := append(a.PublicKey(), ed25519SchemeID)
	return sha3.Sum256(buf)
}

// DerivedAddress is the address a fresh account with this key would get.
// It differs from Address once the key has been rotated.
func (a *LocalAccount) DerivedAddress() move.AccountAddress {
	return move.AccountAddress(a.AuthenticationKey())
}

// SequenceNumber returns the next sequence number to use.
func (a *LocalAccount) SequenceNumber() uint64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.sequence
}

// SetSequenceNumber overwrites the counter, typically with the value read
// from the chain.
func (a *LocalAccount) SetSequenceNumber(seq uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sequence = seq
}

// IncrementSequenceNumber advances the counter once a transaction has been
// committed and returns the new value.
func (a *LocalAccount) IncrementSequenceNumber() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sequence++
	return a.sequence
}

// String never includes key material.
func (a *LocalAccount) String() string {
	return fmt.Sprintf("LocalAccount{address: %s, sequence_number: %d}", a.address, a.SequenceNumber())
}

// LogValue implements slog.LogValuer so the private key cannot end up in logs.
func (a *LocalAccount) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("address", a.address.String()),
		slog.String("public_key", hexutil.Encode(a.PublicKey())),
		slog.Uint64("sequence_number", a.SequenceNumber()),
	)
}
