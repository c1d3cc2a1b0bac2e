package txn

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"golang.org/x/crypto/ed25519"
	"golang.org/x/crypto/sha3"

	"aptos-playground/internal/bcs"
	xerrors "aptos-playground/internal/errors"
	"aptos-playground/internal/move"
)

const (
	authenticatorEd25519   = 0
	userTransactionVariant = 0
)

// Signer is the signing capability of an account. It is satisfied by
// *account.LocalAccount.
type Signer interface {
	Address() move.AccountAddress
	PublicKey() ed25519.PublicKey
	Sign(msg []byte) []byte
}

// Ed25519Authenticator proves the sender approved the transaction.
type Ed25519Authenticator struct {
	PublicKey ed25519.PublicKey
	Signature []byte
}

// MarshalBCS writes the authenticator variant, key and signature.
func (a Ed25519Authenticator) MarshalBCS(s *bcs.Serializer) {
	s.Uleb128(authenticatorEd25519)
	s.Bytes(a.PublicKey)
	s.Bytes(a.Signature)
}

// SignedTransaction is an envelope plus its authenticator. It is immutable.
type SignedTransaction struct {
	raw  RawTransaction
	auth Ed25519Authenticator
}

// Sign signs raw with signer. It refuses incomplete envelopes and envelopes
// declaring a different sender.
func Sign(raw *RawTransaction, signer Signer) (*SignedTransaction, error) {
	op := xerrors.WithOperation("sign transaction")
	if raw == nil {
		return nil, xerrors.New(xerrors.CodeIncomplete, "transaction is nil", op)
	}
	if signer == nil {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "signer is nil", op)
	}
	msg, err := raw.SigningMessage()
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeIncomplete, err, "envelope cannot be signed", op)
	}
	if signer.Address() != raw.Sender {
		return nil, xerrors.New(xerrors.CodeInvalidArgument,
			fmt.Sprintf("signer %s is not the declared sender %s", signer.Address(), raw.Sender), op)
	}
	return &SignedTransaction{
		raw: *raw,
		auth: Ed25519Authenticator{
			PublicKey: signer.PublicKey(),
			Signature: signer.Sign(msg),
		},
	}, nil
}

// RawTransaction returns a copy of the signed envelope.
func (t *SignedTransaction) RawTransaction() RawTransaction {
	return t.raw
}

// Authenticator returns a copy of the authenticator.
func (t *SignedTransaction) Authenticator() Ed25519Authenticator {
	return Ed25519Authenticator{
		PublicKey: append(ed25519.PublicKey(nil), t.auth.PublicKey...),
		Signature: append([]byte(nil), t.auth.Signature...),
	}
}

// MarshalBCS writes the envelope followed by the authenticator.
func (t *SignedTransaction) MarshalBCS(s *bcs.Serializer) {
	t.raw.MarshalBCS(s)
	t.auth.MarshalBCS(s)
}

// Bytes is the submission body.
func (t *SignedTransaction) Bytes() []byte {
	return bcs.Serialize(t)
}

// Verify checks the signature against the embedded public key.
func (t *SignedTransaction) Verify() error {
	msg, err := t.raw.SigningMessage()
	if err != nil {
		return err
	}
	if len(t.auth.PublicKey) != ed25519.PublicKeySize {
		return xerrors.New(xerrors.CodeInvalidArgument, fmt.Sprintf("bad public key length %d", len(t.auth.PublicKey)))
	}
	if !ed25519.Verify(t.auth.PublicKey, msg, t.auth.Signature) {
		return xerrors.New(xerrors.CodeInvalidArgument, "signature does not verify")
	}
	return nil
}

// Hash is the identifier the node assigns to the transaction once submitted.
func (t *SignedTransaction) Hash() string {
	prefix := sha3.Sum256([]byte(transactionSalt))
	h := sha3.New256()
	h.Write(prefix[:])
	h.Write([]byte{userTransactionVariant})
	h.Write(t.Bytes())
	return hexutil.Encode(h.Sum(nil))
}

// ExpirationTimestampSecs is a shortcut used while waiting for the transaction.
func (t *SignedTransaction) ExpirationTimestampSecs() uint64 {
	return t.raw.ExpirationTimestampSecs
}

func (t *SignedTransaction) String() string {
	return fmt.Sprintf("SignedTransaction{raw: %s, public_key: %s, signature: %s}",
		t.raw.String(), hexutil.Encode(t.auth.PublicKey), hexutil.Encode(t.auth.Signature))
}
