package account

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ed25519"
	"golang.org/x/crypto/sha3"

	xerrors "aptos-playground/internal/errors"
	"aptos-playground/internal/move"
)

const seedHex = "0x9bf49a6a0755f953811fce125f2683d50429c3bb49e074147e0089a52eae155f"

func TestNewAcceptsKeyForms(t *testing.T) {
	base, err := New("0xA1", seedHex, 0)
	require.NoError(t, err)

	for _, form := range []string{
		strings.TrimPrefix(seedHex, "0x"),
		strings.ToUpper(seedHex[2:]),
		"ed25519-priv-" + seedHex,
		"  " + seedHex + "\n",
	} {
		acct, err := New("a1", form, 0)
		require.NoError(t, err, form)
		require.Equal(t, base.PublicKey(), acct.PublicKey(), form)
		require.Equal(t, base.Address(), acct.Address())
	}
}

func TestNewRejectsMalformedKeys(t *testing.T) {
	for _, bad := range []string{"", "0x", "0x1234", "not-hex", seedHex + "00"} {
		_, err := New("0xA1", bad, 0)
		require.Error(t, err, bad)
		require.Equal(t, xerrors.CodeConfig, xerrors.CodeOf(err))
	}
	_, err := New("", seedHex, 0)
	require.Equal(t, xerrors.CodeConfig, xerrors.CodeOf(err))

	_, err = FromSeed(move.AddressOne, []byte{1, 2, 3}, 0)
	require.Equal(t, xerrors.CodeConfig, xerrors.CodeOf(err))
}

func TestSignVerifies(t *testing.T) {
	acct, err := New("0xA1", seedHex, 0)
	require.NoError(t, err)

	msg := []byte("APTOS::RawTransaction")
	sig := acct.Sign(msg)
	require.Len(t, sig, ed25519.SignatureSize)
	require.True(t, ed25519.Verify(acct.PublicKey(), msg, sig))
	require.Equal(t, sig, acct.Sign(msg), "ed25519 signatures are deterministic")

	msg[0] ^= 0xff
	require.False(t, ed25519.Verify(acct.PublicKey(), msg, sig))
}

func TestAuthenticationKey(t *testing.T) {
	acct, err := Generate()
	require.NoError(t, err)

	want := sha3.Sum256(append(acct.PublicKey(), 0x00))
	require.Equal(t, want, acct.AuthenticationKey())
	require.Equal(t, move.AccountAddress(want), acct.Address())
	require.Equal(t, acct.Address(), acct.DerivedAddress())
}

func TestSequenceNumber(t *testing.T) {
	acct, err := New("0xA1", seedHex, 7)
	require.NoError(t, err)
	require.EqualValues(t, 7, acct.SequenceNumber())

	acct.SetSequenceNumber(0)
	require.EqualValues(t, 1, acct.IncrementSequenceNumber())
	require.EqualValues(t, 1, acct.SequenceNumber())
}

func TestKeyNeverLogged(t *testing.T) {
	acct, err := New("0xA1", seedHex, 3)
	require.NoError(t, err)

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	logger.Info("owner", "account", acct)
	logger.Info("owner", "account", acct.String())

	out := buf.String()
	require.NotContains(t, out, seedHex[2:])
	require.Contains(t, out, hexutil.Encode(acct.PublicKey()))
	require.Contains(t, out, "sequence_number=3")
}
