package txn

import (
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ed25519"
	"golang.org/x/crypto/sha3"

	xerrors "aptos-playground/internal/errors"
	"aptos-playground/internal/move"
)

type testSigner struct {
	addr move.AccountAddress
	key  ed25519.PrivateKey
}

func newTestSigner(t *testing.T, addr string) *testSigner {
	t.Helper()
	seed := sha3.Sum256([]byte("txn test seed " + addr))
	return &testSigner{addr: move.MustParseAddress(addr), key: ed25519.NewKeyFromSeed(seed[:])}
}

func (s *testSigner) Address() move.AccountAddress { return s.addr }
func (s *testSigner) PublicKey() ed25519.PublicKey { return s.key.Public().(ed25519.PublicKey) }
func (s *testSigner) Sign(msg []byte) []byte       { return ed25519.Sign(s.key, msg) }

var buildTime = time.Unix(1_700_000_000, 0)

func registerPayload(t *testing.T) *EntryFunctionPayload {
	t.Helper()
	module, fn, err := move.ParseFunctionID("0x1::managed_coin::register")
	require.NoError(t, err)
	coin := move.MustParseTypeTag("0xA1::injoy_coin::InJoyCoin")
	return NewEntryFunctionPayload(move.NewEntryFunction(module, fn, []move.TypeTag{coin}, nil))
}

func registerBuilder(t *testing.T) *Builder {
	return NewBuilder(registerPayload(t), 4).
		Sender(move.MustParseAddress("0xA1")).
		SequenceNumber(0).
		MaxGasAmount(10_000).
		GasUnitPrice(100).
		Clock(FixedClock(buildTime))
}

func TestBuildRegisterEnvelope(t *testing.T) {
	raw, err := registerBuilder(t).Build()
	require.NoError(t, err)

	require.Equal(t, move.MustParseAddress("0xA1"), raw.Sender)
	require.EqualValues(t, 0, raw.SequenceNumber)
	require.EqualValues(t, 4, raw.ChainID)
	require.EqualValues(t, 10_000, raw.MaxGasAmount)
	require.EqualValues(t, 100, raw.GasUnitPrice)
	require.EqualValues(t, buildTime.Unix()+300, raw.ExpirationTimestampSecs)

	payload, ok := raw.Payload.(*EntryFunctionPayload)
	require.True(t, ok)
	require.Equal(t, 1, payload.Function.NumTypeArgs())
	require.Equal(t, 0, payload.Function.NumArgs())
	require.Equal(t, "0xa1::injoy_coin::InJoyCoin", payload.Function.TypeArgs()[0].String())
}

func TestBuildIsDeterministic(t *testing.T) {
	a, err := registerBuilder(t).Build()
	require.NoError(t, err)
	b, err := registerBuilder(t).Build()
	require.NoError(t, err)

	ma, err := a.SigningMessage()
	require.NoError(t, err)
	mb, err := b.SigningMessage()
	require.NoError(t, err)
	require.Equal(t, ma, mb)
}

func TestBuildRejectsNonPositiveGas(t *testing.T) {
	_, err := registerBuilder(t).MaxGasAmount(0).Build()
	require.Equal(t, xerrors.CodeInvalidArgument, xerrors.CodeOf(err))

	_, err = registerBuilder(t).GasUnitPrice(0).Build()
	require.Equal(t, xerrors.CodeInvalidArgument, xerrors.CodeOf(err))
}

func TestBuildRequiresEveryField(t *testing.T) {
	_, err := NewBuilder(nil, 4).Sender(move.MustParseAddress("0xA1")).SequenceNumber(0).
		MaxGasAmount(1).GasUnitPrice(1).Build()
	require.Equal(t, xerrors.CodeIncomplete, xerrors.CodeOf(err))

	_, err = NewBuilder(registerPayload(t), 4).SequenceNumber(0).MaxGasAmount(1).GasUnitPrice(1).Build()
	require.Equal(t, xerrors.CodeIncomplete, xerrors.CodeOf(err))

	_, err = NewBuilder(registerPayload(t), 4).Sender(move.MustParseAddress("0xA1")).
		MaxGasAmount(1).GasUnitPrice(1).Build()
	require.Equal(t, xerrors.CodeIncomplete, xerrors.CodeOf(err))

	_, err = registerBuilder(t).Build()
	require.NoError(t, err)
	_, err = NewBuilder(registerPayload(t), 0).Sender(move.MustParseAddress("0xA1")).SequenceNumber(0).
		MaxGasAmount(1).GasUnitPrice(1).Build()
	require.Equal(t, xerrors.CodeIncomplete, xerrors.CodeOf(err))
}

func TestBuildFailsWithoutClock(t *testing.T) {
	broken := ClockFunc(func() (time.Time, error) { return time.Time{}, errors.New("no rtc") })
	_, err := registerBuilder(t).Clock(broken).Build()
	require.Equal(t, xerrors.CodeClock, xerrors.CodeOf(err))
}

func TestExpirationWindowOverride(t *testing.T) {
	raw, err := registerBuilder(t).ExpirationWindow(30 * time.Second).Build()
	require.NoError(t, err)
	require.EqualValues(t, buildTime.Unix()+30, raw.ExpirationTimestampSecs)

	raw, err = registerBuilder(t).ExpirationWindow(-time.Second).Build()
	require.NoError(t, err)
	require.EqualValues(t, buildTime.Unix()+300, raw.ExpirationTimestampSecs)
}

func TestRawTransactionLayout(t *testing.T) {
	raw, err := registerBuilder(t).SequenceNumber(5).Build()
	require.NoError(t, err)

	msg, err := raw.SigningMessage()
	require.NoError(t, err)
	salt := sha3.Sum256([]byte("APTOS::RawTransaction"))
	require.Equal(t, salt[:], msg[:32])

	body := msg[32:]
	require.Equal(t, raw.Sender[:], body[:32])
	require.EqualValues(t, 5, binary.LittleEndian.Uint64(body[32:40]))
	require.Equal(t, byte(payloadEntryFunction), body[40])
	require.Equal(t, move.AddressOne[:], body[41:73])

	tail := body[len(body)-25:]
	require.EqualValues(t, 10_000, binary.LittleEndian.Uint64(tail[0:8]))
	require.EqualValues(t, 100, binary.LittleEndian.Uint64(tail[8:16]))
	require.EqualValues(t, buildTime.Unix()+300, binary.LittleEndian.Uint64(tail[16:24]))
	require.Equal(t, byte(4), tail[24])
}

func TestSignVerifiesAgainstSender(t *testing.T) {
	signer := newTestSigner(t, "0xA1")
	raw, err := registerBuilder(t).Build()
	require.NoError(t, err)

	signed, err := Sign(raw, signer)
	require.NoError(t, err)
	require.NoError(t, signed.Verify())

	msg, err := raw.SigningMessage()
	require.NoError(t, err)
	auth := signed.Authenticator()
	require.True(t, ed25519.Verify(signer.PublicKey(), msg, auth.Signature))

	again, err := Sign(raw, signer)
	require.NoError(t, err)
	require.Equal(t, signed.Hash(), again.Hash())
	require.Len(t, signed.Hash(), 66)
}

func TestSignedBytesCarryAuthenticator(t *testing.T) {
	signer := newTestSigner(t, "0xA1")
	raw, err := registerBuilder(t).Build()
	require.NoError(t, err)
	signed, err := Sign(raw, signer)
	require.NoError(t, err)

	msg, err := raw.SigningMessage()
	require.NoError(t, err)
	body := signed.Bytes()
	rawLen := len(msg) - 32
	require.Equal(t, msg[32:], body[:rawLen])

	auth := body[rawLen:]
	require.Equal(t, byte(authenticatorEd25519), auth[0])
	require.Equal(t, byte(ed25519.PublicKeySize), auth[1])
	require.Equal(t, []byte(signer.PublicKey()), auth[2:34])
	require.Equal(t, byte(ed25519.SignatureSize), auth[34])
	require.Len(t, auth, 1+1+32+1+64)
}

func TestSignRejectsIncompleteEnvelope(t *testing.T) {
	signer := newTestSigner(t, "0xA1")

	_, err := Sign(&RawTransaction{Sender: signer.Address(), Payload: registerPayload(t)}, signer)
	require.Equal(t, xerrors.CodeIncomplete, xerrors.CodeOf(err))

	_, err = Sign(nil, signer)
	require.Equal(t, xerrors.CodeIncomplete, xerrors.CodeOf(err))
}

func TestSignRejectsForeignSender(t *testing.T) {
	raw, err := registerBuilder(t).Build()
	require.NoError(t, err)

	_, err = Sign(raw, newTestSigner(t, "0xB2"))
	require.Equal(t, xerrors.CodeInvalidArgument, xerrors.CodeOf(err))
}

func TestTamperedTransactionFailsVerification(t *testing.T) {
	signer := newTestSigner(t, "0xA1")
	raw, err := registerBuilder(t).Build()
	require.NoError(t, err)
	signed, err := Sign(raw, signer)
	require.NoError(t, err)

	tampered := *signed
	tampered.raw.GasUnitPrice = 1
	require.Error(t, tampered.Verify())
	require.NotEqual(t, signed.Hash(), tampered.Hash())
}
