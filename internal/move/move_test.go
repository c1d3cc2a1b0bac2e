package move

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"aptos-playground/internal/bcs"
)

func TestParseAddressForms(t *testing.T) {
	short, err := ParseAddress("0x1")
	require.NoError(t, err)
	require.Equal(t, AddressOne, short)
	require.Equal(t, "0x1", short.ShortString())
	require.Equal(t, "0x0000000000000000000000000000000000000000000000000000000000000001", short.String())

	bare, err := ParseAddress("a1")
	require.NoError(t, err)
	require.Equal(t, "0xa1", bare.ShortString())

	odd, err := ParseAddress("0xA1b")
	require.NoError(t, err)
	require.Equal(t, "0xa1b", odd.ShortString())

	_, err = ParseAddress("")
	require.Error(t, err)
	_, err = ParseAddress("0xzz")
	require.Error(t, err)
	_, err = ParseAddress("0x" + strings.Repeat("1", 65))
	require.Error(t, err)

	require.True(t, AddressZero.IsZero())
	require.Equal(t, "0x0", AddressZero.ShortString())
}

func TestAddressText(t *testing.T) {
	addr := MustParseAddress("0xA1")
	text, err := addr.MarshalText()
	require.NoError(t, err)

	var back AccountAddress
	require.NoError(t, back.UnmarshalText(text))
	require.Equal(t, addr, back)
}

func TestIdentifier(t *testing.T) {
	for _, ok := range []string{"managed_coin", "register", "InJoyCoin", "_x", "a1"} {
		_, err := NewIdentifier(ok)
		require.NoError(t, err, ok)
	}
	for _, bad := range []string{"", "_", "1abc", "a-b", "a::b", "a b"} {
		_, err := NewIdentifier(bad)
		require.Error(t, err, bad)
	}
}

func TestParseTypeTag(t *testing.T) {
	tag, err := ParseTypeTag("0xA1::injoy_coin::InJoyCoin")
	require.NoError(t, err)
	require.Equal(t, KindStruct, tag.Kind())
	st, ok := tag.Struct()
	require.True(t, ok)
	require.Equal(t, MustParseAddress("0xa1"), st.Address)
	require.Equal(t, Identifier("injoy_coin"), st.Module)
	require.Equal(t, Identifier("InJoyCoin"), st.Name)
	require.Empty(t, st.TypeArgs)
	require.Equal(t, "0xa1::injoy_coin::InJoyCoin", tag.String())

	generic, err := ParseTypeTag("0x1::coin::CoinStore< 0x1::aptos_coin::AptosCoin >")
	require.NoError(t, err)
	gst, ok := generic.Struct()
	require.True(t, ok)
	require.Len(t, gst.TypeArgs, 1)
	require.Equal(t, "0x1::coin::CoinStore<0x1::aptos_coin::AptosCoin>", generic.String())

	nested, err := ParseTypeTag("0x1::pair::Pair<vector<u8>, 0x1::table::Table<address, vector<vector<u64>>>>")
	require.NoError(t, err)
	require.Equal(t, "0x1::pair::Pair<vector<u8>, 0x1::table::Table<address, vector<vector<u64>>>>", nested.String())

	for _, s := range []string{"bool", "u8", "u16", "u32", "u64", "u128", "u256", "address", "signer"} {
		p, err := ParseTypeTag(s)
		require.NoError(t, err)
		require.Equal(t, s, p.String())
	}

	for _, bad := range []string{"", "u7", "vector<u8", "0x1::coin", "0x1::coin::", "0x1::coin::C<u8", "u8>", "0xzz::m::S"} {
		_, err := ParseTypeTag(bad)
		require.Error(t, err, bad)
	}
}

func TestTypeTagBCS(t *testing.T) {
	require.Equal(t, []byte{0x06, 0x01}, bcs.Serialize(MustParseTypeTag("vector<u8>")))

	out := bcs.Serialize(MustParseTypeTag("0x1::aptos_coin::AptosCoin"))
	require.Equal(t, byte(0x07), out[0])
	require.Equal(t, AddressOne[:], out[1:33])
	require.Equal(t, byte(len("aptos_coin")), out[33])
	require.Equal(t, byte(0x00), out[len(out)-1], "empty type argument vector")
}

func TestTypeTagZeroValueIsBool(t *testing.T) {
	var zero TypeTag
	require.Equal(t, KindBool, zero.Kind())
	require.Equal(t, "bool", zero.String())
	require.NotPanics(t, func() { bcs.Serialize(zero) })
	require.Equal(t, []byte{0x00}, bcs.Serialize(zero))

	_, ok := zero.Elem()
	require.False(t, ok)
	_, ok = zero.Struct()
	require.False(t, ok)

	vec := NewVectorTypeTag(MustParseTypeTag("u64"))
	elem, ok := vec.Elem()
	require.True(t, ok)
	require.Equal(t, KindU64, elem.Kind())
	require.Equal(t, []byte{0x06, 0x02}, bcs.Serialize(vec))
}

func TestEntryFunction(t *testing.T) {
	module, fn, err := ParseFunctionID("0x1::managed_coin::register")
	require.NoError(t, err)
	require.Equal(t, "0x1::managed_coin", module.String())

	tyArgs := []TypeTag{MustParseTypeTag("0xA1::injoy_coin::InJoyCoin")}
	ef := NewEntryFunction(module, fn, tyArgs, nil)
	tyArgs[0] = MustParseTypeTag("u8")

	require.Equal(t, 1, ef.NumTypeArgs())
	require.Equal(t, 0, ef.NumArgs())
	require.Equal(t, KindStruct, ef.TypeArgs()[0].Kind(), "entry function must not alias caller slices")
	require.Equal(t, "0x1::managed_coin::register<0xa1::injoy_coin::InJoyCoin>(0 args)", ef.String())

	var s bcs.Serializer
	ef.MarshalBCS(&s)
	out := s.ToBytes()
	require.Equal(t, byte(0x00), out[len(out)-1], "empty value argument vector")

	_, _, err = ParseFunctionID("managed_coin::register")
	require.Error(t, err)
}
