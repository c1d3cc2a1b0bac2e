package bcs

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUleb128(t *testing.T) {
	cases := map[uint32][]byte{
		0:          {0x00},
		1:          {0x01},
		127:        {0x7f},
		128:        {0x80, 0x01},
		300:        {0xac, 0x02},
		16384:      {0x80, 0x80, 0x01},
		0xffffffff: {0xff, 0xff, 0xff, 0xff, 0x0f},
	}
	for in, want := range cases {
		var s Serializer
		s.Uleb128(in)
		require.Equal(t, want, s.ToBytes(), "uleb128(%d)", in)
	}
}

func TestIntegersAreLittleEndian(t *testing.T) {
	var s Serializer
	s.U8(0x01)
	s.U16(0x0203)
	s.U32(0x04050607)
	s.U64(0x08090a0b0c0d0e0f)
	require.Equal(t, []byte{
		0x01,
		0x03, 0x02,
		0x07, 0x06, 0x05, 0x04,
		0x0f, 0x0e, 0x0d, 0x0c, 0x0b, 0x0a, 0x09, 0x08,
	}, s.ToBytes())
}

func TestU128(t *testing.T) {
	var s Serializer
	s.U128(big.NewInt(0x0102))
	out := s.ToBytes()
	require.Len(t, out, 16)
	require.Equal(t, byte(0x02), out[0])
	require.Equal(t, byte(0x01), out[1])
	for _, b := range out[2:] {
		require.Zero(t, b)
	}
}

func TestStringsAndBytes(t *testing.T) {
	var s Serializer
	s.Str("managed_coin")
	s.Bool(true)
	s.Bytes(nil)
	out := s.ToBytes()
	require.Equal(t, byte(12), out[0])
	require.Equal(t, "managed_coin", string(out[1:13]))
	require.Equal(t, []byte{0x01, 0x00}, out[13:])
}

type pair struct{ a, b uint8 }

func (p pair) MarshalBCS(s *Serializer) {
	s.U8(p.a)
	s.U8(p.b)
}

func TestSequence(t *testing.T) {
	var s Serializer
	Sequence(&s, []pair{{1, 2}, {3, 4}})
	require.Equal(t, []byte{0x02, 1, 2, 3, 4}, s.ToBytes())
	require.Equal(t, []byte{0x2a, 0, 0, 0, 0, 0, 0, 0}, SerializeU64(42))
}
