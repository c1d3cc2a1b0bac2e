// Package bcs implements the Binary Canonical Serialization encoder used by
// Move ledgers for transaction signing messages and submission bodies.
//
// Only encoding is provided: the client never needs to decode BCS because
// every read endpoint of the node speaks JSON.
package bcs

import (
	"bytes"
	"encoding/binary"
	"math/big"
)

// Marshaler is implemented by values that know their canonical encoding.
type Marshaler interface {
	MarshalBCS(s *Serializer)
}

// Serializer accumulates canonical bytes. The zero value is ready to use.
type Serializer struct {
	buf bytes.Buffer
}

// Bool writes 0x01 for true and 0x00 for false.
func (s *Serializer) Bool(v bool) {
	if v {
		s.buf.WriteByte(1)
		return
	}
	s.buf.WriteByte(0)
}

// U8 writes a single byte.
func (s *Serializer) U8(v uint8) {
	s.buf.WriteByte(v)
}

// U16 writes v little-endian.
func (s *Serializer) U16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	s.buf.Write(b[:])
}

// U32 writes v little-endian.
func (s *Serializer) U32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	s.buf.Write(b[:])
}

// U64 writes v little-endian.
func (s *Serializer) U64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	s.buf.Write(b[:])
}

// U128 writes the low 128 bits of v little-endian.
func (s *Serializer) U128(v *big.Int) {
	s.bigLE(v, 16)
}

// U256 writes the low 256 bits of v little-endian.
func (s *Serializer) U256(v *big.Int) {
	s.bigLE(v, 32)
}

func (s *Serializer) bigLE(v *big.Int, size int) {
	out := make([]byte, size)
	if v != nil {
		be := v.Bytes()
		if len(be) > size {
			be = be[len(be)-size:]
		}
		for i, b := range be {
			out[len(be)-1-i] = b
		}
	}
	s.buf.Write(out)
}

// Uleb128 writes v as an unsigned LEB128 varint. Sequence lengths and enum
// variant indices use this form.
func (s *Serializer) Uleb128(v uint32) {
	for v >= 0x80 {
		s.buf.WriteByte(byte(v&0x7f) | 0x80)
		v >>= 7
	}
	s.buf.WriteByte(byte(v))
}

// FixedBytes writes b without a length prefix.
func (s *Serializer) FixedBytes(b []byte) {
	s.buf.Write(b)
}

// Bytes writes b with a ULEB128 length prefix.
func (s *Serializer) Bytes(b []byte) {
	s.Uleb128(uint32(len(b)))
	s.buf.Write(b)
}

// Str writes the UTF-8 bytes of v with a length prefix.
func (s *Serializer) Str(v string) {
	s.Bytes([]byte(v))
}

// Struct delegates to the value's own encoding.
func (s *Serializer) Struct(v Marshaler) {
	v.MarshalBCS(s)
}

// ToBytes returns a copy of everything written so far.
func (s *Serializer) ToBytes() []byte {
	return bytes.Clone(s.buf.Bytes())
}

// Sequence writes a length-prefixed vector of marshalers.
func Sequence[T Marshaler](s *Serializer, items []T) {
	s.Uleb128(uint32(len(items)))
	for _, item := range items {
		item.MarshalBCS(s)
	}
}

// Serialize encodes a single value.
func Serialize(v Marshaler) []byte {
	var s Serializer
	v.MarshalBCS(&s)
	return s.ToBytes()
}

// SerializeU64 is a shortcut for encoding entry function u64 arguments.
func SerializeU64(v uint64) []byte {
	var s Serializer
	s.U64(v)
	return s.ToBytes()
}

// SerializeStr is a shortcut for encoding entry function string arguments.
func SerializeStr(v string) []byte {
	var s Serializer
	s.Str(v)
	return s.ToBytes()
}
