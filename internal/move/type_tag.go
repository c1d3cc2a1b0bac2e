package move

import (
	"fmt"
	"strings"

	"aptos-playground/internal/bcs"
)

// TypeTagKind is the BCS variant index of a type tag.
type TypeTagKind uint8

const (
	KindBool TypeTagKind = iota
	KindU8
	KindU64
	KindU128
	KindAddress
	KindSigner
	KindVector
	KindStruct
	KindU16
	KindU32
	KindU256
)

var primitiveNames = map[string]TypeTagKind{
	"bool":    KindBool,
	"u8":      KindU8,
	"u16":     KindU16,
	"u32":     KindU32,
	"u64":     KindU64,
	"u128":    KindU128,
	"u256":    KindU256,
	"address": KindAddress,
	"signer":  KindSigner,
}

// TypeTag is a fully resolved Move type used as a generic type argument.
// Vector and struct tags are built by NewVectorTypeTag, NewStructTypeTag or
// ParseTypeTag; the zero value is bool.
type TypeTag struct {
	kind      TypeTagKind
	elem      *TypeTag   // set for KindVector
	structTag *StructTag // set for KindStruct
}

// StructTag names a struct type, possibly generic.
type StructTag struct {
	Address  AccountAddress
	Module   Identifier
	Name     Identifier
	TypeArgs []TypeTag
}

// NewStructTypeTag wraps a struct tag.
func NewStructTypeTag(tag StructTag) TypeTag {
	return TypeTag{kind: KindStruct, structTag: &tag}
}

// NewVectorTypeTag wraps an element type.
func NewVectorTypeTag(elem TypeTag) TypeTag {
	return TypeTag{kind: KindVector, elem: &elem}
}

// Kind returns the variant of the tag.
func (t TypeTag) Kind() TypeTagKind { return t.kind }

// Elem returns the element type of a vector tag.
func (t TypeTag) Elem() (TypeTag, bool) {
	if t.kind != KindVector {
		return TypeTag{}, false
	}
	return *t.elem, true
}

// Struct returns the struct tag of a struct type.
func (t TypeTag) Struct() (StructTag, bool) {
	if t.kind != KindStruct {
		return StructTag{}, false
	}
	return *t.structTag, true
}

func (t TypeTag) String() string {
	switch t.kind {
	case KindVector:
		return "vector<" + t.elem.String() + ">"
	case KindStruct:
		return t.structTag.String()
	}
	for name, kind := range primitiveNames {
		if kind == t.kind {
			return name
		}
	}
	return fmt.Sprintf("unknown(%d)", t.kind)
}

func (s StructTag) String() string {
	var b strings.Builder
	b.WriteString(s.Address.ShortString())
	b.WriteString("::")
	b.WriteString(string(s.Module))
	b.WriteString("::")
	b.WriteString(string(s.Name))
	if len(s.TypeArgs) > 0 {
		b.WriteByte('<')
		for i, arg := range s.TypeArgs {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(arg.String())
		}
		b.WriteByte('>')
	}
	return b.String()
}

// MarshalBCS writes the variant index followed by any nested payload.
func (t TypeTag) MarshalBCS(s *bcs.Serializer) {
	s.Uleb128(uint32(t.kind))
	switch t.kind {
	case KindVector:
		t.elem.MarshalBCS(s)
	case KindStruct:
		t.structTag.MarshalBCS(s)
	}
}

// MarshalBCS writes address, module, name and type arguments.
func (s StructTag) MarshalBCS(ser *bcs.Serializer) {
	s.Address.MarshalBCS(ser)
	s.Module.MarshalBCS(ser)
	s.Name.MarshalBCS(ser)
	bcs.Sequence(ser, s.TypeArgs)
}

// MarshalText implements encoding.TextMarshaler.
func (t TypeTag) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *TypeTag) UnmarshalText(text []byte) error {
	parsed, err := ParseTypeTag(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseTypeTag parses the canonical textual form, for example
// "0x1::coin::CoinStore<0x1::aptos_coin::AptosCoin>" or "vector<u8>".
func ParseTypeTag(s string) (TypeTag, error) {
	p := &typeParser{src: strings.Join(strings.Fields(s), "")}
	if p.src == "" {
		return TypeTag{}, fmt.Errorf("empty type tag")
	}
	tag, err := p.parseType()
	if err != nil {
		return TypeTag{}, fmt.Errorf("parse type tag %q: %w", s, err)
	}
	if p.pos != len(p.src) {
		return TypeTag{}, fmt.Errorf("parse type tag %q: unexpected %q at offset %d", s, p.src[p.pos:], p.pos)
	}
	return tag, nil
}

// MustParseTypeTag panics on malformed input.
func MustParseTypeTag(s string) TypeTag {
	tag, err := ParseTypeTag(s)
	if err != nil {
		panic(err)
	}
	return tag
}

type typeParser struct {
	src string
	pos int
}

func (p *typeParser) parseType() (TypeTag, error) {
	word := p.word()
	if word == "" {
		return TypeTag{}, fmt.Errorf("expected type at offset %d", p.pos)
	}

	if p.consume("::") {
		addr, err := ParseAddress(word)
		if err != nil {
			return TypeTag{}, err
		}
		module, err := NewIdentifier(p.word())
		if err != nil {
			return TypeTag{}, err
		}
		if !p.consume("::") {
			return TypeTag{}, fmt.Errorf("expected :: after module %s", module)
		}
		name, err := NewIdentifier(p.word())
		if err != nil {
			return TypeTag{}, err
		}
		tag := StructTag{Address: addr, Module: module, Name: name}
		if p.consume("<") {
			args, err := p.parseArgs()
			if err != nil {
				return TypeTag{}, err
			}
			tag.TypeArgs = args
		}
		return NewStructTypeTag(tag), nil
	}

	if word == "vector" {
		if !p.consume("<") {
			return TypeTag{}, fmt.Errorf("expected < after vector")
		}
		elem, err := p.parseType()
		if err != nil {
			return TypeTag{}, err
		}
		if !p.consume(">") {
			return TypeTag{}, fmt.Errorf("expected > closing vector")
		}
		return NewVectorTypeTag(elem), nil
	}

	kind, ok := primitiveNames[word]
	if !ok {
		return TypeTag{}, fmt.Errorf("unknown type %q", word)
	}
	return TypeTag{kind: kind}, nil
}

func (p *typeParser) parseArgs() ([]TypeTag, error) {
	var args []TypeTag
	for {
		arg, err := p.parseType()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if p.consume(",") {
			continue
		}
		if p.consume(">") {
			return args, nil
		}
		return nil, fmt.Errorf("expected , or > at offset %d", p.pos)
	}
}

func (p *typeParser) word() string {
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' {
			p.pos++
			continue
		}
		break
	}
	return p.src[start:p.pos]
}

func (p *typeParser) consume(tok string) bool {
	if strings.HasPrefix(p.src[p.pos:], tok) {
		p.pos += len(tok)
		return true
	}
	return false
}
