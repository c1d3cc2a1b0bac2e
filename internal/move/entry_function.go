package move

import (
	"fmt"
	"strings"

	"aptos-playground/internal/bcs"
)

// EntryFunction is a call to a public entry function. Value arguments are
// already BCS encoded.
type EntryFunction struct {
	module   ModuleID
	function Identifier
	typeArgs []TypeTag
	args     [][]byte
}

// NewEntryFunction copies its inputs so the call cannot be changed after
// construction.
func NewEntryFunction(module ModuleID, function Identifier, typeArgs []TypeTag, args [][]byte) EntryFunction {
	ef := EntryFunction{
		module:   module,
		function: function,
		typeArgs: append([]TypeTag(nil), typeArgs...),
		args:     make([][]byte, len(args)),
	}
	for i, arg := range args {
		ef.args[i] = append([]byte(nil), arg...)
	}
	return ef
}

// ParseFunctionID splits "0x1::managed_coin::register" into module and
// function name.
func ParseFunctionID(s string) (ModuleID, Identifier, error) {
	parts := strings.Split(strings.TrimSpace(s), "::")
	if len(parts) != 3 {
		return ModuleID{}, "", fmt.Errorf("function id %q must look like <address>::<module>::<function>", s)
	}
	addr, err := ParseAddress(parts[0])
	if err != nil {
		return ModuleID{}, "", err
	}
	module, err := NewModuleID(addr, parts[1])
	if err != nil {
		return ModuleID{}, "", err
	}
	fn, err := NewIdentifier(parts[2])
	if err != nil {
		return ModuleID{}, "", err
	}
	return module, fn, nil
}

func (e EntryFunction) Module() ModuleID     { return e.module }
func (e EntryFunction) Function() Identifier { return e.function }
func (e EntryFunction) NumTypeArgs() int     { return len(e.typeArgs) }
func (e EntryFunction) NumArgs() int         { return len(e.args) }
func (e EntryFunction) TypeArgs() []TypeTag  { return append([]TypeTag(nil), e.typeArgs...) }

// Args returns copies of the encoded arguments.
func (e EntryFunction) Args() [][]byte {
	out := make([][]byte, len(e.args))
	for i, arg := range e.args {
		out[i] = append([]byte(nil), arg...)
	}
	return out
}

func (e EntryFunction) String() string {
	var b strings.Builder
	b.WriteString(e.module.String())
	b.WriteString("::")
	b.WriteString(string(e.function))
	if len(e.typeArgs) > 0 {
		b.WriteByte('<')
		for i, tag := range e.typeArgs {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(tag.String())
		}
		b.WriteByte('>')
	}
	fmt.Fprintf(&b, "(%d args)", len(e.args))
	return b.String()
}

// MarshalBCS writes module, function, type arguments and value arguments.
func (e EntryFunction) MarshalBCS(s *bcs.Serializer) {
	e.module.MarshalBCS(s)
	e.function.MarshalBCS(s)
	bcs.Sequence(s, e.typeArgs)
	s.Uleb128(uint32(len(e.args)))
	for _, arg := range e.args {
		s.Bytes(arg)
	}
}
