package move

import (
	"fmt"

	"aptos-playground/internal/bcs"
)

// Identifier names a module, function or struct.
type Identifier string

// NewIdentifier validates s against Move identifier rules: a letter or
// underscore followed by letters, digits or underscores. A lone underscore
// is rejected.
func NewIdentifier(s string) (Identifier, error) {
	if s == "" || s == "_" {
		return "", fmt.Errorf("invalid identifier %q", s)
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return "", fmt.Errorf("invalid identifier %q", s)
		}
	}
	return Identifier(s), nil
}

// MustIdentifier panics on invalid input.
func MustIdentifier(s string) Identifier {
	id, err := NewIdentifier(s)
	if err != nil {
		panic(err)
	}
	return id
}

func (i Identifier) String() string { return string(i) }

// MarshalBCS writes the identifier as a string.
func (i Identifier) MarshalBCS(s *bcs.Serializer) {
	s.Str(string(i))
}

// ModuleID is a module published under an account.
type ModuleID struct {
	Address AccountAddress
	Name    Identifier
}

// NewModuleID builds a ModuleID, validating the module name.
func NewModuleID(addr AccountAddress, name string) (ModuleID, error) {
	id, err := NewIdentifier(name)
	if err != nil {
		return ModuleID{}, err
	}
	return ModuleID{Address: addr, Name: id}, nil
}

func (m ModuleID) String() string {
	return m.Address.ShortString() + "::" + string(m.Name)
}

// MarshalBCS writes the address then the name.
func (m ModuleID) MarshalBCS(s *bcs.Serializer) {
	m.Address.MarshalBCS(s)
	m.Name.MarshalBCS(s)
}
