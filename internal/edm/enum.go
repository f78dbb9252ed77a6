package edm

import (
	"fmt"
	"strings"
)

// EnumTypeName is the registry key for enumeration members whose declared type is
// not known to the caller.
const EnumTypeName = "Enum"

func init() {
	RegisterType(EnumTypeName, NewEnum)
}

// EnumValue names a member of an enumeration type. Type is the qualified type name
// (e.g. "NS.Color") and may be left empty.
type EnumValue struct {
	Type   string
	Member string
}

// Enum represents an enumeration member literal
type Enum struct {
	value  EnumValue
	isNull bool
}

// NewEnum creates an enumeration literal from an EnumValue or a bare member name
func NewEnum(value interface{}) (Type, error) {
	var ev EnumValue
	switch v := value.(type) {
	case nil:
		return &Enum{isNull: true}, nil
	case EnumValue:
		ev = v
	case *EnumValue:
		if v == nil {
			return &Enum{isNull: true}, nil
		}
		ev = *v
	case string:
		ev = EnumValue{Member: v}
	default:
		return nil, unsupported(value, EnumTypeName)
	}

	if ev.Member == "" || strings.ContainsAny(ev.Member, "' ") {
		return nil, fmt.Errorf("%w: invalid enum member %q", ErrUnsupportedLiteralType, ev.Member)
	}
	if ev.Type != "" && !strings.Contains(ev.Type, ".") {
		return nil, fmt.Errorf("%w: enum type %q must be namespace qualified", ErrUnsupportedLiteralType, ev.Type)
	}
	return &Enum{value: ev}, nil
}

func (e *Enum) TypeName() string {
	if e.value.Type != "" {
		return e.value.Type
	}
	return EnumTypeName
}
func (e *Enum) IsNull() bool { return e.isNull }
func (e *Enum) Value() interface{} {
	if e.isNull {
		return nil
	}
	return e.value
}

// String renders the bare member name, or NS.Type'Member' when the type is known.
func (e *Enum) String() string {
	switch {
	case e.isNull:
		return "null"
	case e.value.Type == "":
		return e.value.Member
	}
	return e.value.Type + "'" + e.value.Member + "'"
}
