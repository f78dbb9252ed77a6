package edm

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"
)

// ErrUnsupportedLiteralType is returned when a value cannot be rendered as an OData literal,
// either because the declared type is unknown or because the Go value does not fit it.
var ErrUnsupportedLiteralType = errors.New("unsupported literal type")

// Type represents an EDM primitive value that can be rendered as an OData URL literal
type Type interface {
	// TypeName returns the EDM type name (e.g., "Edm.String")
	TypeName() string

	// IsNull indicates if the value is null
	IsNull() bool

	// Value returns the underlying Go value
	Value() interface{}

	// String converts to OData literal format
	String() string
}

// Parser is a function that converts a Go value into an EDM type
type Parser func(value interface{}) (Type, error)

// typeRegistry maintains registered EDM types
// Uses sync.Map for concurrent-safe access during package initialization
var typeRegistry sync.Map

// RegisterType registers a parser for an EDM type name
func RegisterType(typeName string, parser Parser) {
	typeRegistry.Store(typeName, parser)
}

// IsValidType checks if a type name is registered
func IsValidType(typeName string) bool {
	_, ok := typeRegistry.Load(typeName)
	return ok
}

// ParseType converts a value into the specified EDM type
func ParseType(typeName string, value interface{}) (Type, error) {
	val, ok := typeRegistry.Load(typeName)
	if !ok {
		return nil, fmt.Errorf("%w: unknown EDM type %q", ErrUnsupportedLiteralType, typeName)
	}
	parser, ok := val.(Parser)
	if !ok {
		return nil, fmt.Errorf("%w: invalid parser for EDM type %q", ErrUnsupportedLiteralType, typeName)
	}
	return parser(value)
}

// FromGoType infers the EDM type from a Go type
func FromGoType(goType reflect.Type) (string, error) {
	if goType == nil {
		return "", fmt.Errorf("%w: nil type", ErrUnsupportedLiteralType)
	}

	// Handle pointer types
	if goType.Kind() == reflect.Ptr {
		goType = goType.Elem()
	}

	// Check for specific known types
	switch {
	case goType.PkgPath() == "time" && goType.Name() == "Time":
		return "Edm.DateTimeOffset", nil
	case goType.PkgPath() == "time" && goType.Name() == "Duration":
		return "Edm.Duration", nil
	case goType.PkgPath() == "github.com/shopspring/decimal" && goType.Name() == "Decimal":
		return "Edm.Decimal", nil
	case goType.PkgPath() == "github.com/google/uuid" && goType.Name() == "UUID":
		return "Edm.Guid", nil
	case goType == reflect.TypeOf(EnumValue{}):
		return EnumTypeName, nil
	}

	// Handle byte slices
	if goType.Kind() == reflect.Slice && goType.Elem().Kind() == reflect.Uint8 {
		return "Edm.Binary", nil
	}

	// Map basic Go types to EDM types
	switch goType.Kind() {
	case reflect.String:
		return "Edm.String", nil
	case reflect.Int, reflect.Int64, reflect.Uint, reflect.Uint32, reflect.Uint64:
		return "Edm.Int64", nil
	case reflect.Int32, reflect.Uint16:
		return "Edm.Int32", nil
	case reflect.Int16:
		return "Edm.Int16", nil
	case reflect.Int8:
		return "Edm.SByte", nil
	case reflect.Uint8:
		return "Edm.Byte", nil
	case reflect.Float32:
		return "Edm.Single", nil
	case reflect.Float64:
		return "Edm.Double", nil
	case reflect.Bool:
		return "Edm.Boolean", nil
	default:
		return "", fmt.Errorf("%w: unsupported Go type %s", ErrUnsupportedLiteralType, goType.String())
	}
}

// FromGoValue infers the EDM type from a Go value and converts it.
// A nil value yields an untyped null; values that already are a Type are returned unchanged.
func FromGoValue(value interface{}) (Type, error) {
	if value == nil {
		return NewNull(""), nil
	}
	if t, ok := value.(Type); ok {
		if rv := reflect.ValueOf(value); rv.Kind() == reflect.Ptr && rv.IsNil() {
			return NewNull(""), nil
		}
		return t, nil
	}

	goType := reflect.TypeOf(value)
	if goType.Kind() == reflect.Ptr {
		rv := reflect.ValueOf(value)
		if rv.IsNil() {
			typeName, err := FromGoType(goType)
			if err != nil {
				return nil, err
			}
			return NewNull(typeName), nil
		}
		value = rv.Elem().Interface()
		goType = goType.Elem()
	}

	typeName, err := FromGoType(goType)
	if err != nil {
		return nil, err
	}

	return ParseType(typeName, value)
}

// Formatter renders EDM values as URL literals.
// The zero value renders Edm.Guid with the guid'...' prefix; BareGUIDs switches to the
// unprefixed form some V4 services require.
type Formatter struct {
	BareGUIDs bool
}

// Literal renders an already typed value.
func (f Formatter) Literal(t Type) string {
	if g, ok := t.(*Guid); ok && f.BareGUIDs && !g.IsNull() {
		return g.value.String()
	}
	return t.String()
}

// Format converts value to the declared EDM type and renders it.
// An empty typeName infers the type from the Go value.
func (f Formatter) Format(value interface{}, typeName string) (string, error) {
	t, err := Resolve(value, typeName)
	if err != nil {
		return "", err
	}
	return f.Literal(t), nil
}

// Format renders value with the default Formatter.
func Format(value interface{}, typeName string) (string, error) {
	return Formatter{}.Format(value, typeName)
}

// Resolve converts value into a Type, honoring typeName when it is set.
func Resolve(value interface{}, typeName string) (Type, error) {
	if typeName == "" {
		return FromGoValue(value)
	}
	if t, ok := value.(Type); ok {
		if t.TypeName() == typeName {
			return t, nil
		}
		value = t.Value()
	}
	if !IsValidType(typeName) && isQualifiedEnumType(typeName) {
		return enumOf(typeName, value)
	}
	return ParseType(typeName, value)
}

// isQualifiedEnumType reports whether typeName looks like a user-declared type
// ("NS.Color") rather than a primitive from the Edm namespace.
func isQualifiedEnumType(typeName string) bool {
	return strings.Contains(typeName, ".") && !strings.HasPrefix(typeName, "Edm.")
}

func enumOf(typeName string, value interface{}) (Type, error) {
	switch v := value.(type) {
	case nil:
		return NewNull(typeName), nil
	case string:
		return NewEnum(EnumValue{Type: typeName, Member: v})
	case EnumValue:
		v.Type = typeName
		return NewEnum(v)
	case fmt.Stringer:
		return NewEnum(EnumValue{Type: typeName, Member: v.String()})
	}
	return nil, unsupported(value, typeName)
}

func unsupported(value interface{}, typeName string) error {
	return fmt.Errorf("%w: cannot convert %T to %s", ErrUnsupportedLiteralType, value, typeName)
}

// asTime accepts time.Time and *time.Time, reporting nil pointers as null.
func asTime(value interface{}) (t time.Time, isNull bool, ok bool) {
	switch v := value.(type) {
	case time.Time:
		return v, false, true
	case *time.Time:
		if v == nil {
			return time.Time{}, true, true
		}
		return *v, false, true
	}
	return time.Time{}, false, false
}
