// Package keys renders entity keys as URL key segments, e.g. ('ALFKI') or
// (CustomerId='ALFKI',OrderId=5).
package keys

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nlstn/go-odata-client/internal/edm"
)

// ErrKeyFormat is the sentinel wrapped by every KeyFormatError
var ErrKeyFormat = errors.New("key format error")

// KeyFormatError describes why a key could not be rendered
type KeyFormatError struct {
	Property string
	Reason   string
	Err      error
}

func (e *KeyFormatError) Error() string {
	msg := ErrKeyFormat.Error()
	if e.Property != "" {
		msg += " for " + e.Property
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *KeyFormatError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrKeyFormat}
	}
	return []error{ErrKeyFormat, e.Err}
}

// NamedValue is one property of a composite key. Type optionally names the
// EDM type; it is inferred from Value when empty.
type NamedValue struct {
	Name  string
	Value interface{}
	Type  string
}

// Formatter renders keys with a configurable literal formatter
type Formatter struct {
	Literals edm.Formatter
}

// FormatKey renders a single key value with the default Formatter.
func FormatKey(value interface{}) (string, error) {
	return Formatter{}.FormatKey(value)
}

// FormatCompositeKey renders Name=value pairs with the default Formatter.
func FormatCompositeKey(values []NamedValue) (string, error) {
	return Formatter{}.FormatCompositeKey(values)
}

// FormatDeclaredKey checks values against the declared key properties and renders them.
func FormatDeclaredKey(declared []string, values []NamedValue) (string, error) {
	return Formatter{}.FormatDeclaredKey(declared, values)
}

// FormatKey renders a single key value. Values may be plain Go values or edm.Type.
func (f Formatter) FormatKey(value interface{}) (string, error) {
	return f.literal("", value, "")
}

// FormatCompositeKey renders values as Name1=val1,Name2=val2 in the given order.
// A single value is still rendered with its name.
func (f Formatter) FormatCompositeKey(values []NamedValue) (string, error) {
	if len(values) == 0 {
		return "", &KeyFormatError{Reason: "composite key has no properties"}
	}

	seen := make(map[string]struct{}, len(values))
	parts := make([]string, 0, len(values))
	for _, v := range values {
		if !validName(v.Name) {
			return "", &KeyFormatError{Property: v.Name, Reason: "invalid key property name"}
		}
		if _, dup := seen[v.Name]; dup {
			return "", &KeyFormatError{Property: v.Name, Reason: "duplicate key property"}
		}
		seen[v.Name] = struct{}{}

		lit, err := f.literal(v.Name, v.Value, v.Type)
		if err != nil {
			return "", err
		}
		parts = append(parts, v.Name+"="+lit)
	}
	return strings.Join(parts, ","), nil
}

// FormatDeclaredKey renders values after checking that they name exactly the
// declared key properties in declared order. A single declared property is
// rendered in the short form ('ALFKI').
func (f Formatter) FormatDeclaredKey(declared []string, values []NamedValue) (string, error) {
	if len(declared) != len(values) {
		return "", &KeyFormatError{Reason: fmt.Sprintf("key has %d properties, entity declares %d", len(values), len(declared))}
	}
	for i, name := range declared {
		if values[i].Name != name {
			return "", &KeyFormatError{Property: values[i].Name, Reason: fmt.Sprintf("expected key property %q at position %d", name, i)}
		}
	}
	if len(values) == 1 {
		return f.literal(values[0].Name, values[0].Value, values[0].Type)
	}
	return f.FormatCompositeKey(values)
}

func (f Formatter) literal(name string, value interface{}, typeName string) (string, error) {
	t, err := edm.Resolve(value, typeName)
	if err != nil {
		return "", &KeyFormatError{Property: name, Reason: "unsupported key value", Err: err}
	}
	if t.IsNull() {
		return "", &KeyFormatError{Property: name, Reason: "key value must not be null"}
	}
	if _, ok := t.(*edm.Binary); ok {
		return "", &KeyFormatError{Property: name, Reason: "binary values cannot be keys"}
	}
	return f.Literals.Literal(t), nil
}

// EntityPath joins an entity set and a rendered key: Customers('ALFKI').
func EntityPath(entitySet, key string) string {
	return entitySet + "(" + key + ")"
}

func validName(name string) bool {
	if name == "" {
		return false
	}
	return !strings.ContainsAny(name, " =,()'/")
}
