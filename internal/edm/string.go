package edm

import "strings"

func init() {
	RegisterType("Edm.String", NewString)
}

// String represents an Edm.String value
type String struct {
	value  string
	isNull bool
}

// NewString creates a new Edm.String from a value
func NewString(value interface{}) (Type, error) {
	if value == nil {
		return &String{isNull: true}, nil
	}

	var strValue string
	switch v := value.(type) {
	case string:
		strValue = v
	case *string:
		if v == nil {
			return &String{isNull: true}, nil
		}
		strValue = *v
	case []byte:
		strValue = string(v)
	default:
		return nil, unsupported(value, "Edm.String")
	}

	return &String{value: strValue}, nil
}

// TypeName returns "Edm.String"
func (s *String) TypeName() string {
	return "Edm.String"
}

// IsNull returns true if the value is null
func (s *String) IsNull() bool {
	return s.isNull
}

// Value returns the underlying string value
func (s *String) Value() interface{} {
	if s.isNull {
		return nil
	}
	return s.value
}

// String returns the OData literal format
func (s *String) String() string {
	if s.isNull {
		return "null"
	}
	return QuoteString(s.value)
}

// QuoteString single-quotes s, doubling embedded quotes.
func QuoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
