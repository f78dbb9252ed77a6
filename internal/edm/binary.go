package edm

import "encoding/base64"

func init() {
	RegisterType("Edm.Binary", NewBinary)
}

// Binary represents an Edm.Binary value
type Binary struct {
	value  []byte
	isNull bool
}

// NewBinary creates a new Edm.Binary from a byte slice or a base64url string
func NewBinary(value interface{}) (Type, error) {
	switch v := value.(type) {
	case nil:
		return &Binary{isNull: true}, nil
	case []byte:
		if v == nil {
			return &Binary{isNull: true}, nil
		}
		return &Binary{value: append([]byte(nil), v...)}, nil
	case string:
		decoded, err := base64.RawURLEncoding.Strict().DecodeString(v)
		if err != nil {
			decoded, err = base64.URLEncoding.Strict().DecodeString(v)
		}
		if err != nil {
			return nil, unsupported(value, "Edm.Binary")
		}
		return &Binary{value: decoded}, nil
	}
	return nil, unsupported(value, "Edm.Binary")
}

func (b *Binary) TypeName() string { return "Edm.Binary" }
func (b *Binary) IsNull() bool     { return b.isNull }
func (b *Binary) Value() interface{} {
	if b.isNull {
		return nil
	}
	return b.value
}

// String returns binary'<base64url>' without padding.
func (b *Binary) String() string {
	if b.isNull {
		return "null"
	}
	return "binary'" + base64.RawURLEncoding.EncodeToString(b.value) + "'"
}
