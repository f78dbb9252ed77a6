package edm

import (
	"fmt"

	"github.com/google/uuid"
)

func init() {
	RegisterType("Edm.Guid", NewGuid)
}

// Guid represents an Edm.Guid value
type Guid struct {
	value  uuid.UUID
	isNull bool
}

// NewGuid creates a new Edm.Guid from a uuid.UUID, a 16 byte array or its string form
func NewGuid(value interface{}) (Type, error) {
	switch v := value.(type) {
	case nil:
		return &Guid{isNull: true}, nil
	case uuid.UUID:
		return &Guid{value: v}, nil
	case *uuid.UUID:
		if v == nil {
			return &Guid{isNull: true}, nil
		}
		return &Guid{value: *v}, nil
	case [16]byte:
		return &Guid{value: uuid.UUID(v)}, nil
	case string:
		parsed, err := uuid.Parse(v)
		if err != nil {
			return nil, fmt.Errorf("%w: cannot parse %q as Edm.Guid", ErrUnsupportedLiteralType, v)
		}
		return &Guid{value: parsed}, nil
	}
	return nil, unsupported(value, "Edm.Guid")
}

func (g *Guid) TypeName() string { return "Edm.Guid" }
func (g *Guid) IsNull() bool     { return g.isNull }
func (g *Guid) Value() interface{} {
	if g.isNull {
		return nil
	}
	return g.value
}

// String returns the prefixed literal guid'...'.
func (g *Guid) String() string {
	if g.isNull {
		return "null"
	}
	return "guid'" + g.value.String() + "'"
}
