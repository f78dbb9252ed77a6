package edm

func init() {
	RegisterType("Edm.Boolean", NewBoolean)
}

// Boolean represents an Edm.Boolean value
type Boolean struct {
	value  bool
	isNull bool
}

// NewBoolean creates a new Edm.Boolean from a value
func NewBoolean(value interface{}) (Type, error) {
	if value == nil {
		return &Boolean{isNull: true}, nil
	}

	var boolValue bool
	switch v := value.(type) {
	case bool:
		boolValue = v
	case *bool:
		if v == nil {
			return &Boolean{isNull: true}, nil
		}
		boolValue = *v
	default:
		return nil, unsupported(value, "Edm.Boolean")
	}

	return &Boolean{value: boolValue}, nil
}

// TypeName returns "Edm.Boolean"
func (b *Boolean) TypeName() string {
	return "Edm.Boolean"
}

// IsNull returns true if the value is null
func (b *Boolean) IsNull() bool {
	return b.isNull
}

// Value returns the underlying bool value
func (b *Boolean) Value() interface{} {
	if b.isNull {
		return nil
	}
	return b.value
}

// String returns the OData literal format
func (b *Boolean) String() string {
	if b.isNull {
		return "null"
	}
	if b.value {
		return "true"
	}
	return "false"
}
