package edm

// Null is the literal null, optionally tagged with the type it stands in for.
type Null struct {
	typeName string
}

// NewNull returns a null literal for typeName (which may be empty).
func NewNull(typeName string) *Null {
	return &Null{typeName: typeName}
}

func (n *Null) TypeName() string   { return n.typeName }
func (n *Null) IsNull() bool       { return true }
func (n *Null) Value() interface{} { return nil }
func (n *Null) String() string     { return "null" }
