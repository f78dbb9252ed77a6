package edm

import (
	"fmt"
	"math"
	"strconv"
)

func init() {
	for name := range integerRanges {
		typeName := name
		RegisterType(typeName, func(value interface{}) (Type, error) {
			return newInteger(typeName, value)
		})
	}
	RegisterType("Edm.Double", NewDouble)
	RegisterType("Edm.Single", NewSingle)
}

type integerRange struct {
	min int64
	max int64
}

var integerRanges = map[string]integerRange{
	"Edm.Byte":  {0, math.MaxUint8},
	"Edm.SByte": {math.MinInt8, math.MaxInt8},
	"Edm.Int16": {math.MinInt16, math.MaxInt16},
	"Edm.Int32": {math.MinInt32, math.MaxInt32},
	"Edm.Int64": {math.MinInt64, math.MaxInt64},
}

// Integer represents one of the integral EDM types (Edm.Byte, Edm.SByte, Edm.Int16,
// Edm.Int32 or Edm.Int64)
type Integer struct {
	typeName string
	value    int64
	isNull   bool
}

// NewInt32 creates a new Edm.Int32 from a value
func NewInt32(value interface{}) (Type, error) { return newInteger("Edm.Int32", value) }

// NewInt64 creates a new Edm.Int64 from a value
func NewInt64(value interface{}) (Type, error) { return newInteger("Edm.Int64", value) }

func newInteger(typeName string, value interface{}) (Type, error) {
	if value == nil {
		return &Integer{typeName: typeName, isNull: true}, nil
	}

	var v int64
	switch n := value.(type) {
	case int:
		v = int64(n)
	case int8:
		v = int64(n)
	case int16:
		v = int64(n)
	case int32:
		v = int64(n)
	case int64:
		v = n
	case uint:
		if uint64(n) > math.MaxInt64 {
			return nil, fmt.Errorf("%w: value %d out of range for %s", ErrUnsupportedLiteralType, n, typeName)
		}
		v = int64(n)
	case uint8:
		v = int64(n)
	case uint16:
		v = int64(n)
	case uint32:
		v = int64(n)
	case uint64:
		if n > math.MaxInt64 {
			return nil, fmt.Errorf("%w: value %d out of range for %s", ErrUnsupportedLiteralType, n, typeName)
		}
		v = int64(n)
	case float64:
		// float64(math.MaxInt64) rounds up to 2^63, which no int64 can hold.
		if n != math.Trunc(n) || n < math.MinInt64 || n >= math.MaxInt64 {
			return nil, fmt.Errorf("%w: value %v is not a valid %s", ErrUnsupportedLiteralType, n, typeName)
		}
		v = int64(n)
	case string:
		parsed, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: cannot parse %q as %s", ErrUnsupportedLiteralType, n, typeName)
		}
		v = parsed
	default:
		return nil, unsupported(value, typeName)
	}

	r := integerRanges[typeName]
	if v < r.min || v > r.max {
		return nil, fmt.Errorf("%w: value %d out of range for %s", ErrUnsupportedLiteralType, v, typeName)
	}

	return &Integer{typeName: typeName, value: v}, nil
}

func (i *Integer) TypeName() string { return i.typeName }
func (i *Integer) IsNull() bool     { return i.isNull }
func (i *Integer) Value() interface{} {
	if i.isNull {
		return nil
	}
	return i.value
}
func (i *Integer) String() string {
	if i.isNull {
		return "null"
	}
	return strconv.FormatInt(i.value, 10)
}

// Float represents an Edm.Double or Edm.Single value
type Float struct {
	typeName string
	bitSize  int
	value    float64
	isNull   bool
}

// NewDouble creates a new Edm.Double from a value
func NewDouble(value interface{}) (Type, error) { return newFloat("Edm.Double", 64, value) }

// NewSingle creates a new Edm.Single from a value
func NewSingle(value interface{}) (Type, error) { return newFloat("Edm.Single", 32, value) }

func newFloat(typeName string, bitSize int, value interface{}) (Type, error) {
	if value == nil {
		return &Float{typeName: typeName, bitSize: bitSize, isNull: true}, nil
	}

	var v float64
	switch n := value.(type) {
	case float64:
		v = n
	case float32:
		v = float64(n)
	case int:
		v = float64(n)
	case int32:
		v = float64(n)
	case int64:
		v = float64(n)
	case *float64:
		if n == nil {
			return &Float{typeName: typeName, bitSize: bitSize, isNull: true}, nil
		}
		v = *n
	case string:
		parsed, err := strconv.ParseFloat(n, bitSize)
		if err != nil {
			return nil, fmt.Errorf("%w: cannot parse %q as %s", ErrUnsupportedLiteralType, n, typeName)
		}
		v = parsed
	default:
		return nil, unsupported(value, typeName)
	}

	return &Float{typeName: typeName, bitSize: bitSize, value: v}, nil
}

func (f *Float) TypeName() string { return f.typeName }
func (f *Float) IsNull() bool     { return f.isNull }
func (f *Float) Value() interface{} {
	if f.isNull {
		return nil
	}
	return f.value
}

// String renders the shortest representation that round-trips, with the
// special tokens NaN, INF and -INF.
func (f *Float) String() string {
	switch {
	case f.isNull:
		return "null"
	case math.IsNaN(f.value):
		return "NaN"
	case math.IsInf(f.value, 1):
		return "INF"
	case math.IsInf(f.value, -1):
		return "-INF"
	}
	return strconv.FormatFloat(f.value, 'g', -1, f.bitSize)
}
