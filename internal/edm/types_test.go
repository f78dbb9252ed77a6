package edm

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestFromGoTypeTable(t *testing.T) {
	tests := []struct {
		name     string
		goType   reflect.Type
		expected string
		wantErr  bool
	}{
		{name: "nil type", goType: nil, wantErr: true},
		{name: "pointer to string", goType: reflect.TypeOf((*string)(nil)), expected: "Edm.String"},
		{name: "time.Time", goType: reflect.TypeOf(time.Time{}), expected: "Edm.DateTimeOffset"},
		{name: "time.Duration", goType: reflect.TypeOf(time.Duration(0)), expected: "Edm.Duration"},
		{name: "decimal.Decimal", goType: reflect.TypeOf(decimal.Decimal{}), expected: "Edm.Decimal"},
		{name: "uuid.UUID", goType: reflect.TypeOf(uuid.UUID{}), expected: "Edm.Guid"},
		{name: "enum value", goType: reflect.TypeOf(EnumValue{}), expected: EnumTypeName},
		{name: "byte slice", goType: reflect.TypeOf([]byte{}), expected: "Edm.Binary"},
		{name: "int maps to Edm.Int64", goType: reflect.TypeOf(0), expected: "Edm.Int64"},
		{name: "int32 maps to Edm.Int32", goType: reflect.TypeOf(int32(0)), expected: "Edm.Int32"},
		{name: "int16 maps to Edm.Int16", goType: reflect.TypeOf(int16(0)), expected: "Edm.Int16"},
		{name: "int8 maps to Edm.SByte", goType: reflect.TypeOf(int8(0)), expected: "Edm.SByte"},
		{name: "uint8 maps to Edm.Byte", goType: reflect.TypeOf(uint8(0)), expected: "Edm.Byte"},
		{name: "uint16 maps to Edm.Int32", goType: reflect.TypeOf(uint16(0)), expected: "Edm.Int32"},
		{name: "float32", goType: reflect.TypeOf(float32(0)), expected: "Edm.Single"},
		{name: "float64", goType: reflect.TypeOf(float64(0)), expected: "Edm.Double"},
		{name: "bool", goType: reflect.TypeOf(true), expected: "Edm.Boolean"},
		{name: "unsupported kind", goType: reflect.TypeOf(map[string]string{}), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actual, err := FromGoType(tt.goType)
			if tt.wantErr {
				if !errors.Is(err, ErrUnsupportedLiteralType) {
					t.Fatalf("expected ErrUnsupportedLiteralType, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if actual != tt.expected {
				t.Fatalf("expected %q, got %q", tt.expected, actual)
			}
		})
	}
}

func TestFromGoValue(t *testing.T) {
	nullValue, err := FromGoValue(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !nullValue.IsNull() || nullValue.String() != "null" {
		t.Fatalf("expected untyped null, got %s", nullValue)
	}

	var missing *int32
	typedNull, err := FromGoValue(missing)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if typedNull.TypeName() != "Edm.Int32" || !typedNull.IsNull() {
		t.Fatalf("expected null Edm.Int32, got %s %s", typedNull.TypeName(), typedNull)
	}

	value := "hello"
	parsed, err := FromGoValue(&value)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parsed.TypeName() != "Edm.String" || parsed.Value() != value {
		t.Fatalf("expected Edm.String %q, got %s %v", value, parsed.TypeName(), parsed.Value())
	}

	date := DateOf(2024, time.January, 31)
	same, err := FromGoValue(date)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if same != Type(date) {
		t.Fatal("expected an existing Type to be returned unchanged")
	}

	var nilDate *Date
	if v, err := FromGoValue(nilDate); err != nil || v.String() != "null" {
		t.Fatalf("expected null for nil *Date, got %v, %v", v, err)
	}

	if _, err := FromGoValue(struct{}{}); !errors.Is(err, ErrUnsupportedLiteralType) {
		t.Fatalf("expected ErrUnsupportedLiteralType, got %v", err)
	}
}

func TestParseTypeUnknown(t *testing.T) {
	if IsValidType("Edm.Geography") {
		t.Fatal("Edm.Geography should not be registered")
	}
	_, err := ParseType("Edm.Geography", "x")
	if !errors.Is(err, ErrUnsupportedLiteralType) {
		t.Fatalf("expected ErrUnsupportedLiteralType, got %v", err)
	}
}

func TestFormat(t *testing.T) {
	id := uuid.MustParse("01234567-89ab-cdef-0123-456789abcdef")
	stamp := time.Date(2024, time.January, 31, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		value    interface{}
		typeName string
		expected string
	}{
		{"string", "Milk", "", "'Milk'"},
		{"string with quote", "O'Neil", "", "'O''Neil'"},
		{"empty string", "", "Edm.String", "''"},
		{"int", 42, "", "42"},
		{"negative int64", int64(-7), "Edm.Int64", "-7"},
		{"int as Int32", 5, "Edm.Int32", "5"},
		{"byte", uint8(255), "", "255"},
		{"decimal", decimal.RequireFromString("19.99"), "", "19.99"},
		{"decimal from float", 100.5, "Edm.Decimal", "100.5"},
		{"decimal from string", "12.340", "Edm.Decimal", "12.34"},
		{"double", 3.5, "", "3.5"},
		{"double exponent", 1e21, "", "1e+21"},
		{"single", float32(0.1), "", "0.1"},
		{"true", true, "", "true"},
		{"false", false, "Edm.Boolean", "false"},
		{"datetimeoffset", stamp, "", "2024-01-31T10:00:00Z"},
		{"datetimeoffset fraction", stamp.Add(500 * time.Millisecond), "", "2024-01-31T10:00:00.5Z"},
		{"datetimeoffset offset", time.Date(2024, 1, 31, 10, 0, 0, 0, time.FixedZone("", 2*3600)), "", "2024-01-31T10:00:00+02:00"},
		{"date from time", stamp, "Edm.Date", "2024-01-31"},
		{"date from string", "2024-02-29", "Edm.Date", "2024-02-29"},
		{"time of day", stamp.Add(30 * time.Minute), "Edm.TimeOfDay", "10:30:00"},
		{"time of day fraction", "08:15:00.25", "Edm.TimeOfDay", "08:15:00.25"},
		{"duration", 26*time.Hour + 3*time.Minute + 4500*time.Millisecond, "", "duration'P1DT2H3M4.5S'"},
		{"zero duration", time.Duration(0), "", "duration'PT0S'"},
		{"negative duration", -90 * time.Minute, "", "duration'-PT1H30M'"},
		{"whole days", 48 * time.Hour, "", "duration'P2D'"},
		{"guid", id, "", "guid'01234567-89ab-cdef-0123-456789abcdef'"},
		{"guid from string", "01234567-89AB-CDEF-0123-456789ABCDEF", "Edm.Guid", "guid'01234567-89ab-cdef-0123-456789abcdef'"},
		{"binary", []byte{0xfb, 0xff, 0x01}, "", "binary'-_8B'"},
		{"enum bare", EnumValue{Member: "Red"}, "", "Red"},
		{"enum qualified", EnumValue{Type: "NS.Color", Member: "Red"}, "", "NS.Color'Red'"},
		{"enum by declared type", "Blue", "NS.Color", "NS.Color'Blue'"},
		{"null", nil, "", "null"},
		{"typed null", nil, "Edm.Int32", "null"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actual, err := Format(tt.value, tt.typeName)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if actual != tt.expected {
				t.Fatalf("expected %s, got %s", tt.expected, actual)
			}
		})
	}
}

func TestFormatErrors(t *testing.T) {
	tests := []struct {
		name     string
		value    interface{}
		typeName string
	}{
		{"unknown type", 1, "Edm.Stream"},
		{"string as int", "abc", "Edm.Int32"},
		{"int32 overflow", int64(1) << 40, "Edm.Int32"},
		{"negative byte", -1, "Edm.Byte"},
		{"fractional integer", 1.5, "Edm.Int64"},
		{"bad date", "31/01/2024", "Edm.Date"},
		{"bad guid", "not-a-guid", "Edm.Guid"},
		{"bool as string", true, "Edm.String"},
		{"unsupported go value", []string{"a"}, ""},
		{"unqualified enum type", EnumValue{Type: "Color", Member: "Red"}, ""},
		{"empty enum member", EnumValue{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Format(tt.value, tt.typeName)
			if !errors.Is(err, ErrUnsupportedLiteralType) {
				t.Fatalf("expected ErrUnsupportedLiteralType, got %v", err)
			}
		})
	}
}

func TestFormatterBareGUIDs(t *testing.T) {
	id := uuid.MustParse("01234567-89ab-cdef-0123-456789abcdef")
	f := Formatter{BareGUIDs: true}

	actual, err := f.Format(id, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if actual != "01234567-89ab-cdef-0123-456789abcdef" {
		t.Fatalf("expected bare guid, got %s", actual)
	}

	nullGUID, err := f.Format(nil, "Edm.Guid")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if nullGUID != "null" {
		t.Fatalf("expected null, got %s", nullGUID)
	}
}

func TestResolveRetypesExistingValue(t *testing.T) {
	v, err := NewInt64(int64(7))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resolved, err := Resolve(v, "Edm.Decimal")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.TypeName() != "Edm.Decimal" {
		t.Fatalf("expected Edm.Decimal, got %s", resolved.TypeName())
	}
	if resolved.String() != "7" {
		t.Fatalf("expected 7, got %s", resolved.String())
	}
}
