package alexdb

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestValueJSONRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		v    Value
	}{
		{"integer", Integer(42)},
		{"negative integer", Integer(-7)},
		{"string", String("hello")},
		{"empty string", String("")},
		{"boolean true", Boolean(true)},
		{"boolean false", Boolean(false)},
		{"empty array", NewArray()},
		{"flat array", NewArray(Integer(1), Integer(2), Integer(3))},
		{"nested array", NewArray(NewArray(Integer(1)), String("x"), Boolean(true))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := tt.v.MarshalJSON()
			if err != nil {
				t.Fatalf("MarshalJSON: %v", err)
			}

			var out Value
			if err := out.UnmarshalJSON(data); err != nil {
				t.Fatalf("UnmarshalJSON: %v", err)
			}

			if diff := cmp.Diff(tt.v, out); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestValueUnmarshalUnknownType(t *testing.T) {
	var v Value
	err := v.UnmarshalJSON([]byte(`{"type":"float","value":1.5}`))
	if err == nil {
		t.Fatal("expected error for unknown value type")
	}
}

func TestValueKindPredicates(t *testing.T) {
	if !Integer(1).IsInteger() {
		t.Error("Integer should report IsInteger")
	}
	if !String("a").IsString() {
		t.Error("String should report IsString")
	}
	if !NewArray().IsArray() {
		t.Error("NewArray should report IsArray")
	}
	if Integer(1).IsString() {
		t.Error("Integer should not report IsString")
	}
}

func TestNewArrayCopiesInput(t *testing.T) {
	items := []Value{Integer(1), Integer(2)}
	v := NewArray(items...)
	items[0] = Integer(99)

	if v.Array[0].Int != 1 {
		t.Error("NewArray should copy its input, not alias it")
	}
}
