// Tagged value variants and typed mutation helpers.
//
// Value is a closed union over Integer, String, Boolean and Array.
// Operations that expect a particular variant (Increment, Append,
// PopBack, ...) fold a mismatched variant into the "no change" outcome
// instead of an error — see errors.go and store.go.
package alexdb

import (
	"fmt"

	json "github.com/goccy/go-json"
)

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	KindInteger Kind = iota + 1
	KindString
	KindBoolean
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindInteger:
		return "integer"
	case KindString:
		return "string"
	case KindBoolean:
		return "boolean"
	case KindArray:
		return "array"
	default:
		return "unknown"
	}
}

// Value is a tagged union. Only the field matching Kind is meaningful;
// callers should use the constructors and accessor methods below
// rather than touching fields directly.
type Value struct {
	Kind  Kind
	Int   int64
	Str   string
	Bool  bool
	Array []Value
}

// Integer returns an Integer-kind Value.
func Integer(n int64) Value { return Value{Kind: KindInteger, Int: n} }

// String returns a String-kind Value.
func String(s string) Value { return Value{Kind: KindString, Str: s} }

// Boolean returns a Boolean-kind Value.
func Boolean(b bool) Value { return Value{Kind: KindBoolean, Bool: b} }

// NewArray returns an Array-kind Value wrapping the given elements.
// The slice is copied so later mutation of items does not alias it.
func NewArray(items ...Value) Value {
	cp := make([]Value, len(items))
	copy(cp, items)
	return Value{Kind: KindArray, Array: cp}
}

// IsInteger reports whether v holds an Integer.
func (v Value) IsInteger() bool { return v.Kind == KindInteger }

// IsString reports whether v holds a String.
func (v Value) IsString() bool { return v.Kind == KindString }

// IsArray reports whether v holds an Array.
func (v Value) IsArray() bool { return v.Kind == KindArray }

// wireValue is the JSON-on-disk shape: a discriminant plus exactly one
// populated payload field, matching the serde-tagged-enum encoding the
// original Rust source used for ValueRecord.
type wireValue struct {
	Type  string      `json:"type"`
	Int   *int64      `json:"int,omitempty"`
	Str   *string     `json:"str,omitempty"`
	Bool  *bool       `json:"bool,omitempty"`
	Array []wireValue `json:"array,omitempty"`
}

// MarshalJSON implements json.Marshaler so Value round-trips through
// the snapshot codec (§4.3) without exposing the Kind taxonomy to
// unrelated callers.
func (v Value) MarshalJSON() ([]byte, error) {
	w, err := v.toWire()
	if err != nil {
		return nil, err
	}
	return json.Marshal(w)
}

func (v Value) toWire() (wireValue, error) {
	switch v.Kind {
	case KindInteger:
		n := v.Int
		return wireValue{Type: "integer", Int: &n}, nil
	case KindString:
		s := v.Str
		return wireValue{Type: "string", Str: &s}, nil
	case KindBoolean:
		b := v.Bool
		return wireValue{Type: "boolean", Bool: &b}, nil
	case KindArray:
		items := make([]wireValue, len(v.Array))
		for i, item := range v.Array {
			w, err := item.toWire()
			if err != nil {
				return wireValue{}, err
			}
			items[i] = w
		}
		return wireValue{Type: "array", Array: items}, nil
	default:
		return wireValue{}, fmt.Errorf("alexdb: unknown value kind %d", v.Kind)
	}
}

// UnmarshalJSON implements json.Unmarshaler, the inverse of MarshalJSON.
func (v *Value) UnmarshalJSON(data []byte) error {
	var w wireValue
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	out, err := fromWire(w)
	if err != nil {
		return err
	}
	*v = out
	return nil
}

func fromWire(w wireValue) (Value, error) {
	switch w.Type {
	case "integer":
		if w.Int == nil {
			return Value{}, fmt.Errorf("%w: integer value missing", ErrSnapshotCorrupt)
		}
		return Integer(*w.Int), nil
	case "string":
		if w.Str == nil {
			return Value{}, fmt.Errorf("%w: string value missing", ErrSnapshotCorrupt)
		}
		return String(*w.Str), nil
	case "boolean":
		if w.Bool == nil {
			return Value{}, fmt.Errorf("%w: boolean value missing", ErrSnapshotCorrupt)
		}
		return Boolean(*w.Bool), nil
	case "array":
		items := make([]Value, len(w.Array))
		for i, item := range w.Array {
			v, err := fromWire(item)
			if err != nil {
				return Value{}, err
			}
			items[i] = v
		}
		return Value{Kind: KindArray, Array: items}, nil
	default:
		return Value{}, fmt.Errorf("%w: unknown value type %q", ErrSnapshotCorrupt, w.Type)
	}
}
