package library

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ValueType identifies which variant a Value holds.
type ValueType int

// Value variants.
const (
	TypeNull ValueType = iota
	TypeString
	TypeInt
	TypeFloat
	TypeBool
	TypeList
	TypeMap
)

// String returns the variant name.
func (t ValueType) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeInt:
		return "int"
	case TypeFloat:
		return "float"
	case TypeBool:
		return "bool"
	case TypeList:
		return "list"
	case TypeMap:
		return "map"
	default:
		return "null"
	}
}

// Value is a custom field value. The zero Value is null.
type Value struct {
	typ  ValueType
	s    string
	i    int64
	f    float64
	b    bool
	list []Value
	m    *Fields
}

// NullValue returns the null Value.
func NullValue() Value { return Value{} }

// StringValue wraps s.
func StringValue(s string) Value { return Value{typ: TypeString, s: s} }

// IntValue wraps i.
func IntValue(i int64) Value { return Value{typ: TypeInt, i: i} }

// FloatValue wraps f.
func FloatValue(f float64) Value { return Value{typ: TypeFloat, f: f} }

// BoolValue wraps b.
func BoolValue(b bool) Value { return Value{typ: TypeBool, b: b} }

// ListValue wraps the given items.
func ListValue(items ...Value) Value { return Value{typ: TypeList, list: items} }

// MapValue wraps a nested field map. A nil map is stored as an empty one.
func MapValue(m *Fields) Value {
	if m == nil {
		m = &Fields{}
	}
	return Value{typ: TypeMap, m: m}
}

// Type reports the variant held by v.
func (v Value) Type() ValueType { return v.typ }

// Str returns the string payload and whether v is a string.
func (v Value) Str() (string, bool) { return v.s, v.typ == TypeString }

// Int returns the integer payload and whether v is an int.
func (v Value) Int() (int64, bool) { return v.i, v.typ == TypeInt }

// Float returns the float payload and whether v is a float.
func (v Value) Float() (float64, bool) { return v.f, v.typ == TypeFloat }

// Bool returns the boolean payload and whether v is a bool.
func (v Value) Bool() (bool, bool) { return v.b, v.typ == TypeBool }

// List returns the list payload and whether v is a list.
func (v Value) List() ([]Value, bool) { return v.list, v.typ == TypeList }

// Map returns the nested map payload and whether v is a map.
func (v Value) Map() (*Fields, bool) { return v.m, v.typ == TypeMap }

// IsZero reports whether v is falsy: null, "", 0, false or an empty collection.
// Merging never copies a zero value over anything.
func (v Value) IsZero() bool {
	switch v.typ {
	case TypeString:
		return v.s == ""
	case TypeInt:
		return v.i == 0
	case TypeFloat:
		return v.f == 0
	case TypeBool:
		return !v.b
	case TypeList:
		return len(v.list) == 0
	case TypeMap:
		return v.m == nil || v.m.Len() == 0
	default:
		return true
	}
}

// Equal reports deep equality. Variants never compare equal across types.
func (v Value) Equal(o Value) bool {
	if v.typ != o.typ {
		return false
	}
	switch v.typ {
	case TypeString:
		return v.s == o.s
	case TypeInt:
		return v.i == o.i
	case TypeFloat:
		return v.f == o.f
	case TypeBool:
		return v.b == o.b
	case TypeList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	case TypeMap:
		return v.m.Equal(o.m)
	default:
		return true
	}
}

// Clone returns a deep copy of v.
func (v Value) Clone() Value {
	switch v.typ {
	case TypeList:
		items := make([]Value, len(v.list))
		for i, item := range v.list {
			items[i] = item.Clone()
		}
		return Value{typ: TypeList, list: items}
	case TypeMap:
		return Value{typ: TypeMap, m: v.m.Clone()}
	default:
		return v
	}
}

// String renders v for display.
func (v Value) String() string {
	switch v.typ {
	case TypeString:
		return v.s
	case TypeInt:
		return strconv.FormatInt(v.i, 10)
	case TypeFloat:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	case TypeBool:
		return strconv.FormatBool(v.b)
	case TypeList:
		parts := make([]string, len(v.list))
		for i, item := range v.list {
			parts[i] = item.String()
		}
		return strings.Join(parts, ", ")
	case TypeMap:
		data, _ := json.Marshal(v.m)
		return string(data)
	default:
		return ""
	}
}

// MarshalJSON encodes v as the matching JSON value.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.typ {
	case TypeString:
		return json.Marshal(v.s)
	case TypeInt:
		return json.Marshal(v.i)
	case TypeFloat:
		return json.Marshal(v.f)
	case TypeBool:
		return json.Marshal(v.b)
	case TypeList:
		if v.list == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.list)
	case TypeMap:
		return json.Marshal(v.m)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON decodes any JSON value. Integral numbers become ints,
// other numbers floats, and objects keep their key order.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	decoded, err := decodeValue(dec)
	if err != nil {
		return err
	}
	*v = decoded
	return nil
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, err
	}
	return decodeToken(dec, tok)
}

func decodeToken(dec *json.Decoder, tok json.Token) (Value, error) {
	switch t := tok.(type) {
	case nil:
		return NullValue(), nil
	case string:
		return StringValue(t), nil
	case bool:
		return BoolValue(t), nil
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return IntValue(i), nil
		}
		f, err := t.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("decoding number %q: %w", t.String(), err)
		}
		return FloatValue(f), nil
	case json.Delim:
		switch t {
		case '[':
			items := []Value{}
			for dec.More() {
				item, err := decodeValue(dec)
				if err != nil {
					return Value{}, err
				}
				items = append(items, item)
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return ListValue(items...), nil
		case '{':
			m := &Fields{}
			if err := decodeObject(dec, m); err != nil {
				return Value{}, err
			}
			return MapValue(m), nil
		}
	}
	return Value{}, fmt.Errorf("unexpected JSON token %v", tok)
}

// decodeObject reads object members until the closing brace. The opening
// brace must already have been consumed.
func decodeObject(dec *json.Decoder, m *Fields) error {
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("expected object key, got %v", keyTok)
		}
		val, err := decodeValue(dec)
		if err != nil {
			return fmt.Errorf("decoding %q: %w", key, err)
		}
		m.Set(key, val)
	}
	_, err := dec.Token()
	if err == io.EOF {
		return fmt.Errorf("unterminated object")
	}
	return err
}
