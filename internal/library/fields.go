package library

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
)

// Fields is an insertion-ordered map of custom field values. The zero
// value is an empty map ready to use.
type Fields struct {
	keys   []string
	values map[string]Value
}

// NewFields builds a Fields from alternating key/value pairs.
func NewFields(pairs ...any) *Fields {
	f := &Fields{}
	for i := 0; i+1 < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			panic(fmt.Sprintf("library.NewFields: key %v is not a string", pairs[i]))
		}
		val, ok := pairs[i+1].(Value)
		if !ok {
			panic(fmt.Sprintf("library.NewFields: value for %q is not a Value", key))
		}
		f.Set(key, val)
	}
	return f
}

// Len returns the number of keys.
func (f *Fields) Len() int {
	if f == nil {
		return 0
	}
	return len(f.keys)
}

// Keys returns the keys in insertion order.
func (f *Fields) Keys() []string {
	if f == nil {
		return nil
	}
	return slices.Clone(f.keys)
}

// Get returns the value for key; missing keys yield the null Value.
func (f *Fields) Get(key string) (Value, bool) {
	if f == nil || f.values == nil {
		return Value{}, false
	}
	v, ok := f.values[key]
	return v, ok
}

// Set stores v under key, appending key if it is new.
func (f *Fields) Set(key string, v Value) {
	if f.values == nil {
		f.values = make(map[string]Value)
	}
	if _, ok := f.values[key]; !ok {
		f.keys = append(f.keys, key)
	}
	f.values[key] = v
}

// Delete removes key if present.
func (f *Fields) Delete(key string) {
	if f == nil || f.values == nil {
		return
	}
	if _, ok := f.values[key]; !ok {
		return
	}
	delete(f.values, key)
	f.keys = slices.DeleteFunc(f.keys, func(k string) bool { return k == key })
}

// Clone returns a deep copy.
func (f *Fields) Clone() *Fields {
	out := &Fields{}
	if f == nil {
		return out
	}
	for _, k := range f.keys {
		out.Set(k, f.values[k].Clone())
	}
	return out
}

// Equal reports whether both maps hold equal values under the same keys.
// Key order is ignored.
func (f *Fields) Equal(o *Fields) bool {
	if f.Len() != o.Len() {
		return false
	}
	for _, k := range f.Keys() {
		ov, ok := o.Get(k)
		if !ok {
			return false
		}
		fv, _ := f.Get(k)
		if !fv.Equal(ov) {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the map as a JSON object in key order.
func (f Fields) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range f.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := f.values[k].MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("encoding %q: %w", k, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, keeping member order. A JSON null
// leaves the map empty.
func (f *Fields) UnmarshalJSON(data []byte) error {
	*f = Fields{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("custom fields must be a JSON object, got %v", tok)
	}
	return decodeObject(dec, f)
}
