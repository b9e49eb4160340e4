package reference

import (
	"encoding/json"
	"fmt"
)

// EntityBag holds the extracted values for each Field, in extraction order.
// The zero value is an empty bag ready to use.
type EntityBag struct {
	values [numFields][]string
}

// Get returns the values recorded for f. The returned slice must not be modified.
func (b *EntityBag) Get(f Field) []string {
	if !f.Valid() {
		return nil
	}
	return b.values[f]
}

// First returns the first value for f, or "" if there is none.
func (b *EntityBag) First(f Field) string {
	vals := b.Get(f)
	if len(vals) == 0 {
		return ""
	}
	return vals[0]
}

// Add appends values to f.
func (b *EntityBag) Add(f Field, vals ...string) {
	if !f.Valid() || len(vals) == 0 {
		return
	}
	b.values[f] = append(b.values[f], vals...)
}

// Set replaces the values for f. Setting no values clears the field.
func (b *EntityBag) Set(f Field, vals ...string) {
	if !f.Valid() {
		return
	}
	if len(vals) == 0 {
		b.values[f] = nil
		return
	}
	b.values[f] = append([]string(nil), vals...)
}

// Clear removes all values for f.
func (b *EntityBag) Clear(f Field) {
	b.Set(f)
}

// Len returns the number of values recorded for f.
func (b *EntityBag) Len(f Field) int {
	return len(b.Get(f))
}

// IsEmpty reports whether no field has any value.
func (b *EntityBag) IsEmpty() bool {
	for _, vals := range b.values {
		if len(vals) > 0 {
			return false
		}
	}
	return true
}

// Fields returns the fields that have at least one value, in canonical order.
func (b *EntityBag) Fields() []Field {
	var fields []Field
	for i, vals := range b.values {
		if len(vals) > 0 {
			fields = append(fields, Field(i))
		}
	}
	return fields
}

// Clone returns a deep copy of the bag.
func (b *EntityBag) Clone() EntityBag {
	var out EntityBag
	for i, vals := range b.values {
		if len(vals) > 0 {
			out.values[i] = append([]string(nil), vals...)
		}
	}
	return out
}

// MarshalJSON encodes the bag as an object keyed by field name.
// Empty fields are omitted.
func (b EntityBag) MarshalJSON() ([]byte, error) {
	m := make(map[string][]string)
	for i, vals := range b.values {
		if len(vals) > 0 {
			m[fieldNames[i]] = vals
		}
	}
	return json.Marshal(m)
}

// UnmarshalJSON decodes an object keyed by field name. Unknown keys are rejected.
func (b *EntityBag) UnmarshalJSON(data []byte) error {
	var m map[string][]string
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	var out EntityBag
	for k, vals := range m {
		f, err := ParseField(k)
		if err != nil {
			return fmt.Errorf("decoding entity bag: %w", err)
		}
		out.Add(f, vals...)
	}
	*b = out
	return nil
}
