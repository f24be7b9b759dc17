// Package envelope serializes persona field-sets into the canonical byte form
// that gets encrypted and published. The shape is a flat JSON object keyed by
// field name; requested fields with no value serialize as "" so the decrypt
// side always sees a stable shape.
package envelope

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformed reports bytes that do not decode as a persona envelope. Callers
// treat it as non-fatal and degrade to an empty field-set.
var ErrMalformed = errors.New("malformed envelope")

// Field names the disclosable persona attributes.
type Field string

const (
	FieldName    Field = "name"
	FieldEmail   Field = "email"
	FieldCity    Field = "city"
	FieldCountry Field = "country"
)

// AllFields lists every persona field, in canonical order.
var AllFields = []Field{FieldName, FieldEmail, FieldCity, FieldCountry}

// Known reports whether f is one of the enumerated persona fields.
func Known(f Field) bool {
	for _, k := range AllFields {
		if k == f {
			return true
		}
	}
	return false
}

// Build serializes the requested fields into the canonical envelope bytes.
// Every requested field appears in the output; lookup misses become "".
// encoding/json sorts map keys, which keeps the serialization deterministic.
func Build(fields []Field, lookup func(Field) string) ([]byte, error) {
	data := make(map[Field]string, len(fields))
	for _, f := range fields {
		data[f] = lookup(f)
	}
	out, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("build envelope: %w", err)
	}
	return out, nil
}

// Parse decodes envelope bytes back into a field mapping.
func Parse(raw []byte) (map[Field]string, error) {
	var data map[Field]string
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return data, nil
}
