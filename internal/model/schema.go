package model

import (
	"bytes"
	"encoding/json"

	"github.com/rotisserie/eris"
)

// FieldType is the inferred type tag of a schema field.
type FieldType string

const (
	TypeNull   FieldType = "null"
	TypeBool   FieldType = "bool"
	TypeInt    FieldType = "int"
	TypeFloat  FieldType = "float"
	TypeString FieldType = "string"
	TypeArray  FieldType = "array"
	TypeObject FieldType = "object"
	TypeMixed  FieldType = "mixed"
)

// IsNumeric reports whether values of this type update numeric stats.
func (t FieldType) IsNumeric() bool {
	return t == TypeInt || t == TypeFloat
}

// NumericStats is the observed numeric range of a field.
type NumericStats struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Observe widens the range to include v.
func (n *NumericStats) Observe(v float64) {
	if v < n.Min {
		n.Min = v
	}
	if v > n.Max {
		n.Max = v
	}
}

// FieldDescriptor summarizes one field of a dataset.
type FieldDescriptor struct {
	Type         FieldType     `json:"type"`
	Examples     []any         `json:"examples,omitempty"`
	NumericStats *NumericStats `json:"numeric_stats,omitempty"`
}

// Schema maps field names to descriptors, keeping first-seen field order.
type Schema struct {
	order  []string
	fields map[string]*FieldDescriptor
}

// NewSchema returns an empty schema.
func NewSchema() *Schema {
	return &Schema{fields: make(map[string]*FieldDescriptor)}
}

// Fields returns the field names in first-seen order.
func (s *Schema) Fields() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Field returns the descriptor for name.
func (s *Schema) Field(name string) (*FieldDescriptor, bool) {
	fd, ok := s.fields[name]
	return fd, ok
}

// Set stores fd under name. New names are appended to the field order.
func (s *Schema) Set(name string, fd *FieldDescriptor) {
	if _, ok := s.fields[name]; !ok {
		s.order = append(s.order, name)
	}
	s.fields[name] = fd
}

// Len returns the number of fields.
func (s *Schema) Len() int {
	return len(s.order)
}

// MarshalJSON writes the schema as an object in field order.
func (s *Schema) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range s.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, eris.Wrapf(err, "schema: marshal field name %q", name)
		}
		val, err := json.Marshal(s.fields[name])
		if err != nil {
			return nil, eris.Wrapf(err, "schema: marshal field %q", name)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object written by MarshalJSON, keeping key order.
func (s *Schema) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return eris.Wrap(err, "schema: read opening token")
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return eris.Errorf("schema: expected '{', got %v", tok)
	}

	s.order = nil
	s.fields = make(map[string]*FieldDescriptor)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return eris.Wrap(err, "schema: read field name")
		}
		name, ok := keyTok.(string)
		if !ok {
			return eris.Errorf("schema: field name not a string (got %T)", keyTok)
		}
		var fd FieldDescriptor
		if err := dec.Decode(&fd); err != nil {
			return eris.Wrapf(err, "schema: decode field %q", name)
		}
		s.Set(name, &fd)
	}
	if _, err := dec.Token(); err != nil {
		return eris.Wrap(err, "schema: read closing token")
	}
	return nil
}
