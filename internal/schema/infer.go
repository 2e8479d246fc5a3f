// Package schema infers compact per-field schemas for record sets and
// deduplicates structurally identical schemas into a pool.
package schema

import (
	"encoding/json"
	"sort"

	"github.com/denosys/InferenceMAX/internal/coerce"
	"github.com/denosys/InferenceMAX/internal/model"
)

// DefaultExampleCap bounds the example set kept per field.
const DefaultExampleCap = 20

// Builder accumulates a schema one record at a time.
type Builder struct {
	exampleCap int
	schema     *model.Schema
	seen       map[string]map[string]bool
}

// NewBuilder returns an empty Builder. A non-positive cap uses
// DefaultExampleCap.
func NewBuilder(exampleCap int) *Builder {
	if exampleCap <= 0 {
		exampleCap = DefaultExampleCap
	}
	return &Builder{
		exampleCap: exampleCap,
		schema:     model.NewSchema(),
		seen:       make(map[string]map[string]bool),
	}
}

// InferOptions tunes Infer.
type InferOptions struct {
	// ExampleCap bounds the examples kept per field; zero means
	// DefaultExampleCap.
	ExampleCap int
}

// Infer builds the schema of records.
func Infer(records []model.Record, opts InferOptions) *model.Schema {
	b := NewBuilder(opts.ExampleCap)
	for _, r := range records {
		b.Add(r)
	}
	return b.Schema()
}

// Add folds one record into the schema. Fields new to the schema are
// appended in sorted order within the record.
func (b *Builder) Add(r model.Record) {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.observe(k, r[k])
	}
}

// Schema returns the schema built so far.
func (b *Builder) Schema() *model.Schema {
	return b.schema
}

func (b *Builder) observe(field string, v any) {
	t := coerce.Classify(v)

	fd, ok := b.schema.Field(field)
	if !ok {
		fd = &model.FieldDescriptor{Type: t}
		b.schema.Set(field, fd)
		b.seen[field] = make(map[string]bool)
	} else if fd.Type != t && fd.Type != model.TypeMixed {
		fd.Type = model.TypeMixed
	}

	if t.IsNumeric() {
		if f, ok := coerce.ToFloat(v); ok {
			if fd.NumericStats == nil {
				fd.NumericStats = &model.NumericStats{Min: f, Max: f}
			} else {
				fd.NumericStats.Observe(f)
			}
		}
		return
	}

	ex, ok := example(t, v)
	if !ok {
		return
	}
	key, err := json.Marshal(ex)
	if err != nil {
		return
	}
	seen := b.seen[field]
	if seen[string(key)] || len(fd.Examples) >= b.exampleCap {
		return
	}
	seen[string(key)] = true
	fd.Examples = append(fd.Examples, ex)
}

// example returns the discrete example recorded for v, if any. Arrays and
// objects are reduced to a shape signature.
func example(t model.FieldType, v any) (any, bool) {
	switch t {
	case model.TypeString, model.TypeBool:
		return v, true
	case model.TypeArray:
		arr, _ := v.([]any)
		return map[string]any{"len": len(arr)}, true
	case model.TypeObject:
		var keys []string
		switch m := v.(type) {
		case map[string]any:
			keys = sortedKeys(m)
		case model.Record:
			keys = sortedKeys(m)
		}
		if keys == nil {
			keys = []string{}
		}
		return map[string]any{"keys": keys}, true
	default:
		return nil, false
	}
}

func sortedKeys[M ~map[string]any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
