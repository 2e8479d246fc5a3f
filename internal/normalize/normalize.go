package normalize

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/denosys/InferenceMAX/internal/canon"
	"github.com/denosys/InferenceMAX/internal/coerce"
	"github.com/denosys/InferenceMAX/internal/model"
)

// Alias populates Canonical from the first present Sources field when the
// canonical field is absent.
type Alias struct {
	Canonical string
	Sources   []string
}

// DefaultAliases is the built-in alias table.
func DefaultAliases() []Alias {
	return []Alias{
		{Canonical: model.FieldHardware, Sources: []string{"hardware", "device", "platform", "gpu"}},
		{Canonical: model.FieldParallelism, Sources: []string{"tp", "tensor_parallel", "tp_size"}},
		{Canonical: model.FieldConcurrency, Sources: []string{"conc", "max_concurrency"}},
		{Canonical: model.FieldPrecision, Sources: []string{"dtype", "quantization"}},
	}
}

// modelSources are checked in order for the raw model string.
var modelSources = []string{model.FieldModelRaw, model.FieldModel, "model_name"}

// Fields the canonicalizer owns; never numeric-coerced.
var protected = map[string]bool{
	model.FieldModel:        true,
	"model_name":            true,
	model.FieldModelRaw:     true,
	model.FieldModelID:      true,
	model.FieldModelDisplay: true,
}

// Options configures a Normalizer.
type Options struct {
	Aliases          []Alias
	DefaultPrecision string
	ArraySeparator   string
	Canonicalizer    *canon.Canonicalizer
}

// Normalizer builds normalized records. It never mutates its input.
type Normalizer struct {
	opts Options
}

// New returns a Normalizer. Nil aliases, an empty separator and a nil
// canonicalizer fall back to the defaults.
func New(opts Options) *Normalizer {
	if opts.Aliases == nil {
		opts.Aliases = DefaultAliases()
	}
	if opts.ArraySeparator == "" {
		opts.ArraySeparator = ","
	}
	if opts.Canonicalizer == nil {
		opts.Canonicalizer = canon.Default()
	}
	return &Normalizer{opts: opts}
}

// Canonicalizer returns the canonicalizer shared with other components.
func (n *Normalizer) Canonicalizer() *canon.Canonicalizer {
	return n.opts.Canonicalizer
}

// Normalize extracts and normalizes every record in raw.
func (n *Normalizer) Normalize(raw any) []model.Record {
	recs := ExtractRecords(raw)
	out := make([]model.Record, len(recs))
	for i, r := range recs {
		out[i] = n.NormalizeRecord(r)
	}
	return out
}

// NormalizeRecord returns a new flat record with aliases filled, hardware
// lower-cased, precision defaulted, numeric strings coerced and model
// fields canonicalized. Normalizing its output again changes nothing.
func (n *Normalizer) NormalizeRecord(r model.Record) model.Record {
	out := make(model.Record, len(r)+4)
	flatten("", r, out, n.opts.ArraySeparator)

	for _, a := range n.opts.Aliases {
		if out.Has(a.Canonical) {
			continue
		}
		for _, src := range a.Sources {
			if out.Has(src) {
				out[a.Canonical] = out[src]
				break
			}
		}
	}

	if hw, ok := out[model.FieldHardware].(string); ok {
		out[model.FieldHardware] = strings.ToLower(hw)
	}
	if !out.Has(model.FieldPrecision) && n.opts.DefaultPrecision != "" {
		out[model.FieldPrecision] = n.opts.DefaultPrecision
	}

	for k, v := range out {
		if protected[k] {
			continue
		}
		out[k] = coerce.Coerce(v)
	}

	n.canonicalizeModel(out)
	return out
}

func (n *Normalizer) canonicalizeModel(r model.Record) {
	var raw string
	for _, key := range modelSources {
		if s, ok := r.String(key); ok {
			raw = s
			break
		}
	}
	if raw == "" {
		return
	}
	id, display := n.opts.Canonicalizer.Canonicalize(raw)
	r[model.FieldModelRaw] = raw
	r[model.FieldModelID] = id
	r[model.FieldModelDisplay] = display
}

// flatten copies src into dst, turning nested objects into dotted keys and
// arrays into scalar strings. Keys are visited in sorted order so that
// collisions resolve the same way every time.
func flatten(prefix string, src map[string]any, dst model.Record, sep string) {
	keys := make([]string, 0, len(src))
	for k := range src {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch v := src[k].(type) {
		case map[string]any:
			flatten(key, v, dst, sep)
		case model.Record:
			flatten(key, v, dst, sep)
		case []any:
			dst[key] = flattenArray(v, sep)
		default:
			dst[key] = v
		}
	}
}

// flattenArray joins scalar elements with sep. Arrays holding nested
// values are JSON-encoded instead.
func flattenArray(arr []any, sep string) any {
	parts := make([]string, 0, len(arr))
	for _, el := range arr {
		switch t := el.(type) {
		case nil:
			continue
		case string:
			parts = append(parts, t)
		case json.Number:
			parts = append(parts, t.String())
		case bool:
			parts = append(parts, strconv.FormatBool(t))
		case int64:
			parts = append(parts, strconv.FormatInt(t, 10))
		case float64:
			parts = append(parts, strconv.FormatFloat(t, 'f', -1, 64))
		default:
			b, err := json.Marshal(arr)
			if err != nil {
				return ""
			}
			return string(b)
		}
	}
	return strings.Join(parts, sep)
}
