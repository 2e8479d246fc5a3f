package model

// Canonical field names produced by the normalizer.
const (
	FieldHardware     = "hw"
	FieldPrecision    = "precision"
	FieldParallelism  = "parallelism"
	FieldConcurrency  = "concurrency"
	FieldModel        = "model"
	FieldModelRaw     = "model_raw"
	FieldModelID      = "model_id"
	FieldModelDisplay = "model_display"
	FieldISL          = "isl"
	FieldOSL          = "osl"
	FieldFilename     = "filename"
)

// ExpectedFields lists the fields every benchmark record should carry.
// Diagnostics report datasets where any of them is missing.
var ExpectedFields = []string{FieldHardware, FieldPrecision, FieldParallelism, FieldConcurrency}

// Record is one flat benchmark observation: field name to scalar value
// (nil, bool, int64, float64 or string once normalized).
type Record map[string]any

// Clone returns a copy of r. Values are scalars, so the copy shares nothing.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// String returns the value of key when it is a non-empty string.
func (r Record) String(key string) (string, bool) {
	s, ok := r[key].(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// Has reports whether key is present with a non-nil value.
func (r Record) Has(key string) bool {
	v, ok := r[key]
	return ok && v != nil
}
