// Package coerce classifies raw JSON values and turns numeric strings into
// numbers. Every function here is total: the worst case returns the input.
package coerce

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/denosys/InferenceMAX/internal/model"
)

// Classify returns the type tag of v by structural inspection.
func Classify(v any) model.FieldType {
	switch t := v.(type) {
	case nil:
		return model.TypeNull
	case bool:
		return model.TypeBool
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return model.TypeInt
	case float32, float64:
		return model.TypeFloat
	case json.Number:
		if _, err := t.Int64(); err == nil {
			return model.TypeInt
		}
		return model.TypeFloat
	case string:
		return model.TypeString
	case []any:
		return model.TypeArray
	case map[string]any, model.Record:
		return model.TypeObject
	default:
		return model.TypeString
	}
}

// CoerceNumericString parses s as an integer, then as a float when s has a
// decimal point or exponent marker. It returns s unchanged otherwise.
func CoerceNumericString(s string) any {
	if s == "" {
		return s
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if !strings.ContainsAny(s, ".eE") {
		return s
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return s
	}
	return f
}

// Coerce normalizes a scalar: strings go through CoerceNumericString and
// json.Number becomes int64 or float64. Other values pass through.
func Coerce(v any) any {
	switch t := v.(type) {
	case string:
		return CoerceNumericString(t)
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case int:
		return int64(t)
	case int32:
		return int64(t)
	case float32:
		return float64(t)
	default:
		return v
	}
}

// ToFloat returns the numeric view of v. Numeric strings count as numbers.
func ToFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int8:
		return float64(t), true
	case int16:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint:
		return float64(t), true
	case uint8:
		return float64(t), true
	case uint16:
		return float64(t), true
	case uint32:
		return float64(t), true
	case uint64:
		return float64(t), true
	case float32:
		return float64(t), true
	case float64:
		return t, true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
