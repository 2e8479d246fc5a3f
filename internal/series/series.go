// Package series turns normalized records into chart-ready point series
// grouped by hardware and parallelism.
package series

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/denosys/InferenceMAX/internal/coerce"
	"github.com/denosys/InferenceMAX/internal/model"
)

// All disables a categorical filter.
const All = "all"

// Unknown labels records without a hardware value.
const Unknown = "unknown"

const (
	ModeMarkers      = "markers"
	ModeLinesMarkers = "lines+markers"
)

// Query selects the axes, filters and grouping of a Build.
type Query struct {
	XField string
	// YField empty picks a metric with PickMetric.
	YField string
	// SortField defaults to concurrency. Records without it are dropped.
	SortField string

	// HardwareOnly groups by hardware alone instead of hardware and
	// parallelism.
	HardwareOnly bool

	// Precision and Parallelism are exact-match filters; "" or All
	// disables them.
	Precision   string
	Parallelism string

	// Connect draws lines between the points of a series.
	Connect bool
}

// Point is one plotted observation. X and Y are numbers when parseable and
// the original values otherwise.
type Point struct {
	X    any    `json:"x"`
	Y    any    `json:"y"`
	Text string `json:"text"`
}

// Series is one bucket of points.
type Series struct {
	Name        string  `json:"name"`
	Mode        string  `json:"mode"`
	Hardware    string  `json:"hw"`
	Parallelism string  `json:"parallelism,omitempty"`
	Points      []Point `json:"points"`
}

type bucketKey struct {
	hw, tp string
}

type bucket struct {
	key     bucketKey
	records []model.Record
}

// Build groups records into series. It never modifies records.
func Build(records []model.Record, q Query) []Series {
	if q.SortField == "" {
		q.SortField = model.FieldConcurrency
	}
	if q.XField == "" {
		q.XField = q.SortField
	}
	if q.YField == "" {
		q.YField = PickMetric(records, q.XField, q.SortField, model.FieldParallelism)
		if q.YField == "" {
			return nil
		}
	}

	buckets := make(map[bucketKey]*bucket)
	for _, r := range records {
		if !matches(r, model.FieldPrecision, q.Precision) ||
			!matches(r, model.FieldParallelism, q.Parallelism) {
			continue
		}
		if !r.Has(q.SortField) {
			continue
		}
		key := bucketKey{hw: hardwareOf(r)}
		if !q.HardwareOnly {
			key.tp = Format(r[model.FieldParallelism])
		}
		b, ok := buckets[key]
		if !ok {
			b = &bucket{key: key}
			buckets[key] = b
		}
		b.records = append(b.records, r)
	}

	ordered := make([]*bucket, 0, len(buckets))
	for _, b := range buckets {
		ordered = append(ordered, b)
	}
	sort.Slice(ordered, func(i, j int) bool {
		a, b := ordered[i].key, ordered[j].key
		if a.hw != b.hw {
			return a.hw < b.hw
		}
		return lessParallelism(a.tp, b.tp)
	})

	mode := ModeMarkers
	if q.Connect {
		mode = ModeLinesMarkers
	}

	out := make([]Series, 0, len(ordered))
	for _, b := range ordered {
		sort.SliceStable(b.records, func(i, j int) bool {
			return compare(b.records[i][q.SortField], b.records[j][q.SortField]) < 0
		})
		s := Series{
			Name:        label(b.key),
			Mode:        mode,
			Hardware:    b.key.hw,
			Parallelism: b.key.tp,
			Points:      make([]Point, 0, len(b.records)),
		}
		for _, r := range b.records {
			x, y := axisValue(r[q.XField]), axisValue(r[q.YField])
			s.Points = append(s.Points, Point{
				X:    x,
				Y:    y,
				Text: hoverText(r, x, y),
			})
		}
		out = append(out, s)
	}
	return out
}

func label(k bucketKey) string {
	if k.tp == "" {
		return k.hw
	}
	return k.hw + " tp=" + k.tp
}

func hardwareOf(r model.Record) string {
	if hw := Format(r[model.FieldHardware]); hw != "" {
		return hw
	}
	return Unknown
}

func matches(r model.Record, field, want string) bool {
	if want == "" || strings.EqualFold(want, All) {
		return true
	}
	return Format(r[field]) == want
}

func hoverText(r model.Record, x, y any) string {
	parts := []string{
		"hw=" + hardwareOf(r),
		"tp=" + Format(r[model.FieldParallelism]),
		"conc=" + Format(r[model.FieldConcurrency]),
		"x=" + Format(x),
		"y=" + Format(y),
	}
	return strings.Join(parts, "<br>")
}

// axisValue returns v as a number when it parses as one.
func axisValue(v any) any {
	switch t := v.(type) {
	case string:
		return coerce.CoerceNumericString(t)
	case json.Number:
		return coerce.Coerce(t)
	default:
		return v
	}
}

// compare orders numerically when both values are numbers and lexically
// on their formatted form otherwise.
func compare(a, b any) int {
	fa, okA := coerce.ToFloat(a)
	fb, okB := coerce.ToFloat(b)
	if okA && okB {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(Format(a), Format(b))
}

// lessParallelism puts numeric values first in numeric order, then the
// rest lexically. The empty value sorts first among the non-numeric ones.
func lessParallelism(a, b string) bool {
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	switch {
	case errA == nil && errB == nil:
		return fa < fb
	case errA == nil:
		return true
	case errB == nil:
		return false
	default:
		return a < b
	}
}

// Format renders a scalar the way filters and labels compare it.
func Format(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case json.Number:
		return t.String()
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
