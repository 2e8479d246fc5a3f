package series

import (
	"sort"

	"github.com/denosys/InferenceMAX/internal/coerce"
	"github.com/denosys/InferenceMAX/internal/model"
)

// PreferredMetrics are tried, in order, before any other numeric field.
var PreferredMetrics = []string{"value", "metric", "score"}

// PickMetric returns the y field to plot when none was chosen: the first
// preferred metric that is numeric, else the first numeric field by name.
// A field is numeric when it is present and every non-null value is a
// number. Fields in exclude are skipped.
func PickMetric(records []model.Record, exclude ...string) string {
	skip := make(map[string]bool, len(exclude))
	for _, f := range exclude {
		skip[f] = true
	}

	numeric := make(map[string]bool)
	for _, r := range records {
		for k, v := range r {
			if v == nil {
				continue
			}
			isNum := coerce.Classify(v).IsNumeric()
			if prev, seen := numeric[k]; seen {
				numeric[k] = prev && isNum
			} else {
				numeric[k] = isNum
			}
		}
	}

	for _, p := range PreferredMetrics {
		if numeric[p] {
			return p
		}
	}

	names := make([]string, 0, len(numeric))
	for k, ok := range numeric {
		if ok && !skip[k] {
			names = append(names, k)
		}
	}
	if len(names) == 0 {
		return ""
	}
	sort.Strings(names)
	return names[0]
}
