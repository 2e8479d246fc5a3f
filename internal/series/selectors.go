package series

import (
	"sort"

	"github.com/denosys/InferenceMAX/internal/model"
)

// Selectors holds the distinct values of the categorical filters.
type Selectors struct {
	Hardware    []string `json:"hw"`
	Precision   []string `json:"precision"`
	Parallelism []string `json:"parallelism"`
	Models      []string `json:"model_display"`
}

// CollectSelectors gathers selector values from records, which may be
// eager records or deferred samples. Parallelism is ordered the way
// buckets are; the rest are sorted lexically.
func CollectSelectors(records []model.Record) Selectors {
	hw := map[string]bool{}
	prec := map[string]bool{}
	tp := map[string]bool{}
	models := map[string]bool{}
	for _, r := range records {
		add(hw, Format(r[model.FieldHardware]))
		add(prec, Format(r[model.FieldPrecision]))
		add(tp, Format(r[model.FieldParallelism]))
		add(models, Format(r[model.FieldModelDisplay]))
	}

	out := Selectors{
		Hardware:    keys(hw),
		Precision:   keys(prec),
		Parallelism: keys(tp),
		Models:      keys(models),
	}
	sort.Strings(out.Hardware)
	sort.Strings(out.Precision)
	sort.Strings(out.Models)
	sort.Slice(out.Parallelism, func(i, j int) bool {
		return lessParallelism(out.Parallelism[i], out.Parallelism[j])
	})
	return out
}

func add(set map[string]bool, v string) {
	if v != "" {
		set[v] = true
	}
}

func keys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}
