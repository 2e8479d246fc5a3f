package series

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/denosys/InferenceMAX/internal/model"
)

func TestPickMetric(t *testing.T) {
	tests := []struct {
		name    string
		records []model.Record
		exclude []string
		want    string
	}{
		{
			name:    "preferred order",
			records: []model.Record{{"score": 1.0, "metric": int64(2), "a": 1.0}},
			want:    "metric",
		},
		{
			name:    "preferred but not numeric",
			records: []model.Record{{"value": "n/a", "b": 1.0}},
			want:    "b",
		},
		{
			name:    "mixed across records is not numeric",
			records: []model.Record{{"value": 1.0, "z": 1.0}, {"value": "x"}},
			want:    "z",
		},
		{
			name:    "nulls are ignored",
			records: []model.Record{{"value": nil}, {"value": 3.0}},
			want:    "value",
		},
		{
			name:    "exclusions",
			records: []model.Record{{"concurrency": int64(1), "tput": 2.0}},
			exclude: []string{"concurrency"},
			want:    "tput",
		},
		{
			name:    "none",
			records: []model.Record{{"hw": "h100"}},
			want:    "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PickMetric(tt.records, tt.exclude...))
		})
	}
}
