package schema

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/denosys/InferenceMAX/internal/model"
)

func TestInfer_TypesAndStats(t *testing.T) {
	recs := []model.Record{
		{"hw": "h100", "concurrency": int64(4), "tput": 1.5},
		{"hw": "b200", "concurrency": int64(64), "tput": 0.25},
	}

	s := Infer(recs, InferOptions{})

	assert.Equal(t, []string{"concurrency", "hw", "tput"}, s.Fields())

	conc, ok := s.Field("concurrency")
	require.True(t, ok)
	assert.Equal(t, model.TypeInt, conc.Type)
	require.NotNil(t, conc.NumericStats)
	assert.Equal(t, 4.0, conc.NumericStats.Min)
	assert.Equal(t, 64.0, conc.NumericStats.Max)
	assert.Empty(t, conc.Examples)

	hw, _ := s.Field("hw")
	assert.Equal(t, model.TypeString, hw.Type)
	assert.Equal(t, []any{"h100", "b200"}, hw.Examples)
	assert.Nil(t, hw.NumericStats)

	tput, _ := s.Field("tput")
	assert.Equal(t, model.TypeFloat, tput.Type)
	assert.Equal(t, 0.25, tput.NumericStats.Min)
	assert.Equal(t, 1.5, tput.NumericStats.Max)
}

func TestInfer_FieldOrderIsFirstSeen(t *testing.T) {
	recs := []model.Record{
		{"b": "x"},
		{"a": "y", "b": "z"},
		{"c": true},
	}
	s := Infer(recs, InferOptions{})
	assert.Equal(t, []string{"b", "a", "c"}, s.Fields())
}

func TestInfer_MixedIsOneWay(t *testing.T) {
	tests := []struct {
		name   string
		values []any
		want   model.FieldType
	}{
		{"int then string", []any{int64(1), "a"}, model.TypeMixed},
		{"mixed then int stays mixed", []any{int64(1), "a", int64(2)}, model.TypeMixed},
		{"int then float", []any{int64(1), 2.5}, model.TypeMixed},
		{"bool is not int", []any{true, int64(1)}, model.TypeMixed},
		{"null then string", []any{nil, "a"}, model.TypeMixed},
		{"all int", []any{int64(1), int64(2)}, model.TypeInt},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuilder(0)
			for _, v := range tt.values {
				b.Add(model.Record{"f": v})
			}
			fd, ok := b.Schema().Field("f")
			require.True(t, ok)
			assert.Equal(t, tt.want, fd.Type)
		})
	}
}

func TestInfer_MixedKeepsStatsFromNumericValues(t *testing.T) {
	b := NewBuilder(0)
	b.Add(model.Record{"f": int64(3)})
	b.Add(model.Record{"f": "n/a"})
	b.Add(model.Record{"f": int64(9)})

	fd, _ := b.Schema().Field("f")
	assert.Equal(t, model.TypeMixed, fd.Type)
	require.NotNil(t, fd.NumericStats)
	assert.Equal(t, 3.0, fd.NumericStats.Min)
	assert.Equal(t, 9.0, fd.NumericStats.Max)
	assert.Equal(t, []any{"n/a"}, fd.Examples)
}

func TestInfer_ExamplesCappedAndDeduplicated(t *testing.T) {
	var recs []model.Record
	for i := 0; i < 50; i++ {
		recs = append(recs, model.Record{"name": fmt.Sprintf("v%d", i%30)})
	}

	s := Infer(recs, InferOptions{ExampleCap: 5})
	fd, _ := s.Field("name")
	assert.Equal(t, []any{"v0", "v1", "v2", "v3", "v4"}, fd.Examples)

	s = Infer(recs, InferOptions{})
	fd, _ = s.Field("name")
	assert.Len(t, fd.Examples, DefaultExampleCap)
}

func TestInfer_ShapeExamples(t *testing.T) {
	recs := []model.Record{
		{"tags": []any{"a", "b"}, "cfg": map[string]any{"z": 1, "a": 2}},
		{"tags": []any{"c", "d"}, "cfg": map[string]any{"a": 3, "z": 4}},
		{"tags": []any{"e"}},
	}
	s := Infer(recs, InferOptions{})

	tags, _ := s.Field("tags")
	assert.Equal(t, model.TypeArray, tags.Type)
	assert.Equal(t, []any{
		map[string]any{"len": 2},
		map[string]any{"len": 1},
	}, tags.Examples)

	cfg, _ := s.Field("cfg")
	assert.Equal(t, model.TypeObject, cfg.Type)
	assert.Equal(t, []any{map[string]any{"keys": []string{"a", "z"}}}, cfg.Examples)
}

func TestInfer_EmptyInput(t *testing.T) {
	s := Infer(nil, InferOptions{})
	assert.Equal(t, 0, s.Len())

	b, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(b))
}

func TestInfer_JSONNumberValues(t *testing.T) {
	recs := []model.Record{
		{"n": json.Number("7")},
		{"n": json.Number("2")},
	}
	s := Infer(recs, InferOptions{})
	fd, _ := s.Field("n")
	assert.Equal(t, model.TypeInt, fd.Type)
	assert.Equal(t, 2.0, fd.NumericStats.Min)
	assert.Equal(t, 7.0, fd.NumericStats.Max)
}
