package report

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/denosys/InferenceMAX/internal/model"
)

func sampleDiagnostics() *Diagnostics {
	return &Diagnostics{
		GeneratedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		InputDir:    "data_zips",
		Archives:    []string{"a.zip", "bad.zip"},
		BadArchives: []string{"bad.zip"},
		Datasets: []DatasetDiag{
			{Filename: "a__x.json", Origin: "a.zip!x.json", Records: 3, SchemaID: "s1", Tier: model.TierEager},
			{Filename: "a__y.json", Origin: "a.zip!y.json", Records: 1200, SchemaID: "s2", Tier: model.TierDeferred,
				Missing: []string{"parallelism", "concurrency"}},
		},
		Failures: []Failure{{Filename: "a__z.json", Origin: "a.zip!z.json", Err: "normalize: parse failure"}},
		Sample:   model.Record{"hw": "h100", "concurrency": int64(4)},
	}
}

func TestMissingFields(t *testing.T) {
	recs := []model.Record{
		{"hw": "h100", "precision": "fp8", "parallelism": int64(1), "concurrency": int64(4)},
		{"hw": "h100", "precision": nil, "concurrency": int64(8)},
	}
	assert.Equal(t, []string{"precision", "parallelism"}, MissingFields(recs, model.ExpectedFields))
	assert.Empty(t, MissingFields(nil, model.ExpectedFields))
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, sampleDiagnostics()))
	out := buf.String()

	assert.Contains(t, out, "generated_at: 2026-03-01T12:00:00Z\n")
	assert.Contains(t, out, "zip_files_found: [a.zip, bad.zip]\n")
	assert.Contains(t, out, "loose_json_files: []\n")
	assert.Contains(t, out, "datasets_written: 2\n")
	assert.Contains(t, out, "total_records: 1203\n")
	assert.Contains(t, out, "parse_failures: 1\n")
	assert.Contains(t, out, "  a__x.json records=3 schema=s1 tier=eager\n")
	assert.Contains(t, out, "  a__y.json records=1200 schema=s2 tier=deferred missing=parallelism,concurrency\n")
	assert.Contains(t, out, "a__z.json (a.zip!z.json): normalize: parse failure")
	assert.Contains(t, out, `"hw": "h100"`)
}

func TestWriteText_NoSample(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, &Diagnostics{}))
	assert.True(t, strings.HasSuffix(buf.String(), "sample_record:\n  none\n"))
	assert.NotContains(t, buf.String(), "failures:")
}

func TestWriteXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "diagnostics.xlsx")
	require.NoError(t, WriteXLSX(path, sampleDiagnostics()))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 3)

	sheets := map[string]*xlsx.Sheet{}
	for _, s := range f.Sheets {
		sheets[s.Name] = s
	}

	ds := sheets[SheetDatasets]
	require.NotNil(t, ds)
	require.Len(t, ds.Rows, 3)
	assert.Equal(t, "filename", ds.Rows[0].Cells[0].String())
	assert.Equal(t, "a__y.json", ds.Rows[2].Cells[0].String())
	assert.Equal(t, "1200", ds.Rows[2].Cells[2].String())
	assert.Equal(t, "parallelism,concurrency", ds.Rows[2].Cells[5].String())

	fl := sheets[SheetFailures]
	require.NotNil(t, fl)
	require.Len(t, fl.Rows, 2)
	assert.Equal(t, "normalize: parse failure", fl.Rows[1].Cells[2].String())

	sum := sheets[SheetSummary]
	require.NotNil(t, sum)
	assert.Equal(t, "generated_at", sum.Rows[1].Cells[0].String())
}

func TestWriteXLSX_BadPath(t *testing.T) {
	err := WriteXLSX(filepath.Join(t.TempDir(), "missing", "d.xlsx"), &Diagnostics{})
	assert.Error(t, err)
}
