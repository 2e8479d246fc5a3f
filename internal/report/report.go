// Package report writes the per-run diagnostics: a plain text summary and
// an xlsx workbook with the same tables.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/denosys/InferenceMAX/internal/model"
)

// DatasetDiag is the diagnostic row for one dataset.
type DatasetDiag struct {
	Filename string
	Origin   string
	Records  int
	SchemaID string
	Tier     model.Tier
	// Missing lists expected fields absent from at least one record.
	Missing []string
}

// Failure is an input that produced no dataset.
type Failure struct {
	Filename string
	Origin   string
	Err      string
}

// Diagnostics is everything reported about one build.
type Diagnostics struct {
	GeneratedAt time.Time
	InputDir    string
	Archives    []string
	BadArchives []string
	LooseFiles  []string
	Datasets    []DatasetDiag
	Failures    []Failure
	// Sample is the first record of the first non-empty dataset.
	Sample model.Record
}

// TotalRecords sums record counts across datasets.
func (d *Diagnostics) TotalRecords() int {
	n := 0
	for _, ds := range d.Datasets {
		n += ds.Records
	}
	return n
}

// MissingFields returns the fields of expected that are absent or null in
// at least one record, in expected order.
func MissingFields(records []model.Record, expected []string) []string {
	var out []string
	for _, f := range expected {
		for _, r := range records {
			if !r.Has(f) {
				out = append(out, f)
				break
			}
		}
	}
	return out
}

// WriteText writes the human readable report.
func WriteText(w io.Writer, d *Diagnostics) error {
	var b strings.Builder
	fmt.Fprintf(&b, "generated_at: %s\n", d.GeneratedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "input_dir: %s\n", d.InputDir)
	fmt.Fprintf(&b, "zip_files_found: %s\n", list(d.Archives))
	fmt.Fprintf(&b, "bad_zip_files: %s\n", list(d.BadArchives))
	fmt.Fprintf(&b, "loose_json_files: %s\n", list(d.LooseFiles))
	fmt.Fprintf(&b, "datasets_written: %d\n", len(d.Datasets))
	fmt.Fprintf(&b, "total_records: %d\n", d.TotalRecords())
	fmt.Fprintf(&b, "parse_failures: %d\n", len(d.Failures))

	b.WriteString("\ndatasets:\n")
	for _, ds := range d.Datasets {
		fmt.Fprintf(&b, "  %s records=%d schema=%s tier=%s", ds.Filename, ds.Records, ds.SchemaID, ds.Tier)
		if len(ds.Missing) > 0 {
			fmt.Fprintf(&b, " missing=%s", strings.Join(ds.Missing, ","))
		}
		b.WriteByte('\n')
	}

	if len(d.Failures) > 0 {
		b.WriteString("\nfailures:\n")
		for _, f := range d.Failures {
			fmt.Fprintf(&b, "  %s (%s): %s\n", f.Filename, f.Origin, f.Err)
		}
	}

	b.WriteString("\nsample_record:\n")
	if d.Sample == nil {
		b.WriteString("  none\n")
	} else {
		js, err := json.MarshalIndent(d.Sample, "  ", "  ")
		if err != nil {
			return eris.Wrap(err, "report: encode sample record")
		}
		b.WriteString("  ")
		b.Write(js)
		b.WriteByte('\n')
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		return eris.Wrap(err, "report: write text")
	}
	return nil
}

func list(items []string) string {
	if len(items) == 0 {
		return "[]"
	}
	return "[" + strings.Join(items, ", ") + "]"
}
