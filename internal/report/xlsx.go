package report

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// Sheet names in the diagnostics workbook.
const (
	SheetSummary  = "summary"
	SheetDatasets = "datasets"
	SheetFailures = "failures"
)

// WriteXLSX saves the diagnostics workbook to path.
func WriteXLSX(path string, d *Diagnostics) error {
	f := xlsx.NewFile()

	summary, err := f.AddSheet(SheetSummary)
	if err != nil {
		return eris.Wrap(err, "report: add summary sheet")
	}
	addStrings(summary, "key", "value")
	addStrings(summary, "generated_at", d.GeneratedAt.UTC().Format(time.RFC3339))
	addStrings(summary, "input_dir", d.InputDir)
	addStrings(summary, "zip_files_found", strings.Join(d.Archives, ", "))
	addStrings(summary, "bad_zip_files", strings.Join(d.BadArchives, ", "))
	addStrings(summary, "loose_json_files", strings.Join(d.LooseFiles, ", "))
	addCount(summary, "datasets_written", len(d.Datasets))
	addCount(summary, "total_records", d.TotalRecords())
	addCount(summary, "parse_failures", len(d.Failures))

	datasets, err := f.AddSheet(SheetDatasets)
	if err != nil {
		return eris.Wrap(err, "report: add datasets sheet")
	}
	addStrings(datasets, "filename", "origin", "records", "schema_id", "tier", "missing_fields")
	for _, ds := range d.Datasets {
		row := datasets.AddRow()
		row.AddCell().SetString(ds.Filename)
		row.AddCell().SetString(ds.Origin)
		row.AddCell().SetInt(ds.Records)
		row.AddCell().SetString(ds.SchemaID)
		row.AddCell().SetString(string(ds.Tier))
		row.AddCell().SetString(strings.Join(ds.Missing, ","))
	}

	failures, err := f.AddSheet(SheetFailures)
	if err != nil {
		return eris.Wrap(err, "report: add failures sheet")
	}
	addStrings(failures, "filename", "origin", "error")
	for _, fl := range d.Failures {
		addStrings(failures, fl.Filename, fl.Origin, fl.Err)
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "report: save %s", path)
	}
	return nil
}

func addStrings(sheet *xlsx.Sheet, values ...string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}

func addCount(sheet *xlsx.Sheet, key string, n int) {
	row := sheet.AddRow()
	row.AddCell().SetString(key)
	row.AddCell().SetInt(n)
}
