package pipeline

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/denosys/InferenceMAX/internal/report"
	"github.com/denosys/InferenceMAX/internal/source"
)

// Artifact names under the output directory.
const (
	DataDir         = "data"
	DataIndexFile   = "data_index.json"
	SchemaPoolFile  = "schema_pool.json"
	PayloadFile     = "payload.json"
	DiagnosticsText = "diagnostics.txt"
	DiagnosticsXLSX = "diagnostics.xlsx"
)

// DataIndex is the listing of data/ used for client-side discovery.
type DataIndex struct {
	Files []string `json:"files"`
}

// writer saves artifacts one by one. A failed artifact is logged and
// counted; it never stops the others.
type writer struct {
	outDir  string
	written []string
	failed  int
}

func (w *writer) writeAll(res *Result, inputs []source.Input) {
	index := DataIndex{Files: make([]string, 0, len(inputs))}
	for _, in := range inputs {
		rel := filepath.Join(DataDir, in.Name)
		if w.save(rel, func() ([]byte, error) { return in.Data, nil }) {
			index.Files = append(index.Files, in.Name)
		}
	}
	w.save(filepath.Join(DataDir, DataIndexFile), jsonBytes(index, false))
	w.save(SchemaPoolFile, jsonBytes(res.Pool, true))
	w.save(PayloadFile, jsonBytes(res.Payload, false))
	w.save(DiagnosticsText, func() ([]byte, error) {
		var buf bytes.Buffer
		if err := report.WriteText(&buf, res.Diagnostics); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	})

	xlsxPath := filepath.Join(w.outDir, DiagnosticsXLSX)
	err := ensureDir(xlsxPath)
	if err == nil {
		err = report.WriteXLSX(xlsxPath, res.Diagnostics)
	}
	w.done(DiagnosticsXLSX, err)
}

// save renders one artifact and writes it atomically. It reports whether
// the artifact landed on disk.
func (w *writer) save(rel string, render func() ([]byte, error)) bool {
	data, err := render()
	if err == nil {
		err = WriteFileAtomic(filepath.Join(w.outDir, rel), data)
	}
	return w.done(rel, err)
}

func (w *writer) done(rel string, err error) bool {
	if err != nil {
		w.failed++
		zap.L().Warn("pipeline: artifact not written", zap.String("artifact", rel), zap.Error(err))
		return false
	}
	w.written = append(w.written, rel)
	return true
}

func jsonBytes(v any, indent bool) func() ([]byte, error) {
	return func() ([]byte, error) {
		if indent {
			return json.MarshalIndent(v, "", "  ")
		}
		return json.Marshal(v)
	}
}

func ensureDir(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "pipeline: create dir for %s", path)
	}
	return nil
}

// WriteFileAtomic writes data to a temp file beside path and renames it
// into place, so readers never see a partial file.
func WriteFileAtomic(path string, data []byte) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return eris.Wrapf(err, "pipeline: create temp for %s", path)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()        //nolint:errcheck
		os.Remove(tmpName) //nolint:errcheck
		return eris.Wrapf(err, "pipeline: write %s", path)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName) //nolint:errcheck
		return eris.Wrapf(err, "pipeline: close %s", path)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName) //nolint:errcheck
		return eris.Wrapf(err, "pipeline: chmod %s", path)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName) //nolint:errcheck
		return eris.Wrapf(err, "pipeline: rename %s", path)
	}
	return nil
}
