package pipeline

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/denosys/InferenceMAX/internal/model"
	"github.com/denosys/InferenceMAX/internal/normalize"
	"github.com/denosys/InferenceMAX/internal/schema"
)

// CompactSchema is the per-file output of CompactSchemas.
type CompactSchema struct {
	Schema *model.Schema `json:"schema"`
}

// CompactResult reports what CompactSchemas did.
type CompactResult struct {
	Written []string
	Failed  []string
}

// CompactSchemas infers the schema of every *.json file in inDir from its
// raw, un-normalized records and writes {"schema": ...} to outDir under
// the same file name. A root array contributes its object elements and a
// root object is a single record. Files that fail are logged and skipped.
func CompactSchemas(inDir, outDir string, exampleCap int) (*CompactResult, error) {
	entries, err := os.ReadDir(inDir)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: read dir %s", inDir)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "pipeline: create dir %s", outDir)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".json") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	res := &CompactResult{}
	for _, name := range names {
		if err := compactOne(filepath.Join(inDir, name), filepath.Join(outDir, name), exampleCap); err != nil {
			zap.L().Warn("pipeline: compact schema failed", zap.String("file", name), zap.Error(err))
			res.Failed = append(res.Failed, name)
			continue
		}
		res.Written = append(res.Written, name)
	}
	return res, nil
}

func compactOne(src, dst string, exampleCap int) error {
	b, err := os.ReadFile(src)
	if err != nil {
		return eris.Wrap(err, "read")
	}
	raw, err := normalize.Decode(b)
	if err != nil {
		return err
	}
	sch := schema.Infer(rawRecords(raw), schema.InferOptions{ExampleCap: exampleCap})
	out, err := json.MarshalIndent(CompactSchema{Schema: sch}, "", "  ")
	if err != nil {
		return eris.Wrap(err, "marshal")
	}
	return WriteFileAtomic(dst, out)
}

// rawRecords applies no envelope unwrapping.
func rawRecords(raw any) []model.Record {
	switch v := raw.(type) {
	case []any:
		out := make([]model.Record, 0, len(v))
		for _, el := range v {
			if m, ok := el.(map[string]any); ok {
				out = append(out, model.Record(m))
			}
		}
		return out
	case map[string]any:
		return []model.Record{model.Record(v)}
	default:
		return nil
	}
}
