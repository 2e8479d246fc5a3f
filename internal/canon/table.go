package canon

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/denosys/InferenceMAX/internal/model"
)

// Table is the static file-name to metadata lookup.
type Table struct {
	entries []model.Metadata
}

// NewTable copies entries. Keys match case-insensitively, in order.
func NewTable(entries []model.Metadata) *Table {
	out := make([]model.Metadata, len(entries))
	copy(out, entries)
	return &Table{entries: out}
}

// Entries returns a copy of the table rows.
func (t *Table) Entries() []model.Metadata {
	out := make([]model.Metadata, len(t.entries))
	copy(out, t.entries)
	return out
}

// Match returns the first row whose key is a substring of filename.
func (t *Table) Match(filename string) (model.Metadata, bool) {
	name := strings.ToLower(filename)
	for _, m := range t.entries {
		if m.Key != "" && strings.Contains(name, strings.ToLower(m.Key)) {
			return m, true
		}
	}
	return model.Metadata{}, false
}

// DefaultMetadata is the built-in lookup table.
func DefaultMetadata() []model.Metadata {
	return []model.Metadata{
		{Key: "dsr1_1k1k", Model: "DeepSeek R1 0528", ISL: "1k", OSL: "1k"},
		{Key: "dsr1_1k8k", Model: "DeepSeek R1 0528", ISL: "1k", OSL: "8k"},
		{Key: "dsr1_8k1k", Model: "DeepSeek R1 0528", ISL: "8k", OSL: "1k"},
		{Key: "70b_1k1k", Model: "Llama 3.3 70B Instruct", ISL: "1k", OSL: "1k"},
		{Key: "70b_1k8k", Model: "Llama 3.3 70B Instruct", ISL: "1k", OSL: "8k"},
		{Key: "70b_8k1k", Model: "Llama 3.3 70B Instruct", ISL: "8k", OSL: "1k"},
		{Key: "gptoss_1k1k", Model: "gpt-oss 120B", ISL: "1k", OSL: "1k"},
		{Key: "gptoss_1k8k", Model: "gpt-oss 120B", ISL: "1k", OSL: "8k"},
		{Key: "gptoss_8k1k", Model: "gpt-oss 120B", ISL: "8k", OSL: "1k"},
	}
}

// File is the YAML layout of a metadata file.
type File struct {
	Rules    []Rule           `yaml:"rules"`
	Metadata []model.Metadata `yaml:"metadata"`
}

// Load builds the Canonicalizer and Table from a YAML file. An empty path,
// or a section missing from the file, falls back to the built-in tables.
func Load(path string) (*Canonicalizer, *Table, error) {
	var f File
	if path != "" {
		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return nil, nil, eris.Wrapf(err, "canon: read %s", path)
		}
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, nil, eris.Wrapf(err, "canon: parse %s", path)
		}
	}
	if len(f.Rules) == 0 {
		f.Rules = DefaultRules()
	}
	if len(f.Metadata) == 0 {
		f.Metadata = DefaultMetadata()
	}
	c, err := New(f.Rules)
	if err != nil {
		return nil, nil, err
	}
	return c, NewTable(f.Metadata), nil
}
