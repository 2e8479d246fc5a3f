// Package payload decides, per dataset, whether records ship inside the
// client payload or are fetched on demand, and resolves deferred datasets.
package payload

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/denosys/InferenceMAX/internal/canon"
	"github.com/denosys/InferenceMAX/internal/model"
)

// DefaultThreshold is the largest record count that is embedded.
const DefaultThreshold = 1000

// Entry is the client payload for one dataset. Records is null in JSON
// when the entry is deferred.
type Entry struct {
	Filename    string         `json:"filename"`
	Columns     []string       `json:"columns"`
	RecordCount int            `json:"record_count"`
	Tier        model.Tier     `json:"tier"`
	SchemaID    string         `json:"schema_id"`
	Records     []model.Record `json:"records"`
	Sample      model.Record   `json:"sample,omitempty"`
}

// Payload is the document written to payload.json.
type Payload struct {
	GeneratedAt time.Time `json:"generated_at"`
	Threshold   int       `json:"threshold"`
	Entries     []*Entry  `json:"entries"`
}

// TierFor is the only input to the tier decision.
func TierFor(count, threshold int) model.Tier {
	if count <= threshold {
		return model.TierEager
	}
	return model.TierDeferred
}

// BuildEntry builds the payload entry for ds.
func BuildEntry(ds *model.Dataset, threshold int, c *canon.Canonicalizer) *Entry {
	e := &Entry{
		Filename:    ds.Filename,
		RecordCount: ds.RecordCount(),
		Tier:        TierFor(ds.RecordCount(), threshold),
		SchemaID:    ds.SchemaID,
		Columns:     []string{},
	}
	if ds.Schema != nil {
		e.Columns = ds.Schema.Fields()
	}

	if e.Tier == model.TierEager {
		e.Records = ds.Records
		if e.Records == nil {
			e.Records = []model.Record{}
		}
		return e
	}
	e.Sample = Sample(ds.Filename, ds.Meta, c)
	return e
}

// Sample synthesizes the stand-in record of a deferred dataset from its
// metadata, or from the file stem when no metadata matched.
func Sample(filename string, meta *model.Metadata, c *canon.Canonicalizer) model.Record {
	s := model.Record{model.FieldFilename: filename}
	raw := strings.TrimSuffix(filename, filepath.Ext(filename))
	if meta != nil && meta.Model != "" {
		raw = meta.Model
	}
	id, display := c.Canonicalize(raw)
	s[model.FieldModel] = raw
	s[model.FieldModelRaw] = raw
	s[model.FieldModelID] = id
	s[model.FieldModelDisplay] = display
	if meta != nil {
		if meta.ISL != "" {
			s[model.FieldISL] = meta.ISL
		}
		if meta.OSL != "" {
			s[model.FieldOSL] = meta.OSL
		}
	}
	return s
}

// Build assembles the payload for datasets, in the order given.
func Build(datasets []*model.Dataset, threshold int, c *canon.Canonicalizer, now time.Time) *Payload {
	p := &Payload{
		GeneratedAt: now.UTC(),
		Threshold:   threshold,
		Entries:     make([]*Entry, 0, len(datasets)),
	}
	for _, ds := range datasets {
		p.Entries = append(p.Entries, BuildEntry(ds, threshold, c))
	}
	return p
}

// Entry returns the entry for filename.
func (p *Payload) Entry(filename string) (*Entry, bool) {
	for _, e := range p.Entries {
		if e.Filename == filename {
			return e, true
		}
	}
	return nil, false
}

// ReadFile loads a payload written by a previous build.
func ReadFile(path string) (*Payload, error) {
	b, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, eris.Wrapf(err, "payload: read %s", path)
	}
	var p Payload
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, eris.Wrapf(err, "payload: parse %s", path)
	}
	return &p, nil
}
