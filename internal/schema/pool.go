package schema

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/denosys/InferenceMAX/internal/model"
)

type sigField struct {
	Name   string          `json:"n"`
	Type   model.FieldType `json:"t"`
	Stats  bool            `json:"s"`
	Shapes []any           `json:"e,omitempty"`
}

// Signature encodes the shape of s deterministically: fields sorted by
// name with type, presence of numeric stats, and array/object shape
// examples. Numeric ranges and observed string/bool values are left out,
// so schemas that differ only in observed values share a signature.
func Signature(s *model.Schema) string {
	names := s.Fields()
	sort.Strings(names)

	fields := make([]sigField, 0, len(names))
	for _, name := range names {
		fd, _ := s.Field(name)
		sf := sigField{Name: name, Type: fd.Type, Stats: fd.NumericStats != nil}
		for _, ex := range fd.Examples {
			if _, ok := ex.(map[string]any); ok {
				sf.Shapes = append(sf.Shapes, ex)
			}
		}
		fields = append(fields, sf)
	}

	b, err := json.Marshal(fields)
	if err != nil {
		// Examples only hold JSON-native values.
		panic(fmt.Sprintf("schema: signature: %v", err))
	}
	return string(b)
}

// FileRef links a dataset file to its pool id.
type FileRef struct {
	Filename string `json:"filename"`
	SchemaID string `json:"schema_id"`
}

// PoolFile is the serialized form of a Pool.
type PoolFile struct {
	Pool  map[string]*model.Schema `json:"pool"`
	Files []FileRef                `json:"files"`
}

// Pool assigns sequential ids (s1, s2, ...) to distinct schema signatures.
// Ids depend on call order, so callers must assign in file order. A Pool
// lives for one build; start each run with a new one.
type Pool struct {
	mu      sync.Mutex
	next    int
	bySig   map[string]string
	schemas map[string]*model.Schema
	files   []FileRef
}

// NewPool returns an empty pool.
func NewPool() *Pool {
	return &Pool{
		bySig:   make(map[string]string),
		schemas: make(map[string]*model.Schema),
	}
}

// Assign returns the id for s, minting a new one for an unseen signature.
func (p *Pool) Assign(s *model.Schema) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.assignLocked(s)
}

// Register assigns s and records filename against the id.
func (p *Pool) Register(filename string, s *model.Schema) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.assignLocked(s)
	p.files = append(p.files, FileRef{Filename: filename, SchemaID: id})
	return id
}

func (p *Pool) assignLocked(s *model.Schema) string {
	sig := Signature(s)
	if id, ok := p.bySig[sig]; ok {
		return id
	}
	p.next++
	id := fmt.Sprintf("s%d", p.next)
	p.bySig[sig] = id
	p.schemas[id] = s
	return id
}

// Schema returns the pooled schema for id.
func (p *Pool) Schema(id string) (*model.Schema, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.schemas[id]
	return s, ok
}

// Len returns the number of distinct schemas.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.schemas)
}

// Snapshot returns the pool and the file ledger.
func (p *Pool) Snapshot() PoolFile {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := PoolFile{
		Pool:  make(map[string]*model.Schema, len(p.schemas)),
		Files: make([]FileRef, len(p.files)),
	}
	for id, s := range p.schemas {
		out.Pool[id] = s
	}
	copy(out.Files, p.files)
	return out
}
