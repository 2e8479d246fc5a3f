package model

// Metadata is one row of the static file-name lookup table.
type Metadata struct {
	Key   string `yaml:"key" json:"key"`
	Model string `yaml:"model" json:"model"`
	ISL   string `yaml:"isl" json:"isl"`
	OSL   string `yaml:"osl" json:"osl"`
}

// Tier says whether a dataset's records are embedded in the payload.
type Tier string

const (
	TierEager    Tier = "eager"
	TierDeferred Tier = "deferred"
)

// Dataset is everything derived from one input file in one run.
type Dataset struct {
	Filename string
	Meta     *Metadata
	Records  []Record
	Schema   *Schema
	SchemaID string
}

// RecordCount returns the number of normalized records.
func (d *Dataset) RecordCount() int {
	return len(d.Records)
}
