package model

import "time"

// Run is the ledger entry written after a build.
type Run struct {
	ID         string           `json:"id"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Inputs     int              `json:"inputs"`
	Skipped    int              `json:"skipped"`
	Datasets   []DatasetSummary `json:"datasets"`
}

// DatasetSummary is the per-dataset part of a Run.
type DatasetSummary struct {
	Filename    string `json:"filename"`
	SchemaID    string `json:"schema_id"`
	RecordCount int    `json:"record_count"`
	Tier        Tier   `json:"tier"`
}

// Records returns the total record count across datasets.
func (r *Run) Records() int {
	n := 0
	for _, d := range r.Datasets {
		n += d.RecordCount
	}
	return n
}
