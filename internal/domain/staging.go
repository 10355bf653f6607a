package domain

import "time"

// StagingRecord is one row appended to the staging table per loaded unit.
// The table name is configurable, so callers always scope it with db.Table.
type StagingRecord struct {
	Identifier string    `gorm:"column:identifier;type:text;not null" json:"identifier"`
	RawContent string    `gorm:"column:raw_content;type:text;not null" json:"raw_content"`
	LoadedAt   time.Time `gorm:"column:loaded_at;not null" json:"loaded_at"`
}

// TransformStatus is the outcome of the transform stage.
type TransformStatus string

const (
	TransformSucceeded TransformStatus = "succeeded"
	TransformFailed    TransformStatus = "failed"
)

// StepResult captures one external step (transform or validate).
type StepResult struct {
	Name     string        `json:"name"`
	Command  string        `json:"command"`
	ExitCode int           `json:"exit_code"`
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	Duration time.Duration `json:"duration"`
}

// TransformResult is the outcome of the transform stage for one batch.
// It is not persisted by the pipeline itself; only its status gates archival.
type TransformResult struct {
	Status TransformStatus `json:"status"`
	Steps  []StepResult    `json:"steps"`
}

// Succeeded reports whether every step exited cleanly.
func (r *TransformResult) Succeeded() bool {
	return r != nil && r.Status == TransformSucceeded
}
