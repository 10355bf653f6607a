package domain

import "time"

// RunStatus is the terminal state an orchestrator run ended in.
type RunStatus string

const (
	RunStatusRunning         RunStatus = "running"
	RunStatusNoWork          RunStatus = "no_work"
	RunStatusSkipTransform   RunStatus = "skip_transform"
	RunStatusTransformFailed RunStatus = "transform_failed"
	RunStatusDone            RunStatus = "done"
	RunStatusFailed          RunStatus = "failed"
)

// Fatal reports whether the status represents a batch-wide failure.
func (s RunStatus) Fatal() bool {
	return s == RunStatusTransformFailed || s == RunStatusFailed
}

// RunRecord represents one orchestrator run and its summary counters.
// FailedUnits counts load failures; ArchiveFailedUnits counts units that
// loaded but could not be archived.
type RunRecord struct {
	ID                 string     `gorm:"type:text;primaryKey" json:"id"`
	Bucket             string     `gorm:"type:text;not null;index" json:"bucket"`
	Status             RunStatus  `gorm:"type:text;index;default:running" json:"status"`
	TotalUnits         int        `gorm:"default:0" json:"total_units"`
	LoadedUnits        int        `gorm:"default:0" json:"loaded_units"`
	SkippedUnits       int        `gorm:"default:0" json:"skipped_units"`
	FailedUnits        int        `gorm:"default:0" json:"failed_units"`
	ArchivedUnits      int        `gorm:"default:0" json:"archived_units"`
	ArchiveFailedUnits int        `gorm:"default:0" json:"archive_failed_units"`
	TransformLog       string     `gorm:"type:text" json:"transform_log,omitempty"`
	ErrorLog           string     `gorm:"type:text" json:"error_log,omitempty"`
	StartedAt          time.Time  `json:"started_at"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`

	Units []RunUnitRecord `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE" json:"units,omitempty"`
}

// TableName returns the database table name for RunRecord.
// Parameters: none.
// Returns:
//   - string: table name for GORM mapping.
func (RunRecord) TableName() string {
	return "elt_runs"
}

// RunUnitRecord is the per-unit outcome of a run.
type RunUnitRecord struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	RunID     string    `gorm:"type:text;not null;index:idx_elt_run_units_run" json:"run_id"`
	UnitID    string    `gorm:"type:text;not null" json:"unit_id"`
	State     UnitState `gorm:"type:text;not null" json:"state"`
	Attempts  int       `json:"attempts"`
	Error     string    `gorm:"type:text" json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (RunUnitRecord) TableName() string {
	return "elt_run_units"
}
