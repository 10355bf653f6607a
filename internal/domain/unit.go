package domain

import "time"

// UnitState represents the processing state of a unit within one run.
// A unit starts as UnitStateDiscovered and moves strictly forward.
type UnitState string

const (
	UnitStateDiscovered    UnitState = "discovered"
	UnitStateLoaded        UnitState = "loaded"
	UnitStateSkipped       UnitState = "skipped"
	UnitStateLoadFailed    UnitState = "load_failed"
	UnitStateArchived      UnitState = "archived"
	UnitStateArchiveFailed UnitState = "archive_failed"
)

// Terminal reports whether the load phase is finished for a unit in this state.
func (s UnitState) Terminal() bool {
	switch s {
	case UnitStateDiscovered:
		return false
	default:
		return true
	}
}

// Unit represents one source file discovered in the active namespace.
// Its raw content is never held here; the loader fetches it on demand.
type Unit struct {
	ID           string    `json:"id"`
	DiscoveredAt time.Time `json:"discovered_at"`
	State        UnitState `json:"state"`
}

// UnitOutcome is the terminal result of a per-unit task (load or archive).
type UnitOutcome struct {
	UnitID   string        `json:"unit_id"`
	State    UnitState     `json:"state"`
	Attempts int           `json:"attempts"`
	Duration time.Duration `json:"duration"`
	Err      error         `json:"-"`
}

// Error returns the outcome error message, or empty when the task succeeded.
func (o UnitOutcome) Error() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}
