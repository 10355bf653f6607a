package service

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/DavidD95/Prueba-Data-Engineering/internal/domain"
)

// RunReport is the in-memory result of one orchestrator run.
type RunReport struct {
	RunID       string                  `json:"run_id"`
	Bucket      string                  `json:"bucket"`
	State       string                  `json:"state"`
	Status      domain.RunStatus        `json:"status"`
	Path        []string                `json:"path"`
	Units       []domain.UnitOutcome    `json:"units"`
	Transform   *domain.TransformResult `json:"transform,omitempty"`
	StartedAt   time.Time               `json:"started_at"`
	CompletedAt time.Time               `json:"completed_at"`
	Err         error                   `json:"-"`
}

// Count returns the number of units in the given state.
func (r *RunReport) Count(state domain.UnitState) int {
	n := 0
	for _, u := range r.Units {
		if u.State == state {
			n++
		}
	}
	return n
}

// Loaded counts units staged in this run, whether or not archived since.
func (r *RunReport) Loaded() int {
	return r.Count(domain.UnitStateLoaded) +
		r.Count(domain.UnitStateArchived) +
		r.Count(domain.UnitStateArchiveFailed)
}

// Record converts the report into its persisted form.
func (r *RunReport) Record() *domain.RunRecord {
	rec := &domain.RunRecord{
		ID:                 r.RunID,
		Bucket:             r.Bucket,
		Status:             r.Status,
		TotalUnits:         len(r.Units),
		LoadedUnits:        r.Loaded(),
		SkippedUnits:       r.Count(domain.UnitStateSkipped),
		FailedUnits:        r.Count(domain.UnitStateLoadFailed),
		ArchivedUnits:      r.Count(domain.UnitStateArchived),
		ArchiveFailedUnits: r.Count(domain.UnitStateArchiveFailed),
		TransformLog:       formatTransformLog(r.Transform),
		StartedAt:          r.StartedAt,
	}
	if !r.CompletedAt.IsZero() {
		completed := r.CompletedAt
		rec.CompletedAt = &completed
	}
	if r.Err != nil {
		rec.ErrorLog = r.Err.Error()
	}

	rec.Units = make([]domain.RunUnitRecord, len(r.Units))
	for i, u := range r.Units {
		rec.Units[i] = domain.RunUnitRecord{
			RunID:    r.RunID,
			UnitID:   u.UnitID,
			State:    u.State,
			Attempts: u.Attempts,
			Error:    u.Error(),
		}
	}
	return rec
}

const maxTransformLog = 64 << 10

func formatTransformLog(result *domain.TransformResult) string {
	if result == nil {
		return ""
	}
	var b strings.Builder
	for _, s := range result.Steps {
		fmt.Fprintf(&b, "== %s: %s (exit %d, %s)\n", s.Name, s.Command, s.ExitCode, s.Duration.Round(time.Millisecond))
		if s.Stdout != "" {
			fmt.Fprintf(&b, "-- stdout --\n%s\n", strings.TrimRight(s.Stdout, "\n"))
		}
		if s.Stderr != "" {
			fmt.Fprintf(&b, "-- stderr --\n%s\n", strings.TrimRight(s.Stderr, "\n"))
		}
	}
	out := b.String()
	if len(out) > maxTransformLog {
		// Keep the tail, starting on a rune boundary so the text stays valid UTF-8
		start := len(out) - maxTransformLog
		for start < len(out) && !utf8.RuneStart(out[start]) {
			start++
		}
		out = out[start:]
	}
	return out
}
