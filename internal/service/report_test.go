package service

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/DavidD95/Prueba-Data-Engineering/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestFormatTransformLog_TruncatesOnRuneBoundary(t *testing.T) {
	body := strings.Repeat("é", maxTransformLog)
	// Shifting the content by one byte moves the cut point across a rune
	for _, pad := range []string{"", "x"} {
		result := &domain.TransformResult{Steps: []domain.StepResult{
			{Name: StepTransform, Command: "dbt run", Stdout: pad + body},
		}}
		out := formatTransformLog(result)
		assert.True(t, utf8.ValidString(out), "pad %q produced invalid UTF-8", pad)
		assert.LessOrEqual(t, len(out), maxTransformLog)
		assert.Greater(t, len(out), maxTransformLog-utf8.UTFMax)
	}
}

func TestFormatTransformLog_Short(t *testing.T) {
	out := formatTransformLog(&domain.TransformResult{Steps: []domain.StepResult{
		{Name: StepValidate, Command: "dbt test", ExitCode: 1, Stderr: "1 failing row\n"},
	}})
	assert.Equal(t, "== validate: dbt test (exit 1, 0s)\n-- stderr --\n1 failing row\n", out)
	assert.Empty(t, formatTransformLog(nil))
}

func TestRunReport_RecordCounters(t *testing.T) {
	report := &RunReport{
		RunID:  "run-1",
		Bucket: "sales",
		Status: domain.RunStatusDone,
		Units: []domain.UnitOutcome{
			{UnitID: "a.csv", State: domain.UnitStateArchived},
			{UnitID: "b.csv", State: domain.UnitStateArchiveFailed, Err: errors.New("copy denied")},
			{UnitID: "c.csv", State: domain.UnitStateLoadFailed, Err: errors.New("timeout")},
			{UnitID: "d.csv", State: domain.UnitStateSkipped, Err: ErrUnitVanished},
		},
	}

	rec := report.Record()
	assert.Equal(t, 4, rec.TotalUnits)
	assert.Equal(t, 2, rec.LoadedUnits)
	assert.Equal(t, 1, rec.SkippedUnits)
	assert.Equal(t, 1, rec.FailedUnits)
	assert.Equal(t, 1, rec.ArchivedUnits)
	assert.Equal(t, 1, rec.ArchiveFailedUnits)
	assert.Nil(t, rec.CompletedAt)
	assert.Equal(t, "copy denied", rec.Units[1].Error)
}
