package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var line map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log output is not json: %v (%q)", err, buf.String())
	}
	return line
}

func TestContextFieldsPropagate(t *testing.T) {
	var buf bytes.Buffer
	l := New(&Config{Level: "debug", Format: "json", Output: &buf, ServiceName: "elt-test"})

	ctx := l.WithContext(context.Background())
	ctx = SetRunID(ctx, "run-1")
	ctx = SetUnitID(ctx, "sales_01.csv")
	ctx = SetStage(ctx, "loading")

	CtxInfo(ctx, "loaded %d rows", 1)

	line := decodeLine(t, &buf)
	want := map[string]string{
		"service":   "elt-test",
		FieldRunID:  "run-1",
		FieldUnitID: "sales_01.csv",
		FieldStage:  "loading",
		"message":   "loaded 1 rows",
		"level":     "info",
	}
	for k, v := range want {
		if line[k] != v {
			t.Errorf("field %q = %v, want %q", k, line[k], v)
		}
	}
	if GetRunID(ctx) != "run-1" || GetUnitID(ctx) != "sales_01.csv" {
		t.Errorf("field extraction mismatch: run=%q unit=%q", GetRunID(ctx), GetUnitID(ctx))
	}
}

func TestEntryMetricFields(t *testing.T) {
	var buf bytes.Buffer
	ctx := New(&Config{Level: "info", Output: &buf}).WithContext(context.Background())

	With(Fields{FieldComponent: "loader"}).
		WithDuration(1500 * time.Millisecond).
		WithCount(3).
		WithAttempt(2).
		WithStatus("loaded").
		Info(ctx, "unit done")

	line := decodeLine(t, &buf)
	if line[FieldDurationMs] != float64(1500) {
		t.Errorf("duration_ms = %v, want 1500", line[FieldDurationMs])
	}
	if line[FieldCount] != float64(3) || line[FieldAttempt] != float64(2) {
		t.Errorf("count/attempt = %v/%v", line[FieldCount], line[FieldAttempt])
	}
	if line[FieldStatus] != "loaded" || line[FieldComponent] != "loader" {
		t.Errorf("status/component = %v/%v", line[FieldStatus], line[FieldComponent])
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(&Config{Level: "warn", Output: &buf})
	l.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("info line written at warn level: %q", buf.String())
	}
	l.WithError(errors.New("boom")).Warn("shown")
	if line := decodeLine(t, &buf); line["error"] != "boom" {
		t.Errorf("error field = %v, want boom", line["error"])
	}
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	if FromContext(context.Background()) != GetDefault() {
		t.Error("expected default logger for bare context")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_MAX_SIZE", "not-a-number")
	t.Setenv("LOG_COMPRESS", "false")

	cfg := LoadFromEnv()
	if cfg.Level != "debug" {
		t.Errorf("Level = %q, want debug", cfg.Level)
	}
	if cfg.MaxSize != 100 {
		t.Errorf("MaxSize = %d, want default 100", cfg.MaxSize)
	}
	if cfg.Compress {
		t.Error("Compress should be false")
	}
	if cfg.ServiceName != "elt" {
		t.Errorf("ServiceName = %q, want elt", cfg.ServiceName)
	}
}
