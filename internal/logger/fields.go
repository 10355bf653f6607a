package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// Tracing fields carried on the context logger through a run.
const (
	// FieldRequestID is the HTTP request ID (UUID)
	FieldRequestID = "request_id"

	// FieldRunID identifies one orchestrator run
	FieldRunID = "run_id"

	// FieldUnitID is the object key of the unit being processed
	FieldUnitID = "unit_id"

	// FieldStage is the orchestrator state or pipeline stage
	FieldStage = "stage"

	// FieldComponent is the component/module name
	FieldComponent = "component"

	// FieldBucket is the active container being processed
	FieldBucket = "bucket"
)

// Metric fields attached per entry for aggregation.
const (
	FieldDurationMs = "duration_ms"
	FieldCount      = "count"
	FieldSize       = "size"
	FieldStatus     = "status"
	FieldAttempt    = "attempt"
)
