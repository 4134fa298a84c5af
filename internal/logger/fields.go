package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// Standard tracing fields propagated through the call chain.
const (
	// FieldRunID is the pipeline run ID (UUID)
	FieldRunID = "run_id"

	// FieldStage is the pipeline stage name
	FieldStage = "stage"

	// FieldSource is the trend source identifier
	FieldSource = "source"

	// FieldComponent is the component/module name
	FieldComponent = "component"

	// FieldKeyword is the trend keyword under processing
	FieldKeyword = "keyword"

	// FieldRequestID is the HTTP request ID (UUID)
	FieldRequestID = "request_id"
)

// Standard metric fields used for aggregation and alerting.
const (
	// FieldDurationMs is the execution duration in milliseconds
	FieldDurationMs = "duration_ms"

	// FieldCount is a generic count field
	FieldCount = "count"

	// FieldStatus is the operation status
	FieldStatus = "status"

	// FieldScore is a candidate score
	FieldScore = "score"

	// FieldSize is a response size in bytes
	FieldSize = "size"
)
