package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// Tracing fields carried on the context logger.
const (
	// FieldRequestID is the HTTP request ID (UUID)
	FieldRequestID = "request_id"

	// FieldComponent is the component/module name
	FieldComponent = "component"

	// FieldCollectionKey is the cache key of a paginated collection
	FieldCollectionKey = "collection_key"

	// FieldAttemptID identifies one upload submission attempt
	FieldAttemptID = "attempt_id"

	// FieldCursor is the pagination cursor of a page fetch
	FieldCursor = "cursor"
)

// Metric fields used with the Entry API.
const (
	// FieldDurationMs is the execution duration in milliseconds
	FieldDurationMs = "duration_ms"

	// FieldCount is a generic count field
	FieldCount = "count"

	// FieldSize is the data size in bytes
	FieldSize = "size"

	// FieldStatus is the operation status
	FieldStatus = "status"
)
