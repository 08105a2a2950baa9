package logging

// Standardized attribute keys used across components so log consumers can
// rely on stable field names.
const (
	FieldComponent = "component"
	FieldEventType = "event_type"
	FieldErrorHint = "error_hint"
	FieldJobID     = "job_id"
	FieldTrial     = "trial"
	FieldElapsed   = "elapsed"
)
