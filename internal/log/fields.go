package log

// Canonical field name constants for structured logging.
const (
	FieldComponent = "component"
	FieldEvent     = "event"

	// Request / item identity
	FieldURL     = "url"
	FieldItemKey = "item_key"
	FieldChatID  = "chat_id"
	FieldIndex   = "index"
	FieldTotal   = "total"
	FieldQuality = "quality"

	// Artifact fields
	FieldPath   = "path"
	FieldBytes  = "bytes"
	FieldBudget = "budget"
	FieldHeight = "height"

	// Result fields
	FieldOutcome  = "outcome"
	FieldState    = "state"
	FieldDuration = "duration"
)
