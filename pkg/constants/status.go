package constants

// QueuedFile lifecycle states, as tracked by the client scheduler.
const (
	StatusPending   = "pending"
	StatusUploading = "uploading"
	StatusCompleted = "completed"
	StatusError     = "error"
)

const (
	StatusOK        = "ok"
	StatusCancelled = "cancelled"
)

// Default selector values for metadata fields that accept a registered
// strategy name.
const (
	WithFilenameDefault  = "default"
	WithFilenameOriginal = "original"

	OnDuplicatePrevent = "prevent"
	OnDuplicateNumber  = "number"
)
