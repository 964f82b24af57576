package errors

import "fmt"

// TusError is the taxonomy of protocol and internal errors this server can
// return. Code is a short machine-readable tag, Status is the HTTP status
// the handler should send, and Message is human-readable. The one
// response that needs a literal, spec-mandated string in its body (the
// duplicate-rejection message) is built by ErrDuplicateExists, which
// fills in the filename, rather than by one of the fixed-message
// constructors below.
type TusError struct {
	Code    string
	Status  int
	Message string
	Err     error
}

func (e *TusError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *TusError) Unwrap() error {
	return e.Err
}

func newErr(code string, status int, message string) func(err error) *TusError {
	return func(err error) *TusError {
		return &TusError{Code: code, Status: status, Message: message, Err: err}
	}
}

var (
	ErrMissingUploadLength = newErr("missing_upload_length", 400, "Upload-Length header is required")
	ErrInvalidUploadLength = newErr("invalid_upload_length", 400, "Upload-Length header is invalid")
	ErrMaxSizeExceeded     = newErr("max_size_exceeded", 400, "Upload-Length exceeds the configured maximum file size")
	ErrMissingOffset       = newErr("missing_upload_offset", 400, "Upload-Offset header is required")
	ErrInvalidOffset       = newErr("invalid_upload_offset", 400, "Upload-Offset header is invalid")
	ErrInvalidContentType  = newErr("invalid_content_type", 400, "Content-Type must be application/offset+octet-stream")
	ErrUploadNotFound      = newErr("upload_not_found", 404, "upload not found")
	ErrOffsetMismatch      = newErr("offset_mismatch", 409, "Upload-Offset does not match the upload's current offset")
	ErrAppendFailed        = newErr("append_failed", 500, "failed to append to the upload's payload file")
	ErrSidecarWriteFailed  = newErr("sidecar_write_failed", 500, "failed to persist upload metadata")
	ErrFinalizeFailed      = newErr("finalize_failed", 500, "failed to finalize the upload")
	ErrAssemblyFailed      = newErr("assembly_failed", 500, "failed to reassemble the multipart upload")
	ErrInternal            = newErr("internal_error", 500, "internal server error")
)

// ErrDuplicateExists builds the one TusError whose message is mandated
// verbatim by the protocol: the 409 pre-rejection at create-time when a
// withFilename=original, onDuplicate=prevent upload collides on disk.
func ErrDuplicateExists(filename string) *TusError {
	return &TusError{
		Code:    "duplicate_exists",
		Status:  409,
		Message: fmt.Sprintf("File \"%s\" already exists and duplicates are not allowed", filename),
	}
}
