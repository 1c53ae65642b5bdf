package processor

import (
	"context"
	"errors"
	"fmt"
)

// UploadError is a local failure while staging the uploaded audio.
type UploadError struct {
	Err error
}

func (e *UploadError) Error() string { return fmt.Sprintf("upload failed: %v", e.Err) }
func (e *UploadError) Unwrap() error { return e.Err }

// RequestError is a failed call to the model service. Op names the call
// ("transcribe" or "analyze").
type RequestError struct {
	Op      string
	Timeout bool
	Err     error
}

func (e *RequestError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("%s request timed out: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s request failed: %v", e.Op, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

func newRequestError(op string, err error) *RequestError {
	return &RequestError{Op: op, Err: err, Timeout: errors.Is(err, context.DeadlineExceeded)}
}

// ErrEmptyUpload rejects a zero-byte audio file.
var ErrEmptyUpload = errors.New("audio file is empty")
