package ingest

import (
	"errors"
	"fmt"
)

// ErrUploadInFlight is returned when Upload is called on an Ingestor that
// already has a call in flight. Callers that need batching should use
// UploadMultiple, which serializes internally.
var ErrUploadInFlight = errors.New("an upload is already in flight")

// ValidationError rejects a file before any I/O happens
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Reason
}

// StorageError wraps a failed object-store write. Op is "original" or
// "thumbnail"; only original-asset failures fail the upload.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage write failed (%s): %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
