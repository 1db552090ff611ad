// Package common defines shared constants and sentinel errors used across
// client and server layers of recordkeeper. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")

	// Another session holds a live lock on the same operation.
	ErrOperationInProgress = errors.New("operation in progress on another session")

	// The extraction flagged the source as unusable; the record is removed.
	ErrInvalidDocument = errors.New("invalid document")

	// Record has neither attachments nor a transcription.
	ErrNothingToProcess = errors.New("nothing to process")

	// Configuration errors.
	ErrUnknownProvider  = errors.New("unknown provider")
	ErrUnknownOperation = errors.New("unknown operation")
)
