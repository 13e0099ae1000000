package errors

import (
	"errors"
	"fmt"
)

// ErrorCode identifies the failure class of a pipeline error.
type ErrorCode string

const (
	ErrorCode_CONFIG             ErrorCode = "CONFIG"
	ErrorCode_AUTH_REJECTED      ErrorCode = "AUTH_REJECTED"
	ErrorCode_UNAUTHORIZED       ErrorCode = "UNAUTHORIZED"
	ErrorCode_TRANSIENT          ErrorCode = "TRANSIENT"
	ErrorCode_NOT_READY          ErrorCode = "NOT_READY"
	ErrorCode_NOT_FOUND          ErrorCode = "NOT_FOUND"
	ErrorCode_ACQUISITION_FAILED ErrorCode = "ACQUISITION_FAILED"
	ErrorCode_TRANSCRIPTION      ErrorCode = "TRANSCRIPTION_FAILED"
	ErrorCode_PERSISTENCE        ErrorCode = "PERSISTENCE"
	ErrorCode_INTERNAL           ErrorCode = "INTERNAL"
)

func (c ErrorCode) String() string {
	return string(c)
}

// AppError is the custom error type carried across pipeline stages
type AppError struct {
	Raw       error
	Code      ErrorCode
	Message   string
	Details   map[string]string
	Retryable bool
}

// Error implements error interface
func (e AppError) Error() string {
	if e.Raw != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code.String(), e.Message, e.Raw)
	}
	return fmt.Sprintf("[%s] %s", e.Code.String(), e.Message)
}

// Unwrap exposes the wrapped error for errors.Is/As
func (e AppError) Unwrap() error {
	return e.Raw
}

// WithDetail adds a detail to the error
func (e AppError) WithDetail(key, value string) AppError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// Configuration Errors
func ErrConfig(message string) AppError {
	return AppError{
		Code:    ErrorCode_CONFIG,
		Message: message,
	}
}

// Authentication Errors

// ErrSignatureRejected means the meeting API refused the request signature.
// Retrying with the same canonical string cannot succeed.
func ErrSignatureRejected(body string) AppError {
	return AppError{
		Code:    ErrorCode_AUTH_REJECTED,
		Message: "Request signature rejected by meeting API",
	}.WithDetail("response", body)
}

// ErrUnauthorized covers 401/403: credentials not yet granted, or clock skew.
func ErrUnauthorized(status int) AppError {
	return AppError{
		Code:    ErrorCode_UNAUTHORIZED,
		Message: "Meeting API authorization failed",
	}.WithDetail("status", fmt.Sprintf("%d", status))
}

// Transient Errors
func ErrTransient(operation string, err error) AppError {
	return AppError{
		Raw:       err,
		Code:      ErrorCode_TRANSIENT,
		Message:   fmt.Sprintf("Transient failure: %s", operation),
		Retryable: true,
	}
}

// ErrNotReady means the recording has not finished server-side
// post-processing yet. Retryable with backoff.
func ErrNotReady(recordID string) AppError {
	return AppError{
		Code:      ErrorCode_NOT_READY,
		Message:   "Recording not ready for download",
		Retryable: true,
	}.WithDetail("record_id", recordID)
}

func ErrRecordingNotFound(recordID string) AppError {
	return AppError{
		Code:    ErrorCode_NOT_FOUND,
		Message: "Recording not found",
	}.WithDetail("record_id", recordID)
}

// Pipeline Stage Errors
func ErrAcquisitionFailed(recordID string, err error) AppError {
	return AppError{
		Raw:     err,
		Code:    ErrorCode_ACQUISITION_FAILED,
		Message: "Failed to acquire recording media",
	}.WithDetail("record_id", recordID)
}

func ErrTranscriptionFailed(err error) AppError {
	return AppError{
		Raw:       err,
		Code:      ErrorCode_TRANSCRIPTION,
		Message:   "Audio transcription failed",
		Retryable: true,
	}
}

// Persistence Errors
func ErrPersistence(operation string, err error) AppError {
	return AppError{
		Raw:     err,
		Code:    ErrorCode_PERSISTENCE,
		Message: fmt.Sprintf("Persistence failed: %s", operation),
	}
}

// CodeOf returns the ErrorCode of err, or ErrorCode_INTERNAL when err is not
// an AppError.
func CodeOf(err error) ErrorCode {
	var ae AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ErrorCode_INTERNAL
}

// IsRetryable reports whether retrying the failed call can succeed.
// Unclassified errors are treated as retryable transport failures.
func IsRetryable(err error) bool {
	var ae AppError
	if errors.As(err, &ae) {
		return ae.Retryable
	}
	return true
}

// IsNotReady reports whether err is the "still processing server-side" case.
func IsNotReady(err error) bool {
	return CodeOf(err) == ErrorCode_NOT_READY
}

// IsPersistence reports whether err indicates a storage problem. These are
// the only per-recording failures allowed to abort a whole run.
func IsPersistence(err error) bool {
	return CodeOf(err) == ErrorCode_PERSISTENCE
}
