package mol

import (
	"errors"
	"fmt"
)

// Error is a categorized failure raised while building molecule documents.
//
// Build errors include:
//   - Malformed task identifiers: group identity cannot be established
//   - Missing source paths: a required rule found nothing to extract
//   - Grouping failures: the structural grouper returned an invalid partition
//   - Store failures: persistent I/O errors after retries were exhausted
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// TaskID identifies the affected task, if any.
	TaskID string

	// Key identifies the affected grouping key (formula), if any.
	Key string

	// Err is the underlying cause.
	Err error
}

// ErrorCode categorizes build errors.
type ErrorCode string

const (
	// ErrCodeMalformedTaskID indicates a task id that cannot be ordered.
	ErrCodeMalformedTaskID ErrorCode = "MALFORMED_TASK_ID"

	// ErrCodeMissingSourcePath indicates a non-optional rule found no value.
	ErrCodeMissingSourcePath ErrorCode = "MISSING_SOURCE_PATH"

	// ErrCodeGroupingFailed indicates the grouper failed or broke its contract.
	ErrCodeGroupingFailed ErrorCode = "GROUPING_FAILED"

	// ErrCodeEmptyGroup indicates an instance group with no tasks.
	ErrCodeEmptyGroup ErrorCode = "EMPTY_GROUP"

	// ErrCodeStoreUnavailable indicates store I/O failed after retries.
	ErrCodeStoreUnavailable ErrorCode = "STORE_UNAVAILABLE"

	// ErrCodeInvalidDocument indicates an assembled document that cannot be
	// written (for example an unreadable structure).
	ErrCodeInvalidDocument ErrorCode = "INVALID_DOCUMENT"
)

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Key != "" {
		msg += fmt.Sprintf(" (key=%s)", e.Key)
	}
	if e.TaskID != "" {
		msg += fmt.Sprintf(" (task=%s)", e.TaskID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// HasCode reports whether err (or anything it wraps) is an *Error with code.
func HasCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// IsMalformedTaskID returns true for MALFORMED_TASK_ID errors.
func IsMalformedTaskID(err error) bool {
	return HasCode(err, ErrCodeMalformedTaskID)
}

// IsStoreUnavailable returns true for STORE_UNAVAILABLE errors.
func IsStoreUnavailable(err error) bool {
	return HasCode(err, ErrCodeStoreUnavailable)
}

// IsGroupingFailed returns true for GROUPING_FAILED errors.
func IsGroupingFailed(err error) bool {
	return HasCode(err, ErrCodeGroupingFailed)
}

// NewMalformedTaskIDError creates an error for an unorderable task id.
func NewMalformedTaskIDError(taskID string) *Error {
	return &Error{
		Code:    ErrCodeMalformedTaskID,
		Message: fmt.Sprintf("task id %q is neither numeric nor <prefix>-<integer>", taskID),
		TaskID:  taskID,
	}
}

// NewMissingSourcePathError creates an error for a required rule miss.
func NewMissingSourcePathError(taskID, sourcePath string) *Error {
	return &Error{
		Code:    ErrCodeMissingSourcePath,
		Message: fmt.Sprintf("failed getting %s", sourcePath),
		TaskID:  taskID,
	}
}

// NewStoreError wraps a store failure that survived retries.
func NewStoreError(op string, err error) *Error {
	return &Error{
		Code:    ErrCodeStoreUnavailable,
		Message: op,
		Err:     err,
	}
}
