// Package errors provides the standardized error taxonomy shared by the pipeline
// service, the HTTP API and the Zeebe job workers.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Pipeline errors
const (
	ErrCodeNotFound          ErrorCode = "NOT_FOUND"
	ErrCodeInvalidTransition ErrorCode = "INVALID_TRANSITION"
	ErrCodeConflict          ErrorCode = "CONFLICT"
	ErrCodeEmptyNote         ErrorCode = "EMPTY_NOTE"
	ErrCodeValidationFailed  ErrorCode = "VALIDATION_FAILED"
	ErrCodeStorageError      ErrorCode = "STORAGE_ERROR"
	ErrCodeTimeout           ErrorCode = "TIMEOUT"
)

// Access and fallback errors
const (
	ErrCodeUnauthorized  ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden     ErrorCode = "FORBIDDEN"
	ErrCodeInternalError ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
// Details carries the underlying cause and is never written to API clients.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}

	for k, v := range e.ErrorVariables {
		vars[k] = v
	}

	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

// NewNotFoundError reports a candidate that is absent or belongs to another tenant.
// The two cases are indistinguishable to callers.
func NewNotFoundError(resource, id string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotFound,
		Message:   fmt.Sprintf("%s not found", resource),
		Details:   fmt.Sprintf("id: %s", id),
		Retryable: false,
		Metadata:  map[string]interface{}{"id": id},
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidTransitionError creates a non-retryable stage transition error.
func NewInvalidTransitionError(from, to string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidTransition,
		Message:   fmt.Sprintf("Cannot move candidate from %s to %s", from, to),
		Retryable: false,
		Metadata:  map[string]interface{}{"from": from, "to": to},
		Timestamp: time.Now().UTC(),
	}
}

// NewConflictError reports a concurrent modification detected at write time.
func NewConflictError(id string, expectedVersion int64) *StandardError {
	return &StandardError{
		Code:      ErrCodeConflict,
		Message:   "Candidate was modified concurrently, reload and retry",
		Details:   fmt.Sprintf("id: %s, expectedVersion: %d", id, expectedVersion),
		Retryable: false,
		Metadata:  map[string]interface{}{"id": id},
		Timestamp: time.Now().UTC(),
	}
}

// NewEmptyNoteError creates a non-retryable note validation error.
func NewEmptyNoteError() *StandardError {
	return &StandardError{
		Code:      ErrCodeEmptyNote,
		Message:   "Note text is required",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewValidationError creates a non-retryable input validation error.
func NewValidationError(message string, fieldErrors []string) *StandardError {
	e := &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   message,
		Details:   strings.Join(fieldErrors, "; "),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
	if len(fieldErrors) > 0 {
		e.Metadata = map[string]interface{}{"errors": fieldErrors}
	}
	return e
}

// NewStorageError wraps a persistence failure. Safe to retry for reads only.
func NewStorageError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeStorageError,
		Message:   "Storage is temporarily unavailable",
		Details:   fmt.Sprintf("operation: %s, error: %v", operation, err),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewTimeoutError reports an operation that exceeded its deadline.
func NewTimeoutError(operation string, timeout time.Duration) *StandardError {
	return &StandardError{
		Code:      ErrCodeTimeout,
		Message:   fmt.Sprintf("Operation '%s' timed out", operation),
		Details:   fmt.Sprintf("timeout: %s", timeout),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewUnauthorizedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnauthorized,
		Message:   "Authentication required",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewForbiddenError(role string) *StandardError {
	return &StandardError{
		Code:      ErrCodeForbidden,
		Message:   "Role is not allowed to perform this action",
		Details:   fmt.Sprintf("role: %s", role),
		Retryable: false,
		Metadata:  map[string]interface{}{"role": role},
		Timestamp: time.Now().UTC(),
	}
}

func NewInternalError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInternalError,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to BPMN error codes caught by process models.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeNotFound:          "CANDIDATE_NOT_FOUND",
	ErrCodeInvalidTransition: "INVALID_STAGE_TRANSITION",
	ErrCodeConflict:          "CANDIDATE_CONFLICT",
	ErrCodeEmptyNote:         "EMPTY_NOTE",
	ErrCodeValidationFailed:  "VALIDATION_FAILED",
	ErrCodeStorageError:      "STORAGE_ERROR",
	ErrCodeTimeout:           "TIMEOUT",
	ErrCodeForbidden:         "FORBIDDEN",
}

// GetRetryCount returns the recommended job retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeStorageError:
		return 3

	case ErrCodeTimeout:
		return 2

	case ErrCodeConflict:
		// a fresh job attempt reloads the candidate
		return 1

	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}

	return &BPMNError{
		Code:           bpmnCode,
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      GetRetryCount(stdErr.Code) > 0,
		Retries:        GetRetryCount(stdErr.Code),
		ErrorVariables: vars,
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// HTTPStatus maps an error code to the status written by the API.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeInvalidTransition:
		return http.StatusUnprocessableEntity
	case ErrCodeConflict:
		return http.StatusConflict
	case ErrCodeEmptyNote, ErrCodeValidationFailed:
		return http.StatusBadRequest
	case ErrCodeStorageError:
		return http.StatusServiceUnavailable
	case ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// As extracts a *StandardError from err's chain.
func As(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code ErrorCode) bool {
	stdErr, ok := As(err)
	return ok && stdErr.Code == code
}

// Normalize returns err as a StandardError, wrapping unknown errors as INTERNAL_ERROR.
func Normalize(err error) *StandardError {
	if stdErr, ok := As(err); ok {
		return stdErr
	}
	return NewInternalError(err)
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	switch code {
	case ErrCodeInvalidTransition, ErrCodeConflict:
		return "PIPELINE"
	case ErrCodeEmptyNote, ErrCodeValidationFailed:
		return "VALIDATION"
	case ErrCodeStorageError, ErrCodeTimeout:
		return "INFRASTRUCTURE"
	case ErrCodeUnauthorized, ErrCodeForbidden:
		return "AUTH"
	case ErrCodeNotFound:
		return "LOOKUP"
	default:
		return "OTHER"
	}
}
