// Package errors provides the advisor error taxonomy and its BPMN mapping.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeInputValidationFailed     ErrorCode = "INPUT_VALIDATION_FAILED"
	ErrCodeRestaurantNotFound        ErrorCode = "RESTAURANT_NOT_FOUND"
	ErrCodeClassificationUnavailable ErrorCode = "CLASSIFICATION_UNAVAILABLE"
	ErrCodeAIRequestFailed           ErrorCode = "AI_REQUEST_FAILED"
	ErrCodeAITimeout                 ErrorCode = "AI_TIMEOUT"
	ErrCodeLocationUnavailable       ErrorCode = "LOCATION_UNAVAILABLE"
	ErrCodePreferencesStorageFailed  ErrorCode = "PREFERENCES_STORAGE_FAILED"
	ErrCodeBrokerUnavailable         ErrorCode = "BROKER_UNAVAILABLE"
	ErrCodeInvalidTransition         ErrorCode = "INVALID_TRANSITION"
	ErrCodeInternal                  ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error. Message is short
// and suitable for showing to the user.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *StandardError) Unwrap() error {
	return e.cause
}

// WithCause attaches err as the unwrapped cause of e.
func (e *StandardError) WithCause(err error) *StandardError {
	e.cause = err
	return e
}

// WithMetadata returns e after setting a metadata key.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
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

func newError(code ErrorCode, message, details string, retryable bool, cause error) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// NewInputValidationError creates a non-retryable validation error. The
// message is shown to the user as is.
func NewInputValidationError(message, details string) *StandardError {
	return newError(ErrCodeInputValidationFailed, message, details, false, nil)
}

// NewRestaurantNotFoundError is returned when a lookup yields no usable restaurant.
func NewRestaurantNotFoundError(message, details string) *StandardError {
	if message == "" {
		message = "Could not find restaurant or menu."
	}
	return newError(ErrCodeRestaurantNotFound, message, details, false, nil)
}

// NewClassificationUnavailableError covers both an unparseable and an empty
// classification response.
func NewClassificationUnavailableError(message, details string) *StandardError {
	if message == "" {
		message = "Analysis failed."
	}
	return newError(ErrCodeClassificationUnavailable, message, details, false, nil)
}

// NewAIRequestFailedError wraps a transport failure.
func NewAIRequestFailedError(operation string, err error) *StandardError {
	return newError(ErrCodeAIRequestFailed, "AI request failed",
		fmt.Sprintf("operation: %s, error: %v", operation, err), true, err)
}

// NewAITimeoutError wraps a deadline hit while waiting for the AI backend.
func NewAITimeoutError(operation string, err error) *StandardError {
	return newError(ErrCodeAITimeout, "AI request timed out",
		fmt.Sprintf("operation: %s, error: %v", operation, err), true, err)
}

// NewLocationUnavailableError reports a geolocation failure.
func NewLocationUnavailableError(message string, err error) *StandardError {
	details := ""
	if err != nil {
		details = err.Error()
	}
	return newError(ErrCodeLocationUnavailable, message, details, false, err)
}

// NewPreferencesStorageError wraps a persistence failure.
func NewPreferencesStorageError(key string, err error) *StandardError {
	return newError(ErrCodePreferencesStorageFailed, "Could not save preferences",
		fmt.Sprintf("key: %s, error: %v", key, err), true, err)
}

// NewBrokerUnavailableError wraps a transient workflow-engine failure.
func NewBrokerUnavailableError(operation string, err error) *StandardError {
	return newError(ErrCodeBrokerUnavailable, "Workflow engine unavailable",
		fmt.Sprintf("operation: %s, error: %v", operation, err), true, err)
}

// NewInvalidTransitionError reports a trigger issued from the wrong state.
func NewInvalidTransitionError(from, trigger string) *StandardError {
	return newError(ErrCodeInvalidTransition, "Action not available right now",
		fmt.Sprintf("trigger %s not allowed from %s", trigger, from), false, nil)
}

// NewInternalError wraps an unexpected error.
func NewInternalError(err error) *StandardError {
	return newError(ErrCodeInternal, "Unexpected error", err.Error(), false, err)
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to BPMN error codes.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeInputValidationFailed:     "INPUT_VALIDATION_FAILED",
	ErrCodeRestaurantNotFound:        "RESTAURANT_NOT_FOUND",
	ErrCodeClassificationUnavailable: "CLASSIFICATION_UNAVAILABLE",
	ErrCodeAIRequestFailed:           "AI_REQUEST_FAILED",
	ErrCodeAITimeout:                 "AI_TIMEOUT",
	ErrCodeLocationUnavailable:       "LOCATION_UNAVAILABLE",
	ErrCodePreferencesStorageFailed:  "PREFERENCES_STORAGE_FAILED",
}

// GetRetryCount returns the job retry count for an error code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeAIRequestFailed,
		ErrCodePreferencesStorageFailed,
		ErrCodeBrokerUnavailable:
		return 3

	case ErrCodeAITimeout:
		return 2

	default:
		return 0 // business outcomes: thrown, never retried
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      bpmnCode,
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.HasPrefix(codeStr, "AI_"):
		return "AI"
	case strings.Contains(codeStr, "RESTAURANT") || strings.Contains(codeStr, "CLASSIFICATION"):
		return "ADVISOR"
	case strings.Contains(codeStr, "LOCATION"):
		return "LOCATION"
	case strings.Contains(codeStr, "BROKER"):
		return "BROKER"
	case strings.Contains(codeStr, "PREFERENCES"):
		return "STORAGE"
	case strings.Contains(codeStr, "VALIDATION") || strings.Contains(codeStr, "TRANSITION"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}

// AsStandardError extracts a StandardError from an error chain.
func AsStandardError(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// CodeOf returns the error code in err's chain, or ErrCodeInternal.
func CodeOf(err error) ErrorCode {
	if stdErr, ok := AsStandardError(err); ok {
		return stdErr.Code
	}
	return ErrCodeInternal
}

// UserMessage returns the message to present for err, or fallback when err
// carries no StandardError.
func UserMessage(err error, fallback string) string {
	if stdErr, ok := AsStandardError(err); ok && stdErr.Message != "" {
		return stdErr.Message
	}
	return fallback
}
