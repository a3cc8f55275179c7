// Package errors provides standardized error handling for BPMN workflow integration.
package errors

import (
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
	// Permanent session errors.
	ErrCodeUnsupportedTaxYear ErrorCode = "UNSUPPORTED_TAX_YEAR"

	// Stage errors surfaced by the assessment pipeline.
	ErrCodeInvalidFilingStatus   ErrorCode = "INVALID_FILING_STATUS"
	ErrCodeNoDocumentsFound      ErrorCode = "NO_DOCUMENTS_FOUND"
	ErrCodeExtractionQueryFailed ErrorCode = "EXTRACTION_QUERY_FAILED"
	ErrCodeAggregationFailed     ErrorCode = "AGGREGATION_FAILED"
	ErrCodeCalculationFailed     ErrorCode = "CALCULATION_FAILED"

	// Advisory capability errors (informational, never block completion).
	ErrCodeAdvisorTimeout    ErrorCode = "ADVISOR_TIMEOUT"
	ErrCodeAdvisorCallFailed ErrorCode = "ADVISOR_CALL_FAILED"

	// State store errors.
	ErrCodeStateLoadFailed ErrorCode = "STATE_LOAD_FAILED"
	ErrCodeStateSaveFailed ErrorCode = "STATE_SAVE_FAILED"
	ErrCodeStateConflict   ErrorCode = "STATE_CONFLICT"

	// Notification side channel.
	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
)

// StandardError represents a structured application error.
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

	if e.ErrorVariables != nil {
		for k, v := range e.ErrorVariables {
			vars[k] = v
		}
	}

	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

// NewUnsupportedTaxYearError creates the permanent, non-retryable session error.
func NewUnsupportedTaxYearError(taxYear, supportedYear string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnsupportedTaxYear,
		Message:   fmt.Sprintf("Tax year %s is not supported. This system only supports %s tax calculations.", taxYear, supportedYear),
		Details:   fmt.Sprintf("taxYear: %s", taxYear),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidFilingStatusError creates a non-retryable computation error.
func NewInvalidFilingStatusError(filingStatus string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidFilingStatus,
		Message:   "Filing status is not one of the supported set",
		Details:   fmt.Sprintf("filingStatus: %s", filingStatus),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNoDocumentsFoundError signals that aggregation ran before any extraction
// results existed. It resolves once documents are extracted and the caller
// re-invokes.
func NewNoDocumentsFoundError(sessionID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNoDocumentsFound,
		Message:   "No extraction results found for session",
		Details:   fmt.Sprintf("sessionId: %s", sessionID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewExtractionQueryFailedError creates a retryable extraction store error.
func NewExtractionQueryFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeExtractionQueryFailed,
		Message:   "Failed to read extraction results",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewAggregationFailedError wraps any other aggregation-stage failure.
func NewAggregationFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeAggregationFailed,
		Message:   "Income aggregation failed",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewCalculationFailedError wraps a computation-stage failure.
func NewCalculationFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCalculationFailed,
		Message:   "Tax calculation failed",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewAdvisorTimeoutError creates a retryable advisor timeout error.
func NewAdvisorTimeoutError() *StandardError {
	return &StandardError{
		Code:      ErrCodeAdvisorTimeout,
		Message:   "Advisory capability timeout",
		Details:   "Advisor call exceeded timeout threshold",
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewAdvisorCallFailedError creates a retryable advisor call error.
func NewAdvisorCallFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeAdvisorCallFailed,
		Message:   "Advisory capability call failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewStateLoadFailedError creates a retryable state store read error.
func NewStateLoadFailedError(sessionID string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeStateLoadFailed,
		Message:   "Failed to load workflow state",
		Details:   fmt.Sprintf("sessionId: %s, error: %s", sessionID, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewStateSaveFailedError creates a retryable state store write error.
func NewStateSaveFailedError(sessionID string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeStateSaveFailed,
		Message:   "Failed to persist workflow state",
		Details:   fmt.Sprintf("sessionId: %s, error: %s", sessionID, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewStateConflictError signals a lost optimistic-concurrency race on save.
// The whole run is idempotent, so the caller may retry it.
func NewStateConflictError(sessionID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeStateConflict,
		Message:   "Concurrent update detected for session state",
		Details:   fmt.Sprintf("sessionId: %s", sessionID),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotificationSendFailedError creates a retryable notification send error.
func NewNotificationSendFailedError(channel string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationSendFailed,
		Message:   "Notification delivery failed",
		Details:   fmt.Sprintf("channel: %s, error: %s", channel, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// Generic constructors

func NewBusinessRuleError(message, details string) *StandardError {
	return &StandardError{
		Code:      "BUSINESS_RULE_VIOLATION",
		Message:   message,
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewExternalServiceError(service string, err error) *StandardError {
	return &StandardError{
		Code:      "EXTERNAL_SERVICE_ERROR",
		Message:   fmt.Sprintf("External service '%s' error", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewTimeoutError(service string, err error) *StandardError {
	return &StandardError{
		Code:      "TIMEOUT_ERROR",
		Message:   fmt.Sprintf("Service '%s' timeout", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewResourceNotFoundError(service, details string) *StandardError {
	return &StandardError{
		Code:      "RESOURCE_NOT_FOUND",
		Message:   fmt.Sprintf("Resource not found in %s", service),
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewAuthenticationError(details string) *StandardError {
	return &StandardError{
		Code:      "AUTHENTICATION_ERROR",
		Message:   "Authentication failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to BPMN error codes (identical
// by convention, kept explicit so the BPMN diagrams have a single source).
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeUnsupportedTaxYear:     "UNSUPPORTED_TAX_YEAR",
	ErrCodeInvalidFilingStatus:    "INVALID_FILING_STATUS",
	ErrCodeNoDocumentsFound:       "NO_DOCUMENTS_FOUND",
	ErrCodeExtractionQueryFailed:  "EXTRACTION_QUERY_FAILED",
	ErrCodeAggregationFailed:      "AGGREGATION_FAILED",
	ErrCodeCalculationFailed:      "CALCULATION_FAILED",
	ErrCodeAdvisorTimeout:         "ADVISOR_TIMEOUT",
	ErrCodeAdvisorCallFailed:      "ADVISOR_CALL_FAILED",
	ErrCodeStateLoadFailed:        "STATE_LOAD_FAILED",
	ErrCodeStateSaveFailed:        "STATE_SAVE_FAILED",
	ErrCodeStateConflict:          "STATE_CONFLICT",
	ErrCodeNotificationSendFailed: "NOTIFICATION_SEND_FAILED",
}

// GetRetryCount returns the recommended retry count per error code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeExtractionQueryFailed,
		ErrCodeStateLoadFailed,
		ErrCodeStateSaveFailed,
		ErrCodeNotificationSendFailed,
		ErrCodeAdvisorCallFailed:
		return 3 // Retryable technical errors

	case ErrCodeStateConflict:
		return 2 // Lost races: the run is idempotent, retry is safe

	case ErrCodeAdvisorTimeout:
		return 1

	default:
		return 0 // Business errors: no retry
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code) // Fallback
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
	case strings.Contains(codeStr, "TAX_YEAR") || strings.Contains(codeStr, "FILING"):
		return "TAX_RULES"
	case strings.Contains(codeStr, "DOCUMENTS") || strings.Contains(codeStr, "EXTRACTION"):
		return "EXTRACTION"
	case strings.Contains(codeStr, "ADVISOR"):
		return "ADVISORY"
	case strings.Contains(codeStr, "STATE"):
		return "STATE_STORE"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "AGGREGATION") || strings.Contains(codeStr, "CALCULATION"):
		return "PIPELINE"
	default:
		return "OTHER"
	}
}
