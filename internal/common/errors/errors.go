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

// Dispatch errors
const (
	ErrCodeMissingCoordinates       ErrorCode = "MISSING_COORDINATES"
	ErrCodeAppointmentNotFound      ErrorCode = "APPOINTMENT_NOT_FOUND"
	ErrCodeDoctorNotFound           ErrorCode = "DOCTOR_NOT_FOUND"
	ErrCodeAppointmentNotAssigned   ErrorCode = "APPOINTMENT_NOT_ASSIGNED"
	ErrCodeOrderOutOfRange          ErrorCode = "ORDER_OUT_OF_RANGE"
	ErrCodeNoSuggestions            ErrorCode = "NO_SUGGESTIONS"
	ErrCodeInvalidInput             ErrorCode = "INVALID_INPUT"
	ErrCodeSequenceInvariant        ErrorCode = "SEQUENCE_INVARIANT_VIOLATED"
	ErrCodeAssignmentConflict       ErrorCode = "ASSIGNMENT_CONFLICT"
	ErrCodeLockUnavailable          ErrorCode = "LOCK_UNAVAILABLE"
	ErrCodeSnapshotLoadFailed       ErrorCode = "SNAPSHOT_LOAD_FAILED"
	ErrCodePatchApplyFailed         ErrorCode = "PATCH_APPLY_FAILED"
	ErrCodeNotificationSendFailed   ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeInternal                 ErrorCode = "INTERNAL_ERROR"
	ErrCodeExternalService          ErrorCode = "EXTERNAL_SERVICE_ERROR"
	ErrCodeTimeout                  ErrorCode = "TIMEOUT_ERROR"
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

// WithMetadata attaches a key/value to the error and returns it.
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

func newError(code ErrorCode, message, details string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

// NewMissingCoordinatesError creates a non-retryable error for an appointment without location.
func NewMissingCoordinatesError(appointmentID string) *StandardError {
	return newError(ErrCodeMissingCoordinates, "Appointment has no coordinates",
		fmt.Sprintf("appointmentId: %s", appointmentID), false)
}

func NewAppointmentNotFoundError(appointmentID string) *StandardError {
	return newError(ErrCodeAppointmentNotFound, "Appointment not found",
		fmt.Sprintf("appointmentId: %s", appointmentID), false)
}

func NewDoctorNotFoundError(doctorName string) *StandardError {
	return newError(ErrCodeDoctorNotFound, "Doctor not found",
		fmt.Sprintf("doctorName: %s", doctorName), false)
}

func NewAppointmentNotAssignedError(appointmentID, doctorName string) *StandardError {
	return newError(ErrCodeAppointmentNotAssigned, "Appointment is not in the doctor's visit list",
		fmt.Sprintf("appointmentId: %s, doctorName: %s", appointmentID, doctorName), false)
}

func NewOrderOutOfRangeError(details string) *StandardError {
	return newError(ErrCodeOrderOutOfRange, "Requested visit order is out of range", details, false)
}

// NewNoSuggestionsError is returned when auto-selection finds no candidate doctor.
func NewNoSuggestionsError(appointmentID, reason string) *StandardError {
	return newError(ErrCodeNoSuggestions, "No doctor could be suggested",
		fmt.Sprintf("appointmentId: %s, reason: %s", appointmentID, reason), false)
}

// NewInvalidInputError creates a non-retryable validation error.
func NewInvalidInputError(details string) *StandardError {
	return newError(ErrCodeInvalidInput, "Invalid job input", details, false)
}

// NewSequenceInvariantError means the planned patches would leave a visit list broken. Nothing
// is persisted.
func NewSequenceInvariantError(err error) *StandardError {
	return newError(ErrCodeSequenceInvariant, "Planned change breaks visit ordering", err.Error(), false)
}

// NewAssignmentConflictError creates a retryable error for an appointment that moved while the
// operation was being planned.
func NewAssignmentConflictError(details string) *StandardError {
	return newError(ErrCodeAssignmentConflict, "Appointment changed concurrently", details, true)
}

func NewLockUnavailableError(doctorName string, err error) *StandardError {
	details := fmt.Sprintf("doctorName: %s", doctorName)
	if err != nil {
		details = fmt.Sprintf("%s, error: %s", details, err.Error())
	}
	return newError(ErrCodeLockUnavailable, "Doctor schedule is locked", details, true)
}

// NewSnapshotLoadFailedError creates a retryable database read error.
func NewSnapshotLoadFailedError(err error) *StandardError {
	return newError(ErrCodeSnapshotLoadFailed, "Failed to load appointments and doctors", err.Error(), true)
}

// NewPatchApplyFailedError creates a retryable database write error.
func NewPatchApplyFailedError(err error) *StandardError {
	return newError(ErrCodePatchApplyFailed, "Failed to persist visit changes", err.Error(), true)
}

// NewNotificationSendFailedError creates a retryable notification error.
func NewNotificationSendFailedError(notificationType string, err error) *StandardError {
	return newError(ErrCodeNotificationSendFailed, "Failed to send notification",
		fmt.Sprintf("type: %s, error: %s", notificationType, err.Error()), true)
}

// NewDatabaseConnectionFailedError creates a retryable database connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseConnectionFailed, "Database connection error", err.Error(), true)
}

// Generic constructors

func NewInternalError(err error) *StandardError {
	return newError(ErrCodeInternal, "Unexpected error", err.Error(), false)
}

func NewExternalServiceError(service string, err error) *StandardError {
	return newError(ErrCodeExternalService, fmt.Sprintf("External service '%s' error", service), err.Error(), true)
}

func NewTimeoutError(service string, err error) *StandardError {
	return newError(ErrCodeTimeout, fmt.Sprintf("Service '%s' timeout", service), err.Error(), true)
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to BPMN error codes. They are identical so that
// boundary events in the models can catch on the same names.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeMissingCoordinates:       "MISSING_COORDINATES",
	ErrCodeAppointmentNotFound:      "APPOINTMENT_NOT_FOUND",
	ErrCodeDoctorNotFound:           "DOCTOR_NOT_FOUND",
	ErrCodeAppointmentNotAssigned:   "APPOINTMENT_NOT_ASSIGNED",
	ErrCodeOrderOutOfRange:          "ORDER_OUT_OF_RANGE",
	ErrCodeNoSuggestions:            "NO_SUGGESTIONS",
	ErrCodeInvalidInput:             "INVALID_INPUT",
	ErrCodeSequenceInvariant:        "SEQUENCE_INVARIANT_VIOLATED",
	ErrCodeAssignmentConflict:       "ASSIGNMENT_CONFLICT",
	ErrCodeLockUnavailable:          "LOCK_UNAVAILABLE",
	ErrCodeSnapshotLoadFailed:       "SNAPSHOT_LOAD_FAILED",
	ErrCodePatchApplyFailed:         "PATCH_APPLY_FAILED",
	ErrCodeNotificationSendFailed:   "NOTIFICATION_SEND_FAILED",
	ErrCodeDatabaseConnectionFailed: "DATABASE_CONNECTION_FAILED",
}

// GetRetryCount returns the recommended retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeSnapshotLoadFailed,
		ErrCodePatchApplyFailed,
		ErrCodeDatabaseConnectionFailed,
		ErrCodeNotificationSendFailed,
		ErrCodeAssignmentConflict,
		ErrCodeExternalService:
		return 3

	case ErrCodeTimeout:
		return 2

	case ErrCodeLockUnavailable:
		return 5 // lock holders finish quickly

	default:
		return 0 // Business errors: no retry
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
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
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
	case strings.Contains(codeStr, "SNAPSHOT") || strings.Contains(codeStr, "PATCH") || strings.Contains(codeStr, "DATABASE"):
		return "DATABASE"
	case strings.Contains(codeStr, "LOCK") || strings.Contains(codeStr, "CONFLICT"):
		return "CONCURRENCY"
	case strings.Contains(codeStr, "NOT_FOUND") || strings.Contains(codeStr, "NOT_ASSIGNED"):
		return "LOOKUP"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "RANGE") || strings.Contains(codeStr, "COORDINATES"):
		return "VALIDATION"
	case strings.Contains(codeStr, "SUGGESTION") || strings.Contains(codeStr, "SEQUENCE"):
		return "DISPATCH"
	default:
		return "OTHER"
	}
}
