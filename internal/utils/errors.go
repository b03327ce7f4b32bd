package utils

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind groups failures by how the caller should react.
type ErrorKind string

const (
	KindNotFound        ErrorKind = "not_found"
	KindValidation      ErrorKind = "validation"
	KindUnauthorized    ErrorKind = "unauthorized"
	KindConflict        ErrorKind = "conflict"
	KindOperationFailed ErrorKind = "operation_failed"
)

// Error codes carried by AppError.
const (
	CodePatientNotFound     = "PATIENT_NOT_FOUND"
	CodeRequestNotFound     = "REQUEST_NOT_FOUND"
	CodeAppointmentNotFound = "APPOINTMENT_NOT_FOUND"
	CodeDoctorNotFound      = "DOCTOR_NOT_FOUND"
	CodeNurseNotFound       = "NURSE_NOT_FOUND"
	CodeTaskNotFound        = "TASK_NOT_FOUND"
	CodeVitalsNotChecked    = "VITALS_NOT_CHECKED"
	CodeAlreadyScheduled    = "ALREADY_SCHEDULED"
	CodeInvalidTransition   = "INVALID_TRANSITION"
	CodeInvalidCredentials  = "INVALID_CREDENTIALS"
	CodeInvalidRole         = "INVALID_ROLE"
	CodeDuplicate           = "DUPLICATE"
	CodeValidation          = "VALIDATION_ERROR"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeOperationFailed     = "OPERATION_FAILED"
)

// AppError is the error type returned by the service layer. Message is safe
// to show to end users; Err carries the internal cause and is never rendered.
type AppError struct {
	Kind    ErrorKind
	Code    string
	Message string
	Fields  map[string]string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches on Code so callers can write errors.Is(err, utils.ErrVitalsNotChecked).
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// HTTPStatus maps the kind onto a response status.
func (e *AppError) HTTPStatus() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		if e.Code == CodeUnauthorized {
			return http.StatusForbidden
		}
		return http.StatusUnauthorized
	case KindConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// Sentinels for errors.Is comparisons.
var (
	ErrPatientNotFound     = NotFoundError(CodePatientNotFound, "Patient not found")
	ErrRequestNotFound     = NotFoundError(CodeRequestNotFound, "Appointment request not found")
	ErrAppointmentNotFound = NotFoundError(CodeAppointmentNotFound, "Appointment not found")
	ErrDoctorNotFound      = NotFoundError(CodeDoctorNotFound, "Doctor not found")
	ErrNurseNotFound       = NotFoundError(CodeNurseNotFound, "Nurse not found")
	ErrTaskNotFound        = NotFoundError(CodeTaskNotFound, "Task not found")
	ErrVitalsNotChecked    = ConflictError(CodeVitalsNotChecked, "Vitals must be recorded before starting the consultation")
	ErrAlreadyScheduled    = ConflictError(CodeAlreadyScheduled, "Appointment request has already been scheduled")
	ErrInvalidCredentials  = &AppError{Kind: KindUnauthorized, Code: CodeInvalidCredentials, Message: "Invalid credentials"}
	ErrInvalidRole         = &AppError{Kind: KindUnauthorized, Code: CodeInvalidRole, Message: "Invalid role"}
	ErrUnauthorized        = &AppError{Kind: KindUnauthorized, Code: CodeUnauthorized, Message: "Unauthorized"}
)

// NotFoundError builds a KindNotFound error.
func NotFoundError(code, message string) *AppError {
	return &AppError{Kind: KindNotFound, Code: code, Message: message}
}

// ConflictError builds a KindConflict error.
func ConflictError(code, message string) *AppError {
	return &AppError{Kind: KindConflict, Code: code, Message: message}
}

// ValidationError carries field-level messages back to the calling form.
func ValidationError(fields map[string]string) *AppError {
	return &AppError{Kind: KindValidation, Code: CodeValidation, Message: "Validation Error", Fields: fields}
}

// InvalidCredentials is ErrInvalidCredentials with a more specific message.
func InvalidCredentials(message string) *AppError {
	return &AppError{Kind: KindUnauthorized, Code: CodeInvalidCredentials, Message: message}
}

// InvalidTransition reports a state machine violation.
func InvalidTransition(message string) *AppError {
	return ConflictError(CodeInvalidTransition, message)
}

// OperationFailed hides a persistence error behind a user-facing message.
func OperationFailed(message string, cause error) *AppError {
	return &AppError{Kind: KindOperationFailed, Code: CodeOperationFailed, Message: message, Err: cause}
}

// AsAppError unwraps err into an AppError. Anything else becomes a generic
// OperationFailed so that internal detail never reaches the client.
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return OperationFailed("Something went wrong. Please try again.", err)
}
