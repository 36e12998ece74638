package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Machine-readable error codes.
const (
	CodeNotFound            = "NOT_FOUND"
	CodeInvalidState        = "INVALID_STATE"
	CodeInvalidTransition   = "INVALID_TRANSITION"
	CodeAlreadyProcessed    = "ALREADY_PROCESSED"
	CodeInvalidTime         = "INVALID_TIME"
	CodeGateBlocked         = "GATE_BLOCKED"
	CodeExternalAction      = "EXTERNAL_ACTION_FAILURE"
	CodePersistenceDegraded = "PERSISTENCE_DEGRADED"
	CodeInternal            = "INTERNAL"
)

// AppError represents a structured application error
type AppError struct {
	Code       string `json:"code"`             // Machine-readable error code
	Message    string `json:"message"`          // Human-readable message
	Detail     string `json:"detail,omitempty"` // Additional details
	HTTPStatus int    `json:"-"`                // HTTP status code
	Err        error  `json:"-"`                // Original error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds detail to the error
func (e *AppError) WithDetail(detail string) *AppError {
	e.Detail = detail
	return e
}

// --- Error constructors ---

// NewNotFound reports that a referenced entity does not exist.
func NewNotFound(entity string, id uint) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s #%d not found", entity, id),
		HTTPStatus: http.StatusNotFound,
	}
}

// NewInvalidState reports that an entity is not in a state from which the
// requested operation is legal.
func NewInvalidState(message string) *AppError {
	return &AppError{
		Code:       CodeInvalidState,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

// NewInvalidTransition reports a transition rejected by the lifecycle table.
// The stored status is left unchanged by the caller.
func NewInvalidTransition(current, target string) *AppError {
	return &AppError{
		Code:       CodeInvalidTransition,
		Message:    fmt.Sprintf("cannot transition from %s to %s", current, target),
		HTTPStatus: http.StatusConflict,
	}
}

// NewAlreadyProcessed reports a decision attempted on a non-pending record.
func NewAlreadyProcessed(message string) *AppError {
	return &AppError{
		Code:       CodeAlreadyProcessed,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

// NewInvalidTime reports a schedule time that is not strictly in the future.
func NewInvalidTime(message string) *AppError {
	return &AppError{
		Code:       CodeInvalidTime,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewGateBlocked reports a policy rejection from the control gate. It carries
// the current mode and pause flag so callers can explain the block.
func NewGateBlocked(mode string, paused bool) *AppError {
	return &AppError{
		Code:       CodeGateBlocked,
		Message:    fmt.Sprintf("automation disabled by system controls (mode=%s, paused=%t)", mode, paused),
		HTTPStatus: http.StatusLocked,
	}
}

// NewExternalAction reports a failure from the external publish collaborator.
func NewExternalAction(message string, err error) *AppError {
	return &AppError{
		Code:       CodeExternalAction,
		Message:    message,
		Err:        err,
		HTTPStatus: http.StatusBadGateway,
	}
}

// NewPersistenceDegraded reports that a state mutation took effect in memory
// but its durable write could not be confirmed. Distinct from outright
// failure: the logical action did occur.
func NewPersistenceDegraded(message string, err error) *AppError {
	return &AppError{
		Code:       CodePersistenceDegraded,
		Message:    message,
		Err:        err,
		HTTPStatus: http.StatusInternalServerError,
	}
}

// NewInternal wraps an unexpected error.
func NewInternal(message string, err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    message,
		Err:        err,
		HTTPStatus: http.StatusInternalServerError,
	}
}

// AsAppError attempts to convert an error to AppError
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err is an AppError carrying the given code.
func HasCode(err error, code string) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}
