package utils

import (
	"errors"
	"fmt"
	"net/http"
)

/*
   Sentinel errors for the application-workflow domain.
   Services return these (or the typed errors below, which wrap them)
   so controllers can do: if errors.Is(err, ErrXYZ) { ... }
*/
var (
	ErrNotFound          = errors.New("not_found")
	ErrRoleNotAuthorized = errors.New("role_not_authorized")
	ErrInvalidTransition = errors.New("invalid_transition")
	ErrDuplicateResource = errors.New("duplicate_resource")
	ErrOrderingViolation = errors.New("ordering_violation")
	ErrValidation        = errors.New("validation_error")

	ErrDuplicatePaymentRequest   = errors.New("duplicate_payment_request")
	ErrConflictingPaymentState   = errors.New("conflicting_payment_state")
	ErrAlreadySigned             = errors.New("already_signed")
	ErrDisclosureNotAcknowledged = errors.New("disclosure_not_acknowledged")

	// For concurrency conflicts
	ErrRowVersionConflict = errors.New("row_version_conflict")
	ErrNoRowsUpdated      = errors.New("no_rows_updated")

	// For external service failures (credit bureau, document generator)
	ErrExternalServiceFailure = errors.New("external_service_failure")
)

// MissingFieldError reports exactly which precondition field was absent,
// so the caller sees "income amount is required" rather than a generic
// validation failure.
type MissingFieldError struct {
	Field  string
	Reason string
}

func (e *MissingFieldError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("%s is required", e.Field)
}

func (e *MissingFieldError) Unwrap() error { return ErrValidation }

func NewMissingFieldError(field, reason string) error {
	return &MissingFieldError{Field: field, Reason: reason}
}

// TransitionError carries the offending status pair for logging and for
// the client-facing message.
type TransitionError struct {
	From string
	To   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot move application from %q to %q", e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// AppError for structured error handling from services to controllers.
type AppError struct {
	StatusCode int
	Code       string
	Message    string
	Err        error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// HandleAppError centralizes responding to AppErrors.
func HandleAppError(w http.ResponseWriter, err error) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		RespondErrorWithCode(w, appErr.StatusCode, appErr.Code, appErr.Message, nil, appErr.Err)
	} else {
		RespondErrorWithCode(w, http.StatusInternalServerError, ErrCodeInternal, "An unexpected error occurred", nil, err)
	}
}
