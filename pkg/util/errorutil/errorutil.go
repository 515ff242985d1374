package errorutil

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/spec-kit/clinic-queue/internal/domain"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError("VALIDATION_FAILED", message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError("UNAUTHORIZED", message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError("FORBIDDEN", message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError("CONFLICT", message, http.StatusConflict, details)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// queueFailures maps coordinator sentinel errors onto stable response
// codes. Every message doubles as a user-facing reason string.
var queueFailures = []struct {
	err    error
	code   string
	status int
}{
	{domain.ErrProviderClosed, "PROVIDER_CLOSED", http.StatusConflict},
	{domain.ErrDuplicateActive, "DUPLICATE_ACTIVE_TICKET", http.StatusConflict},
	{domain.ErrCapacityExceeded, "CAPACITY_EXCEEDED", http.StatusConflict},
	{domain.ErrInsufficientTime, "INSUFFICIENT_TIME_REMAINING", http.StatusConflict},
	{domain.ErrAlreadyServing, "ALREADY_SERVING", http.StatusConflict},
	{domain.ErrNoWaitingTicket, "NO_WAITING_TICKET", http.StatusNotFound},
	{domain.ErrInvalidTicketState, "INVALID_TICKET_STATE", http.StatusConflict},
	{domain.ErrTicketNotFound, "TICKET_NOT_FOUND", http.StatusNotFound},
	{domain.ErrNoActiveTicket, "NO_ACTIVE_TICKET", http.StatusNotFound},
	{domain.ErrProviderNotFound, "PROVIDER_NOT_FOUND", http.StatusNotFound},
	{domain.ErrScheduleNotFound, "SCHEDULE_NOT_FOUND", http.StatusNotFound},
	{domain.ErrStaffNotFound, "STAFF_NOT_FOUND", http.StatusNotFound},
	{domain.ErrInvalidCredentials, "INVALID_CREDENTIALS", http.StatusUnauthorized},
	{domain.ErrStoreUnavailable, "STORE_UNAVAILABLE", http.StatusServiceUnavailable},
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	for _, failure := range queueFailures {
		if errors.Is(err, failure.err) {
			return &DomainError{
				Code:       failure.code,
				Message:    failure.err.Error(),
				HTTPStatus: failure.status,
				Err:        err,
			}
		}
	}
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func MapError(err error) error {
	return ToDomainError(err)
}
