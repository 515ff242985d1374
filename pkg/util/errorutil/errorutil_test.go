package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/spec-kit/clinic-queue/internal/domain"
)

func TestToDomainErrorMapsSentinels(t *testing.T) {
	cases := []struct {
		err    error
		code   string
		status int
	}{
		{domain.ErrProviderClosed, "PROVIDER_CLOSED", http.StatusConflict},
		{domain.ErrDuplicateActive, "DUPLICATE_ACTIVE_TICKET", http.StatusConflict},
		{domain.ErrCapacityExceeded, "CAPACITY_EXCEEDED", http.StatusConflict},
		{domain.ErrInsufficientTime, "INSUFFICIENT_TIME_REMAINING", http.StatusConflict},
		{domain.ErrNoWaitingTicket, "NO_WAITING_TICKET", http.StatusNotFound},
		{domain.ErrInvalidCredentials, "INVALID_CREDENTIALS", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		got := ToDomainError(tc.err)
		if got.Code != tc.code || got.HTTPStatus != tc.status {
			t.Errorf("ToDomainError(%v) = %s/%d, want %s/%d", tc.err, got.Code, got.HTTPStatus, tc.code, tc.status)
		}
	}
}

func TestToDomainErrorWrappedSentinel(t *testing.T) {
	wrapped := fmt.Errorf("issue ticket: %w", domain.ErrCapacityExceeded)
	got := ToDomainError(wrapped)
	if got.Code != "CAPACITY_EXCEEDED" {
		t.Errorf("code = %s", got.Code)
	}
	if !errors.Is(got, domain.ErrCapacityExceeded) {
		t.Error("mapped error should keep the sentinel in its chain")
	}
}

func TestToDomainErrorUnknownFallsBack(t *testing.T) {
	got := ToDomainError(errors.New("boom"))
	if got.Code != "INTERNAL_ERROR" || got.HTTPStatus != http.StatusInternalServerError {
		t.Errorf("got %s/%d", got.Code, got.HTTPStatus)
	}
}

func TestToDomainErrorPassesThrough(t *testing.T) {
	original := NewValidationError("bad", nil)
	got := ToDomainError(original)
	if got.Code != "VALIDATION_FAILED" || got.HTTPStatus != http.StatusBadRequest {
		t.Errorf("got %s/%d", got.Code, got.HTTPStatus)
	}
}
