package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name:     "without underlying error",
			appErr:   NotFound("Tour"),
			expected: "NOT_FOUND: Tour not found",
		},
		{
			name:     "with underlying error",
			appErr:   Internal("internal error", errors.New("mongo down")),
			expected: "INTERNAL_ERROR: internal error (caused by: mongo down)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.appErr.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	appErr := UnavailableWithCause("Lock store", cause)

	if !errors.Is(appErr, cause) {
		t.Errorf("errors.Is should find the wrapped cause")
	}
	if appErr.StatusCode() != http.StatusServiceUnavailable {
		t.Errorf("StatusCode() = %d, want %d", appErr.StatusCode(), http.StatusServiceUnavailable)
	}
}

func TestAppError_StatusCodeDefaultsToInternal(t *testing.T) {
	err := &AppError{Code: "CUSTOM"}
	if err.StatusCode() != http.StatusInternalServerError {
		t.Errorf("StatusCode() = %d, want %d", err.StatusCode(), http.StatusInternalServerError)
	}
}

func TestContentionAndCapacityAreDistinguishable(t *testing.T) {
	busy := BookingInProgress("Another booking is in progress")
	full := InsufficientCapacity(3, 2)

	if busy.Code == full.Code {
		t.Fatalf("contention and capacity must carry different codes")
	}
	if !busy.Retryable() {
		t.Errorf("contention must be retryable")
	}
	if full.Retryable() {
		t.Errorf("capacity must not be retryable")
	}
	if busy.StatusCode() != http.StatusConflict {
		t.Errorf("contention status = %d, want %d", busy.StatusCode(), http.StatusConflict)
	}
	if full.StatusCode() != http.StatusUnprocessableEntity {
		t.Errorf("capacity status = %d, want %d", full.StatusCode(), http.StatusUnprocessableEntity)
	}
	if full.Details["requested"] != 3 || full.Details["available"] != 2 {
		t.Errorf("capacity details = %v", full.Details)
	}
}

func TestHasCode(t *testing.T) {
	wrapped := fmt.Errorf("create booking: %w", BookingInProgress("busy"))

	if !HasCode(wrapped, CodeBookingInProgress) {
		t.Errorf("HasCode should see through fmt.Errorf wrapping")
	}
	if HasCode(wrapped, CodeInsufficientCapacity) {
		t.Errorf("HasCode matched the wrong code")
	}
	if HasCode(errors.New("plain"), CodeInternal) {
		t.Errorf("HasCode matched a non-AppError")
	}
}

func TestAsAppError(t *testing.T) {
	appErr := NotFoundWithID("Booking", "abc")
	regularErr := errors.New("regular error")

	if got := AsAppError(appErr); got != appErr {
		t.Errorf("AsAppError() should return same AppError")
	}
	if got := AsAppError(fmt.Errorf("wrapped: %w", appErr)); got != appErr {
		t.Errorf("AsAppError() should unwrap to the AppError")
	}

	result := AsAppError(regularErr)
	if result.Code != CodeInternal {
		t.Errorf("AsAppError() should wrap regular error as internal error")
	}
	if result.Err != regularErr {
		t.Errorf("AsAppError() should wrap the original error")
	}
}

func TestAppError_Response(t *testing.T) {
	resp := NotFoundWithID("Tour", "t-1").Response()

	if resp.Code != CodeNotFound {
		t.Errorf("expected code %s, got %s", CodeNotFound, resp.Code)
	}
	if resp.Details["id"] != "t-1" {
		t.Errorf("expected id detail 't-1', got %v", resp.Details["id"])
	}
}
