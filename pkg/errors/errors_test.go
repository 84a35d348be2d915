package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatusCodes(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{NewNotFoundError("gone"), http.StatusNotFound},
		{NewValidationError("bad"), http.StatusBadRequest},
		{NewInvalidTransitionError("no"), http.StatusUnprocessableEntity},
		{NewInsufficientStockError("empty"), http.StatusConflict},
		{NewInsufficientFundsError("broke"), http.StatusUnprocessableEntity},
		{NewUnauthorizedError("who"), http.StatusUnauthorized},
		{NewForbiddenError("nope"), http.StatusForbidden},
		{NewConflictError("raced"), http.StatusConflict},
		{NewInternalError("boom"), http.StatusInternalServerError},
		{NewRateLimitedError("slow down"), http.StatusTooManyRequests},
		{errors.New("plain"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		if got := StatusCode(tc.err); got != tc.code {
			t.Errorf("StatusCode(%v) = %d, want %d", tc.err, got, tc.code)
		}
	}
}

func TestErrorsIsThroughWrapping(t *testing.T) {
	err := NewInsufficientFundsError("balance 10.00 does not cover 50.00")

	if !errors.Is(err, ErrInsufficientFunds) {
		t.Error("AppError should unwrap to its sentinel")
	}

	wrapped := fmt.Errorf("approve payout: %w", err)

	if !errors.Is(wrapped, ErrInsufficientFunds) {
		t.Error("wrapped AppError should still match the sentinel")
	}

	if StatusCode(wrapped) != http.StatusUnprocessableEntity {
		t.Error("StatusCode should see through wrapping")
	}
}

func TestErrorMessage(t *testing.T) {
	err := NewNotFoundError("order ord-123 not found")

	if err.Error() != "order ord-123 not found" {
		t.Errorf("Error() = %q", err.Error())
	}

	bare := &AppError{Err: ErrConflict}

	if bare.Error() != ErrConflict.Error() {
		t.Errorf("message-less AppError should fall back to the sentinel, got %q", bare.Error())
	}
}

func TestIsRetryable(t *testing.T) {
	if IsRetryable(NewValidationError("bad")) {
		t.Error("validation errors are not retryable")
	}

	if !IsRetryable(NewTemporaryError("blip")) {
		t.Error("temporary errors are retryable")
	}

	if !IsRetryable(fmt.Errorf("call failed: %w", ErrTimeout)) {
		t.Error("wrapped timeout sentinel is retryable")
	}
}

func TestWithContext(t *testing.T) {
	err := NewConflictError("raced").WithContext("orderID", "ord-1")

	if err.Context["orderID"] != "ord-1" {
		t.Error("context value not recorded")
	}
}
