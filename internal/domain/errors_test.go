package domain

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_HTTPStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", NewValidationError("amount", "amount must be positive"), http.StatusBadRequest},
		{"booking not found", NewDomainError(ErrorCodeBookingNotFound, "booking not found"), http.StatusNotFound},
		{"expired", NewDomainError(ErrorCodeBookingExpired, "booking expired"), http.StatusBadRequest},
		{"in progress", NewDomainError(ErrorCodePaymentInProgress, "in progress"), http.StatusConflict},
		{"confirmed", NewDomainError(ErrorCodeBookingAlreadyConfirmed, "confirmed"), http.StatusConflict},
		{"hash mismatch", NewDomainError(ErrorCodeSecurityHashMismatch, "bad hash"), http.StatusForbidden},
		{"timeout", NewDomainError(ErrorCodeGatewayTimeout, "timeout"), http.StatusGatewayTimeout},
		{"declined with override", NewDomainError(ErrorCodePaymentDeclined, "limit").WithStatus(http.StatusTooManyRequests), http.StatusTooManyRequests},
		{"wrapped", fmt.Errorf("outer: %w", NewDomainError(ErrorCodeBookingNotFound, "x")), http.StatusNotFound},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, HTTPStatus(tt.err))
		})
	}
}

func TestDomainError_Retryable(t *testing.T) {
	assert.True(t, NewDomainError(ErrorCodeGatewayTimeout, "t").Retryable())
	assert.True(t, NewDomainError(ErrorCodeGatewayUnavailable, "u").Retryable())
	assert.False(t, NewDomainError(ErrorCodePaymentDeclined, "d").Retryable())
	assert.True(t, NewDomainError(ErrorCodePaymentDeclined, "d").WithDetail("retryable", true).Retryable())
}

func TestDomainError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := WrapError(ErrorCodeDatabaseError, "load booking", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "DATABASE_ERROR")
	assert.True(t, IsDomainError(err, ErrorCodeDatabaseError))
	assert.Equal(t, ErrorCodeDatabaseError, GetErrorCode(err))
	assert.Equal(t, ErrorCode(""), GetErrorCode(cause))
}

func TestIsStateConflict(t *testing.T) {
	assert.True(t, IsStateConflict(NewDomainError(ErrorCodeBookingExpired, "")))
	assert.True(t, IsStateConflict(NewDomainError(ErrorCodeBookingInvalidState, "")))
	assert.False(t, IsStateConflict(NewDomainError(ErrorCodeBookingNotFound, "")))
	assert.True(t, IsNotFoundError(NewDomainError(ErrorCodeTxnNotFound, "")))
}
