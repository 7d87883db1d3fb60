package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a machine-readable error code
type ErrorCode string

const (
	// Validation Errors
	ErrorCodeValidationFailed      ErrorCode = "VALIDATION_FAILED"
	ErrorCodeRefundExceedsOriginal ErrorCode = "REFUND_EXCEEDS_ORIGINAL"
	ErrorCodeOriginalNotRefundable ErrorCode = "ORIGINAL_NOT_REFUNDABLE"
	ErrorCodeUnsupportedConversion ErrorCode = "UNSUPPORTED_CONVERSION"

	// Lookup Errors
	ErrorCodeBookingNotFound ErrorCode = "BOOKING_NOT_FOUND"
	ErrorCodeTxnNotFound     ErrorCode = "TRANSACTION_NOT_FOUND"

	// Booking State Conflicts
	ErrorCodeBookingExpired          ErrorCode = "BOOKING_EXPIRED"
	ErrorCodePaymentInProgress       ErrorCode = "PAYMENT_IN_PROGRESS"
	ErrorCodeBookingAlreadyConfirmed ErrorCode = "BOOKING_ALREADY_CONFIRMED"
	ErrorCodeBookingAlreadyRefunded  ErrorCode = "BOOKING_ALREADY_REFUNDED"
	ErrorCodeBookingInvalidState     ErrorCode = "BOOKING_INVALID_STATE"
	ErrorCodeRefundInProgress        ErrorCode = "REFUND_IN_PROGRESS"

	// Gateway Errors
	ErrorCodePaymentDeclined      ErrorCode = "PAYMENT_DECLINED"
	ErrorCodeSecurityHashMismatch ErrorCode = "SECURITY_HASH_MISMATCH"
	ErrorCodeGatewayProtocol      ErrorCode = "GATEWAY_PROTOCOL_ERROR"
	ErrorCodeGatewayTimeout       ErrorCode = "GATEWAY_TIMEOUT"
	ErrorCodeGatewayUnavailable   ErrorCode = "GATEWAY_UNAVAILABLE"

	// Internal Errors
	ErrorCodeInternalError ErrorCode = "INTERNAL_ERROR"
	ErrorCodeDatabaseError ErrorCode = "DATABASE_ERROR"
)

var defaultStatus = map[ErrorCode]int{
	ErrorCodeValidationFailed:        http.StatusBadRequest,
	ErrorCodeRefundExceedsOriginal:   http.StatusBadRequest,
	ErrorCodeOriginalNotRefundable:   http.StatusBadRequest,
	ErrorCodeUnsupportedConversion:   http.StatusBadRequest,
	ErrorCodeBookingNotFound:         http.StatusNotFound,
	ErrorCodeTxnNotFound:             http.StatusNotFound,
	ErrorCodeBookingExpired:          http.StatusBadRequest,
	ErrorCodePaymentInProgress:       http.StatusConflict,
	ErrorCodeBookingAlreadyConfirmed: http.StatusConflict,
	ErrorCodeBookingAlreadyRefunded:  http.StatusConflict,
	ErrorCodeBookingInvalidState:     http.StatusConflict,
	ErrorCodeRefundInProgress:        http.StatusConflict,
	ErrorCodePaymentDeclined:         http.StatusBadRequest,
	ErrorCodeSecurityHashMismatch:    http.StatusForbidden,
	ErrorCodeGatewayProtocol:         http.StatusInternalServerError,
	ErrorCodeGatewayTimeout:          http.StatusGatewayTimeout,
	ErrorCodeGatewayUnavailable:      http.StatusBadGateway,
	ErrorCodeInternalError:           http.StatusInternalServerError,
	ErrorCodeDatabaseError:           http.StatusInternalServerError,
}

// DomainError represents a structured domain error with error code and context
type DomainError struct {
	Err     error
	Details map[string]interface{}
	Code    ErrorCode
	Message string
	// Status overrides the code's default HTTP status when non-zero.
	Status int
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *DomainError) Unwrap() error {
	return e.Err
}

// WithDetail adds a detail field to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithStatus pins the HTTP status reported for this error
func (e *DomainError) WithStatus(status int) *DomainError {
	e.Status = status
	return e
}

// HTTPStatus returns the HTTP status the error maps to
func (e *DomainError) HTTPStatus() int {
	if e.Status != 0 {
		return e.Status
	}
	if status, ok := defaultStatus[e.Code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// Retryable reports whether the caller may retry with a fresh order id after reconciling
func (e *DomainError) Retryable() bool {
	switch e.Code {
	case ErrorCodeGatewayTimeout, ErrorCodeGatewayUnavailable:
		return true
	}
	if v, ok := e.Details["retryable"].(bool); ok {
		return v
	}
	return false
}

// NewDomainError creates a new domain error
func NewDomainError(code ErrorCode, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// WrapError wraps an existing error with a domain error code
func WrapError(code ErrorCode, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Err:     err,
	}
}

// NewValidationError reports malformed input for a single field
func NewValidationError(field, message string) *DomainError {
	return NewDomainError(ErrorCodeValidationFailed, message).WithDetail("field", field)
}

// IsDomainError checks if an error is a DomainError with the given code
func IsDomainError(err error, code ErrorCode) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error, returns empty string if not a DomainError
func GetErrorCode(err error) ErrorCode {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}

// HTTPStatus maps any error to an HTTP status. Non-domain errors are 500.
func HTTPStatus(err error) int {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.HTTPStatus()
	}
	return http.StatusInternalServerError
}

// IsNotFoundError checks if an error represents a "not found" condition
func IsNotFoundError(err error) bool {
	code := GetErrorCode(err)
	return code == ErrorCodeBookingNotFound || code == ErrorCodeTxnNotFound
}

// IsStateConflict checks if an error is a booking state conflict
func IsStateConflict(err error) bool {
	switch GetErrorCode(err) {
	case ErrorCodeBookingExpired, ErrorCodePaymentInProgress, ErrorCodeBookingAlreadyConfirmed,
		ErrorCodeBookingAlreadyRefunded, ErrorCodeBookingInvalidState:
		return true
	}
	return false
}

// Sentinel errors returned by repositories
var (
	ErrBookingNotFound     = errors.New("booking not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrDiscountNotFound    = errors.New("discount not found")
	ErrPreconditionFailed  = errors.New("conditional update matched no rows")
)
