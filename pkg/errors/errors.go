package errors

import (
	"fmt"
)

// ErrorCategory groups bank return codes by family
type ErrorCategory string

const (
	CategoryApproved    ErrorCategory = "approved"
	CategoryValidation  ErrorCategory = "validation"
	CategoryTransaction ErrorCategory = "transaction"
	CategoryRefund      ErrorCategory = "refund"
	CategoryLimit       ErrorCategory = "limit"
	CategoryAuth        ErrorCategory = "auth"
	CategoryTerminal    ErrorCategory = "terminal"
	CategorySecurity    ErrorCategory = "security"
	CategorySystem      ErrorCategory = "system"
	CategoryUnknown     ErrorCategory = "unknown"
)

// IsCritical reports whether the family points at configuration or gateway faults
// that should page someone rather than be shown to the customer.
func (c ErrorCategory) IsCritical() bool {
	switch c {
	case CategoryAuth, CategoryTerminal, CategorySecurity, CategorySystem:
		return true
	}
	return false
}

// IsUserFixable reports whether the customer can correct the input and retry
func (c ErrorCategory) IsUserFixable() bool {
	return c == CategoryValidation || c == CategoryLimit
}

// PaymentError represents a gateway-reported failure with its classification
type PaymentError struct {
	Code           string
	Message        string
	GatewayMessage string
	IsRetriable    bool
	IsCritical     bool
	IsUserFixable  bool
	HTTPStatus     int
	Category       ErrorCategory
	Details        map[string]interface{}
}

func (e *PaymentError) Error() string {
	if e.GatewayMessage != "" {
		return fmt.Sprintf("%s: %s (gateway: %s)", e.Code, e.Message, e.GatewayMessage)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewPaymentError creates a new payment error
func NewPaymentError(code, message string, category ErrorCategory, retriable bool) *PaymentError {
	return &PaymentError{
		Code:          code,
		Message:       message,
		Category:      category,
		IsRetriable:   retriable,
		IsCritical:    category.IsCritical(),
		IsUserFixable: category.IsUserFixable(),
		Details:       make(map[string]interface{}),
	}
}
