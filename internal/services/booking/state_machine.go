package booking

import (
	"fmt"

	"github.com/kevin07696/booking-payment-service/internal/domain"
)

// A declined refund returns the booking to CONFIRMED.
var transitions = map[domain.BookingStatus][]domain.BookingStatus{
	domain.BookingAwaitingPayment:   {domain.BookingPaymentInProgress, domain.BookingExpired, domain.BookingCancelled},
	domain.BookingPaymentInProgress: {domain.BookingConfirmed, domain.BookingFailed},
	domain.BookingConfirmed:         {domain.BookingRefundPending},
	domain.BookingRefundPending:     {domain.BookingRefunded, domain.BookingConfirmed},
}

// CanTransition reports whether from -> to is an edge of the payment state machine
func CanTransition(from, to domain.BookingStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ConflictError is the error returned when a booking in status cannot take the
// requested transition. It always names the current state.
func ConflictError(status domain.BookingStatus) *domain.DomainError {
	var err *domain.DomainError
	switch status {
	case domain.BookingExpired:
		err = domain.NewDomainError(domain.ErrorCodeBookingExpired, "booking has expired")
	case domain.BookingPaymentInProgress:
		err = domain.NewDomainError(domain.ErrorCodePaymentInProgress, "a payment for this booking is already in progress")
	case domain.BookingConfirmed:
		err = domain.NewDomainError(domain.ErrorCodeBookingAlreadyConfirmed, "booking is already confirmed")
	case domain.BookingRefunded:
		err = domain.NewDomainError(domain.ErrorCodeBookingAlreadyRefunded, "booking is already refunded")
	default:
		err = domain.NewDomainError(domain.ErrorCodeBookingInvalidState,
			fmt.Sprintf("booking is %s", status))
	}
	return err.WithDetail("current_state", string(status))
}
