package domain

import "time"

// BookingStatus is the payment state of a booking
type BookingStatus string

const (
	BookingAwaitingPayment   BookingStatus = "AWAITING_PAYMENT"
	BookingPaymentInProgress BookingStatus = "PAYMENT_IN_PROGRESS"
	BookingConfirmed         BookingStatus = "CONFIRMED"
	BookingFailed            BookingStatus = "FAILED"
	BookingExpired           BookingStatus = "EXPIRED"
	BookingCancelled         BookingStatus = "CANCELLED"
	BookingRefundPending     BookingStatus = "REFUND_PENDING"
	BookingRefunded          BookingStatus = "REFUNDED"
)

// IsTerminal reports whether no further transition may leave the status
func (s BookingStatus) IsTerminal() bool {
	switch s {
	case BookingFailed, BookingExpired, BookingCancelled, BookingRefunded:
		return true
	}
	return false
}

// Booking is the payment-side view of a booking created by the inventory flow.
type Booking struct {
	ID       string        `json:"id"`
	UserID   string        `json:"userId,omitempty"`
	Status   BookingStatus `json:"status"`
	OrderID  string        `json:"orderId,omitempty"`
	Amount   Amount        `json:"amount"`
	Currency Currency      `json:"currency"`

	PreTransactionID string          `json:"preTransactionId,omitempty"`
	PreTransaction   *PreTransaction `json:"preTransaction,omitempty"`

	DiscountID         string `json:"discountId,omitempty"`
	DiscountUserScoped bool   `json:"discountUserScoped,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// PreTransaction tracks the inventory-side hold backing a booking
type PreTransaction struct {
	ID                 string    `json:"id"`
	ExpiresAt          time.Time `json:"expiresAt"`
	LastGatewaySuccess bool      `json:"lastGatewaySuccess"`
}

// IsExpired reports whether the hold lapsed before now
func (p *PreTransaction) IsExpired(now time.Time) bool {
	return p != nil && !p.ExpiresAt.IsZero() && p.ExpiresAt.Before(now)
}
