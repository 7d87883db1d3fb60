package ports

import (
	"context"
	"time"
)

// PaymentEventType names a booking payment lifecycle event
type PaymentEventType string

const (
	EventPaymentConfirmed PaymentEventType = "payment.confirmed"
	EventPaymentFailed    PaymentEventType = "payment.failed"
	EventBookingExpired   PaymentEventType = "booking.expired"
	EventBookingRefunded  PaymentEventType = "booking.refunded"
)

// PaymentEvent is published once per real state transition for the notification sender
type PaymentEvent struct {
	ID         string           `json:"id"`
	Type       PaymentEventType `json:"type"`
	BookingID  string           `json:"bookingId"`
	UserID     string           `json:"userId,omitempty"`
	OrderID    string           `json:"orderId,omitempty"`
	Amount     int64            `json:"amount"`
	Currency   string           `json:"currency"`
	ReturnCode string           `json:"returnCode,omitempty"`
	OccurredAt time.Time        `json:"occurredAt"`
}

// EventPublisher delivers lifecycle events
type EventPublisher interface {
	Publish(ctx context.Context, event PaymentEvent) error
	Close() error
}
