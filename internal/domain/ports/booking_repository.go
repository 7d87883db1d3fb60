package ports

import (
	"context"
	"time"

	"github.com/kevin07696/booking-payment-service/internal/domain"
)

// StatusUpdate is a conditional booking transition. It applies only while the
// stored status equals From (and the stored order id equals MatchOrderID when set).
type StatusUpdate struct {
	BookingID    string
	MatchOrderID string
	From         domain.BookingStatus
	To           domain.BookingStatus

	// SetOrderID records a new active order id alongside the transition.
	SetOrderID string

	// SetDiscountID records the promotion applied to the attempt.
	SetDiscountID         string
	SetDiscountUserScoped bool
}

// BookingRepository persists booking payment state
type BookingRepository interface {
	// GetByID loads a booking with its pre-transaction
	GetByID(ctx context.Context, db DBTX, id string) (*domain.Booking, error)

	// GetByOrderID loads the booking whose active order id matches
	GetByOrderID(ctx context.Context, db DBTX, orderID string) (*domain.Booking, error)

	// TransitionStatus applies a conditional update. It returns
	// domain.ErrPreconditionFailed when no row matched.
	TransitionStatus(ctx context.Context, tx DBTX, update StatusUpdate, at time.Time) error
}
