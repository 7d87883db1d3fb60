package ports

import (
	"context"
	"time"

	"github.com/kevin07696/booking-payment-service/internal/domain"
)

// DiscountRepository reads and redeems promotion codes
type DiscountRepository interface {
	// GetByCode loads a general discount by its upper-cased code
	GetByCode(ctx context.Context, db DBTX, code string) (*domain.Discount, error)

	// GetUserDiscountByCode loads a discount owned by userID
	GetUserDiscountByCode(ctx context.Context, db DBTX, userID, code string) (*domain.UserDiscount, error)

	// IncrementUsage bumps used_count while it stays within the usage limit.
	// Returns domain.ErrPreconditionFailed when the limit is reached.
	IncrementUsage(ctx context.Context, tx DBTX, discountID string) error

	// MarkUserDiscountUsed stamps a single-use user discount with the booking that consumed it
	MarkUserDiscountUsed(ctx context.Context, tx DBTX, discountID, bookingID string, at time.Time) error
}
