package ports

import (
	"context"

	"github.com/kevin07696/booking-payment-service/internal/domain"
)

// LedgerRepository is the append-only settlement ledger
type LedgerRepository interface {
	// Append inserts an entry. It returns false when an entry for the same
	// order id, kind and flow already exists from a callback replay.
	Append(ctx context.Context, tx DBTX, entry *domain.LedgerEntry) (bool, error)

	// ListByOrderID returns entries for an order id in insertion order
	ListByOrderID(ctx context.Context, db DBTX, orderID string) ([]*domain.LedgerEntry, error)

	// LockOrder serializes writers of one order id until tx ends. tx must not be nil.
	LockOrder(ctx context.Context, tx DBTX, orderID string) error

	// Resolve writes the verdict onto a PENDING entry. Returns
	// domain.ErrPreconditionFailed when the entry is not PENDING.
	Resolve(ctx context.Context, db DBTX, entry *domain.LedgerEntry) error
}
