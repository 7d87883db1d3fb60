// Package memstore provides in-memory repositories for service tests. Conditional
// updates are atomic under one mutex, matching the SQL `WHERE status = ...` contract.
// Transactions run one at a time, so LockOrder needs no lock of its own.
// Transactions do not roll back.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kevin07696/booking-payment-service/internal/domain"
	"github.com/kevin07696/booking-payment-service/internal/domain/ports"
)

// Store holds bookings, ledger entries and discounts
type Store struct {
	txMu          sync.Mutex
	mu            sync.Mutex
	bookings      map[string]*domain.Booking
	ledger        []*domain.LedgerEntry
	discounts     map[string]*domain.Discount
	userDiscounts map[string]*domain.UserDiscount

	// TxErr, when set, is returned by WithTransaction after fn succeeds.
	TxErr error
}

var (
	_ ports.DBPort             = (*Store)(nil)
	_ ports.BookingRepository  = (*Store)(nil)
	_ ports.LedgerRepository   = (*Store)(nil)
	_ ports.DiscountRepository = (*Store)(nil)
)

// New creates an empty store
func New() *Store {
	return &Store{
		bookings:      make(map[string]*domain.Booking),
		discounts:     make(map[string]*domain.Discount),
		userDiscounts: make(map[string]*domain.UserDiscount),
	}
}

// GetDB has no pool behind it
func (s *Store) GetDB() *pgxpool.Pool { return nil }

// WithTransaction runs fn with a nil tx, serialized against other transactions
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	if err := fn(ctx, nil); err != nil {
		return err
	}
	return s.TxErr
}

// WithReadOnlyTransaction runs fn with a nil tx
func (s *Store) WithReadOnlyTransaction(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	return fn(ctx, nil)
}

// PutBooking stores a copy of b
func (s *Store) PutBooking(b *domain.Booking) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bookings[b.ID] = copyBooking(b)
}

// Booking returns a copy of the stored booking
func (s *Store) Booking(id string) *domain.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.bookings[id]; ok {
		return copyBooking(b)
	}
	return nil
}

// GetByID implements ports.BookingRepository
func (s *Store) GetByID(_ context.Context, _ ports.DBTX, id string) (*domain.Booking, error) {
	if b := s.Booking(id); b != nil {
		return b, nil
	}
	return nil, domain.ErrBookingNotFound
}

// GetByOrderID implements ports.BookingRepository
func (s *Store) GetByOrderID(_ context.Context, _ ports.DBTX, orderID string) (*domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.bookings {
		if orderID != "" && b.OrderID == orderID {
			return copyBooking(b), nil
		}
	}
	return nil, domain.ErrBookingNotFound
}

// TransitionStatus implements ports.BookingRepository
func (s *Store) TransitionStatus(_ context.Context, _ ports.DBTX, update ports.StatusUpdate, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[update.BookingID]
	if !ok || b.Status != update.From {
		return domain.ErrPreconditionFailed
	}
	if update.MatchOrderID != "" && b.OrderID != update.MatchOrderID {
		return domain.ErrPreconditionFailed
	}
	b.Status = update.To
	if update.SetOrderID != "" {
		b.OrderID = update.SetOrderID
	}
	if update.SetDiscountID != "" {
		b.DiscountID = update.SetDiscountID
		b.DiscountUserScoped = update.SetDiscountUserScoped
	}
	b.UpdatedAt = at
	if update.To == domain.BookingConfirmed && b.PreTransaction != nil {
		b.PreTransaction.LastGatewaySuccess = true
	}
	return nil
}

// Append implements ports.LedgerRepository
func (s *Store) Append(_ context.Context, _ ports.DBTX, entry *domain.LedgerEntry) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry.Flow == domain.FlowRedirect {
		for _, e := range s.ledger {
			if e.OrderID == entry.OrderID && e.Kind == entry.Kind && e.Flow == entry.Flow {
				return false, nil
			}
		}
	}
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	stored := *entry
	s.ledger = append(s.ledger, &stored)
	return true, nil
}

// ListByOrderID implements ports.LedgerRepository
func (s *Store) ListByOrderID(_ context.Context, _ ports.DBTX, orderID string) ([]*domain.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.LedgerEntry
	for _, e := range s.ledger {
		if e.OrderID == orderID {
			c := *e
			out = append(out, &c)
		}
	}
	return out, nil
}

// LockOrder implements ports.LedgerRepository
func (s *Store) LockOrder(_ context.Context, _ ports.DBTX, _ string) error {
	return nil
}

// Resolve implements ports.LedgerRepository
func (s *Store) Resolve(_ context.Context, _ ports.DBTX, entry *domain.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.ledger {
		if e.ID != entry.ID {
			continue
		}
		if e.Status != domain.TransactionStatusPending {
			return domain.ErrPreconditionFailed
		}
		e.Status = entry.Status
		e.ReturnCode = entry.ReturnCode
		e.AuthCode = entry.AuthCode
		e.HostRefNum = entry.HostRefNum
		e.Message = entry.Message
		return nil
	}
	return domain.ErrPreconditionFailed
}

// Entries returns a copy of the whole ledger
func (s *Store) Entries() []domain.LedgerEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.LedgerEntry, 0, len(s.ledger))
	for _, e := range s.ledger {
		out = append(out, *e)
	}
	return out
}

// PutDiscount stores a general discount under its normalized code
func (s *Store) PutDiscount(d domain.Discount) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	d.Code = domain.NormalizeCode(d.Code)
	s.discounts[d.Code] = &d
}

// PutUserDiscount stores a user-scoped discount
func (s *Store) PutUserDiscount(ud domain.UserDiscount) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ud.ID == "" {
		ud.ID = uuid.New().String()
	}
	ud.Code = domain.NormalizeCode(ud.Code)
	s.userDiscounts[userKey(ud.UserID, ud.Code)] = &ud
}

// Discount returns a copy of a general discount
func (s *Store) Discount(code string) *domain.Discount {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.discounts[domain.NormalizeCode(code)]; ok {
		c := *d
		return &c
	}
	return nil
}

// UserDiscount returns a copy of a user-scoped discount
func (s *Store) UserDiscount(userID, code string) *domain.UserDiscount {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ud, ok := s.userDiscounts[userKey(userID, domain.NormalizeCode(code))]; ok {
		c := *ud
		return &c
	}
	return nil
}

// GetByCode implements ports.DiscountRepository
func (s *Store) GetByCode(_ context.Context, _ ports.DBTX, code string) (*domain.Discount, error) {
	if d := s.Discount(code); d != nil {
		return d, nil
	}
	return nil, domain.ErrDiscountNotFound
}

// GetUserDiscountByCode implements ports.DiscountRepository
func (s *Store) GetUserDiscountByCode(_ context.Context, _ ports.DBTX, userID, code string) (*domain.UserDiscount, error) {
	if ud := s.UserDiscount(userID, code); ud != nil {
		return ud, nil
	}
	return nil, domain.ErrDiscountNotFound
}

// IncrementUsage implements ports.DiscountRepository
func (s *Store) IncrementUsage(_ context.Context, _ ports.DBTX, discountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.discounts {
		if d.ID != discountID {
			continue
		}
		if !d.Active || d.Exhausted() {
			return domain.ErrPreconditionFailed
		}
		d.UsedCount++
		return nil
	}
	return domain.ErrPreconditionFailed
}

// MarkUserDiscountUsed implements ports.DiscountRepository
func (s *Store) MarkUserDiscountUsed(_ context.Context, _ ports.DBTX, discountID, bookingID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ud := range s.userDiscounts {
		if ud.ID != discountID {
			continue
		}
		if ud.Consumed() {
			return domain.ErrPreconditionFailed
		}
		ud.UsedAt = &at
		ud.UsedByBooking = bookingID
		return nil
	}
	return domain.ErrPreconditionFailed
}

func userKey(userID, code string) string {
	return userID + "|" + code
}

func copyBooking(b *domain.Booking) *domain.Booking {
	c := *b
	if b.PreTransaction != nil {
		p := *b.PreTransaction
		c.PreTransaction = &p
	}
	return &c
}
