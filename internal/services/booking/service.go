package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/kevin07696/booking-payment-service/internal/domain"
	"github.com/kevin07696/booking-payment-service/internal/domain/ports"
	"github.com/kevin07696/booking-payment-service/pkg/observability"
)

// ReserveRequest claims a booking for one payment attempt
type ReserveRequest struct {
	BookingID          string
	OrderID            string
	DiscountID         string
	DiscountUserScoped bool
}

// Service drives booking payment transitions. Exclusivity comes from the
// repository's conditional update; the service holds no locks.
type Service struct {
	repo   ports.BookingRepository
	events ports.EventPublisher
	now    ports.Clock
	logger ports.Logger
}

// NewService creates a new booking service
func NewService(repo ports.BookingRepository, events ports.EventPublisher, now ports.Clock, logger ports.Logger) *Service {
	return &Service{
		repo:   repo,
		events: events,
		now:    now,
		logger: logger,
	}
}

// Load reads a booking. An AWAITING_PAYMENT booking whose hold lapsed is
// persisted as EXPIRED before it is returned.
func (s *Service) Load(ctx context.Context, bookingID string) (*domain.Booking, error) {
	b, err := s.get(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.Status != domain.BookingAwaitingPayment || !b.PreTransaction.IsExpired(s.now()) {
		return b, nil
	}

	err = s.repo.TransitionStatus(ctx, nil, ports.StatusUpdate{
		BookingID: b.ID,
		From:      domain.BookingAwaitingPayment,
		To:        domain.BookingExpired,
	}, s.now())
	if errors.Is(err, domain.ErrPreconditionFailed) {
		// Another request moved it first.
		return s.get(ctx, bookingID)
	}
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "failed to expire booking", err)
	}

	s.applied(b, domain.BookingExpired)
	s.logger.Info("booking expired on read",
		ports.String("booking_id", b.ID),
		ports.String("pre_transaction_id", b.PreTransactionID))
	s.Notify(ctx, ports.EventBookingExpired, b, "")
	return b, nil
}

// Reserve moves AWAITING_PAYMENT -> PAYMENT_IN_PROGRESS and records the order id.
// Exactly one of any number of concurrent callers succeeds; the rest get the
// conflict for the state they lost to.
func (s *Service) Reserve(ctx context.Context, req ReserveRequest) (*domain.Booking, error) {
	err := s.repo.TransitionStatus(ctx, nil, ports.StatusUpdate{
		BookingID:             req.BookingID,
		From:                  domain.BookingAwaitingPayment,
		To:                    domain.BookingPaymentInProgress,
		SetOrderID:            req.OrderID,
		SetDiscountID:         req.DiscountID,
		SetDiscountUserScoped: req.DiscountUserScoped,
	}, s.now())
	if errors.Is(err, domain.ErrPreconditionFailed) {
		return nil, s.conflict(ctx, "reserve", req.BookingID)
	}
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "failed to reserve booking", err)
	}

	observability.RecordBookingTransition(string(domain.BookingAwaitingPayment), string(domain.BookingPaymentInProgress))
	return s.get(ctx, req.BookingID)
}

// Settle applies a redirect-flow verdict to the booking owning orderID inside tx.
// changed is false when there is no booking for the order or it already left
// PAYMENT_IN_PROGRESS; a replayed callback lands here.
func (s *Service) Settle(ctx context.Context, tx ports.DBTX, orderID string, approved bool) (b *domain.Booking, changed bool, err error) {
	b, err = s.repo.GetByOrderID(ctx, tx, orderID)
	if errors.Is(err, domain.ErrBookingNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load booking for order %s: %w", orderID, err)
	}
	if b.Status != domain.BookingPaymentInProgress {
		return b, false, nil
	}

	to := domain.BookingFailed
	if approved {
		to = domain.BookingConfirmed
	}
	err = s.repo.TransitionStatus(ctx, tx, ports.StatusUpdate{
		BookingID:    b.ID,
		MatchOrderID: orderID,
		From:         domain.BookingPaymentInProgress,
		To:           to,
	}, s.now())
	if errors.Is(err, domain.ErrPreconditionFailed) {
		return b, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("settle booking %s: %w", b.ID, err)
	}

	s.applied(b, to)
	return b, true, nil
}

// FindByOrderID returns the booking owning orderID, or nil when the order is
// not a booking payment
func (s *Service) FindByOrderID(ctx context.Context, orderID string) (*domain.Booking, error) {
	b, err := s.repo.GetByOrderID(ctx, nil, orderID)
	if errors.Is(err, domain.ErrBookingNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "failed to load booking", err)
	}
	return b, nil
}

// BeginRefund moves a CONFIRMED booking to REFUND_PENDING
func (s *Service) BeginRefund(ctx context.Context, bookingID string) (*domain.Booking, error) {
	b, err := s.Load(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.Status != domain.BookingConfirmed {
		observability.RecordBookingConflict("refund", string(b.Status))
		return nil, ConflictError(b.Status)
	}

	err = s.repo.TransitionStatus(ctx, nil, ports.StatusUpdate{
		BookingID:    b.ID,
		MatchOrderID: b.OrderID,
		From:         domain.BookingConfirmed,
		To:           domain.BookingRefundPending,
	}, s.now())
	if errors.Is(err, domain.ErrPreconditionFailed) {
		return nil, s.conflict(ctx, "refund", bookingID)
	}
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "failed to begin refund", err)
	}

	s.applied(b, domain.BookingRefundPending)
	return b, nil
}

// CompleteRefund moves a REFUND_PENDING booking to REFUNDED, or back to
// CONFIRMED when the refund was declined or only partial.
func (s *Service) CompleteRefund(ctx context.Context, tx ports.DBTX, b *domain.Booking, to domain.BookingStatus) error {
	if !CanTransition(domain.BookingRefundPending, to) {
		return fmt.Errorf("invalid refund completion target %s", to)
	}
	err := s.repo.TransitionStatus(ctx, tx, ports.StatusUpdate{
		BookingID: b.ID,
		From:      domain.BookingRefundPending,
		To:        to,
	}, s.now())
	if errors.Is(err, domain.ErrPreconditionFailed) {
		return s.conflict(ctx, "complete_refund", b.ID)
	}
	if err != nil {
		return fmt.Errorf("complete refund for booking %s: %w", b.ID, err)
	}

	s.applied(b, to)
	return nil
}

// Cancel aborts a booking that is still awaiting payment
func (s *Service) Cancel(ctx context.Context, bookingID string) (*domain.Booking, error) {
	b, err := s.Load(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.Status != domain.BookingAwaitingPayment {
		observability.RecordBookingConflict("cancel", string(b.Status))
		return nil, ConflictError(b.Status)
	}

	err = s.repo.TransitionStatus(ctx, nil, ports.StatusUpdate{
		BookingID: b.ID,
		From:      domain.BookingAwaitingPayment,
		To:        domain.BookingCancelled,
	}, s.now())
	if errors.Is(err, domain.ErrPreconditionFailed) {
		return nil, s.conflict(ctx, "cancel", bookingID)
	}
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "failed to cancel booking", err)
	}

	s.applied(b, domain.BookingCancelled)
	s.logger.Info("booking cancelled", ports.String("booking_id", b.ID))
	return b, nil
}

// Notify publishes a lifecycle event. Publishing never fails the caller; the
// transition is already committed.
func (s *Service) Notify(ctx context.Context, eventType ports.PaymentEventType, b *domain.Booking, returnCode string) {
	event := ports.PaymentEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		BookingID:  b.ID,
		UserID:     b.UserID,
		OrderID:    b.OrderID,
		Amount:     int64(b.Amount),
		Currency:   b.Currency.Symbol(),
		ReturnCode: returnCode,
		OccurredAt: s.now(),
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish booking event",
			ports.String("event_type", string(eventType)),
			ports.String("booking_id", b.ID),
			ports.Err(err))
	}
}

func (s *Service) get(ctx context.Context, bookingID string) (*domain.Booking, error) {
	b, err := s.repo.GetByID(ctx, nil, bookingID)
	if errors.Is(err, domain.ErrBookingNotFound) {
		return nil, domain.NewDomainError(domain.ErrorCodeBookingNotFound, "booking not found").
			WithDetail("booking_id", bookingID)
	}
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "failed to load booking", err)
	}
	return b, nil
}

// conflict re-reads the booking after a lost conditional update and names
// the state that won
func (s *Service) conflict(ctx context.Context, operation, bookingID string) error {
	current, err := s.Load(ctx, bookingID)
	if err != nil {
		return err
	}
	observability.RecordBookingConflict(operation, string(current.Status))
	s.logger.Info("booking transition lost to concurrent update",
		ports.String("operation", operation),
		ports.String("booking_id", bookingID),
		ports.String("current_state", string(current.Status)))
	return ConflictError(current.Status)
}

func (s *Service) applied(b *domain.Booking, to domain.BookingStatus) {
	observability.RecordBookingTransition(string(b.Status), string(to))
	b.Status = to
	b.UpdatedAt = s.now()
}
