package payment

import (
	"context"
	"errors"
	"io"

	"github.com/kevin07696/booking-payment-service/internal/domain"
	"github.com/kevin07696/booking-payment-service/internal/domain/ports"
	"github.com/kevin07696/booking-payment-service/internal/services/booking"
	"github.com/kevin07696/booking-payment-service/internal/services/discount"
	"github.com/kevin07696/booking-payment-service/pkg/observability"
)

// BookingStateMachine is the booking side of the orchestrator
type BookingStateMachine interface {
	Load(ctx context.Context, bookingID string) (*domain.Booking, error)
	FindByOrderID(ctx context.Context, orderID string) (*domain.Booking, error)
	Reserve(ctx context.Context, req booking.ReserveRequest) (*domain.Booking, error)
	Settle(ctx context.Context, tx ports.DBTX, orderID string, approved bool) (*domain.Booking, bool, error)
	BeginRefund(ctx context.Context, bookingID string) (*domain.Booking, error)
	CompleteRefund(ctx context.Context, tx ports.DBTX, b *domain.Booking, to domain.BookingStatus) error
	Notify(ctx context.Context, eventType ports.PaymentEventType, b *domain.Booking, returnCode string)
}

// Promotions validates and redeems promotion codes
type Promotions interface {
	Validate(ctx context.Context, req discount.ValidationRequest) (*discount.ValidationResult, error)
	Redeem(ctx context.Context, tx ports.DBTX, b *domain.Booking) error
}

// Config tunes the orchestrator
type Config struct {
	// OrderPrefix starts every generated order id.
	OrderPrefix string

	// ResponseOnlyVerdict accepts a callback as approved on response=="Approved"
	// alone, ignoring the return code.
	ResponseOnlyVerdict bool
}

// Service orchestrates redirect payments, direct payments and refunds, and
// gateway callbacks against the booking state machine and the ledger.
type Service struct {
	db         ports.DBPort
	ledger     ports.LedgerRepository
	bookings   BookingStateMachine
	promotions Promotions
	gateway    ports.PaymentGateway
	now        ports.Clock
	random     io.Reader
	config     Config
	logger     ports.Logger
}

// NewService creates a new payment service
func NewService(
	db ports.DBPort,
	ledger ports.LedgerRepository,
	bookings BookingStateMachine,
	promotions Promotions,
	gateway ports.PaymentGateway,
	now ports.Clock,
	config Config,
	logger ports.Logger,
) *Service {
	if config.OrderPrefix == "" {
		config.OrderPrefix = "GRN"
	}
	return &Service{
		db:         db,
		ledger:     ledger,
		bookings:   bookings,
		promotions: promotions,
		gateway:    gateway,
		now:        now,
		config:     config,
		logger:     logger,
	}
}

// WithRandom replaces the order id entropy source
func (s *Service) WithRandom(r io.Reader) *Service {
	s.random = r
	return s
}

// InitiateRequest starts a redirect (3-D Secure) payment
type InitiateRequest struct {
	Amount           domain.Amount
	Currency         domain.Currency
	Kind             domain.TransactionKind
	InstallmentCount int
	CustomerEmail    string
	CustomerIP       string
	Card             *domain.Card
	CompanyName      string
}

// InitiateResult is what the browser auto-submits to the gateway
type InitiateResult struct {
	OrderID     string            `json:"orderId"`
	FormData    map[string]string `json:"formData"`
	RedirectURL string            `json:"redirectUrl"`
}

// InitiatePayment signs a redirect form under a fresh order id. Nothing is
// persisted until the callback arrives.
func (s *Service) InitiatePayment(ctx context.Context, req InitiateRequest) (*InitiateResult, error) {
	kind := req.Kind
	if kind == "" {
		kind = domain.KindSale
	}
	if kind.IsRefund() {
		return nil, domain.NewValidationError("kind", "refunds are processed through the direct flow")
	}
	currency := req.Currency
	if currency == "" {
		currency = domain.CurrencyTRY
	}

	orderID, err := domain.GenerateOrderID(s.config.OrderPrefix, s.now(), s.random)
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeInternalError, "failed to generate order id", err)
	}
	preq := &domain.PaymentRequest{
		Amount:           req.Amount,
		Currency:         currency,
		Kind:             kind,
		InstallmentCount: req.InstallmentCount,
		CustomerEmail:    req.CustomerEmail,
		CustomerIP:       req.CustomerIP,
		OrderID:          orderID,
		Card:             req.Card,
		CompanyName:      req.CompanyName,
	}

	fields, err := s.gateway.BuildRedirect(preq, s.now())
	if err != nil {
		return nil, s.contractError("failed to sign redirect form", err)
	}

	s.logger.Info("redirect payment initiated",
		ports.String("order_id", orderID),
		ports.String("kind", string(kind)),
		ports.Int64("amount", int64(req.Amount)),
		ports.String("currency", currency.Symbol()),
		ports.String("card", req.Card.Masked()))

	return &InitiateResult{
		OrderID:     orderID,
		FormData:    fields,
		RedirectURL: s.gateway.RedirectURL(),
	}, nil
}

// BookingPaymentRequest starts a redirect payment for a booking. Amount and
// Currency may be omitted; when given they must match the booking.
type BookingPaymentRequest struct {
	BookingID        string
	Amount           domain.Amount
	Currency         domain.Currency
	InstallmentCount int
	CustomerEmail    string
	CustomerIP       string
	Card             *domain.Card
	PromotionCode    string
	UserID           string
}

// BookingPaymentResult extends InitiateResult with the reserved booking
type BookingPaymentResult struct {
	InitiateResult
	BookingID      string                    `json:"bookingId"`
	Status         domain.BookingStatus      `json:"status"`
	OriginalAmount domain.Amount             `json:"originalAmount"`
	Amount         domain.Amount             `json:"amount"`
	Currency       domain.Currency           `json:"currency"`
	Discount       *discount.AppliedDiscount `json:"discount,omitempty"`
}

// InitiateBookingPayment checks the booking can take a payment, applies an
// optional promotion, signs the redirect form and reserves the booking under
// the new order id. An expired booking is rejected before anything is signed.
func (s *Service) InitiateBookingPayment(ctx context.Context, req BookingPaymentRequest) (*BookingPaymentResult, error) {
	b, err := s.bookings.Load(ctx, req.BookingID)
	if err != nil {
		return nil, err
	}
	if b.Status != domain.BookingAwaitingPayment {
		observability.RecordBookingConflict("initiate", string(b.Status))
		return nil, booking.ConflictError(b.Status)
	}

	if req.Amount != 0 && req.Amount != b.Amount {
		return nil, domain.NewValidationError("amount", "amount must match the booking amount").
			WithDetail("booking_amount", int64(b.Amount)).
			WithDetail("requested_amount", int64(req.Amount))
	}
	if req.Currency != "" && b.Currency != "" && req.Currency != b.Currency {
		return nil, domain.NewValidationError("currency", "currency must match the booking currency").
			WithDetail("booking_currency", b.Currency.Symbol())
	}
	amount := b.Amount
	currency := b.Currency
	if currency == "" {
		currency = req.Currency
	}
	if currency == "" {
		currency = domain.CurrencyTRY
	}

	result := &BookingPaymentResult{
		BookingID:      b.ID,
		OriginalAmount: amount,
		Amount:         amount,
		Currency:       currency,
	}
	reserve := booking.ReserveRequest{BookingID: b.ID}

	if req.PromotionCode != "" {
		userID := req.UserID
		if userID == "" {
			userID = b.UserID
		}
		promo, err := s.promotions.Validate(ctx, discount.ValidationRequest{
			Code:     req.PromotionCode,
			Amount:   amount,
			Currency: currency,
			UserID:   userID,
		})
		if err != nil {
			return nil, err
		}
		if !promo.Valid {
			return nil, domain.NewValidationError("promotionCode", promo.Message).
				WithDetail("code", promo.Code)
		}
		if promo.Discount.FinalAmount <= 0 {
			return nil, domain.NewValidationError("promotionCode", "discounted amount must be greater than zero").
				WithDetail("code", promo.Code)
		}
		result.Amount = promo.Discount.FinalAmount
		result.Discount = promo.Discount
		reserve.DiscountID = promo.DiscountID
		reserve.DiscountUserScoped = promo.IsUserDiscount
	}

	initiated, err := s.InitiatePayment(ctx, InitiateRequest{
		Amount:           result.Amount,
		Currency:         currency,
		Kind:             domain.KindSale,
		InstallmentCount: req.InstallmentCount,
		CustomerEmail:    req.CustomerEmail,
		CustomerIP:       req.CustomerIP,
		Card:             req.Card,
	})
	if err != nil {
		return nil, err
	}

	reserve.OrderID = initiated.OrderID
	reserved, err := s.bookings.Reserve(ctx, reserve)
	if err != nil {
		return nil, err
	}

	s.logger.Info("booking payment reserved",
		ports.String("booking_id", b.ID),
		ports.String("order_id", initiated.OrderID),
		ports.Int64("amount", int64(result.Amount)),
		ports.String("discount_id", reserve.DiscountID))

	result.InitiateResult = *initiated
	result.Status = reserved.Status
	return result, nil
}

// contractError passes domain errors through and wraps anything else as internal
func (s *Service) contractError(message string, err error) error {
	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	s.logger.Error(message, ports.Err(err))
	return domain.WrapError(domain.ErrorCodeInternalError, message, err)
}
