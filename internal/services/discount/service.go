package discount

import (
	"context"
	"errors"
	"fmt"

	"github.com/kevin07696/booking-payment-service/internal/domain"
	"github.com/kevin07696/booking-payment-service/internal/domain/ports"
	"github.com/kevin07696/booking-payment-service/pkg/observability"
)

// ValidationRequest asks whether code applies to a purchase
type ValidationRequest struct {
	Code     string
	Amount   domain.Amount
	Currency domain.Currency
	UserID   string
}

// AppliedDiscount is the priced discount returned to the caller
type AppliedDiscount struct {
	Kind             domain.DiscountKind `json:"kind"`
	Value            int64               `json:"value"`
	Currency         string              `json:"currency,omitempty"`
	CalculatedAmount domain.Amount       `json:"calculatedAmount"`
	FinalAmount      domain.Amount       `json:"finalAmount"`
}

// ValidationResult is the promotion validation response
type ValidationResult struct {
	Valid          bool             `json:"valid"`
	Discount       *AppliedDiscount `json:"discount,omitempty"`
	Code           string           `json:"code"`
	Message        string           `json:"message,omitempty"`
	DiscountID     string           `json:"discountId,omitempty"`
	IsUserDiscount bool             `json:"isUserDiscount"`
}

// Service resolves promotion codes against stored discounts
type Service struct {
	repo   ports.DiscountRepository
	rates  ports.ExchangeRateProvider
	now    ports.Clock
	logger ports.Logger
}

// NewService creates a new discount service
func NewService(repo ports.DiscountRepository, rates ports.ExchangeRateProvider, now ports.Clock, logger ports.Logger) *Service {
	return &Service{
		repo:   repo,
		rates:  rates,
		now:    now,
		logger: logger,
	}
}

// Validate prices code for the purchase. A user-scoped code owned by UserID wins;
// when it is absent or not applicable the general code with the same text is tried.
func (s *Service) Validate(ctx context.Context, req ValidationRequest) (*ValidationResult, error) {
	code := domain.NormalizeCode(req.Code)
	if code == "" {
		return nil, domain.NewValidationError("code", "promotion code is required")
	}
	if req.Amount <= 0 {
		return nil, domain.NewValidationError("amount", "amount must be greater than zero")
	}
	currency := req.Currency
	if currency == "" {
		currency = domain.CurrencyTRY
	}
	if !currency.IsKnown() {
		return nil, domain.NewValidationError("currency", fmt.Sprintf("unsupported currency code %q", currency))
	}

	var userReason string
	if req.UserID != "" {
		result, reason, err := s.validateUserDiscount(ctx, code, req.UserID, req.Amount, currency)
		if err != nil {
			return nil, err
		}
		if result != nil {
			observability.RecordPromotionValidation(true, true)
			return result, nil
		}
		userReason = reason
	}

	result, err := s.validateGeneralDiscount(ctx, code, req.Amount, currency)
	if err != nil {
		return nil, err
	}
	if !result.Valid && userReason != "" && result.Message == msgNotFound {
		result.Message = userReason
	}
	observability.RecordPromotionValidation(result.Valid, false)
	return result, nil
}

const msgNotFound = "promotion code not found"

// validateUserDiscount returns a valid result, or the reason the user code does not apply
func (s *Service) validateUserDiscount(ctx context.Context, code, userID string, amount domain.Amount, currency domain.Currency) (*ValidationResult, string, error) {
	ud, err := s.repo.GetUserDiscountByCode(ctx, nil, userID, code)
	if errors.Is(err, domain.ErrDiscountNotFound) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", domain.WrapError(domain.ErrorCodeDatabaseError, "failed to load promotion code", err)
	}
	if ud.UserID != userID {
		return nil, "", nil
	}
	if reason := s.ineligible(&ud.Discount); reason != "" {
		return nil, reason, nil
	}
	if ud.Consumed() {
		return nil, "promotion code has already been used", nil
	}

	res, err := s.price(ctx, &ud.Discount, amount, currency)
	if err != nil {
		return nil, "", err
	}
	if !res.Valid {
		s.logger.Debug("user promotion code not applicable",
			ports.String("code", code),
			ports.String("reason", res.Reason))
		return nil, res.Reason, nil
	}
	return buildResult(&ud.Discount, res, true), "", nil
}

func (s *Service) validateGeneralDiscount(ctx context.Context, code string, amount domain.Amount, currency domain.Currency) (*ValidationResult, error) {
	d, err := s.repo.GetByCode(ctx, nil, code)
	if errors.Is(err, domain.ErrDiscountNotFound) {
		return &ValidationResult{Code: code, Message: msgNotFound}, nil
	}
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "failed to load promotion code", err)
	}
	if reason := s.ineligible(d); reason != "" {
		return &ValidationResult{Code: code, Message: reason}, nil
	}
	if d.Exhausted() {
		return &ValidationResult{Code: code, Message: "promotion code usage limit reached"}, nil
	}

	res, err := s.price(ctx, d, amount, currency)
	if err != nil {
		return nil, err
	}
	if !res.Valid {
		return &ValidationResult{Code: code, Message: res.Reason}, nil
	}
	return buildResult(d, res, false), nil
}

func (s *Service) ineligible(d *domain.Discount) string {
	if !d.Active {
		return "promotion code is not active"
	}
	if !d.InWindow(s.now()) {
		return "promotion code is not valid at this time"
	}
	return ""
}

func (s *Service) price(ctx context.Context, d *domain.Discount, amount domain.Amount, currency domain.Currency) (CalculationResult, error) {
	return Calculate(CalculationInput{
		OriginalAmount:   amount,
		Kind:             d.Kind,
		Value:            d.Value,
		DiscountCurrency: d.Currency,
		PaymentCurrency:  currency.Symbol(),
		MinPurchase:      d.MinPurchase,
		MaxDiscount:      d.MaxDiscount,
	}, ProviderRates(ctx, s.rates))
}

func buildResult(d *domain.Discount, res CalculationResult, userScoped bool) *ValidationResult {
	return &ValidationResult{
		Valid: true,
		Discount: &AppliedDiscount{
			Kind:             d.Kind,
			Value:            d.Value,
			Currency:         d.Currency,
			CalculatedAmount: res.DiscountAmount,
			FinalAmount:      res.FinalAmount,
		},
		Code:           d.Code,
		DiscountID:     d.ID,
		IsUserDiscount: userScoped,
	}
}

// Redeem consumes the discount recorded on a confirmed booking inside tx.
// A discount that ran out between validation and confirmation is logged and
// skipped; the payment has already settled.
func (s *Service) Redeem(ctx context.Context, tx ports.DBTX, booking *domain.Booking) error {
	if booking.DiscountID == "" {
		return nil
	}

	var err error
	if booking.DiscountUserScoped {
		err = s.repo.MarkUserDiscountUsed(ctx, tx, booking.DiscountID, booking.ID, s.now())
	} else {
		err = s.repo.IncrementUsage(ctx, tx, booking.DiscountID)
	}
	if errors.Is(err, domain.ErrPreconditionFailed) {
		s.logger.Warn("promotion no longer redeemable at confirmation",
			ports.String("booking_id", booking.ID),
			ports.String("discount_id", booking.DiscountID),
			ports.Bool("user_scoped", booking.DiscountUserScoped))
		return nil
	}
	if err != nil {
		return fmt.Errorf("redeem discount %s: %w", booking.DiscountID, err)
	}
	return nil
}
