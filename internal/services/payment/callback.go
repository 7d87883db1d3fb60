package payment

import (
	"context"
	"net/url"

	"github.com/jackc/pgx/v5"
	"github.com/kevin07696/booking-payment-service/internal/domain"
	"github.com/kevin07696/booking-payment-service/internal/domain/ports"
	"github.com/kevin07696/booking-payment-service/pkg/observability"
)

const approvedResponse = "Approved"

// CallbackResult describes what a gateway callback did
type CallbackResult struct {
	OrderID    string
	Approved   bool
	Duplicate  bool
	BookingID  string
	Status     domain.BookingStatus
	ReturnCode string
	Message    string
}

// ProcessCallback validates a redirect-flow callback and applies its verdict
// once. In one transaction it settles the booking, appends the ledger entry
// and redeems any promotion. A replayed callback changes nothing and fires no
// event.
func (s *Service) ProcessCallback(ctx context.Context, form url.Values) (*CallbackResult, error) {
	cb, err := s.gateway.ParseCallback(form)
	if err != nil {
		if domain.IsDomainError(err, domain.ErrorCodeSecurityHashMismatch) {
			observability.RecordCallback("rejected")
			s.logger.Error("gateway callback failed signature check",
				ports.String("order_id", form.Get("oid")),
				ports.Err(err))
		} else {
			observability.RecordCallback("invalid")
			s.logger.Warn("gateway callback is missing required fields", ports.Err(err))
		}
		return nil, err
	}

	approved := s.verdict(cb)
	result := &CallbackResult{
		OrderID:    cb.OrderID,
		Approved:   approved,
		ReturnCode: cb.ReturnCode,
		Message:    cb.ErrorMessage,
	}
	if !approved && result.Message == "" {
		result.Message = s.gateway.ClassifyReturnCode(cb.ReturnCode).Message
	}

	var (
		settled  *domain.Booking
		changed  bool
		inserted bool
	)
	err = s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		var err error
		settled, changed, err = s.bookings.Settle(ctx, tx, cb.OrderID, approved)
		if err != nil {
			return err
		}

		entry := s.callbackEntry(cb, settled, approved)
		inserted, err = s.ledger.Append(ctx, tx, entry)
		if err != nil {
			return err
		}

		if changed && approved {
			return s.promotions.Redeem(ctx, tx, settled)
		}
		return nil
	})
	if err != nil {
		observability.RecordCallback("error")
		s.logger.Error("failed to apply gateway callback",
			ports.String("order_id", cb.OrderID),
			ports.Bool("approved", approved),
			ports.Err(err))
		return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "failed to apply gateway callback", err)
	}

	if settled != nil {
		result.BookingID = settled.ID
		result.Status = settled.Status
	}

	if !changed && !inserted {
		result.Duplicate = true
		if settled != nil {
			result.Approved = settled.Status == domain.BookingConfirmed ||
				settled.Status == domain.BookingRefundPending ||
				settled.Status == domain.BookingRefunded
		}
		observability.RecordCallback("duplicate")
		s.logger.Info("duplicate gateway callback ignored",
			ports.String("order_id", cb.OrderID),
			ports.String("booking_status", string(result.Status)))
		return result, nil
	}

	observability.RecordCallback("applied")
	outcome := "declined"
	if approved {
		outcome = "approved"
	}
	if inserted {
		observability.RecordPaymentTransaction("redirect", string(domain.KindSale), outcome, cb.ReturnCode,
			int64(cb.Amount), cb.Currency.Symbol())
	}
	s.logger.Info("gateway callback applied",
		ports.String("order_id", cb.OrderID),
		ports.String("booking_id", result.BookingID),
		ports.Bool("approved", approved),
		ports.String("return_code", cb.ReturnCode),
		ports.String("md_status", cb.MDStatus),
		ports.Bool("hash_verified", cb.HashVerified))

	if changed {
		eventType := ports.EventPaymentFailed
		if approved {
			eventType = ports.EventPaymentConfirmed
		}
		s.bookings.Notify(ctx, eventType, settled, cb.ReturnCode)
	}
	return result, nil
}

// verdict requires both response=="Approved" and return code "00" unless the
// response-only rule is configured
func (s *Service) verdict(cb *domain.GatewayCallback) bool {
	strict := cb.Response == approvedResponse && cb.ReturnCode == "00"
	if !s.config.ResponseOnlyVerdict {
		return strict
	}
	lenient := cb.Response == approvedResponse
	if lenient != strict {
		s.logger.Warn("callback verdict differs between response-only and strict rules",
			ports.String("order_id", cb.OrderID),
			ports.String("response", cb.Response),
			ports.String("return_code", cb.ReturnCode))
	}
	return lenient
}

func (s *Service) callbackEntry(cb *domain.GatewayCallback, b *domain.Booking, approved bool) *domain.LedgerEntry {
	entry := &domain.LedgerEntry{
		OrderID:    cb.OrderID,
		Kind:       domain.KindSale,
		Flow:       domain.FlowRedirect,
		Status:     domain.TransactionStatusDeclined,
		Amount:     cb.Amount,
		Currency:   cb.Currency,
		ReturnCode: cb.ReturnCode,
		AuthCode:   cb.AuthCode,
		HostRefNum: cb.HostRefNum,
		MaskedPAN:  cb.MaskedPAN,
		Message:    cb.ErrorMessage,
		CreatedAt:  s.now(),
	}
	if approved {
		entry.Status = domain.TransactionStatusApproved
	}
	if b != nil {
		entry.BookingID = b.ID
		if entry.Amount == 0 {
			entry.Amount = b.Amount
		}
		if !entry.Currency.IsKnown() {
			entry.Currency = b.Currency
		}
	}
	if !entry.Currency.IsKnown() {
		entry.Currency = domain.CurrencyTRY
	}
	return entry
}
