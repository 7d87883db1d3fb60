package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/kevin07696/booking-payment-service/internal/domain"
	"github.com/kevin07696/booking-payment-service/internal/domain/ports"
	"github.com/kevin07696/booking-payment-service/pkg/observability"
)

// DirectPaymentRequest is a server-to-server payment or refund. OrderID is
// required for refunds and generated for everything else when empty.
type DirectPaymentRequest struct {
	Amount           domain.Amount
	Currency         domain.Currency
	Kind             domain.TransactionKind
	InstallmentCount int
	CustomerEmail    string
	CustomerIP       string
	OrderID          string
	Card             *domain.Card
	CompanyName      string
	BookingID        string
}

// TransactionInfo is the settled transaction as reported by the gateway
type TransactionInfo struct {
	Status     domain.TransactionStatus `json:"status"`
	ReturnCode string                   `json:"returnCode"`
	AuthCode   string                   `json:"authCode,omitempty"`
	HostRefNum string                   `json:"hostRefNum,omitempty"`
	Amount     domain.Amount            `json:"amount"`
	Currency   domain.Currency          `json:"currency"`
	Message    string                   `json:"message,omitempty"`
}

// PaymentDetails echoes the presentment without sensitive data
type PaymentDetails struct {
	MaskedPAN      string    `json:"maskedPan,omitempty"`
	CardholderName string    `json:"cardholderName,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
	CustomerIP     string    `json:"customerIp"`
	CustomerEmail  string    `json:"customerEmail"`
}

// DirectPaymentResult is returned for approved and declined settlements
type DirectPaymentResult struct {
	Success        bool            `json:"success"`
	OrderID        string          `json:"orderId"`
	Transaction    TransactionInfo `json:"transaction"`
	PaymentDetails PaymentDetails  `json:"paymentDetails"`
}

// ProcessDirect signs and sends a direct payment or refund and records the
// settlement in the ledger. A decline returns both the result and a
// PAYMENT_DECLINED error. A timeout is recorded as UNKNOWN and must be
// reconciled through TransactionStatus before retrying. Refunds of an order
// owned by a booking go through RefundBooking instead.
func (s *Service) ProcessDirect(ctx context.Context, req DirectPaymentRequest) (*DirectPaymentResult, error) {
	if req.Kind.IsRefund() && req.OrderID != "" {
		if err := s.rejectBookingOrder(ctx, req.OrderID); err != nil {
			return nil, err
		}
	}
	result, _, err := s.processDirect(ctx, req)
	return result, err
}

// rejectBookingOrder keeps booking-owned orders out of the plain refund path,
// which would leave the booking CONFIRMED after its money went back.
func (s *Service) rejectBookingOrder(ctx context.Context, orderID string) error {
	b, err := s.bookings.FindByOrderID(ctx, orderID)
	if err != nil {
		return err
	}
	if b == nil {
		return nil
	}
	observability.RecordBookingConflict("direct_refund", string(b.Status))
	return domain.NewDomainError(domain.ErrorCodeBookingInvalidState,
		fmt.Sprintf("order belongs to booking %s; refund it through /api/v1/bookings/%s/refund", b.ID, b.ID)).
		WithDetail("booking_id", b.ID).
		WithDetail("order_id", orderID).
		WithDetail("current_state", string(b.Status))
}

func (s *Service) processDirect(ctx context.Context, req DirectPaymentRequest) (*DirectPaymentResult, domain.Settlement, error) {
	preq, err := s.directRequest(req)
	if err != nil {
		return nil, domain.Settlement{}, err
	}
	if err := preq.Validate(); err != nil {
		return nil, domain.Settlement{}, err
	}

	entry := &domain.LedgerEntry{
		OrderID:   preq.OrderID,
		BookingID: req.BookingID,
		Kind:      preq.Kind,
		Flow:      domain.FlowDirect,
		Amount:    preq.Amount,
		Currency:  preq.Currency,
		MaskedPAN: preq.Card.Masked(),
		CreatedAt: s.now(),
	}
	// Refunds hold their amount against the sale before anything is sent.
	reserved := preq.Kind.IsRefund()
	if reserved {
		if err := s.reserveRefund(ctx, preq, entry); err != nil {
			return nil, domain.Settlement{}, err
		}
	}

	settlement := s.gateway.Process(ctx, preq)
	details := settlement.Details()
	entry.ReturnCode = details.ReturnCode
	entry.AuthCode = details.AuthCode
	entry.HostRefNum = details.HostRefNum
	entry.Message = details.Message
	logFields := []ports.Field{
		ports.String("order_id", preq.OrderID),
		ports.String("kind", string(preq.Kind)),
		ports.Int64("amount", int64(preq.Amount)),
		ports.String("currency", preq.Currency.Symbol()),
		ports.String("card", preq.Card.Masked()),
	}

	switch settlement.Outcome() {
	case domain.OutcomeApproved:
		entry.Status = domain.TransactionStatusApproved
		s.record(ctx, entry, reserved)
		observability.RecordPaymentTransaction("direct", string(preq.Kind), "approved", details.ReturnCode,
			int64(preq.Amount), preq.Currency.Symbol())
		s.logger.Info("direct payment approved", append(logFields, ports.String("auth_code", details.AuthCode))...)
		return s.directResult(preq, entry, true), settlement, nil

	case domain.OutcomeDeclined:
		reason, _ := settlement.Decline()
		entry.Status = domain.TransactionStatusDeclined
		if entry.ReturnCode == "" {
			entry.ReturnCode = reason.Code
		}
		if entry.Message == "" {
			entry.Message = reason.Message
		}
		s.record(ctx, entry, reserved)
		observability.RecordPaymentTransaction("direct", string(preq.Kind), "declined", reason.Code, 0, preq.Currency.Symbol())
		logFields = append(logFields,
			ports.String("return_code", reason.Code),
			ports.String("category", reason.Category))
		if reason.Critical {
			s.logger.Error("direct payment declined with critical code", logFields...)
		} else {
			s.logger.Info("direct payment declined", logFields...)
		}
		return s.directResult(preq, entry, false), settlement, declineError(preq.OrderID, reason)

	default:
		fault, _ := settlement.Fault()
		observability.RecordPaymentTransaction("direct", string(preq.Kind), "error", string(fault.Kind), 0, preq.Currency.Symbol())
		derr := fault.DomainError().WithDetail("order_id", preq.OrderID)
		logFields = append(logFields, ports.String("fault", string(fault.Kind)), ports.Err(fault.Err))
		entry.Message = string(fault.Kind)
		switch fault.Kind {
		case domain.FaultTimeout, domain.FaultProtocol:
			// The request reached the gateway; whether it settled is unknown.
			entry.Status = domain.TransactionStatusUnknown
			s.record(ctx, entry, reserved)
			s.logger.Error("direct payment outcome unknown", logFields...)
		case domain.FaultInvalidRequest:
			s.release(ctx, entry, reserved)
			s.logger.Warn("direct payment rejected before sending", logFields...)
		default:
			s.release(ctx, entry, reserved)
			s.logger.Error("direct payment failed", logFields...)
		}
		return nil, settlement, derr
	}
}

func (s *Service) directRequest(req DirectPaymentRequest) (*domain.PaymentRequest, error) {
	kind := req.Kind
	if kind == "" {
		kind = domain.KindSale
	}
	currency := req.Currency
	if currency == "" {
		currency = domain.CurrencyTRY
	}
	orderID := req.OrderID
	if orderID == "" && !kind.IsRefund() {
		generated, err := domain.GenerateOrderID(s.config.OrderPrefix, s.now(), s.random)
		if err != nil {
			return nil, domain.WrapError(domain.ErrorCodeInternalError, "failed to generate order id", err)
		}
		orderID = generated
	}
	return &domain.PaymentRequest{
		Amount:           req.Amount,
		Currency:         currency,
		Kind:             kind,
		InstallmentCount: req.InstallmentCount,
		CustomerEmail:    req.CustomerEmail,
		CustomerIP:       req.CustomerIP,
		OrderID:          orderID,
		Card:             req.Card,
		CompanyName:      req.CompanyName,
	}, nil
}

// reserveRefund checks the refund against its sale and records it PENDING
// under the order's lock, so concurrent refunds cannot both pass the check.
func (s *Service) reserveRefund(ctx context.Context, req *domain.PaymentRequest, entry *domain.LedgerEntry) error {
	entry.Status = domain.TransactionStatusPending
	err := s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if err := s.ledger.LockOrder(ctx, tx, req.OrderID); err != nil {
			return err
		}
		entries, err := s.ledger.ListByOrderID(ctx, tx, req.OrderID)
		if err != nil {
			return err
		}
		if err := checkRefundable(req, domain.SummarizeLedger(req.OrderID, entries)); err != nil {
			return err
		}
		_, err = s.ledger.Append(ctx, tx, entry)
		return err
	})
	if err == nil {
		return nil
	}
	var derr *domain.DomainError
	if errors.As(err, &derr) {
		return derr
	}
	if errors.Is(err, domain.ErrPreconditionFailed) {
		return domain.WrapError(domain.ErrorCodeRefundInProgress, "another refund of this order is being recorded", err).
			WithDetail("order_id", req.OrderID)
	}
	s.logger.Error("failed to reserve refund",
		ports.String("order_id", req.OrderID),
		ports.Int64("amount", int64(req.Amount)),
		ports.Err(err))
	return domain.WrapError(domain.ErrorCodeDatabaseError, "failed to reserve refund", err)
}

// checkRefundable rejects a refund that has no approved sale behind it or
// exceeds what is left of it. Room taken only by unresolved refunds is a
// conflict rather than an overdraw.
func checkRefundable(req *domain.PaymentRequest, summary domain.OrderLedger) error {
	if summary.Sale == nil {
		return domain.NewDomainError(domain.ErrorCodeOriginalNotRefundable,
			"no approved sale found for this order").
			WithDetail("order_id", req.OrderID)
	}
	if summary.Sale.Currency != req.Currency {
		return domain.NewValidationError("currency", "refund currency must match the original sale").
			WithDetail("original_currency", summary.Sale.Currency.Symbol())
	}
	if room := summary.SettledRoom(); req.Amount > room {
		return domain.NewDomainError(domain.ErrorCodeRefundExceedsOriginal,
			fmt.Sprintf("refund of %s exceeds the refundable %s",
				req.Amount.Display(req.Currency), room.Display(req.Currency))).
			WithDetail("order_id", req.OrderID).
			WithDetail("original_amount", int64(summary.Sale.Amount)).
			WithDetail("refunded_amount", int64(summary.RefundedAmount)).
			WithDetail("requested_amount", int64(req.Amount))
	}
	if remaining := summary.RefundableAmount(); req.Amount > remaining {
		return domain.NewDomainError(domain.ErrorCodeRefundInProgress,
			fmt.Sprintf("%s of this order is held by refunds still awaiting a verdict",
				summary.HeldRefundAmount.Display(req.Currency))).
			WithDetail("order_id", req.OrderID).
			WithDetail("held_amount", int64(summary.HeldRefundAmount)).
			WithDetail("requested_amount", int64(req.Amount))
	}
	return nil
}

// record writes the verdict to the ledger. The gateway has already settled,
// so a failed write is logged for reconciliation instead of failing the caller.
func (s *Service) record(ctx context.Context, entry *domain.LedgerEntry, reserved bool) {
	var err error
	if reserved {
		err = s.ledger.Resolve(ctx, nil, entry)
	} else {
		_, err = s.ledger.Append(ctx, nil, entry)
	}
	if err != nil {
		s.logger.Error("failed to record settled transaction",
			ports.String("order_id", entry.OrderID),
			ports.String("kind", string(entry.Kind)),
			ports.String("status", string(entry.Status)),
			ports.String("auth_code", entry.AuthCode),
			ports.Err(err))
	}
}

// release marks a reservation FAILED when nothing settled
func (s *Service) release(ctx context.Context, entry *domain.LedgerEntry, reserved bool) {
	if !reserved {
		return
	}
	entry.Status = domain.TransactionStatusFailed
	s.record(ctx, entry, true)
}

func (s *Service) directResult(req *domain.PaymentRequest, entry *domain.LedgerEntry, success bool) *DirectPaymentResult {
	result := &DirectPaymentResult{
		Success: success,
		OrderID: req.OrderID,
		Transaction: TransactionInfo{
			Status:     entry.Status,
			ReturnCode: entry.ReturnCode,
			AuthCode:   entry.AuthCode,
			HostRefNum: entry.HostRefNum,
			Amount:     req.Amount,
			Currency:   req.Currency,
			Message:    entry.Message,
		},
		PaymentDetails: PaymentDetails{
			MaskedPAN:     req.Card.Masked(),
			Timestamp:     entry.CreatedAt,
			CustomerIP:    req.CustomerIP,
			CustomerEmail: req.CustomerEmail,
		},
	}
	if req.Card != nil {
		result.PaymentDetails.CardholderName = req.Card.HolderName
	}
	return result
}

func declineError(orderID string, reason domain.Decline) *domain.DomainError {
	return domain.NewDomainError(domain.ErrorCodePaymentDeclined, reason.Message).
		WithStatus(reason.HTTPStatus).
		WithDetail("order_id", orderID).
		WithDetail("return_code", reason.Code).
		WithDetail("category", reason.Category).
		WithDetail("retryable", reason.Retryable).
		WithDetail("user_fixable", reason.UserFixable)
}
