package payment

import (
	"context"

	"github.com/kevin07696/booking-payment-service/internal/domain"
	"github.com/kevin07696/booking-payment-service/internal/domain/ports"
)

// BookingRefundRequest refunds a confirmed booking. A zero Amount refunds
// whatever is still refundable.
type BookingRefundRequest struct {
	BookingID     string
	Amount        domain.Amount
	CustomerEmail string
	CustomerIP    string
}

// BookingRefundResult is the refund settlement plus the booking's new status
type BookingRefundResult struct {
	*DirectPaymentResult
	BookingID     string               `json:"bookingId"`
	BookingStatus domain.BookingStatus `json:"bookingStatus"`
}

// RefundBooking runs a direct refund against the booking's order id, bracketed
// by CONFIRMED -> REFUND_PENDING -> REFUNDED. A partial or declined refund
// returns the booking to CONFIRMED; an unknown outcome leaves it REFUND_PENDING
// until reconciled.
func (s *Service) RefundBooking(ctx context.Context, req BookingRefundRequest) (*BookingRefundResult, error) {
	b, err := s.bookings.BeginRefund(ctx, req.BookingID)
	if err != nil {
		return nil, err
	}

	entries, err := s.ledger.ListByOrderID(ctx, nil, b.OrderID)
	if err != nil {
		s.revertRefund(ctx, b)
		return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "failed to load transaction history", err)
	}
	refundable := domain.SummarizeLedger(b.OrderID, entries).RefundableAmount()
	amount := req.Amount
	if amount == 0 {
		amount = refundable
	}

	result, settlement, err := s.processDirect(ctx, DirectPaymentRequest{
		Amount:        amount,
		Currency:      b.Currency,
		Kind:          domain.KindRefund,
		CustomerEmail: req.CustomerEmail,
		CustomerIP:    req.CustomerIP,
		OrderID:       b.OrderID,
		BookingID:     b.ID,
	})

	switch settlement.Outcome() {
	case domain.OutcomeApproved:
		to := domain.BookingConfirmed
		if amount >= refundable {
			to = domain.BookingRefunded
		}
		if cerr := s.bookings.CompleteRefund(ctx, nil, b, to); cerr != nil {
			s.logger.Error("refund settled but booking status not updated",
				ports.String("booking_id", b.ID),
				ports.String("order_id", b.OrderID),
				ports.Err(cerr))
			return nil, cerr
		}
		if to == domain.BookingRefunded {
			s.bookings.Notify(ctx, ports.EventBookingRefunded, b, result.Transaction.ReturnCode)
		}
	case domain.OutcomeError:
		fault, _ := settlement.Fault()
		if fault.Kind == domain.FaultTimeout || fault.Kind == domain.FaultProtocol {
			s.logger.Warn("refund outcome unknown; booking left pending",
				ports.String("booking_id", b.ID),
				ports.String("order_id", b.OrderID))
			return nil, err
		}
		s.revertRefund(ctx, b)
	default:
		// declined, or rejected before anything was sent
		s.revertRefund(ctx, b)
	}

	if result == nil {
		return nil, err
	}
	// a declined refund carries both the result and the decline error
	return &BookingRefundResult{DirectPaymentResult: result, BookingID: b.ID, BookingStatus: b.Status}, err
}

func (s *Service) revertRefund(ctx context.Context, b *domain.Booking) {
	if err := s.bookings.CompleteRefund(ctx, nil, b, domain.BookingConfirmed); err != nil {
		s.logger.Error("failed to return booking to confirmed after refund attempt",
			ports.String("booking_id", b.ID),
			ports.Err(err))
	}
}
