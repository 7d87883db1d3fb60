package payment

import (
	"context"

	"github.com/kevin07696/booking-payment-service/internal/domain"
)

// StatusPending is reported for a booking order that has no settlement yet
const StatusPending = domain.TransactionStatusPending

// TransactionStatusResult is the settlement state of an order as last known here
type TransactionStatusResult struct {
	OrderID        string                   `json:"orderId"`
	Status         domain.TransactionStatus `json:"status"`
	Latest         *domain.LedgerEntry      `json:"latest,omitempty"`
	Entries        []*domain.LedgerEntry    `json:"entries"`
	SaleAmount     domain.Amount            `json:"saleAmount"`
	RefundedAmount domain.Amount            `json:"refundedAmount"`
	NetAmount      domain.Amount            `json:"netAmount"`
	BookingID      string                   `json:"bookingId,omitempty"`
	BookingStatus  domain.BookingStatus     `json:"bookingStatus,omitempty"`
}

// TransactionStatus reports the ledger state of orderID. It is the
// reconciliation path after a timed-out direct call.
func (s *Service) TransactionStatus(ctx context.Context, orderID string) (*TransactionStatusResult, error) {
	if orderID == "" {
		return nil, domain.NewValidationError("orderId", "order id is required")
	}
	entries, err := s.ledger.ListByOrderID(ctx, nil, orderID)
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "failed to load transaction history", err)
	}
	b, err := s.bookings.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 && b == nil {
		return nil, domain.NewDomainError(domain.ErrorCodeTxnNotFound, "transaction not found").
			WithDetail("order_id", orderID)
	}

	summary := domain.SummarizeLedger(orderID, entries)
	result := &TransactionStatusResult{
		OrderID:        orderID,
		Status:         StatusPending,
		Latest:         summary.Latest,
		Entries:        entries,
		RefundedAmount: summary.RefundedAmount,
		NetAmount:      summary.NetAmount,
	}
	if result.Entries == nil {
		result.Entries = []*domain.LedgerEntry{}
	}
	if summary.Latest != nil {
		result.Status = summary.Latest.Status
	}
	if summary.Sale != nil {
		result.SaleAmount = summary.Sale.Amount
	}
	if b != nil {
		result.BookingID = b.ID
		result.BookingStatus = b.Status
	}
	return result, nil
}
