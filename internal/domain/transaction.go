package domain

import "time"

// TransactionStatus is the settlement status of a ledger entry as last known here
type TransactionStatus string

const (
	TransactionStatusApproved TransactionStatus = "APPROVED"
	TransactionStatusDeclined TransactionStatus = "DECLINED"
	// TransactionStatusUnknown marks a direct call that timed out; reconcile before retrying.
	TransactionStatusUnknown TransactionStatus = "UNKNOWN"
	// TransactionStatusPending is a refund reserved against its sale and not yet answered.
	TransactionStatusPending TransactionStatus = "PENDING"
	// TransactionStatusFailed is a reserved refund that never reached the gateway.
	TransactionStatusFailed TransactionStatus = "FAILED"
)

// PaymentFlow identifies how a ledger entry reached the gateway
type PaymentFlow string

const (
	FlowRedirect PaymentFlow = "redirect"
	FlowDirect   PaymentFlow = "direct"
)

// LedgerEntry is an append-only record of one gateway settlement.
// A refund is a new entry of kind refund carrying the original order id.
type LedgerEntry struct {
	ID         string            `json:"id"`
	OrderID    string            `json:"orderId"`
	BookingID  string            `json:"bookingId,omitempty"`
	Kind       TransactionKind   `json:"kind"`
	Flow       PaymentFlow       `json:"flow"`
	Status     TransactionStatus `json:"status"`
	Amount     Amount            `json:"amount"`
	Currency   Currency          `json:"currency"`
	ReturnCode string            `json:"returnCode,omitempty"`
	AuthCode   string            `json:"authCode,omitempty"`
	HostRefNum string            `json:"hostRefNum,omitempty"`
	MaskedPAN  string            `json:"maskedPan,omitempty"`
	Message    string            `json:"message,omitempty"`
	CreatedAt  time.Time         `json:"createdAt"`
}

// SignedAmount returns the entry's contribution to net settled totals
func (e *LedgerEntry) SignedAmount() Amount {
	if e.Status != TransactionStatusApproved {
		return 0
	}
	if e.Kind.IsRefund() {
		return -e.Amount
	}
	if e.Kind == KindDCCInquiry {
		return 0
	}
	return e.Amount
}

// OrderLedger summarizes all entries for one order id. HeldRefundAmount is
// refunds still pending or of unknown outcome; they count against the sale
// until resolved.
type OrderLedger struct {
	OrderID          string
	Sale             *LedgerEntry
	RefundedAmount   Amount
	HeldRefundAmount Amount
	NetAmount        Amount
	Latest           *LedgerEntry
}

// SummarizeLedger replays entries in insertion order
func SummarizeLedger(orderID string, entries []*LedgerEntry) OrderLedger {
	summary := OrderLedger{OrderID: orderID}
	for _, e := range entries {
		summary.Latest = e
		summary.NetAmount += e.SignedAmount()
		if e.Kind.IsRefund() && (e.Status == TransactionStatusPending || e.Status == TransactionStatusUnknown) {
			summary.HeldRefundAmount += e.Amount
			continue
		}
		if e.Status != TransactionStatusApproved {
			continue
		}
		switch {
		case e.Kind.IsRefund():
			summary.RefundedAmount += e.Amount
		case e.Kind == KindSale || e.Kind == KindPreauth || e.Kind == KindCommercialCard || e.Kind == KindExtendedCredit:
			if summary.Sale == nil {
				summary.Sale = e
			}
		}
	}
	return summary
}

// SettledRoom is the sale amount not yet covered by approved refunds
func (l OrderLedger) SettledRoom() Amount {
	if l.Sale == nil {
		return 0
	}
	remaining := l.Sale.Amount - l.RefundedAmount
	if remaining < 0 {
		return 0
	}
	return remaining
}

// RefundableAmount is what may still be refunded against the original sale
func (l OrderLedger) RefundableAmount() Amount {
	remaining := l.SettledRoom() - l.HeldRefundAmount
	if remaining < 0 {
		return 0
	}
	return remaining
}
