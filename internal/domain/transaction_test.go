package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(kind TransactionKind, status TransactionStatus, amount Amount) *LedgerEntry {
	return &LedgerEntry{OrderID: "GRN_1_A00001", Kind: kind, Status: status, Amount: amount}
}

func TestSummarizeLedger(t *testing.T) {
	entries := []*LedgerEntry{
		entry(KindSale, TransactionStatusApproved, 10000),
		entry(KindRefund, TransactionStatusApproved, 3000),
		entry(KindRefund, TransactionStatusDeclined, 5000),
		entry(KindRefund, TransactionStatusUnknown, 1000),
	}

	summary := SummarizeLedger("GRN_1_A00001", entries)

	require.NotNil(t, summary.Sale)
	assert.Equal(t, Amount(3000), summary.RefundedAmount)
	assert.Equal(t, Amount(1000), summary.HeldRefundAmount)
	assert.Equal(t, Amount(7000), summary.NetAmount)
	assert.Equal(t, Amount(7000), summary.SettledRoom())
	assert.Equal(t, Amount(6000), summary.RefundableAmount())
	assert.Equal(t, TransactionStatusUnknown, summary.Latest.Status)
}

func TestSummarizeLedger_PendingRefundsHoldTheSale(t *testing.T) {
	summary := SummarizeLedger("GRN_1_A00001", []*LedgerEntry{
		entry(KindSale, TransactionStatusApproved, 10000),
		entry(KindRefund, TransactionStatusPending, 6000),
		entry(KindRefund, TransactionStatusFailed, 4000),
	})

	assert.Equal(t, Amount(0), summary.RefundedAmount)
	assert.Equal(t, Amount(6000), summary.HeldRefundAmount)
	assert.Equal(t, Amount(10000), summary.NetAmount)
	assert.Equal(t, Amount(10000), summary.SettledRoom())
	assert.Equal(t, Amount(4000), summary.RefundableAmount())
}

func TestSummarizeLedger_DeclinedSaleNotRefundable(t *testing.T) {
	summary := SummarizeLedger("x", []*LedgerEntry{entry(KindSale, TransactionStatusDeclined, 10000)})

	assert.Nil(t, summary.Sale)
	assert.Equal(t, Amount(0), summary.RefundableAmount())
	assert.Equal(t, Amount(0), summary.NetAmount)
}

func TestPreTransaction_IsExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.True(t, (&PreTransaction{ExpiresAt: now.Add(-time.Minute)}).IsExpired(now))
	assert.False(t, (&PreTransaction{ExpiresAt: now.Add(time.Minute)}).IsExpired(now))
	assert.False(t, (&PreTransaction{}).IsExpired(now))
	var missing *PreTransaction
	assert.False(t, missing.IsExpired(now))
}

func TestSettlement(t *testing.T) {
	approved := Approved(SettlementDetails{ReturnCode: "00", AuthCode: "123456"})
	assert.True(t, approved.IsApproved())
	assert.Equal(t, OutcomeApproved, approved.Outcome())
	_, declined := approved.Decline()
	assert.False(t, declined)

	d := Declined(SettlementDetails{ReturnCode: "0103"}, Decline{Code: "0103", HTTPStatus: 400})
	reason, ok := d.Decline()
	assert.True(t, ok)
	assert.Equal(t, "0103", reason.Code)
	assert.Equal(t, "declined(0103)", d.String())

	e := Errored(FaultTimeout, assert.AnError)
	fault, ok := e.Fault()
	require.True(t, ok)
	domainErr := fault.DomainError()
	assert.Equal(t, ErrorCodeGatewayTimeout, domainErr.Code)
	assert.True(t, domainErr.Retryable())
	assert.ErrorIs(t, domainErr, assert.AnError)
}
