package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kevin07696/booking-payment-service/internal/domain"
	"github.com/kevin07696/booking-payment-service/internal/domain/ports"
)

// ON CONFLICT hits the partial unique index on redirect-flow entries only.
const insertLedgerEntry = `
	INSERT INTO payment_transactions (
		id, order_id, booking_id, kind, flow, status, amount, currency,
		return_code, auth_code, host_ref_num, masked_pan, message, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	ON CONFLICT DO NOTHING`

const selectLedgerByOrderID = `
	SELECT id, order_id, booking_id, kind, flow, status, amount, currency,
	       return_code, auth_code, host_ref_num, masked_pan, message, created_at
	FROM payment_transactions
	WHERE order_id = $1
	ORDER BY created_at, id`

// Transaction-scoped; released on commit or rollback.
const lockLedgerOrder = `SELECT pg_advisory_xact_lock(hashtext($1))`

const resolvePendingEntry = `
	UPDATE payment_transactions
	SET status = $2, return_code = $3, auth_code = $4, host_ref_num = $5, message = $6
	WHERE id = $1 AND status = 'PENDING'`

// LedgerRepository implements ports.LedgerRepository over payment_transactions
type LedgerRepository struct {
	pool ports.DBTX
}

var _ ports.LedgerRepository = (*LedgerRepository)(nil)

// NewLedgerRepository creates a new ledger repository
func NewLedgerRepository(db ports.DBPort) *LedgerRepository {
	return &LedgerRepository{pool: db.GetDB()}
}

// Append inserts entry, assigning an id and timestamp when missing
func (r *LedgerRepository) Append(ctx context.Context, tx ports.DBTX, entry *domain.LedgerEntry) (bool, error) {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	id, err := uuid.Parse(entry.ID)
	if err != nil {
		return false, fmt.Errorf("invalid ledger entry id: %w", err)
	}

	tag, err := querier(r.pool, tx).Exec(ctx, insertLedgerEntry,
		id,
		entry.OrderID,
		nullUUID(entry.BookingID),
		string(entry.Kind),
		string(entry.Flow),
		string(entry.Status),
		int64(entry.Amount),
		string(entry.Currency),
		nullText(entry.ReturnCode),
		nullText(entry.AuthCode),
		nullText(entry.HostRefNum),
		nullText(entry.MaskedPAN),
		nullText(entry.Message),
		entry.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("append ledger entry: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListByOrderID returns every entry recorded for orderID, oldest first
func (r *LedgerRepository) ListByOrderID(ctx context.Context, db ports.DBTX, orderID string) ([]*domain.LedgerEntry, error) {
	rows, err := querier(r.pool, db).Query(ctx, selectLedgerByOrderID, orderID)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []*domain.LedgerEntry
	for rows.Next() {
		var (
			id, bookingID                    pgtype.UUID
			kind, flow, status, currency     string
			amount                           int64
			returnCode, authCode, hostRefNum pgtype.Text
			maskedPAN, message               pgtype.Text
			entry                            domain.LedgerEntry
		)
		if err := rows.Scan(&id, &entry.OrderID, &bookingID, &kind, &flow, &status, &amount, &currency,
			&returnCode, &authCode, &hostRefNum, &maskedPAN, &message, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		entry.ID = uuidString(id)
		entry.BookingID = uuidString(bookingID)
		entry.Kind = domain.TransactionKind(kind)
		entry.Flow = domain.PaymentFlow(flow)
		entry.Status = domain.TransactionStatus(status)
		entry.Amount = domain.Amount(amount)
		entry.Currency = domain.Currency(currency)
		entry.ReturnCode = returnCode.String
		entry.AuthCode = authCode.String
		entry.HostRefNum = hostRefNum.String
		entry.MaskedPAN = maskedPAN.String
		entry.Message = message.String
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger entries: %w", err)
	}
	return entries, nil
}

// LockOrder takes a transaction-scoped advisory lock keyed on orderID
func (r *LedgerRepository) LockOrder(ctx context.Context, tx ports.DBTX, orderID string) error {
	if tx == nil {
		return fmt.Errorf("lock ledger order %s: transaction required", orderID)
	}
	if _, err := tx.Exec(ctx, lockLedgerOrder, orderID); err != nil {
		return fmt.Errorf("lock ledger order: %w", err)
	}
	return nil
}

// Resolve settles a reserved entry with the gateway's verdict
func (r *LedgerRepository) Resolve(ctx context.Context, db ports.DBTX, entry *domain.LedgerEntry) error {
	id, err := uuid.Parse(entry.ID)
	if err != nil {
		return fmt.Errorf("invalid ledger entry id: %w", err)
	}
	tag, err := querier(r.pool, db).Exec(ctx, resolvePendingEntry,
		id,
		string(entry.Status),
		nullText(entry.ReturnCode),
		nullText(entry.AuthCode),
		nullText(entry.HostRefNum),
		nullText(entry.Message),
	)
	if err != nil {
		return fmt.Errorf("resolve ledger entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPreconditionFailed
	}
	return nil
}
