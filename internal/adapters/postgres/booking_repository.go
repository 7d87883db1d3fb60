package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kevin07696/booking-payment-service/internal/domain"
	"github.com/kevin07696/booking-payment-service/internal/domain/ports"
)

const bookingColumns = `
	b.id, b.user_id, b.status, b.order_id, b.amount, b.currency,
	b.pre_transaction_id, b.discount_id, b.discount_user_scoped, b.created_at, b.updated_at,
	p.id, p.expires_at, p.last_gateway_success`

const selectBookingByID = `SELECT` + bookingColumns + `
	FROM bookings b
	LEFT JOIN pre_transactions p ON p.id = b.pre_transaction_id
	WHERE b.id = $1`

const selectBookingByOrderID = `SELECT` + bookingColumns + `
	FROM bookings b
	LEFT JOIN pre_transactions p ON p.id = b.pre_transaction_id
	WHERE b.order_id = $1`

// The WHERE clause on status is what makes concurrent transitions exclusive.
const transitionBooking = `
	UPDATE bookings
	SET status = $3,
	    order_id = COALESCE(NULLIF($4::text, ''), order_id),
	    updated_at = $5,
	    discount_id = COALESCE($7::uuid, discount_id),
	    discount_user_scoped = CASE WHEN $7::uuid IS NULL THEN discount_user_scoped ELSE $8 END
	WHERE id = $1
	  AND status = $2
	  AND ($6::text = '' OR order_id = $6::text)`

const markGatewaySuccess = `
	UPDATE pre_transactions
	SET last_gateway_success = TRUE
	WHERE id = (SELECT pre_transaction_id FROM bookings WHERE id = $1)`

// BookingRepository implements ports.BookingRepository
type BookingRepository struct {
	pool ports.DBTX
}

var _ ports.BookingRepository = (*BookingRepository)(nil)

// NewBookingRepository creates a new booking repository
func NewBookingRepository(db ports.DBPort) *BookingRepository {
	return &BookingRepository{pool: db.GetDB()}
}

// GetByID loads a booking and its pre-transaction
func (r *BookingRepository) GetByID(ctx context.Context, db ports.DBTX, id string) (*domain.Booking, error) {
	bookingID, err := uuid.Parse(id)
	if err != nil {
		return nil, domain.ErrBookingNotFound
	}
	booking, err := scanBooking(querier(r.pool, db).QueryRow(ctx, selectBookingByID, bookingID))
	if err != nil {
		return nil, fmt.Errorf("get booking by id: %w", err)
	}
	return booking, nil
}

// GetByOrderID loads the booking owning orderID
func (r *BookingRepository) GetByOrderID(ctx context.Context, db ports.DBTX, orderID string) (*domain.Booking, error) {
	booking, err := scanBooking(querier(r.pool, db).QueryRow(ctx, selectBookingByOrderID, orderID))
	if err != nil {
		return nil, fmt.Errorf("get booking by order id: %w", err)
	}
	return booking, nil
}

// TransitionStatus applies update only if the row is still in update.From
func (r *BookingRepository) TransitionStatus(ctx context.Context, tx ports.DBTX, update ports.StatusUpdate, at time.Time) error {
	bookingID, err := uuid.Parse(update.BookingID)
	if err != nil {
		return domain.ErrBookingNotFound
	}
	q := querier(r.pool, tx)

	tag, err := q.Exec(ctx, transitionBooking,
		bookingID,
		string(update.From),
		string(update.To),
		update.SetOrderID,
		at,
		update.MatchOrderID,
		nullUUID(update.SetDiscountID),
		update.SetDiscountUserScoped,
	)
	if err != nil {
		return fmt.Errorf("transition booking %s: %w", update.BookingID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPreconditionFailed
	}

	if update.To == domain.BookingConfirmed {
		if _, err := q.Exec(ctx, markGatewaySuccess, bookingID); err != nil {
			return fmt.Errorf("mark pre-transaction gateway success: %w", err)
		}
	}
	return nil
}

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var (
		id, preTxnRef, discountID pgtype.UUID
		preTxnID                  pgtype.UUID
		userID, orderID           pgtype.Text
		status, currency          string
		amount                    int64
		userScoped                bool
		createdAt, updatedAt      time.Time
		expiresAt                 pgtype.Timestamptz
		lastSuccess               pgtype.Bool
	)
	err := row.Scan(
		&id, &userID, &status, &orderID, &amount, &currency,
		&preTxnRef, &discountID, &userScoped, &createdAt, &updatedAt,
		&preTxnID, &expiresAt, &lastSuccess,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}

	booking := &domain.Booking{
		ID:                 uuidString(id),
		UserID:             userID.String,
		Status:             domain.BookingStatus(status),
		OrderID:            orderID.String,
		Amount:             domain.Amount(amount),
		Currency:           domain.Currency(currency),
		PreTransactionID:   uuidString(preTxnRef),
		DiscountID:         uuidString(discountID),
		DiscountUserScoped: userScoped,
		CreatedAt:          createdAt,
		UpdatedAt:          updatedAt,
	}
	if preTxnID.Valid {
		booking.PreTransaction = &domain.PreTransaction{
			ID:                 uuidString(preTxnID),
			ExpiresAt:          expiresAt.Time,
			LastGatewaySuccess: lastSuccess.Bool,
		}
	}
	return booking, nil
}
