package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kevin07696/booking-payment-service/internal/domain"
	"github.com/kevin07696/booking-payment-service/internal/domain/ports"
)

const selectDiscountByCode = `
	SELECT id, code, kind, value, currency, min_purchase, max_discount,
	       usage_limit, used_count, valid_from, valid_until, active
	FROM discounts
	WHERE code = $1`

const selectUserDiscountByCode = `
	SELECT id, code, kind, value, currency, min_purchase, max_discount,
	       valid_from, valid_until, active, user_id, single_use, used_at, used_by_booking
	FROM user_discounts
	WHERE user_id = $1 AND code = $2`

const incrementDiscountUsage = `
	UPDATE discounts
	SET used_count = used_count + 1
	WHERE id = $1
	  AND active
	  AND (usage_limit IS NULL OR used_count < usage_limit)`

const markUserDiscountUsed = `
	UPDATE user_discounts
	SET used_at = $3, used_by_booking = $2
	WHERE id = $1
	  AND (NOT single_use OR used_at IS NULL)`

// DiscountRepository implements ports.DiscountRepository
type DiscountRepository struct {
	pool ports.DBTX
}

var _ ports.DiscountRepository = (*DiscountRepository)(nil)

// NewDiscountRepository creates a new discount repository
func NewDiscountRepository(db ports.DBPort) *DiscountRepository {
	return &DiscountRepository{pool: db.GetDB()}
}

// GetByCode loads a general discount
func (r *DiscountRepository) GetByCode(ctx context.Context, db ports.DBTX, code string) (*domain.Discount, error) {
	var (
		d                        domain.Discount
		id                       pgtype.UUID
		kind                     string
		currency                 pgtype.Text
		minPurchase, maxDiscount pgtype.Int8
		usageLimit               pgtype.Int8
		validFrom, validUntil    pgtype.Timestamptz
	)
	err := querier(r.pool, db).QueryRow(ctx, selectDiscountByCode, domain.NormalizeCode(code)).Scan(
		&id, &d.Code, &kind, &d.Value, &currency, &minPurchase, &maxDiscount,
		&usageLimit, &d.UsedCount, &validFrom, &validUntil, &d.Active,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrDiscountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get discount by code: %w", err)
	}

	d.ID = uuidString(id)
	d.Kind = domain.DiscountKind(kind)
	d.Currency = currency.String
	d.MinPurchase = int8Ptr(minPurchase)
	d.MaxDiscount = int8Ptr(maxDiscount)
	d.UsageLimit = int8Ptr(usageLimit)
	d.ValidFrom = timePtr(validFrom)
	d.ValidUntil = timePtr(validUntil)
	return &d, nil
}

// GetUserDiscountByCode loads a discount owned by userID
func (r *DiscountRepository) GetUserDiscountByCode(ctx context.Context, db ports.DBTX, userID, code string) (*domain.UserDiscount, error) {
	var (
		ud                       domain.UserDiscount
		id, usedBy               pgtype.UUID
		kind                     string
		currency                 pgtype.Text
		minPurchase, maxDiscount pgtype.Int8
		validFrom, validUntil    pgtype.Timestamptz
		usedAt                   pgtype.Timestamptz
	)
	err := querier(r.pool, db).QueryRow(ctx, selectUserDiscountByCode, userID, domain.NormalizeCode(code)).Scan(
		&id, &ud.Code, &kind, &ud.Value, &currency, &minPurchase, &maxDiscount,
		&validFrom, &validUntil, &ud.Active, &ud.UserID, &ud.SingleUse, &usedAt, &usedBy,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrDiscountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user discount by code: %w", err)
	}

	ud.ID = uuidString(id)
	ud.Kind = domain.DiscountKind(kind)
	ud.Currency = currency.String
	ud.MinPurchase = int8Ptr(minPurchase)
	ud.MaxDiscount = int8Ptr(maxDiscount)
	ud.ValidFrom = timePtr(validFrom)
	ud.ValidUntil = timePtr(validUntil)
	ud.UsedAt = timePtr(usedAt)
	ud.UsedByBooking = uuidString(usedBy)
	return &ud, nil
}

// IncrementUsage bumps used_count unless the limit is reached
func (r *DiscountRepository) IncrementUsage(ctx context.Context, tx ports.DBTX, discountID string) error {
	tag, err := querier(r.pool, tx).Exec(ctx, incrementDiscountUsage, nullUUID(discountID))
	if err != nil {
		return fmt.Errorf("increment discount usage: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPreconditionFailed
	}
	return nil
}

// MarkUserDiscountUsed records the consuming booking
func (r *DiscountRepository) MarkUserDiscountUsed(ctx context.Context, tx ports.DBTX, discountID, bookingID string, at time.Time) error {
	tag, err := querier(r.pool, tx).Exec(ctx, markUserDiscountUsed, nullUUID(discountID), nullUUID(bookingID), at)
	if err != nil {
		return fmt.Errorf("mark user discount used: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPreconditionFailed
	}
	return nil
}
