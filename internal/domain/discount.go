package domain

import (
	"strings"
	"time"
)

// DiscountKind is percentage or fixed
type DiscountKind string

const (
	DiscountPercentage DiscountKind = "percentage"
	DiscountFixed      DiscountKind = "fixed"
)

// Discount is a general promotion code
type Discount struct {
	ID          string       `json:"id"`
	Code        string       `json:"code"`
	Kind        DiscountKind `json:"kind"`
	Value       int64        `json:"value"`
	Currency    string       `json:"currency,omitempty"`
	MinPurchase *int64       `json:"minPurchase,omitempty"`
	MaxDiscount *int64       `json:"maxDiscount,omitempty"`
	UsageLimit  *int64       `json:"usageLimit,omitempty"`
	UsedCount   int64        `json:"usedCount"`
	ValidFrom   *time.Time   `json:"validFrom,omitempty"`
	ValidUntil  *time.Time   `json:"validUntil,omitempty"`
	Active      bool         `json:"active"`
}

// UserDiscount is a promotion code scoped to a single user
type UserDiscount struct {
	Discount
	UserID        string     `json:"userId"`
	SingleUse     bool       `json:"singleUse"`
	UsedAt        *time.Time `json:"usedAt,omitempty"`
	UsedByBooking string     `json:"usedByBooking,omitempty"`
}

// NormalizeCode upper-cases a promotion code for storage and lookup
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// InWindow reports whether now falls inside the validity window
func (d *Discount) InWindow(now time.Time) bool {
	if d.ValidFrom != nil && now.Before(*d.ValidFrom) {
		return false
	}
	if d.ValidUntil != nil && now.After(*d.ValidUntil) {
		return false
	}
	return true
}

// Exhausted reports whether the usage limit is used up
func (d *Discount) Exhausted() bool {
	return d.UsageLimit != nil && d.UsedCount >= *d.UsageLimit
}

// Consumed reports whether a single-use user discount was already redeemed
func (u *UserDiscount) Consumed() bool {
	return u.SingleUse && u.UsedAt != nil
}
