package types

import (
	"time"

	"github.com/shopspring/decimal"
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

type Coupon struct {
	ID              int64           `json:"id"`
	Code            string          `json:"code"`
	Description     string          `json:"description"`
	DiscountType    DiscountType    `json:"discount_type"`
	DiscountValue   decimal.Decimal `json:"discount_value"`
	MinimumPurchase decimal.Decimal `json:"minimum_purchase"`
	ValidFrom       time.Time       `json:"valid_from"`
	ValidTo         time.Time       `json:"valid_to"`
	MaxUses         *int            `json:"max_uses,omitempty"`
	UsedCount       int             `json:"used_count"`
	Active          bool            `json:"active"`
}

// Discount returns the amount taken off subtotal, never more than subtotal itself.
func (c Coupon) Discount(subtotal decimal.Decimal) decimal.Decimal {
	var d decimal.Decimal
	switch c.DiscountType {
	case DiscountPercentage:
		d = subtotal.Mul(c.DiscountValue).Div(decimal.NewFromInt(100)).Round(2)
	case DiscountFixed:
		d = c.DiscountValue
	}
	if d.GreaterThan(subtotal) {
		return subtotal
	}
	return d
}

// Redeemable reports why the coupon cannot be applied to subtotal at now, or nil.
func (c Coupon) Redeemable(subtotal decimal.Decimal, now time.Time) error {
	switch {
	case !c.Active:
		return NewValidationError("code", "coupon is not active")
	case now.Before(c.ValidFrom):
		return NewValidationError("code", "coupon is not valid yet")
	case now.After(c.ValidTo):
		return NewValidationError("code", "coupon has expired")
	case c.MaxUses != nil && c.UsedCount >= *c.MaxUses:
		return NewValidationError("code", "coupon usage limit reached")
	case subtotal.LessThan(c.MinimumPurchase):
		return NewValidationError("code", "minimum purchase of "+c.MinimumPurchase.StringFixed(2)+" not met")
	}
	return nil
}

type CouponRequest struct {
	Code            string          `json:"code" validate:"required,min=3,max=40"`
	Description     string          `json:"description" validate:"max=500"`
	DiscountType    DiscountType    `json:"discount_type" validate:"required,oneof=percentage fixed"`
	DiscountValue   decimal.Decimal `json:"discount_value"`
	MinimumPurchase decimal.Decimal `json:"minimum_purchase"`
	ValidFrom       time.Time       `json:"valid_from" validate:"required"`
	ValidTo         time.Time       `json:"valid_to" validate:"required,gtfield=ValidFrom"`
	MaxUses         *int            `json:"max_uses,omitempty" validate:"omitempty,gt=0"`
	Active          *bool           `json:"active,omitempty"`
}

type ValidateCouponRequest struct {
	Code     string          `json:"code" validate:"required"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

type CouponQuote struct {
	Code     string          `json:"code"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Discount decimal.Decimal `json:"discount"`
	Total    decimal.Decimal `json:"total"`
}
