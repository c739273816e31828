package types

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestCouponDiscount(t *testing.T) {
	tests := []struct {
		name     string
		coupon   Coupon
		subtotal string
		want     string
	}{
		{"Percentage", Coupon{DiscountType: DiscountPercentage, DiscountValue: dec("10")}, "59.99", "6"},
		{"PercentageRounds", Coupon{DiscountType: DiscountPercentage, DiscountValue: dec("15")}, "19.99", "3"},
		{"Fixed", Coupon{DiscountType: DiscountFixed, DiscountValue: dec("5")}, "20", "5"},
		{"FixedCappedAtSubtotal", Coupon{DiscountType: DiscountFixed, DiscountValue: dec("50")}, "20", "20"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.coupon.Discount(dec(tc.subtotal))
			assert.True(t, dec(tc.want).Equal(got), "got %s want %s", got, tc.want)
		})
	}
}

func TestCouponRedeemable(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	one := 1
	base := Coupon{
		Code:            "SAVE10",
		DiscountType:    DiscountPercentage,
		DiscountValue:   dec("10"),
		MinimumPurchase: dec("20"),
		ValidFrom:       now.Add(-time.Hour),
		ValidTo:         now.Add(time.Hour),
		Active:          true,
	}

	assert.NoError(t, base.Redeemable(dec("25"), now))

	inactive := base
	inactive.Active = false
	expired := base
	expired.ValidTo = now.Add(-time.Minute)
	early := base
	early.ValidFrom = now.Add(time.Minute)
	used := base
	used.MaxUses, used.UsedCount = &one, 1

	for name, c := range map[string]Coupon{"Inactive": inactive, "Expired": expired, "NotYetValid": early, "UsedUp": used} {
		t.Run(name, func(t *testing.T) {
			err := c.Redeemable(dec("25"), now)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}

	t.Run("BelowMinimum", func(t *testing.T) {
		err := base.Redeemable(dec("19.99"), now)
		var verr *ValidationError
		assert.True(t, errors.As(err, &verr))
		assert.Contains(t, verr.Fields["code"], "20.00")
	})
}

func TestCanTransition(t *testing.T) {
	allowed := map[[2]OrderStatus]bool{
		{OrderProcessing, OrderShipped}:       true,
		{OrderProcessing, OrderCancelled}:     true,
		{OrderShipped, OrderOutForDelivery}:   true,
		{OrderShipped, OrderDelivered}:        true,
		{OrderOutForDelivery, OrderDelivered}: true,
		{OrderDelivered, OrderReturned}:       true,
	}
	all := []OrderStatus{OrderProcessing, OrderShipped, OrderOutForDelivery, OrderDelivered, OrderCancelled, OrderReturned}
	for _, from := range all {
		for _, to := range all {
			assert.Equal(t, allowed[[2]OrderStatus{from, to}], CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestErrorTaxonomy(t *testing.T) {
	forbidden := &ForbiddenError{Required: []Role{RoleAdmin}, Actual: RoleUser}
	assert.ErrorIs(t, forbidden, ErrForbidden)
	assert.Equal(t, "admin access required (role=user)", forbidden.Error())

	assert.ErrorIs(t, NewConflictError("Coupon code already exists."), ErrConflict)
	assert.ErrorIs(t, NewValidationError("name", "is required"), ErrValidation)
	assert.NotErrorIs(t, NewValidationError("name", "is required"), ErrConflict)
}

func TestProductEffectivePrice(t *testing.T) {
	discounted := dec("8")
	higher := dec("12")
	assert.True(t, dec("8").Equal(Product{Price: dec("10"), DiscountPrice: &discounted}.EffectivePrice()))
	assert.True(t, dec("10").Equal(Product{Price: dec("10"), DiscountPrice: &higher}.EffectivePrice()))
	assert.True(t, dec("10").Equal(Product{Price: dec("10")}.EffectivePrice()))
}
