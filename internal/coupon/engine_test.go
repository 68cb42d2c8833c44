package coupon

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-promo/internal/discount"
	"github.com/noah-isme/backend-promo/internal/money"
)

var (
	restrictedItem = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	otherItem      = uuid.MustParse("22222222-2222-2222-2222-222222222222")
)

func activeCoupon() Definition {
	return Definition{
		Code:     "SAVE20",
		Rule:     discount.Rule{Kind: discount.KindPercent, PercentBps: 2000},
		IsActive: true,
	}
}

func TestValidateMinimumPurchase(t *testing.T) {
	def := activeCoupon()
	def.MinPurchase = 99900
	now := time.Now()

	err := def.Validate(now, 80000)
	var belowMin *BelowMinimumError
	require.ErrorAs(t, err, &belowMin)
	require.Equal(t, money.Amount(99900), belowMin.Required)

	require.NoError(t, def.Validate(now, 100000))
}

func TestValidateWindowFirst(t *testing.T) {
	// Window failure wins even when the subtotal is also too low.
	def := activeCoupon()
	def.IsActive = false
	def.MinPurchase = 99900
	require.ErrorIs(t, def.Validate(time.Now(), 100), ErrNotActive)
}

func TestValidateUsageLimit(t *testing.T) {
	def := activeCoupon()
	limit := int32(5)
	def.UsageLimit = &limit
	def.TimesUsed = 5
	require.ErrorIs(t, def.Validate(time.Now(), 100000), ErrUsageLimitExceeded)

	def.TimesUsed = 4
	require.NoError(t, def.Validate(time.Now(), 100000))
}

func TestEvaluateFixedDiscountFloorsAtSubtotal(t *testing.T) {
	def := activeCoupon()
	def.Rule = discount.Rule{Kind: discount.KindFixed, Value: 50000}
	items := []Item{{ItemID: otherItem, Subtotal: 30000}}

	got, err := Evaluate(def, time.Now(), items)
	require.NoError(t, err)
	require.Equal(t, money.Amount(30000), got.Discount)
}

func TestEvaluatePercentWithCap(t *testing.T) {
	def := activeCoupon()
	def.Rule = discount.Rule{Kind: discount.KindPercent, PercentBps: 2000, Cap: 5000}
	items := []Item{{ItemID: otherItem, Subtotal: 100000}}

	got, err := Evaluate(def, time.Now(), items)
	require.NoError(t, err)
	require.Equal(t, money.Amount(5000), got.Discount)
}

func TestEvaluateRestrictedDiscountsSubsetOnly(t *testing.T) {
	// Item-restricted coupons discount the restricted subset; the minimum
	// purchase gate still sees the full cart.
	def := activeCoupon()
	def.RestrictedItemIDs = []uuid.UUID{restrictedItem}
	def.MinPurchase = 100000
	items := []Item{
		{ItemID: restrictedItem, Subtotal: 40000},
		{ItemID: otherItem, Subtotal: 70000},
	}

	got, err := Evaluate(def, time.Now(), items)
	require.NoError(t, err)
	require.Equal(t, money.Amount(40000), got.EligibleSubtotal)
	require.Equal(t, money.Amount(8000), got.Discount)
}

func TestEvaluateRestrictedNoMatch(t *testing.T) {
	def := activeCoupon()
	def.RestrictedItemIDs = []uuid.UUID{restrictedItem}
	items := []Item{{ItemID: otherItem, Subtotal: 70000}}

	_, err := Evaluate(def, time.Now(), items)
	require.ErrorIs(t, err, ErrNotApplicable)
}

func TestEvaluateDiscountNeverExceedsEligible(t *testing.T) {
	def := activeCoupon()
	def.Rule = discount.Rule{Kind: discount.KindPercent, PercentBps: 10000}
	items := []Item{{ItemID: otherItem, Subtotal: 12345}}

	got, err := Evaluate(def, time.Now(), items)
	require.NoError(t, err)
	require.LessOrEqual(t, got.Discount, got.EligibleSubtotal)
}

func TestEvaluateExpiredWindow(t *testing.T) {
	def := activeCoupon()
	until := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	def.ValidUntil = &until
	_, err := Evaluate(def, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), []Item{{ItemID: otherItem, Subtotal: 1000}})
	require.True(t, errors.Is(err, ErrNotActive))
}
