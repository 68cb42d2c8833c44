package pricing

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-promo/internal/coupon"
	"github.com/noah-isme/backend-promo/internal/money"
)

// ErrEmptyCart is returned when no selected lines are present. Checkout
// must block on this instead of treating it as a zero-valued order.
var ErrEmptyCart = errors.New("cart has no selected lines")

// Line is a selected cart line as seen by the aggregator. Combo-origin lines
// carry the frozen allocated unit price from add-time; their item-level sale
// percentage is zero because the bundle discount replaced it.
type Line struct {
	ItemID         uuid.UUID
	Qty            int
	UnitBasePrice  money.Amount
	SalePercentBps int64
	FromCombo      bool
	// CatalogUnitPrice is the undiscounted catalog price captured at add-time
	// for combo-origin lines; the gap to UnitBasePrice is the allocated
	// bundle discount already baked into the line.
	CatalogUnitPrice money.Amount
}

// AppliedCoupon is the coupon attached to the checkout session. Only the
// definition travels: the discount is re-derived from the current lines on
// every totals call, never carried over from an earlier cart composition.
type AppliedCoupon struct {
	Definition coupon.Definition
}

// DeliveryRule decides the delivery charge from configuration, not constants.
type DeliveryRule struct {
	FreeThreshold money.Amount
	FlatFee       money.Amount
}

// Charge returns the delivery fee for a subtotal. Only a subtotal strictly
// above the threshold ships free; the threshold itself still pays the fee.
func (r DeliveryRule) Charge(subtotal money.Amount) money.Amount {
	if subtotal > r.FreeThreshold {
		return 0
	}
	return r.FlatFee
}

// OrderTotals is the derived order summary handed to the payment step.
type OrderTotals struct {
	Subtotal               money.Amount `json:"subtotal"`
	ComboAllocatedDiscount money.Amount `json:"comboAllocatedDiscount"`
	CouponDiscount         money.Amount `json:"couponDiscount"`
	DeliveryCharge         money.Amount `json:"deliveryCharge"`
	GrandTotal             money.Amount `json:"grandTotal"`
}

// ComputeTotals derives order totals from the selected lines and an optionally
// applied coupon. It is a pure function of its inputs plus the injected now;
// calling it twice on an unchanged cart yields identical totals.
//
// The applied coupon is evaluated against the lines as they are now. Any
// discount figure validated for an earlier cart composition is ignored, so
// adding, removing, requantifying, or swapping lines cannot keep an obsolete
// discount alive, even when the subtotal happens to come out the same.
func ComputeTotals(lines []Line, applied *AppliedCoupon, rule DeliveryRule, now time.Time) (OrderTotals, error) {
	if len(lines) == 0 {
		return OrderTotals{}, ErrEmptyCart
	}

	var totals OrderTotals
	couponItems := make([]coupon.Item, 0, len(lines))
	for _, line := range lines {
		if line.Qty <= 0 {
			continue
		}
		unit := line.UnitBasePrice
		if line.SalePercentBps > 0 {
			unit -= money.ApplyBps(unit, line.SalePercentBps)
		}
		lineTotal := unit * money.Amount(line.Qty)
		totals.Subtotal += lineTotal
		if line.FromCombo && line.CatalogUnitPrice > line.UnitBasePrice {
			totals.ComboAllocatedDiscount += (line.CatalogUnitPrice - line.UnitBasePrice) * money.Amount(line.Qty)
		}
		couponItems = append(couponItems, coupon.Item{ItemID: line.ItemID, Subtotal: lineTotal})
	}
	if len(couponItems) == 0 {
		return OrderTotals{}, ErrEmptyCart
	}

	if applied != nil {
		result, err := coupon.Evaluate(applied.Definition, now, couponItems)
		if err != nil {
			return OrderTotals{}, err
		}
		totals.CouponDiscount = result.Discount
	}

	totals.DeliveryCharge = rule.Charge(totals.Subtotal)
	totals.GrandTotal = totals.Subtotal - totals.CouponDiscount + totals.DeliveryCharge
	if totals.GrandTotal < 0 {
		totals.GrandTotal = 0
	}
	return totals, nil
}
