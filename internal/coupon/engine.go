package coupon

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-promo/internal/discount"
	"github.com/noah-isme/backend-promo/internal/money"
	"github.com/noah-isme/backend-promo/internal/offer"
)

var (
	// ErrNotActive is returned when the coupon is deactivated or outside its window.
	ErrNotActive = errors.New("coupon not active or expired")
	// ErrUsageLimitExceeded indicates the coupon has exhausted its usage quota.
	ErrUsageLimitExceeded = errors.New("coupon usage limit exceeded")
	// ErrNotApplicable is returned when an item-restricted coupon matches nothing in the cart.
	ErrNotApplicable = errors.New("coupon not applicable to any cart item")
)

// BelowMinimumError reports a cart that does not meet the coupon's minimum
// purchase amount. The required amount travels with the error so callers can
// surface it without re-reading the definition.
type BelowMinimumError struct {
	Required money.Amount
}

func (e *BelowMinimumError) Error() string {
	return fmt.Sprintf("minimum purchase of %s not met", money.FormatDecimal(e.Required))
}

// Definition is a coupon snapshot as authored by the admin. The engine reads
// TimesUsed to report an already-exhausted limit; it never increments it.
type Definition struct {
	Code              string
	Rule              discount.Rule
	MinPurchase       money.Amount
	IsActive          bool
	ValidFrom         *time.Time
	ValidUntil        *time.Time
	UsageLimit        *int32
	TimesUsed         int32
	RestrictedItemIDs []uuid.UUID
}

// Status classifies the coupon's offer window at the given instant.
func (d Definition) Status(now time.Time) offer.Status {
	return offer.Classify(d.IsActive, d.ValidFrom, d.ValidUntil, now)
}

// Item is a selected cart line viewed by the validator.
type Item struct {
	ItemID   uuid.UUID
	Subtotal money.Amount
}

// Result is a successful evaluation.
type Result struct {
	Discount         money.Amount `json:"discount"`
	EligibleSubtotal money.Amount `json:"eligibleSubtotal"`
	Code             string       `json:"code"`
}

// Validate runs the eligibility gates in order, short-circuiting on the first
// failure: offer window, minimum purchase, usage limit. The minimum purchase
// is checked against the full selected-lines subtotal regardless of item
// restrictions. Failures are expected user-facing outcomes and come back as
// typed errors, never panics.
func (d Definition) Validate(now time.Time, cartSubtotal money.Amount) error {
	if d.Status(now) != offer.StatusActive {
		return ErrNotActive
	}
	if cartSubtotal < d.MinPurchase {
		return &BelowMinimumError{Required: d.MinPurchase}
	}
	if d.UsageLimit != nil && *d.UsageLimit >= 0 && d.TimesUsed >= *d.UsageLimit {
		return ErrUsageLimitExceeded
	}
	return nil
}

// EligibleSubtotal returns the portion of the cart the discount is computed
// against: the restricted-item subset when an allow-list is present, the full
// subtotal otherwise.
func EligibleSubtotal(items []Item, d Definition) money.Amount {
	var total money.Amount
	restricted := len(d.RestrictedItemIDs) > 0
	for _, it := range items {
		if it.Subtotal <= 0 {
			continue
		}
		if !restricted || matchesRestriction(d, it.ItemID) {
			total += it.Subtotal
		}
	}
	return total
}

// Evaluate validates the coupon against the cart and computes its discount.
func Evaluate(d Definition, now time.Time, items []Item) (Result, error) {
	var cartSubtotal money.Amount
	for _, it := range items {
		if it.Subtotal > 0 {
			cartSubtotal += it.Subtotal
		}
	}
	if err := d.Validate(now, cartSubtotal); err != nil {
		return Result{}, err
	}
	eligible := EligibleSubtotal(items, d)
	if eligible <= 0 {
		return Result{}, ErrNotApplicable
	}
	return Result{
		Discount:         d.Rule.Apply(eligible),
		EligibleSubtotal: eligible,
		Code:             d.Code,
	}, nil
}

func matchesRestriction(d Definition, itemID uuid.UUID) bool {
	for _, id := range d.RestrictedItemIDs {
		if id == itemID {
			return true
		}
	}
	return false
}
