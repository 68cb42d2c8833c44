package combo

import (
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-promo/internal/discount"
	"github.com/noah-isme/backend-promo/internal/money"
	"github.com/noah-isme/backend-promo/internal/offer"
)

// Line is a constituent of a combo definition.
type Line struct {
	ItemID uuid.UUID
	Qty    int
}

// Definition is an admin-authored bundle offer. The engine only ever reads a
// snapshot; status is recomputed from the window fields, never stored.
type Definition struct {
	ID        uuid.UUID
	Title     string
	Rule      discount.Rule
	IsActive  bool
	StartDate *time.Time
	EndDate   *time.Time
	Lines     []Line
}

// Status classifies the definition's offer window at the given instant.
func (d Definition) Status(now time.Time) offer.Status {
	return offer.Classify(d.IsActive, d.StartDate, d.EndDate, now)
}

// CatalogItem is the read-only snapshot the engine consumes per item.
type CatalogItem struct {
	BasePrice      money.Amount
	SalePercentBps int64
	Stock          int
}

// CatalogLookup resolves an item id to its catalog snapshot. The second
// return reports whether the item exists.
type CatalogLookup func(itemID uuid.UUID) (CatalogItem, bool)

// PricedLine is one combo line with its share of the bundle discount.
type PricedLine struct {
	ItemID            uuid.UUID    `json:"itemId"`
	Qty               int          `json:"qty"`
	UnitPrice         money.Amount `json:"unitPrice"`
	LineTotal         money.Amount `json:"lineTotal"`
	AllocatedDiscount money.Amount `json:"allocatedDiscount"`
	AllocatedTotal    money.Amount `json:"allocatedTotal"`
}

// PricingResult is the outcome of pricing a combo against a catalog snapshot.
type PricingResult struct {
	Lines                 []PricedLine `json:"lines"`
	BundleSubtotal        money.Amount `json:"bundleSubtotal"`
	BundleDiscount        money.Amount `json:"bundleDiscount"`
	BundleDiscountedTotal money.Amount `json:"bundleDiscountedTotal"`
	// MissingItems lists combo lines whose catalog entry no longer exists.
	// They are excluded from the sums; admin screens still render the rest.
	MissingItems []uuid.UUID `json:"missingItems,omitempty"`
}

// Price computes the bundle subtotal, the discount from the combo's rule, and
// a proportional per-line allocation of that discount. The allocation parts
// always sum to the bundle discount exactly; the rounding remainder lands on
// the highest-value line.
func Price(def Definition, lookup CatalogLookup) PricingResult {
	result := PricingResult{}
	weights := make([]money.Amount, 0, len(def.Lines))
	for _, line := range def.Lines {
		if line.Qty <= 0 {
			continue
		}
		item, ok := lookup(line.ItemID)
		if !ok {
			result.MissingItems = append(result.MissingItems, line.ItemID)
			continue
		}
		lineTotal := item.BasePrice * money.Amount(line.Qty)
		result.Lines = append(result.Lines, PricedLine{
			ItemID:    line.ItemID,
			Qty:       line.Qty,
			UnitPrice: item.BasePrice,
			LineTotal: lineTotal,
		})
		weights = append(weights, lineTotal)
		result.BundleSubtotal += lineTotal
	}
	result.BundleDiscount = def.Rule.Apply(result.BundleSubtotal)
	result.BundleDiscountedTotal = result.BundleSubtotal - result.BundleDiscount

	parts := money.Allocate(result.BundleDiscount, weights)
	for i := range result.Lines {
		result.Lines[i].AllocatedDiscount = parts[i]
		result.Lines[i].AllocatedTotal = result.Lines[i].LineTotal - parts[i]
	}
	return result
}

// UnitLine is a single cart-bound unit produced by expanding a combo. The
// bundle figures are frozen from the pricing pass so later combo edits never
// reprice lines already in a cart.
type UnitLine struct {
	ItemID                uuid.UUID
	UnitBasePrice         money.Amount
	AllocatedUnitPrice    money.Amount
	ComboID               uuid.UUID
	BundleSubtotal        money.Amount
	BundleDiscountedTotal money.Amount
}

// Expand explodes a priced combo into quantity-1 unit lines so the generic
// cart mutations (increment, decrement, remove one unit) work uniformly for
// combo and non-combo items. The allocated unit prices sum to the bundle
// discounted total exactly.
func Expand(def Definition, priced PricingResult) []UnitLine {
	var units []UnitLine
	var weights []money.Amount
	for _, line := range priced.Lines {
		for i := 0; i < line.Qty; i++ {
			units = append(units, UnitLine{
				ItemID:                line.ItemID,
				UnitBasePrice:         line.UnitPrice,
				ComboID:               def.ID,
				BundleSubtotal:        priced.BundleSubtotal,
				BundleDiscountedTotal: priced.BundleDiscountedTotal,
			})
			weights = append(weights, line.UnitPrice)
		}
	}
	parts := money.Allocate(priced.BundleDiscountedTotal, weights)
	for i := range units {
		units[i].AllocatedUnitPrice = parts[i]
	}
	return units
}
