package cart

import (
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-promo/internal/money"
	"github.com/noah-isme/backend-promo/internal/pricing"
)

// Entry is one cart line. Prices are snapshots taken at add-time; combo-origin
// entries carry the frozen allocated unit price instead of the catalog price.
type Entry struct {
	ID             uuid.UUID    `json:"id"`
	ItemID         uuid.UUID    `json:"itemId"`
	Title          string       `json:"title"`
	Qty            int          `json:"qty"`
	UnitBasePrice  money.Amount `json:"unitBasePrice"`
	SalePercentBps int64        `json:"salePercentBps,omitempty"`
	Selected       bool         `json:"selected"`

	FromCombo bool       `json:"fromCombo,omitempty"`
	ComboID   *uuid.UUID `json:"comboId,omitempty"`
	// CatalogUnitPrice is the undiscounted catalog price at add-time for
	// combo-origin entries; zero otherwise.
	CatalogUnitPrice money.Amount `json:"catalogUnitPrice,omitempty"`
}

// EffectiveUnitPrice applies the item-level sale to the unit price.
func (e Entry) EffectiveUnitPrice() money.Amount {
	unit := e.UnitBasePrice
	if e.SalePercentBps > 0 {
		unit -= money.ApplyBps(unit, e.SalePercentBps)
	}
	if unit < 0 {
		return 0
	}
	return unit
}

// PricingLine converts the entry for the totals aggregator.
func (e Entry) PricingLine() pricing.Line {
	return pricing.Line{
		ItemID:           e.ItemID,
		Qty:              e.Qty,
		UnitBasePrice:    e.UnitBasePrice,
		SalePercentBps:   e.SalePercentBps,
		FromCombo:        e.FromCombo,
		CatalogUnitPrice: e.CatalogUnitPrice,
	}
}

// AppliedCoupon is the coupon stored with the cart: the code plus the
// discount echoed from the moment it was applied. Totals never trust the
// stored discount; the code is re-validated against the live definition and
// the current lines on every read.
type AppliedCoupon struct {
	Code     string       `json:"code"`
	Discount money.Amount `json:"discount"`
}

// Cart is a session cart persisted as a single Redis value.
type Cart struct {
	ID        uuid.UUID      `json:"id"`
	Entries   []Entry        `json:"entries"`
	Coupon    *AppliedCoupon `json:"coupon,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// SelectedLines returns pricing lines for the selected entries.
func (c Cart) SelectedLines() []pricing.Line {
	var lines []pricing.Line
	for _, e := range c.Entries {
		if e.Selected && e.Qty > 0 {
			lines = append(lines, e.PricingLine())
		}
	}
	return lines
}

// FindEntry locates an entry by line id.
func (c *Cart) FindEntry(lineID uuid.UUID) (int, bool) {
	for i := range c.Entries {
		if c.Entries[i].ID == lineID {
			return i, true
		}
	}
	return 0, false
}
