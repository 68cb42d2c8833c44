package catalog

import (
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-promo/internal/money"
)

// Item is a sellable catalog entry. Prices are minor currency units.
type Item struct {
	ID             uuid.UUID    `json:"id"`
	SKU            string       `json:"sku"`
	Title          string       `json:"title"`
	BasePrice      money.Amount `json:"basePrice"`
	SalePercentBps int32        `json:"salePercentBps"`
	Stock          int32        `json:"stock"`
	IsActive       bool         `json:"isActive"`
	CreatedAt      time.Time    `json:"createdAt"`
	UpdatedAt      time.Time    `json:"updatedAt"`
}

// EffectiveUnitPrice returns the base price with any item-level sale applied.
func (i Item) EffectiveUnitPrice() money.Amount {
	if i.SalePercentBps <= 0 {
		return i.BasePrice
	}
	discount := money.ApplyBps(i.BasePrice, int64(i.SalePercentBps))
	if discount >= i.BasePrice {
		return 0
	}
	return i.BasePrice - discount
}

// InStock reports whether the item has remaining stock.
func (i Item) InStock() bool { return i.Stock > 0 }
