package order

import (
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-promo/internal/money"
)

// Status values an order moves through.
const (
	StatusPending = "pending"
	StatusPaid    = "paid"
	StatusFailed  = "failed"
)

// Line is a purchased order line, a snapshot taken at placement time.
type Line struct {
	ID        uuid.UUID    `json:"id"`
	ItemID    uuid.UUID    `json:"itemId"`
	Title     string       `json:"title"`
	Qty       int32        `json:"qty"`
	UnitPrice money.Amount `json:"unitPrice"`
	FromCombo bool         `json:"fromCombo,omitempty"`
	ComboID   *uuid.UUID   `json:"comboId,omitempty"`
}

// Order is a placed order with its frozen totals.
type Order struct {
	ID                     uuid.UUID    `json:"id"`
	CartID                 uuid.UUID    `json:"cartId"`
	Status                 string       `json:"status"`
	Subtotal               money.Amount `json:"subtotal"`
	ComboAllocatedDiscount money.Amount `json:"comboAllocatedDiscount"`
	CouponDiscount         money.Amount `json:"couponDiscount"`
	DeliveryCharge         money.Amount `json:"deliveryCharge"`
	GrandTotal             money.Amount `json:"grandTotal"`
	CouponCode             *string      `json:"couponCode,omitempty"`
	Currency               string       `json:"currency"`
	PaymentProvider        *string      `json:"paymentProvider,omitempty"`
	PaymentReference       *string      `json:"paymentReference,omitempty"`
	CreatedAt              time.Time    `json:"createdAt"`
	Lines                  []Line       `json:"lines"`
}
