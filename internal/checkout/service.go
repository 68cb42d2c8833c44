package checkout

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-promo/internal/cart"
	"github.com/noah-isme/backend-promo/internal/common"
	"github.com/noah-isme/backend-promo/internal/lock"
	"github.com/noah-isme/backend-promo/internal/money"
	"github.com/noah-isme/backend-promo/internal/obs"
	"github.com/noah-isme/backend-promo/internal/order"
	"github.com/noah-isme/backend-promo/internal/payment"
	"github.com/noah-isme/backend-promo/internal/pricing"
)

type orderStore interface {
	Insert(ctx context.Context, tx pgx.Tx, o order.Order) error
	SetPayment(ctx context.Context, id uuid.UUID, status, provider, reference string) error
}

type couponSettler interface {
	Settle(ctx context.Context, tx pgx.Tx, code string, orderID uuid.UUID, amount money.Amount) error
}

type stockAdjuster interface {
	AdjustStock(ctx context.Context, tx pgx.Tx, id uuid.UUID, delta int32) error
}

// Service turns a priced cart into a placed order.
type Service struct {
	Carts   *cart.Service
	Orders  orderStore
	Coupons couponSettler
	Stock   stockAdjuster
	Charger payment.Charger
	// InTx runs fn inside a database transaction, committing on nil error.
	InTx func(ctx context.Context, fn func(pgx.Tx) error) error
	// Lock serialises concurrent placements of the same cart when configured.
	Lock     lock.Locker
	Currency string
	Logger   zerolog.Logger
	Now      func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Preview returns the cart with its derived totals without placing an order.
func (s *Service) Preview(ctx context.Context, cartID uuid.UUID) (cart.View, error) {
	c, err := s.Carts.Get(ctx, cartID)
	if err != nil {
		return cart.View{}, err
	}
	return s.Carts.Totals(ctx, c)
}

// PlaceOrder prices the cart a final time, persists the order, settles the
// coupon, and decrements stock in one transaction, then hands the grand total
// to the payment provider. A cart whose coupon no longer validates is
// rejected rather than silently repriced.
func (s *Service) PlaceOrder(ctx context.Context, cartID uuid.UUID) (order.Order, error) {
	if s.Lock.R != nil {
		var placed order.Order
		err := s.Lock.WithLock(ctx, "checkout:cart:"+cartID.String(), 30*time.Second, func(ctx context.Context) error {
			var err error
			placed, err = s.placeOrder(ctx, cartID)
			return err
		})
		return placed, err
	}
	return s.placeOrder(ctx, cartID)
}

func (s *Service) placeOrder(ctx context.Context, cartID uuid.UUID) (order.Order, error) {
	c, err := s.Carts.Get(ctx, cartID)
	if err != nil {
		return order.Order{}, err
	}
	view, err := s.Carts.Totals(ctx, c)
	if err != nil {
		if errors.Is(err, pricing.ErrEmptyCart) {
			return order.Order{}, common.Unprocessable("CART_EMPTY", "cart has no selected lines", nil)
		}
		return order.Order{}, err
	}
	if len(c.SelectedLines()) == 0 {
		return order.Order{}, common.Unprocessable("CART_EMPTY", "cart has no selected lines", nil)
	}
	if view.CouponError != "" {
		return order.Order{}, common.Unprocessable("COUPON_INVALID", view.CouponError, nil)
	}

	o := s.buildOrder(c, view.Totals)
	err = s.InTx(ctx, func(tx pgx.Tx) error {
		if err := s.Orders.Insert(ctx, tx, o); err != nil {
			return err
		}
		for _, line := range o.Lines {
			if err := s.Stock.AdjustStock(ctx, tx, line.ItemID, -line.Qty); err != nil {
				return err
			}
		}
		if o.CouponCode != nil {
			if err := s.Coupons.Settle(ctx, tx, *o.CouponCode, o.ID, o.CouponDiscount); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return order.Order{}, err
	}

	receipt, chargeErr := s.Charger.Charge(ctx, o.ID, o.GrandTotal, o.Currency)
	if chargeErr != nil {
		s.Logger.Error().Err(chargeErr).Str("order_id", o.ID.String()).Msg("charge failed")
		if err := s.Orders.SetPayment(ctx, o.ID, order.StatusFailed, "", ""); err != nil {
			s.Logger.Error().Err(err).Str("order_id", o.ID.String()).Msg("mark order failed")
		}
		return order.Order{}, common.Unprocessable("PAYMENT_FAILED", "payment was declined", nil)
	}
	if err := s.Orders.SetPayment(ctx, o.ID, order.StatusPaid, receipt.Provider, receipt.Reference); err != nil {
		return order.Order{}, err
	}
	o.Status = order.StatusPaid
	o.PaymentProvider = &receipt.Provider
	o.PaymentReference = &receipt.Reference

	s.consumeCart(ctx, c)
	recordPlacedOrder(o)
	return o, nil
}

func (s *Service) buildOrder(c cart.Cart, totals pricing.OrderTotals) order.Order {
	o := order.Order{
		ID:                     uuid.New(),
		CartID:                 c.ID,
		Status:                 order.StatusPending,
		Subtotal:               totals.Subtotal,
		ComboAllocatedDiscount: totals.ComboAllocatedDiscount,
		CouponDiscount:         totals.CouponDiscount,
		DeliveryCharge:         totals.DeliveryCharge,
		GrandTotal:             totals.GrandTotal,
		Currency:               s.Currency,
		CreatedAt:              s.now(),
	}
	if c.Coupon != nil && totals.CouponDiscount > 0 {
		code := c.Coupon.Code
		o.CouponCode = &code
	}
	for _, e := range c.Entries {
		if !e.Selected || e.Qty <= 0 {
			continue
		}
		o.Lines = append(o.Lines, order.Line{
			ID:        uuid.New(),
			ItemID:    e.ItemID,
			Title:     e.Title,
			Qty:       int32(e.Qty),
			UnitPrice: e.EffectiveUnitPrice(),
			FromCombo: e.FromCombo,
			ComboID:   e.ComboID,
		})
	}
	return o
}

// consumeCart drops the purchased lines and the coupon from the cart. The
// unselected lines stay for a later purchase.
func (s *Service) consumeCart(ctx context.Context, c cart.Cart) {
	var remaining []cart.Entry
	for _, e := range c.Entries {
		if !e.Selected {
			remaining = append(remaining, e)
		}
	}
	c.Entries = remaining
	c.Coupon = nil
	c.UpdatedAt = s.now()
	if err := s.Carts.Carts.Save(ctx, c); err != nil {
		s.Logger.Warn().Err(err).Str("cart_id", c.ID.String()).Msg("consume cart failed")
	}
}

func recordPlacedOrder(o order.Order) {
	if obs.OrdersPlacedTotal != nil {
		obs.OrdersPlacedTotal.Inc()
	}
	if obs.OrderGrandTotalMinor != nil {
		obs.OrderGrandTotalMinor.Observe(float64(o.GrandTotal))
	}
}
