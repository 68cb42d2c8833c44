package checkout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-promo/internal/cart"
	"github.com/noah-isme/backend-promo/internal/common"
	"github.com/noah-isme/backend-promo/internal/coupon"
	"github.com/noah-isme/backend-promo/internal/discount"
	"github.com/noah-isme/backend-promo/internal/lock"
	"github.com/noah-isme/backend-promo/internal/money"
	"github.com/noah-isme/backend-promo/internal/order"
	"github.com/noah-isme/backend-promo/internal/payment"
	"github.com/noah-isme/backend-promo/internal/pricing"
)

type fakeOrders struct {
	inserted []order.Order
	payments map[uuid.UUID][3]string
}

func (f *fakeOrders) Insert(_ context.Context, _ pgx.Tx, o order.Order) error {
	f.inserted = append(f.inserted, o)
	return nil
}

func (f *fakeOrders) SetPayment(_ context.Context, id uuid.UUID, status, provider, reference string) error {
	if f.payments == nil {
		f.payments = map[uuid.UUID][3]string{}
	}
	f.payments[id] = [3]string{status, provider, reference}
	return nil
}

type fakeSettler struct {
	calls []struct {
		Code   string
		Amount money.Amount
	}
}

func (f *fakeSettler) Settle(_ context.Context, _ pgx.Tx, code string, _ uuid.UUID, amount money.Amount) error {
	f.calls = append(f.calls, struct {
		Code   string
		Amount money.Amount
	}{code, amount})
	return nil
}

type fakeStock struct {
	deltas map[uuid.UUID]int32
}

func (f *fakeStock) AdjustStock(_ context.Context, _ pgx.Tx, id uuid.UUID, delta int32) error {
	if f.deltas == nil {
		f.deltas = map[uuid.UUID]int32{}
	}
	f.deltas[id] += delta
	return nil
}

type failingCharger struct{}

func (failingCharger) Charge(_ context.Context, _ uuid.UUID, _ money.Amount, _ string) (payment.Receipt, error) {
	return payment.Receipt{}, errors.New("declined")
}

type staticCoupons struct {
	defs map[string]coupon.Definition
	now  time.Time
}

func (s staticCoupons) Preview(_ context.Context, code string, items []coupon.Item) (coupon.Result, error) {
	def, ok := s.defs[coupon.NormalizeCode(code)]
	if !ok {
		return coupon.Result{}, common.NotFound("coupon not found", nil)
	}
	result, err := coupon.Evaluate(def, s.now, items)
	if err != nil {
		return coupon.Result{}, coupon.AsAppError(err)
	}
	return result, nil
}

func (s staticCoupons) Definition(_ context.Context, code string) (coupon.Definition, error) {
	def, ok := s.defs[coupon.NormalizeCode(code)]
	if !ok {
		return coupon.Definition{}, common.NotFound("coupon not found", nil)
	}
	return def, nil
}

type checkoutFixture struct {
	svc     *Service
	carts   *cart.Store
	orders  *fakeOrders
	settler *fakeSettler
	stock   *fakeStock
	coupons staticCoupons
	now     time.Time
}

func newFixture(t *testing.T) *checkoutFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	store := &cart.Store{R: client, TTL: time.Hour}
	coupons := staticCoupons{defs: map[string]coupon.Definition{}, now: now}
	cartSvc := &cart.Service{
		Carts:    store,
		Coupons:  coupons,
		Delivery: pricing.DeliveryRule{FreeThreshold: 99900, FlatFee: 6000},
		Now:      func() time.Time { return now },
	}

	f := &checkoutFixture{
		carts:   store,
		orders:  &fakeOrders{},
		settler: &fakeSettler{},
		stock:   &fakeStock{},
		coupons: coupons,
		now:     now,
	}
	f.svc = &Service{
		Carts:    cartSvc,
		Orders:   f.orders,
		Coupons:  f.settler,
		Stock:    f.stock,
		Charger:  payment.NoopCharger{},
		InTx:     func(ctx context.Context, fn func(pgx.Tx) error) error { return fn(nil) },
		Currency: "BDT",
		Logger:   zerolog.Nop(),
		Now:      func() time.Time { return now },
	}
	return f
}

func (f *checkoutFixture) saveCart(t *testing.T, c cart.Cart) cart.Cart {
	t.Helper()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	require.NoError(t, f.carts.Save(context.Background(), c))
	return c
}

func TestPlaceOrderHappyPath(t *testing.T) {
	f := newFixture(t)
	itemID := uuid.New()
	c := f.saveCart(t, cart.Cart{Entries: []cart.Entry{
		{ID: uuid.New(), ItemID: itemID, Title: "Mug", Qty: 2, UnitBasePrice: 60000, Selected: true},
	}})

	o, err := f.svc.PlaceOrder(context.Background(), c.ID)
	require.NoError(t, err)
	require.Equal(t, order.StatusPaid, o.Status)
	require.EqualValues(t, 120000, o.Subtotal)
	// above the free delivery threshold
	require.EqualValues(t, 0, o.DeliveryCharge)
	require.EqualValues(t, 120000, o.GrandTotal)

	require.Len(t, f.orders.inserted, 1)
	require.EqualValues(t, -2, f.stock.deltas[itemID])

	got, err := f.carts.Get(context.Background(), c.ID)
	require.NoError(t, err)
	require.Empty(t, got.Entries, "purchased lines are removed from the cart")
}

func TestPlaceOrderEmptyCart(t *testing.T) {
	f := newFixture(t)
	c := f.saveCart(t, cart.Cart{})

	_, err := f.svc.PlaceOrder(context.Background(), c.ID)
	require.Error(t, err)

	var app *common.AppError
	require.True(t, errors.As(err, &app))
	require.Equal(t, "CART_EMPTY", app.Code)
}

func TestPlaceOrderSettlesCoupon(t *testing.T) {
	f := newFixture(t)
	f.coupons.defs["SAVE10"] = coupon.Definition{
		Code:     "SAVE10",
		Rule:     discount.Rule{Kind: discount.KindPercent, PercentBps: 1000},
		IsActive: true,
	}
	c := f.saveCart(t, cart.Cart{
		Entries: []cart.Entry{
			{ID: uuid.New(), ItemID: uuid.New(), Title: "Kit", Qty: 1, UnitBasePrice: 200000, Selected: true},
		},
		Coupon: &cart.AppliedCoupon{Code: "SAVE10", Discount: 20000},
	})

	o, err := f.svc.PlaceOrder(context.Background(), c.ID)
	require.NoError(t, err)
	require.EqualValues(t, 20000, o.CouponDiscount)
	require.EqualValues(t, 180000, o.GrandTotal)

	require.Len(t, f.settler.calls, 1)
	require.Equal(t, "SAVE10", f.settler.calls[0].Code)
	require.EqualValues(t, 20000, f.settler.calls[0].Amount)
}

func TestPlaceOrderRejectsStaleCoupon(t *testing.T) {
	f := newFixture(t)
	f.coupons.defs["BIG"] = coupon.Definition{
		Code:        "BIG",
		Rule:        discount.Rule{Kind: discount.KindFixed, Value: 5000},
		MinPurchase: 500000,
		IsActive:    true,
	}
	// the cart no longer meets the minimum the stored discount was granted for
	c := f.saveCart(t, cart.Cart{
		Entries: []cart.Entry{
			{ID: uuid.New(), ItemID: uuid.New(), Title: "Pen", Qty: 1, UnitBasePrice: 10000, Selected: true},
		},
		Coupon: &cart.AppliedCoupon{Code: "BIG", Discount: 5000},
	})

	_, err := f.svc.PlaceOrder(context.Background(), c.ID)
	require.Error(t, err)

	var app *common.AppError
	require.True(t, errors.As(err, &app))
	require.Equal(t, "COUPON_INVALID", app.Code)
	require.Empty(t, f.orders.inserted)
}

func TestPlaceOrderWithLock(t *testing.T) {
	f := newFixture(t)
	f.svc.Lock = lock.Locker{R: f.carts.R}
	c := f.saveCart(t, cart.Cart{Entries: []cart.Entry{
		{ID: uuid.New(), ItemID: uuid.New(), Title: "Mug", Qty: 1, UnitBasePrice: 60000, Selected: true},
	}})

	o, err := f.svc.PlaceOrder(context.Background(), c.ID)
	require.NoError(t, err)
	require.Equal(t, order.StatusPaid, o.Status)
	require.Len(t, f.orders.inserted, 1)
}

func TestPlaceOrderPaymentDeclined(t *testing.T) {
	f := newFixture(t)
	f.svc.Charger = failingCharger{}
	c := f.saveCart(t, cart.Cart{Entries: []cart.Entry{
		{ID: uuid.New(), ItemID: uuid.New(), Title: "Mug", Qty: 1, UnitBasePrice: 60000, Selected: true},
	}})

	_, err := f.svc.PlaceOrder(context.Background(), c.ID)
	require.Error(t, err)

	var app *common.AppError
	require.True(t, errors.As(err, &app))
	require.Equal(t, "PAYMENT_FAILED", app.Code)

	require.Len(t, f.orders.inserted, 1)
	status := f.orders.payments[f.orders.inserted[0].ID]
	require.Equal(t, order.StatusFailed, status[0])
}
