package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-promo/internal/catalog"
	"github.com/noah-isme/backend-promo/internal/combo"
	"github.com/noah-isme/backend-promo/internal/common"
	"github.com/noah-isme/backend-promo/internal/coupon"
	"github.com/noah-isme/backend-promo/internal/pricing"
)

// ErrInvalidInput is returned when the provided payload is invalid.
var ErrInvalidInput = errors.New("invalid input")

// errCouponGone marks a stored coupon code whose definition was deleted after
// it was applied to the cart.
var errCouponGone = errors.New("coupon no longer exists")

type catalogLookup interface {
	Lookup(ctx context.Context, id uuid.UUID) (catalog.Item, error)
}

type comboExpander interface {
	ExpandForCart(ctx context.Context, id uuid.UUID) (combo.Definition, []combo.UnitLine, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

type couponEngine interface {
	Preview(ctx context.Context, code string, items []coupon.Item) (coupon.Result, error)
	Definition(ctx context.Context, code string) (coupon.Definition, error)
}

// Service encapsulates cart domain operations.
type Service struct {
	Carts    *Store
	Catalog  catalogLookup
	Combos   comboExpander
	Coupons  couponEngine
	Delivery pricing.DeliveryRule
	Now      func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Create starts a new empty cart.
func (s *Service) Create(ctx context.Context) (Cart, error) {
	now := s.now()
	c := Cart{ID: uuid.New(), CreatedAt: now, UpdatedAt: now}
	if err := s.Carts.Save(ctx, c); err != nil {
		return Cart{}, err
	}
	return c, nil
}

// Get loads a cart. Combo-origin lines whose combo definition was deleted
// since they were added are dropped on the way out; their frozen allocated
// price died with the definition.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Cart, error) {
	c, err := s.Carts.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Cart{}, common.NotFound("cart not found", err)
		}
		return Cart{}, err
	}
	return s.dropOrphanedComboLines(ctx, c)
}

func (s *Service) dropOrphanedComboLines(ctx context.Context, c Cart) (Cart, error) {
	alive := map[uuid.UUID]bool{}
	kept := make([]Entry, 0, len(c.Entries))
	for _, e := range c.Entries {
		if e.FromCombo && e.ComboID != nil {
			ok, checked := alive[*e.ComboID]
			if !checked {
				var err error
				ok, err = s.Combos.Exists(ctx, *e.ComboID)
				if err != nil {
					return Cart{}, err
				}
				alive[*e.ComboID] = ok
			}
			if !ok {
				continue
			}
		}
		kept = append(kept, e)
	}
	if len(kept) == len(c.Entries) {
		return c, nil
	}
	c.Entries = kept
	return s.save(ctx, c)
}

// AddItem snapshots the catalog price and adds the item to the cart. Adding
// the same item again increments the existing line.
func (s *Service) AddItem(ctx context.Context, cartID, itemID uuid.UUID, qty int) (Cart, error) {
	if qty <= 0 {
		return Cart{}, fmt.Errorf("qty must be positive: %w", ErrInvalidInput)
	}
	c, err := s.Get(ctx, cartID)
	if err != nil {
		return Cart{}, err
	}
	item, err := s.Catalog.Lookup(ctx, itemID)
	if err != nil {
		return Cart{}, err
	}
	if !item.IsActive {
		return Cart{}, common.Unprocessable("ITEM_INACTIVE", "item is not for sale", nil)
	}
	if !item.InStock() {
		return Cart{}, common.Unprocessable("OUT_OF_STOCK", "item is out of stock", nil)
	}

	merged := false
	for i := range c.Entries {
		if !c.Entries[i].FromCombo && c.Entries[i].ItemID == itemID {
			c.Entries[i].Qty += qty
			merged = true
			break
		}
	}
	if !merged {
		c.Entries = append(c.Entries, Entry{
			ID:             uuid.New(),
			ItemID:         item.ID,
			Title:          item.Title,
			Qty:            qty,
			UnitBasePrice:  item.BasePrice,
			SalePercentBps: int64(item.SalePercentBps),
			Selected:       true,
		})
	}
	return s.save(ctx, c)
}

// AddCombo expands an active combo into frozen unit lines and appends them.
func (s *Service) AddCombo(ctx context.Context, cartID, comboID uuid.UUID) (Cart, error) {
	c, err := s.Get(ctx, cartID)
	if err != nil {
		return Cart{}, err
	}
	def, units, err := s.Combos.ExpandForCart(ctx, comboID)
	if err != nil {
		if errors.Is(err, combo.ErrComboNotActive) {
			return Cart{}, common.Unprocessable("COMBO_NOT_ACTIVE", "combo is not currently active", nil)
		}
		return Cart{}, err
	}
	for _, unit := range units {
		item, err := s.Catalog.Lookup(ctx, unit.ItemID)
		title := ""
		if err == nil {
			title = item.Title
		}
		defID := def.ID
		c.Entries = append(c.Entries, Entry{
			ID:               uuid.New(),
			ItemID:           unit.ItemID,
			Title:            title,
			Qty:              1,
			UnitBasePrice:    unit.AllocatedUnitPrice,
			CatalogUnitPrice: unit.UnitBasePrice,
			Selected:         true,
			FromCombo:        true,
			ComboID:          &defID,
		})
	}
	return s.save(ctx, c)
}

// UpdateLine mutates quantity and selection of a single line. A nil field
// leaves the current value untouched.
func (s *Service) UpdateLine(ctx context.Context, cartID, lineID uuid.UUID, qty *int, selected *bool) (Cart, error) {
	c, err := s.Get(ctx, cartID)
	if err != nil {
		return Cart{}, err
	}
	i, ok := c.FindEntry(lineID)
	if !ok {
		return Cart{}, common.NotFound("cart line not found", nil)
	}
	if qty != nil {
		if *qty <= 0 {
			return Cart{}, fmt.Errorf("qty must be positive: %w", ErrInvalidInput)
		}
		c.Entries[i].Qty = *qty
	}
	if selected != nil {
		c.Entries[i].Selected = *selected
	}
	return s.save(ctx, c)
}

// RemoveLine deletes a single line.
func (s *Service) RemoveLine(ctx context.Context, cartID, lineID uuid.UUID) (Cart, error) {
	c, err := s.Get(ctx, cartID)
	if err != nil {
		return Cart{}, err
	}
	i, ok := c.FindEntry(lineID)
	if !ok {
		return Cart{}, common.NotFound("cart line not found", nil)
	}
	c.Entries = append(c.Entries[:i], c.Entries[i+1:]...)
	return s.save(ctx, c)
}

// ApplyCoupon evaluates the coupon against the selected lines and stores the
// result with the cart.
func (s *Service) ApplyCoupon(ctx context.Context, cartID uuid.UUID, code string) (Cart, error) {
	c, err := s.Get(ctx, cartID)
	if err != nil {
		return Cart{}, err
	}
	items := s.couponItems(c)
	if len(items) == 0 {
		return Cart{}, common.Unprocessable("CART_EMPTY", "no selected lines to apply a coupon to", nil)
	}
	result, err := s.Coupons.Preview(ctx, code, items)
	if err != nil {
		return Cart{}, err
	}
	c.Coupon = &AppliedCoupon{Code: result.Code, Discount: result.Discount}
	return s.save(ctx, c)
}

// RemoveCoupon clears an applied coupon.
func (s *Service) RemoveCoupon(ctx context.Context, cartID uuid.UUID) (Cart, error) {
	c, err := s.Get(ctx, cartID)
	if err != nil {
		return Cart{}, err
	}
	c.Coupon = nil
	return s.save(ctx, c)
}

// View is a cart with its derived totals. CouponError is set when a stored
// coupon no longer validates against the current cart; the totals then
// exclude it.
type View struct {
	Cart
	Totals      pricing.OrderTotals `json:"totals"`
	CouponError string              `json:"couponError,omitempty"`
}

// Totals derives order totals for the cart. A cart with nothing selected
// reports zero totals. The stored coupon is re-validated against the current
// lines on every call; when it no longer holds, the failure is reported and
// the totals exclude it.
func (s *Service) Totals(ctx context.Context, c Cart) (View, error) {
	view := View{Cart: c}
	lines := c.SelectedLines()
	if len(lines) == 0 {
		return view, nil
	}

	applied, err := s.appliedCoupon(ctx, c)
	if err != nil {
		if !errors.Is(err, errCouponGone) {
			return View{}, err
		}
		view.CouponError = couponFailureMessage(err)
	}
	totals, err := pricing.ComputeTotals(lines, applied, s.Delivery, s.now())
	if err != nil && applied != nil {
		// the coupon no longer validates; recompute without it and surface why
		view.CouponError = couponFailureMessage(err)
		totals, err = pricing.ComputeTotals(lines, nil, s.Delivery, s.now())
	}
	if err != nil {
		return View{}, err
	}
	view.Totals = totals
	return view, nil
}

// appliedCoupon resolves the stored coupon code to its live definition. A
// deleted definition comes back as errCouponGone with a nil coupon so the
// caller prices the cart without it.
func (s *Service) appliedCoupon(ctx context.Context, c Cart) (*pricing.AppliedCoupon, error) {
	if c.Coupon == nil {
		return nil, nil
	}
	def, err := s.Coupons.Definition(ctx, c.Coupon.Code)
	if err != nil {
		var app *common.AppError
		if errors.As(err, &app) && app.Code == "NOT_FOUND" {
			return nil, errCouponGone
		}
		return nil, err
	}
	return &pricing.AppliedCoupon{Definition: def}, nil
}

func (s *Service) couponItems(c Cart) []coupon.Item {
	var items []coupon.Item
	for _, e := range c.Entries {
		if e.Selected && e.Qty > 0 {
			items = append(items, coupon.Item{
				ItemID:   e.ItemID,
				Subtotal: e.EffectiveUnitPrice() * int64(e.Qty),
			})
		}
	}
	return items
}

func (s *Service) save(ctx context.Context, c Cart) (Cart, error) {
	c.UpdatedAt = s.now()
	if err := s.Carts.Save(ctx, c); err != nil {
		return Cart{}, err
	}
	return c, nil
}

func couponFailureMessage(err error) string {
	var below *coupon.BelowMinimumError
	switch {
	case errors.Is(err, coupon.ErrNotActive):
		return "coupon not active or expired"
	case errors.Is(err, coupon.ErrUsageLimitExceeded):
		return "coupon usage limit exceeded"
	case errors.Is(err, coupon.ErrNotApplicable):
		return "coupon not applicable to any cart item"
	case errors.As(err, &below):
		return below.Error()
	case errors.Is(err, errCouponGone):
		return "coupon no longer exists"
	default:
		return "coupon no longer valid"
	}
}
