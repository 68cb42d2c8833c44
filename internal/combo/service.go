package combo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-promo/internal/cache"
	"github.com/noah-isme/backend-promo/internal/common"
	"github.com/noah-isme/backend-promo/internal/discount"
	"github.com/noah-isme/backend-promo/internal/money"
	"github.com/noah-isme/backend-promo/internal/obs"
	"github.com/noah-isme/backend-promo/internal/offer"
)

// ErrComboNotActive is returned when a combo outside its window is added to a cart.
var ErrComboNotActive = errors.New("combo: not active")

type store interface {
	CreateDefinition(ctx context.Context, def Definition) error
	UpdateDefinition(ctx context.Context, def Definition) error
	DeleteDefinition(ctx context.Context, id uuid.UUID) error
	GetDefinition(ctx context.Context, id uuid.UUID) (Definition, error)
	ListDefinitions(ctx context.Context) ([]Definition, error)
}

// SnapshotProvider supplies point-in-time catalog snapshots for pricing.
type SnapshotProvider interface {
	SnapshotLookup(ctx context.Context, ids []uuid.UUID) (CatalogLookup, error)
}

// View is the public representation of a combo with live status and pricing.
type View struct {
	ID         uuid.UUID     `json:"id"`
	Title      string        `json:"title"`
	Kind       discount.Kind `json:"kind"`
	Value      money.Amount  `json:"value"`
	PercentBps int64         `json:"percentBps"`
	Cap        money.Amount  `json:"cap,omitempty"`
	IsActive   bool          `json:"isActive"`
	StartDate  *time.Time    `json:"startDate,omitempty"`
	EndDate    *time.Time    `json:"endDate,omitempty"`
	Status     offer.Status  `json:"status"`
	Pricing    PricingResult `json:"pricing"`
}

// Service orchestrates combo persistence, pricing, and caching.
type Service struct {
	Store     store
	Snapshots SnapshotProvider
	Cache     *cache.Cache
	Logger    zerolog.Logger
	Now       func() time.Time
}

const listCacheKey = "combo:list"

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// List returns every combo with recomputed status and current pricing.
// Definitions are cached; status and pricing are derived per call so the
// window state never goes stale.
func (s *Service) List(ctx context.Context) ([]View, error) {
	var defs []Definition
	hit, err := s.Cache.GetJSON(ctx, listCacheKey, &defs)
	if err != nil {
		s.Logger.Warn().Err(err).Msg("combo cache read failed")
	}
	if !hit {
		defs, err = s.Store.ListDefinitions(ctx)
		if err != nil {
			return nil, err
		}
		if err := s.Cache.SetJSON(ctx, listCacheKey, defs); err != nil {
			s.Logger.Warn().Err(err).Msg("combo cache write failed")
		}
	}

	views := make([]View, 0, len(defs))
	for _, def := range defs {
		view, err := s.buildView(ctx, def)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

// Get returns one combo with recomputed status and current pricing.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (View, error) {
	def, err := s.Store.GetDefinition(ctx, id)
	if err != nil {
		if errors.Is(err, ErrComboNotFound) {
			return View{}, common.NotFound("combo not found", err)
		}
		return View{}, err
	}
	return s.buildView(ctx, def)
}

// Exists reports whether a combo definition is still stored, without pricing
// it. Cart reads use it to expire frozen lines of deleted combos.
func (s *Service) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	_, err := s.Store.GetDefinition(ctx, id)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrComboNotFound):
		return false, nil
	default:
		return false, err
	}
}

// Create persists a new definition and invalidates the list cache.
func (s *Service) Create(ctx context.Context, def Definition) (View, error) {
	if def.ID == uuid.Nil {
		def.ID = uuid.New()
	}
	if err := s.Store.CreateDefinition(ctx, def); err != nil {
		return View{}, err
	}
	s.invalidate(ctx)
	return s.buildView(ctx, def)
}

// Update replaces an existing definition and invalidates the list cache.
func (s *Service) Update(ctx context.Context, def Definition) (View, error) {
	if err := s.Store.UpdateDefinition(ctx, def); err != nil {
		if errors.Is(err, ErrComboNotFound) {
			return View{}, common.NotFound("combo not found", err)
		}
		return View{}, err
	}
	s.invalidate(ctx)
	return s.buildView(ctx, def)
}

// Delete removes a definition and invalidates the list cache.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.Store.DeleteDefinition(ctx, id); err != nil {
		if errors.Is(err, ErrComboNotFound) {
			return common.NotFound("combo not found", err)
		}
		return err
	}
	s.invalidate(ctx)
	return nil
}

// Preview prices an unsaved definition against the live catalog. Admin
// tooling uses it to inspect allocations before publishing.
func (s *Service) Preview(ctx context.Context, def Definition) (PricingResult, error) {
	lookup, err := s.lookupFor(ctx, def)
	if err != nil {
		return PricingResult{}, err
	}
	priced := Price(def, lookup)
	recordPricing(priced)
	return priced, nil
}

// ExpandForCart prices an active combo and explodes it into frozen unit
// lines. Combos outside their window, or with missing catalog items, are
// rejected.
func (s *Service) ExpandForCart(ctx context.Context, id uuid.UUID) (Definition, []UnitLine, error) {
	def, err := s.Store.GetDefinition(ctx, id)
	if err != nil {
		if errors.Is(err, ErrComboNotFound) {
			return Definition{}, nil, common.NotFound("combo not found", err)
		}
		return Definition{}, nil, err
	}
	if def.Status(s.now()) != offer.StatusActive {
		return Definition{}, nil, ErrComboNotActive
	}
	lookup, err := s.lookupFor(ctx, def)
	if err != nil {
		return Definition{}, nil, err
	}
	priced := Price(def, lookup)
	recordPricing(priced)
	if len(priced.MissingItems) > 0 {
		return Definition{}, nil, common.Unprocessable("COMBO_INCOMPLETE", "combo references missing items", map[string]any{
			"missingItems": priced.MissingItems,
		})
	}
	return def, Expand(def, priced), nil
}

func (s *Service) buildView(ctx context.Context, def Definition) (View, error) {
	lookup, err := s.lookupFor(ctx, def)
	if err != nil {
		return View{}, err
	}
	priced := Price(def, lookup)
	recordPricing(priced)
	return View{
		ID:         def.ID,
		Title:      def.Title,
		Kind:       def.Rule.Kind,
		Value:      def.Rule.Value,
		PercentBps: def.Rule.PercentBps,
		Cap:        def.Rule.Cap,
		IsActive:   def.IsActive,
		StartDate:  def.StartDate,
		EndDate:    def.EndDate,
		Status:     def.Status(s.now()),
		Pricing:    priced,
	}, nil
}

func (s *Service) lookupFor(ctx context.Context, def Definition) (CatalogLookup, error) {
	ids := make([]uuid.UUID, 0, len(def.Lines))
	for _, line := range def.Lines {
		ids = append(ids, line.ItemID)
	}
	return s.Snapshots.SnapshotLookup(ctx, ids)
}

func (s *Service) invalidate(ctx context.Context) {
	if err := s.Cache.Delete(ctx, listCacheKey); err != nil {
		s.Logger.Warn().Err(err).Msg("combo cache invalidation failed")
	}
}

func recordPricing(priced PricingResult) {
	if obs.ComboPricingTotal == nil {
		return
	}
	result := "ok"
	if len(priced.MissingItems) > 0 {
		result = "missing_items"
	}
	obs.ComboPricingTotal.WithLabelValues(result).Inc()
}
