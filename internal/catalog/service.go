package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-promo/internal/cache"
	"github.com/noah-isme/backend-promo/internal/combo"
	"github.com/noah-isme/backend-promo/internal/common"
	"github.com/noah-isme/backend-promo/internal/obs"
)

type store interface {
	GetItem(ctx context.Context, id uuid.UUID) (Item, error)
	GetItemsByIDs(ctx context.Context, ids []uuid.UUID) ([]Item, error)
	ListItems(ctx context.Context, params ListParams) ([]Item, int64, error)
}

// Service orchestrates item reads with a Redis cache in front of Postgres.
type Service struct {
	Store  store
	Cache  *cache.Cache
	Logger zerolog.Logger
}

func itemKey(id uuid.UUID) string { return "catalog:item:" + id.String() }

func listKey(params ListParams) string {
	return fmt.Sprintf("catalog:items:q=%s:stock=%t:p=%d:l=%d", params.Query, params.InStock, params.Page, params.Limit)
}

// Lookup resolves a single item, consulting the cache first.
func (s *Service) Lookup(ctx context.Context, id uuid.UUID) (Item, error) {
	var cached Item
	hit, err := s.Cache.GetJSON(ctx, itemKey(id), &cached)
	if err != nil {
		s.Logger.Warn().Err(err).Str("item_id", id.String()).Msg("catalog cache read failed")
	}
	recordCacheLookup(hit)
	if hit {
		return cached, nil
	}

	it, err := s.Store.GetItem(ctx, id)
	if err != nil {
		if errors.Is(err, ErrItemNotFound) {
			return Item{}, common.NotFound("item not found", err)
		}
		return Item{}, err
	}
	if err := s.Cache.SetJSON(ctx, itemKey(id), it); err != nil {
		s.Logger.Warn().Err(err).Str("item_id", id.String()).Msg("catalog cache write failed")
	}
	return it, nil
}

type listPayload struct {
	Items []Item `json:"items"`
	Total int64  `json:"total"`
}

// List returns active items matching the filters, caching each page.
func (s *Service) List(ctx context.Context, params ListParams) ([]Item, int64, error) {
	key := listKey(params)
	var cached listPayload
	hit, err := s.Cache.GetJSON(ctx, key, &cached)
	if err != nil {
		s.Logger.Warn().Err(err).Msg("catalog cache read failed")
	}
	if hit {
		return cached.Items, cached.Total, nil
	}

	items, total, err := s.Store.ListItems(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	if err := s.Cache.SetJSON(ctx, key, listPayload{Items: items, Total: total}); err != nil {
		s.Logger.Warn().Err(err).Msg("catalog cache write failed")
	}
	return items, total, nil
}

// SnapshotLookup batch-loads the given item ids and returns a point-in-time
// lookup for combo pricing. Inactive and unknown items resolve as absent.
func (s *Service) SnapshotLookup(ctx context.Context, ids []uuid.UUID) (combo.CatalogLookup, error) {
	items, err := s.Store.GetItemsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]combo.CatalogItem, len(items))
	for _, it := range items {
		if !it.IsActive {
			continue
		}
		byID[it.ID] = combo.CatalogItem{
			BasePrice:      it.BasePrice,
			SalePercentBps: int64(it.SalePercentBps),
			Stock:          int(it.Stock),
		}
	}
	return func(id uuid.UUID) (combo.CatalogItem, bool) {
		item, ok := byID[id]
		return item, ok
	}, nil
}

// Invalidate drops the cached entry for an item after a write.
func (s *Service) Invalidate(ctx context.Context, id uuid.UUID) error {
	return s.Cache.Delete(ctx, itemKey(id))
}

func recordCacheLookup(hit bool) {
	if obs.CatalogCacheHits == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	obs.CatalogCacheHits.WithLabelValues(result).Inc()
}
