package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-promo/internal/cache"
	"github.com/noah-isme/backend-promo/internal/money"
)

// DailySales is one day of paid order activity.
type DailySales struct {
	Day       time.Time    `json:"day"`
	Orders    int64        `json:"orders"`
	Gross     money.Amount `json:"gross"`
	Discounts money.Amount `json:"discounts"`
}

// TopItem ranks an item by units sold across paid orders.
type TopItem struct {
	ItemID uuid.UUID    `json:"itemId"`
	Title  string       `json:"title"`
	Units  int64        `json:"units"`
	Gross  money.Amount `json:"gross"`
}

// Overview aggregates paid orders over a date range.
type Overview struct {
	Orders         int64        `json:"orders"`
	Gross          money.Amount `json:"gross"`
	CouponDiscount money.Amount `json:"couponDiscount"`
	ComboDiscount  money.Amount `json:"comboDiscount"`
}

type store interface {
	SalesDaily(ctx context.Context, from, to time.Time) ([]DailySales, error)
	TopItems(ctx context.Context, from, to time.Time, limit int) ([]TopItem, error)
	Overview(ctx context.Context, from, to time.Time) (Overview, error)
}

// Service answers admin reporting queries with short-lived Redis caching so
// dashboards do not hammer the orders table.
type Service struct {
	Store  store
	Cache  *cache.Cache
	Logger zerolog.Logger
}

func rangeKey(prefix string, from, to time.Time) string {
	return fmt.Sprintf("analytics:%s:%s:%s", prefix, from.Format("2006-01-02"), to.Format("2006-01-02"))
}

func (s *Service) SalesDaily(ctx context.Context, from, to time.Time) ([]DailySales, error) {
	key := rangeKey("sales", from, to)
	var cached []DailySales
	if s.Cache != nil {
		if ok, err := s.Cache.GetJSON(ctx, key, &cached); err == nil && ok {
			return cached, nil
		}
	}
	rows, err := s.Store.SalesDaily(ctx, from, to)
	if err != nil {
		return nil, err
	}
	s.put(ctx, key, rows)
	return rows, nil
}

func (s *Service) TopItems(ctx context.Context, from, to time.Time, limit int) ([]TopItem, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	key := fmt.Sprintf("%s:%d", rangeKey("top", from, to), limit)
	var cached []TopItem
	if s.Cache != nil {
		if ok, err := s.Cache.GetJSON(ctx, key, &cached); err == nil && ok {
			return cached, nil
		}
	}
	rows, err := s.Store.TopItems(ctx, from, to, limit)
	if err != nil {
		return nil, err
	}
	s.put(ctx, key, rows)
	return rows, nil
}

func (s *Service) Overview(ctx context.Context, from, to time.Time) (Overview, error) {
	key := rangeKey("overview", from, to)
	var cached Overview
	if s.Cache != nil {
		if ok, err := s.Cache.GetJSON(ctx, key, &cached); err == nil && ok {
			return cached, nil
		}
	}
	ov, err := s.Store.Overview(ctx, from, to)
	if err != nil {
		return Overview{}, err
	}
	s.put(ctx, key, ov)
	return ov, nil
}

func (s *Service) put(ctx context.Context, key string, v any) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.SetJSON(ctx, key, v); err != nil {
		s.Logger.Warn().Err(err).Str("key", key).Msg("cache analytics result")
	}
}
