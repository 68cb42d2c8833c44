package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-promo/internal/cache"
)

type fakeAnalyticsStore struct {
	salesCalls int
	topCalls   int
	sales      []DailySales
	top        []TopItem
	overview   Overview
}

func (f *fakeAnalyticsStore) SalesDaily(context.Context, time.Time, time.Time) ([]DailySales, error) {
	f.salesCalls++
	return f.sales, nil
}

func (f *fakeAnalyticsStore) TopItems(_ context.Context, _, _ time.Time, _ int) ([]TopItem, error) {
	f.topCalls++
	return f.top, nil
}

func (f *fakeAnalyticsStore) Overview(context.Context, time.Time, time.Time) (Overview, error) {
	return f.overview, nil
}

func newAnalyticsService(t *testing.T, store *fakeAnalyticsStore) *Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return &Service{
		Store:  store,
		Cache:  cache.New(client, time.Minute),
		Logger: zerolog.Nop(),
	}
}

func TestSalesDailyCached(t *testing.T) {
	store := &fakeAnalyticsStore{sales: []DailySales{
		{Day: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), Orders: 3, Gross: 450000, Discounts: 30000},
	}}
	svc := newAnalyticsService(t, store)

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	first, err := svc.SalesDaily(context.Background(), from, to)
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := svc.SalesDaily(context.Background(), from, to)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, store.salesCalls, "second read should come from cache")
}

func TestTopItemsLimitClamped(t *testing.T) {
	store := &fakeAnalyticsStore{top: []TopItem{
		{ItemID: uuid.New(), Title: "Burger", Units: 40, Gross: 1400000},
	}}
	svc := newAnalyticsService(t, store)

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	rows, err := svc.TopItems(context.Background(), from, to, -5)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, 1, store.topCalls)

	// same clamped limit hits the same cache entry
	again, err := svc.TopItems(context.Background(), from, to, 500)
	require.NoError(t, err)
	require.Equal(t, rows, again)
	require.Equal(t, 1, store.topCalls)
}

func TestOverviewPassThroughWithoutCache(t *testing.T) {
	store := &fakeAnalyticsStore{overview: Overview{Orders: 12, Gross: 2400000, CouponDiscount: 50000, ComboDiscount: 90000}}
	svc := &Service{Store: store, Logger: zerolog.Nop()}

	ov, err := svc.Overview(context.Background(),
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.EqualValues(t, 12, ov.Orders)
	require.EqualValues(t, 2400000, ov.Gross)
}
