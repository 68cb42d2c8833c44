package catalog

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
	"github.com/noah-isme/backend-promo/internal/common"
)

type fakeStore struct {
	items    map[uuid.UUID]Item
	getCalls int
}

func (f *fakeStore) GetItem(_ context.Context, id uuid.UUID) (Item, error) {
	f.getCalls++
	it, ok := f.items[id]
	if !ok {
		return Item{}, ErrItemNotFound
	}
	return it, nil
}

func (f *fakeStore) GetItemsByIDs(_ context.Context, ids []uuid.UUID) ([]Item, error) {
	var out []Item
	for _, id := range ids {
		if it, ok := f.items[id]; ok {
			out = append(out, it)
		}
	}
	return out, nil
}

func (f *fakeStore) ListItems(_ context.Context, _ ListParams) ([]Item, int64, error) {
	var out []Item
	for _, it := range f.items {
		out = append(out, it)
	}
	return out, int64(len(out)), nil
}

func newTestService(t *testing.T) (*Service, *fakeStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := &fakeStore{items: map[uuid.UUID]Item{}}
	svc := &Service{
		Store:  store,
		Cache:  cache.New(client, time.Minute),
		Logger: zerolog.Nop(),
	}
	return svc, store
}

func TestLookupCachesItem(t *testing.T) {
	svc, store := newTestService(t)
	id := uuid.New()
	store.items[id] = Item{ID: id, Title: "Mug", BasePrice: 25000, IsActive: true, Stock: 3}

	first, err := svc.Lookup(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, "Mug", first.Title)

	second, err := svc.Lookup(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, store.getCalls, "second lookup should be served from cache")
}

func TestLookupUnknownItemIsNotFound(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Lookup(context.Background(), uuid.New())
	require.Error(t, err)
	require.True(t, common.IsAppError(err))
}

func TestSnapshotLookupSkipsInactive(t *testing.T) {
	svc, store := newTestService(t)
	active := uuid.New()
	inactive := uuid.New()
	store.items[active] = Item{ID: active, BasePrice: 10000, SalePercentBps: 500, Stock: 5, IsActive: true}
	store.items[inactive] = Item{ID: inactive, BasePrice: 20000, Stock: 5, IsActive: false}

	lookup, err := svc.SnapshotLookup(context.Background(), []uuid.UUID{active, inactive})
	require.NoError(t, err)

	got, ok := lookup(active)
	require.True(t, ok)
	require.EqualValues(t, 10000, got.BasePrice)
	require.EqualValues(t, 500, got.SalePercentBps)

	_, ok = lookup(inactive)
	require.False(t, ok)

	_, ok = lookup(uuid.New())
	require.False(t, ok)
}

func TestEffectiveUnitPrice(t *testing.T) {
	it := Item{BasePrice: 10000, SalePercentBps: 1000}
	require.EqualValues(t, 9000, it.EffectiveUnitPrice())

	it.SalePercentBps = 0
	require.EqualValues(t, 10000, it.EffectiveUnitPrice())

	it.SalePercentBps = 10000
	require.EqualValues(t, 0, it.EffectiveUnitPrice())
}
