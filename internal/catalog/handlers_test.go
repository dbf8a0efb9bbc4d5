package catalog_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/twinpizza/backend-orders/internal/catalog"
	"github.com/twinpizza/backend-orders/internal/loyalty"
)

type fakeSource struct {
	cat   *catalog.Catalog
	loads int
	err   error
}

func (f *fakeSource) Load(context.Context) (*catalog.Catalog, error) {
	f.loads++
	if f.err != nil {
		return nil, f.err
	}
	cp := *f.cat
	return &cp, nil
}

func (f *fakeSource) CurrentVersion(context.Context) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.cat.Version, nil
}

type publishingSource struct {
	fakeSource
	published int
}

func (p *publishingSource) PublishVersion(context.Context) (int64, error) {
	p.published++
	p.cat.Version++
	return p.cat.Version, nil
}

func testSnapshot(version int64) *catalog.Catalog {
	return &catalog.Catalog{
		Version:    version,
		BasePrices: map[string]int64{"salade-cesar": 850},
		Categories: map[string]catalog.Category{"salade-cesar": catalog.CategoryOther},
		Pizza: catalog.PizzaPricing{
			SizePrices:  map[string]int64{"senior": 1800, "mega": 2500},
			LunchPrices: map[string]int64{"senior": 1000},
			PaidPerFree: map[catalog.Channel]int{catalog.ChannelDelivery: 2, catalog.ChannelPickup: 1},
		},
		BulkTiers:     []catalog.BulkTier{{Quantity: 5, Price: 500}},
		BulkUnitPrice: 100,
		Delivery:      catalog.DeliveryConfig{Fee: 500, FreeAbove: 2500},
		Loyalty:       loyalty.DefaultConfig(),
	}
}

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestServiceSnapshotCaches(t *testing.T) {
	source := &fakeSource{cat: testSnapshot(3)}
	cache := catalog.NewCache(newTestRedis(t), time.Minute)
	svc, err := catalog.NewService(catalog.ServiceConfig{Store: source, Cache: cache, Logger: zerolog.Nop()})
	require.NoError(t, err)

	ctx := context.Background()
	first, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(3), first.Version)
	require.Equal(t, 1, source.loads)

	second, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	require.Equal(t, first.Version, second.Version)
	require.Equal(t, 1, source.loads, "second read must come from the cache")

	require.NoError(t, svc.Invalidate(ctx))
	_, err = svc.Snapshot(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, source.loads)
}

func TestServicePublishDropsCachedSnapshot(t *testing.T) {
	source := &publishingSource{fakeSource: fakeSource{cat: testSnapshot(3)}}
	cache := catalog.NewCache(newTestRedis(t), time.Minute)
	svc, err := catalog.NewService(catalog.ServiceConfig{Store: source, Cache: cache, Logger: zerolog.Nop()})
	require.NoError(t, err)

	ctx := context.Background()
	_, err = svc.Snapshot(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, source.loads)

	version, err := svc.Publish(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(4), version)
	require.Equal(t, 1, source.published)

	cat, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(4), cat.Version)
	require.Equal(t, 2, source.loads, "publish must force a store reload")
}

func TestServicePublishRequiresPublishingStore(t *testing.T) {
	svc, err := catalog.NewService(catalog.ServiceConfig{
		Store:  &fakeSource{cat: testSnapshot(1)},
		Logger: zerolog.Nop(),
	})
	require.NoError(t, err)
	_, err = svc.Publish(context.Background())
	require.Error(t, err)
}

func TestServiceFreshBypassesCache(t *testing.T) {
	source := &fakeSource{cat: testSnapshot(3)}
	cache := catalog.NewCache(newTestRedis(t), time.Minute)
	svc, err := catalog.NewService(catalog.ServiceConfig{Store: source, Cache: cache, Logger: zerolog.Nop()})
	require.NoError(t, err)

	ctx := context.Background()
	_, err = svc.Snapshot(ctx)
	require.NoError(t, err)

	source.cat = testSnapshot(4)
	fresh, err := svc.Fresh(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(4), fresh.Version)

	// Fresh refreshed the cache, so cached reads now see the new version.
	cached, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(4), cached.Version)
}

func TestServiceRejectsUnpublishedAndInvalid(t *testing.T) {
	svc, err := catalog.NewService(catalog.ServiceConfig{
		Store:  &fakeSource{cat: testSnapshot(0)},
		Logger: zerolog.Nop(),
	})
	require.NoError(t, err)
	_, err = svc.Snapshot(context.Background())
	require.ErrorIs(t, err, catalog.ErrNotPublished)

	broken := testSnapshot(2)
	broken.BulkUnitPrice = 0
	svc, err = catalog.NewService(catalog.ServiceConfig{
		Store:  &fakeSource{cat: broken},
		Logger: zerolog.Nop(),
	})
	require.NoError(t, err)
	_, err = svc.Snapshot(context.Background())
	require.ErrorIs(t, err, catalog.ErrInvalidCatalog)
}

func TestMenuHandlers(t *testing.T) {
	source := &fakeSource{cat: testSnapshot(7)}
	svc, err := catalog.NewService(catalog.ServiceConfig{Store: source, Logger: zerolog.Nop()})
	require.NoError(t, err)
	handler := catalog.NewHandler(svc)

	rec := httptest.NewRecorder()
	handler.Menu(rec, httptest.NewRequest(http.MethodGet, "/api/v1/menu", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Data catalog.Catalog `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, int64(7), resp.Data.Version)
	require.Equal(t, int64(1800), resp.Data.Pizza.SizePrices["senior"])

	rec = httptest.NewRecorder()
	handler.Version(rec, httptest.NewRequest(http.MethodGet, "/api/v1/menu/version", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"data":{"version":7}}`, rec.Body.String())
}

func TestMenuHandlerUnpublished(t *testing.T) {
	svc, err := catalog.NewService(catalog.ServiceConfig{
		Store:  &fakeSource{cat: testSnapshot(0)},
		Logger: zerolog.Nop(),
	})
	require.NoError(t, err)
	handler := catalog.NewHandler(svc)

	rec := httptest.NewRecorder()
	handler.Menu(rec, httptest.NewRequest(http.MethodGet, "/api/v1/menu", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Contains(t, rec.Body.String(), "CATALOG_UNAVAILABLE")
}
