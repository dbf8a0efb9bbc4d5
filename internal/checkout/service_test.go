package checkout

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/twinpizza/backend-orders/internal/cart"
	"github.com/twinpizza/backend-orders/internal/catalog"
	"github.com/twinpizza/backend-orders/internal/loyalty"
	"github.com/twinpizza/backend-orders/internal/pricing"
)

type fakeCatalogSource struct {
	cat *catalog.Catalog
}

func (f *fakeCatalogSource) Load(_ context.Context) (*catalog.Catalog, error) {
	return f.cat, nil
}

func (f *fakeCatalogSource) CurrentVersion(_ context.Context) (int64, error) {
	return f.cat.Version, nil
}

func testCatalog(version int64) *catalog.Catalog {
	return &catalog.Catalog{
		Version:    version,
		BasePrices: map[string]int64{"tacos-m": 850, "tiramisu": 450},
		Categories: map[string]catalog.Category{
			"tacos-m":  catalog.CategoryOther,
			"tiramisu": catalog.CategoryOther,
		},
		Families: map[string]string{"tacos-m": "tacos"},
		Pizza: catalog.PizzaPricing{
			SizePrices:  map[string]int64{"senior": 1000},
			PaidPerFree: map[catalog.Channel]int{catalog.ChannelDelivery: 2, catalog.ChannelPickup: 1},
		},
		BulkUnitPrice: 400,
		Loyalty:       loyalty.DefaultConfig(),
	}
}

func newTestService(cat *catalog.Catalog) *Service {
	catSvc, err := catalog.NewService(catalog.ServiceConfig{
		Store:  &fakeCatalogSource{cat: cat},
		Logger: zerolog.Nop(),
	})
	if err != nil {
		panic(err)
	}
	return &Service{
		Pool:    &pgxpool.Pool{},
		Catalog: catSvc,
		CartSvc: &cart.Service{},
		Orders:  &Store{},
		Log:     zerolog.Nop(),
		Now:     func() time.Time { return time.Date(2025, 3, 1, 19, 0, 0, 0, time.UTC) },
	}
}

func TestCreateRejectsUnknownChannel(t *testing.T) {
	svc := newTestService(testCatalog(7))

	_, err := svc.Create(context.Background(), Input{
		Channel: "drone",
		Items:   []pricing.LineItem{{ID: "l1", ProductRef: "tacos-m", Quantity: 1}},
	})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestCreateRejectsEmptyCart(t *testing.T) {
	svc := newTestService(testCatalog(7))

	_, err := svc.Create(context.Background(), Input{Channel: "pickup"})
	require.ErrorIs(t, err, ErrEmptyCart)
}

func TestCreateRejectsMalformedCartID(t *testing.T) {
	svc := newTestService(testCatalog(7))

	_, err := svc.Create(context.Background(), Input{Channel: "pickup", CartID: "not-a-uuid"})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestCreateRejectsStaleCatalogVersion(t *testing.T) {
	svc := newTestService(testCatalog(7))

	_, err := svc.Create(context.Background(), Input{
		Channel:        "pickup",
		CatalogVersion: 3,
		Items:          []pricing.LineItem{{ID: "l1", ProductRef: "tacos-m", Quantity: 1}},
	})
	require.ErrorIs(t, err, ErrPricesChanged)
}

func TestCreateRejectsUnpublishedCatalog(t *testing.T) {
	svc := newTestService(testCatalog(0))

	_, err := svc.Create(context.Background(), Input{
		Channel: "pickup",
		Items:   []pricing.LineItem{{ID: "l1", ProductRef: "tacos-m", Quantity: 1}},
	})
	require.ErrorIs(t, err, catalog.ErrNotPublished)
}

func TestCreateRejectsRewardWithoutPhone(t *testing.T) {
	svc := newTestService(testCatalog(7))
	svc.Loyalty = &loyalty.Store{}

	_, err := svc.Create(context.Background(), Input{
		Channel:   "pickup",
		RewardRef: "tacos-m",
		Items:     []pricing.LineItem{{ID: "l1", ProductRef: "tiramisu", Quantity: 1}},
	})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestCreateRejectsRewardOutsideStampFamilies(t *testing.T) {
	svc := newTestService(testCatalog(7))
	svc.Loyalty = &loyalty.Store{}

	_, err := svc.Create(context.Background(), Input{
		Channel:   "pickup",
		Phone:     "0612345678",
		RewardRef: "tiramisu",
		Items:     []pricing.LineItem{{ID: "l1", ProductRef: "tacos-m", Quantity: 1}},
	})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestRewardLineIsZeroPriced(t *testing.T) {
	view := rewardLine("tacos-m", testCatalog(7))
	require.Equal(t, pricing.Money(0), view.UnitPrice)
	require.Equal(t, pricing.Money(0), view.LineTotal)
	require.Equal(t, 1, view.Quantity)
	require.Equal(t, catalog.CategoryOther, view.Category)
	require.NotEmpty(t, view.Summary)
}

func TestCreateAbortsOnNegativeQuantity(t *testing.T) {
	svc := newTestService(testCatalog(7))

	_, err := svc.Create(context.Background(), Input{
		Channel:        "pickup",
		CatalogVersion: 7,
		Items:          []pricing.LineItem{{ID: "l1", ProductRef: "tacos-m", Quantity: -2}},
	})
	require.ErrorIs(t, err, pricing.ErrInvariant)
}
