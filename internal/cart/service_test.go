package cart

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/twinpizza/backend-orders/internal/catalog"
	"github.com/twinpizza/backend-orders/internal/customize"
)

type memStore struct {
	carts map[uuid.UUID]*Cart
	items map[uuid.UUID]*Item
}

func newMemStore() *memStore {
	return &memStore{carts: map[uuid.UUID]*Cart{}, items: map[uuid.UUID]*Item{}}
}

func (m *memStore) GetByPhone(_ context.Context, phone string) (Cart, error) {
	for _, c := range m.carts {
		if c.Phone != nil && *c.Phone == phone {
			return *c, nil
		}
	}
	return Cart{}, pgx.ErrNoRows
}

func (m *memStore) GetByDevice(_ context.Context, deviceID string) (Cart, error) {
	for _, c := range m.carts {
		if c.Phone == nil && c.DeviceID != nil && *c.DeviceID == deviceID {
			return *c, nil
		}
	}
	return Cart{}, pgx.ErrNoRows
}

func (m *memStore) GetByID(_ context.Context, id uuid.UUID) (Cart, error) {
	if c, ok := m.carts[id]; ok {
		return *c, nil
	}
	return Cart{}, pgx.ErrNoRows
}

func (m *memStore) Create(_ context.Context, phone, deviceID *string, channel catalog.Channel, expiresAt time.Time) (Cart, error) {
	c := &Cart{ID: uuid.New(), Phone: phone, DeviceID: deviceID, Channel: channel, ExpiresAt: expiresAt}
	m.carts[c.ID] = c
	return *c, nil
}

func (m *memStore) Touch(_ context.Context, id uuid.UUID, expiresAt time.Time) error {
	if c, ok := m.carts[id]; ok {
		c.ExpiresAt = expiresAt
	}
	return nil
}

func (m *memStore) SetChannel(_ context.Context, id uuid.UUID, channel catalog.Channel) error {
	if c, ok := m.carts[id]; ok {
		c.Channel = channel
	}
	return nil
}

func (m *memStore) AttachPhone(_ context.Context, id uuid.UUID, phone string) error {
	if c, ok := m.carts[id]; ok {
		c.Phone = &phone
	}
	return nil
}

func (m *memStore) ListItems(_ context.Context, cartID uuid.UUID) ([]Item, error) {
	var out []Item
	for _, it := range m.items {
		if it.CartID == cartID {
			out = append(out, *it)
		}
	}
	return out, nil
}

func (m *memStore) GetItem(_ context.Context, itemID uuid.UUID) (Item, error) {
	if it, ok := m.items[itemID]; ok {
		return *it, nil
	}
	return Item{}, pgx.ErrNoRows
}

func (m *memStore) InsertItem(_ context.Context, item Item) (Item, error) {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	cp := item
	m.items[item.ID] = &cp
	return item, nil
}

func (m *memStore) UpdateItemQuantity(_ context.Context, itemID uuid.UUID, quantity int) error {
	it, ok := m.items[itemID]
	if !ok {
		return pgx.ErrNoRows
	}
	it.Quantity = quantity
	return nil
}

func (m *memStore) DeleteItem(_ context.Context, cartID, itemID uuid.UUID) error {
	if it, ok := m.items[itemID]; ok && it.CartID == cartID {
		delete(m.items, itemID)
	}
	return nil
}

func (m *memStore) DeleteItems(_ context.Context, cartID uuid.UUID) error {
	for id, it := range m.items {
		if it.CartID == cartID {
			delete(m.items, id)
		}
	}
	return nil
}

func newTestService(store *memStore) *Service {
	return &Service{
		Store: store,
		TTL:   time.Hour,
		Now:   func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) },
	}
}

func TestEnsureCartPrefersPhone(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	ctx := context.Background()

	phone := "0612345678"
	device := "device-1"
	first, err := svc.EnsureCart(ctx, &phone, &device)
	require.NoError(t, err)
	require.NotNil(t, first.Phone)

	again, err := svc.EnsureCart(ctx, &phone, nil)
	require.NoError(t, err)
	require.Equal(t, first.ID, again.ID)

	_, err = svc.EnsureCart(ctx, nil, nil)
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestAddItemMergesIdenticalCustomization(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	ctx := context.Background()
	cart, err := svc.EnsureCart(ctx, nil, ptr("device-2"))
	require.NoError(t, err)

	custom := &customize.Customization{Size: "senior", Supplements: []string{"chevre"}}
	first, err := svc.AddItem(ctx, cart.ID, "pizza-reine", 1, custom)
	require.NoError(t, err)

	second, err := svc.AddItem(ctx, cart.ID, "pizza-reine", 2, &customize.Customization{Size: "senior", Supplements: []string{"chevre"}})
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, 3, second.Quantity)

	// A different size must stay a separate line.
	third, err := svc.AddItem(ctx, cart.ID, "pizza-reine", 1, &customize.Customization{Size: "mega"})
	require.NoError(t, err)
	require.NotEqual(t, first.ID, third.ID)

	items, err := svc.Store.ListItems(ctx, cart.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)
}

func TestUpdateQuantityZeroRemoves(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	ctx := context.Background()
	cart, err := svc.EnsureCart(ctx, nil, ptr("device-3"))
	require.NoError(t, err)

	item, err := svc.AddItem(ctx, cart.ID, "salade-cesar", 2, nil)
	require.NoError(t, err)

	require.NoError(t, svc.UpdateQuantity(ctx, cart.ID, item.ID, 0))
	items, err := svc.Store.ListItems(ctx, cart.ID)
	require.NoError(t, err)
	require.Empty(t, items)

	require.ErrorIs(t, svc.UpdateQuantity(ctx, cart.ID, item.ID, 2), ErrNotFound)
	require.ErrorIs(t, svc.UpdateQuantity(ctx, cart.ID, item.ID, -1), ErrInvalidInput)
}

func TestMergeDeviceCartIntoPhoneCart(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	ctx := context.Background()

	phone := "0698765432"
	phoneCart, err := svc.EnsureCart(ctx, &phone, nil)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, phoneCart.ID, "pizza-reine", 1, nil)
	require.NoError(t, err)

	deviceCart, err := svc.EnsureCart(ctx, nil, ptr("device-4"))
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, deviceCart.ID, "pizza-reine", 2, nil)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, deviceCart.ID, "tiramisu", 1, nil)
	require.NoError(t, err)

	merged, err := svc.Merge(ctx, deviceCart.ID, phone)
	require.NoError(t, err)
	require.Equal(t, phoneCart.ID, merged.ID)

	items, err := svc.Store.ListItems(ctx, merged.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	byRef := map[string]int{}
	for _, it := range items {
		byRef[it.ProductRef] = it.Quantity
	}
	require.Equal(t, 3, byRef["pizza-reine"])
	require.Equal(t, 1, byRef["tiramisu"])

	leftovers, err := svc.Store.ListItems(ctx, deviceCart.ID)
	require.NoError(t, err)
	require.Empty(t, leftovers)
}

func TestMergeClaimsOrphanDeviceCart(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	ctx := context.Background()

	deviceCart, err := svc.EnsureCart(ctx, nil, ptr("device-5"))
	require.NoError(t, err)

	phone := "0611111111"
	merged, err := svc.Merge(ctx, deviceCart.ID, phone)
	require.NoError(t, err)
	require.Equal(t, deviceCart.ID, merged.ID)
	require.NotNil(t, merged.Phone)
	require.Equal(t, phone, *merged.Phone)
}

func TestSetChannelValidation(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	ctx := context.Background()
	cart, err := svc.EnsureCart(ctx, nil, ptr("device-6"))
	require.NoError(t, err)

	require.NoError(t, svc.SetChannel(ctx, cart.ID, catalog.ChannelDelivery))
	got, err := svc.Store.GetByID(ctx, cart.ID)
	require.NoError(t, err)
	require.Equal(t, catalog.ChannelDelivery, got.Channel)

	require.ErrorIs(t, svc.SetChannel(ctx, cart.ID, "drone"), ErrInvalidInput)
}

func ptr(s string) *string { return &s }
