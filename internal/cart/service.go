package cart

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/twinpizza/backend-orders/internal/catalog"
	"github.com/twinpizza/backend-orders/internal/customize"
	"github.com/twinpizza/backend-orders/internal/pricing"
)

// ErrNotFound indicates the requested cart or item could not be located.
var ErrNotFound = errors.New("cart not found")

// ErrInvalidInput is returned when the provided payload is invalid.
var ErrInvalidInput = errors.New("invalid input")

type store interface {
	GetByPhone(ctx context.Context, phone string) (Cart, error)
	GetByDevice(ctx context.Context, deviceID string) (Cart, error)
	GetByID(ctx context.Context, id uuid.UUID) (Cart, error)
	Create(ctx context.Context, phone, deviceID *string, channel catalog.Channel, expiresAt time.Time) (Cart, error)
	Touch(ctx context.Context, id uuid.UUID, expiresAt time.Time) error
	SetChannel(ctx context.Context, id uuid.UUID, channel catalog.Channel) error
	AttachPhone(ctx context.Context, id uuid.UUID, phone string) error
	ListItems(ctx context.Context, cartID uuid.UUID) ([]Item, error)
	GetItem(ctx context.Context, itemID uuid.UUID) (Item, error)
	InsertItem(ctx context.Context, item Item) (Item, error)
	UpdateItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int) error
	DeleteItem(ctx context.Context, cartID, itemID uuid.UUID) error
	DeleteItems(ctx context.Context, cartID uuid.UUID) error
}

// Service encapsulates cart domain operations.
type Service struct {
	Store store
	TTL   time.Duration
	Now   func() time.Time
}

func (s *Service) ttl() time.Duration {
	if s == nil || s.TTL <= 0 {
		return 24 * time.Hour
	}
	return s.TTL
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// EnsureCart loads or creates a cart for the provided identifiers. A phone
// number wins over a device id when both are present.
func (s *Service) EnsureCart(ctx context.Context, phone, deviceID *string) (Cart, error) {
	if s == nil || s.Store == nil {
		return Cart{}, errors.New("cart service not configured")
	}
	expires := s.now().Add(s.ttl())

	if phone != nil && *phone != "" {
		cart, err := s.Store.GetByPhone(ctx, *phone)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return s.Store.Create(ctx, phone, deviceID, catalog.ChannelPickup, expires)
			}
			return Cart{}, err
		}
		_ = s.Store.Touch(ctx, cart.ID, expires)
		return cart, nil
	}

	if deviceID != nil && *deviceID != "" {
		cart, err := s.Store.GetByDevice(ctx, *deviceID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return s.Store.Create(ctx, nil, deviceID, catalog.ChannelPickup, expires)
			}
			return Cart{}, err
		}
		_ = s.Store.Touch(ctx, cart.ID, expires)
		return cart, nil
	}

	return Cart{}, ErrInvalidInput
}

// AddItem inserts a cart line, merging into an existing line when the product
// and the full customization payload are identical.
func (s *Service) AddItem(ctx context.Context, cartID uuid.UUID, productRef string, qty int, c *customize.Customization) (Item, error) {
	if s == nil || s.Store == nil {
		return Item{}, errors.New("cart service not configured")
	}
	if productRef == "" {
		return Item{}, fmt.Errorf("product ref required: %w", ErrInvalidInput)
	}
	if qty <= 0 {
		return Item{}, fmt.Errorf("quantity must be positive: %w", ErrInvalidInput)
	}

	items, err := s.Store.ListItems(ctx, cartID)
	if err != nil {
		return Item{}, err
	}
	for _, existing := range items {
		if existing.ProductRef != productRef {
			continue
		}
		if !sameCustomization(existing.Customization, c) {
			continue
		}
		if err := s.Store.UpdateItemQuantity(ctx, existing.ID, existing.Quantity+qty); err != nil {
			return Item{}, err
		}
		existing.Quantity += qty
		_ = s.Store.Touch(ctx, cartID, s.now().Add(s.ttl()))
		return existing, nil
	}

	item, err := s.Store.InsertItem(ctx, Item{
		CartID:        cartID,
		ProductRef:    productRef,
		Quantity:      qty,
		Customization: c,
	})
	if err != nil {
		return Item{}, err
	}
	_ = s.Store.Touch(ctx, cartID, s.now().Add(s.ttl()))
	return item, nil
}

// UpdateQuantity changes a line quantity. Zero removes the line.
func (s *Service) UpdateQuantity(ctx context.Context, cartID, itemID uuid.UUID, qty int) error {
	if s == nil || s.Store == nil {
		return errors.New("cart service not configured")
	}
	if qty < 0 {
		return fmt.Errorf("quantity must not be negative: %w", ErrInvalidInput)
	}
	if qty == 0 {
		return s.RemoveItem(ctx, cartID, itemID)
	}
	if err := s.Store.UpdateItemQuantity(ctx, itemID, qty); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	_ = s.Store.Touch(ctx, cartID, s.now().Add(s.ttl()))
	return nil
}

// RemoveItem deletes a cart line.
func (s *Service) RemoveItem(ctx context.Context, cartID, itemID uuid.UUID) error {
	if s == nil || s.Store == nil {
		return errors.New("cart service not configured")
	}
	if err := s.Store.DeleteItem(ctx, cartID, itemID); err != nil {
		return err
	}
	_ = s.Store.Touch(ctx, cartID, s.now().Add(s.ttl()))
	return nil
}

// SetChannel changes the fulfilment channel; the next quote reprices under
// the new promotion thresholds.
func (s *Service) SetChannel(ctx context.Context, cartID uuid.UUID, ch catalog.Channel) error {
	if s == nil || s.Store == nil {
		return errors.New("cart service not configured")
	}
	if !ch.Valid() {
		return fmt.Errorf("unknown channel %q: %w", ch, ErrInvalidInput)
	}
	return s.Store.SetChannel(ctx, cartID, ch)
}

// Clear empties the cart after a successful checkout.
func (s *Service) Clear(ctx context.Context, cartID uuid.UUID) error {
	if s == nil || s.Store == nil {
		return errors.New("cart service not configured")
	}
	return s.Store.DeleteItems(ctx, cartID)
}

// LineItems converts the stored cart into pricing input.
func (s *Service) LineItems(ctx context.Context, cartID uuid.UUID) ([]pricing.LineItem, error) {
	if s == nil || s.Store == nil {
		return nil, errors.New("cart service not configured")
	}
	items, err := s.Store.ListItems(ctx, cartID)
	if err != nil {
		return nil, err
	}
	out := make([]pricing.LineItem, 0, len(items))
	for _, item := range items {
		out = append(out, pricing.LineItem{
			ID:            item.ID.String(),
			ProductRef:    item.ProductRef,
			Quantity:      item.Quantity,
			Customization: item.Customization,
		})
	}
	return out, nil
}

// Merge folds a device cart into the customer's phone cart when they identify
// mid-session. Identical lines merge quantities; the device cart is expired.
func (s *Service) Merge(ctx context.Context, deviceCartID uuid.UUID, phone string) (Cart, error) {
	if s == nil || s.Store == nil {
		return Cart{}, errors.New("cart service not configured")
	}
	if phone == "" {
		return Cart{}, fmt.Errorf("phone required: %w", ErrInvalidInput)
	}
	deviceCart, err := s.Store.GetByID(ctx, deviceCartID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Cart{}, ErrNotFound
		}
		return Cart{}, err
	}
	if deviceCart.Phone != nil && *deviceCart.Phone == phone {
		return deviceCart, nil
	}

	target, err := s.Store.GetByPhone(ctx, phone)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return Cart{}, err
		}
		// No existing phone cart: claim the device cart wholesale.
		if err := s.Store.AttachPhone(ctx, deviceCart.ID, phone); err != nil {
			return Cart{}, err
		}
		deviceCart.Phone = &phone
		return deviceCart, nil
	}

	deviceItems, err := s.Store.ListItems(ctx, deviceCart.ID)
	if err != nil {
		return Cart{}, err
	}
	for _, item := range deviceItems {
		if _, err := s.AddItem(ctx, target.ID, item.ProductRef, item.Quantity, item.Customization); err != nil {
			return Cart{}, err
		}
	}
	_ = s.Store.DeleteItems(ctx, deviceCart.ID)
	_ = s.Store.Touch(ctx, deviceCart.ID, s.now())
	_ = s.Store.Touch(ctx, target.ID, s.now().Add(s.ttl()))
	return target, nil
}

// sameCustomization compares payloads structurally via their canonical JSON.
func sameCustomization(a, b *customize.Customization) bool {
	rawA, errA := marshalCustomization(a)
	rawB, errB := marshalCustomization(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(rawA, rawB)
}
