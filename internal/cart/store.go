package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/twinpizza/backend-orders/internal/catalog"
	"github.com/twinpizza/backend-orders/internal/customize"
)

// Cart is a persistent basket. A cart belongs to a phone number once the
// customer identifies, or to an anonymous device before that.
type Cart struct {
	ID        uuid.UUID       `json:"id"`
	Phone     *string         `json:"phone,omitempty"`
	DeviceID  *string         `json:"deviceId,omitempty"`
	Channel   catalog.Channel `json:"channel"`
	ExpiresAt time.Time       `json:"expiresAt"`
}

// Item is one cart line. Customization is stored as JSON so both wire shapes
// survive a round trip unchanged.
type Item struct {
	ID            uuid.UUID                 `json:"id"`
	CartID        uuid.UUID                 `json:"cartId"`
	ProductRef    string                    `json:"productRef"`
	Quantity      int                       `json:"quantity"`
	Customization *customize.Customization  `json:"customization,omitempty"`
}

// Store persists carts and their items in Postgres.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore constructs a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) GetByPhone(ctx context.Context, phone string) (Cart, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, phone, device_id, channel, expires_at FROM carts
		 WHERE phone = $1 AND expires_at > now()
		 ORDER BY updated_at DESC LIMIT 1`, phone)
	return scanCart(row)
}

func (s *Store) GetByDevice(ctx context.Context, deviceID string) (Cart, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, phone, device_id, channel, expires_at FROM carts
		 WHERE device_id = $1 AND phone IS NULL AND expires_at > now()
		 ORDER BY updated_at DESC LIMIT 1`, deviceID)
	return scanCart(row)
}

func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (Cart, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, phone, device_id, channel, expires_at FROM carts WHERE id = $1`, id)
	return scanCart(row)
}

func (s *Store) Create(ctx context.Context, phone, deviceID *string, channel catalog.Channel, expiresAt time.Time) (Cart, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO carts (id, phone, device_id, channel, expires_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, phone, device_id, channel, expires_at`,
		uuid.New(), phone, deviceID, string(channel), expiresAt)
	return scanCart(row)
}

// Touch extends the cart lifetime after any activity.
func (s *Store) Touch(ctx context.Context, id uuid.UUID, expiresAt time.Time) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE carts SET expires_at = $2, updated_at = now() WHERE id = $1`, id, expiresAt)
	return err
}

func (s *Store) SetChannel(ctx context.Context, id uuid.UUID, channel catalog.Channel) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE carts SET channel = $2, updated_at = now() WHERE id = $1`, id, string(channel))
	return err
}

func (s *Store) AttachPhone(ctx context.Context, id uuid.UUID, phone string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE carts SET phone = $2, updated_at = now() WHERE id = $1`, id, phone)
	return err
}

func (s *Store) ListItems(ctx context.Context, cartID uuid.UUID) ([]Item, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, cart_id, product_ref, quantity, customization FROM cart_items
		 WHERE cart_id = $1 ORDER BY created_at`, cartID)
	if err != nil {
		return nil, fmt.Errorf("list cart items: %w", err)
	}
	defer rows.Close()
	var items []Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *Store) GetItem(ctx context.Context, itemID uuid.UUID) (Item, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, cart_id, product_ref, quantity, customization FROM cart_items WHERE id = $1`, itemID)
	return scanItem(row)
}

func (s *Store) InsertItem(ctx context.Context, item Item) (Item, error) {
	raw, err := marshalCustomization(item.Customization)
	if err != nil {
		return Item{}, err
	}
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO cart_items (id, cart_id, product_ref, quantity, customization)
		 VALUES ($1, $2, $3, $4, $5)`,
		item.ID, item.CartID, item.ProductRef, item.Quantity, raw)
	if err != nil {
		return Item{}, fmt.Errorf("insert cart item: %w", err)
	}
	return item, nil
}

func (s *Store) UpdateItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE cart_items SET quantity = $2 WHERE id = $1`, itemID, quantity)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (s *Store) DeleteItem(ctx context.Context, cartID, itemID uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM cart_items WHERE id = $1 AND cart_id = $2`, itemID, cartID)
	return err
}

func (s *Store) DeleteItems(ctx context.Context, cartID uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCart(row rowScanner) (Cart, error) {
	var c Cart
	var channel string
	if err := row.Scan(&c.ID, &c.Phone, &c.DeviceID, &channel, &c.ExpiresAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Cart{}, err
		}
		return Cart{}, fmt.Errorf("scan cart: %w", err)
	}
	c.Channel = catalog.Channel(channel)
	return c, nil
}

func scanItem(row rowScanner) (Item, error) {
	var item Item
	var raw []byte
	if err := row.Scan(&item.ID, &item.CartID, &item.ProductRef, &item.Quantity, &raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, err
		}
		return Item{}, fmt.Errorf("scan cart item: %w", err)
	}
	if len(raw) > 0 {
		var c customize.Customization
		if err := json.Unmarshal(raw, &c); err != nil {
			return Item{}, fmt.Errorf("decode customization: %w", err)
		}
		item.Customization = &c
	}
	return item, nil
}

func marshalCustomization(c *customize.Customization) ([]byte, error) {
	if c == nil {
		return nil, nil
	}
	raw, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode customization: %w", err)
	}
	return raw, nil
}
