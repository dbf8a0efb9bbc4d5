package checkout

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
	"github.com/twinpizza/backend-orders/internal/pricing"
)

// Status is the order lifecycle state.
type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusPreparing Status = "preparing"
	StatusReady     Status = "ready"
	StatusDelivered Status = "delivered"
	StatusCanceled  Status = "canceled"
)

// Valid reports whether the status is a known lifecycle state.
func (s Status) Valid() bool {
	switch s {
	case StatusConfirmed, StatusPreparing, StatusReady, StatusDelivered, StatusCanceled:
		return true
	}
	return false
}

// ErrOrderNotFound indicates the order id does not exist.
var ErrOrderNotFound = errors.New("order not found")

// Order is a placed order. Totals are frozen at checkout time together with
// the catalog version they were computed against.
type Order struct {
	ID             uuid.UUID            `json:"id"`
	CartID         uuid.UUID            `json:"cartId,omitempty"`
	Channel        catalog.Channel      `json:"channel"`
	Phone          string               `json:"phone,omitempty"`
	CustomerName   string               `json:"customerName,omitempty"`
	Note           string               `json:"note,omitempty"`
	Status         Status               `json:"status"`
	CatalogVersion int64                `json:"catalogVersion"`
	Total          pricing.CartTotal    `json:"total"`
	VAT            pricing.VATBreakdown `json:"vat"`
	PlacedAt       time.Time            `json:"placedAt"`
	Items          []pricing.ItemView   `json:"items,omitempty"`
}

// Store persists orders in Postgres.
type Store struct {
	Pool *pgxpool.Pool
}

// Insert writes the order and its frozen line views inside the caller's
// transaction.
func (s *Store) Insert(ctx context.Context, tx pgx.Tx, order Order, items []pricing.ItemView) error {
	var cartID any
	if order.CartID != uuid.Nil {
		cartID = order.CartID
	}
	_, err := tx.Exec(ctx,
		`INSERT INTO orders (id, cart_id, channel, phone, customer_name, note, status, catalog_version,
		   subtotal, promotion_discount, delivery_fee, grand_total, vat_ht, vat_tva, placed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		order.ID, cartID, string(order.Channel), nullable(order.Phone), nullable(order.CustomerName),
		nullable(order.Note), string(order.Status), order.CatalogVersion,
		order.Total.Subtotal, order.Total.PromotionDiscount, order.Total.DeliveryFee,
		order.Total.GrandTotal, order.VAT.HT, order.VAT.TVA, order.PlacedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	for _, item := range items {
		summary, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("encode order item: %w", err)
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO order_items (order_id, product_ref, category, quantity, unit_price, line_total, view)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			order.ID, item.ProductRef, string(item.Category), item.Quantity, item.UnitPrice, item.LineTotal, summary)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}
	return nil
}

// Get loads an order and its line views.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (Order, error) {
	var order Order
	var cartID *uuid.UUID
	var phone, name, note *string
	var channel, status string
	err := s.Pool.QueryRow(ctx,
		`SELECT id, cart_id, channel, phone, customer_name, note, status, catalog_version,
		   subtotal, promotion_discount, delivery_fee, grand_total, vat_ht, vat_tva, placed_at
		 FROM orders WHERE id = $1`, id).Scan(
		&order.ID, &cartID, &channel, &phone, &name, &note, &status, &order.CatalogVersion,
		&order.Total.Subtotal, &order.Total.PromotionDiscount, &order.Total.DeliveryFee,
		&order.Total.GrandTotal, &order.VAT.HT, &order.VAT.TVA, &order.PlacedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, ErrOrderNotFound
		}
		return Order{}, fmt.Errorf("get order: %w", err)
	}
	if cartID != nil {
		order.CartID = *cartID
	}
	order.Channel = catalog.Channel(channel)
	order.Status = Status(status)
	order.Phone = deref(phone)
	order.CustomerName = deref(name)
	order.Note = deref(note)
	order.VAT.TTC = order.VAT.HT + order.VAT.TVA

	rows, err := s.Pool.Query(ctx, `SELECT view FROM order_items WHERE order_id = $1 ORDER BY id`, id)
	if err != nil {
		return Order{}, fmt.Errorf("list order items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return Order{}, fmt.Errorf("scan order item: %w", err)
		}
		var view pricing.ItemView
		if err := json.Unmarshal(raw, &view); err != nil {
			return Order{}, fmt.Errorf("decode order item: %w", err)
		}
		order.Items = append(order.Items, view)
	}
	return order, rows.Err()
}

// UpdateStatus moves an order through its lifecycle.
func (s *Store) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error {
	tag, err := s.Pool.Exec(ctx,
		`UPDATE orders SET status = $2, updated_at = now() WHERE id = $1`, id, string(status))
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// ListRecent returns the newest orders for the kitchen screen.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]Order, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.Pool.Query(ctx,
		`SELECT id, channel, phone, customer_name, status, catalog_version, grand_total, placed_at
		 FROM orders ORDER BY placed_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()
	var out []Order
	for rows.Next() {
		var order Order
		var phone, name *string
		var channel, status string
		if err := rows.Scan(&order.ID, &channel, &phone, &name, &status,
			&order.CatalogVersion, &order.Total.GrandTotal, &order.PlacedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		order.Channel = catalog.Channel(channel)
		order.Status = Status(status)
		order.Phone = deref(phone)
		order.CustomerName = deref(name)
		out = append(out, order)
	}
	return out, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
