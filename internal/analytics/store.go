package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store computes aggregates directly over the orders tables. Canceled orders
// are excluded everywhere.
type Store struct {
	Pool *pgxpool.Pool
}

// SalesDailyRange groups confirmed orders by day.
func (s *Store) SalesDailyRange(ctx context.Context, from, to time.Time) ([]SalesDay, error) {
	rows, err := s.Pool.Query(ctx,
		`SELECT date_trunc('day', placed_at) AS day,
		   COUNT(*), COALESCE(SUM(grand_total), 0),
		   COALESCE(SUM(promotion_discount), 0), COALESCE(SUM(delivery_fee), 0)
		 FROM orders
		 WHERE placed_at >= $1 AND placed_at < $2 AND status <> 'canceled'
		 GROUP BY 1 ORDER BY 1`, from, to)
	if err != nil {
		return nil, fmt.Errorf("sales range: %w", err)
	}
	defer rows.Close()

	var out []SalesDay
	for rows.Next() {
		var day SalesDay
		if err := rows.Scan(&day.Day, &day.Orders, &day.Revenue, &day.Discount, &day.DeliveryFees); err != nil {
			return nil, fmt.Errorf("scan sales day: %w", err)
		}
		out = append(out, day)
	}
	return out, rows.Err()
}

// TopProducts ranks products by units sold across all confirmed orders.
func (s *Store) TopProducts(ctx context.Context, limit, offset int) ([]TopProduct, error) {
	rows, err := s.Pool.Query(ctx,
		`SELECT oi.product_ref, COALESCE(SUM(oi.quantity), 0), COALESCE(SUM(oi.line_total), 0)
		 FROM order_items oi
		 JOIN orders o ON o.id = oi.order_id
		 WHERE o.status <> 'canceled'
		 GROUP BY oi.product_ref
		 ORDER BY SUM(oi.quantity) DESC, oi.product_ref
		 LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("top products: %w", err)
	}
	defer rows.Close()

	var out []TopProduct
	for rows.Next() {
		var tp TopProduct
		if err := rows.Scan(&tp.ProductRef, &tp.Quantity, &tp.Revenue); err != nil {
			return nil, fmt.Errorf("scan top product: %w", err)
		}
		out = append(out, tp)
	}
	return out, rows.Err()
}
