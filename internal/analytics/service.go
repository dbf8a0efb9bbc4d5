package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// SalesDay aggregates one day of confirmed orders. Amounts are euro cents.
type SalesDay struct {
	Day          time.Time `json:"day"`
	Orders       int64     `json:"orders"`
	Revenue      int64     `json:"revenue"`
	Discount     int64     `json:"discount"`
	DeliveryFees int64     `json:"deliveryFees"`
}

// TopProduct is one row of the best-seller ranking.
type TopProduct struct {
	ProductRef string `json:"productRef"`
	Quantity   int64  `json:"quantity"`
	Revenue    int64  `json:"revenue"`
}

// Querier defines the database access required for analytics operations.
type Querier interface {
	SalesDailyRange(ctx context.Context, from, to time.Time) ([]SalesDay, error)
	TopProducts(ctx context.Context, limit, offset int) ([]TopProduct, error)
}

// Service provides cached access to order aggregates.
type Service struct {
	Q            Querier
	R            *redis.Client
	TTL          time.Duration
	DefaultRange int
	Now          func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func cacheKey(parts ...any) string {
	formatted := make([]string, 0, len(parts))
	for _, part := range parts {
		formatted = append(formatted, fmt.Sprint(part))
	}
	return strings.Join(formatted, ":")
}

// SalesRange returns the daily sales summary between from (inclusive) and to
// (exclusive).
func (s *Service) SalesRange(ctx context.Context, from, to time.Time) ([]SalesDay, error) {
	if s == nil || s.Q == nil {
		return nil, fmt.Errorf("analytics service not configured")
	}
	key := cacheKey("an", "sales", from.Format("2006-01-02"), to.Format("2006-01-02"))
	if rows, ok := getFromCache[SalesDay](ctx, s, key); ok {
		return rows, nil
	}
	rows, err := s.Q.SalesDailyRange(ctx, from, to)
	if err != nil {
		return nil, err
	}
	s.store(ctx, key, rows)
	return rows, nil
}

// TopProducts returns the best sellers ordered by quantity sold.
func (s *Service) TopProducts(ctx context.Context, limit, offset int) ([]TopProduct, error) {
	if s == nil || s.Q == nil {
		return nil, fmt.Errorf("analytics service not configured")
	}
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}
	key := cacheKey("an", "top", limit, offset)
	if rows, ok := getFromCache[TopProduct](ctx, s, key); ok {
		return rows, nil
	}
	rows, err := s.Q.TopProducts(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	s.store(ctx, key, rows)
	return rows, nil
}

func getFromCache[T any](ctx context.Context, s *Service, key string) ([]T, bool) {
	if s.R == nil || s.TTL <= 0 {
		return nil, false
	}
	data, err := s.R.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var rows []T
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, false
	}
	return rows, true
}

func (s *Service) store(ctx context.Context, key string, value any) {
	if s.R == nil || s.TTL <= 0 {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	_ = s.R.Set(ctx, key, data, s.TTL).Err()
}
