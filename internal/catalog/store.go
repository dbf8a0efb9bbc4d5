package catalog

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/twinpizza/backend-orders/internal/loyalty"
)

type dbConn interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store loads pricing snapshots from Postgres. Loyalty rules come from app
// configuration, not the database, so both legs are pinned together here.
type Store struct {
	db      dbConn
	loyalty loyalty.Config
}

// NewStore constructs a Store.
func NewStore(db dbConn, loyaltyCfg loyalty.Config) *Store {
	return &Store{db: db, loyalty: loyaltyCfg}
}

// CurrentVersion returns the latest published catalog version, 0 when the
// catalog has never been published.
func (s *Store) CurrentVersion(ctx context.Context) (int64, error) {
	var version int64
	err := s.db.QueryRow(ctx, `SELECT COALESCE(MAX(version), 0) FROM catalog_versions`).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("current catalog version: %w", err)
	}
	return version, nil
}

// Load assembles the full pricing snapshot for the latest published version.
func (s *Store) Load(ctx context.Context) (*Catalog, error) {
	version, err := s.CurrentVersion(ctx)
	if err != nil {
		return nil, err
	}

	cat := &Catalog{
		Version:    version,
		BasePrices: map[string]int64{},
		Categories: map[string]Category{},
		Families:   map[string]string{},
		Options: Options{
			Meats:       OptionSet{},
			Sauces:      OptionSet{},
			Garnishes:   OptionSet{},
			Supplements: OptionSet{},
		},
		MenuOptions: map[string]int64{},
		Pizza: PizzaPricing{
			SizePrices:  map[string]int64{},
			LunchPrices: map[string]int64{},
			PaidPerFree: map[Channel]int{},
		},
		Loyalty: s.loyalty,
	}

	if err := s.loadProducts(ctx, cat); err != nil {
		return nil, err
	}
	if err := s.loadOptions(ctx, cat); err != nil {
		return nil, err
	}
	if err := s.loadPizza(ctx, cat); err != nil {
		return nil, err
	}
	if err := s.loadBulk(ctx, cat); err != nil {
		return nil, err
	}
	if err := s.loadDelivery(ctx, cat); err != nil {
		return nil, err
	}
	return cat, nil
}

func (s *Store) loadProducts(ctx context.Context, cat *Catalog) error {
	rows, err := s.db.Query(ctx, `SELECT ref, category, family, base_price_cents FROM products ORDER BY ref`)
	if err != nil {
		return fmt.Errorf("load products: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var ref, category string
		var family *string
		var price int64
		if err := rows.Scan(&ref, &category, &family, &price); err != nil {
			return fmt.Errorf("scan product: %w", err)
		}
		cat.BasePrices[ref] = price
		cat.Categories[ref] = Category(category)
		if family != nil && *family != "" {
			cat.Families[ref] = *family
		}
	}
	return rows.Err()
}

func (s *Store) loadOptions(ctx context.Context, cat *Catalog) error {
	rows, err := s.db.Query(ctx, `SELECT opt_group, id, name, price_cents FROM product_options ORDER BY opt_group, id`)
	if err != nil {
		return fmt.Errorf("load options: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var group string
		var opt Option
		if err := rows.Scan(&group, &opt.ID, &opt.Name, &opt.Price); err != nil {
			return fmt.Errorf("scan option: %w", err)
		}
		switch group {
		case "meat":
			cat.Options.Meats[opt.ID] = opt
		case "sauce":
			cat.Options.Sauces[opt.ID] = opt
		case "garnish":
			cat.Options.Garnishes[opt.ID] = opt
		case "supplement":
			cat.Options.Supplements[opt.ID] = opt
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	menuRows, err := s.db.Query(ctx, `SELECT id, price_cents FROM menu_options ORDER BY id`)
	if err != nil {
		return fmt.Errorf("load menu options: %w", err)
	}
	defer menuRows.Close()
	for menuRows.Next() {
		var id string
		var price int64
		if err := menuRows.Scan(&id, &price); err != nil {
			return fmt.Errorf("scan menu option: %w", err)
		}
		cat.MenuOptions[id] = price
	}
	return menuRows.Err()
}

func (s *Store) loadPizza(ctx context.Context, cat *Catalog) error {
	rows, err := s.db.Query(ctx, `SELECT size, price_cents, lunch_price_cents FROM pizza_sizes ORDER BY size`)
	if err != nil {
		return fmt.Errorf("load pizza sizes: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var size string
		var price int64
		var lunch *int64
		if err := rows.Scan(&size, &price, &lunch); err != nil {
			return fmt.Errorf("scan pizza size: %w", err)
		}
		cat.Pizza.SizePrices[size] = price
		if lunch != nil {
			cat.Pizza.LunchPrices[size] = *lunch
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	bundleRows, err := s.db.Query(ctx, `SELECT channel, paid_per_free FROM pizza_bundles`)
	if err != nil {
		return fmt.Errorf("load pizza bundles: %w", err)
	}
	defer bundleRows.Close()
	for bundleRows.Next() {
		var ch string
		var paid int
		if err := bundleRows.Scan(&ch, &paid); err != nil {
			return fmt.Errorf("scan pizza bundle: %w", err)
		}
		cat.Pizza.PaidPerFree[Channel(ch)] = paid
	}
	return bundleRows.Err()
}

func (s *Store) loadBulk(ctx context.Context, cat *Catalog) error {
	rows, err := s.db.Query(ctx, `SELECT quantity, price_cents FROM bulk_tiers ORDER BY quantity DESC`)
	if err != nil {
		return fmt.Errorf("load bulk tiers: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var tier BulkTier
		if err := rows.Scan(&tier.Quantity, &tier.Price); err != nil {
			return fmt.Errorf("scan bulk tier: %w", err)
		}
		cat.BulkTiers = append(cat.BulkTiers, tier)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	return s.setting(ctx, "bulk_unit_price_cents", &cat.BulkUnitPrice)
}

func (s *Store) loadDelivery(ctx context.Context, cat *Catalog) error {
	if err := s.setting(ctx, "delivery_fee_cents", &cat.Delivery.Fee); err != nil {
		return err
	}
	if err := s.setting(ctx, "delivery_free_above_cents", &cat.Delivery.FreeAbove); err != nil {
		return err
	}

	rows, err := s.db.Query(ctx, `SELECT id, name, min_order_cents, fee_cents FROM delivery_zones ORDER BY id`)
	if err != nil {
		return fmt.Errorf("load delivery zones: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var z Zone
		if err := rows.Scan(&z.ID, &z.Name, &z.MinOrder, &z.Fee); err != nil {
			return fmt.Errorf("scan delivery zone: %w", err)
		}
		cat.Zones = append(cat.Zones, z)
	}
	return rows.Err()
}

func (s *Store) setting(ctx context.Context, key string, dst *int64) error {
	err := s.db.QueryRow(ctx, `SELECT value FROM settings WHERE key = $1`, key).Scan(dst)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil
		}
		return fmt.Errorf("load setting %s: %w", key, err)
	}
	return nil
}

// PublishVersion bumps the catalog version in its own transaction and
// returns the new version.
func (s *Store) PublishVersion(ctx context.Context) (int64, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin catalog publish: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()
	version, err := Publish(ctx, tx)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit catalog publish: %w", err)
	}
	return version, nil
}

// Publish inserts a new catalog version row inside the given transaction.
// Callers bump the version after any price-affecting change.
func Publish(ctx context.Context, tx pgx.Tx) (int64, error) {
	var version int64
	err := tx.QueryRow(ctx, `INSERT INTO catalog_versions DEFAULT VALUES RETURNING version`).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("publish catalog version: %w", err)
	}
	return version, nil
}
