package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Failed to ping DB: %v", err)
	}

	seedProducts(ctx, pool)
	seedOptions(ctx, pool)
	seedPizzaPricing(ctx, pool)
	seedBulkAndSettings(ctx, pool)
	seedZones(ctx, pool)
	publishCatalog(ctx, pool)

	log.Println("Seeding completed successfully!")
}

func seedProducts(ctx context.Context, pool *pgxpool.Pool) {
	products := []struct {
		Ref      string
		Category string
		Family   string
		Price    int64
	}{
		{"pizza-margherita", "pizza", "pizza", 900},
		{"pizza-reine", "pizza", "pizza", 1000},
		{"pizza-4-fromages", "pizza", "pizza", 1100},
		{"pizza-orientale", "pizza", "pizza", 1100},
		{"pizza-saumon", "pizza", "pizza", 1250},
		{"tacos-m", "other", "texmex", 700},
		{"tacos-l", "other", "texmex", 850},
		{"tacos-xl", "other", "texmex", 1000},
		{"sandwich-kebab", "sandwich", "", 650},
		{"sandwich-americain", "sandwich", "", 700},
		{"soufflet-nature", "other", "soufflet", 350},
		{"soufflet-fromage", "other", "soufflet", 400},
		{"tiramisu", "other", "", 450},
		{"tarte-daim", "other", "", 400},
		{"canette-33", "bulk", "", 150},
		{"eau-50", "bulk", "", 100},
	}

	fmt.Println("Seeding Products...")
	for _, p := range products {
		var family any
		if p.Family != "" {
			family = p.Family
		}
		_, err := pool.Exec(ctx, `
			INSERT INTO products (ref, category, family, base_price_cents)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (ref) DO UPDATE
			SET category = EXCLUDED.category,
			    family = EXCLUDED.family,
			    base_price_cents = EXCLUDED.base_price_cents,
			    updated_at = now();
		`, p.Ref, p.Category, family, p.Price)
		if err != nil {
			log.Printf("Failed to seed product %s: %v", p.Ref, err)
		}
	}
}

func seedOptions(ctx context.Context, pool *pgxpool.Pool) {
	options := []struct {
		ID    string
		Name  string
		Group string
		Price int64
	}{
		{"poulet", "Poulet", "meat", 0},
		{"kefta", "Kefta", "meat", 0},
		{"cordon-bleu", "Cordon bleu", "meat", 0},
		{"merguez", "Merguez", "meat", 0},
		{"nuggets", "Nuggets", "meat", 0},
		{"algerienne", "Algérienne", "sauce", 0},
		{"blanche", "Blanche", "sauce", 0},
		{"harissa", "Harissa", "sauce", 0},
		{"ketchup", "Ketchup", "sauce", 0},
		{"samourai", "Samouraï", "sauce", 0},
		{"salade", "Salade", "garnish", 0},
		{"tomates", "Tomates", "garnish", 0},
		{"oignons", "Oignons", "garnish", 0},
		{"chevre", "Chèvre", "supplement", 100},
		{"double-viande", "Double viande", "supplement", 200},
		{"oeuf", "Œuf", "supplement", 100},
		{"raclette", "Raclette", "supplement", 150},
	}

	fmt.Println("Seeding Options...")
	for _, o := range options {
		_, err := pool.Exec(ctx, `
			INSERT INTO product_options (id, name, opt_group, price_cents)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE
			SET name = EXCLUDED.name, opt_group = EXCLUDED.opt_group, price_cents = EXCLUDED.price_cents;
		`, o.ID, o.Name, o.Group, o.Price)
		if err != nil {
			log.Printf("Failed to seed option %s: %v", o.ID, err)
		}
	}

	menuOptions := []struct {
		ID    string
		Price int64
	}{
		{"side", 150},
		{"drink", 150},
		{"full", 250},
	}
	fmt.Println("Seeding Menu Options...")
	for _, m := range menuOptions {
		_, err := pool.Exec(ctx, `
			INSERT INTO menu_options (id, price_cents) VALUES ($1, $2)
			ON CONFLICT (id) DO UPDATE SET price_cents = EXCLUDED.price_cents;
		`, m.ID, m.Price)
		if err != nil {
			log.Printf("Failed to seed menu option %s: %v", m.ID, err)
		}
	}
}

func seedPizzaPricing(ctx context.Context, pool *pgxpool.Pool) {
	sizes := []struct {
		Size       string
		Price      int64
		LunchPrice int64
	}{
		{"junior", 700, 600},
		{"senior", 1000, 800},
		{"mega", 1400, 0},
	}

	fmt.Println("Seeding Pizza Sizes...")
	for _, s := range sizes {
		var lunch any
		if s.LunchPrice > 0 {
			lunch = s.LunchPrice
		}
		_, err := pool.Exec(ctx, `
			INSERT INTO pizza_sizes (size, price_cents, lunch_price_cents)
			VALUES ($1, $2, $3)
			ON CONFLICT (size) DO UPDATE
			SET price_cents = EXCLUDED.price_cents, lunch_price_cents = EXCLUDED.lunch_price_cents;
		`, s.Size, s.Price, lunch)
		if err != nil {
			log.Printf("Failed to seed pizza size %s: %v", s.Size, err)
		}
	}

	bundles := []struct {
		Channel     string
		PaidPerFree int
	}{
		{"delivery", 2},
		{"pickup", 1},
		{"dinein", 1},
	}
	fmt.Println("Seeding Pizza Bundles...")
	for _, b := range bundles {
		_, err := pool.Exec(ctx, `
			INSERT INTO pizza_bundles (channel, paid_per_free) VALUES ($1, $2)
			ON CONFLICT (channel) DO UPDATE SET paid_per_free = EXCLUDED.paid_per_free;
		`, b.Channel, b.PaidPerFree)
		if err != nil {
			log.Printf("Failed to seed pizza bundle %s: %v", b.Channel, err)
		}
	}
}

func seedBulkAndSettings(ctx context.Context, pool *pgxpool.Pool) {
	tiers := []struct {
		Quantity int
		Price    int64
	}{
		{6, 700},
		{12, 1200},
		{24, 2000},
	}

	fmt.Println("Seeding Bulk Tiers...")
	for _, t := range tiers {
		_, err := pool.Exec(ctx, `
			INSERT INTO bulk_tiers (quantity, price_cents) VALUES ($1, $2)
			ON CONFLICT (quantity) DO UPDATE SET price_cents = EXCLUDED.price_cents;
		`, t.Quantity, t.Price)
		if err != nil {
			log.Printf("Failed to seed bulk tier %d: %v", t.Quantity, err)
		}
	}

	settings := map[string]int64{
		"bulk_unit_price_cents":     150,
		"delivery_fee_cents":        300,
		"delivery_free_above_cents": 2500,
	}
	fmt.Println("Seeding Settings...")
	for key, value := range settings {
		_, err := pool.Exec(ctx, `
			INSERT INTO settings (key, value) VALUES ($1, $2)
			ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value;
		`, key, value)
		if err != nil {
			log.Printf("Failed to seed setting %s: %v", key, err)
		}
	}
}

func seedZones(ctx context.Context, pool *pgxpool.Pool) {
	zones := []struct {
		ID       string
		Name     string
		MinOrder int64
		Fee      int64
	}{
		{"centre", "Centre-ville", 1200, 0},
		{"nord", "Quartier nord", 1500, 200},
		{"peripherie", "Périphérie", 2000, 300},
	}

	fmt.Println("Seeding Delivery Zones...")
	for _, z := range zones {
		_, err := pool.Exec(ctx, `
			INSERT INTO delivery_zones (id, name, min_order_cents, fee_cents)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE
			SET name = EXCLUDED.name, min_order_cents = EXCLUDED.min_order_cents, fee_cents = EXCLUDED.fee_cents;
		`, z.ID, z.Name, z.MinOrder, z.Fee)
		if err != nil {
			log.Printf("Failed to seed zone %s: %v", z.ID, err)
		}
	}
}

func publishCatalog(ctx context.Context, pool *pgxpool.Pool) {
	fmt.Println("Publishing catalog version...")
	var version int64
	err := pool.QueryRow(ctx, `INSERT INTO catalog_versions DEFAULT VALUES RETURNING version`).Scan(&version)
	if err != nil {
		log.Fatalf("Failed to publish catalog version: %v", err)
	}
	log.Printf("Published catalog version %d", version)
}
