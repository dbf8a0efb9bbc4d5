package config

import (
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/orders")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.CatalogCacheTTL != 5*time.Minute {
		t.Fatalf("CatalogCacheTTL = %v", cfg.CatalogCacheTTL)
	}
	if cfg.CartTTL != 24*time.Hour {
		t.Fatalf("CartTTL = %v", cfg.CartTTL)
	}
	if cfg.QuoteRateLimit != "120-M" || cfg.CheckoutRateLimit != "10-M" {
		t.Fatalf("rate limits = %q / %q", cfg.QuoteRateLimit, cfg.CheckoutRateLimit)
	}
	if cfg.WorkerConcurrency != 10 {
		t.Fatalf("WorkerConcurrency = %d", cfg.WorkerConcurrency)
	}
	if got := cfg.HTTPAddr(); got != ":8080" {
		t.Fatalf("HTTPAddr = %q", got)
	}
}

func TestLoadOverridesAndMalformedValues(t *testing.T) {
	setRequired(t)
	t.Setenv("PORT", "9090")
	t.Setenv("CART_TTL", "2h")
	t.Setenv("CATALOG_CACHE_TTL", "not-a-duration")
	t.Setenv("WORKER_CONCURRENCY", "-3")
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://shop.example , , https://admin.example ")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr() != ":9090" {
		t.Fatalf("HTTPAddr = %q", cfg.HTTPAddr())
	}
	if cfg.CartTTL != 2*time.Hour {
		t.Fatalf("CartTTL = %v", cfg.CartTTL)
	}
	if cfg.CatalogCacheTTL != 5*time.Minute {
		t.Fatalf("malformed TTL should fall back, got %v", cfg.CatalogCacheTTL)
	}
	if cfg.WorkerConcurrency != 10 {
		t.Fatalf("non-positive concurrency should fall back, got %d", cfg.WorkerConcurrency)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[0] != "https://shop.example" {
		t.Fatalf("origins = %#v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadRequiresBackends(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	if _, err := Load(); err == nil {
		t.Fatal("expected error without DATABASE_URL")
	}

	t.Setenv("DATABASE_URL", "postgres://localhost:5432/orders")
	t.Setenv("REDIS_URL", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error without REDIS_URL")
	}
}
