package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// ErrNotPublished is returned when no catalog version has ever been
// published. The API cannot price anything in that state.
var ErrNotPublished = errors.New("catalog: no published version")

type snapshotSource interface {
	Load(ctx context.Context) (*Catalog, error)
	CurrentVersion(ctx context.Context) (int64, error)
}

// Service serves validated pricing snapshots. Quote traffic reads through the
// Redis cache; checkout asks for a fresh snapshot so version pinning works
// against the latest published data.
type Service struct {
	store snapshotSource
	cache *Cache
	log   zerolog.Logger
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Store  snapshotSource
	Cache  *Cache
	Logger zerolog.Logger
}

// NewService constructs a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("catalog: store is required")
	}
	return &Service{store: cfg.Store, cache: cfg.Cache, log: cfg.Logger}, nil
}

// Snapshot returns the current pricing snapshot, preferring the cache. Cache
// failures degrade to a store load; they never fail the request.
func (s *Service) Snapshot(ctx context.Context) (*Catalog, error) {
	if cached, err := s.cache.Get(ctx); err != nil {
		s.log.Warn().Err(err).Msg("catalog cache read failed, falling back to store")
	} else if cached != nil {
		return cached, nil
	}
	return s.Fresh(ctx)
}

// Fresh loads the snapshot from the store, bypassing the cache, and refreshes
// the cache on success. Checkout uses this so the version it pins is current.
func (s *Service) Fresh(ctx context.Context) (*Catalog, error) {
	cat, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if cat.Version == 0 {
		return nil, ErrNotPublished
	}
	if err := cat.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCatalog, err)
	}
	if err := s.cache.Set(ctx, cat); err != nil {
		s.log.Warn().Err(err).Int64("version", cat.Version).Msg("catalog cache write failed")
	}
	return cat, nil
}

// Version returns the latest published catalog version without assembling a
// full snapshot.
func (s *Service) Version(ctx context.Context) (int64, error) {
	version, err := s.store.CurrentVersion(ctx)
	if err != nil {
		return 0, err
	}
	if version == 0 {
		return 0, ErrNotPublished
	}
	return version, nil
}

// Invalidate drops the cached snapshot after a publish.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Invalidate(ctx)
}

type versionPublisher interface {
	PublishVersion(ctx context.Context) (int64, error)
}

// Publish bumps the catalog version and drops the cached snapshot so the
// next read serves the new prices. A cache failure is logged, not returned:
// the TTL bounds how long the stale snapshot survives.
func (s *Service) Publish(ctx context.Context) (int64, error) {
	publisher, ok := s.store.(versionPublisher)
	if !ok {
		return 0, errors.New("catalog: store cannot publish versions")
	}
	version, err := publisher.PublishVersion(ctx)
	if err != nil {
		return 0, err
	}
	if err := s.Invalidate(ctx); err != nil {
		s.log.Warn().Err(err).Int64("version", version).Msg("catalog cache invalidate failed")
	}
	return version, nil
}
