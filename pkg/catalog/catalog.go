// Package catalog maintains the schema snapshot the rest of the pipeline
// works from. A snapshot is immutable once published: reloads build a fresh
// one and swap the pointer, so a request that already holds a snapshot keeps
// a consistent view for its whole run.
package catalog

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/askdb-ai/askdb-engine/pkg/adapters/datasource"
	"github.com/askdb-ai/askdb-engine/pkg/apperrors"
	"github.com/askdb-ai/askdb-engine/pkg/config"
	"github.com/askdb-ai/askdb-engine/pkg/models"
	"github.com/askdb-ai/askdb-engine/pkg/retry"
)

// Catalog owns the schema snapshot used for prompt context and table checks.
type Catalog interface {
	// Load populates the snapshot at startup. It introspects the live
	// database first and falls back to the YAML cache file when the
	// database is unreachable; only when both fail does it return
	// ErrCatalogUnavailable.
	Load(ctx context.Context) error

	// Reload refreshes the snapshot from the live database. It never
	// falls back to the cache: a reload that cannot reach the database
	// fails and the previous snapshot stays published.
	Reload(ctx context.Context) error

	// Describe returns the currently published snapshot, nil before the
	// first successful Load. The returned snapshot is never mutated, so
	// callers may hold it for the duration of a request.
	Describe() *models.SchemaSnapshot
}

type catalog struct {
	reader      datasource.SchemaReader
	cachePath   string
	loadTimeout time.Duration
	retryConfig *retry.Config
	snapshot    atomic.Pointer[models.SchemaSnapshot]
	logger      *zap.Logger
}

// NewCatalog creates a catalog over the given schema reader.
func NewCatalog(reader datasource.SchemaReader, cfg *config.CatalogConfig, logger *zap.Logger) Catalog {
	return &catalog{
		reader:      reader,
		cachePath:   cfg.CachePath,
		loadTimeout: cfg.LoadTimeout(),
		retryConfig: &retry.Config{
			MaxRetries:   3,
			InitialDelay: 500 * time.Millisecond,
			MaxDelay:     5 * time.Second,
			Multiplier:   2.0,
		},
		logger: logger.Named("catalog"),
	}
}

func (c *catalog) Load(ctx context.Context) error {
	snapshot, liveErr := c.readLive(ctx)
	if liveErr == nil {
		c.publish(snapshot)
		return nil
	}
	c.logger.Warn("Live schema load failed", zap.Error(liveErr))

	cached, cacheErr := c.readCache()
	if cacheErr != nil {
		return fmt.Errorf("%w: live load failed (%v), cache fallback failed (%v)",
			apperrors.ErrCatalogUnavailable, liveErr, cacheErr)
	}

	c.snapshot.Store(cached)
	c.logger.Info("Published schema snapshot from cache",
		zap.String("path", c.cachePath),
		zap.Int("tables", len(cached.Tables)),
		zap.Time("loaded_at", cached.LoadedAt))
	return nil
}

func (c *catalog) Reload(ctx context.Context) error {
	snapshot, err := c.readLive(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrCatalogUnavailable, err)
	}
	c.publish(snapshot)
	return nil
}

func (c *catalog) Describe() *models.SchemaSnapshot {
	return c.snapshot.Load()
}

// readLive introspects the database, retrying so a startup load can ride out
// the database still coming up.
func (c *catalog) readLive(ctx context.Context) (*models.SchemaSnapshot, error) {
	if c.loadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.loadTimeout)
		defer cancel()
	}

	return retry.DoWithResult(ctx, c.retryConfig, func() (*models.SchemaSnapshot, error) {
		return c.reader.ReadSchema(ctx)
	})
}

// publish swaps in a new snapshot and rewrites the cache file. A cache write
// failure is logged and otherwise ignored; the snapshot is already live.
func (c *catalog) publish(snapshot *models.SchemaSnapshot) {
	c.snapshot.Store(snapshot)
	c.logger.Info("Published schema snapshot",
		zap.Int("tables", len(snapshot.Tables)),
		zap.Time("loaded_at", snapshot.LoadedAt))

	if c.cachePath == "" {
		return
	}
	if err := c.writeCache(snapshot); err != nil {
		c.logger.Warn("Failed to write schema cache",
			zap.String("path", c.cachePath),
			zap.Error(err))
	}
}

func (c *catalog) writeCache(snapshot *models.SchemaSnapshot) error {
	data, err := yaml.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if err := os.WriteFile(c.cachePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	return nil
}

func (c *catalog) readCache() (*models.SchemaSnapshot, error) {
	if c.cachePath == "" {
		return nil, fmt.Errorf("no cache path configured")
	}
	data, err := os.ReadFile(c.cachePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read cache file: %w", err)
	}
	var snapshot models.SchemaSnapshot
	if err := yaml.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to parse cache file: %w", err)
	}
	if len(snapshot.Tables) == 0 {
		return nil, fmt.Errorf("cache file holds no tables")
	}
	return &snapshot, nil
}

var _ Catalog = (*catalog)(nil)
