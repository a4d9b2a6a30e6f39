package components

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gamewatch/internal/config"
	"gamewatch/internal/storage"
	"gamewatch/internal/types"
)

// StorageComponent opens the announcement history database when enabled.
// It doubles as the dispatcher's Recorder so the pipeline can be built
// before the database is open.
type StorageComponent struct {
	config config.StorageConfig
	logger *slog.Logger

	mu    sync.RWMutex
	store storage.StorageInterface
}

func NewStorageComponent(cfg config.StorageConfig, logger *slog.Logger) *StorageComponent {
	if logger == nil {
		logger = slog.Default()
	}
	return &StorageComponent{
		config: cfg,
		logger: logger.With("component", StorageComponentName),
	}
}

func (c *StorageComponent) Name() string {
	return StorageComponentName
}

func (c *StorageComponent) Dependencies() []string {
	return []string{}
}

func (c *StorageComponent) Validate() error {
	if c.config.Enabled && c.config.Path == "" {
		return fmt.Errorf("storage: database path is required")
	}
	return nil
}

func (c *StorageComponent) Initialize(ctx context.Context) error {
	if !c.config.Enabled {
		return nil
	}

	store, err := storage.New(ctx, c.config)
	if err != nil {
		return fmt.Errorf("storage: failed to initialize store: %w", err)
	}

	if retention := config.ParseDuration(c.config.Retention); retention > 0 {
		if err := store.History().DeleteOlderThan(ctx, retention); err != nil {
			c.logger.Warn("Failed to prune announcement history", "retention", retention, "error", err)
		}
	}

	c.mu.Lock()
	c.store = store
	c.mu.Unlock()

	c.logger.Info("Announcement history ready", "type", c.config.Type, "path", c.config.Path)
	return nil
}

func (c *StorageComponent) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.store == nil {
		return nil
	}
	err := c.store.Close(ctx)
	c.store = nil
	return err
}

// History returns nil when storage is disabled or not yet open.
func (c *StorageComponent) History() storage.HistoryStore {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.store == nil {
		return nil
	}
	return c.store.History()
}

func (c *StorageComponent) RecordAnnouncement(ctx context.Context, item types.CatalogItem, media types.MediaKind, announcedAt time.Time) error {
	history := c.History()
	if history == nil {
		return nil
	}
	return history.RecordAnnouncement(ctx, item, media, announcedAt)
}
