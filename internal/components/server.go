package components

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"gamewatch/internal/server"
	"gamewatch/internal/storage"
)

type ServerConfig struct {
	Name     string
	Port     string
	FeedSize int
}

// ServerComponent runs the liveness, health, metrics and feed endpoints.
type ServerComponent struct {
	config   ServerConfig
	status   server.StatusProvider
	store    *StorageComponent
	gatherer prometheus.Gatherer
	logger   *slog.Logger
	server   *server.Server
}

func NewServerComponent(cfg ServerConfig, status server.StatusProvider, store *StorageComponent, gatherer prometheus.Gatherer, logger *slog.Logger) *ServerComponent {
	if logger == nil {
		logger = slog.Default()
	}
	return &ServerComponent{
		config:   cfg,
		status:   status,
		store:    store,
		gatherer: gatherer,
		logger:   logger,
	}
}

func (c *ServerComponent) Name() string {
	return ServerComponentName
}

func (c *ServerComponent) Dependencies() []string {
	if c.store == nil {
		return []string{}
	}
	return []string{StorageComponentName}
}

func (c *ServerComponent) Validate() error {
	if c.status == nil {
		return fmt.Errorf("server: status provider is required")
	}
	return nil
}

func (c *ServerComponent) Initialize(ctx context.Context) error {
	var history storage.HistoryStore
	if c.store != nil {
		history = c.store.History()
	}

	srv := server.New(c.config.Name, server.Config{
		Port:     c.config.Port,
		FeedSize: c.config.FeedSize,
	}, c.status, history, c.gatherer, c.logger)

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("server: failed to start on port %s: %w", c.config.Port, err)
	}

	c.server = srv
	return nil
}

func (c *ServerComponent) Close(ctx context.Context) error {
	if c.server == nil {
		return nil
	}
	return c.server.Shutdown(ctx)
}
