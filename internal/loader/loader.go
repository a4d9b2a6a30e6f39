package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"gamewatch/internal/components"
	"gamewatch/internal/config"
	"gamewatch/internal/core"
	"gamewatch/internal/lease"
	"gamewatch/internal/metrics"
	"gamewatch/internal/platforms"
	"gamewatch/internal/sources"
	_ "gamewatch/internal/storage/sqlite"
	discordtarget "gamewatch/internal/targets/discord"
)

// Options adjust a loaded configuration for one invocation.
type Options struct {
	// RunOnce forces a single cycle regardless of bot.run_once.
	RunOnce bool
	// DisableServer skips the HTTP responder.
	DisableServer bool
	// SkipSeed never seeds, even in cursor mode.
	SkipSeed bool
}

type Loader struct {
	config  *config.Config
	options Options
	logger  *slog.Logger
}

func NewLoader(cfg *config.Config, options Options, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		config:  cfg,
		options: options,
		logger:  logger,
	}
}

// App is a fully wired bot whose components have not been started yet.
type App struct {
	Bot      *core.Bot
	Registry *components.Registry
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	logger   *slog.Logger
}

// Build constructs every component and the pipeline. Nothing touches the
// network or the disk until App.Run.
func (l *Loader) Build() (*App, error) {
	cfg := l.config

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)
	hooks := m.CoreHooks()

	registry := components.NewRegistry(l.logger)

	stateComp, err := components.NewStateComponent(cfg.Bot.Mode, cfg.State, l.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build state: %w", err)
	}
	if err := registry.Register(stateComp); err != nil {
		return nil, fmt.Errorf("failed to register state component: %w", err)
	}

	storageComp := components.NewStorageComponent(cfg.Storage, l.logger)
	if err := registry.Register(storageComp); err != nil {
		return nil, fmt.Errorf("failed to register storage component: %w", err)
	}

	discord, err := platforms.NewDiscordPlatform(cfg.Discord, l.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord platform: %w", err)
	}
	if err := registry.Register(components.NewPlatformComponent(discord)); err != nil {
		return nil, fmt.Errorf("failed to register platform component: %w", err)
	}

	client := &http.Client{}

	fetcher, err := l.createFetcher(client)
	if err != nil {
		return nil, err
	}

	downloader := sources.NewDownloader(client, cfg.Catalog.UserAgent, config.ParseDuration(cfg.Media.Timeout), cfg.Media.MaxBytes)

	resolver := core.NewResolver(downloader, core.ResolverConfig{
		PlaceholderURL: cfg.Media.PlaceholderURL,
		AttachmentName: cfg.Media.AttachmentName,
		CacheTTL:       config.ParseDuration(cfg.Media.CacheTTL),
		Logger:         l.logger,
		Hooks:          hooks,
	})

	dispatcherCfg := core.DispatcherConfig{
		ChannelID: cfg.Discord.ChannelID,
		RoleID:    cfg.Discord.RoleID,
		Color:     cfg.Discord.Color,
		Footer:    cfg.Discord.Footer,
		Logger:    l.logger,
		Hooks:     hooks,
	}
	if cfg.Storage.Enabled {
		dispatcherCfg.Recorder = storageComp
	}
	target := discordtarget.New(cfg.Bot.Name, discord, l.logger)
	dispatcher := core.NewDispatcher(target, stateComp.State(), dispatcherCfg)

	pipeline := core.NewPipeline(core.PipelineConfig{
		Fetcher:    fetcher,
		Resolver:   resolver,
		Dispatcher: dispatcher,
		State:      stateComp.State(),
		Logger:     l.logger,
		Hooks:      hooks,
	})

	botCfg := core.BotConfig{
		Name:     cfg.Bot.Name,
		Pipeline: pipeline,
		Interval: config.ParseDuration(cfg.Bot.Interval),
		RunOnce:  cfg.Bot.RunOnce || l.options.RunOnce,
		Seed: func() bool {
			return !l.options.SkipSeed && stateComp.ShouldSeed()
		},
		Ready:  discord.Ready(),
		Logger: l.logger,
		Hooks:  hooks,
	}

	if cfg.Lease.Type == "redis" {
		redisLease, err := lease.NewRedisLease(cfg.Lease, l.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create cycle lease: %w", err)
		}
		if err := registry.Register(components.NewLeaseComponent(redisLease)); err != nil {
			return nil, fmt.Errorf("failed to register lease component: %w", err)
		}
		botCfg.Lease = redisLease
	}

	bot := core.NewBot(botCfg)

	if !botCfg.RunOnce {
		commands := platforms.NewCommandHandler(discord, platforms.CommandConfig{
			Prefix:       cfg.Bot.CommandPrefix,
			AdminUserIDs: cfg.Discord.AdminUserIDs,
			Logger:       l.logger,
		}, func(ctx context.Context) string {
			report, err := bot.TryRun(ctx, core.TriggerManual)
			return CheckReply(report, err)
		})
		if err := commands.Register(); err != nil {
			return nil, fmt.Errorf("failed to register commands: %w", err)
		}
	}

	if cfg.ServerEnabled() && !l.options.DisableServer {
		serverComp := components.NewServerComponent(components.ServerConfig{
			Name:     cfg.Bot.Name,
			Port:     cfg.Server.Port,
			FeedSize: cfg.Server.FeedSize,
		}, bot, storageComp, reg, l.logger)
		if err := registry.Register(serverComp); err != nil {
			return nil, fmt.Errorf("failed to register server component: %w", err)
		}
	}

	return &App{
		Bot:      bot,
		Registry: registry,
		Metrics:  m,
		Gatherer: reg,
		logger:   l.logger,
	}, nil
}

func (l *Loader) createFetcher(client *http.Client) (core.Fetcher, error) {
	cfg := l.config.Catalog
	timeout := config.ParseDuration(cfg.Timeout)

	switch cfg.Type {
	case config.CatalogAPI:
		return sources.NewCatalogSource("aicade", sources.CatalogOptions{
			URL:         cfg.URL,
			PlayBaseURL: cfg.PlayBaseURL,
			UserAgent:   cfg.UserAgent,
			Timeout:     timeout,
			MaxItems:    cfg.MaxItems,
			Client:      client,
			Logger:      l.logger,
		}), nil

	case config.CatalogFeed:
		return sources.NewFeedSource("feed", sources.FeedOptions{
			URL:         cfg.URL,
			PlayBaseURL: cfg.PlayBaseURL,
			UserAgent:   cfg.UserAgent,
			Timeout:     timeout,
			MaxItems:    cfg.MaxItems,
			Client:      client,
			Logger:      l.logger,
		}), nil

	default:
		return nil, fmt.Errorf("unsupported catalog type: %s", cfg.Type)
	}
}

// Run starts every component, runs the scheduler until ctx is cancelled (or
// the single cycle finishes), then closes components in reverse order.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("Initializing all components")
	if err := a.Registry.InitializeAll(ctx); err != nil {
		return fmt.Errorf("component initialization failed: %w", err)
	}
	a.logger.Info("All components initialized", "order", a.Registry.Order())

	defer a.Registry.CloseAll(context.WithoutCancel(ctx))

	err := a.Bot.Start(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// CheckReply is the text a manual check answers with.
func CheckReply(report core.Report, err error) string {
	switch {
	case errors.Is(err, core.ErrCycleInProgress):
		return "A check is already running, try again in a moment."
	case errors.Is(err, core.ErrNotStarted):
		return "Still starting up, try again in a moment."
	case errors.Is(err, core.ErrLeaseHeld):
		return "A check is already running on another instance."
	case err != nil:
		return "Check failed: " + err.Error()
	default:
		return "Check complete: " + report.String() + "."
	}
}
