package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"gamewatch/internal/types"
)

const (
	ModeCursor  = "cursor"
	ModeSeenSet = "seen_set"

	CatalogAPI  = "api"
	CatalogFeed = "feed"

	DefaultCatalogURL     = "https://api-stage.braincade.in/backend/v2/community/data?page=1&page_size=1"
	DefaultPlayBaseURL    = "https://play.aicade.io/"
	DefaultPlaceholderURL = "https://play.aicade.io/assets/logo-914387a0.png"

	// seen_set mode diffs a whole page, so a single-item page would miss
	// every game but the newest.
	DefaultSeenSetCatalogURL = "https://api-stage.braincade.in/backend/v2/community/data?page=1&page_size=20"
)

type Config struct {
	Bot     BotConfig     `toml:"bot"`
	Catalog CatalogConfig `toml:"catalog"`
	Media   MediaConfig   `toml:"media"`
	Discord DiscordConfig `toml:"discord"`
	State   StateConfig   `toml:"state"`
	Storage StorageConfig `toml:"storage"`
	Server  ServerConfig  `toml:"server"`
	Lease   LeaseConfig   `toml:"lease"`
	Log     LogConfig     `toml:"log"`
}

type BotConfig struct {
	Name          string `toml:"name"`
	Interval      string `toml:"interval"`
	Mode          string `toml:"mode"`
	RunOnce       bool   `toml:"run_once"`
	CommandPrefix string `toml:"command_prefix"`
}

type CatalogConfig struct {
	Type        string `toml:"type"`
	URL         string `toml:"url"`
	PlayBaseURL string `toml:"play_base_url"`
	Timeout     string `toml:"timeout"`
	MaxItems    int    `toml:"max_items"`
	UserAgent   string `toml:"user_agent"`
}

type MediaConfig struct {
	PlaceholderURL string `toml:"placeholder_url"`
	AttachmentName string `toml:"attachment_name"`
	MaxBytes       int64  `toml:"max_bytes"`
	Timeout        string `toml:"timeout"`
	CacheTTL       string `toml:"cache_ttl"`
}

type DiscordConfig struct {
	BotToken     string   `toml:"bot_token"`
	ChannelID    string   `toml:"channel_id"`
	RoleID       string   `toml:"role_id"`
	AdminUserIDs []string `toml:"admin_user_ids"`
	CallTimeout  string   `toml:"call_timeout"`
	SendInterval string   `toml:"send_interval"`
	Color        int      `toml:"color"`
	Footer       string   `toml:"footer"`
}

type StateConfig struct {
	Path          string `toml:"path"`
	SeedWhenEmpty bool   `toml:"seed_when_empty"`
}

type StorageConfig struct {
	Enabled   bool   `toml:"enabled"`
	Type      string `toml:"type"`
	Path      string `toml:"path"`
	Retention string `toml:"retention"`
}

type ServerConfig struct {
	Enabled  *bool  `toml:"enabled"`
	Port     string `toml:"port"`
	FeedSize int    `toml:"feed_size"`
}

type LeaseConfig struct {
	Type     string `toml:"type"`
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
	Key      string `toml:"key"`
	TTL      string `toml:"ttl"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Load reads the TOML file at path, applies environment overrides and
// validates the result. A missing file is not an error: the deployment may be
// configured entirely from the environment.
func Load(path string) (*Config, error) {
	var config Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	applyEnv(&config, os.LookupEnv)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

func applyEnv(config *Config, lookup func(string) (string, bool)) {
	if v, ok := lookup("DISCORD_TOKEN"); ok && v != "" {
		config.Discord.BotToken = v
	}
	if v, ok := lookup("CHANNEL_ID"); ok && v != "" {
		config.Discord.ChannelID = v
	}
	if v, ok := lookup("GAMER_ROLE_ID"); ok && v != "" {
		config.Discord.RoleID = v
	}
	if v, ok := lookup("PORT"); ok && v != "" {
		config.Server.Port = v
	}
	if v, ok := lookup("GAMEWATCH_STATE_PATH"); ok && v != "" {
		config.State.Path = v
	}
}

// multiItemPage rejects catalog URLs that request one item per page.
func multiItemPage(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return types.NewConfigurationError("catalog.url", fmt.Sprintf("invalid url: %v", err))
	}
	if size := u.Query().Get("page_size"); size != "" {
		if n, err := strconv.Atoi(size); err == nil && n <= 1 {
			return types.NewConfigurationError("catalog.url", "seen_set mode needs page_size greater than 1")
		}
	}
	return nil
}

func validateConfig(config *Config) error {
	if config.Bot.Name == "" {
		config.Bot.Name = "gamewatch"
	}

	if config.Bot.Interval == "" {
		config.Bot.Interval = "10m"
	}
	if err := positiveDuration("bot.interval", config.Bot.Interval); err != nil {
		return err
	}

	if config.Bot.Mode == "" {
		config.Bot.Mode = ModeCursor
	}
	if config.Bot.Mode != ModeCursor && config.Bot.Mode != ModeSeenSet {
		return types.NewConfigurationError("bot.mode", fmt.Sprintf("unsupported mode %q", config.Bot.Mode))
	}

	if config.Bot.CommandPrefix == "" {
		config.Bot.CommandPrefix = "!aicade"
	}

	if config.Catalog.Type == "" {
		config.Catalog.Type = CatalogAPI
	}
	if config.Catalog.Type != CatalogAPI && config.Catalog.Type != CatalogFeed {
		return types.NewConfigurationError("catalog.type", fmt.Sprintf("unsupported catalog type %q", config.Catalog.Type))
	}
	if config.Catalog.URL == "" {
		if config.Catalog.Type == CatalogFeed {
			return types.NewConfigurationError("catalog.url", "is required for feed catalogs")
		}
		config.Catalog.URL = DefaultCatalogURL
		if config.Bot.Mode == ModeSeenSet {
			config.Catalog.URL = DefaultSeenSetCatalogURL
		}
	}
	if config.Bot.Mode == ModeSeenSet && config.Catalog.Type == CatalogAPI {
		if err := multiItemPage(config.Catalog.URL); err != nil {
			return err
		}
	}
	if config.Catalog.PlayBaseURL == "" {
		config.Catalog.PlayBaseURL = DefaultPlayBaseURL
	}
	if config.Catalog.Timeout == "" {
		config.Catalog.Timeout = "8s"
	}
	if err := positiveDuration("catalog.timeout", config.Catalog.Timeout); err != nil {
		return err
	}
	if config.Catalog.MaxItems == 0 {
		config.Catalog.MaxItems = 20
	}
	if config.Catalog.UserAgent == "" {
		config.Catalog.UserAgent = "gamewatch/1.0"
	}

	if config.Media.PlaceholderURL == "" {
		config.Media.PlaceholderURL = DefaultPlaceholderURL
	}
	if config.Media.AttachmentName == "" {
		config.Media.AttachmentName = "game.gif"
	}
	if config.Media.MaxBytes == 0 {
		config.Media.MaxBytes = 8 << 20
	}
	if config.Media.Timeout == "" {
		config.Media.Timeout = "8s"
	}
	if err := positiveDuration("media.timeout", config.Media.Timeout); err != nil {
		return err
	}
	if config.Media.CacheTTL == "" {
		config.Media.CacheTTL = "1h"
	}
	if err := positiveDuration("media.cache_ttl", config.Media.CacheTTL); err != nil {
		return err
	}

	if config.Discord.BotToken == "" {
		return types.NewConfigurationError("discord.bot_token", "is required (or set DISCORD_TOKEN)")
	}
	if err := snowflake("discord.channel_id", config.Discord.ChannelID, "CHANNEL_ID"); err != nil {
		return err
	}
	if err := snowflake("discord.role_id", config.Discord.RoleID, "GAMER_ROLE_ID"); err != nil {
		return err
	}
	if config.Discord.CallTimeout == "" {
		config.Discord.CallTimeout = "8s"
	}
	if err := positiveDuration("discord.call_timeout", config.Discord.CallTimeout); err != nil {
		return err
	}
	if config.Discord.SendInterval == "" {
		config.Discord.SendInterval = "1s"
	}
	if _, err := time.ParseDuration(config.Discord.SendInterval); err != nil {
		return types.NewConfigurationError("discord.send_interval", err.Error())
	}
	if config.Discord.Color == 0 {
		config.Discord.Color = 3447003
	}
	if config.Discord.Footer == "" {
		config.Discord.Footer = "Aicade Game Notifier Bot"
	}

	if config.State.Path == "" {
		config.State.Path = "./announced.json"
	}

	if config.Storage.Type == "" {
		config.Storage.Type = "sqlite"
	}
	if config.Storage.Path == "" {
		config.Storage.Path = "./gamewatch.db"
	}
	if config.Storage.Retention != "" {
		d, err := time.ParseDuration(config.Storage.Retention)
		if err != nil {
			return types.NewConfigurationError("storage.retention", err.Error())
		}
		if d < 0 {
			return types.NewConfigurationError("storage.retention", "must not be negative")
		}
	}

	if config.Server.Enabled == nil {
		enabled := true
		config.Server.Enabled = &enabled
	}
	if config.Server.Port == "" {
		config.Server.Port = "8080"
	}
	if config.Server.FeedSize == 0 {
		config.Server.FeedSize = 50
	}

	switch config.Lease.Type {
	case "", "none":
		config.Lease.Type = "none"
	case "redis":
		if config.Lease.Addr == "" {
			return types.NewConfigurationError("lease.addr", "is required for redis leases")
		}
		if config.Lease.Key == "" {
			config.Lease.Key = "gamewatch:" + config.Bot.Name + ":cycle"
		}
		if config.Lease.TTL == "" {
			config.Lease.TTL = "2m"
		}
		if err := positiveDuration("lease.ttl", config.Lease.TTL); err != nil {
			return err
		}
	default:
		return types.NewConfigurationError("lease.type", fmt.Sprintf("unsupported lease type %q", config.Lease.Type))
	}

	if config.Log.Level == "" {
		config.Log.Level = "info"
	}
	if config.Log.Format == "" {
		config.Log.Format = "text"
	}

	return nil
}

func positiveDuration(field, value string) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return types.NewConfigurationError(field, err.Error())
	}
	if d <= 0 {
		return types.NewConfigurationError(field, "must be positive")
	}
	return nil
}

func snowflake(field, value, env string) error {
	if value == "" {
		return types.NewConfigurationError(field, fmt.Sprintf("is required (or set %s)", env))
	}
	if _, err := strconv.ParseUint(value, 10, 64); err != nil {
		return types.NewConfigurationError(field, "must be a numeric Discord ID")
	}
	return nil
}

// ParseDuration parses a duration that validateConfig already accepted.
func ParseDuration(value string) time.Duration {
	d, _ := time.ParseDuration(strings.TrimSpace(value))
	return d
}

func (c *Config) ServerEnabled() bool {
	return c.Server.Enabled != nil && *c.Server.Enabled
}
