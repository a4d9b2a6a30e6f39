package platforms

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"gamewatch/internal/config"
	"gamewatch/internal/types"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/time/rate"
)

type DiscordPlatform struct {
	botToken    string
	callTimeout time.Duration
	limiter     *rate.Limiter
	session     *discordgo.Session
	logger      *slog.Logger

	ready     chan struct{}
	readyOnce sync.Once
}

func NewDiscordPlatform(settings config.DiscordConfig, logger *slog.Logger) (*DiscordPlatform, error) {
	if settings.BotToken == "" {
		return nil, types.NewConfigurationError("discord.bot_token", "is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	callTimeout := config.ParseDuration(settings.CallTimeout)
	if callTimeout <= 0 {
		callTimeout = 8 * time.Second
	}

	limit := rate.Inf
	if interval := config.ParseDuration(settings.SendInterval); interval > 0 {
		limit = rate.Every(interval)
	}

	return &DiscordPlatform{
		botToken:    settings.BotToken,
		callTimeout: callTimeout,
		limiter:     rate.NewLimiter(limit, 1),
		logger:      logger.With("platform", "discord"),
		ready:       make(chan struct{}),
	}, nil
}

func (p *DiscordPlatform) Validate() error {
	if p.botToken == "" {
		return types.NewConfigurationError("discord.bot_token", "is required")
	}
	return nil
}

// Initialize creates the session and opens the gateway. Handlers added with
// AddHandler before Initialize are registered before the connection opens.
func (p *DiscordPlatform) Initialize(ctx context.Context) error {
	if p.session == nil {
		if err := p.newSession(); err != nil {
			return err
		}
	}

	if err := p.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord session: %w", err)
	}

	return nil
}

func (p *DiscordPlatform) newSession() error {
	session, err := discordgo.New("Bot " + p.botToken)
	if err != nil {
		return fmt.Errorf("failed to create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentGuilds | discordgo.IntentGuildMessages | discordgo.IntentMessageContent
	session.AddHandler(p.onReady)

	p.session = session
	return nil
}

func (p *DiscordPlatform) onReady(s *discordgo.Session, r *discordgo.Ready) {
	if r.User != nil {
		p.logger.Info("Logged in", "user", r.User.Username, "user_id", r.User.ID)
	}
	p.readyOnce.Do(func() { close(p.ready) })
}

// AddHandler registers a gateway event handler on the session.
func (p *DiscordPlatform) AddHandler(handler any) error {
	if p.session == nil {
		if err := p.newSession(); err != nil {
			return err
		}
	}
	p.session.AddHandler(handler)
	return nil
}

func (p *DiscordPlatform) Close(ctx context.Context) error {
	if p.session != nil {
		return p.session.Close()
	}
	return nil
}

// Ready is closed once the gateway reported READY.
func (p *DiscordPlatform) Ready() <-chan struct{} {
	return p.ready
}

func (p *DiscordPlatform) Session() *discordgo.Session {
	return p.session
}

// Call runs one REST call with the send pacing and the per-call timeout
// applied, and classifies its error.
func (p *DiscordPlatform) Call(ctx context.Context, op string, fn func(opts ...discordgo.RequestOption) error) error {
	if p.session == nil {
		return &types.PublishError{Op: op, Kind: types.PublishTransport, Err: errors.New("discord session is not initialized")}
	}

	ctx, cancel := context.WithTimeout(ctx, p.callTimeout)
	defer cancel()

	if err := p.limiter.Wait(ctx); err != nil {
		return &types.PublishError{Op: op, Kind: types.PublishTransport, Err: err}
	}

	if err := fn(discordgo.WithContext(ctx)); err != nil {
		return ClassifyError(op, err)
	}
	return nil
}

// ClassifyError maps a discordgo error to a PublishError. HTTP 401 and 403
// are permission failures; everything else is transport.
func ClassifyError(op string, err error) error {
	if err == nil {
		return nil
	}

	kind := types.PublishTransport
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil {
		switch restErr.Response.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			kind = types.PublishPermissionDenied
		}
	}

	return &types.PublishError{Op: op, Kind: kind, Err: err}
}
