package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gamewatch/internal/state"
	"gamewatch/internal/types"
)

type Result int

const (
	Suppressed Result = iota
	Sent
)

func (r Result) String() string {
	if r == Sent {
		return "sent"
	}
	return "suppressed"
}

type DispatcherConfig struct {
	ChannelID string
	RoleID    string
	Color     int
	Footer    string
	Recorder  Recorder
	Logger    *slog.Logger
	Hooks     Hooks
}

// Dispatcher announces one item and commits it to state only after the
// summary message was accepted.
type Dispatcher struct {
	publisher Publisher
	state     state.State
	channelID string
	roleID    string
	color     int
	footer    string
	recorder  Recorder
	logger    *slog.Logger
	hooks     Hooks
	now       func() time.Time
}

func NewDispatcher(publisher Publisher, st state.State, config DispatcherConfig) *Dispatcher {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &Dispatcher{
		publisher: publisher,
		state:     st,
		channelID: config.ChannelID,
		roleID:    config.RoleID,
		color:     config.Color,
		footer:    config.Footer,
		recorder:  config.Recorder,
		logger:    config.Logger,
		hooks:     config.Hooks,
		now:       time.Now,
	}
}

func (d *Dispatcher) Dispatch(ctx context.Context, item types.CatalogItem, decision types.MediaDecision) (Result, error) {
	result, err := d.dispatch(ctx, item, decision)
	d.hooks.dispatch(result, err)
	return result, err
}

func (d *Dispatcher) dispatch(ctx context.Context, item types.CatalogItem, decision types.MediaDecision) (Result, error) {
	logger := d.logger.With("item_url", item.CanonicalURL)

	if err := d.publisher.SendMention(ctx, d.channelID, d.roleID); err != nil {
		logger.Warn("Role mention failed", "kind", types.PublishKind(err), "error", err)
	}

	summary := BuildSummary(item, decision, d.color, d.footer)
	if err := d.publisher.SendSummary(ctx, d.channelID, summary); err != nil {
		logger.Error("Failed to send announcement", "title", item.Title, "kind", types.PublishKind(err), "error", err)
		return Suppressed, fmt.Errorf("announce %s: %w", item.CanonicalURL, err)
	}

	d.state.Commit(item.CanonicalURL)
	logger.Info("Announced new game", "title", item.Title, "media", decision.Kind)

	if d.recorder != nil {
		if err := d.recorder.RecordAnnouncement(ctx, item, decision.Kind, d.now()); err != nil {
			logger.Warn("Failed to record announcement history", "error", err)
		}
	}

	return Sent, nil
}

func BuildSummary(item types.CatalogItem, decision types.MediaDecision, color int, footer string) types.Summary {
	return types.Summary{
		Title:       "🎮 New Game Alert: " + item.Title,
		URL:         item.CanonicalURL,
		Description: fmt.Sprintf("A new game, **%s**, is now available!", item.Title),
		Footer:      footer,
		Color:       color,
		Media:       decision,
	}
}
