package components

import (
	"context"
	"fmt"
	"log/slog"

	"gamewatch/internal/config"
	"gamewatch/internal/state"
)

// StateComponent builds the announcement state for the configured mode and
// loads the seen set from disk. A state file that exists but cannot be read
// fails start-up.
type StateComponent struct {
	mode          string
	path          string
	seedWhenEmpty bool
	logger        *slog.Logger

	state state.State
	seen  *state.SeenSet
}

func NewStateComponent(mode string, cfg config.StateConfig, logger *slog.Logger) (*StateComponent, error) {
	if logger == nil {
		logger = slog.Default()
	}

	c := &StateComponent{
		mode:          mode,
		path:          cfg.Path,
		seedWhenEmpty: cfg.SeedWhenEmpty,
		logger:        logger.With("component", StateComponentName),
	}

	switch mode {
	case config.ModeCursor:
		c.state = state.NewCursor()
	case config.ModeSeenSet:
		persister, err := state.NewFilePersister(cfg.Path)
		if err != nil {
			return nil, err
		}
		c.seen = state.NewSeenSet(persister, logger)
		c.state = c.seen
	default:
		return nil, fmt.Errorf("state: unsupported mode %q", mode)
	}

	return c, nil
}

func (c *StateComponent) Name() string {
	return StateComponentName
}

func (c *StateComponent) Dependencies() []string {
	return []string{}
}

func (c *StateComponent) Validate() error {
	if c.mode == config.ModeSeenSet && c.path == "" {
		return fmt.Errorf("state: path is required in %s mode", config.ModeSeenSet)
	}
	return nil
}

func (c *StateComponent) Initialize(ctx context.Context) error {
	if c.seen == nil {
		return nil
	}
	if err := c.seen.Load(ctx); err != nil {
		return fmt.Errorf("failed to load announcement state: %w", err)
	}
	return nil
}

func (c *StateComponent) Close(ctx context.Context) error {
	return nil
}

func (c *StateComponent) State() state.State {
	return c.state
}

// ShouldSeed reports whether start-up should commit the live catalog without
// announcing it. Cursor mode always seeds. The seen set seeds only when
// asked to and no state file existed. Valid after Initialize.
func (c *StateComponent) ShouldSeed() bool {
	if c.seen == nil {
		return true
	}
	return c.seedWhenEmpty && !c.seen.Existed()
}
