package components

import (
	"context"
	"fmt"

	"gamewatch/internal/platforms"
)

// PlatformComponent owns the Discord gateway connection. The platform is
// built up front so targets and command handlers can bind to it before the
// session opens.
type PlatformComponent struct {
	discord *platforms.DiscordPlatform
}

func NewPlatformComponent(discord *platforms.DiscordPlatform) *PlatformComponent {
	return &PlatformComponent{discord: discord}
}

func (c *PlatformComponent) Name() string {
	return PlatformComponentName
}

// Dependencies keeps the gateway closed until state is loaded and history
// is migrated, so no command can reach an unloaded store.
func (c *PlatformComponent) Dependencies() []string {
	return []string{StateComponentName, StorageComponentName}
}

func (c *PlatformComponent) Validate() error {
	if c.discord == nil {
		return fmt.Errorf("platform: discord platform is required")
	}
	return c.discord.Validate()
}

func (c *PlatformComponent) Initialize(ctx context.Context) error {
	if err := c.discord.Initialize(ctx); err != nil {
		return fmt.Errorf("discord platform initialization failed: %w", err)
	}
	return nil
}

func (c *PlatformComponent) Close(ctx context.Context) error {
	return c.discord.Close(ctx)
}
