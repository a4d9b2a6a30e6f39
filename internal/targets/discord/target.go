package discord

import (
	"context"
	"log/slog"

	"gamewatch/internal/platforms"
	"gamewatch/internal/types"

	"github.com/bwmarrin/discordgo"
)

// Target publishes announcements to a Discord text channel.
type Target struct {
	name     string
	platform *platforms.DiscordPlatform
	logger   *slog.Logger
}

func New(name string, platform *platforms.DiscordPlatform, logger *slog.Logger) *Target {
	if logger == nil {
		logger = slog.Default()
	}
	return &Target{
		name:     name,
		platform: platform,
		logger:   logger.With("target", name),
	}
}

func (d *Target) Name() string {
	return d.name
}

func (d *Target) SendMention(ctx context.Context, channelID, roleID string) error {
	return d.send(ctx, "mention", channelID, MentionMessage(roleID))
}

func (d *Target) SendSummary(ctx context.Context, channelID string, summary types.Summary) error {
	return d.send(ctx, "summary", channelID, SummaryMessage(summary))
}

func (d *Target) send(ctx context.Context, op, channelID string, msg *discordgo.MessageSend) error {
	return d.platform.Call(ctx, op, func(opts ...discordgo.RequestOption) error {
		sent, err := d.platform.Session().ChannelMessageSendComplex(channelID, msg, opts...)
		if err != nil {
			return err
		}
		d.logger.Debug("Message sent", "op", op, "channel_id", channelID, "message_id", sent.ID)
		return nil
	})
}
