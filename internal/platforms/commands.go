package platforms

import (
	"context"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// CheckFunc runs a manual check and returns the reply text.
type CheckFunc func(ctx context.Context) string

type CommandConfig struct {
	Prefix       string
	AdminUserIDs []string
	Logger       *slog.Logger
}

// CommandHandler answers "<prefix> check" text commands from authorized users.
type CommandHandler struct {
	platform *DiscordPlatform
	prefix   string
	admins   map[string]struct{}
	check    CheckFunc
	logger   *slog.Logger
}

func NewCommandHandler(platform *DiscordPlatform, config CommandConfig, check CheckFunc) *CommandHandler {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	admins := make(map[string]struct{}, len(config.AdminUserIDs))
	for _, id := range config.AdminUserIDs {
		admins[id] = struct{}{}
	}

	return &CommandHandler{
		platform: platform,
		prefix:   config.Prefix,
		admins:   admins,
		check:    check,
		logger:   config.Logger.With("component", "commands"),
	}
}

// Register adds the message handler to the platform session.
func (h *CommandHandler) Register() error {
	return h.platform.AddHandler(h.onMessage)
}

func (h *CommandHandler) onMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}

	command, ok := ParseCommand(h.prefix, m.Content)
	if !ok {
		return
	}

	logger := h.logger.With("user_id", m.Author.ID, "channel_id", m.ChannelID, "command", command)

	if command != "check" {
		h.reply(s, m, "Unknown command. Try `"+h.prefix+" check`.")
		return
	}

	if !Authorized(m.Author.ID, h.admins, messagePermissions(s, m, logger)) {
		logger.Info("Rejected unauthorized command")
		h.reply(s, m, "You are not allowed to run this command.")
		return
	}

	logger.Info("Manual check requested")
	go func() {
		h.reply(s, m, h.check(context.Background()))
	}()
}

// messagePermissions resolves the author's channel permissions. Message
// events carry the member's roles, so they are read from the message rather
// than from the member cache, which only fills up with the privileged
// members intent.
func messagePermissions(s *discordgo.Session, m *discordgo.MessageCreate, logger *slog.Logger) int64 {
	if s == nil || s.State == nil {
		return 0
	}

	if m.Member != nil {
		perms, err := s.State.MessagePermissions(m.Message)
		if err == nil {
			return perms
		}
		logger.Debug("Could not resolve message permissions", "error", err)
	}

	perms, err := s.State.UserChannelPermissions(m.Author.ID, m.ChannelID)
	if err != nil {
		logger.Debug("Could not resolve channel permissions", "error", err)
		return 0
	}
	return perms
}

func (h *CommandHandler) reply(s *discordgo.Session, m *discordgo.MessageCreate, text string) {
	err := h.platform.Call(context.Background(), "reply", func(opts ...discordgo.RequestOption) error {
		_, err := s.ChannelMessageSendReply(m.ChannelID, text, m.Reference(), opts...)
		return err
	})
	if err != nil {
		h.logger.Warn("Failed to reply to command", "channel_id", m.ChannelID, "error", err)
	}
}

// ParseCommand splits "<prefix> <command> ..." and returns the lower-cased
// command word.
func ParseCommand(prefix, content string) (string, bool) {
	fields := strings.Fields(content)
	if len(fields) == 0 || !strings.EqualFold(fields[0], prefix) {
		return "", false
	}
	if len(fields) == 1 {
		return "check", true
	}
	return strings.ToLower(fields[1]), true
}

// Authorized reports whether a user may trigger a manual check.
func Authorized(userID string, admins map[string]struct{}, perms int64) bool {
	if _, ok := admins[userID]; ok {
		return true
	}
	return perms&discordgo.PermissionAdministrator != 0 || perms&discordgo.PermissionManageGuild != 0
}
