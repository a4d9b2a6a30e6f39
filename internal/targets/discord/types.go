package discord

import (
	"bytes"

	"gamewatch/internal/types"

	"github.com/bwmarrin/discordgo"
)

const (
	maxTitleLength       = 256
	maxDescriptionLength = 4096
)

type Embed struct {
	Title       string
	Description string
	URL         string
	Color       int
	Footer      *EmbedFooter
	Image       *EmbedImage
	Thumbnail   *EmbedImage
}

type EmbedFooter struct {
	Text string
}

type EmbedImage struct {
	URL string
}

// From fills the embed from a summary. Attached bytes are referenced through
// the attachment:// scheme, remote images go in the image slot and the
// placeholder is shown as a thumbnail.
func (e *Embed) From(summary types.Summary) {
	e.Title = truncate(summary.Title, maxTitleLength)
	e.Description = truncate(summary.Description, maxDescriptionLength)
	e.URL = summary.URL
	e.Color = summary.Color

	if summary.Footer != "" {
		e.Footer = &EmbedFooter{Text: summary.Footer}
	}

	switch summary.Media.Kind {
	case types.MediaAttachBytes:
		e.Image = &EmbedImage{URL: "attachment://" + summary.Media.Filename}
	case types.MediaReferenceURL:
		e.Image = &EmbedImage{URL: summary.Media.URL}
	default:
		if summary.Media.URL != "" {
			e.Thumbnail = &EmbedImage{URL: summary.Media.URL}
		}
	}
}

func (e *Embed) Into() *discordgo.MessageEmbed {
	dgEmbed := &discordgo.MessageEmbed{
		Title:       e.Title,
		Description: e.Description,
		URL:         e.URL,
		Color:       e.Color,
	}

	if e.Footer != nil {
		dgEmbed.Footer = &discordgo.MessageEmbedFooter{
			Text: e.Footer.Text,
		}
	}

	if e.Image != nil {
		dgEmbed.Image = &discordgo.MessageEmbedImage{
			URL: e.Image.URL,
		}
	}

	if e.Thumbnail != nil {
		dgEmbed.Thumbnail = &discordgo.MessageEmbedThumbnail{
			URL: e.Thumbnail.URL,
		}
	}

	return dgEmbed
}

// SummaryMessage builds the announcement message. It never pings anyone.
func SummaryMessage(summary types.Summary) *discordgo.MessageSend {
	var embed Embed
	embed.From(summary)

	msg := &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{embed.Into()},
		AllowedMentions: &discordgo.MessageAllowedMentions{
			Parse: []discordgo.AllowedMentionType{},
		},
	}

	if summary.Media.Kind == types.MediaAttachBytes {
		msg.Files = []*discordgo.File{{
			Name:        summary.Media.Filename,
			ContentType: "image/gif",
			Reader:      bytes.NewReader(summary.Media.Data),
		}}
	}

	return msg
}

// MentionMessage pings exactly one role.
func MentionMessage(roleID string) *discordgo.MessageSend {
	return &discordgo.MessageSend{
		Content: "<@&" + roleID + ">",
		AllowedMentions: &discordgo.MessageAllowedMentions{
			Roles: []string{roleID},
		},
	}
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-3]) + "..."
}
