package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/feeds"

	"gamewatch/internal/cache"
	"gamewatch/internal/core"
	"gamewatch/internal/storage"
)

const (
	TypeRSS  = "rss"
	TypeAtom = "atom"
	TypeJSON = "json"
)

type CacheKey struct {
	Name string
	Type string
}

func (k CacheKey) ToString() string {
	return fmt.Sprintf("%s:%s", k.Name, k.Type)
}

// NewCache holds rendered feed documents.
func NewCache(config cache.CacheConfig) *cache.Cache[CacheKey, string] {
	return cache.NewCache[CacheKey, string](config, func(k CacheKey) string {
		return k.ToString()
	})
}

var contentTypes = map[string]string{
	TypeRSS:  "application/rss+xml; charset=utf-8",
	TypeAtom: "application/atom+xml; charset=utf-8",
	TypeJSON: "application/feed+json; charset=utf-8",
}

func (s *Server) handleFeed(feedType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := CacheKey{Name: s.name, Type: feedType}

		body, ok := s.feeds.Get(key)
		if !ok {
			entries, err := s.history.ListRecent(r.Context(), s.config.FeedSize)
			if err != nil {
				s.logger.Error("Failed to list announcements", "error", err)
				http.Error(w, "failed to load announcement history", http.StatusInternalServerError)
				return
			}

			body, err = render(s.buildFeed(entries), feedType)
			if err != nil {
				s.logger.Error("Failed to render feed", "type", feedType, "error", err)
				http.Error(w, "failed to render feed", http.StatusInternalServerError)
				return
			}
			s.feeds.Set(key, body)
		}

		w.Header().Set("Content-Type", contentTypes[feedType])
		w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", int(s.config.FeedTTL.Seconds())))
		fmt.Fprint(w, body)
	}
}

func render(feed *feeds.Feed, feedType string) (string, error) {
	switch feedType {
	case TypeAtom:
		return feed.ToAtom()
	case TypeJSON:
		return feed.ToJSON()
	default:
		return feed.ToRss()
	}
}

func (s *Server) buildFeed(entries []storage.HistoryEntry) *feeds.Feed {
	items := make([]*feeds.Item, 0, len(entries))

	for _, entry := range entries {
		item := &feeds.Item{
			Id:          entry.URL,
			Title:       entry.Title,
			Link:        &feeds.Link{Href: entry.URL},
			Description: fmt.Sprintf("A new game, %s, is now available!", entry.Title),
			Created:     entry.AnnouncedAt,
		}
		if !entry.PublishedAt.IsZero() {
			item.Updated = entry.PublishedAt
		}
		if image := feedImage(entry); image != "" {
			item.Enclosure = &feeds.Enclosure{Url: image, Type: imageType(image), Length: "0"}
		}
		items = append(items, item)
	}

	homepage := "https://play.aicade.io/"
	if len(entries) > 0 {
		if i := strings.LastIndex(entries[0].URL, "/"); i > 0 {
			homepage = entries[0].URL[:i+1]
		}
	}

	return &feeds.Feed{
		Title:       fmt.Sprintf("New games (%s)", s.name),
		Link:        &feeds.Link{Href: homepage},
		Description: "Games announced by " + s.name,
		Author:      &feeds.Author{Name: s.name},
		Created:     time.Now().UTC(),
		Items:       items,
	}
}

func feedImage(entry storage.HistoryEntry) string {
	if core.ValidImageRef(entry.AnimatedImage) {
		return strings.TrimSpace(entry.AnimatedImage)
	}
	if core.ValidImageRef(entry.StaticImage) {
		return strings.TrimSpace(entry.StaticImage)
	}
	return ""
}

func imageType(u string) string {
	lower := strings.ToLower(u)
	switch {
	case strings.Contains(lower, ".gif"):
		return "image/gif"
	case strings.Contains(lower, ".png"):
		return "image/png"
	case strings.Contains(lower, ".webp"):
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
