package storage

import (
	"context"
	"time"

	"gamewatch/internal/types"
)

type StorageInterface interface {
	History() HistoryStore
	Close(ctx context.Context) error
}

// HistoryEntry is one announcement as recorded for operators and feeds.
type HistoryEntry struct {
	URL           string
	Identifier    string
	Title         string
	StaticImage   string
	AnimatedImage string
	Media         string
	PublishedAt   time.Time
	AnnouncedAt   time.Time
}

// HistoryStore records successful announcements. Deduplication never reads
// from it.
type HistoryStore interface {
	RecordAnnouncement(ctx context.Context, item types.CatalogItem, media types.MediaKind, announcedAt time.Time) error
	ListRecent(ctx context.Context, limit int) ([]HistoryEntry, error)
	Count(ctx context.Context) (int, error)
	DeleteOlderThan(ctx context.Context, age time.Duration) error
}
