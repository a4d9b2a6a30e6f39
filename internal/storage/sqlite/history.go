package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"gamewatch/internal/storage"
	"gamewatch/internal/types"
)

type historyStore struct {
	db *sql.DB
}

func newHistoryStore(db *sql.DB) storage.HistoryStore {
	return &historyStore{db: db}
}

func (s *historyStore) RecordAnnouncement(ctx context.Context, item types.CatalogItem, media types.MediaKind, announcedAt time.Time) error {
	query := `
		INSERT INTO announcements (url, identifier, title, static_image, animated_image, media, published_at, announced_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(url) DO NOTHING
	`

	publishedAt := sql.NullTime{Valid: !item.PublishedAt.IsZero(), Time: item.PublishedAt.UTC()}

	_, err := s.db.ExecContext(ctx, query,
		item.CanonicalURL,
		item.Identifier,
		item.Title,
		item.StaticImageRef,
		item.AnimatedImageRef,
		media.String(),
		publishedAt,
		announcedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record announcement: %w", err)
	}

	return nil
}

func (s *historyStore) ListRecent(ctx context.Context, limit int) ([]storage.HistoryEntry, error) {
	query := `
		SELECT url, identifier, title, static_image, animated_image, media, published_at, announced_at
		FROM announcements
		ORDER BY announced_at DESC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query announcements: %w", err)
	}
	defer rows.Close()

	entries := make([]storage.HistoryEntry, 0, limit)
	for rows.Next() {
		var entry storage.HistoryEntry
		var publishedAt sql.NullTime

		err := rows.Scan(
			&entry.URL,
			&entry.Identifier,
			&entry.Title,
			&entry.StaticImage,
			&entry.AnimatedImage,
			&entry.Media,
			&publishedAt,
			&entry.AnnouncedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan announcement: %w", err)
		}

		if publishedAt.Valid {
			entry.PublishedAt = publishedAt.Time
		}

		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return entries, nil
}

func (s *historyStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM announcements`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count announcements: %w", err)
	}
	return n, nil
}

func (s *historyStore) DeleteOlderThan(ctx context.Context, age time.Duration) error {
	cutoff := time.Now().Add(-age).UTC()
	if _, err := s.db.ExecContext(ctx, `DELETE FROM announcements WHERE announced_at < ?`, cutoff); err != nil {
		return fmt.Errorf("failed to delete old announcements: %w", err)
	}
	return nil
}
