package core

import (
	"context"
	"time"

	"gamewatch/internal/types"
)

// Fetcher returns catalog items newest-first.
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context) ([]types.CatalogItem, error)
}

type Downloader interface {
	Download(ctx context.Context, url string) ([]byte, error)
}

// Publisher delivers messages to the announcement channel. Errors are
// *types.PublishError.
type Publisher interface {
	SendMention(ctx context.Context, channelID, roleID string) error
	SendSummary(ctx context.Context, channelID string, summary types.Summary) error
}

// Recorder keeps an operator-facing history of announcements. It is never
// consulted for deduplication.
type Recorder interface {
	RecordAnnouncement(ctx context.Context, item types.CatalogItem, media types.MediaKind, announcedAt time.Time) error
}

// Lease guards a cycle across processes. Acquire reports false when another
// holder owns the lease.
type Lease interface {
	Acquire(ctx context.Context) (release func(context.Context) error, acquired bool, err error)
}

// Hooks are optional observers, used for metrics.
type Hooks struct {
	OnCycle      func(trigger string, report Report)
	OnSkipped    func(trigger string)
	OnFetchError func(kind types.FetchErrorKind)
	OnMedia      func(kind types.MediaKind, cached bool)
	OnDispatch   func(result Result, err error)
	OnFlushError func()
}

func (h Hooks) cycle(trigger string, report Report) {
	if h.OnCycle != nil {
		h.OnCycle(trigger, report)
	}
}

func (h Hooks) skipped(trigger string) {
	if h.OnSkipped != nil {
		h.OnSkipped(trigger)
	}
}

func (h Hooks) fetchError(kind types.FetchErrorKind) {
	if h.OnFetchError != nil {
		h.OnFetchError(kind)
	}
}

func (h Hooks) media(kind types.MediaKind, cached bool) {
	if h.OnMedia != nil {
		h.OnMedia(kind, cached)
	}
}

func (h Hooks) dispatch(result Result, err error) {
	if h.OnDispatch != nil {
		h.OnDispatch(result, err)
	}
}

func (h Hooks) flushError() {
	if h.OnFlushError != nil {
		h.OnFlushError()
	}
}
