package sources

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"sort"
	"strings"
	"time"

	"gamewatch/internal/types"

	"github.com/mmcdole/gofeed"
)

type FeedOptions struct {
	URL         string
	PlayBaseURL string
	UserAgent   string
	Timeout     time.Duration
	MaxItems    int
	Client      *http.Client
	Logger      *slog.Logger
}

// FeedSource reads the catalog from an RSS, Atom or JSON feed.
type FeedSource struct {
	name        string
	feedURL     string
	playBaseURL string
	timeout     time.Duration
	maxItems    int
	parser      *gofeed.Parser
	logger      *slog.Logger
}

func NewFeedSource(name string, opts FeedOptions) *FeedSource {
	if opts.Timeout == 0 {
		opts.Timeout = 8 * time.Second
	}
	if opts.MaxItems == 0 {
		opts.MaxItems = 20
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	parser := gofeed.NewParser()
	parser.UserAgent = opts.UserAgent
	if opts.Client != nil {
		parser.Client = opts.Client
	}

	return &FeedSource{
		name:        name,
		feedURL:     opts.URL,
		playBaseURL: opts.PlayBaseURL,
		timeout:     opts.Timeout,
		maxItems:    opts.MaxItems,
		parser:      parser,
		logger:      opts.Logger.With("source", name),
	}
}

func (f *FeedSource) Name() string {
	return f.name
}

// Fetch returns feed entries newest-first.
func (f *FeedSource) Fetch(ctx context.Context) ([]types.CatalogItem, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	feed, err := f.parser.ParseURLWithContext(f.feedURL, ctx)
	if err != nil {
		var httpErr gofeed.HTTPError
		if errors.As(err, &httpErr) {
			return nil, &types.FetchError{URL: f.feedURL, Kind: types.FetchStatus, StatusCode: httpErr.StatusCode}
		}
		if errors.Is(err, gofeed.ErrFeedTypeNotDetected) {
			return nil, &types.FetchError{URL: f.feedURL, Kind: types.FetchDecode, Err: err}
		}
		return nil, &types.FetchError{URL: f.feedURL, Kind: types.FetchTransport, Err: err}
	}

	entries := make([]*gofeed.Item, 0, len(feed.Items))
	for _, entry := range feed.Items {
		if entry != nil {
			entries = append(entries, entry)
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entryTime(entries[i]).After(entryTime(entries[j]))
	})

	items := make([]types.CatalogItem, 0, len(entries))
	for _, entry := range entries {
		if len(items) >= f.maxItems {
			break
		}

		item, err := f.convertToItem(entry)
		if err != nil {
			f.logger.Debug("Skipping feed entry", "guid", entry.GUID, "error", err)
			continue
		}
		items = append(items, item)
	}

	f.logger.Debug("Feed fetched", "count", len(items))
	return items, nil
}

func (f *FeedSource) convertToItem(entry *gofeed.Item) (types.CatalogItem, error) {
	identifier := feedIdentifier(entry.GUID)
	if identifier == "" {
		identifier = feedIdentifier(entry.Link)
	}

	// The play link is always built from the identifier, like catalog API
	// items, so both sources announce the same URL for the same game.
	item, err := types.NewCatalogItem(cleanTitle(entry.Title), identifier, f.playBaseURL)
	if err != nil {
		return types.CatalogItem{}, err
	}

	item.PublishedAt = entryTime(entry)

	if entry.Image != nil {
		item.StaticImageRef = entry.Image.URL
	}
	for _, enclosure := range entry.Enclosures {
		if enclosure == nil || enclosure.URL == "" {
			continue
		}
		switch {
		case isGIF(enclosure.Type, enclosure.URL):
			if item.AnimatedImageRef == "" {
				item.AnimatedImageRef = enclosure.URL
			}
		case strings.HasPrefix(enclosure.Type, "image/"):
			if item.StaticImageRef == "" {
				item.StaticImageRef = enclosure.URL
			}
		}
	}

	return item, nil
}

func entryTime(entry *gofeed.Item) time.Time {
	if entry.PublishedParsed != nil {
		return *entry.PublishedParsed
	}
	if entry.UpdatedParsed != nil {
		return *entry.UpdatedParsed
	}
	return time.Time{}
}

func isGIF(mimeType, rawURL string) bool {
	if strings.EqualFold(mimeType, "image/gif") {
		return true
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.EqualFold(path.Ext(u.Path), ".gif")
}

// feedIdentifier reduces permalink GUIDs and links to their last path
// segment. Opaque GUIDs are returned as is.
func feedIdentifier(raw string) string {
	raw = strings.TrimSpace(raw)
	if !isAbsoluteURL(raw) {
		return raw
	}
	u, _ := url.Parse(raw)
	segment := path.Base(strings.TrimRight(u.Path, "/"))
	if segment == "." || segment == "/" {
		return ""
	}
	return segment
}

func isAbsoluteURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
