package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"gamewatch/internal/types"
)

const maxCatalogBytes = 4 << 20

type CatalogOptions struct {
	URL         string
	PlayBaseURL string
	UserAgent   string
	Timeout     time.Duration
	MaxItems    int
	Client      *http.Client
	Logger      *slog.Logger
}

// CatalogSource reads the community catalog JSON API. The response shape is
// owned by a third party, so every level of nesting is checked before use.
type CatalogSource struct {
	name        string
	url         string
	playBaseURL string
	userAgent   string
	timeout     time.Duration
	maxItems    int
	httpClient  *http.Client
	logger      *slog.Logger
}

func NewCatalogSource(name string, opts CatalogOptions) *CatalogSource {
	if opts.Timeout == 0 {
		opts.Timeout = 8 * time.Second
	}
	if opts.MaxItems == 0 {
		opts.MaxItems = 20
	}
	if opts.Client == nil {
		opts.Client = &http.Client{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &CatalogSource{
		name:        name,
		url:         opts.URL,
		playBaseURL: opts.PlayBaseURL,
		userAgent:   opts.UserAgent,
		timeout:     opts.Timeout,
		maxItems:    opts.MaxItems,
		httpClient:  opts.Client,
		logger:      opts.Logger.With("source", name),
	}
}

func (c *CatalogSource) Name() string {
	return c.name
}

// Fetch returns catalog items newest-first. A response whose shape does not
// match yields no items and no error.
func (c *CatalogSource) Fetch(ctx context.Context) ([]types.CatalogItem, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, &types.FetchError{URL: c.url, Kind: types.FetchTransport, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &types.FetchError{URL: c.url, Kind: types.FetchTransport, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &types.FetchError{URL: c.url, Kind: types.FetchStatus, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCatalogBytes+1))
	if err != nil {
		return nil, &types.FetchError{URL: c.url, Kind: types.FetchTransport, Err: err}
	}
	if len(body) > maxCatalogBytes {
		return nil, &types.FetchError{URL: c.url, Kind: types.FetchTooLarge, Err: fmt.Errorf("catalog body exceeds %d bytes", maxCatalogBytes)}
	}

	items, err := c.parse(body)
	if err != nil {
		if types.IsFetchKind(err, types.FetchShape) {
			c.logger.Warn("Catalog response format was unexpected or empty", "error", err)
			return nil, nil
		}
		return nil, err
	}

	c.logger.Debug("Catalog fetched", "count", len(items))
	return items, nil
}

func (c *CatalogSource) parse(body []byte) ([]types.CatalogItem, error) {
	var root any
	if err := json.Unmarshal(body, &root); err != nil {
		return nil, &types.FetchError{URL: c.url, Kind: types.FetchDecode, Err: err}
	}

	entries, err := entryList(root)
	if err != nil {
		return nil, &types.FetchError{URL: c.url, Kind: types.FetchShape, Err: err}
	}

	items := make([]types.CatalogItem, 0, len(entries))
	for i, entry := range entries {
		if len(items) >= c.maxItems {
			break
		}

		item, err := c.convertEntry(entry)
		if err != nil {
			c.logger.Debug("Skipping catalog entry", "index", i, "error", err)
			continue
		}
		items = append(items, item)
	}

	return items, nil
}

// entryList walks {"data":{"data":[...]}}.
func entryList(root any) ([]any, error) {
	outer, ok := root.(map[string]any)
	if !ok {
		return nil, errors.New("top level is not an object")
	}
	inner, ok := outer["data"].(map[string]any)
	if !ok {
		return nil, errors.New("missing data object")
	}
	list, ok := inner["data"].([]any)
	if !ok {
		return nil, errors.New("missing data list")
	}
	if len(list) == 0 {
		return nil, errors.New("empty data list")
	}
	return list, nil
}

func (c *CatalogSource) convertEntry(entry any) (types.CatalogItem, error) {
	wrapper, ok := entry.(map[string]any)
	if !ok {
		return types.CatalogItem{}, errors.New("entry is not an object")
	}
	record, ok := wrapper["data"].(map[string]any)
	if !ok {
		return types.CatalogItem{}, errors.New("entry has no data record")
	}

	title, ok := record["game_title"].(string)
	if !ok {
		return types.CatalogItem{}, errors.New("game_title is missing or not a string")
	}
	publishID, ok := record["publish_id"].(string)
	if !ok {
		return types.CatalogItem{}, errors.New("publish_id is missing or not a string")
	}

	item, err := types.NewCatalogItem(cleanTitle(title), publishID, c.playBaseURL)
	if err != nil {
		return types.CatalogItem{}, err
	}

	item.StaticImageRef = optionalString(record, "cover_image")
	item.AnimatedImageRef = optionalString(record, "gif_url")
	item.PublishedAt = optionalTime(record, "created_at", "published_at", "updated_at")

	return item, nil
}

func optionalString(record map[string]any, key string) string {
	s, _ := record[key].(string)
	return s
}

func optionalTime(record map[string]any, keys ...string) time.Time {
	for _, key := range keys {
		s, ok := record[key].(string)
		if !ok || s == "" {
			continue
		}
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
