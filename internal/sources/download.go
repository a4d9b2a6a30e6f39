package sources

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"gamewatch/internal/types"
)

// Downloader fetches media bodies with a per-call timeout and a size cap.
type Downloader struct {
	httpClient *http.Client
	userAgent  string
	timeout    time.Duration
	maxBytes   int64
}

func NewDownloader(client *http.Client, userAgent string, timeout time.Duration, maxBytes int64) *Downloader {
	if client == nil {
		client = &http.Client{}
	}
	if timeout == 0 {
		timeout = 8 * time.Second
	}
	if maxBytes <= 0 {
		maxBytes = 8 << 20
	}

	return &Downloader{
		httpClient: client,
		userAgent:  userAgent,
		timeout:    timeout,
		maxBytes:   maxBytes,
	}
}

// Download returns the full body of url. Bodies larger than the cap fail
// with a FetchTooLarge error.
func (d *Downloader) Download(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &types.FetchError{URL: url, Kind: types.FetchTransport, Err: err}
	}
	if d.userAgent != "" {
		req.Header.Set("User-Agent", d.userAgent)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, &types.FetchError{URL: url, Kind: types.FetchTransport, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &types.FetchError{URL: url, Kind: types.FetchStatus, StatusCode: resp.StatusCode}
	}

	if resp.ContentLength > d.maxBytes {
		return nil, &types.FetchError{URL: url, Kind: types.FetchTooLarge, Err: fmt.Errorf("content length %d exceeds %d bytes", resp.ContentLength, d.maxBytes)}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, d.maxBytes+1))
	if err != nil {
		return nil, &types.FetchError{URL: url, Kind: types.FetchTransport, Err: err}
	}
	if int64(len(data)) > d.maxBytes {
		return nil, &types.FetchError{URL: url, Kind: types.FetchTooLarge, Err: fmt.Errorf("body exceeds %d bytes", d.maxBytes)}
	}

	return data, nil
}
