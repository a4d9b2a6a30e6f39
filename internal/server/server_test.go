package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"gamewatch/internal/core"
	"gamewatch/internal/storage"
	"gamewatch/internal/types"
)

type fakeStatus struct {
	status core.BotStatus
}

func (f fakeStatus) Status() core.BotStatus { return f.status }

type fakeHistory struct {
	entries []storage.HistoryEntry
	lists   int
}

func (f *fakeHistory) RecordAnnouncement(ctx context.Context, item types.CatalogItem, media types.MediaKind, at time.Time) error {
	return nil
}

func (f *fakeHistory) ListRecent(ctx context.Context, limit int) ([]storage.HistoryEntry, error) {
	f.lists++
	return f.entries, nil
}

func (f *fakeHistory) Count(ctx context.Context) (int, error) { return len(f.entries), nil }

func (f *fakeHistory) DeleteOlderThan(ctx context.Context, age time.Duration) error { return nil }

func newTestServer(t *testing.T, history storage.HistoryStore, gatherer prometheus.Gatherer) *httptest.Server {
	t.Helper()
	status := fakeStatus{status: core.BotStatus{
		Running: true,
		LastRun: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		LastReport: core.Report{
			CycleID: "cycle-1",
			Trigger: core.TriggerTimer,
			New:     1,
			Sent:    1,
		},
	}}
	s := New("gamewatch", Config{Port: "0"}, status, history, gatherer, slog.New(slog.NewTextHandler(io.Discard, nil)))
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, string(body)
}

func TestLiveness(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	resp, body := get(t, srv.URL+"/")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body != "Bot is alive and running." {
		t.Errorf("body = %q", body)
	}
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	resp, body := get(t, srv.URL+"/health")
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var h healthResponse
	if err := json.Unmarshal([]byte(body), &h); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if h.Status != "ok" || h.Scheduler != "running" {
		t.Errorf("health = %+v", h)
	}
	if h.LastCycle == nil || h.LastCycle.ID != "cycle-1" || h.LastCycle.Outcome != "announced 1 new game(s)" {
		t.Errorf("last cycle = %+v", h.LastCycle)
	}
}

func TestOptionalRoutesDisabled(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	for _, path := range []string{"/metrics", "/feed.rss"} {
		resp, _ := get(t, srv.URL+path)
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("%s status = %d, want 404", path, resp.StatusCode)
		}
	}
}

func TestMetricsRoute(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "gamewatch_test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	srv := newTestServer(t, nil, reg)
	_, body := get(t, srv.URL+"/metrics")
	if !strings.Contains(body, "gamewatch_test_total 1") {
		t.Errorf("metrics body missing counter:\n%s", body)
	}
}

func TestFeeds(t *testing.T) {
	history := &fakeHistory{entries: []storage.HistoryEntry{
		{
			URL:           "https://play.aicade.io/abc",
			Title:         "Space Rocks",
			AnimatedImage: "null",
			StaticImage:   "https://cdn.test/c.png",
			Media:         "reference_url",
			AnnouncedAt:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		},
	}}
	srv := newTestServer(t, history, nil)

	tests := []struct {
		path        string
		contentType string
		contains    string
	}{
		{path: "/feed.rss", contentType: "application/rss+xml; charset=utf-8", contains: "<title>Space Rocks</title>"},
		{path: "/feed.atom", contentType: "application/atom+xml; charset=utf-8", contains: "Space Rocks"},
		{path: "/feed.json", contentType: "application/feed+json; charset=utf-8", contains: `"title": "Space Rocks"`},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, body := get(t, srv.URL+tt.path)
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status = %d", resp.StatusCode)
			}
			if ct := resp.Header.Get("Content-Type"); ct != tt.contentType {
				t.Errorf("Content-Type = %q", ct)
			}
			if !strings.Contains(body, tt.contains) {
				t.Errorf("body missing %q:\n%s", tt.contains, body)
			}
		})
	}

	get(t, srv.URL+"/feed.rss")
	if history.lists != 3 {
		t.Errorf("history listed %d times, want 3 (one per feed type, then cached)", history.lists)
	}
}

func TestFeedImage(t *testing.T) {
	tests := []struct {
		entry storage.HistoryEntry
		want  string
	}{
		{entry: storage.HistoryEntry{AnimatedImage: "https://cdn.test/a.gif", StaticImage: "https://cdn.test/c.png"}, want: "https://cdn.test/a.gif"},
		{entry: storage.HistoryEntry{AnimatedImage: "null", StaticImage: "https://cdn.test/c.png"}, want: "https://cdn.test/c.png"},
		{entry: storage.HistoryEntry{StaticImage: "data:image/png;base64,AA"}, want: ""},
	}
	for _, tt := range tests {
		if got := feedImage(tt.entry); got != tt.want {
			t.Errorf("feedImage(%+v) = %q, want %q", tt.entry, got, tt.want)
		}
	}
}
