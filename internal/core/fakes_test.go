package core

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"gamewatch/internal/state"
	"gamewatch/internal/types"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func item(id string) types.CatalogItem {
	it, err := types.NewCatalogItem("Game "+id, id, "https://play.aicade.io/")
	if err != nil {
		panic(err)
	}
	return it
}

type fakeFetcher struct {
	mu      sync.Mutex
	items   []types.CatalogItem
	err     error
	calls   int
	entered chan struct{}
	release chan struct{}
	panics  bool
}

func (f *fakeFetcher) Name() string { return "fake" }

func (f *fakeFetcher) Fetch(ctx context.Context) ([]types.CatalogItem, error) {
	f.mu.Lock()
	f.calls++
	entered, release, panics := f.entered, f.release, f.panics
	items, err := f.items, f.err
	f.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if release != nil {
		<-release
	}
	if panics {
		panic("catalog exploded")
	}
	return items, err
}

func (f *fakeFetcher) set(items []types.CatalogItem, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items, f.err = items, err
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type download struct {
	data []byte
	err  error
}

type fakeDownloader struct {
	mu        sync.Mutex
	responses map[string]download
	calls     map[string]int
}

func newFakeDownloader() *fakeDownloader {
	return &fakeDownloader{responses: map[string]download{}, calls: map[string]int{}}
}

func (d *fakeDownloader) Download(ctx context.Context, url string) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls[url]++
	r, ok := d.responses[url]
	if !ok {
		return nil, &types.FetchError{URL: url, Kind: types.FetchStatus, StatusCode: 404}
	}
	return r.data, r.err
}

type fakePublisher struct {
	mu          sync.Mutex
	mentions    int
	mentionErr  error
	summaryErrs map[string]error
	summaries   []types.Summary
}

func (p *fakePublisher) SendMention(ctx context.Context, channelID, roleID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mentions++
	return p.mentionErr
}

func (p *fakePublisher) SendSummary(ctx context.Context, channelID string, summary types.Summary) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err, ok := p.summaryErrs[summary.URL]; ok && err != nil {
		return err
	}
	p.summaries = append(p.summaries, summary)
	return nil
}

func (p *fakePublisher) failFor(url string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.summaryErrs == nil {
		p.summaryErrs = map[string]error{}
	}
	p.summaryErrs[url] = err
}

func (p *fakePublisher) sentURLs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	urls := make([]string, 0, len(p.summaries))
	for _, s := range p.summaries {
		urls = append(urls, s.URL)
	}
	return urls
}

type fakeRecorder struct {
	mu      sync.Mutex
	entries []string
}

func (r *fakeRecorder) RecordAnnouncement(ctx context.Context, item types.CatalogItem, media types.MediaKind, announcedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, item.CanonicalURL)
	return nil
}

type memoryPersister struct {
	mu    sync.Mutex
	urls  []string
	saves int
}

func (m *memoryPersister) Load(ctx context.Context) ([]string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.urls...), m.urls != nil, nil
}

func (m *memoryPersister) Save(ctx context.Context, urls []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	m.urls = append([]string{}, urls...)
	return nil
}

type harness struct {
	fetcher    *fakeFetcher
	downloader *fakeDownloader
	publisher  *fakePublisher
	recorder   *fakeRecorder
	state      state.State
	pipeline   *Pipeline
}

func newHarness(st state.State) *harness {
	h := &harness{
		fetcher:    &fakeFetcher{},
		downloader: newFakeDownloader(),
		publisher:  &fakePublisher{},
		recorder:   &fakeRecorder{},
		state:      st,
	}

	logger := discardLogger()
	resolver := NewResolver(h.downloader, ResolverConfig{
		PlaceholderURL: "https://play.aicade.io/logo.png",
		CacheTTL:       time.Minute,
		Logger:         logger,
	})
	dispatcher := NewDispatcher(h.publisher, st, DispatcherConfig{
		ChannelID: "1",
		RoleID:    "2",
		Color:     3447003,
		Footer:    "Aicade Game Notifier Bot",
		Recorder:  h.recorder,
		Logger:    logger,
	})
	h.pipeline = NewPipeline(PipelineConfig{
		Fetcher:    h.fetcher,
		Resolver:   resolver,
		Dispatcher: dispatcher,
		State:      st,
		Logger:     logger,
	})
	return h
}
