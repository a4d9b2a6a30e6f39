package core

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"gamewatch/internal/state"
	"gamewatch/internal/types"

	"github.com/google/go-cmp/cmp"
)

func TestDispatchMentionFailureIsIgnored(t *testing.T) {
	c := state.NewCursor()
	h := newHarness(c)
	h.publisher.mentionErr = &types.PublishError{Op: "mention", Kind: types.PublishPermissionDenied, Err: errors.New("403")}

	result, err := h.pipeline.dispatcher.Dispatch(context.Background(), item("a"), types.Placeholder(placeholder))
	if err != nil || result != Sent {
		t.Fatalf("Dispatch = %v, %v; want sent", result, err)
	}
	if !c.IsAnnounced("https://play.aicade.io/a") {
		t.Error("sent item was not committed")
	}
	if diff := cmp.Diff([]string{"https://play.aicade.io/a"}, h.recorder.entries); diff != "" {
		t.Errorf("history mismatch (-want +got):\n%s", diff)
	}
}

func TestDispatchSummaryFailureSuppresses(t *testing.T) {
	c := state.NewCursor()
	h := newHarness(c)
	h.publisher.failFor("https://play.aicade.io/a", &types.PublishError{Op: "summary", Kind: types.PublishPermissionDenied, Err: errors.New("403")})

	result, err := h.pipeline.dispatcher.Dispatch(context.Background(), item("a"), types.Placeholder(placeholder))
	if result != Suppressed {
		t.Fatalf("result = %v, want suppressed", result)
	}
	if types.PublishKind(err) != types.PublishPermissionDenied {
		t.Errorf("PublishKind = %v", types.PublishKind(err))
	}
	if c.IsAnnounced("https://play.aicade.io/a") {
		t.Error("failed item was committed")
	}
	if len(h.recorder.entries) != 0 {
		t.Error("failed item was recorded in history")
	}
}

func TestBuildSummary(t *testing.T) {
	it := item("abc")
	it.Title = "Space Rocks"

	got := BuildSummary(it, types.ReferenceURL("https://cdn.test/c.png"), 3447003, "Aicade Game Notifier Bot")
	want := types.Summary{
		Title:       "🎮 New Game Alert: Space Rocks",
		URL:         "https://play.aicade.io/abc",
		Description: "A new game, **Space Rocks**, is now available!",
		Footer:      "Aicade Game Notifier Bot",
		Color:       3447003,
		Media:       types.ReferenceURL("https://cdn.test/c.png"),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("BuildSummary mismatch (-want +got):\n%s", diff)
	}
}

func TestRunCycleIdempotent(t *testing.T) {
	h := newHarness(state.NewCursor())
	h.fetcher.set([]types.CatalogItem{item("a")}, nil)
	ctx := context.Background()

	first, err := h.pipeline.RunCycle(ctx, TriggerTimer)
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	second, err := h.pipeline.RunCycle(ctx, TriggerTimer)
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}

	if first.Sent != 1 || second.Sent != 0 {
		t.Errorf("sent %d then %d, want 1 then 0", first.Sent, second.Sent)
	}
	if len(h.publisher.summaries) != 1 {
		t.Errorf("summaries = %d, want 1", len(h.publisher.summaries))
	}
	if first.CycleID == "" || first.CycleID == second.CycleID {
		t.Errorf("cycle ids not unique: %q %q", first.CycleID, second.CycleID)
	}
}

func TestRunCycleRetriesAfterFailure(t *testing.T) {
	h := newHarness(state.NewCursor())
	h.fetcher.set([]types.CatalogItem{item("a")}, nil)
	h.publisher.failFor("https://play.aicade.io/a", &types.PublishError{Op: "summary", Kind: types.PublishTransport, Err: errors.New("timeout")})
	ctx := context.Background()

	report, _ := h.pipeline.RunCycle(ctx, TriggerTimer)
	if report.Failed != 1 || report.Sent != 0 {
		t.Fatalf("first cycle report = %+v", report)
	}

	h.publisher.failFor("https://play.aicade.io/a", nil)
	report, _ = h.pipeline.RunCycle(ctx, TriggerTimer)
	if report.Sent != 1 {
		t.Fatalf("retry cycle report = %+v", report)
	}
	if diff := cmp.Diff([]string{"https://play.aicade.io/a"}, h.publisher.sentURLs()); diff != "" {
		t.Errorf("sent mismatch (-want +got):\n%s", diff)
	}
}

func TestRunCycleOrdersOldestFirst(t *testing.T) {
	p := &memoryPersister{}
	s := state.NewSeenSet(p, discardLogger())
	h := newHarness(s)
	h.fetcher.set([]types.CatalogItem{item("C"), item("B"), item("A")}, nil)

	report, err := h.pipeline.RunCycle(context.Background(), TriggerTimer)
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if report.Sent != 3 {
		t.Fatalf("report = %+v", report)
	}

	want := []string{
		"https://play.aicade.io/A",
		"https://play.aicade.io/B",
		"https://play.aicade.io/C",
	}
	if diff := cmp.Diff(want, h.publisher.sentURLs()); diff != "" {
		t.Errorf("send order (-want +got):\n%s", diff)
	}
	if p.saves != 1 {
		t.Errorf("state saved %d times, want once per cycle", p.saves)
	}
}

func TestRunCycleFailedItemDoesNotBlockOthers(t *testing.T) {
	s := state.NewSeenSet(&memoryPersister{}, discardLogger())
	h := newHarness(s)
	h.fetcher.set([]types.CatalogItem{item("C"), item("B"), item("A")}, nil)
	h.publisher.failFor("https://play.aicade.io/B", errors.New("boom"))

	report, _ := h.pipeline.RunCycle(context.Background(), TriggerTimer)
	if report.Sent != 2 || report.Failed != 1 {
		t.Fatalf("report = %+v", report)
	}
	if s.IsAnnounced("https://play.aicade.io/B") {
		t.Error("failed item committed")
	}

	h.publisher.failFor("https://play.aicade.io/B", nil)
	report, _ = h.pipeline.RunCycle(context.Background(), TriggerTimer)
	if report.Sent != 1 {
		t.Fatalf("retry report = %+v", report)
	}
}

func TestRunCycleAtMostOnceAcrossRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "announced.json")
	ctx := context.Background()

	boot := func() *harness {
		p, err := state.NewFilePersister(path)
		if err != nil {
			t.Fatal(err)
		}
		s := state.NewSeenSet(p, discardLogger())
		if err := s.Load(ctx); err != nil {
			t.Fatalf("Load: %v", err)
		}
		h := newHarness(s)
		h.fetcher.set([]types.CatalogItem{item("b"), item("a")}, nil)
		return h
	}

	first := boot()
	if report, _ := first.pipeline.RunCycle(ctx, TriggerTimer); report.Sent != 2 {
		t.Fatalf("first process report = %+v", report)
	}

	second := boot()
	if report, _ := second.pipeline.RunCycle(ctx, TriggerTimer); report.Sent != 0 {
		t.Fatalf("restarted process re-announced: %+v", report)
	}
}

func TestRunCycleFetchFailures(t *testing.T) {
	tests := []struct {
		name  string
		items []types.CatalogItem
		err   error
	}{
		{name: "malformed catalog yields no items", items: nil, err: nil},
		{name: "transport error", err: &types.FetchError{Kind: types.FetchTransport, Err: errors.New("dial")}},
		{name: "status error", err: &types.FetchError{Kind: types.FetchStatus, StatusCode: 500}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(state.NewCursor())
			h.fetcher.set(tt.items, tt.err)

			report, err := h.pipeline.RunCycle(context.Background(), TriggerTimer)
			if err != nil {
				t.Fatalf("RunCycle returned %v", err)
			}
			if report.New != 0 || len(h.publisher.summaries) != 0 {
				t.Errorf("report = %+v", report)
			}
			if (report.FetchErr != nil) != (tt.err != nil) {
				t.Errorf("FetchErr = %v, want %v", report.FetchErr, tt.err)
			}
		})
	}
}

func TestRunCycleRecoversPanic(t *testing.T) {
	h := newHarness(state.NewCursor())
	h.fetcher.panics = true

	_, err := h.pipeline.RunCycle(context.Background(), TriggerTimer)
	if err == nil {
		t.Fatal("expected error from recovered panic")
	}
}

func TestSeedCursor(t *testing.T) {
	c := state.NewCursor()
	h := newHarness(c)
	h.fetcher.set([]types.CatalogItem{item("b"), item("a")}, nil)

	if err := h.pipeline.Seed(context.Background()); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if c.Last() != "https://play.aicade.io/b" {
		t.Errorf("cursor = %q", c.Last())
	}

	report, _ := h.pipeline.RunCycle(context.Background(), TriggerTimer)
	if report.Sent != 0 {
		t.Errorf("seeded item was announced: %+v", report)
	}
}

func TestSeedSeenSet(t *testing.T) {
	p := &memoryPersister{}
	s := state.NewSeenSet(p, discardLogger())
	h := newHarness(s)
	h.fetcher.set([]types.CatalogItem{item("b"), item("a")}, nil)

	if err := h.pipeline.Seed(context.Background()); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	want := []string{"https://play.aicade.io/a", "https://play.aicade.io/b"}
	if diff := cmp.Diff(want, p.urls); diff != "" {
		t.Errorf("persisted seed (-want +got):\n%s", diff)
	}
}

func TestReportString(t *testing.T) {
	tests := []struct {
		report Report
		want   string
	}{
		{report: Report{FetchErr: errors.New("x")}, want: "catalog unavailable, nothing to do"},
		{report: Report{}, want: "no new game found"},
		{report: Report{New: 2, Sent: 2}, want: "announced 2 new game(s)"},
		{report: Report{New: 3, Sent: 2, Failed: 1}, want: "announced 2 of 3 new games, 1 will be retried"},
	}
	for _, tt := range tests {
		if got := tt.report.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
