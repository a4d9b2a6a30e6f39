package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"gamewatch/internal/state"
	"gamewatch/internal/types"

	"github.com/google/uuid"
)

// Report summarizes one check cycle.
type Report struct {
	CycleID  string
	Trigger  string
	Fetched  int
	New      int
	Sent     int
	Failed   int
	FetchErr error
	FlushErr error
	Duration time.Duration
}

func (r Report) String() string {
	switch {
	case r.FetchErr != nil:
		return "catalog unavailable, nothing to do"
	case r.New == 0:
		return "no new game found"
	case r.Failed > 0:
		return fmt.Sprintf("announced %d of %d new games, %d will be retried", r.Sent, r.New, r.Failed)
	default:
		return fmt.Sprintf("announced %d new game(s)", r.Sent)
	}
}

type PipelineConfig struct {
	Fetcher    Fetcher
	Resolver   *Resolver
	Dispatcher *Dispatcher
	State      state.State
	Logger     *slog.Logger
	Hooks      Hooks
}

// Pipeline runs fetch, detect, resolve and dispatch for one cycle. Callers
// must serialize RunCycle and Seed; the Bot gate does this.
type Pipeline struct {
	fetcher    Fetcher
	resolver   *Resolver
	dispatcher *Dispatcher
	state      state.State
	logger     *slog.Logger
	hooks      Hooks
}

func NewPipeline(config PipelineConfig) *Pipeline {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &Pipeline{
		fetcher:    config.Fetcher,
		resolver:   config.Resolver,
		dispatcher: config.Dispatcher,
		state:      config.State,
		logger:     config.Logger,
		hooks:      config.Hooks,
	}
}

func (p *Pipeline) State() state.State {
	return p.state
}

// RunCycle performs one check. Fetch and publish failures are reported in
// the Report, not returned; the error is non-nil only for a recovered panic.
func (p *Pipeline) RunCycle(ctx context.Context, trigger string) (report Report, err error) {
	start := time.Now()
	report = Report{CycleID: uuid.NewString(), Trigger: trigger}
	logger := p.logger.With("cycle_id", report.CycleID, "trigger", trigger)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Cycle panicked", "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("cycle %s panicked: %v", report.CycleID, r)
		}
		report.Duration = time.Since(start)
		p.hooks.cycle(trigger, report)
	}()

	logger.Info("Running check for new games", "source", p.fetcher.Name())

	fetched, fetchErr := p.fetcher.Fetch(ctx)
	if fetchErr != nil {
		report.FetchErr = fetchErr
		var fe *types.FetchError
		if errors.As(fetchErr, &fe) {
			p.hooks.fetchError(fe.Kind)
		} else {
			p.hooks.fetchError(types.FetchTransport)
		}
		logger.Warn("Could not fetch catalog", "error", fetchErr)
		return report, nil
	}
	report.Fetched = len(fetched)

	fresh := Detect(fetched, p.state)
	report.New = len(fresh)
	if len(fresh) == 0 {
		logger.Info("No new game found", "fetched", len(fetched))
		return report, nil
	}

	logger.Info("Found new games", "count", len(fresh))

	for _, item := range fresh {
		decision := p.resolver.Resolve(ctx, item)
		result, _ := p.dispatcher.Dispatch(ctx, item, decision)
		if result == Sent {
			report.Sent++
		} else {
			report.Failed++
		}
	}

	if err := p.state.Flush(ctx); err != nil {
		report.FlushErr = err
		p.hooks.flushError()
		logger.Error("Failed to persist announcement state", "error", err)
	}

	logger.Info("Cycle complete", "sent", report.Sent, "failed", report.Failed, "duration", time.Since(start))
	return report, nil
}

// Seed marks what is currently live as already announced so a fresh process
// does not repost it. In cursor mode only the newest item is committed.
func (p *Pipeline) Seed(ctx context.Context) error {
	fetched, err := p.fetcher.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("seed fetch: %w", err)
	}
	if len(fetched) == 0 {
		p.logger.Warn("Seed fetch returned no items")
		return nil
	}

	if p.state.Mode() == state.ModeCursor {
		p.state.Commit(fetched[0].CanonicalURL)
		p.logger.Info("Initial game set", "title", fetched[0].Title, "item_url", fetched[0].CanonicalURL)
		return nil
	}

	for i := len(fetched) - 1; i >= 0; i-- {
		p.state.Commit(fetched[i].CanonicalURL)
	}
	if err := p.state.Flush(ctx); err != nil {
		return fmt.Errorf("seed flush: %w", err)
	}

	p.logger.Info("Seeded announcement state", "count", len(fetched))
	return nil
}

// Flush persists pending state outside a cycle, used at shutdown.
func (p *Pipeline) Flush(ctx context.Context) error {
	return p.state.Flush(ctx)
}
