package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/semaphore"
)

const (
	TriggerStartup = "startup"
	TriggerTimer   = "timer"
	TriggerManual  = "manual"
	TriggerRunOnce = "run_once"
)

var (
	ErrCycleInProgress = errors.New("check cycle already in progress")
	ErrLeaseHeld       = errors.New("check cycle is running on another instance")
	ErrNotStarted      = errors.New("scheduler is still starting")
)

type BotConfig struct {
	Name     string
	Pipeline *Pipeline
	Interval time.Duration
	RunOnce  bool
	// Seed reports whether start-up commits what is live without announcing
	// it. It is consulted once, after Ready.
	Seed func() bool
	// Ready is closed when the publisher can send. Nil means ready now.
	Ready <-chan struct{}
	Lease Lease
	// Notify reports service state to the init system. Defaults to sd_notify.
	Notify func(state string) (bool, error)
	Logger *slog.Logger
	Hooks  Hooks
}

type BotStatus struct {
	Running    bool
	LastRun    time.Time
	LastReport Report
}

// Bot schedules check cycles. Timer ticks and manual triggers share one gate;
// a trigger that finds the gate busy is dropped, never queued.
type Bot struct {
	name     string
	pipeline *Pipeline
	interval time.Duration
	runOnce  bool
	seed     func() bool
	ready    <-chan struct{}
	lease    Lease
	notify   func(state string) (bool, error)
	logger   *slog.Logger
	hooks    Hooks
	gate     *semaphore.Weighted

	mu         sync.RWMutex
	running    bool
	started    bool
	lastRun    time.Time
	lastReport Report
}

func NewBot(config BotConfig) *Bot {
	if config.Interval == 0 {
		config.Interval = 10 * time.Minute
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Notify == nil {
		config.Notify = func(state string) (bool, error) {
			return daemon.SdNotify(false, state)
		}
	}

	return &Bot{
		name:     config.Name,
		pipeline: config.Pipeline,
		interval: config.Interval,
		runOnce:  config.RunOnce,
		seed:     config.Seed,
		ready:    config.Ready,
		lease:    config.Lease,
		notify:   config.Notify,
		logger:   config.Logger.With("bot", config.Name),
		hooks:    config.Hooks,
		gate:     semaphore.NewWeighted(1),
	}
}

func (b *Bot) Name() string {
	return b.name
}

// Start blocks until ctx is cancelled, or until the single cycle finishes in
// run-once mode. On return no cycle is running and state has been flushed.
func (b *Bot) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return fmt.Errorf("bot already running")
	}
	b.running = true
	b.mu.Unlock()
	defer b.markStopped()

	if err := b.waitReady(ctx); err != nil {
		return err
	}
	b.sdNotify(daemon.SdNotifyReady)

	if b.seed != nil && b.seed() {
		b.runSeed(ctx)
	}

	b.mu.Lock()
	b.started = true
	b.mu.Unlock()

	if b.runOnce {
		_, err := b.TryRun(ctx, TriggerRunOnce)
		b.shutdown()
		return err
	}

	if _, err := b.TryRun(ctx, TriggerStartup); err != nil {
		b.logger.Warn("Start-up check did not run", "error", err)
	}

	c := cron.New(cron.WithLogger(cronLogger{logger: b.logger}))
	c.Schedule(cron.Every(b.interval), cron.FuncJob(func() {
		if _, err := b.TryRun(ctx, TriggerTimer); err != nil {
			b.logger.Debug("Scheduled check did not run", "error", err)
		}
	}))
	c.Start()
	b.logger.Info("Scheduler started", "interval", b.interval)

	<-ctx.Done()

	b.sdNotify(daemon.SdNotifyStopping)
	<-c.Stop().Done()
	b.shutdown()

	return nil
}

// TryRun runs one cycle if none is running. Cycles run on a context that is
// not cancelled with ctx so shutdown never interrupts a publish. Manual
// triggers are refused until Start has finished seeding.
func (b *Bot) TryRun(ctx context.Context, trigger string) (Report, error) {
	if !b.gate.TryAcquire(1) {
		b.hooks.skipped(trigger)
		b.logger.Info("Check skipped, a cycle is already running", "trigger", trigger)
		return Report{Trigger: trigger}, ErrCycleInProgress
	}
	defer b.gate.Release(1)

	if trigger == TriggerManual && !b.isStarted() {
		b.hooks.skipped(trigger)
		b.logger.Info("Check skipped, scheduler is still starting", "trigger", trigger)
		return Report{Trigger: trigger}, ErrNotStarted
	}

	runCtx := context.WithoutCancel(ctx)

	if b.lease != nil {
		release, acquired, err := b.lease.Acquire(runCtx)
		if err != nil {
			b.logger.Warn("Could not acquire cycle lease", "trigger", trigger, "error", err)
			return Report{Trigger: trigger}, fmt.Errorf("acquire cycle lease: %w", err)
		}
		if !acquired {
			b.hooks.skipped(trigger)
			b.logger.Info("Check skipped, lease held elsewhere", "trigger", trigger)
			return Report{Trigger: trigger}, ErrLeaseHeld
		}
		defer func() {
			if err := release(runCtx); err != nil {
				b.logger.Warn("Could not release cycle lease", "error", err)
			}
		}()
	}

	report, err := b.pipeline.RunCycle(runCtx, trigger)

	b.mu.Lock()
	b.lastRun = time.Now()
	b.lastReport = report
	b.mu.Unlock()

	return report, err
}

func (b *Bot) Status() BotStatus {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return BotStatus{
		Running:    b.running,
		LastRun:    b.lastRun,
		LastReport: b.lastReport,
	}
}

func (b *Bot) IsRunning() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.running
}

func (b *Bot) waitReady(ctx context.Context) error {
	if b.ready == nil {
		return nil
	}

	b.logger.Info("Waiting for publisher to become ready")
	select {
	case <-b.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Bot) runSeed(ctx context.Context) {
	if err := b.gate.Acquire(ctx, 1); err != nil {
		return
	}
	defer b.gate.Release(1)

	if err := b.pipeline.Seed(context.WithoutCancel(ctx)); err != nil {
		b.logger.Warn("Could not seed announcement state", "error", err)
	}
}

// shutdown waits for an in-flight cycle, then flushes state.
func (b *Bot) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := b.gate.Acquire(ctx, 1); err != nil {
		b.logger.Error("Timed out waiting for running cycle", "error", err)
		return
	}
	defer b.gate.Release(1)

	if err := b.pipeline.Flush(ctx); err != nil {
		b.logger.Error("Failed to persist announcement state on shutdown", "error", err)
	}
	b.logger.Info("Scheduler stopped")
}

func (b *Bot) sdNotify(state string) {
	sent, err := b.notify(state)
	if err != nil {
		b.logger.Warn("sd_notify failed", "state", state, "error", err)
		return
	}
	if sent {
		b.logger.Debug("sd_notify sent", "state", state)
	}
}

func (b *Bot) isStarted() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.started
}

func (b *Bot) markStopped() {
	b.mu.Lock()
	b.running = false
	b.started = false
	b.mu.Unlock()
}

type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
