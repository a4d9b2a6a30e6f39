package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"gamewatch/internal/core"
	"gamewatch/internal/types"
)

// Metrics groups the Prometheus instruments of the announcement engine.
type Metrics struct {
	CyclesTotal        *prometheus.CounterVec
	CyclesSkipped      *prometheus.CounterVec
	CycleDuration      prometheus.Histogram
	FetchErrors        *prometheus.CounterVec
	Announcements      *prometheus.CounterVec
	MediaDecisions     *prometheus.CounterVec
	StateFlushFailures prometheus.Counter
	LastSuccess        prometheus.Gauge
}

// New registers all instruments with reg. Tests pass a fresh registry.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CyclesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gamewatch_cycles_total",
			Help: "Check cycles run, by trigger.",
		}, []string{"trigger"}),

		CyclesSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gamewatch_cycles_skipped_total",
			Help: "Triggers dropped because a cycle was already running.",
		}, []string{"trigger"}),

		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "gamewatch_cycle_duration_seconds",
			Help:    "Wall time of a check cycle.",
			Buckets: prometheus.DefBuckets,
		}),

		FetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gamewatch_fetch_errors_total",
			Help: "Catalog fetch failures, by kind.",
		}, []string{"kind"}),

		Announcements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gamewatch_announcements_total",
			Help: "Announcement attempts, by result and failure kind.",
		}, []string{"result", "kind"}),

		MediaDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gamewatch_media_decisions_total",
			Help: "Media presentations chosen, by kind.",
		}, []string{"kind", "cached"}),

		StateFlushFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gamewatch_state_flush_failures_total",
			Help: "Failed writes of the announcement state file.",
		}),

		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gamewatch_last_successful_cycle_timestamp_seconds",
			Help: "Unix time of the last cycle that fetched the catalog.",
		}),
	}

	reg.MustRegister(
		m.CyclesTotal,
		m.CyclesSkipped,
		m.CycleDuration,
		m.FetchErrors,
		m.Announcements,
		m.MediaDecisions,
		m.StateFlushFailures,
		m.LastSuccess,
	)

	return m
}

// CoreHooks returns the observers the engine calls.
func (m *Metrics) CoreHooks() core.Hooks {
	return core.Hooks{
		OnCycle: func(trigger string, report core.Report) {
			m.CyclesTotal.WithLabelValues(trigger).Inc()
			m.CycleDuration.Observe(report.Duration.Seconds())
			if report.FetchErr == nil {
				m.LastSuccess.SetToCurrentTime()
			}
		},
		OnSkipped: func(trigger string) {
			m.CyclesSkipped.WithLabelValues(trigger).Inc()
		},
		OnFetchError: func(kind types.FetchErrorKind) {
			m.FetchErrors.WithLabelValues(string(kind)).Inc()
		},
		OnMedia: func(kind types.MediaKind, cached bool) {
			c := "false"
			if cached {
				c = "true"
			}
			m.MediaDecisions.WithLabelValues(kind.String(), c).Inc()
		},
		OnDispatch: func(result core.Result, err error) {
			kind := ""
			if err != nil {
				kind = string(types.PublishKind(err))
			}
			m.Announcements.WithLabelValues(result.String(), kind).Inc()
		},
		OnFlushError: func() {
			m.StateFlushFailures.Inc()
		},
	}
}
