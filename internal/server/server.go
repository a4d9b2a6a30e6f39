package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gamewatch/internal/cache"
	"gamewatch/internal/core"
	"gamewatch/internal/storage"
)

const livenessText = "Bot is alive and running."

// StatusProvider reports scheduler state for /health.
type StatusProvider interface {
	Status() core.BotStatus
}

type Config struct {
	Port     string
	FeedSize int
	FeedTTL  time.Duration
}

type Server struct {
	name     string
	config   Config
	status   StatusProvider
	history  storage.HistoryStore
	gatherer prometheus.Gatherer
	feeds    *cache.Cache[CacheKey, string]
	logger   *slog.Logger
	server   *http.Server
	started  time.Time
}

// New builds the HTTP responder. history and gatherer may be nil, which
// disables the feed and metrics routes.
func New(name string, config Config, status StatusProvider, history storage.HistoryStore, gatherer prometheus.Gatherer, logger *slog.Logger) *Server {
	if config.Port == "" {
		config.Port = "8080"
	}
	if config.FeedSize == 0 {
		config.FeedSize = 50
	}
	if config.FeedTTL == 0 {
		config.FeedTTL = time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Server{
		name:     name,
		config:   config,
		status:   status,
		history:  history,
		gatherer: gatherer,
		feeds:    NewCache(cache.CacheConfig{TTL: config.FeedTTL, Logger: logger}),
		logger:   logger.With("component", "server"),
		started:  time.Now(),
	}
}

func (s *Server) Name() string {
	return "server"
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Get("/", s.handleLiveness)
	r.Head("/", s.handleLiveness)
	r.Get("/health", s.handleHealth)

	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	if s.history != nil {
		r.Get("/feed.rss", s.handleFeed(TypeRSS))
		r.Get("/feed.atom", s.handleFeed(TypeAtom))
		r.Get("/feed.json", s.handleFeed(TypeJSON))
	}

	return r
}

// Start binds the port and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", ":"+s.config.Port)
	if err != nil {
		return err
	}

	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		s.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error", "error", err)
		}
	}()

	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("HTTP server shutdown error", "error", err)
		return err
	}
	return nil
}

func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(livenessText))
}

type healthResponse struct {
	Status    string     `json:"status"`
	Name      string     `json:"name"`
	Time      string     `json:"time"`
	Uptime    string     `json:"uptime"`
	Scheduler string     `json:"scheduler"`
	LastCycle *lastCycle `json:"last_cycle,omitempty"`
}

type lastCycle struct {
	ID       string `json:"id"`
	Trigger  string `json:"trigger"`
	At       string `json:"at"`
	Outcome  string `json:"outcome"`
	Sent     int    `json:"sent"`
	Failed   int    `json:"failed"`
	Duration string `json:"duration"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:    "ok",
		Name:      s.name,
		Time:      time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(s.started).Round(time.Second).String(),
		Scheduler: "stopped",
	}

	if s.status != nil {
		st := s.status.Status()
		if st.Running {
			resp.Scheduler = "running"
		}
		if !st.LastRun.IsZero() {
			resp.LastCycle = &lastCycle{
				ID:       st.LastReport.CycleID,
				Trigger:  st.LastReport.Trigger,
				At:       st.LastRun.UTC().Format(time.RFC3339),
				Outcome:  st.LastReport.String(),
				Sent:     st.LastReport.Sent,
				Failed:   st.LastReport.Failed,
				Duration: st.LastReport.Duration.String(),
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Warn("Failed to write health response", "error", err)
	}
}
