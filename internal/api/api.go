// Package api provides the HTTP REST API server.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/portsense/portsense/internal/alerting"
	"github.com/portsense/portsense/internal/hub"
	"github.com/portsense/portsense/internal/monitor"
	"github.com/portsense/portsense/internal/storage"
)

// Config contains HTTP API server configuration.
type Config struct {
	Address           string
	HeartbeatInterval time.Duration // SSE heartbeat cadence
	HistoryLimit      int           // Max history records per request
	AlertLimit        int           // Default alert list page size
	Verbose           bool
}

// SetDefaults applies default values for missing configuration.
func (c *Config) SetDefaults() {
	if c.Address == "" {
		c.Address = ":8080"
	}
	if c.HeartbeatInterval == 0 {
		c.HeartbeatInterval = 30 * time.Second
	}
	if c.HistoryLimit == 0 {
		c.HistoryLimit = 100
	}
	if c.AlertLimit == 0 {
		c.AlertLimit = 50
	}
}

// Server is the HTTP API server.
type Server struct {
	config  *Config
	storage storage.Storage
	engine  *alerting.Engine
	runner  *monitor.Runner
	hub     *hub.Hub
	log     zerolog.Logger
	server  *http.Server
	pinger  Pinger
}

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// New creates a new API server.
func New(cfg *Config, store storage.Storage, engine *alerting.Engine, runner *monitor.Runner, h *hub.Hub, log zerolog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if store == nil {
		return nil, fmt.Errorf("storage is required")
	}
	if engine == nil {
		return nil, fmt.Errorf("rule engine is required")
	}

	cfg.SetDefaults()

	s := &Server{
		config:  cfg,
		storage: store,
		engine:  engine,
		runner:  runner,
		hub:     h,
		log:     log.With().Str("component", "api").Logger(),
	}

	router := s.setupRouter()

	s.server = &http.Server{
		Addr:        cfg.Address,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// WriteTimeout is intentionally 0 (disabled) because the server
		// carries long-lived SSE streams. Non-streaming handlers bound
		// their own work with context deadlines.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// SetPinger registers a database pinger for the health endpoint.
func (s *Server) SetPinger(p Pinger) {
	s.pinger = p
}

// Run starts the HTTP server and blocks until context is canceled.
func (s *Server) Run(ctx context.Context) error {
	errChan := make(chan error, 1)

	go func() {
		s.log.Info().Str("addr", s.config.Address).Msg("HTTP API listening")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.log.Info().Msg("shutting down HTTP API server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errChan:
		return err
	}
}

// Address returns the configured listen address.
func (s *Server) Address() string {
	return s.config.Address
}
