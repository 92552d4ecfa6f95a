package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aerolab/tunnelcore/internal/firmware"
	"github.com/aerolab/tunnelcore/internal/hub"
	"github.com/aerolab/tunnelcore/internal/infrastructure/config"
	"github.com/aerolab/tunnelcore/internal/infrastructure/influxdb"
	"github.com/aerolab/tunnelcore/internal/infrastructure/logging"
	"github.com/aerolab/tunnelcore/internal/infrastructure/mqtt"
	"github.com/aerolab/tunnelcore/internal/recorder"
	"github.com/aerolab/tunnelcore/internal/state"
	"github.com/aerolab/tunnelcore/internal/storage"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
// TSDB and Relay are optional; everything else is required.
type Deps struct {
	Config   config.APIConfig
	WS       config.WebSocketConfig
	Logger   *logging.Logger
	Registry *hub.Registry
	Store    *state.Store
	Verifier hub.TokenVerifier
	Firmware *firmware.Negotiator
	Models   storage.ModelRepository
	Tests    storage.TestRepository
	Recorder *recorder.Recorder
	TSDB     *influxdb.Client
	Relay    *mqtt.Client

	// RecencyWindow is passed through to client sessions for the
	// missing-microcontroller warning.
	RecencyWindow time.Duration

	Version string
}

// Server is the HTTP front of the tunnel service.
type Server struct {
	cfg      config.APIConfig
	wsCfg    config.WebSocketConfig
	logger   *logging.Logger
	registry *hub.Registry
	store    *state.Store
	verifier hub.TokenVerifier
	firmware *firmware.Negotiator
	models   storage.ModelRepository
	tests    storage.TestRepository
	recorder *recorder.Recorder
	tsdb     *influxdb.Client
	relay    *mqtt.Client
	recency  time.Duration
	version  string

	server *http.Server
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates an API server. The server does not listen until Start.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("connection registry is required")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("state store is required")
	}
	if deps.Verifier == nil {
		return nil, fmt.Errorf("token verifier is required")
	}
	if deps.Firmware == nil {
		return nil, fmt.Errorf("firmware negotiator is required")
	}
	if deps.Models == nil || deps.Tests == nil {
		return nil, fmt.Errorf("repositories are required")
	}

	return &Server{
		cfg:      deps.Config,
		wsCfg:    deps.WS,
		logger:   deps.Logger,
		registry: deps.Registry,
		store:    deps.Store,
		verifier: deps.Verifier,
		firmware: deps.Firmware,
		models:   deps.Models,
		tests:    deps.Tests,
		recorder: deps.Recorder,
		tsdb:     deps.TSDB,
		relay:    deps.Relay,
		recency:  deps.RecencyWindow,
		version:  deps.Version,
	}, nil
}

// Start begins listening for HTTP connections in a background goroutine.
func (s *Server) Start(ctx context.Context) error {
	// Sessions outlive the handler that spawned them; they run under the
	// server's own context so Close can end them.
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		s.logger.Info("API server starting", "address", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the server, waiting for in-flight requests.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}
	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}
	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}
