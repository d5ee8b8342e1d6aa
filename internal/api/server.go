// Package api provides the HTTP REST API for the Airzone bridge.
//
// It exposes the enumerated climate entities, their live state and
// history, command dispatch, and system metrics to operator tooling.
//
// The server follows the same lifecycle pattern as other infrastructure
// components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-airzone/internal/bridges/azcloud"
	"github.com/nerrad567/gray-logic-airzone/internal/climate"
	"github.com/nerrad567/gray-logic-airzone/internal/history"
	"github.com/nerrad567/gray-logic-airzone/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-airzone/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-airzone/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-airzone/internal/infrastructure/mqtt"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// BridgeMetricsProvider exposes bridge operational counters.
// This avoids a hard dependency on the bridge's concrete type in handlers.
type BridgeMetricsProvider interface {
	GetMetrics() azcloud.BridgeMetrics
}

// EntityStateReader reads an entity's live state. The bridge implements
// it with its vendor-object serialisation, so API reads never race the
// poll loop's in-place refreshes.
type EntityStateReader interface {
	EntityState(e climate.Entity) map[string]any
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	Security config.SecurityConfig
	Logger   *logging.Logger
	Entities []climate.Entity
	MQTT     *mqtt.Client
	Bridge   BridgeMetricsProvider
	States   EntityStateReader // optional; falls back to direct reads
	History  *history.Repository
	DB       *database.DB
	Version  string
}

// Server is the HTTP API server for the Airzone bridge.
//
// It manages the HTTP listener, routes, and middleware.
// The server is created with New() and started with Start().
type Server struct {
	cfg       config.APIConfig
	secCfg    config.SecurityConfig
	logger    *logging.Logger
	mqtt      *mqtt.Client
	bridge    BridgeMetricsProvider
	states    EntityStateReader
	history   *history.Repository
	db        *database.DB
	version   string
	startTime time.Time
	server    *http.Server

	entities map[string]climate.Entity
	order    []string // entity IDs in registration order for stable listings
	entityMu sync.RWMutex
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Parameters:
//   - deps: Required dependencies (config, logger, entities)
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	// MQTT is optional — commands won't work without it but reads still function

	s := &Server{
		cfg:       deps.Config,
		secCfg:    deps.Security,
		logger:    deps.Logger,
		mqtt:      deps.MQTT,
		bridge:    deps.Bridge,
		states:    deps.States,
		history:   deps.History,
		db:        deps.DB,
		version:   deps.Version,
		startTime: time.Now(),
		entities:  make(map[string]climate.Entity, len(deps.Entities)),
	}
	for _, e := range deps.Entities {
		s.entities[e.ID()] = e
		s.order = append(s.order, e.ID())
	}

	return s, nil
}

// Start begins listening for HTTP connections.
//
// It sets up the router and launches the HTTP listener in a background
// goroutine. The server can be stopped with Close().
//
// Parameters:
//   - ctx: Context for cancellation (not used for listener lifetime)
//
// Returns:
//   - error: If the server fails to start (port in use, etc.)
func (s *Server) Start(_ context.Context) error {
	router := s.buildRouter()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	// Start listening in background
	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
//
// Returns:
//   - error: If shutdown encounters an error
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil if healthy, error describing the issue otherwise
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

// entity looks up a registered climate entity by ID.
func (s *Server) entity(id string) (climate.Entity, bool) {
	s.entityMu.RLock()
	defer s.entityMu.RUnlock()
	e, ok := s.entities[id]
	return e, ok
}

// entityList returns the registered entities in registration order.
func (s *Server) entityList() []climate.Entity {
	s.entityMu.RLock()
	defer s.entityMu.RUnlock()
	out := make([]climate.Entity, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.entities[id])
	}
	return out
}

// stateOf reads an entity's state through the bridge's serialisation
// when one is wired, or directly otherwise.
func (s *Server) stateOf(e climate.Entity) map[string]any {
	if s.states != nil {
		return s.states.EntityState(e)
	}
	return climate.StateOf(e)
}
