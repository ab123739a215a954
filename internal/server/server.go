// Package server exposes the event store, the analysis pipeline, and the demo
// fixtures over a JSON HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/iyulab/cyber-defense/internal/analyzer"
	"github.com/iyulab/cyber-defense/internal/config"
	"github.com/iyulab/cyber-defense/internal/event"
	"github.com/iyulab/cyber-defense/internal/store"
)

// Store is the persistence contract the handlers need.
type Store interface {
	Insert(ctx context.Context, r *event.Record) error
	InsertBatch(ctx context.Context, records []event.Record) error
	List(ctx context.Context, f store.Filter) ([]event.Record, error)
	Recent(ctx context.Context, since time.Time, limit int) ([]event.Record, error)
	Count(ctx context.Context) (int64, error)
	SeverityCounts(ctx context.Context, since time.Time) (map[string]int64, error)
	TopEventTypes(ctx context.Context, since time.Time, limit int) ([]store.EventTypeCount, error)
	DeleteByMarker(ctx context.Context, marker string) (int64, error)
}

// Server is the HTTP API.
type Server struct {
	store    Store
	analyzer *analyzer.Analyzer
	cfg      *config.Config
	logger   *zap.Logger
	metrics  *Metrics
	validate *validator.Validate
	now      func() time.Time

	rngMu sync.Mutex
	rng   *rand.Rand

	httpServer *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request and error logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithMetrics shares a metrics instance, typically the analyzer's observer.
func WithMetrics(m *Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithRand sets the random source used by the attack map.
func WithRand(rng *rand.Rand) Option {
	return func(s *Server) { s.rng = rng }
}

// New creates a Server. A nil cfg uses config.Default().
func New(st Store, az *analyzer.Analyzer, cfg *config.Config, opts ...Option) *Server {
	if cfg == nil {
		cfg = config.Default()
	}
	s := &Server{
		store:    st,
		analyzer: az,
		cfg:      cfg,
		logger:   zap.NewNop(),
		validate: validator.New(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = NewMetrics()
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if s.analyzer == nil {
		s.analyzer = analyzer.New(nil, analyzer.WithLogger(s.logger), analyzer.WithObserver(s.metrics))
	}
	return s
}

// Handler returns the fully wired router.
func (s *Server) Handler() http.Handler {
	return s.routes()
}

// Start begins listening on addr ("host:port", port 0 = OS-assigned). Returns
// the bound "host:port".
func (s *Server) Start(ctx context.Context, addr string) (string, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("listen: %w", err)
	}

	s.httpServer = &http.Server{
		Handler:      s.routes(),
		ReadTimeout:  seconds(s.cfg.Server.ReadTimeout),
		WriteTimeout: seconds(s.cfg.Server.WriteTimeout),
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server stopped", zap.Error(err))
		}
	}()

	bound := ln.Addr().String()
	s.logger.Info("http server listening", zap.String("addr", bound))
	return bound, nil
}

// Shutdown waits for in-flight requests until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Stop closes the listener and all connections immediately.
func (s *Server) Stop() {
	if s.httpServer != nil {
		s.httpServer.Close()
	}
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
