package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"pictora-hq/relay/pkg/cache"
	"pictora-hq/relay/pkg/config"
	"pictora-hq/relay/pkg/generation"
	"pictora-hq/relay/pkg/imageproxy"
	"pictora-hq/relay/pkg/journal"
	"pictora-hq/relay/pkg/payment"
	"pictora-hq/relay/pkg/proxy/middleware"
	"pictora-hq/relay/pkg/telemetry/health"
	"pictora-hq/relay/pkg/telemetry/metrics"
	"pictora-hq/relay/pkg/telemetry/tracing"
	"pictora-hq/relay/pkg/upstream"
)

// Route paths.
const (
	RouteImageDisplay      = "/api/proxy-image-display"
	RouteImageDownload     = "/api/proxy-image"
	RouteGenerate          = "/api/generate"
	RouteImageToImage      = "/api/generate-image-to-image"
	RoutePayPalCreateOrder = "/api/paypal/create-order"
	RoutePayPalCapture     = "/api/paypal/capture-order"
	RoutePayPalCheckStatus = "/api/paypal/check-status"
	RouteVersion           = "/version"
)

// Options carries the process-level dependencies of a Server.
type Options struct {
	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Version is served at /version and attached to traces.
	Version health.VersionInfo

	// Registry receives the relay metrics. Nil creates a fresh registry
	// with the Go and process collectors.
	Registry *prometheus.Registry

	// Transport overrides the upstream transport of every client (tests).
	Transport http.RoundTripper
}

// Server is the relay HTTP server. It owns the image cache, the upstream
// clients, the journal and the telemetry components, and tears all of them
// down in Shutdown.
type Server struct {
	config *config.Config
	logger *slog.Logger

	collector *metrics.Collector
	checker   *health.Checker
	tracer    *tracing.Tracer

	cache   *cache.Cache
	sweeper *cache.Scheduler
	clients []*upstream.Client

	journalStore    journal.Store
	journalRecorder *journal.Recorder
	pruner          *journal.Pruner

	handler    http.Handler
	httpServer *http.Server

	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// New builds a Server and every component it serves. Nothing listens until
// Start is called. The context bounds journal initialization only.
func New(ctx context.Context, cfg *config.Config, opts Options) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("server: nil config")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		config: cfg,
		logger: logger.With("component", "server"),
	}

	tracer, err := tracing.New(&cfg.Telemetry.Tracing, opts.Version.Version)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	s.tracer = tracer

	s.collector = metrics.NewCollector(&cfg.Telemetry.Metrics, opts.Registry)

	s.cache = cache.New(cache.Options{
		Name:       "images",
		TTL:        cfg.ImageProxy.CacheTTL,
		MaxEntries: cfg.ImageProxy.MaxEntries,
		Observer:   s.collector,
	})
	s.sweeper = cache.NewScheduler(s.cache, cfg.ImageProxy.SweepSchedule, logger)

	if cfg.Journal.Enabled {
		store, err := journal.Open(ctx, cfg.Journal)
		if err != nil {
			s.release(context.Background())
			return nil, fmt.Errorf("failed to open journal: %w", err)
		}
		s.journalStore = store
		s.journalRecorder = journal.NewRecorder(store, 0, logger)
		s.pruner = journal.NewPruner(store, cfg.Journal.RetentionDays, cfg.Journal.PruneSchedule, logger)
	}

	s.checker = s.newChecker()
	s.handler = s.routes(logger, opts)

	return s, nil
}

// newClient creates an upstream client that reports to the collector and
// is closed on shutdown.
func (s *Server) newClient(cfg upstream.Config, opts Options) *upstream.Client {
	cfg.Recorder = s.collector
	cfg.Transport = opts.Transport
	cfg.Logger = opts.Logger
	c := upstream.New(cfg)
	s.clients = append(s.clients, c)
	return c
}

func (s *Server) newChecker() *health.Checker {
	checker := health.New(s.config.Telemetry.Health.CheckTimeout)

	checker.RegisterCheck("cache", func(context.Context) error {
		if s.cache.Closed() {
			return errors.New("image cache is closed")
		}
		return nil
	})

	providers := []struct {
		name       string
		configured bool
		missing    string
	}{
		{"bigmodel", s.config.Providers.BigModel.Configured(), "BIGMODEL_API_KEY not set"},
		{"stability", s.config.Providers.Stability.Configured(), "STABILITY_API_KEY not set"},
		{"paypal", s.config.PayPal.Configured(), "PAYPAL_CLIENT_ID or PAYPAL_CLIENT_SECRET not set"},
	}
	for _, p := range providers {
		if p.configured {
			checker.RegisterCheck(p.name, func(context.Context) error { return nil })
		} else {
			checker.RegisterDisabled(p.name, p.missing)
		}
	}

	if s.journalStore != nil {
		checker.RegisterCheck("journal", s.journalStore.Ping)
	} else {
		checker.RegisterDisabled("journal", "journal disabled")
	}

	return checker
}

// routes builds the mux and wraps it in the middleware chain.
func (s *Server) routes(logger *slog.Logger, opts Options) http.Handler {
	cfg := s.config

	imageClient := s.newClient(upstream.Config{
		Provider:     "image",
		Timeout:      cfg.ImageProxy.FetchTimeout,
		UserAgent:    cfg.ImageProxy.UserAgent,
		MaxRetries:   cfg.ImageProxy.MaxRetries,
		MaxBodyBytes: cfg.ImageProxy.MaxImageBytes,
	}, opts)
	downloadClient := s.newClient(upstream.Config{
		Provider:     "image_download",
		Timeout:      cfg.ImageProxy.FetchTimeout,
		UserAgent:    cfg.ImageProxy.UserAgent,
		MaxBodyBytes: cfg.ImageProxy.MaxImageBytes,
	}, opts)
	bigModelClient := s.newClient(upstream.Config{
		Provider: "bigmodel",
		Timeout:  cfg.Providers.BigModel.Timeout,
	}, opts)
	stabilityClient := s.newClient(upstream.Config{
		Provider: "stability",
		Timeout:  cfg.Providers.Stability.Timeout,
	}, opts)
	paypalClient := s.newClient(upstream.Config{
		Provider: "paypal",
		Timeout:  cfg.PayPal.Timeout,
	}, opts)

	// A nil *journal.Recorder must not become a non-nil interface
	var j generation.Journal
	paymentOpts := []payment.HandlerOption{
		payment.WithRecorder(s.collector),
		payment.WithLogger(logger),
		payment.WithTimeout(cfg.PayPal.HandlerTimeout),
	}
	if s.journalRecorder != nil {
		j = s.journalRecorder
		paymentOpts = append(paymentOpts, payment.WithJournal(s.journalRecorder))
	}

	images := imageproxy.NewHandler(
		imageproxy.NewService(s.cache, imageClient, 0, logger),
		downloadClient,
		logger,
	)
	bigModel := generation.NewBigModel(cfg.Providers.BigModel, bigModelClient, generation.Options{
		Journal: j,
		Logger:  logger,
		Timeout: cfg.Providers.BigModel.HandlerTimeout,
	})
	stability := generation.NewStability(cfg.Providers.Stability, stabilityClient, generation.Options{
		Journal: j,
		Logger:  logger,
		Timeout: cfg.Providers.Stability.HandlerTimeout,
	})
	payments := payment.NewHandler(payment.NewClient(cfg.PayPal, paypalClient), paymentOpts...)

	mux := http.NewServeMux()
	handle := func(route string, h http.Handler) {
		mux.Handle(route, s.collector.Instrument(route, h))
	}

	handle(RouteImageDisplay, http.HandlerFunc(images.Display))
	handle(RouteImageDownload, http.HandlerFunc(images.Download))
	handle(RouteGenerate, bigModel)
	handle(RouteImageToImage, stability)
	handle(RoutePayPalCreateOrder, http.HandlerFunc(payments.CreateOrder))
	handle(RoutePayPalCapture, http.HandlerFunc(payments.CaptureOrder))
	handle(RoutePayPalCheckStatus, http.HandlerFunc(payments.CheckStatus))

	health.Register(mux, s.checker, health.Paths{
		Liveness:  cfg.Telemetry.Health.LivenessPath,
		Readiness: cfg.Telemetry.Health.ReadinessPath,
		Version:   RouteVersion,
	}, opts.Version)

	if s.collector.Enabled() {
		mux.Handle(cfg.Telemetry.Metrics.Path, s.collector.Handler())
	}

	// Request IDs are assigned before logging so every log line carries one
	return middleware.Chain(mux,
		middleware.RecoveryMiddleware(logger),
		middleware.RequestIDMiddleware,
		tracing.HTTPMiddleware,
		middleware.LoggingMiddleware(logger),
		middleware.CORSMiddleware(middleware.CORSFromConfig(cfg.Server.CORS)),
		middleware.TimeoutMiddleware(cfg.Server.RequestTimeout, logger),
	)
}

// Start starts the background jobs and the HTTP server, and blocks until
// ctx is cancelled or the listener fails. Shutdown runs before it returns.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Server.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Server.ListenAddress, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Start on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		ln.Close()
		return errors.New("server is already running")
	}
	s.isRunning = true
	s.httpServer = &http.Server{
		Handler:        s.handler,
		ReadTimeout:    s.config.Server.ReadTimeout,
		WriteTimeout:   s.config.Server.WriteTimeout,
		IdleTimeout:    s.config.Server.IdleTimeout,
		MaxHeaderBytes: s.config.Server.MaxHeaderBytes,
		ErrorLog:       slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}
	s.mu.Unlock()

	if err := s.sweeper.Start(ctx); err != nil {
		ln.Close()
		return fmt.Errorf("failed to start cache sweeper: %w", err)
	}
	if s.pruner != nil {
		if err := s.pruner.Start(ctx); err != nil {
			ln.Close()
			return fmt.Errorf("failed to start journal pruner: %w", err)
		}
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting relay server",
			"address", ln.Addr().String(),
			"journal", s.journalStore != nil,
			"tracing", s.tracer.Enabled(),
		)
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case err := <-errChan:
		if shutdownErr := s.Shutdown(context.Background()); shutdownErr != nil {
			s.logger.Error("shutdown after server error failed", "error", shutdownErr)
		}
		return err
	}
}

// Shutdown drains in-flight requests and releases every owned component.
// It is safe to call more than once and on a server that never started.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.logger.Info("initiating graceful shutdown", "timeout", s.config.Server.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.Server.ShutdownTimeout)
		defer cancel()

		s.mu.RLock()
		httpServer := s.httpServer
		s.mu.RUnlock()

		if httpServer != nil {
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				s.logger.Error("error during server shutdown", "error", err)
				shutdownErr = fmt.Errorf("server shutdown error: %w", err)
			}
		}

		if err := s.release(shutdownCtx); err != nil && shutdownErr == nil {
			shutdownErr = err
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		s.logger.Info("relay server stopped")
	})

	return shutdownErr
}

// release stops the schedulers, flushes the journal and the tracer, and
// clears the cache.
func (s *Server) release(ctx context.Context) error {
	var errs []error

	if s.sweeper != nil {
		s.sweeper.Stop()
	}
	if s.pruner != nil {
		s.pruner.Stop()
	}
	if s.journalRecorder != nil {
		s.journalRecorder.Close()
	}
	if s.journalStore != nil {
		if err := s.journalStore.Close(); err != nil {
			errs = append(errs, fmt.Errorf("journal close: %w", err))
		}
	}
	if s.tracer != nil {
		if err := s.tracer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer shutdown: %w", err))
		}
	}
	if s.cache != nil {
		s.cache.Close()
	}
	for _, c := range s.clients {
		c.CloseIdleConnections()
	}

	return errors.Join(errs...)
}

// IsRunning returns true if the server is serving.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Cache returns the image cache.
func (s *Server) Cache() *cache.Cache {
	return s.cache
}

// Journal returns the journal store, or nil when journaling is disabled.
func (s *Server) Journal() journal.Store {
	return s.journalStore
}
