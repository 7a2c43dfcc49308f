// Package server provides the HTTP server and routing for Lottolab.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/aristath/lottolab/internal/config"
	"github.com/aristath/lottolab/internal/database"
	"github.com/aristath/lottolab/internal/metrics"
	"github.com/aristath/lottolab/internal/modules/history"
	historyhandlers "github.com/aristath/lottolab/internal/modules/history/handlers"
	"github.com/aristath/lottolab/internal/services"
)

// Config holds server configuration
type Config struct {
	Log       zerolog.Logger
	Engine    *services.Engine
	Draws     *history.Repository
	Databases []*database.DB // Checked by /health
	Metrics   *metrics.Metrics
	RateLimit config.RateLimitConfig
	Port      int
	DevMode   bool
}

// Server represents the HTTP server
type Server struct {
	router    *chi.Mux
	server    *http.Server
	log       zerolog.Logger
	engine    *services.Engine
	draws     *history.Repository
	databases []*database.DB
	metrics   *metrics.Metrics
	limiter   *rateLimiter
	startedAt time.Time
	port      int
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		log:       cfg.Log.With().Str("component", "server").Logger(),
		engine:    cfg.Engine,
		draws:     cfg.Draws,
		databases: cfg.Databases,
		metrics:   cfg.Metrics,
		limiter:   newRateLimiter(cfg.RateLimit),
		startedAt: time.Now(),
		port:      cfg.Port,
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(s.loggingMiddleware)

	// Timeout
	s.router.Use(middleware.Timeout(60 * time.Second))

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Compress responses
	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler())
	}

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/system/status", s.handleSystemStatus)

		r.Get("/lotteries", s.handleListLotteries)
		r.Get("/lotteries/{lottery}", s.handleGetLottery)

		if s.draws != nil {
			historyhandlers.NewHandler(s.draws, s.engine, s.log).RegisterRoutes(r)
		}

		r.Route("/lotteries/{lottery}/analysis", func(r chi.Router) {
			r.Get("/frequencies", s.handleFrequencies)
			r.Get("/correlation", s.handleCorrelation)
			r.Get("/stream", s.handleCandidatesStream)

			// Heavy computations share the rate limit
			r.Group(func(r chi.Router) {
				r.Use(s.limiter.middleware)
				r.Post("/scores", s.handleScores)
				r.Post("/candidates", s.handleCandidates)
				r.Post("/backtest", s.handleBacktest)
				r.Post("/leakage", s.handleLeakage)
			})
		})
	})
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests and records their metrics by route pattern
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		elapsed := time.Since(start)
		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		s.metrics.ObserveHTTP(r.Method, route, ww.Status(), elapsed)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", elapsed).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
