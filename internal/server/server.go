// Package server provides the HTTP server and routing for bourse.
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

	"github.com/aristath/bourse/internal/database"
	"github.com/aristath/bourse/internal/di"
	"github.com/aristath/bourse/internal/metrics"
	ledgerhandlers "github.com/aristath/bourse/internal/modules/ledger/handlers"
	portfoliohandlers "github.com/aristath/bourse/internal/modules/portfolio/handlers"
	priceshandlers "github.com/aristath/bourse/internal/modules/prices/handlers"
	tradinghandlers "github.com/aristath/bourse/internal/modules/trading/handlers"
)

// Config holds server configuration
type Config struct {
	Log       zerolog.Logger
	Port      int
	DevMode   bool
	Container *di.Container // DI container with all services
}

// Server represents the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	port           int
	container      *di.Container
	systemHandlers *SystemHandlers
	eventsStream   *EventsStreamHandler
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	c := cfg.Container

	jobs := func() []string { return nil }
	if c.Scheduler != nil {
		jobs = c.Scheduler.Jobs
	}

	s := &Server{
		router:    chi.NewRouter(),
		log:       cfg.Log.With().Str("component", "server").Logger(),
		port:      cfg.Port,
		container: c,
		systemHandlers: NewSystemHandlers(
			cfg.Log,
			[]*database.DB{c.LedgerDB, c.CacheDB},
			c.Config.OrderBook.CacheBackend,
			jobs,
		),
		eventsStream: NewEventsStreamHandler(c.EventBus, cfg.Log),
	}

	s.setupMiddleware()
	s.setupRoutes(cfg.DevMode)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the root router
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupMiddleware configures middleware shared by every route
func (s *Server) setupMiddleware() {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(s.loggingMiddleware)

	// Request latency histogram
	s.router.Use(metrics.Middleware)

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-User-ID"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
}

// requestScoped applies the timeout and compression middleware. Streaming
// routes stay outside it.
func requestScoped(devMode bool) func(r chi.Router) {
	return func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))
		if !devMode {
			r.Use(middleware.Compress(5))
		}
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes(devMode bool) {
	c := s.container

	pricesHandler := priceshandlers.NewHandler(c.Oracle, c.Validate, s.log)
	portfolioHandler := portfoliohandlers.NewHandler(c.PortfolioService, c.Validate, s.log)
	tradingHandler := tradinghandlers.NewHandler(c.ExecutionService, c.Synthesizer, c.Validate, s.log)
	ledgerHandler := ledgerhandlers.NewHandler(c.LedgerRepo, s.log)

	s.router.Group(func(r chi.Router) {
		requestScoped(devMode)(r)
		r.Get("/health", s.handleHealth)
		r.Method(http.MethodGet, "/metrics", metrics.Handler())
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			requestScoped(devMode)(r)

			r.Get("/system/status", s.systemHandlers.HandleSystemStatus)

			pricesHandler.RegisterRoutes(r)
			portfolioHandler.RegisterRoutes(r)
		})

		// Unified events stream (SSE)
		r.Get("/events/stream", s.eventsStream.ServeHTTP)

		r.Route("/trading", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				requestScoped(devMode)(r)
				tradingHandler.RegisterRoutes(r)
				ledgerHandler.RegisterRoutes(r)
			})

			// Order book websocket
			tradingHandler.RegisterStreamRoutes(r)
		})
	})
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

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
