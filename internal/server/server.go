// Package server provides the HTTP server and routing for pricepoint.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/aristath/pricepoint/internal/di"
	competitorshandlers "github.com/aristath/pricepoint/internal/modules/competitors/handlers"
	dashboardhandlers "github.com/aristath/pricepoint/internal/modules/dashboard/handlers"
	productshandlers "github.com/aristath/pricepoint/internal/modules/products/handlers"
	recommendationshandlers "github.com/aristath/pricepoint/internal/modules/recommendations/handlers"
	"github.com/aristath/pricepoint/internal/modules/users"
	usershandlers "github.com/aristath/pricepoint/internal/modules/users/handlers"
)

// requestTimeout bounds every API request except the event streams
const requestTimeout = 60 * time.Second

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
	shutdown       chan struct{} // closed when Shutdown starts, ends event streams
	shutdownOnce   sync.Once
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		log:       cfg.Log.With().Str("component", "server").Logger(),
		port:      cfg.Port,
		container: cfg.Container,
		systemHandlers: NewSystemHandlers(
			cfg.Container.Databases(),
			cfg.Container.Scheduler,
			cfg.Container.JobHistoryRepo,
			cfg.Log,
		),
		shutdown: make(chan struct{}),
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Port),
		Handler:     s.router,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: event streams stay open, API routes use requestTimeout
		IdleTimeout: 60 * time.Second,
	}
	s.server.RegisterOnShutdown(func() {
		s.shutdownOnce.Do(func() { close(s.shutdown) })
	})

	return s
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.router
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
	c := s.container

	s.router.Get("/health", s.handleHealth)

	usersHandler := usershandlers.NewHandler(c.UserService, s.log)
	productsHandler := productshandlers.NewHandler(
		c.ProductService,
		c.SalesService,
		c.CompetitorService,
		c.RecommendationService,
		c.DashboardService,
		s.log,
	)
	competitorsHandler := competitorshandlers.NewHandler(c.CompetitorService, s.log)
	recommendationsHandler := recommendationshandlers.NewHandler(c.RecommendationService, s.log)
	dashboardHandler := dashboardhandlers.NewHandler(c.DashboardService, s.log)

	s.router.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(requestTimeout))
			usersHandler.RegisterPublicRoutes(r)
		})

		r.Group(func(r chi.Router) {
			r.Use(users.Authenticator(c.TokenManager))

			// Event streams are long-lived and skip the request timeout
			r.Route("/events", func(r chi.Router) {
				r.Get("/stream", NewEventsStreamHandler(c.EventBus, c.ProductService, s.shutdown, s.log).ServeHTTP)
				r.Get("/ws", NewEventsWebSocketHandler(c.EventBus, c.ProductService, s.shutdown, s.log).ServeHTTP)
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.Timeout(requestTimeout))

				usersHandler.RegisterRoutes(r)
				productsHandler.RegisterRoutes(r)
				competitorsHandler.RegisterRoutes(r)
				recommendationsHandler.RegisterRoutes(r)
				dashboardHandler.RegisterRoutes(r)

				r.Route("/system", func(r chi.Router) {
					r.Get("/status", s.systemHandlers.HandleSystemStatus)
					r.Get("/jobs", s.systemHandlers.HandleJobsStatus)
					r.Post("/jobs/{name}", s.systemHandlers.HandleTriggerJob)
				})
			})
		})
	})
}

// Start starts the HTTP server. It blocks until the server stops.
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
