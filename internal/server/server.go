// Package server provides the HTTP server and routing for the analytics API.
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

	"github.com/aristath/quantcore/internal/config"
	analyticshandlers "github.com/aristath/quantcore/internal/modules/analytics/handlers"
	"github.com/aristath/quantcore/internal/scheduler"
	"github.com/aristath/quantcore/internal/services"
	"github.com/aristath/quantcore/pkg/logger"
)

// Config holds server configuration
type Config struct {
	Log     zerolog.Logger
	Config  *config.Config
	Service *services.AnalyticsService
}

// Server represents the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	cfg            *config.Config
	service        *services.AnalyticsService
	scheduler      *scheduler.Scheduler
	purgeJob       *scheduler.CurveCachePurgeJob
	systemHandlers *SystemHandlers
	startedAt      time.Time
}

// New creates a new HTTP server and registers the curve cache purge job
func New(cfg Config) (*Server, error) {
	s := &Server{
		router:    chi.NewRouter(),
		log:       logger.Component(cfg.Log, "server"),
		cfg:       cfg.Config,
		service:   cfg.Service,
		scheduler: scheduler.New(cfg.Log),
		startedAt: time.Now(),
	}

	if cache := cfg.Service.CurveCache(); cache != nil {
		s.purgeJob = scheduler.NewCurveCachePurgeJob(cache, cfg.Log)
		if schedule := cfg.Config.Curve.CachePurgeSchedule; schedule != "" {
			if err := s.scheduler.AddJob(schedule, s.purgeJob); err != nil {
				return nil, fmt.Errorf("failed to schedule curve cache purge %q: %w", schedule, err)
			}
		}
	}
	s.systemHandlers = NewSystemHandlers(cfg.Log, cfg.Service, s.scheduler, s.purgeJob, cfg.Config.MonteCarlo.Workers, s.startedAt)

	s.setupMiddleware(cfg.Config.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Config.MonteCarlo.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Handler returns the router
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware(devMode bool) {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(s.loggingMiddleware)

	// Timeout; Monte Carlo runs carry their own shorter deadline
	s.router.Use(middleware.Timeout(s.cfg.MonteCarlo.Timeout + 10*time.Second))

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
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

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	analyticsHandler := analyticshandlers.NewHandler(s.service, s.log)

	s.router.Route("/api", func(r chi.Router) {
		analyticsHandler.RegisterRoutes(r)

		r.Route("/system", func(r chi.Router) {
			r.Get("/status", s.systemHandlers.HandleSystemStatus)
			r.Post("/cache/purge", s.systemHandlers.HandlePurgeCurveCache)
		})
	})
}

// Start starts the scheduler and the HTTP server
func (s *Server) Start() error {
	s.scheduler.Start()

	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	s.scheduler.Stop()
	return s.server.Shutdown(ctx)
}

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
