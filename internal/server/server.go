package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/ziadkadry99/auto-report/internal/logging"
	"github.com/ziadkadry99/auto-report/internal/mail"
	"github.com/ziadkadry99/auto-report/internal/preview"
	"github.com/ziadkadry99/auto-report/internal/report"
)

// Config holds server configuration.
type Config struct {
	Port     int
	AllowAll bool // allow all CORS origins (dev mode)
	// BaseDir resolves relative image and csv paths in posted definitions;
	// they may not read files outside it.
	BaseDir string
	// PreviewPath is the definition served at /preview. Empty disables it.
	PreviewPath string
	// MaxBodyBytes caps posted definitions. Zero means 4 MiB.
	MaxBodyBytes int64
}

// Server renders report definitions over HTTP and serves a live preview.
type Server struct {
	cfg        Config
	logger     zerolog.Logger
	renderer   report.ElementRenderer
	outbox     *mail.Outbox
	hub        *preview.Hub
	router     chi.Router
	httpServer *http.Server
}

// Option configures optional server dependencies.
type Option func(*Server)

// WithOutbox enables POST /api/mail and the delivery routes.
func WithOutbox(o *mail.Outbox) Option {
	return func(s *Server) { s.outbox = o }
}

// WithHub enables the /ws live-reload endpoint.
func WithHub(h *preview.Hub) Option {
	return func(s *Server) { s.hub = h }
}

// New creates a server. A nil renderer falls back to report.BasicRenderer.
func New(cfg Config, logger zerolog.Logger, renderer report.ElementRenderer, opts ...Option) *Server {
	if renderer == nil {
		renderer = report.BasicRenderer{}
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 4 << 20
	}
	s := &Server{
		cfg:      cfg,
		logger:   logger,
		renderer: renderer,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.router = s.buildRouter()
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// buildRouter creates and configures the chi router with all routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.Middleware(s.logger))
	r.Use(middleware.Recoverer)

	// CORS
	corsOpts := cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if s.cfg.AllowAll {
		corsOpts.AllowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(corsOpts))

	// Health check
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	// The websocket stays outside the timeout group; it lives as long as
	// the browser tab.
	if s.hub != nil {
		r.Handle("/ws", s.hub)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		r.Post("/api/render", s.handleRender)
		if s.cfg.PreviewPath != "" {
			r.Get("/preview", s.handlePreview)
		}
		if s.outbox != nil {
			r.Post("/api/mail", s.handleMail)
			mail.RegisterRoutes(r, s.outbox)
		}
	})

	return r
}

// Router returns the chi router for registering additional routes.
func (s *Server) Router() chi.Router { return s.router }

// Start begins listening on the configured port. It returns nil once the
// server is shut down, including when Shutdown ran first.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.httpServer.Addr).Msg("autoreport server listening")
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.hub != nil {
		s.hub.Close()
	}
	return s.httpServer.Shutdown(ctx)
}
