// Package web provides the HTTP server, the generator form and the JSON API.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/labgen/internal/config"
	"github.com/JonMunkholm/labgen/internal/core"
	"github.com/JonMunkholm/labgen/internal/metrics"
	"github.com/JonMunkholm/labgen/internal/web/middleware"
)

// Server is the HTTP server for the generator.
type Server struct {
	cfg     *config.Config
	service *core.Service
	metrics *metrics.Metrics
	router  *chi.Mux
	server  *http.Server

	limiter    *middleware.RateLimiter
	genLimiter *middleware.RateLimiter
	bg         context.Context
	stop       context.CancelFunc
}

// NewServer creates a Server. m may be nil when metrics are disabled.
func NewServer(cfg *config.Config, service *core.Service, m *metrics.Metrics) *Server {
	s := &Server{
		cfg:     cfg,
		service: service,
		metrics: m,
		router:  chi.NewRouter(),
	}
	if cfg.Rate.Enabled {
		s.limiter = middleware.NewRateLimiter(cfg.Rate.RequestsPerMinute)
		s.genLimiter = middleware.NewRateLimiter(cfg.Rate.GenerateLimit)
	}
	s.setupMiddleware()
	s.setupRoutes()

	sc := cfg.Server
	s.server = &http.Server{
		Addr:         sc.Addr(),
		Handler:      s.router,
		ReadTimeout:  sc.ReadTimeout,
		WriteTimeout: sc.WriteTimeout,
		IdleTimeout:  sc.IdleTimeout,
	}
	s.bg, s.stop = context.WithCancel(context.Background())
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.Logger)
	if s.metrics != nil {
		s.router.Use(middleware.Metrics(s.metrics))
	}
	s.router.Use(chimw.Recoverer)
	s.router.Use(chimw.Compress(5))
	s.router.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))
	s.router.Use(s.securityHeaders)
	if s.limiter != nil {
		s.router.Use(s.limiter.Handler)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// Generation is the expensive path and gets its own, tighter limit.
	generate := func(r chi.Router) chi.Router {
		if s.genLimiter != nil {
			return r.With(s.genLimiter.Handler)
		}
		return r
	}

	// Pages
	s.router.Get("/", s.handleIndex)
	generate(s.router).Post("/generate", s.handleGenerateForm)
	generate(s.router).Post("/download", s.handleDownload)
	s.router.Get("/configs/{name}", s.handleDownloadConfig)

	s.router.Get("/healthz", s.handleHealth)
	if s.metrics != nil && s.cfg.Metrics.Enabled {
		s.router.Handle(s.cfg.Metrics.Path, s.metrics.Handler())
	}

	// API routes
	s.router.Route("/api", func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(&s.cfg.Security))

		r.Get("/config/random", s.handleRandomConfig)
		r.Post("/config/import", s.handleImportConfig)
		r.Post("/config/export", s.handleExportConfig)

		r.Get("/configs", s.handleListConfigs)
		r.Post("/configs", s.handleSaveConfig)
		r.Get("/configs/{name}", s.handleGetConfig)

		generate(r).Post("/generate", s.handleGenerateAPI)
	})
}

// Start begins listening for HTTP requests. It returns nil after Shutdown.
func (s *Server) Start() error {
	for _, rl := range []*middleware.RateLimiter{s.limiter, s.genLimiter} {
		if rl != nil {
			go rl.Run(s.bg)
		}
	}

	slog.Info("starting server", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server. It may be called before Start.
func (s *Server) Shutdown(ctx context.Context) error {
	s.stop()
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func (s *Server) securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		if s.cfg.Security.EnableCSP {
			// The page carries its stylesheet inline and has no scripts.
			w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'none'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; form-action 'self'")
		}
		next.ServeHTTP(w, r)
	})
}
