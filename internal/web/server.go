// Package web provides the HTTP server and handlers for the mobility
// filter pages and their JSON API.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/JonMunkholm/mobility/internal/config"
	"github.com/JonMunkholm/mobility/internal/metrics"
	"github.com/JonMunkholm/mobility/internal/mobility"
	"github.com/JonMunkholm/mobility/internal/session"
	"github.com/JonMunkholm/mobility/internal/uploads"
	mw "github.com/JonMunkholm/mobility/internal/web/middleware"
)

// Server is the HTTP server for the mobility filter application.
type Server struct {
	cfg      *config.Config
	router   *chi.Mux
	server   *http.Server
	sessions *session.Store
	uploads  *uploads.Limiter
	metrics  *metrics.Recorder
	loader   *mobility.Loader
	pipeline *mobility.Pipeline
	exporter *mobility.Exporter
	validate *validator.Validate
}

// NewServer wires the router. rec may be nil to disable metrics.
func NewServer(cfg *config.Config, sessions *session.Store, limiter *uploads.Limiter, rec *metrics.Recorder) *Server {
	s := &Server{
		cfg:      cfg,
		router:   chi.NewRouter(),
		sessions: sessions,
		uploads:  limiter,
		metrics:  rec,
		loader:   mobility.NewLoader(cfg.Filter.Placeholder),
		pipeline: mobility.NewPipeline(mobility.PipelineConfig{
			MinYear:    cfg.Filter.MinYear,
			AllRegions: cfg.Filter.AllRegionsLabel,
		}),
		exporter: mobility.NewExporter(),
		validate: validator.New(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(mw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(mw.Logger)
	s.router.Use(mw.Metrics(s.metrics))
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	if s.cfg.Server.RequestTimeout > 0 {
		s.router.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))
	}
	s.router.Use(securityHeaders(s.cfg.Security.EnableCSP))

	if s.cfg.Rate.Enabled {
		s.router.Use(s.rateLimit(s.cfg.Rate.RequestsPerMinute))
	}
}

func (s *Server) setupRoutes() {
	s.router.Get("/", s.handleIndex)
	s.router.Get("/healthz", s.handleHealth)

	if s.cfg.Metrics.Enabled {
		s.router.With(mw.BearerToken(s.cfg.Metrics.Token)).Handle(s.cfg.Metrics.Path, s.metrics.Handler())
	}

	s.router.Route("/flows/{flow}", func(r chi.Router) {
		r.Get("/", s.handleFlowPage)

		upload := r.With()
		if s.cfg.Rate.Enabled {
			upload = r.With(s.rateLimit(s.cfg.Rate.UploadLimit))
		}
		upload.Post("/upload", s.handleUpload)

		r.Post("/clear", s.handleClear)
		r.Get("/download.csv", s.handleDownloadCSV)
		r.Get("/download.xlsx", s.handleDownloadXLSX)
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/flows", s.handleListFlows)
		r.Get("/flows/{flow}/filter", s.handleFilter)
		r.Get("/flows/{flow}/export", s.handleExport)
	})

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.respondError(w, r, errNotFound, http.StatusNotFound)
	})
}

// rateLimit limits each client IP to perMinute requests, answering
// rejected requests with the RATE001 error response.
func (s *Server) rateLimit(perMinute int) func(http.Handler) http.Handler {
	return mw.RateLimit(perMinute, time.Minute, func(w http.ResponseWriter, r *http.Request) {
		s.respondError(w, r, errRateLimited, http.StatusTooManyRequests)
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

const cspPolicy = "default-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; form-action 'self'; frame-ancestors 'none'"

func securityHeaders(enableCSP bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			if enableCSP {
				h.Set("Content-Security-Policy", cspPolicy)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// writeJSON encodes v with status. Encoding errors are logged since the
// header is already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", "error", err)
	}
}
