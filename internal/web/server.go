// Package web provides the HTTP server and handlers for the buyer lead API.
package web

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/propstack/leadbook/internal/config"
	"github.com/propstack/leadbook/internal/csvio"
	"github.com/propstack/leadbook/internal/ratelimit"
	"github.com/propstack/leadbook/internal/store"
)

// Server is the HTTP server for the buyer lead API.
type Server struct {
	store  store.Store
	cfg    *config.Config
	router *chi.Mux
	server *http.Server

	importLimiter *csvio.Limiter

	// limiter covers every API route; createLimiter adds a stricter
	// per-client budget on buyer creation. Either may be nil when rate
	// limiting is disabled.
	limiter       *ratelimit.Limiter
	createLimiter *ratelimit.Limiter
}

// NewServer creates a new Server instance.
func NewServer(st store.Store, cfg *config.Config) *Server {
	s := &Server{
		store:         st,
		cfg:           cfg,
		router:        chi.NewRouter(),
		importLimiter: csvio.NewLimiter(cfg.Import.MaxConcurrent, cfg.Import.MaxWaitTime),
	}
	if cfg.Rate.Enabled {
		s.limiter = ratelimit.New(ratelimit.Config{
			Window:      cfg.Rate.Window,
			MaxRequests: cfg.Rate.MaxRequests,
		})
		s.createLimiter = ratelimit.New(ratelimit.Config{
			Window:      cfg.Rate.Window,
			MaxRequests: cfg.Rate.CreateMaxRequests,
		})
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Logger)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(chimiddleware.Compress(5))
	s.router.Use(chimiddleware.Timeout(s.cfg.Server.RequestTimeout))

	// Security hardening
	s.router.Use(securityHeaders)

	if s.limiter != nil {
		s.router.Use(s.rateLimit(s.limiter))
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", s.handleLogin)

		// Everything below requires a resolved identity cookie
		r.Group(func(r chi.Router) {
			r.Use(s.requireUser)

			r.Get("/buyers", s.handleListBuyers)
			r.Post("/buyers", s.handleCreateBuyer)

			// Fixed paths before the {id} wildcard
			r.Get("/buyers/export", s.handleExport)
			r.Post("/buyers/import", s.handleImport)

			r.Get("/buyers/{id}", s.handleGetBuyer)
			r.Put("/buyers/{id}", s.handleUpdateBuyer)
			r.Delete("/buyers/{id}", s.handleDeleteBuyer)
			r.Get("/buyers/{id}/history", s.handleHistory)
		})
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
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server and waits for in-flight imports
// to drain.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			return err
		}
	}
	return s.importLimiter.WaitForDrain(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Prevent MIME type sniffing
		w.Header().Set("X-Content-Type-Options", "nosniff")

		// Prevent clickjacking
		w.Header().Set("X-Frame-Options", "DENY")

		// Control referrer information
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		next.ServeHTTP(w, r)
	})
}

// rateLimit returns middleware enforcing the given limiter per client.
// Clients are keyed by IP; RealIP runs earlier in the chain so
// RemoteAddr already reflects X-Real-IP / X-Forwarded-For.
func (s *Server) rateLimit(l *ratelimit.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res := l.Allow(clientKey(r))
			setRateHeaders(w, res)
			if !res.Allowed {
				s.respondError(w, r, errRateLimited)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientKey identifies the caller for rate limiting purposes.
func clientKey(r *http.Request) string {
	host := r.RemoteAddr
	if u, ok := userFromContext(r.Context()); ok {
		return host + "|" + u.ID.String()
	}
	return host
}

func setRateHeaders(w http.ResponseWriter, res ratelimit.Result) {
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	if !res.Allowed {
		retry := time.Until(res.ResetAt).Seconds()
		if retry < 1 {
			retry = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(int(retry)))
	}
}
