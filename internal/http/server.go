// Package http serves the ledger as a JSON API for the SPA frontend.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"tally/internal/ledger"
	"tally/internal/middleware/clientip"
	"tally/internal/middleware/ratelimit"
	"tally/internal/middleware/trace"
)

// Config holds the server's HTTP-facing knobs.
type Config struct {
	Addr              string
	AllowedOrigins    []string
	RequestsPerMinute int
	SpendingWarnRatio float64
}

type Server struct {
	http.Server

	svc       *ledger.Service
	limiter   *ratelimit.Limiter
	warnRatio float64
}

func NewServer(cfg Config, svc *ledger.Service) *Server {
	s := &Server{
		svc: svc,
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: cfg.RequestsPerMinute,
		}),
		warnRatio: cfg.SpendingWarnRatio,
	}

	resolver := clientip.NewResolver()
	traced := trace.NewMiddleware(resolver.FromRequest)

	r := chi.NewRouter()
	r.Use(traced.Handler)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-User-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(s.limiter.Middleware(resolver.FromRequest))
	r.Use(requireUser)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Route("/transactions", func(r chi.Router) {
			r.Post("/", s.handleCreateTransaction)
			r.Get("/", s.handleListTransactions)
			r.Get("/reserved", s.handleListReserved)
			r.Put("/{id}", s.handleUpdateTransaction)
			r.Delete("/{id}", s.handleDeleteTransaction)
			r.Post("/{id}/complete", s.handleCompleteTransaction)
			r.Post("/{id}/revert", s.handleRevertTransaction)
		})

		r.Get("/dashboard/summary", s.handleDashboardSummary)

		r.Get("/settings", s.handleGetSettings)
		r.Put("/settings", s.handlePutSettings)
		r.Post("/logout", s.handleLogout)
	})

	s.Addr = cfg.Addr
	s.Handler = r
	s.ReadTimeout = 10 * time.Second
	s.WriteTimeout = 10 * time.Second
	s.IdleTimeout = 60 * time.Second
	s.MaxHeaderBytes = 1 << 16 // 64KB

	return s
}

// Shutdown stops the server and its rate limiter.
func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.Stop()
	return s.Server.Shutdown(ctx)
}

// requireUser rejects requests without a resolved user identity. The health
// endpoint stays open for probes.
func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/health" && userID(r) == "" {
			writeJSON(w, http.StatusUnauthorized, errorBody{
				Error:   "missing_user",
				Message: "X-User-ID header is required",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
