package api

import (
	"log/slog"
	"net/http"

	"github.com/dgallion1/ghostcheck/internal/config"
	"github.com/dgallion1/ghostcheck/internal/review"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP API server for ghostcheck.
type Server struct {
	router   chi.Router
	reviewer *review.Client
	log      *slog.Logger
	cfg      config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(reviewer *review.Client, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		reviewer: reviewer,
		log:      log,
		cfg:      cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.GhostcheckAPIKey, s.log))

		r.Post("/api/compare", s.handleCompare)
		r.Get("/api/stats/review", s.handleReviewStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
