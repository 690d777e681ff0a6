package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/aretw0/cohort/pkg/domain"
	"github.com/go-chi/chi/v5"
)

// Inspector is the read-only view the API serves. Implementations must not write to the store.
type Inspector interface {
	Identity(ctx context.Context) (int, bool, error)
	Experiments(ctx context.Context) ([]domain.Snapshot, error)
	Experiment(ctx context.Context, id string) (*domain.Snapshot, error)
}

// Server serves experiment state over HTTP.
type Server struct {
	Inspector Inspector
	Version   string
	Logger    *slog.Logger
	metrics   http.Handler
}

// Option configures the Server.
type Option func(*Server)

// WithMetrics mounts h (typically promhttp.Handler) at GET /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithVersion sets the version reported by GET /info.
func WithVersion(v string) Option {
	return func(s *Server) {
		s.Version = v
	}
}

// WithLogger sets the logger for request failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.Logger = logger
	}
}

// NewHandler creates the HTTP handler for the inspection API.
func NewHandler(inspector Inspector, opts ...Option) http.Handler {
	server := &Server{
		Inspector: inspector,
		Version:   "unknown",
		Logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(server)
	}

	r := chi.NewRouter()
	r.Get("/health", server.GetHealth)
	r.Get("/info", server.GetInfo)
	r.Get("/identity", server.GetIdentity)
	r.Get("/experiments", server.ListExperiments)
	r.Get("/experiments/{id}", server.GetExperiment)
	if server.metrics != nil {
		r.Method(http.MethodGet, "/metrics", server.metrics)
	}

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":     "cohort-http",
		"version": s.Version,
	})
}

// GetIdentity handles the GET /identity request.
func (s *Server) GetIdentity(w http.ResponseWriter, r *http.Request) {
	id, ok, err := s.Inspector.Identity(r.Context())
	if err != nil {
		s.fail(w, "Identity", err)
		return
	}
	if !ok {
		http.Error(w, "identity not allocated", http.StatusNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int{"identity": id})
}

// ListExperiments handles the GET /experiments request.
func (s *Server) ListExperiments(w http.ResponseWriter, r *http.Request) {
	snapshots, err := s.Inspector.Experiments(r.Context())
	if err != nil {
		s.fail(w, "ListExperiments", err)
		return
	}
	if snapshots == nil {
		snapshots = []domain.Snapshot{}
	}
	s.writeJSON(w, http.StatusOK, snapshots)
}

// GetExperiment handles the GET /experiments/{id} request.
func (s *Server) GetExperiment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	snapshot, err := s.Inspector.Experiment(r.Context(), id)
	if err != nil {
		s.fail(w, "GetExperiment", err)
		return
	}
	if snapshot == nil {
		http.Error(w, "experiment not found", http.StatusNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, snapshot)
}

func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	s.Logger.Error(op+" failed", "err", err)
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.Error("Response encode failed", "err", err)
	}
}
