package kernel

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/getkin/kin-openapi/routers"
	"github.com/manthysbr/vita/internal/config"
	"github.com/manthysbr/vita/internal/core/domain"
	"github.com/manthysbr/vita/internal/core/services"
)

// Store is the persisted side of the API: traces that left the in-memory ring
// buffer and the storage health check.
type Store interface {
	ListTraces(ctx context.Context, limit int) ([]domain.TraceSummary, error)
	GetTrace(ctx context.Context, id domain.TraceID) (*domain.Trace, error)
	Ping(ctx context.Context) error
}

type Server struct {
	logger      *slog.Logger
	coach       *services.CoachService
	tracer      *services.TraceCollector
	settings    *config.SettingsStore
	discovery   *services.ModelDiscovery
	specialists []domain.SpecialistProfile
	store       Store // optional
	router      routers.Router
}

// NewServer wires the HTTP API. store may be nil, in which case only in-memory
// traces are served and /healthz skips the storage check.
func NewServer(
	logger *slog.Logger,
	coach *services.CoachService,
	tracer *services.TraceCollector,
	settings *config.SettingsStore,
	discovery *services.ModelDiscovery,
	specialists []domain.SpecialistProfile,
	store Store,
) (*Server, error) {
	router, err := loadRouter()
	if err != nil {
		return nil, err
	}
	return &Server{
		logger:      logger,
		coach:       coach,
		tracer:      tracer,
		settings:    settings,
		discovery:   discovery,
		specialists: specialists,
		store:       store,
		router:      router,
	}, nil
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)

	mux.HandleFunc("POST /v1/coach", s.handleCoach)
	mux.HandleFunc("GET /v1/runs", s.handleListRuns)
	mux.HandleFunc("GET /v1/runs/{runId}", s.handleGetRun)

	// Tracing API
	mux.HandleFunc("GET /v1/traces", s.handleListTraces)
	mux.HandleFunc("GET /v1/traces/{traceId}", s.handleGetTrace)

	mux.HandleFunc("GET /v1/specialists", s.handleListSpecialists)

	mux.HandleFunc("GET /v1/models", s.handleListModels)
	mux.HandleFunc("GET /v1/settings", s.handleGetSettings)
	mux.HandleFunc("PUT /v1/settings", s.handleUpdateSettings)

	return s.logRequests(validateRequests(s.router, mux))
}

// handleHealth reports whether the kernel can reach its storage.
// GET /healthz
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.store.Ping(ctx); err != nil {
			writeError(w, http.StatusServiceUnavailable, fmt.Sprintf("storage: %v", err))
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleListSpecialists returns the roster the Head Coach can delegate to.
// GET /v1/specialists
func (s *Server) handleListSpecialists(w http.ResponseWriter, r *http.Request) {
	type specialistView struct {
		Name        domain.Specialist `json:"name"`
		Description string            `json:"description"`
		Aliases     []string          `json:"aliases"`
	}
	views := make([]specialistView, 0, len(s.specialists))
	for _, p := range s.specialists {
		views = append(views, specialistView{
			Name:        p.Name,
			Description: p.Description,
			Aliases:     p.Aliases,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"specialists": views,
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// queryLimit parses ?limit= with the given default, capped at 500.
func queryLimit(r *http.Request, def int) int {
	limit := def
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := fmt.Sscanf(l, "%d", &limit); n != 1 || err != nil || limit <= 0 {
			limit = def
		}
	}
	if limit > 500 {
		limit = 500
	}
	return limit
}
