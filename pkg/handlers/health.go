package handlers

import (
	"context"
	"net/http"
	"os"
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/askdb-ai/askdb-engine/pkg/config"
)

// DBPinger reports database reachability for the health endpoint.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// PingResponse contains service status and version information.
type PingResponse struct {
	Status      string `json:"status"`
	Version     string `json:"version"`
	Service     string `json:"service"`
	GoVersion   string `json:"go_version"`
	Hostname    string `json:"hostname"`
	Environment string `json:"environment"`
}

// HealthResponse contains the detailed health report for GET /api/health.
type HealthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Database      string `json:"database"`
}

// HealthHandler handles health check and ping endpoints.
type HealthHandler struct {
	cfg       *config.Config
	db        DBPinger
	startedAt time.Time
	logger    *zap.Logger
}

// NewHealthHandler creates a new HealthHandler. db may be nil when no
// database is wired, for instance in tests.
func NewHealthHandler(cfg *config.Config, db DBPinger, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		cfg:       cfg,
		db:        db,
		startedAt: time.Now(),
		logger:    logger,
	}
}

// RegisterRoutes registers the health handler's routes on the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.Liveness)
	mux.HandleFunc("/ping", h.Ping)
	mux.HandleFunc("GET /api/health", h.Health)
}

// Liveness handles GET /health requests.
// Returns a bare "ok" for load balancer liveness probes.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ping handles GET /ping requests.
// Returns service information including version and environment.
func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	hostname, err := os.Hostname()
	if err != nil {
		http.Error(w, "failed to get hostname", http.StatusInternalServerError)
		return
	}

	response := PingResponse{
		Status:      "ok",
		Version:     h.cfg.Version,
		Service:     "askdb-engine",
		GoVersion:   runtime.Version(),
		Hostname:    hostname,
		Environment: h.cfg.Env,
	}

	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode ping response", zap.Error(err))
	}
}

// Health handles GET /api/health requests.
// Reports overall status, uptime, and database reachability. The endpoint
// returns 503 when the database does not answer a ping.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:        "ok",
		Version:       h.cfg.Version,
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
		Database:      "ok",
	}
	status := http.StatusOK

	if h.db == nil {
		response.Database = "not_configured"
	} else {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			h.logger.Warn("Database ping failed", zap.Error(err))
			response.Status = "degraded"
			response.Database = "unreachable"
			status = http.StatusServiceUnavailable
		}
	}

	if err := WriteJSON(w, status, response); err != nil {
		h.logger.Error("Failed to encode health response", zap.Error(err))
	}
}
