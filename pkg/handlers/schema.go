package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/askdb-ai/askdb-engine/pkg/catalog"
	"github.com/askdb-ai/askdb-engine/pkg/models"
)

// SchemaResponse wraps the published snapshot.
type SchemaResponse struct {
	Tables      []models.Table `json:"tables"`
	TotalTables int            `json:"total_tables"`
	LoadedAt    string         `json:"loaded_at"`
}

// ReloadSchemaResponse summarizes a completed reload.
type ReloadSchemaResponse struct {
	TotalTables int    `json:"total_tables"`
	LoadedAt    string `json:"loaded_at"`
}

// SchemaHandler exposes the schema catalog over HTTP.
type SchemaHandler struct {
	catalog catalog.Catalog
	logger  *zap.Logger
}

// NewSchemaHandler creates a new schema handler.
func NewSchemaHandler(cat catalog.Catalog, logger *zap.Logger) *SchemaHandler {
	return &SchemaHandler{
		catalog: cat,
		logger:  logger,
	}
}

// RegisterRoutes registers the schema handler's routes on the given mux.
func (h *SchemaHandler) RegisterRoutes(mux *http.ServeMux, requireAuth Middleware) {
	mux.HandleFunc("GET /api/schema", requireAuth(h.Get))
	mux.HandleFunc("POST /api/schema/reload", requireAuth(h.Reload))
}

// Get handles GET /api/schema.
func (h *SchemaHandler) Get(w http.ResponseWriter, r *http.Request) {
	snapshot := h.catalog.Describe()
	if snapshot == nil {
		if err := ErrorResponse(w, http.StatusServiceUnavailable, "catalog_unavailable", "No schema snapshot is loaded"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	data := SchemaResponse{
		Tables:      snapshot.Tables,
		TotalTables: len(snapshot.Tables),
		LoadedAt:    snapshot.LoadedAt.Format(time.RFC3339),
	}

	response := ApiResponse{Success: true, Data: data}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Reload handles POST /api/schema/reload. It refreshes the snapshot from the
// live database; on failure the previously published snapshot stays in place.
func (h *SchemaHandler) Reload(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.Reload(r.Context()); err != nil {
		h.logger.Error("Schema reload failed", zap.Error(err))
		if err := ErrorResponse(w, http.StatusServiceUnavailable, "reload_failed", "Could not reload the schema from the database"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	snapshot := h.catalog.Describe()
	data := ReloadSchemaResponse{
		TotalTables: len(snapshot.Tables),
		LoadedAt:    snapshot.LoadedAt.Format(time.RFC3339),
	}

	response := ApiResponse{Success: true, Data: data}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
