package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"handbook-ai/internal/contextutil"
	"handbook-ai/internal/vectorstore"
)

// HealthHandler handles HTTP requests for health checks.
type HealthHandler struct {
	index              vectorstore.VectorIndex
	healthCheckTimeout time.Duration
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(index vectorstore.VectorIndex) *HealthHandler {
	return &HealthHandler{
		index:              index,
		healthCheckTimeout: 5 * time.Second,
	}
}

// HealthResponse represents the health check response.
//
// swagger:model HealthResponse
type HealthResponse struct {
	// Overall health status: "healthy" or "unhealthy"
	Status string `json:"status"`

	// Timestamp of the health check
	Timestamp string `json:"timestamp"`

	// Individual check results
	Checks map[string]string `json:"checks"`

	// Number of indexed chunks, when the index is reachable
	IndexedChunks uint64 `json:"indexed_chunks,omitempty"`

	// List of issues (only present if status is unhealthy)
	Issues []string `json:"issues,omitempty"`
}

// ServeHTTP handles HTTP requests for health checks.
//
// swagger:route GET /api/health healthCheck
//
// # Health check endpoint
//
// Returns 200 OK when the vector index is reachable and holds at least
// one chunk, 503 Service Unavailable otherwise.
//
// ---
// produces:
// - application/json
// responses:
//
//	'200':
//	  description: System is healthy
//	  schema:
//	    "$ref": "#/definitions/HealthResponse"
//	'503':
//	  description: System is unhealthy
//	  schema:
//	    "$ref": "#/definitions/HealthResponse"
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodGet {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	checkCtx, cancel := context.WithTimeout(ctx, h.healthCheckTimeout)
	defer cancel()

	checks := make(map[string]string)
	var issues []string

	count, ok := h.checkIndex(checkCtx, logger)
	if ok {
		checks["vector_index"] = "ok"
	} else {
		checks["vector_index"] = "error"
		issues = append(issues, "vector_index_unavailable")
	}

	status := "healthy"
	httpStatus := http.StatusOK
	if len(issues) > 0 {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status:        status,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Checks:        checks,
		IndexedChunks: count,
		Issues:        issues,
	})
}

// checkIndex verifies the vector index is reachable and non-empty. An
// empty index means ingestion never ran, so questions cannot be answered.
func (h *HealthHandler) checkIndex(ctx context.Context, logger *slog.Logger) (uint64, bool) {
	count, err := h.index.Count(ctx)
	if err != nil {
		logger.WarnContext(ctx, "vector index health check failed", "error", err)
		return 0, false
	}
	if count == 0 {
		logger.WarnContext(ctx, "vector index is empty")
		return 0, false
	}
	return count, true
}
