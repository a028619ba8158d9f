package health

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/partyquiz/server/internal/logging"
	"go.uber.org/zap"
)

// ContentChecker reports whether the loaded content pack is usable.
type ContentChecker interface {
	Check(ctx context.Context) string
}

// JanitorChecker reports whether the room-cleanup sweep is still running.
type JanitorChecker interface {
	Check(ctx context.Context) string
}

// Handler manages health check endpoints.
type Handler struct {
	contentChecker ContentChecker
	janitorChecker JanitorChecker
	janitorEnabled bool
}

// NewHandler creates a new health check handler. contentChecker may be nil,
// in which case the content check is reported healthy unconditionally
// (useful before the content pack has finished loading in tests).
func NewHandler(contentChecker ContentChecker) *Handler {
	janitorEnabled := os.Getenv("JANITOR_HEALTH_CHECK_ENABLED") != "false"

	return &Handler{
		contentChecker: contentChecker,
		janitorEnabled: janitorEnabled,
	}
}

// WithJanitorChecker attaches a JanitorChecker once the janitor sweep starts.
func (h *Handler) WithJanitorChecker(checker JanitorChecker) *Handler {
	h.janitorChecker = checker
	return h
}

// LivenessResponse represents the liveness probe response.
type LivenessResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// ReadinessResponse represents the readiness probe response.
type ReadinessResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks"`
	Timestamp string            `json:"timestamp"`
}

// Liveness handles the liveness probe endpoint.
// GET /health/live
// Returns 200 if the process is alive (no dependency checks).
func (h *Handler) Liveness(c *gin.Context) {
	response := LivenessResponse{
		Status:    "alive",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	c.JSON(http.StatusOK, response)
}

// Readiness handles the readiness probe endpoint.
// GET /health/ready
// Returns 200 only if all critical dependencies are healthy, 503 otherwise.
func (h *Handler) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	checks := make(map[string]string)
	allHealthy := true

	contentStatus := h.checkContent(ctx)
	checks["content"] = contentStatus
	if contentStatus != "healthy" {
		allHealthy = false
	}

	if h.janitorEnabled {
		janitorStatus := h.checkJanitor(ctx)
		checks["janitor"] = janitorStatus
		if janitorStatus != "healthy" {
			allHealthy = false
		}
	}

	status := "ready"
	statusCode := http.StatusOK
	if !allHealthy {
		status = "unavailable"
		statusCode = http.StatusServiceUnavailable
	}

	response := ReadinessResponse{
		Status:    status,
		Checks:    checks,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	c.JSON(statusCode, response)
}

// checkContent verifies the content pack loaded successfully.
func (h *Handler) checkContent(ctx context.Context) string {
	if h.contentChecker == nil {
		return "healthy"
	}

	status := h.contentChecker.Check(ctx)
	if status != "healthy" {
		logging.Warn(ctx, "content pack health check failed", zap.String("status", status))
	}
	return status
}

// checkJanitor verifies the room-cleanup sweep is still running.
func (h *Handler) checkJanitor(ctx context.Context) string {
	if h.janitorChecker == nil {
		return "healthy"
	}
	return h.janitorChecker.Check(ctx)
}

// HealthCheckResponse is a generic health check response for backward compatibility.
type HealthCheckResponse struct {
	Status string         `json:"status"`
	Data   map[string]any `json:"data,omitempty"`
}

// MarshalJSON implements custom JSON marshaling for better formatting.
func (r ReadinessResponse) MarshalJSON() ([]byte, error) {
	type Alias ReadinessResponse
	return json.Marshal(&struct {
		*Alias
	}{
		Alias: (*Alias)(&r),
	})
}
