package handlers

import (
	"net/http"
	"time"

	"github.com/wonny/divsage/pkg/database"
	"github.com/wonny/divsage/pkg/logger"
	"github.com/wonny/divsage/pkg/redis"
)

// HealthHandler reports service and dependency health
type HealthHandler struct {
	db     *database.DB
	cache  *redis.Client
	logger *logger.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db *database.DB, cache *redis.Client, log *logger.Logger) *HealthHandler {
	return &HealthHandler{db: db, cache: cache, logger: log}
}

// Check returns service health
// GET /health
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	response := map[string]interface{}{
		"status":  "ok",
		"service": "divsage-api",
	}
	healthy := true

	dbStatus, err := h.db.HealthCheck(ctx)
	if err != nil {
		healthy = false
		h.logger.WithError(err).Error("Database health check failed")
	}
	response["database"] = dbStatus

	if h.cache.Enabled() {
		start := time.Now()
		if err := h.cache.Redis().Ping(ctx).Err(); err != nil {
			// Cache is an optimization; its loss degrades, not fails
			response["redis"] = map[string]interface{}{"healthy": false, "error": err.Error()}
			h.logger.WithError(err).Warn("Redis health check failed")
		} else {
			response["redis"] = map[string]interface{}{
				"healthy":       true,
				"response_time": time.Since(start).String(),
			}
		}
	} else {
		response["redis"] = map[string]interface{}{"enabled": false}
	}

	status := http.StatusOK
	if !healthy {
		response["status"] = "degraded"
		status = http.StatusServiceUnavailable
	}

	respondJSON(w, status, response)
}
