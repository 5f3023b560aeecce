package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/wonny/divsage/internal/contracts"
	"github.com/wonny/divsage/internal/ingest"
	"github.com/wonny/divsage/internal/scheduler"
	"github.com/wonny/divsage/pkg/logger"
)

// DataHandler handles market data API endpoints
// SSOT: data endpoints are handled by this struct only
type DataHandler struct {
	worker    *ingest.Worker
	scheduler *scheduler.Scheduler
	logger    *logger.Logger
}

// NewDataHandler creates a new data handler
func NewDataHandler(worker *ingest.Worker, sched *scheduler.Scheduler, log *logger.Logger) *DataHandler {
	return &DataHandler{
		worker:    worker,
		scheduler: sched,
		logger:    log,
	}
}

// RefreshRequest optionally narrows a refresh to one ticker
type RefreshRequest struct {
	Ticker string `json:"ticker,omitempty"`
}

// Refresh triggers a market data refresh
// POST /api/data/refresh
func (h *DataHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	if req.Ticker != "" {
		if !contracts.IsValidTicker(req.Ticker) {
			respondError(w, http.StatusBadRequest, "ticker must be 1-5 uppercase letters")
			return
		}
		if err := h.worker.RefreshTicker(r.Context(), req.Ticker); err != nil {
			h.logger.WithError(err).Error("Ticker refresh failed")
			respondError(w, http.StatusBadGateway, "Refresh failed: "+err.Error())
			return
		}
		respondJSON(w, http.StatusOK, map[string]string{
			"status": "refreshed",
			"ticker": req.Ticker,
		})
		return
	}

	result, err := h.worker.RefreshAll(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Full refresh failed")
		respondError(w, http.StatusInternalServerError, "Refresh failed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "completed",
		"refreshed": result.Refreshed,
		"failed":    result.Failed,
	})
}

// JobStats returns scheduler job statistics
// GET /api/data/jobs
func (h *DataHandler) JobStats(w http.ResponseWriter, r *http.Request) {
	if h.scheduler == nil {
		respondError(w, http.StatusServiceUnavailable, "Scheduler not running in this process")
		return
	}
	respondJSON(w, http.StatusOK, h.scheduler.GetJobStats())
}
