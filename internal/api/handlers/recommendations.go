package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/divsage/internal/advisor"
	"github.com/wonny/divsage/internal/contracts"
	"github.com/wonny/divsage/pkg/logger"
)

// defaultListLimit bounds GET /api/recommendations
const defaultListLimit = 20

// RecommendationHandler handles recommendation API endpoints
// SSOT: recommendation endpoints are handled by this struct only
type RecommendationHandler struct {
	advisor *advisor.Advisor
	store   contracts.RecommendationStore
	logger  *logger.Logger
}

// NewRecommendationHandler creates a new recommendation handler
func NewRecommendationHandler(adv *advisor.Advisor, store contracts.RecommendationStore, log *logger.Logger) *RecommendationHandler {
	return &RecommendationHandler{
		advisor: adv,
		store:   store,
		logger:  log,
	}
}

// CreateRequest carries optional constraint overrides; omitted fields
// fall back to defaults. AsOf defaults to the current UTC date.
type CreateRequest struct {
	MaxHoldings       *int     `json:"max_holdings,omitempty"`
	PayoutCeiling     *float64 `json:"payout_ceiling,omitempty"`
	LeverageCeiling   *float64 `json:"leverage_ceiling,omitempty"`
	BenchmarkTicker   *string  `json:"benchmark_ticker,omitempty"`
	FallbackOnFailure *bool    `json:"fallback_on_failure,omitempty"`
	AsOf              *string  `json:"as_of,omitempty"` // YYYY-MM-DD
}

// Create runs the recommendation pipeline synchronously
// POST /api/recommendations
func (h *RecommendationHandler) Create(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFrom(w, r)
	if !ok {
		return
	}
	correlationID := correlationFrom(r)

	constraints := contracts.DefaultConstraints()
	asOf := time.Now().UTC()
	if r.Body != nil && r.ContentLength != 0 {
		var req CreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if req.MaxHoldings != nil {
			constraints.MaxHoldings = *req.MaxHoldings
		}
		if req.PayoutCeiling != nil {
			constraints.PayoutCeiling = *req.PayoutCeiling
		}
		if req.LeverageCeiling != nil {
			constraints.LeverageCeiling = *req.LeverageCeiling
		}
		if req.BenchmarkTicker != nil {
			constraints.BenchmarkTicker = *req.BenchmarkTicker
		}
		if req.FallbackOnFailure != nil {
			constraints.FallbackOnFailure = *req.FallbackOnFailure
		}
		if req.AsOf != nil {
			parsed, err := time.Parse("2006-01-02", *req.AsOf)
			if err != nil {
				respondError(w, http.StatusBadRequest, "as_of must be YYYY-MM-DD")
				return
			}
			asOf = parsed
		}
	}

	rec, err := h.advisor.Recommend(r.Context(), owner, constraints, correlationID, asOf)
	if rec == nil {
		// Boundary rejection: nothing ran, nothing was persisted
		kind := contracts.KindOf(err)
		respondError(w, statusForKind(kind), err.Error())
		return
	}

	// The run terminated: the artifact is the response, COMPLETED or
	// FAILED alike. The taxonomy kind travels in the error detail.
	status := http.StatusCreated
	if err != nil {
		h.logger.WithError(err).WithField("correlation_id", correlationID).Warn("Pipeline run failed")
		status = statusForKind(contracts.KindOf(err))
	}

	w.Header().Set(headerCorrelationID, correlationID)
	respondJSON(w, status, rec)
}

// Get retrieves one recommendation
// GET /api/recommendations/{id}
func (h *RecommendationHandler) Get(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFrom(w, r)
	if !ok {
		return
	}
	id := mux.Vars(r)["id"]

	rec, err := h.store.Get(r.Context(), owner, id)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get recommendation")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve recommendation")
		return
	}
	if rec == nil {
		respondError(w, http.StatusNotFound, "Recommendation not found")
		return
	}

	respondJSON(w, http.StatusOK, rec)
}

// List retrieves recent recommendations for the owner
// GET /api/recommendations?limit=N
func (h *RecommendationHandler) List(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFrom(w, r)
	if !ok {
		return
	}

	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 100 {
			respondError(w, http.StatusBadRequest, "limit must be between 1 and 100")
			return
		}
		limit = parsed
	}

	recs, err := h.store.ListByOwner(r.Context(), owner, limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list recommendations")
		respondError(w, http.StatusInternalServerError, "Failed to list recommendations")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"recommendations": recs,
		"count":           len(recs),
	})
}
