package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/divsage/internal/contracts"
	"github.com/wonny/divsage/pkg/logger"
)

// HoldingHandler handles holding API endpoints
// SSOT: holding endpoints are handled by this struct only
type HoldingHandler struct {
	store  contracts.HoldingStore
	logger *logger.Logger
}

// NewHoldingHandler creates a new holding handler
func NewHoldingHandler(store contracts.HoldingStore, log *logger.Logger) *HoldingHandler {
	return &HoldingHandler{store: store, logger: log}
}

// HoldingRequest is the create/update payload
type HoldingRequest struct {
	Ticker       string  `json:"ticker"`
	Shares       float64 `json:"shares"`
	CostBasis    float64 `json:"cost_basis"`
	PurchaseDate string  `json:"purchase_date"` // YYYY-MM-DD
}

// toHolding converts the payload, normalizing the ticker
func (req *HoldingRequest) toHolding(owner, id string) (*contracts.Holding, error) {
	h := &contracts.Holding{
		ID:        id,
		Owner:     owner,
		Ticker:    strings.ToUpper(strings.TrimSpace(req.Ticker)),
		Shares:    req.Shares,
		CostBasis: req.CostBasis,
	}
	if req.PurchaseDate != "" {
		d, err := time.Parse("2006-01-02", req.PurchaseDate)
		if err != nil {
			return nil, errors.New("purchase_date must be YYYY-MM-DD")
		}
		h.PurchaseDate = d
	}
	return h, h.Validate()
}

// List retrieves all holdings for the owner
// GET /api/holdings
func (h *HoldingHandler) List(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFrom(w, r)
	if !ok {
		return
	}

	holdings, err := h.store.ListByOwner(r.Context(), owner)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list holdings")
		respondError(w, http.StatusInternalServerError, "Failed to list holdings")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"holdings": holdings,
		"count":    len(holdings),
	})
}

// Get retrieves one holding
// GET /api/holdings/{id}
func (h *HoldingHandler) Get(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFrom(w, r)
	if !ok {
		return
	}
	id := mux.Vars(r)["id"]

	holding, err := h.store.Get(r.Context(), owner, id)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get holding")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve holding")
		return
	}
	if holding == nil {
		respondError(w, http.StatusNotFound, "Holding not found")
		return
	}

	respondJSON(w, http.StatusOK, holding)
}

// Create adds a holding
// POST /api/holdings
func (h *HoldingHandler) Create(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFrom(w, r)
	if !ok {
		return
	}

	var req HoldingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	holding, err := req.toHolding(owner, "")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := h.store.Create(r.Context(), holding)
	if err != nil {
		h.logger.WithError(err).Error("Failed to create holding")
		respondError(w, http.StatusInternalServerError, "Failed to create holding")
		return
	}
	holding.ID = id

	respondJSON(w, http.StatusCreated, holding)
}

// Update replaces a holding
// PUT /api/holdings/{id}
func (h *HoldingHandler) Update(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFrom(w, r)
	if !ok {
		return
	}
	id := mux.Vars(r)["id"]

	var req HoldingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	holding, err := req.toHolding(owner, id)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.store.Update(r.Context(), holding); err != nil {
		h.logger.WithError(err).Error("Failed to update holding")
		respondError(w, http.StatusNotFound, "Holding not found")
		return
	}

	respondJSON(w, http.StatusOK, holding)
}

// Delete removes a holding
// DELETE /api/holdings/{id}
func (h *HoldingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFrom(w, r)
	if !ok {
		return
	}
	id := mux.Vars(r)["id"]

	if err := h.store.Delete(r.Context(), owner, id); err != nil {
		h.logger.WithError(err).Error("Failed to delete holding")
		respondError(w, http.StatusNotFound, "Holding not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
