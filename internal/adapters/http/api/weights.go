package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/genie/internal/domain/model"
)

// WeightsDependencies reads the reputation ledger.
type WeightsDependencies interface {
	Weights(ctx context.Context) (WeightVector, error)
	Weight(ctx context.Context, solverID string) (WeightEntry, error)
}

// WeightsHandler serves the rendered weight vector.
type WeightsHandler struct {
	deps WeightsDependencies
}

// NewWeightsHandler creates a new weights handler.
func NewWeightsHandler(deps WeightsDependencies) *WeightsHandler {
	return &WeightsHandler{deps: deps}
}

// HandleGetWeights handles GET /weights.
func (h *WeightsHandler) HandleGetWeights(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", ErrMethodNotAllowed)
		return
	}
	vec, err := h.deps.Weights(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, vec)
}

// HandleGetWeight handles GET /weights/{solver_id}.
func (h *WeightsHandler) HandleGetWeight(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", ErrMethodNotAllowed)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/weights/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	entry, err := h.deps.Weight(r.Context(), id)
	if err != nil {
		if errors.Is(err, model.ErrSolverNotFound) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}
