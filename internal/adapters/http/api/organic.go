package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/okian/genie/internal/domain/model"
)

const maxOrganicBody = 8 << 20

// OrganicDependencies answers organic queries.
type OrganicDependencies interface {
	Organic(ctx context.Context, prompt string) (OrganicResult, error)
}

// OrganicHandler serves POST /organic.
type OrganicHandler struct {
	deps OrganicDependencies
}

// NewOrganicHandler creates a new organic handler.
func NewOrganicHandler(deps OrganicDependencies) *OrganicHandler {
	return &OrganicHandler{deps: deps}
}

// organicRequest carries a base64 screenshot.
type organicRequest struct {
	Prompt string `json:"prompt"`
}

// HandlePostOrganic handles POST /organic.
func (h *OrganicHandler) HandlePostOrganic(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", ErrMethodNotAllowed)
		return
	}
	var req organicRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxOrganicBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %v", ErrBadRequest, err))
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: missing prompt", ErrBadRequest))
		return
	}

	res, err := h.deps.Organic(r.Context(), req.Prompt)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, res)
	case errors.Is(err, model.ErrNoMinersAvailable):
		writeError(w, http.StatusServiceUnavailable, "no_solvers", err)
	default:
		writeError(w, http.StatusBadGateway, "no_valid_response", err)
	}
}
