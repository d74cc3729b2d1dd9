// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/okian/genie/internal/domain/types"
)

// Dependencies required by HTTP handlers.
type Dependencies interface {
	WeightsDependencies
	OrganicDependencies
}

// Read shapes returned by the API.
type (
	WeightVector  = types.WeightVector
	WeightEntry   = types.WeightEntry
	OrganicResult = types.OrganicResult
)

// Server wires HTTP routes for the evaluator API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	weightsHandler *WeightsHandler
	organicHandler *OrganicHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(statsProvider),
		weightsHandler: NewWeightsHandler(deps),
		organicHandler: NewOrganicHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", Instrument(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", Instrument(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/weights", Instrument(s.weightsHandler.HandleGetWeights, "weights"))
	mux.HandleFunc("/weights/", Instrument(s.weightsHandler.HandleGetWeight, "weight"))
	mux.HandleFunc("/organic", Instrument(s.organicHandler.HandlePostOrganic, "organic"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
