// Package types contains common types used across the application
package types

// WeightEntry represents one row of the rendered weight vector.
type WeightEntry struct {
	Rank               int     `json:"rank"`
	SolverID           string  `json:"solver_id"`
	Weight             float64 `json:"weight"`
	LastUpdatedSession uint64  `json:"last_updated_session"`
}

// WeightVector is a published weight vector tagged with the ledger version it was rendered from.
type WeightVector struct {
	Version uint64        `json:"version"`
	Session uint64        `json:"session"`
	Entries []WeightEntry `json:"entries"`
}

// Weights returns the weights keyed by solver id.
func (v WeightVector) Weights() map[string]float64 {
	out := make(map[string]float64, len(v.Entries))
	for _, e := range v.Entries {
		out[e.SolverID] = e.Weight
	}
	return out
}

// OrganicResult is the answer served for an organic query.
type OrganicResult struct {
	SolverID string  `json:"solver_id"`
	Weight   float64 `json:"weight"`
	Payload  string  `json:"payload"`
}
