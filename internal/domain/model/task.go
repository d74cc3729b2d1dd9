// Package model contains domain models passed between layers.
package model

import "time"

// Task is a synthetic or organic challenge sent to solvers.
// A Task is immutable once created; ownership moves by queue hand-off only.
type Task struct {
	ID          string        // unique task id
	Source      string        // origin, e.g. "synthetic" or "organic"
	GroundTruth string        // reference markup, empty for organic tasks
	Prompt      string        // base64 encoded screenshot
	Timeout     time.Duration // commit phase timeout
	CreatedAt   time.Time
}

// Solution is a verified solver answer. It is created only after the revealed
// payload matched its commitment and passed structural validation.
type Solution struct {
	SolverID string
	Payload  string
	Latency  time.Duration // commit phase process time reported by transport
}

// ScoreRound holds per-solver metric values for one round. All slices are
// index-aligned with SolverIDs.
type ScoreRound struct {
	Kind       Kind
	SolverIDs  []string
	PerMetric  map[string][]float64
	Aggregated []float64
}

// ReputationEntry is one solver's decayed weight.
type ReputationEntry struct {
	SolverID           string  `json:"solver_id"`
	Weight             float64 `json:"weight"`
	LastUpdatedSession uint64  `json:"last_updated_session"`
}
