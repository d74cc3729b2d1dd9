package chain

import (
	"context"
	"slices"
	"sort"
	"sync"
)

// StaticRegistry is an in-process registry seeded from configuration.
// It can be replaced wholesale, which is how resyncs are simulated.
type StaticRegistry struct {
	mu         sync.RWMutex
	solvers    []Solver
	evaluators []string
}

// NewStaticRegistry creates a registry from id -> endpoint and an ordered evaluator list.
func NewStaticRegistry(solvers map[string]string, evaluators []string) (*StaticRegistry, error) {
	if len(evaluators) == 0 {
		return nil, ErrEmptyRegistry
	}
	r := &StaticRegistry{}
	r.SetSolvers(solvers)
	r.evaluators = slices.Clone(evaluators)
	return r, nil
}

// SetSolvers replaces the solver set.
func (r *StaticRegistry) SetSolvers(solvers map[string]string) {
	list := make([]Solver, 0, len(solvers))
	for id, endpoint := range solvers {
		list = append(list, Solver{ID: id, Endpoint: endpoint})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })

	r.mu.Lock()
	r.solvers = list
	r.mu.Unlock()
}

// SetEvaluators replaces the evaluator order.
func (r *StaticRegistry) SetEvaluators(evaluators []string) {
	r.mu.Lock()
	r.evaluators = slices.Clone(evaluators)
	r.mu.Unlock()
}

func (r *StaticRegistry) Solvers(ctx context.Context) ([]Solver, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.solvers), nil
}

func (r *StaticRegistry) Evaluators(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.evaluators), nil
}

func (r *StaticRegistry) Index(ctx context.Context, hotkey string) (int, error) {
	if err := ctx.Err(); err != nil {
		return -1, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Index(r.evaluators, hotkey), nil
}
