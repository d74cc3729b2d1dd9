package service

import (
	"context"
	"fmt"
	"net/http"
	"sort"

	"github.com/okian/genie/internal/adapters/transport"
	"github.com/okian/genie/internal/domain/model"
	"github.com/okian/genie/internal/domain/types"
	"github.com/okian/genie/pkg/logger"
)

// Organic forwards prompt to every solver in one phase and returns the valid
// answer of the highest-weighted responder.
func (s *Service) Organic(ctx context.Context, prompt string) (types.OrganicResult, error) {
	solvers, err := s.registry.Solvers(ctx)
	if err != nil {
		return types.OrganicResult{}, fmt.Errorf("read registry: %w", err)
	}
	if len(solvers) == 0 {
		return types.OrganicResult{}, model.ErrNoMinersAvailable
	}

	endpoints := make([]string, len(solvers))
	for i, sv := range solvers {
		endpoints[i] = sv.Endpoint
	}

	ctx, span := s.tracer.Start(ctx, "organic")
	defer span.End()
	responses := s.transport.Forward(ctx, endpoints, transport.ForwardRequest{Prompt: prompt}, s.taskTimeout)

	candidates := make([]types.OrganicResult, 0, len(solvers))
	for i, r := range responses {
		if r.StatusCode != http.StatusOK {
			continue
		}
		w, _ := s.ledger.Weight(solvers[i].ID)
		candidates = append(candidates, types.OrganicResult{SolverID: solvers[i].ID, Weight: w, Payload: r.Payload})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Weight != candidates[j].Weight {
			return candidates[i].Weight > candidates[j].Weight
		}
		return candidates[i].SolverID < candidates[j].SolverID
	})

	for _, c := range candidates {
		markup, err := s.verifier.Validate(ctx, c.Payload)
		if err != nil {
			s.logger.Debug(ctx, "organic answer rejected", logger.String("solver_id", c.SolverID), logger.Error(err))
			continue
		}
		c.Payload = markup
		return c, nil
	}
	return types.OrganicResult{}, ErrNoValidResponse
}

// Weights renders the ledger for the current session.
func (s *Service) Weights(ctx context.Context) (types.WeightVector, error) {
	b, err := s.block(ctx)
	if err != nil {
		return types.WeightVector{}, err
	}
	return s.ledger.Render(s.scheduler.SessionNumber(b)), nil
}

// Weight returns one solver's row of the rendered vector.
func (s *Service) Weight(ctx context.Context, solverID string) (types.WeightEntry, error) {
	vec, err := s.Weights(ctx)
	if err != nil {
		return types.WeightEntry{}, err
	}
	for _, e := range vec.Entries {
		if e.SolverID == solverID {
			return e, nil
		}
	}
	return types.WeightEntry{}, fmt.Errorf("%w: %s", model.ErrSolverNotFound, solverID)
}
