package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/okian/genie/internal/adapters/archive"
	"github.com/okian/genie/internal/adapters/chain"
	"github.com/okian/genie/internal/adapters/transport"
	"github.com/okian/genie/internal/domain/model"
	"github.com/okian/genie/internal/domain/reputation"
	"github.com/okian/genie/internal/domain/types"
	"github.com/okian/genie/internal/domain/verify"
	"github.com/okian/genie/pkg/logger"
	"github.com/okian/genie/pkg/metrics"
)

// block reads the clock and refreshes the block and session gauges.
func (s *Service) block(ctx context.Context) (uint64, error) {
	b, err := s.clock.BlockHeight(ctx)
	if err != nil {
		return 0, fmt.Errorf("read block height: %w", err)
	}
	metrics.UpdateBlockHeight(b)
	metrics.UpdateSessionNumber(s.scheduler.SessionNumber(b))
	return b, nil
}

// SynthesizeTask generates one task into the pending queue. It returns false
// when the queue is full.
func (s *Service) SynthesizeTask(ctx context.Context) (model.Task, bool, error) {
	task, ok, err := s.synth.Synthesize(ctx)
	if err != nil {
		return model.Task{}, false, fmt.Errorf("%w: %w", model.ErrUpstreamCallFailure, err)
	}
	return task, ok, nil
}

// QueryMiners runs the commit-reveal protocol for task against every
// registered solver and returns the verified round.
func (s *Service) QueryMiners(ctx context.Context, task model.Task, sessionNumber uint64) (*model.CompetitionRound, error) {
	solvers, err := s.registry.Solvers(ctx)
	if err != nil {
		return nil, fmt.Errorf("read registry: %w", err)
	}
	if len(solvers) == 0 {
		return nil, model.ErrNoMinersAvailable
	}
	if task.Timeout <= 0 {
		task.Timeout = s.taskTimeout
	}

	round := model.NewRound(task, sessionNumber)
	endpoints := make([]string, len(solvers))
	for i, sv := range solvers {
		endpoints[i] = sv.Endpoint
	}

	// Commit phase.
	commitCtx, span := s.tracer.Start(ctx, "commit")
	span.SetAttributes(attribute.String("task_id", task.ID), attribute.Int("solvers", len(solvers)))
	commitStart := s.now()
	commits := s.transport.Commit(commitCtx, endpoints, transport.NewCommitRequest(task), task.Timeout)
	span.End()
	metrics.RecordPhaseLatency("commit", float64(s.now().Sub(commitStart).Milliseconds()))
	if err := round.Transition(model.RoundQueried); err != nil {
		return round, err
	}

	// Nobody sees the reveal request before the commit deadline has passed.
	wait := task.Timeout - s.now().Sub(commitStart)
	if wait < 0 {
		wait = 0
	}
	wait += s.revealDelay
	if err := round.Transition(model.RoundAwaitingReveal); err != nil {
		return round, err
	}
	if err := s.sleep(ctx, wait); err != nil {
		_ = round.Transition(model.RoundDiscarded)
		metrics.RecordRoundDiscarded("cancelled")
		return round, err
	}

	// Reveal phase, only for solvers that committed.
	committed := make([]int, 0, len(solvers))
	revealEndpoints := make([]string, 0, len(solvers))
	for i, c := range commits {
		if c.StatusCode == http.StatusOK {
			committed = append(committed, i)
			revealEndpoints = append(revealEndpoints, endpoints[i])
		}
	}
	reveals := make([]verify.Response, len(solvers))
	for i := range reveals {
		reveals[i].StatusCode = http.StatusNotFound
	}
	if len(revealEndpoints) > 0 {
		revealCtx, span := s.tracer.Start(ctx, "reveal")
		span.SetAttributes(attribute.String("task_id", task.ID), attribute.Int("solvers", len(revealEndpoints)))
		revealStart := s.now()
		got := s.transport.Reveal(revealCtx, revealEndpoints, transport.RevealRequest{TaskID: task.ID}, s.revealTimeout)
		span.End()
		metrics.RecordPhaseLatency("reveal", float64(s.now().Sub(revealStart).Milliseconds()))
		for j, i := range committed {
			reveals[i] = got[j]
		}
	}

	for i, sv := range solvers {
		sol, err := s.verifier.Verify(ctx, sv.ID, commits[i], reveals[i])
		if err != nil {
			metrics.RecordSolutionRejected(rejectReason(err))
			s.logger.Debug(ctx, "solution rejected",
				logger.String("task_id", task.ID),
				logger.String("solver_id", sv.ID),
				logger.Error(err),
			)
			continue
		}
		if err := round.AddSolution(sol); err != nil {
			metrics.RecordSolutionRejected("duplicate")
			continue
		}
		metrics.RecordSolutionAccepted()
	}

	if err := round.Transition(model.RoundVerified); err != nil {
		return round, err
	}
	metrics.RecordRoundQueried()
	s.logger.Info(ctx, "round queried",
		logger.String("task_id", task.ID),
		logger.Uint64("session", sessionNumber),
		logger.Int("solvers", len(solvers)),
		logger.Int("solutions", len(round.Solutions)),
	)
	return round, nil
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, model.ErrTransportTimeout):
		return "timeout"
	case errors.Is(err, verify.ErrAbsent):
		return "absent"
	case errors.Is(err, model.ErrHashMismatch):
		return "hash_mismatch"
	case errors.Is(err, model.ErrInvalidPayload):
		return "invalid_payload"
	default:
		return "other"
	}
}

// Score scores a verified round and folds it into the ledger. A round from an
// earlier session is discarded with ErrStaleSession.
func (s *Service) Score(ctx context.Context, round *model.CompetitionRound) error {
	b, err := s.block(ctx)
	if err != nil {
		return err
	}
	current := s.scheduler.SessionNumber(b)
	if round.SessionNumber != current {
		_ = round.Transition(model.RoundDiscarded)
		metrics.RecordRoundDiscarded("stale")
		return fmt.Errorf("%w: round session %d, current %d", model.ErrStaleSession, round.SessionNumber, current)
	}
	if len(round.Solutions) == 0 {
		_ = round.Transition(model.RoundDiscarded)
		metrics.RecordRoundDiscarded("no_solutions")
		return nil
	}

	ctx, span := s.tracer.Start(ctx, "score")
	defer span.End()
	span.SetAttributes(attribute.String("task_id", round.Task.ID), attribute.String("kind", string(round.Kind)))

	start := s.now()
	scores, err := s.scorer.CalculateScores(ctx, round)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		_ = round.Transition(model.RoundDiscarded)
		metrics.RecordRoundDiscarded("scoring_error")
		return fmt.Errorf("%w: %w", model.ErrUpstreamCallFailure, err)
	}
	metrics.RecordScoringLatency(float64(s.now().Sub(start).Milliseconds()))

	ledgerErr := s.ledger.UpdateScores(ctx, scores.SolverIDs, scores.Aggregated, round.SessionNumber)
	if ledgerErr != nil && !errors.Is(ledgerErr, reputation.ErrPersist) {
		span.SetStatus(codes.Error, ledgerErr.Error())
		_ = round.Transition(model.RoundDiscarded)
		metrics.RecordRoundDiscarded("ledger_rejected")
		return fmt.Errorf("update ledger: %w", ledgerErr)
	}
	// A failed save still leaves the in-memory ledger updated.
	if err := round.Transition(model.RoundScored); err != nil {
		return err
	}
	metrics.RecordRoundScored()

	if err := s.archiver.Archive(ctx, archive.NewRecord(round, scores, s.now())); err != nil {
		metrics.RecordArchiveError()
		s.logger.Warn(ctx, "archive failed", logger.String("task_id", round.Task.ID), logger.Error(err))
	}

	s.logger.Info(ctx, "round scored",
		logger.String("task_id", round.Task.ID),
		logger.String("kind", string(round.Kind)),
		logger.Int("solutions", len(scores.SolverIDs)),
		logger.Uint64("ledgerVersion", s.ledger.Version()),
	)
	if ledgerErr != nil {
		span.SetStatus(codes.Error, ledgerErr.Error())
		return fmt.Errorf("update ledger: %w", ledgerErr)
	}
	return nil
}

// SetWeights publishes the current weight vector if the publication window is
// open. Publishing the same ledger version twice in one session is skipped,
// so repeated calls return the same vector and publish it once.
func (s *Service) SetWeights(ctx context.Context) (types.WeightVector, bool, error) {
	b, err := s.block(ctx)
	if err != nil {
		return types.WeightVector{}, false, err
	}
	if !s.scheduler.PublishWindow(b).Active {
		return types.WeightVector{}, false, ErrOutsidePublishWindow
	}
	return s.publish(ctx, s.scheduler.SessionNumber(b))
}

func (s *Service) publish(ctx context.Context, sessionNumber uint64) (types.WeightVector, bool, error) {
	vec := s.ledger.Render(sessionNumber)
	if len(vec.Entries) == 0 || s.ledger.IsPublished(vec.Version, sessionNumber) {
		return vec, false, nil
	}

	ctx, span := s.tracer.Start(ctx, "publish")
	defer span.End()
	span.SetAttributes(attribute.Int64("version", int64(vec.Version)), attribute.Int("entries", len(vec.Entries)))

	if err := s.publisher.Publish(ctx, vec); err != nil {
		span.SetStatus(codes.Error, err.Error())
		metrics.RecordPublicationError()
		if !errors.Is(err, model.ErrPublicationFailure) {
			err = fmt.Errorf("%w: %w", model.ErrPublicationFailure, err)
		}
		return vec, false, err
	}
	if err := s.ledger.MarkPublished(ctx, vec.Version, sessionNumber); err != nil {
		s.logger.Warn(ctx, "persist publication marker", logger.Error(err))
	}
	metrics.RecordWeightsPublished()
	s.logger.Info(ctx, "weights set",
		logger.Uint64("version", vec.Version),
		logger.Uint64("session", sessionNumber),
		logger.Int("entries", len(vec.Entries)),
	)
	return vec, true, nil
}

// SyncRegistry prunes ledger entries of solvers that left the registry.
// An empty registry is treated as a read glitch and prunes nothing.
func (s *Service) SyncRegistry(ctx context.Context) (int, error) {
	solvers, err := s.registry.Solvers(ctx)
	if err != nil {
		return 0, fmt.Errorf("read registry: %w", err)
	}
	if len(solvers) == 0 {
		s.logger.Warn(ctx, "registry returned no solvers; skipping prune")
		return 0, nil
	}
	ids := make([]string, len(solvers))
	for i, sv := range solvers {
		ids[i] = sv.ID
	}
	removed, err := s.ledger.Prune(ctx, ids)
	if err != nil {
		return removed, err
	}
	if removed > 0 {
		s.logger.Info(ctx, "pruned departed solvers",
			logger.Int("removed", removed),
			logger.Int("remaining", s.ledger.Len()),
		)
	}
	return removed, nil
}

// Loop steps.

func (s *Service) synthesizeStep(ctx context.Context) (time.Duration, error) {
	_, ok, err := s.SynthesizeTask(ctx)
	if err != nil {
		return 0, err
	}
	if !ok {
		return s.idleDelay, nil
	}
	return 0, nil
}

func (s *Service) queryStep(ctx context.Context) (time.Duration, error) {
	b, err := s.block(ctx)
	if err != nil {
		return 0, err
	}
	index, err := s.registry.Index(ctx, s.hotkey)
	if err != nil {
		return 0, fmt.Errorf("read evaluator index: %w", err)
	}
	w := s.scheduler.QueryWindow(b, index)
	if !w.Active {
		return s.scheduler.Duration(w.SleepBlocks), nil
	}

	// A round that could not be queued for scoring would be wasted solver work.
	if s.scoring.Full(ctx) {
		return s.idleDelay, nil
	}
	task, ok := s.pending.TryDequeue(ctx)
	if !ok {
		return s.idleDelay, nil
	}

	round, err := s.QueryMiners(ctx, task, s.scheduler.SessionNumber(b))
	if errors.Is(err, model.ErrNoMinersAvailable) {
		metrics.RecordRoundDiscarded("no_miners")
		s.logger.Warn(ctx, "no solvers registered; task dropped", logger.String("task_id", task.ID))
		return s.idleDelay, nil
	}
	if err != nil {
		return 0, err
	}
	if err := s.scoring.Enqueue(ctx, round); err != nil {
		_ = round.Transition(model.RoundDiscarded)
		metrics.RecordRoundDiscarded("scoring_queue_full")
		s.logger.Warn(ctx, "round dropped", logger.String("task_id", task.ID), logger.Error(err))
	}
	return 0, nil
}

func (s *Service) scoreStep(ctx context.Context) (time.Duration, error) {
	round, ok := s.scoring.TryDequeue(ctx)
	if !ok {
		return s.idleDelay, nil
	}
	err := s.Score(ctx, round)
	if errors.Is(err, model.ErrStaleSession) {
		s.logger.Info(ctx, "stale round discarded", logger.String("task_id", round.Task.ID), logger.Error(err))
		return 0, nil
	}
	return 0, err
}

func (s *Service) publishStep(ctx context.Context) (time.Duration, error) {
	b, err := s.block(ctx)
	if err != nil {
		return 0, err
	}
	w := s.scheduler.PublishWindow(b)
	if !w.Active {
		return s.scheduler.Duration(w.SleepBlocks), nil
	}
	if _, _, err := s.publish(ctx, s.scheduler.SessionNumber(b)); err != nil {
		// Retried in the next window.
		s.logger.Error(ctx, "set weights failed", logger.Error(err))
	}
	return s.scheduler.Duration(w.End - b), nil
}

func (s *Service) syncStep(ctx context.Context) (time.Duration, error) {
	if _, err := s.SyncRegistry(ctx); err != nil {
		return s.syncInterval, err
	}
	return s.syncInterval, nil
}

// Solvers returns the registered solvers.
func (s *Service) Solvers(ctx context.Context) ([]chain.Solver, error) {
	return s.registry.Solvers(ctx)
}
