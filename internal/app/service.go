// Package service wires the evaluator pipeline: synthesis, commit-reveal
// querying, scoring, reputation and weight publication. It also implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/okian/genie/internal/adapters/archive"
	"github.com/okian/genie/internal/adapters/chain"
	"github.com/okian/genie/internal/adapters/mq/queue"
	"github.com/okian/genie/internal/adapters/mq/worker"
	"github.com/okian/genie/internal/adapters/transport"
	"github.com/okian/genie/internal/domain/model"
	"github.com/okian/genie/internal/domain/reputation"
	"github.com/okian/genie/internal/domain/scoring"
	"github.com/okian/genie/internal/domain/session"
	"github.com/okian/genie/internal/domain/synth"
	"github.com/okian/genie/internal/domain/verify"
	"github.com/okian/genie/pkg/logger"
	"github.com/okian/genie/pkg/tracing"
)

// Queue and loop names, also used as metric labels.
const (
	pendingQueueName = "pending_tasks"
	scoringQueueName = "pending_scoring"

	loopSynthesize = "synthesize"
	loopQuery      = "query"
	loopScore      = "score"
	loopPublish    = "publish"
	loopSync       = "registry_sync"
)

// Default service configuration constants.
const (
	defaultPendingSize   = 10
	defaultScoringSize   = 10
	defaultRevealDelay   = 5 * time.Second
	defaultRevealTimeout = 30 * time.Second
	defaultTaskTimeout   = 60 * time.Second
	defaultSyncInterval  = time.Minute
	defaultIdleDelay     = time.Second
	defaultSynthesisRate = 1.0
)

// Transport fans calls out to solver endpoints. Results are index-aligned
// with endpoints.
type Transport interface {
	Commit(ctx context.Context, endpoints []string, req transport.CommitRequest, timeout time.Duration) []verify.Response
	Reveal(ctx context.Context, endpoints []string, req transport.RevealRequest, timeout time.Duration) []verify.Response
	Forward(ctx context.Context, endpoints []string, req transport.ForwardRequest, timeout time.Duration) []verify.Response
}

// Verifier checks commit/reveal pairs and single payloads.
type Verifier interface {
	Verify(ctx context.Context, solverID string, commit, reveal verify.Response) (model.Solution, error)
	Validate(ctx context.Context, payload string) (string, error)
}

// Scorer scores a verified round.
type Scorer interface {
	CalculateScores(ctx context.Context, round *model.CompetitionRound) (model.ScoreRound, error)
}

type generatorWeight struct {
	gen    synth.Generator
	weight float64
}

// Service is one evaluator node.
type Service struct {
	mu sync.RWMutex

	// Collaborators
	clock     chain.Clock
	registry  chain.Registry
	scheduler *session.Scheduler
	transport Transport
	verifier  Verifier
	scorer    Scorer
	ledger    *reputation.Ledger
	publisher chain.Publisher
	archiver  archive.Archiver

	// Pipeline
	synth   *synth.Synthesizer
	pending *queue.InMemoryQueue[model.Task]
	scoring *queue.InMemoryQueue[*model.CompetitionRound]
	pool    *worker.Pool
	cancel  context.CancelFunc

	// Configuration
	hotkey        string
	revealDelay   time.Duration
	revealTimeout time.Duration
	taskTimeout   time.Duration
	syncInterval  time.Duration
	idleDelay     time.Duration
	pendingSize   int
	scoringSize   int
	synthesisRate float64
	generators    []generatorWeight

	// State
	started bool

	logger logger.Logger
	tracer trace.Tracer
	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
}

// New constructs a Service. Clock, registry and scheduler are required;
// everything else has a default.
func New(clock chain.Clock, registry chain.Registry, scheduler *session.Scheduler, opts ...Option) (*Service, error) {
	if clock == nil || registry == nil || scheduler == nil {
		return nil, ErrMissingDependency
	}
	s := &Service{
		clock:         clock,
		registry:      registry,
		scheduler:     scheduler,
		revealDelay:   defaultRevealDelay,
		revealTimeout: defaultRevealTimeout,
		taskTimeout:   defaultTaskTimeout,
		syncInterval:  defaultSyncInterval,
		idleDelay:     defaultIdleDelay,
		pendingSize:   defaultPendingSize,
		scoringSize:   defaultScoringSize,
		synthesisRate: defaultSynthesisRate,
		now:           time.Now,
		sleep:         sleepCtx,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("evaluator")
	}
	if s.transport == nil {
		s.transport = transport.NewClient(transport.WithHotkey(s.hotkey))
	}
	if s.verifier == nil {
		s.verifier = verify.NewEngine()
	}
	if s.scorer == nil {
		s.scorer = scoring.NewScorer(scoring.WithMetrics(
			scoring.VisualAccuracy(),
			scoring.StructuralQuality(),
			scoring.Discoverability(),
		))
	}
	if s.ledger == nil {
		s.ledger = reputation.NewLedger()
	}
	if s.publisher == nil {
		s.publisher = chain.NewLogPublisher(s.logger.Named("publisher"))
	}
	if s.archiver == nil {
		s.archiver = archive.Nop{}
	}
	s.tracer = tracing.Tracer("github.com/okian/genie/internal/app")

	s.pending = queue.NewInMemoryQueue[model.Task](
		queue.WithCapacity(s.pendingSize),
		queue.WithName(pendingQueueName),
	)
	s.scoring = queue.NewInMemoryQueue[*model.CompetitionRound](
		queue.WithCapacity(s.scoringSize),
		queue.WithName(scoringQueueName),
	)
	s.synth = synth.New(s.pending, synth.WithLogger(s.logger.Named("synth")))
	for _, g := range s.generators {
		if err := s.synth.Register(g.gen, g.weight); err != nil {
			return nil, fmt.Errorf("register generator: %w", err)
		}
	}
	return s, nil
}

// Start restores the ledger and starts the pipeline loops.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.logger.Info(ctx, "starting evaluator...", logger.String("hotkey", s.hotkey))

	if err := s.ledger.Restore(ctx); err != nil {
		return err
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel

	loopLog := s.logger.Named("loop")
	s.pool = worker.NewPool(
		worker.NewLoop(loopSynthesize, s.synthesizeStep,
			worker.WithRate(s.synthesisRate, 1), worker.WithLogger(loopLog)),
		worker.NewLoop(loopQuery, s.queryStep, worker.WithLogger(loopLog)),
		worker.NewLoop(loopScore, s.scoreStep, worker.WithLogger(loopLog)),
		worker.NewLoop(loopPublish, s.publishStep, worker.WithLogger(loopLog)),
		worker.NewLoop(loopSync, s.syncStep, worker.WithLogger(loopLog)),
	)
	s.pool.Start(loopCtx)

	s.started = true
	s.logger.Info(ctx, "evaluator started",
		logger.Int("loops", s.pool.Len()),
		logger.Int("pendingSize", s.pendingSize),
		logger.Int("scoringSize", s.scoringSize),
		logger.Duration("revealDelay", s.revealDelay),
	)
	return nil
}

// Stop signals the loops and waits for their current iterations, so
// in-flight solver calls finish or time out on their own. The loop context is
// cancelled only after the wait, which matters when ctx expires first.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	s.logger.Info(ctx, "stopping evaluator...")

	err := s.pool.Shutdown(ctx)
	s.cancel()

	_ = s.pending.Close()
	_ = s.scoring.Close()
	if cerr := s.archiver.Close(); cerr != nil {
		s.logger.Warn(ctx, "archive close failed", logger.Error(cerr))
	}

	s.started = false
	s.logger.Info(ctx, "evaluator stopped")
	return err
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":         started,
		"hotkey":          s.hotkey,
		"pendingTasks":    s.pending.Len(ctx),
		"pendingCapacity": s.pending.Capacity(),
		"pendingRounds":   s.scoring.Len(ctx),
		"scoringCapacity": s.scoring.Capacity(),
		"ledgerEntries":   s.ledger.Len(),
		"ledgerVersion":   s.ledger.Version(),
	}
	if block, err := s.clock.BlockHeight(ctx); err == nil {
		stats["block"] = block
		stats["session"] = s.scheduler.SessionNumber(block)
		stats["kind"] = string(s.scheduler.Kind(s.scheduler.SessionNumber(block)))
	}
	return stats
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
