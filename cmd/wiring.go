package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/okian/genie/internal/adapters/archive"
	"github.com/okian/genie/internal/adapters/chain"
	"github.com/okian/genie/internal/adapters/repository"
	"github.com/okian/genie/internal/adapters/transport"
	service "github.com/okian/genie/internal/app"
	"github.com/okian/genie/internal/config"
	"github.com/okian/genie/internal/domain/reputation"
	"github.com/okian/genie/internal/domain/scoring"
	"github.com/okian/genie/internal/domain/session"
	"github.com/okian/genie/internal/domain/synth"
	"github.com/okian/genie/internal/domain/verify"
	"github.com/okian/genie/pkg/logger"
)

const (
	publishTimeout      = 30 * time.Second
	remoteMetricTimeout = 60 * time.Second
	resourceTimeout     = 5 * time.Second
)

// dependencies holds the collaborators built from configuration.
type dependencies struct {
	clock     chain.Clock
	registry  *chain.StaticRegistry
	scheduler *session.Scheduler
	store     *repository.Store
	ledger    *reputation.Ledger
	transport *transport.Client
	verifier  *verify.Engine
	scorer    *scoring.Scorer
	publisher chain.Publisher
	archiver  archive.Archiver
	generator synth.Generator
}

func buildDependencies(cfg *config.Config, log logger.Logger) (*dependencies, error) {
	d := &dependencies{}

	clock, err := chain.NewWallClock(time.Unix(cfg.GenesisUnix, 0), cfg.BlockDuration())
	if err != nil {
		return nil, err
	}
	d.clock = clock

	// Solvers may be empty at boot; the sync loop picks them up later.
	d.registry, err = chain.NewStaticRegistry(cfg.Solvers, cfg.Evaluators)
	if err != nil {
		return nil, err
	}
	if idx, _ := d.registry.Index(context.Background(), cfg.Hotkey); idx < 0 {
		log.Warn(context.Background(), "hotkey not in evaluator list; no query slot", logger.String("hotkey", cfg.Hotkey))
	}

	d.scheduler, err = session.New(session.Params{
		SessionWindowBlocks:      cfg.SessionWindowBlocks,
		MaxEvaluators:            cfg.MaxEvaluators,
		PerEvaluatorPeriodBlocks: cfg.PerEvaluatorPeriodBlocks,
		SetWeightsPeriodBlocks:   cfg.SetWeightsPeriodBlocks,
		BlockDuration:            cfg.BlockDuration(),
	})
	if err != nil {
		return nil, err
	}

	storeCfg := repository.Config{Path: cfg.DataDir, InMemory: cfg.DataDir == "", SyncWrites: true}
	d.store, err = repository.Open(storeCfg, repository.WithLogger(log.Named("repository")))
	if err != nil {
		return nil, err
	}
	d.ledger = reputation.NewLedger(
		reputation.WithDecay(cfg.DecayFactor),
		reputation.WithStore(d.store),
		reputation.WithLogger(log.Named("ledger")),
	)

	d.transport = transport.NewClient(
		transport.WithMaxFanout(cfg.MaxFanout),
		transport.WithHotkey(cfg.Hotkey),
		transport.WithLogger(log.Named("transport")),
	)
	d.verifier = verify.NewEngine(
		verify.WithAllowedPlaceholders(cfg.AllowedPlaceholders...),
		verify.WithResourceChecker(&verify.HTTPChecker{Timeout: resourceTimeout}),
	)
	d.scorer = buildScorer(cfg, log)
	d.publisher = buildPublisher(cfg, log)

	d.archiver, err = buildArchiver(cfg)
	if err != nil {
		_ = d.store.Close()
		return nil, err
	}

	d.generator, err = buildGenerator(cfg)
	if err != nil {
		_ = d.archiver.Close()
		_ = d.store.Close()
		return nil, err
	}
	return d, nil
}

func buildScorer(cfg *config.Config, log logger.Logger) *scoring.Scorer {
	metrics := []scoring.Metric{
		scoring.VisualAccuracy(),
		scoring.StructuralQuality(),
		scoring.Discoverability(),
	}
	client := &http.Client{Timeout: remoteMetricTimeout}
	for name, endpoint := range cfg.MetricEndpoints {
		metrics = append(metrics, scoring.NewRemote(name, endpoint, client))
	}
	return scoring.NewScorer(
		scoring.WithWeightsFromConfig(cfg.KindWeights),
		scoring.WithMetrics(metrics...),
		scoring.WithLogger(log.Named("scoring")),
	)
}

func buildPublisher(cfg *config.Config, log logger.Logger) chain.Publisher {
	if cfg.PublishURL != "" {
		return chain.NewHTTPPublisher(cfg.PublishURL, publishTimeout)
	}
	return chain.NewLogPublisher(log.Named("publisher"))
}

func buildArchiver(cfg *config.Config) (archive.Archiver, error) {
	var sinks archive.Multi
	if cfg.ArchiveDir != "" {
		fa, err := archive.NewFileArchiver(cfg.ArchiveDir, cfg.ArchiveRetention)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, fa)
	}
	if cfg.InfluxURL != "" {
		ia, err := archive.NewInfluxArchiver(archive.InfluxConfig{
			URL:    cfg.InfluxURL,
			Token:  cfg.InfluxToken,
			Org:    cfg.InfluxOrg,
			Bucket: cfg.InfluxBucket,
		})
		if err != nil {
			_ = sinks.Close()
			return nil, err
		}
		sinks = append(sinks, ia)
	}
	if len(sinks) == 0 {
		return archive.Nop{}, nil
	}
	return sinks, nil
}

func buildGenerator(cfg *config.Config) (synth.Generator, error) {
	var (
		ds  synth.Dataset
		err error
	)
	if cfg.DatasetDir != "" {
		ds, err = synth.DirDataset(cfg.DatasetDir)
	} else {
		ds, err = synth.BuiltinDataset()
	}
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}
	return synth.NewImageToMarkup(ds, cfg.TaskTimeout()), nil
}

func (d *dependencies) options(cfg *config.Config, log logger.Logger) []service.Option {
	return []service.Option{
		service.WithLogger(log.Named("evaluator")),
		service.WithHotkey(cfg.Hotkey),
		service.WithTransport(d.transport),
		service.WithVerifier(d.verifier),
		service.WithScorer(d.scorer),
		service.WithLedger(d.ledger),
		service.WithPublisher(d.publisher),
		service.WithArchiver(d.archiver),
		service.WithGenerator(d.generator, 1),
		service.WithQueueSizes(cfg.MaxSyntheticTaskSize, cfg.MaxPendingScoringSize),
		service.WithRevealDelay(cfg.RevealDelay()),
		service.WithRevealTimeout(cfg.RevealTimeout()),
		service.WithTaskTimeout(cfg.TaskTimeout()),
		service.WithSynthesisRate(cfg.SynthesisPerSecond),
		service.WithRegistrySync(cfg.RegistrySyncInterval()),
	}
}

// close releases the store. The archiver is closed by Service.Stop.
func (d *dependencies) close(ctx context.Context, log logger.Logger) {
	if err := d.store.Close(); err != nil {
		log.Warn(ctx, "close reputation store", logger.Error(err))
	}
}
