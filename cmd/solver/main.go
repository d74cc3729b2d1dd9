// Command solver runs a reference solver node answering commit, reveal and
// forward requests from evaluators.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/genie/internal/adapters/transport"
	"github.com/okian/genie/internal/domain/commitstore"
	"github.com/okian/genie/internal/solver"
	"github.com/okian/genie/pkg/logger"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
	defaultStoreSize  = 1_024

	defaultMarkup = `<!doctype html><html><head><title>page</title></head><body><main><h1>page</h1><img src="rick.jpg" alt="placeholder"></main></body></html>`
)

type options struct {
	addr      string
	behaviour string
	logLevel  string
	apiKey    string
	baseURL   string
	model     string
	static    string
	storeSize int
}

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "solver",
		Short: "Run a reference solver node",
		Long: `solver serves /commit, /reveal and /forward for evaluators.
Answers come from an OpenAI-compatible model when an API key is set and
from static markup otherwise. --behaviour makes the node misbehave on purpose.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, opts)
		},
	}

	f := root.Flags()
	f.StringVar(&opts.addr, "addr", ":8091", "listen address")
	f.StringVar(&opts.behaviour, "behaviour", string(solver.Honest), "protocol behaviour: honest, silent, skip-commit, mismatch, malformed")
	f.StringVar(&opts.logLevel, "log-level", "info", "log level")
	f.StringVar(&opts.apiKey, "api-key", os.Getenv("OPENAI_API_KEY"), "API key for the model endpoint")
	f.StringVar(&opts.baseURL, "base-url", "", "OpenAI-compatible base URL")
	f.StringVar(&opts.model, "model", "", "model name")
	f.StringVar(&opts.static, "static", defaultMarkup, "markup answered when no API key is set")
	f.IntVar(&opts.storeSize, "store-size", defaultStoreSize, "maximum pending commitments")

	root.AddCommand(&cobra.Command{
		Use:   "behaviours",
		Short: "List supported behaviours",
		Run: func(cmd *cobra.Command, _ []string) {
			for _, b := range solver.Behaviours() {
				cmd.Println(string(b))
			}
		},
	})
	return root
}

func newMiner(opts *options, log logger.Logger) (*solver.Miner, error) {
	behaviour, err := solver.ParseBehaviour(opts.behaviour)
	if err != nil {
		return nil, err
	}

	var model solver.Model = solver.StaticModel(opts.static)
	if opts.apiKey != "" {
		m, err := solver.NewOpenAIModel(solver.OpenAIConfig{APIKey: opts.apiKey, BaseURL: opts.baseURL, Model: opts.model})
		if err != nil {
			return nil, err
		}
		model = m
	}

	return solver.New(model,
		solver.WithBehaviour(behaviour),
		solver.WithStore(commitstore.NewInMemoryStore(commitstore.WithMaxSize(opts.storeSize))),
		solver.WithLogger(log),
	), nil
}

func serve(ctx context.Context, opts *options) error {
	log := logger.Get().Named("solver")
	if err := logger.SetLevelString(opts.logLevel); err != nil {
		log.Warn(ctx, "invalid log level; falling back to info", logger.String("log_level", opts.logLevel))
		_ = logger.SetLevelString("info")
	}

	miner, err := newMiner(opts, log)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              opts.addr,
		Handler:           transport.NewRouter(miner, log),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "solver listening", logger.String("addr", opts.addr), logger.String("behaviour", string(miner.Behaviour())))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
