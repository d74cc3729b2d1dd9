package service_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/okian/genie/internal/adapters/chain"
	"github.com/okian/genie/internal/adapters/transport"
	"github.com/okian/genie/internal/domain/model"
	"github.com/okian/genie/internal/domain/reputation"
	"github.com/okian/genie/internal/domain/session"
	"github.com/okian/genie/internal/domain/types"
	"github.com/okian/genie/internal/domain/verify"
	"github.com/okian/genie/internal/solver"
	"github.com/okian/genie/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	gin.SetMode(gin.TestMode)
}

const honestPage = "<main><h1>Bakery</h1><p>Fresh bread daily</p></main>"

// Session window 10, publish window is the last 5 blocks.
func testScheduler(t *testing.T) *session.Scheduler {
	t.Helper()
	s, err := session.New(session.Params{
		SessionWindowBlocks:      10,
		MaxEvaluators:            1,
		PerEvaluatorPeriodBlocks: 4,
		SetWeightsPeriodBlocks:   5,
		BlockDuration:            time.Second,
	})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

type fakeClock struct{ block atomic.Uint64 }

func (c *fakeClock) BlockHeight(context.Context) (uint64, error) { return c.block.Load(), nil }

type countingPublisher struct {
	mu    sync.Mutex
	calls []types.WeightVector
	err   error
}

func (p *countingPublisher) Publish(_ context.Context, v types.WeightVector) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.calls = append(p.calls, v)
	return nil
}

func (p *countingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

// timedHandler records when each phase reached a solver.
type timedHandler struct {
	transport.Handler
	mu       sync.Mutex
	commitAt time.Time
	revealAt time.Time
}

func (h *timedHandler) Commit(ctx context.Context, req transport.CommitRequest) (transport.CommitResponse, error) {
	h.mu.Lock()
	h.commitAt = time.Now()
	h.mu.Unlock()
	return h.Handler.Commit(ctx, req)
}

func (h *timedHandler) Reveal(ctx context.Context, req transport.RevealRequest) (transport.RevealResponse, error) {
	h.mu.Lock()
	h.revealAt = time.Now()
	h.mu.Unlock()
	return h.Handler.Reveal(ctx, req)
}

func (h *timedHandler) times() (time.Time, time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.commitAt, h.revealAt
}

// startSolvers serves one solver per behaviour and returns the id -> url map.
func startSolvers(t *testing.T, behaviours map[string]solver.Behaviour) map[string]string {
	t.Helper()
	urls := make(map[string]string, len(behaviours))
	for id, b := range behaviours {
		m := solver.New(solver.StaticModel(honestPage), solver.WithBehaviour(b))
		srv := httptest.NewServer(transport.NewRouter(m, nil))
		t.Cleanup(srv.Close)
		urls[id] = srv.URL
	}
	return urls
}

func testTask(id string) model.Task {
	return model.Task{
		ID:          id,
		Source:      "synthetic",
		GroundTruth: "<main><h1>Bakery</h1><p>Fresh bread daily</p></main>",
		Prompt:      "aW1n",
		Timeout:     150 * time.Millisecond,
		CreatedAt:   time.Now(),
	}
}

func newRegistry(t *testing.T, solvers map[string]string) *chain.StaticRegistry {
	t.Helper()
	r, err := chain.NewStaticRegistry(solvers, []string{"evaluator-0"})
	if err != nil {
		t.Fatal(err)
	}
	return r
}

// slowTransport answers every call with 408 once the call's timeout elapses,
// noting whether the caller's context was cancelled first.
type slowTransport struct {
	mu        sync.Mutex
	calls     int
	cancelled bool
	started   chan struct{}
	once      sync.Once
}

func (f *slowTransport) wait(ctx context.Context, n int, timeout time.Duration) []verify.Response {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	f.once.Do(func() {
		if f.started != nil {
			close(f.started)
		}
	})

	select {
	case <-ctx.Done():
		f.mu.Lock()
		f.cancelled = true
		f.mu.Unlock()
	case <-time.After(timeout):
	}
	out := make([]verify.Response, n)
	for i := range out {
		out[i].StatusCode = http.StatusRequestTimeout
	}
	return out
}

func (f *slowTransport) Commit(ctx context.Context, endpoints []string, _ transport.CommitRequest, timeout time.Duration) []verify.Response {
	return f.wait(ctx, len(endpoints), timeout)
}

func (f *slowTransport) Reveal(ctx context.Context, endpoints []string, _ transport.RevealRequest, timeout time.Duration) []verify.Response {
	return f.wait(ctx, len(endpoints), timeout)
}

func (f *slowTransport) Forward(ctx context.Context, endpoints []string, _ transport.ForwardRequest, timeout time.Duration) []verify.Response {
	return f.wait(ctx, len(endpoints), timeout)
}

func (f *slowTransport) state() (int, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls, f.cancelled
}

type failingStore struct{}

func (failingStore) Load(context.Context) (reputation.Snapshot, error) {
	return reputation.Snapshot{}, reputation.ErrNoSnapshot
}

func (failingStore) Save(context.Context, reputation.Snapshot) error {
	return errors.New("disk full")
}
