// Package chain provides the block clock, the peer registry and the weight
// publisher the evaluator coordinates through.
package chain

import (
	"context"
	"time"

	"github.com/okian/genie/internal/domain/types"
)

// Clock supplies the shared block height.
type Clock interface {
	BlockHeight(ctx context.Context) (uint64, error)
}

// Solver is a registered solver identity and its endpoint.
type Solver struct {
	ID       string `json:"id"`
	Endpoint string `json:"endpoint"`
}

// Registry lists active solvers and evaluators.
type Registry interface {
	// Solvers returns the active solvers ordered by id.
	Solvers(ctx context.Context) ([]Solver, error)
	// Evaluators returns the ordered evaluator hotkeys.
	Evaluators(ctx context.Context) ([]string, error)
	// Index returns the ordinal of hotkey among evaluators, or -1.
	Index(ctx context.Context, hotkey string) (int, error)
}

// Publisher pushes a rendered weight vector to the network.
type Publisher interface {
	Publish(ctx context.Context, v types.WeightVector) error
}

// WallClock derives block height from a genesis time and a fixed block interval.
type WallClock struct {
	genesis  time.Time
	interval time.Duration
	now      func() time.Time
}

// NewWallClock creates a WallClock. A zero genesis means the clock starts now.
func NewWallClock(genesis time.Time, interval time.Duration) (*WallClock, error) {
	if interval <= 0 {
		return nil, ErrInvalidInterval
	}
	if genesis.IsZero() {
		genesis = time.Now()
	}
	return &WallClock{genesis: genesis, interval: interval, now: time.Now}, nil
}

// BlockHeight returns the number of whole intervals since genesis.
func (c *WallClock) BlockHeight(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	elapsed := c.now().Sub(c.genesis)
	if elapsed < 0 {
		return 0, nil
	}
	return uint64(elapsed / c.interval), nil
}
