// Package solver is a reference solver node. It answers commit, reveal and
// forward calls with markup produced by a Model.
package solver

import (
	"context"
	"fmt"
	"strings"

	"github.com/okian/genie/internal/adapters/transport"
	"github.com/okian/genie/internal/domain/commitstore"
	"github.com/okian/genie/internal/domain/verify"
	"github.com/okian/genie/pkg/logger"
)

// Model turns a base64 screenshot into markup.
type Model interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Behaviour selects how the solver takes part in the protocol.
type Behaviour string

const (
	// Honest commits to its answer and reveals it unchanged.
	Honest Behaviour = "honest"
	// Silent never answers.
	Silent Behaviour = "silent"
	// SkipCommit refuses the commit phase but answers the reveal.
	SkipCommit Behaviour = "skip-commit"
	// Mismatch reveals something other than what it committed to.
	Mismatch Behaviour = "mismatch"
	// Malformed commits to and reveals markup that fails validation.
	Malformed Behaviour = "malformed"
)

// Behaviours returns every supported behaviour.
func Behaviours() []Behaviour {
	return []Behaviour{Honest, Silent, SkipCommit, Mismatch, Malformed}
}

// ParseBehaviour maps a name to a Behaviour.
func ParseBehaviour(s string) (Behaviour, error) {
	b := Behaviour(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Behaviours() {
		if b == known {
			return b, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownBehaviour, s)
}

const malformedMarkup = `<img src="screenshot.png">`

// Miner implements transport.Handler.
type Miner struct {
	model     Model
	store     commitstore.Store
	behaviour Behaviour
	logger    logger.Logger
}

var _ transport.Handler = (*Miner)(nil)

// New creates a Miner around model.
func New(model Model, opts ...Option) *Miner {
	m := &Miner{model: model, behaviour: Honest}
	for _, opt := range opts {
		opt(m)
	}
	if m.store == nil {
		m.store = commitstore.NewInMemoryStore()
	}
	if m.logger == nil {
		m.logger = logger.Get().Named("solver")
	}
	return m
}

// Behaviour returns the configured behaviour.
func (m *Miner) Behaviour() Behaviour { return m.behaviour }

// Commit generates an answer, stores it and returns its digest.
func (m *Miner) Commit(ctx context.Context, req transport.CommitRequest) (transport.CommitResponse, error) {
	switch m.behaviour {
	case Silent:
		<-ctx.Done()
		return transport.CommitResponse{}, ctx.Err()
	case SkipCommit:
		return transport.CommitResponse{}, transport.ErrUnavailable
	}

	if answer, ok := m.store.Get(ctx, req.TaskID); ok {
		return transport.CommitResponse{TaskID: req.TaskID, Digest: verify.Digest(answer)}, nil
	}

	answer, err := m.answer(ctx, req.Prompt)
	if err != nil {
		return transport.CommitResponse{}, err
	}
	if !m.store.Put(ctx, req.TaskID, answer) {
		// A concurrent commit for the same task won; its answer is the binding one.
		answer, _ = m.store.Get(ctx, req.TaskID)
	}
	m.logger.Debug(ctx, "committed",
		logger.String("task_id", req.TaskID),
		logger.String("behaviour", string(m.behaviour)),
	)
	return transport.CommitResponse{TaskID: req.TaskID, Digest: verify.Digest(answer)}, nil
}

// Reveal returns the committed answer.
func (m *Miner) Reveal(ctx context.Context, req transport.RevealRequest) (transport.RevealResponse, error) {
	switch m.behaviour {
	case Silent:
		<-ctx.Done()
		return transport.RevealResponse{}, ctx.Err()
	case SkipCommit:
		return transport.RevealResponse{TaskID: req.TaskID, Payload: "<p>late answer</p>"}, nil
	}

	answer, ok := m.store.Take(ctx, req.TaskID)
	if !ok {
		return transport.RevealResponse{}, fmt.Errorf("%w: %s", transport.ErrNotCommitted, req.TaskID)
	}
	if m.behaviour == Mismatch {
		answer += "\n<!-- revised -->"
	}
	return transport.RevealResponse{TaskID: req.TaskID, Payload: answer}, nil
}

// Forward answers an organic query directly.
func (m *Miner) Forward(ctx context.Context, req transport.ForwardRequest) (transport.ForwardResponse, error) {
	if m.behaviour == Silent {
		<-ctx.Done()
		return transport.ForwardResponse{}, ctx.Err()
	}
	answer, err := m.answer(ctx, req.Prompt)
	if err != nil {
		return transport.ForwardResponse{}, err
	}
	return transport.ForwardResponse{Payload: answer}, nil
}

func (m *Miner) answer(ctx context.Context, prompt string) (string, error) {
	if m.behaviour == Malformed {
		return malformedMarkup, nil
	}
	out, err := m.model.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	return out, nil
}

// StaticModel always answers with the same markup.
type StaticModel string

// Generate returns the markup.
func (s StaticModel) Generate(ctx context.Context, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return string(s), nil
}
