// Package reputation keeps the decayed per-solver weights that the evaluator publishes.
package reputation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/okian/genie/internal/domain/model"
	"github.com/okian/genie/internal/domain/types"
	"github.com/okian/genie/pkg/logger"
	"github.com/okian/genie/pkg/metrics"
)

const defaultDecay = 0.9

// Snapshot is the persisted form of a Ledger.
type Snapshot struct {
	Version          uint64                  `json:"version"`
	PublishedVersion uint64                  `json:"published_version"`
	PublishedSession uint64                  `json:"published_session"`
	Published        bool                    `json:"published"`
	Entries          []model.ReputationEntry `json:"entries"`
}

// Store persists ledger snapshots.
type Store interface {
	// Load returns the last saved snapshot or ErrNoSnapshot.
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, s Snapshot) error
}

// Ledger is safe for concurrent use.
type Ledger struct {
	// persistMu orders mutations with their saves; taken before mu.
	persistMu sync.Mutex
	mu        sync.RWMutex
	entries map[string]*model.ReputationEntry
	decay   float64
	version uint64

	published        bool
	publishedVersion uint64
	publishedSession uint64

	store  Store
	logger logger.Logger
}

// NewLedger creates an empty ledger with configuration options.
func NewLedger(opts ...Option) *Ledger {
	l := &Ledger{
		entries: make(map[string]*model.ReputationEntry),
		decay:   defaultDecay,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = logger.Get().Named("reputation")
	}
	return l
}

// Restore replaces the ledger state with the stored snapshot, if any.
func (l *Ledger) Restore(ctx context.Context) error {
	if l.store == nil {
		return nil
	}
	snap, err := l.store.Load(ctx)
	if errors.Is(err, ErrNoSnapshot) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("restore ledger: %w", err)
	}

	l.persistMu.Lock()
	defer l.persistMu.Unlock()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = make(map[string]*model.ReputationEntry, len(snap.Entries))
	for _, e := range snap.Entries {
		entry := e
		l.entries[e.SolverID] = &entry
	}
	l.version = snap.Version
	l.published = snap.Published
	l.publishedVersion = snap.PublishedVersion
	l.publishedSession = snap.PublishedSession
	metrics.UpdateLedgerEntries(len(l.entries))

	l.logger.Info(ctx, "ledger restored",
		logger.Int("entries", len(l.entries)),
		logger.Uint64("version", l.version),
	)
	return nil
}

// UpdateScores folds one round's aggregated scores into the ledger.
// Scores are normalized by their sum, blended with existing weights as
// d*w + (1-d)*s, and all weights are then renormalized to sum to one.
func (l *Ledger) UpdateScores(ctx context.Context, solverIDs []string, aggregated []float64, session uint64) error {
	if len(solverIDs) != len(aggregated) {
		return fmt.Errorf("%w: %d solvers, %d scores", ErrMisaligned, len(solverIDs), len(aggregated))
	}
	if len(solverIDs) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(solverIDs))
	for _, id := range solverIDs {
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: %s", model.ErrDuplicateSolution, id)
		}
		seen[id] = struct{}{}
	}

	normalized := normalize(aggregated)

	return l.commit(ctx, func() bool {
		for i, id := range solverIDs {
			s := normalized[i]
			if e, ok := l.entries[id]; ok {
				e.Weight = l.decay*e.Weight + (1-l.decay)*s
				e.LastUpdatedSession = session
				continue
			}
			l.entries[id] = &model.ReputationEntry{SolverID: id, Weight: s, LastUpdatedSession: session}
		}
		l.renormalizeLocked()
		l.version++
		return true
	})
}

// Prune drops every solver not in active and renormalizes. It returns the
// number of removed entries.
func (l *Ledger) Prune(ctx context.Context, active []string) (int, error) {
	keep := make(map[string]struct{}, len(active))
	for _, id := range active {
		keep[id] = struct{}{}
	}

	removed := 0
	err := l.commit(ctx, func() bool {
		for id := range l.entries {
			if _, ok := keep[id]; !ok {
				delete(l.entries, id)
				removed++
			}
		}
		if removed == 0 {
			return false
		}
		l.renormalizeLocked()
		l.version++
		return true
	})
	return removed, err
}

// Render returns the weight vector ordered by weight, highest first.
func (l *Ledger) Render(session uint64) types.WeightVector {
	l.mu.RLock()
	defer l.mu.RUnlock()

	entries := make([]types.WeightEntry, 0, len(l.entries))
	for _, e := range l.entries {
		entries = append(entries, types.WeightEntry{
			SolverID:           e.SolverID,
			Weight:             e.Weight,
			LastUpdatedSession: e.LastUpdatedSession,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Weight != entries[j].Weight {
			return entries[i].Weight > entries[j].Weight
		}
		return entries[i].SolverID < entries[j].SolverID
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return types.WeightVector{Version: l.version, Session: session, Entries: entries}
}

// Weight returns the current weight of solverID.
func (l *Ledger) Weight(solverID string) (float64, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.entries[solverID]
	if !ok {
		return 0, false
	}
	return e.Weight, true
}

// Len returns the number of tracked solvers.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Version increases on every mutation.
func (l *Ledger) Version() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.version
}

// IsPublished reports whether version was already published in session.
func (l *Ledger) IsPublished(version, session uint64) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.published && l.publishedVersion == version && l.publishedSession == session
}

// MarkPublished records a successful publication of version in session.
func (l *Ledger) MarkPublished(ctx context.Context, version, session uint64) error {
	return l.commit(ctx, func() bool {
		l.published = true
		l.publishedVersion = version
		l.publishedSession = session
		return true
	})
}

// commit runs apply under the write lock and, if it changed anything, saves
// the resulting snapshot before the next mutation can start.
func (l *Ledger) commit(ctx context.Context, apply func() bool) error {
	l.persistMu.Lock()
	defer l.persistMu.Unlock()

	l.mu.Lock()
	if !apply() {
		l.mu.Unlock()
		return nil
	}
	snap := l.snapshotLocked()
	l.mu.Unlock()

	metrics.UpdateLedgerEntries(len(snap.Entries))
	return l.persist(ctx, snap)
}

func (l *Ledger) renormalizeLocked() {
	total := 0.0
	for _, e := range l.entries {
		total += e.Weight
	}
	if total <= 0 {
		return
	}
	for _, e := range l.entries {
		e.Weight /= total
	}
}

func (l *Ledger) snapshotLocked() Snapshot {
	snap := Snapshot{
		Version:          l.version,
		Published:        l.published,
		PublishedVersion: l.publishedVersion,
		PublishedSession: l.publishedSession,
		Entries:          make([]model.ReputationEntry, 0, len(l.entries)),
	}
	for _, e := range l.entries {
		snap.Entries = append(snap.Entries, *e)
	}
	sort.Slice(snap.Entries, func(i, j int) bool { return snap.Entries[i].SolverID < snap.Entries[j].SolverID })
	return snap
}

func (l *Ledger) persist(ctx context.Context, snap Snapshot) error {
	if l.store == nil {
		return nil
	}
	if err := l.store.Save(ctx, snap); err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	return nil
}

// normalize divides non-negative scores by their sum. NaN and negative
// scores count as zero; an all-zero round normalizes to zeros.
func normalize(scores []float64) []float64 {
	out := make([]float64, len(scores))
	total := 0.0
	for i, s := range scores {
		if math.IsNaN(s) || math.IsInf(s, 0) || s < 0 {
			s = 0
		}
		out[i] = s
		total += s
	}
	if total <= 0 {
		return out
	}
	for i := range out {
		out[i] /= total
	}
	return out
}
