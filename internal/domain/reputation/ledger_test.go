package reputation_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/genie/internal/domain/model"
	"github.com/okian/genie/internal/domain/reputation"
	"github.com/okian/genie/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

type memStore struct {
	mu    sync.Mutex
	snap  *reputation.Snapshot
	saves int
	err   error
}

func (m *memStore) Load(context.Context) (reputation.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snap == nil {
		return reputation.Snapshot{}, reputation.ErrNoSnapshot
	}
	return *m.snap, nil
}

func (m *memStore) Save(_ context.Context, s reputation.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.saves++
	m.snap = &s
	return nil
}

func sum(l *reputation.Ledger) float64 {
	total := 0.0
	for _, e := range l.Render(0).Entries {
		total += e.Weight
	}
	return total
}

func TestLedgerUpdateScores(t *testing.T) {
	Convey("Given an empty ledger with decay 0.9", t, func() {
		ctx := context.Background()
		l := reputation.NewLedger(reputation.WithDecay(0.9))

		Convey("When the first round is recorded", func() {
			err := l.UpdateScores(ctx, []string{"A", "B"}, []float64{3, 1}, 7)

			Convey("Then new entries take their normalized score", func() {
				So(err, ShouldBeNil)
				a, _ := l.Weight("A")
				b, _ := l.Weight("B")
				So(a, ShouldAlmostEqual, 0.75, 1e-9)
				So(b, ShouldAlmostEqual, 0.25, 1e-9)
				So(l.Version(), ShouldEqual, 1)
			})

			Convey("And a second round blends with decay and renormalizes", func() {
				So(l.UpdateScores(ctx, []string{"B", "C"}, []float64{1, 1}, 8), ShouldBeNil)

				// B: 0.9*0.25 + 0.1*0.5 = 0.275, C: 0.5, A: 0.75 untouched.
				total := 0.75 + 0.275 + 0.5
				a, _ := l.Weight("A")
				b, _ := l.Weight("B")
				c, _ := l.Weight("C")
				So(a, ShouldAlmostEqual, 0.75/total, 1e-9)
				So(b, ShouldAlmostEqual, 0.275/total, 1e-9)
				So(c, ShouldAlmostEqual, 0.5/total, 1e-9)
				So(sum(l), ShouldAlmostEqual, 1.0, 1e-9)
			})
		})

		Convey("When scores are misaligned", func() {
			err := l.UpdateScores(ctx, []string{"A"}, []float64{1, 2}, 0)
			So(errors.Is(err, reputation.ErrMisaligned), ShouldBeTrue)
			So(l.Len(), ShouldEqual, 0)
		})

		Convey("When a solver appears twice", func() {
			err := l.UpdateScores(ctx, []string{"A", "A"}, []float64{1, 2}, 0)
			So(errors.Is(err, model.ErrDuplicateSolution), ShouldBeTrue)
		})

		Convey("When every score is zero", func() {
			So(l.UpdateScores(ctx, []string{"A", "B"}, []float64{0, 0}, 1), ShouldBeNil)

			Convey("Then weights stay zero instead of dividing by zero", func() {
				a, ok := l.Weight("A")
				So(ok, ShouldBeTrue)
				So(a, ShouldEqual, 0.0)
				So(sum(l), ShouldEqual, 0.0)
			})
		})

		Convey("When scores contain garbage", func() {
			So(l.UpdateScores(ctx, []string{"A", "B"}, []float64{-5, 2}, 1), ShouldBeNil)
			a, _ := l.Weight("A")
			b, _ := l.Weight("B")
			So(a, ShouldEqual, 0.0)
			So(b, ShouldAlmostEqual, 1.0, 1e-9)
		})

		Convey("When an empty round is recorded", func() {
			So(l.UpdateScores(ctx, nil, nil, 1), ShouldBeNil)
			So(l.Version(), ShouldEqual, 0)
		})
	})
}

func TestLedgerBoundsUnderManyRounds(t *testing.T) {
	Convey("Given many random-looking rounds", t, func() {
		ctx := context.Background()
		l := reputation.NewLedger()
		ids := []string{"a", "b", "c", "d", "e"}
		for r := 0; r < 200; r++ {
			n := r%len(ids) + 1
			scores := make([]float64, n)
			for i := range scores {
				scores[i] = float64((r*7+i*13)%11) / 3
			}
			So(l.UpdateScores(ctx, ids[:n], scores, uint64(r)), ShouldBeNil)
		}

		Convey("Then every weight stays in [0,1] and they sum to one", func() {
			for _, e := range l.Render(0).Entries {
				So(e.Weight, ShouldBeBetweenOrEqual, 0, 1)
			}
			So(sum(l), ShouldAlmostEqual, 1.0, 1e-9)
		})
	})
}

func TestLedgerPruneAndRender(t *testing.T) {
	Convey("Given a ledger with three solvers", t, func() {
		ctx := context.Background()
		l := reputation.NewLedger()
		So(l.UpdateScores(ctx, []string{"A", "B", "C"}, []float64{2, 1, 1}, 3), ShouldBeNil)

		Convey("When rendering", func() {
			v := l.Render(3)

			Convey("Then entries are ranked by weight then id", func() {
				So(v.Session, ShouldEqual, 3)
				So(v.Version, ShouldEqual, 1)
				So(v.Entries[0].SolverID, ShouldEqual, "A")
				So(v.Entries[0].Rank, ShouldEqual, 1)
				So(v.Entries[1].SolverID, ShouldEqual, "B")
				So(v.Entries[2].SolverID, ShouldEqual, "C")
			})
		})

		Convey("When a solver leaves the registry", func() {
			removed, err := l.Prune(ctx, []string{"A", "B", "D"})

			Convey("Then it is dropped and the rest renormalized", func() {
				So(err, ShouldBeNil)
				So(removed, ShouldEqual, 1)
				_, ok := l.Weight("C")
				So(ok, ShouldBeFalse)
				a, _ := l.Weight("A")
				So(a, ShouldAlmostEqual, 2.0/3.0, 1e-9)
				So(l.Version(), ShouldEqual, 2)
			})
		})

		Convey("When nothing changes", func() {
			removed, err := l.Prune(ctx, []string{"A", "B", "C"})
			So(err, ShouldBeNil)
			So(removed, ShouldEqual, 0)
			So(l.Version(), ShouldEqual, 1)
		})
	})
}

func TestLedgerPublication(t *testing.T) {
	Convey("Given a ledger at version 1", t, func() {
		ctx := context.Background()
		l := reputation.NewLedger()
		So(l.UpdateScores(ctx, []string{"A"}, []float64{1}, 0), ShouldBeNil)

		So(l.IsPublished(1, 0), ShouldBeFalse)
		So(l.MarkPublished(ctx, 1, 0), ShouldBeNil)

		Convey("Then the same version and session count as published", func() {
			So(l.IsPublished(1, 0), ShouldBeTrue)
			So(l.IsPublished(1, 1), ShouldBeFalse)
		})

		Convey("Then a later update needs a new publication", func() {
			So(l.UpdateScores(ctx, []string{"A"}, []float64{1}, 0), ShouldBeNil)
			So(l.IsPublished(l.Version(), 0), ShouldBeFalse)
		})
	})
}

func TestLedgerPersistence(t *testing.T) {
	Convey("Given a ledger backed by a store", t, func() {
		ctx := context.Background()
		store := &memStore{}
		l := reputation.NewLedger(reputation.WithStore(store))

		So(l.Restore(ctx), ShouldBeNil) // nothing saved yet
		So(l.UpdateScores(ctx, []string{"A", "B"}, []float64{1, 3}, 2), ShouldBeNil)
		So(l.MarkPublished(ctx, l.Version(), 0), ShouldBeNil)

		Convey("When a new ledger restores from the store", func() {
			restored := reputation.NewLedger(reputation.WithStore(store))
			So(restored.Restore(ctx), ShouldBeNil)

			Convey("Then weights, version and publication marker survive", func() {
				So(store.saves, ShouldEqual, 2)
				b, _ := restored.Weight("B")
				So(b, ShouldAlmostEqual, 0.75, 1e-9)
				So(restored.Version(), ShouldEqual, 1)
				So(restored.IsPublished(1, 0), ShouldBeTrue)
			})
		})

		Convey("When saving fails", func() {
			store.err = errors.New("disk full")
			err := l.UpdateScores(ctx, []string{"A"}, []float64{1}, 3)

			Convey("Then the error is reported but memory state advances", func() {
				So(errors.Is(err, reputation.ErrPersist), ShouldBeTrue)
				So(l.Version(), ShouldEqual, 2)
			})
		})
	})
}

// gatedStore holds the first Save until release is closed.
type gatedStore struct {
	memStore
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (g *gatedStore) Save(ctx context.Context, s reputation.Snapshot) error {
	first := false
	g.once.Do(func() { first = true })
	if first {
		close(g.entered)
		<-g.release
	}
	return g.memStore.Save(ctx, s)
}

func TestLedgerPersistOrdering(t *testing.T) {
	Convey("Given a store whose first save is slow", t, func() {
		ctx := context.Background()
		store := &gatedStore{entered: make(chan struct{}), release: make(chan struct{})}
		l := reputation.NewLedger(reputation.WithStore(store))

		errs := make(chan error, 2)
		go func() { errs <- l.UpdateScores(ctx, []string{"A"}, []float64{1}, 0) }()
		<-store.entered

		Convey("When a second update races the pending save", func() {
			go func() { errs <- l.UpdateScores(ctx, []string{"B"}, []float64{1}, 0) }()
			time.Sleep(50 * time.Millisecond)
			close(store.release)
			So(<-errs, ShouldBeNil)
			So(<-errs, ShouldBeNil)

			Convey("Then the newest state is what a restart restores", func() {
				So(l.Version(), ShouldEqual, 2)
				So(store.saves, ShouldEqual, 2)
				So(store.snap.Version, ShouldEqual, 2)
				So(len(store.snap.Entries), ShouldEqual, 2)

				restored := reputation.NewLedger(reputation.WithStore(store))
				So(restored.Restore(ctx), ShouldBeNil)
				So(restored.Version(), ShouldEqual, 2)
				So(restored.Len(), ShouldEqual, 2)
			})
		})
	})
}
