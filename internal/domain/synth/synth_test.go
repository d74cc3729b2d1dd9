package synth_test

import (
	"context"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/genie/internal/adapters/mq/queue"
	"github.com/okian/genie/internal/domain/model"
	"github.com/okian/genie/internal/domain/synth"
	"github.com/okian/genie/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

type countingGen struct {
	name  string
	calls int
	err   error
}

func (g *countingGen) Name() string { return g.name }

func (g *countingGen) Generate(context.Context) (model.Task, error) {
	g.calls++
	if g.err != nil {
		return model.Task{}, g.err
	}
	return model.Task{ID: g.name, Source: synth.SourceSynthetic}, nil
}

func TestSynthesize(t *testing.T) {
	Convey("Given a synthesizer over a queue of capacity 2", t, func() {
		ctx := context.Background()
		q := queue.NewInMemoryQueue[model.Task](queue.WithCapacity(2), queue.WithName("synth_test"))
		s := synth.New(q, synth.WithSeed(1))

		Convey("When no generator is registered", func() {
			_, ok, err := s.Synthesize(ctx)
			So(ok, ShouldBeFalse)
			So(errors.Is(err, synth.ErrNoGenerators), ShouldBeTrue)
		})

		Convey("When a generator has a bad weight", func() {
			So(errors.Is(s.Register(&countingGen{name: "g"}, 0), synth.ErrInvalidWeight), ShouldBeTrue)
		})

		Convey("When the queue fills up", func() {
			gen := &countingGen{name: "g"}
			So(s.Register(gen, 1), ShouldBeNil)

			_, ok1, _ := s.Synthesize(ctx)
			_, ok2, _ := s.Synthesize(ctx)
			_, ok3, err := s.Synthesize(ctx)

			Convey("Then further tasks are rejected without generating", func() {
				So(ok1, ShouldBeTrue)
				So(ok2, ShouldBeTrue)
				So(ok3, ShouldBeFalse)
				So(err, ShouldBeNil)
				So(gen.calls, ShouldEqual, 2)
				So(q.Len(ctx), ShouldEqual, 2)
			})
		})

		Convey("When the generator fails", func() {
			So(s.Register(&countingGen{name: "bad", err: errors.New("no samples")}, 1), ShouldBeNil)
			_, ok, err := s.Synthesize(ctx)
			So(ok, ShouldBeFalse)
			So(err, ShouldNotBeNil)
			So(q.Len(ctx), ShouldEqual, 0)
		})
	})

	Convey("Given weighted generators", t, func() {
		ctx := context.Background()
		q := queue.NewInMemoryQueue[model.Task](queue.WithCapacity(1000), queue.WithName("synth_weights"))
		s := synth.New(q, synth.WithSeed(42))
		heavy := &countingGen{name: "heavy"}
		light := &countingGen{name: "light"}
		So(s.Register(heavy, 9), ShouldBeNil)
		So(s.Register(light, 1), ShouldBeNil)

		for i := 0; i < 1000; i++ {
			_, _, _ = s.Synthesize(ctx)
		}

		Convey("Then selection follows the weights", func() {
			So(heavy.calls+light.calls, ShouldEqual, 1000)
			So(heavy.calls, ShouldBeGreaterThan, 800)
			So(light.calls, ShouldBeGreaterThan, 20)
		})
	})
}

func TestImageToMarkup(t *testing.T) {
	Convey("Given the builtin dataset", t, func() {
		ds, err := synth.BuiltinDataset()
		So(err, ShouldBeNil)
		So(ds.Len(), ShouldEqual, 3)

		gen := synth.NewImageToMarkup(ds, 45*time.Second)

		Convey("When a task is generated", func() {
			task, err := gen.Generate(context.Background())

			Convey("Then it carries ground truth and a decodable prompt", func() {
				So(err, ShouldBeNil)
				So(task.ID, ShouldNotBeEmpty)
				So(task.Source, ShouldEqual, synth.SourceSynthetic)
				So(task.GroundTruth, ShouldContainSubstring, "<html")
				So(task.Timeout, ShouldEqual, 45*time.Second)
				img, err := base64.StdEncoding.DecodeString(task.Prompt)
				So(err, ShouldBeNil)
				So(string(img[1:4]), ShouldEqual, "PNG")
			})

			Convey("And ids are unique", func() {
				other, _ := gen.Generate(context.Background())
				So(other.ID, ShouldNotEqual, task.ID)
			})
		})
	})

	Convey("Given a directory dataset", t, func() {
		dir := t.TempDir()

		Convey("When it is empty", func() {
			_, err := synth.DirDataset(dir)
			So(errors.Is(err, synth.ErrEmptyDataset), ShouldBeTrue)
		})

		Convey("When it has a page with a screenshot", func() {
			So(os.WriteFile(filepath.Join(dir, "a.html"), []byte("<p>a</p>"), 0o600), ShouldBeNil)
			So(os.WriteFile(filepath.Join(dir, "a.png"), []byte("\x89PNGfake"), 0o600), ShouldBeNil)
			ds, err := synth.DirDataset(dir)
			So(err, ShouldBeNil)

			sample, err := ds.Next(context.Background())
			So(err, ShouldBeNil)
			So(sample.Name, ShouldEqual, "a")
			So(string(sample.Screenshot), ShouldEqual, "\x89PNGfake")
		})
	})
}
