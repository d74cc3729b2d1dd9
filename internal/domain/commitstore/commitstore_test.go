package commitstore_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/okian/genie/internal/domain/commitstore"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryStore(t *testing.T) {
	Convey("Given a new commit store", t, func() {
		ctx := context.Background()
		s := commitstore.NewInMemoryStore(commitstore.WithMaxSize(3))

		So(s.Size(), ShouldEqual, 0)

		Convey("When an answer is committed", func() {
			So(s.Put(ctx, "task-1", "<html>a</html>"), ShouldBeTrue)

			Convey("Then it can be read back", func() {
				got, ok := s.Get(ctx, "task-1")
				So(ok, ShouldBeTrue)
				So(got, ShouldEqual, "<html>a</html>")
				So(s.Size(), ShouldEqual, 1)
			})

			Convey("And a second answer for the same task is refused", func() {
				So(s.Put(ctx, "task-1", "<html>b</html>"), ShouldBeFalse)
				got, _ := s.Get(ctx, "task-1")
				So(got, ShouldEqual, "<html>a</html>")
			})

			Convey("And taking it removes the entry", func() {
				got, ok := s.Take(ctx, "task-1")
				So(ok, ShouldBeTrue)
				So(got, ShouldEqual, "<html>a</html>")
				_, ok = s.Take(ctx, "task-1")
				So(ok, ShouldBeFalse)
				So(s.Size(), ShouldEqual, 0)
			})
		})

		Convey("When the store overflows", func() {
			for i := 0; i < 4; i++ {
				s.Put(ctx, fmt.Sprintf("task-%d", i), "x")
			}

			Convey("Then the oldest commitment is evicted", func() {
				So(s.Size(), ShouldEqual, 3)
				_, ok := s.Get(ctx, "task-0")
				So(ok, ShouldBeFalse)
				_, ok = s.Get(ctx, "task-3")
				So(ok, ShouldBeTrue)
			})
		})

		Convey("When used concurrently", func() {
			big := commitstore.NewInMemoryStore(commitstore.WithMaxSize(1000))
			var wg sync.WaitGroup
			for i := 0; i < 100; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					id := fmt.Sprintf("task-%d", i)
					big.Put(ctx, id, id)
					big.Get(ctx, id)
				}(i)
			}
			wg.Wait()

			So(big.Size(), ShouldEqual, 100)
		})
	})
}
