package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/okian/faceoff/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryDeduper(t *testing.T) {
	Convey("Given a new InMemoryDeduper", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper()

		Convey("When a ballot id is new", func() {
			seen := d.SeenAndRecord(ctx, "ballot-1")

			Convey("Then it should be recorded", func() {
				So(seen, ShouldBeFalse)
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When a ballot id is repeated", func() {
			d.SeenAndRecord(ctx, "ballot-1")
			seen := d.SeenAndRecord(ctx, "ballot-1")

			Convey("Then it should be reported as seen", func() {
				So(seen, ShouldBeTrue)
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When a recorded id is unrecorded", func() {
			d.SeenAndRecord(ctx, "ballot-1")
			d.Unrecord(ctx, "ballot-1")

			Convey("Then it can be recorded again", func() {
				So(d.Size(), ShouldEqual, 0)
				So(d.SeenAndRecord(ctx, "ballot-1"), ShouldBeFalse)
			})
		})

		Convey("When an unknown id is unrecorded", func() {
			d.SeenAndRecord(ctx, "ballot-1")
			d.Unrecord(ctx, "missing")

			Convey("Then nothing changes", func() {
				So(d.Size(), ShouldEqual, 1)
			})
		})
	})
}

func TestBoundedEviction(t *testing.T) {
	Convey("Given a deduper bounded to three ids", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3))
		for _, id := range []string{"a", "b", "c"} {
			d.SeenAndRecord(ctx, id)
		}

		Convey("When a fourth id arrives", func() {
			d.SeenAndRecord(ctx, "d")

			Convey("Then the oldest id is forgotten", func() {
				So(d.Size(), ShouldEqual, 3)
				So(d.SeenAndRecord(ctx, "d"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "c"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "b"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "a"), ShouldBeFalse)
			})
		})

		Convey("When the middle id is unrecorded before overflow", func() {
			d.Unrecord(ctx, "b")
			d.SeenAndRecord(ctx, "d")
			d.SeenAndRecord(ctx, "e")

			Convey("Then eviction still follows insertion order", func() {
				So(d.Size(), ShouldEqual, 3)
				So(d.SeenAndRecord(ctx, "c"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "e"), ShouldBeTrue)
			})
		})

		Convey("When the only remaining ids are unrecorded", func() {
			for _, id := range []string{"c", "a", "b"} {
				d.Unrecord(ctx, id)
			}
			d.SeenAndRecord(ctx, "z")

			Convey("Then the list is rebuilt from empty", func() {
				So(d.Size(), ShouldEqual, 1)
			})
		})
	})
}

func TestUnboundedMode(t *testing.T) {
	Convey("Given an unbounded deduper", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))

		for i := 0; i < 1000; i++ {
			d.SeenAndRecord(ctx, fmt.Sprintf("ballot-%d", i))
		}

		So(d.Size(), ShouldEqual, 1000)
		So(d.SeenAndRecord(ctx, "ballot-0"), ShouldBeTrue)
	})
}

func TestConcurrentSeenAndRecord(t *testing.T) {
	Convey("Given many goroutines racing on the same ballot ids", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper()
		var fresh atomic.Int64
		var wg sync.WaitGroup

		for g := 0; g < 16; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < 200; i++ {
					if !d.SeenAndRecord(ctx, fmt.Sprintf("ballot-%d", i)) {
						fresh.Add(1)
					}
				}
			}()
		}
		wg.Wait()

		Convey("Then each id is recorded exactly once", func() {
			So(fresh.Load(), ShouldEqual, 200)
			So(d.Size(), ShouldEqual, 200)
		})
	})
}

func BenchmarkSeenAndRecord(b *testing.B) {
	ctx := context.Background()
	d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(10_000))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		d.SeenAndRecord(ctx, fmt.Sprintf("ballot-%d", i))
	}
}
