package rankstore

import (
	"context"
	"fmt"
	"sync"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/gideonadeti/realtime-leaderboard/internal/domain/board"
)

func TestMemoryStoreIncrement(t *testing.T) {
	Convey("Given an empty memory store", t, func() {
		ctx := context.Background()
		store := NewMemoryStore()
		scope := board.Global(board.KindCumulativeScore)

		Convey("When incrementing a new entity", func() {
			total, err := store.Increment(ctx, scope, "alice", 10)

			Convey("Then the entry is created with the delta", func() {
				So(err, ShouldBeNil)
				So(total, ShouldEqual, 10)
			})
		})

		Convey("When incrementing the same entity twice", func() {
			_, err := store.Increment(ctx, scope, "alice", 10)
			So(err, ShouldBeNil)
			total, err := store.Increment(ctx, scope, "alice", 15)

			Convey("Then deltas accumulate", func() {
				So(err, ShouldBeNil)
				So(total, ShouldEqual, 25)
			})
		})

		Convey("When incrementing concurrently", func() {
			const goroutines = 32
			const perGoroutine = 100

			var wg sync.WaitGroup
			for i := 0; i < goroutines; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for j := 0; j < perGoroutine; j++ {
						_, _ = store.Increment(ctx, scope, "alice", 1)
					}
				}()
			}
			wg.Wait()

			Convey("Then no updates are lost", func() {
				entries, err := store.RangeOrdered(ctx, scope, scope.Ordering(), 0, 1)
				So(err, ShouldBeNil)
				So(entries, ShouldHaveLength, 1)
				So(entries[0].Score, ShouldEqual, goroutines*perGoroutine)
			})
		})

		Convey("When incrementing in different scopes", func() {
			_, err := store.Increment(ctx, scope, "alice", 10)
			So(err, ShouldBeNil)
			_, err = store.Increment(ctx, board.Activity("chess"), "alice", 3)
			So(err, ShouldBeNil)

			Convey("Then scopes stay independent", func() {
				global, err := store.RangeOrdered(ctx, scope, scope.Ordering(), 0, 10)
				So(err, ShouldBeNil)
				So(global[0].Score, ShouldEqual, 10)

				chess := board.Activity("chess")
				activity, err := store.RangeOrdered(ctx, chess, chess.Ordering(), 0, 10)
				So(err, ShouldBeNil)
				So(activity[0].Score, ShouldEqual, 3)
			})
		})
	})
}

func TestMemoryStoreUpdateIfBetter(t *testing.T) {
	Convey("Given a best-duration scope", t, func() {
		ctx := context.Background()
		store := NewMemoryStore()
		scope := board.Global(board.KindBestDuration)

		Convey("When recording a first duration", func() {
			stored, err := store.UpdateIfBetter(ctx, scope, "alice", 120, board.Less)

			Convey("Then it is accepted", func() {
				So(err, ShouldBeNil)
				So(stored, ShouldEqual, 120)
			})
		})

		Convey("When a better duration arrives", func() {
			_, err := store.UpdateIfBetter(ctx, scope, "alice", 120, board.Less)
			So(err, ShouldBeNil)
			stored, err := store.UpdateIfBetter(ctx, scope, "alice", 90, board.Less)

			Convey("Then the entry improves", func() {
				So(err, ShouldBeNil)
				So(stored, ShouldEqual, 90)
			})
		})

		Convey("When a worse duration arrives", func() {
			_, err := store.UpdateIfBetter(ctx, scope, "alice", 90, board.Less)
			So(err, ShouldBeNil)
			stored, err := store.UpdateIfBetter(ctx, scope, "alice", 200, board.Less)

			Convey("Then the better entry is kept", func() {
				So(err, ShouldBeNil)
				So(stored, ShouldEqual, 90)
			})
		})

		Convey("When an equal duration arrives", func() {
			_, err := store.UpdateIfBetter(ctx, scope, "alice", 90, board.Less)
			So(err, ShouldBeNil)
			stored, err := store.UpdateIfBetter(ctx, scope, "alice", 90, board.Less)

			Convey("Then the entry is unchanged", func() {
				So(err, ShouldBeNil)
				So(stored, ShouldEqual, 90)
			})
		})
	})
}

func TestMemoryStoreRangeOrdered(t *testing.T) {
	Convey("Given a populated descending scope", t, func() {
		ctx := context.Background()
		store := NewMemoryStore()
		scope := board.Global(board.KindCumulativeScore)

		seed := map[string]float64{
			"alice": 50,
			"bob":   30,
			"carol": 40,
			"dave":  20,
			"erin":  10,
		}
		for id, v := range seed {
			_, err := store.Increment(ctx, scope, id, v)
			So(err, ShouldBeNil)
		}

		Convey("When reading the full window", func() {
			entries, err := store.RangeOrdered(ctx, scope, scope.Ordering(), 0, 10)

			Convey("Then entries come best first", func() {
				So(err, ShouldBeNil)
				So(entries, ShouldHaveLength, 5)
				So(entries[0].EntityID, ShouldEqual, "alice")
				So(entries[1].EntityID, ShouldEqual, "carol")
				So(entries[2].EntityID, ShouldEqual, "bob")
				So(entries[3].EntityID, ShouldEqual, "dave")
				So(entries[4].EntityID, ShouldEqual, "erin")
			})
		})

		Convey("When reading with an offset", func() {
			entries, err := store.RangeOrdered(ctx, scope, scope.Ordering(), 2, 2)

			Convey("Then the window slides past the leaders", func() {
				So(err, ShouldBeNil)
				So(entries, ShouldHaveLength, 2)
				So(entries[0].EntityID, ShouldEqual, "bob")
				So(entries[1].EntityID, ShouldEqual, "dave")
			})
		})

		Convey("When the offset is past the end", func() {
			entries, err := store.RangeOrdered(ctx, scope, scope.Ordering(), 100, 10)

			Convey("Then the result is empty, not an error", func() {
				So(err, ShouldBeNil)
				So(entries, ShouldBeEmpty)
			})
		})

		Convey("When the window is invalid", func() {
			_, err := store.RangeOrdered(ctx, scope, scope.Ordering(), -1, 10)
			So(err, ShouldEqual, ErrInvalidWindow)

			_, err = store.RangeOrdered(ctx, scope, scope.Ordering(), 0, 0)
			So(err, ShouldEqual, ErrInvalidWindow)
		})

		Convey("When scores tie", func() {
			_, err := store.Increment(ctx, scope, "zed", 50)
			So(err, ShouldBeNil)
			// zed now also holds 50, tying alice

			entries, err := store.RangeOrdered(ctx, scope, scope.Ordering(), 0, 2)

			Convey("Then the lower id ranks first", func() {
				So(err, ShouldBeNil)
				So(entries[0].EntityID, ShouldEqual, "alice")
				So(entries[1].EntityID, ShouldEqual, "zed")
			})
		})
	})

	Convey("Given a populated ascending scope", t, func() {
		ctx := context.Background()
		store := NewMemoryStore()
		scope := board.Global(board.KindBestDuration)

		for id, v := range map[string]float64{"alice": 90, "bob": 120, "carol": 45} {
			_, err := store.UpdateIfBetter(ctx, scope, id, v, board.Less)
			So(err, ShouldBeNil)
		}

		Convey("When reading the full window", func() {
			entries, err := store.RangeOrdered(ctx, scope, scope.Ordering(), 0, 10)

			Convey("Then the smallest duration leads", func() {
				So(err, ShouldBeNil)
				So(entries, ShouldHaveLength, 3)
				So(entries[0].EntityID, ShouldEqual, "carol")
				So(entries[1].EntityID, ShouldEqual, "alice")
				So(entries[2].EntityID, ShouldEqual, "bob")
			})
		})
	})
}

func TestMemoryStoreRemove(t *testing.T) {
	Convey("Given a populated scope", t, func() {
		ctx := context.Background()
		store := NewMemoryStore()
		scope := board.Global(board.KindCumulativeScore)

		_, err := store.Increment(ctx, scope, "alice", 10)
		So(err, ShouldBeNil)
		_, err = store.Increment(ctx, scope, "bob", 20)
		So(err, ShouldBeNil)

		Convey("When removing an entity", func() {
			err := store.Remove(ctx, scope, "alice")

			Convey("Then it disappears and ranks close up", func() {
				So(err, ShouldBeNil)
				entries, err := store.RangeOrdered(ctx, scope, scope.Ordering(), 0, 10)
				So(err, ShouldBeNil)
				So(entries, ShouldHaveLength, 1)
				So(entries[0].EntityID, ShouldEqual, "bob")
			})
		})

		Convey("When removing an absent entity", func() {
			err := store.Remove(ctx, scope, "nobody")

			Convey("Then the call is a no-op", func() {
				So(err, ShouldBeNil)
				n, err := store.Count(ctx, scope)
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 2)
			})
		})
	})
}

func TestMemoryStoreReplaceAll(t *testing.T) {
	Convey("Given a populated scope", t, func() {
		ctx := context.Background()
		store := NewMemoryStore()
		scope := board.Global(board.KindCumulativeScore)

		_, err := store.Increment(ctx, scope, "stale", 99)
		So(err, ShouldBeNil)

		Convey("When replacing with a new entry set", func() {
			err := store.ReplaceAll(ctx, scope, []Entry{
				{EntityID: "alice", Score: 25},
				{EntityID: "bob", Score: 40},
			})

			Convey("Then only the new entries remain", func() {
				So(err, ShouldBeNil)
				entries, err := store.RangeOrdered(ctx, scope, scope.Ordering(), 0, 10)
				So(err, ShouldBeNil)
				So(entries, ShouldHaveLength, 2)
				So(entries[0].EntityID, ShouldEqual, "bob")
				So(entries[1].EntityID, ShouldEqual, "alice")
			})
		})

		Convey("When replacing with an empty set", func() {
			err := store.ReplaceAll(ctx, scope, nil)

			Convey("Then the scope is emptied", func() {
				So(err, ShouldBeNil)
				n, err := store.Count(ctx, scope)
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 0)
			})
		})

		Convey("When replacing twice with the same set", func() {
			set := []Entry{
				{EntityID: "alice", Score: 25},
				{EntityID: "bob", Score: 40},
			}
			So(store.ReplaceAll(ctx, scope, set), ShouldBeNil)
			first, err := store.RangeOrdered(ctx, scope, scope.Ordering(), 0, 10)
			So(err, ShouldBeNil)

			So(store.ReplaceAll(ctx, scope, set), ShouldBeNil)
			second, err := store.RangeOrdered(ctx, scope, scope.Ordering(), 0, 10)
			So(err, ShouldBeNil)

			Convey("Then the visible ordering is identical", func() {
				So(second, ShouldResemble, first)
			})
		})
	})
}

func TestMemoryStoreLargeWindow(t *testing.T) {
	Convey("Given a scope with many entries", t, func() {
		ctx := context.Background()
		store := NewMemoryStore()
		scope := board.Global(board.KindCumulativeScore)

		const n = 1000
		for i := 0; i < n; i++ {
			id := fmt.Sprintf("player-%04d", i)
			_, err := store.Increment(ctx, scope, id, float64(i))
			So(err, ShouldBeNil)
		}

		Convey("When paging through the full board", func() {
			seen := make(map[string]bool, n)
			prev := float64(n)
			for offset := 0; offset < n; offset += 100 {
				entries, err := store.RangeOrdered(ctx, scope, scope.Ordering(), offset, 100)
				So(err, ShouldBeNil)
				So(entries, ShouldHaveLength, 100)
				for _, e := range entries {
					So(e.Score, ShouldBeLessThanOrEqualTo, prev)
					prev = e.Score
					seen[e.EntityID] = true
				}
			}

			Convey("Then every entity appears exactly once in order", func() {
				So(len(seen), ShouldEqual, n)
			})
		})
	})
}
