package app

import (
	"context"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/gideonadeti/realtime-leaderboard/internal/adapters/durable"
	"github.com/gideonadeti/realtime-leaderboard/internal/adapters/rankstore"
	"github.com/gideonadeti/realtime-leaderboard/internal/domain/board"
	"github.com/gideonadeti/realtime-leaderboard/internal/domain/model"
)

func seedHistory(t *testing.T, store durable.Store) {
	t.Helper()
	ctx := context.Background()

	for _, id := range []string{"alice", "bob"} {
		if err := store.UpsertEntity(ctx, model.Entity{ID: id, Name: id}); err != nil {
			t.Fatalf("seed entity %s: %v", id, err)
		}
	}

	events := []model.ScoreEvent{
		{EntityID: "alice", ActivityID: "chess", Value: 10},
		{EntityID: "alice", ActivityID: "chess", Value: 15},
		{EntityID: "alice", ActivityID: "darts", Value: 5},
		{EntityID: "bob", ActivityID: "chess", Value: 40},
	}
	for _, ev := range events {
		if _, err := store.CreateScoreEvent(ctx, ev); err != nil {
			t.Fatalf("seed score: %v", err)
		}
	}

	games := []model.GameEvent{
		{EntityID: "alice", Duration: 120, Outcome: model.OutcomeWon},
		{EntityID: "alice", Duration: 90, Outcome: model.OutcomeWon},
		{EntityID: "alice", Duration: 50, Outcome: model.OutcomeLost},
		{EntityID: "bob", Duration: 200, Outcome: model.OutcomeWon},
	}
	for _, g := range games {
		if _, err := store.CreateGameEvent(ctx, g); err != nil {
			t.Fatalf("seed game: %v", err)
		}
	}
}

func TestReconcilerRebuild(t *testing.T) {
	Convey("Given a durable history and a corrupted ranking store", t, func() {
		ctx := context.Background()
		events := durable.NewMemoryStore()
		ranks := rankstore.NewMemoryStore()
		seedHistory(t, events)

		// Corrupt the cache with entries the history does not support.
		_, err := ranks.Increment(ctx, board.Global(board.KindCumulativeScore), "ghost", 999)
		So(err, ShouldBeNil)
		_, err = ranks.Increment(ctx, board.Activity("chess"), "alice", 500)
		So(err, ShouldBeNil)

		r := NewReconciler(events, ranks)

		Convey("When rebuilding", func() {
			scopes, err := r.Rebuild(ctx)
			So(err, ShouldBeNil)

			Convey("Then the corrupted scopes now match the history", func() {
				global := board.Global(board.KindCumulativeScore)
				entries, err := ranks.RangeOrdered(ctx, global, global.Ordering(), 0, 10)
				So(err, ShouldBeNil)
				So(entries, ShouldHaveLength, 2)
				So(entries[0].EntityID, ShouldEqual, "bob")
				So(entries[0].Score, ShouldEqual, 40)
				So(entries[1].EntityID, ShouldEqual, "alice")
				So(entries[1].Score, ShouldEqual, 30)

				chess := board.Activity("chess")
				activity, err := ranks.RangeOrdered(ctx, chess, chess.Ordering(), 0, 10)
				So(err, ShouldBeNil)
				So(activity[0].EntityID, ShouldEqual, "bob")
				So(activity[0].Score, ShouldEqual, 40)
				So(activity[1].EntityID, ShouldEqual, "alice")
				So(activity[1].Score, ShouldEqual, 25)
			})

			Convey("And best durations only count wins", func() {
				best := board.Global(board.KindBestDuration)
				entries, err := ranks.RangeOrdered(ctx, best, best.Ordering(), 0, 10)
				So(err, ShouldBeNil)
				So(entries[0].EntityID, ShouldEqual, "alice")
				So(entries[0].Score, ShouldEqual, 90)
				So(entries[1].EntityID, ShouldEqual, "bob")
				So(entries[1].Score, ShouldEqual, 200)
			})

			Convey("And games played counts every game", func() {
				played := board.Global(board.KindGamesPlayed)
				entries, err := ranks.RangeOrdered(ctx, played, played.Ordering(), 0, 10)
				So(err, ShouldBeNil)
				So(entries[0].EntityID, ShouldEqual, "alice")
				So(entries[0].Score, ShouldEqual, 3)
				So(entries[1].EntityID, ShouldEqual, "bob")
				So(entries[1].Score, ShouldEqual, 1)
			})

			Convey("And the replaced scopes cover globals plus touched activities", func() {
				topics := make(map[string]bool, len(scopes))
				for _, s := range scopes {
					topics[s.String()] = true
				}
				So(topics, ShouldContainKey, board.Global(board.KindCumulativeScore).String())
				So(topics, ShouldContainKey, board.Global(board.KindBestDuration).String())
				So(topics, ShouldContainKey, board.Global(board.KindGamesPlayed).String())
				So(topics, ShouldContainKey, board.Activity("chess").String())
				So(topics, ShouldContainKey, board.Activity("darts").String())
			})
		})

		Convey("When rebuilding twice", func() {
			_, err := r.Rebuild(ctx)
			So(err, ShouldBeNil)
			global := board.Global(board.KindCumulativeScore)
			first, err := ranks.RangeOrdered(ctx, global, global.Ordering(), 0, 10)
			So(err, ShouldBeNil)

			_, err = r.Rebuild(ctx)
			So(err, ShouldBeNil)
			second, err := ranks.RangeOrdered(ctx, global, global.Ordering(), 0, 10)
			So(err, ShouldBeNil)

			Convey("Then the result is identical", func() {
				So(second, ShouldResemble, first)
			})
		})

		Convey("When the history is empty", func() {
			empty := durable.NewMemoryStore()
			r := NewReconciler(empty, ranks)

			_, err := r.Rebuild(ctx)
			So(err, ShouldBeNil)

			Convey("Then global boards are cleared", func() {
				for _, kind := range board.Kinds() {
					n, err := ranks.Count(ctx, board.Global(kind))
					So(err, ShouldBeNil)
					So(n, ShouldEqual, 0)
				}
			})
		})

		Convey("When the scan is cancelled", func() {
			cancelled, cancel := context.WithCancel(ctx)
			cancel()

			_, err := r.Rebuild(cancelled)

			Convey("Then the rebuild aborts", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}
