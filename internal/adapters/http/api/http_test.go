package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/gideonadeti/realtime-leaderboard/internal/domain/board"
	"github.com/gideonadeti/realtime-leaderboard/internal/domain/model"
	"github.com/gideonadeti/realtime-leaderboard/internal/domain/types"
)

// fakeService implements Dependencies with canned behavior for handler
// tests.
type fakeService struct {
	seen map[string]bool

	scores  []model.ScoreEvent
	games   []model.GameEvent
	removed []string
	upserts []model.Entity

	rebuilds int

	boardKind board.Kind
	boardKey  string
	entries   []types.RankedEntry

	failWrites bool
}

func newFakeService() *fakeService {
	return &fakeService{seen: make(map[string]bool)}
}

func (f *fakeService) RecordScore(_ context.Context, entityID, activityID string, value float64) (model.ScoreEvent, error) {
	if f.failWrites {
		return model.ScoreEvent{}, fmt.Errorf("durable store down")
	}
	ev := model.ScoreEvent{ID: "score-1", EntityID: entityID, ActivityID: activityID, Value: value}
	f.scores = append(f.scores, ev)
	return ev, nil
}

func (f *fakeService) RecordGame(_ context.Context, entityID string, duration float64, outcome model.Outcome) (model.GameEvent, error) {
	if f.failWrites {
		return model.GameEvent{}, fmt.Errorf("durable store down")
	}
	ev := model.GameEvent{ID: "game-1", EntityID: entityID, Duration: duration, Outcome: outcome}
	f.games = append(f.games, ev)
	return ev, nil
}

func (f *fakeService) Leaderboard(_ context.Context, kind board.Kind, scopeKey string, offset, limit int) ([]types.RankedEntry, error) {
	f.boardKind = kind
	f.boardKey = scopeKey
	end := offset + limit
	if offset >= len(f.entries) {
		return nil, nil
	}
	if end > len(f.entries) {
		end = len(f.entries)
	}
	return f.entries[offset:end], nil
}

func (f *fakeService) UpsertEntity(_ context.Context, e model.Entity) error {
	f.upserts = append(f.upserts, e)
	return nil
}

func (f *fakeService) RemoveEntity(_ context.Context, entityID string) error {
	f.removed = append(f.removed, entityID)
	return nil
}

func (f *fakeService) Rebuild(context.Context) error {
	f.rebuilds++
	return nil
}

func (f *fakeService) SeenAndRecord(_ context.Context, id string) bool {
	if f.seen[id] {
		return true
	}
	f.seen[id] = true
	return false
}

func (f *fakeService) Unrecord(_ context.Context, id string) {
	delete(f.seen, id)
}

func (f *fakeService) GetStats() map[string]interface{} {
	return map[string]interface{}{"started": true}
}

func newTestMux(f *fakeService) *http.ServeMux {
	mux := http.NewServeMux()
	NewServer(f, f, 100, nil).Register(context.Background(), mux)
	return mux
}

func doJSON(mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func TestPostScore(t *testing.T) {
	Convey("Given the API routes", t, func() {
		f := newFakeService()
		mux := newTestMux(f)

		Convey("When posting a valid score", func() {
			w := doJSON(mux, "POST", "/scores", `{"user_id":"alice","activity_id":"chess","value":10}`)

			Convey("Then the event is recorded", func() {
				So(w.Code, ShouldEqual, http.StatusCreated)
				So(f.scores, ShouldHaveLength, 1)
				So(f.scores[0].EntityID, ShouldEqual, "alice")
				So(f.scores[0].Value, ShouldEqual, 10)
			})
		})

		Convey("When posting malformed JSON", func() {
			w := doJSON(mux, "POST", "/scores", `{"user_id":`)

			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(f.scores, ShouldBeEmpty)
		})

		Convey("When posting a non-positive value", func() {
			w := doJSON(mux, "POST", "/scores", `{"user_id":"alice","activity_id":"chess","value":0}`)

			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(f.scores, ShouldBeEmpty)
		})

		Convey("When required fields are missing", func() {
			w := doJSON(mux, "POST", "/scores", `{"user_id":"alice","value":5}`)

			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When reusing an event id", func() {
			body := `{"event_id":"evt-1","user_id":"alice","activity_id":"chess","value":10}`
			first := doJSON(mux, "POST", "/scores", body)
			second := doJSON(mux, "POST", "/scores", body)

			Convey("Then the duplicate is acknowledged without recording", func() {
				So(first.Code, ShouldEqual, http.StatusCreated)
				So(second.Code, ShouldEqual, http.StatusOK)

				var ack ackResponse
				So(json.Unmarshal(second.Body.Bytes(), &ack), ShouldBeNil)
				So(ack.Duplicate, ShouldBeTrue)
				So(f.scores, ShouldHaveLength, 1)
			})
		})

		Convey("When the write fails", func() {
			f.failWrites = true
			body := `{"event_id":"evt-2","user_id":"alice","activity_id":"chess","value":10}`
			w := doJSON(mux, "POST", "/scores", body)

			Convey("Then the event id is released for retry", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)

				f.failWrites = false
				retry := doJSON(mux, "POST", "/scores", body)
				So(retry.Code, ShouldEqual, http.StatusCreated)
			})
		})

		Convey("When using the wrong method", func() {
			w := doJSON(mux, "GET", "/scores", "")

			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestPostGame(t *testing.T) {
	Convey("Given the API routes", t, func() {
		f := newFakeService()
		mux := newTestMux(f)

		Convey("When posting a valid win", func() {
			w := doJSON(mux, "POST", "/games", `{"user_id":"alice","duration":90,"outcome":"won"}`)

			Convey("Then the game is recorded", func() {
				So(w.Code, ShouldEqual, http.StatusCreated)
				So(f.games, ShouldHaveLength, 1)
				So(f.games[0].Outcome, ShouldEqual, model.OutcomeWon)
			})
		})

		Convey("When posting an invalid outcome", func() {
			w := doJSON(mux, "POST", "/games", `{"user_id":"alice","duration":90,"outcome":"draw"}`)

			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(f.games, ShouldBeEmpty)
		})

		Convey("When posting a negative duration", func() {
			w := doJSON(mux, "POST", "/games", `{"user_id":"alice","duration":-5,"outcome":"won"}`)

			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestGetLeaderboard(t *testing.T) {
	Convey("Given the API routes with a populated board", t, func() {
		f := newFakeService()
		f.entries = []types.RankedEntry{
			{EntityID: "alice", DisplayName: "Alice", Score: 50, Rank: 1},
			{EntityID: "bob", DisplayName: "Bob", Score: 30, Rank: 2},
		}
		mux := newTestMux(f)

		Convey("When requesting the default board", func() {
			w := doJSON(mux, "GET", "/leaderboard", "")

			Convey("Then the cumulative-score global board is served", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(f.boardKind, ShouldEqual, board.KindCumulativeScore)
				So(f.boardKey, ShouldEqual, board.GlobalKey)

				var entries []types.RankedEntry
				So(json.Unmarshal(w.Body.Bytes(), &entries), ShouldBeNil)
				So(entries, ShouldHaveLength, 2)
				So(entries[0].EntityID, ShouldEqual, "alice")
			})
		})

		Convey("When requesting another kind", func() {
			w := doJSON(mux, "GET", "/leaderboard?kind=best-duration", "")

			So(w.Code, ShouldEqual, http.StatusOK)
			So(f.boardKind, ShouldEqual, board.KindBestDuration)
		})

		Convey("When requesting an unknown kind", func() {
			w := doJSON(mux, "GET", "/leaderboard?kind=golf-handicap", "")

			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the limit exceeds the maximum", func() {
			w := doJSON(mux, "GET", "/leaderboard?limit=500", "")

			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When offset is negative", func() {
			w := doJSON(mux, "GET", "/leaderboard?offset=-1", "")

			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When paging with offset and limit", func() {
			w := doJSON(mux, "GET", "/leaderboard?offset=1&limit=1", "")

			So(w.Code, ShouldEqual, http.StatusOK)
			var entries []types.RankedEntry
			So(json.Unmarshal(w.Body.Bytes(), &entries), ShouldBeNil)
			So(entries, ShouldHaveLength, 1)
			So(entries[0].EntityID, ShouldEqual, "bob")
		})
	})
}

func TestGetActivityLeaderboard(t *testing.T) {
	Convey("Given the API routes", t, func() {
		f := newFakeService()
		f.entries = []types.RankedEntry{
			{EntityID: "alice", DisplayName: "Alice", Score: 25, Rank: 1},
		}
		mux := newTestMux(f)

		Convey("When requesting an activity board", func() {
			w := doJSON(mux, "GET", "/activities/chess/leaderboard", "")

			Convey("Then the activity scope is queried", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(f.boardKind, ShouldEqual, board.KindCumulativeScore)
				So(f.boardKey, ShouldEqual, "chess")
			})
		})

		Convey("When the path misses the leaderboard suffix", func() {
			w := doJSON(mux, "GET", "/activities/chess", "")

			So(w.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When the activity id is blank", func() {
			w := doJSON(mux, "GET", "/activities/%20/leaderboard", "")

			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestUserEndpoints(t *testing.T) {
	Convey("Given the API routes", t, func() {
		f := newFakeService()
		mux := newTestMux(f)

		Convey("When upserting a user", func() {
			w := doJSON(mux, "PUT", "/users/alice", `{"name":"Alice","email":"alice@example.com"}`)

			Convey("Then the attributes reach the service", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(f.upserts, ShouldHaveLength, 1)
				So(f.upserts[0].ID, ShouldEqual, "alice")
				So(f.upserts[0].Name, ShouldEqual, "Alice")
			})
		})

		Convey("When the name is missing", func() {
			w := doJSON(mux, "PUT", "/users/alice", `{"email":"alice@example.com"}`)

			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(f.upserts, ShouldBeEmpty)
		})

		Convey("When deleting a user", func() {
			w := doJSON(mux, "DELETE", "/users/alice", "")

			Convey("Then the removal flow runs", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(f.removed, ShouldResemble, []string{"alice"})
			})
		})

		Convey("When the user id is empty", func() {
			w := doJSON(mux, "DELETE", "/users/", "")

			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestAdminRebuild(t *testing.T) {
	Convey("Given the API routes", t, func() {
		f := newFakeService()
		mux := newTestMux(f)

		Convey("When triggering a rebuild", func() {
			w := doJSON(mux, "POST", "/admin/rebuild-leaderboards", "")

			Convey("Then the reconciler runs once", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(f.rebuilds, ShouldEqual, 1)
			})
		})

		Convey("When using the wrong method", func() {
			w := doJSON(mux, "GET", "/admin/rebuild-leaderboards", "")

			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(f.rebuilds, ShouldEqual, 0)
		})
	})
}

func TestStatsEndpoint(t *testing.T) {
	Convey("Given the API routes", t, func() {
		f := newFakeService()
		mux := newTestMux(f)

		Convey("When requesting stats", func() {
			w := doJSON(mux, "GET", "/stats", "")

			Convey("Then the stats payload is JSON", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var stats map[string]interface{}
				So(json.Unmarshal(w.Body.Bytes(), &stats), ShouldBeNil)
				So(stats["started"], ShouldEqual, true)
			})
		})
	})
}
