package broadcast

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	. "github.com/smartystreets/goconvey/convey"
)

// dial connects a test observer to the hub and waits for registration.
func dial(t *testing.T, hub *Hub, url string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(url, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if resp != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })

	deadline := time.Now().Add(2 * time.Second)
	for hub.SubscriberCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	return conn
}

func TestHubPublish(t *testing.T) {
	Convey("Given a hub with a connected observer", t, func() {
		ctx := context.Background()
		hub := NewHub()
		srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
		defer srv.Close()
		defer hub.CloseAll()

		conn := dial(t, hub, srv.URL)

		Convey("When publishing to a topic", func() {
			payload := []map[string]any{{"entity_id": "alice", "rank": 1}}
			err := hub.Publish(ctx, "leaderboard:cumulative-score", payload)
			So(err, ShouldBeNil)

			Convey("Then the observer receives the envelope", func() {
				_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
				_, raw, err := conn.ReadMessage()
				So(err, ShouldBeNil)

				var got struct {
					Topic string           `json:"topic"`
					Data  []map[string]any `json:"data"`
				}
				So(json.Unmarshal(raw, &got), ShouldBeNil)
				So(got.Topic, ShouldEqual, "leaderboard:cumulative-score")
				So(got.Data, ShouldHaveLength, 1)
				So(got.Data[0]["entity_id"], ShouldEqual, "alice")
			})
		})

		Convey("When publishing with no other observers", func() {
			err := hub.Publish(ctx, "activities:chess:leaderboard", []string{})

			Convey("Then publish still succeeds", func() {
				So(err, ShouldBeNil)
			})
		})
	})
}

func TestHubSubscriberLifecycle(t *testing.T) {
	Convey("Given a hub", t, func() {
		hub := NewHub()
		srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
		defer srv.Close()
		defer hub.CloseAll()

		So(hub.SubscriberCount(), ShouldEqual, 0)

		Convey("When an observer connects", func() {
			conn := dial(t, hub, srv.URL)

			Convey("Then the subscriber count rises", func() {
				So(hub.SubscriberCount(), ShouldEqual, 1)
			})

			Convey("And when it disconnects the count falls", func() {
				_ = conn.Close()

				deadline := time.Now().Add(2 * time.Second)
				for hub.SubscriberCount() != 0 && time.Now().Before(deadline) {
					time.Sleep(5 * time.Millisecond)
				}
				So(hub.SubscriberCount(), ShouldEqual, 0)
			})
		})

		Convey("When CloseAll runs with observers connected", func() {
			dial(t, hub, srv.URL)
			hub.CloseAll()

			Convey("Then the registry empties immediately", func() {
				So(hub.SubscriberCount(), ShouldEqual, 0)
			})
		})
	})
}

func TestHubSlowObserver(t *testing.T) {
	Convey("Given a hub with a tiny send buffer", t, func() {
		ctx := context.Background()
		hub := NewHub(WithSendBuffer(1))
		srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
		defer srv.Close()
		defer hub.CloseAll()

		dial(t, hub, srv.URL)

		Convey("When publishing faster than the observer reads", func() {
			var err error
			for i := 0; i < 50; i++ {
				err = hub.Publish(ctx, "leaderboard:cumulative-score", i)
				So(err, ShouldBeNil)
			}

			Convey("Then the publisher never blocks", func() {
				// Reaching this point within the test timeout is the
				// assertion; overflow messages were dropped, not queued.
				So(err, ShouldBeNil)
			})
		})
	})
}
