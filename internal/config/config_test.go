package config_test

import (
	"runtime"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/gideonadeti/realtime-leaderboard/internal/config"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.RankStore, convey.ShouldEqual, config.StoreMemory)
			convey.So(cfg.DurableStore, convey.ShouldEqual, config.StoreMemory)
			convey.So(cfg.RefreshQueueSize, convey.ShouldEqual, 10_000)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU()*2)
			convey.So(cfg.DedupeSize, convey.ShouldEqual, 100_000)
			convey.So(cfg.MaxLeaderboardLimit, convey.ShouldEqual, 100)
			convey.So(cfg.BroadcastWindow, convey.ShouldEqual, 10)
			convey.So(cfg.ClientSendBuffer, convey.ShouldEqual, 64)
		})
	})
}
