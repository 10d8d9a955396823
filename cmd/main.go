package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/gideonadeti/realtime-leaderboard/internal/adapters/broadcast"
	"github.com/gideonadeti/realtime-leaderboard/internal/adapters/durable"
	"github.com/gideonadeti/realtime-leaderboard/internal/adapters/http/api"
	"github.com/gideonadeti/realtime-leaderboard/internal/adapters/http/site"
	"github.com/gideonadeti/realtime-leaderboard/internal/adapters/http/swagger"
	"github.com/gideonadeti/realtime-leaderboard/internal/adapters/rankstore"
	app "github.com/gideonadeti/realtime-leaderboard/internal/app"
	"github.com/gideonadeti/realtime-leaderboard/internal/config"
	"github.com/gideonadeti/realtime-leaderboard/pkg/logger"
	"github.com/gideonadeti/realtime-leaderboard/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout            = 10 * time.Second
	writeTimeout           = 10 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	shutdownTimeout        = 30 * time.Second
	systemMetricsInterval  = 10 * time.Second
	serviceMetricsInterval = 5 * time.Second
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics;
	// we collect our own system metrics instead.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	ranks, err := newRankStore(ctx, cfg)
	if err != nil {
		log.Error(ctx, "failed to connect ranking store", logger.Error(err))
		return
	}
	events, err := newDurableStore(ctx, cfg)
	if err != nil {
		log.Error(ctx, "failed to connect durable store", logger.Error(err))
		return
	}

	hub := broadcast.NewHub(
		broadcast.WithSendBuffer(cfg.ClientSendBuffer),
		broadcast.WithLogger(log.Named("broadcast")),
	)
	defer hub.CloseAll()

	svc := app.New(
		app.WithLogger(log),
		app.WithRankStore(ranks),
		app.WithDurableStore(events),
		app.WithBroadcaster(hub),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.RefreshQueueSize),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithBroadcastWindow(cfg.BroadcastWindow),
	)
	if err := svc.Start(ctx); err != nil {
		log.Error(ctx, "failed to start service", logger.Error(err))
		return
	}
	defer svc.Stop()

	go startSystemMetricsUpdater(ctx)
	go startServiceMetricsUpdater(ctx, svc, hub)

	// HTTP mux and routes.
	mux := http.NewServeMux()

	// Live board page and API reference.
	site.Register(ctx, mux)
	swagger.Register(ctx, mux)

	// Register business API routes with the service dependency.
	apiServer := api.NewServer(svc, svc, cfg.MaxLeaderboardLimit, hub.HandleWS)
	apiServer.Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
			return
		}
	}()

	<-ctx.Done()
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
}

// newRankStore selects the ranking store backend from configuration.
func newRankStore(ctx context.Context, cfg *config.Config) (rankstore.Store, error) {
	switch cfg.RankStore {
	case config.StoreRedis:
		return rankstore.NewRedisStore(ctx, cfg.RedisAddr,
			rankstore.WithKeyPrefix(cfg.RedisKeyPrefix))
	default:
		return rankstore.NewMemoryStore(), nil
	}
}

// newDurableStore selects the durable store backend from configuration.
func newDurableStore(ctx context.Context, cfg *config.Config) (durable.Store, error) {
	switch cfg.DurableStore {
	case config.StorePostgres:
		return durable.NewPostgresStore(ctx, cfg.DatabaseURL)
	default:
		return durable.NewMemoryStore(), nil
	}
}

// startSystemMetricsUpdater periodically refreshes system-level gauges.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			var m runtime.MemStats
			runtime.ReadMemStats(&m)
			metrics.UpdateSystemMemoryUsage(m.Alloc)
			metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
		}
	}
}

// startServiceMetricsUpdater periodically refreshes service-level gauges.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service, hub *broadcast.Hub) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := svc.GetStats()
			if queueLen, ok := stats["queueLength"].(int); ok {
				metrics.UpdateQueueSize(queueLen)
			}
			if workerCount, ok := stats["workerCount"].(int); ok {
				metrics.UpdateWorkerCount(workerCount)
			}
			metrics.UpdateSubscriberCount(hub.SubscriberCount())
		}
	}
}
