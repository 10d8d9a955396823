// Package loadgen generates synthetic traffic against a running leaderboard
// service and verifies the resulting boards against locally computed
// expectations.
package loadgen

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gideonadeti/realtime-leaderboard/pkg/logger"
)

// settleDelay gives the refresh pipeline time to drain before reads.
const settleDelay = 2 * time.Second

// Run executes a complete load run: create users, submit events, fetch the
// boards, and verify them.
func Run(ctx context.Context, cfg *Config) error {
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get().Named("loadgen")

	log.Info(ctx, "starting load run",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("users", cfg.NumUsers),
		logger.Int("scores", cfg.NumScores),
		logger.Int("games", cfg.NumGames),
		logger.Int("workers", cfg.Workers),
	)

	client := newHTTPClient(cfg.Timeout)

	if err := checkServiceHealth(ctx, cfg, client); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	w := generate(cfg)
	log.Info(ctx, "generated workload",
		logger.Int("users", len(w.users)),
		logger.Int("scores", len(w.scores)),
		logger.Int("games", len(w.games)),
	)

	if err := createUsers(ctx, cfg, client, w.users, stats); err != nil {
		return fmt.Errorf("user creation failed: %w", err)
	}

	if err := submitEvents(ctx, cfg, client, w, stats); err != nil {
		return fmt.Errorf("event submission failed: %w", err)
	}

	log.Info(ctx, "waiting for refreshes to settle")
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(settleDelay):
	}

	if err := verify(ctx, cfg, client, w, stats); err != nil {
		return fmt.Errorf("verification failed: %w", err)
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	var eventsPerSecond float64
	if stats.Duration > 0 {
		eventsPerSecond = float64(stats.EventsSubmitted) / stats.Duration.Seconds()
	}
	log.Info(ctx, "load run completed",
		logger.Int("usersCreated", stats.UsersCreated),
		logger.Int("eventsSubmitted", stats.EventsSubmitted),
		logger.Int("eventsOK", stats.EventsOK),
		logger.Int("eventsDuplicate", stats.EventsDuplicate),
		logger.Int("eventsFailed", stats.EventsFailed),
		logger.Int("boardsFetched", stats.BoardsFetched),
		logger.Duration("duration", stats.Duration),
		logger.Float64("eventsPerSecond", eventsPerSecond),
	)
	return nil
}

// checkServiceHealth verifies the service is running before generating load.
func checkServiceHealth(ctx context.Context, cfg *Config, client *httpClient) error {
	resp, err := client.get(ctx, cfg.BaseURL+"/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	if _, err := readResponseBody(resp); err != nil {
		return fmt.Errorf("failed to read health response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
	return nil
}
