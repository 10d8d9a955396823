package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/gideonadeti/realtime-leaderboard/internal/loadgen"
	"github.com/gideonadeti/realtime-leaderboard/pkg/logger"
)

// Default configuration constants.
const (
	defaultNumUsers   = 500
	defaultNumScores  = 10000
	defaultNumGames   = 2000
	defaultActivities = 5
	defaultTopN       = 50
	defaultWorkers    = 2 // multiplier for runtime.NumCPU()
	defaultTimeout    = 30 * time.Second
	defaultRunTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the service")
		numUsers   = flag.Int("users", defaultNumUsers, "Number of users to create")
		numScores  = flag.Int("scores", defaultNumScores, "Number of score events to submit")
		numGames   = flag.Int("games", defaultNumGames, "Number of game events to submit")
		activities = flag.Int("activities", defaultActivities, "Number of distinct activities")
		topN       = flag.Int("top", defaultTopN, "Number of top entries to fetch from each board")
		workers    = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	if *verbose {
		_ = logger.SetLevelString("debug")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	cfg := &loadgen.Config{
		BaseURL:    *baseURL,
		NumUsers:   *numUsers,
		NumScores:  *numScores,
		NumGames:   *numGames,
		Activities: *activities,
		TopN:       *topN,
		Workers:    *workers,
		Timeout:    *timeout,
		Verbose:    *verbose,
	}

	if err := loadgen.Run(ctx, cfg); err != nil {
		os.Stderr.WriteString("load run failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
