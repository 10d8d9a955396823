package loadgen

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/gideonadeti/realtime-leaderboard/pkg/logger"
)

// scoreTolerance absorbs float accumulation differences between the service
// and the local expectation.
const scoreTolerance = 1e-6

// verify fetches the global boards and checks them against locally computed
// expectations from the generated workload.
func verify(ctx context.Context, cfg *Config, client *httpClient, w *workload, stats *Stats) error {
	log := logger.Get().Named("loadgen")

	expected := expectedTotals(w)

	path := fmt.Sprintf("/leaderboard?kind=cumulative-score&limit=%d", cfg.TopN)
	board, err := fetchBoard(ctx, cfg, client, path, stats)
	if err != nil {
		return err
	}
	if err := checkDescending(board); err != nil {
		return fmt.Errorf("cumulative-score board: %w", err)
	}
	for _, e := range board {
		want, ok := expected[e.EntityID]
		if !ok {
			return fmt.Errorf("cumulative-score board contains unknown entity %s", e.EntityID)
		}
		if math.Abs(e.Score-want) > scoreTolerance {
			return fmt.Errorf("entity %s: board score %.6f, expected %.6f", e.EntityID, e.Score, want)
		}
	}
	if len(board) > 0 {
		top := topExpected(expected)
		if board[0].EntityID != top {
			return fmt.Errorf("board leader %s, expected %s", board[0].EntityID, top)
		}
	}
	log.Info(ctx, "cumulative-score board verified", logger.Int("entries", len(board)))

	path = fmt.Sprintf("/leaderboard?kind=best-duration&limit=%d", cfg.TopN)
	durations, err := fetchBoard(ctx, cfg, client, path, stats)
	if err != nil {
		return err
	}
	if err := checkAscending(durations); err != nil {
		return fmt.Errorf("best-duration board: %w", err)
	}
	log.Info(ctx, "best-duration board verified", logger.Int("entries", len(durations)))

	path = fmt.Sprintf("/leaderboard?kind=games-played&limit=%d", cfg.TopN)
	played, err := fetchBoard(ctx, cfg, client, path, stats)
	if err != nil {
		return err
	}
	if err := checkDescending(played); err != nil {
		return fmt.Errorf("games-played board: %w", err)
	}
	log.Info(ctx, "games-played board verified", logger.Int("entries", len(played)))

	return nil
}

// expectedTotals computes the cumulative score a correct service should hold
// per user.
func expectedTotals(w *workload) map[string]float64 {
	totals := make(map[string]float64)
	for _, sc := range w.scores {
		totals[sc.UserID] += sc.Value
	}
	return totals
}

// topExpected returns the user with the highest expected total, lowest id
// winning ties.
func topExpected(expected map[string]float64) string {
	type pair struct {
		id    string
		total float64
	}
	pairs := make([]pair, 0, len(expected))
	for id, total := range expected {
		pairs = append(pairs, pair{id: id, total: total})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].total != pairs[j].total {
			return pairs[i].total > pairs[j].total
		}
		return pairs[i].id < pairs[j].id
	})
	if len(pairs) == 0 {
		return ""
	}
	return pairs[0].id
}

func checkDescending(entries []Entry) error {
	for i := 1; i < len(entries); i++ {
		if entries[i].Score > entries[i-1].Score {
			return fmt.Errorf("entry %d outranks entry %d", i, i-1)
		}
	}
	return checkRanks(entries)
}

func checkAscending(entries []Entry) error {
	for i := 1; i < len(entries); i++ {
		if entries[i].Score < entries[i-1].Score {
			return fmt.Errorf("entry %d outranks entry %d", i, i-1)
		}
	}
	return checkRanks(entries)
}

func checkRanks(entries []Entry) error {
	for i, e := range entries {
		if e.Rank != i+1 {
			return fmt.Errorf("entry %d carries rank %d", i, e.Rank)
		}
	}
	return nil
}
