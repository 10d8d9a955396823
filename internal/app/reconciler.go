package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gideonadeti/realtime-leaderboard/internal/adapters/durable"
	"github.com/gideonadeti/realtime-leaderboard/internal/adapters/rankstore"
	"github.com/gideonadeti/realtime-leaderboard/internal/domain/board"
	"github.com/gideonadeti/realtime-leaderboard/internal/domain/model"
	"github.com/gideonadeti/realtime-leaderboard/pkg/logger"
	"github.com/gideonadeti/realtime-leaderboard/pkg/metrics"
)

// Reconciler rebuilds every ranking scope from the durable event history.
// A rebuild is the recovery path for ranking store loss, swallowed cache
// write failures, and durable-side corrections made outside the service.
type Reconciler struct {
	durable durable.Store
	ranks   rankstore.Store
	logger  logger.Logger
}

// ReconcilerOption configures the Reconciler.
type ReconcilerOption func(*Reconciler)

// WithReconcilerLogger sets the reconciler logger.
func WithReconcilerLogger(l logger.Logger) ReconcilerOption {
	return func(r *Reconciler) {
		r.logger = l
	}
}

// NewReconciler constructs a Reconciler over the given stores.
func NewReconciler(d durable.Store, ranks rankstore.Store, opts ...ReconcilerOption) *Reconciler {
	r := &Reconciler{
		durable: d,
		ranks:   ranks,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logger.Get().Named("reconciler")
	}
	return r
}

// scopeAgg accumulates the recomputed entries of one scope during a scan.
type scopeAgg map[string]float64

// Rebuild scans the full event history, recomputes every scope's entries,
// and atomically replaces each scope's live contents. It returns the scopes
// it replaced so callers can refresh them. A failure leaves already-replaced
// scopes in their new state and the rest untouched; the operation is
// idempotent, so the remedy is to run it again.
func (r *Reconciler) Rebuild(ctx context.Context) ([]board.Scope, error) {
	start := time.Now()
	r.logger.Info(ctx, "rebuild started")

	cumulative := scopeAgg{}
	gamesPlayed := scopeAgg{}
	bestDuration := scopeAgg{}
	activities := map[string]scopeAgg{}

	var entities int
	err := r.durable.ScanEntities(ctx, func(ee durable.EntityEvents) error {
		entities++
		id := ee.Entity.ID
		for _, sc := range ee.Scores {
			cumulative[id] += sc.Value
			agg, ok := activities[sc.ActivityID]
			if !ok {
				agg = scopeAgg{}
				activities[sc.ActivityID] = agg
			}
			agg[id] += sc.Value
		}
		for _, g := range ee.Games {
			gamesPlayed[id]++
			if g.Outcome != model.OutcomeWon {
				continue
			}
			best, ok := bestDuration[id]
			if !ok || g.Duration < best {
				bestDuration[id] = g.Duration
			}
		}
		return nil
	})
	if err != nil {
		metrics.RecordErrorByComponent("reconciler", "scan")
		return nil, fmt.Errorf("rebuild scan: %w", err)
	}

	// Global scopes are always replaced, even when empty, so a rebuild
	// clears entries whose source events are gone. Per-activity scopes are
	// replaced for every activity the history still references; an activity
	// with no surviving events keeps stale entries until the next event or
	// an explicit removal touches it.
	replaced := make([]board.Scope, 0, len(board.Kinds())+len(activities))
	globals := []struct {
		scope board.Scope
		agg   scopeAgg
	}{
		{board.Global(board.KindCumulativeScore), cumulative},
		{board.Global(board.KindGamesPlayed), gamesPlayed},
		{board.Global(board.KindBestDuration), bestDuration},
	}
	for _, g := range globals {
		if err := r.replace(ctx, g.scope, g.agg); err != nil {
			return replaced, err
		}
		replaced = append(replaced, g.scope)
	}
	for activityID, agg := range activities {
		scope := board.Activity(activityID)
		if err := r.replace(ctx, scope, agg); err != nil {
			return replaced, err
		}
		replaced = append(replaced, scope)
	}

	elapsed := time.Since(start)
	metrics.RecordRebuildDuration(float64(elapsed.Milliseconds()))
	metrics.RecordRebuild(float64(time.Now().Unix()))
	r.logger.Info(ctx, "rebuild finished",
		logger.Int("entities", entities),
		logger.Int("scopes", len(replaced)),
		logger.Duration("elapsed", elapsed),
	)
	return replaced, nil
}

func (r *Reconciler) replace(ctx context.Context, scope board.Scope, agg scopeAgg) error {
	entries := make([]rankstore.Entry, 0, len(agg))
	for id, score := range agg {
		entries = append(entries, rankstore.Entry{EntityID: id, Score: score})
	}
	if err := r.ranks.ReplaceAll(ctx, scope, entries); err != nil {
		metrics.RecordErrorByComponent("reconciler", "replace")
		return fmt.Errorf("rebuild replace %s: %w", scope, err)
	}
	return nil
}
