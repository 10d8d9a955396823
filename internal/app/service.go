// Package app provides the leaderboard service: it decides which ranking
// scopes an event touches, applies the updates, derives ranked views joined
// with durable display attributes, and fans refreshed boards out to
// observers.
package app

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/gideonadeti/realtime-leaderboard/internal/adapters/broadcast"
	"github.com/gideonadeti/realtime-leaderboard/internal/adapters/durable"
	"github.com/gideonadeti/realtime-leaderboard/internal/adapters/mq/queue"
	"github.com/gideonadeti/realtime-leaderboard/internal/adapters/mq/worker"
	"github.com/gideonadeti/realtime-leaderboard/internal/adapters/rankstore"
	"github.com/gideonadeti/realtime-leaderboard/internal/domain/board"
	"github.com/gideonadeti/realtime-leaderboard/internal/domain/dedupe"
	"github.com/gideonadeti/realtime-leaderboard/internal/domain/model"
	"github.com/gideonadeti/realtime-leaderboard/internal/domain/types"
	"github.com/gideonadeti/realtime-leaderboard/pkg/logger"
	"github.com/gideonadeti/realtime-leaderboard/pkg/metrics"
)

// Service implements the ranking engine over an injected ranking store,
// durable store, and broadcaster.
//
// Consistency: the ranking store is a derived cache. Writes go to the
// durable store first; a ranking store failure after that point is logged
// and swallowed, and the cache self-heals on the next successful write or
// Rebuild. Reads are eventually consistent with concurrent writes: a query
// racing another caller's update may observe either the pre- or post-update
// window.
type Service struct {
	mu sync.RWMutex

	// Core components
	ranks       rankstore.Store
	durable     durable.Store
	broadcaster broadcast.Broadcaster
	deduper     dedupe.Deduper
	refreshes   queue.Queue
	pool        *worker.Pool
	reconciler  *Reconciler

	// Configuration
	workerCount     int
	queueSize       int
	dedupeSize      int
	broadcastWindow int

	// State
	started bool

	logger logger.Logger
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:     runtime.NumCPU() * 2,
		queueSize:       10_000,
		dedupeSize:      100_000,
		broadcastWindow: 10,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start wires defaults for any component not injected and launches the
// refresh workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("app")
	}
	if s.ranks == nil {
		s.ranks = rankstore.NewMemoryStore()
		s.logger.Info(ctx, "using in-memory ranking store")
	}
	if s.durable == nil {
		s.durable = durable.NewMemoryStore()
		s.logger.Info(ctx, "using in-memory durable store")
	}
	if s.broadcaster == nil {
		s.broadcaster = broadcast.NewHub()
	}
	if s.deduper == nil {
		s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	}

	s.refreshes = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.pool = worker.NewPool(s.workerCount, s.refreshes, s)
	s.pool.Start(ctx)

	s.reconciler = NewReconciler(s.durable, s.ranks, WithReconcilerLogger(s.logger.Named("reconciler")))

	s.started = true
	s.logger.Info(ctx, "leaderboard service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("broadcastWindow", s.broadcastWindow),
	)
	return nil
}

// Stop gracefully shuts down the refresh pipeline.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping leaderboard service...")

	_ = s.refreshes.Close()
	s.pool.Stop()

	s.started = false
	s.logger.Info(ctx, "leaderboard service stopped")
}

// RecordScore persists a score event and maintains the per-activity and
// global cumulative boards. The durable write is authoritative; everything
// after it is cache maintenance and must not fail the call.
func (s *Service) RecordScore(ctx context.Context, entityID, activityID string, value float64) (model.ScoreEvent, error) {
	ev := model.ScoreEvent{EntityID: entityID, ActivityID: activityID, Value: value}
	id, err := s.durable.CreateScoreEvent(ctx, ev)
	if err != nil {
		return model.ScoreEvent{}, fmt.Errorf("record score: %w", err)
	}
	ev.ID = id
	metrics.RecordEventRecorded("score")

	scopes := []board.Scope{
		board.Activity(activityID),
		board.Global(board.KindCumulativeScore),
	}
	for _, scope := range scopes {
		if _, err := s.ranks.Increment(ctx, scope, entityID, value); err != nil {
			s.logger.Error(ctx, "ranking increment failed; cache will self-heal",
				logger.String("scope", scope.String()),
				logger.String("entity", entityID),
				logger.Error(err),
			)
			metrics.RecordErrorByComponent("app", "rank_increment")
		}
	}

	s.scheduleRefresh(ctx, scopes...)
	return ev, nil
}

// RecordGame persists a game event, always bumps the games-played counter,
// and improves the best-duration board only for wins.
func (s *Service) RecordGame(ctx context.Context, entityID string, duration float64, outcome model.Outcome) (model.GameEvent, error) {
	ev := model.GameEvent{EntityID: entityID, Duration: duration, Outcome: outcome}
	id, err := s.durable.CreateGameEvent(ctx, ev)
	if err != nil {
		return model.GameEvent{}, fmt.Errorf("record game: %w", err)
	}
	ev.ID = id
	metrics.RecordEventRecorded("game")

	scopes := []board.Scope{board.Global(board.KindGamesPlayed)}
	if _, err := s.ranks.Increment(ctx, board.Global(board.KindGamesPlayed), entityID, 1); err != nil {
		s.logger.Error(ctx, "games-played increment failed; cache will self-heal",
			logger.String("entity", entityID),
			logger.Error(err),
		)
		metrics.RecordErrorByComponent("app", "rank_increment")
	}

	if outcome == model.OutcomeWon {
		scope := board.Global(board.KindBestDuration)
		scopes = append(scopes, scope)
		if _, err := s.ranks.UpdateIfBetter(ctx, scope, entityID, duration, board.Less); err != nil {
			s.logger.Error(ctx, "best-duration update failed; cache will self-heal",
				logger.String("entity", entityID),
				logger.Error(err),
			)
			metrics.RecordErrorByComponent("app", "rank_update")
		}
	}

	s.scheduleRefresh(ctx, scopes...)
	return ev, nil
}

// Leaderboard returns the ranked window [offset, offset+limit) of one scope,
// joined with durable display attributes. Entities that no longer resolve
// are dropped from the result; their rank slots are not reassigned until the
// entry is removed or reconciled away.
func (s *Service) Leaderboard(ctx context.Context, kind board.Kind, scopeKey string, offset, limit int) ([]types.RankedEntry, error) {
	scope := board.Scope{Kind: kind, Key: scopeKey}
	entries, err := s.ranks.RangeOrdered(ctx, scope, scope.Ordering(), offset, limit)
	if err != nil {
		return nil, fmt.Errorf("leaderboard %s: %w", scope, err)
	}
	return s.join(ctx, entries, offset), nil
}

// join resolves display attributes for a ranked window. Rank is assigned
// from the store window position so it stays the entity's true position in
// the full scope.
func (s *Service) join(ctx context.Context, entries []rankstore.Entry, offset int) []types.RankedEntry {
	out := make([]types.RankedEntry, 0, len(entries))
	for i, e := range entries {
		entity, err := s.durable.GetEntity(ctx, e.EntityID)
		if err != nil {
			if !errors.Is(err, durable.ErrNotFound) {
				s.logger.Warn(ctx, "entity join failed",
					logger.String("entity", e.EntityID),
					logger.Error(err),
				)
			}
			continue
		}
		out = append(out, types.RankedEntry{
			EntityID:    e.EntityID,
			DisplayName: entity.Name,
			Score:       e.Score,
			Rank:        offset + i + 1,
		})
	}
	return out
}

// RemoveEntity removes an entity from every scope it could appear in, then
// deletes its durable record. The scope set is derived centrally: the global
// scope of every registered kind unconditionally, plus each per-activity
// scope the durable store reports, so no call site can forget one.
func (s *Service) RemoveEntity(ctx context.Context, entityID string) error {
	activityIDs, err := s.durable.ActivityIDsForEntity(ctx, entityID)
	if err != nil {
		return fmt.Errorf("remove entity %s: %w", entityID, err)
	}

	scopes := make([]board.Scope, 0, len(board.Kinds())+len(activityIDs))
	for _, kind := range board.Kinds() {
		scopes = append(scopes, board.Global(kind))
	}
	for _, a := range activityIDs {
		scopes = append(scopes, board.Activity(a))
	}

	var removeErrs []error
	for _, scope := range scopes {
		if err := s.ranks.Remove(ctx, scope, entityID); err != nil {
			removeErrs = append(removeErrs, fmt.Errorf("scope %s: %w", scope, err))
		}
	}
	if len(removeErrs) > 0 {
		return fmt.Errorf("remove entity %s: %w", entityID, errors.Join(removeErrs...))
	}

	if err := s.durable.DeleteEntity(ctx, entityID); err != nil {
		return fmt.Errorf("remove entity %s: %w", entityID, err)
	}

	s.scheduleRefresh(ctx, scopes...)
	return nil
}

// UpsertEntity creates or refreshes an entity's display attributes.
func (s *Service) UpsertEntity(ctx context.Context, e model.Entity) error {
	if err := s.durable.UpsertEntity(ctx, e); err != nil {
		return fmt.Errorf("upsert entity %s: %w", e.ID, err)
	}
	return nil
}

// Rebuild runs the reconciler and refreshes every rebuilt scope.
func (s *Service) Rebuild(ctx context.Context) error {
	scopes, err := s.reconciler.Rebuild(ctx)
	if err != nil {
		return err
	}
	s.scheduleRefresh(ctx, scopes...)
	return nil
}

// Refresh recomputes one scope's broadcast window and publishes it. It is
// invoked by the refresh workers and is strictly best effort.
func (s *Service) Refresh(ctx context.Context, scope board.Scope) error {
	entries, err := s.ranks.RangeOrdered(ctx, scope, scope.Ordering(), 0, s.broadcastWindow)
	if err != nil {
		return fmt.Errorf("refresh %s: %w", scope, err)
	}
	ranked := s.join(ctx, entries, 0)
	if err := s.broadcaster.Publish(ctx, scope.Topic(), ranked); err != nil {
		return fmt.Errorf("publish %s: %w", scope.Topic(), err)
	}
	return nil
}

// scheduleRefresh enqueues refresh tasks without ever blocking the caller; a
// full queue costs a broadcast, not a write.
func (s *Service) scheduleRefresh(ctx context.Context, scopes ...board.Scope) {
	for _, scope := range scopes {
		if ok := s.refreshes.Enqueue(ctx, queue.Task{Scope: scope}); !ok {
			s.logger.Warn(ctx, "refresh task dropped",
				logger.String("scope", scope.String()),
			)
		}
	}
}

// SeenAndRecord atomically checks and records an event id for idempotent
// submissions.
func (s *Service) SeenAndRecord(ctx context.Context, id string) bool {
	seen := s.deduper.SeenAndRecord(ctx, id)
	if seen {
		metrics.RecordEventDuplicate()
	}
	return seen
}

// Unrecord releases an event id so a failed submission can be retried.
func (s *Service) Unrecord(ctx context.Context, id string) {
	s.deduper.Unrecord(ctx, id)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
	}

	if s.started {
		stats["queueLength"] = s.refreshes.Len(ctx)
		stats["dedupeEntries"] = s.deduper.Size()
		for _, kind := range board.Kinds() {
			if n, err := s.ranks.Count(ctx, board.Global(kind)); err == nil {
				stats[string(kind)] = n
			}
		}
		if hub, ok := s.broadcaster.(*broadcast.Hub); ok {
			stats["subscribers"] = hub.SubscriberCount()
		}
	}
	return stats
}
