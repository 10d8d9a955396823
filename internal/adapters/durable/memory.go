package durable

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gideonadeti/realtime-leaderboard/internal/domain/model"
)

// MemoryStore is an in-memory Store used by tests and single-process
// deployments without Postgres. It honors the same contract as the Postgres
// backend, including deterministic scan order.
type MemoryStore struct {
	mu       sync.RWMutex
	entities map[string]model.Entity
	scores   map[string][]model.ScoreEvent // keyed by entity id
	games    map[string][]model.GameEvent
}

// NewMemoryStore constructs an empty in-memory durable store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entities: make(map[string]model.Entity),
		scores:   make(map[string][]model.ScoreEvent),
		games:    make(map[string][]model.GameEvent),
	}
}

// CreateScoreEvent implements Store.CreateScoreEvent.
func (s *MemoryStore) CreateScoreEvent(ctx context.Context, ev model.ScoreEvent) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	s.scores[ev.EntityID] = append(s.scores[ev.EntityID], ev)
	return ev.ID, nil
}

// CreateGameEvent implements Store.CreateGameEvent.
func (s *MemoryStore) CreateGameEvent(ctx context.Context, ev model.GameEvent) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	s.games[ev.EntityID] = append(s.games[ev.EntityID], ev)
	return ev.ID, nil
}

// GetEntity implements Store.GetEntity.
func (s *MemoryStore) GetEntity(ctx context.Context, id string) (model.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entities[id]
	if !ok {
		return model.Entity{}, ErrNotFound
	}
	return e, nil
}

// UpsertEntity implements Store.UpsertEntity.
func (s *MemoryStore) UpsertEntity(ctx context.Context, e model.Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	s.entities[e.ID] = e
	return nil
}

// DeleteEntity implements Store.DeleteEntity; deleting an unknown entity is
// a no-op so removal stays idempotent.
func (s *MemoryStore) DeleteEntity(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entities, id)
	delete(s.scores, id)
	delete(s.games, id)
	return nil
}

// ActivityIDsForEntity implements Store.ActivityIDsForEntity.
func (s *MemoryStore) ActivityIDsForEntity(ctx context.Context, entityID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, ev := range s.scores[entityID] {
		if _, ok := seen[ev.ActivityID]; ok {
			continue
		}
		seen[ev.ActivityID] = struct{}{}
		out = append(out, ev.ActivityID)
	}
	sort.Strings(out)
	return out, nil
}

// ScanEntities implements Store.ScanEntities in ascending entity id order so
// repeated scans of unchanged data visit records identically.
func (s *MemoryStore) ScanEntities(ctx context.Context, fn func(EntityEvents) error) error {
	s.mu.RLock()
	ids := make([]string, 0, len(s.entities))
	for id := range s.entities {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	batches := make([]EntityEvents, 0, len(ids))
	for _, id := range ids {
		batches = append(batches, EntityEvents{
			Entity: s.entities[id],
			Scores: append([]model.ScoreEvent(nil), s.scores[id]...),
			Games:  append([]model.GameEvent(nil), s.games[id]...),
		})
	}
	s.mu.RUnlock()

	for _, b := range batches {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(b); err != nil {
			return err
		}
	}
	return nil
}
