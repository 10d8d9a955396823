// Package durable defines the contract with the authoritative event store.
// The ranking engine reads it for display-attribute joins and reconciliation
// scans and writes only through the narrow create/delete operations below;
// everything in the ranking store is derived from it and rebuildable.
package durable

import (
	"context"
	"errors"

	"github.com/gideonadeti/realtime-leaderboard/internal/domain/model"
)

// Sentinel kinds for durable store errors.
var (
	ErrNotFound = errors.New("entity not found")
)

// EntityEvents bundles an entity with every event it owns, as returned by a
// reconciliation scan.
type EntityEvents struct {
	Entity model.Entity
	Scores []model.ScoreEvent
	Games  []model.GameEvent
}

// Store is the boundary with the durable event log.
type Store interface {
	// CreateScoreEvent persists a score submission and returns its id.
	CreateScoreEvent(ctx context.Context, ev model.ScoreEvent) (string, error)

	// CreateGameEvent persists a completed game and returns its id.
	CreateGameEvent(ctx context.Context, ev model.GameEvent) (string, error)

	// GetEntity returns display attributes for an entity, or ErrNotFound.
	GetEntity(ctx context.Context, id string) (model.Entity, error)

	// UpsertEntity creates or refreshes an entity's display attributes.
	UpsertEntity(ctx context.Context, e model.Entity) error

	// DeleteEntity removes the entity and its events.
	DeleteEntity(ctx context.Context, id string) error

	// ActivityIDsForEntity lists every activity the entity has score events
	// on; the removal path uses it to enumerate per-activity scopes.
	ActivityIDsForEntity(ctx context.Context, entityID string) ([]string, error)

	// ScanEntities streams every entity with its events through fn. Used
	// only by the reconciler; a full table scan, never on the hot path.
	// Returning an error from fn aborts the scan.
	ScanEntities(ctx context.Context, fn func(EntityEvents) error) error
}
