// Package rankstore defines the ordered-set ranking store contract and its
// backends. The store is a rebuildable cache of aggregates over the durable
// event log, never the system of record.
package rankstore

import (
	"context"

	"github.com/gideonadeti/realtime-leaderboard/internal/domain/board"
)

// Entry is one (entity, score) pair inside a scope. At most one entry exists
// per entity per scope.
type Entry struct {
	EntityID string
	Score    float64
}

// Store provides read/write access to ranking state, one independent ordered
// set per scope. Increment and UpdateIfBetter are atomic with respect to
// concurrent callers on the same scope+entity; no further cross-entity or
// cross-scope ordering is guaranteed.
type Store interface {
	// Increment atomically adds delta to the entity's score in scope,
	// creating the entry at delta if absent, and returns the new score.
	Increment(ctx context.Context, scope board.Scope, entityID string, delta float64) (float64, error)

	// UpdateIfBetter atomically writes candidate as the entity's score only
	// if no entry exists or cmp accepts the candidate over the stored value.
	// It returns the value stored after the call, which is the prior one
	// when the update was a no-op.
	UpdateIfBetter(ctx context.Context, scope board.Scope, entityID string, candidate float64, cmp board.Comparator) (float64, error)

	// RangeOrdered returns the window [offset, offset+limit) of the scope's
	// entries sorted per ordering, ties broken by entity id ascending.
	RangeOrdered(ctx context.Context, scope board.Scope, ordering board.Ordering, offset, limit int) ([]Entry, error)

	// Remove deletes the entity's entry if present. Removing an absent
	// entry is a no-op, not an error.
	Remove(ctx context.Context, scope board.Scope, entityID string) error

	// ReplaceAll atomically discards all prior entries in scope and installs
	// entries. Used only by the reconciler; implementations must write then
	// swap so readers never observe a partially replaced scope.
	ReplaceAll(ctx context.Context, scope board.Scope, entries []Entry) error

	// Count returns the number of entities tracked in scope.
	Count(ctx context.Context, scope board.Scope) (int, error)
}
