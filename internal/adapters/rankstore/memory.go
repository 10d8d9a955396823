package rankstore

import (
	"context"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/gideonadeti/realtime-leaderboard/internal/domain/board"
	"github.com/gideonadeti/realtime-leaderboard/pkg/metrics"
)

// Treap-based, in-memory Store implementation.
//
// Every scope owns one treap ordered by a normalized rank key: ascending
// scopes rank by the raw score, descending scopes by the negated score, so
// in-order traversal always walks from best to worst and equal scores fall
// back to entity id ascending. The same normalization is used by the Redis
// backend, which keeps rank assignment reproducible across backends.

// scoreScale controls fixed-point scaling from float64. Nine decimal places
// cover score values and sub-second durations without overflow for any
// realistic magnitude.
const scoreScale = 1_000_000_000

type scoreFP int64

func toFixedPoint(x float64) scoreFP {
	if math.IsNaN(x) {
		return 0
	}
	scaled := math.Round(x * scoreScale)
	if scaled >= float64(math.MaxInt64) {
		return scoreFP(math.MaxInt64)
	}
	if scaled <= float64(math.MinInt64) {
		return scoreFP(math.MinInt64)
	}
	return scoreFP(scaled)
}

// treap node, size-augmented so range windows can skip offset entries in
// O(log n) instead of walking them.
type node struct {
	id    string
	key   scoreFP
	prio  uint64
	left  *node
	right *node
	size  int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

// less reports whether (aKey, aID) ranks earlier than (bKey, bID). Lower
// normalized key ranks earlier; ties break by id ascending.
func less(aKey scoreFP, aID string, bKey scoreFP, bID string) bool {
	if aKey != bKey {
		return aKey < bKey
	}
	return aID < bID
}

func rotateRight(y *node) *node {
	x := y.left
	t2 := x.right
	x.right = y
	y.left = t2
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	t2 := y.left
	y.left = x
	x.right = t2
	fix(x)
	fix(y)
	return y
}

func insert(n *node, id string, key scoreFP) *node {
	if n == nil {
		return &node{id: id, key: key, prio: rand.Uint64(), size: 1}
	}
	if less(key, id, n.key, n.id) {
		n.left = insert(n.left, id, key)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, id, key)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, id string, key scoreFP) *node {
	if n == nil {
		return nil
	}
	if key == n.key && id == n.id {
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, id, key)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, id, key)
		}
	} else if less(key, id, n.key, n.id) {
		n.left = deleteNode(n.left, id, key)
	} else {
		n.right = deleteNode(n.right, id, key)
	}
	fix(n)
	return n
}

// scopeTree holds one scope's ordered set plus an id index for O(1) lookups.
type scopeTree struct {
	ordering board.Ordering
	root     *node
	scores   map[string]float64
}

func newScopeTree(ordering board.Ordering) *scopeTree {
	return &scopeTree{ordering: ordering, scores: make(map[string]float64)}
}

// rankKey normalizes a raw score into the tree's sort key.
func (t *scopeTree) rankKey(score float64) scoreFP {
	fp := toFixedPoint(score)
	if t.ordering == board.Descending {
		return -fp
	}
	return fp
}

func (t *scopeTree) set(id string, score float64) {
	if old, ok := t.scores[id]; ok {
		t.root = deleteNode(t.root, id, t.rankKey(old))
	}
	t.scores[id] = score
	t.root = insert(t.root, id, t.rankKey(score))
}

func (t *scopeTree) remove(id string) {
	old, ok := t.scores[id]
	if !ok {
		return
	}
	t.root = deleteNode(t.root, id, t.rankKey(old))
	delete(t.scores, id)
}

// window collects [offset, offset+limit) in rank order, skipping whole
// subtrees via the size augmentation.
func (t *scopeTree) window(offset, limit int) []Entry {
	out := make([]Entry, 0, limit)
	skip := offset
	var walk func(n *node)
	walk = func(n *node) {
		if n == nil || len(out) >= limit {
			return
		}
		if skip >= n.size {
			skip -= n.size
			return
		}
		walk(n.left)
		if len(out) >= limit {
			return
		}
		if skip > 0 {
			skip--
		} else {
			out = append(out, Entry{EntityID: n.id, Score: t.scores[n.id]})
		}
		walk(n.right)
	}
	walk(t.root)
	return out
}

// MemoryStore implements Store with one treap per scope. It backs tests and
// single-process deployments; production deployments use the Redis backend.
type MemoryStore struct {
	mu     sync.RWMutex
	scopes map[string]*scopeTree
}

// NewMemoryStore constructs an empty in-memory ranking store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{scopes: make(map[string]*scopeTree)}
}

// tree returns the scope's tree, creating it lazily on first write.
func (s *MemoryStore) tree(scope board.Scope) *scopeTree {
	t, ok := s.scopes[scope.String()]
	if !ok {
		t = newScopeTree(scope.Ordering())
		s.scopes[scope.String()] = t
	}
	return t
}

// Increment implements Store.Increment in O(log n) expected time.
func (s *MemoryStore) Increment(ctx context.Context, scope board.Scope, entityID string, delta float64) (float64, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreUpdateLatency(float64(time.Since(start).Milliseconds()))
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.tree(scope)
	next := t.scores[entityID] + delta
	t.set(entityID, next)
	return next, nil
}

// UpdateIfBetter implements Store.UpdateIfBetter in O(log n) expected time.
func (s *MemoryStore) UpdateIfBetter(ctx context.Context, scope board.Scope, entityID string, candidate float64, cmp board.Comparator) (float64, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreUpdateLatency(float64(time.Since(start).Milliseconds()))
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.tree(scope)
	if existing, ok := t.scores[entityID]; ok && !cmp.Accepts(candidate, existing) {
		return existing, nil
	}
	t.set(entityID, candidate)
	return candidate, nil
}

// RangeOrdered implements Store.RangeOrdered. When the requested ordering
// matches the scope's natural policy the window comes straight off the tree;
// a reversed request falls back to a full sort.
func (s *MemoryStore) RangeOrdered(ctx context.Context, scope board.Scope, ordering board.Ordering, offset, limit int) ([]Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	if offset < 0 || limit < 1 {
		metrics.RecordStoreError("invalid_window")
		return nil, ErrInvalidWindow
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.scopes[scope.String()]
	if !ok {
		return []Entry{}, nil
	}
	if ordering == t.ordering {
		return t.window(offset, limit), nil
	}

	all := make([]Entry, 0, len(t.scores))
	for id, score := range t.scores {
		all = append(all, Entry{EntityID: id, Score: score})
	}
	sortEntries(all, ordering)
	if offset >= len(all) {
		return []Entry{}, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

// Remove implements Store.Remove; removing an unknown entity is a no-op.
func (s *MemoryStore) Remove(ctx context.Context, scope board.Scope, entityID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.scopes[scope.String()]; ok {
		t.remove(entityID)
	}
	return nil
}

// ReplaceAll implements Store.ReplaceAll by building the replacement tree
// offline and swapping it in under the write lock.
func (s *MemoryStore) ReplaceAll(ctx context.Context, scope board.Scope, entries []Entry) error {
	next := newScopeTree(scope.Ordering())
	for _, e := range entries {
		next.set(e.EntityID, e.Score)
	}

	s.mu.Lock()
	s.scopes[scope.String()] = next
	s.mu.Unlock()
	return nil
}

// Count implements Store.Count.
func (s *MemoryStore) Count(ctx context.Context, scope board.Scope) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.scopes[scope.String()]
	if !ok {
		return 0, nil
	}
	return len(t.scores), nil
}

// sortEntries orders entries per ordering with the id-ascending tie-break.
func sortEntries(entries []Entry, ordering board.Ordering) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			if ordering == board.Ascending {
				return entries[i].Score < entries[j].Score
			}
			return entries[i].Score > entries[j].Score
		}
		return entries[i].EntityID < entries[j].EntityID
	})
}
