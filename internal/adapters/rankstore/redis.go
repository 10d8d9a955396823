package rankstore

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/gideonadeti/realtime-leaderboard/internal/domain/board"
	"github.com/gideonadeti/realtime-leaderboard/pkg/metrics"
)

// RedisStore implements Store on Redis sorted sets, one ZSET per scope.
//
// Scores are stored normalized (descending scopes negated) so every read is
// a plain ZRANGE: ascending member order with Redis's lexicographic tie
// handling yields exactly the rank policy the engine promises, including the
// entity-id-ascending tie-break. Conditional updates map onto ZADD LT/GT, and
// ReplaceAll writes a shadow key and RENAMEs it over the live one so readers
// never see a half-replaced scope.
type RedisStore struct {
	client    *goredis.Client
	keyPrefix string
}

const dialTimeout = 5 * time.Second

// RedisOption applies a configuration option to the RedisStore.
type RedisOption func(*RedisStore)

// WithKeyPrefix sets the key namespace prepended to every scope key.
func WithKeyPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		if prefix != "" {
			s.keyPrefix = prefix
		}
	}
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, addr string, opts ...RedisOption) (*RedisStore, error) {
	s := &RedisStore{
		keyPrefix: "leaderboard:",
	}
	for _, opt := range opts {
		opt(s)
	}

	s.client = goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: dialTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	if err := s.client.Ping(pingCtx).Err(); err != nil {
		_ = s.client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return s, nil
}

// Close releases the underlying connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) key(scope board.Scope) string {
	return s.keyPrefix + scope.String()
}

// sign is the normalization factor for a scope: descending boards store
// negated scores so lower stored value always means better rank.
func sign(scope board.Scope) float64 {
	if scope.Ordering() == board.Descending {
		return -1
	}
	return 1
}

// unavailable tags a backend failure so callers can errors.Is it.
func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %v: %w", op, err, ErrUnavailable)
}

// Increment implements Store.Increment via ZINCRBY.
func (s *RedisStore) Increment(ctx context.Context, scope board.Scope, entityID string, delta float64) (float64, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreUpdateLatency(float64(time.Since(start).Milliseconds()))
	}()

	n := sign(scope)
	stored, err := s.client.ZIncrBy(ctx, s.key(scope), n*delta, entityID).Result()
	if err != nil {
		metrics.RecordStoreError("increment")
		return 0, unavailable("zincrby "+s.key(scope), err)
	}
	return n * stored, nil
}

// UpdateIfBetter implements Store.UpdateIfBetter via ZADD LT/GT.
func (s *RedisStore) UpdateIfBetter(ctx context.Context, scope board.Scope, entityID string, candidate float64, cmp board.Comparator) (float64, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreUpdateLatency(float64(time.Since(start).Milliseconds()))
	}()

	n := sign(scope)
	// Negating the stored scores flips the comparator's direction too.
	effective := cmp
	if n < 0 {
		if cmp == board.Less {
			effective = board.Greater
		} else {
			effective = board.Less
		}
	}

	key := s.key(scope)
	member := goredis.Z{Score: n * candidate, Member: entityID}
	var err error
	if effective == board.Less {
		err = s.client.ZAddLT(ctx, key, member).Err()
	} else {
		err = s.client.ZAddGT(ctx, key, member).Err()
	}
	if err != nil {
		metrics.RecordStoreError("update_if_better")
		return 0, unavailable("zadd "+key, err)
	}

	stored, err := s.client.ZScore(ctx, key, entityID).Result()
	if err != nil {
		metrics.RecordStoreError("update_if_better")
		return 0, unavailable("zscore "+key, err)
	}
	return n * stored, nil
}

// RangeOrdered implements Store.RangeOrdered via ZRANGE over the normalized
// set. A request for the scope's natural ordering preserves the id-ascending
// tie-break exactly; a reversed request follows Redis's reverse member order
// on ties.
func (s *RedisStore) RangeOrdered(ctx context.Context, scope board.Scope, ordering board.Ordering, offset, limit int) ([]Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	if offset < 0 || limit < 1 {
		metrics.RecordStoreError("invalid_window")
		return nil, ErrInvalidWindow
	}

	key := s.key(scope)
	lo := int64(offset)
	hi := int64(offset+limit) - 1

	var zs []goredis.Z
	var err error
	if ordering == scope.Ordering() {
		zs, err = s.client.ZRangeWithScores(ctx, key, lo, hi).Result()
	} else {
		zs, err = s.client.ZRevRangeWithScores(ctx, key, lo, hi).Result()
	}
	if err != nil {
		metrics.RecordStoreError("range")
		return nil, unavailable("zrange "+key, err)
	}

	n := sign(scope)
	out := make([]Entry, 0, len(zs))
	for _, z := range zs {
		id, ok := z.Member.(string)
		if !ok {
			continue
		}
		out = append(out, Entry{EntityID: id, Score: n * z.Score})
	}
	return out, nil
}

// Remove implements Store.Remove via ZREM; unknown members are a no-op.
func (s *RedisStore) Remove(ctx context.Context, scope board.Scope, entityID string) error {
	if err := s.client.ZRem(ctx, s.key(scope), entityID).Err(); err != nil {
		metrics.RecordStoreError("remove")
		return unavailable("zrem "+s.key(scope), err)
	}
	return nil
}

// ReplaceAll implements Store.ReplaceAll with a write-then-swap: entries go
// into a shadow key which is RENAMEd over the live key in one atomic step.
func (s *RedisStore) ReplaceAll(ctx context.Context, scope board.Scope, entries []Entry) error {
	key := s.key(scope)
	if len(entries) == 0 {
		if err := s.client.Del(ctx, key).Err(); err != nil {
			metrics.RecordStoreError("replace_all")
			return unavailable("del "+key, err)
		}
		return nil
	}

	shadow := key + ":rebuild"
	n := sign(scope)
	members := make([]goredis.Z, len(entries))
	for i, e := range entries {
		members[i] = goredis.Z{Score: n * e.Score, Member: e.EntityID}
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, shadow)
	pipe.ZAdd(ctx, shadow, members...)
	pipe.Rename(ctx, shadow, key)
	if _, err := pipe.Exec(ctx); err != nil {
		metrics.RecordStoreError("replace_all")
		return unavailable("replace "+key, err)
	}
	return nil
}

// Count implements Store.Count via ZCARD.
func (s *RedisStore) Count(ctx context.Context, scope board.Scope) (int, error) {
	card, err := s.client.ZCard(ctx, s.key(scope)).Result()
	if err != nil {
		metrics.RecordStoreError("count")
		return 0, unavailable("zcard "+s.key(scope), err)
	}
	return int(card), nil
}
