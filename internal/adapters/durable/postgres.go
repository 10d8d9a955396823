package durable

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gideonadeti/realtime-leaderboard/internal/domain/model"
)

// PostgresStore implements Store on Postgres via pgx. It is the production
// home of the authoritative event log.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects a pool, verifies it, and ensures the schema.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgx pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}

	s := &PostgresStore{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS users (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL DEFAULT '',
	email      TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS score_events (
	id          TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	activity_id TEXT NOT NULL,
	value       DOUBLE PRECISION NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS score_events_user_idx ON score_events(user_id);
CREATE TABLE IF NOT EXISTS game_events (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	duration   DOUBLE PRECISION NOT NULL,
	outcome    TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS game_events_user_idx ON game_events(user_id);
`
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// CreateScoreEvent implements Store.CreateScoreEvent.
func (s *PostgresStore) CreateScoreEvent(ctx context.Context, ev model.ScoreEvent) (string, error) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO score_events (id, user_id, activity_id, value, created_at) VALUES ($1, $2, $3, $4, $5)`,
		ev.ID, ev.EntityID, ev.ActivityID, ev.Value, ev.CreatedAt)
	if err != nil {
		return "", fmt.Errorf("insert score event: %w", err)
	}
	return ev.ID, nil
}

// CreateGameEvent implements Store.CreateGameEvent.
func (s *PostgresStore) CreateGameEvent(ctx context.Context, ev model.GameEvent) (string, error) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO game_events (id, user_id, duration, outcome, created_at) VALUES ($1, $2, $3, $4, $5)`,
		ev.ID, ev.EntityID, ev.Duration, string(ev.Outcome), ev.CreatedAt)
	if err != nil {
		return "", fmt.Errorf("insert game event: %w", err)
	}
	return ev.ID, nil
}

// GetEntity implements Store.GetEntity.
func (s *PostgresStore) GetEntity(ctx context.Context, id string) (model.Entity, error) {
	var e model.Entity
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, email, created_at FROM users WHERE id = $1`, id).
		Scan(&e.ID, &e.Name, &e.Email, &e.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Entity{}, ErrNotFound
	}
	if err != nil {
		return model.Entity{}, fmt.Errorf("get entity: %w", err)
	}
	return e, nil
}

// UpsertEntity implements Store.UpsertEntity.
func (s *PostgresStore) UpsertEntity(ctx context.Context, e model.Entity) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (id, name, email, created_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, email = EXCLUDED.email`,
		e.ID, e.Name, e.Email, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert entity: %w", err)
	}
	return nil
}

// DeleteEntity implements Store.DeleteEntity; events cascade.
func (s *PostgresStore) DeleteEntity(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete entity: %w", err)
	}
	return nil
}

// ActivityIDsForEntity implements Store.ActivityIDsForEntity.
func (s *PostgresStore) ActivityIDsForEntity(ctx context.Context, entityID string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT activity_id FROM score_events WHERE user_id = $1 ORDER BY activity_id`,
		entityID)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan activity id: %w", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	return out, nil
}

// ScanEntities implements Store.ScanEntities, streaming entities in id order
// and loading each one's events before invoking fn.
func (s *PostgresStore) ScanEntities(ctx context.Context, fn func(EntityEvents) error) error {
	rows, err := s.pool.Query(ctx, `SELECT id, name, email, created_at FROM users ORDER BY id`)
	if err != nil {
		return fmt.Errorf("scan users: %w", err)
	}
	entities := make([]model.Entity, 0)
	for rows.Next() {
		var e model.Entity
		if err := rows.Scan(&e.ID, &e.Name, &e.Email, &e.CreatedAt); err != nil {
			rows.Close()
			return fmt.Errorf("scan user: %w", err)
		}
		entities = append(entities, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("scan users: %w", err)
	}

	for _, e := range entities {
		if err := ctx.Err(); err != nil {
			return err
		}
		batch := EntityEvents{Entity: e}
		if batch.Scores, err = s.scoreEventsFor(ctx, e.ID); err != nil {
			return err
		}
		if batch.Games, err = s.gameEventsFor(ctx, e.ID); err != nil {
			return err
		}
		if err := fn(batch); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) scoreEventsFor(ctx context.Context, entityID string) ([]model.ScoreEvent, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, activity_id, value, created_at FROM score_events WHERE user_id = $1 ORDER BY created_at, id`,
		entityID)
	if err != nil {
		return nil, fmt.Errorf("scan score events: %w", err)
	}
	defer rows.Close()

	var out []model.ScoreEvent
	for rows.Next() {
		var ev model.ScoreEvent
		if err := rows.Scan(&ev.ID, &ev.EntityID, &ev.ActivityID, &ev.Value, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan score event: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (s *PostgresStore) gameEventsFor(ctx context.Context, entityID string) ([]model.GameEvent, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, duration, outcome, created_at FROM game_events WHERE user_id = $1 ORDER BY created_at, id`,
		entityID)
	if err != nil {
		return nil, fmt.Errorf("scan game events: %w", err)
	}
	defer rows.Close()

	var out []model.GameEvent
	for rows.Next() {
		var ev model.GameEvent
		var outcome string
		if err := rows.Scan(&ev.ID, &ev.EntityID, &ev.Duration, &outcome, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan game event: %w", err)
		}
		ev.Outcome = model.Outcome(outcome)
		out = append(out, ev)
	}
	return out, rows.Err()
}
