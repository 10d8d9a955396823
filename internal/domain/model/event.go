// Package model contains domain records passed between layers.
package model

import "time"

// Outcome is the result of a finished game.
type Outcome string

// Game outcomes.
const (
	OutcomeWon  Outcome = "won"
	OutcomeLost Outcome = "lost"
)

// Valid reports whether o is a known outcome.
func (o Outcome) Valid() bool {
	return o == OutcomeWon || o == OutcomeLost
}

// ScoreEvent is the authoritative record of a score submission. It is owned
// by the durable store; the ranking engine only reads it back.
type ScoreEvent struct {
	ID         string
	EntityID   string
	ActivityID string
	Value      float64
	CreatedAt  time.Time
}

// GameEvent is the authoritative record of a completed game.
type GameEvent struct {
	ID        string
	EntityID  string
	Duration  float64
	Outcome   Outcome
	CreatedAt time.Time
}

// Entity holds the display attributes joined into ranked results.
type Entity struct {
	ID        string
	Name      string
	Email     string
	CreatedAt time.Time
}
