// Package types contains common read shapes used across the application.
package types

// RankedEntry is one row of a ranked leaderboard response. Rank is the
// 1-based position within the full scope, never stored, always derived at
// read time.
type RankedEntry struct {
	EntityID    string  `json:"entity_id"`
	DisplayName string  `json:"display_name"`
	Score       float64 `json:"score"`
	Rank        int     `json:"rank"`
}
