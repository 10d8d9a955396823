// Package board defines leaderboard kinds, scopes, and the ordering policy
// each kind applies when ranking entities.
package board

import "fmt"

// Kind identifies the aggregation rule a leaderboard applies to events.
type Kind string

// Supported leaderboard kinds.
const (
	// KindCumulativeScore sums every score event's value per entity.
	KindCumulativeScore Kind = "cumulative-score"
	// KindBestDuration keeps the minimum duration across winning games.
	KindBestDuration Kind = "best-duration"
	// KindGamesPlayed counts recorded games per entity.
	KindGamesPlayed Kind = "games-played"
)

// GlobalKey is the scope key shared by the process-wide leaderboards.
const GlobalKey = "global"

// Kinds returns every registered leaderboard kind. Entity removal iterates
// this list unconditionally so no call site can forget a scope.
func Kinds() []Kind {
	return []Kind{KindCumulativeScore, KindBestDuration, KindGamesPlayed}
}

// Valid reports whether k is a registered kind.
func (k Kind) Valid() bool {
	switch k {
	case KindCumulativeScore, KindBestDuration, KindGamesPlayed:
		return true
	}
	return false
}

// Ordering is the direction entries are ranked in.
type Ordering int

const (
	// Descending ranks higher scores first (cumulative-score, games-played).
	Descending Ordering = iota
	// Ascending ranks lower scores first (best-duration).
	Ascending
)

// OrderingOf returns the ordering policy for a kind.
func OrderingOf(k Kind) Ordering {
	if k == KindBestDuration {
		return Ascending
	}
	return Descending
}

// Comparator decides whether a candidate score may replace a stored one in a
// conditional update. It is a closed enum rather than a function so backends
// that cannot execute Go callbacks (Redis) can still honor it.
type Comparator int

const (
	// Less accepts the candidate only when it is strictly smaller.
	Less Comparator = iota
	// Greater accepts the candidate only when it is strictly larger.
	Greater
)

// Accepts reports whether candidate may replace existing under c.
func (c Comparator) Accepts(candidate, existing float64) bool {
	if c == Less {
		return candidate < existing
	}
	return candidate > existing
}

// Scope identifies one independently ranked collection.
type Scope struct {
	Kind Kind
	Key  string
}

// Global returns the process-wide scope for a kind.
func Global(k Kind) Scope {
	return Scope{Kind: k, Key: GlobalKey}
}

// Activity returns the per-activity cumulative score scope.
func Activity(activityID string) Scope {
	return Scope{Kind: KindCumulativeScore, Key: activityID}
}

// String renders the scope as "<kind>:<key>", which doubles as the backing
// key in keyed stores such as Redis.
func (s Scope) String() string {
	return fmt.Sprintf("%s:%s", s.Kind, s.Key)
}

// Ordering returns the ordering policy of the scope's kind.
func (s Scope) Ordering() Ordering {
	return OrderingOf(s.Kind)
}

// Topic returns the broadcast topic carrying this scope's refreshed board.
// Global boards publish on "leaderboard:<kind>"; per-activity boards on
// "activities:<key>:leaderboard".
func (s Scope) Topic() string {
	if s.Key == GlobalKey {
		return fmt.Sprintf("leaderboard:%s", s.Kind)
	}
	return fmt.Sprintf("activities:%s:leaderboard", s.Key)
}
