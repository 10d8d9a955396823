package loadgen

import "time"

// Config holds configuration for a load run.
type Config struct {
	BaseURL    string        // Base URL of the service
	NumUsers   int           // Number of users to create
	NumScores  int           // Number of score events to submit
	NumGames   int           // Number of game events to submit
	Activities int           // Number of distinct activities to spread scores over
	TopN       int           // Number of top entries to fetch from each board
	Workers    int           // Number of concurrent workers
	Timeout    time.Duration // HTTP request timeout
	Verbose    bool          // Enable verbose logging
}

// score is a generated score submission.
type score struct {
	EventID    string  `json:"event_id"`
	UserID     string  `json:"user_id"`
	ActivityID string  `json:"activity_id"`
	Value      float64 `json:"value"`
}

// game is a generated game submission.
type game struct {
	EventID  string  `json:"event_id"`
	UserID   string  `json:"user_id"`
	Duration float64 `json:"duration"`
	Outcome  string  `json:"outcome"`
}

// Entry mirrors a leaderboard entry returned by the service.
type Entry struct {
	EntityID    string  `json:"entity_id"`
	DisplayName string  `json:"display_name"`
	Score       float64 `json:"score"`
	Rank        int     `json:"rank"`
}

// AckResponse mirrors the response from event submission.
type AckResponse struct {
	Status    string `json:"status"`
	ID        string `json:"id"`
	Duplicate bool   `json:"duplicate"`
}

// Stats holds load run statistics.
type Stats struct {
	UsersCreated    int
	EventsSubmitted int
	EventsOK        int
	EventsDuplicate int
	EventsFailed    int
	BoardsFetched   int
	StartTime       time.Time
	EndTime         time.Time
	Duration        time.Duration
}
