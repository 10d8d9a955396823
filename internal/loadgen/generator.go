package loadgen

import (
	"fmt"
	"math/rand"

	"github.com/google/uuid"
)

// Metric generation ranges. Scores skew toward a mid band with occasional
// high and low outliers so the resulting boards have realistic spread.
const (
	midScoreMin  = 30.0
	midScoreSpan = 40.0
	topScoreMin  = 80.0
	topScoreSpan = 20.0
	lowScoreMin  = 1.0
	lowScoreSpan = 29.0

	durationMin  = 20.0
	durationSpan = 280.0

	winProbability = 0.5
)

// workload is a full generated run: users plus the events that reference
// them.
type workload struct {
	users  []string
	scores []score
	games  []game
}

// generate builds a workload referencing cfg.NumUsers users across
// cfg.Activities activities.
func generate(cfg *Config) *workload {
	users := make([]string, cfg.NumUsers)
	for i := range users {
		users[i] = uuid.New().String()
	}

	activities := make([]string, cfg.Activities)
	for i := range activities {
		activities[i] = fmt.Sprintf("activity-%d", i+1)
	}

	w := &workload{users: users}

	w.scores = make([]score, cfg.NumScores)
	for i := range w.scores {
		w.scores[i] = score{
			EventID:    uuid.New().String(),
			UserID:     users[rand.Intn(len(users))],
			ActivityID: activities[rand.Intn(len(activities))],
			Value:      variedScore(),
		}
	}

	w.games = make([]game, cfg.NumGames)
	for i := range w.games {
		outcome := "lost"
		if rand.Float64() < winProbability {
			outcome = "won"
		}
		w.games[i] = game{
			EventID:  uuid.New().String(),
			UserID:   users[rand.Intn(len(users))],
			Duration: durationMin + rand.Float64()*durationSpan,
			Outcome:  outcome,
		}
	}

	return w
}

// variedScore draws from a mixture so most values land mid-band.
func variedScore() float64 {
	switch rand.Intn(4) {
	case 0:
		return topScoreMin + rand.Float64()*topScoreSpan
	case 1:
		return lowScoreMin + rand.Float64()*lowScoreSpan
	default:
		return midScoreMin + rand.Float64()*midScoreSpan
	}
}
