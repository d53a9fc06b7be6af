// internal/store/store.go
//
// Persistence contracts for the game.
// Two concerns live here:
//   - HighScores: a single integer kept across sessions, stored as text under
//     HighScoreKey the way a key-value store would hold it.
//   - GameRecorder: a history row per finished game.
//
// Implementations: NewMemory (this package, ephemeral) and OpenSQLite.

package store

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"
)

// HighScoreKey is the key the high score is stored under.
const HighScoreKey = "simonHighScore"

// ErrMalformed is returned when the stored high score is not a non-negative integer.
var ErrMalformed = errors.New("store: malformed high score")

// HighScores loads and saves the persisted high score.
type HighScores interface {
	// LoadHighScore returns 0 and no error when nothing is stored.
	LoadHighScore(ctx context.Context) (int, error)
	SaveHighScore(ctx context.Context, score int) error
}

// GameRecord is one finished game.
type GameRecord struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	Score      int       `json:"score"`
	Length     int       `json:"length"` // sequence length at game over
}

// GameRecorder keeps a history of finished games.
type GameRecorder interface {
	RecordGame(ctx context.Context, r GameRecord) error
	// RecentGames returns up to limit games, newest first.
	RecentGames(ctx context.Context, limit int) ([]GameRecord, error)
}

// Store is the full persistence surface used by the program.
type Store interface {
	HighScores
	GameRecorder
	Close() error
}

// DefaultRecentLimit applies when RecentGames is called with limit <= 0.
const DefaultRecentLimit = 20

// parseHighScore decodes a stored value.
func parseHighScore(raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return 0, ErrMalformed
	}
	return n, nil
}
