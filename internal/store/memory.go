// internal/store/memory.go
//
// In-memory implementation of Store.
// This is a lightweight persistence layer used when durability is not
// required (STORE_DRIVER=memory) and in tests.
//
// Characteristics:
//   - Keeps raw key/value text plus a slice of game records.
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - State is lost when the process restarts.

package store

import (
	"context"
	"sort"
	"strconv"
	"sync"
)

// memory is an in-memory Store implementation.
type memory struct {
	mu    sync.RWMutex      // guards kv and games
	kv    map[string]string // raw values, keyed like a key-value store
	games []GameRecord
}

// NewMemory constructs a new in-memory Store.
func NewMemory() Store {
	return &memory{kv: make(map[string]string)}
}

// LoadHighScore parses the stored value; absent means 0.
func (m *memory) LoadHighScore(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	raw, ok := m.kv[HighScoreKey]
	if !ok {
		return 0, nil
	}
	return parseHighScore(raw)
}

// SaveHighScore stores score as text.
func (m *memory) SaveHighScore(ctx context.Context, score int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.kv[HighScoreKey] = strconv.Itoa(score)
	return nil
}

// RecordGame appends r, replacing any record with the same ID.
func (m *memory) RecordGame(ctx context.Context, r GameRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.games {
		if m.games[i].ID == r.ID {
			m.games[i] = r
			return nil
		}
	}
	m.games = append(m.games, r)
	return nil
}

// RecentGames returns copies ordered by FinishedAt descending.
func (m *memory) RecentGames(ctx context.Context, limit int) ([]GameRecord, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	m.mu.RLock()
	out := append([]GameRecord{}, m.games...)
	m.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].FinishedAt.After(out[j].FinishedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memory) Close() error { return nil }
