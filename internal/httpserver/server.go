// internal/httpserver/server.go
//
// Local read-only status endpoint for a running game.
// Responsibilities:
//   - Router + middleware (JSON, timeouts, panic recovery, request IDs).
//   - Diagnostics: "/", "/health".
//   - Live session snapshot: GET /session.
//   - Persisted results: GET /highscore, GET /games/recent.
//
// Notes:
//   - No game input is accepted here; the terminal is the only controller.
//   - Disabled unless STATUS_ADDR is set (see main.go).

package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/simon/internal/game"
	"github.com/robalobadob/simon/internal/store"
)

const maxRecentLimit = 100

// SessionSource provides the live game state.
type SessionSource interface {
	Snapshot() game.Snapshot
}

// Server bundles router, session source and store.
type Server struct {
	r       *chi.Mux
	session SessionSource
	scores  store.HighScores
	games   store.GameRecorder
}

// New constructs a Server, installs middleware, and registers routes.
func New(src SessionSource, st store.Store) *Server {
	s := &Server{r: chi.NewRouter(), session: src, scores: st, games: st}

	// --- middleware ---
	s.r.Use(chimw.RequestID)
	s.r.Use(chimw.RealIP)
	s.r.Use(chimw.Recoverer)
	s.r.Use(chimw.Timeout(10 * time.Second))
	s.r.Use(jsonContentType)

	// --- diagnostics ---
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"service":"simon","endpoints":["/health","/session","/highscore","/games/recent"]}`))
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	s.r.Get("/session", s.handleSession)
	s.r.Get("/highscore", s.handleHighScore)
	s.r.Get("/games/recent", s.handleRecentGames)

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "not_found", "path": r.URL.Path})
	})

	return s
}

// Start begins serving HTTP on addr.
func (s *Server) Start(addr string) error { return http.ListenAndServe(addr, s.r) }

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	_ = json.NewEncoder(w).Encode(s.session.Snapshot())
}

func (s *Server) handleHighScore(w http.ResponseWriter, r *http.Request) {
	n, err := s.scores.LoadHighScore(r.Context())
	if errors.Is(err, store.ErrMalformed) {
		// same rule as the controller: unreadable data counts as no score
		log.Warn().Err(err).Msg("malformed high score, reporting 0")
		n, err = 0, nil
	}
	if err != nil {
		log.Warn().Err(err).Msg("load high score")
		http.Error(w, `{"error":"store_error"}`, http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]int{"highScore": n})
}

// handleRecentGames lists finished games, newest first.
func (s *Server) handleRecentGames(w http.ResponseWriter, r *http.Request) {
	limit := store.DefaultRecentLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, `{"error":"bad_limit"}`, http.StatusBadRequest)
			return
		}
		limit = min(n, maxRecentLimit)
	}

	games, err := s.games.RecentGames(r.Context(), limit)
	if err != nil {
		log.Warn().Err(err).Msg("recent games")
		http.Error(w, `{"error":"store_error"}`, http.StatusInternalServerError)
		return
	}
	if games == nil {
		games = []store.GameRecord{}
	}
	_ = json.NewEncoder(w).Encode(games)
}
