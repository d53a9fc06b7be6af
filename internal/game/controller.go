// internal/game/controller.go
//
// Game controller for a single play session.
// Responsibilities:
//   - Own the sequence, cursor, score, high score, phase and mute flag.
//   - Start games, hand sequences to the playback scheduler, and gate input
//     so selections are only accepted while awaiting input.
//   - Show click feedback, validate selections, extend the sequence after a
//     complete round, and end the game on a mismatch.
//   - Load the high score at construction and save it on game over.
//
// Notes:
//   - One mutex serialises every mutation; timer callbacks take it too.
//   - Every callback carries the session generation it was scheduled under and
//     is dropped if a newer game (or Close) has bumped it since.
//   - Selections outside PhaseAwaitingInput are ignored, not errors.

package game

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/simon/internal/clock"
	"github.com/robalobadob/simon/internal/playback"
	"github.com/robalobadob/simon/internal/signal"
	"github.com/robalobadob/simon/internal/store"
)

const (
	DefaultFeedback     = 300 * time.Millisecond
	DefaultPause        = 1000 * time.Millisecond
	DefaultStoreTimeout = 2 * time.Second
)

// ErrNotStartable is returned by Start/Restart outside idle or game over.
var ErrNotStartable = errors.New("game: cannot start while a game is in progress")

// Config wires a Controller to its collaborators.
// Zero values are filled with defaults (see New).
type Config struct {
	Palette  *signal.Palette
	Clock    clock.Clock
	Playback playback.Timing
	Visual   Visual
	Audio    Audio
	Scores   store.HighScores
	Games    store.GameRecorder // optional

	Feedback     time.Duration // click highlight, default 300ms
	Pause        time.Duration // delay before replay after a round, default 1s
	StoreTimeout time.Duration // bound on each store call, default 2s
	Muted        bool
}

// Controller is the top-level state machine.
type Controller struct {
	palette      *signal.Palette
	clk          clock.Clock
	player       *playback.Scheduler
	visual       Visual
	audio        Audio
	scores       store.HighScores
	games        store.GameRecorder
	feedbackDur  time.Duration
	pauseDur     time.Duration
	storeTimeout time.Duration

	mu        sync.Mutex
	seq       []signal.Signal
	cursor    int
	score     int
	high      int
	phase     Phase
	muted     bool
	active    signal.Signal
	lit       bool // active holds a signal
	litByUser bool // the lit signal is click feedback, not playback
	gen       uint64
	gameID    string
	startedAt time.Time
	feedback  clock.Timer
	pause     clock.Timer
}

// New builds a Controller in PhaseIdle and loads the persisted high score.
// A missing store defaults to an in-memory one. Load failures are logged and
// the high score starts at 0.
func New(ctx context.Context, cfg Config) *Controller {
	if cfg.Palette == nil {
		cfg.Palette = signal.NewPalette(nil)
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Visual == nil {
		cfg.Visual = nopVisual{}
	}
	if cfg.Audio == nil {
		cfg.Audio = nopAudio{}
	}
	if cfg.Scores == nil {
		cfg.Scores = store.NewMemory()
	}
	if cfg.Feedback <= 0 {
		cfg.Feedback = DefaultFeedback
	}
	if cfg.Pause <= 0 {
		cfg.Pause = DefaultPause
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = DefaultStoreTimeout
	}

	c := &Controller{
		palette:      cfg.Palette,
		clk:          cfg.Clock,
		player:       playback.New(cfg.Clock, cfg.Playback),
		visual:       cfg.Visual,
		audio:        cfg.Audio,
		scores:       cfg.Scores,
		games:        cfg.Games,
		feedbackDur:  cfg.Feedback,
		pauseDur:     cfg.Pause,
		storeTimeout: cfg.StoreTimeout,
		phase:        PhaseIdle,
		muted:        cfg.Muted,
	}

	hs, err := c.scores.LoadHighScore(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("load high score, defaulting to 0")
		hs = 0
	}
	if hs < 0 {
		hs = 0
	}
	c.high = hs
	return c
}

// Start begins a new game from idle or game over.
func (c *Controller) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != PhaseIdle && c.phase != PhaseGameOver {
		return ErrNotStartable
	}
	c.startLocked()
	return nil
}

// Restart starts a new game after a game over.
func (c *Controller) Restart() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != PhaseGameOver {
		return ErrNotStartable
	}
	c.startLocked()
	return nil
}

func (c *Controller) startLocked() {
	c.stopTimersLocked()
	c.player.Reset()
	c.gen++
	c.gameID = randomID()
	c.startedAt = time.Now().UTC()
	c.score = 0
	c.cursor = 0
	c.seq = []signal.Signal{c.palette.PickRandom()}
	c.clearActiveLocked()

	log.Info().Str("gameId", c.gameID).Int("highScore", c.high).Msg("game started")
	c.beginPlaybackLocked()
}

// beginPlaybackLocked enters PhasePlaying and hands the sequence to the scheduler.
func (c *Controller) beginPlaybackLocked() {
	c.phase = PhasePlaying
	c.notifyLocked()

	sink := &playbackSink{c: c, gen: c.gen}
	err := c.player.Play(c.seq, sink)
	if errors.Is(err, playback.ErrBusy) {
		// a leftover playback owns the scheduler; this session supersedes it
		log.Warn().Str("gameId", c.gameID).Msg("scheduler busy, resetting")
		c.player.Reset()
		err = c.player.Play(c.seq, sink)
	}
	if err != nil {
		// without a playback nothing would leave PhasePlaying
		log.Error().Err(err).Str("gameId", c.gameID).Msg("start playback, skipping to input")
		c.phase = PhaseAwaitingInput
		c.cursor = 0
		c.notifyLocked()
		return
	}
	log.Debug().Str("gameId", c.gameID).Int("length", len(c.seq)).Msg("playback started")
}

// HandleSignal processes one player selection.
// It reports false (and changes nothing) unless the game is awaiting input.
func (c *Controller) HandleSignal(s signal.Signal) (Verdict, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != PhaseAwaitingInput || !s.Valid() {
		return "", false
	}

	c.showFeedbackLocked(s)

	v := Validate(c.seq, c.cursor, s)
	switch v {
	case Mismatch:
		if c.score > c.high {
			c.high = c.score
		}
		c.phase = PhaseGameOver
		c.saveHighScoreLocked()
		c.recordGameLocked()
		log.Info().Str("gameId", c.gameID).Int("score", c.score).Int("highScore", c.high).Msg("game over")

	case Match:
		c.cursor++

	case SequenceComplete:
		c.score++
		c.seq = append(c.seq, c.palette.PickRandom())
		c.cursor = 0
		c.phase = PhasePlaying
		gen := c.gen
		c.pause = c.clk.AfterFunc(c.pauseDur, func() { c.resumePlayback(gen) })
		log.Debug().Str("gameId", c.gameID).Int("score", c.score).Int("length", len(c.seq)).Msg("round complete")
	}
	c.notifyLocked()
	return v, true
}

// ToggleMute flips the mute flag and returns the new value.
func (c *Controller) ToggleMute() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.muted = !c.muted
	log.Debug().Bool("muted", c.muted).Msg("mute toggled")
	c.notifyLocked()
	return c.muted
}

// Snapshot returns a copy of the current session.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Close cancels pending timers and any playback. Callbacks already in flight
// become no-ops.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopTimersLocked()
	c.player.Reset()
	c.gen++
	c.clearActiveLocked()
}

func (c *Controller) resumePlayback(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen || c.phase != PhasePlaying {
		return
	}
	c.pause = nil
	c.beginPlaybackLocked()
}

func (c *Controller) showFeedbackLocked(s signal.Signal) {
	if c.feedback != nil {
		c.feedback.Stop()
	}
	if c.lit && c.active != s {
		c.visual.Deactivate(c.active)
	}
	c.active, c.lit, c.litByUser = s, true, true
	c.visual.Activate(s)
	c.cueLocked(s)

	gen := c.gen
	c.feedback = c.clk.AfterFunc(c.feedbackDur, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if gen != c.gen || !c.lit || !c.litByUser || c.active != s {
			return
		}
		c.feedback = nil
		c.clearActiveLocked()
		c.notifyLocked()
	})
}

func (c *Controller) cueLocked(s signal.Signal) {
	if c.muted {
		return
	}
	c.audio.Cue(s)
}

func (c *Controller) clearActiveLocked() {
	if !c.lit {
		return
	}
	c.visual.Deactivate(c.active)
	c.lit, c.litByUser = false, false
}

func (c *Controller) stopTimersLocked() {
	if c.feedback != nil {
		c.feedback.Stop()
		c.feedback = nil
	}
	if c.pause != nil {
		c.pause.Stop()
		c.pause = nil
	}
}

func (c *Controller) saveHighScoreLocked() {
	ctx, cancel := context.WithTimeout(context.Background(), c.storeTimeout)
	defer cancel()
	if err := c.scores.SaveHighScore(ctx, c.high); err != nil {
		log.Warn().Err(err).Int("highScore", c.high).Msg("save high score")
	}
}

func (c *Controller) recordGameLocked() {
	if c.games == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.storeTimeout)
	defer cancel()
	rec := store.GameRecord{
		ID:         c.gameID,
		StartedAt:  c.startedAt,
		FinishedAt: time.Now().UTC(),
		Score:      c.score,
		Length:     len(c.seq),
	}
	if err := c.games.RecordGame(ctx, rec); err != nil {
		log.Warn().Err(err).Str("gameId", c.gameID).Msg("record game")
	}
}

func (c *Controller) notifyLocked() {
	c.visual.Update(c.snapshotLocked())
}

func (c *Controller) snapshotLocked() Snapshot {
	snap := Snapshot{
		GameID:     c.gameID,
		Generation: c.gen,
		Phase:      c.phase,
		Sequence:   append([]signal.Signal{}, c.seq...),
		Cursor:     c.cursor,
		Score:      c.score,
		HighScore:  c.high,
		Muted:      c.muted,
	}
	if c.lit {
		a := c.active
		snap.Active = &a
	}
	return snap
}

// playbackSink forwards scheduler events for one generation.
type playbackSink struct {
	c   *Controller
	gen uint64
}

func (p *playbackSink) Activate(s signal.Signal) {
	c := p.c
	c.mu.Lock()
	defer c.mu.Unlock()
	if p.gen != c.gen || c.phase != PhasePlaying {
		return
	}
	if c.feedback != nil {
		c.feedback.Stop()
		c.feedback = nil
	}
	if c.lit && c.active != s {
		c.visual.Deactivate(c.active)
	}
	c.active, c.lit, c.litByUser = s, true, false
	c.visual.Activate(s)
	c.cueLocked(s)
	c.notifyLocked()
}

func (p *playbackSink) Deactivate(s signal.Signal) {
	c := p.c
	c.mu.Lock()
	defer c.mu.Unlock()
	if p.gen != c.gen || c.phase != PhasePlaying {
		return
	}
	if c.lit && c.active == s {
		c.clearActiveLocked()
	}
	c.notifyLocked()
}

func (p *playbackSink) Complete() {
	c := p.c
	c.mu.Lock()
	defer c.mu.Unlock()
	if p.gen != c.gen || c.phase != PhasePlaying {
		return
	}
	c.phase = PhaseAwaitingInput
	c.cursor = 0
	log.Debug().Str("gameId", c.gameID).Msg("awaiting input")
	c.notifyLocked()
}

// randomID returns a compact 16-hex-char identifier.
func randomID() string {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
