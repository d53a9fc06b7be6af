package game

import (
	"context"
	"errors"
	"os"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/robalobadob/simon/internal/clock"
	"github.com/robalobadob/simon/internal/signal"
	"github.com/robalobadob/simon/internal/store"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.Disabled)
	os.Exit(m.Run())
}

// scriptedSource returns palette indices from a fixed list, then repeats the last
type scriptedSource struct {
	vals []int
	pos  int
}

func (s *scriptedSource) IntN(n int) int {
	i := s.pos
	if i >= len(s.vals) {
		i = len(s.vals) - 1
	}
	s.pos++
	return s.vals[i] % n
}

// recordingVisual captures highlight calls and the latest snapshot
type recordingVisual struct {
	mu          sync.Mutex
	activated   []signal.Signal
	deactivated []signal.Signal
	last        Snapshot
	updates     int
}

func (v *recordingVisual) Activate(s signal.Signal) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.activated = append(v.activated, s)
}

func (v *recordingVisual) Deactivate(s signal.Signal) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.deactivated = append(v.deactivated, s)
}

func (v *recordingVisual) Update(s Snapshot) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.last = s
	v.updates++
}

// recordingAudio captures cue requests
type recordingAudio struct {
	mu   sync.Mutex
	cues []signal.Signal
}

func (a *recordingAudio) Cue(s signal.Signal) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cues = append(a.cues, s)
}

// failingScores always errors on load
type failingScores struct{ saved []int }

func (f *failingScores) LoadHighScore(context.Context) (int, error) {
	return 0, errors.New("disk on fire")
}

func (f *failingScores) SaveHighScore(_ context.Context, n int) error {
	f.saved = append(f.saved, n)
	return nil
}

type harness struct {
	clk    *clock.Manual
	visual *recordingVisual
	audio  *recordingAudio
	scores store.Store
	c      *Controller
}

func newHarness(t *testing.T, picks []int, highScore int) *harness {
	t.Helper()
	h := &harness{
		clk:    clock.NewManual(),
		visual: &recordingVisual{},
		audio:  &recordingAudio{},
		scores: store.NewMemory(),
	}
	if highScore > 0 {
		if err := h.scores.SaveHighScore(context.Background(), highScore); err != nil {
			t.Fatal(err)
		}
	}
	if len(picks) == 0 {
		picks = []int{0}
	}
	h.c = New(context.Background(), Config{
		Palette: signal.NewPalette(&scriptedSource{vals: picks}),
		Clock:   h.clk,
		Visual:  h.visual,
		Audio:   h.audio,
		Scores:  h.scores,
		Games:   h.scores,
	})
	return h
}

// playbackLen is how long a sequence of n takes with default timing
func playbackLen(n int) time.Duration {
	return time.Duration(n) * 750 * time.Millisecond
}

// awaitInput advances until the current playback has completed
func (h *harness) awaitInput(t *testing.T) {
	t.Helper()
	snap := h.c.Snapshot()
	h.clk.Advance(DefaultPause + playbackLen(len(snap.Sequence)))
	if got := h.c.Snapshot().Phase; got != PhaseAwaitingInput {
		t.Fatalf("Expected awaiting_input, got %s", got)
	}
}

// submitRound enters the full expected sequence and returns the last verdict
func (h *harness) submitRound(t *testing.T) Verdict {
	t.Helper()
	var v Verdict
	for _, s := range h.c.Snapshot().Sequence {
		var ok bool
		v, ok = h.c.HandleSignal(s)
		if !ok {
			t.Fatalf("Selection %v was ignored", s)
		}
	}
	return v
}

func checkInvariants(t *testing.T, s Snapshot) {
	t.Helper()
	if s.Cursor < 0 || s.Cursor > len(s.Sequence) {
		t.Errorf("Cursor %d outside [0,%d]", s.Cursor, len(s.Sequence))
	}
	if s.HighScore < s.Score && s.Phase == PhaseGameOver {
		t.Errorf("HighScore %d below score %d after game over", s.HighScore, s.Score)
	}
	if s.Score > len(s.Sequence) {
		t.Errorf("Score %d exceeds sequence length %d", s.Score, len(s.Sequence))
	}
	if s.Phase == PhaseAwaitingInput && len(s.Sequence) != s.Score+1 {
		t.Errorf("Expected sequence length score+1 (%d), got %d", s.Score+1, len(s.Sequence))
	}
}

func TestNewStartsIdle(t *testing.T) {
	h := newHarness(t, nil, 4)
	snap := h.c.Snapshot()
	if snap.Phase != PhaseIdle {
		t.Errorf("Expected idle, got %s", snap.Phase)
	}
	if snap.HighScore != 4 {
		t.Errorf("Expected high score 4 loaded from store, got %d", snap.HighScore)
	}
	if len(snap.Sequence) != 0 {
		t.Errorf("Expected empty sequence, got %v", snap.Sequence)
	}
	if snap.InputDisabled() {
		t.Error("Expected idle board to accept input styling")
	}
}

func TestStartPlaysFirstSignal(t *testing.T) {
	h := newHarness(t, []int{2}, 0)
	if err := h.c.Start(); err != nil {
		t.Fatal(err)
	}

	snap := h.c.Snapshot()
	if snap.Phase != PhasePlaying {
		t.Fatalf("Expected playing, got %s", snap.Phase)
	}
	if !snap.InputDisabled() {
		t.Error("Expected input disabled while playing")
	}
	if len(snap.Sequence) != 1 || snap.Sequence[0] != signal.Yellow {
		t.Fatalf("Expected [yellow], got %v", snap.Sequence)
	}
	if snap.GameID == "" {
		t.Error("Expected a game id")
	}

	h.clk.Advance(0)
	if !h.c.Snapshot().IsActive(signal.Yellow) {
		t.Error("Expected yellow lit during playback")
	}
	if len(h.audio.cues) != 1 || h.audio.cues[0] != signal.Yellow {
		t.Errorf("Expected one yellow cue, got %v", h.audio.cues)
	}

	h.clk.Advance(500 * time.Millisecond)
	if h.c.Snapshot().Active != nil {
		t.Error("Expected nothing lit after ON duration")
	}
	if h.c.Snapshot().Phase != PhasePlaying {
		t.Error("Expected still playing during OFF gap")
	}

	h.clk.Advance(250 * time.Millisecond)
	snap = h.c.Snapshot()
	if snap.Phase != PhaseAwaitingInput || snap.Cursor != 0 {
		t.Errorf("Expected awaiting_input at cursor 0, got %s at %d", snap.Phase, snap.Cursor)
	}
	if h.visual.last.Phase != PhaseAwaitingInput {
		t.Error("Expected visual to be told about awaiting_input")
	}
	checkInvariants(t, snap)
}

// Scenario: start -> [A]; submit A -> complete, score 1, [A, X]
func TestFirstRoundComplete(t *testing.T) {
	h := newHarness(t, []int{0, 3}, 0)
	_ = h.c.Start()
	h.clk.Advance(playbackLen(1))

	v, ok := h.c.HandleSignal(signal.Green)
	if !ok || v != SequenceComplete {
		t.Fatalf("Expected accepted sequence_complete, got %v (%v)", v, ok)
	}
	snap := h.c.Snapshot()
	if snap.Score != 1 {
		t.Errorf("Expected score 1, got %d", snap.Score)
	}
	want := []signal.Signal{signal.Green, signal.Blue}
	if !reflect.DeepEqual(snap.Sequence, want) {
		t.Errorf("Expected %v, got %v", want, snap.Sequence)
	}
	if snap.Phase != PhasePlaying || snap.Cursor != 0 {
		t.Errorf("Expected playing at cursor 0, got %s at %d", snap.Phase, snap.Cursor)
	}
	checkInvariants(t, snap)

	// replay waits for the pause
	activatedBefore := len(h.visual.activated)
	h.clk.Advance(DefaultPause - time.Millisecond)
	if len(h.visual.activated) != activatedBefore {
		t.Error("Expected no playback before the pause elapses")
	}
	h.clk.Advance(time.Millisecond)
	if len(h.visual.activated) != activatedBefore+1 {
		t.Errorf("Expected playback to start after pause, activations %v", h.visual.activated)
	}
}

// discardSink ignores scheduler events
type discardSink struct{}

func (discardSink) Activate(signal.Signal)   {}
func (discardSink) Deactivate(signal.Signal) {}
func (discardSink) Complete()                {}

// TestReplayRecoversFromBusyScheduler verifies a round replay still runs when
// a stray playback holds the scheduler during the pause
func TestReplayRecoversFromBusyScheduler(t *testing.T) {
	h := newHarness(t, []int{0, 3}, 0)
	_ = h.c.Start()
	h.clk.Advance(playbackLen(1))
	if v, _ := h.c.HandleSignal(signal.Green); v != SequenceComplete {
		t.Fatalf("Expected sequence_complete, got %v", v)
	}

	if err := h.c.player.Play([]signal.Signal{signal.Red, signal.Red, signal.Red}, discardSink{}); err != nil {
		t.Fatalf("Expected stray playback to start, got %v", err)
	}

	activatedBefore := len(h.visual.activated)
	h.clk.Advance(DefaultPause + playbackLen(2))

	snap := h.c.Snapshot()
	if snap.Phase != PhaseAwaitingInput {
		t.Fatalf("Expected awaiting_input after replay, got %s", snap.Phase)
	}
	replayed := h.visual.activated[activatedBefore:]
	want := []signal.Signal{signal.Green, signal.Blue}
	if !reflect.DeepEqual(replayed, want) {
		t.Errorf("Expected replay %v, got %v", want, replayed)
	}
	if v := h.submitRound(t); v != SequenceComplete {
		t.Errorf("Expected round to complete after recovery, got %v", v)
	}
}

// Scenario: [A, B] at cursor 0, submit B -> mismatch, game over, high = max(old, 1)
func TestMismatchEndsGame(t *testing.T) {
	h := newHarness(t, []int{0, 1}, 0)
	_ = h.c.Start()
	h.clk.Advance(playbackLen(1))
	h.submitRound(t)
	h.awaitInput(t)

	v, ok := h.c.HandleSignal(signal.Red)
	if !ok || v != Mismatch {
		t.Fatalf("Expected accepted mismatch, got %v (%v)", v, ok)
	}
	snap := h.c.Snapshot()
	if snap.Phase != PhaseGameOver {
		t.Errorf("Expected game_over, got %s", snap.Phase)
	}
	if snap.HighScore != 1 {
		t.Errorf("Expected high score 1, got %d", snap.HighScore)
	}
	if !snap.InputDisabled() {
		t.Error("Expected input disabled after game over")
	}
	saved, _ := h.scores.LoadHighScore(context.Background())
	if saved != 1 {
		t.Errorf("Expected persisted high score 1, got %d", saved)
	}

	games, _ := h.scores.RecentGames(context.Background(), 10)
	if len(games) != 1 || games[0].Score != 1 || games[0].Length != 2 || games[0].ID != snap.GameID {
		t.Errorf("Unexpected game history: %+v", games)
	}
	checkInvariants(t, snap)
}

// Scenario: high score 5 persisted, immediate failure keeps 5; restart resets score
func TestImmediateFailureKeepsHighScore(t *testing.T) {
	h := newHarness(t, []int{0, 0, 2}, 5)
	_ = h.c.Start()
	h.clk.Advance(playbackLen(1))

	v, _ := h.c.HandleSignal(signal.Blue)
	if v != Mismatch {
		t.Fatalf("Expected mismatch, got %v", v)
	}
	if got := h.c.Snapshot().HighScore; got != 5 {
		t.Errorf("Expected high score to stay 5, got %d", got)
	}
	if saved, _ := h.scores.LoadHighScore(context.Background()); saved != 5 {
		t.Errorf("Expected persisted 5, got %d", saved)
	}

	if err := h.c.Restart(); err != nil {
		t.Fatal(err)
	}
	snap := h.c.Snapshot()
	if snap.Score != 0 || len(snap.Sequence) != 1 || snap.Phase != PhasePlaying {
		t.Errorf("Expected fresh game, got score %d len %d phase %s", snap.Score, len(snap.Sequence), snap.Phase)
	}
}

// Scenario: mute during playback still lights signals but requests no audio
func TestMuteDuringPlayback(t *testing.T) {
	h := newHarness(t, []int{1}, 0)
	_ = h.c.Start()
	if !h.c.ToggleMute() {
		t.Fatal("Expected muted after toggle")
	}
	h.clk.Advance(playbackLen(1))

	if len(h.visual.activated) != 1 || h.visual.activated[0] != signal.Red {
		t.Errorf("Expected red activation, got %v", h.visual.activated)
	}
	if len(h.audio.cues) != 0 {
		t.Errorf("Expected no audio cues while muted, got %v", h.audio.cues)
	}

	// feedback also silent
	h.c.HandleSignal(signal.Red)
	if len(h.audio.cues) != 0 {
		t.Errorf("Expected no feedback cue while muted, got %v", h.audio.cues)
	}

	if h.c.ToggleMute() {
		t.Error("Expected unmuted after second toggle")
	}
	if h.visual.last.Muted {
		t.Error("Expected visual to see unmuted state")
	}
}

// Scenario: three full rounds from empty
func TestScoreProgression(t *testing.T) {
	h := newHarness(t, []int{0, 1, 2, 3}, 0)
	_ = h.c.Start()
	h.clk.Advance(playbackLen(1))

	for round := 1; round <= 3; round++ {
		if v := h.submitRound(t); v != SequenceComplete {
			t.Fatalf("round %d: expected sequence_complete, got %v", round, v)
		}
		snap := h.c.Snapshot()
		if snap.Score != round {
			t.Errorf("round %d: expected score %d, got %d", round, round, snap.Score)
		}
		if len(snap.Sequence) != round+1 {
			t.Errorf("round %d: expected length %d, got %d", round, round+1, len(snap.Sequence))
		}
		h.awaitInput(t)
		checkInvariants(t, h.c.Snapshot())
	}

	want := []signal.Signal{signal.Green, signal.Red, signal.Yellow, signal.Blue}
	if got := h.c.Snapshot().Sequence; !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestInputIgnoredWhilePlaying(t *testing.T) {
	h := newHarness(t, []int{0}, 0)
	_ = h.c.Start()
	h.clk.Advance(100 * time.Millisecond)

	before := h.c.Snapshot()
	cues := len(h.audio.cues)
	for _, s := range signal.All {
		if _, ok := h.c.HandleSignal(s); ok {
			t.Errorf("Expected %v to be ignored while playing", s)
		}
	}
	if after := h.c.Snapshot(); !reflect.DeepEqual(before, after) {
		t.Errorf("Session changed while playing:\nbefore %+v\nafter  %+v", before, after)
	}
	if len(h.audio.cues) != cues {
		t.Error("Expected no feedback cue for ignored input")
	}
}

func TestInputIgnoredWhenIdleOrOver(t *testing.T) {
	h := newHarness(t, []int{0}, 0)
	if _, ok := h.c.HandleSignal(signal.Green); ok {
		t.Error("Expected input ignored while idle")
	}

	_ = h.c.Start()
	h.clk.Advance(playbackLen(1))
	h.c.HandleSignal(signal.Red)

	before := h.c.Snapshot()
	if _, ok := h.c.HandleSignal(signal.Green); ok {
		t.Error("Expected input ignored after game over")
	}
	if after := h.c.Snapshot(); !reflect.DeepEqual(before, after) {
		t.Error("Session changed after game over")
	}
}

func TestInvalidSignalIgnored(t *testing.T) {
	h := newHarness(t, []int{0}, 0)
	_ = h.c.Start()
	h.clk.Advance(playbackLen(1))
	if _, ok := h.c.HandleSignal(signal.Signal(42)); ok {
		t.Error("Expected invalid signal to be ignored")
	}
}

func TestStartRejectedMidGame(t *testing.T) {
	h := newHarness(t, []int{0}, 0)
	if err := h.c.Restart(); !errors.Is(err, ErrNotStartable) {
		t.Errorf("Expected ErrNotStartable for restart from idle, got %v", err)
	}
	_ = h.c.Start()
	if err := h.c.Start(); !errors.Is(err, ErrNotStartable) {
		t.Errorf("Expected ErrNotStartable while playing, got %v", err)
	}
	h.clk.Advance(playbackLen(1))
	if err := h.c.Start(); !errors.Is(err, ErrNotStartable) {
		t.Errorf("Expected ErrNotStartable while awaiting input, got %v", err)
	}
}

func TestMatchAdvancesCursorAndFeedbackClears(t *testing.T) {
	h := newHarness(t, []int{0, 0}, 0)
	_ = h.c.Start()
	h.clk.Advance(playbackLen(1))
	h.submitRound(t)
	h.awaitInput(t)

	cues := len(h.audio.cues)
	v, _ := h.c.HandleSignal(signal.Green)
	if v != Match {
		t.Fatalf("Expected match, got %v", v)
	}
	snap := h.c.Snapshot()
	if snap.Cursor != 1 || snap.Phase != PhaseAwaitingInput {
		t.Errorf("Expected cursor 1 awaiting input, got %d %s", snap.Cursor, snap.Phase)
	}
	if !snap.IsActive(signal.Green) {
		t.Error("Expected click feedback to light green")
	}
	if len(h.audio.cues) != cues+1 {
		t.Error("Expected a feedback cue")
	}

	h.clk.Advance(DefaultFeedback)
	if h.c.Snapshot().Active != nil {
		t.Error("Expected feedback cleared after 300ms")
	}
}

func TestRapidClicksReplaceFeedback(t *testing.T) {
	// [green, green, red]: two quick matches then wait
	h := newHarness(t, []int{0, 0, 1}, 0)
	_ = h.c.Start()
	h.clk.Advance(playbackLen(1))
	h.submitRound(t)
	h.awaitInput(t)
	h.submitRound(t)
	h.awaitInput(t)

	h.c.HandleSignal(signal.Green)
	h.clk.Advance(200 * time.Millisecond)
	h.c.HandleSignal(signal.Green)
	h.clk.Advance(200 * time.Millisecond)

	// the first click's timer must not clear the second click's highlight
	if !h.c.Snapshot().IsActive(signal.Green) {
		t.Error("Expected second feedback still lit 200ms after click")
	}
	h.clk.Advance(100 * time.Millisecond)
	if h.c.Snapshot().Active != nil {
		t.Error("Expected feedback cleared 300ms after last click")
	}
}

func TestCloseDropsPendingCallbacks(t *testing.T) {
	h := newHarness(t, []int{0, 1}, 0)
	_ = h.c.Start()
	h.clk.Advance(playbackLen(1))
	h.c.HandleSignal(signal.Green) // schedules replay after pause

	h.c.Close()
	activated := len(h.visual.activated)
	h.clk.Advance(10 * time.Second)

	if len(h.visual.activated) != activated {
		t.Error("Expected no playback after Close")
	}
	if h.c.Snapshot().Phase != PhasePlaying {
		t.Errorf("Expected phase untouched by stale callbacks, got %s", h.c.Snapshot().Phase)
	}
	if h.clk.Pending() != 0 {
		t.Errorf("Expected no pending timers after Close, got %d", h.clk.Pending())
	}
}

func TestStaleFeedbackAfterRestart(t *testing.T) {
	h := newHarness(t, []int{0, 0}, 0)
	_ = h.c.Start()
	h.clk.Advance(playbackLen(1))
	h.c.HandleSignal(signal.Blue) // mismatch, feedback pending
	oldGen := h.c.Snapshot().Generation

	if err := h.c.Restart(); err != nil {
		t.Fatal(err)
	}
	if h.c.Snapshot().Generation <= oldGen {
		t.Fatal("Expected generation to advance on restart")
	}
	h.clk.Advance(100 * time.Millisecond)
	if !h.c.Snapshot().IsActive(signal.Green) {
		t.Fatal("Expected new game's first signal lit")
	}
	h.clk.Advance(250 * time.Millisecond) // past the old feedback deadline
	if !h.c.Snapshot().IsActive(signal.Green) {
		t.Error("Old feedback timer cleared the new playback highlight")
	}
}

func TestLoadErrorDefaultsToZero(t *testing.T) {
	scores := &failingScores{}
	c := New(context.Background(), Config{
		Palette: signal.NewSeeded(1),
		Clock:   clock.NewManual(),
		Scores:  scores,
	})
	if got := c.Snapshot().HighScore; got != 0 {
		t.Errorf("Expected 0 after load failure, got %d", got)
	}
}

func TestMalformedStoredHighScore(t *testing.T) {
	st := &rawScores{}
	c := New(context.Background(), Config{Clock: clock.NewManual(), Scores: st})
	if got := c.Snapshot().HighScore; got != 0 {
		t.Errorf("Expected 0 for malformed value, got %d", got)
	}
}

// rawScores mimics a store holding an unparseable value
type rawScores struct{}

func (r *rawScores) LoadHighScore(context.Context) (int, error) { return 0, store.ErrMalformed }
func (r *rawScores) SaveHighScore(context.Context, int) error  { return nil }

func TestHighScoreMonotonic(t *testing.T) {
	h := newHarness(t, []int{0}, 0)
	last := 0
	for game := 0; game < 3; game++ {
		if game == 0 {
			_ = h.c.Start()
		} else {
			_ = h.c.Restart()
		}
		h.clk.Advance(playbackLen(1))
		// clear (3 - game) rounds, then fail
		for r := 0; r < 3-game; r++ {
			h.submitRound(t)
			h.awaitInput(t)
		}
		h.c.HandleSignal(signal.Blue)

		hs := h.c.Snapshot().HighScore
		if hs < last {
			t.Errorf("game %d: high score dropped from %d to %d", game, last, hs)
		}
		last = hs
		saved, _ := h.scores.LoadHighScore(context.Background())
		if saved != hs {
			t.Errorf("game %d: expected persisted %d, got %d", game, hs, saved)
		}
	}
	if last != 3 {
		t.Errorf("Expected final high score 3, got %d", last)
	}
}
