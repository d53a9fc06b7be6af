// internal/game/types.go
//
// Core type definitions for the game controller.
// Defines:
//   - Phase: position in the state machine (idle/playing/awaiting_input/game_over).
//   - Verdict: result of checking one player selection.
//   - Snapshot: read-only copy of a session for renderers and the status API.
//   - Visual / Audio: collaborators the controller drives.

package game

import (
	"github.com/robalobadob/simon/internal/signal"
)

// Phase is the state-machine position of a session.
type Phase string

const (
	PhaseIdle          Phase = "idle"
	PhasePlaying       Phase = "playing"
	PhaseAwaitingInput Phase = "awaiting_input"
	PhaseGameOver      Phase = "game_over"
)

// Verdict is the outcome of one selection against the expected sequence.
type Verdict string

const (
	Match            Verdict = "match"
	Mismatch         Verdict = "mismatch"
	SequenceComplete Verdict = "sequence_complete"
)

func (v Verdict) String() string { return string(v) }

// Snapshot is a copy of the session state at one instant.
type Snapshot struct {
	GameID     string          `json:"gameId,omitempty"`
	Generation uint64          `json:"generation"`
	Phase      Phase           `json:"phase"`
	Sequence   []signal.Signal `json:"sequence"`
	Cursor     int             `json:"cursor"`
	Score      int             `json:"score"`
	HighScore  int             `json:"highScore"`
	Muted      bool            `json:"muted"`
	Active     *signal.Signal  `json:"active,omitempty"` // nil when nothing is lit
}

// InputDisabled reports whether the board should refuse clicks.
func (s Snapshot) InputDisabled() bool {
	return s.Phase == PhasePlaying || s.Phase == PhaseGameOver
}

// IsActive reports whether sig is currently lit.
func (s Snapshot) IsActive(sig signal.Signal) bool {
	return s.Active != nil && *s.Active == sig
}

// Visual renders signal highlights and session state.
// Calls arrive with the controller lock held; implementations must not call
// back into the Controller synchronously.
type Visual interface {
	Activate(s signal.Signal)
	Deactivate(s signal.Signal)
	Update(snap Snapshot)
}

// Audio plays the tone for a signal. The controller skips it while muted.
type Audio interface {
	Cue(s signal.Signal)
}

type nopVisual struct{}

func (nopVisual) Activate(signal.Signal)   {}
func (nopVisual) Deactivate(signal.Signal) {}
func (nopVisual) Update(Snapshot)          {}

type nopAudio struct{}

func (nopAudio) Cue(signal.Signal) {}
