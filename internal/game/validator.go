package game

import "github.com/robalobadob/simon/internal/signal"

// Validate checks chosen against expected[cursor].
//
// It is a pure function. The caller must keep cursor < len(expected); the
// controller guarantees this by only validating in PhaseAwaitingInput.
func Validate(expected []signal.Signal, cursor int, chosen signal.Signal) Verdict {
	if chosen != expected[cursor] {
		return Mismatch
	}
	if cursor+1 == len(expected) {
		return SequenceComplete
	}
	return Match
}
