package tui

import (
	"github.com/gdamore/tcell/v2"

	"github.com/robalobadob/simon/internal/signal"
)

// Action is what a key press asks the app to do.
type Action int

const (
	ActionNone Action = iota
	ActionSignal
	ActionStart
	ActionMute
	ActionQuit
)

// q w / a s mirror the on-screen grid; 1-4 follow signal order.
var keySignals = map[rune]signal.Signal{
	'q': signal.Green, 'w': signal.Red, 'a': signal.Yellow, 's': signal.Blue,
	'1': signal.Green, '2': signal.Red, '3': signal.Yellow, '4': signal.Blue,
}

// Translate maps a key event to an action. The signal is only meaningful for
// ActionSignal.
func Translate(ev *tcell.EventKey) (Action, signal.Signal) {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return ActionQuit, 0
	case tcell.KeyEnter:
		return ActionStart, 0
	case tcell.KeyRune:
		r := ev.Rune()
		if r >= 'A' && r <= 'Z' {
			r += 'a' - 'A'
		}
		if s, ok := keySignals[r]; ok {
			return ActionSignal, s
		}
		switch r {
		case ' ':
			return ActionStart, 0
		case 'm':
			return ActionMute, 0
		}
	}
	return ActionNone, 0
}
