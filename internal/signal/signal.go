// internal/signal/signal.go
//
// Signal palette for the game.
//
// Responsibilities:
//   - Define the fixed set of four signals (green, red, yellow, blue).
//   - Provide text encoding so signals read well in logs and JSON.
//   - Pick signals uniformly at random from an injectable source.
//
// Notes:
//   - Picks are independent: the same signal may come up twice in a row.
//   - The order of All is the display order of the board (2x2, row major).

package signal

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
)

// Signal identifies one of the selectable game symbols (a color/tone pair).
type Signal int

const (
	Green Signal = iota
	Red
	Yellow
	Blue
)

// All lists every signal in board order.
var All = [...]Signal{Green, Red, Yellow, Blue}

// ErrUnknown is returned when parsing a name that is not a signal.
var ErrUnknown = errors.New("signal: unknown")

var names = [...]string{"green", "red", "yellow", "blue"}

// Valid reports whether s is part of the palette.
func (s Signal) Valid() bool { return s >= 0 && int(s) < len(names) }

func (s Signal) String() string {
	if !s.Valid() {
		return fmt.Sprintf("signal(%d)", int(s))
	}
	return names[s]
}

// MarshalText implements encoding.TextMarshaler.
func (s Signal) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknown, int(s))
	}
	return []byte(names[s]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Signal) UnmarshalText(b []byte) error {
	v, err := Parse(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Parse maps a case-insensitive name to its Signal.
func Parse(name string) (Signal, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for i, v := range names {
		if v == n {
			return Signal(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknown, name)
}

// Source is the random source used by a Palette.
// *rand.Rand from math/rand/v2 satisfies it.
type Source interface {
	IntN(n int) int
}

// Palette draws signals uniformly from All.
type Palette struct {
	src Source
}

// NewPalette returns a palette backed by src.
// A nil src falls back to a PCG generator seeded from the clock.
func NewPalette(src Source) *Palette {
	if src == nil {
		now := uint64(time.Now().UnixNano())
		src = rand.New(rand.NewPCG(now, now>>32))
	}
	return &Palette{src: src}
}

// NewSeeded returns a palette with a deterministic PCG source.
func NewSeeded(seed uint64) *Palette {
	return &Palette{src: rand.New(rand.NewPCG(seed, 0))}
}

// PickRandom returns one signal. Calls are independent; repeats are allowed.
func (p *Palette) PickRandom() Signal {
	return All[p.src.IntN(len(All))]
}
