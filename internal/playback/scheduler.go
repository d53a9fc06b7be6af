// internal/playback/scheduler.go
//
// Timed playback of a signal sequence.
//
// Responsibilities:
//   - Compute the event timeline for a sequence (Timeline).
//   - Deliver activate/deactivate/complete events on a clock (Scheduler.Play).
//   - Refuse a second playback while one is in flight (ErrBusy).
//   - Cancel only through a full Reset.
//
// Notes:
//   - Events are never delivered from inside Play; the first one runs on a
//     zero-delay tick. Callers may hold their own locks while calling Play.
//   - The sink is called without the scheduler lock held.
//   - Each scheduled step carries the generation it was created in; steps
//     from a reset playback are dropped on arrival.

package playback

import (
	"errors"
	"sync"
	"time"

	"github.com/robalobadob/simon/internal/clock"
	"github.com/robalobadob/simon/internal/signal"
)

const (
	DefaultOn  = 500 * time.Millisecond
	DefaultOff = DefaultOn / 2
)

// ErrBusy is returned by Play while a previous playback has not completed.
var ErrBusy = errors.New("playback: already playing")

// Timing holds the hold durations for each element.
type Timing struct {
	On  time.Duration // signal lit
	Off time.Duration // gap after the signal goes dark
}

// DefaultTiming is 500ms on, 250ms off.
func DefaultTiming() Timing { return Timing{On: DefaultOn, Off: DefaultOff} }

// Kind identifies a playback event.
type Kind int

const (
	Activate Kind = iota
	Deactivate
	Complete
)

func (k Kind) String() string {
	switch k {
	case Activate:
		return "activate"
	case Deactivate:
		return "deactivate"
	case Complete:
		return "complete"
	}
	return "unknown"
}

// Event is one entry in a playback timeline. At is the offset from start.
type Event struct {
	At     time.Duration
	Kind   Kind
	Signal signal.Signal // zero for Complete
}

// Timeline lists the events Play will emit for seq, in order.
// The final Complete falls after the last element's off gap.
func Timeline(seq []signal.Signal, tm Timing) []Event {
	out := make([]Event, 0, len(seq)*2+1)
	var at time.Duration
	for _, s := range seq {
		out = append(out, Event{At: at, Kind: Activate, Signal: s})
		out = append(out, Event{At: at + tm.On, Kind: Deactivate, Signal: s})
		at += tm.On + tm.Off
	}
	return append(out, Event{At: at, Kind: Complete})
}

// Sink receives playback events.
type Sink interface {
	Activate(s signal.Signal)
	Deactivate(s signal.Signal)
	Complete()
}

// Scheduler plays one sequence at a time.
type Scheduler struct {
	clk    clock.Clock
	timing Timing

	mu    sync.Mutex
	gen   uint64
	busy  bool
	timer clock.Timer
}

// New returns a Scheduler on clk. Zero durations in tm take the defaults.
func New(clk clock.Clock, tm Timing) *Scheduler {
	if tm.On <= 0 {
		tm.On = DefaultOn
	}
	if tm.Off <= 0 {
		tm.Off = tm.On / 2
	}
	return &Scheduler{clk: clk, timing: tm}
}

// Timing reports the durations in use.
func (s *Scheduler) Timing() Timing { return s.timing }

// Busy reports whether a playback is in flight.
func (s *Scheduler) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// Play starts emitting the timeline for seq to sink.
// The sequence is copied; later changes by the caller do not affect playback.
func (s *Scheduler) Play(seq []signal.Signal, sink Sink) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return ErrBusy
	}
	s.busy = true
	s.gen++
	events := Timeline(append([]signal.Signal(nil), seq...), s.timing)
	s.scheduleLocked(s.gen, events, 0, 0, sink)
	return nil
}

// Reset cancels any playback in flight. No Complete is delivered for it.
func (s *Scheduler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
	s.busy = false
}

// scheduleLocked arms the timer for events[i]. prev is the offset of the
// previous event. Caller holds mu.
func (s *Scheduler) scheduleLocked(gen uint64, events []Event, i int, prev time.Duration, sink Sink) {
	ev := events[i]
	s.timer = s.clk.AfterFunc(ev.At-prev, func() { s.fire(gen, events, i, sink) })
}

func (s *Scheduler) fire(gen uint64, events []Event, i int, sink Sink) {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}
	ev := events[i]
	if ev.Kind == Complete {
		s.busy = false
		s.timer = nil
	} else {
		s.scheduleLocked(gen, events, i+1, ev.At, sink)
	}
	s.mu.Unlock()

	switch ev.Kind {
	case Activate:
		sink.Activate(ev.Signal)
	case Deactivate:
		sink.Deactivate(ev.Signal)
	case Complete:
		sink.Complete()
	}
}
