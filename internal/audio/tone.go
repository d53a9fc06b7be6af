package audio

import (
	"math"
	"time"

	"github.com/gopxl/beep"

	"github.com/robalobadob/simon/internal/signal"
)

const (
	ToneAttack   = 10 * time.Millisecond
	ToneDuration = 300 * time.Millisecond
)

// Frequency returns the pitch for a signal: C4, E4, G4, C5.
func Frequency(s signal.Signal) float64 {
	switch s {
	case signal.Green:
		return 261.63
	case signal.Red:
		return 329.63
	case signal.Yellow:
		return 392.00
	case signal.Blue:
		return 523.25
	}
	return 0
}

// tone is a sine wave with a linear attack to peak and a linear decay to silence
type tone struct {
	freq   float64
	peak   float64
	rate   beep.SampleRate
	pos    int
	attack int
	total  int
}

// NewTone creates a 300ms sine cue at freq: 10ms linear attack to peak, then
// linear decay to zero at the end.
func NewTone(freq, peak float64, rate beep.SampleRate) beep.Streamer {
	return &tone{
		freq:   freq,
		peak:   peak,
		rate:   rate,
		attack: rate.N(ToneAttack),
		total:  rate.N(ToneDuration),
	}
}

func (t *tone) Stream(samples [][2]float64) (n int, ok bool) {
	if t.pos >= t.total {
		return 0, false
	}
	for i := range samples {
		if t.pos >= t.total {
			return i, true
		}
		v := t.envelope() * math.Sin(2*math.Pi*t.freq*float64(t.pos)/float64(t.rate))
		samples[i][0] = v
		samples[i][1] = v
		t.pos++
	}
	return len(samples), true
}

func (t *tone) Err() error { return nil }

// envelope is the gain at the current position
func (t *tone) envelope() float64 {
	if t.pos < t.attack {
		return t.peak * float64(t.pos) / float64(t.attack)
	}
	decay := t.total - t.attack
	if decay <= 0 {
		return 0
	}
	return t.peak * float64(t.total-t.pos) / float64(decay)
}
