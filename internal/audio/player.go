// internal/audio/player.go
//
// Speaker-backed tone player.
// Cues are added to a shared mixer so overlapping tones (a click during the
// tail of a playback tone) do not cut each other off. If the speaker cannot be
// opened the player stays silent; the game runs without sound.

package audio

import (
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/simon/internal/signal"
)

// Config holds output settings.
type Config struct {
	SampleRate int     // Hz
	Volume     float64 // peak amplitude in [0,1]
}

// DefaultConfig returns 44.1kHz at half amplitude.
func DefaultConfig() Config {
	return Config{SampleRate: 44100, Volume: 0.5}
}

// Player implements game.Audio.
type Player struct {
	cfg   Config
	rate  beep.SampleRate
	mixer *beep.Mixer

	mu          sync.Mutex
	initialized bool
}

// NewPlayer creates a player. Call Init before cues are audible.
func NewPlayer(cfg Config) *Player {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = DefaultConfig().SampleRate
	}
	if cfg.Volume < 0 {
		cfg.Volume = 0
	}
	if cfg.Volume > 1 {
		cfg.Volume = 1
	}
	return &Player{
		cfg:   cfg,
		rate:  beep.SampleRate(cfg.SampleRate),
		mixer: &beep.Mixer{},
	}
}

// Init opens the speaker. Failure is logged and leaves the player silent.
func (p *Player) Init() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.initialized {
		return nil
	}

	if err := speaker.Init(p.rate, p.rate.N(50*time.Millisecond)); err != nil {
		log.Warn().Err(err).Msg("audio init failed, running silent")
		return err
	}
	speaker.Play(p.mixer)
	p.initialized = true
	log.Debug().Int("sampleRate", p.cfg.SampleRate).Msg("audio ready")
	return nil
}

// Cue plays the tone for s. It is a no-op before Init succeeds.
func (p *Player) Cue(s signal.Signal) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.initialized || !s.Valid() {
		return
	}
	t := NewTone(Frequency(s), p.cfg.Volume, p.rate)
	speaker.Lock()
	p.mixer.Add(t)
	speaker.Unlock()
}

// Close silences everything and releases the speaker.
func (p *Player) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.initialized {
		return
	}
	speaker.Lock()
	p.mixer.Clear()
	speaker.Unlock()
	speaker.Close()
	p.initialized = false
}
