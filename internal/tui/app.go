// internal/tui/app.go
//
// Terminal front end for the game.
// Responsibilities:
//   - Draw the four quadrants, header and footer from controller snapshots
//   - Translate keys and mouse clicks into controller calls
//   - Act as the game's Visual: callbacks only post a redraw event, drawing
//     happens on the event loop goroutine

package tui

import (
	"context"
	"errors"
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/simon/internal/game"
	"github.com/robalobadob/simon/internal/signal"
)

// Controller is the subset of *game.Controller the UI drives.
type Controller interface {
	Start() error
	HandleSignal(s signal.Signal) (game.Verdict, bool)
	ToggleMute() bool
	Snapshot() game.Snapshot
}

// redrawEvent is posted by Visual callbacks.
type redrawEvent struct {
	tcell.EventTime
}

func newRedraw() *redrawEvent {
	ev := &redrawEvent{}
	ev.SetEventNow()
	return ev
}

// App owns rendering and input for one screen.
type App struct {
	screen      tcell.Screen
	lastButtons tcell.ButtonMask
}

var _ game.Visual = (*App)(nil)

// New wraps an initialized screen. The caller keeps ownership of Init/Fini.
func New(screen tcell.Screen) *App {
	return &App{screen: screen}
}

// Activate implements game.Visual.
func (a *App) Activate(signal.Signal) { a.requestRedraw() }

// Deactivate implements game.Visual.
func (a *App) Deactivate(signal.Signal) { a.requestRedraw() }

// Update implements game.Visual.
func (a *App) Update(game.Snapshot) { a.requestRedraw() }

func (a *App) requestRedraw() {
	if err := a.screen.PostEvent(newRedraw()); err != nil {
		log.Debug().Err(err).Msg("redraw dropped")
	}
}

// Run processes events until quit or ctx is done.
func (a *App) Run(ctx context.Context, ctrl Controller) error {
	a.screen.EnableMouse()
	a.screen.HideCursor()

	events := make(chan tcell.Event, 64)
	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			ev := a.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-done:
				return
			}
		}
	}()

	a.Draw(ctrl.Snapshot())
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-events:
			if !a.handleEvent(ev, ctrl) {
				return nil
			}
		}
	}
}

// handleEvent returns false when the user asked to quit.
func (a *App) handleEvent(ev tcell.Event, ctrl Controller) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		action, s := Translate(ev)
		switch action {
		case ActionQuit:
			return false
		case ActionStart:
			if err := ctrl.Start(); err != nil && !errors.Is(err, game.ErrNotStartable) {
				log.Error().Err(err).Msg("start failed")
			}
		case ActionSignal:
			ctrl.HandleSignal(s)
		case ActionMute:
			muted := ctrl.ToggleMute()
			log.Debug().Bool("muted", muted).Msg("mute toggled")
		}
	case *tcell.EventMouse:
		buttons := ev.Buttons()
		pressed := buttons&tcell.Button1 != 0 && a.lastButtons&tcell.Button1 == 0
		a.lastButtons = buttons
		if pressed {
			w, h := a.screen.Size()
			x, y := ev.Position()
			if s, ok := HitTest(w, h, x, y); ok {
				ctrl.HandleSignal(s)
			}
		}
	case *tcell.EventResize:
		a.screen.Sync()
	case *redrawEvent:
	default:
		return true
	}
	a.Draw(ctrl.Snapshot())
	return true
}

type palette struct {
	normal, active tcell.Color
}

var colors = [len(signal.All)]palette{
	signal.Green:  {tcell.NewRGBColor(34, 197, 94), tcell.NewRGBColor(134, 239, 172)},
	signal.Red:    {tcell.NewRGBColor(239, 68, 68), tcell.NewRGBColor(252, 165, 165)},
	signal.Yellow: {tcell.NewRGBColor(234, 179, 8), tcell.NewRGBColor(253, 224, 71)},
	signal.Blue:   {tcell.NewRGBColor(59, 130, 246), tcell.NewRGBColor(147, 197, 253)},
}

var (
	styleText    = tcell.StyleDefault.Foreground(tcell.ColorWhite)
	styleDimText = tcell.StyleDefault.Foreground(tcell.ColorGray)
)

// dim halves each channel of c.
func dim(c tcell.Color) tcell.Color {
	r, g, b := c.RGB()
	return tcell.NewRGBColor(r/2, g/2, b/2)
}

// quadrantStyle is the fill for s in snap.
func quadrantStyle(s signal.Signal, snap game.Snapshot) tcell.Style {
	p := colors[s]
	switch {
	case snap.IsActive(s):
		return tcell.StyleDefault.Background(p.active)
	case snap.InputDisabled():
		return tcell.StyleDefault.Background(dim(p.normal))
	}
	return tcell.StyleDefault.Background(p.normal)
}

// Draw renders snap to the screen.
func (a *App) Draw(snap game.Snapshot) {
	a.screen.Clear()
	w, h := a.screen.Size()

	for i, r := range Layout(w, h) {
		s := signal.Signal(i)
		style := quadrantStyle(s, snap)
		for y := r.Y; y < r.Y+r.H; y++ {
			for x := r.X; x < r.X+r.W; x++ {
				a.screen.SetContent(x, y, ' ', nil, style)
			}
		}
		if !r.Empty() {
			label := s.String()
			a.drawText(r.X+(r.W-len(label))/2, r.Y+r.H/2, label, style.Foreground(tcell.ColorBlack))
		}
	}

	a.drawText(0, 0, Header(snap), styleText)
	if h > 1 {
		a.drawText(0, h-1, Footer(snap), styleDimText)
	}
	a.screen.Show()
}

func (a *App) drawText(x, y int, text string, style tcell.Style) {
	for i, r := range text {
		a.screen.SetContent(x+i, y, r, nil, style)
	}
}

// Header is the status line: score, high score and mute marker.
func Header(snap game.Snapshot) string {
	line := fmt.Sprintf("Simon  Score: %d  High Score: %d", snap.Score, snap.HighScore)
	if snap.Muted {
		line += "  [muted]"
	}
	return line
}

// Footer is the prompt for the current phase.
func Footer(snap game.Snapshot) string {
	switch snap.Phase {
	case game.PhasePlaying:
		return "Watch the sequence..."
	case game.PhaseAwaitingInput:
		return "Your turn"
	case game.PhaseGameOver:
		return "Game Over! Press Enter to play again"
	}
	return "Press Enter to start"
}
