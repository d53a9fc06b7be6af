package tui

import "github.com/robalobadob/simon/internal/signal"

// Rect is a cell rectangle on screen.
type Rect struct {
	X, Y, W, H int
}

// Contains reports whether cell (x,y) is inside r.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X && x < r.X+r.W && y >= r.Y && y < r.Y+r.H
}

// Empty reports whether r covers no cells.
func (r Rect) Empty() bool { return r.W <= 0 || r.H <= 0 }

const (
	headerRows = 1
	footerRows = 1
	gap        = 1
)

// Layout splits a w x h screen into the four quadrants, indexed by signal:
// green top-left, red top-right, yellow bottom-left, blue bottom-right.
// Row 0 is the header and the last row is the footer. Screens too small to
// hold a 1x1 quadrant return empty rects.
func Layout(w, h int) [len(signal.All)]Rect {
	var out [len(signal.All)]Rect

	gridH := h - headerRows - footerRows
	if w < 2+gap || gridH < 2+gap {
		return out
	}

	leftW := (w - gap) / 2
	rightW := w - gap - leftW
	topH := (gridH - gap) / 2
	botH := gridH - gap - topH

	top := headerRows
	bottom := top + topH + gap
	right := leftW + gap

	out[signal.Green] = Rect{X: 0, Y: top, W: leftW, H: topH}
	out[signal.Red] = Rect{X: right, Y: top, W: rightW, H: topH}
	out[signal.Yellow] = Rect{X: 0, Y: bottom, W: leftW, H: botH}
	out[signal.Blue] = Rect{X: right, Y: bottom, W: rightW, H: botH}
	return out
}

// HitTest maps a screen cell to the quadrant under it.
func HitTest(w, h, x, y int) (signal.Signal, bool) {
	for i, r := range Layout(w, h) {
		if r.Contains(x, y) {
			return signal.Signal(i), true
		}
	}
	return 0, false
}
