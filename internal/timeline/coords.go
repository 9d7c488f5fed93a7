package timeline

import "math"

const (
	MinZoom  = 1.0
	MaxZoom  = 50.0
	ZoomStep = 1.5
)

// Viewport maps between seconds and horizontal CSS pixels.
//
// Scroll is the pixel offset of the left edge of the viewport into the
// zoomed content, which is Width*Zoom pixels wide.
type Viewport struct {
	Zoom     float64
	Scroll   float64
	Duration float64
	Width    float64
}

// NewViewport returns a full-view viewport.
func NewViewport() Viewport {
	return Viewport{Zoom: MinZoom}
}

// Valid reports whether the viewport has a duration, width and zoom to map
// with.
func (v Viewport) Valid() bool {
	return v.Duration > 0 && v.Width > 0 && v.Zoom > 0
}

// PixelsPerSecond is 0 when the viewport is degenerate.
func (v Viewport) PixelsPerSecond() float64 {
	if !v.Valid() {
		return 0
	}
	return v.Width * v.Zoom / v.Duration
}

// TimeToX returns the pixel of time t, which may lie off screen. It returns
// -1 when the viewport is degenerate; since -1 is also a valid off-screen
// pixel, callers must check Valid or PixelsPerSecond first.
func (v Viewport) TimeToX(t float64) float64 {
	pps := v.PixelsPerSecond()
	if pps == 0 {
		return -1
	}
	return t*pps - v.Scroll
}

// XToTime returns the time under pixel x, clamped to [0, Duration].
// It returns 0 when the viewport is degenerate.
func (v Viewport) XToTime(x float64) float64 {
	pps := v.PixelsPerSecond()
	if pps == 0 {
		return 0
	}
	return clamp((v.Scroll+x)/pps, 0, v.Duration)
}

// MaxScroll is the largest legal Scroll at the current zoom.
func (v Viewport) MaxScroll() float64 {
	if v.Width <= 0 {
		return 0
	}
	return math.Max(0, v.Width*(v.Zoom-1))
}

// Clamp restores the zoom and scroll invariants.
func (v *Viewport) Clamp() {
	if math.IsNaN(v.Zoom) || v.Zoom < MinZoom {
		v.Zoom = MinZoom
	}
	if v.Zoom > MaxZoom {
		v.Zoom = MaxZoom
	}
	if math.IsNaN(v.Scroll) {
		v.Scroll = 0
	}
	if v.Zoom == MinZoom {
		v.Scroll = 0
		return
	}
	v.Scroll = clamp(v.Scroll, 0, v.MaxScroll())
}

// ScrollBy pans the content by dx pixels and clamps.
func (v *Viewport) ScrollBy(dx float64) {
	v.Scroll += dx
	v.Clamp()
}

// ZoomAt zooms in (direction > 0) or out (direction < 0) by one step,
// keeping the time under focusX fixed. Without a focus the viewport centre
// is used. Returns false if nothing changed.
func (v *Viewport) ZoomAt(direction int, focusX float64, hasFocus bool) bool {
	if !v.Valid() || direction == 0 {
		return false
	}
	if !hasFocus {
		focusX = v.Width / 2
	}
	anchor := v.XToTime(focusX)

	prev := v.Zoom
	if direction > 0 {
		v.Zoom *= ZoomStep
	} else {
		v.Zoom /= ZoomStep
	}
	v.Zoom = clamp(v.Zoom, MinZoom, MaxZoom)
	if v.Zoom == prev {
		return false
	}

	v.Scroll = anchor*v.PixelsPerSecond() - focusX
	v.Clamp()
	return true
}

// SetZoom jumps straight to zoom z, anchored on the viewport centre.
func (v *Viewport) SetZoom(z float64) {
	if !v.Valid() {
		v.Zoom = clamp(z, MinZoom, MaxZoom)
		v.Scroll = 0
		return
	}
	anchor := v.XToTime(v.Width / 2)
	v.Zoom = clamp(z, MinZoom, MaxZoom)
	v.Scroll = anchor*v.PixelsPerSecond() - v.Width/2
	v.Clamp()
}

// VisibleRange is the time window currently on screen.
func (v Viewport) VisibleRange() (start, end float64) {
	pps := v.PixelsPerSecond()
	if pps == 0 {
		return 0, 0
	}
	start = v.Scroll / pps
	end = math.Min(v.Duration, start+v.Width/pps)
	return start, end
}

// Visible reports whether time t falls inside the visible window.
func (v Viewport) Visible(t float64) bool {
	if !v.Valid() {
		return false
	}
	start, end := v.VisibleRange()
	return t >= start && t <= end
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
