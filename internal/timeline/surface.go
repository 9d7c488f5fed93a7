package timeline

import (
	colorful "github.com/lucasb-eyer/go-colorful"
)

// Point is a position in CSS pixels.
type Point struct {
	X, Y float64
}

// Color is an sRGB colour with straight (non-premultiplied) alpha.
type Color struct {
	colorful.Color
	A float64
}

// Hex parses a "#rrggbb" colour. Malformed input yields opaque black.
func Hex(s string) Color {
	c, err := colorful.Hex(s)
	if err != nil {
		return Color{A: 1}
	}
	return Color{Color: c, A: 1}
}

// RGBA builds a colour from 0..255 channels and a 0..1 alpha.
func RGBA(r, g, b uint8, a float64) Color {
	return Color{
		Color: colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255},
		A:     a,
	}
}

// WithAlpha returns c with its alpha replaced.
func (c Color) WithAlpha(a float64) Color {
	c.A = a
	return c
}

// Surface is a 2D drawing target. All coordinates are in CSS pixels;
// implementations apply the scale set by SetScale to reach backing-store
// pixels.
type Surface interface {
	// Resize sets the backing-store size in device pixels and resets the scale.
	Resize(w, h int)
	SetScale(sx, sy float64)
	Clear()
	FillRect(x, y, w, h float64, c Color)
	FillPath(pts []Point, c Color)
	// StrokePath draws a polyline. A non-empty dash alternates on/off lengths.
	StrokePath(pts []Point, width float64, c Color, dash []float64)
	FillText(x, y float64, text string, c Color)
}
