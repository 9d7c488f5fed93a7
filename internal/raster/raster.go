// Package raster is a timeline.Surface that draws into a grid of device
// pixels and prints it to a terminal with half-block glyphs: each cell
// shows two vertically stacked pixels, the upper one as the foreground of
// '▀' and the lower one as its background.
//
// Text is kept on a separate cell layer and printed over the pixels.
package raster

import (
	"math"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/daviddao/cascadance/internal/timeline"
)

const upperHalf = "▀"

type glyph struct {
	r  rune
	fg colorful.Color
}

// Canvas is a pixel buffer of w x h device pixels, h even. It is not safe
// for concurrent use.
type Canvas struct {
	w, h   int
	sx, sy float64
	pix    []colorful.Color
	text   map[int]glyph // keyed by cell index

	// stamp marks pixels already painted by the current stroke so that
	// overlapping brush positions do not blend twice.
	stamp []uint32
	gen   uint32
}

var _ timeline.Surface = (*Canvas)(nil)

// New returns a canvas covering cols x rows terminal cells.
func New(cols, rows int) *Canvas {
	c := &Canvas{}
	c.Resize(cols, rows*2)
	return c
}

// Resize reallocates the pixel buffer and resets the scale. An odd height is
// rounded up to fill whole cells.
func (c *Canvas) Resize(w, h int) {
	w, h = max(w, 0), max(h, 0)
	h += h % 2
	c.sx, c.sy = 1, 1
	if w == c.w && h == c.h && c.pix != nil {
		return
	}
	c.w, c.h = w, h
	c.pix = make([]colorful.Color, w*h)
	c.stamp = make([]uint32, w*h)
	c.text = make(map[int]glyph)
}

// Size is the pixel size.
func (c *Canvas) Size() (w, h int) { return c.w, c.h }

// Cells is the terminal size in cells.
func (c *Canvas) Cells() (cols, rows int) { return c.w, c.h / 2 }

func (c *Canvas) SetScale(sx, sy float64) {
	c.sx, c.sy = sx, sy
}

// Clear paints every pixel black and drops all text.
func (c *Canvas) Clear() {
	for i := range c.pix {
		c.pix[i] = colorful.Color{}
	}
	clear(c.text)
}

// At returns the pixel at device coordinates x, y.
func (c *Canvas) At(x, y int) colorful.Color {
	if x < 0 || y < 0 || x >= c.w || y >= c.h {
		return colorful.Color{}
	}
	return c.pix[y*c.w+x]
}

// TextAt returns the rune printed in a cell, or 0.
func (c *Canvas) TextAt(col, row int) rune {
	return c.text[row*c.w+col].r
}

func (c *Canvas) blend(x, y int, col timeline.Color, a float64) {
	if x < 0 || y < 0 || x >= c.w || y >= c.h || a <= 0 {
		return
	}
	i := y*c.w + x
	if a >= 1 {
		c.pix[i] = col.Color
		return
	}
	c.pix[i] = c.pix[i].BlendRgb(col.Color, a).Clamped()
}

// FillRect fills a rectangle, blending partially covered edge pixels by
// their coverage.
func (c *Canvas) FillRect(x, y, w, h float64, col timeline.Color) {
	x0, x1 := x*c.sx, (x+w)*c.sx
	y0, y1 := y*c.sy, (y+h)*c.sy
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	x0, x1 = math.Max(x0, 0), math.Min(x1, float64(c.w))
	y0, y1 = math.Max(y0, 0), math.Min(y1, float64(c.h))
	if x0 >= x1 || y0 >= y1 || col.A <= 0 {
		return
	}
	for py := int(y0); py < int(math.Ceil(y1)); py++ {
		cy := math.Min(float64(py+1), y1) - math.Max(float64(py), y0)
		for px := int(x0); px < int(math.Ceil(x1)); px++ {
			cx := math.Min(float64(px+1), x1) - math.Max(float64(px), x0)
			c.blend(px, py, col, col.A*cx*cy)
		}
	}
}

// FillPath fills a closed polygon with the even-odd rule, sampling at
// pixel centres.
func (c *Canvas) FillPath(pts []timeline.Point, col timeline.Color) {
	if len(pts) < 3 || col.A <= 0 {
		return
	}
	dev := c.toDevice(pts)
	minY, maxY := dev[0].Y, dev[0].Y
	for _, p := range dev[1:] {
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	var xs []float64
	for py := max(0, int(math.Floor(minY))); py < min(c.h, int(math.Ceil(maxY))); py++ {
		yc := float64(py) + 0.5
		xs = xs[:0]
		for i := range dev {
			a, b := dev[i], dev[(i+1)%len(dev)]
			if (a.Y <= yc) == (b.Y <= yc) {
				continue
			}
			xs = append(xs, a.X+(yc-a.Y)*(b.X-a.X)/(b.Y-a.Y))
		}
		sort.Float64s(xs)
		for k := 0; k+1 < len(xs); k += 2 {
			from := max(0, int(math.Ceil(xs[k]-0.5)))
			to := min(c.w, int(math.Ceil(xs[k+1]-0.5)))
			for px := from; px < to; px++ {
				c.blend(px, py, col, col.A)
			}
		}
	}
}

// StrokePath draws a polyline with a square brush at least one device pixel
// wide. dash alternates on and off lengths in CSS pixels.
func (c *Canvas) StrokePath(pts []timeline.Point, width float64, col timeline.Color, dash []float64) {
	if len(pts) == 0 || col.A <= 0 || c.w == 0 {
		return
	}
	c.gen++
	if c.gen == 0 {
		clear(c.stamp)
		c.gen = 1
	}
	brush := max(1, int(math.Round(width*math.Max(c.sx, c.sy))))
	pattern := dashPattern(dash)

	if len(pts) == 1 {
		c.dab(pts[0].X*c.sx, pts[0].Y*c.sy, brush, col)
		return
	}
	var walked float64 // CSS px along the path
	for i := 0; i+1 < len(pts); i++ {
		a, b := pts[i], pts[i+1]
		dx, dy := b.X-a.X, b.Y-a.Y
		length := math.Hypot(dx, dy)
		steps := max(1, int(math.Ceil(math.Max(math.Abs(dx*c.sx), math.Abs(dy*c.sy))*2)))
		for s := 0; s <= steps; s++ {
			f := float64(s) / float64(steps)
			if pattern.on(walked + f*length) {
				c.dab((a.X+dx*f)*c.sx, (a.Y+dy*f)*c.sy, brush, col)
			}
		}
		walked += length
	}
}

// dab paints a size x size square centred on device point x, y.
func (c *Canvas) dab(x, y float64, size int, col timeline.Color) {
	x0 := int(math.Floor(x - float64(size-1)/2))
	y0 := int(math.Floor(y - float64(size-1)/2))
	for py := y0; py < y0+size; py++ {
		for px := x0; px < x0+size; px++ {
			if px < 0 || py < 0 || px >= c.w || py >= c.h {
				continue
			}
			i := py*c.w + px
			if c.stamp[i] == c.gen {
				continue
			}
			c.stamp[i] = c.gen
			c.blend(px, py, col, col.A)
		}
	}
}

type dashes []float64

func dashPattern(d []float64) dashes {
	var total float64
	for _, v := range d {
		if v < 0 {
			return nil
		}
		total += v
	}
	if total == 0 {
		return nil
	}
	if len(d)%2 == 1 {
		d = append(append([]float64{}, d...), d...)
	}
	return d
}

func (d dashes) on(dist float64) bool {
	if len(d) == 0 {
		return true
	}
	var total float64
	for _, v := range d {
		total += v
	}
	dist = math.Mod(dist, total)
	for i, v := range d {
		if dist < v {
			return i%2 == 0
		}
		dist -= v
	}
	return true
}

// FillText prints text on the cell layer starting at the cell containing
// x, y. Escape sequences are stripped and text is clipped at the right edge.
func (c *Canvas) FillText(x, y float64, text string, col timeline.Color) {
	if c.w == 0 {
		return
	}
	colN := int(math.Floor(x * c.sx))
	row := int(math.Floor(y * c.sy / 2))
	if row < 0 || row >= c.h/2 {
		return
	}
	for _, r := range ansi.Strip(text) {
		if colN >= c.w {
			break
		}
		if colN >= 0 && r != '\n' {
			c.text[row*c.w+colN] = glyph{r: r, fg: col.Color}
		}
		colN++
	}
}

// Lines renders each cell row as a styled string.
func (c *Canvas) Lines() []string {
	rows := c.h / 2
	out := make([]string, rows)
	var b strings.Builder
	for row := 0; row < rows; row++ {
		b.Reset()
		var run strings.Builder
		var runStyle lipgloss.Style
		var runKey string
		flush := func() {
			if run.Len() > 0 {
				b.WriteString(runStyle.Render(run.String()))
				run.Reset()
			}
		}
		for col := 0; col < c.w; col++ {
			top := c.pix[(row*2)*c.w+col]
			bottom := c.pix[(row*2+1)*c.w+col]
			fg, bg, s := top, bottom, upperHalf
			if g, ok := c.text[row*c.w+col]; ok {
				fg, bg, s = g.fg, top.BlendRgb(bottom, 0.5), string(g.r)
			}
			key := fg.Hex() + bg.Hex()
			if key != runKey {
				flush()
				runKey = key
				runStyle = lipgloss.NewStyle().
					Foreground(lipgloss.Color(fg.Hex())).
					Background(lipgloss.Color(bg.Hex()))
			}
			run.WriteString(s)
		}
		flush()
		out[row] = b.String()
	}
	return out
}

// String renders the whole canvas.
func (c *Canvas) String() string {
	return strings.Join(c.Lines(), "\n")
}

func (c *Canvas) toDevice(pts []timeline.Point) []timeline.Point {
	out := make([]timeline.Point, len(pts))
	for i, p := range pts {
		out[i] = timeline.Point{X: p.X * c.sx, Y: p.Y * c.sy}
	}
	return out
}
