package timeline

import (
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Band proportions of the canvas height, top to bottom.
const (
	freqBandRatio   = 0.25
	cameraBandRatio = 0.15
	colorBandRatio  = 0.10

	scrollbarHeight = 4.0
)

var (
	bandColors   = [3]Color{Hex("#ef4444"), Hex("#22c55e"), Hex("#3b82f6")}
	bandLabels   = [5]string{"BASS (RMS)", "MIDS (RMS)", "HIGHS (RMS)", "CAMERA / FOV", "COLOR REACTIVITY"}
	labelColor   = Hex("#ffff00")
	background   = Hex("#000000")
	white        = Hex("#ffffff")
	black        = Hex("#000000")
	accent       = Hex("#38bdf8")
	errorColor   = Hex("#ef4444")
	segmentColor = Hex("#a855f7")
)

// band is one horizontal strip of the layout.
type band struct {
	y, h float64
}

func (e *Editor) layout() [5]band {
	h := e.height
	fh := h * freqBandRatio
	ch := h * cameraBandRatio
	return [5]band{
		{0, fh},
		{fh, fh},
		{fh * 2, fh},
		{fh * 3, ch},
		{fh*3 + ch, h * colorBandRatio},
	}
}

// Resize sizes the canvas to displayW x displayH CSS pixels at device
// pixel ratio dpr. A zero dimension disables drawing until the next resize.
func (e *Editor) Resize(displayW, displayH, dpr float64) {
	if dpr <= 0 {
		dpr = 1
	}
	if displayW <= 0 || displayH <= 0 {
		e.view.Width, e.height = 0, 0
		e.backW, e.backH = 0, 0
		return
	}
	e.view.Width = displayW
	e.height = displayH
	e.dpr = dpr
	e.backW = int(math.Round(displayW * dpr))
	e.backH = int(math.Round(displayH * dpr))
	e.view.Clamp()
}

// BackingSize is the backing-store size in device pixels.
func (e *Editor) BackingSize() (w, h int) { return e.backW, e.backH }

// Playhead returns the playhead pixel position and whether it is on screen.
func (e *Editor) Playhead(currentTime float64) (float64, bool) {
	if !e.view.Valid() || !e.view.Visible(currentTime) {
		return 0, false
	}
	return e.view.TimeToX(currentTime), true
}

// Render redraws the whole canvas.
func (e *Editor) Render(s Surface, currentTime float64) {
	if s == nil || e.backW <= 0 || e.backH <= 0 {
		return
	}
	s.Resize(e.backW, e.backH)
	s.SetScale(e.dpr, e.dpr)
	s.Clear()

	w, h := e.view.Width, e.height
	s.FillRect(0, 0, w, h, background)

	if e.analyzing {
		e.drawLoading(s)
		return
	}
	if !e.view.Valid() {
		return
	}
	e.view.Clamp()

	e.drawSegments(s)
	if e.loaded && e.tracks.Len() > 0 {
		e.drawTracks(s)
	}
	e.drawSelection(s)
	e.drawScrollbar(s)
	e.drawLabels(s)

	if x, ok := e.Playhead(currentTime); ok {
		s.StrokePath([]Point{{x, 0}, {x, h}}, 2, white, nil)
	}
}

func (e *Editor) drawLoading(s Surface) {
	w, h := e.view.Width, e.height
	s.FillRect(0, 0, w, h, black.WithAlpha(0.85))
	const msg = "Processing Audio Data..."
	s.FillText(w/2-float64(len(msg))*2, h/2-8, msg, white)
	bx, bw := w*0.2, w*0.6
	s.FillRect(bx, h/2+8, bw, 4, white.WithAlpha(0.1))
	s.FillRect(bx, h/2+8, bw*e.progress, 4, accent)
}

// sampleX is the pixel position of sample i out of n.
func (e *Editor) sampleX(i, n int) float64 {
	return e.view.TimeToX(float64(i) * e.view.Duration / float64(n))
}

func (e *Editor) drawTracks(s Surface) {
	n := e.tracks.Len()
	t0, t1 := e.view.VisibleRange()
	startIdx, endIdx := e.tracks.Window(t0, t1, e.view.Duration, DecimationPad)
	if endIdx-startIdx < 2 {
		return
	}
	bands := e.layout()

	for k, data := range [3][]float64{e.tracks.Lows, e.tracks.Mids, e.tracks.Highs} {
		b := bands[k]
		bottom := b.y + b.h
		pts := make([]Point, 0, endIdx-startIdx+2)
		pts = append(pts, Point{e.sampleX(startIdx, n), bottom})
		for i := startIdx; i < endIdx; i++ {
			v := clamp(data[i], 0, 1)
			pts = append(pts, Point{e.sampleX(i, n), bottom - v*b.h})
		}
		pts = append(pts, Point{e.sampleX(endIdx-1, n), bottom})
		s.FillPath(pts, bandColors[k])
	}

	e.drawCamera(s, bands[3], startIdx, endIdx)
	e.drawColorStrip(s, bands[4], startIdx, endIdx)
}

func (e *Editor) drawCamera(s Surface, b band, startIdx, endIdx int) {
	n := e.tracks.Len()
	mid := b.y + b.h*0.5
	s.StrokePath([]Point{{0, mid}, {e.view.Width, mid}}, 1, white.WithAlpha(0.2), []float64{5, 5})

	w := e.opts.Weights
	line := make([]Point, 0, endIdx-startIdx)
	for i := startIdx; i < endIdx; i++ {
		v := e.tracks.Lows[i]*w.Pitch + e.tracks.Mids[i]*w.Roll + e.tracks.Highs[i]*w.Yaw
		v = math.Min(v, 1)
		line = append(line, Point{e.sampleX(i, n), b.y + b.h - v*b.h})
	}
	s.StrokePath(line, 2, white, nil)

	bottom := b.y + b.h
	fill := make([]Point, 0, len(line)+2)
	fill = append(fill, line...)
	fill = append(fill, Point{line[len(line)-1].X, bottom}, Point{line[0].X, bottom})
	s.FillPath(fill, white.WithAlpha(0.05))
}

func (e *Editor) drawColorStrip(s Surface, b band, startIdx, endIdx int) {
	n := e.tracks.Len()
	step := e.view.PixelsPerSecond() * e.view.Duration / float64(n)
	barW := math.Max(1, math.Ceil(step))
	c := e.opts.Colors

	for i := startIdx; i < endIdx; i++ {
		amp := clamp(e.tracks.Mids[i], 0, 1)
		var col Color
		switch e.opts.ColorMode {
		case ColorMix:
			base := c.Base
			if tc, ok := e.tagColorAt(float64(i) * e.view.Duration / float64(n)); ok {
				base = tc
			}
			col = Color{
				Color: colorful.Color{
					R: base.R + c.Mod.R*amp,
					G: base.G + c.Mod.G*amp,
					B: base.B + c.Mod.B*amp,
				}.Clamped(),
				A: 1,
			}
		default:
			hue := math.Mod(c.Hue+amp*c.Shift*180, 360)
			col = Color{Color: colorful.Hsl(hue, clamp(c.Sat, 0, 1), 0.5), A: 1}
		}
		s.FillRect(math.Floor(e.sampleX(i, n)), b.y, barW, b.h, col)
	}
}

// tagColorAt is the colour of the tag of the first segment covering t.
func (e *Editor) tagColorAt(t float64) (Color, bool) {
	if e.tags == nil {
		return Color{}, false
	}
	i := SegmentAt(e.segments, t)
	if i < 0 {
		return Color{}, false
	}
	tag, ok := e.tags.Lookup(e.segments.At(i).Tag)
	if !ok {
		return Color{}, false
	}
	return tag.Color, true
}

func (e *Editor) drawSegments(s Surface) {
	if e.segments == nil {
		return
	}
	w, h := e.view.Width, e.height
	moving, _ := e.mode.(*Moving)

	for i := 0; i < e.segments.Len(); i++ {
		seg := e.segments.At(i)
		if seg == nil {
			continue
		}
		x0, x1 := e.view.TimeToX(seg.Start), e.view.TimeToX(seg.End)
		if x0 > x1 {
			x0, x1 = x1, x0
		}
		if x1 < 0 || x0 > w {
			continue
		}

		col := segmentColor
		tag, hasTag := Tag{}, false
		if e.tags != nil {
			tag, hasTag = e.tags.Lookup(seg.Tag)
			if hasTag {
				col = tag.Color
			}
		}

		if moving != nil && moving.Index == i && moving.Colliding {
			s.FillRect(x0-3, 0, x1-x0+6, h, errorColor.WithAlpha(0.15))
			s.FillRect(x0, 0, x1-x0, h, errorColor.WithAlpha(0.45))
		} else {
			s.FillRect(x0, 0, x1-x0, h, col.WithAlpha(0.25))
		}

		if hasTag {
			if attackEnd, releaseStart, ok := tag.FadeBounds(*seg); ok {
				a, r := tag.Fades()
				if a > 0 {
					ax := e.view.TimeToX(attackEnd)
					s.FillRect(x0, 0, ax-x0, h, white.WithAlpha(0.12))
					s.StrokePath([]Point{{ax, 0}, {ax, h}}, 1, white.WithAlpha(0.8), nil)
				}
				if r > 0 {
					rx := e.view.TimeToX(releaseStart)
					s.FillRect(rx, 0, x1-rx, h, black.WithAlpha(0.25))
					s.StrokePath([]Point{{rx, 0}, {rx, h}}, 1, white.WithAlpha(0.8), nil)
				}
			}
		}

		s.StrokePath([]Point{{x0, 0}, {x0, h}}, 1, col.WithAlpha(0.9), nil)
		s.StrokePath([]Point{{x1, 0}, {x1, h}}, 1, col.WithAlpha(0.9), nil)
		s.FillText(x0+4, 24, seg.Tag, white)
	}
}

func (e *Editor) drawSelection(s Surface) {
	if !e.sel.Active {
		return
	}
	start, end := e.sel.Span()
	x0, x1 := e.view.TimeToX(start), e.view.TimeToX(end)
	h := e.height
	s.FillRect(x0, 0, x1-x0, h, accent.WithAlpha(0.25))
	s.StrokePath([]Point{{x0, 0}, {x1, 0}, {x1, h}, {x0, h}, {x0, 0}}, 1, accent.WithAlpha(0.9), nil)
}

// ScrollThumb returns the scrollbar thumb position and width, and false
// when the content fits the viewport.
func (e *Editor) ScrollThumb() (x, w float64, ok bool) {
	if !e.view.Valid() || e.view.Zoom <= MinZoom {
		return 0, 0, false
	}
	total := e.view.Width * e.view.Zoom
	w = e.view.Width * (e.view.Width / total)
	x = e.view.Scroll / total * e.view.Width
	return x, w, true
}

func (e *Editor) drawScrollbar(s Surface) {
	x, tw, ok := e.ScrollThumb()
	if !ok {
		return
	}
	y := e.height - scrollbarHeight
	s.FillRect(0, y, e.view.Width, scrollbarHeight, white.WithAlpha(0.08))
	s.FillRect(x, y, tw, scrollbarHeight, white.WithAlpha(0.5))
}

func (e *Editor) drawLabels(s Surface) {
	for i, b := range e.layout() {
		s.FillText(5, b.y+12, bandLabels[i], labelColor)
	}
}
