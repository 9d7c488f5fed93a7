// Package timeline implements the interactive multi-track timeline editor:
// the time/pixel coordinate engine, the render controller, hit-testing and
// the pointer-driven interaction state machine that edits tagged segments.
//
// The editor owns no I/O. Drawing goes through a Surface, pointer and key
// input arrive as plain values, and the segment list and tag registry are
// collaborators supplied by the caller.
package timeline

import (
	"fmt"
	"io"
	"log"
	"math"
	"strings"
)

// Button identifies the pointer button involved in an event.
type Button int

const (
	ButtonNone Button = iota
	ButtonPrimary
	ButtonMiddle
	ButtonSecondary
)

// PointerEvent is a pointer position in CSS pixels relative to the canvas,
// plus button and modifier state.
type PointerEvent struct {
	X, Y   float64
	Button Button
	Shift  bool
	Alt    bool
	Ctrl   bool
}

// CameraWeights blend lows/mids/highs into the camera band.
type CameraWeights struct {
	Pitch float64
	Roll  float64
	Yaw   float64
}

// ColorMode selects how the colour-reactivity strip is drawn.
type ColorMode int

const (
	ColorHue ColorMode = iota
	ColorMix
)

// ColorParams drive the colour strip. Hue, Sat and Shift are used by
// ColorHue; Base and Mod by ColorMix.
type ColorParams struct {
	Hue   float64 // degrees
	Sat   float64 // 0..1
	Shift float64 // 0..1
	Base  Color
	Mod   Color
}

// Options configures an Editor. Zero thresholds take the package defaults.
type Options struct {
	EdgeThreshold float64
	FadeThreshold float64
	SnapThreshold float64
	MinDuration   float64

	Weights   CameraWeights
	ColorMode ColorMode
	Colors    ColorParams

	// OnSeek receives every seek request.
	OnSeek func(t float64)
	// OnSelect is called when a range selection is released above the
	// minimum duration. The selection stays pending until CommitSelection
	// or CancelSelection.
	OnSelect func(start, end float64)
	// OnEdit is called when the user asks to edit segment index.
	OnEdit func(index int)
	// OnChange is called after any committed change to segments or tag fades.
	OnChange func()

	Logger *log.Logger
}

// DefaultOptions returns the stock thresholds, weights and colours.
func DefaultOptions() Options {
	return Options{
		EdgeThreshold: EdgeThreshold,
		FadeThreshold: FadeThreshold,
		SnapThreshold: 0.2,
		MinDuration:   MinSegmentDuration,
		Weights:       CameraWeights{Pitch: 0.2, Roll: 0.3, Yaw: 0.1},
		ColorMode:     ColorHue,
		Colors: ColorParams{
			Hue:   0,
			Sat:   1,
			Shift: 0.5,
			Base:  Hex("#1e3a8a"),
			Mod:   Hex("#f472b6"),
		},
	}
}

func (o *Options) fill() {
	d := DefaultOptions()
	if o.EdgeThreshold <= 0 {
		o.EdgeThreshold = d.EdgeThreshold
	}
	if o.FadeThreshold <= 0 {
		o.FadeThreshold = d.FadeThreshold
	}
	if o.SnapThreshold <= 0 {
		o.SnapThreshold = d.SnapThreshold
	}
	if o.MinDuration <= 0 {
		o.MinDuration = d.MinDuration
	}
	if o.Weights == (CameraWeights{}) {
		o.Weights = d.Weights
	}
	if o.Colors == (ColorParams{}) {
		o.Colors = d.Colors
	}
	if o.Logger == nil {
		o.Logger = log.New(io.Discard, "", 0)
	}
}

// CursorKind is the pointer-shape feedback for a hover position.
type CursorKind int

const (
	CursorCrosshair CursorKind = iota
	CursorEdgeResize
	CursorColResize
	CursorPointer
)

func (c CursorKind) String() string {
	switch c {
	case CursorEdgeResize:
		return "ew-resize"
	case CursorColResize:
		return "col-resize"
	case CursorPointer:
		return "pointer"
	}
	return "crosshair"
}

// HoverInfo describes what is under an idle pointer.
type HoverInfo struct {
	X, Y      float64
	Cursor    CursorKind
	Hit       Hit
	Sample    Sample
	HasSample bool
	Inside    bool
}

// Tooltip formats the hovered sample values.
func (h HoverInfo) Tooltip() string {
	if !h.Inside || !h.HasSample {
		return ""
	}
	s := h.Sample
	return fmt.Sprintf("T: %.1fs\nL: %.2f\nM: %.2f\nH: %.2f\nC: %.2f",
		s.Time, s.Low, s.Mid, s.High, s.Camera)
}

// Editor is the timeline editing surface. It is not safe for concurrent
// use; all calls are expected from one event loop.
type Editor struct {
	opts Options

	view   Viewport
	height float64
	dpr    float64
	backW  int
	backH  int

	tracks    Tracks
	loaded    bool
	analyzing bool
	progress  float64

	segments SegmentStore
	tags     TagRegistry

	mode  Mode
	sel   Selection
	hover HoverInfo
}

// New returns an editor over segments and tags. Either may be nil.
func New(segments SegmentStore, tags TagRegistry, opts Options) *Editor {
	opts.fill()
	return &Editor{
		opts:     opts,
		view:     NewViewport(),
		dpr:      1,
		segments: segments,
		tags:     tags,
		mode:     Idle{},
	}
}

func (e *Editor) logf(format string, args ...any) {
	e.opts.Logger.Printf(format, args...)
}

// Viewport returns a copy of the current viewport state.
func (e *Editor) Viewport() Viewport { return e.view }

// Mode returns the active interaction.
func (e *Editor) Mode() Mode { return e.mode }

// Selection returns the provisional selection.
func (e *Editor) Selection() Selection { return e.sel }

// Hovered returns the last idle hover result.
func (e *Editor) Hovered() HoverInfo { return e.hover }

// Tracks returns the loaded data.
func (e *Editor) Tracks() Tracks { return e.tracks }

// Loaded reports whether an analysis has completed.
func (e *Editor) Loaded() bool { return e.loaded }

// SetSegments swaps the segment collection and resets any interaction.
func (e *Editor) SetSegments(s SegmentStore) {
	e.segments = s
	e.mode = Idle{}
}

// SetTags swaps the tag registry.
func (e *Editor) SetTags(t TagRegistry) { e.tags = t }

// SetWeights updates the camera band blend weights.
func (e *Editor) SetWeights(w CameraWeights) { e.opts.Weights = w }

// SetColors updates the colour strip parameters and mode.
func (e *Editor) SetColors(mode ColorMode, c ColorParams) {
	e.opts.ColorMode = mode
	e.opts.Colors = c
}

// BeginAnalysis clears the data tracks and shows the loading state.
func (e *Editor) BeginAnalysis(duration float64) {
	e.tracks = Tracks{}
	e.loaded = false
	e.analyzing = true
	e.progress = 0
	e.view.Duration = math.Max(0, duration)
	e.view.Zoom = MinZoom
	e.view.Scroll = 0
	e.mode = Idle{}
	e.sel = Selection{}
}

// SetProgress records analysis progress in [0,1].
func (e *Editor) SetProgress(p float64) {
	e.progress = clamp(p, 0, 1)
}

// Load installs a completed analysis result, replacing any previous data.
func (e *Editor) Load(a Analysis) error {
	if err := a.Tracks.Validate(); err != nil {
		e.analyzing = false
		return err
	}
	e.tracks = a.Tracks
	e.view.Duration = math.Max(0, a.Duration)
	e.view.Zoom = MinZoom
	e.view.Scroll = 0
	e.loaded = true
	e.analyzing = false
	e.progress = 1
	e.mode = Idle{}
	e.sel = Selection{}
	e.logf("timeline: loaded %d samples over %.2fs", a.Tracks.Len(), a.Duration)
	return nil
}

func (e *Editor) ready() bool {
	return e.view.Valid() && !e.analyzing
}

func (e *Editor) seek(t float64) {
	if e.opts.OnSeek != nil {
		e.opts.OnSeek(t)
	}
}

func (e *Editor) changed() {
	if e.opts.OnChange != nil {
		e.opts.OnChange()
	}
}

// PointerDown starts an interaction.
func (e *Editor) PointerDown(ev PointerEvent) {
	if m, ok := e.mode.(*Moving); ok {
		switch ev.Button {
		case ButtonPrimary:
			if !m.Colliding {
				e.finishMove(m)
			}
		case ButtonSecondary:
			e.cancelMove(m)
		}
		return
	}
	if !e.ready() {
		return
	}

	hit := e.HitTest(ev.X, ev.Y)
	t := e.view.XToTime(ev.X)

	switch {
	case ev.Button == ButtonMiddle || ev.Alt || ev.Ctrl:
		e.mode = &Panning{LastX: ev.X}

	case hit.Kind == HitResize && ev.Button == ButtonPrimary:
		e.mode = Resizing{Index: hit.Index, Edge: hit.Edge}

	case hit.Kind == HitFade && ev.Button == ButtonPrimary:
		fd := FadeDragging{Index: hit.Index, Edge: hit.Edge}
		fd.OrigAttack, fd.OrigRelease, _ = e.fades(hit.Index)
		e.mode = fd

	case ev.Button == ButtonSecondary || ev.Shift:
		if hit.Kind != HitNone {
			if e.opts.OnEdit != nil {
				e.opts.OnEdit(hit.Index)
			}
			return
		}
		e.sel = Selection{Start: t, End: t, Active: true}
		e.mode = RangeSelecting{}

	default:
		e.mode = Seeking{}
		e.seek(t)
	}
}

// PointerMove advances the active interaction, or updates hover feedback
// when idle.
func (e *Editor) PointerMove(ev PointerEvent) {
	if !e.view.Valid() {
		return
	}
	t := e.view.XToTime(ev.X)

	switch m := e.mode.(type) {
	case Idle:
		e.Hover(ev.X, ev.Y)

	case Seeking:
		e.seek(t)

	case RangeSelecting:
		e.sel.End = t

	case Resizing:
		seg := e.segment(m.Index)
		if seg == nil {
			e.mode = Idle{}
			return
		}
		if m.Edge == EdgeStart {
			seg.Start = t
		} else {
			seg.End = t
		}

	case *Moving:
		e.moveTo(m, t)

	case *Panning:
		e.view.Scroll -= ev.X - m.LastX
		m.LastX = ev.X

	case FadeDragging:
		e.dragFade(m, t)
	}
}

// PointerUp finalises the active interaction. A pending move is not
// affected; it ends only on click, Escape or CancelMove.
func (e *Editor) PointerUp(ev PointerEvent) {
	switch m := e.mode.(type) {
	case *Moving:
		return

	case RangeSelecting:
		e.sel.End = e.view.XToTime(ev.X)
		start, end := e.sel.Span()
		if end-start > e.opts.MinDuration {
			e.sel = Selection{Start: start, End: end, Active: true}
			if e.opts.OnSelect != nil {
				e.opts.OnSelect(start, end)
			}
		} else {
			e.sel = Selection{}
		}

	case Resizing:
		if seg := e.segment(m.Index); seg != nil {
			e.repair(seg)
			e.logf("timeline: resized %s to [%.2f, %.2f]", seg.Tag, seg.Start, seg.End)
			e.changed()
		}

	case FadeDragging:
		if a, r, ok := e.fades(m.Index); ok && (a != m.OrigAttack || r != m.OrigRelease) {
			e.changed()
		}

	case *Panning:
		e.view.Clamp()
	}
	e.mode = Idle{}
}

// fades returns the attack and release of segment i's tag.
func (e *Editor) fades(i int) (attack, release float64, ok bool) {
	seg := e.segment(i)
	if seg == nil || e.tags == nil {
		return 0, 0, false
	}
	tag, ok := e.tags.Lookup(seg.Tag)
	if !ok {
		return 0, 0, false
	}
	attack, release = tag.Fades()
	return attack, release, true
}

// repair restores start < end after a resize.
func (e *Editor) repair(seg *Segment) {
	seg.Normalize()
	if seg.End-seg.Start > 0 {
		return
	}
	seg.End = seg.Start + e.opts.MinDuration
	if seg.End > e.view.Duration {
		seg.End = e.view.Duration
		seg.Start = math.Max(0, seg.End-e.opts.MinDuration)
	}
}

// Key handles a named key ("esc"). It reports whether the key was used.
func (e *Editor) Key(name string) bool {
	if name != "esc" && name != "escape" {
		return false
	}
	if m, ok := e.mode.(*Moving); ok {
		e.cancelMove(m)
		return true
	}
	if e.sel.Active {
		e.CancelSelection()
		return true
	}
	return false
}

// Wheel zooms one step around pixel x; dir > 0 zooms in.
func (e *Editor) Wheel(x float64, dir int) bool {
	if !e.ready() {
		return false
	}
	return e.view.ZoomAt(dir, x, true)
}

// Zoom steps the zoom around the viewport centre.
func (e *Editor) Zoom(dir int) bool {
	if !e.ready() {
		return false
	}
	return e.view.ZoomAt(dir, 0, false)
}

// ScrollBy pans by dx pixels.
func (e *Editor) ScrollBy(dx float64) {
	e.view.ScrollBy(dx)
}

// ZoomLabel is the toolbar zoom readout.
func (e *Editor) ZoomLabel() string {
	return fmt.Sprintf("ZOOM: %.1fx", e.view.Zoom)
}

// Hover updates and returns hover feedback for an idle pointer.
func (e *Editor) Hover(x, y float64) HoverInfo {
	h := HoverInfo{X: x, Y: y, Hit: noHit}
	if !e.view.Valid() || x < 0 || x > e.view.Width || y < 0 || (e.height > 0 && y > e.height) {
		e.hover = h
		return h
	}
	h.Inside = true
	h.Hit = e.HitTest(x, y)
	switch h.Hit.Kind {
	case HitResize:
		h.Cursor = CursorEdgeResize
	case HitFade:
		h.Cursor = CursorColResize
	case HitBody:
		h.Cursor = CursorPointer
	default:
		h.Cursor = CursorCrosshair
	}
	if e.loaded {
		h.Sample, h.HasSample = e.tracks.SampleAt(e.view.XToTime(x), e.view.Duration)
	}
	e.hover = h
	return h
}

// ClearHover hides hover feedback, e.g. when the pointer leaves the canvas.
func (e *Editor) ClearHover() {
	e.hover = HoverInfo{Hit: noHit}
}

// CommitSelection turns the pending selection into a segment tagged tag.
// It returns the new index, or -1 if nothing was committed.
func (e *Editor) CommitSelection(tag string) int {
	if !e.sel.Active || e.segments == nil {
		return -1
	}
	start, end := e.sel.Span()
	e.sel = Selection{}
	tag = strings.TrimSpace(tag)
	if end-start <= e.opts.MinDuration || tag == "" {
		return -1
	}
	i := e.segments.Append(NewSegment(start, end, tag))
	e.logf("timeline: created %s [%.2f, %.2f]", tag, start, end)
	e.changed()
	return i
}

// CancelSelection discards the pending selection.
func (e *Editor) CancelSelection() {
	e.sel = Selection{}
	if _, ok := e.mode.(RangeSelecting); ok {
		e.mode = Idle{}
	}
}

// Rename changes the tag of segment i.
func (e *Editor) Rename(i int, tag string) bool {
	seg := e.segment(i)
	tag = strings.TrimSpace(tag)
	if seg == nil || tag == "" {
		return false
	}
	seg.Tag = tag
	e.changed()
	return true
}

// Delete removes segment i. Any interaction in progress is abandoned.
func (e *Editor) Delete(i int) bool {
	if e.segment(i) == nil {
		return false
	}
	if m, ok := e.mode.(*Moving); ok {
		e.cancelMove(m)
	}
	e.mode = Idle{}
	e.segments.Remove(i)
	e.logf("timeline: deleted segment %d", i)
	e.changed()
	return true
}

func (e *Editor) segment(i int) *Segment {
	if e.segments == nil || i < 0 || i >= e.segments.Len() {
		return nil
	}
	return e.segments.At(i)
}
