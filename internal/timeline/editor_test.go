package timeline

import (
	"errors"
	"sort"
	"testing"
)

// mapTags is a minimal TagRegistry for tests.
type mapTags map[string]Tag

func (m mapTags) Lookup(name string) (Tag, bool) {
	t, ok := m[name]
	return t, ok
}

func (m mapTags) SetFades(name string, attack, release float64) error {
	t, ok := m[name]
	if !ok {
		return errors.New("unknown tag")
	}
	if t.Envelope != nil {
		env := *t.Envelope
		env.Attack, env.Release = attack, release
		t.Envelope = &env
	} else {
		t.Attack, t.Release = attack, release
	}
	m[name] = t
	return nil
}

func (m mapTags) Names() []string {
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// recorder collects editor callbacks.
type recorder struct {
	seeks   []float64
	selects [][2]float64
	edits   []int
	changes int
}

func (r *recorder) options() Options {
	o := DefaultOptions()
	o.OnSeek = func(t float64) { r.seeks = append(r.seeks, t) }
	o.OnSelect = func(s, e float64) { r.selects = append(r.selects, [2]float64{s, e}) }
	o.OnEdit = func(i int) { r.edits = append(r.edits, i) }
	o.OnChange = func() { r.changes++ }
	return o
}

func flatTracks(n int, v float64) Tracks {
	var tr Tracks
	for i := 0; i < n; i++ {
		tr.Append(v, v*0.8, v*0.6, v*0.8+v*0.8*0.2)
	}
	return tr
}

// newTestEditor builds a 120 s, 1200 px wide editor: 10 px per second at
// zoom 1.
func newTestEditor(t *testing.T, segs []Segment, tags TagRegistry) (*Editor, *SliceStore, *recorder) {
	t.Helper()
	store := &SliceStore{Segments: segs}
	rec := &recorder{}
	e := New(store, tags, rec.options())
	e.Resize(1200, 400, 1)
	if err := e.Load(Analysis{Duration: 120, Tracks: flatTracks(480, 0.5)}); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return e, store, rec
}

func px(tm float64) float64 { return tm * 10 }

func down(x float64, b Button) PointerEvent { return PointerEvent{X: x, Y: 100, Button: b} }

func TestLoadRejectsUnequalTracks(t *testing.T) {
	e := New(nil, nil, Options{})
	err := e.Load(Analysis{Duration: 10, Tracks: Tracks{Lows: []float64{1}, Mids: []float64{1, 2}}})
	if !errors.Is(err, ErrTrackLength) {
		t.Fatalf("Load error = %v, want ErrTrackLength", err)
	}
	if e.Loaded() {
		t.Error("editor should not report loaded after a failed load")
	}
}

func TestHitTestPriority(t *testing.T) {
	segs := []Segment{
		{ID: "a", Start: 10, End: 20, Tag: "Drop"},
		{ID: "b", Start: 20.5, End: 30, Tag: "Calm"},
	}
	tags := mapTags{
		"Drop": {Name: "Drop", Attack: 2, Release: 3},
		"Calm": {Name: "Calm"},
	}
	e, _, _ := newTestEditor(t, segs, tags)

	tests := []struct {
		name string
		x    float64
		want Hit
	}{
		{"start edge", px(10) + 3, Hit{Kind: HitResize, Index: 0, Edge: EdgeStart}},
		{"end edge wins over body of next", px(20) + 6, Hit{Kind: HitResize, Index: 0, Edge: EdgeEnd}},
		{"attack handle", px(12) + 2, Hit{Kind: HitFade, Index: 0, Edge: EdgeStart}},
		{"release handle", px(17) - 4, Hit{Kind: HitFade, Index: 0, Edge: EdgeEnd}},
		{"body", px(15), Hit{Kind: HitBody, Index: 0}},
		{"body of second", px(25), Hit{Kind: HitBody, Index: 1}},
		{"empty", px(50), Hit{Kind: HitNone, Index: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := e.HitTest(tt.x, 100); got != tt.want {
				t.Errorf("HitTest(%v) = %+v, want %+v", tt.x, got, tt.want)
			}
		})
	}
}

func TestHitTestResizeBeatsBody(t *testing.T) {
	segs := []Segment{{Start: 10, End: 40, Tag: "x"}}
	e, _, _ := newTestEditor(t, segs, nil)
	// 5 px inside the body is also within the 8 px edge threshold.
	if got := e.HitTest(px(10)+5, 50); got.Kind != HitResize {
		t.Errorf("HitTest = %v, want resize", got.Kind)
	}
}

func TestHitTestWithoutRegistrySkipsFades(t *testing.T) {
	segs := []Segment{{Start: 10, End: 40, Tag: "Drop"}}
	e, _, _ := newTestEditor(t, segs, nil)
	if got := e.HitTest(px(12), 50); got.Kind != HitBody {
		t.Errorf("HitTest = %v, want body", got.Kind)
	}
}

func TestHitTestNilStore(t *testing.T) {
	e := New(nil, nil, Options{})
	e.Resize(100, 100, 1)
	if got := e.HitTest(10, 10); got.Kind != HitNone {
		t.Errorf("HitTest with nil store = %v", got.Kind)
	}
}

func TestSeekOnPrimaryDown(t *testing.T) {
	e, _, rec := newTestEditor(t, nil, nil)
	e.PointerDown(down(px(30), ButtonPrimary))
	if _, ok := e.Mode().(Seeking); !ok {
		t.Fatalf("mode = %v, want seeking", e.Mode())
	}
	e.PointerMove(down(px(31), ButtonPrimary))
	e.PointerMove(down(px(35), ButtonPrimary))
	e.PointerUp(down(px(35), ButtonPrimary))

	want := []float64{30, 31, 35}
	if len(rec.seeks) != len(want) {
		t.Fatalf("seeks = %v, want %v", rec.seeks, want)
	}
	for i := range want {
		if !near(rec.seeks[i], want[i], 1e-9) {
			t.Errorf("seek[%d] = %v, want %v", i, rec.seeks[i], want[i])
		}
	}
	if _, ok := e.Mode().(Idle); !ok {
		t.Errorf("mode after up = %v, want idle", e.Mode())
	}
}

func TestRangeSelectCommit(t *testing.T) {
	e, store, rec := newTestEditor(t, nil, nil)
	e.PointerDown(down(px(50), ButtonSecondary))
	if _, ok := e.Mode().(RangeSelecting); !ok {
		t.Fatalf("mode = %v, want selecting", e.Mode())
	}
	e.PointerMove(down(px(45), ButtonSecondary))
	e.PointerUp(down(px(40), ButtonSecondary))

	if len(rec.selects) != 1 {
		t.Fatalf("OnSelect calls = %d, want 1", len(rec.selects))
	}
	if got := rec.selects[0]; !near(got[0], 40, 1e-9) || !near(got[1], 50, 1e-9) {
		t.Errorf("selection = %v, want [40 50]", got)
	}
	if i := e.CommitSelection("Drop"); i != 0 {
		t.Fatalf("CommitSelection = %d, want 0", i)
	}
	if store.Len() != 1 || store.Segments[0].Tag != "Drop" || store.Segments[0].ID == "" {
		t.Errorf("store = %+v", store.Segments)
	}
	if e.Selection().Active {
		t.Error("selection should clear after commit")
	}
	if rec.changes != 1 {
		t.Errorf("changes = %d, want 1", rec.changes)
	}
}

func TestRangeSelectShiftPrimary(t *testing.T) {
	e, _, _ := newTestEditor(t, nil, nil)
	e.PointerDown(PointerEvent{X: px(5), Y: 10, Button: ButtonPrimary, Shift: true})
	if _, ok := e.Mode().(RangeSelecting); !ok {
		t.Errorf("mode = %v, want selecting", e.Mode())
	}
}

func TestRangeSelectTooShortDiscarded(t *testing.T) {
	e := New(&SliceStore{}, nil, Options{})
	e.Resize(12000, 400, 1) // 100 px per second
	if err := e.Load(Analysis{Duration: 120, Tracks: flatTracks(10, 0.1)}); err != nil {
		t.Fatal(err)
	}
	selected := false
	e.opts.OnSelect = func(float64, float64) { selected = true }

	e.PointerDown(down(500, ButtonSecondary)) // 5.00 s
	e.PointerUp(down(505, ButtonSecondary))   // 5.05 s
	if selected {
		t.Error("a 50 ms selection should be discarded")
	}
	if e.Selection().Active {
		t.Error("selection should be cleared")
	}
	if e.CommitSelection("Drop") != -1 {
		t.Error("CommitSelection should do nothing without a selection")
	}
}

func TestEscapeCancelsPendingSelection(t *testing.T) {
	e, store, _ := newTestEditor(t, nil, nil)
	e.PointerDown(down(px(10), ButtonSecondary))
	e.PointerUp(down(px(20), ButtonSecondary))
	if !e.Key("esc") {
		t.Fatal("esc not handled")
	}
	if e.CommitSelection("Drop") != -1 || store.Len() != 0 {
		t.Error("cancelled selection was committed")
	}
}

func TestSecondaryOnSegmentOpensEdit(t *testing.T) {
	e, _, rec := newTestEditor(t, []Segment{{Start: 10, End: 20, Tag: "x"}}, nil)
	e.PointerDown(down(px(15), ButtonSecondary))
	if len(rec.edits) != 1 || rec.edits[0] != 0 {
		t.Errorf("edits = %v, want [0]", rec.edits)
	}
	if _, ok := e.Mode().(Idle); !ok {
		t.Errorf("mode = %v, want idle", e.Mode())
	}
}

func TestResizeSwapsOnRelease(t *testing.T) {
	tests := []struct {
		name      string
		grabX     float64
		dropX     float64
		wantStart float64
		wantEnd   float64
	}{
		{"end dragged before start", px(20), px(5), 5, 10},
		{"start dragged past end", px(10), px(30), 20, 30},
		{"end dragged outward", px(20), px(25), 10, 25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, store, rec := newTestEditor(t, []Segment{{Start: 10, End: 20, Tag: "x"}}, nil)
			e.PointerDown(down(tt.grabX, ButtonPrimary))
			if _, ok := e.Mode().(Resizing); !ok {
				t.Fatalf("mode = %v, want resizing", e.Mode())
			}
			e.PointerMove(down(tt.dropX, ButtonPrimary))
			e.PointerUp(down(tt.dropX, ButtonPrimary))

			seg := store.Segments[0]
			if !near(seg.Start, tt.wantStart, 1e-9) || !near(seg.End, tt.wantEnd, 1e-9) {
				t.Errorf("segment = [%v, %v], want [%v, %v]", seg.Start, seg.End, tt.wantStart, tt.wantEnd)
			}
			if !(seg.Start < seg.End) {
				t.Error("start < end violated")
			}
			if rec.changes != 1 {
				t.Errorf("changes = %d, want 1", rec.changes)
			}
		})
	}
}

func TestResizeLiveDoesNotSwap(t *testing.T) {
	e, store, _ := newTestEditor(t, []Segment{{Start: 10, End: 20, Tag: "x"}}, nil)
	e.PointerDown(down(px(20), ButtonPrimary))
	e.PointerMove(down(px(5), ButtonPrimary))
	if seg := store.Segments[0]; seg.End != 5 || seg.Start != 10 {
		t.Errorf("live segment = [%v, %v], want [10, 5]", seg.Start, seg.End)
	}
}

func TestResizeToZeroLengthRepaired(t *testing.T) {
	e, store, _ := newTestEditor(t, []Segment{{Start: 10, End: 20, Tag: "x"}}, nil)
	e.PointerDown(down(px(20), ButtonPrimary))
	e.PointerMove(down(px(10), ButtonPrimary))
	e.PointerUp(down(px(10), ButtonPrimary))
	if seg := store.Segments[0]; !(seg.Start < seg.End) {
		t.Errorf("segment = [%v, %v], want start < end", seg.Start, seg.End)
	}
}

func TestPanning(t *testing.T) {
	e, _, _ := newTestEditor(t, nil, nil)
	e.Zoom(1)
	e.Zoom(1)
	before := e.Viewport().Scroll

	e.PointerDown(PointerEvent{X: 600, Y: 50, Button: ButtonMiddle})
	if _, ok := e.Mode().(*Panning); !ok {
		t.Fatalf("mode = %v, want panning", e.Mode())
	}
	e.PointerMove(PointerEvent{X: 650, Y: 50, Button: ButtonMiddle})
	if got := e.Viewport().Scroll; !near(got, before-50, 1e-9) {
		t.Errorf("scroll = %v, want %v", got, before-50)
	}
	// Drag far past the left edge; the clamp applies on release.
	e.PointerMove(PointerEvent{X: 5000, Y: 50, Button: ButtonMiddle})
	e.PointerUp(PointerEvent{X: 5000, Y: 50, Button: ButtonMiddle})
	if got := e.Viewport().Scroll; got != 0 {
		t.Errorf("scroll after release = %v, want 0", got)
	}
}

func TestAltStartsPanning(t *testing.T) {
	e, _, rec := newTestEditor(t, []Segment{{Start: 10, End: 20, Tag: "x"}}, nil)
	e.PointerDown(PointerEvent{X: px(10), Y: 50, Button: ButtonPrimary, Alt: true})
	if _, ok := e.Mode().(*Panning); !ok {
		t.Errorf("mode = %v, want panning", e.Mode())
	}
	if len(rec.seeks) != 0 {
		t.Error("panning should not seek")
	}
}

func TestFadeDragClampsToDuration(t *testing.T) {
	tags := mapTags{"Drop": {Name: "Drop", Attack: 2, Release: 3}}
	e, _, rec := newTestEditor(t, []Segment{{Start: 10, End: 20, Tag: "Drop"}}, tags)

	e.PointerDown(down(px(12), ButtonPrimary))
	if m, ok := e.Mode().(FadeDragging); !ok || m.Edge != EdgeStart {
		t.Fatalf("mode = %v, want fade drag on attack", e.Mode())
	}
	e.PointerMove(down(px(15), ButtonPrimary))
	if a, _ := tags["Drop"].Fades(); !near(a, 5, 1e-9) {
		t.Errorf("attack = %v, want 5", a)
	}
	// Dragging past the release handle clamps attack to duration-release.
	e.PointerMove(down(px(19.5), ButtonPrimary))
	e.PointerUp(down(px(19.5), ButtonPrimary))
	a, r := tags["Drop"].Fades()
	if !near(a, 7, 1e-9) || !near(r, 3, 1e-9) {
		t.Errorf("fades = (%v, %v), want (7, 3)", a, r)
	}
	if rec.changes != 1 {
		t.Errorf("changes = %d, want 1", rec.changes)
	}
}

func TestFadeClickWithoutDragIsNoChange(t *testing.T) {
	tags := mapTags{"Drop": {Name: "Drop", Attack: 2, Release: 3}}
	e, _, rec := newTestEditor(t, []Segment{{Start: 10, End: 20, Tag: "Drop"}}, tags)

	e.PointerDown(down(px(12), ButtonPrimary))
	if _, ok := e.Mode().(FadeDragging); !ok {
		t.Fatalf("mode = %v, want fade drag", e.Mode())
	}
	e.PointerUp(down(px(12), ButtonPrimary))
	if rec.changes != 0 {
		t.Errorf("changes = %d, want 0", rec.changes)
	}
	if a, r := tags["Drop"].Fades(); a != 2 || r != 3 {
		t.Errorf("fades = (%v, %v), want (2, 3)", a, r)
	}
}

func TestFadeDragEnvelope(t *testing.T) {
	tags := mapTags{"Swell": {Name: "Swell", Envelope: &Envelope{Attack: 1, Decay: 1, Sustain: 0.7, Release: 2}}}
	e, _, _ := newTestEditor(t, []Segment{{Start: 10, End: 20, Tag: "Swell"}}, tags)

	e.PointerDown(down(px(18), ButtonPrimary))
	if m, ok := e.Mode().(FadeDragging); !ok || m.Edge != EdgeEnd {
		t.Fatalf("mode = %v, want fade drag on release", e.Mode())
	}
	e.PointerMove(down(px(16), ButtonPrimary))
	e.PointerUp(down(px(16), ButtonPrimary))
	env := tags["Swell"].Envelope
	if !near(env.Release, 4, 1e-9) || env.Attack != 1 || env.Sustain != 0.7 {
		t.Errorf("envelope = %+v, want release 4", *env)
	}
}

func TestHoverCursorAndTooltip(t *testing.T) {
	tags := mapTags{"Drop": {Name: "Drop", Attack: 2}}
	e, _, _ := newTestEditor(t, []Segment{{Start: 10, End: 20, Tag: "Drop"}}, tags)

	tests := []struct {
		x    float64
		want CursorKind
	}{
		{px(10), CursorEdgeResize},
		{px(12), CursorColResize},
		{px(16), CursorPointer},
		{px(60), CursorCrosshair},
	}
	for _, tt := range tests {
		e.PointerMove(PointerEvent{X: tt.x, Y: 50})
		if got := e.Hovered().Cursor; got != tt.want {
			t.Errorf("cursor at %v = %v, want %v", tt.x, got, tt.want)
		}
	}
	tip := e.Hovered().Tooltip()
	if tip == "" || tip[:3] != "T: " {
		t.Errorf("tooltip = %q", tip)
	}
	e.PointerMove(PointerEvent{X: -5, Y: 50})
	if e.Hovered().Tooltip() != "" {
		t.Error("tooltip should hide outside the canvas")
	}
}

func TestRenameAndDelete(t *testing.T) {
	e, store, rec := newTestEditor(t, []Segment{{Start: 1, End: 2, Tag: "a"}, {Start: 3, End: 4, Tag: "b"}}, nil)
	if !e.Rename(1, " Calm ") || store.Segments[1].Tag != "Calm" {
		t.Errorf("rename failed: %+v", store.Segments)
	}
	if e.Rename(1, "   ") {
		t.Error("blank rename should be rejected")
	}
	if !e.Delete(0) || store.Len() != 1 || store.Segments[0].Tag != "Calm" {
		t.Errorf("delete failed: %+v", store.Segments)
	}
	if e.Delete(5) {
		t.Error("delete out of range should fail")
	}
	if rec.changes != 2 {
		t.Errorf("changes = %d, want 2", rec.changes)
	}
}

func TestInputIgnoredWhileAnalyzing(t *testing.T) {
	e, _, rec := newTestEditor(t, nil, nil)
	e.BeginAnalysis(120)
	e.PointerDown(down(px(10), ButtonPrimary))
	if len(rec.seeks) != 0 {
		t.Error("seek emitted during analysis")
	}
	if e.Wheel(100, 1) {
		t.Error("zoom during analysis")
	}
}
