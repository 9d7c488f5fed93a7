package raster

import (
	"math"
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"
	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/daviddao/cascadance/internal/timeline"
)

var (
	white = timeline.Hex("#ffffff")
	red   = timeline.Hex("#ff0000")
)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func grey(c colorful.Color) float64 { return c.R }

func TestNewAndResize(t *testing.T) {
	c := New(10, 5)
	if w, h := c.Size(); w != 10 || h != 10 {
		t.Errorf("Size() = %dx%d, want 10x10", w, h)
	}
	c.Resize(4, 7)
	if cols, rows := c.Cells(); cols != 4 || rows != 4 {
		t.Errorf("Cells() after odd resize = %dx%d, want 4x4", cols, rows)
	}
	c.Resize(-1, -1)
	if w, h := c.Size(); w != 0 || h != 0 {
		t.Errorf("negative resize = %dx%d", w, h)
	}
}

func TestFillRectOpaqueAndAlpha(t *testing.T) {
	c := New(4, 2)
	c.FillRect(0, 0, 2, 4, red)
	if got := c.At(1, 3); got != red.Color {
		t.Errorf("At(1,3) = %v, want red", got)
	}
	if got := c.At(2, 0); got != (colorful.Color{}) {
		t.Errorf("At(2,0) = %v, want untouched", got)
	}

	c.Clear()
	c.FillRect(0, 0, 4, 4, white.WithAlpha(0.5))
	if g := grey(c.At(3, 3)); !near(g, 0.5) {
		t.Errorf("half-alpha white over black = %v, want 0.5", g)
	}
	c.FillRect(0, 0, 4, 4, white.WithAlpha(0.5))
	if g := grey(c.At(3, 3)); !near(g, 0.75) {
		t.Errorf("second layer = %v, want 0.75", g)
	}
}

func TestFillRectCoverage(t *testing.T) {
	c := New(4, 2)
	c.FillRect(0, 0, 0.5, 1, white)
	if g := grey(c.At(0, 0)); !near(g, 0.5) {
		t.Errorf("half-covered pixel = %v, want 0.5", g)
	}
	c.FillRect(3, 3, -2, -2, red) // negative sizes are normalised
	if got := c.At(1, 1); got != red.Color {
		t.Errorf("At(1,1) = %v, want red", got)
	}
}

func TestScale(t *testing.T) {
	c := New(10, 5)
	c.SetScale(0.25, 0.25)
	c.FillRect(0, 0, 8, 8, white)
	if grey(c.At(1, 1)) != 1 || grey(c.At(2, 0)) != 0 {
		t.Error("8 CSS px at scale 0.25 should cover exactly 2 device px")
	}
	c.Resize(10, 10)
	c.FillRect(0, 0, 8, 8, white)
	if grey(c.At(7, 7)) != 1 {
		t.Error("Resize should reset the scale")
	}
}

func TestFillPath(t *testing.T) {
	c := New(8, 4)
	c.FillPath([]timeline.Point{{X: 0, Y: 0}, {X: 4, Y: 0}, {X: 4, Y: 4}, {X: 0, Y: 4}}, white)
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			want := 0.0
			if x < 4 && y < 4 {
				want = 1
			}
			if g := grey(c.At(x, y)); g != want {
				t.Errorf("pixel %d,%d = %v, want %v", x, y, g, want)
			}
		}
	}
}

func TestFillPathTriangle(t *testing.T) {
	c := New(8, 4)
	c.FillPath([]timeline.Point{{X: 0, Y: 8}, {X: 8, Y: 8}, {X: 0, Y: 0}}, white)
	if grey(c.At(0, 7)) != 1 {
		t.Error("bottom-left corner not filled")
	}
	if grey(c.At(7, 0)) != 0 {
		t.Error("top-right corner filled outside the triangle")
	}
}

func TestStrokeVerticalLine(t *testing.T) {
	c := New(6, 5)
	c.StrokePath([]timeline.Point{{X: 2.5, Y: 0}, {X: 2.5, Y: 10}}, 1, white.WithAlpha(0.5), nil)
	for y := 0; y < 10; y++ {
		if g := grey(c.At(2, y)); !near(g, 0.5) {
			t.Fatalf("pixel 2,%d = %v, want 0.5 (painted once)", y, g)
		}
		if grey(c.At(1, y)) != 0 || grey(c.At(3, y)) != 0 {
			t.Fatalf("row %d: stroke bled into neighbours", y)
		}
	}
}

func TestStrokeDashed(t *testing.T) {
	c := New(30, 1)
	c.StrokePath([]timeline.Point{{X: 0, Y: 0.5}, {X: 20, Y: 0.5}}, 1, white, []float64{5, 5})
	tests := []struct {
		x    int
		want float64
	}{
		{2, 1}, {7, 0}, {12, 1}, {17, 0},
	}
	for _, tt := range tests {
		if g := grey(c.At(tt.x, 0)); g != tt.want {
			t.Errorf("pixel %d = %v, want %v", tt.x, g, tt.want)
		}
	}
}

func TestStrokeMinimumWidth(t *testing.T) {
	c := New(10, 5)
	c.SetScale(0.25, 0.25)
	c.StrokePath([]timeline.Point{{X: 20, Y: 0}, {X: 20, Y: 40}}, 1, white, nil)
	if grey(c.At(5, 3)) != 1 {
		t.Error("sub-pixel stroke vanished")
	}
}

func TestFillTextAndLines(t *testing.T) {
	c := New(10, 3)
	c.FillText(4, 2, "hi\x1b[31m!", white)
	if c.TextAt(4, 1) != 'h' || c.TextAt(5, 1) != 'i' || c.TextAt(6, 1) != '!' {
		t.Fatalf("text cells = %q %q %q", c.TextAt(4, 1), c.TextAt(5, 1), c.TextAt(6, 1))
	}

	lines := c.Lines()
	if len(lines) != 3 {
		t.Fatalf("Lines() = %d rows, want 3", len(lines))
	}
	if got, want := ansi.Strip(lines[1]), "▀▀▀▀hi!▀▀▀"; got != want {
		t.Errorf("row 1 = %q, want %q", got, want)
	}
	if got := ansi.Strip(lines[0]); got != strings.Repeat("▀", 10) {
		t.Errorf("row 0 = %q", got)
	}

	c.FillText(8, 0, "clipped", white)
	if got := ansi.Strip(c.Lines()[0]); got != "▀▀▀▀▀▀▀▀cl" {
		t.Errorf("clipped row = %q", got)
	}

	c.Clear()
	if c.TextAt(4, 1) != 0 {
		t.Error("Clear kept text")
	}
}

func TestEmptyCanvasIgnoresDrawing(t *testing.T) {
	c := New(0, 0)
	c.FillRect(0, 0, 10, 10, white)
	c.FillPath([]timeline.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}}, white)
	c.StrokePath([]timeline.Point{{X: 0, Y: 0}, {X: 5, Y: 5}}, 1, white, nil)
	c.FillText(0, 0, "x", white)
	if c.String() != "" {
		t.Errorf("String() = %q, want empty", c.String())
	}
}

// The editor draws through the canvas end to end.
func TestRenderTimeline(t *testing.T) {
	store := &timeline.SliceStore{Segments: []timeline.Segment{{Start: 2, End: 4, Tag: "Drop"}}}
	e := timeline.New(store, nil, timeline.Options{})
	e.Resize(40*4, 12*8, 0.25)
	var tr timeline.Tracks
	for i := 0; i < 40; i++ {
		tr.Append(0.5, 0.4, 0.3, 0.48)
	}
	if err := e.Load(timeline.Analysis{Duration: 10, Tracks: tr}); err != nil {
		t.Fatal(err)
	}
	w, h := e.BackingSize()
	c := New(w, h/2)
	e.Render(c, 5)

	if cols, rows := c.Cells(); cols != 40 || rows != 12 {
		t.Fatalf("canvas %dx%d cells, want 40x12", cols, rows)
	}
	out := ansi.Strip(c.String())
	if !strings.Contains(out, "BASS") {
		t.Errorf("band label missing from output:\n%s", out)
	}
	if !strings.Contains(out, "Drop") {
		t.Errorf("segment tag missing from output:\n%s", out)
	}
	// Playhead at 5 s is the middle column.
	if grey(c.At(20, 0)) != 1 {
		t.Errorf("playhead pixel = %v, want white", c.At(20, 0))
	}
}
