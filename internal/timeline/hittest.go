package timeline

import "math"

const (
	EdgeThreshold = 8.0 // px
	FadeThreshold = 5.0 // px
)

// HitKind classifies a pointer position.
type HitKind int

const (
	HitNone HitKind = iota
	HitResize
	HitFade
	HitBody
)

func (k HitKind) String() string {
	switch k {
	case HitResize:
		return "resize"
	case HitFade:
		return "fade"
	case HitBody:
		return "body"
	}
	return "none"
}

// Hit is the result of a hit test. Index and Edge are meaningful only when
// Kind is not HitNone.
type Hit struct {
	Kind  HitKind
	Index int
	Edge  Edge
}

var noHit = Hit{Kind: HitNone, Index: -1}

// HitTest classifies a point against segment edges, fade handles and
// bodies, in that order. Segments span the full canvas height, so y only
// rejects points outside the canvas.
func (e *Editor) HitTest(x, y float64) Hit {
	if e.segments == nil || !e.view.Valid() {
		return noHit
	}
	if e.height > 0 && (y < 0 || y > e.height) {
		return noHit
	}
	n := e.segments.Len()

	for i := 0; i < n; i++ {
		seg := e.segments.At(i)
		if seg == nil {
			continue
		}
		if math.Abs(x-e.view.TimeToX(seg.Start)) <= e.opts.EdgeThreshold {
			return Hit{Kind: HitResize, Index: i, Edge: EdgeStart}
		}
		if math.Abs(x-e.view.TimeToX(seg.End)) <= e.opts.EdgeThreshold {
			return Hit{Kind: HitResize, Index: i, Edge: EdgeEnd}
		}
	}

	if e.tags != nil {
		for i := 0; i < n; i++ {
			seg := e.segments.At(i)
			if seg == nil {
				continue
			}
			tag, ok := e.tags.Lookup(seg.Tag)
			if !ok {
				continue
			}
			attackEnd, releaseStart, ok := tag.FadeBounds(*seg)
			if !ok {
				continue
			}
			a, r := tag.Fades()
			if a > 0 && math.Abs(x-e.view.TimeToX(attackEnd)) <= e.opts.FadeThreshold {
				return Hit{Kind: HitFade, Index: i, Edge: EdgeStart}
			}
			if r > 0 && math.Abs(x-e.view.TimeToX(releaseStart)) <= e.opts.FadeThreshold {
				return Hit{Kind: HitFade, Index: i, Edge: EdgeEnd}
			}
		}
	}

	for i := 0; i < n; i++ {
		seg := e.segments.At(i)
		if seg == nil {
			continue
		}
		if x >= e.view.TimeToX(seg.Start) && x <= e.view.TimeToX(seg.End) {
			return Hit{Kind: HitBody, Index: i}
		}
	}
	return noHit
}
