package timeline

import "math"

// BeginMove starts a pending move of segment i. The segment follows the
// pointer until a primary click commits it or Escape/secondary click
// restores it.
func (e *Editor) BeginMove(i int) bool {
	seg := e.segment(i)
	if seg == nil || !e.ready() {
		return false
	}
	if m, ok := e.mode.(*Moving); ok {
		e.cancelMove(m)
	}
	e.mode = &Moving{
		Index:     i,
		Duration:  seg.Duration(),
		OrigStart: seg.Start,
		OrigEnd:   seg.End,
	}
	return true
}

// CancelMove restores a pending move, if any.
func (e *Editor) CancelMove() bool {
	m, ok := e.mode.(*Moving)
	if !ok {
		return false
	}
	e.cancelMove(m)
	return true
}

func (e *Editor) cancelMove(m *Moving) {
	if seg := e.segment(m.Index); seg != nil {
		seg.Start, seg.End = m.OrigStart, m.OrigEnd
	}
	e.logf("timeline: move cancelled")
	e.mode = Idle{}
}

func (e *Editor) finishMove(m *Moving) {
	e.mode = Idle{}
	seg := e.segment(m.Index)
	if seg == nil {
		return
	}
	if seg.Start == m.OrigStart && seg.End == m.OrigEnd {
		return
	}
	e.logf("timeline: moved %s to [%.2f, %.2f]", seg.Tag, seg.Start, seg.End)
	e.changed()
}

// moveTo places the moving segment centred on t, then resolves collisions
// against every other segment in list order:
//
//  1. snap the first edge found within SnapThreshold of a neighbour edge,
//     then push out of each overlapping neighbour towards the side needing
//     the smaller displacement;
//  2. re-scan and flag the move as colliding if any overlap remains or the
//     placement leaves [0, Duration].
func (e *Editor) moveTo(m *Moving, t float64) {
	seg := e.segment(m.Index)
	if seg == nil {
		e.mode = Idle{}
		return
	}
	d := m.Duration
	dur := e.view.Duration

	start := t - d/2
	end := start + d
	if start < 0 {
		start, end = 0, d
	}
	if end > dur {
		end = dur
		start = math.Max(0, dur-d)
	}

	n := e.segments.Len()
	th := e.opts.SnapThreshold

	// Pass 1a: magnetic snap.
snap:
	for j := 0; j < n; j++ {
		o := e.segments.At(j)
		if j == m.Index || o == nil {
			continue
		}
		var s float64
		switch {
		case math.Abs(start-o.End) < th:
			s = o.End
		case math.Abs(start-o.Start) < th:
			s = o.Start
		case math.Abs(end-o.Start) < th:
			s = o.Start - d
		case math.Abs(end-o.End) < th:
			s = o.End - d
		default:
			continue
		}
		// A snap may not carry the segment out of the track.
		if s < 0 || s+d > dur {
			continue
		}
		start, end = s, s+d
		break snap
	}

	// Pass 1b: push out of overlaps.
	for j := 0; j < n; j++ {
		o := e.segments.At(j)
		if j == m.Index || o == nil || !o.Overlaps(start, end) {
			continue
		}
		left := end - o.Start  // shift needed to sit left of o
		right := o.End - start // shift needed to sit right of o
		leftOK := o.Start-d >= 0
		rightOK := o.End+d <= dur
		switch {
		case leftOK && (left <= right || !rightOK):
			start = o.Start - d
		case rightOK:
			start = o.End
		default:
			continue
		}
		end = start + d
	}

	seg.Start, seg.End = start, end

	// Pass 2: verify.
	m.Colliding = start < 0 || end > dur
	for j := 0; j < n; j++ {
		o := e.segments.At(j)
		if j == m.Index || o == nil {
			continue
		}
		if o.Overlaps(start, end) {
			m.Colliding = true
			break
		}
	}
}

// dragFade sets the tag's attack (measured from the segment start) or
// release (measured back from the segment end) from the pointer time,
// keeping attack+release within the segment duration.
func (e *Editor) dragFade(m FadeDragging, t float64) {
	seg := e.segment(m.Index)
	if seg == nil || e.tags == nil {
		e.mode = Idle{}
		return
	}
	tag, ok := e.tags.Lookup(seg.Tag)
	if !ok {
		return
	}
	attack, release := tag.Fades()
	d := seg.Duration()
	if m.Edge == EdgeStart {
		attack = clamp(t-seg.Start, 0, math.Max(0, d-release))
	} else {
		release = clamp(seg.End-t, 0, math.Max(0, d-attack))
	}
	if err := e.tags.SetFades(seg.Tag, attack, release); err != nil {
		e.logf("timeline: set fades on %q: %v", seg.Tag, err)
	}
}
