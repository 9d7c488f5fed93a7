package timeline

// Edge names one end of a segment.
type Edge int

const (
	EdgeStart Edge = iota
	EdgeEnd
)

func (e Edge) String() string {
	if e == EdgeEnd {
		return "end"
	}
	return "start"
}

// Mode is the current interaction. Exactly one variant is active.
type Mode interface {
	mode()
	String() string
}

type (
	// Idle: no pointer interaction in progress.
	Idle struct{}

	// Seeking emits a seek for every pointer move.
	Seeking struct{}

	// RangeSelecting sweeps the provisional selection.
	RangeSelecting struct{}

	// Resizing drags one edge of a segment.
	Resizing struct {
		Index int
		Edge  Edge
	}

	// Moving drags a whole segment with fixed duration. Colliding is set
	// while the candidate placement overlaps a neighbour.
	Moving struct {
		Index     int
		Duration  float64
		OrigStart float64
		OrigEnd   float64
		Colliding bool
	}

	// Panning scrolls by raw pointer deltas.
	Panning struct {
		LastX float64
	}

	// FadeDragging drags an attack (EdgeStart) or release (EdgeEnd) handle.
	// OrigAttack and OrigRelease are the tag's fades when the drag began.
	FadeDragging struct {
		Index       int
		Edge        Edge
		OrigAttack  float64
		OrigRelease float64
	}
)

func (Idle) mode()           {}
func (Seeking) mode()        {}
func (RangeSelecting) mode() {}
func (Resizing) mode()       {}
func (*Moving) mode()        {}
func (*Panning) mode()       {}
func (FadeDragging) mode()   {}

func (Idle) String() string           { return "idle" }
func (Seeking) String() string        { return "seeking" }
func (RangeSelecting) String() string { return "selecting" }
func (Resizing) String() string       { return "resizing" }
func (*Moving) String() string        { return "moving" }
func (*Panning) String() string       { return "panning" }
func (FadeDragging) String() string   { return "fade" }

// Selection is the provisional, uncommitted range.
type Selection struct {
	Start, End float64
	Active     bool
}

// Span returns the ordered bounds.
func (s Selection) Span() (float64, float64) {
	if s.Start > s.End {
		return s.End, s.Start
	}
	return s.Start, s.End
}
