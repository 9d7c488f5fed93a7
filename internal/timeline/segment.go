package timeline

import "github.com/google/uuid"

// MinSegmentDuration is the shortest range that can be committed.
const MinSegmentDuration = 0.1

// Segment is a tagged time range in seconds.
type Segment struct {
	ID    string  `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Tag   string  `json:"tag"`
}

// NewSegment returns a segment with a fresh ID and ordered bounds.
func NewSegment(start, end float64, tag string) Segment {
	s := Segment{ID: uuid.NewString(), Start: start, End: end, Tag: tag}
	s.Normalize()
	return s
}

// Duration is End-Start.
func (s Segment) Duration() float64 { return s.End - s.Start }

// Contains reports whether t lies inside the closed range.
func (s Segment) Contains(t float64) bool { return t >= s.Start && t <= s.End }

// Overlaps reports whether the open interiors of two ranges intersect.
// Segments that only touch at an edge do not overlap.
func (s Segment) Overlaps(start, end float64) bool {
	return start < s.End && end > s.Start
}

// Normalize swaps inverted bounds.
func (s *Segment) Normalize() {
	if s.Start > s.End {
		s.Start, s.End = s.End, s.Start
	}
}

// SegmentStore is the externally owned, ordered segment collection. The
// editor mutates segments in place through At.
type SegmentStore interface {
	Len() int
	At(i int) *Segment
	Append(s Segment) int
	Remove(i int)
}

// SliceStore is an in-memory SegmentStore.
type SliceStore struct {
	Segments []Segment
}

func (s *SliceStore) Len() int { return len(s.Segments) }

func (s *SliceStore) At(i int) *Segment {
	if i < 0 || i >= len(s.Segments) {
		return nil
	}
	return &s.Segments[i]
}

func (s *SliceStore) Append(seg Segment) int {
	s.Segments = append(s.Segments, seg)
	return len(s.Segments) - 1
}

func (s *SliceStore) Remove(i int) {
	if i < 0 || i >= len(s.Segments) {
		return
	}
	s.Segments = append(s.Segments[:i], s.Segments[i+1:]...)
}

// SegmentAt returns the index of the first segment containing t, or -1.
func SegmentAt(store SegmentStore, t float64) int {
	if store == nil {
		return -1
	}
	for i := 0; i < store.Len(); i++ {
		if seg := store.At(i); seg != nil && seg.Contains(t) {
			return i
		}
	}
	return -1
}

// Segments copies the store contents.
func Segments(store SegmentStore) []Segment {
	if store == nil {
		return nil
	}
	out := make([]Segment, 0, store.Len())
	for i := 0; i < store.Len(); i++ {
		if seg := store.At(i); seg != nil {
			out = append(out, *seg)
		}
	}
	return out
}
