// Package snapshot builds immutable session snapshots from the store.
//
// A DataSnapshot captures the segments of one track, the tag library they
// use and summary statistics of the analysis at a point in time. Snapshots
// are rebuilt after each save and swapped into the UI model; --json mode
// prints one and exits.
package snapshot

import (
	"sort"
	"time"

	"github.com/daviddao/cascadance/internal/store"
	"github.com/daviddao/cascadance/internal/timeline"
)

// TrackStats summarises the analysis data tracks.
type TrackStats struct {
	Samples    int
	Duration   float64
	MeanLow    float64
	PeakLow    float64
	MeanMid    float64
	MeanHigh   float64
	MeanCamera float64
}

// TagUsage counts how much of the track a tag covers.
type TagUsage struct {
	Name     string
	Segments int
	Seconds  float64
	Known    bool // present in the tag library
}

// DataSnapshot is an immutable, self-contained view of one editing session.
type DataSnapshot struct {
	Track    string
	Segments []timeline.Segment
	Tags     []timeline.Tag
	Usage    []TagUsage
	Stats    TrackStats

	// Other tracks with saved segments in the same project.
	OtherTracks []store.TrackInfo

	// Counts.
	TotalSegments int
	TaggedSeconds float64 // union of all segment ranges
	Coverage      float64 // TaggedSeconds / Duration

	// Timestamp of snapshot creation.
	BuiltAt time.Time
}

// Build reads the saved segments of track and returns a complete snapshot.
// tags may be nil.
func Build(s *store.Store, track string, tags timeline.TagRegistry, a timeline.Analysis) (*DataSnapshot, error) {
	segs, err := s.LoadSegments(track)
	if err != nil {
		return nil, err
	}
	all, err := s.ListTracks()
	if err != nil {
		return nil, err
	}
	var others []store.TrackInfo
	for _, ti := range all {
		if ti.Track != track {
			others = append(others, ti)
		}
	}
	return FromSegments(track, segs, tags, a, others), nil
}

// FromSegments builds a snapshot from in-memory state.
func FromSegments(track string, segs []timeline.Segment, tags timeline.TagRegistry, a timeline.Analysis, others []store.TrackInfo) *DataSnapshot {
	segs = append([]timeline.Segment(nil), segs...)

	var lib []timeline.Tag
	if tags != nil {
		for _, name := range tags.Names() {
			if t, ok := tags.Lookup(name); ok {
				lib = append(lib, t)
			}
		}
	}

	tagged := union(segs)
	coverage := 0.0
	if a.Duration > 0 {
		coverage = tagged / a.Duration
	}

	return &DataSnapshot{
		Track:         track,
		Segments:      segs,
		Tags:          lib,
		Usage:         usage(segs, tags),
		Stats:         stats(a),
		OtherTracks:   others,
		TotalSegments: len(segs),
		TaggedSeconds: tagged,
		Coverage:      coverage,
		BuiltAt:       time.Now(),
	}
}

// usage tallies segments per tag, library tags first in library order,
// then unknown tags by name.
func usage(segs []timeline.Segment, tags timeline.TagRegistry) []TagUsage {
	byName := make(map[string]*TagUsage)
	var out []*TagUsage
	if tags != nil {
		for _, name := range tags.Names() {
			u := &TagUsage{Name: name, Known: true}
			byName[name] = u
			out = append(out, u)
		}
	}
	var unknown []*TagUsage
	for _, seg := range segs {
		u, ok := byName[seg.Tag]
		if !ok {
			u = &TagUsage{Name: seg.Tag}
			byName[seg.Tag] = u
			unknown = append(unknown, u)
		}
		u.Segments++
		u.Seconds += seg.Duration()
	}
	sort.Slice(unknown, func(i, j int) bool { return unknown[i].Name < unknown[j].Name })

	res := make([]TagUsage, 0, len(out)+len(unknown))
	for _, u := range append(out, unknown...) {
		res = append(res, *u)
	}
	return res
}

// union is the total length covered by at least one segment.
func union(segs []timeline.Segment) float64 {
	spans := make([][2]float64, 0, len(segs))
	for _, s := range segs {
		s.Normalize()
		spans = append(spans, [2]float64{s.Start, s.End})
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i][0] < spans[j][0] })

	var total, curStart, curEnd float64
	open := false
	for _, sp := range spans {
		if !open || sp[0] > curEnd {
			if open {
				total += curEnd - curStart
			}
			curStart, curEnd, open = sp[0], sp[1], true
			continue
		}
		if sp[1] > curEnd {
			curEnd = sp[1]
		}
	}
	if open {
		total += curEnd - curStart
	}
	return total
}

func stats(a timeline.Analysis) TrackStats {
	tr := a.Tracks
	n := tr.Len()
	st := TrackStats{Samples: n, Duration: a.Duration}
	if n == 0 || tr.Validate() != nil {
		return st
	}
	for i := 0; i < n; i++ {
		st.MeanLow += tr.Lows[i]
		st.MeanMid += tr.Mids[i]
		st.MeanHigh += tr.Highs[i]
		st.MeanCamera += tr.Camera[i]
		if tr.Lows[i] > st.PeakLow {
			st.PeakLow = tr.Lows[i]
		}
	}
	f := float64(n)
	st.MeanLow /= f
	st.MeanMid /= f
	st.MeanHigh /= f
	st.MeanCamera /= f
	return st
}
