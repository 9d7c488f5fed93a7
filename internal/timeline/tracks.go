package timeline

import (
	"errors"
	"fmt"
	"math"
)

// ErrTrackLength is returned when the four data tracks differ in length.
var ErrTrackLength = errors.New("data tracks must have equal length")

// DecimationPad is the number of samples drawn beyond each visible edge.
const DecimationPad = 100

// Tracks holds the four parallel analysis sequences. Every value is in [0,1].
type Tracks struct {
	Lows   []float64 `json:"lows"`
	Mids   []float64 `json:"mids"`
	Highs  []float64 `json:"highs"`
	Camera []float64 `json:"cameraMovement"`
}

// Analysis is one loaded analysis result.
type Analysis struct {
	Duration float64 `json:"duration"`
	Tracks   Tracks  `json:"tracks"`
}

// Len is the shared sample count.
func (t Tracks) Len() int { return len(t.Lows) }

// Validate checks the equal-length invariant.
func (t Tracks) Validate() error {
	n := len(t.Lows)
	if len(t.Mids) != n || len(t.Highs) != n || len(t.Camera) != n {
		return fmt.Errorf("%w: lows=%d mids=%d highs=%d camera=%d",
			ErrTrackLength, n, len(t.Mids), len(t.Highs), len(t.Camera))
	}
	return nil
}

// Append adds one sample to each track.
func (t *Tracks) Append(low, mid, high, cam float64) {
	t.Lows = append(t.Lows, low)
	t.Mids = append(t.Mids, mid)
	t.Highs = append(t.Highs, high)
	t.Camera = append(t.Camera, cam)
}

// Sample is the value of every track at one instant.
type Sample struct {
	Time   float64
	Index  int
	Low    float64
	Mid    float64
	High   float64
	Camera float64
}

// IndexAt maps time t to a sample index over duration. Returns -1 when
// there is nothing to index.
func (t Tracks) IndexAt(at, duration float64) int {
	n := t.Len()
	if n == 0 || duration <= 0 {
		return -1
	}
	i := int(math.Floor(at / duration * float64(n)))
	if i < 0 {
		i = 0
	}
	if i >= n {
		i = n - 1
	}
	return i
}

// SampleAt returns the sample under time at.
func (t Tracks) SampleAt(at, duration float64) (Sample, bool) {
	i := t.IndexAt(at, duration)
	if i < 0 {
		return Sample{}, false
	}
	return Sample{
		Time:   at,
		Index:  i,
		Low:    t.Lows[i],
		Mid:    t.Mids[i],
		High:   t.Highs[i],
		Camera: t.Camera[i],
	}, true
}

// Window returns the [start, end) sample range covering times t0..t1 over
// duration, widened by pad samples on each side.
func (t Tracks) Window(t0, t1, duration float64, pad int) (start, end int) {
	n := t.Len()
	if n == 0 || duration <= 0 {
		return 0, 0
	}
	perSec := float64(n) / duration
	start = int(math.Floor(t0*perSec)) - pad
	end = int(math.Ceil(t1*perSec)) + pad + 1
	if start < 0 {
		start = 0
	}
	if end > n {
		end = n
	}
	if start > end {
		start = end
	}
	return start, end
}
