package timeline

import "math"

// Envelope is an ADSR timing model. Attack, Decay and Release are seconds;
// Sustain is a 0..1 level.
type Envelope struct {
	Attack  float64 `yaml:"attack" json:"attack"`
	Decay   float64 `yaml:"decay" json:"decay"`
	Sustain float64 `yaml:"sustain" json:"sustain"`
	Release float64 `yaml:"release" json:"release"`
}

// Tag is a named segment style.
type Tag struct {
	Name       string
	Color      Color
	Attack     float64
	Release    float64
	Envelope   *Envelope
	Transition string
	Values     map[string]float64
}

// Fades returns the attack and release durations, from the envelope when
// the tag has one.
func (t Tag) Fades() (attack, release float64) {
	if t.Envelope != nil {
		return t.Envelope.Attack, t.Envelope.Release
	}
	return t.Attack, t.Release
}

// FadeBounds returns the times at which the attack ends and the release
// begins for seg, each clamped inside the segment.
func (t Tag) FadeBounds(seg Segment) (attackEnd, releaseStart float64, ok bool) {
	attack, release := t.Fades()
	if attack <= 0 && release <= 0 {
		return 0, 0, false
	}
	d := seg.Duration()
	attackEnd = seg.Start + math.Min(math.Max(attack, 0), d)
	releaseStart = seg.End - math.Min(math.Max(release, 0), d)
	return attackEnd, releaseStart, true
}

// TagRegistry resolves tag names to styles. SetFades is the only write,
// used while dragging a fade handle.
type TagRegistry interface {
	Lookup(name string) (Tag, bool)
	SetFades(name string, attack, release float64) error
	Names() []string
}
