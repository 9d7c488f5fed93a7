// Package tags holds the tag library: named segment styles with fade
// timings, transition hints and the parameter values a tag drives.
//
// A Registry is loaded from a YAML file (tags.yaml in the project home) and
// falls back to the built-in library when the file does not exist.
package tags

import (
	"errors"
	"fmt"
	"os"

	colorful "github.com/lucasb-eyer/go-colorful"
	"gopkg.in/yaml.v3"

	"github.com/daviddao/cascadance/internal/timeline"
)

// ErrUnknownTag is returned when a write names a tag the registry lacks.
var ErrUnknownTag = errors.New("unknown tag")

// Transition hints how a tag's values are blended in.
const (
	TransitionCut    = "cut"
	TransitionEaseIn = "ease-in"
	TransitionLinear = "linear"
)

// Registry is an ordered tag library. It implements timeline.TagRegistry.
// It is not safe for concurrent use; reloads build a new Registry.
type Registry struct {
	order []string
	tags  map[string]timeline.Tag
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{tags: make(map[string]timeline.Tag)}
}

// Default returns the built-in tag library.
func Default() *Registry {
	r := New()
	r.Add(timeline.Tag{
		Name:       "Build Up",
		Color:      timeline.Hex("#f59e0b"),
		Attack:     2,
		Transition: TransitionEaseIn,
		Values:     map[string]float64{"uSpeed": 2.0, "uColorShift": 0.8, "uZoom": 1.2},
	})
	r.Add(timeline.Tag{
		Name:       "Drop",
		Color:      timeline.Hex("#ef4444"),
		Release:    1,
		Transition: TransitionCut,
		Values:     map[string]float64{"uSpeed": 5.0, "uColorShift": 1.0, "uGlow": 2.0, "uPitch": 1.0},
	})
	r.Add(timeline.Tag{
		Name:       "Calm",
		Color:      timeline.Hex("#22d3ee"),
		Envelope:   &timeline.Envelope{Attack: 1.5, Decay: 0.5, Sustain: 0.7, Release: 2},
		Transition: TransitionLinear,
		Values:     map[string]float64{"uSpeed": 0.2, "uSaturation": 0.5, "uZoom": 2.0},
	})
	return r
}

// Add inserts or replaces a tag. New names are appended to the order.
func (r *Registry) Add(t timeline.Tag) {
	if _, ok := r.tags[t.Name]; !ok {
		r.order = append(r.order, t.Name)
	}
	r.tags[t.Name] = t
}

// Lookup returns the tag called name.
func (r *Registry) Lookup(name string) (timeline.Tag, bool) {
	t, ok := r.tags[name]
	return t, ok
}

// Names returns tag names in library order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len is the number of tags.
func (r *Registry) Len() int { return len(r.order) }

// Clone returns a copy that later SetFades calls on r do not affect.
func (r *Registry) Clone() *Registry {
	c := &Registry{
		order: append([]string(nil), r.order...),
		tags:  make(map[string]timeline.Tag, len(r.tags)),
	}
	for name, t := range r.tags {
		c.tags[name] = t
	}
	return c
}

// SetFades writes a tag's attack and release. Envelope tags have their
// envelope updated instead of the plain fade fields.
func (r *Registry) SetFades(name string, attack, release float64) error {
	t, ok := r.tags[name]
	if !ok {
		return fmt.Errorf("set fades on %q: %w", name, ErrUnknownTag)
	}
	if attack < 0 || release < 0 {
		return fmt.Errorf("set fades on %q: negative duration", name)
	}
	if t.Envelope != nil {
		env := *t.Envelope
		env.Attack, env.Release = attack, release
		t.Envelope = &env
	} else {
		t.Attack, t.Release = attack, release
	}
	r.tags[name] = t
	return nil
}

// --- YAML ---

type fileTag struct {
	Name       string             `yaml:"name"`
	Color      string             `yaml:"color"`
	Attack     float64            `yaml:"attack,omitempty"`
	Release    float64            `yaml:"release,omitempty"`
	Envelope   *timeline.Envelope `yaml:"envelope,omitempty"`
	Transition string             `yaml:"transition,omitempty"`
	Values     map[string]float64 `yaml:"values,omitempty"`
}

type file struct {
	Tags []fileTag `yaml:"tags"`
}

// Parse decodes a YAML tag library.
func Parse(data []byte) (*Registry, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse tags: %w", err)
	}
	r := New()
	for i, ft := range f.Tags {
		if ft.Name == "" {
			return nil, fmt.Errorf("tag %d: missing name", i)
		}
		c, err := colorful.Hex(ft.Color)
		if err != nil {
			return nil, fmt.Errorf("tag %q: color %q: %w", ft.Name, ft.Color, err)
		}
		switch ft.Transition {
		case "":
			ft.Transition = TransitionLinear
		case TransitionCut, TransitionEaseIn, TransitionLinear:
		default:
			return nil, fmt.Errorf("tag %q: unknown transition %q", ft.Name, ft.Transition)
		}
		r.Add(timeline.Tag{
			Name:       ft.Name,
			Color:      timeline.Color{Color: c, A: 1},
			Attack:     ft.Attack,
			Release:    ft.Release,
			Envelope:   ft.Envelope,
			Transition: ft.Transition,
			Values:     ft.Values,
		})
	}
	return r, nil
}

// Load reads a tag library from path. A missing file yields the defaults.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read tags %s: %w", path, err)
	}
	r, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

// Marshal encodes the registry as YAML.
func (r *Registry) Marshal() ([]byte, error) {
	var f file
	for _, name := range r.order {
		t := r.tags[name]
		f.Tags = append(f.Tags, fileTag{
			Name:       t.Name,
			Color:      t.Color.Hex(),
			Attack:     t.Attack,
			Release:    t.Release,
			Envelope:   t.Envelope,
			Transition: t.Transition,
			Values:     t.Values,
		})
	}
	return yaml.Marshal(&f)
}

// Save writes the registry to path.
func (r *Registry) Save(path string) error {
	data, err := r.Marshal()
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write tags %s: %w", path, err)
	}
	return nil
}
