// cascade is a terminal timeline editor for tagging sections of an audio
// file with visual cues.
//
// It analyses the audio into bass, mid, high and camera tracks, draws them
// as a zoomable timeline and lets you mark tagged ranges with the mouse.
// Segments are saved per audio file in the project database.
//
// Usage:
//
//	cascade song.mp3                    # Auto-discover .cascadance/ (or create it here)
//	cascade --home <dir> song.mp3       # Use a specific project directory
//	cascade --analysis song.json        # Load a precomputed analysis instead of decoding
//	cascade --json song.mp3             # Dump the session as JSON and exit
//	cascade --color-mode mix song.mp3   # Start with the additive colour strip
//	cascade --log debug.log song.mp3    # Write a debug log (or set CASCADE_LOG)
//	cascade --version                   # Print version and exit
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/daviddao/cascadance/internal/analysis"
	"github.com/daviddao/cascadance/internal/datasource"
	"github.com/daviddao/cascadance/internal/snapshot"
	"github.com/daviddao/cascadance/internal/store"
	"github.com/daviddao/cascadance/internal/tags"
	"github.com/daviddao/cascadance/internal/timeline"
)

// Version is set via ldflags at build time (e.g. -X main.Version=v0.1.0).
var Version = "dev"

// config is the parsed command line.
type config struct {
	home      string
	tagsPath  string
	analysis  string
	audio     string
	jsonMode  bool
	logPath   string
	refresh   time.Duration
	weights   timeline.CameraWeights
	colorMode timeline.ColorMode
}

// parseColorMode maps a --color-mode flag string to a colour strip mode.
func parseColorMode(s string) (timeline.ColorMode, error) {
	switch strings.ToLower(s) {
	case "hue", "h":
		return timeline.ColorHue, nil
	case "mix", "m":
		return timeline.ColorMix, nil
	default:
		return 0, fmt.Errorf("unknown color mode %q (valid: hue, mix)", s)
	}
}

// trackKey is the name segments are saved under: the absolute path of the
// audio file, or of the analysis file when no audio is given.
func trackKey(audio, analysisPath string) (string, error) {
	p := audio
	if p == "" {
		p = analysisPath
	}
	if p == "" {
		return "", errors.New("no audio file given")
	}
	return filepath.Abs(p)
}

// jsonOutput is the structure for --json mode.
type jsonOutput struct {
	Track       string        `json:"track"`
	Duration    float64       `json:"duration"`
	Segments    []jsonSegment `json:"segments"`
	Tags        []jsonTag     `json:"tags"`
	Usage       []jsonUsage   `json:"usage"`
	Stats       jsonStats     `json:"stats"`
	OtherTracks []jsonTrack   `json:"other_tracks"`
}

type jsonSegment struct {
	ID    string  `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Tag   string  `json:"tag"`
}

type jsonTag struct {
	Name       string             `json:"name"`
	Color      string             `json:"color"`
	Attack     float64            `json:"attack"`
	Release    float64            `json:"release"`
	Envelope   *timeline.Envelope `json:"envelope,omitempty"`
	Transition string             `json:"transition"`
	Values     map[string]float64 `json:"values,omitempty"`
}

type jsonUsage struct {
	Tag      string  `json:"tag"`
	Segments int     `json:"segments"`
	Seconds  float64 `json:"seconds"`
	Known    bool    `json:"known"`
}

type jsonStats struct {
	Samples       int     `json:"samples"`
	MeanLow       float64 `json:"mean_low"`
	PeakLow       float64 `json:"peak_low"`
	MeanMid       float64 `json:"mean_mid"`
	MeanHigh      float64 `json:"mean_high"`
	MeanCamera    float64 `json:"mean_camera"`
	TotalSegments int     `json:"total_segments"`
	TaggedSeconds float64 `json:"tagged_seconds"`
	Coverage      float64 `json:"coverage"`
}

type jsonTrack struct {
	Track    string `json:"track"`
	Segments int    `json:"segments"`
}

func main() {
	var cfg config
	flag.StringVar(&cfg.home, "home", "", "project directory (default: auto-discover .cascadance)")
	flag.StringVar(&cfg.tagsPath, "tags", "", "tag library YAML (default: <home>/tags.yaml)")
	flag.StringVar(&cfg.analysis, "analysis", "", "load a precomputed analysis JSON instead of decoding the audio")
	flag.BoolVar(&cfg.jsonMode, "json", false, "dump the session as JSON and exit (no TUI)")
	flag.StringVar(&cfg.logPath, "log", os.Getenv("CASCADE_LOG"), "write a debug log to this file")
	flag.DurationVar(&cfg.refresh, "refresh", 5*time.Second, "tag file polling fallback interval (0 disables)")
	flag.Float64Var(&cfg.weights.Pitch, "pitch", 0.2, "camera weight of the bass band")
	flag.Float64Var(&cfg.weights.Roll, "roll", 0.3, "camera weight of the mid band")
	flag.Float64Var(&cfg.weights.Yaw, "yaw", 0.1, "camera weight of the high band")
	colorFlag := flag.String("color-mode", "hue", "colour strip mode (hue|mix)")
	versionFlag := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("cascade %s\n", Version)
		os.Exit(0)
	}

	mode, err := parseColorMode(*colorFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cascade: %v\n", err)
		os.Exit(2)
	}
	cfg.colorMode = mode
	cfg.audio = flag.Arg(0)
	if cfg.audio == "" && cfg.analysis == "" {
		fmt.Fprintln(os.Stderr, "usage: cascade [flags] <audio file>")
		flag.PrintDefaults()
		os.Exit(2)
	}

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "cascade: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg config) error {
	logger := log.New(io.Discard, "", 0)
	if cfg.logPath != "" {
		f, err := tea.LogToFile(cfg.logPath, "cascade")
		if err != nil {
			return fmt.Errorf("log: %w", err)
		}
		defer f.Close()
		logger = log.Default()
	}

	if cfg.home != "" {
		os.Setenv(datasource.HomeEnv, cfg.home)
	}

	s, proj, err := datasource.Open()
	if err != nil {
		return err
	}
	defer s.Close()
	logger.Printf("project %s", proj.Home)

	tagsPath := cfg.tagsPath
	if tagsPath == "" {
		tagsPath = proj.TagsPath()
	}
	reg, err := tags.Load(tagsPath)
	if err != nil {
		return err
	}
	// Write the built-in library out on first run so it can be edited.
	if _, err := os.Stat(tagsPath); errors.Is(err, os.ErrNotExist) {
		if err := reg.Save(tagsPath); err != nil {
			logger.Printf("tags: %v", err)
		}
	}

	track, err := trackKey(cfg.audio, cfg.analysis)
	if err != nil {
		return err
	}

	// --json mode: build snapshot, print JSON, exit.
	if cfg.jsonMode {
		a, err := storedAnalysis(s, cfg)
		if err != nil {
			return err
		}
		snap, err := snapshot.Build(s, track, reg, a)
		if err != nil {
			return fmt.Errorf("snapshot: %w", err)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(buildJSONOutput(snap)); err != nil {
			return fmt.Errorf("json: %w", err)
		}
		return nil
	}

	segs, err := s.LoadSegments(track)
	if err != nil {
		return err
	}

	opts := timeline.DefaultOptions()
	opts.Weights = cfg.weights
	opts.ColorMode = cfg.colorMode
	opts.Logger = logger

	m := newModel(s, track, tagsPath, reg, segs, opts)
	if fi, err := os.Stat(cfg.audio); err == nil {
		m.fileSize = fi.Size()
	}

	needDecode := cfg.analysis == ""
	if needDecode {
		m.editor.BeginAnalysis(0)
		m.analyzing = true
	} else {
		a, err := analysis.LoadJSON(cfg.analysis)
		if err != nil {
			return err
		}
		if err := m.editor.Load(a); err != nil {
			return err
		}
		m.analysis = a
	}
	if snap, err := snapshot.Build(s, track, reg, m.analysis); err == nil {
		m.snap = snap
	}

	w, err := datasource.NewWatcher(tagsPath, datasource.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer w.Close()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseAllMotion())

	// Feed tag file changes into the TUI.
	go func() {
		for range w.Changes() {
			p.Send(tagsChangedMsg{})
		}
	}()

	// Polling fallback: reload at --refresh interval even if fsnotify misses events.
	if cfg.refresh > 0 {
		go func() {
			ticker := time.NewTicker(cfg.refresh)
			defer ticker.Stop()
			for range ticker.C {
				p.Send(tagsChangedMsg{})
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if needDecode {
		go func() {
			a, err := decode(ctx, s, track, analysis.Options{
				Logger:   logger,
				Progress: func(f float64) { p.Send(progressMsg(f)) },
			})
			p.Send(analysisDoneMsg{analysis: a, err: err})
		}()
	}

	_, err = p.Run()
	return err
}

// decode returns the cached analysis of path when the file is unchanged,
// otherwise decodes it and caches the result.
func decode(ctx context.Context, s *store.Store, path string, opts analysis.Options) (timeline.Analysis, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return timeline.Analysis{}, err
	}
	a, ok, err := s.CachedAnalysis(path, fi.ModTime())
	if err != nil {
		opts.Logger.Printf("analysis cache: %v", err)
	}
	if ok {
		if opts.Progress != nil {
			opts.Progress(1)
		}
		return a, nil
	}

	a, err = analysis.AnalyzeFile(ctx, path, opts)
	if err != nil {
		return timeline.Analysis{}, err
	}
	if err := s.CacheAnalysis(path, fi.ModTime(), a); err != nil {
		opts.Logger.Printf("analysis cache: %v", err)
	}
	return a, nil
}

// storedAnalysis returns analysis data without decoding: the --analysis file
// if given, else the cached analysis of the audio file, else nothing.
func storedAnalysis(s *store.Store, cfg config) (timeline.Analysis, error) {
	if cfg.analysis != "" {
		return analysis.LoadJSON(cfg.analysis)
	}
	path, err := filepath.Abs(cfg.audio)
	if err != nil {
		return timeline.Analysis{}, err
	}
	fi, err := os.Stat(path)
	if err != nil {
		// Segments can still be dumped for a file that has moved.
		return timeline.Analysis{}, nil
	}
	a, _, err := s.CachedAnalysis(path, fi.ModTime())
	return a, err
}

// buildJSONOutput converts a snapshot into the JSON output structure.
func buildJSONOutput(snap *snapshot.DataSnapshot) jsonOutput {
	segs := make([]jsonSegment, len(snap.Segments))
	for i, s := range snap.Segments {
		segs[i] = jsonSegment{ID: s.ID, Start: s.Start, End: s.End, Tag: s.Tag}
	}

	lib := make([]jsonTag, len(snap.Tags))
	for i, t := range snap.Tags {
		lib[i] = jsonTag{
			Name:       t.Name,
			Color:      t.Color.Hex(),
			Attack:     t.Attack,
			Release:    t.Release,
			Envelope:   t.Envelope,
			Transition: t.Transition,
			Values:     t.Values,
		}
	}

	usage := make([]jsonUsage, len(snap.Usage))
	for i, u := range snap.Usage {
		usage[i] = jsonUsage{Tag: u.Name, Segments: u.Segments, Seconds: u.Seconds, Known: u.Known}
	}

	others := make([]jsonTrack, len(snap.OtherTracks))
	for i, o := range snap.OtherTracks {
		others[i] = jsonTrack{Track: o.Track, Segments: o.Segments}
	}

	st := snap.Stats
	return jsonOutput{
		Track:    snap.Track,
		Duration: st.Duration,
		Segments: segs,
		Tags:     lib,
		Usage:    usage,
		Stats: jsonStats{
			Samples:       st.Samples,
			MeanLow:       st.MeanLow,
			PeakLow:       st.PeakLow,
			MeanMid:       st.MeanMid,
			MeanHigh:      st.MeanHigh,
			MeanCamera:    st.MeanCamera,
			TotalSegments: snap.TotalSegments,
			TaggedSeconds: snap.TaggedSeconds,
			Coverage:      snap.Coverage,
		},
		OtherTracks: others,
	}
}
