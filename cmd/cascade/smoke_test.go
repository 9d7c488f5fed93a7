package main

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/daviddao/cascadance/internal/analysis"
	"github.com/daviddao/cascadance/internal/datasource"
	"github.com/daviddao/cascadance/internal/snapshot"
	"github.com/daviddao/cascadance/internal/tags"
	"github.com/daviddao/cascadance/internal/timeline"
)

func TestSmokeProjectSnapshot(t *testing.T) {
	t.Setenv(datasource.HomeEnv, t.TempDir())

	s, proj, err := datasource.Open()
	if err != nil {
		t.Fatalf("datasource.Open: %v", err)
	}
	defer s.Close()

	t.Logf("connected to %s", s.Path())

	reg, err := tags.Load(proj.TagsPath())
	if err != nil {
		t.Fatalf("tags.Load: %v", err)
	}
	segs := []timeline.Segment{timeline.NewSegment(10, 20, "Drop")}
	if err := s.SaveSegments("/music/song.mp3", segs); err != nil {
		t.Fatalf("SaveSegments: %v", err)
	}

	snap, err := snapshot.Build(s, "/music/song.mp3", reg, testAnalysis())
	if err != nil {
		t.Fatalf("snapshot build failed: %v", err)
	}
	t.Logf("snapshot: %d segments, %.0f%% tagged, built at %s",
		snap.TotalSegments, snap.Coverage*100, snap.BuiltAt)

	data, err := json.Marshal(buildJSONOutput(snap))
	if err != nil {
		t.Fatalf("json: %v", err)
	}
	var back jsonOutput
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("json decode: %v", err)
	}
	if len(back.Segments) != 1 || back.Segments[0].ID != segs[0].ID {
		t.Errorf("segments = %+v", back.Segments)
	}
}

func TestSmokeWatcher(t *testing.T) {
	t.Setenv(datasource.HomeEnv, t.TempDir())

	proj, err := datasource.Discover()
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}

	w, err := datasource.NewWatcher(proj.TagsPath())
	if err != nil {
		t.Fatalf("watcher creation failed: %v", err)
	}
	defer w.Close()

	t.Logf("watching %s", proj.TagsPath())
}

func TestDecodeUsesCache(t *testing.T) {
	t.Setenv(datasource.HomeEnv, t.TempDir())
	s, _, err := datasource.Open()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	// Not real audio: a cache hit must not reach ffmpeg.
	path := filepath.Join(t.TempDir(), "song.mp3")
	if err := os.WriteFile(path, []byte("not audio"), 0o644); err != nil {
		t.Fatal(err)
	}
	fi, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.CacheAnalysis(path, fi.ModTime(), testAnalysis()); err != nil {
		t.Fatalf("CacheAnalysis: %v", err)
	}

	var progress float64
	a, err := decode(context.Background(), s, path, analysis.Options{
		FFmpeg:   "/nonexistent/ffmpeg",
		FFprobe:  "/nonexistent/ffprobe",
		Logger:   log.New(io.Discard, "", 0),
		Progress: func(f float64) { progress = f },
	})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if a.Duration != 120 || a.Tracks.Len() != 480 {
		t.Errorf("decode = %vs/%d samples, want cached 120s/480", a.Duration, a.Tracks.Len())
	}
	if progress != 1 {
		t.Errorf("progress = %v, want 1", progress)
	}
}

func TestDecodeMissingFile(t *testing.T) {
	t.Setenv(datasource.HomeEnv, t.TempDir())
	s, _, err := datasource.Open()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	_, err = decode(context.Background(), s, filepath.Join(t.TempDir(), "missing.mp3"), analysis.Options{
		Logger: log.New(io.Discard, "", 0),
	})
	if err == nil {
		t.Error("decode of a missing file should fail")
	}
}

func TestStoredAnalysis(t *testing.T) {
	t.Setenv(datasource.HomeEnv, t.TempDir())
	s, _, err := datasource.Open()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	path := filepath.Join(t.TempDir(), "analysis.json")
	data, _ := json.Marshal(testAnalysis())
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	a, err := storedAnalysis(s, config{analysis: path})
	if err != nil || a.Tracks.Len() != 480 {
		t.Errorf("storedAnalysis(--analysis) = %d samples, %v", a.Tracks.Len(), err)
	}

	// A moved audio file still dumps, without stats.
	a, err = storedAnalysis(s, config{audio: filepath.Join(t.TempDir(), "gone.mp3")})
	if err != nil || a.Tracks.Len() != 0 {
		t.Errorf("storedAnalysis(missing) = %d samples, %v", a.Tracks.Len(), err)
	}
}
