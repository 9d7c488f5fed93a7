// Package analysis turns an audio file into the four timeline data tracks.
//
// Audio is decoded by an ffmpeg subprocess to mono 32-bit float PCM and
// cut into fixed chunks. Each chunk's RMS level drives the lows, mids,
// highs and camera-movement values.
package analysis

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/daviddao/cascadance/internal/timeline"
)

const (
	// DefaultSampleRate is the mono decode rate.
	DefaultSampleRate = 22050
	// ChunkSeconds is the time covered by one track sample.
	ChunkSeconds = 0.25
)

// ErrNoAudio is returned when the decoder produced no samples.
var ErrNoAudio = errors.New("no audio decoded")

// Options configures AnalyzeFile.
type Options struct {
	SampleRate int
	// FFmpeg and FFprobe override the binaries looked up on PATH.
	FFmpeg  string
	FFprobe string
	// Progress receives the analysed fraction in [0,1] after each chunk.
	Progress func(float64)
	Logger   *log.Logger
}

func (o *Options) fill() {
	if o.SampleRate <= 0 {
		o.SampleRate = DefaultSampleRate
	}
	if o.FFmpeg == "" {
		o.FFmpeg = "ffmpeg"
	}
	if o.FFprobe == "" {
		o.FFprobe = "ffprobe"
	}
	if o.Logger == nil {
		o.Logger = log.New(io.Discard, "", 0)
	}
}

// Levels maps a chunk RMS to the four track values.
func Levels(rms float64) (low, mid, high, cam float64) {
	vol := math.Min(1, rms*4)
	low = vol
	mid = vol * 0.8
	high = vol * 0.6
	cam = low*0.8 + mid*0.2
	return low, mid, high, cam
}

// Analyze reads little-endian float32 mono PCM at rate from r. duration,
// when positive, is the expected length used for progress reports.
func Analyze(ctx context.Context, r io.Reader, rate int, duration float64, progress func(float64)) (timeline.Analysis, error) {
	if rate <= 0 {
		return timeline.Analysis{}, fmt.Errorf("analyze: invalid sample rate %d", rate)
	}
	chunk := int(math.Round(float64(rate) * ChunkSeconds))
	br := bufio.NewReaderSize(r, chunk*4)
	buf := make([]byte, chunk*4)

	var (
		tracks timeline.Tracks
		total  int
	)
	for {
		if err := ctx.Err(); err != nil {
			return timeline.Analysis{}, err
		}
		n, err := io.ReadFull(br, buf)
		samples := n / 4
		if samples > 0 {
			var sum float64
			for i := 0; i < samples; i++ {
				v := float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:])))
				sum += v * v
			}
			tracks.Append(Levels(math.Sqrt(sum / float64(samples))))
			total += samples
			if progress != nil && duration > 0 {
				progress(math.Min(1, float64(total)/float64(rate)/duration))
			}
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			break
		}
		if err != nil {
			return timeline.Analysis{}, fmt.Errorf("read pcm: %w", err)
		}
	}
	if total == 0 {
		return timeline.Analysis{}, ErrNoAudio
	}
	if progress != nil {
		progress(1)
	}
	return timeline.Analysis{
		Duration: float64(total) / float64(rate),
		Tracks:   tracks,
	}, nil
}

// Probe asks ffprobe for the container duration in seconds.
func Probe(ctx context.Context, ffprobe, path string) (float64, error) {
	out, err := exec.CommandContext(ctx, ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	).Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	d, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: parse duration: %w", path, err)
	}
	return d, nil
}

// AnalyzeFile decodes path with ffmpeg and analyses it. Cancelling ctx
// stops the decoder.
func AnalyzeFile(ctx context.Context, path string, opts Options) (timeline.Analysis, error) {
	opts.fill()
	if _, err := os.Stat(path); err != nil {
		return timeline.Analysis{}, fmt.Errorf("analyze: %w", err)
	}

	duration, err := Probe(ctx, opts.FFprobe, path)
	if err != nil {
		opts.Logger.Printf("analysis: %v", err)
	}

	cmd := exec.CommandContext(ctx, opts.FFmpeg,
		"-i", path,
		"-f", "f32le",
		"-acodec", "pcm_f32le",
		"-ar", strconv.Itoa(opts.SampleRate),
		"-ac", "1",
		"-loglevel", "error",
		"pipe:1",
	)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return timeline.Analysis{}, fmt.Errorf("ffmpeg pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return timeline.Analysis{}, fmt.Errorf("ffmpeg start: %w", err)
	}

	a, aerr := Analyze(ctx, stdout, opts.SampleRate, duration, opts.Progress)
	if aerr != nil {
		// Unblock the decoder before waiting on it.
		io.Copy(io.Discard, stdout)
	}
	werr := cmd.Wait()
	if aerr != nil && !errors.Is(aerr, ErrNoAudio) {
		return timeline.Analysis{}, aerr
	}
	if werr != nil {
		return timeline.Analysis{}, fmt.Errorf("ffmpeg decode %s: %w: %s", path, werr, strings.TrimSpace(stderr.String()))
	}
	if aerr != nil {
		return timeline.Analysis{}, fmt.Errorf("%s: %w", path, aerr)
	}
	opts.Logger.Printf("analysis: %s: %d samples over %.2fs", path, a.Tracks.Len(), a.Duration)
	return a, nil
}

// LoadJSON reads a precomputed analysis.
func LoadJSON(path string) (timeline.Analysis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return timeline.Analysis{}, fmt.Errorf("read analysis: %w", err)
	}
	var a timeline.Analysis
	if err := json.Unmarshal(data, &a); err != nil {
		return timeline.Analysis{}, fmt.Errorf("parse analysis %s: %w", path, err)
	}
	if err := a.Tracks.Validate(); err != nil {
		return timeline.Analysis{}, fmt.Errorf("%s: %w", path, err)
	}
	if a.Duration <= 0 {
		return timeline.Analysis{}, fmt.Errorf("%s: duration must be positive", path)
	}
	return a, nil
}
