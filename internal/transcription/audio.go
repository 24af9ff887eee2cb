package transcription

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/codebuildervaibhav/video-summary/internal/command"
	"github.com/codebuildervaibhav/video-summary/internal/logger"
	"github.com/codebuildervaibhav/video-summary/internal/types"
)

var (
	// ErrOversized is returned when re-encoded audio still exceeds the ceiling.
	ErrOversized = errors.New("audio exceeds size ceiling after re-encode")
	// ErrNoChunks is returned when segmentation yields nothing.
	ErrNoChunks = errors.New("no chunks produced")
)

// AudioOptions configures the ffmpeg steps
type AudioOptions struct {
	FFmpegPath     string
	MaxBytes       int64
	SampleRate     int
	Bitrate        string
	SegmentSeconds int
	Timeout        time.Duration
}

func (o *AudioOptions) defaults() {
	if o.FFmpegPath == "" {
		o.FFmpegPath = "ffmpeg"
	}
	if o.MaxBytes <= 0 {
		o.MaxBytes = 24 * 1024 * 1024
	}
	if o.SampleRate <= 0 {
		o.SampleRate = 16000
	}
	if o.Bitrate == "" {
		o.Bitrate = "32k"
	}
	if o.SegmentSeconds <= 0 {
		o.SegmentSeconds = 60
	}
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Minute
	}
}

// Normalizer keeps audio under the transcription upload ceiling
type Normalizer struct {
	opts   AudioOptions
	runner command.Runner
	log    *logger.Logger
}

// NewNormalizer creates a Normalizer
func NewNormalizer(opts AudioOptions, runner command.Runner, log *logger.Logger) *Normalizer {
	opts.defaults()
	if runner == nil {
		runner = command.Exec{}
	}
	return &Normalizer{opts: opts, runner: runner, log: log.Component("normalizer")}
}

// MaxBytes returns the configured ceiling
func (n *Normalizer) MaxBytes() int64 { return n.opts.MaxBytes }

// Normalize passes small assets through and re-encodes large ones once to
// mono, low sample rate, low bitrate MP3.
func (n *Normalizer) Normalize(ctx context.Context, asset types.AudioAsset, dir string) (types.AudioAsset, error) {
	if asset.Size <= n.opts.MaxBytes {
		return asset, nil
	}

	ctx, cancel := context.WithTimeout(ctx, n.opts.Timeout)
	defer cancel()

	outPath := filepath.Join(dir, "normalized.mp3")
	args := buildReencodeArgs(asset.Path, outPath, n.opts.SampleRate, n.opts.Bitrate)

	res, err := n.runner.Run(ctx, n.opts.FFmpegPath, args...)
	if err != nil {
		return types.AudioAsset{}, fmt.Errorf("re-encode audio: %w", command.Wrap(n.opts.FFmpegPath, res, err))
	}

	info, err := os.Stat(outPath)
	if err != nil {
		return types.AudioAsset{}, fmt.Errorf("re-encoded audio missing: %w", err)
	}
	if info.Size() > n.opts.MaxBytes {
		return types.AudioAsset{}, fmt.Errorf("%w: %d bytes > %d", ErrOversized, info.Size(), n.opts.MaxBytes)
	}

	n.log.WithField("from_bytes", asset.Size).WithField("to_bytes", info.Size()).Info("audio re-encoded")
	return types.AudioAsset{Path: outPath, Size: info.Size(), Format: "mp3"}, nil
}

func buildReencodeArgs(in, out string, sampleRate int, bitrate string) []string {
	return []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-i", in,
		"-vn",
		"-ac", "1",
		"-ar", strconv.Itoa(sampleRate),
		"-b:a", bitrate,
		out,
	}
}

// Segmenter splits audio into fixed windows with stream copy
type Segmenter struct {
	opts   AudioOptions
	runner command.Runner
	log    *logger.Logger
}

// NewSegmenter creates a Segmenter
func NewSegmenter(opts AudioOptions, runner command.Runner, log *logger.Logger) *Segmenter {
	opts.defaults()
	if runner == nil {
		runner = command.Exec{}
	}
	return &Segmenter{opts: opts, runner: runner, log: log.Component("segmenter")}
}

// Window returns the configured segment length in seconds
func (s *Segmenter) Window() int { return s.opts.SegmentSeconds }

// Segment writes chunk_0000.<ext>, chunk_0001.<ext>, ... under dir/chunks and
// returns them in index order. totalSeconds, when known, is used to estimate
// the last chunk's length.
func (s *Segmenter) Segment(ctx context.Context, asset types.AudioAsset, dir string, totalSeconds *float64) ([]types.Chunk, error) {
	chunkDir := filepath.Join(dir, "chunks")
	if err := os.MkdirAll(chunkDir, 0o755); err != nil {
		return nil, fmt.Errorf("create chunk dir: %w", err)
	}

	ext := asset.Format
	if ext == "" {
		ext = strings.TrimPrefix(filepath.Ext(asset.Path), ".")
	}
	if ext == "" {
		ext = "mp3"
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	pattern := filepath.Join(chunkDir, "chunk_%04d."+ext)
	args := buildSegmentArgs(asset.Path, pattern, s.opts.SegmentSeconds)
	res, err := s.runner.Run(ctx, s.opts.FFmpegPath, args...)
	if err != nil {
		return nil, fmt.Errorf("segment audio: %w", command.Wrap(s.opts.FFmpegPath, res, err))
	}

	names, err := listChunkFiles(chunkDir)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, ErrNoChunks
	}

	window := float64(s.opts.SegmentSeconds)
	chunks := make([]types.Chunk, len(names))
	for i, name := range names {
		chunks[i] = types.Chunk{Index: i, Path: filepath.Join(chunkDir, name), Duration: window}
	}
	if totalSeconds != nil && *totalSeconds > 0 {
		last := *totalSeconds - window*float64(len(chunks)-1)
		if last > 0 && last < window {
			chunks[len(chunks)-1].Duration = last
		}
	}

	s.log.WithField("chunks", len(chunks)).Debug("audio segmented")
	return chunks, nil
}

func buildSegmentArgs(in, pattern string, seconds int) []string {
	return []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-i", in,
		"-vn",
		"-f", "segment",
		"-segment_time", strconv.Itoa(seconds),
		"-reset_timestamps", "1",
		"-c", "copy",
		pattern,
	}
}

// listChunkFiles returns chunk file names sorted lexically, which is
// temporal order given the zero-padded pattern.
func listChunkFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), "chunk_") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}
