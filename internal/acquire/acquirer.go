package acquire

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/codebuildervaibhav/video-summary/internal/command"
	"github.com/codebuildervaibhav/video-summary/internal/logger"
	"github.com/codebuildervaibhav/video-summary/internal/types"
)

// ErrAcquisitionExhausted is returned when every extraction strategy failed.
var ErrAcquisitionExhausted = errors.New("acquisition exhausted")

// Options configures an Acquirer.
type Options struct {
	YtDlpPath       string
	AttemptTimeout  time.Duration
	MetadataTimeout time.Duration
	// MinAudioBytes is the noise floor; smaller outputs count as failures.
	MinAudioBytes int64
	CookiesFile   string
	Proxy         string
}

// MetadataSource is a fallback metadata lookup used when yt-dlp cannot
// describe a video.
type MetadataSource interface {
	Name() string
	Lookup(ctx context.Context, rawURL string, p types.Platform) (types.MediaMetadata, error)
}

// Acquirer resolves metadata and downloads audio with yt-dlp.
type Acquirer struct {
	opts      Options
	runner    command.Runner
	log       *logger.Logger
	fallbacks []MetadataSource
	chains    func(types.Platform) []Strategy
}

// New creates an Acquirer. Fallback sources are consulted in order.
func New(opts Options, runner command.Runner, log *logger.Logger, fallbacks ...MetadataSource) *Acquirer {
	if opts.YtDlpPath == "" {
		opts.YtDlpPath = "yt-dlp"
	}
	if opts.AttemptTimeout <= 0 {
		opts.AttemptTimeout = 3 * time.Minute
	}
	if opts.MetadataTimeout <= 0 {
		opts.MetadataTimeout = 45 * time.Second
	}
	if opts.MinAudioBytes <= 0 {
		opts.MinAudioBytes = 10 * 1024
	}
	if runner == nil {
		runner = command.Exec{}
	}
	return &Acquirer{
		opts:      opts,
		runner:    runner,
		log:       log.Component("acquire"),
		fallbacks: fallbacks,
		chains:    Strategies,
	}
}

// WithStrategies replaces the strategy table. Used by tests and for
// operator overrides.
func (a *Acquirer) WithStrategies(chains func(types.Platform) []Strategy) *Acquirer {
	a.chains = chains
	return a
}

// ytdlpInfo is the subset of yt-dlp's JSON dump we read
type ytdlpInfo struct {
	Title     string   `json:"title"`
	Duration  *float64 `json:"duration"`
	Thumbnail string   `json:"thumbnail"`
}

// ResolveMetadata describes a video. It never fails: when yt-dlp and every
// fallback come up empty a placeholder title is returned.
func (a *Acquirer) ResolveMetadata(ctx context.Context, rawURL string, p types.Platform) types.MediaMetadata {
	meta, err := a.metadataFromYtDlp(ctx, rawURL, p)
	if err == nil {
		return meta
	}
	a.log.WithError(err).WithField("platform", p).Warn("yt-dlp metadata failed, trying fallbacks")

	for _, src := range a.fallbacks {
		meta, err := src.Lookup(ctx, rawURL, p)
		if err != nil {
			a.log.WithError(err).WithField("source", src.Name()).Debug("metadata fallback failed")
			continue
		}
		if strings.TrimSpace(meta.Title) != "" {
			return meta
		}
	}

	return types.MediaMetadata{Title: PlaceholderTitle(p)}
}

func (a *Acquirer) metadataFromYtDlp(ctx context.Context, rawURL string, p types.Platform) (types.MediaMetadata, error) {
	ctx, cancel := context.WithTimeout(ctx, a.opts.MetadataTimeout)
	defer cancel()

	args := []string{"--dump-single-json", "--skip-download", "--no-playlist", "--no-warnings"}
	args = append(args, ProfileFor(p).Args()...)
	args = append(args, a.commonArgs()...)
	args = append(args, rawURL)

	res, err := a.runner.Run(ctx, a.opts.YtDlpPath, args...)
	if err != nil {
		return types.MediaMetadata{}, command.Wrap(a.opts.YtDlpPath, res, err)
	}

	var info ytdlpInfo
	if err := json.Unmarshal([]byte(res.Stdout), &info); err != nil {
		return types.MediaMetadata{}, fmt.Errorf("parse yt-dlp metadata: %w", err)
	}
	if strings.TrimSpace(info.Title) == "" {
		return types.MediaMetadata{}, errors.New("yt-dlp metadata has no title")
	}

	meta := types.MediaMetadata{Title: strings.TrimSpace(info.Title), Duration: info.Duration}
	if info.Thumbnail != "" {
		thumb := info.Thumbnail
		meta.Thumbnail = &thumb
	}
	return meta, nil
}

// AcquireAudio downloads the audio track of rawURL into dir, walking the
// platform's strategy chain in order.
func (a *Acquirer) AcquireAudio(ctx context.Context, rawURL string, p types.Platform, dir string) (types.AudioAsset, error) {
	chain := a.chains(p)
	var failures []error

	for i, s := range chain {
		log := a.log.WithFields(logrus.Fields{
			"platform": p,
			"strategy": s.Name,
			"attempt":  i + 1,
		})

		asset, err := a.attempt(ctx, s, rawURL, p, dir, fmt.Sprintf("audio_%02d", i))
		if err == nil {
			log.WithField("bytes", asset.Size).Info("audio acquired")
			return asset, nil
		}

		log.WithField("error", err.Error()).Warn("acquisition strategy failed")
		failures = append(failures, fmt.Errorf("%s: %w", s.Name, err))
	}

	return types.AudioAsset{}, fmt.Errorf("%w after %d strategies: %w", ErrAcquisitionExhausted, len(chain), errors.Join(failures...))
}

func (a *Acquirer) attempt(ctx context.Context, s Strategy, rawURL string, p types.Platform, dir, base string) (types.AudioAsset, error) {
	ctx, cancel := context.WithTimeout(ctx, a.opts.AttemptTimeout)
	defer cancel()

	outTemplate := filepath.Join(dir, base+".%(ext)s")
	args := downloadArgs(s, ProfileFor(p), a.commonArgs(), rawURL, outTemplate)

	res, err := a.runner.Run(ctx, a.opts.YtDlpPath, args...)
	if err != nil {
		return types.AudioAsset{}, command.Wrap(a.opts.YtDlpPath, res, err)
	}

	path, size, err := largestOutput(dir, base)
	if err != nil {
		return types.AudioAsset{}, err
	}
	if size <= a.opts.MinAudioBytes {
		return types.AudioAsset{}, fmt.Errorf("output %s is %d bytes, below noise floor of %d", filepath.Base(path), size, a.opts.MinAudioBytes)
	}

	return types.AudioAsset{
		Path:   path,
		Size:   size,
		Format: strings.TrimPrefix(filepath.Ext(path), "."),
	}, nil
}

func (a *Acquirer) commonArgs() []string {
	var args []string
	if a.opts.CookiesFile != "" {
		args = append(args, "--cookies", a.opts.CookiesFile)
	}
	if a.opts.Proxy != "" {
		args = append(args, "--proxy", a.opts.Proxy)
	}
	return args
}

// largestOutput finds the finished file yt-dlp wrote for base
func largestOutput(dir, base string) (string, int64, error) {
	matches, err := filepath.Glob(filepath.Join(dir, base+".*"))
	if err != nil {
		return "", 0, err
	}

	var (
		best     string
		bestSize int64 = -1
	)
	for _, m := range matches {
		if strings.HasSuffix(m, ".part") || strings.HasSuffix(m, ".ytdl") {
			continue
		}
		info, err := os.Stat(m)
		if err != nil || info.IsDir() {
			continue
		}
		if info.Size() > bestSize {
			best, bestSize = m, info.Size()
		}
	}
	if best == "" {
		return "", 0, errors.New("no output file produced")
	}
	return best, bestSize, nil
}

var displayNames = map[types.Platform]string{
	types.PlatformInstagram: "Instagram",
	types.PlatformTikTok:    "TikTok",
	types.PlatformFacebook:  "Facebook",
	types.PlatformYouTube:   "YouTube",
}

// PlaceholderTitle is the title used when no metadata could be resolved
func PlaceholderTitle(p types.Platform) string {
	name, ok := displayNames[p]
	if !ok {
		name = "Online"
	}
	return name + " video"
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
