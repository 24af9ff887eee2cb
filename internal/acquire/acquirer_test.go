package acquire

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/codebuildervaibhav/video-summary/internal/command"
	"github.com/codebuildervaibhav/video-summary/internal/logger"
	"github.com/codebuildervaibhav/video-summary/internal/types"
)

func threeStrategies(types.Platform) []Strategy {
	return []Strategy{
		{Name: "first", Format: "bestaudio", UseProfile: true},
		{Name: "second", Format: "worstaudio"},
		{Name: "third"},
	}
}

// writeOutput simulates yt-dlp writing size bytes to the -o template.
func writeOutput(t *testing.T, args []string, ext string, size int) string {
	t.Helper()
	tmpl := argValue(args, "-o")
	if tmpl == "" {
		t.Fatalf("missing -o in args %v", args)
	}
	path := strings.Replace(tmpl, "%(ext)s", ext, 1)
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		t.Fatalf("write output: %v", err)
	}
	return path
}

// TestAcquireAudioFallsThroughToThirdStrategy verifies ordered fallback with a 5 KB result.
func TestAcquireAudioFallsThroughToThirdStrategy(t *testing.T) {
	dir := t.TempDir()
	var formats []string
	runner := command.RunnerFunc(func(ctx context.Context, name string, args ...string) (command.Result, error) {
		formats = append(formats, argValue(args, "-f"))
		switch len(formats) {
		case 1, 2:
			return command.Result{Stderr: "ERROR: blocked", ExitCode: 1}, errors.New("exit status 1")
		default:
			writeOutput(t, args, "m4a", 5*1024)
			return command.Result{}, nil
		}
	})

	a := New(Options{MinAudioBytes: 4 * 1024}, runner, logger.Discard()).WithStrategies(threeStrategies)
	asset, err := a.AcquireAudio(context.Background(), "https://www.tiktok.com/@x/video/1", types.PlatformTikTok, dir)
	if err != nil {
		t.Fatalf("AcquireAudio() error = %v", err)
	}

	if len(formats) != 3 {
		t.Fatalf("attempts = %d, want 3", len(formats))
	}
	if formats[0] != "bestaudio" || formats[1] != "worstaudio" || formats[2] != "" {
		t.Fatalf("attempt order = %v", formats)
	}
	if asset.Size != 5*1024 {
		t.Fatalf("size = %d, want 5120", asset.Size)
	}
	if asset.Format != "m4a" {
		t.Fatalf("format = %q, want m4a", asset.Format)
	}
	if filepath.Dir(asset.Path) != dir {
		t.Fatalf("path = %q, want inside %q", asset.Path, dir)
	}
}

// TestAcquireAudioExhausted checks the sentinel when every strategy fails.
func TestAcquireAudioExhausted(t *testing.T) {
	calls := 0
	runner := command.RunnerFunc(func(ctx context.Context, name string, args ...string) (command.Result, error) {
		calls++
		return command.Result{Stderr: "ERROR: unavailable", ExitCode: 1}, errors.New("exit status 1")
	})

	a := New(Options{}, runner, logger.Discard()).WithStrategies(threeStrategies)
	_, err := a.AcquireAudio(context.Background(), "https://example.com/v", types.PlatformUnknown, t.TempDir())
	if !errors.Is(err, ErrAcquisitionExhausted) {
		t.Fatalf("error = %v, want ErrAcquisitionExhausted", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
	if !strings.Contains(err.Error(), "acquisition exhausted") {
		t.Fatalf("message = %q", err.Error())
	}
}

// TestAcquireAudioRejectsNoiseFloor treats a tiny successful download as a failure.
func TestAcquireAudioRejectsNoiseFloor(t *testing.T) {
	calls := 0
	runner := command.RunnerFunc(func(ctx context.Context, name string, args ...string) (command.Result, error) {
		calls++
		size := 100
		if calls == 2 {
			size = 20 * 1024
		}
		writeOutput(t, args, "mp3", size)
		return command.Result{}, nil
	})

	a := New(Options{MinAudioBytes: 10 * 1024}, runner, logger.Discard()).WithStrategies(threeStrategies)
	asset, err := a.AcquireAudio(context.Background(), "https://youtu.be/x", types.PlatformYouTube, t.TempDir())
	if err != nil {
		t.Fatalf("AcquireAudio() error = %v", err)
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
	if asset.Size != 20*1024 {
		t.Fatalf("size = %d", asset.Size)
	}
}

// TestAcquireAudioAppliesProfileAndCommonArgs checks per-platform flags and cookies.
func TestAcquireAudioAppliesProfileAndCommonArgs(t *testing.T) {
	var got []string
	runner := command.RunnerFunc(func(ctx context.Context, name string, args ...string) (command.Result, error) {
		if name != "yt-dlp-custom" {
			t.Fatalf("name = %q, want yt-dlp-custom", name)
		}
		got = append([]string{}, args...)
		writeOutput(t, args, "mp3", 64*1024)
		return command.Result{}, nil
	})

	a := New(Options{YtDlpPath: "yt-dlp-custom", CookiesFile: "/tmp/c.txt", Proxy: "socks5://p"}, runner, logger.Discard())
	url := "https://www.youtube.com/watch?v=1"
	if _, err := a.AcquireAudio(context.Background(), url, types.PlatformYouTube, t.TempDir()); err != nil {
		t.Fatalf("AcquireAudio() error = %v", err)
	}

	if v := argValue(got, "--extractor-args"); v != "youtube:player_client=android,web" {
		t.Fatalf("extractor args = %q", v)
	}
	if v := argValue(got, "--cookies"); v != "/tmp/c.txt" {
		t.Fatalf("cookies = %q", v)
	}
	if v := argValue(got, "--proxy"); v != "socks5://p" {
		t.Fatalf("proxy = %q", v)
	}
	if got[len(got)-1] != url {
		t.Fatalf("last arg = %q, want url", got[len(got)-1])
	}
}

func TestStrategiesPerPlatform(t *testing.T) {
	for _, p := range []types.Platform{types.PlatformInstagram, types.PlatformTikTok, types.PlatformFacebook, types.PlatformYouTube} {
		chain := Strategies(p)
		if len(chain) != 3 {
			t.Fatalf("%s chain = %d strategies, want 3", p, len(chain))
		}
		if !chain[0].UseProfile || chain[len(chain)-1].Name != "bare-minimum" {
			t.Fatalf("%s chain = %+v", p, chain)
		}
	}
	if chain := Strategies(types.PlatformUnknown); chain[0].UseProfile {
		t.Fatalf("unknown platform should start generic, got %+v", chain[0])
	}

	// Mutating the returned chain must not affect the table.
	chain := Strategies(types.PlatformYouTube)
	chain[0].Name = "changed"
	if Strategies(types.PlatformYouTube)[0].Name != "client-hint" {
		t.Fatal("Strategies returned shared storage")
	}
}

type stubSource struct {
	meta types.MediaMetadata
	err  error
}

func (s stubSource) Name() string { return "stub" }

func (s stubSource) Lookup(context.Context, string, types.Platform) (types.MediaMetadata, error) {
	return s.meta, s.err
}

// TestResolveMetadataFromYtDlp parses the JSON dump.
func TestResolveMetadataFromYtDlp(t *testing.T) {
	runner := command.RunnerFunc(func(ctx context.Context, name string, args ...string) (command.Result, error) {
		if !hasArg(args, "--dump-single-json") || !hasArg(args, "--skip-download") {
			t.Fatalf("args = %v", args)
		}
		return command.Result{Stdout: `{"title":" Pasta night ","duration":183.5,"thumbnail":"https://i/x.jpg"}`}, nil
	})

	meta := New(Options{}, runner, logger.Discard()).ResolveMetadata(context.Background(), "https://youtu.be/x", types.PlatformYouTube)
	if meta.Title != "Pasta night" {
		t.Fatalf("title = %q", meta.Title)
	}
	if meta.Duration == nil || *meta.Duration != 183.5 {
		t.Fatalf("duration = %v", meta.Duration)
	}
	if meta.Thumbnail == nil || *meta.Thumbnail != "https://i/x.jpg" {
		t.Fatalf("thumbnail = %v", meta.Thumbnail)
	}
}

// TestResolveMetadataFallbackChain checks fallbacks and the placeholder.
func TestResolveMetadataFallbackChain(t *testing.T) {
	failing := command.RunnerFunc(func(ctx context.Context, name string, args ...string) (command.Result, error) {
		return command.Result{Stderr: "login required", ExitCode: 1}, errors.New("exit status 1")
	})

	a := New(Options{}, failing, logger.Discard(),
		stubSource{err: errors.New("blocked")},
		stubSource{meta: types.MediaMetadata{Title: "From page"}},
	)
	if meta := a.ResolveMetadata(context.Background(), "https://instagram.com/reel/1", types.PlatformInstagram); meta.Title != "From page" {
		t.Fatalf("title = %q, want From page", meta.Title)
	}

	bare := New(Options{}, failing, logger.Discard())
	meta := bare.ResolveMetadata(context.Background(), "https://instagram.com/reel/1", types.PlatformInstagram)
	if meta.Title != "Instagram video" {
		t.Fatalf("title = %q, want placeholder", meta.Title)
	}
	if meta.Duration != nil || meta.Thumbnail != nil {
		t.Fatalf("placeholder should carry no duration or thumbnail: %+v", meta)
	}
}

// TestPageScraperReadsOpenGraph serves a page with og tags.
func TestPageScraperReadsOpenGraph(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.UserAgent(), "Mozilla") {
			t.Errorf("user agent = %q", r.UserAgent())
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head><title>fallback</title>
<meta property="og:title" content="Knife skills 101">
<meta property="og:image" content="https://img/1.jpg">
<meta property="og:video:duration" content="95">
</head><body></body></html>`))
	}))
	defer srv.Close()

	meta, err := NewPageScraper(0).Lookup(context.Background(), srv.URL, types.PlatformFacebook)
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if meta.Title != "Knife skills 101" {
		t.Fatalf("title = %q", meta.Title)
	}
	if meta.Thumbnail == nil || *meta.Thumbnail != "https://img/1.jpg" {
		t.Fatalf("thumbnail = %v", meta.Thumbnail)
	}
	if meta.Duration == nil || *meta.Duration != 95 {
		t.Fatalf("duration = %v", meta.Duration)
	}
}

func TestPageScraperNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	if _, err := NewPageScraper(0).Lookup(context.Background(), srv.URL, types.PlatformUnknown); err == nil {
		t.Fatal("expected error for 403")
	}
}

func argValue(args []string, key string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == key {
			return args[i+1]
		}
	}
	return ""
}

func hasArg(args []string, key string) bool {
	for _, a := range args {
		if a == key {
			return true
		}
	}
	return false
}
