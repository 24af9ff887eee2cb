package diagnostics

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// Status indicates whether a single check passed.
type Status string

const (
	StatusPass Status = "pass"
	StatusWarn Status = "warn"
	StatusFail Status = "fail"
)

// Item is one check result with an optional hint.
type Item struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Status  Status `json:"status"`
	Message string `json:"message"`
	Hint    string `json:"hint,omitempty"`
}

// Report aggregates checks for the diagnostics endpoint and CLI.
type Report struct {
	GeneratedAt time.Time `json:"generatedAt"`
	HasFailures bool      `json:"hasFailures"`
	Items       []Item    `json:"items"`
}

// Settings names what the service needs at runtime.
type Settings struct {
	YtDlpPath   string
	FFmpegPath  string
	PythonPath  string // empty unless the local whisper backend is selected
	TempDir     string
	OutputDir   string
	STTReady    bool
	LLMReady    bool
	ProgressURL string
}

// Checker validates external tools and required filesystem paths.
type Checker struct {
	lookPath   func(string) (string, error)
	mkdirAll   func(string, os.FileMode) error
	createTemp func(string, string) (*os.File, error)
	remove     func(string) error
}

// NewChecker builds a checker using real OS dependencies.
func NewChecker() *Checker {
	return &Checker{
		lookPath:   exec.LookPath,
		mkdirAll:   os.MkdirAll,
		createTemp: os.CreateTemp,
		remove:     os.Remove,
	}
}

// NewCheckerForTests creates a checker with an injectable PATH lookup.
func NewCheckerForTests(lookPath func(string) (string, error)) *Checker {
	c := NewChecker()
	c.lookPath = lookPath
	return c
}

// Run executes all checks and returns a combined report.
func (c *Checker) Run(s Settings) Report {
	items := []Item{
		c.checkTool("yt-dlp", s.YtDlpPath, "Install yt-dlp (pip install yt-dlp) and keep it up to date; extractors break often."),
		c.checkTool("ffmpeg", s.FFmpegPath, "Install ffmpeg and ensure the binary is on PATH."),
	}
	if s.PythonPath != "" {
		items = append(items, c.checkTool("python", s.PythonPath, "Install Python with openai-whisper or switch transcription.backend to api."))
	}
	items = append(items,
		c.checkWritableDir("temp_dir", "Temp directory", s.TempDir),
		c.checkWritableDir("output_dir", "Output directory", s.OutputDir),
		credentialItem("stt", "Speech-to-text", s.STTReady, "Set STT_API_KEY (or OPENAI_API_KEY) for the api backend."),
		credentialItem("llm", "Text completion", s.LLMReady, "Set LLM_API_KEY (or OPENAI_API_KEY); without it summaries fall back to minimal documents."),
	)

	sink := Item{ID: "progress_sink", Name: "Progress sink", Status: StatusPass, Message: "Reporting to " + s.ProgressURL}
	if s.ProgressURL == "" {
		sink.Status = StatusWarn
		sink.Message = "No progress sink configured; progress is only available over the websocket."
	}
	items = append(items, sink)

	hasFailures := false
	for _, item := range items {
		if item.Status == StatusFail {
			hasFailures = true
			break
		}
	}

	return Report{
		GeneratedAt: time.Now().UTC(),
		HasFailures: hasFailures,
		Items:       items,
	}
}

// checkTool verifies an executable resolves on PATH.
func (c *Checker) checkTool(name, configured, hint string) Item {
	bin := configured
	if strings.TrimSpace(bin) == "" {
		bin = name
	}
	item := Item{ID: "tool_" + name, Name: name}

	path, err := c.lookPath(bin)
	if err != nil {
		item.Status = StatusFail
		item.Message = fmt.Sprintf("Tool not found: %s", bin)
		item.Hint = hint
		return item
	}

	item.Status = StatusPass
	item.Message = fmt.Sprintf("Found at %s", path)
	return item
}

// checkWritableDir validates directory existence and write access.
func (c *Checker) checkWritableDir(id, name, dir string) Item {
	item := Item{ID: id, Name: name}

	if strings.TrimSpace(dir) == "" {
		item.Status = StatusFail
		item.Message = name + " is empty."
		item.Hint = "Set a writable directory in config.yaml."
		return item
	}

	if err := c.mkdirAll(dir, 0o755); err != nil {
		item.Status = StatusFail
		item.Message = fmt.Sprintf("Cannot create directory: %s", dir)
		item.Hint = "Choose a writable location or adjust filesystem permissions."
		return item
	}

	tmpFile, err := c.createTemp(dir, ".write-check-*")
	if err != nil {
		item.Status = StatusFail
		item.Message = fmt.Sprintf("Directory is not writable: %s", dir)
		item.Hint = "Choose a writable location or adjust filesystem permissions."
		return item
	}
	tmpPath := tmpFile.Name()
	_ = tmpFile.Close()
	_ = c.remove(tmpPath)

	item.Status = StatusPass
	item.Message = fmt.Sprintf("Writable directory: %s", dir)
	return item
}

func credentialItem(id, name string, ok bool, hint string) Item {
	if ok {
		return Item{ID: id, Name: name, Status: StatusPass, Message: "Configured"}
	}
	return Item{ID: id, Name: name, Status: StatusFail, Message: "Not configured", Hint: hint}
}
