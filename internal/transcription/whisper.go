package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/codebuildervaibhav/video-summary/internal/command"
	"github.com/codebuildervaibhav/video-summary/internal/logger"
)

// Transcriber turns one audio chunk into text
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// StatusError is a non-2xx answer from the speech-to-text service
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("speech-to-text returned %d: %s", e.StatusCode, e.Body)
}

// Retryable reports whether a retry may succeed
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// APITranscriber calls an OpenAI-compatible /audio/transcriptions endpoint
type APITranscriber struct {
	baseURL  string
	apiKey   string
	model    string
	language string
	client   *http.Client
}

// NewAPITranscriber creates an API-backed transcriber
func NewAPITranscriber(baseURL, apiKey, model, language string, timeout time.Duration) *APITranscriber {
	return &APITranscriber{
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiKey:   apiKey,
		model:    model,
		language: language,
		client:   &http.Client{Timeout: timeout},
	}
}

type apiTranscription struct {
	Text string `json:"text"`
}

// Transcribe uploads the chunk as multipart form data
func (t *APITranscriber) Transcribe(ctx context.Context, audioPath string) (string, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(fw, f); err != nil {
		return "", fmt.Errorf("copy audio: %w", err)
	}
	_ = mw.WriteField("model", t.model)
	_ = mw.WriteField("response_format", "json")
	if t.language != "" {
		_ = mw.WriteField("language", t.language)
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/audio/transcriptions", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if t.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.apiKey)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &StatusError{StatusCode: resp.StatusCode, Body: command.Tail(string(raw), 300)}
	}

	var out apiTranscription
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decode transcription: %w", err)
	}
	return strings.TrimSpace(out.Text), nil
}

// WhisperOptions configures the local whisper backend
type WhisperOptions struct {
	PythonPath string
	Model      string
	Language   string
	// Timeout bounds one whisper run
	Timeout time.Duration
	// Parallel is the number of whisper processes allowed at once across
	// all jobs. Each run loads its own model, so memory grows with it.
	Parallel int
}

// WhisperCLI wraps Python's OpenAI Whisper for local transcription
type WhisperCLI struct {
	opts   WhisperOptions
	runner command.Runner
	log    *logger.Logger
	slots  chan struct{}
}

// NewWhisperCLI creates a transcriber using `python -m whisper`
func NewWhisperCLI(opts WhisperOptions, runner command.Runner, log *logger.Logger) *WhisperCLI {
	if opts.PythonPath == "" {
		opts.PythonPath = "python"
	}
	if opts.Model == "" {
		opts.Model = "small"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Minute
	}
	if opts.Parallel <= 0 {
		opts.Parallel = 1
	}
	if runner == nil {
		runner = command.Exec{}
	}
	return &WhisperCLI{
		opts:   opts,
		runner: runner,
		log:    log.Component("whisper"),
		slots:  make(chan struct{}, opts.Parallel),
	}
}

// Transcribe runs whisper on one chunk and reads its JSON output
func (w *WhisperCLI) Transcribe(ctx context.Context, audioPath string) (string, error) {
	select {
	case w.slots <- struct{}{}:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	defer func() { <-w.slots }()

	ctx, cancel := context.WithTimeout(ctx, w.opts.Timeout)
	defer cancel()

	outDir, err := os.MkdirTemp(filepath.Dir(audioPath), "whisper_")
	if err != nil {
		return "", fmt.Errorf("create whisper output dir: %w", err)
	}
	defer os.RemoveAll(outDir)

	absAudioPath, err := filepath.Abs(audioPath)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}

	args := []string{"-m", "whisper",
		absAudioPath,
		"--model", w.opts.Model,
		"--output_dir", outDir,
		"--output_format", "json",
		"--fp16", "False",
	}
	if w.opts.Language != "" {
		args = append(args, "--language", w.opts.Language)
	}

	res, err := w.runner.Run(ctx, w.opts.PythonPath, args...)
	if err != nil {
		return "", command.Wrap("whisper", res, err)
	}

	baseName := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	jsonData, err := os.ReadFile(filepath.Join(outDir, baseName+".json"))
	if err != nil {
		return "", fmt.Errorf("failed to read whisper output: %w", err)
	}

	var out WhisperOutput
	if err := json.Unmarshal(jsonData, &out); err != nil {
		return "", fmt.Errorf("failed to parse whisper JSON: %w", err)
	}

	w.log.WithField("segments", len(out.Segments)).Debug("chunk transcribed")
	return strings.TrimSpace(out.Text), nil
}

// WhisperOutput matches Python Whisper's JSON output format
type WhisperOutput struct {
	Text     string           `json:"text"`
	Language string           `json:"language"`
	Segments []WhisperSegment `json:"segments"`
}

// WhisperSegment represents a timestamped segment from Whisper
type WhisperSegment struct {
	ID    int     `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}
