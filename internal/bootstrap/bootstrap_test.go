package bootstrap

import (
	"path/filepath"
	"testing"

	"github.com/codebuildervaibhav/video-summary/internal/config"
	"github.com/codebuildervaibhav/video-summary/internal/logger"
)

func loadConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("STT_API_KEY", "")
	t.Setenv("LLM_API_KEY", "")
	t.Setenv("STT_BACKEND", "")
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("config.Load() error = %v", err)
	}
	return cfg
}

func TestComponentsAreComplete(t *testing.T) {
	cfg := loadConfig(t)
	c := Components(cfg, nil, logger.Discard())
	if c.Acquirer == nil || c.Normalizer == nil || c.Segmenter == nil || c.Transcriber == nil || c.Classifier == nil || c.Synthesizer == nil {
		t.Fatalf("components = %+v", c)
	}

	cfg.Transcription.Backend = BackendWhisper
	cfg.Acquisition.HeadlessMetadata = true
	if c := Components(cfg, nil, logger.Discard()); c.Transcriber == nil {
		t.Fatal("whisper backend not wired")
	}
}

func TestDiagnosticsSettings(t *testing.T) {
	cfg := loadConfig(t)

	s := DiagnosticsSettings(cfg)
	if s.STTReady || s.LLMReady || s.PythonPath != "" {
		t.Fatalf("settings = %+v", s)
	}

	cfg.Transcription.Backend = BackendWhisper
	cfg.LLM.APIKey = "k"
	s = DiagnosticsSettings(cfg)
	if !s.STTReady || !s.LLMReady || s.PythonPath == "" {
		t.Fatalf("settings = %+v", s)
	}
}
