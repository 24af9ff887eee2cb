package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server struct {
		Port int    `yaml:"port"`
		Host string `yaml:"host"`
	} `yaml:"server"`

	Storage struct {
		TempDir   string `yaml:"temp_dir"`
		OutputDir string `yaml:"output_dir"`
		Database  string `yaml:"database"`
	} `yaml:"storage"`

	Workers struct {
		Count int `yaml:"count"`
	} `yaml:"workers"`

	Cleanup struct {
		IntervalMinutes int `yaml:"interval_minutes"`
		MaxAgeHours     int `yaml:"max_age_hours"`
	} `yaml:"cleanup"`

	GoogleDrive struct {
		CredentialsFile string `yaml:"credentials_file"`
		TokenFile       string `yaml:"token_file"`
		FolderName      string `yaml:"folder_name"`
	} `yaml:"google_drive"`

	Acquisition struct {
		YtDlpPath              string `yaml:"ytdlp_path"`
		AttemptTimeoutSeconds  int    `yaml:"attempt_timeout_seconds"`
		MetadataTimeoutSeconds int    `yaml:"metadata_timeout_seconds"`
		MinAudioBytes          int64  `yaml:"min_audio_bytes"`
		CookiesFile            string `yaml:"cookies_file"`
		Proxy                  string `yaml:"proxy"`
		HeadlessMetadata       bool   `yaml:"headless_metadata"`
	} `yaml:"acquisition"`

	Audio struct {
		FFmpegPath     string `yaml:"ffmpeg_path"`
		MaxBytes       int64  `yaml:"max_bytes"`
		SegmentSeconds int    `yaml:"segment_seconds"`
		SampleRate     int    `yaml:"sample_rate"`
		Bitrate        string `yaml:"bitrate"`
	} `yaml:"audio"`

	Transcription struct {
		Backend        string `yaml:"backend"`
		BaseURL        string `yaml:"base_url"`
		APIKey         string `yaml:"api_key"`
		Model          string `yaml:"model"`
		Language       string `yaml:"language"`
		Concurrency    int    `yaml:"concurrency"`
		MaxAttempts    int    `yaml:"max_attempts"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
		PythonPath     string `yaml:"python_path"`
		WhisperModel   string `yaml:"whisper_model"`
		WhisperRuns    int    `yaml:"whisper_parallel"`
	} `yaml:"transcription"`

	LLM struct {
		BaseURL        string `yaml:"base_url"`
		APIKey         string `yaml:"api_key"`
		Model          string `yaml:"model"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
		MaxRetrySecs   int    `yaml:"max_retry_seconds"`
	} `yaml:"llm"`

	Progress struct {
		SinkURL        string `yaml:"sink_url"`
		Token          string `yaml:"token"`
		QueueSize      int    `yaml:"queue_size"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"progress"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
}

// Load reads the YAML file at path, applies environment overrides and
// fills defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	var cfg Config

	file, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(file, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	setInt(&c.Server.Port, "PORT")
	setString(&c.Server.Host, "HOST")
	setString(&c.Storage.TempDir, "TEMP_DIR")
	setString(&c.Storage.OutputDir, "OUTPUT_DIR")
	setString(&c.Storage.Database, "DATABASE_PATH")

	setString(&c.Acquisition.YtDlpPath, "YTDLP_PATH")
	setString(&c.Acquisition.CookiesFile, "YTDLP_COOKIES")
	setString(&c.Acquisition.Proxy, "YTDLP_PROXY")
	setString(&c.Audio.FFmpegPath, "FFMPEG_PATH")

	setString(&c.Transcription.Backend, "STT_BACKEND")
	setString(&c.Transcription.BaseURL, "STT_BASE_URL")
	setString(&c.Transcription.APIKey, "STT_API_KEY")
	setString(&c.Transcription.Model, "STT_MODEL")

	setString(&c.LLM.BaseURL, "LLM_BASE_URL")
	setString(&c.LLM.APIKey, "LLM_API_KEY")
	setString(&c.LLM.Model, "LLM_MODEL")

	// One OpenAI key usually serves both collaborators.
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		if c.LLM.APIKey == "" {
			c.LLM.APIKey = key
		}
		if c.Transcription.APIKey == "" {
			c.Transcription.APIKey = key
		}
	}

	setString(&c.Progress.SinkURL, "PROGRESS_SINK_URL")
	setString(&c.Progress.Token, "PROGRESS_SINK_TOKEN")

	setString(&c.Logging.Level, "LOG_LEVEL")
	setString(&c.Logging.Format, "LOG_FORMAT")
}

func (c *Config) applyDefaults() {
	defInt(&c.Server.Port, 8080)
	defString(&c.Server.Host, "0.0.0.0")

	defString(&c.Storage.TempDir, "temp")
	defString(&c.Storage.OutputDir, "outputs")

	defInt(&c.Workers.Count, 2)
	defInt(&c.Cleanup.IntervalMinutes, 30)
	defInt(&c.Cleanup.MaxAgeHours, 6)
	defString(&c.GoogleDrive.FolderName, "Video Summaries")

	defString(&c.Acquisition.YtDlpPath, "yt-dlp")
	defInt(&c.Acquisition.AttemptTimeoutSeconds, 180)
	defInt(&c.Acquisition.MetadataTimeoutSeconds, 45)
	if c.Acquisition.MinAudioBytes <= 0 {
		c.Acquisition.MinAudioBytes = 10 * 1024
	}

	defString(&c.Audio.FFmpegPath, "ffmpeg")
	if c.Audio.MaxBytes <= 0 {
		c.Audio.MaxBytes = 24 * 1024 * 1024
	}
	defInt(&c.Audio.SegmentSeconds, 60)
	defInt(&c.Audio.SampleRate, 16000)
	defString(&c.Audio.Bitrate, "32k")

	defString(&c.Transcription.Backend, "api")
	defString(&c.Transcription.BaseURL, "https://api.openai.com/v1")
	defString(&c.Transcription.Model, "whisper-1")
	defInt(&c.Transcription.Concurrency, 4)
	defInt(&c.Transcription.MaxAttempts, 3)
	defInt(&c.Transcription.TimeoutSeconds, 120)
	defString(&c.Transcription.PythonPath, "python")
	defString(&c.Transcription.WhisperModel, "small")
	defInt(&c.Transcription.WhisperRuns, 1)

	defString(&c.LLM.BaseURL, "https://api.openai.com/v1")
	defString(&c.LLM.Model, "gpt-4o-mini")
	defInt(&c.LLM.TimeoutSeconds, 60)
	defInt(&c.LLM.MaxRetrySecs, 30)

	defInt(&c.Progress.QueueSize, 64)
	defInt(&c.Progress.TimeoutSeconds, 5)

	defString(&c.Logging.Level, "info")
	defString(&c.Logging.Format, "text")
}

// Validate rejects configurations the service cannot run with
func (c *Config) Validate() error {
	var problems []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("server.port %d out of range", c.Server.Port))
	}
	if c.Audio.SegmentSeconds <= 0 {
		problems = append(problems, "audio.segment_seconds must be positive")
	}
	if c.Transcription.Concurrency <= 0 {
		problems = append(problems, "transcription.concurrency must be positive")
	}
	switch c.Transcription.Backend {
	case "api", "whisper":
	default:
		problems = append(problems, fmt.Sprintf("transcription.backend %q must be api or whisper", c.Transcription.Backend))
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		problems = append(problems, fmt.Sprintf("logging.format %q must be text or json", c.Logging.Format))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Addr returns the listen address
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Seconds converts a configured second count to a duration
func Seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func defString(dst *string, v string) {
	if strings.TrimSpace(*dst) == "" {
		*dst = v
	}
}

func defInt(dst *int, v int) {
	if *dst <= 0 {
		*dst = v
	}
}
