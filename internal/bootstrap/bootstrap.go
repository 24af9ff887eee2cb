package bootstrap

import (
	"github.com/codebuildervaibhav/video-summary/internal/acquire"
	"github.com/codebuildervaibhav/video-summary/internal/classify"
	"github.com/codebuildervaibhav/video-summary/internal/command"
	"github.com/codebuildervaibhav/video-summary/internal/config"
	"github.com/codebuildervaibhav/video-summary/internal/diagnostics"
	"github.com/codebuildervaibhav/video-summary/internal/llm"
	"github.com/codebuildervaibhav/video-summary/internal/logger"
	"github.com/codebuildervaibhav/video-summary/internal/pipeline"
	"github.com/codebuildervaibhav/video-summary/internal/progress"
	"github.com/codebuildervaibhav/video-summary/internal/summary"
	"github.com/codebuildervaibhav/video-summary/internal/transcription"
)

// BackendWhisper selects the local whisper CLI for speech-to-text.
const BackendWhisper = "whisper"

// Components builds every pipeline collaborator from configuration.
func Components(cfg *config.Config, runner command.Runner, log *logger.Logger) pipeline.Components {
	if runner == nil {
		runner = command.Exec{}
	}

	fallbacks := []acquire.MetadataSource{acquire.NewPageScraper(config.Seconds(cfg.Acquisition.MetadataTimeoutSeconds))}
	if cfg.Acquisition.HeadlessMetadata {
		fallbacks = append(fallbacks, acquire.NewHeadlessRenderer(config.Seconds(cfg.Acquisition.MetadataTimeoutSeconds)))
	}
	acq := acquire.New(acquire.Options{
		YtDlpPath:       cfg.Acquisition.YtDlpPath,
		AttemptTimeout:  config.Seconds(cfg.Acquisition.AttemptTimeoutSeconds),
		MetadataTimeout: config.Seconds(cfg.Acquisition.MetadataTimeoutSeconds),
		MinAudioBytes:   cfg.Acquisition.MinAudioBytes,
		CookiesFile:     cfg.Acquisition.CookiesFile,
		Proxy:           cfg.Acquisition.Proxy,
	}, runner, log, fallbacks...)

	audio := transcription.AudioOptions{
		FFmpegPath:     cfg.Audio.FFmpegPath,
		MaxBytes:       cfg.Audio.MaxBytes,
		SampleRate:     cfg.Audio.SampleRate,
		Bitrate:        cfg.Audio.Bitrate,
		SegmentSeconds: cfg.Audio.SegmentSeconds,
	}

	t := cfg.Transcription
	var stt transcription.Transcriber
	if t.Backend == BackendWhisper {
		stt = transcription.NewWhisperCLI(transcription.WhisperOptions{
			PythonPath: t.PythonPath,
			Model:      t.WhisperModel,
			Language:   t.Language,
			Timeout:    config.Seconds(t.TimeoutSeconds),
			Parallel:   t.WhisperRuns,
		}, runner, log)
	} else {
		stt = transcription.NewAPITranscriber(t.BaseURL, t.APIKey, t.Model, t.Language, config.Seconds(t.TimeoutSeconds))
	}

	completer := llm.NewClient(llm.Options{
		BaseURL:      cfg.LLM.BaseURL,
		APIKey:       cfg.LLM.APIKey,
		Model:        cfg.LLM.Model,
		Timeout:      config.Seconds(cfg.LLM.TimeoutSeconds),
		MaxRetryTime: config.Seconds(cfg.LLM.MaxRetrySecs),
	}, log)

	return pipeline.Components{
		Acquirer:   acq,
		Normalizer: transcription.NewNormalizer(audio, runner, log),
		Segmenter:  transcription.NewSegmenter(audio, runner, log),
		Transcriber: transcription.NewOrchestrator(stt, transcription.OrchestratorOptions{
			Concurrency: t.Concurrency,
			MaxAttempts: t.MaxAttempts,
		}, log),
		Classifier:  classify.New(completer, log),
		Synthesizer: summary.New(completer, log),
	}
}

// Coordinator builds a ready-to-run pipeline coordinator.
func Coordinator(cfg *config.Config, log *logger.Logger, sinks ...progress.Sink) *pipeline.Coordinator {
	return pipeline.NewCoordinator(Components(cfg, nil, log), cfg.Storage.TempDir, log, sinks...)
}

// DiagnosticsSettings maps configuration onto the diagnostics checks.
func DiagnosticsSettings(cfg *config.Config) diagnostics.Settings {
	s := diagnostics.Settings{
		YtDlpPath:   cfg.Acquisition.YtDlpPath,
		FFmpegPath:  cfg.Audio.FFmpegPath,
		TempDir:     cfg.Storage.TempDir,
		OutputDir:   cfg.Storage.OutputDir,
		STTReady:    cfg.Transcription.Backend == BackendWhisper || cfg.Transcription.APIKey != "",
		LLMReady:    cfg.LLM.APIKey != "" && cfg.LLM.BaseURL != "",
		ProgressURL: cfg.Progress.SinkURL,
	}
	if cfg.Transcription.Backend == BackendWhisper {
		s.PythonPath = cfg.Transcription.PythonPath
	}
	return s
}
