package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/codebuildervaibhav/video-summary/internal/logger"
	"github.com/codebuildervaibhav/video-summary/internal/progress"
	"github.com/codebuildervaibhav/video-summary/internal/summary"
	"github.com/codebuildervaibhav/video-summary/internal/transcription"
	"github.com/codebuildervaibhav/video-summary/internal/types"
)

// ProcessingMethod identifies how the transcript was produced.
const ProcessingMethod = "chunked_audio_transcription"

// Acquirer resolves metadata and downloads audio for a URL.
type Acquirer interface {
	ResolveMetadata(ctx context.Context, rawURL string, p types.Platform) types.MediaMetadata
	AcquireAudio(ctx context.Context, rawURL string, p types.Platform, dir string) (types.AudioAsset, error)
}

// Normalizer enforces the audio size ceiling.
type Normalizer interface {
	Normalize(ctx context.Context, asset types.AudioAsset, dir string) (types.AudioAsset, error)
}

// Segmenter splits audio into ordered chunks.
type Segmenter interface {
	Segment(ctx context.Context, asset types.AudioAsset, dir string, totalSeconds *float64) ([]types.Chunk, error)
}

// Transcriber runs the two transcription phases.
type Transcriber interface {
	TranscribeEarly(ctx context.Context, chunks []types.Chunk) (string, error)
	TranscribeRest(ctx context.Context, chunks []types.Chunk, early string) (string, error)
}

// Classifier decides the content type from the early transcript.
type Classifier interface {
	Classify(ctx context.Context, early, title string) types.Classification
}

// Synthesizer produces the structured document.
type Synthesizer interface {
	Synthesize(ctx context.Context, in summary.Input) summary.Document
}

// Components are the collaborators a Coordinator drives.
type Components struct {
	Acquirer    Acquirer
	Normalizer  Normalizer
	Segmenter   Segmenter
	Transcriber Transcriber
	Classifier  Classifier
	Synthesizer Synthesizer
}

// Request is one video to process.
type Request struct {
	SummaryID string
	VideoURL  string
	Platform  types.Platform
}

// VideoInfo describes the source video.
type VideoInfo struct {
	URL       string         `json:"url"`
	Platform  types.Platform `json:"platform"`
	Title     string         `json:"title"`
	Duration  *float64       `json:"duration"`
	Thumbnail *string        `json:"thumbnail"`
}

// Analysis carries the processing facts of a job.
type Analysis struct {
	Classification   types.Classification `json:"classification"`
	AudioBytes       int64                `json:"audioBytes"`
	ChunkCount       int                  `json:"chunkCount"`
	EarlyChunks      int                  `json:"earlyChunks"`
	EarlyTranscript  string               `json:"earlyTranscript"`
	SummaryFailed    bool                 `json:"summaryFailed"`
	ProcessingTimeMs int64                `json:"processingTimeMs"`
}

// Result is the output of a successful run.
type Result struct {
	SummaryID        string           `json:"-"`
	VideoInfo        VideoInfo        `json:"videoInfo"`
	Transcription    string           `json:"transcription"`
	Summary          summary.Document `json:"summary"`
	WordCount        int              `json:"wordCount"`
	ProcessingMethod string           `json:"processingMethod"`
	Analysis         Analysis         `json:"analysis"`
}

// StageError attributes a fatal error to the state the job was in.
type StageError struct {
	Stage   State
	Elapsed time.Duration
	Err     error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Coordinator sequences the pipeline for one job at a time per call.
type Coordinator struct {
	c       Components
	tempDir string
	sinks   []progress.Sink
	log     *logger.Logger
	now     func() time.Time
}

// NewCoordinator creates a Coordinator that scopes job workspaces under
// tempDir and reports progress to sinks.
func NewCoordinator(c Components, tempDir string, log *logger.Logger, sinks ...progress.Sink) *Coordinator {
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &Coordinator{
		c:       c,
		tempDir: tempDir,
		sinks:   sinks,
		log:     log.Component("pipeline"),
		now:     time.Now,
	}
}

// Run processes req to completion. Fatal errors are returned as *StageError.
// The job workspace is removed on every exit path.
func (co *Coordinator) Run(ctx context.Context, req Request) (*Result, error) {
	started := co.now()
	job := NewJob(req.SummaryID, req.VideoURL, req.Platform, started)
	prog := progress.NewJob(req.SummaryID, co.sinks...)
	log := co.log.WithFields(logrus.Fields{"summary_id": req.SummaryID, "platform": req.Platform})

	res, err := co.run(ctx, job, prog, req)
	elapsed := co.now().Sub(started)
	if err != nil {
		stage := job.State
		_ = job.Transition(StateFailed)

		prog.Fail(err.Error(), map[string]any{
			"stage":     string(stage),
			"elapsedMs": elapsed.Milliseconds(),
		})
		log.WithField("stage", stage).WithField("elapsed_ms", elapsed.Milliseconds()).
			WithField("error", err.Error()).Error("job failed")
		return nil, &StageError{Stage: stage, Elapsed: elapsed, Err: err}
	}

	res.Analysis.ProcessingTimeMs = elapsed.Milliseconds()
	_ = job.Transition(StateDone)
	prog.Done(map[string]any{"wordCount": res.WordCount, "type": res.Summary.Kind()})
	log.WithField("word_count", res.WordCount).WithField("elapsed_ms", elapsed.Milliseconds()).Info("job completed")
	return res, nil
}

func (co *Coordinator) run(ctx context.Context, job *Job, prog *progress.Job, req Request) (*Result, error) {
	if err := os.MkdirAll(co.tempDir, 0o755); err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	workDir, err := os.MkdirTemp(co.tempDir, "job_")
	if err != nil {
		return nil, fmt.Errorf("create job workspace: %w", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(workDir); rmErr != nil {
			co.log.WithError(rmErr).WithField("dir", workDir).Warn("failed to remove job workspace")
		}
	}()

	advance := func(to State) error {
		if err := job.Transition(to); err != nil {
			return err
		}
		co.log.WithField("summary_id", job.ID).WithField("state", to).Debug("state changed")
		return nil
	}

	// Acquisition
	if err := advance(StateAcquiring); err != nil {
		return nil, err
	}
	prog.Emit(types.StageFetchingAudio, 5, "resolving video metadata", nil)
	meta := co.c.Acquirer.ResolveMetadata(ctx, req.VideoURL, req.Platform)

	prog.Emit(types.StageDownloading, 10, "downloading audio", map[string]any{"title": meta.Title})
	asset, err := co.c.Acquirer.AcquireAudio(ctx, req.VideoURL, req.Platform, workDir)
	if err != nil {
		return nil, err
	}

	// Normalization
	if err := advance(StateNormalizing); err != nil {
		return nil, err
	}
	prog.Emit(types.StageTranscoding, 15, "checking audio size", nil)
	asset, err = co.c.Normalizer.Normalize(ctx, asset, workDir)
	if err != nil {
		return nil, err
	}

	// Segmentation
	if err := advance(StateSegmenting); err != nil {
		return nil, err
	}
	prog.Emit(types.StageChunking, 20, "splitting audio", nil)
	chunks, err := co.c.Segmenter.Segment(ctx, asset, workDir, meta.Duration)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, transcription.ErrNoChunks
	}

	// Early transcription
	if err := advance(StateTranscribingEarly); err != nil {
		return nil, err
	}
	earlyCount := transcription.EarlyCount(len(chunks))
	prog.Emit(types.StageTranscribing, 30, fmt.Sprintf("transcribing first %d of %d chunks", earlyCount, len(chunks)), nil)
	early, err := co.c.Transcriber.TranscribeEarly(ctx, chunks)
	if err != nil {
		return nil, err
	}
	prog.Emit(types.StageTranscribing, 40, "early transcript ready", map[string]any{"transcript": early})

	// Classification
	if err := advance(StateClassifying); err != nil {
		return nil, err
	}
	prog.Emit(types.StageClassifying, 45, "classifying content", nil)
	class := co.c.Classifier.Classify(ctx, early, meta.Title)
	prog.Emit(types.StageClassifying, 50, string(class.Type), map[string]any{"classification": class})

	// Remaining transcription
	if err := advance(StateTranscribingRest); err != nil {
		return nil, err
	}
	prog.Emit(types.StageTranscribing, 55, fmt.Sprintf("transcribing remaining %d chunks", len(chunks)-earlyCount), nil)
	full, err := co.c.Transcriber.TranscribeRest(ctx, chunks, early)
	if err != nil {
		return nil, err
	}
	words := transcription.WordCount(full)
	prog.Emit(types.StageTranscribed, 70, "transcript complete", map[string]any{"wordCount": words})

	// Structuring
	if err := advance(StateStructuring); err != nil {
		return nil, err
	}
	prog.Emit(types.StageStructuring, 80, "generating "+string(class.Type)+" summary", nil)
	doc := co.c.Synthesizer.Synthesize(ctx, summary.Input{Type: class.Type, Transcript: full, Title: meta.Title})
	if doc == nil {
		return nil, errors.New("synthesizer returned no document")
	}
	if doc.Failed() {
		co.log.WithField("summary_id", job.ID).Warn("summary generation fell back to a minimal document")
	}

	prog.Emit(types.StageNormalizing, 90, "normalizing summary", nil)
	doc = summary.Normalize(doc)

	// Finalization
	if err := advance(StateFinalizing); err != nil {
		return nil, err
	}
	prog.Emit(types.StageFinalizing, 95, "finalizing", nil)

	return &Result{
		SummaryID: req.SummaryID,
		VideoInfo: VideoInfo{
			URL:       req.VideoURL,
			Platform:  req.Platform,
			Title:     meta.Title,
			Duration:  meta.Duration,
			Thumbnail: meta.Thumbnail,
		},
		Transcription:    full,
		Summary:          doc,
		WordCount:        words,
		ProcessingMethod: ProcessingMethod,
		Analysis: Analysis{
			Classification:  class,
			AudioBytes:      asset.Size,
			ChunkCount:      len(chunks),
			EarlyChunks:     earlyCount,
			EarlyTranscript: early,
			SummaryFailed:   doc.Failed(),
		},
	}, nil
}
