package transcription

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"github.com/codebuildervaibhav/video-summary/internal/logger"
	"github.com/codebuildervaibhav/video-summary/internal/types"
)

// earlyChunks is the size of the early subset used for classification
const earlyChunks = 2

// OrchestratorOptions bounds fan-out and per-chunk retries
type OrchestratorOptions struct {
	Concurrency    int
	MaxAttempts    int
	InitialBackoff time.Duration
}

// Orchestrator drives speech-to-text over chunks in two phases
type Orchestrator struct {
	stt  Transcriber
	opts OrchestratorOptions
	log  *logger.Logger
}

// NewOrchestrator creates an Orchestrator
func NewOrchestrator(stt Transcriber, opts OrchestratorOptions, log *logger.Logger) *Orchestrator {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = time.Second
	}
	return &Orchestrator{stt: stt, opts: opts, log: log.Component("orchestrator")}
}

// EarlyCount is the number of chunks in the early phase
func EarlyCount(n int) int {
	return min(earlyChunks, n)
}

// TranscribeEarly transcribes the first EarlyCount chunks and returns their
// text joined in index order. It returns only after every early chunk is done.
func (o *Orchestrator) TranscribeEarly(ctx context.Context, chunks []types.Chunk) (string, error) {
	texts, err := o.transcribeAll(ctx, chunks[:EarlyCount(len(chunks))])
	if err != nil {
		return "", err
	}
	return joinTexts(texts), nil
}

// TranscribeRest transcribes the chunks after the early subset and appends
// their text to early, producing the full transcript.
func (o *Orchestrator) TranscribeRest(ctx context.Context, chunks []types.Chunk, early string) (string, error) {
	rest := chunks[EarlyCount(len(chunks)):]
	if len(rest) == 0 {
		return early, nil
	}

	texts, err := o.transcribeAll(ctx, rest)
	if err != nil {
		return "", err
	}
	return joinTexts([]string{early, joinTexts(texts)}), nil
}

// transcribeAll fans out over chunks with bounded concurrency. Results are
// stored by position so completion order does not matter.
func (o *Orchestrator) transcribeAll(ctx context.Context, chunks []types.Chunk) ([]string, error) {
	results := make([]string, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.opts.Concurrency)

	for i, c := range chunks {
		i, c := i, c
		g.Go(func() error {
			text, err := o.transcribeChunk(gctx, c)
			if err != nil {
				return fmt.Errorf("chunk %d: %w", c.Index, err)
			}
			results[i] = text
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// transcribeChunk retries transient failures with exponential backoff.
// Client errors other than 429 are not retried.
func (o *Orchestrator) transcribeChunk(ctx context.Context, c types.Chunk) (string, error) {
	var text string
	attempt := 0

	op := func() error {
		attempt++
		t, err := o.stt.Transcribe(ctx, c.Path)
		if err != nil {
			var se *StatusError
			if errors.As(err, &se) && !se.Retryable() {
				return backoff.Permanent(err)
			}
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			o.log.WithError(err).WithField("chunk", c.Index).WithField("attempt", attempt).Warn("chunk transcription failed")
			return err
		}
		text = t
		return nil
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = o.opts.InitialBackoff
	eb.MaxElapsedTime = 0
	b := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(o.opts.MaxAttempts-1)), ctx)

	if err := backoff.Retry(op, b); err != nil {
		return "", err
	}
	return text, nil
}

// joinTexts joins non-empty trimmed parts with single spaces
func joinTexts(parts []string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}

// WordCount counts non-empty whitespace-separated tokens
func WordCount(text string) int {
	return len(strings.Fields(text))
}
