package progress

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/codebuildervaibhav/video-summary/internal/logger"
	"github.com/codebuildervaibhav/video-summary/internal/types"
)

// Sink receives progress events. Implementations must not block.
type Sink interface {
	Report(ev types.ProgressEvent)
}

// Reporter pushes events to an external HTTP sink from a single sender
// goroutine. Failures are logged and dropped.
type Reporter struct {
	url    string
	token  string
	client *http.Client
	log    *logger.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan types.ProgressEvent
	done   chan struct{}
}

// NewReporter creates a Reporter. With an empty url every call is a no-op.
func NewReporter(url, token string, queueSize int, timeout time.Duration, log *logger.Logger) *Reporter {
	if queueSize <= 0 {
		queueSize = 64
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	r := &Reporter{
		url:    url,
		token:  token,
		client: &http.Client{Timeout: timeout},
		log:    log.Component("progress"),
		done:   make(chan struct{}),
	}
	if url == "" {
		close(r.done)
		return r
	}
	r.queue = make(chan types.ProgressEvent, queueSize)
	go r.run()
	return r
}

// Enabled reports whether a sink URL is configured
func (r *Reporter) Enabled() bool { return r.url != "" }

// Report enqueues ev without blocking; a full queue drops the event.
func (r *Reporter) Report(ev types.ProgressEvent) {
	if r.url == "" {
		return
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}

	select {
	case r.queue <- ev:
	default:
		r.log.WithField("summary_id", ev.JobID).WithField("stage", ev.Stage).Warn("progress queue full, dropping event")
	}
}

// Close stops accepting events and waits for the queue to drain or ctx to end.
func (r *Reporter) Close(ctx context.Context) error {
	r.mu.Lock()
	if !r.closed && r.queue != nil {
		r.closed = true
		close(r.queue)
	}
	r.mu.Unlock()

	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Reporter) run() {
	defer close(r.done)
	for ev := range r.queue {
		if err := r.send(ev); err != nil {
			r.log.WithError(err).WithField("summary_id", ev.JobID).WithField("stage", ev.Stage).Warn("progress update failed")
		}
	}
}

func (r *Reporter) send(ev types.ProgressEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.client.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("progress sink returned %d", resp.StatusCode)
	}
	return nil
}
