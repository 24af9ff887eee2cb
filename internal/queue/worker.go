package queue

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"github.com/codebuildervaibhav/video-summary/internal/logger"
	"github.com/codebuildervaibhav/video-summary/internal/storage"
)

// ErrQueueFull is returned when the export backlog is at capacity
var ErrQueueFull = errors.New("export queue full")

// ErrPoolStopped is returned after Stop
var ErrPoolStopped = errors.New("export pool stopped")

// LocalStore writes summaries to disk
type LocalStore interface {
	SaveSummary(rec *storage.Record) (string, error)
}

// Uploader pushes summaries to remote storage
type Uploader interface {
	Upload(ctx context.Context, rec *storage.Record) (string, error)
}

// Archive records summary metadata
type Archive interface {
	SaveSummary(rec *storage.Record) error
}

// Options configures a WorkerPool
type Options struct {
	Workers        int
	QueueSize      int
	UploadAttempts int
	InitialBackoff time.Duration
	UploadTimeout  time.Duration
}

// WorkerPool exports finished summaries in the background
type WorkerPool struct {
	jobQueue chan *Job
	opts     Options
	local    LocalStore
	uploader Uploader
	archive  Archive
	log      *logger.Logger

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup

	// OnDone is called after each job finishes; used by tests
	OnDone func(job *Job)
}

// NewWorkerPool creates a new worker pool. uploader and archive may be nil.
func NewWorkerPool(opts Options, local LocalStore, uploader Uploader, archive Archive, log *logger.Logger) *WorkerPool {
	if opts.Workers <= 0 {
		opts.Workers = 2
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 100
	}
	if opts.UploadAttempts <= 0 {
		opts.UploadAttempts = 3
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = time.Second
	}
	if opts.UploadTimeout <= 0 {
		opts.UploadTimeout = 2 * time.Minute
	}

	return &WorkerPool{
		jobQueue: make(chan *Job, opts.QueueSize),
		opts:     opts,
		local:    local,
		uploader: uploader,
		archive:  archive,
		log:      log.Component("export"),
	}
}

// Start launches the workers
func (wp *WorkerPool) Start() {
	wp.log.WithField("workers", wp.opts.Workers).Info("starting export worker pool")
	for i := 0; i < wp.opts.Workers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Enqueue adds a job without blocking the caller
func (wp *WorkerPool) Enqueue(job *Job) error {
	wp.mu.RLock()
	defer wp.mu.RUnlock()
	if wp.stopped {
		return ErrPoolStopped
	}

	job.Status = StatusQueued
	select {
	case wp.jobQueue <- job:
		wp.log.WithField("summary_id", job.ID).Debug("export job enqueued")
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop closes the queue and waits for in-flight exports
func (wp *WorkerPool) Stop(ctx context.Context) error {
	wp.mu.Lock()
	if !wp.stopped {
		wp.stopped = true
		close(wp.jobQueue)
	}
	wp.mu.Unlock()

	done := make(chan struct{})
	go func() {
		wp.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// worker processes jobs from the queue
func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()
	log := wp.log.WithField("worker", id)

	for job := range wp.jobQueue {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.WithField("summary_id", job.ID).WithField("stack", string(debug.Stack())).
						Errorf("panic exporting summary: %v", r)
					job.Status = StatusFailed
					job.Error = fmt.Errorf("worker panic: %v", r)
				}
				if wp.OnDone != nil {
					wp.OnDone(job)
				}
			}()

			wp.processJob(log, job)
		}()
	}
}

// processJob saves locally, uploads to Drive with retry, then archives
func (wp *WorkerPool) processJob(log *logrus.Entry, job *Job) {
	log = log.WithField("summary_id", job.ID)
	job.Status = StatusExporting
	rec := job.Record

	// Step 1: Save locally
	localPath, err := wp.local.SaveSummary(rec)
	if err != nil {
		log.WithField("error", err.Error()).Error("local save failed")
		job.Status = StatusFailed
		job.Error = fmt.Errorf("local save failed: %w", err)
		return
	}
	rec.LocalPath = localPath

	// Step 2: Upload to Google Drive
	if wp.uploader != nil {
		if url, err := wp.upload(rec); err != nil {
			log.WithField("error", err.Error()).Warn("drive upload failed, keeping local copy only")
		} else {
			rec.GDriveURL = url
		}
	}

	// Step 3: Archive metadata
	if wp.archive != nil {
		if err := wp.archive.SaveSummary(rec); err != nil {
			log.WithField("error", err.Error()).Error("database save failed")
		}
	}

	job.Status = StatusCompleted
	log.WithFields(logrus.Fields{"local": localPath, "gdrive": rec.GDriveURL}).Info("summary exported")
}

func (wp *WorkerPool) upload(rec *storage.Record) (string, error) {
	var url string
	attempt := 0

	op := func() error {
		attempt++
		ctx, cancel := context.WithTimeout(context.Background(), wp.opts.UploadTimeout)
		defer cancel()

		u, err := wp.uploader.Upload(ctx, rec)
		if err != nil {
			wp.log.WithField("summary_id", rec.SummaryID).WithField("attempt", attempt).
				WithField("error", err.Error()).Warn("drive upload attempt failed")
			return err
		}
		url = u
		return nil
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = wp.opts.InitialBackoff
	eb.MaxElapsedTime = 0
	if err := backoff.Retry(op, backoff.WithMaxRetries(eb, uint64(wp.opts.UploadAttempts-1))); err != nil {
		return "", err
	}
	return url, nil
}
