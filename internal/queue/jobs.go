package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/codebuildervaibhav/video-summary/internal/pipeline"
	"github.com/codebuildervaibhav/video-summary/internal/storage"
)

// Job status values
const (
	StatusQueued    = "queued"
	StatusExporting = "exporting"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Job represents the export of one finished summary
type Job struct {
	ID        string
	Record    *storage.Record
	Status    string
	Error     error
	CreatedAt time.Time
}

// NewJob builds an export job from a pipeline result
func NewJob(res *pipeline.Result) (*Job, error) {
	doc, err := json.Marshal(res.Summary)
	if err != nil {
		return nil, fmt.Errorf("failed to encode summary: %w", err)
	}

	rec := &storage.Record{
		SummaryID:   res.SummaryID,
		Title:       res.VideoInfo.Title,
		Platform:    string(res.VideoInfo.Platform),
		SourceURL:   res.VideoInfo.URL,
		SummaryType: string(res.Summary.Kind()),
		WordCount:   res.WordCount,
		Document:    doc,
		Transcript:  res.Transcription,
		CreatedAt:   time.Now(),
	}
	if res.VideoInfo.Duration != nil {
		rec.Duration = *res.VideoInfo.Duration
	}

	return &Job{
		ID:        res.SummaryID,
		Record:    rec,
		Status:    StatusQueued,
		CreatedAt: rec.CreatedAt,
	}, nil
}
