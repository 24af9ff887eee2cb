package progress

import (
	"sync"

	"github.com/codebuildervaibhav/video-summary/internal/types"
)

// Finisher is a Sink that tracks job completion
type Finisher interface {
	Sink
	Finish(ev types.ProgressEvent)
}

// Job emits progress for one job to every sink. Percent never decreases
// except for the terminal failed event, which is always 0.
type Job struct {
	id    string
	sinks []Sink

	mu   sync.Mutex
	last int
}

// NewJob creates a progress handle for jobID. Nil sinks are skipped.
func NewJob(jobID string, sinks ...Sink) *Job {
	j := &Job{id: jobID}
	for _, s := range sinks {
		if s != nil {
			j.sinks = append(j.sinks, s)
		}
	}
	return j
}

// ID returns the job identifier
func (j *Job) ID() string { return j.id }

// Emit reports a stage update. Percent is clamped to [last, 100].
func (j *Job) Emit(stage string, percent int, note string, partial any) {
	j.mu.Lock()
	percent = max(min(percent, 100), j.last)
	j.last = percent
	j.mu.Unlock()

	j.dispatch(types.ProgressEvent{JobID: j.id, Stage: stage, Percent: percent, Note: note, Partial: partial})
}

// Fail reports the terminal failed event
func (j *Job) Fail(note string, partial any) {
	j.finish(types.ProgressEvent{JobID: j.id, Stage: types.StageFailed, Percent: 0, Note: note, Partial: partial})
}

// Done closes the job on sinks that track completion. The external sink
// learns about completion from the HTTP response, so it gets nothing here.
func (j *Job) Done(partial any) {
	j.mu.Lock()
	j.last = 100
	j.mu.Unlock()

	ev := types.ProgressEvent{JobID: j.id, Stage: types.StageDone, Percent: 100, Partial: partial}
	for _, s := range j.sinks {
		if f, ok := s.(Finisher); ok {
			f.Finish(ev)
		}
	}
}

// Last returns the highest percent emitted so far
func (j *Job) Last() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.last
}

func (j *Job) finish(ev types.ProgressEvent) {
	for _, s := range j.sinks {
		if f, ok := s.(Finisher); ok {
			f.Finish(ev)
			continue
		}
		s.Report(ev)
	}
}

func (j *Job) dispatch(ev types.ProgressEvent) {
	for _, s := range j.sinks {
		s.Report(ev)
	}
}
