package pipeline

import (
	"fmt"
	"time"

	"github.com/codebuildervaibhav/video-summary/internal/types"
)

// State tracks each pipeline stage for a single job.
type State string

const (
	StateCreated           State = "created"
	StateAcquiring         State = "acquiring"
	StateNormalizing       State = "normalizing"
	StateSegmenting        State = "segmenting"
	StateTranscribingEarly State = "transcribing_early"
	StateClassifying       State = "classifying"
	StateTranscribingRest  State = "transcribing_rest"
	StateStructuring       State = "structuring"
	StateFinalizing        State = "finalizing"
	StateDone              State = "done"
	StateFailed            State = "failed"
)

// order lists the non-terminal states in pipeline order.
var order = []State{
	StateCreated,
	StateAcquiring,
	StateNormalizing,
	StateSegmenting,
	StateTranscribingEarly,
	StateClassifying,
	StateTranscribingRest,
	StateStructuring,
	StateFinalizing,
	StateDone,
}

// Job is the in-memory record of one pipeline run. It is never persisted.
type Job struct {
	ID        string         `json:"id"`
	SourceURL string         `json:"sourceUrl"`
	Platform  types.Platform `json:"platform"`
	State     State          `json:"state"`
	StartedAt time.Time      `json:"startedAt"`
}

// NewJob creates a job in the created state.
func NewJob(id, sourceURL string, p types.Platform, now time.Time) *Job {
	return &Job{ID: id, SourceURL: sourceURL, Platform: p, State: StateCreated, StartedAt: now}
}

// Transition validates and applies a state change.
func (j *Job) Transition(to State) error {
	if !isValidTransition(j.State, to) {
		return fmt.Errorf("invalid transition: %s -> %s", j.State, to)
	}
	j.State = to
	return nil
}

// Terminal reports whether the job has finished.
func (j *Job) Terminal() bool {
	return j.State == StateDone || j.State == StateFailed
}

// isValidTransition allows each non-terminal state to advance to its
// successor or to failed. Terminal states are final.
func isValidTransition(from, to State) bool {
	if from == StateDone || from == StateFailed {
		return false
	}
	if to == StateFailed {
		return true
	}
	for i, s := range order[:len(order)-1] {
		if s == from {
			return order[i+1] == to
		}
	}
	return false
}
