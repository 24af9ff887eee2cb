package progress

import (
	"sync"
	"time"

	"github.com/codebuildervaibhav/video-summary/internal/types"
)

// Event is a sequenced progress event kept for local observers.
type Event struct {
	Seq       int64     `json:"seq"`
	Timestamp time.Time `json:"timestamp"`
	types.ProgressEvent
}

type jobLog struct {
	events []Event
	subs   map[int]chan Event
	done   bool
}

// Hub keeps recent events per job and fans them out to subscribers.
type Hub struct {
	mu        sync.Mutex
	nextSeq   int64
	nextSub   int
	maxEvents int
	retain    time.Duration
	jobs      map[string]*jobLog
}

// NewHub creates a hub keeping at most maxEvents per job and forgetting
// finished jobs after retain.
func NewHub(maxEvents int, retain time.Duration) *Hub {
	if maxEvents <= 0 {
		maxEvents = 100
	}
	if retain <= 0 {
		retain = 10 * time.Minute
	}
	return &Hub{maxEvents: maxEvents, retain: retain, jobs: make(map[string]*jobLog)}
}

func (h *Hub) job(id string) *jobLog {
	j, ok := h.jobs[id]
	if !ok {
		j = &jobLog{subs: make(map[int]chan Event)}
		h.jobs[id] = j
	}
	return j
}

// Report records ev and forwards it to live subscribers. Slow subscribers
// miss events rather than block the pipeline.
func (h *Hub) Report(ev types.ProgressEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.publishLocked(ev)
}

// publishLocked records ev. An event for a finished job starts a new run
// under the same id; the old log's subscribers were already closed.
func (h *Hub) publishLocked(ev types.ProgressEvent) *jobLog {
	j := h.job(ev.JobID)
	if j.done {
		j = &jobLog{subs: make(map[int]chan Event)}
		h.jobs[ev.JobID] = j
	}

	h.nextSeq++
	e := Event{Seq: h.nextSeq, Timestamp: time.Now().UTC(), ProgressEvent: ev}

	j.events = append(j.events, e)
	if len(j.events) > h.maxEvents {
		j.events = append([]Event(nil), j.events[len(j.events)-h.maxEvents:]...)
	}

	for _, ch := range j.subs {
		select {
		case ch <- e:
		default:
		}
	}
	return j
}

// Finish publishes a terminal event, closes subscriber channels and
// schedules the job's history for removal.
func (h *Hub) Finish(ev types.ProgressEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	j := h.publishLocked(ev)
	j.done = true
	for id, ch := range j.subs {
		close(ch)
		delete(j.subs, id)
	}

	jobID := ev.JobID
	time.AfterFunc(h.retain, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if cur, ok := h.jobs[jobID]; ok && cur == j {
			delete(h.jobs, jobID)
		}
	})
}

// Subscribe returns the job's history so far and a channel of later events.
// The channel is closed when the job finishes; cancel releases it early.
func (h *Hub) Subscribe(jobID string) (history []Event, events <-chan Event, cancel func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	j := h.job(jobID)
	history = append([]Event(nil), j.events...)

	ch := make(chan Event, 32)
	if j.done {
		close(ch)
		return history, ch, func() {}
	}

	h.nextSub++
	id := h.nextSub
	j.subs[id] = ch

	var once sync.Once
	cancel = func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if c, ok := j.subs[id]; ok {
				close(c)
				delete(j.subs, id)
			}
			// Drop logs that only existed for this subscriber.
			if len(j.events) == 0 && len(j.subs) == 0 && !j.done && h.jobs[jobID] == j {
				delete(h.jobs, jobID)
			}
		})
	}
	return history, ch, cancel
}
