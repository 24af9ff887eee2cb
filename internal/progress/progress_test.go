package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/codebuildervaibhav/video-summary/internal/logger"
	"github.com/codebuildervaibhav/video-summary/internal/types"
)

type recordingSink struct {
	mu     sync.Mutex
	events []types.ProgressEvent
}

func (r *recordingSink) Report(ev types.ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// TestJobPercentMonotonic checks clamping and the failed exemption.
func TestJobPercentMonotonic(t *testing.T) {
	sink := &recordingSink{}
	j := NewJob("s1", sink, nil)

	j.Emit(types.StageFetchingAudio, 5, "", nil)
	j.Emit(types.StageTranscribing, 40, "", "partial")
	j.Emit(types.StageClassifying, 30, "", nil)
	j.Emit(types.StageFinalizing, 250, "", nil)
	j.Fail("boom", nil)

	want := []int{5, 40, 40, 100, 0}
	if len(sink.events) != len(want) {
		t.Fatalf("events = %d, want %d", len(sink.events), len(want))
	}
	for i, ev := range sink.events {
		if ev.Percent != want[i] {
			t.Fatalf("event %d percent = %d, want %d", i, ev.Percent, want[i])
		}
		if ev.JobID != "s1" {
			t.Fatalf("event %d job = %q", i, ev.JobID)
		}
	}
	if sink.events[4].Stage != types.StageFailed || sink.events[4].Note != "boom" {
		t.Fatalf("failed event = %+v", sink.events[4])
	}
}

// TestReporterPostsPayload checks the wire shape and bearer token.
func TestReporterPostsPayload(t *testing.T) {
	got := make(chan map[string]any, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("auth = %q", r.Header.Get("Authorization"))
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		got <- body
	}))
	defer srv.Close()

	r := NewReporter(srv.URL, "tok", 8, time.Second, logger.Discard())
	r.Report(types.ProgressEvent{JobID: "abc", Stage: types.StageTranscribing, Percent: 40, Note: "early", Partial: map[string]string{"transcript": "hi"}})
	if err := r.Close(context.Background()); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	select {
	case body := <-got:
		if body["summaryId"] != "abc" || body["stage"] != "transcribing" || body["percent"] != float64(40) || body["note"] != "early" {
			t.Fatalf("body = %v", body)
		}
		if partial, ok := body["partial"].(map[string]any); !ok || partial["transcript"] != "hi" {
			t.Fatalf("partial = %v", body["partial"])
		}
	default:
		t.Fatal("no request received")
	}
}

// TestReporterSwallowsFailures verifies sink errors never surface and never block.
func TestReporterSwallowsFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	r := NewReporter(srv.URL, "", 1, time.Second, logger.Discard())
	for i := 0; i < 50; i++ {
		r.Report(types.ProgressEvent{JobID: "x", Percent: i})
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.Close(ctx); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	// reporting after close is a no-op
	r.Report(types.ProgressEvent{JobID: "x"})
}

func TestReporterDisabledIsNoop(t *testing.T) {
	r := NewReporter("", "", 0, 0, logger.Discard())
	if r.Enabled() {
		t.Fatal("expected disabled reporter")
	}
	r.Report(types.ProgressEvent{JobID: "x"})
	if err := r.Close(context.Background()); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
}

// TestHubSubscribeReceivesHistoryAndLive checks replay, live delivery and close on finish.
func TestHubSubscribeReceivesHistoryAndLive(t *testing.T) {
	h := NewHub(10, time.Minute)
	h.Report(types.ProgressEvent{JobID: "j", Stage: types.StageFetchingAudio, Percent: 5})

	history, events, cancel := h.Subscribe("j")
	defer cancel()
	if len(history) != 1 || history[0].Stage != types.StageFetchingAudio || history[0].Seq == 0 {
		t.Fatalf("history = %+v", history)
	}

	h.Report(types.ProgressEvent{JobID: "j", Stage: types.StageChunking, Percent: 20})
	h.Report(types.ProgressEvent{JobID: "other", Stage: types.StageChunking, Percent: 20})
	h.Finish(types.ProgressEvent{JobID: "j", Stage: types.StageDone, Percent: 100})

	var stages []string
	for ev := range events {
		stages = append(stages, ev.Stage)
	}
	if len(stages) != 2 || stages[0] != types.StageChunking || stages[1] != types.StageDone {
		t.Fatalf("stages = %v", stages)
	}

	// late subscribers get the full history and a closed channel
	history, events, _ = h.Subscribe("j")
	if len(history) != 3 {
		t.Fatalf("history = %d events, want 3", len(history))
	}
	if _, open := <-events; open {
		t.Fatal("expected closed channel for finished job")
	}
}

func TestHubBoundsHistory(t *testing.T) {
	h := NewHub(3, time.Minute)
	for i := 0; i < 10; i++ {
		h.Report(types.ProgressEvent{JobID: "j", Percent: i})
	}
	history, _, cancel := h.Subscribe("j")
	defer cancel()
	if len(history) != 3 || history[0].Percent != 7 {
		t.Fatalf("history = %+v", history)
	}
}

// TestJobTerminalEventsRouteToHub checks that done reaches only finishing sinks.
func TestJobTerminalEventsRouteToHub(t *testing.T) {
	hub := NewHub(10, time.Minute)
	plain := &recordingSink{}

	ok := NewJob("ok", hub, plain)
	ok.Emit(types.StageFinalizing, 95, "", nil)
	ok.Done(nil)
	if len(plain.events) != 1 {
		t.Fatalf("plain sink events = %d, want 1", len(plain.events))
	}
	history, _, _ := hub.Subscribe("ok")
	if len(history) != 2 || history[1].Stage != types.StageDone || history[1].Percent != 100 {
		t.Fatalf("hub history = %+v", history)
	}

	bad := NewJob("bad", hub, plain)
	bad.Fail("boom", nil)
	if last := plain.events[len(plain.events)-1]; last.Stage != types.StageFailed {
		t.Fatalf("plain sink last = %+v", last)
	}
	_, events, _ := hub.Subscribe("bad")
	if _, open := <-events; open {
		t.Fatal("expected failed job to be finished on the hub")
	}
}

// TestHubRetryAfterFailureStartsFreshLog checks that a second run under the
// same id is visible once the first one failed.
func TestHubRetryAfterFailureStartsFreshLog(t *testing.T) {
	hub := NewHub(10, time.Minute)

	first := NewJob("s1", hub)
	first.Emit(types.StageFetchingAudio, 5, "a", nil)
	first.Fail("boom", nil)

	retry := NewJob("s1", hub)
	retry.Emit(types.StageFetchingAudio, 5, "b", nil)

	history, events, cancel := hub.Subscribe("s1")
	defer cancel()
	if len(history) != 1 || history[0].Note != "b" {
		t.Fatalf("history = %+v, want only the retry's first event", history)
	}

	retry.Emit(types.StageDownloading, 10, "", nil)
	retry.Done(nil)

	var stages []string
	for ev := range events {
		stages = append(stages, ev.Stage)
	}
	if len(stages) != 2 || stages[0] != types.StageDownloading || stages[1] != types.StageDone {
		t.Fatalf("live stages = %v, want [downloading done]", stages)
	}
}

func TestHubForgetsUnknownJobsOnCancel(t *testing.T) {
	hub := NewHub(10, time.Minute)
	for i := 0; i < 100; i++ {
		_, _, cancel := hub.Subscribe(fmt.Sprintf("nope-%d", i))
		cancel()
	}

	hub.Report(types.ProgressEvent{JobID: "live", Stage: types.StageChunking, Percent: 20})
	_, _, cancel := hub.Subscribe("live")
	cancel()

	hub.mu.Lock()
	n := len(hub.jobs)
	hub.mu.Unlock()
	if n != 1 {
		t.Fatalf("hub tracks %d jobs, want 1", n)
	}
}
