package command

import (
	"errors"
	"strings"
	"testing"
)

// TestWrapPrefersStderr checks the diagnostic tail comes from stderr when present.
func TestWrapPrefersStderr(t *testing.T) {
	cause := errors.New("exit status 1")
	err := Wrap("yt-dlp", Result{Stdout: "progress", Stderr: "ERROR: private video", ExitCode: 1}, cause)

	var cmdErr *Error
	if !errors.As(err, &cmdErr) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if cmdErr.Output != "ERROR: private video" {
		t.Fatalf("output = %q", cmdErr.Output)
	}
	if !errors.Is(err, cause) {
		t.Fatal("expected wrapped cause")
	}
	if !strings.Contains(err.Error(), "yt-dlp failed (exit 1)") {
		t.Fatalf("message = %q", err.Error())
	}
}

func TestWrapNil(t *testing.T) {
	if err := Wrap("ffmpeg", Result{}, nil); err != nil {
		t.Fatalf("Wrap(nil) = %v", err)
	}
}

func TestTail(t *testing.T) {
	if got := Tail("  short  ", 10); got != "short" {
		t.Fatalf("Tail() = %q", got)
	}
	if got := Tail("abcdefghij", 4); got != "...ghij" {
		t.Fatalf("Tail() = %q", got)
	}
}
