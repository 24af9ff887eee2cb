package classify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/codebuildervaibhav/video-summary/internal/logger"
	"github.com/codebuildervaibhav/video-summary/internal/types"
)

type fakeCompleter struct {
	reply  string
	err    error
	prompt string
	calls  int
}

func (f *fakeCompleter) Complete(_ context.Context, _, prompt string) (string, error) {
	f.calls++
	f.prompt = prompt
	return f.reply, f.err
}

func TestClassifyParsesLabel(t *testing.T) {
	fc := &fakeCompleter{reply: "Here:\n{\"type\":\"Recipe\",\"confidence\":0.92,\"rationale\":\"mentions flour and oven\"}"}
	got := New(fc, logger.Discard()).Classify(context.Background(), "add two cups of flour", "Bread")

	if got.Type != types.ContentRecipe {
		t.Fatalf("type = %q, want recipe", got.Type)
	}
	if got.Confidence != 0.92 || got.Rationale != "mentions flour and oven" {
		t.Fatalf("classification = %+v", got)
	}
	if !strings.Contains(fc.prompt, "Bread") {
		t.Fatalf("prompt missing title: %q", fc.prompt)
	}
}

// TestClassifyAlwaysReturnsClosedSet checks every bad outcome maps to story.
func TestClassifyAlwaysReturnsClosedSet(t *testing.T) {
	cases := map[string]*fakeCompleter{
		"call error":    {err: errors.New("timeout")},
		"no json":       {reply: "I think it's a recipe"},
		"unknown label": {reply: `{"type":"documentary","confidence":0.8}`},
		"missing label": {reply: `{"confidence":0.8}`},
		"bad json":      {reply: `{"type": recipe}`},
	}
	for name, fc := range cases {
		got := New(fc, logger.Discard()).Classify(context.Background(), "some words", "t")
		if got.Type != types.ContentStory {
			t.Fatalf("%s: type = %q, want story", name, got.Type)
		}
		if !got.Type.Valid() {
			t.Fatalf("%s: invalid type %q", name, got.Type)
		}
	}
}

// TestClassifyEmptyTranscriptSkipsCall verifies empty input defaults to story.
func TestClassifyEmptyTranscriptSkipsCall(t *testing.T) {
	fc := &fakeCompleter{reply: `{"type":"recipe"}`}
	got := New(fc, logger.Discard()).Classify(context.Background(), "   ", "Title")
	if got.Type != types.ContentStory {
		t.Fatalf("type = %q, want story", got.Type)
	}
	if fc.calls != 0 {
		t.Fatalf("calls = %d, want 0", fc.calls)
	}
}

func TestClassifyClampsConfidence(t *testing.T) {
	fc := &fakeCompleter{reply: `{"type":"tutorial","confidence":7}`}
	if got := New(fc, logger.Discard()).Classify(context.Background(), "x", ""); got.Confidence != 1 {
		t.Fatalf("confidence = %v, want 1", got.Confidence)
	}
	fc = &fakeCompleter{reply: `{"type":"tutorial","confidence":-0.5}`}
	if got := New(fc, logger.Discard()).Classify(context.Background(), "x", ""); got.Confidence != 0 {
		t.Fatalf("confidence = %v, want 0", got.Confidence)
	}
}

// TestClassifyTruncatesTranscript checks only the bounded prefix is sent.
func TestClassifyTruncatesTranscript(t *testing.T) {
	fc := &fakeCompleter{reply: `{"type":"story"}`}
	long := strings.Repeat("é", PrefixChars+500)
	New(fc, logger.Discard()).Classify(context.Background(), long, "")

	if strings.Count(fc.prompt, "é") != PrefixChars {
		t.Fatalf("prompt carries %d chars, want %d", strings.Count(fc.prompt, "é"), PrefixChars)
	}
	if !utf8.ValidString(fc.prompt) {
		t.Fatal("prompt is not valid UTF-8")
	}
}

func TestPrefix(t *testing.T) {
	if got := Prefix("héllo", 2); got != "hé" {
		t.Fatalf("Prefix() = %q", got)
	}
	if got := Prefix("abc", 10); got != "abc" {
		t.Fatalf("Prefix() = %q", got)
	}
	if got := Prefix("abc", 0); got != "" {
		t.Fatalf("Prefix() = %q", got)
	}
}

// TestClassifyToleratesLooseConfidence keeps a valid label when the
// confidence is not a plain number.
func TestClassifyToleratesLooseConfidence(t *testing.T) {
	cases := map[string]float64{
		`{"type":"tutorial","confidence":"0.8","rationale":"how-to"}`: 0.8,
		`{"type":"tutorial","confidence":"75%"}`:                      0.75,
		`{"type":"tutorial","confidence":"high"}`:                     0,
		`{"type":"tutorial","confidence":null}`:                       0,
		`{"type":"tutorial"}`:                                         0,
	}
	for reply, want := range cases {
		got := New(&fakeCompleter{reply: reply}, logger.Discard()).Classify(context.Background(), "fold the paper", "Origami")
		if got.Type != types.ContentTutorial {
			t.Fatalf("%s: type = %q, want tutorial", reply, got.Type)
		}
		if got.Confidence != want {
			t.Fatalf("%s: confidence = %v, want %v", reply, got.Confidence, want)
		}
	}
}
