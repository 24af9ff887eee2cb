package summary

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/codebuildervaibhav/video-summary/internal/logger"
	"github.com/codebuildervaibhav/video-summary/internal/types"
)

type fakeCompleter struct {
	reply string
	err   error
	calls int
}

func (f *fakeCompleter) Complete(context.Context, string, string) (string, error) {
	f.calls++
	return f.reply, f.err
}

func synth(reply string, err error) (*Synthesizer, *fakeCompleter) {
	fc := &fakeCompleter{reply: reply, err: err}
	return New(fc, logger.Discard()), fc
}

// TestRecipeDecodeAndNormalize covers coercion of a messy but valid reply.
func TestRecipeDecodeAndNormalize(t *testing.T) {
	reply := `Here is the recipe:
{"title":"  Garlic Bread ","intro":"Quick side.",
 "ingredients":["1 baguette", "", {"quantity":"3 cloves","name":"garlic"}, null],
 "steps":[{"step":4,"instruction":"Slice bread"},{"step":9,"instruction":"  "},"Spread butter",{"text":"Bake 10 min"}],
 "notes":null}
Enjoy!`
	s, _ := synth(reply, nil)
	doc := s.Synthesize(context.Background(), Input{Type: types.ContentRecipe, Transcript: "slice the bread...", Title: "meta title"})

	r, ok := doc.(*RecipeDocument)
	if !ok {
		t.Fatalf("doc = %T, want *RecipeDocument", doc)
	}
	if r.Type != KindRecipe || r.Category != "recipe" {
		t.Fatalf("type/category = %q/%q", r.Type, r.Category)
	}
	if r.Title != "Garlic Bread" {
		t.Fatalf("title = %q", r.Title)
	}
	if want := []string{"1 baguette", "3 cloves garlic"}; !reflect.DeepEqual(r.Ingredients, want) {
		t.Fatalf("ingredients = %q, want %q", r.Ingredients, want)
	}
	wantSteps := []Step{{1, "Slice bread"}, {2, "Spread butter"}, {3, "Bake 10 min"}}
	if !reflect.DeepEqual(r.Steps, wantSteps) {
		t.Fatalf("steps = %+v", r.Steps)
	}
	if r.Notes == nil || len(r.Notes) != 0 {
		t.Fatalf("notes = %#v, want empty non-nil", r.Notes)
	}
	if r.Failed() {
		t.Fatal("document should not be marked failed")
	}
}

// TestMalformedTutorialFallsBack verifies the fallback shape for bad JSON.
func TestMalformedTutorialFallsBack(t *testing.T) {
	s, _ := synth(`{"title": "Shelf", "steps": [`, nil)
	doc := s.Synthesize(context.Background(), Input{Type: types.ContentTutorial, Transcript: "drill two holes", Title: "DIY shelf"})

	tut, ok := doc.(*TutorialDocument)
	if !ok {
		t.Fatalf("doc = %T, want *TutorialDocument", doc)
	}
	if tut.Type != KindTutorial {
		t.Fatalf("type = %q", tut.Type)
	}
	if want := []Step{{1, FailedText}}; !reflect.DeepEqual(tut.Steps, want) {
		t.Fatalf("steps = %+v", tut.Steps)
	}
	if tut.Materials == nil || len(tut.Materials) != 0 || tut.Tips == nil || len(tut.Tips) != 0 {
		t.Fatalf("materials/tips = %#v / %#v", tut.Materials, tut.Tips)
	}
	if len(tut.Warnings) != 1 || !strings.HasPrefix(tut.Warnings[0], failedNotePrefix) {
		t.Fatalf("warnings = %q", tut.Warnings)
	}
	if !tut.Failed() || tut.Title != "DIY shelf" {
		t.Fatalf("doc = %+v", tut)
	}

	raw, _ := json.Marshal(doc)
	var m map[string]any
	_ = json.Unmarshal(raw, &m)
	for _, key := range []string{"materials", "tips", "warnings", "steps"} {
		if _, ok := m[key].([]any); !ok {
			t.Fatalf("%s serialized as %T, want array", key, m[key])
		}
	}
}

func TestRecipeCallErrorFallsBackWithNote(t *testing.T) {
	s, _ := synth("", errors.New("llm returned 500"))
	doc := s.Synthesize(context.Background(), Input{Type: types.ContentRecipe, Transcript: "x", Title: "T"})

	r := doc.(*RecipeDocument)
	if r.Steps[0].Instruction != FailedText {
		t.Fatalf("steps = %+v", r.Steps)
	}
	if len(r.Notes) != 1 || !strings.Contains(r.Notes[0], "llm returned 500") {
		t.Fatalf("notes = %q", r.Notes)
	}
	if r.Ingredients == nil {
		t.Fatal("ingredients is nil")
	}
}

func TestNoStepsPlaceholder(t *testing.T) {
	s, _ := synth(`{"title":"Talk","steps":[{"instruction":""},{"step":2}]}`, nil)
	doc := s.Synthesize(context.Background(), Input{Type: types.ContentTutorial, Transcript: "words"})

	tut := doc.(*TutorialDocument)
	if want := []Step{{1, NoStepsText}}; !reflect.DeepEqual(tut.Steps, want) {
		t.Fatalf("steps = %+v", tut.Steps)
	}
}

// TestGeneralKeepsReadableWhenWordsMatch accepts re-punctuation only.
func TestGeneralKeepsReadableWhenWordsMatch(t *testing.T) {
	verbatim := "so yesterday i went to the market and it was closed"
	readable := "So, yesterday I went to the market.\n\nAnd it was closed!"
	s, _ := synth(`{"title":"Market day","readable":`+mustJSON(readable)+`}`, nil)

	doc := s.Synthesize(context.Background(), Input{Type: types.ContentStory, Transcript: verbatim, Title: "meta"})
	g, ok := doc.(*GeneralDocument)
	if !ok {
		t.Fatalf("doc = %T, want *GeneralDocument", doc)
	}
	if g.Type != KindGeneral || g.Category != "general" {
		t.Fatalf("type/category = %q/%q", g.Type, g.Category)
	}
	if g.Transcript.Verbatim != verbatim {
		t.Fatalf("verbatim = %q", g.Transcript.Verbatim)
	}
	if g.Transcript.Readable != readable {
		t.Fatalf("readable = %q", g.Transcript.Readable)
	}
	if g.Title != "Market day" {
		t.Fatalf("title = %q", g.Title)
	}
}

// TestGeneralRejectsRewrittenReadable falls back to verbatim when words change.
func TestGeneralRejectsRewrittenReadable(t *testing.T) {
	verbatim := "so yesterday i went to the market and it was closed"
	s, _ := synth(`{"title":"","readable":"Yesterday, I visited the market. Sadly it was closed."}`, nil)

	g := s.Synthesize(context.Background(), Input{Type: types.ContentStory, Transcript: verbatim, Title: "TikTok video"}).(*GeneralDocument)
	if g.Transcript.Readable != verbatim {
		t.Fatalf("readable = %q, want verbatim", g.Transcript.Readable)
	}
	if g.Title != "TikTok video" {
		t.Fatalf("title = %q, want metadata title", g.Title)
	}
}

// TestGeneralReadableLimitCountsCharacters sends multi-byte transcripts under
// the character limit and skips the call above it.
func TestGeneralReadableLimitCountsCharacters(t *testing.T) {
	under := strings.Repeat("é", maxReadableChars) // twice the limit in bytes
	s, fc := synth(`{"readable":"x"}`, nil)
	s.Synthesize(context.Background(), Input{Type: types.ContentStory, Transcript: under})
	if fc.calls != 1 {
		t.Fatalf("calls = %d, want 1 for %d characters", fc.calls, maxReadableChars)
	}

	over := under + "é"
	s, fc = synth(`{"readable":"x"}`, nil)
	g := s.Synthesize(context.Background(), Input{Type: types.ContentStory, Transcript: over}).(*GeneralDocument)
	if fc.calls != 0 {
		t.Fatalf("calls = %d, want 0 above the limit", fc.calls)
	}
	if g.Transcript.Readable != over {
		t.Fatal("readable should equal verbatim above the limit")
	}
}

func TestUnknownTypeRoutesToGeneral(t *testing.T) {
	s, _ := synth(`{"readable":"hi"}`, nil)
	doc := s.Synthesize(context.Background(), Input{Type: types.ContentType("poem"), Transcript: "hi"})
	if doc.Kind() != KindGeneral {
		t.Fatalf("kind = %q, want general", doc.Kind())
	}
}

func TestEmptyTranscriptSkipsCall(t *testing.T) {
	s, fc := synth(`{"title":"x"}`, nil)
	doc := s.Synthesize(context.Background(), Input{Type: types.ContentRecipe, Transcript: "  ", Title: "Reel"})
	if fc.calls != 0 {
		t.Fatalf("calls = %d, want 0", fc.calls)
	}
	r := doc.(*RecipeDocument)
	if r.Title != "Reel" || r.Steps[0].Instruction != NoStepsText {
		t.Fatalf("doc = %+v", r)
	}
}

// TestNormalizeIdempotent applies Normalize twice to every variant.
func TestNormalizeIdempotent(t *testing.T) {
	docs := []func() Document{
		func() Document {
			return &RecipeDocument{Title: " a ", Ingredients: []string{" x", ""}, Steps: []Step{{7, " b "}, {0, ""}}}
		},
		func() Document {
			return &TutorialDocument{Steps: nil, Warnings: []string{"w"}}
		},
		func() Document {
			return &GeneralDocument{Transcript: TranscriptText{Verbatim: " hello "}}
		},
		func() Document {
			return recipeSchema.fallback(Input{Title: "t", Transcript: "x"}, "boom")
		},
	}
	for i, mk := range docs {
		once := Normalize(mk())
		first, _ := json.Marshal(once)
		second, _ := json.Marshal(Normalize(once))
		if string(first) != string(second) {
			t.Fatalf("doc %d not idempotent:\n%s\n%s", i, first, second)
		}
	}
}

func TestNormalizeArraysNeverNil(t *testing.T) {
	r := Normalize(&RecipeDocument{}).(*RecipeDocument)
	if r.Ingredients == nil || r.Notes == nil || r.Steps == nil {
		t.Fatalf("recipe = %#v", r)
	}
	tut := Normalize(&TutorialDocument{}).(*TutorialDocument)
	if tut.Materials == nil || tut.Tips == nil || tut.Warnings == nil || tut.Steps == nil {
		t.Fatalf("tutorial = %#v", tut)
	}
}

func TestSameWords(t *testing.T) {
	if !sameWords("it's a test", "It's... a TEST.") {
		t.Fatal("expected match")
	}
	if sameWords("a b c", "a c b") {
		t.Fatal("reordered words should not match")
	}
	if sameWords("a b", "a b c") {
		t.Fatal("added word should not match")
	}
}

func mustJSON(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
