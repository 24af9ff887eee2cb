package summary

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/codebuildervaibhav/video-summary/internal/classify"
	"github.com/codebuildervaibhav/video-summary/internal/llm"
	"github.com/codebuildervaibhav/video-summary/internal/logger"
	"github.com/codebuildervaibhav/video-summary/internal/types"
)

const (
	// maxPromptChars caps the transcript sent for structured extraction
	maxPromptChars = 24000
	// maxReadableChars is the longest transcript we ask to re-punctuate;
	// longer ones keep the verbatim text as the readable form.
	maxReadableChars = 12000
)

// Input is everything synthesis needs from earlier stages
type Input struct {
	Type       types.ContentType
	Transcript string
	Title      string
}

// schema is one registered document type
type schema struct {
	kind     Kind
	system   string
	prompt   func(in Input) string
	decode   func(raw map[string]any, in Input) Document
	fallback func(in Input, reason string) Document
}

var registry = map[types.ContentType]schema{
	types.ContentRecipe:   recipeSchema,
	types.ContentTutorial: tutorialSchema,
	types.ContentStory:    generalSchema,
}

func schemaFor(t types.ContentType) schema {
	if sc, ok := registry[t]; ok {
		return sc
	}
	return generalSchema
}

// Synthesizer turns a transcript into a structured document
type Synthesizer struct {
	llm llm.Completer
	log *logger.Logger
}

// New creates a Synthesizer
func New(c llm.Completer, log *logger.Logger) *Synthesizer {
	return &Synthesizer{llm: c, log: log.Component("synthesizer")}
}

// Synthesize never fails: collaborator or parse errors produce a fallback
// document of the same type carrying the error note.
func (s *Synthesizer) Synthesize(ctx context.Context, in Input) Document {
	sc := schemaFor(in.Type)
	in.Transcript = strings.TrimSpace(in.Transcript)

	if in.Transcript == "" {
		return Normalize(sc.decode(map[string]any{}, in))
	}
	if sc.kind == KindGeneral && utf8.RuneCountInString(in.Transcript) > maxReadableChars {
		return Normalize(sc.decode(map[string]any{}, in))
	}

	var raw map[string]any
	if err := llm.CompleteJSON(ctx, s.llm, sc.system, sc.prompt(in), &raw); err != nil {
		s.log.WithError(err).WithField("type", sc.kind).Warn("summary generation failed, using fallback document")
		return Normalize(sc.fallback(in, err.Error()))
	}

	return Normalize(sc.decode(raw, in))
}

func titleOr(raw map[string]any, in Input) string {
	if t := str(raw["title"]); t != "" {
		return t
	}
	return in.Title
}

func transcriptBlock(in Input) string {
	return fmt.Sprintf("Video title: %s\n\nTranscript:\n%s", in.Title, classify.Prefix(in.Transcript, maxPromptChars))
}

var recipeSchema = schema{
	kind: KindRecipe,
	system: `You turn cooking video transcripts into recipes. Use only information from the transcript.
Reply with one JSON object:
{"title": string, "intro": string, "ingredients": [string], "steps": [{"step": number, "instruction": string}], "notes": [string]}`,
	prompt: transcriptBlock,
	decode: func(raw map[string]any, in Input) Document {
		return &RecipeDocument{
			Title:       titleOr(raw, in),
			Intro:       str(raw["intro"]),
			Ingredients: strList(raw["ingredients"]),
			Steps:       stepList(raw["steps"]),
			Notes:       strList(raw["notes"]),
		}
	},
	fallback: func(in Input, reason string) Document {
		return &RecipeDocument{
			Title: in.Title,
			Steps: []Step{{Step: 1, Instruction: FailedText}},
			Notes: []string{failedNotePrefix + reason},
			Error: reason,
		}
	},
}

var tutorialSchema = schema{
	kind: KindTutorial,
	system: `You turn how-to video transcripts into tutorials. Use only information from the transcript.
Reply with one JSON object:
{"title": string, "intro": string, "materials": [string], "steps": [{"step": number, "instruction": string}], "tips": [string], "warnings": [string]}`,
	prompt: transcriptBlock,
	decode: func(raw map[string]any, in Input) Document {
		return &TutorialDocument{
			Title:     titleOr(raw, in),
			Intro:     str(raw["intro"]),
			Materials: strList(raw["materials"]),
			Steps:     stepList(raw["steps"]),
			Tips:      strList(raw["tips"]),
			Warnings:  strList(raw["warnings"]),
		}
	},
	fallback: func(in Input, reason string) Document {
		return &TutorialDocument{
			Title:    in.Title,
			Steps:    []Step{{Step: 1, Instruction: FailedText}},
			Warnings: []string{failedNotePrefix + reason},
			Error:    reason,
		}
	},
}

var generalSchema = schema{
	kind: KindGeneral,
	system: `You add punctuation, capitalization and paragraph breaks to a transcript.
Do not add, remove, reorder or change any words.
Reply with one JSON object: {"title": string, "readable": string}`,
	prompt: func(in Input) string {
		return fmt.Sprintf("Video title: %s\n\nTranscript:\n%s", in.Title, in.Transcript)
	},
	decode: func(raw map[string]any, in Input) Document {
		readable := str(raw["readable"])
		if !sameWords(in.Transcript, readable) {
			readable = in.Transcript
		}
		return &GeneralDocument{
			Title: titleOr(raw, in),
			Transcript: TranscriptText{
				Verbatim: in.Transcript,
				Readable: readable,
			},
		}
	},
	fallback: func(in Input, reason string) Document {
		return &GeneralDocument{
			Title:      in.Title,
			Transcript: TranscriptText{Verbatim: in.Transcript, Readable: in.Transcript},
			Error:      reason,
		}
	},
}
