package classify

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/codebuildervaibhav/video-summary/internal/llm"
	"github.com/codebuildervaibhav/video-summary/internal/logger"
	"github.com/codebuildervaibhav/video-summary/internal/types"
)

// PrefixChars bounds how much of the early transcript is sent
const PrefixChars = 1400

const systemPrompt = `You label short-form video transcripts. Answer with one JSON object and nothing else:
{"type": "recipe" | "tutorial" | "story", "confidence": number between 0 and 1, "rationale": short string}
recipe: food or drink preparation with ingredients and steps.
tutorial: teaches how to do or make something that is not food.
story: anything else (vlogs, opinions, narratives, news, comedy).`

// Classifier routes an early transcript to a content type
type Classifier struct {
	llm llm.Completer
	log *logger.Logger
}

// New creates a Classifier
func New(c llm.Completer, log *logger.Logger) *Classifier {
	return &Classifier{llm: c, log: log.Component("classifier")}
}

// Classify always returns one of recipe, tutorial or story. Any failure
// or unusable answer yields story.
func (c *Classifier) Classify(ctx context.Context, early, title string) types.Classification {
	text := Prefix(strings.TrimSpace(early), PrefixChars)
	if text == "" {
		return fallback("empty transcript")
	}

	prompt := fmt.Sprintf("Title: %s\n\nTranscript excerpt:\n%s", strings.TrimSpace(title), text)

	var v map[string]any
	if err := llm.CompleteJSON(ctx, c.llm, systemPrompt, prompt, &v); err != nil {
		c.log.WithError(err).Warn("classification failed, defaulting to story")
		return fallback("classification unavailable")
	}

	raw, _ := v["type"].(string)
	label := types.ContentType(strings.ToLower(strings.TrimSpace(raw)))
	if !label.Valid() {
		c.log.WithField("label", v["type"]).Warn("unknown classification label, defaulting to story")
		return fallback("unrecognized label")
	}

	rationale, _ := v["rationale"].(string)
	return types.Classification{
		Type:       label,
		Confidence: clamp(confidence(v["confidence"])),
		Rationale:  strings.TrimSpace(rationale),
	}
}

// confidence accepts a JSON number or a numeric string; anything else is 0.
func confidence(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(n, "%")), 64)
		if err != nil {
			return 0
		}
		if strings.HasSuffix(n, "%") {
			f /= 100
		}
		return f
	}
	return 0
}

func fallback(reason string) types.Classification {
	return types.Classification{Type: types.ContentStory, Confidence: 0, Rationale: reason}
}

func clamp(f float64) float64 {
	switch {
	case math.IsNaN(f) || f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}

// Prefix returns at most n characters of s without splitting a rune
func Prefix(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
