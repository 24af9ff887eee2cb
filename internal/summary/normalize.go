package summary

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Normalize coerces a document into its declared shape: arrays are never
// nil, strings are trimmed, steps are filtered and renumbered 1..N. It is
// idempotent. Unknown document types are returned unchanged.
func Normalize(doc Document) Document {
	switch d := doc.(type) {
	case *RecipeDocument:
		d.Type = KindRecipe
		d.Category = string(KindRecipe)
		d.Title = strings.TrimSpace(d.Title)
		d.Intro = strings.TrimSpace(d.Intro)
		d.Ingredients = cleanList(d.Ingredients)
		d.Steps = cleanSteps(d.Steps)
		d.Notes = cleanList(d.Notes)
		d.Error = strings.TrimSpace(d.Error)
		return d
	case *TutorialDocument:
		d.Type = KindTutorial
		d.Category = string(KindTutorial)
		d.Title = strings.TrimSpace(d.Title)
		d.Intro = strings.TrimSpace(d.Intro)
		d.Materials = cleanList(d.Materials)
		d.Steps = cleanSteps(d.Steps)
		d.Tips = cleanList(d.Tips)
		d.Warnings = cleanList(d.Warnings)
		d.Error = strings.TrimSpace(d.Error)
		return d
	case *GeneralDocument:
		d.Type = KindGeneral
		d.Category = string(KindGeneral)
		d.Title = strings.TrimSpace(d.Title)
		d.Transcript.Verbatim = strings.TrimSpace(d.Transcript.Verbatim)
		d.Transcript.Readable = strings.TrimSpace(d.Transcript.Readable)
		if d.Transcript.Readable == "" {
			d.Transcript.Readable = d.Transcript.Verbatim
		}
		d.Error = strings.TrimSpace(d.Error)
		return d
	}
	return doc
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func cleanSteps(in []Step) []Step {
	out := make([]Step, 0, len(in))
	for _, s := range in {
		instr := strings.TrimSpace(s.Instruction)
		if instr == "" {
			continue
		}
		out = append(out, Step{Step: len(out) + 1, Instruction: instr})
	}
	if len(out) == 0 {
		out = append(out, Step{Step: 1, Instruction: NoStepsText})
	}
	return out
}

// str coerces a decoded JSON value into a string
func str(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case map[string]any:
		return itemText(t)
	}
	return ""
}

// strList coerces a decoded JSON value into a list of strings. A bare
// string becomes a single-element list.
func strList(v any) []string {
	switch t := v.(type) {
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			out = append(out, str(item))
		}
		return out
	case string:
		return []string{t}
	}
	return []string{}
}

// itemText flattens objects like {"quantity":"2 cups","name":"flour"}
func itemText(m map[string]any) string {
	for _, key := range []string{"text", "instruction", "description", "item", "name", "content"} {
		v := str(m[key])
		if v == "" {
			continue
		}
		for _, q := range []string{"quantity", "amount"} {
			if qty := str(m[q]); qty != "" && key != "instruction" {
				return fmt.Sprintf("%s %s", qty, v)
			}
		}
		return v
	}
	return ""
}

// stepList coerces a decoded JSON value into steps. Numbers from the model
// are ignored; cleanSteps renumbers.
func stepList(v any) []Step {
	items, ok := v.([]any)
	if !ok {
		if s := str(v); s != "" {
			return []Step{{Instruction: s}}
		}
		return []Step{}
	}
	out := make([]Step, 0, len(items))
	for _, item := range items {
		switch t := item.(type) {
		case map[string]any:
			text := itemText(t)
			if text == "" {
				if s, ok := t["step"].(string); ok {
					text = s
				}
			}
			out = append(out, Step{Instruction: text})
		default:
			out = append(out, Step{Instruction: str(t)})
		}
	}
	return out
}

// wordSequence lowercases s and strips punctuation, returning its words
func wordSequence(s string) []string {
	fields := strings.Fields(strings.ToLower(s))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		w := strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				return r
			}
			return -1
		}, f)
		if w != "" {
			out = append(out, w)
		}
	}
	return out
}

// sameWords reports whether b only re-punctuates, re-cases or re-flows a
func sameWords(a, b string) bool {
	wa, wb := wordSequence(a), wordSequence(b)
	if len(wa) != len(wb) {
		return false
	}
	for i := range wa {
		if wa[i] != wb[i] {
			return false
		}
	}
	return true
}
