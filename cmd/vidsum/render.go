package main

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/codebuildervaibhav/video-summary/internal/pipeline"
	"github.com/codebuildervaibhav/video-summary/internal/progress"
	"github.com/codebuildervaibhav/video-summary/internal/summary"
	"github.com/codebuildervaibhav/video-summary/internal/types"
)

type progressSink = progress.Sink

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("111"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	panelStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// progressPrinter writes one line per progress event.
type progressPrinter struct {
	mu sync.Mutex
	w  io.Writer
}

func newProgressPrinter(w io.Writer) *progressPrinter {
	return &progressPrinter{w: w}
}

func (p *progressPrinter) Report(ev types.ProgressEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	line := fmt.Sprintf("%3d%% %s", ev.Percent, ev.Stage)
	if ev.Note != "" {
		line += mutedStyle.Render("  " + ev.Note)
	}
	if ev.Stage == types.StageFailed {
		line = errorStyle.Render(line)
	}
	fmt.Fprintln(p.w, line)
}

// Finish receives the terminal done event.
func (p *progressPrinter) Finish(ev types.ProgressEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.w, okStyle.Render(fmt.Sprintf("%3d%% %s", ev.Percent, ev.Stage)))
}

func renderResult(res *pipeline.Result) string {
	var b strings.Builder

	header := titleStyle.Render(res.VideoInfo.Title) + "\n" +
		mutedStyle.Render(fmt.Sprintf("%s · %s · %d words · %s (%.0f%%)",
			res.VideoInfo.Platform, res.VideoInfo.URL, res.WordCount,
			res.Analysis.Classification.Type, res.Analysis.Classification.Confidence*100))
	b.WriteString(panelStyle.Render(header))
	b.WriteString("\n")

	switch doc := res.Summary.(type) {
	case *summary.RecipeDocument:
		writeIntro(&b, doc.Intro)
		writeList(&b, "Ingredients", doc.Ingredients)
		writeSteps(&b, doc.Steps)
		writeList(&b, "Notes", doc.Notes)
	case *summary.TutorialDocument:
		writeIntro(&b, doc.Intro)
		writeList(&b, "Materials", doc.Materials)
		writeSteps(&b, doc.Steps)
		writeList(&b, "Tips", doc.Tips)
		writeList(&b, "Warnings", doc.Warnings)
	case *summary.GeneralDocument:
		text := doc.Transcript.Readable
		if text == "" {
			text = doc.Transcript.Verbatim
		}
		writeIntro(&b, text)
	}

	if res.Summary != nil && res.Summary.Failed() {
		b.WriteString("\n" + errorStyle.Render(summary.FailedText) + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func writeIntro(b *strings.Builder, text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	b.WriteString("\n" + text + "\n")
}

func writeList(b *strings.Builder, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	b.WriteString("\n" + headingStyle.Render(heading) + "\n")
	for _, item := range items {
		b.WriteString("  • " + item + "\n")
	}
}

func writeSteps(b *strings.Builder, steps []summary.Step) {
	if len(steps) == 0 {
		return
	}
	b.WriteString("\n" + headingStyle.Render("Steps") + "\n")
	for _, s := range steps {
		b.WriteString(fmt.Sprintf("  %d. %s\n", s.Step, s.Instruction))
	}
}
