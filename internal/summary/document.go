package summary

// Kind is the document tag written to the "type" field
type Kind string

const (
	KindRecipe   Kind = "recipe"
	KindTutorial Kind = "tutorial"
	KindGeneral  Kind = "general"
)

// Placeholder texts for steps
const (
	NoStepsText      = "No clear steps detected."
	FailedText       = "Summary generation failed. Please try again."
	failedNotePrefix = "Summary generation error: "
)

// Document is the structured summary of a video. The concrete type is one
// of *RecipeDocument, *TutorialDocument or *GeneralDocument.
type Document interface {
	Kind() Kind
	// Failed reports whether the document is a fallback
	Failed() bool
}

// Step is one numbered instruction
type Step struct {
	Step        int    `json:"step"`
	Instruction string `json:"instruction"`
}

// RecipeDocument describes food preparation
type RecipeDocument struct {
	Type        Kind     `json:"type"`
	Title       string   `json:"title"`
	Intro       string   `json:"intro"`
	Ingredients []string `json:"ingredients"`
	Steps       []Step   `json:"steps"`
	Notes       []string `json:"notes"`
	Category    string   `json:"category"`
	Error       string   `json:"error,omitempty"`
}

func (d *RecipeDocument) Kind() Kind   { return KindRecipe }
func (d *RecipeDocument) Failed() bool { return d.Error != "" }

// TutorialDocument describes a how-to
type TutorialDocument struct {
	Type      Kind     `json:"type"`
	Title     string   `json:"title"`
	Intro     string   `json:"intro"`
	Materials []string `json:"materials"`
	Steps     []Step   `json:"steps"`
	Tips      []string `json:"tips"`
	Warnings  []string `json:"warnings"`
	Category  string   `json:"category"`
	Error     string   `json:"error,omitempty"`
}

func (d *TutorialDocument) Kind() Kind   { return KindTutorial }
func (d *TutorialDocument) Failed() bool { return d.Error != "" }

// TranscriptText pairs the raw transcript with a punctuated rendering
type TranscriptText struct {
	Verbatim string `json:"verbatim"`
	Readable string `json:"readable"`
}

// GeneralDocument carries narrative content as transcript text
type GeneralDocument struct {
	Type       Kind           `json:"type"`
	Title      string         `json:"title"`
	Category   string         `json:"category"`
	Transcript TranscriptText `json:"transcript"`
	Error      string         `json:"error,omitempty"`
}

func (d *GeneralDocument) Kind() Kind   { return KindGeneral }
func (d *GeneralDocument) Failed() bool { return d.Error != "" }
