package types

// Platform identifies the hosting site of a source video
type Platform string

// Platform constants
const (
	PlatformInstagram Platform = "instagram"
	PlatformTikTok    Platform = "tiktok"
	PlatformFacebook  Platform = "facebook"
	PlatformYouTube   Platform = "youtube"
	PlatformUnknown   Platform = "unknown"
)

// ContentType is the classification label driving summary synthesis
type ContentType string

// Content type constants
const (
	ContentRecipe   ContentType = "recipe"
	ContentTutorial ContentType = "tutorial"
	ContentStory    ContentType = "story"
)

// Valid reports whether c is one of the closed set of labels
func (c ContentType) Valid() bool {
	switch c {
	case ContentRecipe, ContentTutorial, ContentStory:
		return true
	}
	return false
}

// Progress stage vocabulary
const (
	StageFetchingAudio = "fetching_audio"
	StageDownloading   = "downloading"
	StageTranscoding   = "transcoding"
	StageChunking      = "chunking"
	StageTranscribing  = "transcribing"
	StageClassifying   = "classifying"
	StageTranscribed   = "transcribed"
	StageStructuring   = "structuring"
	StageNormalizing   = "normalizing"
	StageFinalizing    = "finalizing"
	StageDone          = "done"
	StageFailed        = "failed"
)

// MediaMetadata is best-effort descriptive information about a video
type MediaMetadata struct {
	Title     string   `json:"title"`
	Duration  *float64 `json:"duration"`
	Thumbnail *string  `json:"thumbnail"`
}

// AudioAsset is an audio file on disk
type AudioAsset struct {
	Path   string `json:"path"`
	Size   int64  `json:"size"`
	Format string `json:"format"`
}

// Chunk is one fixed-window slice of a normalized audio asset
type Chunk struct {
	Index    int     `json:"index"`
	Path     string  `json:"path"`
	Duration float64 `json:"duration"`
}

// Transcript holds the early and full transcript text of a job
type Transcript struct {
	Early string `json:"early"`
	Full  string `json:"full"`
}

// Classification is the content-type decision for a job
type Classification struct {
	Type       ContentType `json:"type"`
	Confidence float64     `json:"confidence"`
	Rationale  string      `json:"rationale"`
}

// ProgressEvent is a single progress update for a job
type ProgressEvent struct {
	JobID   string `json:"summaryId"`
	Stage   string `json:"stage"`
	Percent int    `json:"percent"`
	Note    string `json:"note,omitempty"`
	Partial any    `json:"partial,omitempty"`
}
