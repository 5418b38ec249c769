package domain

import "time"

// Candidate categories used by the optional environment-image merge.
const (
	CategoryClothing    = "clothing"
	CategoryEnvironment = "environment"
)

// AestheticScore is one classified aesthetic with its confidence.
// Scores are always clamped to [0,1]; a result list never contains the same
// category name twice.
type AestheticScore struct {
	Name        string  `json:"name"`
	Score       float64 `json:"score"`
	Description string  `json:"description,omitempty"`
}

// ImageCandidate is an image returned by an external photo-search provider.
// Candidates are value objects; URL equality is the dedup identity.
type ImageCandidate struct {
	ID               string  `json:"id"`
	URL              string  `json:"url"`
	ThumbnailURL     string  `json:"thumbnail_url,omitempty"`
	Photographer     string  `json:"photographer,omitempty"`
	SourceProvider   string  `json:"source_provider"`
	SimilarityScore  float64 `json:"similarity_score,omitempty"`
	Category         string  `json:"category,omitempty"`
	DownloadLocation string  `json:"-"`
}

// MoodboardResult is the final curated set attached to a completed job.
// Immutable once attached.
type MoodboardResult struct {
	JobID          string           `json:"job_id"`
	Status         JobStatus        `json:"status"`
	TopAesthetics  []AestheticScore `json:"top_aesthetics"`
	Images         []ImageCandidate `json:"images"`
	CreatedAt      time.Time        `json:"created_at"`
	ProcessingTime float64          `json:"processing_time"`
}

// Aesthetic is one vocabulary entry: a named fashion style with search
// keywords, negative keywords to steer queries away from, and an optional
// color palette.
type Aesthetic struct {
	Name             string   `yaml:"-"          json:"name"`
	Description      string   `yaml:"description" json:"description,omitempty"`
	Keywords         []string `yaml:"keywords"    json:"keywords,omitempty"`
	NegativeKeywords []string `yaml:"negative_keywords" json:"negative_keywords,omitempty"`
	ColorPalette     []string `yaml:"color_palette"     json:"color_palette,omitempty"`
}
