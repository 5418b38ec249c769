package api

import (
	"time"

	"github.com/moorea/moodboard/internal/domain"
)

// SubmitResponse is returned by POST /api/v1/moodboard. Deduplicated refers
// to submissions whose image content matched an existing job.
type SubmitResponse struct {
	JobID        string `json:"job_id"`
	Status       string `json:"status"`
	Deduplicated bool   `json:"deduplicated"`
}

// StatusResponse is the polling payload for a job.
type StatusResponse struct {
	JobID        string     `json:"job_id"`
	Status       string     `json:"status"`
	Progress     int        `json:"progress"`
	CreatedAt    time.Time  `json:"created_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
}

// AestheticResponse describes one vocabulary entry for the catalog endpoint.
type AestheticResponse struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Keywords     []string `json:"keywords,omitempty"`
	ColorPalette []string `json:"color_palette,omitempty"`
}

// AestheticsListResponse lists the full vocabulary.
type AestheticsListResponse struct {
	Aesthetics []AestheticResponse `json:"aesthetics"`
	Total      int                 `json:"total"`
}

// ErrorResponse is the uniform error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}

func toStatusResponse(job *domain.Job) StatusResponse {
	return StatusResponse{
		JobID:        job.ID,
		Status:       string(job.Status),
		Progress:     job.Progress,
		CreatedAt:    job.CreatedAt,
		CompletedAt:  job.CompletedAt,
		ErrorMessage: job.ErrorMessage,
	}
}
