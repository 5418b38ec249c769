// Package domain defines the core types shared across the moodboard pipeline.
package domain

import "time"

// JobStatus represents the lifecycle state of a moodboard job.
type JobStatus string

const (
	// StatusPending means the job is created but processing has not started.
	StatusPending JobStatus = "pending"
	// StatusProcessing means the pipeline is running.
	StatusProcessing JobStatus = "processing"
	// StatusCompleted means the pipeline finished and a result is attached.
	StatusCompleted JobStatus = "completed"
	// StatusFailed means the pipeline aborted; ErrorMessage carries the cause.
	StatusFailed JobStatus = "failed"
)

// Terminal reports whether the status is a terminal state.
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Job represents one classification+curation request. A job is created in
// Pending, moves to Processing when the pipeline picks it up, and reaches
// exactly one of Completed/Failed. Exactly one job exists per distinct
// content fingerprint; resubmitting the same image returns the existing job.
type Job struct {
	ID                 string           `json:"job_id"`
	ContentFingerprint string           `json:"-"`
	Status             JobStatus        `json:"status"`
	Progress           int              `json:"progress"`
	CreatedAt          time.Time        `json:"created_at"`
	CompletedAt        *time.Time       `json:"completed_at,omitempty"`
	ErrorMessage       string           `json:"error_message,omitempty"`
	Result             *MoodboardResult `json:"-"`
}

// Clone returns a copy of the job safe to hand outside the store.
func (j *Job) Clone() *Job {
	c := *j
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}
