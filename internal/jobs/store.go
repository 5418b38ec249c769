package jobs

import (
	"sync"

	"github.com/moorea/moodboard/internal/domain"
)

// Store persists jobs. Implementations must make CreateIfAbsent atomic with
// respect to fingerprint lookup so concurrent submissions of the same image
// resolve to one job.
type Store interface {
	// CreateIfAbsent stores job unless a job with the same content
	// fingerprint already exists. It returns the authoritative job and
	// whether a new one was created.
	CreateIfAbsent(job *domain.Job) (*domain.Job, bool)
	// Get returns the job by ID.
	Get(id string) (*domain.Job, bool)
	// SetStatus updates status and progress.
	SetStatus(id string, status domain.JobStatus, progress int)
	// SetProgress updates progress only.
	SetProgress(id string, progress int)
	// Complete marks the job completed and attaches the result.
	Complete(id string, result *domain.MoodboardResult)
	// Fail marks the job failed with a message.
	Fail(id string, message string)
}

// MemoryStore is the in-process Store. Jobs live for the lifetime of the
// service; completed boards are additionally cached in Redis with a TTL, so
// a restart loses only in-flight work.
type MemoryStore struct {
	mu            sync.RWMutex
	byID          map[string]*domain.Job
	byFingerprint map[string]string
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:          make(map[string]*domain.Job),
		byFingerprint: make(map[string]string),
	}
}

// CreateIfAbsent implements Store.
func (s *MemoryStore) CreateIfAbsent(job *domain.Job) (*domain.Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.byFingerprint[job.ContentFingerprint]; ok {
		return s.byID[id].Clone(), false
	}
	s.byID[job.ID] = job.Clone()
	s.byFingerprint[job.ContentFingerprint] = job.ID
	return job.Clone(), true
}

// Get implements Store.
func (s *MemoryStore) Get(id string) (*domain.Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.byID[id]
	if !ok {
		return nil, false
	}
	return job.Clone(), true
}

// SetStatus implements Store.
func (s *MemoryStore) SetStatus(id string, status domain.JobStatus, progress int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.byID[id]; ok && !job.Status.Terminal() {
		job.Status = status
		job.Progress = progress
	}
}

// SetProgress implements Store.
func (s *MemoryStore) SetProgress(id string, progress int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.byID[id]; ok && !job.Status.Terminal() {
		job.Progress = progress
	}
}

// Complete implements Store.
func (s *MemoryStore) Complete(id string, result *domain.MoodboardResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.byID[id]
	if !ok || job.Status.Terminal() {
		return
	}
	now := nowUTC()
	job.Status = domain.StatusCompleted
	job.Progress = 100
	job.CompletedAt = &now
	job.Result = result
}

// Fail implements Store.
func (s *MemoryStore) Fail(id string, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.byID[id]
	if !ok || job.Status.Terminal() {
		return
	}
	now := nowUTC()
	job.Status = domain.StatusFailed
	job.CompletedAt = &now
	job.ErrorMessage = message
}
