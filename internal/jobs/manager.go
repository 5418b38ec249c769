// Package jobs owns the moodboard job lifecycle: submission with
// fingerprint deduplication, a bounded worker pool, and status tracking.
package jobs

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/moorea/moodboard/internal/domain"
	"github.com/moorea/moodboard/internal/logger"
	"github.com/moorea/moodboard/internal/metrics"
	"github.com/moorea/moodboard/internal/pipeline"
)

// ErrQueueFull is returned when the worker queue cannot take another job.
var ErrQueueFull = errors.New("job queue full")

// queueDepthPerWorker sizes the submission buffer relative to the pool.
const queueDepthPerWorker = 8

// Runner is the processing pipeline behind the pool, narrowed for tests.
type Runner interface {
	Run(ctx context.Context, jobID string, image []byte, fingerprint string, progress pipeline.ProgressFunc) (*domain.MoodboardResult, error)
}

type task struct {
	jobID       string
	fingerprint string
	image       []byte
}

// Manager accepts job submissions and processes them on a fixed pool of
// workers. Submission is idempotent per content fingerprint: the same image
// always maps to the same job.
type Manager struct {
	store    Store
	runner   Runner
	metrics  *metrics.Metrics
	logger   logger.Logger
	queue    chan task
	workers  int
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewManager creates a manager with the given worker count.
func NewManager(store Store, runner Runner, workers int, m *metrics.Metrics, log logger.Logger) *Manager {
	if workers < 1 {
		workers = 1
	}
	return &Manager{
		store:   store,
		runner:  runner,
		metrics: m,
		logger:  log,
		queue:   make(chan task, workers*queueDepthPerWorker),
		workers: workers,
	}
}

// Start launches the worker pool. Workers exit when ctx is cancelled or
// Stop closes the queue.
func (m *Manager) Start(ctx context.Context) {
	for i := 0; i < m.workers; i++ {
		m.wg.Add(1)
		go m.worker(ctx)
	}
	m.logger.Info("job workers started", logger.Int("workers", m.workers))
}

// Stop closes the queue and waits for in-flight jobs to finish.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.queue) })
	m.wg.Wait()
}

// Fingerprint returns the content fingerprint used for deduplication.
func Fingerprint(image []byte) string {
	sum := sha256.Sum256(image)
	return hex.EncodeToString(sum[:])
}

// Submit registers a job for the image. When a job for the same content
// already exists, that job is returned and created is false; the caller
// should report the existing job rather than a new one.
func (m *Manager) Submit(image []byte) (job *domain.Job, created bool, err error) {
	candidate := &domain.Job{
		ID:                 uuid.NewString(),
		ContentFingerprint: Fingerprint(image),
		Status:             domain.StatusPending,
		CreatedAt:          time.Now().UTC(),
	}

	job, created = m.store.CreateIfAbsent(candidate)
	if !created {
		m.metrics.JobsDeduped.Inc()
		m.logger.Info("submission matched existing job",
			logger.String("job_id", job.ID),
			logger.String("status", string(job.Status)),
		)
		return job, false, nil
	}

	select {
	case m.queue <- task{jobID: job.ID, fingerprint: job.ContentFingerprint, image: image}:
		m.metrics.JobsSubmitted.Inc()
		m.logger.Info("job submitted", logger.String("job_id", job.ID))
		return job, true, nil
	default:
		m.store.Fail(job.ID, "service overloaded, try again later")
		return nil, false, ErrQueueFull
	}
}

// Get returns the job by ID.
func (m *Manager) Get(id string) (*domain.Job, bool) {
	return m.store.Get(id)
}

func (m *Manager) worker(ctx context.Context) {
	defer m.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case t, ok := <-m.queue:
			if !ok {
				return
			}
			m.process(ctx, t)
		}
	}
}

// process runs one job. A pipeline panic fails the job instead of taking
// down the worker.
func (m *Manager) process(ctx context.Context, t task) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("job panicked",
				logger.String("job_id", t.jobID),
				logger.Any("panic", r),
				logger.String("stack", string(debug.Stack())),
			)
			m.store.Fail(t.jobID, fmt.Sprintf("internal error: %v", r))
			m.metrics.JobsCompleted.WithLabelValues(string(domain.StatusFailed)).Inc()
		}
	}()

	start := time.Now()
	m.store.SetStatus(t.jobID, domain.StatusProcessing, 0)

	result, err := m.runner.Run(ctx, t.jobID, t.image, t.fingerprint, func(progress int) {
		m.store.SetProgress(t.jobID, progress)
	})
	if err != nil {
		m.logger.Error("job failed",
			logger.String("job_id", t.jobID),
			logger.Error(err),
		)
		m.store.Fail(t.jobID, err.Error())
		m.metrics.JobsCompleted.WithLabelValues(string(domain.StatusFailed)).Inc()
		return
	}

	m.store.Complete(t.jobID, result)
	m.metrics.JobsCompleted.WithLabelValues(string(domain.StatusCompleted)).Inc()
	m.metrics.JobDuration.Observe(time.Since(start).Seconds())
}

func nowUTC() time.Time { return time.Now().UTC() }
