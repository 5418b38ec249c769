// Package pipeline runs the four-stage moodboard generation flow:
// classification, candidate aggregation, similarity reranking, and final
// assembly.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/moorea/moodboard/internal/aggregator"
	"github.com/moorea/moodboard/internal/classifier"
	"github.com/moorea/moodboard/internal/domain"
	"github.com/moorea/moodboard/internal/keywords"
	"github.com/moorea/moodboard/internal/logger"
	"github.com/moorea/moodboard/internal/metrics"
	"github.com/moorea/moodboard/internal/rerank"
)

// Stage completion percentages reported to the job store. Clients poll these
// to drive progress UI.
const (
	ProgressClassified = 25
	ProgressAggregated = 50
	ProgressRanked     = 75
	ProgressComplete   = 100
)

// ProgressFunc receives stage completion updates during a run.
type ProgressFunc func(progress int)

// DownloadTracker fires provider attribution events for the published
// images. Unsplash requires one per displayed photo.
type DownloadTracker interface {
	TriggerDownloads(ctx context.Context, images []domain.ImageCandidate) int
}

// Config holds the assembly limits.
type Config struct {
	// MoodboardSize is the number of images in the final board.
	MoodboardSize int
	// EnvironmentSlots is how many of those images show settings rather
	// than clothing.
	EnvironmentSlots int
}

// Pipeline generates one moodboard from an uploaded garment photo. Stages
// degrade rather than fail: a job only errors when no images can be produced
// at all.
type Pipeline struct {
	classifier *classifier.Classifier
	expander   *keywords.Expander
	aggregator *aggregator.Aggregator
	reranker   *rerank.Reranker
	tracker    DownloadTracker
	metrics    *metrics.Metrics
	cfg        Config
	logger     logger.Logger
}

// New creates a pipeline. tracker may be nil when no provider needs
// attribution events.
func New(
	c *classifier.Classifier,
	e *keywords.Expander,
	a *aggregator.Aggregator,
	r *rerank.Reranker,
	tracker DownloadTracker,
	m *metrics.Metrics,
	cfg Config,
	log logger.Logger,
) *Pipeline {
	if cfg.EnvironmentSlots < 0 {
		cfg.EnvironmentSlots = 0
	}
	return &Pipeline{
		classifier: c,
		expander:   e,
		aggregator: a,
		reranker:   r,
		tracker:    tracker,
		metrics:    m,
		cfg:        cfg,
		logger:     log,
	}
}

// Run executes the full pipeline for one job. image is the uploaded garment
// photo, fingerprint its content hash. progress may be nil.
func (p *Pipeline) Run(ctx context.Context, jobID string, image []byte, fingerprint string, progress ProgressFunc) (*domain.MoodboardResult, error) {
	report := func(pct int) {
		if progress != nil {
			progress(pct)
		}
	}
	start := time.Now()

	// Stage 1: classification. Never empty; rejection yields the default
	// aesthetic.
	aesthetics := p.classifier.Classify(ctx, image, fingerprint)
	p.metrics.Classifications.WithLabelValues(aesthetics[0].Name).Inc()
	p.observeStage("classify", start)
	report(ProgressClassified)

	// Stage 2: keyword expansion and provider aggregation.
	stageStart := time.Now()
	clothingQueries, negatives := p.expander.Expand(aesthetics)
	clothing := p.aggregator.Gather(ctx, clothingQueries, negatives, domain.CategoryClothing)

	var environment []domain.ImageCandidate
	if p.cfg.EnvironmentSlots > 0 {
		envQueries := p.expander.ExpandEnvironment(aesthetics)
		environment = p.aggregator.Gather(ctx, envQueries, nil, domain.CategoryEnvironment)
	}
	p.metrics.CandidatesFound.Observe(float64(len(clothing) + len(environment)))
	p.observeStage("aggregate", stageStart)
	report(ProgressAggregated)

	if len(clothing) == 0 && len(environment) == 0 {
		return nil, fmt.Errorf("no image candidates found for aesthetics %s", aesthetics[0].Name)
	}

	// Stage 3: similarity reranking of the clothing pool. Environment
	// shots stay in provider order; scoring settings against a garment
	// photo is meaningless.
	stageStart = time.Now()
	ranked := p.reranker.Rank(ctx, image, clothing)
	p.observeStage("rerank", stageStart)
	report(ProgressRanked)

	// Stage 4: assembly and attribution.
	images := p.assemble(ranked, environment)
	if p.tracker != nil {
		p.tracker.TriggerDownloads(ctx, images)
	}

	result := &domain.MoodboardResult{
		JobID:          jobID,
		Status:         domain.StatusCompleted,
		TopAesthetics:  aesthetics,
		Images:         images,
		CreatedAt:      time.Now().UTC(),
		ProcessingTime: time.Since(start).Seconds(),
	}
	report(ProgressComplete)

	p.logger.Info("moodboard generated",
		logger.String("job_id", jobID),
		logger.String("dominant", aesthetics[0].Name),
		logger.Int("images", len(images)),
		logger.Duration("elapsed", time.Since(start)),
	)
	return result, nil
}

// assemble interleaves the ranked clothing images with the environment
// shots: environment fills its reserved slots, clothing the rest, and either
// side backfills when the other comes up short.
func (p *Pipeline) assemble(clothing, environment []domain.ImageCandidate) []domain.ImageCandidate {
	envSlots := p.cfg.EnvironmentSlots
	if envSlots > len(environment) {
		envSlots = len(environment)
	}
	clothingSlots := p.cfg.MoodboardSize - envSlots
	if clothingSlots > len(clothing) {
		clothingSlots = len(clothing)
		// Backfill unused clothing slots with extra environment shots.
		if extra := p.cfg.MoodboardSize - clothingSlots; extra < len(environment) {
			envSlots = extra
		} else {
			envSlots = len(environment)
		}
	}

	images := make([]domain.ImageCandidate, 0, clothingSlots+envSlots)
	images = append(images, clothing[:clothingSlots]...)
	images = append(images, environment[:envSlots]...)
	return images
}

func (p *Pipeline) observeStage(stage string, start time.Time) {
	p.metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}
