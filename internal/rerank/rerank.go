// Package rerank orders candidate images by embedding similarity to the
// uploaded garment photo.
package rerank

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/moorea/moodboard/internal/domain"
	"github.com/moorea/moodboard/internal/embedding"
	"github.com/moorea/moodboard/internal/logger"
)

// maxImageBytes caps a fetched candidate image; provider thumbnails are far
// smaller than this.
const maxImageBytes = 8 << 20

// Config holds the similarity thresholds and limits.
type Config struct {
	// PrimaryThreshold is the preferred minimum cosine similarity.
	PrimaryThreshold float64
	// SecondaryThreshold is the relaxed bar used when the primary one
	// leaves too few images.
	SecondaryThreshold float64
	// MinRanked is the smallest acceptable ranked set before thresholds
	// are abandoned entirely.
	MinRanked int
	// Size is the number of images in the final moodboard.
	Size int
	// CandidateTimeout bounds fetching and embedding one candidate.
	CandidateTimeout time.Duration
	// Concurrency caps in-flight candidate scoring.
	Concurrency int
}

// Reranker scores candidates against a reference image. Scoring failures for
// individual candidates are absorbed; only a fully failed round degrades to
// the unranked candidate order.
type Reranker struct {
	embedder embedding.Embedder
	http     *http.Client
	cfg      Config
	logger   logger.Logger
}

// New creates a reranker.
func New(e embedding.Embedder, cfg Config, log logger.Logger) *Reranker {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 4
	}
	return &Reranker{
		embedder: e,
		http:     &http.Client{Timeout: cfg.CandidateTimeout},
		cfg:      cfg,
		logger:   log,
	}
}

// Rank returns up to cfg.Size candidates, most similar first. When the
// reference embedding or every candidate embedding fails, the first
// cfg.Size candidates are returned in provider order with zero scores.
func (r *Reranker) Rank(ctx context.Context, reference []byte, candidates []domain.ImageCandidate) []domain.ImageCandidate {
	if len(candidates) == 0 {
		return nil
	}

	refVec, err := r.embedder.EmbedImage(ctx, reference)
	if err != nil {
		r.logger.Warn("reference embedding failed, returning unranked candidates",
			logger.Error(err))
		return truncate(candidates, r.cfg.Size)
	}

	// A negative cosine is still a valid score, so scored failures are
	// tracked separately rather than through a sentinel value.
	scores := make([]float64, len(candidates))
	scored := make([]bool, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Concurrency)
	for i := range candidates {
		i := i
		g.Go(func() error {
			score, err := r.scoreCandidate(gctx, refVec, candidates[i])
			if err != nil {
				r.logger.Debug("candidate scoring failed",
					logger.String("id", candidates[i].ID),
					logger.String("provider", candidates[i].SourceProvider),
					logger.Error(err),
				)
				return nil
			}
			scores[i] = score
			scored[i] = true
			return nil
		})
	}
	_ = g.Wait()

	ranked := r.assemble(candidates, scores, scored)
	r.logger.Info("candidates reranked",
		logger.Int("candidates", len(candidates)),
		logger.Int("selected", len(ranked)),
	)
	return ranked
}

// scoreCandidate fetches the candidate's thumbnail and returns its cosine
// similarity to the reference vector.
func (r *Reranker) scoreCandidate(ctx context.Context, refVec []float32, c domain.ImageCandidate) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.CandidateTimeout)
	defer cancel()

	url := c.ThumbnailURL
	if url == "" {
		url = c.URL
	}
	image, err := r.fetch(ctx, url)
	if err != nil {
		return 0, err
	}

	vec, err := r.embedder.EmbedImage(ctx, image)
	if err != nil {
		return 0, err
	}
	return embedding.Cosine(refVec, vec), nil
}

func (r *Reranker) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := r.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch image: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch image: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	return data, nil
}

// assemble sorts the scored candidates and applies the threshold ladder:
// primary, then secondary, then plain top-N when both leave fewer than
// MinRanked images.
func (r *Reranker) assemble(candidates []domain.ImageCandidate, scores []float64, scored []bool) []domain.ImageCandidate {
	kept := make([]domain.ImageCandidate, 0, len(candidates))
	for i, c := range candidates {
		if !scored[i] {
			continue
		}
		c.SimilarityScore = scores[i]
		kept = append(kept, c)
	}
	if len(kept) == 0 {
		r.logger.Warn("no candidates could be scored, returning provider order")
		return truncate(candidates, r.cfg.Size)
	}

	// Stable sort keeps provider order for equal scores, so the output is
	// deterministic for a given response set.
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].SimilarityScore > kept[j].SimilarityScore
	})

	selected := atLeast(kept, r.cfg.PrimaryThreshold, r.cfg.MinRanked)
	if selected == nil {
		selected = atLeast(kept, r.cfg.SecondaryThreshold, r.cfg.MinRanked)
	}
	if selected == nil {
		selected = kept
	}
	return truncate(selected, r.cfg.Size)
}

// atLeast returns the candidates above threshold, or nil when fewer than min
// qualify.
func atLeast(scored []domain.ImageCandidate, threshold float64, min int) []domain.ImageCandidate {
	cut := len(scored)
	for i, c := range scored {
		if c.SimilarityScore < threshold {
			cut = i
			break
		}
	}
	if cut < min {
		return nil
	}
	return scored[:cut]
}

func truncate(candidates []domain.ImageCandidate, size int) []domain.ImageCandidate {
	if len(candidates) <= size {
		return candidates
	}
	return candidates[:size]
}
