// Package classifier turns a garment photo into a ranked list of aesthetic
// categories using zero-shot embedding classification, a declarative
// confidence-boost policy, and a small set of pair corrections.
package classifier

import (
	"context"
	"sort"
	"time"

	"github.com/moorea/moodboard/internal/cache"
	"github.com/moorea/moodboard/internal/domain"
	"github.com/moorea/moodboard/internal/embedding"
	"github.com/moorea/moodboard/internal/logger"
	"github.com/moorea/moodboard/internal/vocab"
)

const (
	// DefaultAesthetic is substituted when classification is rejected or
	// the embedding service is down. The pipeline never returns an empty
	// classification.
	DefaultAesthetic = "minimalist"
	// DefaultAestheticScore is the illustrative confidence shown with the
	// default aesthetic.
	DefaultAestheticScore = 0.60

	maxSupporting = 2
)

// Config holds the classifier thresholds.
type Config struct {
	// MinConfidence is the rejection threshold on the dominant boosted
	// score.
	MinConfidence float64
	// SupportingThreshold is the minimum un-boosted score for a
	// supporting aesthetic. Must be above MinConfidence.
	SupportingThreshold float64
}

// Classifier scores garment images against the aesthetic vocabulary.
type Classifier struct {
	embedder    embedding.Embedder
	vocab       *vocab.Store
	cache       *cache.Cache
	policies    []GroupPolicy
	corrections []PairCorrection
	byCategory  map[string]*GroupPolicy
	cfg         Config
	logger      logger.Logger
}

// New creates a classifier with the default boost policy and corrections.
func New(e embedding.Embedder, store *vocab.Store, responseCache *cache.Cache, cfg Config, log logger.Logger) *Classifier {
	return NewWithPolicies(e, store, responseCache, DefaultBoostPolicies, DefaultPairCorrections, cfg, log)
}

// NewWithPolicies creates a classifier with an explicit boost table, used by
// tests and experiments.
func NewWithPolicies(
	e embedding.Embedder,
	store *vocab.Store,
	responseCache *cache.Cache,
	policies []GroupPolicy,
	corrections []PairCorrection,
	cfg Config,
	log logger.Logger,
) *Classifier {
	return &Classifier{
		embedder:    e,
		vocab:       store,
		cache:       responseCache,
		policies:    policies,
		corrections: corrections,
		byCategory:  policyIndex(policies),
		cfg:         cfg,
		logger:      log,
	}
}

// scored pairs a category with its raw and boosted confidence.
type scored struct {
	name    string
	raw     float64
	boosted float64
}

// Classify returns 1-3 aesthetic scores, dominant first. It never returns an
// empty list: rejected or failed classifications yield the fixed default
// aesthetic. The fingerprint keys the optional response cache; pass empty to
// bypass it.
func (c *Classifier) Classify(ctx context.Context, image []byte, fingerprint string) []domain.AestheticScore {
	if fingerprint != "" {
		if cached := c.cache.GetClassification(ctx, fingerprint); len(cached) > 0 {
			return cached
		}
	}

	start := time.Now()
	result := c.classify(ctx, image)
	c.logger.Info("classification complete",
		logger.String("dominant", result[0].Name),
		logger.Float64("score", result[0].Score),
		logger.Int("aesthetics", len(result)),
		logger.Duration("elapsed", time.Since(start)),
	)

	if fingerprint != "" {
		c.cache.SetClassification(ctx, fingerprint, result)
	}
	return result
}

func (c *Classifier) classify(ctx context.Context, image []byte) []domain.AestheticScore {
	catalog, err := c.vocab.All()
	if err != nil {
		c.logger.Error("vocabulary unavailable", logger.Error(err))
		return c.fallback()
	}
	names, err := c.vocab.Vocabulary()
	if err != nil {
		return c.fallback()
	}

	prompts := make([]string, len(names))
	for i, name := range names {
		prompts[i] = BuildPrompt(catalog[name])
	}

	probs, err := embedding.ZeroShot(ctx, c.embedder, image, prompts)
	if err != nil {
		c.logger.Warn("embedding classification failed, using fallback aesthetic",
			logger.Error(err))
		return c.fallback()
	}

	scores := make([]scored, len(names))
	for i, name := range names {
		scores[i] = scored{name: name, raw: clamp01(probs[i])}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].raw > scores[j].raw })

	c.applyBoosts(ctx, image, scores)

	dominant := scores[0]
	for _, s := range scores[1:] {
		if s.boosted > dominant.boosted {
			dominant = s
		}
	}

	if dominant.boosted < c.cfg.MinConfidence {
		c.logger.Info("classification rejected below confidence threshold",
			logger.String("category", dominant.name),
			logger.Float64("boosted", dominant.boosted),
			logger.Float64("threshold", c.cfg.MinConfidence),
		)
		return c.fallback()
	}

	dominant = c.applyCorrections(ctx, image, dominant, scores)

	result := []domain.AestheticScore{{
		Name:        dominant.name,
		Score:       clamp01(dominant.boosted),
		Description: c.vocab.Description(dominant.name),
	}}

	// Supporting aesthetics are informational: they must clear a stricter
	// un-boosted bar and never displace the dominant category.
	for _, s := range scores {
		if len(result) > maxSupporting {
			break
		}
		if s.name == dominant.name || s.raw <= c.cfg.SupportingThreshold {
			continue
		}
		result = append(result, domain.AestheticScore{
			Name:        s.name,
			Score:       clamp01(s.raw),
			Description: c.vocab.Description(s.name),
		})
	}

	return result
}

// applyBoosts runs the single boost pass over all categories. Gate
// sub-queries are evaluated at most once per gate per image.
func (c *Classifier) applyBoosts(ctx context.Context, image []byte, scores []scored) {
	gateResults := make(map[*ContextGate]bool)

	for i := range scores {
		s := &scores[i]
		s.boosted = s.raw

		policy, ok := c.byCategory[s.name]
		if !ok {
			continue
		}
		mult := StepMultiplier(s.raw)
		if mult <= 1 {
			continue
		}

		if policy.Gate != nil {
			pass, seen := gateResults[policy.Gate]
			if !seen {
				pass = c.gatePasses(ctx, image, policy.Gate)
				gateResults[policy.Gate] = pass
			}
			if !pass {
				c.logger.Debug("context gate vetoed boost",
					logger.String("category", s.name),
					logger.String("group", policy.Group),
				)
				continue
			}
		}

		s.boosted = s.raw * mult
	}
}

// gatePasses re-classifies the image against the gate's opposing prompt
// sets. The boost applies only when the positive set strictly outscores the
// negative one; any sub-query failure counts as a veto.
func (c *Classifier) gatePasses(ctx context.Context, image []byte, gate *ContextGate) bool {
	prompts := make([]string, 0, len(gate.Positive)+len(gate.Negative))
	prompts = append(prompts, gate.Positive...)
	prompts = append(prompts, gate.Negative...)

	probs, err := embedding.ZeroShot(ctx, c.embedder, image, prompts)
	if err != nil {
		c.logger.Warn("context gate sub-query failed, skipping boost", logger.Error(err))
		return false
	}

	var positive, negative float64
	for i, p := range probs {
		if i < len(gate.Positive) {
			positive += p
		} else {
			negative += p
		}
	}
	return positive > negative
}

// applyCorrections runs the pair corrections against the dominant category.
// At most one correction fires per classification.
func (c *Classifier) applyCorrections(ctx context.Context, image []byte, dominant scored, scores []scored) scored {
	for _, corr := range c.corrections {
		if corr.Trigger != dominant.name {
			continue
		}

		alt, ok := findScore(scores, corr.Alternative)
		if !ok || alt.raw < corr.MinRaw {
			continue
		}
		if !c.gatePasses(ctx, image, &corr.Probe) {
			continue
		}

		c.logger.Info("pair correction applied",
			logger.String("from", dominant.name),
			logger.String("to", corr.Alternative),
			logger.Float64("alt_raw", alt.raw),
		)
		// Promote the alternative to at least the dominant score so the
		// correction sticks; a second pass is a no-op because the
		// trigger is no longer dominant.
		if alt.boosted < dominant.boosted {
			alt.boosted = dominant.boosted
		}
		return alt
	}
	return dominant
}

func (c *Classifier) fallback() []domain.AestheticScore {
	return []domain.AestheticScore{{
		Name:        DefaultAesthetic,
		Score:       DefaultAestheticScore,
		Description: c.vocab.Description(DefaultAesthetic),
	}}
}

func findScore(scores []scored, name string) (scored, bool) {
	for _, s := range scores {
		if s.name == name {
			return s, true
		}
	}
	return scored{}, false
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
