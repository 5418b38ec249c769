// Package aggregator fans search keywords out across the configured photo
// providers and merges the results into a deduplicated candidate pool.
package aggregator

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/moorea/moodboard/internal/domain"
	"github.com/moorea/moodboard/internal/keywords"
	"github.com/moorea/moodboard/internal/logger"
	"github.com/moorea/moodboard/internal/metrics"
	"github.com/moorea/moodboard/internal/provider"
)

// Config holds the aggregation limits.
type Config struct {
	// MaxCandidates caps the merged pool size.
	MaxCandidates int
	// Timeout bounds one full aggregation round across all providers.
	Timeout time.Duration
}

// Aggregator collects image candidates from the photo providers. A provider
// or query that fails contributes nothing; the pool only comes back empty
// when every source fails, in which case the fallback ladder kicks in.
type Aggregator struct {
	providers []provider.Provider
	fallback  provider.Provider
	metrics   *metrics.Metrics
	cfg       Config
	logger    logger.Logger
}

// New creates an aggregator. fallback (usually the bundled local pool) is
// consulted only when every remote source returns nothing; it may be nil,
// as may m.
func New(providers []provider.Provider, fallback provider.Provider, m *metrics.Metrics, cfg Config, log logger.Logger) *Aggregator {
	return &Aggregator{providers: providers, fallback: fallback, metrics: m, cfg: cfg, logger: log}
}

func (a *Aggregator) recordSearch(providerName, outcome string) {
	if a.metrics != nil {
		a.metrics.ProviderSearch.WithLabelValues(providerName, outcome).Inc()
	}
}

// Gather runs every (provider, query) pair concurrently and merges the
// results in a fixed provider-then-query order, so the deduplicated pool is
// deterministic for a given set of responses. negatives are appended to each
// provider query as exclusion terms; category is stamped onto every
// candidate.
func (a *Aggregator) Gather(parent context.Context, queries, negatives []string, category string) []domain.ImageCandidate {
	if len(queries) == 0 {
		return nil
	}

	active := a.availableProviders()
	if len(active) == 0 {
		a.logger.Warn("no photo providers configured, using fallback pool")
		return a.useFallback(parent, queries, category)
	}

	ctx, cancel := context.WithTimeout(parent, a.cfg.Timeout)
	defer cancel()

	perQuery := a.cfg.MaxCandidates / len(queries)
	if perQuery < 1 {
		perQuery = 1
	}

	// results is indexed by provider-major, query-minor slot so the merge
	// order does not depend on goroutine scheduling.
	results := make([][]domain.ImageCandidate, len(active)*len(queries))
	g, gctx := errgroup.WithContext(ctx)
	for pi, p := range active {
		for qi, query := range queries {
			slot := pi*len(queries) + qi
			p, query := p, query
			g.Go(func() error {
				candidates, err := p.Search(gctx, excludeTerms(query, negatives), perQuery)
				if err != nil {
					a.recordSearch(p.Name(), "error")
					a.logger.Warn("provider search failed",
						logger.String("provider", p.Name()),
						logger.String("query", query),
						logger.Error(err),
					)
					return nil
				}
				a.recordSearch(p.Name(), "ok")
				results[slot] = candidates
				return nil
			})
		}
	}
	_ = g.Wait()

	pool := a.merge(results, category)
	if len(pool) == 0 {
		a.logger.Warn("all provider searches came back empty",
			logger.Strings("queries", queries))
		return a.useFallback(parent, queries, category)
	}

	a.logger.Info("candidate pool assembled",
		logger.Int("candidates", len(pool)),
		logger.Int("queries", len(queries)),
		logger.Int("providers", len(active)),
		logger.String("category", category),
	)
	return pool
}

// merge deduplicates by image URL, first slot wins, and truncates to the
// configured cap.
func (a *Aggregator) merge(results [][]domain.ImageCandidate, category string) []domain.ImageCandidate {
	seen := make(map[string]struct{})
	var pool []domain.ImageCandidate
	for _, batch := range results {
		for _, c := range batch {
			key := strings.TrimSpace(c.URL)
			if key == "" {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			c.Category = category
			pool = append(pool, c)
			if len(pool) >= a.cfg.MaxCandidates {
				return pool
			}
		}
	}
	return pool
}

// useFallback walks the remaining rungs of the ladder: generic queries
// against the most reliable remote provider, then the local pool. It runs on
// its own timeout; the primary round may have spent the whole outer budget
// before reaching this point.
func (a *Aggregator) useFallback(parent context.Context, queries []string, category string) []domain.ImageCandidate {
	ctx, cancel := context.WithTimeout(parent, a.cfg.Timeout)
	defer cancel()

	if active := a.availableProviders(); len(active) > 0 && !sameQueries(queries, keywords.GenericFallback) {
		p := active[0]
		for _, query := range keywords.GenericFallback {
			candidates, err := p.Search(ctx, query, a.cfg.MaxCandidates)
			if err != nil {
				a.recordSearch(p.Name(), "error")
				continue
			}
			a.recordSearch(p.Name(), "ok")
			if len(candidates) == 0 {
				continue
			}
			a.logger.Info("generic fallback query succeeded",
				logger.String("provider", p.Name()),
				logger.String("query", query),
			)
			return a.merge([][]domain.ImageCandidate{candidates}, category)
		}
	}

	if a.fallback == nil {
		return nil
	}
	query := ""
	if len(queries) > 0 {
		query = queries[0]
	}
	candidates, err := a.fallback.Search(ctx, query, a.cfg.MaxCandidates)
	if err != nil {
		a.logger.Error("local fallback pool failed", logger.Error(err))
		return nil
	}
	return a.merge([][]domain.ImageCandidate{candidates}, category)
}

func (a *Aggregator) availableProviders() []provider.Provider {
	out := make([]provider.Provider, 0, len(a.providers))
	for _, p := range a.providers {
		if p.Available() {
			out = append(out, p)
		}
	}
	return out
}

// maxExcludedTerms caps the exclusion suffix so queries stay within provider
// length limits.
const maxExcludedTerms = 3

// excludeTerms appends negative keywords to a query in the "-term" exclusion
// syntax the photo-search APIs understand.
func excludeTerms(query string, negatives []string) string {
	for i, n := range negatives {
		if i >= maxExcludedTerms {
			break
		}
		query += " -" + n
	}
	return query
}

func sameQueries(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
