// Package keywords expands classified aesthetics into provider search
// queries, filtering out terms that collide with any accepted category's
// negative keywords.
package keywords

import (
	"strings"

	"github.com/cloudflare/ahocorasick"

	"github.com/moorea/moodboard/internal/domain"
	"github.com/moorea/moodboard/internal/logger"
	"github.com/moorea/moodboard/internal/vocab"
)

// GenericFallback is the query set used when no aesthetic yields any usable
// keyword. It always produces results on every provider.
var GenericFallback = []string{
	"fashion outfit",
	"street style clothing",
	"editorial fashion photography",
}

// environmentSuffixes turn a clothing query into a setting query for the
// environment portion of a moodboard.
var environmentSuffixes = []string{"interior", "scenery"}

// Expander builds search keyword sets from the aesthetic catalog.
type Expander struct {
	vocab  *vocab.Store
	limit  int
	logger logger.Logger
}

// NewExpander creates an expander. limit caps the keywords taken per
// moodboard; values below 1 fall back to 1.
func NewExpander(store *vocab.Store, limit int, log logger.Logger) *Expander {
	if limit < 1 {
		limit = 1
	}
	return &Expander{vocab: store, limit: limit, logger: log}
}

// Expand returns up to the configured limit of clothing search keywords for
// the scored aesthetics, dominant first, plus the union of every accepted
// aesthetic's negative keywords. A keyword containing any negative term from
// that union as a substring is dropped, so a supporting aesthetic cannot
// reintroduce what the dominant one excludes. The negative set is returned
// for reuse in provider query construction. Falls back to GenericFallback
// when no keyword survives.
func (e *Expander) Expand(scores []domain.AestheticScore) (queries, negatives []string) {
	negatives = e.unionNegatives(scores)
	matcher := negativeMatcher(negatives)

	var out []string
	seen := make(map[string]struct{})
	for _, score := range scores {
		if len(out) >= e.limit {
			break
		}
		for _, kw := range e.vocab.Keywords(score.Name) {
			if len(out) >= e.limit {
				break
			}
			kw = strings.TrimSpace(kw)
			if kw == "" {
				continue
			}
			key := strings.ToLower(kw)
			if _, dup := seen[key]; dup {
				continue
			}
			if matcher != nil && len(matcher.Match([]byte(key))) > 0 {
				e.logger.Debug("keyword dropped by negative filter",
					logger.String("aesthetic", score.Name),
					logger.String("keyword", kw),
				)
				continue
			}
			seen[key] = struct{}{}
			out = append(out, kw)
		}
	}

	if len(out) == 0 {
		e.logger.Warn("no usable keywords for aesthetics, using generic fallback",
			logger.Int("aesthetics", len(scores)))
		return append([]string(nil), GenericFallback...), negatives
	}
	return out, negatives
}

// unionNegatives merges the negative keywords of every accepted aesthetic,
// lowercased and deduplicated, dominant first.
func (e *Expander) unionNegatives(scores []domain.AestheticScore) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, score := range scores {
		for _, n := range e.vocab.NegativeKeywords(score.Name) {
			n = strings.ToLower(strings.TrimSpace(n))
			if n == "" {
				continue
			}
			if _, dup := seen[n]; dup {
				continue
			}
			seen[n] = struct{}{}
			out = append(out, n)
		}
	}
	return out
}

// ExpandEnvironment derives setting queries from the dominant aesthetic for
// the environment image slots.
func (e *Expander) ExpandEnvironment(scores []domain.AestheticScore) []string {
	if len(scores) == 0 {
		return nil
	}
	name := strings.ReplaceAll(scores[0].Name, "_", " ")
	out := make([]string, 0, len(environmentSuffixes))
	for _, suffix := range environmentSuffixes {
		out = append(out, name+" "+suffix)
	}
	return out
}

// negativeMatcher builds a substring matcher over the negative terms, nil
// when there are none.
func negativeMatcher(negatives []string) *ahocorasick.Matcher {
	if len(negatives) == 0 {
		return nil
	}
	return ahocorasick.NewStringMatcher(negatives)
}
