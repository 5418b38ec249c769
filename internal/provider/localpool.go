package provider

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/moorea/moodboard/internal/domain"
	"github.com/moorea/moodboard/internal/logger"
)

// LocalPool serves a bounded, pre-seeded image set. It is the last rung of
// the aggregation fallback ladder so a fully offline or rate-limited
// deployment still produces a non-empty moodboard.
type LocalPool struct {
	images []poolImage
	logger logger.Logger
}

type poolImage struct {
	ID           string   `yaml:"id"`
	URL          string   `yaml:"url"`
	ThumbnailURL string   `yaml:"thumbnail_url"`
	Photographer string   `yaml:"photographer"`
	Tags         []string `yaml:"tags"`
}

type poolFile struct {
	Images []poolImage `yaml:"images"`
}

// NewLocalPool loads the pool from path. An empty path yields an empty pool,
// which still satisfies the Provider interface but returns no images.
func NewLocalPool(path string, log logger.Logger) (*LocalPool, error) {
	pool := &LocalPool{logger: log}
	if path == "" {
		return pool, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read local pool %s: %w", path, err)
	}
	var file poolFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse local pool: %w", err)
	}
	pool.images = file.Images

	log.Info("local image pool loaded",
		logger.String("path", path),
		logger.Int("images", len(pool.images)),
	)
	return pool, nil
}

// Name implements Provider.
func (l *LocalPool) Name() string { return "local" }

// Available implements Provider.
func (l *LocalPool) Available() bool { return len(l.images) > 0 }

// Search implements Provider. Images whose tags contain a term of the query
// are preferred; remaining slots are filled in pool order so the pool always
// returns up to count images when it is non-empty.
func (l *LocalPool) Search(_ context.Context, query string, count int) ([]domain.ImageCandidate, error) {
	if count <= 0 || len(l.images) == 0 {
		return nil, nil
	}

	terms := strings.Fields(strings.ToLower(query))
	matched := make([]poolImage, 0, count)
	rest := make([]poolImage, 0, len(l.images))
	for _, img := range l.images {
		if matchesTags(img.Tags, terms) {
			matched = append(matched, img)
		} else {
			rest = append(rest, img)
		}
	}
	ordered := append(matched, rest...)
	if len(ordered) > count {
		ordered = ordered[:count]
	}

	candidates := make([]domain.ImageCandidate, 0, len(ordered))
	for _, img := range ordered {
		candidates = append(candidates, domain.ImageCandidate{
			ID:             "local_" + img.ID,
			URL:            img.URL,
			ThumbnailURL:   img.ThumbnailURL,
			Photographer:   img.Photographer,
			SourceProvider: l.Name(),
		})
	}
	return candidates, nil
}

func matchesTags(tags, terms []string) bool {
	for _, tag := range tags {
		lower := strings.ToLower(tag)
		for _, term := range terms {
			if strings.Contains(lower, term) {
				return true
			}
		}
	}
	return false
}
