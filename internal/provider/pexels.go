package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/moorea/moodboard/internal/cache"
	"github.com/moorea/moodboard/internal/domain"
	"github.com/moorea/moodboard/internal/logger"
)

const (
	pexelsBaseURL = "https://api.pexels.com/v1"
	// pexelsMaxPerPage is the API's hard cap on per_page.
	pexelsMaxPerPage = 80
	pexelsRatePerSec = 2
	pexelsBurst      = 5
)

// Pexels searches the Pexels photo API.
type Pexels struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	cache   *cache.Cache
	logger  logger.Logger
}

// NewPexels creates a Pexels client. An empty apiKey yields an unavailable
// provider.
func NewPexels(apiKey string, timeout time.Duration, responseCache *cache.Cache, log logger.Logger) *Pexels {
	return &Pexels{
		apiKey:  apiKey,
		baseURL: pexelsBaseURL,
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(pexelsRatePerSec, pexelsBurst),
		cache:   responseCache,
		logger:  log,
	}
}

// Name implements Provider.
func (p *Pexels) Name() string { return "pexels" }

// Available implements Provider.
func (p *Pexels) Available() bool { return p.apiKey != "" }

type pexelsSearchResponse struct {
	Photos []struct {
		ID           int64  `json:"id"`
		Photographer string `json:"photographer"`
		Src          struct {
			Large2x string `json:"large2x"`
			Large   string `json:"large"`
			Medium  string `json:"medium"`
			Small   string `json:"small"`
		} `json:"src"`
	} `json:"photos"`
}

// Search implements Provider.
func (p *Pexels) Search(ctx context.Context, query string, count int) ([]domain.ImageCandidate, error) {
	if !p.Available() {
		return nil, nil
	}
	if cached := p.cache.GetSearch(ctx, p.Name(), query, count); cached != nil {
		return cached, nil
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("pexels rate wait: %w", err)
	}

	if count > pexelsMaxPerPage {
		count = pexelsMaxPerPage
	}
	params := url.Values{
		"query":    {query},
		"per_page": {strconv.Itoa(count)},
		"page":     {"1"},
	}

	header := http.Header{"Authorization": {p.apiKey}}
	var resp pexelsSearchResponse
	if err := getJSON(ctx, p.http, p.baseURL+"/search?"+params.Encode(), header, &resp); err != nil {
		return nil, fmt.Errorf("pexels search %q: %w", query, err)
	}

	candidates := make([]domain.ImageCandidate, 0, len(resp.Photos))
	for _, photo := range resp.Photos {
		imageURL := photo.Src.Large2x
		if imageURL == "" {
			imageURL = photo.Src.Large
		}
		if imageURL == "" {
			imageURL = photo.Src.Medium
		}
		thumbURL := photo.Src.Medium
		if thumbURL == "" {
			thumbURL = photo.Src.Small
		}
		candidates = append(candidates, domain.ImageCandidate{
			ID:             fmt.Sprintf("pexels_%d", photo.ID),
			URL:            imageURL,
			ThumbnailURL:   thumbURL,
			Photographer:   photo.Photographer,
			SourceProvider: p.Name(),
		})
	}

	p.logger.Debug("pexels search complete",
		logger.String("query", query),
		logger.Int("results", len(candidates)),
	)
	p.cache.SetSearch(ctx, p.Name(), query, count, candidates)
	return candidates, nil
}
