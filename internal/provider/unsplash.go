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
	unsplashBaseURL = "https://api.unsplash.com"
	// unsplashMaxPerPage is the API's hard cap on per_page.
	unsplashMaxPerPage = 30
	// Demo-tier Unsplash keys allow 50 requests/hour; staying under one
	// request per second keeps production keys comfortable too.
	unsplashRatePerSec = 1
	unsplashBurst      = 3
)

// Unsplash searches the Unsplash photo API.
type Unsplash struct {
	accessKey string
	baseURL   string
	http      *http.Client
	limiter   *rate.Limiter
	cache     *cache.Cache
	logger    logger.Logger
}

// NewUnsplash creates an Unsplash client. An empty accessKey yields an
// unavailable provider.
func NewUnsplash(accessKey string, timeout time.Duration, responseCache *cache.Cache, log logger.Logger) *Unsplash {
	return &Unsplash{
		accessKey: accessKey,
		baseURL:   unsplashBaseURL,
		http:      &http.Client{Timeout: timeout},
		limiter:   rate.NewLimiter(unsplashRatePerSec, unsplashBurst),
		cache:     responseCache,
		logger:    log,
	}
}

// Name implements Provider.
func (u *Unsplash) Name() string { return "unsplash" }

// Available implements Provider.
func (u *Unsplash) Available() bool { return u.accessKey != "" }

type unsplashSearchResponse struct {
	Results []struct {
		ID   string `json:"id"`
		URLs struct {
			Regular string `json:"regular"`
			Small   string `json:"small"`
			Thumb   string `json:"thumb"`
		} `json:"urls"`
		User struct {
			Name string `json:"name"`
		} `json:"user"`
		Links struct {
			DownloadLocation string `json:"download_location"`
		} `json:"links"`
	} `json:"results"`
}

// Search implements Provider.
func (u *Unsplash) Search(ctx context.Context, query string, count int) ([]domain.ImageCandidate, error) {
	if !u.Available() {
		return nil, nil
	}
	if cached := u.cache.GetSearch(ctx, u.Name(), query, count); cached != nil {
		return cached, nil
	}
	if err := u.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("unsplash rate wait: %w", err)
	}

	if count > unsplashMaxPerPage {
		count = unsplashMaxPerPage
	}
	params := url.Values{
		"query":          {query},
		"per_page":       {strconv.Itoa(count)},
		"order_by":       {"relevant"},
		"content_filter": {"high"},
	}

	header := http.Header{"Authorization": {"Client-ID " + u.accessKey}}
	var resp unsplashSearchResponse
	if err := getJSON(ctx, u.http, u.baseURL+"/search/photos?"+params.Encode(), header, &resp); err != nil {
		return nil, fmt.Errorf("unsplash search %q: %w", query, err)
	}

	candidates := make([]domain.ImageCandidate, 0, len(resp.Results))
	for _, photo := range resp.Results {
		imageURL := photo.URLs.Regular
		if imageURL == "" {
			imageURL = photo.URLs.Small
		}
		thumbURL := photo.URLs.Thumb
		if thumbURL == "" {
			thumbURL = photo.URLs.Small
		}
		candidates = append(candidates, domain.ImageCandidate{
			ID:               "unsplash_" + photo.ID,
			URL:              imageURL,
			ThumbnailURL:     thumbURL,
			Photographer:     photo.User.Name,
			SourceProvider:   u.Name(),
			DownloadLocation: photo.Links.DownloadLocation,
		})
	}

	u.logger.Debug("unsplash search complete",
		logger.String("query", query),
		logger.Int("results", len(candidates)),
	)
	u.cache.SetSearch(ctx, u.Name(), query, count, candidates)
	return candidates, nil
}

// TriggerDownloads fires Unsplash download events for attribution compliance.
// Best effort: failures are logged and counted, never returned.
func (u *Unsplash) TriggerDownloads(ctx context.Context, images []domain.ImageCandidate) int {
	if !u.Available() {
		return 0
	}

	triggered := 0
	for _, img := range images {
		if img.SourceProvider != u.Name() || img.DownloadLocation == "" {
			continue
		}
		header := http.Header{"Authorization": {"Client-ID " + u.accessKey}}
		var ignored struct{}
		if err := getJSON(ctx, u.http, img.DownloadLocation, header, &ignored); err != nil {
			u.logger.Warn("unsplash download event failed",
				logger.String("image_id", img.ID),
				logger.Error(err),
			)
			continue
		}
		triggered++
	}
	return triggered
}
