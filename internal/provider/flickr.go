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
	flickrBaseURL = "https://api.flickr.com/services/rest/"
	// flickrLicenses restricts results to Creative Commons and public
	// domain licenses (IDs 4-10).
	flickrLicenses   = "4,5,6,7,8,9,10"
	flickrMaxPerPage = 500
	flickrRatePerSec = 1
	flickrBurst      = 3
)

// Flickr searches the Flickr REST API.
type Flickr struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	cache   *cache.Cache
	logger  logger.Logger
}

// NewFlickr creates a Flickr client. An empty apiKey yields an unavailable
// provider.
func NewFlickr(apiKey string, timeout time.Duration, responseCache *cache.Cache, log logger.Logger) *Flickr {
	return &Flickr{
		apiKey:  apiKey,
		baseURL: flickrBaseURL,
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(flickrRatePerSec, flickrBurst),
		cache:   responseCache,
		logger:  log,
	}
}

// Name implements Provider.
func (f *Flickr) Name() string { return "flickr" }

// Available implements Provider.
func (f *Flickr) Available() bool { return f.apiKey != "" }

type flickrSearchResponse struct {
	Stat    string `json:"stat"`
	Message string `json:"message"`
	Photos  struct {
		Photo []struct {
			ID        string `json:"id"`
			Owner     string `json:"owner"`
			OwnerName string `json:"ownername"`
			Secret    string `json:"secret"`
			Server    string `json:"server"`
			URLC      string `json:"url_c"`
			URLM      string `json:"url_m"`
		} `json:"photo"`
	} `json:"photos"`
}

// Search implements Provider.
func (f *Flickr) Search(ctx context.Context, query string, count int) ([]domain.ImageCandidate, error) {
	if !f.Available() {
		return nil, nil
	}
	if cached := f.cache.GetSearch(ctx, f.Name(), query, count); cached != nil {
		return cached, nil
	}
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("flickr rate wait: %w", err)
	}

	if count > flickrMaxPerPage {
		count = flickrMaxPerPage
	}
	params := url.Values{
		"method":         {"flickr.photos.search"},
		"api_key":        {f.apiKey},
		"text":           {query},
		"license":        {flickrLicenses},
		"content_type":   {"1"},
		"media":          {"photos"},
		"per_page":       {strconv.Itoa(count)},
		"page":           {"1"},
		"format":         {"json"},
		"nojsoncallback": {"1"},
		"extras":         {"url_m,url_c,owner_name,license"},
		"sort":           {"relevance"},
		"safe_search":    {"1"},
	}

	var resp flickrSearchResponse
	if err := getJSON(ctx, f.http, f.baseURL+"?"+params.Encode(), nil, &resp); err != nil {
		return nil, fmt.Errorf("flickr search %q: %w", query, err)
	}
	if resp.Stat != "ok" {
		return nil, fmt.Errorf("flickr search %q: api error: %s", query, resp.Message)
	}

	candidates := make([]domain.ImageCandidate, 0, len(resp.Photos.Photo))
	for _, photo := range resp.Photos.Photo {
		imageURL := photo.URLC
		if imageURL == "" {
			imageURL = photo.URLM
		}
		if imageURL == "" {
			// The extras URLs are not guaranteed; construct from parts.
			imageURL = fmt.Sprintf("https://live.staticflickr.com/%s/%s_%s_c.jpg",
				photo.Server, photo.ID, photo.Secret)
		}
		thumbURL := fmt.Sprintf("https://live.staticflickr.com/%s/%s_%s_m.jpg",
			photo.Server, photo.ID, photo.Secret)

		candidates = append(candidates, domain.ImageCandidate{
			ID:             "flickr_" + photo.ID,
			URL:            imageURL,
			ThumbnailURL:   thumbURL,
			Photographer:   photo.OwnerName,
			SourceProvider: f.Name(),
		})
	}

	f.logger.Debug("flickr search complete",
		logger.String("query", query),
		logger.Int("results", len(candidates)),
	)
	f.cache.SetSearch(ctx, f.Name(), query, count, candidates)
	return candidates, nil
}
