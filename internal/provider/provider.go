// Package provider contains adapters for the external photo-search services.
// Each client is rate limited, consults the optional response cache, and
// reports failures as errors; the aggregator absorbs them so one broken
// provider never fails a job.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/moorea/moodboard/internal/domain"
)

// Provider is a single photo-search backend.
type Provider interface {
	// Name identifies the provider in candidate attribution and cache keys.
	Name() string
	// Available reports whether the provider has credentials configured.
	// Unavailable providers are skipped silently.
	Available() bool
	// Search returns up to count candidates for the query.
	Search(ctx context.Context, query string, count int) ([]domain.ImageCandidate, error)
}

// getJSON issues a GET and decodes the JSON body into out.
func getJSON(ctx context.Context, client *http.Client, url string, header http.Header, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	for k, vals := range header {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
