package embedding

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/semaphore"
)

const defaultTimeout = 10 * time.Second

// Client is an HTTP client for the CLIP inference sidecar. Concurrent
// inference calls are bounded by a weighted semaphore so a burst of jobs
// cannot overload the model host.
type Client struct {
	baseURL string
	http    *http.Client
	slots   *semaphore.Weighted
}

// ClientConfig configures the inference client.
type ClientConfig struct {
	BaseURL string
	Timeout time.Duration
	// Slots bounds concurrent inference requests. Zero means 4.
	Slots int64
}

// NewClient creates a client for the inference service at cfg.BaseURL.
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	slots := cfg.Slots
	if slots <= 0 {
		slots = 4
	}
	return &Client{
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: timeout},
		slots:   semaphore.NewWeighted(slots),
	}
}

type embedImageRequest struct {
	ImageB64 string `json:"image_b64"`
}

type embedImageResponse struct {
	Embedding []float32 `json:"embedding"`
}

type embedTextRequest struct {
	Texts []string `json:"texts"`
}

type embedTextResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

type healthResponse struct {
	ModelVersion string `json:"model_version"`
}

// EmbedImage returns the embedding for the given image bytes.
func (c *Client) EmbedImage(ctx context.Context, image []byte) ([]float32, error) {
	if err := c.slots.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("acquire inference slot: %w", err)
	}
	defer c.slots.Release(1)

	req := embedImageRequest{ImageB64: base64.StdEncoding.EncodeToString(image)}
	var resp embedImageResponse
	if err := c.post(ctx, "/embed/image", req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embedding) == 0 {
		return nil, fmt.Errorf("%w: empty image embedding", ErrUnavailable)
	}
	return resp.Embedding, nil
}

// EmbedTexts returns one embedding per prompt, in input order.
func (c *Client) EmbedTexts(ctx context.Context, prompts []string) ([][]float32, error) {
	if len(prompts) == 0 {
		return nil, nil
	}
	if err := c.slots.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("acquire inference slot: %w", err)
	}
	defer c.slots.Release(1)

	var resp embedTextResponse
	if err := c.post(ctx, "/embed/text", embedTextRequest{Texts: prompts}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embeddings) != len(prompts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d prompts",
			ErrUnavailable, len(resp.Embeddings), len(prompts))
	}
	return resp.Embeddings, nil
}

// Health checks the inference service.
func (c *Client) Health(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: unhealthy status %d", ErrUnavailable, resp.StatusCode)
	}

	var health healthResponse
	_ = json.NewDecoder(resp.Body).Decode(&health)
	return nil
}

func (c *Client) post(ctx context.Context, path string, req, respPtr any) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d from %s", ErrUnavailable, resp.StatusCode, path)
	}
	if decodeErr := json.NewDecoder(resp.Body).Decode(respPtr); decodeErr != nil {
		return fmt.Errorf("decode response: %w", decodeErr)
	}
	return nil
}
