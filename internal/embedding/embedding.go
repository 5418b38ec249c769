// Package embedding wraps the CLIP inference sidecar behind a narrow
// interface. The model is frozen; only inference is exposed: image vectors,
// batched text vectors, and the zero-shot classification primitive built on
// top of them.
package embedding

import (
	"context"
	"errors"
	"math"
)

// ErrUnavailable indicates the inference service is unreachable.
var ErrUnavailable = errors.New("embedding service unavailable")

// Embedder produces comparable vector representations for images and text.
type Embedder interface {
	// EmbedImage returns a normalized embedding for the given image bytes.
	EmbedImage(ctx context.Context, image []byte) ([]float32, error)
	// EmbedTexts returns one normalized embedding per prompt.
	EmbedTexts(ctx context.Context, prompts []string) ([][]float32, error)
	// Health checks the service is reachable.
	Health(ctx context.Context) error
}

// logitScale matches the CLIP temperature applied before softmax.
const logitScale = 100.0

// Cosine returns the cosine similarity of a and b. Vectors from the
// inference service are already L2-normalized, but the norm is recomputed so
// the function is correct for arbitrary inputs. Returns 0 for mismatched or
// zero-length vectors.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// Softmax normalizes scores into a probability distribution.
func Softmax(scores []float64) []float64 {
	if len(scores) == 0 {
		return nil
	}
	maxScore := scores[0]
	for _, s := range scores[1:] {
		if s > maxScore {
			maxScore = s
		}
	}
	out := make([]float64, len(scores))
	var sum float64
	for i, s := range scores {
		out[i] = math.Exp(s - maxScore)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

// ZeroShot classifies an image against a prompt vocabulary: the image and
// every prompt are embedded, and the softmax over the scaled cosine
// similarities is returned, one probability per prompt, summing to 1.
func ZeroShot(ctx context.Context, e Embedder, image []byte, prompts []string) ([]float64, error) {
	imageVec, err := e.EmbedImage(ctx, image)
	if err != nil {
		return nil, err
	}
	promptVecs, err := e.EmbedTexts(ctx, prompts)
	if err != nil {
		return nil, err
	}

	logits := make([]float64, len(promptVecs))
	for i, pv := range promptVecs {
		logits[i] = logitScale * Cosine(imageVec, pv)
	}
	return Softmax(logits), nil
}
