package classifier

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/moorea/moodboard/internal/domain"
	"github.com/moorea/moodboard/internal/logger"
	"github.com/moorea/moodboard/internal/vocab"
)

// fakeEmbedder produces embeddings whose zero-shot probabilities are exactly
// the weights configured per prompt. A prompt matches the first key it
// contains as a substring; unmatched prompts get a negligible weight.
type fakeEmbedder struct {
	weights map[string]float64
	err     error
}

func (f *fakeEmbedder) EmbedImage(_ context.Context, _ []byte) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []float32{1, 0}, nil
}

func (f *fakeEmbedder) EmbedTexts(_ context.Context, prompts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(prompts))
	for i, prompt := range prompts {
		// Longest matching key wins so "bridal minimalist" is not
		// shadowed by "minimalist".
		weight := 1e-9
		best := 0
		for key, w := range f.weights {
			if strings.Contains(prompt, key) && len(key) > best {
				weight = w
				best = len(key)
			}
		}
		// Cosine with the image vector is the first component; softmax of
		// 100*ln(w)/100 recovers w up to normalization.
		s := math.Log(weight) / 100
		out[i] = []float32{float32(s), float32(math.Sqrt(1 - s*s))}
	}
	return out, nil
}

func (f *fakeEmbedder) Health(_ context.Context) error { return f.err }

func writeVocab(t *testing.T, names ...string) *vocab.Store {
	t.Helper()
	var b strings.Builder
	b.WriteString("aesthetics:\n")
	for _, name := range names {
		b.WriteString("  " + name + ":\n")
		b.WriteString("    description: \"" + name + " style\"\n")
		b.WriteString("    keywords:\n")
		b.WriteString("      - \"" + strings.ReplaceAll(name, "_", " ") + " outfit\"\n")
	}
	path := filepath.Join(t.TempDir(), "aesthetics.yaml")
	if err := os.WriteFile(path, []byte(b.String()), 0o600); err != nil {
		t.Fatalf("write vocab: %v", err)
	}
	return vocab.NewStore(path, logger.NewNop())
}

func TestStepMultiplierTiers(t *testing.T) {
	tests := []struct {
		raw  float64
		want float64
	}{
		{0.20, 1.0},
		{0.15, 1.0},
		{0.10, 1.2},
		{0.06, 1.8},
		{0.03, 4.0},
		{0.015, 8.0},
		{0.007, 12.0},
		{0.001, 15.0},
	}
	for _, tt := range tests {
		if got := StepMultiplier(tt.raw); got != tt.want {
			t.Errorf("StepMultiplier(%v) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestBoostStepBoundaryProductsNeverDecrease(t *testing.T) {
	// Walking the tier lower bounds upward, raw*multiplier must not drop:
	// a category entering the next tier never ranks below where it left
	// the previous one.
	prev := 0.0
	for i := len(boostSteps) - 1; i >= 0; i-- {
		step := boostSteps[i]
		if step.MinRaw == 0 {
			continue
		}
		product := step.MinRaw * step.Multiplier
		if product < prev {
			t.Errorf("product %v at tier MinRaw=%v is below previous %v",
				product, step.MinRaw, prev)
		}
		prev = product
	}
}

func TestClassifyDominantAndSupporting(t *testing.T) {
	store := writeVocab(t, "alpha", "beta", "gamma")
	emb := &fakeEmbedder{weights: map[string]float64{
		"alpha": 0.6,
		"beta":  0.3,
		"gamma": 0.1,
	}}
	c := NewWithPolicies(emb, store, nil, nil, nil,
		Config{MinConfidence: 0.025, SupportingThreshold: 0.2}, logger.NewNop())

	result := c.Classify(context.Background(), []byte("img"), "")
	if len(result) != 2 {
		t.Fatalf("expected dominant plus one supporting, got %d entries", len(result))
	}
	if result[0].Name != "alpha" {
		t.Errorf("dominant = %s, want alpha", result[0].Name)
	}
	if math.Abs(result[0].Score-0.6) > 1e-6 {
		t.Errorf("dominant score = %v, want 0.6", result[0].Score)
	}
	if result[1].Name != "beta" {
		t.Errorf("supporting = %s, want beta", result[1].Name)
	}
	if result[0].Description == "" {
		t.Error("dominant description missing")
	}
}

func TestClassifyRejectionUsesDefault(t *testing.T) {
	store := writeVocab(t, "alpha", "beta", "gamma")
	emb := &fakeEmbedder{weights: map[string]float64{
		"alpha": 0.4, "beta": 0.35, "gamma": 0.25,
	}}
	c := NewWithPolicies(emb, store, nil, nil, nil,
		Config{MinConfidence: 0.9, SupportingThreshold: 0.95}, logger.NewNop())

	result := c.Classify(context.Background(), []byte("img"), "")
	if len(result) != 1 {
		t.Fatalf("expected only the default aesthetic, got %d entries", len(result))
	}
	if result[0].Name != DefaultAesthetic {
		t.Errorf("name = %s, want %s", result[0].Name, DefaultAesthetic)
	}
	if result[0].Score != DefaultAestheticScore {
		t.Errorf("score = %v, want %v", result[0].Score, DefaultAestheticScore)
	}
}

func TestClassifyEmbeddingFailureUsesDefault(t *testing.T) {
	store := writeVocab(t, "alpha", "beta")
	emb := &fakeEmbedder{err: errors.New("connection refused")}
	c := NewWithPolicies(emb, store, nil, nil, nil,
		Config{MinConfidence: 0.025, SupportingThreshold: 0.08}, logger.NewNop())

	result := c.Classify(context.Background(), []byte("img"), "")
	if len(result) != 1 || result[0].Name != DefaultAesthetic {
		t.Fatalf("expected default aesthetic on embedding failure, got %+v", result)
	}
}

func TestBoostPromotesGroupMember(t *testing.T) {
	names := []string{"loud", "niche", "f1", "f2", "f3", "f4", "f5", "f6", "f7", "f8"}
	store := writeVocab(t, names...)
	weights := map[string]float64{"loud": 0.12, "niche": 0.11}
	for _, f := range names[2:] {
		weights[f] = 0.77 / 8
	}
	policies := []GroupPolicy{{Group: "test", Members: []string{"niche"}}}

	emb := &fakeEmbedder{weights: weights}
	c := NewWithPolicies(emb, store, nil, policies, nil,
		Config{MinConfidence: 0.025, SupportingThreshold: 0.5}, logger.NewNop())

	result := c.Classify(context.Background(), []byte("img"), "")
	// niche: 0.11 * 1.2 = 0.132 beats loud's un-boosted 0.12.
	if result[0].Name != "niche" {
		t.Fatalf("dominant = %s, want boosted niche", result[0].Name)
	}
}

func TestGateVetoBlocksBoost(t *testing.T) {
	names := []string{"loud", "niche", "f1", "f2", "f3", "f4", "f5", "f6", "f7", "f8"}
	store := writeVocab(t, names...)
	weights := map[string]float64{
		"loud":          0.12,
		"niche":         0.11,
		"gate positive": 0.2,
		"gate negative": 0.8,
	}
	for _, f := range names[2:] {
		weights[f] = 0.77 / 8
	}
	policies := []GroupPolicy{{
		Group:   "test",
		Members: []string{"niche"},
		Gate: &ContextGate{
			Positive: []string{"gate positive"},
			Negative: []string{"gate negative"},
		},
	}}

	emb := &fakeEmbedder{weights: weights}
	c := NewWithPolicies(emb, store, nil, policies, nil,
		Config{MinConfidence: 0.025, SupportingThreshold: 0.5}, logger.NewNop())

	result := c.Classify(context.Background(), []byte("img"), "")
	if result[0].Name != "loud" {
		t.Fatalf("dominant = %s, want loud after gate veto", result[0].Name)
	}
}

func TestPairCorrectionPromotesAlternative(t *testing.T) {
	store := writeVocab(t, "bridal_minimalist", "minimalist", "filler")
	weights := map[string]float64{
		"bridal minimalist": 0.5,
		"minimalist":        0.2,
		"filler":            0.3,
		"everyday plain":    0.9,
		"wedding gown":      0.1,
	}
	corrections := []PairCorrection{{
		Trigger:     "bridal_minimalist",
		Alternative: "minimalist",
		MinRaw:      0.03,
		Probe: ContextGate{
			Positive: []string{"everyday plain"},
			Negative: []string{"wedding gown"},
		},
	}}

	emb := &fakeEmbedder{weights: weights}
	c := NewWithPolicies(emb, store, nil, nil, corrections,
		Config{MinConfidence: 0.025, SupportingThreshold: 0.95}, logger.NewNop())

	result := c.Classify(context.Background(), []byte("img"), "")
	if result[0].Name != "minimalist" {
		t.Fatalf("dominant = %s, want corrected minimalist", result[0].Name)
	}
	// Promotion lifts the alternative to at least the trigger's score.
	if result[0].Score < 0.5-1e-6 {
		t.Errorf("corrected score = %v, want >= 0.5", result[0].Score)
	}
}

func TestPairCorrectionRespectsProbeVeto(t *testing.T) {
	store := writeVocab(t, "bridal_minimalist", "minimalist", "filler")
	weights := map[string]float64{
		"bridal minimalist": 0.5,
		"minimalist":        0.2,
		"filler":            0.3,
		"everyday plain":    0.1,
		"wedding gown":      0.9,
	}
	corrections := []PairCorrection{{
		Trigger:     "bridal_minimalist",
		Alternative: "minimalist",
		MinRaw:      0.03,
		Probe: ContextGate{
			Positive: []string{"everyday plain"},
			Negative: []string{"wedding gown"},
		},
	}}

	emb := &fakeEmbedder{weights: weights}
	c := NewWithPolicies(emb, store, nil, nil, corrections,
		Config{MinConfidence: 0.025, SupportingThreshold: 0.95}, logger.NewNop())

	result := c.Classify(context.Background(), []byte("img"), "")
	if result[0].Name != "bridal_minimalist" {
		t.Fatalf("dominant = %s, want bridal_minimalist when probe points at the trigger", result[0].Name)
	}
}

func TestBuildPromptFallsBackWithoutKeywords(t *testing.T) {
	got := BuildPrompt(aestheticFixture("quiet_luxury", nil))
	want := "a photo of quiet luxury fashion style"
	if got != want {
		t.Errorf("prompt = %q, want %q", got, want)
	}

	got = BuildPrompt(aestheticFixture("preppy", []string{"a", "b", "c", "d", "e", "f", "g"}))
	if strings.Count(got, ",") != 4 {
		t.Errorf("prompt %q should carry exactly five keywords", got)
	}
}

func aestheticFixture(name string, keywords []string) domain.Aesthetic {
	return domain.Aesthetic{Name: name, Keywords: keywords}
}
