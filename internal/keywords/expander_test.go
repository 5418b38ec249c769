package keywords

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/moorea/moodboard/internal/domain"
	"github.com/moorea/moodboard/internal/logger"
	"github.com/moorea/moodboard/internal/vocab"
)

const testCatalog = `aesthetics:
  romantic:
    description: "soft and flowing"
    keywords:
      - "flowing chiffon dress"
      - "lace blouse"
      - "soft ruffle dress"
    negative_keywords:
      - "lace"
  edgy:
    description: "dark and sharp"
    keywords:
      - "black leather jacket"
      - "studded boots"
  boho:
    description: "layered and loose"
    keywords:
      - "lace maxi dress"
      - "fringe crossbody bag"
  empty:
    description: "nothing usable"
    keywords:
      - "forbidden thing"
    negative_keywords:
      - "forbidden"
`

func testStore(t *testing.T) *vocab.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "aesthetics.yaml")
	if err := os.WriteFile(path, []byte(testCatalog), 0o600); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	return vocab.NewStore(path, logger.NewNop())
}

func scoresFor(names ...string) []domain.AestheticScore {
	out := make([]domain.AestheticScore, len(names))
	for i, n := range names {
		out[i] = domain.AestheticScore{Name: n, Score: 0.5}
	}
	return out
}

func TestExpandFiltersNegativeKeywords(t *testing.T) {
	e := NewExpander(testStore(t), 4, logger.NewNop())

	got, negatives := e.Expand(scoresFor("romantic"))
	for _, kw := range got {
		if kw == "lace blouse" {
			t.Fatal("keyword containing a negative term should be dropped")
		}
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 surviving keywords, got %v", got)
	}
	if len(negatives) != 1 || negatives[0] != "lace" {
		t.Fatalf("negatives = %v, want the category's negative terms", negatives)
	}
}

func TestExpandUnionsNegativesAcrossAesthetics(t *testing.T) {
	e := NewExpander(testStore(t), 6, logger.NewNop())

	// The dominant aesthetic's negative term must also filter the
	// supporting aesthetic's keywords.
	got, negatives := e.Expand(scoresFor("romantic", "boho"))
	for _, kw := range got {
		if kw == "lace maxi dress" {
			t.Fatal("supporting keyword containing the dominant's negative term should be dropped")
		}
	}
	found := false
	for _, kw := range got {
		if kw == "fringe crossbody bag" {
			found = true
		}
	}
	if !found {
		t.Fatalf("clean supporting keyword missing from %v", got)
	}
	if len(negatives) != 1 || negatives[0] != "lace" {
		t.Fatalf("negatives = %v, want the union of all accepted negatives", negatives)
	}
}

func TestExpandUnionDeduplicatesNegatives(t *testing.T) {
	e := NewExpander(testStore(t), 6, logger.NewNop())

	_, negatives := e.Expand(scoresFor("empty", "romantic"))
	want := []string{"forbidden", "lace"}
	if len(negatives) != len(want) {
		t.Fatalf("negatives = %v, want %v", negatives, want)
	}
	for i := range want {
		if negatives[i] != want[i] {
			t.Fatalf("negatives = %v, want %v in dominant-first order", negatives, want)
		}
	}
}

func TestExpandRespectsLimitAndOrder(t *testing.T) {
	e := NewExpander(testStore(t), 3, logger.NewNop())

	got, _ := e.Expand(scoresFor("romantic", "edgy"))
	if len(got) != 3 {
		t.Fatalf("expected 3 keywords, got %v", got)
	}
	// Dominant aesthetic's keywords come first.
	if got[0] != "flowing chiffon dress" {
		t.Errorf("first keyword = %q, want dominant's first", got[0])
	}
	if got[2] != "black leather jacket" {
		t.Errorf("third keyword = %q, want first edgy keyword", got[2])
	}
}

func TestExpandFallsBackWhenNothingSurvives(t *testing.T) {
	e := NewExpander(testStore(t), 4, logger.NewNop())

	got, negatives := e.Expand(scoresFor("empty"))
	if len(got) != len(GenericFallback) {
		t.Fatalf("expected generic fallback, got %v", got)
	}
	if got[0] != GenericFallback[0] {
		t.Errorf("fallback[0] = %q, want %q", got[0], GenericFallback[0])
	}
	if len(negatives) != 1 || negatives[0] != "forbidden" {
		t.Errorf("negatives = %v, want them returned even on fallback", negatives)
	}
}

func TestExpandUnknownAestheticFallsBack(t *testing.T) {
	e := NewExpander(testStore(t), 4, logger.NewNop())

	got, _ := e.Expand(scoresFor("does_not_exist"))
	if len(got) != len(GenericFallback) {
		t.Fatalf("expected generic fallback for unknown aesthetic, got %v", got)
	}
}

func TestExpandEnvironment(t *testing.T) {
	e := NewExpander(testStore(t), 4, logger.NewNop())

	got := e.ExpandEnvironment(scoresFor("quiet_luxury"))
	if len(got) != 2 {
		t.Fatalf("expected 2 environment queries, got %v", got)
	}
	if got[0] != "quiet luxury interior" {
		t.Errorf("environment query = %q", got[0])
	}

	if got := e.ExpandEnvironment(nil); got != nil {
		t.Errorf("expected nil for empty scores, got %v", got)
	}
}
