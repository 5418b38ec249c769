package classifier

import (
	"fmt"
	"strings"

	"github.com/moorea/moodboard/internal/domain"
)

// promptKeywordLimit caps how many keywords are folded into one prompt;
// CLIP's token window is short and extra keywords dilute the signal.
const promptKeywordLimit = 5

// BuildPrompt composes the zero-shot prompt for one catalog entry. Entries
// with keywords get a keyword-composed prompt; entries without fall back to
// the generic template.
func BuildPrompt(a domain.Aesthetic) string {
	name := strings.ReplaceAll(a.Name, "_", " ")
	if len(a.Keywords) == 0 {
		return fmt.Sprintf("a photo of %s fashion style", name)
	}

	keywords := a.Keywords
	if len(keywords) > promptKeywordLimit {
		keywords = keywords[:promptKeywordLimit]
	}
	return fmt.Sprintf("%s aesthetic with %s", name, strings.Join(keywords, ", "))
}
