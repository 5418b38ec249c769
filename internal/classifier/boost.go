package classifier

// The embedding model systematically under-scores some aesthetic families:
// niche lifestyle categories lose probability mass to broad ones, and
// visually quiet styles lose to louder lookalikes. The boost policy
// compensates with a single declarative table instead of scattered special
// cases: each semantic group lists its member categories, the shared step
// function maps raw confidence to a multiplier, and groups that are easy to
// confuse with an opposing style carry a context gate that must pass before
// the boost applies.

// boostStep is one tier of the multiplier step function.
type boostStep struct {
	// MinRaw is the inclusive lower bound of the tier.
	MinRaw     float64
	Multiplier float64
}

// boostSteps maps raw confidence to a multiplier. Tiers are ordered by
// descending MinRaw; the first matching tier wins. Multipliers shrink as raw
// confidence rises, and the tier products are chosen so that
// raw*multiplier(raw) never decreases across tier boundaries.
var boostSteps = []boostStep{
	{MinRaw: 0.15, Multiplier: 1.0},
	{MinRaw: 0.08, Multiplier: 1.2},
	{MinRaw: 0.05, Multiplier: 1.8},
	{MinRaw: 0.02, Multiplier: 4.0},
	{MinRaw: 0.01, Multiplier: 8.0},
	{MinRaw: 0.005, Multiplier: 12.0},
	{MinRaw: 0, Multiplier: 15.0},
}

// StepMultiplier returns the boost multiplier for a raw confidence.
func StepMultiplier(raw float64) float64 {
	for _, step := range boostSteps {
		if raw >= step.MinRaw {
			return step.Multiplier
		}
	}
	return 1.0
}

// ContextGate is a validation sub-query for groups that superficially
// resemble an opposing style. The image is re-classified against the two
// prompt sets; the boost applies only when the positive set strictly
// outscores the negative one.
type ContextGate struct {
	Positive []string
	Negative []string
}

// GroupPolicy assigns categories to one semantic group with an optional
// context gate.
type GroupPolicy struct {
	Group   string
	Members []string
	Gate    *ContextGate
}

// DefaultBoostPolicies is the shipped boost table. A category belongs to at
// most one group; ungrouped categories are never boosted.
var DefaultBoostPolicies = []GroupPolicy{
	{
		Group: "lifestyle",
		Members: []string{
			"cottagecore", "fairycore", "goblincore",
			"clean_girl", "soft_girl", "coquette",
			"vintage", "retro",
		},
	},
	{
		Group:   "preppy",
		Members: []string{"preppy", "old_money"},
	},
	{
		Group:   "luxury",
		Members: []string{"quiet_luxury"},
		Gate: &ContextGate{
			Positive: []string{"understated luxury clothing", "tailored neutral minimal outfit"},
			Negative: []string{"casual everyday basic clothing", "loud logo streetwear"},
		},
	},
	{
		Group:   "academic",
		Members: []string{"dark_academia", "light_academia"},
	},
	{
		Group:   "dramatic-formal",
		Members: []string{"avant_garde", "gothic"},
	},
	{
		Group:   "outdoor",
		Members: []string{"gorpcore"},
		Gate: &ContextGate{
			Positive: []string{"outdoor technical gear", "hiking clothing with utility pockets"},
			Negative: []string{"formal indoor attire", "evening wear"},
		},
	},
}

// policyIndex maps category name to its group policy for O(1) lookup.
func policyIndex(policies []GroupPolicy) map[string]*GroupPolicy {
	idx := make(map[string]*GroupPolicy)
	for i := range policies {
		for _, member := range policies[i].Members {
			idx[member] = &policies[i]
		}
	}
	return idx
}
