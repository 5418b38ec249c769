package classifier

// PairCorrection is a narrow, data-driven fix for one pair of confusable
// categories. When the trigger category is dominant and the alternative is
// plausibly present, the image is re-probed against the two prompt sets; the
// alternative is promoted only when its probe wins. Corrections are
// idempotent: once the alternative is dominant, the trigger no longer
// matches and a second pass changes nothing.
type PairCorrection struct {
	// Trigger is the dominant category that is known to absorb the
	// alternative's images.
	Trigger string
	// Alternative is the category to promote when the probe supports it.
	Alternative string
	// MinRaw is the minimum raw score the alternative needs to be
	// considered at all.
	MinRaw float64
	// Probe distinguishes the pair; Positive describes the alternative,
	// Negative the trigger.
	Probe ContextGate
}

// DefaultPairCorrections is the shipped correction list. Bridal variants
// absorb their base styles because wedding photography dominates the
// embedding space for formal clothing; quiet luxury loses knitwear shots to
// generic cozy styling.
var DefaultPairCorrections = []PairCorrection{
	{
		Trigger:     "bridal_minimalist",
		Alternative: "minimalist",
		MinRaw:      0.03,
		Probe: ContextGate{
			Positive: []string{"everyday minimalist outfit", "plain modern casual clothing"},
			Negative: []string{"wedding dress", "bridal gown"},
		},
	},
	{
		Trigger:     "bridal_romantic",
		Alternative: "romantic",
		MinRaw:      0.03,
		Probe: ContextGate{
			Positive: []string{"romantic everyday outfit with soft fabrics", "flowing non-wedding dress"},
			Negative: []string{"wedding dress", "bridal gown"},
		},
	},
	{
		Trigger:     "bridal_vintage",
		Alternative: "vintage",
		MinRaw:      0.03,
		Probe: ContextGate{
			Positive: []string{"vintage everyday clothing", "retro outfit"},
			Negative: []string{"wedding dress", "bridal gown"},
		},
	},
	{
		Trigger:     "cozy",
		Alternative: "quiet_luxury",
		MinRaw:      0.02,
		Probe: ContextGate{
			Positive: []string{"expensive tailored knitwear", "quiet luxury cashmere outfit"},
			Negative: []string{"casual loungewear", "plain homely sweater"},
		},
	},
}
