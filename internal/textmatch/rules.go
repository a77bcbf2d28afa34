package textmatch

// Rules defines the configurable weights and thresholds for lexical scoring.
type Rules struct {
	// Keywords are vulnerability terms that raise the similarity score when
	// both texts mention at least one of them.
	Keywords map[string]struct{}
	// KeywordBoost is added to the Jaccard score on a shared keyword hit.
	KeywordBoost float64
	// TitleWeight and DescriptionWeight blend the two per-field similarities
	// into a combined score.
	TitleWeight       float64
	DescriptionWeight float64
	// MinScore is the floor below which a candidate is not considered
	// related at all.
	MinScore float64
}

// DefaultRules provides the standard scoring configuration.
func DefaultRules() Rules {
	keywords := []string{
		"reentrancy", "overflow", "underflow", "access", "control",
		"frontrun", "dos", "denial", "service", "decimal", "precision",
		"whitelist", "blacklist", "transfer", "approve", "allowance",
		"ownership", "permission", "unauthorized", "manipulation",
	}

	set := make(map[string]struct{}, len(keywords))
	for _, kw := range keywords {
		set[kw] = struct{}{}
	}

	return Rules{
		Keywords:          set,
		KeywordBoost:      0.3,
		TitleWeight:       0.6,
		DescriptionWeight: 0.4,
		MinScore:          0.25,
	}
}
