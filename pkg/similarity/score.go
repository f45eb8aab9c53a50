package similarity

// jaccard returns |a ∩ b| / |a ∪ b| over two string sets. Returns 0 for two
// empty sets rather than NaN.
func jaccard(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}

	set := make(map[string]struct{}, len(a))
	for _, v := range a {
		set[v] = struct{}{}
	}

	intersection := 0
	union := len(set)
	for _, v := range b {
		if _, ok := set[v]; ok {
			intersection++
		} else {
			union++
		}
	}

	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// score computes the weighted Jaccard similarity between target and
// candidate, plus the same-rule and time-window bonuses.
func score(target, candidate Bag, cfg Config) float64 {
	s := cfg.Weights.Users*jaccard(target.Users, candidate.Users) +
		cfg.Weights.IPs*jaccard(target.IPs, candidate.IPs) +
		cfg.Weights.Hosts*jaccard(target.Hosts, candidate.Hosts) +
		cfg.Weights.Domains*jaccard(target.Domains, candidate.Domains)

	if target.RuleID != "" && target.RuleID == candidate.RuleID {
		s += cfg.SameRuleBonus
	}

	if !target.Timestamp.IsZero() && !candidate.Timestamp.IsZero() {
		delta := target.Timestamp.Sub(candidate.Timestamp)
		if delta < 0 {
			delta = -delta
		}
		if delta <= cfg.TimeWindow {
			s += cfg.TimeWindowBonus
		}
	}

	return s
}
