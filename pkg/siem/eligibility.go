package siem

import "strings"

// EligibilityConfig names which rules are permitted to drive SIEM queries.
// Prefixes are matched against the lowercased rule name; types are matched
// case-insensitively against rule_type.
type EligibilityConfig struct {
	PermittedPrefixes []string
	PermittedTypes    []string
}

// DefaultEligibilityConfig is the permitted set named in the eligibility
// rule: rule names beginning with "fact" or "prof", or rule types
// factFeature/profileFeature.
func DefaultEligibilityConfig() EligibilityConfig {
	return EligibilityConfig{
		PermittedPrefixes: []string{"fact", "prof"},
		PermittedTypes:    []string{"factfeature", "profilefeature"},
	}
}

// Filter keeps only detections permitted to drive SIEM queries: those whose
// normalized rule name matches a permitted prefix or whose rule type is
// permitted, and which carry a non-empty event filter and a positive time
// window. Returns the eligible subset plus an audit breakdown.
func Filter(detections []Detection, cfg EligibilityConfig) ([]Detection, EligibilityBreakdown) {
	breakdown := EligibilityBreakdown{
		Total:   len(detections),
		PerRule: make(map[string]RuleStats),
	}

	eligible := make([]Detection, 0, len(detections))
	for _, d := range detections {
		stats := breakdown.PerRule[d.RuleName]
		if isEligible(d, cfg) {
			eligible = append(eligible, d)
			breakdown.Kept++
			stats.Kept++
		} else {
			breakdown.Skipped++
			stats.Skipped++
		}
		breakdown.PerRule[d.RuleName] = stats
	}

	return eligible, breakdown
}

func isEligible(d Detection, cfg EligibilityConfig) bool {
	if d.EventFilter == "" || d.EventFromMS <= 0 || d.EventToMS <= 0 {
		return false
	}

	ruleName := strings.ToLower(d.RuleName)
	for _, prefix := range cfg.PermittedPrefixes {
		if strings.HasPrefix(ruleName, strings.ToLower(prefix)) {
			return true
		}
	}

	ruleType := strings.ToLower(d.RuleType)
	for _, t := range cfg.PermittedTypes {
		if ruleType == strings.ToLower(t) {
			return true
		}
	}

	return false
}
