package entities

import (
	"net"
	"regexp"
	"strings"
)

// fqdnPattern validates a dotted hostname with at least two labels and an
// alphabetic top-level label.
var fqdnPattern = regexp.MustCompile(`^(?:[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.)+[a-zA-Z]{2,}$`)

// normalizedValue carries the normalized string alongside validation
// outcome, since IP/domain normalization can retain an invalid value with
// degraded confidence rather than dropping it.
type normalizedValue struct {
	Value            string
	ValidationPassed bool
	Confidence       float64
}

func normalizeUser(raw string) normalizedValue {
	v := raw
	if idx := strings.Index(v, `\`); idx >= 0 {
		v = v[idx+1:]
	} else if idx := strings.Index(v, "@"); idx >= 0 {
		v = v[:idx]
	}
	return normalizedValue{Value: strings.ToLower(strings.TrimSpace(v)), ValidationPassed: true, Confidence: 1.0}
}

func normalizeHost(raw string) normalizedValue {
	v := strings.ToLower(strings.TrimSpace(raw))
	return normalizedValue{Value: v, ValidationPassed: true, Confidence: 1.0}
}

func normalizeIP(raw string) normalizedValue {
	v := strings.TrimSpace(raw)
	if net.ParseIP(v) == nil {
		return normalizedValue{Value: v, ValidationPassed: false, Confidence: 0.5}
	}
	return normalizedValue{Value: v, ValidationPassed: true, Confidence: 1.0}
}

func normalizeDomain(raw string) normalizedValue {
	v := strings.ToLower(strings.TrimSpace(raw))
	v = strings.TrimPrefix(v, ".")
	if !fqdnPattern.MatchString(v) {
		return normalizedValue{Value: v, ValidationPassed: false, Confidence: 0.5}
	}
	return normalizedValue{Value: v, ValidationPassed: true, Confidence: 1.0}
}
