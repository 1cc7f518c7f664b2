package enrich

import (
	"strings"

	"jobscraper/pkg/models"
)

// normalizeLocation splits the raw location on commas into
// city/state/country parts and detects a "remote" flag. Confidence is
// 0.7 with at least two comma-separated parts.
func normalizeLocation(raw string) models.EnrichmentValue {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return models.EnrichmentValue{Value: nil, Confidence: 0}
	}

	lower := strings.ToLower(trimmed)
	remote := strings.Contains(lower, "remote") || strings.Contains(lower, "work from home") ||
		strings.Contains(lower, "wfh")

	parts := strings.Split(trimmed, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	norm := models.LocationNorm{Remote: remote}
	switch len(parts) {
	case 1:
		norm.City = parts[0]
	case 2:
		norm.City, norm.State = parts[0], parts[1]
	default:
		norm.City, norm.State, norm.Country = parts[0], parts[1], parts[len(parts)-1]
	}

	confidence := 0.5
	if len(parts) >= 2 {
		confidence = 0.7
	}
	return models.EnrichmentValue{Value: norm, Confidence: confidence}
}
