package enrich

import (
	"strings"

	"jobscraper/pkg/models"
)

// keywordWeight pairs a keyword with its scoring weight for a
// classifier.
type keywordWeight struct {
	keyword string
	weight  float64
}

// classifierThreshold is the score at which a label reaches confidence
// 1.0 (confidence = min(1, score/threshold)).
const classifierThreshold = 3.0

var categoryKeywords = map[string][]keywordWeight{
	"engineering": {{"engineer", 2}, {"developer", 2}, {"software", 1}, {"backend", 1}, {"frontend", 1}},
	"design":      {{"designer", 2}, {"ux", 2}, {"ui", 1}, {"figma", 1}},
	"sales":       {{"sales", 2}, {"account executive", 2}, {"quota", 1}},
	"marketing":   {{"marketing", 2}, {"seo", 1}, {"content strategy", 1}},
	"data":        {{"data scientist", 2}, {"data analyst", 2}, {"machine learning", 2}, {"analytics", 1}},
	"product":     {{"product manager", 2}, {"product owner", 2}, {"roadmap", 1}},
	"support":     {{"support", 2}, {"customer success", 2}, {"helpdesk", 1}},
}

var seniorityKeywords = map[string][]keywordWeight{
	"intern":   {{"intern", 3}, {"internship", 3}},
	"junior":   {{"junior", 2}, {"entry level", 2}, {"entry-level", 2}, {"associate", 1}},
	"mid":      {{"mid level", 1}, {"mid-level", 1}},
	"senior":   {{"senior", 2}, {"sr.", 2}, {"sr ", 1}},
	"lead":     {{"lead", 2}, {"staff", 2}, {"principal", 2}},
	"director": {{"director", 3}, {"vp", 2}, {"head of", 2}},
}

var remoteTypeKeywords = map[string][]keywordWeight{
	"remote":  {{"fully remote", 3}, {"remote", 2}, {"work from home", 2}, {"wfh", 1}},
	"hybrid":  {{"hybrid", 3}, {"flexible location", 1}},
	"on_site": {{"on-site", 2}, {"onsite", 2}, {"in office", 1}, {"in-office", 1}},
}

var benefitKeywords = map[string][]string{
	"health_insurance": {"health insurance", "medical coverage", "dental", "vision"},
	"retirement":       {"401k", "401(k)", "pension", "retirement plan"},
	"pto":              {"paid time off", "unlimited pto", "vacation days"},
	"equity":           {"equity", "stock options", "rsu"},
	"remote_stipend":   {"home office stipend", "remote stipend", "wfh stipend"},
	"parental_leave":   {"parental leave", "maternity leave", "paternity leave"},
	"learning_budget":  {"learning budget", "education stipend", "conference budget"},
}

// classify scores text against a keyword-weighted table and returns the
// best-scoring label with confidence min(1, score/threshold). Falls
// back to defaultLabel with confidence 0 when nothing matches.
func classify(text string, table map[string][]keywordWeight, defaultLabel string) models.EnrichmentValue {
	lower := strings.ToLower(text)

	bestLabel := defaultLabel
	bestScore := 0.0
	for label, keywords := range table {
		score := 0.0
		for _, kw := range keywords {
			if strings.Contains(lower, kw.keyword) {
				score += kw.weight
			}
		}
		if score > bestScore {
			bestScore = score
			bestLabel = label
		}
	}

	confidence := bestScore / classifierThreshold
	if confidence > 1 {
		confidence = 1
	}
	return models.EnrichmentValue{Value: bestLabel, Confidence: confidence}
}

// extractBenefits returns every benefit category whose keywords appear
// in text, each weighted equally; confidence is the fraction of the
// catalog matched, capped at 1.
func extractBenefits(text string) models.EnrichmentValue {
	lower := strings.ToLower(text)
	var found []string
	for label, keywords := range benefitKeywords {
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				found = append(found, label)
				break
			}
		}
	}

	confidence := float64(len(found)) / float64(len(benefitKeywords))
	if confidence > 1 {
		confidence = 1
	}
	return models.EnrichmentValue{Value: found, Confidence: confidence}
}
