// Package enrich implements the heuristic, keyword-driven attribute
// extractor: skills, normalized salary/location, and small
// keyword-weighted classifiers for category, seniority, remote type,
// and benefits. Every result carries a confidence in [0, 1].
package enrich

import "jobscraper/pkg/models"

// Enricher computes an EnrichmentResult for a RawJob.
type Enricher struct{}

// New builds an Enricher. It is stateless (the keyword tables are
// package-level statics) so a zero value also works.
func New() *Enricher {
	return &Enricher{}
}

// Enrich runs every extractor in the catalog and returns the combined
// result.
func (e *Enricher) Enrich(job *models.RawJob) models.EnrichmentResult {
	text := job.Title + " " + job.Description

	result := models.EnrichmentResult{
		models.EnrichSkills:       extractSkills(text),
		models.EnrichSalaryNorm:   normalizeSalary(job.Salary),
		models.EnrichLocationNorm: normalizeLocation(job.Location),
		models.EnrichCategory:     classify(text, categoryKeywords, "other"),
		models.EnrichSeniority:    classify(text, seniorityKeywords, "mid"),
		models.EnrichRemoteType:   classify(text, remoteTypeKeywords, "on_site"),
		models.EnrichBenefits:     extractBenefits(text),
	}
	return result
}
