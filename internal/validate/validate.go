// Package validate implements the rule-based quality scorer: a
// fixed catalog of field, format, content, and spam-heuristic rules,
// each carrying a severity, rolled up into a quality score and an
// is_valid flag.
package validate

import (
	"math"

	"github.com/go-playground/validator/v10"

	"jobscraper/pkg/models"
)

// Validator runs the rule catalog against a RawJob. Duplicate detection
// is a prerequisite the caller has already run once per job, so
// Validate takes the outcome as a parameter instead of re-querying a
// Deduplicator: checking twice would insert the job's fingerprint
// before the duplicate rule ran against it, making every job look like
// a duplicate of itself.
type Validator struct {
	fieldVal *validator.Validate
}

// New builds a Validator.
func New() *Validator {
	return &Validator{
		fieldVal: validator.New(),
	}
}

// Validate runs every rule in the catalog against job and returns the
// aggregated result. duplicate is the caller's already-computed dedup
// verdict for this job; pass false when validating in isolation
// (e.g. in tests that don't exercise dedup).
func (v *Validator) Validate(job *models.RawJob, duplicate bool) *models.ValidationResult {
	var issues []models.ValidationIssue

	issues = append(issues, requiredFieldIssues(job)...)
	issues = append(issues, formatIssues(job, v.fieldVal)...)
	issues = append(issues, lengthIssues(job)...)
	issues = append(issues, urlStructureIssues(job)...)
	issues = append(issues, dateSanityIssues(job)...)
	issues = append(issues, salarySanityIssues(job)...)
	issues = append(issues, contentQualityIssues(job)...)
	issues = append(issues, languageIssues(job)...)
	issues = append(issues, spamIssues(job)...)

	if duplicate {
		issues = append(issues, models.ValidationIssue{
			Rule:     "duplicate",
			Severity: models.SeverityWarning,
			Field:    "url",
			Message:  "job matches an already-seen posting",
		})
	}

	result := &models.ValidationResult{Issues: issues}
	result.QualityScore = qualityScore(issues)
	result.IsValid = !result.HasSeverity(models.SeverityCritical)
	return result
}

// qualityScore is max(0, 1 - sum(penalty(severity))),
// rounded to 3 decimals.
func qualityScore(issues []models.ValidationIssue) float64 {
	score := 1.0
	for _, issue := range issues {
		score -= issue.Severity.Penalty()
	}
	if score < 0 {
		score = 0
	}
	return math.Round(score*1000) / 1000
}
