package enrich

import (
	"testing"

	"jobscraper/pkg/models"
)

func TestEnrichSkillsConfidenceScalesWithMatches(t *testing.T) {
	text := "We need a Go, Python, Kubernetes, Docker, AWS, Terraform expert with React and GraphQL experience plus strong SQL skills."
	result := extractSkills(text)

	skills, ok := result.Value.([]string)
	if !ok || len(skills) == 0 {
		t.Fatalf("expected non-empty skill list, got %#v", result.Value)
	}
	if result.Confidence <= 0 || result.Confidence > 1 {
		t.Errorf("confidence out of bounds: %v", result.Confidence)
	}
}

func TestNormalizeSalaryTwoAmountsHighConfidence(t *testing.T) {
	result := normalizeSalary("$90,000 - $120,000 per year")
	norm, ok := result.Value.(models.SalaryNorm)
	if !ok {
		t.Fatalf("expected SalaryNorm value, got %#v", result.Value)
	}
	if norm.Min != 90000 || norm.Max != 120000 {
		t.Errorf("expected min=90000 max=120000, got min=%v max=%v", norm.Min, norm.Max)
	}
	if norm.Currency != "USD" {
		t.Errorf("expected USD currency, got %q", norm.Currency)
	}
	if norm.Period != "year" {
		t.Errorf("expected year period, got %q", norm.Period)
	}
	if result.Confidence != 0.8 {
		t.Errorf("expected confidence 0.8 with two amounts, got %v", result.Confidence)
	}
}

func TestNormalizeSalarySingleAmountLowerConfidence(t *testing.T) {
	result := normalizeSalary("€55000 per year")
	norm := result.Value.(models.SalaryNorm)
	if norm.Currency != "EUR" {
		t.Errorf("expected EUR currency, got %q", norm.Currency)
	}
	if result.Confidence != 0.6 {
		t.Errorf("expected confidence 0.6 with one amount, got %v", result.Confidence)
	}
}

func TestNormalizeSalaryUnknownCurrencyLeftAsUnknown(t *testing.T) {
	result := normalizeSalary("120000 annually")
	norm := result.Value.(models.SalaryNorm)
	if norm.Currency != "unknown" {
		t.Errorf("expected unknown currency when no symbol/code present, got %q", norm.Currency)
	}
}

func TestNormalizeSalaryEmptyInput(t *testing.T) {
	result := normalizeSalary("")
	if result.Confidence != 0 {
		t.Errorf("expected zero confidence for empty salary text, got %v", result.Confidence)
	}
}

func TestNormalizeLocationSplitsAndDetectsRemote(t *testing.T) {
	result := normalizeLocation("Austin, TX, Remote")
	norm := result.Value.(models.LocationNorm)
	if !norm.Remote {
		t.Error("expected remote flag to be detected")
	}
	if result.Confidence != 0.7 {
		t.Errorf("expected confidence 0.7 with >=2 parts, got %v", result.Confidence)
	}
}

func TestNormalizeLocationSinglePart(t *testing.T) {
	result := normalizeLocation("Remote")
	norm := result.Value.(models.LocationNorm)
	if !norm.Remote {
		t.Error("expected remote flag to be detected from a single-word location")
	}
	if result.Confidence != 0.5 {
		t.Errorf("expected confidence 0.5 with a single part, got %v", result.Confidence)
	}
}

func TestClassifySeniority(t *testing.T) {
	result := classify("We are hiring a Senior Backend Engineer", seniorityKeywords, "mid")
	if result.Value != "senior" {
		t.Errorf("expected senior classification, got %v", result.Value)
	}
}

func TestClassifyDefaultsWhenNoKeywordMatches(t *testing.T) {
	result := classify("Completely unrelated text with no signal", seniorityKeywords, "mid")
	if result.Value != "mid" {
		t.Errorf("expected default label 'mid', got %v", result.Value)
	}
	if result.Confidence != 0 {
		t.Errorf("expected zero confidence with no keyword match, got %v", result.Confidence)
	}
}

func TestExtractBenefits(t *testing.T) {
	result := extractBenefits("We offer health insurance, a 401k match, and unlimited PTO.")
	benefits, ok := result.Value.([]string)
	if !ok {
		t.Fatalf("expected []string, got %#v", result.Value)
	}
	if len(benefits) < 2 {
		t.Errorf("expected at least 2 benefit categories detected, got %v", benefits)
	}
}

func TestEnricherCombinesAllKinds(t *testing.T) {
	e := New()
	job := &models.RawJob{
		Title:       "Senior Backend Engineer",
		Description: "Remote role requiring Go and Kubernetes, $100,000 - $140,000/year, 401k and health insurance included.",
		Location:    "Remote",
		Salary:      "$100,000 - $140,000/year",
	}
	result := e.Enrich(job)

	for _, kind := range []models.EnrichmentKind{
		models.EnrichSkills, models.EnrichSalaryNorm, models.EnrichLocationNorm,
		models.EnrichCategory, models.EnrichSeniority, models.EnrichRemoteType, models.EnrichBenefits,
	} {
		if _, ok := result[kind]; !ok {
			t.Errorf("expected enrichment result to include kind %q", kind)
		}
	}
}
