package validate

import (
	"testing"
	"time"

	"jobscraper/pkg/models"
)

func cleanJob() *models.RawJob {
	return &models.RawJob{
		Title:       "Senior Backend Software Engineer",
		Company:     "Acme Technology Inc",
		Location:    "Austin, TX",
		Description: "We are looking for a talented software engineer to join our growing team and build great products used by many customers worldwide.",
		URL:         "https://acme.example.com/jobs/42",
		BoardID:     "board-1",
		FetchedAt:   time.Now(),
	}
}

func TestValidateCleanJobIsFullyValid(t *testing.T) {
	v := New()
	result := v.Validate(cleanJob(), false)

	if !result.IsValid {
		t.Fatalf("expected clean job to be valid, issues: %+v", result.Issues)
	}
	if result.QualityScore != 1.0 {
		t.Errorf("expected quality score 1.0 for a clean job, got %v (issues: %+v)", result.QualityScore, result.Issues)
	}
}

func TestValidateMissingRequiredFieldsAreCritical(t *testing.T) {
	v := New()
	job := cleanJob()
	job.Title = ""
	job.URL = ""

	result := v.Validate(job, false)

	if result.IsValid {
		t.Fatal("expected job missing title/url to be invalid")
	}
	if !result.HasSeverity(models.SeverityCritical) {
		t.Error("expected a critical issue for missing title/url")
	}
}

func TestValidateMissingCompanyIsErrorNotCritical(t *testing.T) {
	v := New()
	job := cleanJob()
	job.Company = ""

	result := v.Validate(job, false)

	// Missing company alone (title/url intact) must not flip IsValid;
	// only a critical-severity issue does that.
	if !result.IsValid {
		t.Fatal("missing company alone should not be critical")
	}
	if !result.HasSeverity(models.SeverityError) {
		t.Error("expected an error-severity issue for missing company")
	}
}

func TestValidateDuplicateAddsWarningButStaysValid(t *testing.T) {
	v := New()
	job := cleanJob()

	clean := v.Validate(job, false)
	withDup := v.Validate(job, true)

	if !withDup.IsValid {
		t.Fatal("a duplicate flag alone (warning severity) should not make a job invalid")
	}
	if withDup.QualityScore >= clean.QualityScore {
		t.Errorf("expected duplicate flag to reduce quality score: clean=%v dup=%v", clean.QualityScore, withDup.QualityScore)
	}
}

func TestValidateSalaryInvertedRangeIsError(t *testing.T) {
	v := New()
	job := cleanJob()
	job.Salary = "$120,000 - $80,000"

	result := v.Validate(job, false)

	found := false
	for _, issue := range result.Issues {
		if issue.Rule == "salary_sanity" && issue.Severity == models.SeverityError {
			found = true
		}
	}
	if !found {
		t.Errorf("expected an error-severity salary_sanity issue for an inverted range, got %+v", result.Issues)
	}
}

func TestValidateURLStructureRequiresAuthority(t *testing.T) {
	v := New()
	job := cleanJob()
	job.URL = "https://"

	result := v.Validate(job, false)

	found := false
	for _, issue := range result.Issues {
		if issue.Rule == "url_structure" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a url_structure issue for a URL with no host, got %+v", result.Issues)
	}
}

func TestValidateShortDescriptionIsThin(t *testing.T) {
	v := New()
	job := cleanJob()
	job.Description = "Short role. Apply now please thanks."

	result := v.Validate(job, false)

	found := false
	for _, issue := range result.Issues {
		if issue.Rule == "content_thin" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a content_thin issue for a description with <10 meaningful words, got %+v", result.Issues)
	}
}

func TestValidateSpamKeywordsRaiseScore(t *testing.T) {
	v := New()
	job := cleanJob()
	job.Description = "Work from home! No experience needed, wire transfer your processing fee to start earning guaranteed income today. Act now!"

	result := v.Validate(job, false)

	found := false
	for _, issue := range result.Issues {
		if issue.Rule == "spam_score" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a spam_score issue for spam-keyword-heavy description, got %+v", result.Issues)
	}
}

// TestQualityScoreBounds checks the score stays in [0, 1].
func TestQualityScoreBounds(t *testing.T) {
	v := New()
	job := &models.RawJob{} // fails nearly every rule
	result := v.Validate(job, true)

	if result.QualityScore < 0 || result.QualityScore > 1 {
		t.Errorf("quality score out of [0,1] bounds: %v", result.QualityScore)
	}
	if result.IsValid {
		t.Error("an empty job should never be valid")
	}
}
