package validate

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"jobscraper/pkg/models"
)

var emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
var urlSchemePattern = regexp.MustCompile(`^https?://`)
var salaryNumberPattern = regexp.MustCompile(`[\d,]+(?:\.\d+)?`)

func issue(rule string, sev models.Severity, field, message string) models.ValidationIssue {
	return models.ValidationIssue{Rule: rule, Severity: sev, Field: field, Message: message}
}

// requiredFieldIssues checks that title, company, description, and url
// are present, and that location is present (warning only).
func requiredFieldIssues(job *models.RawJob) []models.ValidationIssue {
	var out []models.ValidationIssue
	if strings.TrimSpace(job.Title) == "" {
		out = append(out, issue("required_field", models.SeverityCritical, "title", "title is required"))
	}
	if strings.TrimSpace(job.Company) == "" {
		out = append(out, issue("required_field", models.SeverityError, "company", "company is required"))
	}
	if strings.TrimSpace(job.Description) == "" {
		out = append(out, issue("required_field", models.SeverityError, "description", "description is required"))
	}
	if strings.TrimSpace(job.URL) == "" {
		out = append(out, issue("required_field", models.SeverityCritical, "url", "url is required"))
	}
	if strings.TrimSpace(job.Location) == "" {
		out = append(out, issue("required_field", models.SeverityWarning, "location", "location is missing"))
	}
	return out
}

// formatIssues checks the url scheme and any email addresses found in
// the description against standard patterns.
func formatIssues(job *models.RawJob, fieldVal *validator.Validate) []models.ValidationIssue {
	var out []models.ValidationIssue
	if job.URL != "" {
		if !urlSchemePattern.MatchString(job.URL) || fieldVal.Var(job.URL, "url") != nil {
			out = append(out, issue("url_format", models.SeverityError, "url", "url must be a valid http(s) URL"))
		}
	}
	for _, addr := range emailPattern.FindAllString(job.Description, -1) {
		if fieldVal.Var(addr, "email") != nil {
			out = append(out, issue("email_format", models.SeverityWarning, "description", "malformed email address: "+addr))
		}
	}
	return out
}

// lengthIssues enforces the title/description/company length bounds.
func lengthIssues(job *models.RawJob) []models.ValidationIssue {
	var out []models.ValidationIssue
	if n := len(job.Title); n > 0 && (n < 10 || n > 200) {
		out = append(out, issue("length_bounds", models.SeverityWarning, "title", "title length outside expected [10, 200]"))
	}
	if n := len(job.Description); n > 0 && (n < 50 || n > 10000) {
		out = append(out, issue("length_bounds", models.SeverityWarning, "description", "description length outside expected [50, 10000]"))
	}
	if n := len(job.Company); n > 0 && (n < 2 || n > 100) {
		out = append(out, issue("length_bounds", models.SeverityInfo, "company", "company length outside expected [2, 100]"))
	}
	return out
}

// urlStructureIssues requires a parseable URL with scheme and authority.
func urlStructureIssues(job *models.RawJob) []models.ValidationIssue {
	if job.URL == "" {
		return nil
	}
	u, err := url.Parse(job.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return []models.ValidationIssue{issue("url_structure", models.SeverityError, "url", "url is not a parseable absolute URL")}
	}
	return nil
}

// dateSanityIssues flags a scrape timestamp too far in the future, too
// old, or a posted_date implausibly far in the future.
func dateSanityIssues(job *models.RawJob) []models.ValidationIssue {
	var out []models.ValidationIssue
	now := time.Now()

	if !job.FetchedAt.IsZero() {
		if job.FetchedAt.After(now.Add(time.Hour)) {
			out = append(out, issue("date_sanity", models.SeverityWarning, "fetched_at", "fetch time is more than 1h in the future"))
		}
		if job.FetchedAt.Before(now.AddDate(-1, 0, 0)) {
			out = append(out, issue("date_sanity", models.SeverityInfo, "fetched_at", "fetch time is more than 1y old"))
		}
	}
	if job.PostedDate != nil && job.PostedDate.After(now.Add(24*time.Hour)) {
		out = append(out, issue("date_sanity", models.SeverityWarning, "posted_date", "posted date is more than 1d in the future"))
	}
	return out
}

// salarySanityIssues parses numeric runs out of the salary text and
// flags implausible or inverted ranges.
func salarySanityIssues(job *models.RawJob) []models.ValidationIssue {
	if job.Salary == "" {
		return nil
	}
	matches := salaryNumberPattern.FindAllString(job.Salary, -1)
	if len(matches) == 0 {
		return nil
	}

	amounts := make([]float64, 0, len(matches))
	for _, m := range matches {
		clean := strings.ReplaceAll(m, ",", "")
		if n, err := strconv.ParseFloat(clean, 64); err == nil {
			amounts = append(amounts, n)
		}
	}
	if len(amounts) == 0 {
		return nil
	}

	hourly := strings.Contains(strings.ToLower(job.Salary), "hour") || strings.Contains(strings.ToLower(job.Salary), "/hr")

	var out []models.ValidationIssue
	for _, amt := range amounts {
		if !hourly && amt > 1_000_000 {
			out = append(out, issue("salary_sanity", models.SeverityWarning, "salary", "annual salary above 1,000,000 looks implausible"))
		}
		if !hourly && amt < 1_000 && amt > 0 {
			out = append(out, issue("salary_sanity", models.SeverityWarning, "salary", "annual salary below 1,000 looks implausible"))
		}
	}
	if len(amounts) >= 2 && amounts[0] > amounts[len(amounts)-1] {
		out = append(out, issue("salary_sanity", models.SeverityError, "salary", "salary range minimum exceeds maximum"))
	}
	return out
}
