package validate

import (
	"regexp"
	"strings"
	"unicode"

	"jobscraper/pkg/models"
)

var placeholderPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)lorem ipsum`),
	regexp.MustCompile(`\[[^\]]+\]`),
	regexp.MustCompile(`(?i)xxx+`),
	regexp.MustCompile(`(?i)\btbd\b`),
	regexp.MustCompile(`(?i)\btodo\b`),
}

// spamRiskTable assigns a risk weight to keywords commonly seen in
// low-quality or scam postings.
var spamRiskTable = map[string]int{
	"work from home":     2,
	"no experience":      2,
	"wire transfer":      3,
	"send your ssn":       3,
	"processing fee":      3,
	"quick money":         2,
	"be your own boss":    2,
	"guaranteed income":   2,
	"click here":          1,
	"limited time":        1,
	"act now":             1,
	"earn $$$":            3,
}

// commonEnglishMarkers are frequent English function words used for a
// crude language heuristic.
var commonEnglishMarkers = map[string]bool{
	"the": true, "and": true, "for": true, "you": true, "with": true,
	"this": true, "that": true, "will": true, "are": true, "our": true,
}

var wordPattern = regexp.MustCompile(`[A-Za-z]+`)

// contentQualityIssues flags placeholder text, excessive word
// repetition, and too few meaningful words in the description.
func contentQualityIssues(job *models.RawJob) []models.ValidationIssue {
	var out []models.ValidationIssue

	for _, pat := range placeholderPatterns {
		if pat.MatchString(job.Description) || pat.MatchString(job.Title) {
			out = append(out, issue("placeholder_text", models.SeverityError, "description", "description contains placeholder-like text"))
			break
		}
	}

	words := wordPattern.FindAllString(strings.ToLower(job.Description), -1)
	meaningful := 0
	counts := make(map[string]int)
	for _, w := range words {
		if len(w) > 3 {
			meaningful++
			counts[w]++
		}
	}
	if meaningful > 0 {
		for _, c := range counts {
			if float64(c)/float64(meaningful) > 0.10 {
				out = append(out, issue("word_repetition", models.SeverityWarning, "description", "a word repeats more than 10% of meaningful words"))
				break
			}
		}
	}
	if meaningful < 10 {
		out = append(out, issue("content_thin", models.SeverityWarning, "description", "description has fewer than 10 meaningful words"))
	}

	return out
}

// languageIssues applies a crude English-marker-vs-non-Latin-script
// heuristic and annotates an info issue when the text looks non-English.
func languageIssues(job *models.RawJob) []models.ValidationIssue {
	text := strings.ToLower(job.Title + " " + job.Description)
	words := wordPattern.FindAllString(text, -1)

	englishCount := 0
	for _, w := range words {
		if commonEnglishMarkers[w] {
			englishCount++
		}
	}

	nonEnglish := false
	for _, r := range job.Title + job.Description {
		if unicode.Is(unicode.Han, r) || unicode.Is(unicode.Cyrillic, r) ||
			unicode.Is(unicode.Arabic, r) || unicode.Is(unicode.Hiragana, r) ||
			unicode.Is(unicode.Katakana, r) || unicode.Is(unicode.Hangul, r) {
			nonEnglish = true
			break
		}
	}

	if englishCount < 3 && nonEnglish {
		return []models.ValidationIssue{issue("language_heuristic", models.SeverityInfo, "description", "text may not be primarily English")}
	}
	return nil
}

// spamIssues scores the job against a fixed keyword risk table plus
// caps/punctuation heuristics, mapping the total to a severity.
func spamIssues(job *models.RawJob) []models.ValidationIssue {
	score := 0
	lowerDesc := strings.ToLower(job.Description)
	for keyword, weight := range spamRiskTable {
		if strings.Contains(lowerDesc, keyword) {
			score += weight
		}
	}

	if capsRatio(job.Title) > 0.70 {
		score += 2
	}
	if strings.Count(job.Description, "!")+strings.Count(job.Description, "?") > 10 {
		score += 1
	}

	var sev models.Severity
	switch {
	case score >= 5:
		sev = models.SeverityError
	case score >= 3:
		sev = models.SeverityWarning
	case score >= 1:
		sev = models.SeverityInfo
	default:
		return nil
	}
	return []models.ValidationIssue{issue("spam_score", sev, "description", "posting matches spam-risk indicators")}
}

func capsRatio(s string) float64 {
	letters, caps := 0, 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				caps++
			}
		}
	}
	if letters == 0 {
		return 0
	}
	return float64(caps) / float64(letters)
}
