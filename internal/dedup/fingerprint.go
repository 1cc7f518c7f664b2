// Package dedup implements the deduplicator: it fingerprints every
// RawJob, matches it against a bounded in-memory store (exact content
// hash, exact normalized URL, then weighted fuzzy similarity), and
// evicts oldest entries once the store grows past capacity.
package dedup

import (
	"crypto/md5"
	"encoding/hex"
	"regexp"
	"strings"

	"jobscraper/pkg/models"
	"jobscraper/pkg/urlutil"
)

// stopAffixes are stripped from the start or end of normalized text
// before hashing.
var stopAffixes = []string{"senior", "remote", "full time", "part time", "junior", "lead"}

var locationAliases = map[string]string{
	"wfh":    "remote",
	"nyc":    "new york",
	"sf":     "san francisco",
	"la":     "los angeles",
	"remote-first": "remote",
}

var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "from": true,
	"this": true, "that": true, "are": true, "was": true, "will": true,
	"you": true, "your": true, "our": true, "has": true, "have": true,
}

var punctuationPattern = regexp.MustCompile(`[^a-z0-9\s]`)
var whitespacePattern = regexp.MustCompile(`\s+`)

// NormalizeText lowercases, strips punctuation, collapses whitespace, and
// trims configured stop-prefixes/suffixes.
func NormalizeText(s string) string {
	s = strings.ToLower(s)
	s = punctuationPattern.ReplaceAllString(s, " ")
	s = whitespacePattern.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)

	for _, affix := range stopAffixes {
		s = strings.TrimPrefix(s, affix+" ")
		s = strings.TrimSuffix(s, " "+affix)
	}
	return strings.TrimSpace(s)
}

// NormalizeLocation applies NormalizeText then the alias table.
func NormalizeLocation(s string) string {
	norm := NormalizeText(s)
	if alias, ok := locationAliases[norm]; ok {
		return alias
	}
	return norm
}

// Tokenize splits text into a lowercased token set, dropping stop words
// and tokens of length <= 2.
func Tokenize(text string) map[string]bool {
	norm := punctuationPattern.ReplaceAllString(strings.ToLower(text), " ")
	tokens := make(map[string]bool)
	for _, tok := range strings.Fields(norm) {
		if len(tok) <= 2 || stopWords[tok] {
			continue
		}
		tokens[tok] = true
	}
	return tokens
}

func hashOf(parts ...string) string {
	sum := md5.Sum([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

// Compute builds the Fingerprint for a RawJob. insertedAt is a caller-
// supplied monotonic sequence number used for LRU eviction ordering.
func Compute(job *models.RawJob, insertedAt int64) models.Fingerprint {
	title := NormalizeText(job.Title)
	company := NormalizeText(job.Company)
	location := NormalizeLocation(job.Location)
	normalizedURL := urlutil.Normalize(job.URL)

	description := NormalizeText(job.Description)

	tokens := Tokenize(job.Title)
	for k := range Tokenize(job.Company) {
		tokens[k] = true
	}
	for k := range Tokenize(job.Location) {
		tokens[k] = true
	}
	for k := range firstNTokens(job.Description, 100) {
		tokens[k] = true
	}

	return models.Fingerprint{
		ContentHash:     hashOf(title, company, location),
		DescriptionHash: hashOf(description),
		NormalizedURL:   normalizedURL,
		Tokens:          tokens,
		Title:           title,
		Company:         company,
		Location:        location,
		InsertedAt:      insertedAt,
	}
}

func firstNTokens(text string, n int) map[string]bool {
	norm := punctuationPattern.ReplaceAllString(strings.ToLower(text), " ")
	fields := strings.Fields(norm)
	if len(fields) > n {
		fields = fields[:n]
	}
	out := make(map[string]bool)
	for _, tok := range fields {
		if len(tok) <= 2 || stopWords[tok] {
			continue
		}
		out[tok] = true
	}
	return out
}
