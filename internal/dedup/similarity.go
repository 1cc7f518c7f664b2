package dedup

import "jobscraper/pkg/models"

// ratio returns a Levenshtein-distance-based similarity in [0, 1]:
// 1 - editDistance/max(len(a), len(b)). Two empty strings are
// considered identical (ratio 1).
func ratio(a, b string) float64 {
	if a == b {
		return 1
	}
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 1
	}
	dist := levenshtein(a, b)
	return 1 - float64(dist)/float64(maxLen)
}

func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	la, lb := len(ra), len(rb)

	if la == 0 {
		return lb
	}
	if lb == 0 {
		return la
	}

	prev := make([]int, lb+1)
	curr := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}

	for i := 1; i <= la; i++ {
		curr[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[lb]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}

// jaccard computes the Jaccard index between two token sets.
func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	intersection := 0
	for tok := range a {
		if b[tok] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// weightedSimilarity is
// 0.3*ratio(title) + 0.2*ratio(company) + 0.1*ratio(location) + 0.4*jaccard(tokens).
func weightedSimilarity(a, b models.Fingerprint) float64 {
	return 0.3*ratio(a.Title, b.Title) +
		0.2*ratio(a.Company, b.Company) +
		0.1*ratio(a.Location, b.Location) +
		0.4*jaccard(a.Tokens, b.Tokens)
}
