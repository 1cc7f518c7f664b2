package enrich

import (
	"sort"
	"strings"

	"jobscraper/pkg/models"
)

// skillTaxonomy is a static skill list grouped by category. Matching
// against job text is a case-insensitive substring test per skill.
var skillTaxonomy = map[string][]string{
	"languages": {
		"go", "golang", "python", "java", "javascript", "typescript", "rust",
		"c++", "c#", "ruby", "php", "kotlin", "swift", "scala",
	},
	"web": {
		"react", "vue", "angular", "next.js", "node.js", "express", "django",
		"flask", "rails", "graphql", "rest api",
	},
	"data": {
		"sql", "postgresql", "mysql", "mongodb", "redis", "kafka",
		"spark", "airflow", "snowflake", "elasticsearch",
	},
	"infra": {
		"docker", "kubernetes", "terraform", "aws", "gcp", "azure",
		"ci/cd", "jenkins", "ansible", "prometheus", "grafana",
	},
	"practices": {
		"agile", "scrum", "tdd", "microservices", "devops", "machine learning",
		"ci/cd pipeline",
	},
}

// extractSkills intersects job text with the skill taxonomy.
// Confidence = min(1, matchCount/10).
func extractSkills(text string) models.EnrichmentValue {
	lower := strings.ToLower(text)
	var found []string
	for _, skills := range skillTaxonomy {
		for _, skill := range skills {
			if strings.Contains(lower, skill) {
				found = append(found, skill)
			}
		}
	}
	sort.Strings(found)

	confidence := float64(len(found)) / 10
	if confidence > 1 {
		confidence = 1
	}
	return models.EnrichmentValue{Value: found, Confidence: confidence}
}
