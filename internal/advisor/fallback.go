package advisor

import "jobscraper/pkg/models"

// builtinSelectors is the generic fallback selector library used when no
// board-specific or advisor-generated selector is available.
var builtinSelectors = models.SelectorMap{
	models.SelectorJobTitle:    {"h1", ".job-title", "[data-testid=job-title]", "title"},
	models.SelectorCompany:     {".company-name", ".company", "[data-testid=company-name]"},
	models.SelectorLocation:    {".location", ".job-location", "[data-testid=location]"},
	models.SelectorDescription: {".job-description", "#job-description", "article", ".description"},
	models.SelectorSalary:      {".salary", ".compensation", "[data-testid=salary]"},
	models.SelectorDatePosted:  {".posted-date", "time", "[data-testid=date-posted]"},
	models.SelectorApplyURL:    {"a.apply-button", "a.apply", "[data-testid=apply-url]"},
	models.SelectorJobLinks:    {"a.job-link", ".job-card a", "a[href*=job]"},
	models.SelectorNextPage:    {"a.next-page", "a[rel=next]", ".pagination .next"},
}

// BuiltinSelectors returns a copy of the generic selector library, so
// adapters cannot mutate the package-level defaults.
func BuiltinSelectors() models.SelectorMap {
	out := make(models.SelectorMap, len(builtinSelectors))
	for k, v := range builtinSelectors {
		cp := make([]string, len(v))
		copy(cp, v)
		out[k] = cp
	}
	return out
}

// Fallback is the deterministic analysis used whenever the advisor is
// unavailable, times out, returns a malformed response, or reports a
// confidence below the configured floor. A requires_js board gets the
// browser engine; everything else gets static.
func Fallback(board *models.JobBoard) *BoardAnalysis {
	engine := models.EngineStatic
	if board.Flags.RequiresJS {
		engine = models.EngineBrowser
	}
	return &BoardAnalysis{
		RecommendedEngine:       engine,
		Complexity:              0.5,
		Selectors:               BuiltinSelectors(),
		AntiBotMeasures:         nil,
		RateLimitRecommendation: 30,
		RequiresJS:              board.Flags.RequiresJS,
		Confidence:              0,
	}
}
