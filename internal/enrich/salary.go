package enrich

import (
	"regexp"
	"strconv"
	"strings"

	"jobscraper/pkg/models"
)

var salaryAmountPattern = regexp.MustCompile(`[\d,]+(?:\.\d+)?`)

var currencySymbols = map[string]string{
	"$": "USD", "€": "EUR", "£": "GBP",
}

var currencyCodes = []string{"USD", "EUR", "GBP"}

var periodKeywords = map[string]string{
	"year": "year", "annual": "year", "yr": "year",
	"month": "month", "mo": "month",
	"week": "week", "wk": "week",
	"hour": "hour", "hr": "hour", "/hr": "hour",
}

// normalizeSalary parses min/max numeric amounts, infers currency and
// period, and keeps the original text. Confidence is 0.8 with two
// amounts, 0.6 with one.
func normalizeSalary(raw string) models.EnrichmentValue {
	if strings.TrimSpace(raw) == "" {
		return models.EnrichmentValue{Value: nil, Confidence: 0}
	}

	matches := salaryAmountPattern.FindAllString(raw, -1)
	amounts := make([]float64, 0, len(matches))
	for _, m := range matches {
		clean := strings.ReplaceAll(m, ",", "")
		if n, err := strconv.ParseFloat(clean, 64); err == nil {
			amounts = append(amounts, n)
		}
	}

	norm := models.SalaryNorm{Currency: "unknown", Period: "year", Original: raw}
	if len(amounts) > 0 {
		norm.Min = amounts[0]
		norm.Max = amounts[0]
	}
	if len(amounts) >= 2 {
		norm.Min, norm.Max = amounts[0], amounts[len(amounts)-1]
		if norm.Min > norm.Max {
			norm.Min, norm.Max = norm.Max, norm.Min
		}
	}

	for symbol, code := range currencySymbols {
		if strings.Contains(raw, symbol) {
			norm.Currency = code
			break
		}
	}
	if norm.Currency == "unknown" {
		upper := strings.ToUpper(raw)
		for _, code := range currencyCodes {
			if strings.Contains(upper, code) {
				norm.Currency = code
				break
			}
		}
	}

	lower := strings.ToLower(raw)
	for keyword, period := range periodKeywords {
		if strings.Contains(lower, keyword) {
			norm.Period = period
			break
		}
	}

	confidence := 0.6
	if len(amounts) >= 2 {
		confidence = 0.8
	}
	return models.EnrichmentValue{Value: norm, Confidence: confidence}
}
