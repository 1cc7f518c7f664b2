package models

// EnrichmentKind names one attribute the enricher can attach to a job.
type EnrichmentKind string

const (
	EnrichSkills       EnrichmentKind = "skills"
	EnrichSalaryNorm   EnrichmentKind = "salary_norm"
	EnrichLocationNorm EnrichmentKind = "location_norm"
	EnrichCategory     EnrichmentKind = "category"
	EnrichSeniority    EnrichmentKind = "seniority"
	EnrichRemoteType   EnrichmentKind = "remote_type"
	EnrichBenefits     EnrichmentKind = "benefits"
)

// EnrichmentValue is one enrichment result: a value plus a confidence in
// [0, 1]. Value holds a kind-specific payload (string, []string, or a
// structured type such as SalaryNorm/LocationNorm).
type EnrichmentValue struct {
	Value      interface{} `json:"value"`
	Confidence float64     `json:"confidence"`
}

// SalaryNorm is the structured payload for EnrichSalaryNorm.
type SalaryNorm struct {
	Min      float64 `json:"min,omitempty"`
	Max      float64 `json:"max,omitempty"`
	Currency string  `json:"currency"` // USD, EUR, GBP, or "unknown"
	Period   string  `json:"period"`   // year, month, week, hour
	Original string  `json:"original"`
}

// LocationNorm is the structured payload for EnrichLocationNorm.
type LocationNorm struct {
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	Country string `json:"country,omitempty"`
	Remote  bool   `json:"remote"`
}

// EnrichmentResult maps enrichment kind to its computed value.
type EnrichmentResult map[EnrichmentKind]EnrichmentValue
