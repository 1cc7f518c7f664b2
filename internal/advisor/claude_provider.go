package advisor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"jobscraper/internal/config"
	"jobscraper/internal/logging"
	"jobscraper/pkg/models"
)

// ClaudeProvider implements Provider by prompting Claude with a board URL
// and a truncated HTML sample and parsing a JSON recommendation back out.
type ClaudeProvider struct {
	client      anthropic.Client
	config      *config.Config
	htmlCleaner *HTMLCleaner
	logger      logging.Logger
}

// NewClaudeProvider creates a Claude-backed advisor provider.
func NewClaudeProvider(cfg *config.Config, logger logging.Logger) *ClaudeProvider {
	return &ClaudeProvider{
		client:      anthropic.NewClient(option.WithAPIKey(cfg.Advisor.APIKey)),
		config:      cfg,
		htmlCleaner: NewHTMLCleaner(),
		logger:      logger.WithField("component", "advisor.claude"),
	}
}

func (p *ClaudeProvider) Name() string { return "claude" }

func (p *ClaudeProvider) truncatedSample(html string) string {
	cleaned, err := p.htmlCleaner.CleanHTML(html)
	if err != nil {
		cleaned = html
	}
	limit := p.config.Advisor.HTMLSampleBytes
	if limit <= 0 {
		limit = 6144
	}
	if len(cleaned) > limit {
		cleaned = cleaned[:limit]
	}
	return cleaned
}

func (p *ClaudeProvider) complete(ctx context.Context, prompt string) (string, error) {
	resp, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(p.config.Advisor.Model),
		MaxTokens:   2048,
		Temperature: anthropic.Float(0.1),
		Messages: []anthropic.MessageParam{{
			Content: []anthropic.ContentBlockParamUnion{{
				OfText: &anthropic.TextBlockParam{Text: prompt},
			}},
			Role: anthropic.MessageParamRoleUser,
		}},
	})
	if err != nil {
		return "", fmt.Errorf("advisor API call failed: %w", err)
	}
	if len(resp.Content) == 0 {
		return "", fmt.Errorf("empty advisor response")
	}
	text := resp.Content[0].AsText().Text
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text), nil
}

func (p *ClaudeProvider) AnalyzeBoard(ctx context.Context, baseURL, htmlSample string) (*BoardAnalysis, error) {
	sample := p.truncatedSample(htmlSample)
	prompt := fmt.Sprintf(`You are analyzing a job-board website to configure a scraper. Given the URL %s and the HTML sample below, return ONLY a JSON object with exactly these fields:
{
  "recommended_engine": "static" | "browser" | "feed",
  "complexity": number 0-1,
  "selectors": {"job_title": ["..."], "company": ["..."], "location": ["..."], "description": ["..."], "salary": ["..."], "date_posted": ["..."], "apply_url": ["..."], "job_links": ["..."], "next_page": ["..."]},
  "anti_bot_measures": ["..."],
  "rate_limit_recommendation_rpm": number,
  "requires_js": boolean,
  "confidence": number 0-1
}

HTML SAMPLE:
%s`, baseURL, sample)

	text, err := p.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var raw struct {
		RecommendedEngine       string              `json:"recommended_engine"`
		Complexity              float64             `json:"complexity"`
		Selectors               map[string][]string `json:"selectors"`
		AntiBotMeasures         []string            `json:"anti_bot_measures"`
		RateLimitRecommendation float64             `json:"rate_limit_recommendation_rpm"`
		RequiresJS              bool                `json:"requires_js"`
		Confidence              float64             `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, fmt.Errorf("malformed advisor analysis response: %w", err)
	}

	selectors := make(models.SelectorMap, len(raw.Selectors))
	for k, v := range raw.Selectors {
		selectors[models.SelectorField(k)] = v
	}

	return &BoardAnalysis{
		RecommendedEngine:       models.Engine(raw.RecommendedEngine),
		Complexity:              raw.Complexity,
		Selectors:               selectors,
		AntiBotMeasures:         raw.AntiBotMeasures,
		RateLimitRecommendation: raw.RateLimitRecommendation,
		RequiresJS:              raw.RequiresJS,
		Confidence:              raw.Confidence,
	}, nil
}

func (p *ClaudeProvider) GenerateSelectors(ctx context.Context, html, boardName string) (models.SelectorMap, error) {
	sample := p.truncatedSample(html)
	prompt := fmt.Sprintf(`Given this HTML sample from the job board %q, return ONLY a JSON object mapping these keys to arrays of CSS selectors (most specific first): job_title, company, location, description, salary, date_posted, apply_url, job_links, next_page.

HTML SAMPLE:
%s`, boardName, sample)

	text, err := p.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}
	var raw map[string][]string
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, fmt.Errorf("malformed selector generation response: %w", err)
	}
	selectors := make(models.SelectorMap, len(raw))
	for k, v := range raw {
		selectors[models.SelectorField(k)] = v
	}
	return selectors, nil
}

func (p *ClaudeProvider) ValidateContent(ctx context.Context, job *models.RawJob) (*ContentValidation, error) {
	prompt := fmt.Sprintf(`Assess this job posting. Return ONLY a JSON object:
{"quality": number 0-1, "completeness": number 0-1, "relevance": number 0-1, "issues": ["..."], "suggestions": ["..."], "is_duplicate_likely": boolean}

TITLE: %s
COMPANY: %s
LOCATION: %s
DESCRIPTION: %s`, job.Title, job.Company, job.Location, truncate(job.Description, 2000))

	text, err := p.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}
	var out ContentValidation
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return nil, fmt.Errorf("malformed content validation response: %w", err)
	}
	return &out, nil
}

func (p *ClaudeProvider) DetectAntiBot(ctx context.Context, html string, responseHeaders map[string]string) ([]string, error) {
	sample := p.truncatedSample(html)
	headerBlob, _ := json.Marshal(responseHeaders)
	prompt := fmt.Sprintf(`Given this HTML sample and response headers, list any anti-bot/CAPTCHA/block signals present. Return ONLY a JSON array of short strings (empty array if none).

HEADERS: %s
HTML SAMPLE:
%s`, string(headerBlob), sample)

	text, err := p.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}
	var out []string
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return nil, fmt.Errorf("malformed anti-bot detection response: %w", err)
	}
	return out, nil
}

func (p *ClaudeProvider) OptimizeParameters(ctx context.Context, perf PerformanceData) (*ParameterRecommendation, error) {
	prompt := fmt.Sprintf(`Given these recent scraping performance stats, recommend tuning parameters. Return ONLY a JSON object:
{"delay_seconds": number, "concurrency": integer, "timeout_seconds": number, "ua_strategy": "rotate"|"fixed", "use_proxy": boolean, "notes": ["..."]}

SUCCESS RATE: %.3f
AVG RESPONSE TIME (s): %.2f
ERROR RATE: %.3f
BLOCKED COUNT: %d`, perf.SuccessRate, perf.AvgResponseTime.Seconds(), perf.ErrorRate, perf.BlockedCount)

	text, err := p.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}
	var raw struct {
		DelaySeconds   float64  `json:"delay_seconds"`
		Concurrency    int      `json:"concurrency"`
		TimeoutSeconds float64  `json:"timeout_seconds"`
		UAStrategy     string   `json:"ua_strategy"`
		UseProxy       bool     `json:"use_proxy"`
		Notes          []string `json:"notes"`
	}
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, fmt.Errorf("malformed parameter optimization response: %w", err)
	}
	return &ParameterRecommendation{
		Delay:       time.Duration(raw.DelaySeconds * float64(time.Second)),
		Concurrency: raw.Concurrency,
		Timeout:     time.Duration(raw.TimeoutSeconds * float64(time.Second)),
		UAStrategy:  raw.UAStrategy,
		UseProxy:    raw.UseProxy,
		Notes:       raw.Notes,
	}, nil
}

func (p *ClaudeProvider) IsHealthy(ctx context.Context) error {
	if p.config.Advisor.APIKey == "" {
		return fmt.Errorf("advisor API key not configured")
	}
	_, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(p.config.Advisor.Model),
		MaxTokens: 8,
		Messages: []anthropic.MessageParam{{
			Content: []anthropic.ContentBlockParamUnion{{OfText: &anthropic.TextBlockParam{Text: "ping"}}},
			Role:    anthropic.MessageParamRoleUser,
		}},
	})
	if err != nil {
		return fmt.Errorf("advisor health check failed: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
