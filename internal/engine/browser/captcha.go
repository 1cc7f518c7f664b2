package browser

import (
	"context"
	"fmt"
	"time"

	api2captcha "github.com/2captcha/2captcha-go"
	"github.com/PuerkitoBio/goquery"

	"jobscraper/internal/config"
	"jobscraper/internal/logging"
)

// challenge is an anti-bot challenge found in a serialized page.
type challenge struct {
	kind    string // "turnstile" or "recaptcha"
	siteKey string
}

// detectChallenge looks for the widget containers Cloudflare Turnstile
// and reCAPTCHA v2 render into.
func detectChallenge(doc *goquery.Document) *challenge {
	if el := doc.Find(".cf-turnstile[data-sitekey]").First(); el.Length() > 0 {
		key, _ := el.Attr("data-sitekey")
		return &challenge{kind: "turnstile", siteKey: key}
	}
	if el := doc.Find(".g-recaptcha[data-sitekey]").First(); el.Length() > 0 {
		key, _ := el.Attr("data-sitekey")
		return &challenge{kind: "recaptcha", siteKey: key}
	}
	return nil
}

// Solver wraps the 2CAPTCHA service. It is optional: adapters call it only
// when a CAPTCHA is detected on a page, and only when an API key is
// configured and auto-solve is enabled.
type Solver struct {
	client  *api2captcha.Client
	cfg     *config.Config
	logger  logging.Logger
}

// NewSolver builds a 2CAPTCHA-backed solver from the engines.captcha
// configuration section.
func NewSolver(cfg *config.Config, logger logging.Logger) *Solver {
	client := api2captcha.NewClient(cfg.Engines.Captcha.APIKey)
	client.DefaultTimeout = int(cfg.Engines.Captcha.Timeout.Seconds())
	client.RecaptchaTimeout = int(cfg.Engines.Captcha.Timeout.Seconds())
	client.PollingInterval = 5

	return &Solver{
		client: client,
		cfg:    cfg,
		logger: logger.WithField("component", "engine.browser.captcha"),
	}
}

func (s *Solver) enabled() bool {
	return s.cfg.Engines.Captcha.EnableAutoSolve && s.cfg.Engines.Captcha.APIKey != ""
}

// SolveTurnstile solves a Cloudflare Turnstile challenge and returns the
// token to inject back into the page.
func (s *Solver) SolveTurnstile(ctx context.Context, siteKey, pageURL string) (string, error) {
	if !s.enabled() {
		return "", fmt.Errorf("captcha auto-solve is disabled or unconfigured")
	}

	start := time.Now()
	req := (&api2captcha.CloudflareTurnstile{SiteKey: siteKey, Url: pageURL}).ToRequest()
	code, _, err := s.client.Solve(req)
	if err != nil {
		return "", fmt.Errorf("2captcha turnstile solve failed: %w", err)
	}

	s.logger.Info("solved turnstile challenge", map[string]interface{}{
		"page_url": pageURL,
		"duration": time.Since(start).String(),
	})
	return code, nil
}

// SolveRecaptcha solves a reCAPTCHA v2 challenge.
func (s *Solver) SolveRecaptcha(ctx context.Context, siteKey, pageURL string) (string, error) {
	if !s.enabled() {
		return "", fmt.Errorf("captcha auto-solve is disabled or unconfigured")
	}

	start := time.Now()
	req := (&api2captcha.ReCaptcha{SiteKey: siteKey, Url: pageURL}).ToRequest()
	code, _, err := s.client.Solve(req)
	if err != nil {
		return "", fmt.Errorf("2captcha recaptcha solve failed: %w", err)
	}

	s.logger.Info("solved recaptcha challenge", map[string]interface{}{
		"page_url": pageURL,
		"duration": time.Since(start).String(),
	})
	return code, nil
}

// IsHealthy reports whether the solver is usable.
func (s *Solver) IsHealthy() bool {
	return s.enabled()
}
