// Package browser implements the headless-browser engine adapter:
// loads a page in a real browser, waits for a readiness signal, dismisses
// common cookie/consent overlays, escalates to CAPTCHA solving when
// configured, then serializes the DOM for goquery-based extraction.
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/stealth"

	"jobscraper/internal/config"
	"jobscraper/internal/logging"
)

// pool manages a bounded set of headless browser instances, lazily
// created up to maxInstances. An existing instance is reused when
// Connect succeeds on it; once maxInstances exist and none connects, the
// first instance is used anyway. Dead instances are not removed or
// relaunched.
type pool struct {
	mu           sync.Mutex
	launcher     *launcher.Launcher
	browsers     []*rod.Browser
	maxInstances int
	logger       logging.Logger
}

func newPool(cfg *config.Config, logger logging.Logger) *pool {
	l := launcher.New().
		Headless(true).
		NoSandbox(true).
		Set("disable-blink-features", "AutomationControlled").
		Set("disable-gpu").
		Set("disable-dev-shm-usage")

	max := cfg.Engines.BrowserPoolSize
	if max <= 0 {
		max = 2
	}

	return &pool{
		launcher:     l,
		browsers:     make([]*rod.Browser, 0, max),
		maxInstances: max,
		logger:       logger.WithField("component", "engine.browser.pool"),
	}
}

func (p *pool) acquirePage(cfg *config.Config) (*rod.Browser, *rod.Page, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, b := range p.browsers {
		if b.Connect() == nil {
			page, err := p.newPage(b, cfg)
			if err == nil {
				return b, page, nil
			}
		}
	}

	if len(p.browsers) >= p.maxInstances {
		b := p.browsers[0]
		page, err := p.newPage(b, cfg)
		return b, page, err
	}

	u, err := p.launcher.Launch()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		return nil, nil, fmt.Errorf("failed to connect to browser: %w", err)
	}
	p.browsers = append(p.browsers, browser)

	page, err := p.newPage(browser, cfg)
	if err != nil {
		return nil, nil, err
	}
	return browser, page, nil
}

func (p *pool) newPage(b *rod.Browser, cfg *config.Config) (*rod.Page, error) {
	page, err := stealth.Page(b)
	if err != nil {
		return nil, fmt.Errorf("failed to create stealth page: %w", err)
	}
	return page, nil
}

func (p *pool) close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var firstErr error
	for _, b := range p.browsers {
		if err := b.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	p.browsers = nil
	return firstErr
}

func navigate(ctx context.Context, page *rod.Page, url string, timeout time.Duration) error {
	pageCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return page.Context(pageCtx).Navigate(url)
}
