package browser

import (
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-rod/rod"

	"jobscraper/internal/config"
	"jobscraper/internal/engine"
	"jobscraper/internal/logging"
	"jobscraper/pkg/models"
	"jobscraper/pkg/urlutil"
	"jobscraper/pkg/utils"
)

// consentSelectors is the fixed ordered list of cookie/consent overlay
// dismiss buttons tried before extraction.
var consentSelectors = []string{
	"#onetrust-accept-btn-handler",
	"button[aria-label='Accept all']",
	"button[data-testid='cookie-accept']",
	".cookie-consent button.accept",
	"button#accept-cookies",
}

// Adapter is the headless-browser engine.
type Adapter struct {
	cfg     *config.Config
	pool    *pool
	solver  *Solver
	generic models.SelectorMap
	logger  logging.Logger
}

// New builds a browser engine adapter. Captcha escalation only fires
// when a challenge widget is detected on a loaded page and auto-solve is
// enabled, so the adapter stays usable without a 2CAPTCHA key for sites
// that don't need it.
func New(cfg *config.Config, generic models.SelectorMap, logger logging.Logger) *Adapter {
	l := logger.WithField("component", "engine.browser")
	return &Adapter{
		cfg:     cfg,
		pool:    newPool(cfg, l),
		solver:  NewSolver(cfg, l),
		generic: generic,
		logger:  l,
	}
}

func (a *Adapter) Name() models.Engine { return models.EngineBrowser }

func (a *Adapter) Probe(ctx context.Context, target string) bool {
	probeCtx, cancel := context.WithTimeout(ctx, a.cfg.Engines.ProbeTimeout)
	defer cancel()
	_, page, err := a.pool.acquirePage(a.cfg)
	if err != nil {
		return false
	}
	err = navigate(probeCtx, page, target, a.cfg.Engines.ProbeTimeout)
	return err == nil
}

func (a *Adapter) load(ctx context.Context, target string, readySelector string) (*goquery.Document, error) {
	_, page, err := a.pool.acquirePage(a.cfg)
	if err != nil {
		return nil, utils.NewTransientNetworkError(target+": browser unavailable", err)
	}

	if err := navigate(ctx, page, target, a.cfg.Engines.PageLoadTimeout); err != nil {
		return nil, utils.NewTransientNetworkError(target+": navigation failed", err)
	}

	waitForReadiness(ctx, page, readySelector, a.cfg.Engines.SelectorWait)
	dismissConsentOverlays(page)

	html, err := page.HTML()
	if err != nil {
		return nil, utils.NewValidationError(target + ": failed to read page HTML")
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, utils.NewValidationError(target + ": failed to parse page HTML")
	}

	if ch := detectChallenge(doc); ch != nil {
		return a.solveChallenge(ctx, page, ch, target)
	}
	return doc, nil
}

// solveChallenge escalates a detected anti-bot challenge to the captcha
// solver, injects the token, and re-serializes the page. Without an
// enabled solver the page is reported blocked so the router can route
// away or terminate the task.
func (a *Adapter) solveChallenge(ctx context.Context, page *rod.Page, ch *challenge, target string) (*goquery.Document, error) {
	if !a.solver.enabled() {
		return nil, utils.NewBlockedError(target + ": " + ch.kind + " challenge present")
	}

	var token string
	var err error
	switch ch.kind {
	case "turnstile":
		token, err = a.solver.SolveTurnstile(ctx, ch.siteKey, target)
	default:
		token, err = a.solver.SolveRecaptcha(ctx, ch.siteKey, target)
	}
	if err != nil {
		return nil, utils.NewBlockedError(target + ": challenge solve failed: " + err.Error())
	}

	if err := injectChallengeToken(page, ch.kind, token); err != nil {
		return nil, utils.NewBlockedError(target + ": challenge token injection failed")
	}

	// Give the page's own challenge callback a moment to submit and
	// render the real content before re-serializing.
	select {
	case <-time.After(2 * time.Second):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	html, err := page.HTML()
	if err != nil {
		return nil, utils.NewBlockedError(target + ": page unreadable after challenge solve")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, utils.NewValidationError(target + ": failed to parse page HTML")
	}
	if detectChallenge(doc) != nil {
		return nil, utils.NewBlockedError(target + ": challenge persisted after solve")
	}
	return doc, nil
}

func injectChallengeToken(page *rod.Page, kind, token string) error {
	field := "g-recaptcha-response"
	if kind == "turnstile" {
		field = "cf-turnstile-response"
	}
	_, err := page.Eval(`(name, token) => {
		const el = document.querySelector('[name="' + name + '"]') || document.getElementById(name);
		if (el) { el.value = token; }
	}`, field, token)
	return err
}

// waitForReadiness waits for the readiness selector to appear, or gives
// up after the configured fixed-max wait; extraction proceeds either
// way.
func waitForReadiness(ctx context.Context, page *rod.Page, selector string, maxWait time.Duration) {
	if selector == "" {
		select {
		case <-time.After(maxWait):
		case <-ctx.Done():
		}
		return
	}
	waitCtx, cancel := context.WithTimeout(ctx, maxWait)
	defer cancel()
	done := make(chan struct{})
	go func() {
		if _, err := page.Context(waitCtx).Element(selector); err == nil {
			close(done)
		}
	}()
	select {
	case <-done:
	case <-waitCtx.Done():
	}
}

func dismissConsentOverlays(page *rod.Page) {
	for _, sel := range consentSelectors {
		el, err := page.Timeout(500 * time.Millisecond).Element(sel)
		if err != nil || el == nil {
			continue
		}
		_ = el.Click("left", 1)
		break
	}
}

func (a *Adapter) ListJobs(ctx context.Context, board *models.JobBoard, query, location string, maxPages int) ([]string, int, error) {
	var urls []string
	seen := make(map[string]bool)
	pageURL := board.BaseURL
	pagesScraped := 0

	for page := 1; maxPages <= 0 || page <= maxPages; page++ {
		linkSelectors := engine.ResolveSelector(board.Selectors, a.generic, models.SelectorJobLinks)
		doc, err := a.load(ctx, pageURL, firstSelector(linkSelectors))
		if err != nil {
			if page == 1 {
				return nil, pagesScraped, err
			}
			break
		}
		pagesScraped++

		pageURLs := collectJobLinks(doc, pageURL, linkSelectors)

		// As in the static adapter, seen is only the stop signal; URLs
		// repeating across pages are still emitted for the deduplicator
		// downstream to flag and count.
		newURLs := 0
		for _, u := range pageURLs {
			if !seen[u] {
				seen[u] = true
				newURLs++
			}
		}
		if newURLs == 0 {
			break
		}
		urls = append(urls, pageURLs...)

		next := ""
		for _, sel := range engine.ResolveSelector(board.Selectors, a.generic, models.SelectorNextPage) {
			if s := doc.Find(sel).First(); s.Length() > 0 {
				if href, ok := s.Attr("href"); ok {
					next = urlutil.Resolve(pageURL, href)
					break
				}
			}
		}
		if next == "" {
			break
		}
		pageURL = next
	}

	return urls, pagesScraped, nil
}

func (a *Adapter) ExtractJob(ctx context.Context, board *models.JobBoard, target string, selectors models.SelectorMap) (*models.RawJob, error) {
	titleSelectors := engine.ResolveSelector(selectors, a.generic, models.SelectorJobTitle)
	doc, err := a.load(ctx, target, firstSelector(titleSelectors))
	if err != nil {
		return nil, err
	}

	job := &models.RawJob{
		Title:       firstMatch(doc, titleSelectors),
		Company:     firstMatch(doc, engine.ResolveSelector(selectors, a.generic, models.SelectorCompany)),
		Location:    firstMatch(doc, engine.ResolveSelector(selectors, a.generic, models.SelectorLocation)),
		Description: firstMatch(doc, engine.ResolveSelector(selectors, a.generic, models.SelectorDescription)),
		Salary:      firstMatch(doc, engine.ResolveSelector(selectors, a.generic, models.SelectorSalary)),
		URL:         target,
		BoardID:     board.ID,
		BoardName:   board.Name,
		FetchedAt:   time.Now(),
		Engine:      models.EngineBrowser,
	}

	if raw := firstMatch(doc, engine.ResolveSelector(selectors, a.generic, models.SelectorDatePosted)); raw != "" {
		job.PostedDate = engine.ParseDate(raw, time.Now())
	}

	if !job.Valid() {
		return nil, nil
	}
	return job, nil
}

func (a *Adapter) Close() error {
	return a.pool.close()
}

func firstSelector(candidates []string) string {
	if len(candidates) == 0 {
		return ""
	}
	return candidates[0]
}

// collectJobLinks gathers absolute job URLs from one listing page,
// trying link selectors in fallback order and collapsing repeats within
// the page.
func collectJobLinks(doc *goquery.Document, base string, selectors []string) []string {
	inPage := make(map[string]bool)
	var out []string
	for _, sel := range selectors {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			href, ok := s.Attr("href")
			if !ok {
				return
			}
			abs := urlutil.Resolve(base, href)
			if abs == "" || inPage[abs] {
				return
			}
			inPage[abs] = true
			out = append(out, abs)
		})
		if len(out) > 0 {
			break
		}
	}
	return out
}

func firstMatch(doc *goquery.Document, candidates []string) string {
	for _, sel := range candidates {
		s := doc.Find(sel).First()
		if s.Length() == 0 {
			continue
		}
		if text := strings.TrimSpace(s.Text()); text != "" {
			return text
		}
	}
	return ""
}
