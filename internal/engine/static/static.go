// Package static implements the single-shot HTTP+goquery engine adapter
// adapter: issues one GET per page, parses HTML into a selector-queryable
// tree, and rotates through a configured user-agent pool.
package static

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/PuerkitoBio/goquery"

	"jobscraper/internal/config"
	"jobscraper/internal/engine"
	"jobscraper/internal/logging"
	"jobscraper/pkg/models"
	"jobscraper/pkg/urlutil"
	"jobscraper/pkg/utils"
)

// Adapter is the static HTTP engine. Safe for concurrent use; holds no
// per-request state besides the rotating user-agent index.
type Adapter struct {
	client      *http.Client
	userAgents  []string
	uaIndex     uint64
	generic     models.SelectorMap
	maxRetries  int
	logger      logging.Logger
}

// New builds a static engine adapter from configuration.
func New(cfg *config.Config, generic models.SelectorMap, logger logging.Logger) *Adapter {
	uas := cfg.Engines.UserAgents
	if len(uas) == 0 {
		uas = []string{"Mozilla/5.0 (compatible; jobscraper/1.0)"}
	}
	return &Adapter{
		client:     &http.Client{Timeout: cfg.Engines.RequestTimeout},
		userAgents: uas,
		generic:    generic,
		maxRetries: cfg.Engines.MaxHTTPRetries,
		logger:     logger.WithField("component", "engine.static"),
	}
}

func (a *Adapter) Name() models.Engine { return models.EngineStatic }

func (a *Adapter) nextUserAgent() string {
	idx := atomic.AddUint64(&a.uaIndex, 1)
	return a.userAgents[int(idx)%len(a.userAgents)]
}

func (a *Adapter) fetch(ctx context.Context, target string, headers map[string]string) (*goquery.Document, int, error) {
	var lastErr error
	attempts := a.maxRetries
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 0; attempt < attempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, 0, err
		}
		req.Header.Set("User-Agent", a.nextUserAgent())
		req.Header.Set("Accept", "text/html,application/xhtml+xml")
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := a.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			return nil, resp.StatusCode, utils.NewRateLimitedError(target)
		}
		if resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = utils.NewTransientNetworkError(fmt.Sprintf("%s: server error %d", target, resp.StatusCode), nil)
			continue
		}
		if resp.StatusCode >= 400 {
			resp.Body.Close()
			return nil, resp.StatusCode, utils.NewValidationError(fmt.Sprintf("%s: http %d", target, resp.StatusCode))
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
		if err != nil {
			return nil, resp.StatusCode, utils.NewValidationError(fmt.Sprintf("%s: failed to parse HTML: %v", target, err))
		}
		return doc, resp.StatusCode, nil
	}

	return nil, 0, utils.NewTransientNetworkError(target+": retries exhausted", lastErr)
}

func (a *Adapter) Probe(ctx context.Context, target string) bool {
	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_, status, err := a.fetch(probeCtx, target, nil)
	return err == nil && status < 400
}

func (a *Adapter) ListJobs(ctx context.Context, board *models.JobBoard, query, location string, maxPages int) ([]string, int, error) {
	var urls []string
	seen := make(map[string]bool)
	pageURL := buildListingURL(board.BaseURL, query, location, 1)
	pagesScraped := 0

	for page := 1; maxPages <= 0 || page <= maxPages; page++ {
		doc, _, err := a.fetch(ctx, pageURL, board.RequestHeaders)
		if err != nil {
			if page == 1 {
				return nil, pagesScraped, err
			}
			break
		}
		pagesScraped++

		linkSelectors := engine.ResolveSelector(board.Selectors, a.generic, models.SelectorJobLinks)
		pageURLs := collectJobLinks(doc, pageURL, linkSelectors)

		// seen is only the stop signal: a page contributing nothing new
		// ends the traversal. URLs that repeat across pages are still
		// emitted; deciding what is a duplicate belongs to the
		// deduplicator downstream, which also counts them.
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

		nextSelectors := engine.ResolveSelector(board.Selectors, a.generic, models.SelectorNextPage)
		next := findNextPageURL(doc, pageURL, nextSelectors)
		if next == "" {
			break
		}
		pageURL = next
	}

	return urls, pagesScraped, nil
}

// collectJobLinks gathers absolute job URLs from one listing page,
// trying link selectors in fallback order and collapsing repeats within
// the page (the same card often carries several anchors to one URL).
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

func findNextPageURL(doc *goquery.Document, base string, selectors []string) string {
	for _, sel := range selectors {
		if s := doc.Find(sel).First(); s.Length() > 0 {
			if href, ok := s.Attr("href"); ok {
				if abs := urlutil.Resolve(base, href); abs != "" {
					return abs
				}
			}
		}
	}
	return ""
}

func (a *Adapter) ExtractJob(ctx context.Context, board *models.JobBoard, target string, selectors models.SelectorMap) (*models.RawJob, error) {
	doc, _, err := a.fetch(ctx, target, board.RequestHeaders)
	if err != nil {
		return nil, err
	}

	job := &models.RawJob{
		Title:       firstMatch(doc, engine.ResolveSelector(selectors, a.generic, models.SelectorJobTitle)),
		Company:     firstMatch(doc, engine.ResolveSelector(selectors, a.generic, models.SelectorCompany)),
		Location:    firstMatch(doc, engine.ResolveSelector(selectors, a.generic, models.SelectorLocation)),
		Description: firstMatch(doc, engine.ResolveSelector(selectors, a.generic, models.SelectorDescription)),
		Salary:      firstMatch(doc, engine.ResolveSelector(selectors, a.generic, models.SelectorSalary)),
		URL:         target,
		BoardID:     board.ID,
		BoardName:   board.Name,
		FetchedAt:   time.Now(),
		Engine:      models.EngineStatic,
	}

	if raw := firstMatch(doc, engine.ResolveSelector(selectors, a.generic, models.SelectorDatePosted)); raw != "" {
		job.PostedDate = engine.ParseDate(raw, time.Now())
	}

	if !job.Valid() {
		return nil, nil
	}
	return job, nil
}

func (a *Adapter) Close() error { return nil }

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

func buildListingURL(base, query, location string, page int) string {
	if query == "" && location == "" && page <= 1 {
		return base
	}
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	u := base
	if query != "" {
		u += sep + "q=" + query
		sep = "&"
	}
	if location != "" {
		u += sep + "location=" + location
		sep = "&"
	}
	if page > 1 {
		u += sep + "page=" + fmt.Sprint(page)
	}
	return u
}
