// Package feed implements the RSS/Atom engine adapter: fields
// derive directly from feed entries, with no pagination beyond the feed
// itself.
package feed

import (
	"context"
	"encoding/xml"
	"io"
	"net/http"
	"strings"
	"time"

	"jobscraper/internal/config"
	"jobscraper/internal/engine"
	"jobscraper/internal/logging"
	"jobscraper/pkg/models"
	"jobscraper/pkg/utils"
)

type rssFeed struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Description string `xml:"description"`
	Link        string `xml:"link"`
	PubDate     string `xml:"pubDate"`
	Author      string `xml:"author"`
}

type atomFeed struct {
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	Title   string `xml:"title"`
	Summary string `xml:"summary"`
	Content string `xml:"content"`
	Link    struct {
		Href string `xml:"href,attr"`
	} `xml:"link"`
	Published string `xml:"published"`
	Author    struct {
		Name string `xml:"name"`
	} `xml:"author"`
}

// Adapter is the RSS/Atom feed engine.
type Adapter struct {
	client *http.Client
	logger logging.Logger
}

// New builds a feed engine adapter.
func New(cfg *config.Config, logger logging.Logger) *Adapter {
	return &Adapter{
		client: &http.Client{Timeout: cfg.Engines.RequestTimeout},
		logger: logger.WithField("component", "engine.feed"),
	}
}

func (a *Adapter) Name() models.Engine { return models.EngineFeed }

func (a *Adapter) Probe(ctx context.Context, target string) bool {
	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, target, nil)
	if err != nil {
		return false
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < 400
}

// ListJobs for a feed engine returns one synthetic entry per feed item,
// encoded as "<feedURL>#item-<index>" so ExtractJob can look it back up without
// a second network fetch. A feed has no pagination beyond itself, so
// maxPages/query/location are accepted for interface symmetry only, and
// the pages-scraped count is 1 for a successfully fetched feed.
func (a *Adapter) ListJobs(ctx context.Context, board *models.JobBoard, query, location string, maxPages int) ([]string, int, error) {
	items, err := a.fetchItems(ctx, board.BaseURL)
	if err != nil {
		return nil, 0, err
	}

	urls := make([]string, 0, len(items))
	for i := range items {
		urls = append(urls, feedItemURL(board.BaseURL, i))
	}
	return urls, 1, nil
}

func (a *Adapter) ExtractJob(ctx context.Context, board *models.JobBoard, target string, selectors models.SelectorMap) (*models.RawJob, error) {
	feedURL, idx, ok := parseFeedItemURL(target)
	if !ok {
		feedURL, idx = board.BaseURL, -1
	}

	items, err := a.fetchItems(ctx, feedURL)
	if err != nil {
		return nil, err
	}
	if idx < 0 || idx >= len(items) {
		return nil, nil
	}
	item := items[idx]

	job := &models.RawJob{
		Title:       item.title,
		Company:     item.company,
		Location:    item.location,
		Description: item.description,
		URL:         item.link,
		BoardID:     board.ID,
		BoardName:   board.Name,
		FetchedAt:   time.Now(),
		Engine:      models.EngineFeed,
	}
	if item.pubDate != "" {
		job.PostedDate = engine.ParseDate(item.pubDate, time.Now())
	}
	if !job.Valid() {
		return nil, nil
	}
	return job, nil
}

func (a *Adapter) Close() error { return nil }

type feedEntry struct {
	title       string
	company     string
	location    string
	description string
	link        string
	pubDate     string
}

func (a *Adapter) fetchItems(ctx context.Context, feedURL string) ([]feedEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, utils.NewTransientNetworkError(feedURL+": feed request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, utils.NewTransientNetworkError(feedURL+": feed returned error status", nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if entries, err := parseRSS(body); err == nil && len(entries) > 0 {
		return entries, nil
	}
	entries, err := parseAtom(body)
	if err != nil {
		return nil, utils.NewValidationError(feedURL + ": unrecognized feed format")
	}
	return entries, nil
}

func parseRSS(body []byte) ([]feedEntry, error) {
	var feed rssFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, err
	}
	entries := make([]feedEntry, 0, len(feed.Channel.Items))
	for _, item := range feed.Channel.Items {
		if strings.TrimSpace(item.Title) == "" {
			continue
		}
		entries = append(entries, feedEntry{
			title:       item.Title,
			company:     extractCompany(item.Title, item.Author),
			location:    extractLocation(item.Title, item.Description),
			description: item.Description,
			link:        item.Link,
			pubDate:     item.PubDate,
		})
	}
	return entries, nil
}

func parseAtom(body []byte) ([]feedEntry, error) {
	var feed atomFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, err
	}
	entries := make([]feedEntry, 0, len(feed.Entries))
	for _, e := range feed.Entries {
		if strings.TrimSpace(e.Title) == "" {
			continue
		}
		description := e.Summary
		if description == "" {
			description = e.Content
		}
		entries = append(entries, feedEntry{
			title:       e.Title,
			company:     extractCompany(e.Title, e.Author.Name),
			location:    extractLocation(e.Title, description),
			description: description,
			link:        e.Link.Href,
			pubDate:     e.Published,
		})
	}
	return entries, nil
}

// extractCompany prefers an explicit feed author field, falling back to
// a best-effort "... at <Company>" parse of the title.
func extractCompany(title, author string) string {
	if strings.TrimSpace(author) != "" {
		return strings.TrimSpace(author)
	}
	lower := strings.ToLower(title)
	for _, marker := range []string{" at ", " @ "} {
		if idx := strings.Index(lower, marker); idx != -1 {
			rest := strings.TrimSpace(title[idx+len(marker):])
			if rest != "" {
				return rest
			}
		}
	}
	return ""
}

var commonLocations = []string{
	"remote", "anywhere", "worldwide", "hybrid",
	"san francisco", "new york", "london", "berlin", "toronto",
	"sydney", "tokyo", "bangalore", "austin", "seattle", "boston",
}

func extractLocation(title, description string) string {
	text := strings.ToLower(title + " " + description)
	for _, loc := range commonLocations {
		if strings.Contains(text, loc) {
			return strings.Title(loc)
		}
	}
	return ""
}
