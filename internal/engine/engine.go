// Package engine defines the adapter contract every fetch-and-extract
// engine implements: probe, listJobs, extractJob, close. Concrete
// adapters live in the static, browser, and feed subpackages; this
// package also hosts the shared date-parsing helper and the generic
// selector-fallback resolver all three adapters use.
package engine

import (
	"context"
	"time"

	"jobscraper/pkg/models"
)

// Adapter is the uniform contract implemented by every engine.
type Adapter interface {
	// Probe is an inexpensive reachability check with a short deadline.
	Probe(ctx context.Context, url string) bool

	// ListJobs traverses listing pages for a board and returns absolute
	// job detail URLs plus the number of listing pages actually fetched,
	// honoring the board's pagination model. It stops when a page yields
	// no new URLs, maxPages is reached, or no next-page locator is found.
	ListJobs(ctx context.Context, board *models.JobBoard, query, location string, maxPages int) ([]string, int, error)

	// ExtractJob fetches one detail page and applies selectors with
	// fallback order (board selectors, then the built-in generic
	// library). Returns nil, nil when required fields are missing.
	ExtractJob(ctx context.Context, board *models.JobBoard, url string, selectors models.SelectorMap) (*models.RawJob, error)

	// Close releases adapter resources (browser instances, connection
	// pools, etc).
	Close() error

	// Name identifies the engine for telemetry and routing decisions.
	Name() models.Engine
}

// Factory builds engine adapters on demand, one per router decision.
type Factory interface {
	Build(engine models.Engine) (Adapter, error)
}

// ResolveSelector returns the first non-empty selector candidate for a
// field: the board's own selector list first, then the built-in generic
// library.
func ResolveSelector(board models.SelectorMap, generic models.SelectorMap, field models.SelectorField) []string {
	if list := board.Get(field); len(list) > 0 {
		return list
	}
	return generic.Get(field)
}

// dateLayouts are the absolute date formats ParseDate recognizes, tried
// in order.
var dateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"02-01-2006",
}

// ParseDate accepts the absolute formats YYYY-MM-DD, MM/DD/YYYY,
// DD-MM-YYYY and the relative forms "today", "yesterday", and
// "N {days|hours|weeks} ago". Unparseable input returns nil.
func ParseDate(raw string, now time.Time) *time.Time {
	s := normalizeDateString(raw)
	if s == "" {
		return nil
	}

	switch s {
	case "today":
		t := now
		return &t
	case "yesterday":
		t := now.AddDate(0, 0, -1)
		return &t
	}

	if t, ok := parseRelative(s, now); ok {
		return &t
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
