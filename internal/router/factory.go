package router

import (
	"fmt"

	"jobscraper/internal/config"
	"jobscraper/internal/engine"
	"jobscraper/internal/engine/browser"
	"jobscraper/internal/engine/feed"
	"jobscraper/internal/engine/static"
	"jobscraper/internal/logging"
	"jobscraper/pkg/models"
)

// EngineFactory builds engine adapters by name. It lives alongside the
// router (rather than in internal/engine) because it must import all
// three concrete adapter packages, and those packages import
// internal/engine for the shared Adapter contract and helpers.
type EngineFactory struct {
	cfg     *config.Config
	generic models.SelectorMap
	logger  logging.Logger
}

// NewEngineFactory builds a factory. generic is the fallback selector
// library consulted when a board defines no selector for a field.
func NewEngineFactory(cfg *config.Config, generic models.SelectorMap, logger logging.Logger) *EngineFactory {
	return &EngineFactory{cfg: cfg, generic: generic, logger: logger}
}

// Build constructs a fresh adapter instance for the requested engine. A
// fresh browser adapter gets its own pool; callers must Close() it when
// done to release the underlying browser processes.
func (f *EngineFactory) Build(eng models.Engine) (engine.Adapter, error) {
	switch eng {
	case models.EngineStatic, models.EngineAuto, "":
		return static.New(f.cfg, f.generic, f.logger), nil
	case models.EngineBrowser:
		return browser.New(f.cfg, f.generic, f.logger), nil
	case models.EngineFeed:
		return feed.New(f.cfg, f.logger), nil
	default:
		return nil, fmt.Errorf("unsupported engine: %s", eng)
	}
}
