package main

import (
	"fmt"

	"jobscraper/internal/advisor"
	"jobscraper/internal/config"
	"jobscraper/internal/dedup"
	"jobscraper/internal/enrich"
	"jobscraper/internal/logging"
	"jobscraper/internal/orchestrator"
	"jobscraper/internal/persistence"
	"jobscraper/internal/persistence/postgres"
	"jobscraper/internal/queue"
	"jobscraper/internal/ratelimit"
	"jobscraper/internal/router"
	"jobscraper/internal/telemetry"
	"jobscraper/internal/validate"
)

// app holds every long-lived component the CLI commands share, wired
// once from configuration and torn down together on exit.
type app struct {
	cfg          *config.Config
	logger       logging.Logger
	repo         persistence.Repository
	closeDedup   func() error
	advisor      *advisor.Manager
	factory      *router.EngineFactory
	recorder     *telemetry.Recorder
	queue        *queue.Queue
	recurring    *queue.RecurringManager
	orchestrator *orchestrator.Orchestrator
}

// buildApp wires the composition root: config -> logging -> persistence
// -> advisor -> rate limiter -> dedup/validate/enrich -> telemetry ->
// engines/router -> orchestrator -> queue, wired explicitly rather than
// through a DI framework.
func buildApp(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if err := logging.InitializeLogging(cfg); err != nil {
		return nil, fmt.Errorf("initialize logging: %w", err)
	}
	logger := logging.GetGlobalLogger()

	repo, err := buildRepository(cfg)
	if err != nil {
		return nil, err
	}

	var provider advisor.Provider
	if cfg.Advisor.APIKey != "" {
		provider = advisor.NewClaudeProvider(cfg, logger)
	}
	advisorMgr := advisor.NewManager(provider, &cfg.Advisor, logger)

	limiter := ratelimit.New(cfg.RateLimit, logger)

	dedupStore, closeDedup, err := dedup.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("build deduplicator: %w", err)
	}

	validator := validate.New()
	enricher := enrich.New()

	recorder := telemetry.New(cfg, repo, logger)

	factory := router.NewEngineFactory(cfg, advisor.BuiltinSelectors(), logger)
	rtr := router.New(factory, advisorMgr, recorder, logger)

	orch := orchestrator.New(cfg, repo, rtr, limiter, dedupStore, validator, enricher, advisorMgr, recorder, logger)

	q := queue.New(cfg, orch, logger)
	recurringMgr := queue.NewRecurringManager(q, logger)

	return &app{
		cfg:          cfg,
		logger:       logger,
		repo:         repo,
		closeDedup:   closeDedup,
		advisor:      advisorMgr,
		factory:      factory,
		recorder:     recorder,
		queue:        q,
		recurring:    recurringMgr,
		orchestrator: orch,
	}, nil
}

// loadConfigOnly loads configuration without standing up the rest of
// the composition root, for commands (like migrate) that need nothing
// else.
func loadConfigOnly(configPath string) (*config.Config, error) {
	return config.Load(configPath)
}

func buildRepository(cfg *config.Config) (persistence.Repository, error) {
	if cfg.Postgres.DSN == "" {
		return persistence.NewMemory(), nil
	}
	store, err := postgres.Open(cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return store, nil
}

// close releases every resource buildApp acquired, in reverse order.
func (a *app) close() {
	if a.closeDedup != nil {
		if err := a.closeDedup(); err != nil {
			a.logger.Warn("error closing deduplicator", map[string]interface{}{"error": err.Error()})
		}
	}
	if a.repo != nil {
		if err := a.repo.Close(); err != nil {
			a.logger.Warn("error closing repository", map[string]interface{}{"error": err.Error()})
		}
	}
	logging.CloseLogging()
}
