// Command orchestrator is the CLI entry point for the distributed
// scraping service: it runs the worker pool (serve), applies Postgres
// migrations (migrate), and manages boards and tasks against a running
// or ad-hoc repository (board, task).
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"jobscraper/internal/advisor"
	"jobscraper/internal/persistence/postgres"
	"jobscraper/internal/telemetry"
	"jobscraper/pkg/models"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "orchestrator",
		Short: "Distributed job-board scraping orchestrator",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config YAML")

	root.AddCommand(newServeCmd(), newMigrateCmd(), newBoardCmd(), newTaskCmd(), newStatusCmd(), newAlertsCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the worker pool and recurring-task dispatcher",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(configPath)
			if err != nil {
				return err
			}
			defer a.close()

			a.queue.Start()
			a.recurring.Start()
			a.logger.Info("orchestrator serving", map[string]interface{}{"pool_size": a.cfg.Workers.PoolSize})

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			<-sigCh

			a.logger.Info("shutting down", nil)
			a.recurring.Stop()
			a.queue.Stop()
			return nil
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending Postgres migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfigOnly(configPath)
			if err != nil {
				return err
			}
			if cfg.Postgres.DSN == "" {
				return fmt.Errorf("postgres.dsn is not configured")
			}
			return postgres.Migrate(cfg.Postgres.DSN)
		},
	}
}

func newBoardCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "board", Short: "Manage configured job boards"}
	cmd.AddCommand(newBoardAddCmd(), newBoardListCmd(), newBoardAnalyzeCmd(), newBoardProbeCmd())
	return cmd
}

func newBoardAnalyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze [board-id]",
		Short: "Run advisor analysis against a board's live listing page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(configPath)
			if err != nil {
				return err
			}
			defer a.close()

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()

			board, err := findBoard(ctx, a, args[0])
			if err != nil {
				return err
			}

			sample, err := advisor.FetchSample(ctx, http.DefaultClient, board.BaseURL, a.cfg.Advisor.HTMLSampleBytes)
			if err != nil {
				return fmt.Errorf("fetch html sample: %w", err)
			}

			a.advisor.Invalidate(board.ID)
			analysis := a.advisor.Analyze(ctx, board, sample)

			board.Analysis.LastAnalyzed = time.Now()
			board.Analysis.Confidence = analysis.Confidence
			if len(board.Selectors) == 0 && len(analysis.Selectors) > 0 {
				board.Selectors = analysis.Selectors
			}
			if err := a.repo.UpsertJobBoard(ctx, board); err != nil {
				return fmt.Errorf("save analyzed board: %w", err)
			}
			return printJSON(analysis)
		},
	}
}

func newBoardProbeCmd() *cobra.Command {
	var engineName string

	cmd := &cobra.Command{
		Use:   "probe [board-id]",
		Short: "Check whether a board's base URL is reachable with an engine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(configPath)
			if err != nil {
				return err
			}
			defer a.close()

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			board, err := findBoard(ctx, a, args[0])
			if err != nil {
				return err
			}

			eng := board.EngineHint
			if engineName != "" {
				eng = models.Engine(engineName)
			}
			adapter, err := a.factory.Build(eng)
			if err != nil {
				return err
			}
			defer adapter.Close()

			reachable := adapter.Probe(ctx, board.BaseURL)
			return printJSON(map[string]interface{}{
				"board_id":  board.ID,
				"engine":    adapter.Name(),
				"url":       board.BaseURL,
				"reachable": reachable,
			})
		},
	}

	cmd.Flags().StringVar(&engineName, "engine", "", "engine to probe with (defaults to the board's hint, then static)")
	return cmd
}

func findBoard(ctx context.Context, a *app, id string) (*models.JobBoard, error) {
	boards, err := a.repo.LoadJobBoards(ctx, models.BoardFilter{})
	if err != nil {
		return nil, fmt.Errorf("load job boards: %w", err)
	}
	for i := range boards {
		if boards[i].ID == id {
			return &boards[i], nil
		}
	}
	return nil, fmt.Errorf("board %s not found", id)
}


func newBoardAddCmd() *cobra.Command {
	var (
		id, name, baseURL, engineHint, region, category string
		requiresJS, hasAntiBot, active                  bool
		priority                                        int
		rateLimitDelay                                  float64
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register or update a job board",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(configPath)
			if err != nil {
				return err
			}
			defer a.close()

			board := &models.JobBoard{
				ID:             id,
				Name:           name,
				BaseURL:        baseURL,
				EngineHint:     models.Engine(engineHint),
				Region:         region,
				Category:       category,
				RateLimitDelay: rateLimitDelay,
				MaxConcurrent:  a.cfg.RateLimit.MaxConcurrent,
				Flags: models.BoardFlags{
					RequiresJS: requiresJS,
					HasAntiBot: hasAntiBot,
					Active:     active,
					Priority:   priority,
				},
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := a.repo.UpsertJobBoard(ctx, board); err != nil {
				return fmt.Errorf("upsert job board: %w", err)
			}
			fmt.Printf("board %s saved\n", board.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "board id (required)")
	cmd.Flags().StringVar(&name, "name", "", "board display name (required)")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "board base URL (required)")
	cmd.Flags().StringVar(&engineHint, "engine", "", "engine hint: static|browser|feed|auto")
	cmd.Flags().StringVar(&region, "region", "", "board region")
	cmd.Flags().StringVar(&category, "category", "", "board category")
	cmd.Flags().BoolVar(&requiresJS, "requires-js", false, "board listing pages require JS rendering")
	cmd.Flags().BoolVar(&hasAntiBot, "has-anti-bot", false, "board is known to run anti-bot measures")
	cmd.Flags().BoolVar(&active, "active", true, "board is active for scheduling")
	cmd.Flags().IntVar(&priority, "priority", 5, "board priority, 1-10")
	cmd.Flags().Float64Var(&rateLimitDelay, "rate-limit-delay", 2, "minimum seconds between requests to this host")
	cmd.MarkFlagRequired("id")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("base-url")

	return cmd
}

func newBoardListCmd() *cobra.Command {
	var region, category string
	var activeOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List configured job boards",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(configPath)
			if err != nil {
				return err
			}
			defer a.close()

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			boards, err := a.repo.LoadJobBoards(ctx, models.BoardFilter{Region: region, Category: category, ActiveOnly: activeOnly})
			if err != nil {
				return fmt.Errorf("load job boards: %w", err)
			}
			return printJSON(boards)
		},
	}

	cmd.Flags().StringVar(&region, "region", "", "filter by region")
	cmd.Flags().StringVar(&category, "category", "", "filter by category")
	cmd.Flags().BoolVar(&activeOnly, "active-only", false, "only list active boards")
	return cmd
}

func newTaskCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "task", Short: "Submit and manage scrape tasks"}
	cmd.AddCommand(newTaskSubmitCmd(), newTaskCancelCmd(), newTaskListCmd())
	return cmd
}

func newTaskSubmitCmd() *cobra.Command {
	var (
		boardID, query, location, priority string
		maxPages, maxJobs                  int
	)

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Enqueue a scrape task",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(configPath)
			if err != nil {
				return err
			}
			defer a.close()

			task := &models.ScrapeTask{
				BoardID:  boardID,
				Query:    query,
				Location: location,
				MaxPages: maxPages,
				MaxJobs:  maxJobs,
				Priority: parsePriority(priority),
			}

			a.queue.Start()
			id, err := a.queue.Enqueue(task)
			if err != nil {
				return fmt.Errorf("enqueue task: %w", err)
			}
			fmt.Printf("task %s enqueued\n", id)
			return nil
		},
	}

	cmd.Flags().StringVar(&boardID, "board", "", "target board id (required)")
	cmd.Flags().StringVar(&query, "query", "", "search query")
	cmd.Flags().StringVar(&location, "location", "", "search location")
	cmd.Flags().StringVar(&priority, "priority", "normal", "priority: low|normal|high|urgent")
	cmd.Flags().IntVar(&maxPages, "max-pages", 0, "max listing pages (0 = engine default)")
	cmd.Flags().IntVar(&maxJobs, "max-jobs", 0, "max jobs to extract (0 = unbounded)")
	cmd.MarkFlagRequired("board")

	return cmd
}

func newTaskCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel [task-id]",
		Short: "Cancel a queued or running task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(configPath)
			if err != nil {
				return err
			}
			defer a.close()

			a.queue.Start()
			if !a.queue.Cancel(args[0]) {
				return fmt.Errorf("task %s not found", args[0])
			}
			fmt.Printf("task %s cancelled\n", args[0])
			return nil
		},
	}
}

func newTaskListCmd() *cobra.Command {
	var boardID, status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks known to the queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(configPath)
			if err != nil {
				return err
			}
			defer a.close()

			a.queue.Start()
			tasks := a.queue.List(models.TaskFilter{BoardID: boardID, Status: models.TaskStatus(status)})
			return printJSON(tasks)
		},
	}

	cmd.Flags().StringVar(&boardID, "board", "", "filter by board id")
	cmd.Flags().StringVar(&status, "status", "", "filter by status")
	return cmd
}

func newStatusCmd() *cobra.Command {
	var window time.Duration
	var topBoards int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print a dashboard snapshot of recent scraping activity",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(configPath)
			if err != nil {
				return err
			}
			defer a.close()

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			active := a.queue.Stats().Running
			snapshot, err := a.recorder.DashboardSnapshot(ctx, time.Now().Add(-window), topBoards, active)
			if err != nil {
				return fmt.Errorf("dashboard snapshot: %w", err)
			}
			return printJSON(snapshot)
		},
	}

	cmd.Flags().DurationVar(&window, "window", 24*time.Hour, "how far back to aggregate")
	cmd.Flags().IntVar(&topBoards, "top-boards", 5, "number of top-performing boards to include")
	return cmd
}

func newAlertsCmd() *cobra.Command {
	var level string
	var unresolvedOnly bool
	var window time.Duration

	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "List telemetry alerts",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(configPath)
			if err != nil {
				return err
			}
			defer a.close()

			alerts := a.recorder.Alerts(telemetry.AlertFilter{
				Level:          models.AlertLevel(level),
				UnresolvedOnly: unresolvedOnly,
				Since:          time.Now().Add(-window),
			})
			return printJSON(alerts)
		},
	}

	cmd.Flags().StringVar(&level, "level", "", "filter by level: info|warning|error|critical")
	cmd.Flags().BoolVar(&unresolvedOnly, "unresolved-only", false, "only unresolved alerts")
	cmd.Flags().DurationVar(&window, "window", 24*time.Hour, "how far back to look")
	return cmd
}

func parsePriority(s string) models.Priority {
	switch s {
	case "low":
		return models.PriorityLow
	case "high":
		return models.PriorityHigh
	case "urgent":
		return models.PriorityUrgent
	default:
		return models.PriorityNormal
	}
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
