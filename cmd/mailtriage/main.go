package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	calendarapi "google.golang.org/api/calendar/v3"
	gmailapi "google.golang.org/api/gmail/v1"

	"mailtriage/internal/alert"
	"mailtriage/internal/calendar"
	"mailtriage/internal/classify"
	"mailtriage/internal/config"
	"mailtriage/internal/domain"
	"mailtriage/internal/history"
	"mailtriage/internal/mail"
	"mailtriage/internal/metrics"
	"mailtriage/internal/pipeline"
	"mailtriage/internal/render"
	"mailtriage/internal/tracker"
)

var (
	version    = "0.3.0"
	configPath string // overridable via --config flag
)

func main() {
	root := &cobra.Command{
		Use:     "mailtriage",
		Short:   "mailtriage: turn forwarded notification emails into tracked follow-ups",
		Long:    "mailtriage classifies notification emails, extracts deadlines and amounts, and files issues, reminders, and alerts for the ones that need action.",
		Version: version,
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.json (default: ~/.mailtriage/config.json)")

	root.AddCommand(initCmd())
	root.AddCommand(runCmd())
	root.AddCommand(rulesCmd())
	root.AddCommand(configCmd())
	root.AddCommand(historyCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveConfigPath returns the config path from --config flag or default.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath()
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			if _, err := os.Stat(cfgPath); err == nil {
				return fmt.Errorf("config already exists at %s", cfgPath)
			}
			if err := config.Save(cfgPath, config.Defaults()); err != nil {
				return err
			}
			fmt.Printf("wrote %s — fill in mail, tracker, and alert credentials before running\n", cfgPath)
			return nil
		},
	}
}

func runCmd() *cobra.Command {
	var showMetrics bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one triage batch and exit",
		Long:  "Fetches unread messages from allowed senders, analyzes each one, files issues and reminders, and marks messages processed. Exits non-zero only on a fatal pre-batch error.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(showMetrics)
		},
	}
	cmd.Flags().BoolVar(&showMetrics, "metrics", false, "print run counters in Prometheus text format")
	return cmd
}

func runBatch(showMetrics bool) error {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return err
	}
	logger := newLogger(cfg.General.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry, err := buildRegistry(cfg)
	if err != nil {
		return err
	}

	scopes := []string{gmailapi.GmailModifyScope}
	if cfg.Calendar.Enabled {
		scopes = append(scopes, calendarapi.CalendarEventsScope)
	}
	httpClient, err := mail.OAuthClient(ctx, cfg.Mail.CredentialsFile, cfg.Mail.TokenFile, scopes...)
	if err != nil {
		return fmt.Errorf("mail auth: %w", err)
	}
	source, err := mail.NewGmailSource(ctx, httpClient, mail.GmailConfig{
		TriagedLabel: cfg.Mail.TriagedLabel,
		Logger:       logger,
	})
	if err != nil {
		return fmt.Errorf("mail source: %w", err)
	}

	issueTracker := tracker.NewGitHubTracker(ctx, tracker.GitHubConfig{
		Token:  cfg.Tracker.Token,
		Owner:  cfg.Tracker.Owner,
		Repo:   cfg.Tracker.Repo,
		Logger: logger,
	})

	var alerts []domain.AlertChannel
	if cfg.Alerts.Telegram.Enabled {
		tg, err := alert.NewTelegram(alert.TelegramConfig{
			Token:  cfg.Alerts.Telegram.Token,
			ChatID: cfg.Alerts.Telegram.ChatID,
			Logger: logger,
		})
		if err != nil {
			return fmt.Errorf("telegram alert channel: %w", err)
		}
		alerts = append(alerts, tg)
	}
	if cfg.Alerts.Slack.Enabled {
		sl, err := alert.NewSlack(alert.SlackConfig{
			BotToken: cfg.Alerts.Slack.BotToken,
			Channel:  cfg.Alerts.Slack.Channel,
			Logger:   logger,
		})
		if err != nil {
			return fmt.Errorf("slack alert channel: %w", err)
		}
		alerts = append(alerts, sl)
	}
	if len(alerts) == 0 {
		logger.Warn("no alert channel configured, urgent messages will only get issues")
	}

	var cal domain.CalendarService
	if cfg.Calendar.Enabled {
		gc, err := calendar.New(ctx, httpClient, calendar.Config{
			CalendarID: cfg.Calendar.CalendarID,
			Logger:     logger,
		})
		if err != nil {
			return fmt.Errorf("calendar service: %w", err)
		}
		cal = gc
	}

	collector := metrics.NewCollector()
	p := pipeline.New(pipeline.Config{
		Mail:        source,
		Tracker:     issueTracker,
		Alerts:      alerts,
		Calendar:    cal,
		Classifier:  classify.New(registry, logger),
		Renderer:    render.New(cfg.General.LeadTimeDays, logger),
		Logger:      logger,
		Metrics:     collector,
		Query:       mail.BuildQuery(cfg.Mail.AllowedSenders, cfg.Mail.TriagedLabel),
		MaxBatch:    int64(cfg.General.MaxBatch),
		CallTimeout: time.Duration(cfg.General.TimeoutSeconds) * time.Second,
	})

	summary, err := p.Run(ctx)
	if err != nil {
		return err
	}

	if cfg.History.Enabled {
		store, err := history.NewStore(cfg.History.DBPath, logger)
		if err != nil {
			logger.Error("history store unavailable, summary not recorded", "err", err)
		} else {
			defer store.Close()
			if err := store.RecordRun(ctx, summary); err != nil {
				logger.Error("recording run failed", "err", err)
			}
		}
	}

	printSummary(summary)
	if showMetrics {
		fmt.Print(collector.Render())
	}
	return nil
}

func buildRegistry(cfg *config.Config) (*classify.Registry, error) {
	registry := classify.DefaultRegistry()
	if cfg.Rules.OverlayPath != "" {
		if err := registry.LoadOverlay(cfg.Rules.OverlayPath); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

func printSummary(sum domain.BatchSummary) {
	fmt.Printf("run %s: %d queried, %d processed, %d failed\n",
		sum.RunID, sum.Queried, sum.Processed, sum.Failed)
	for _, r := range sum.Results {
		status := "ok"
		if r.Failed {
			status = "FAILED (" + r.FailReason + ")"
		}
		fmt.Printf("  %s  %-28s urgency=%-2d confidence=%-6s %s\n",
			r.MessageID, r.Classification.Category, r.Urgency, r.Classification.Confidence, status)
	}
}

func rulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "Print the effective rule table in evaluation order",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(resolveConfigPath())
			if err != nil {
				// Rules are inspectable without credentials.
				cfg = config.Defaults()
			}
			registry, err := buildRegistry(cfg)
			if err != nil {
				return err
			}
			fmt.Printf("rule table %s (%d rules, first match wins)\n", registry.Version(), len(registry.Rules()))
			for i, r := range registry.Rules() {
				fmt.Printf("%2d. %-24s action=%-18s lead=%-3d keywords=[%s] senders=[%s]\n",
					i+1, r.Category, r.Action, r.LeadTimeDays,
					strings.Join(r.Keywords, ", "), strings.Join(r.SenderPatterns, ", "))
			}
			return nil
		},
	}
}

func historyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history [n]",
		Short: "Show recent run summaries",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(resolveConfigPath())
			if err != nil {
				return err
			}
			n := 10
			if len(args) == 1 {
				n, err = strconv.Atoi(args[0])
				if err != nil || n < 1 {
					return fmt.Errorf("invalid count: %s", args[0])
				}
			}
			logger := newLogger(cfg.General.LogLevel)
			store, err := history.NewStore(cfg.History.DBPath, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.RecentRuns(cmd.Context(), n)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println("no runs recorded yet")
				return nil
			}
			for _, r := range runs {
				fmt.Printf("%s  %s  queried=%d processed=%d failed=%d\n",
					r.StartedAt.Format(time.RFC3339), r.RunID, r.Queried, r.Processed, r.Failed)
			}
			return nil
		},
	}
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View and modify configuration",
		Long:  "Get, set, and list configuration values. Changes are saved to the config file.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get [path]",
		Short: "Get a config value (e.g. general.maxBatch)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(resolveConfigPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			val, err := config.GetByPath(cfg, args[0])
			if err != nil {
				return err
			}
			data, _ := json.MarshalIndent(val, "", "  ")
			fmt.Println(string(data))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set [path] [value]",
		Short: "Set a config value (e.g. general.maxBatch 10)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := config.SetByPath(cfg, args[0], args[1]); err != nil {
				return fmt.Errorf("set value: %w", err)
			}
			if err := config.Save(cfgPath, cfg); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			fmt.Printf("updated %s in %s\n", args[0], cfgPath)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all config values (credentials masked)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(resolveConfigPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			data, _ := json.MarshalIndent(config.Sanitize(cfg), "", "  ")
			fmt.Println(string(data))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show config file path",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(resolveConfigPath())
		},
	})

	return cmd
}
