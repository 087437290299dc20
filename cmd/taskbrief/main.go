// taskbrief 从 Microsoft To Do 拉取任务,经 AI 分析后生成每日优先级简报
// Command taskbrief pulls tasks from Microsoft To Do, enriches them
// with AI analysis, and produces a prioritized daily brief.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"taskbrief/internal/analyze"
	"taskbrief/internal/cache"
	"taskbrief/internal/config"
	"taskbrief/internal/dedupe"
	"taskbrief/internal/fetch"
	"taskbrief/internal/graph"
	"taskbrief/internal/orchestrator"
	"taskbrief/internal/rank"
	"taskbrief/internal/report"
	"taskbrief/internal/update"
)

const usage = `taskbrief - AI-prioritized daily briefs for Microsoft To Do

Usage:
  taskbrief run        Run the full pipeline and generate today's brief
  taskbrief duplicates Find and resolve duplicate tasks
  taskbrief weekly     Generate the weekly analytics report
  taskbrief chat       Chat with your task list
  taskbrief show       Render the latest daily brief in the terminal

Common flags:
  -config PATH   Config file (default: taskbrief.config.json if present)
  -dry-run       Preview destructive actions without applying them
`

func main() {
	log.SetFlags(log.LstdFlags)
	log.SetOutput(os.Stderr)

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "run":
		err = cmdRun(ctx, os.Args[2:])
	case "duplicates":
		err = cmdDuplicates(ctx, os.Args[2:])
	case "weekly":
		err = cmdWeekly(ctx, os.Args[2:])
	case "chat":
		err = cmdChat(ctx, os.Args[2:])
	case "show":
		err = cmdShow(os.Args[2:])
	case "-h", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(1)
	}
	if err != nil {
		log.Printf("error: %v", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	if err := cfg.EnsureOutputDir(); err != nil {
		return config.Config{}, fmt.Errorf("create output dir: %w", err)
	}
	return cfg, nil
}

func newGraphClient(cfg config.Config) *graph.Client {
	auth := graph.NewAuthenticator(graph.AuthConfig{
		ClientID:     cfg.Graph.ClientID,
		TenantID:     cfg.Graph.TenantID,
		ClientSecret: cfg.Graph.ClientSecret,
		Scopes:       cfg.Graph.Scopes,
		TokenCache:   cfg.Graph.TokenCache,
	})
	return graph.NewClient(auth)
}

func newAnalyzer(cfg config.Config) (analyze.Analyzer, error) {
	return analyze.New(analyze.Config{
		Provider:        cfg.AI.Provider,
		APIKey:          cfg.AI.APIKey,
		Model:           cfg.AI.Model,
		BaseURL:         cfg.AI.BaseURL,
		TimeoutMS:       cfg.AI.TimeoutMS,
		AnthropicAPIKey: cfg.AI.AnthropicAPIKey,
		AnthropicModel:  cfg.AI.AnthropicModel,
	})
}

func newScorer(cfg config.Config) *rank.Scorer {
	return rank.NewScorer(rank.Weights{
		AIPriority:      cfg.Rank.AIPriorityWeight,
		DeadlineUrgency: cfg.Rank.DeadlineUrgencyWeight,
		Recency:         cfg.Rank.RecencyWeight,
		Importance:      cfg.Rank.ImportanceWeight,
		Category:        cfg.Rank.CategoryWeight,
	})
}

func cmdRun(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "", "config file path")
	dryRun := fs.Bool("dry-run", false, "preview without applying changes")
	dedupeFlag := fs.Bool("dedupe", false, "resolve duplicate tasks before analyzing")
	weekly := fs.Bool("weekly", false, "also generate the weekly report")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	analyzer, err := newAnalyzer(cfg)
	if err != nil {
		return err
	}

	client := newGraphClient(cfg)
	pipeline := &orchestrator.Pipeline{
		Source: client,
		Extractor: fetch.New(fetch.Config{
			TimeoutSec:   cfg.Fetch.TimeoutSec,
			MaxSizeKB:    cfg.Fetch.MaxSizeKB,
			MaxTextChars: cfg.Fetch.MaxTextChars,
			MaxPagesEach: cfg.Fetch.MaxPagesEach,
			UserAgent:    cfg.Fetch.UserAgent,
		}),
		Analyzer: analyzer,
		Scorer:   newScorer(cfg),
	}

	if cfg.Cache.Enabled {
		store, err := cache.Open(cfg.CachePath())
		if err != nil {
			return fmt.Errorf("open analysis cache: %w", err)
		}
		defer store.Close()
		store.TTL = time2h(cfg.Cache.TTLHours)
		pipeline.Cache = store
	}

	if cfg.Output.GenerateBrief {
		pipeline.Brief = report.NewBriefWriter(cfg.Output.Dir)
	}
	if cfg.Output.EnableTaskUpdates {
		pipeline.Writer = update.New(client)
	}

	ranked, stats, err := pipeline.Run(ctx, orchestrator.Options{
		ResolveDuplicates: *dedupeFlag,
		DryRun:            *dryRun,
		UpdateTasks:       cfg.Output.EnableTaskUpdates,
	})
	if err != nil {
		return err
	}

	if cfg.Email.Enabled && stats.BriefPath != "" && !*dryRun {
		mailer := report.NewMailer(cfg.Email.SMTPServer, cfg.Email.SMTPPort,
			cfg.Email.From, cfg.Email.To, cfg.Email.Password)
		if err := mailer.SendDailyBrief(stats.BriefPath, ranked); err != nil {
			log.Printf("email brief: %v", err)
		} else {
			log.Printf("email brief sent to %s", cfg.Email.To)
		}
	}

	if *weekly {
		trends := report.NewTrendsAnalyzer(cfg.Output.Dir)
		path, err := trends.WriteReport(0)
		if err != nil {
			log.Printf("weekly report: %v", err)
		} else {
			log.Printf("weekly report saved to %s", path)
			if cfg.Email.Enabled && !*dryRun {
				mailer := report.NewMailer(cfg.Email.SMTPServer, cfg.Email.SMTPPort,
					cfg.Email.From, cfg.Email.To, cfg.Email.Password)
				if err := mailer.SendWeeklyDigest(path); err != nil {
					log.Printf("weekly digest: %v", err)
				}
			}
		}
	}

	printRunSummary(ranked, stats)
	return nil
}

func cmdDuplicates(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("duplicates", flag.ExitOnError)
	configPath := fs.String("config", "", "config file path")
	dryRun := fs.Bool("dry-run", true, "preview without deleting (default)")
	apply := fs.Bool("apply", false, "actually delete duplicate tasks")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	client := newGraphClient(cfg)

	tasks, err := client.AllTasks(ctx, false)
	if err != nil {
		return err
	}
	groups := dedupe.FindDuplicates(tasks)
	if len(groups) == 0 {
		fmt.Println("No duplicate tasks found.")
		return nil
	}

	printDuplicates(groups)

	run := *dryRun && !*apply
	stats := dedupe.Purge(ctx, client, groups, run)
	if run {
		fmt.Printf("\nDry run: %d tasks would be deleted. Re-run with -apply to delete.\n", stats.Skipped)
	} else {
		fmt.Printf("\nDeleted %d duplicate tasks (%d failed).\n", stats.Deleted, stats.Failed)
	}
	return nil
}

func cmdWeekly(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("weekly", flag.ExitOnError)
	configPath := fs.String("config", "", "config file path")
	weeksBack := fs.Int("weeks-back", 0, "how many weeks back to analyze")
	email := fs.Bool("email", false, "email the report as a digest")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if err := cfg.EnsureOutputDir(); err != nil {
		return err
	}

	trends := report.NewTrendsAnalyzer(cfg.Output.Dir)
	path, err := trends.WriteReport(*weeksBack)
	if err != nil {
		return err
	}
	fmt.Printf("Weekly report saved to %s\n", path)

	if *email {
		if !cfg.Email.Enabled {
			return fmt.Errorf("email is not configured; set TASKBRIEF_SEND_EMAIL_BRIEF and credentials")
		}
		mailer := report.NewMailer(cfg.Email.SMTPServer, cfg.Email.SMTPPort,
			cfg.Email.From, cfg.Email.To, cfg.Email.Password)
		if err := mailer.SendWeeklyDigest(path); err != nil {
			return err
		}
		fmt.Printf("Weekly digest sent to %s\n", cfg.Email.To)
	}
	return nil
}

func cmdShow(args []string) error {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	configPath := fs.String("config", "", "config file path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	return showLatestBrief(cfg.Output.Dir)
}
