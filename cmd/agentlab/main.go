package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/agentlab/agentlab/internal/agents"
	"github.com/agentlab/agentlab/internal/archive"
	"github.com/agentlab/agentlab/internal/arxiv"
	"github.com/agentlab/agentlab/internal/backoff"
	"github.com/agentlab/agentlab/internal/budget"
	"github.com/agentlab/agentlab/internal/cache"
	"github.com/agentlab/agentlab/internal/config"
	"github.com/agentlab/agentlab/internal/fileops"
	"github.com/agentlab/agentlab/internal/ledger"
	"github.com/agentlab/agentlab/internal/llm"
	"github.com/agentlab/agentlab/internal/provider/anthropic"
	"github.com/agentlab/agentlab/internal/provider/bedrock"
	"github.com/agentlab/agentlab/internal/provider/deepseek"
	"github.com/agentlab/agentlab/internal/secrets"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

// app holds everything the subcommands share after root setup.
type app struct {
	cfg     *config.Config
	factory *llm.Factory
	monitor *budget.Monitor
	store   *archive.Store
	ws      *fileops.Workspace
}

func newRootCmd() *cobra.Command {
	a := &app{}

	var (
		flagProvider    string
		flagModel       string
		flagTemperature float64
		flagMaxTokens   int
		flagLogLevel    string
		flagBudget      float64
		flagWorkspace   string
	)

	root := &cobra.Command{
		Use:           "agentlab",
		Short:         "Research paper analysis and ML experimentation tool",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			flags := cmd.Flags()
			if flags.Changed("provider") {
				cfg.Provider = flagProvider
			}
			if flags.Changed("model") {
				cfg.Model = flagModel
			}
			if flags.Changed("temperature") {
				cfg.Temperature = flagTemperature
			}
			if flags.Changed("max-tokens") {
				cfg.MaxTokens = flagMaxTokens
			}
			if flags.Changed("log-level") {
				cfg.LogLevel = flagLogLevel
			}
			if flags.Changed("budget") {
				cfg.BudgetUSD = flagBudget
			}
			if flags.Changed("workspace") {
				cfg.Workspace = flagWorkspace
			}

			setupLogger(cfg.LogLevel)
			return a.setup(cmd.Context(), cfg)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.teardown()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flagProvider, "provider", "deepseek", "completion provider (deepseek/anthropic/bedrock)")
	pf.StringVarP(&flagModel, "model", "m", "deepseek-chat", "model to use")
	pf.Float64VarP(&flagTemperature, "temperature", "t", 0.7, "temperature for model responses")
	pf.IntVar(&flagMaxTokens, "max-tokens", 4096, "maximum tokens per completion")
	pf.StringVar(&flagLogLevel, "log-level", "info", "log level (debug/info/warn/error)")
	pf.Float64Var(&flagBudget, "budget", 0, "spend cap in USD (0 disables)")
	pf.StringVar(&flagWorkspace, "workspace", ".", "workspace root directory")

	root.AddCommand(newResearchCmd(a))
	root.AddCommand(newAnalyzeCmd(a))
	root.AddCommand(newUsageCmd(a))

	return root
}

func (a *app) setup(ctx context.Context, cfg *config.Config) error {
	a.cfg = cfg

	ops := fileops.Production()
	a.ws = fileops.NewWorkspace(cfg.Workspace, ops)
	if err := a.ws.Init(); err != nil {
		return fmt.Errorf("init workspace: %w", err)
	}
	if err := a.ws.CleanupTemp(); err != nil {
		return fmt.Errorf("clean workspace temp: %w", err)
	}

	sources := []secrets.Source{secrets.EnvSource{}}
	if cfg.SecretID != "" && cfg.AWSRegion != "" {
		awsSource, err := secrets.NewAWSSource(ctx, cfg.AWSRegion, cfg.SecretID)
		if err != nil {
			return fmt.Errorf("configure secrets source: %w", err)
		}
		sources = append(sources, awsSource)
		slog.Info("using aws secrets source", "secret_id", cfg.SecretID)
	}
	resolver := secrets.NewResolver(sources...)

	// Probe only the environment here; the AWS source is consulted lazily
	// per request so setup stays free of network I/O.
	if _, err := secrets.NewResolver(secrets.EnvSource{}).APIKey(ctx); err != nil && cfg.SecretID == "" {
		slog.Warn("no LLM API keys found; set DEEPSEEK_API_KEY or ANTHROPIC_API_KEY")
	}

	shared := ledger.New(nil)
	policy := backoff.New(cfg.MaxRetries, cfg.BackoffBase, cfg.BackoffCap)

	opts := []llm.FactoryOption{
		llm.WithSampling(cfg.Temperature, cfg.MaxTokens),
	}

	var responseCache cache.Cache
	if cfg.RedisURL != "" {
		redisCache, err := cache.NewRedisCache(cfg.RedisURL)
		if err != nil {
			slog.Warn("failed to connect to redis for cache, using in-memory", "error", err)
			responseCache = cache.NewInMemoryCache()
		} else {
			slog.Info("using redis cache")
			responseCache = redisCache
		}
	} else {
		responseCache = cache.NewInMemoryCache()
	}
	opts = append(opts, llm.WithCache(responseCache, cfg.CacheTTL))

	if cfg.ArchivePath != "" {
		store, err := archive.Open(cfg.ArchivePath)
		if err != nil {
			return fmt.Errorf("open archive: %w", err)
		}
		a.store = store
		opts = append(opts, llm.WithArchive(store))
		slog.Info("archiving exchanges", "path", cfg.ArchivePath)
	}

	factory := llm.NewFactory(policy, shared, opts...)

	factory.Register(deepseek.New(func(ctx context.Context) (string, error) {
		return resolver.APIKey(ctx, "DEEPSEEK_API_KEY")
	}))
	factory.Register(anthropic.New(func(ctx context.Context) (string, error) {
		return resolver.APIKey(ctx, "ANTHROPIC_API_KEY")
	}))

	if cfg.AWSRegion != "" {
		bedrockProvider, err := bedrock.New(ctx, cfg.AWSRegion)
		if err != nil {
			slog.Warn("bedrock provider unavailable", "error", err)
		} else {
			factory.Register(bedrockProvider)
			slog.Info("registered provider", "provider", "bedrock")
		}
	}

	a.factory = factory

	a.monitor = budget.NewMonitor(shared, cfg.BudgetUSD, budget.DefaultThresholds())
	a.monitor.OnAlert(budget.LogAlertHandler)
	if cfg.BudgetUSD > 0 {
		slog.Info("budget cap active", "budget_usd", cfg.BudgetUSD)
	}

	return nil
}

func (a *app) teardown() error {
	if a.store != nil {
		return a.store.Close()
	}
	return nil
}

func (a *app) agentFactory() (*agents.Factory, error) {
	client, err := a.factory.Client(a.cfg.Provider)
	if err != nil {
		return nil, err
	}

	cfg := agents.Config{
		Model:       a.cfg.Model,
		Temperature: a.cfg.Temperature,
		MaxTokens:   a.cfg.MaxTokens,
	}
	return agents.NewFactory(cfg, client, arxiv.New(), a.monitor), nil
}

func newResearchCmd(a *app) *cobra.Command {
	var (
		style        string
		maxPapers    int
		minCitations int
	)

	cmd := &cobra.Command{
		Use:   "research <query>",
		Short: "Research a topic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			factory, err := a.agentFactory()
			if err != nil {
				return err
			}

			agent := factory.ResearchAgent(
				agents.WithStyle(parseStyle(style)),
				agents.WithMaxPapers(maxPapers),
				agents.WithMinCitations(minCitations),
			)

			result, err := agent.Process(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			fmt.Printf("Research Results:\n%s\n", result)
			a.printUsageSummary()
			return nil
		},
	}

	cmd.Flags().StringVarP(&style, "style", "s", "hybrid", "research style (broad/deep/hybrid)")
	cmd.Flags().IntVarP(&maxPapers, "max-papers", "p", 5, "maximum number of papers to analyze")
	cmd.Flags().IntVarP(&minCitations, "min-citations", "c", 10, "minimum citation count for papers")
	return cmd
}

func newAnalyzeCmd(a *app) *cobra.Command {
	var (
		file        string
		depth       string
		extractCode bool
		extractMath bool
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze a paper",
		RunE: func(cmd *cobra.Command, args []string) error {
			factory, err := a.agentFactory()
			if err != nil {
				return err
			}

			content, err := fileops.Production().SafeLoad(file)
			if err != nil {
				return err
			}

			agent := factory.PaperAgent(
				agents.WithDepth(parseDepth(depth)),
				agents.WithCodeExtraction(extractCode),
				agents.WithMathExtraction(extractMath),
			)

			result, err := agent.Process(cmd.Context(), string(content))
			if err != nil {
				return err
			}

			fmt.Printf("Paper Analysis:\n%s\n", result)
			a.printUsageSummary()
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "path to paper file")
	cmd.Flags().StringVarP(&depth, "depth", "d", "normal", "analysis depth (quick/normal/deep)")
	cmd.Flags().BoolVar(&extractCode, "extract-code", true, "extract code snippets")
	cmd.Flags().BoolVar(&extractMath, "extract-math", true, "extract mathematical formulas")
	cmd.MarkFlagRequired("file")
	return cmd
}

func newUsageCmd(a *app) *cobra.Command {
	var (
		limit int
		days  int
	)

	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Show archived token usage and cost",
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.store == nil {
				return fmt.Errorf("no archive configured (set AGENTLAB_ARCHIVE_PATH)")
			}
			ctx := cmd.Context()

			since := time.Now().AddDate(0, 0, -days)
			total, err := a.store.TotalCost(ctx, since)
			if err != nil {
				return err
			}
			totals, err := a.store.ModelTotals(ctx, since)
			if err != nil {
				return err
			}
			records, err := a.store.Recent(ctx, limit)
			if err != nil {
				return err
			}

			bold := color.New(color.Bold)
			bold.Printf("Usage over the last %d days\n", days)
			for model, tokens := range totals {
				fmt.Printf("  %-24s in=%d out=%d\n", model, tokens[0], tokens[1])
			}
			color.Green("  total cost: $%.4f\n", total)

			if len(records) > 0 {
				bold.Println("Recent exchanges")
				for _, rec := range records {
					cached := ""
					if rec.Cached {
						cached = " (cached)"
					}
					fmt.Printf("  %s  %s/%s  in=%d out=%d  $%.4f  %dms%s\n",
						rec.Timestamp.Format(time.RFC3339), rec.Provider, rec.Model,
						rec.InputTokens, rec.OutputTokens, rec.CostUSD, rec.LatencyMs, cached)
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "number of recent exchanges to show")
	cmd.Flags().IntVar(&days, "days", 30, "aggregation window in days")
	return cmd
}

func (a *app) printUsageSummary() {
	totals := a.factory.Ledger().Totals()
	cost := a.factory.Ledger().Cost()

	fmt.Println()
	color.New(color.Bold).Println("Session usage")
	fmt.Printf("  tokens in:  %d\n", totals.TokensIn)
	fmt.Printf("  tokens out: %d\n", totals.TokensOut)
	color.Green("  cost: $%.4f\n", cost)

	if a.monitor.Exceeded() {
		color.Red("  budget exceeded ($%.2f cap)", a.cfg.BudgetUSD)
	}
}

func parseStyle(s string) agents.ResearchStyle {
	switch s {
	case "broad":
		return agents.StyleBroad
	case "deep":
		return agents.StyleDeep
	default:
		return agents.StyleHybrid
	}
}

func parseDepth(s string) agents.AnalysisDepth {
	switch s {
	case "quick":
		return agents.DepthQuick
	case "deep":
		return agents.DepthDeep
	default:
		return agents.DepthNormal
	}
}

func setupLogger(level string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}
