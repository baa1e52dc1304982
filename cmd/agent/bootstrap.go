package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"astock-agent/internal/calendar"
	"astock-agent/internal/engine"
	"astock-agent/internal/engine/engineobs"
	"astock-agent/internal/interfaces"
	"astock-agent/internal/ledger"
	"astock-agent/internal/ledger/ledgerobs"
	"astock-agent/internal/llm/claude"
	"astock-agent/internal/llm/llmobs"
	"astock-agent/internal/llm/noop"
	"astock-agent/internal/llm/openai"
	"astock-agent/internal/logger"
	"astock-agent/internal/memory"
	"astock-agent/internal/news"
	"astock-agent/internal/pricelog"
	"astock-agent/internal/prompt"
	"astock-agent/internal/store"
	"astock-agent/internal/trace"
	"astock-agent/internal/tradelog"
)

// initializeSystem initializes the environment, logger and tracer
func initializeSystem() error {
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if err := trace.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize tracer: %v\n", err)
	}
	return nil
}

// app holds everything the commands share for one configuration.
type app struct {
	cfg      *store.Config
	prices   *pricelog.Store
	calendar *calendar.Calendar
	reader   *pricelog.Reader
	log      *tradelog.Log
}

func loadRuntime(ctx context.Context) (*app, error) {
	cfg, err := store.LoadConfig(configPath)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err, "path", configPath)
		return nil, err
	}

	prices := pricelog.NewStore(cfg.Market, cfg.PricePaths())
	cal := calendar.New(prices)
	rt := &app{
		cfg:      cfg,
		prices:   prices,
		calendar: cal,
		reader:   pricelog.NewReader(prices, cal),
		log:      tradelog.New(cfg.LedgerRoot()),
	}
	logger.Debug(ctx, "Runtime ready", "market", cfg.Market, "ledger_root", cfg.LedgerRoot(), "daily_prices", cfg.PricePaths().Daily)
	return rt, nil
}

// agents returns the enabled agents, narrowed by --agent.
func (rt *app) agents() ([]store.AgentConfig, error) {
	if agentFlag != "" {
		a, ok := rt.cfg.Agent(agentFlag)
		if !ok {
			return nil, fmt.Errorf("unknown agent %q", agentFlag)
		}
		return []store.AgentConfig{a}, nil
	}
	enabled := rt.cfg.EnabledAgents()
	if len(enabled) == 0 {
		return nil, fmt.Errorf("no enabled agents in %s", configPath)
	}
	return enabled, nil
}

func (rt *app) ledger(signature string) interfaces.Ledger {
	return ledgerobs.Wrap(ledger.New(rt.cfg.LedgerRoot(), signature, rt.calendar))
}

func (rt *app) ledgers() ([]interfaces.Ledger, error) {
	agents, err := rt.agents()
	if err != nil {
		return nil, err
	}
	out := make([]interfaces.Ledger, 0, len(agents))
	for _, a := range agents {
		out = append(out, rt.ledger(a.Signature))
	}
	return out, nil
}

// sentiment builds the news service, or nil when news is disabled.
func (rt *app) sentiment() *news.Service {
	if !rt.cfg.News.Enabled {
		return nil
	}
	timeout := time.Duration(rt.cfg.News.TimeoutSeconds) * time.Second
	scraper := news.NewScraper(timeout, news.SelectSources(rt.cfg.News.Sources)...)
	return news.NewService(scraper, &news.ServiceConfig{
		MaxArticles:    rt.cfg.News.MaxArticles,
		CacheDuration:  time.Duration(rt.cfg.News.CacheMinutes) * time.Minute,
		ScraperTimeout: timeout,
		Enabled:        true,
	})
}

func (rt *app) builder() *prompt.Builder {
	var opts []prompt.Option
	if svc := rt.sentiment(); svc != nil {
		opts = append(opts, prompt.WithSentiment(svc))
	}
	return prompt.NewBuilder(rt.reader, rt.cfg.Market, rt.cfg.Symbols, opts...)
}

// openMemory opens the decision memory, or returns nil when disabled.
func (rt *app) openMemory(ctx context.Context) (*memory.Store, error) {
	if !rt.cfg.Memory.Enabled {
		return nil, nil
	}
	mem, err := memory.Open(rt.cfg.MemoryPath())
	if err != nil {
		return nil, fmt.Errorf("open memory %s: %w", rt.cfg.MemoryPath(), err)
	}
	if n, err := mem.Prune(ctx, rt.cfg.Memory.RetentionDays); err != nil {
		logger.Warn(ctx, "Failed to prune decision memory", "error", err)
	} else if n > 0 {
		logger.Info(ctx, "Pruned decision memory", "removed", n, "retention_days", rt.cfg.Memory.RetentionDays)
	}
	return mem, nil
}

// compressOldLogs gzips session logs past the configured retention
func (rt *app) compressOldLogs(ctx context.Context) {
	n, err := rt.log.CompressOlder(rt.cfg.Runner.LogRetentionDays)
	if err != nil {
		logger.Warn(ctx, "Failed to compress old logs", "error", err)
		return
	}
	if n > 0 {
		logger.Info(ctx, "Compressed old session logs", "files", n)
	}
}

// initializeDecider returns the agent's decider with observability
func initializeDecider(ctx context.Context, cfg *store.Config, agent store.AgentConfig) interfaces.Decider {
	var decider interfaces.Decider

	switch cfg.LLM.Provider {
	case "openai":
		decider = openai.NewOpenAIDecider(cfg, agent.BaseModel)
	case "claude":
		decider = claude.NewClaudeDecider(cfg, agent.BaseModel)
	default:
		decider = noop.NewNoopDecider()
		logger.Warn(ctx, "No LLM provider configured - using Noop decider (always no_trade)", "agent", agent.Signature)
	}

	return llmobs.Wrap(decider)
}

// initializeEngine returns the agent's engine with observability
func (rt *app) initializeEngine(ctx context.Context, agent store.AgentConfig, mem *memory.Store) (interfaces.Engine, error) {
	deps := engine.Deps{
		Ledger:   rt.ledger(agent.Signature),
		Calendar: rt.calendar,
		Builder:  rt.builder(),
		Decider:  initializeDecider(ctx, rt.cfg, agent),
		Log:      rt.log,
	}
	recall := 0
	if mem != nil {
		deps.Memory = mem
		recall = 5
	}
	eng, err := engine.New(engine.Settings{
		Market:      rt.cfg.Market,
		Symbols:     rt.cfg.Symbols,
		InitDate:    rt.cfg.InitDate,
		InitialCash: rt.cfg.InitialCash,
		MaxSteps:    rt.cfg.Runner.MaxSteps,
		MaxRetries:  rt.cfg.Runner.MaxRetries,
		BaseDelay:   time.Duration(rt.cfg.Runner.BaseDelayMs) * time.Millisecond,
		Recall:      recall,
	}, deps)
	if err != nil {
		return nil, err
	}
	return engineobs.Wrap(eng), nil
}
