package main

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/snow-ghost/codeassist/agents"
	"github.com/snow-ghost/codeassist/pkg/chat"
	"github.com/snow-ghost/codeassist/pkg/config"
	"github.com/snow-ghost/codeassist/pkg/convctx"
	"github.com/snow-ghost/codeassist/pkg/feedback"
	"github.com/snow-ghost/codeassist/pkg/llm"
	"github.com/snow-ghost/codeassist/pkg/logging"
	"github.com/snow-ghost/codeassist/pkg/metrics"
	"github.com/snow-ghost/codeassist/pkg/registry"
	"github.com/snow-ghost/codeassist/pkg/routing"
	"github.com/snow-ghost/codeassist/pkg/store"
	"github.com/snow-ghost/codeassist/pkg/tokens"
	"github.com/snow-ghost/codeassist/pkg/tracing"
)

// app holds the process-wide instances, built once at startup.
type app struct {
	cfg       *config.Config
	logger    *logging.Logger
	tracer    *tracing.Tracer
	prom      *prometheus.Registry
	store     store.Store
	generator *llm.GuardedGenerator
	registry  *registry.Registry
	router    *routing.Router
	chat      *chat.Service
	feedback  *feedback.Service
}

func buildApp(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	tracer, err := tracing.NewTracer(cfg.Tracing)
	if err != nil {
		return nil, fmt.Errorf("creating tracer: %w", err)
	}

	prom := prometheus.NewRegistry()
	prom.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewPrometheusMetrics(prom)

	st, err := store.Open(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	gen, err := llm.NewGenerator(cfg.LLM, m, logger, tracer)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("creating text generator: %w", err)
	}

	overrides, err := registry.NewLoader(cfg.AgentsFile).Load()
	if err != nil {
		gen.Close()
		st.Close()
		return nil, err
	}

	// providers first, then the router over them, then the router entry
	reg, err := buildRegistry(gen, st, overrides, logger)
	if err != nil {
		gen.Close()
		st.Close()
		return nil, err
	}

	router := routing.NewRouter(reg, gen,
		routing.WithConfig(routing.Config{
			InvokeTimeout:   cfg.Routing.InvokeTimeout,
			FallbackTimeout: cfg.Routing.FallbackTimeout,
		}),
		routing.WithLogger(logger),
		routing.WithMetrics(m),
		routing.WithTracer(tracer),
	)
	if err := reg.WithRouter(routing.NewRouterProvider(router)); err != nil {
		gen.Close()
		st.Close()
		return nil, err
	}

	chatSvc := chat.NewService(st, router,
		chat.WithLogger(logger),
		chat.WithContextOptions(convctx.Options{
			Messages:    cfg.Context.Messages,
			Memories:    cfg.Context.Memories,
			TokenBudget: cfg.Context.TokenBudget,
			Encoder:     tokens.ForModel(cfg.LLM.Model),
		}),
	)

	return &app{
		cfg:       cfg,
		logger:    logger,
		tracer:    tracer,
		prom:      prom,
		store:     st,
		generator: gen,
		registry:  reg,
		router:    router,
		chat:      chatSvc,
		feedback:  feedback.NewService(st),
	}, nil
}

func buildRegistry(gen llm.Generator, st store.Store, overrides *registry.AgentsFile, logger *logging.Logger) (*registry.Registry, error) {
	opts := func(key string, def []string) []agents.Option {
		return []agents.Option{
			agents.WithLogger(logger),
			agents.WithTriggerTerms(overrides.Terms(key, def)),
		}
	}

	candidates := []registry.Entry{
		{Key: registry.KeyCodeGenerator, Provider: agents.NewCodeGenerator(gen, opts(registry.KeyCodeGenerator, agents.CodeGeneratorTerms)...)},
		{Key: registry.KeyBugFixer, Provider: agents.NewBugFixer(gen, opts(registry.KeyBugFixer, agents.BugFixerTerms)...)},
		{Key: registry.KeyCodeExplainer, Provider: agents.NewCodeExplainer(gen, opts(registry.KeyCodeExplainer, agents.CodeExplainerTerms)...)},
		{Key: registry.KeyMemory, Provider: agents.NewMemoryAgent(st, opts(registry.KeyMemory, agents.MemoryTerms)...)},
	}

	var entries []registry.Entry
	for _, e := range candidates {
		if !overrides.Enabled(e.Key) {
			logger.Info("agent disabled by configuration", "key", e.Key)
			continue
		}
		entries = append(entries, e)
	}
	return registry.New(entries...)
}

func (a *app) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	a.generator.Close()
	if err := a.store.Close(); err != nil {
		a.logger.Warn("failed to close store", "error", err)
	}
	if err := a.tracer.Shutdown(ctx); err != nil {
		a.logger.Warn("failed to shut down tracer", "error", err)
	}
	_ = a.logger.Sync()
}
