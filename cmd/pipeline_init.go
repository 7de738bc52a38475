package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/newsdesk/internal/classify"
	"github.com/sells-group/newsdesk/internal/cost"
	"github.com/sells-group/newsdesk/internal/fetcher"
	"github.com/sells-group/newsdesk/internal/llm"
	"github.com/sells-group/newsdesk/internal/monitoring"
	"github.com/sells-group/newsdesk/internal/pipeline"
	"github.com/sells-group/newsdesk/internal/store"
	"github.com/sells-group/newsdesk/internal/transform"
)

// pipelineEnv holds the store, the model client and the pipeline needed by
// the ingest/schedule/serve commands.
type pipelineEnv struct {
	Store    store.Store
	Pipeline *pipeline.Pipeline
	closeLLM func() error
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.closeLLM != nil {
		if err := pe.closeLLM(); err != nil {
			zap.L().Warn("llm client close failed", zap.Error(err))
		}
	}
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initPipeline validates the config for mode, opens the store, builds the
// model client and wires the pipeline. Callers should defer env.Close().
func initPipeline(ctx context.Context, mode string) (*pipelineEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	tax, err := loadTaxonomy()
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	guard, closeLLM, err := llm.NewGuarded(ctx, cfg.LLM)
	if err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "init llm")
	}

	// A nil *Guard must not become a non-nil llm.Client.
	var client llm.Client
	var usage pipeline.UsageTracker
	if guard != nil {
		client = guard
		usage = guard
		zap.L().Info("llm enabled", zap.String("provider", cfg.LLM.Provider))
	}

	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:      cfg.Fetch.UserAgent,
		AcceptLanguage: cfg.Fetch.AcceptLanguage,
		Timeout:        cfg.Fetch.Timeout(),
		MaxBodyBytes:   cfg.Fetch.MaxBodyBytes,
		RatePerHost:    cfg.Fetch.RatePerHost,
		Burst:          cfg.Fetch.Burst,
	})
	cls := classify.New(tax, client, time.Duration(cfg.LLM.ClassifyTimeoutSecs)*time.Second)
	tr := transform.New(client)

	p := pipeline.New(cfg, st, f, cls, tr, usage)
	if guard != nil {
		p.SetCostEstimator(cost.NewCalculator(cost.DefaultRates()).For(llm.ModelName(cfg.LLM)))
	}

	zap.L().Info("pipeline ready",
		zap.String("store", cfg.Store.Driver),
		zap.Int("sources", len(cfg.EnabledSources())),
		zap.Int("workers", cfg.Pipeline.Workers),
	)

	return &pipelineEnv{
		Store:    st,
		Pipeline: p,
		closeLLM: closeLLM,
	}, nil
}

func loadTaxonomy() (classify.Taxonomy, error) {
	if path := cfg.Classify.KeywordsFile; path != "" {
		tax, err := classify.LoadTaxonomy(path)
		if err != nil {
			return nil, eris.Wrap(err, "load keywords file")
		}
		return tax, nil
	}
	tax, err := classify.DefaultTaxonomy()
	if err != nil {
		return nil, eris.Wrap(err, "load default keywords")
	}
	return tax, nil
}

// startMonitoring runs the alert checker until ctx is done. It is a no-op
// when no webhook is configured.
func startMonitoring(ctx context.Context, st store.Store) {
	if !cfg.Monitoring.Enabled() {
		return
	}
	checker := monitoring.NewChecker(
		monitoring.NewCollector(st),
		monitoring.NewAlerter(cfg.Monitoring),
		cfg.Monitoring,
	)
	go checker.Run(ctx)
}
