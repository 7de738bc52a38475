// Package pipeline runs ingestion: for each configured source it reads the
// listing, then takes every new article link through fetch, extraction,
// classification, transformation and persistence.
package pipeline

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/newsdesk/internal/classify"
	"github.com/sells-group/newsdesk/internal/config"
	"github.com/sells-group/newsdesk/internal/fetcher"
	"github.com/sells-group/newsdesk/internal/model"
	"github.com/sells-group/newsdesk/internal/store"
	"github.com/sells-group/newsdesk/internal/transform"
)

// ErrRunInProgress is returned when a run is requested while another is
// still active in this process.
var ErrRunInProgress = eris.New("pipeline: run already in progress")

// Classifier assigns a category to extracted text.
type Classifier interface {
	Classify(ctx context.Context, title, body string) classify.Result
}

// Transformer produces the English rewrite and its Polish translation.
type Transformer interface {
	Paraphrase(ctx context.Context, title, content string) (*transform.Result, error)
	Translate(ctx context.Context, title, content string) (*transform.Translation, error)
}

// UsageTracker reports language-model token consumption.
type UsageTracker interface {
	Usage() model.TokenUsage
	Reset()
}

// Pipeline orchestrates ingestion runs. At most one run is active at a time.
type Pipeline struct {
	cfg         *config.Config
	store       store.Store
	fetcher     fetcher.Fetcher
	classifier  Classifier
	transformer Transformer
	usage       UsageTracker
	cost        func(model.TokenUsage) float64

	running atomic.Bool
	now     func() time.Time
}

// New creates a Pipeline. usage may be nil.
func New(
	cfg *config.Config,
	st store.Store,
	f fetcher.Fetcher,
	cls Classifier,
	tr Transformer,
	usage UsageTracker,
) *Pipeline {
	return &Pipeline{
		cfg:         cfg,
		store:       st,
		fetcher:     f,
		classifier:  cls,
		transformer: tr,
		usage:       usage,
		now:         time.Now,
	}
}

// SetCostEstimator installs the function used to price a run's token
// usage. Without one, runs report zero cost.
func (p *Pipeline) SetCostEstimator(fn func(model.TokenUsage) float64) {
	p.cost = fn
}

// Running reports whether a run is active.
func (p *Pipeline) Running() bool {
	return p.running.Load()
}

// Run executes one ingestion run over every enabled source and blocks
// until it finishes. Per-source and per-link failures are recorded in the
// returned stats, never returned as errors.
func (p *Pipeline) Run(ctx context.Context) (*model.RunStats, error) {
	if !p.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer p.running.Store(false)
	return p.run(ctx), nil
}

// Start begins a run in the background and returns immediately. done, if
// non-nil, receives the stats when the run ends.
func (p *Pipeline) Start(ctx context.Context, done func(*model.RunStats)) error {
	if !p.running.CompareAndSwap(false, true) {
		return ErrRunInProgress
	}
	go func() {
		defer p.running.Store(false)
		stats := p.run(ctx)
		if done != nil {
			done(stats)
		}
	}()
	return nil
}

func (p *Pipeline) run(ctx context.Context) *model.RunStats {
	start := p.now()

	if mins := p.cfg.Pipeline.RunTimeoutMins; mins > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(mins)*time.Minute)
		defer cancel()
	}

	stats := &model.RunStats{}
	run, err := p.store.CreateRun(ctx)
	if err != nil {
		zap.L().Error("pipeline: failed to record run start", zap.Error(err))
		stats.RunID = uuid.New().String()
	} else {
		stats.RunID = run.ID
	}
	if p.usage != nil {
		p.usage.Reset()
	}

	log := zap.L().With(zap.String("run_id", stats.RunID))
	sources := p.cfg.EnabledSources()
	log.Info("pipeline: run starting", zap.Int("sources", len(sources)))

	workers := p.cfg.Pipeline.Workers
	if workers < 1 {
		workers = 1
	}

	stats.Sources = make([]*model.SourceStats, len(sources))
	g := new(errgroup.Group)
	g.SetLimit(workers)
	for i, src := range sources {
		g.Go(func() error {
			stats.Sources[i] = p.processSource(ctx, src, log)
			return nil
		})
	}
	_ = g.Wait()

	stats.Tally()
	if p.usage != nil {
		stats.Usage = p.usage.Usage()
	}
	if p.cost != nil {
		stats.CostUSD = p.cost(stats.Usage)
	}
	stats.TimedOut = errors.Is(ctx.Err(), context.DeadlineExceeded)
	stats.DurationMs = p.now().Sub(start).Milliseconds()

	status := model.RunStatusComplete
	if ctx.Err() != nil {
		status = model.RunStatusFailed
	}
	if run != nil {
		if err := p.store.CompleteRun(context.WithoutCancel(ctx), run.ID, status, stats); err != nil {
			log.Error("pipeline: failed to record run result", zap.Error(err))
		}
	}

	log.Info("pipeline: run complete",
		zap.String("status", string(status)),
		zap.Int("saved", stats.Saved),
		zap.Int("failed", stats.Failed),
		zap.Int("skipped", stats.Skipped),
		zap.Int64("prompt_tokens", stats.Usage.PromptTokens),
		zap.Int64("completion_tokens", stats.Usage.CompletionTokens),
		zap.Float64("cost_usd", stats.CostUSD),
		zap.Bool("timed_out", stats.TimedOut),
		zap.Int64("duration_ms", stats.DurationMs),
	)
	return stats
}
