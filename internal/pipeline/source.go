package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/newsdesk/internal/extract"
	"github.com/sells-group/newsdesk/internal/model"
	"github.com/sells-group/newsdesk/internal/resilience"
)

// processSource reads one listing and walks its candidates in listing
// order. A listing failure ends only this source.
func (p *Pipeline) processSource(ctx context.Context, src model.Source, runLog *zap.Logger) *model.SourceStats {
	st := model.NewSourceStats(src.Name)
	start := p.now()
	log := runLog.With(zap.String("source", src.Name))
	defer func() {
		st.DurationMs = p.now().Sub(start).Milliseconds()
		log.Info("pipeline: source complete",
			zap.Int("links_found", st.LinksFound),
			zap.Int("attempted", st.Attempted),
			zap.Int("saved", st.Outcomes[model.OutcomeSaved]),
			zap.Int64("duration_ms", st.DurationMs),
		)
	}()

	page, err := p.fetcher.Fetch(ctx, src.ListingURL)
	if err != nil {
		st.Error = err.Error()
		log.Error("pipeline: listing fetch failed",
			zap.String("url", src.ListingURL),
			zap.String("kind", resilience.KindOf(err).String()),
			zap.Int("status", resilience.StatusOf(err)),
			zap.Error(err),
		)
		return st
	}

	candidates, err := extract.Candidates(page.Body, src)
	if err != nil {
		st.Error = err.Error()
		log.Error("pipeline: listing parse failed", zap.Error(err))
		return st
	}
	st.LinksFound = len(candidates)
	if limit := p.cfg.Pipeline.MaxLinksPerSource; limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	log.Info("pipeline: listing read", zap.Int("candidates", len(candidates)))

	delay := time.Duration(p.cfg.Pipeline.LinkDelayMs) * time.Millisecond
	for i, c := range candidates {
		if i > 0 && delay > 0 {
			sleep(ctx, delay)
		}
		if ctx.Err() != nil {
			for range candidates[i:] {
				st.Record(model.OutcomeCanceled)
			}
			log.Warn("pipeline: source interrupted", zap.Int("remaining", len(candidates)-i), zap.Error(ctx.Err()))
			break
		}

		st.Attempted++
		outcome, category := p.processLink(ctx, src, c, log)
		st.Record(outcome)
		if outcome == model.OutcomeSaved {
			st.Categories[category]++
		}
	}
	return st
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
