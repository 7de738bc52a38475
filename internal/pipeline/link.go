package pipeline

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/sells-group/newsdesk/internal/extract"
	"github.com/sells-group/newsdesk/internal/model"
	"github.com/sells-group/newsdesk/internal/resilience"
	"github.com/sells-group/newsdesk/internal/slug"
	"github.com/sells-group/newsdesk/internal/transform"
)

// processLink takes one candidate from dedup to persistence. Every failure
// ends as an outcome; nothing escapes to the source loop.
func (p *Pipeline) processLink(ctx context.Context, src model.Source, c model.Candidate, srcLog *zap.Logger) (model.LinkOutcome, model.Category) {
	limits := p.cfg.Pipeline
	url := c.URL
	log := srcLog.With(zap.String("url", url))

	// The url is the article's identity; a cut-down one would be a
	// different article.
	if limits.MaxURLChars > 0 && utf8.RuneCountInString(url) > limits.MaxURLChars {
		log.Warn("pipeline: url too long, skipping",
			zap.Int("runes", utf8.RuneCountInString(url)),
			zap.Int("max", limits.MaxURLChars),
		)
		return model.OutcomeURLTooLong, ""
	}

	exists, err := p.store.Exists(ctx, url)
	if err != nil {
		if ctx.Err() != nil {
			return model.OutcomeCanceled, ""
		}
		log.Error("pipeline: existence check failed", zap.Error(err))
		return model.OutcomeStoreFailed, ""
	}
	if exists {
		log.Debug("pipeline: already stored")
		return model.OutcomeExists, ""
	}

	page, err := p.fetcher.Fetch(ctx, url)
	if err != nil {
		if ctx.Err() != nil {
			return model.OutcomeCanceled, ""
		}
		log.Error("pipeline: article fetch failed",
			zap.String("kind", resilience.KindOf(err).String()),
			zap.Int("status", resilience.StatusOf(err)),
			zap.Error(err),
		)
		return model.OutcomeFetchFailed, ""
	}

	fields, err := extract.Article(page.Body)
	if err != nil {
		log.Warn("pipeline: article parse failed", zap.Error(err))
		return model.OutcomeEmpty, ""
	}
	if fields.Empty() {
		log.Info("pipeline: no title or body found, skipping",
			zap.Bool("has_title", fields.Title != ""),
			zap.Bool("has_body", fields.Content != ""),
		)
		return model.OutcomeEmpty, ""
	}
	title := extract.Truncate(fields.Title, limits.MaxTitleChars)
	content := extract.Truncate(fields.Content, limits.MaxContentChars)

	cls := p.classifier.Classify(ctx, title, content)

	en, err := p.transformer.Paraphrase(ctx, title, content)
	if err != nil {
		if ctx.Err() != nil {
			return model.OutcomeCanceled, ""
		}
		logTransformFailure(log, "paraphrase", err)
		return model.OutcomeTransformFailed, ""
	}
	pl, err := p.transformer.Translate(ctx, en.Title, en.Content)
	if err != nil {
		if ctx.Err() != nil {
			return model.OutcomeCanceled, ""
		}
		logTransformFailure(log, "translate", err)
		return model.OutcomeTransformFailed, ""
	}
	if strings.TrimSpace(pl.Title) == "" || strings.TrimSpace(pl.Content) == "" {
		log.Error("pipeline: translation returned an empty field")
		return model.OutcomeTransformFailed, ""
	}

	article := &model.Article{
		URL:               url,
		Source:            src.Name,
		Title:             extract.Truncate(en.Title, limits.MaxTitleChars),
		Content:           extract.Truncate(en.Content, limits.MaxContentChars),
		TitleTranslated:   extract.Truncate(pl.Title, limits.MaxTitleChars),
		ContentTranslated: extract.Truncate(pl.Content, limits.MaxContentChars),
		Category:          cls.Category,
		Slug:              slug.Make(en.Title),
		SlugTranslated:    slug.Make(pl.Title),
		PublishedAt:       p.publishedAt(fields, c),
	}

	id, err := p.store.Insert(ctx, article)
	if err != nil {
		if resilience.KindOf(err) == resilience.KindStoreConstraint {
			log.Info("pipeline: article stored concurrently, skipping", zap.Error(err))
			return model.OutcomeDuplicateRace, ""
		}
		if ctx.Err() != nil {
			return model.OutcomeCanceled, ""
		}
		log.Error("pipeline: insert failed", zap.Error(err))
		return model.OutcomeStoreFailed, ""
	}

	log.Info("pipeline: article saved",
		zap.Int64("id", id),
		zap.String("category", string(cls.Category)),
		zap.String("classified_by", string(cls.Path)),
		zap.String("translation", pl.Outcome.String()),
	)
	return model.OutcomeSaved, cls.Category
}

func (p *Pipeline) publishedAt(fields *extract.Fields, c model.Candidate) time.Time {
	switch {
	case fields.PublishedAt != nil:
		return fields.PublishedAt.UTC()
	case c.PublishedHint != nil:
		return c.PublishedHint.UTC()
	default:
		return p.now().UTC()
	}
}

func logTransformFailure(log *zap.Logger, stage string, err error) {
	if errors.Is(err, transform.ErrUnconfigured) {
		log.Warn("pipeline: no language model configured, article rejected", zap.String("stage", stage))
		return
	}
	log.Error("pipeline: transform failed", zap.String("stage", stage), zap.Error(err))
}
