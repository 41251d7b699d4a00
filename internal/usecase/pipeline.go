package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/turabik33/CE48-Final/internal/collector"
	"github.com/turabik33/CE48-Final/internal/domain"
	"github.com/turabik33/CE48-Final/internal/ports"
)

const unknownReason = "Unknown"

// PipelineDeps wires the driven adapters of the classification pipeline.
type PipelineDeps struct {
	Classifier ports.Classifier
	Repository ports.ArticleRepository
	Delay      time.Duration
	Logger     *slog.Logger
}

// Pipeline classifies raw articles and stores accepted and rejected ones.
type Pipeline struct {
	classifier ports.Classifier
	repository ports.ArticleRepository
	delay      time.Duration
	logger     *slog.Logger
	sleep      func(context.Context, time.Duration) error
}

// ClassificationStats summarizes one pipeline run.
type ClassificationStats struct {
	Total    int
	Skipped  int
	Accepted int
	Rejected int
	Elapsed  time.Duration
}

// NewPipeline constructs the classification use case.
func NewPipeline(deps PipelineDeps) *Pipeline {
	log := deps.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Pipeline{
		classifier: deps.Classifier,
		repository: deps.Repository,
		delay:      deps.Delay,
		logger:     log,
		sleep:      collector.Sleep,
	}
}

// Process classifies articles[start:end]; end <= 0 means through the last
// article. Articles already present in either table are skipped.
func (p *Pipeline) Process(ctx context.Context, articles []domain.Article, start, end int) (ClassificationStats, error) {
	if p.classifier == nil || p.repository == nil {
		return ClassificationStats{}, fmt.Errorf("pipeline is missing a classifier or repository")
	}

	batch := sliceRange(articles, start, end)
	stats := ClassificationStats{Total: len(batch)}
	began := time.Now()

	ids := make([]string, len(batch))
	for i, a := range batch {
		ids[i] = a.ID
	}
	done, err := p.repository.AlreadyProcessed(ctx, ids)
	if err != nil {
		return stats, fmt.Errorf("load processed: %w", err)
	}

	called := false
	for i, article := range batch {
		if done[article.ID] {
			stats.Skipped++
			continue
		}
		if called {
			if err := p.sleep(ctx, p.delay); err != nil {
				return stats, err
			}
		}
		called = true

		verdict, err := p.classifier.Classify(ctx, article.Title, article.FullText)
		if err != nil {
			return stats, fmt.Errorf("classify article %s: %w", article.ID, err)
		}

		if verdict.IsRelevant {
			err = p.repository.SaveAccepted(ctx, domain.ClassifiedArticle{Article: article, Classification: verdict})
			stats.Accepted++
		} else {
			reason := verdict.RejectionReason
			if reason == "" {
				reason = unknownReason
			}
			err = p.repository.SaveRejected(ctx, domain.Rejection{
				ID:          article.ID,
				Title:       article.Title,
				Reason:      reason,
				ProcessedAt: verdict.ProcessedAt,
			})
			stats.Rejected++
		}
		if err != nil {
			return stats, fmt.Errorf("persist article %s: %w", article.ID, err)
		}

		p.logger.Debug("article classified",
			"progress", fmt.Sprintf("%d/%d", i+1, len(batch)),
			"id", article.ID,
			"relevant", verdict.IsRelevant,
		)
	}

	stats.Elapsed = time.Since(began)
	p.logger.Info("classification complete",
		"total", stats.Total,
		"skipped", stats.Skipped,
		"accepted", stats.Accepted,
		"rejected", stats.Rejected,
		"elapsed", stats.Elapsed.Round(time.Second),
	)
	return stats, nil
}

// sliceRange clamps [start, end) to the slice bounds.
func sliceRange(articles []domain.Article, start, end int) []domain.Article {
	if end <= 0 || end > len(articles) {
		end = len(articles)
	}
	start = max(start, 0)
	if start >= end {
		return nil
	}
	return articles[start:end]
}
