package ports

import (
	"context"
	"time"

	"github.com/turabik33/CE48-Final/internal/domain"
)

// Classifier labels an article with the fixed taxonomy or rejects it.
type Classifier interface {
	Classify(ctx context.Context, title, content string) (domain.Classification, error)
}

// ArticleRepository persists classified articles and rejections.
type ArticleRepository interface {
	AlreadyProcessed(ctx context.Context, ids []string) (map[string]bool, error)
	SaveAccepted(ctx context.Context, article domain.ClassifiedArticle) error
	SaveRejected(ctx context.Context, rejection domain.Rejection) error
	ListAccepted(ctx context.Context) ([]domain.ClassifiedArticle, error)
	ListRejected(ctx context.Context) ([]domain.Rejection, error)
}

// DatasetWriter stores a raw collection run.
type DatasetWriter interface {
	Write(ctx context.Context, name string, articles []domain.Article) error
}

// Notifier streams run summaries to Telegram or other channels.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}

// Scheduler triggers a job repeatedly until stopped.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
