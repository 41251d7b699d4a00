package app

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/turabik33/CE48-Final/internal/collector"
	"github.com/turabik33/CE48-Final/internal/config"
	"github.com/turabik33/CE48-Final/internal/domain"
	"github.com/turabik33/CE48-Final/internal/infrastructure/dataset"
	"github.com/turabik33/CE48-Final/internal/infrastructure/fetch"
	"github.com/turabik33/CE48-Final/internal/infrastructure/llm"
	"github.com/turabik33/CE48-Final/internal/infrastructure/report"
	"github.com/turabik33/CE48-Final/internal/infrastructure/scheduler"
	"github.com/turabik33/CE48-Final/internal/infrastructure/sources"
	"github.com/turabik33/CE48-Final/internal/infrastructure/storage"
	"github.com/turabik33/CE48-Final/internal/infrastructure/telegram"
	"github.com/turabik33/CE48-Final/internal/logging"
	"github.com/turabik33/CE48-Final/internal/ports"
	"github.com/turabik33/CE48-Final/internal/usecase"
)

// Collector names, in the order the news run visits them.
const (
	PhaseRSS     = "rss"
	PhaseAPI     = "api"
	PhaseScrape  = "scrape"
	PhaseScholar = "scholar"
)

const (
	articlesDataset   = "articles"
	scholarDataset    = "scholar_papers"
	classifiedExport  = "classified_articles.csv"
	rawDatasetCSVName = articlesDataset + ".csv"
)

// CollectOptions selects the target and, optionally, a single phase.
type CollectOptions struct {
	Target int
	Only   string
}

// ClassifyOptions selects the raw dataset and the [Start, End) slice of it.
type ClassifyOptions struct {
	Input  string
	Start  int
	End    int
	Export bool
}

// Application wires configs to use cases.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	registry *collector.Registry
	writer   ports.DatasetWriter
	notifier *telegram.Notifier
	now      func() time.Time
}

// New builds the collectors and adapters from configuration.
func New(cfg config.Config, baseLogger *slog.Logger) *Application {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	fetcher := fetch.New(nil, fetch.Config{
		Timeout:   cfg.HTTP.Timeout,
		Retries:   cfg.HTTP.Retries,
		BaseDelay: cfg.HTTP.BaseDelay,
		UserAgent: cfg.HTTP.UserAgent,
	}, baseLogger.With("component", "fetch"))

	registry := collector.NewRegistry()
	registry.Register(sources.NewRSSCollector(fetcher, cfg.RSSFeeds, baseLogger.With("component", "collector.rss")))
	registry.Register(sources.NewAPICollector(fetcher, cfg.APIs, baseLogger.With("component", "collector.api")))
	registry.Register(sources.NewScrapeCollector(fetcher, cfg.ScrapeSeeds, cfg.HTTP.BrowserUserAgent, nil, baseLogger.With("component", "collector.scrape")))
	registry.Register(sources.NewScholarCollector(fetcher, cfg.Scholar, baseLogger.With("component", "collector.scholar")))

	return &Application{
		cfg:      cfg,
		logger:   baseLogger,
		registry: registry,
		writer:   dataset.NewWriter(cfg.Output.Dir),
		notifier: telegram.NewNotifier(cfg.Notifications.Telegram),
		now:      time.Now,
	}
}

// Phases returns the ordered news phases, or the single phase named by only
// with the whole target as its quota.
func (a *Application) Phases(target int, only string) ([]usecase.Phase, error) {
	q := a.cfg.Quotas
	switch only {
	case "":
		return []usecase.Phase{
			{Name: PhaseRSS, Quota: q.RSS},
			{Name: PhaseAPI, Quota: q.API},
			{Name: PhaseScrape, Quota: q.Scrape},
		}, nil
	case PhaseRSS, PhaseAPI, PhaseScrape:
		return []usecase.Phase{{Name: only, Quota: target}}, nil
	default:
		return nil, fmt.Errorf("unknown phase %q (want %s, %s or %s)", only, PhaseRSS, PhaseAPI, PhaseScrape)
	}
}

// RunCollect performs one news collection run and writes the raw dataset.
func (a *Application) RunCollect(ctx context.Context, opts CollectOptions) (usecase.CollectionResult, error) {
	target := opts.Target
	if target <= 0 {
		target = a.cfg.Quotas.Target
	}
	phases, err := a.Phases(target, opts.Only)
	if err != nil {
		return usecase.CollectionResult{}, err
	}
	return a.collect(ctx, articlesDataset, phases, target)
}

// RunScholar performs the scholar-only run with its own ledger and files.
func (a *Application) RunScholar(ctx context.Context, maxPapers int) (usecase.CollectionResult, error) {
	if maxPapers <= 0 {
		maxPapers = a.cfg.Scholar.MaxPapers
	}
	return a.collect(ctx, scholarDataset, []usecase.Phase{{Name: PhaseScholar, Quota: maxPapers}}, maxPapers)
}

func (a *Application) collect(ctx context.Context, name string, phases []usecase.Phase, target int) (usecase.CollectionResult, error) {
	orchestrator := usecase.NewOrchestrator(a.registry, phases, a.logger.With("component", "orchestrator"))
	result, err := orchestrator.Collect(ctx, target)
	if err != nil {
		return result, err
	}

	stats := usecase.Summarize(result.Articles)
	for _, c := range stats.BySource {
		a.logger.Info("collected by source type", "run_id", result.RunID, "source_type", c.Label, "count", c.Count)
	}
	for _, c := range stats.TopSources {
		a.logger.Debug("collected by source", "run_id", result.RunID, "source", c.Label, "count", c.Count)
	}

	// the dataset is written even when the run was cut short
	if err := a.writer.Write(context.WithoutCancel(ctx), name, result.Articles); err != nil {
		return result, fmt.Errorf("write dataset %s: %w", name, err)
	}
	a.logger.Info("dataset written", "run_id", result.RunID, "dir", a.cfg.Output.Dir, "name", name, "articles", len(result.Articles))

	a.notify(ctx, usecase.RunSummary(result))
	return result, nil
}

func (a *Application) notify(ctx context.Context, message string) {
	if !a.notifier.Enabled() {
		return
	}
	if err := a.notifier.PublishDigest(ctx, message); err != nil {
		a.logger.Warn("run notification failed", "error", err)
	}
}

// RunScheduled repeats RunCollect every interval until ctx is cancelled.
func (a *Application) RunScheduled(ctx context.Context, every time.Duration, opts CollectOptions) error {
	job := func(ctx context.Context) error {
		_, err := a.RunCollect(ctx, opts)
		return err
	}
	driver := scheduler.NewTickerScheduler(every)
	s := usecase.NewScheduler(driver, job, a.logger.With("component", "scheduler"))
	if err := s.Start(ctx); err != nil {
		return err
	}
	a.logger.Info("recurring collection started", "every", every)

	<-ctx.Done()
	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Minute)
	defer cancel()
	return s.Stop(stopCtx)
}

// RunClassify classifies a raw dataset into the SQLite store.
func (a *Application) RunClassify(ctx context.Context, opts ClassifyOptions) (usecase.ClassificationStats, error) {
	if a.cfg.Classifier.APIKey == "" {
		return usecase.ClassificationStats{}, fmt.Errorf("classifier api key is not set")
	}

	input := opts.Input
	if input == "" {
		input = filepath.Join(a.cfg.Output.Dir, rawDatasetCSVName)
	}
	articles, err := dataset.ReadCSV(input)
	if err != nil {
		return usecase.ClassificationStats{}, err
	}
	a.logger.Info("raw dataset loaded", "path", input, "articles", len(articles))

	repo, err := storage.Open(ctx, a.cfg.Database.Path)
	if err != nil {
		return usecase.ClassificationStats{}, err
	}
	defer repo.Close()

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Classifier: llm.NewClassifier(a.cfg.Classifier, a.logger.With("component", "classifier")),
		Repository: repo,
		Delay:      a.cfg.Classifier.Delay,
		Logger:     a.logger.With("component", "pipeline"),
	})
	stats, err := pipeline.Process(ctx, articles, opts.Start, opts.End)
	if err != nil {
		return stats, err
	}

	if opts.Export {
		if err := a.exportClassified(ctx, repo); err != nil {
			return stats, err
		}
	}
	return stats, nil
}

func (a *Application) exportClassified(ctx context.Context, repo ports.ArticleRepository) error {
	accepted, err := repo.ListAccepted(ctx)
	if err != nil {
		return err
	}
	path := filepath.Join(filepath.Dir(a.cfg.Database.Path), classifiedExport)
	if err := dataset.WriteClassified(path, accepted); err != nil {
		return fmt.Errorf("export classified: %w", err)
	}
	a.logger.Info("classified articles exported", "path", path, "articles", len(accepted))
	return nil
}

// RunReport builds the corpus report from the SQLite store and writes it
// to dir, or to the configured report directory when dir is empty.
func (a *Application) RunReport(ctx context.Context, dir string) (domain.Report, error) {
	if dir == "" {
		dir = a.cfg.Output.ReportDir
	}

	repo, err := storage.Open(ctx, a.cfg.Database.Path)
	if err != nil {
		return domain.Report{}, err
	}
	defer repo.Close()

	accepted, err := repo.ListAccepted(ctx)
	if err != nil {
		return domain.Report{}, err
	}
	rejected, err := repo.ListRejected(ctx)
	if err != nil {
		return domain.Report{}, err
	}

	r := usecase.BuildReport(accepted, rejected, a.now())
	paths, err := report.Write(dir, r)
	if err != nil {
		return r, err
	}
	a.logger.Info("report written", "files", paths, "accepted", r.Accepted, "rejected", r.Rejected)
	return r, nil
}
