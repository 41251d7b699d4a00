package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/turabik33/CE48-Final/internal/collector"
	"github.com/turabik33/CE48-Final/internal/dedup"
	"github.com/turabik33/CE48-Final/internal/domain"
)

// Phase names a registered collector and its configured ceiling.
type Phase struct {
	Name  string
	Quota int
}

// PhaseReport describes what one phase contributed to a run.
type PhaseReport struct {
	Name      string
	Quota     int
	Collected int
	Skipped   bool
	Err       error
}

// CollectionResult is the outcome of an orchestrated run.
type CollectionResult struct {
	RunID    string
	Target   int
	Articles []domain.Article
	Phases   []PhaseReport
}

// Orchestrator runs collector phases in order against one shared ledger
// until the target is reached.
type Orchestrator struct {
	registry *collector.Registry
	phases   []Phase
	logger   *slog.Logger
	newRunID func() string
}

// NewOrchestrator wires the registry with the ordered phase list.
func NewOrchestrator(reg *collector.Registry, phases []Phase, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		registry: reg,
		phases:   phases,
		logger:   log,
		newRunID: uuid.NewString,
	}
}

// Collect runs the phases. Before each phase remaining = target - collected;
// once it drops to zero no further phase is resolved or invoked. A failing
// or panicking phase is logged and the run moves on.
func (o *Orchestrator) Collect(ctx context.Context, target int) (CollectionResult, error) {
	if o.registry == nil {
		return CollectionResult{}, fmt.Errorf("collector registry is not configured")
	}

	result := CollectionResult{
		RunID:  o.newRunID(),
		Target: target,
	}
	ledger := dedup.NewLedger()

	o.info("collection started", "run_id", result.RunID, "target", target, "phases", len(o.phases))

	for _, phase := range o.phases {
		remaining := target - len(result.Articles)
		if remaining <= 0 || ctx.Err() != nil {
			result.Phases = append(result.Phases, PhaseReport{Name: phase.Name, Skipped: true})
			o.debug("phase skipped", "run_id", result.RunID, "phase", phase.Name, "remaining", remaining)
			continue
		}

		quota := min(phase.Quota, remaining)
		report := PhaseReport{Name: phase.Name, Quota: quota}
		o.debug("phase started", "run_id", result.RunID, "phase", phase.Name, "quota", quota)

		collected, err := o.runPhase(ctx, phase.Name, collector.Request{Quota: quota, Ledger: ledger})
		result.Articles = append(result.Articles, collected...)
		report.Collected = len(collected)
		report.Err = err

		if err != nil {
			o.logError("phase failed", "run_id", result.RunID, "phase", phase.Name, "collected", report.Collected, "error", err)
		} else {
			o.info("phase complete", "run_id", result.RunID, "phase", phase.Name, "collected", report.Collected, "quota", quota)
		}
		result.Phases = append(result.Phases, report)
	}

	o.info("collection finished", "run_id", result.RunID, "collected", len(result.Articles), "target", target)
	return result, nil
}

// runPhase drains one collector up to quota. Articles yielded before a panic
// are kept since they are already recorded in the ledger.
func (o *Orchestrator) runPhase(ctx context.Context, name string, req collector.Request) (articles []domain.Article, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("phase %s panicked: %v", name, r)
		}
	}()

	c, err := o.registry.Resolve(name)
	if err != nil {
		return nil, err
	}

	seq, err := c.Collect(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("phase %s: %w", name, err)
	}
	if req.Quota <= 0 {
		return nil, nil
	}

	for article := range seq {
		articles = append(articles, article)
		if len(articles) >= req.Quota || ctx.Err() != nil {
			break
		}
	}
	return articles, nil
}

func (o *Orchestrator) debug(msg string, args ...any) {
	if o.logger != nil {
		o.logger.Debug(msg, args...)
	}
}

func (o *Orchestrator) info(msg string, args ...any) {
	if o.logger != nil {
		o.logger.Info(msg, args...)
	}
}

func (o *Orchestrator) logError(msg string, args ...any) {
	if o.logger != nil {
		o.logger.Error(msg, args...)
	}
}
