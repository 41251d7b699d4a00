package usecase

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"testing"

	"github.com/turabik33/CE48-Final/internal/collector"
	"github.com/turabik33/CE48-Final/internal/domain"
)

// stubCollector yields up to available fresh articles, recording each call.
type stubCollector struct {
	name      string
	available int
	setupErr  error
	panicAt   int
	calls     int
	quotas    []int
}

func (s *stubCollector) Name() string { return s.name }

func (s *stubCollector) Collect(_ context.Context, req collector.Request) (iter.Seq[domain.Article], error) {
	s.calls++
	s.quotas = append(s.quotas, req.Quota)
	if s.setupErr != nil {
		return nil, s.setupErr
	}
	ledger := req.LedgerOrNew()
	return func(yield func(domain.Article) bool) {
		n := 0
		for i := 0; i < s.available && n < req.Quota; i++ {
			if s.panicAt > 0 && i == s.panicAt {
				panic("source exploded")
			}
			a := domain.Article{
				Title:      fmt.Sprintf("%s story %d", s.name, i),
				URL:        fmt.Sprintf("https://%s.example.com/%d", s.name, i),
				SourceType: domain.SourceRSS,
				SourceName: s.name,
			}
			if !collector.Admit(ledger, &a) {
				continue
			}
			n++
			if !yield(a) {
				return
			}
		}
	}, nil
}

func newOrchestrator(t *testing.T, phases []Phase, collectors ...collector.Collector) *Orchestrator {
	t.Helper()
	reg := collector.NewRegistry()
	for _, c := range collectors {
		reg.Register(c)
	}
	o := NewOrchestrator(reg, phases, nil)
	o.newRunID = func() string { return "run-1" }
	return o
}

func TestOrchestratorSkipsPhasesOnceTargetReached(t *testing.T) {
	t.Parallel()

	rss := &stubCollector{name: "rss", available: 4}
	api := &stubCollector{name: "api", available: 50}
	scrape := &stubCollector{name: "scrape", available: 50}

	o := newOrchestrator(t, []Phase{{"rss", 5}, {"api", 8}, {"scrape", 5}}, rss, api, scrape)
	res, err := o.Collect(context.Background(), 10)
	if err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}

	if len(res.Articles) != 10 {
		t.Fatalf("expected 10 articles, got %d", len(res.Articles))
	}
	if len(api.quotas) != 1 || api.quotas[0] != 6 {
		t.Fatalf("expected api quota min(8, 6) = 6, got %v", api.quotas)
	}
	if scrape.calls != 0 {
		t.Fatalf("scrape must not run once the target is reached")
	}
	if !res.Phases[2].Skipped || res.Phases[0].Collected != 4 || res.Phases[1].Collected != 6 {
		t.Fatalf("unexpected phase reports: %+v", res.Phases)
	}
	if res.RunID != "run-1" || res.Target != 10 {
		t.Fatalf("unexpected run metadata: %s %d", res.RunID, res.Target)
	}
}

func TestOrchestratorNeverExceedsTarget(t *testing.T) {
	t.Parallel()

	for _, target := range []int{0, 1, 7, 20, 100} {
		o := newOrchestrator(t, []Phase{{"a", 30}, {"b", 30}, {"c", 30}},
			&stubCollector{name: "a", available: 12},
			&stubCollector{name: "b", available: 3},
			&stubCollector{name: "c", available: 40},
		)
		res, err := o.Collect(context.Background(), target)
		if err != nil {
			t.Fatalf("Collect returned error: %v", err)
		}
		if len(res.Articles) > target {
			t.Fatalf("target %d: collected %d", target, len(res.Articles))
		}
		sum := 0
		for _, p := range res.Phases {
			if p.Collected > p.Quota {
				t.Fatalf("phase %s exceeded its quota: %+v", p.Name, p)
			}
			sum += p.Collected
		}
		if sum != len(res.Articles) {
			t.Fatalf("phase counts %d do not add up to %d", sum, len(res.Articles))
		}
	}
}

func TestOrchestratorSharesLedgerAcrossPhases(t *testing.T) {
	t.Parallel()

	// the second run of the same source finds only duplicates
	dup := &stubCollector{name: "dup", available: 3}
	reg := collector.NewRegistry()
	reg.Register(dup)
	o := NewOrchestrator(reg, []Phase{{"dup", 10}, {"dup", 10}}, nil)

	res, err := o.Collect(context.Background(), 10)
	if err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}
	if len(res.Articles) != 3 || res.Phases[1].Collected != 0 || dup.calls != 2 {
		t.Fatalf("expected duplicates across phases to be rejected, got %d", len(res.Articles))
	}
}

func TestOrchestratorIsolatesFailingPhases(t *testing.T) {
	t.Parallel()

	broken := &stubCollector{name: "api", setupErr: errors.New("no feeds")}
	panicky := &stubCollector{name: "scrape", available: 10, panicAt: 2}
	scholar := &stubCollector{name: "scholar", available: 4}

	o := newOrchestrator(t, []Phase{{"rss", 5}, {"api", 5}, {"scrape", 5}, {"scholar", 5}}, broken, panicky, scholar)
	res, err := o.Collect(context.Background(), 20)
	if err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}

	if res.Phases[0].Err == nil || !strings.Contains(res.Phases[0].Err.Error(), "not registered") {
		t.Fatalf("expected unknown collector error, got %v", res.Phases[0].Err)
	}
	if res.Phases[1].Err == nil || res.Phases[1].Collected != 0 {
		t.Fatalf("expected setup failure with zero yield: %+v", res.Phases[1])
	}
	if res.Phases[2].Err == nil || res.Phases[2].Collected != 2 {
		t.Fatalf("expected panic with partial yield kept: %+v", res.Phases[2])
	}
	if res.Phases[3].Collected != 4 {
		t.Fatalf("later phases must still run: %+v", res.Phases[3])
	}
	if len(res.Articles) != 6 {
		t.Fatalf("expected 6 articles, got %d", len(res.Articles))
	}
}

func TestOrchestratorRequiresRegistry(t *testing.T) {
	t.Parallel()

	if _, err := NewOrchestrator(nil, nil, nil).Collect(context.Background(), 1); err == nil {
		t.Fatalf("expected error without a registry")
	}
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	articles := []domain.Article{
		{SourceType: domain.SourceAPI, SourceName: "B"},
		{SourceType: domain.SourceRSS, SourceName: "A"},
		{SourceType: domain.SourceRSS, SourceName: "B"},
		{SourceType: domain.SourceScholar, SourceName: "C"},
	}
	stats := Summarize(articles)
	if stats.Total != 4 {
		t.Fatalf("unexpected total: %d", stats.Total)
	}
	if len(stats.BySource) != 3 || stats.BySource[0] != (Count{"RSS", 2}) || stats.BySource[1] != (Count{"API", 1}) {
		t.Fatalf("unexpected source types: %+v", stats.BySource)
	}
	if stats.TopSources[0] != (Count{"B", 2}) || stats.TopSources[1] != (Count{"A", 1}) {
		t.Fatalf("unexpected top sources: %+v", stats.TopSources)
	}
}

func TestRunSummary(t *testing.T) {
	t.Parallel()

	msg := RunSummary(CollectionResult{
		RunID:    "abc",
		Target:   10,
		Articles: []domain.Article{{SourceType: domain.SourceRSS}},
		Phases: []PhaseReport{
			{Name: "rss", Quota: 10, Collected: 1},
			{Name: "api", Quota: 9, Err: errors.New("boom")},
			{Name: "scrape", Skipped: true},
		},
	})
	for _, want := range []string{"Collected 1 of 10", "- rss: 1/10", "failed: boom", "- scrape: skipped", "RSS: 1 (100.0%)"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("summary missing %q:\n%s", want, msg)
		}
	}
}
