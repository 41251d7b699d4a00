package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/turabik33/CE48-Final/internal/domain"
)

type fakeClassifier struct {
	calls  []string
	failOn string
}

func (f *fakeClassifier) Classify(_ context.Context, title, _ string) (domain.Classification, error) {
	f.calls = append(f.calls, title)
	if title == f.failOn {
		return domain.Classification{}, errors.New("classifier misconfigured")
	}
	if strings.HasPrefix(title, "AI") {
		return domain.Classification{IsRelevant: true, Category: "Safety", ProcessedAt: "2025-03-10T12:00:00Z"}, nil
	}
	if title == "silent" {
		return domain.Classification{}, nil
	}
	return domain.Rejected("not about AI", "2025-03-10T12:00:00Z"), nil
}

type memoryRepo struct {
	accepted map[string]domain.ClassifiedArticle
	rejected map[string]domain.Rejection
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{accepted: map[string]domain.ClassifiedArticle{}, rejected: map[string]domain.Rejection{}}
}

func (m *memoryRepo) AlreadyProcessed(_ context.Context, ids []string) (map[string]bool, error) {
	out := map[string]bool{}
	for _, id := range ids {
		_, a := m.accepted[id]
		_, r := m.rejected[id]
		if a || r {
			out[id] = true
		}
	}
	return out, nil
}

func (m *memoryRepo) SaveAccepted(_ context.Context, a domain.ClassifiedArticle) error {
	m.accepted[a.Article.ID] = a
	return nil
}

func (m *memoryRepo) SaveRejected(_ context.Context, r domain.Rejection) error {
	m.rejected[r.ID] = r
	return nil
}

func (m *memoryRepo) ListAccepted(context.Context) ([]domain.ClassifiedArticle, error) { return nil, nil }
func (m *memoryRepo) ListRejected(context.Context) ([]domain.Rejection, error)         { return nil, nil }

func newTestPipeline(c *fakeClassifier, repo *memoryRepo, sleeps *int) *Pipeline {
	p := NewPipeline(PipelineDeps{Classifier: c, Repository: repo, Delay: 4 * time.Second})
	p.sleep = func(context.Context, time.Duration) error {
		*sleeps++
		return nil
	}
	return p
}

func TestPipelineRoutesVerdicts(t *testing.T) {
	t.Parallel()

	classifier := &fakeClassifier{}
	repo := newMemoryRepo()
	repo.rejected["old"] = domain.Rejection{ID: "old"}
	sleeps := 0

	articles := []domain.Article{
		{ID: "1", Title: "AI crack detection"},
		{ID: "old", Title: "AI already seen"},
		{ID: "2", Title: "Bridge opening ceremony"},
		{ID: "3", Title: "silent"},
	}
	stats, err := newTestPipeline(classifier, repo, &sleeps).Process(context.Background(), articles, 0, 0)
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}

	if stats.Total != 4 || stats.Skipped != 1 || stats.Accepted != 1 || stats.Rejected != 2 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if len(classifier.calls) != 3 || sleeps != 2 {
		t.Fatalf("expected 3 calls with 2 delays, got %d calls and %d delays", len(classifier.calls), sleeps)
	}
	if repo.accepted["1"].Classification.Category != "Safety" {
		t.Fatalf("accepted article not stored")
	}
	if repo.rejected["2"].Reason != "not about AI" || repo.rejected["2"].Title != "Bridge opening ceremony" {
		t.Fatalf("unexpected rejection: %+v", repo.rejected["2"])
	}
	if repo.rejected["3"].Reason != "Unknown" {
		t.Fatalf("missing reason must default to Unknown, got %q", repo.rejected["3"].Reason)
	}
}

func TestPipelineHonoursRange(t *testing.T) {
	t.Parallel()

	classifier := &fakeClassifier{}
	sleeps := 0
	articles := []domain.Article{{ID: "0", Title: "a"}, {ID: "1", Title: "b"}, {ID: "2", Title: "c"}, {ID: "3", Title: "d"}}

	stats, err := newTestPipeline(classifier, newMemoryRepo(), &sleeps).Process(context.Background(), articles, 1, 3)
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if stats.Total != 2 || strings.Join(classifier.calls, ",") != "b,c" {
		t.Fatalf("unexpected batch: %+v %v", stats, classifier.calls)
	}

	if got := sliceRange(articles, 5, 0); got != nil {
		t.Fatalf("start past the end must give an empty batch")
	}
	if got := sliceRange(articles, -3, 99); len(got) != 4 {
		t.Fatalf("bounds must be clamped, got %d", len(got))
	}
}

func TestPipelineStopsOnClassifierError(t *testing.T) {
	t.Parallel()

	classifier := &fakeClassifier{failOn: "boom"}
	sleeps := 0
	articles := []domain.Article{{ID: "1", Title: "AI one"}, {ID: "2", Title: "boom"}, {ID: "3", Title: "AI three"}}

	stats, err := newTestPipeline(classifier, newMemoryRepo(), &sleeps).Process(context.Background(), articles, 0, 0)
	if err == nil {
		t.Fatalf("expected classifier error")
	}
	if stats.Accepted != 1 || len(classifier.calls) != 2 {
		t.Fatalf("expected processing to stop at the failing article: %+v", stats)
	}
}

func TestPipelineRequiresAdapters(t *testing.T) {
	t.Parallel()

	if _, err := NewPipeline(PipelineDeps{}).Process(context.Background(), nil, 0, 0); err == nil {
		t.Fatalf("expected error without adapters")
	}
}
