package collector

import (
	"context"
	"fmt"
	"iter"

	"github.com/turabik33/CE48-Final/internal/dedup"
	"github.com/turabik33/CE48-Final/internal/domain"
)

// Request carries the per-phase parameters of a collection run.
type Request struct {
	Quota  int
	Ledger *dedup.Ledger
}

// LedgerOrNew returns the shared ledger, or a private one when none was given.
func (r Request) LedgerOrNew() *dedup.Ledger {
	if r.Ledger != nil {
		return r.Ledger
	}
	return dedup.NewLedger()
}

// Collector is a single source family (RSS, news APIs, scraping, scholar search).
//
// Collect returns a lazy sequence; nothing is fetched until it is ranged over.
// Ranging again starts from the first source against the same ledger.
// The error is reserved for setup failures that make the whole phase unusable.
type Collector interface {
	Name() string
	Collect(ctx context.Context, req Request) (iter.Seq[domain.Article], error)
}

// Registry keeps a mapping from collector names to their implementations.
type Registry struct {
	collectors map[string]Collector
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{collectors: map[string]Collector{}}
}

// Register adds or replaces a collector implementation.
func (r *Registry) Register(c Collector) {
	if r.collectors == nil {
		r.collectors = map[string]Collector{}
	}
	r.collectors[c.Name()] = c
}

// Resolve returns a collector by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Collector, error) {
	if c, ok := r.collectors[name]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("collector %s is not registered", name)
}

// Names lists registered collectors in no particular order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.collectors))
	for name := range r.collectors {
		names = append(names, name)
	}
	return names
}

// Empty is the sequence of a phase that has nothing to contribute.
func Empty(func(domain.Article) bool) {}
