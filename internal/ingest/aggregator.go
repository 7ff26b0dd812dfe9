package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/david/eventfeed/internal/logger"
	"github.com/david/eventfeed/internal/models"
)

// ChinaZone is the fixed UTC+08:00 zone used for generatedAt.
var ChinaZone = time.FixedZone("UTC+8", 8*60*60)

// SourceStats summarizes one adapter's contribution to a run.
type SourceStats struct {
	Source   string        `json:"source"`
	Items    int           `json:"items"`
	Failures int           `json:"failures"`
	Failed   bool          `json:"failed"`
	Duration time.Duration `json:"duration_ns"`
}

// Report describes what a run did. It is never written into the dataset.
type Report struct {
	RunID      string        `json:"run_id"`
	Sources    []SourceStats `json:"sources"`
	Failures   []Failure     `json:"failures"`
	Collected  int           `json:"collected"`
	Rejected   int           `json:"rejected"`
	Duplicates int           `json:"duplicates"`
	Truncated  int           `json:"truncated"`
	Items      int           `json:"items"`
}

// AllFailed reports whether there was at least one source and every one of
// them failed.
func (r Report) AllFailed() bool {
	if len(r.Sources) == 0 {
		return false
	}
	for _, s := range r.Sources {
		if !s.Failed {
			return false
		}
	}
	return true
}

// Aggregator runs adapters in order and merges their output into one
// dataset.
type Aggregator struct {
	Adapters []Adapter
	Filter   *ContentFilter
	MaxItems int
	Notes    string
	Clock    func() time.Time
	Log      logger.Logger
}

// NewAggregator wires the registry's enabled sources into an Aggregator.
func NewAggregator(reg *Registry, deps Deps) (*Aggregator, error) {
	deps.Filter = NewContentFilter(reg.Filter.Hard, reg.Filter.Soft)
	deps = deps.withDefaults()
	adapters, err := DefaultAdapterFactory.BuildAll(reg, deps)
	if err != nil {
		return nil, fmt.Errorf("build adapters: %w", err)
	}
	return &Aggregator{
		Adapters: adapters,
		Filter:   deps.Filter,
		MaxItems: reg.MaxItems,
		Notes:    reg.Notes,
		Clock:    time.Now,
		Log:      deps.Log,
	}, nil
}

// Run collects every adapter inside its own boundary, then re-filters,
// deduplicates by (name, link) keeping the first, caps and stamps meta.
func (a *Aggregator) Run(ctx context.Context) (models.Dataset, Report) {
	log := a.Log
	if log == nil {
		log = logger.NewNop()
	}
	report := Report{RunID: uuid.NewString()}
	log = log.With(logger.String("run_id", report.RunID))

	b := NewBoundary(log)
	ctx = WithBoundary(ctx, b)

	var collected []models.Item
	var roots []string
	for _, ad := range a.Adapters {
		roots = append(roots, ad.Roots()...)

		start := time.Now()
		before := len(b.Failures())
		items, _ := GuardAdapter(ctx, b, ad.Name(), ad.Collect)
		stats := SourceStats{
			Source:   ad.Name(),
			Items:    len(items),
			Failures: len(b.Failures()) - before,
			Failed:   b.AllFailed(ad.Name()),
			Duration: time.Since(start),
		}
		report.Sources = append(report.Sources, stats)
		log.Info("source finished",
			logger.String("source", stats.Source),
			logger.Int("items", stats.Items),
			logger.Int("failures", stats.Failures),
			logger.Duration("duration", stats.Duration),
		)
		collected = append(collected, items...)
	}
	report.Collected = len(collected)

	filter := a.Filter
	if filter == nil {
		filter = DefaultContentFilter()
	}
	filtered := filter.FilterItems(collected)
	report.Rejected = len(collected) - len(filtered)

	unique := Dedup(filtered)
	report.Duplicates = len(filtered) - len(unique)

	final := Cap(unique, a.maxItems())
	report.Truncated = len(unique) - len(final)
	report.Items = len(final)
	report.Failures = b.Failures()

	if roots == nil {
		roots = []string{}
	}
	ds := models.Dataset{
		Items: final,
		Meta: models.Meta{
			GeneratedAt: a.now().In(ChinaZone).Format(time.RFC3339),
			Sources:     roots,
			Notes:       a.notes(),
		},
	}
	log.Info("run finished", logger.Int("items", report.Items), logger.Int("failures", len(report.Failures)))
	return ds, report
}

func (a *Aggregator) maxItems() int {
	if a.MaxItems <= 0 {
		return DefaultMaxItems
	}
	return a.MaxItems
}

func (a *Aggregator) notes() string {
	if a.Notes == "" {
		return DefaultNotes
	}
	return a.Notes
}

func (a *Aggregator) now() time.Time {
	if a.Clock == nil {
		return time.Now()
	}
	return a.Clock()
}

// Dedup drops every item whose (name, link) was already seen, keeping the
// first occurrence and the original order.
func Dedup(items []models.Item) []models.Item {
	seen := make(map[models.Key]bool, len(items))
	out := make([]models.Item, 0, len(items))
	for _, it := range items {
		k := it.Key()
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, it)
	}
	return out
}

// Cap keeps the first n items.
func Cap(items []models.Item, n int) []models.Item {
	if n < 0 {
		n = 0
	}
	if len(items) <= n {
		return items
	}
	return items[:n]
}
