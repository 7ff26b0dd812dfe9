package ingest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/david/eventfeed/internal/models"
)

// stubAdapter returns canned items, or fails in the configured way.
type stubAdapter struct {
	name          string
	roots         []string
	items         []models.Item
	err           error
	panics        bool
	failEndpoints []string
}

func (s *stubAdapter) Name() string    { return s.name }
func (s *stubAdapter) Roots() []string { return s.roots }

func (s *stubAdapter) Collect(ctx context.Context) ([]models.Item, error) {
	if s.panics {
		panic("selector exploded")
	}
	if s.err != nil {
		return nil, s.err
	}
	b := BoundaryFrom(ctx)
	for _, ep := range s.failEndpoints {
		Guard(ctx, b, s.name, ep, func(context.Context) ([]models.Item, error) {
			return nil, errors.New("connection reset")
		})
	}
	return s.items, nil
}

func named(name, link string) models.Item {
	return BuildItem(Partial{Name: name, Link: link})
}

func fixedClock() time.Time {
	return time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
}

func TestAggregator_IsolatesFailingSources(t *testing.T) {
	agg := &Aggregator{
		Adapters: []Adapter{
			&stubAdapter{name: "broken", roots: []string{"https://a.example/"}, err: errors.New("layout changed")},
			&stubAdapter{name: "panicky", roots: []string{"https://b.example/"}, panics: true},
			&stubAdapter{name: "ok", roots: []string{"https://c.example/1", "https://c.example/2"}, items: []models.Item{
				named("城市夜跑", "https://c.example/e/1"),
				named("读书会", "https://c.example/e/2"),
			}},
			&stubAdapter{name: "down", roots: []string{"https://d.example/"}, failEndpoints: []string{"https://d.example/"}},
		},
		Filter: DefaultContentFilter(),
		Clock:  fixedClock,
	}

	ds, report := agg.Run(context.Background())

	require.Len(t, ds.Items, 2)
	assert.Equal(t, "城市夜跑", ds.Items[0].Name)
	assert.Equal(t, []string{
		"https://a.example/", "https://b.example/", "https://c.example/1", "https://c.example/2", "https://d.example/",
	}, ds.Meta.Sources)
	assert.Equal(t, "2025-03-01T08:00:00+08:00", ds.Meta.GeneratedAt)
	assert.Equal(t, DefaultNotes, ds.Meta.Notes)

	require.Len(t, report.Sources, 4)
	assert.True(t, report.Sources[0].Failed)
	assert.True(t, report.Sources[1].Failed)
	assert.False(t, report.Sources[2].Failed)
	assert.True(t, report.Sources[3].Failed)
	assert.False(t, report.AllFailed())
	assert.NotEmpty(t, report.RunID)

	require.Len(t, report.Failures, 3)
	assert.Equal(t, Failure{Source: "broken", Endpoint: AdapterEndpoint, Err: "layout changed"}, report.Failures[0])
	assert.Equal(t, "panic: selector exploded", report.Failures[1].Err)
	assert.Equal(t, "[down] failed: https://d.example/: connection reset", report.Failures[2].String())
}

func TestAggregator_FiltersDedupsAndCaps(t *testing.T) {
	var many []models.Item
	for i := 0; i < 250; i++ {
		many = append(many, named(fmt.Sprintf("讲座 %d", i), fmt.Sprintf("https://x.example/%d", i)))
	}
	first := BuildItem(Partial{Name: "讲座 0", Link: "https://x.example/0", Area: "越秀"})

	agg := &Aggregator{
		Adapters: []Adapter{
			&stubAdapter{name: "a", items: []models.Item{first, named("网红打卡墙", "https://x.example/w")}},
			&stubAdapter{name: "b", items: many},
		},
		MaxItems: 200,
		Notes:    "测试数据",
		Clock:    fixedClock,
	}

	ds, report := agg.Run(context.Background())

	require.Len(t, ds.Items, 200)
	assert.Equal(t, "越秀", ds.Items[0].Area, "first occurrence wins")
	assert.Equal(t, "讲座 1", ds.Items[1].Name)
	assert.Equal(t, "讲座 199", ds.Items[199].Name)
	assert.Equal(t, "测试数据", ds.Meta.Notes)
	assert.Equal(t, []string{}, ds.Meta.Sources)

	assert.Equal(t, 252, report.Collected)
	assert.Equal(t, 1, report.Rejected)
	assert.Equal(t, 1, report.Duplicates)
	assert.Equal(t, 50, report.Truncated)
	assert.Equal(t, 200, report.Items)
	assert.Empty(t, report.Failures)
}

func TestAggregator_AllSourcesFailed(t *testing.T) {
	reg, err := LoadRegistry("")
	require.NoError(t, err)

	agg, err := NewAggregator(reg, Deps{HTTP: &MockFetcher{}})
	require.NoError(t, err)
	agg.Clock = fixedClock
	require.Len(t, agg.Adapters, 4)

	ds, report := agg.Run(context.Background())
	assert.Empty(t, ds.Items)
	assert.NotNil(t, ds.Items)
	assert.Equal(t, reg.RootURLs(), ds.Meta.Sources)
	assert.True(t, report.AllFailed())
}

func TestAggregator_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	agg := &Aggregator{Adapters: []Adapter{&stubAdapter{name: "ok", items: []models.Item{named("a", "b")}}}}
	ds, report := agg.Run(ctx)
	assert.Empty(t, ds.Items)
	assert.True(t, report.AllFailed())
}

func TestReport_AllFailedWithoutSources(t *testing.T) {
	assert.False(t, Report{}.AllFailed())
}

func TestDedupAndCap(t *testing.T) {
	items := []models.Item{named("a", "1"), named("a", "2"), named("a", "1"), named("b", "1")}
	got := Dedup(items)
	require.Len(t, got, 3)
	assert.Equal(t, "2", got[1].Link)

	assert.Len(t, Cap(got, 10), 3)
	assert.Len(t, Cap(got, 2), 2)
	assert.Empty(t, Cap(got, -1))
}
