package ingest

import (
	"context"

	"github.com/david/eventfeed/internal/logger"
	"github.com/david/eventfeed/internal/models"
)

// VenueAdapter scans venue homepages for programme links. Only links that
// stay on the venue's own origin are kept.
type VenueAdapter struct {
	adapterBase
}

func NewVenueAdapter(cfg SourceConfig, deps Deps) (Adapter, error) {
	base, err := newAdapterBase(cfg, deps)
	if err != nil {
		return nil, err
	}
	return &VenueAdapter{adapterBase: base}, nil
}

func (a *VenueAdapter) Collect(ctx context.Context) ([]models.Item, error) {
	var items []models.Item
	for _, v := range a.cfg.Venues {
		got := a.collectVenue(ctx, v)
		a.log.Info("venue collected", logger.String("venue", v.Name), logger.Int("items", len(got)))
		items = append(items, got...)
	}
	return items, nil
}

func (a *VenueAdapter) collectVenue(ctx context.Context, v VenueConfig) []models.Item {
	seen := map[string]bool{}
	var items []models.Item
	for _, page := range v.Pages {
		for _, an := range a.anchorsAt(ctx, page, v.Origin) {
			if !a.accept(v, an) || seen[an.URL] {
				continue
			}
			seen[an.URL] = true
			if a.filter.IsRejected(an.Text) {
				continue
			}
			items = append(items, a.build(Partial{
				Name: an.Text,
				Area: v.Area,
				Link: an.URL,
				Tags: withTags(a.cfg.Priors.Tags, v.Name),
			}))
		}
	}
	return items
}

func (a *VenueAdapter) accept(v VenueConfig, an Anchor) bool {
	if runeLen(an.Text) < v.MinText || !containsAny(an.Text, v.Keywords) {
		return false
	}
	return sameOrigin(an.URL, v.Origin)
}
