package ingest

import (
	"context"

	"github.com/david/eventfeed/internal/logger"
	"github.com/david/eventfeed/internal/models"
)

// BulletinAdapter follows one institution's listing pages to its periodic
// programme documents and segments each into events. Every document is its
// own isolation endpoint.
type BulletinAdapter struct {
	adapterBase
}

func NewBulletinAdapter(cfg SourceConfig, deps Deps) (Adapter, error) {
	base, err := newAdapterBase(cfg, deps)
	if err != nil {
		return nil, err
	}
	return &BulletinAdapter{adapterBase: base}, nil
}

func (a *BulletinAdapter) Collect(ctx context.Context) ([]models.Item, error) {
	docs := a.documents(ctx)

	var items []models.Item
	for _, d := range docs {
		items = append(items, a.segmentDocument(ctx, d, a.cfg.MaxPages)...)
	}
	a.log.Info("bulletin collected",
		logger.String("institution", a.cfg.Institution),
		logger.Int("documents", len(docs)),
		logger.Int("items", len(items)),
	)
	return items, nil
}

// documents returns the first MaxDocuments document links found across the
// listing pages.
func (a *BulletinAdapter) documents(ctx context.Context) []string {
	var docs []string
	for _, page := range a.cfg.Pages {
		for _, d := range documentLinks(a.anchorsAt(ctx, page, page), a.cfg.DocumentKeywords) {
			docs = appendUnique(docs, d)
			if len(docs) >= a.cfg.MaxDocuments {
				return docs
			}
		}
	}
	return docs
}
