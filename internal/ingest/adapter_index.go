package ingest

import (
	"context"

	"github.com/david/eventfeed/internal/logger"
	"github.com/david/eventfeed/internal/models"
)

const indexDocumentLimit = 2

// IndexAdapter scans one portal page for anchors announcing event digests.
// With FollowDocuments it opens the digest (a PDF, or a page with PDF
// attachments) and segments it into individual events.
type IndexAdapter struct {
	adapterBase
}

func NewIndexAdapter(cfg SourceConfig, deps Deps) (Adapter, error) {
	base, err := newAdapterBase(cfg, deps)
	if err != nil {
		return nil, err
	}
	return &IndexAdapter{adapterBase: base}, nil
}

// Matches reports whether anchor text qualifies as a digest link.
func (a *IndexAdapter) Matches(text string) bool {
	if text == "" || !containsAll(text, a.cfg.KeywordsAll) {
		return false
	}
	return len(a.cfg.KeywordsAny) == 0 || containsAny(text, a.cfg.KeywordsAny)
}

func (a *IndexAdapter) Collect(ctx context.Context) ([]models.Item, error) {
	anchors := a.anchorsAt(ctx, a.cfg.URL, originOf(a.cfg.URL))

	seen := map[string]bool{}
	var items []models.Item
	links := 0
	for _, an := range anchors {
		if links >= a.cfg.MaxLinks {
			break
		}
		if !a.Matches(an.Text) || seen[an.URL] {
			continue
		}
		seen[an.URL] = true
		if a.filter.IsRejected(an.Text) {
			continue
		}
		links++

		if a.cfg.FollowDocuments {
			if detailed := a.follow(ctx, an); len(detailed) > 0 {
				items = append(items, detailed...)
				continue
			}
		}
		items = append(items, a.build(Partial{Name: an.Text, Link: an.URL}))
	}

	a.log.Info("index collected", logger.Int("links", links), logger.Int("items", len(items)))
	return items, nil
}

// follow segments the documents behind a digest link. An empty result means
// the caller should fall back to the low-detail item.
func (a *IndexAdapter) follow(ctx context.Context, an Anchor) []models.Item {
	docs := []string{an.URL}
	if !looksLikePDF(an.URL) {
		var pdfs []string
		for _, u := range documentLinks(a.anchorsAt(ctx, an.URL, an.URL), nil) {
			if looksLikePDF(u) {
				pdfs = append(pdfs, u)
			}
		}
		if len(pdfs) > indexDocumentLimit {
			pdfs = pdfs[:indexDocumentLimit]
		}
		docs = pdfs
	}

	var items []models.Item
	for _, d := range docs {
		items = append(items, a.segmentDocument(ctx, d, DefaultDocumentPages)...)
	}
	return items
}
