package ingest

import (
	"bytes"
	"context"
	"fmt"

	"github.com/PuerkitoBio/goquery"

	"github.com/david/eventfeed/internal/logger"
	"github.com/david/eventfeed/internal/models"
)

// Deps are the shared collaborators handed to every adapter.
type Deps struct {
	HTTP    Fetcher
	Colly   Fetcher
	Decoder DocumentDecoder
	Filter  *ContentFilter
	Log     logger.Logger
}

func (d Deps) withDefaults() Deps {
	if d.HTTP == nil {
		d.HTTP = NewHTTPFetcher()
	}
	if d.Decoder == nil {
		d.Decoder = PDFDecoder{}
	}
	if d.Filter == nil {
		d.Filter = DefaultContentFilter()
	}
	if d.Log == nil {
		d.Log = logger.NewNop()
	}
	return d
}

// AdapterConstructor builds an adapter for one source configuration.
type AdapterConstructor func(cfg SourceConfig, deps Deps) (Adapter, error)

// AdapterFactory maps source kinds (from sources.yaml) to constructors.
type AdapterFactory struct {
	constructors map[string]AdapterConstructor
}

// NewAdapterFactory returns a factory with the built-in kinds registered.
func NewAdapterFactory() *AdapterFactory {
	f := &AdapterFactory{constructors: make(map[string]AdapterConstructor)}
	f.Register(KindIndex, NewIndexAdapter)
	f.Register(KindList, NewListAdapter)
	f.Register(KindVenue, NewVenueAdapter)
	f.Register(KindBulletin, NewBulletinAdapter)
	return f
}

func (f *AdapterFactory) Register(kind string, ctor AdapterConstructor) {
	f.constructors[kind] = ctor
}

func (f *AdapterFactory) Build(cfg SourceConfig, deps Deps) (Adapter, error) {
	ctor, ok := f.constructors[cfg.Kind]
	if !ok {
		return nil, fmt.Errorf("adapter kind not found: %s", cfg.Kind)
	}
	return ctor(cfg, deps.withDefaults())
}

// BuildAll builds one adapter per enabled source, in registry order.
func (f *AdapterFactory) BuildAll(reg *Registry, deps Deps) ([]Adapter, error) {
	var out []Adapter
	for _, cfg := range reg.EnabledSources() {
		a, err := f.Build(cfg, deps)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", cfg.ID, err)
		}
		out = append(out, a)
	}
	return out, nil
}

var DefaultAdapterFactory = NewAdapterFactory()

type boundaryKey struct{}

// WithBoundary attaches the run's boundary to ctx so adapters can isolate
// their endpoints.
func WithBoundary(ctx context.Context, b *Boundary) context.Context {
	return context.WithValue(ctx, boundaryKey{}, b)
}

// BoundaryFrom returns the boundary attached to ctx, or a fresh one.
func BoundaryFrom(ctx context.Context) *Boundary {
	if b, ok := ctx.Value(boundaryKey{}).(*Boundary); ok && b != nil {
		return b
	}
	return NewBoundary(nil)
}

// adapterBase carries what every adapter kind shares.
type adapterBase struct {
	cfg     SourceConfig
	fetcher Fetcher
	decoder DocumentDecoder
	filter  *ContentFilter
	log     logger.Logger
}

func newAdapterBase(cfg SourceConfig, deps Deps) (adapterBase, error) {
	deps = deps.withDefaults()
	fetcher := deps.HTTP
	if cfg.Fetcher == FetcherColly {
		if deps.Colly == nil {
			return adapterBase{}, fmt.Errorf("colly fetcher requested but not configured")
		}
		fetcher = deps.Colly
	}
	return adapterBase{
		cfg:     cfg,
		fetcher: fetcher,
		decoder: deps.Decoder,
		filter:  deps.Filter,
		log:     deps.Log.With(logger.String("source", cfg.ID)),
	}, nil
}

func (a *adapterBase) Name() string    { return a.cfg.ID }
func (a *adapterBase) Roots() []string { return a.cfg.Roots() }

// build layers the registry priors under the extracted fields.
func (a *adapterBase) build(extracted ...Partial) models.Item {
	return BuildItem(append([]Partial{a.priors()}, extracted...)...)
}

func (a *adapterBase) fetchBytes(ctx context.Context, url string) ([]byte, error) {
	doc, err := a.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	return readDocument(doc)
}

func (a *adapterBase) fetchHTML(ctx context.Context, url string) (*goquery.Document, error) {
	body, err := a.fetchBytes(ctx, url)
	if err != nil {
		return nil, err
	}
	return parseHTML(body)
}

// anchorsAt fetches url inside the boundary and returns its anchors
// resolved against base.
func (a *adapterBase) anchorsAt(ctx context.Context, url, base string) []Anchor {
	return Guard(ctx, BoundaryFrom(ctx), a.Name(), url, func(ctx context.Context) ([]Anchor, error) {
		doc, err := a.fetchHTML(ctx, url)
		if err != nil {
			return nil, err
		}
		return ExtractAnchors(doc, base), nil
	})
}

// segmentDocument downloads one bulletin document and segments it into
// items. PDFs go through the decoder; anything else is read as HTML.
func (a *adapterBase) segmentDocument(ctx context.Context, docURL string, maxPages int) []models.Item {
	return Guard(ctx, BoundaryFrom(ctx), a.Name(), docURL, func(ctx context.Context) ([]models.Item, error) {
		body, err := a.fetchBytes(ctx, docURL)
		if err != nil {
			return nil, err
		}

		var pages []string
		if bytes.HasPrefix(bytes.TrimSpace(body), []byte("%PDF")) {
			pages, err = a.decoder.Decode(body, maxPages)
			if err != nil {
				return nil, fmt.Errorf("decode %s: %w", docURL, err)
			}
		} else {
			doc, err := parseHTML(body)
			if err != nil {
				return nil, err
			}
			pages = []string{htmlLines(doc)}
		}

		seg := Segmenter{Filter: a.filter, Priors: a.priors()}
		items, scanned := seg.Items(pages, docURL)
		if scanned {
			a.log.Debug("document has no text layer, skipped", logger.String("url", docURL))
			return nil, nil
		}
		a.log.Debug("document segmented", logger.String("url", docURL), logger.Int("items", len(items)))
		return items, nil
	})
}

// priors returns the registry priors with Source defaulted to the source id.
func (a *adapterBase) priors() Partial {
	p := a.cfg.Priors
	if p.Source == "" {
		p.Source = a.cfg.ID
	}
	return p
}
