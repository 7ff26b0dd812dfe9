package ingest

import (
	"context"
	"io"
	"time"

	"github.com/david/eventfeed/internal/models"
)

// FetchedDocument represents the raw result of a fetch operation.
type FetchedDocument struct {
	URL         string
	StatusCode  int
	ContentType string
	Body        io.ReadCloser
	FetchedAt   time.Time
	Headers     map[string][]string
}

// Fetcher retrieves raw content from a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*FetchedDocument, error)
}

// Adapter turns one configured source into canonical items. Collect only
// returns an error for adapter-level faults; endpoint failures are absorbed
// by the Boundary and show up in the Report.
type Adapter interface {
	Name() string
	Roots() []string
	Collect(ctx context.Context) ([]models.Item, error)
}

// DocumentDecoder extracts per-page plain text lines from a binary document.
type DocumentDecoder interface {
	Decode(b []byte, maxPages int) ([]string, error)
}

// Anchor is a hyperlink found on a page, with its visible text normalized
// and its href resolved to an absolute URL.
type Anchor struct {
	Text string
	URL  string
}
