package ingest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/gocolly/colly/v2"
)

// CollyFetcher implements Fetcher on top of a colly collector. Sources opt
// into it with `fetcher: colly`; it honours robots.txt and detects charsets.
// A nil Transport dials through the same private-IP guard as HTTPFetcher.
type CollyFetcher struct {
	UserAgent       string
	AcceptLanguage  string
	RequestTimeout  time.Duration
	DomainDelay     time.Duration
	IgnoreRobotsTxt bool
	MaxBodySize     int
	Transport       http.RoundTripper
}

func NewCollyFetcher(timeout time.Duration, rps float64) *CollyFetcher {
	f := &CollyFetcher{
		UserAgent:      DefaultUserAgent,
		AcceptLanguage: DefaultAcceptLanguage,
		RequestTimeout: DefaultTimeout,
		MaxBodySize:    maxBodyBytes,
	}
	if timeout > 0 {
		f.RequestTimeout = timeout
	}
	if rps > 0 {
		f.DomainDelay = time.Duration(float64(time.Second) / rps)
	}
	return f
}

func (f *CollyFetcher) buildCollector(ctx context.Context, host string) (*colly.Collector, error) {
	opts := []colly.CollectorOption{
		colly.StdlibContext(ctx),
		colly.UserAgent(f.UserAgent),
		colly.MaxBodySize(f.MaxBodySize),
		colly.AllowURLRevisit(),
		colly.DetectCharset(),
		colly.AllowedDomains(host),
	}
	if f.IgnoreRobotsTxt {
		opts = append(opts, colly.IgnoreRobotsTxt())
	}

	c := colly.NewCollector(opts...)
	if f.DomainDelay > 0 {
		if err := c.Limit(&colly.LimitRule{DomainGlob: "*", Parallelism: 1, Delay: f.DomainDelay}); err != nil {
			return nil, fmt.Errorf("colly limit rule: %w", err)
		}
	}
	if f.Transport != nil {
		c.WithTransport(f.Transport)
	} else {
		c.WithTransport(&http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			DialContext:         safeDialContext,
			TLSHandshakeTimeout: 10 * time.Second,
		})
	}
	c.SetRequestTimeout(f.RequestTimeout)
	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept-Language", f.AcceptLanguage)
	})
	return c, nil
}

// Fetch visits targetURL synchronously. Non-2xx responses surface through
// colly's error callback and are returned as errors.
func (f *CollyFetcher) Fetch(ctx context.Context, targetURL string) (*FetchedDocument, error) {
	parsedURL, err := url.Parse(targetURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %s: %w", targetURL, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c, err := f.buildCollector(ctx, parsedURL.Hostname())
	if err != nil {
		return nil, err
	}

	var result *FetchedDocument
	var fetchErr error

	c.OnResponse(func(r *colly.Response) {
		result = &FetchedDocument{
			URL:         r.Request.URL.String(),
			StatusCode:  r.StatusCode,
			ContentType: r.Headers.Get("Content-Type"),
			Body:        io.NopCloser(bytes.NewReader(r.Body)),
			FetchedAt:   time.Now(),
			Headers:     map[string][]string(r.Headers.Clone()),
		}
	})
	c.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			fetchErr = fmt.Errorf("%w: %d for %s", ErrUnexpectedStatus, r.StatusCode, targetURL)
			return
		}
		fetchErr = fmt.Errorf("colly fetch %s: %w", targetURL, err)
	})

	// Visit blocks on a synchronous collector.
	if err := c.Visit(targetURL); err != nil && fetchErr == nil {
		return nil, fmt.Errorf("visit %s: %w", targetURL, err)
	}
	if fetchErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fetchErr
	}
	if result == nil {
		return nil, fmt.Errorf("no response received for %s", targetURL)
	}
	return result, nil
}
