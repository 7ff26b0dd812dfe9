package ingest

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/david/eventfeed/internal/logger"
	"github.com/david/eventfeed/internal/models"
)

var (
	detailTimeRegex  = regexp.MustCompile(`时间\s*[:：]\s*([^。|\n]{0,50})`)
	detailPlaceRegex = regexp.MustCompile(`地点\s*[:：]\s*([^。|\n]{0,60})`)
	detailFeeRegex   = regexp.MustCompile(`(?:费用|票价)\s*[:：]\s*[¥￥]?\s*(\d+(?:\.\d+)?)`)
	detailFreeRegex  = regexp.MustCompile(`(?:费用|票价)\s*[:：]\s*免费`)
)

// ListAdapter walks paginated event lists (one per category) and, when
// Detail is set, enriches each event from its detail page.
type ListAdapter struct {
	adapterBase
	linkPattern *regexp.Regexp
}

func NewListAdapter(cfg SourceConfig, deps Deps) (Adapter, error) {
	base, err := newAdapterBase(cfg, deps)
	if err != nil {
		return nil, err
	}
	re, err := regexp.Compile(cfg.LinkPattern)
	if err != nil {
		return nil, fmt.Errorf("link_pattern: %w", err)
	}
	return &ListAdapter{adapterBase: base, linkPattern: re}, nil
}

func (a *ListAdapter) Collect(ctx context.Context) ([]models.Item, error) {
	var items []models.Item
	for _, cat := range a.cfg.Categories {
		got := a.collectCategory(ctx, cat)
		a.log.Info("category collected", logger.String("endpoint", cat.URL), logger.Int("items", len(got)))
		items = append(items, got...)
	}
	return items, nil
}

func (a *ListAdapter) collectCategory(ctx context.Context, cat CategoryConfig) []models.Item {
	var items []models.Item
	seenPages := map[string]bool{}
	seenLinks := map[string]bool{}
	seenEvents := map[Anchor]bool{}

	for page := 0; page < a.cfg.MaxPages; page++ {
		pageURL := PageURL(cat.URL, page*a.cfg.PageStep)
		canon := CanonicalizeURL(pageURL)
		if seenPages[canon] {
			a.log.Debug("pagination cycle, stopping", logger.String("url", pageURL))
			break
		}
		seenPages[canon] = true

		candidates := a.candidates(a.anchorsAt(ctx, pageURL, pageURL))
		fresh := 0
		for _, c := range candidates {
			if !seenLinks[c.URL] {
				seenLinks[c.URL] = true
				fresh++
			}
			if seenEvents[c] {
				continue
			}
			seenEvents[c] = true

			if a.filter.IsRejected(c.Text) {
				continue
			}
			items = append(items, a.buildEvent(ctx, cat, c))
		}
		if fresh == 0 {
			break
		}
	}
	return items
}

// candidates keeps event anchors with text, deduplicated by (title, url),
// capped at MaxPerPage.
func (a *ListAdapter) candidates(anchors []Anchor) []Anchor {
	seen := map[Anchor]bool{}
	var out []Anchor
	for _, an := range anchors {
		if an.Text == "" || !a.linkPattern.MatchString(an.URL) || seen[an] {
			continue
		}
		seen[an] = true
		out = append(out, an)
		if len(out) >= a.cfg.MaxPerPage {
			break
		}
	}
	return out
}

func (a *ListAdapter) buildEvent(ctx context.Context, cat CategoryConfig, an Anchor) models.Item {
	extracted := Partial{
		Name:   an.Text,
		Link:   an.URL,
		Source: cat.Tag,
		Tags:   withTags([]string{cat.Label}, a.cfg.Priors.Tags...),
	}
	if a.cfg.Detail {
		details := Guard(ctx, BoundaryFrom(ctx), a.Name(), an.URL, func(ctx context.Context) ([]Partial, error) {
			doc, err := a.fetchHTML(ctx, an.URL)
			if err != nil {
				return nil, err
			}
			return []Partial{ParseDetailText(pageText(doc))}, nil
		})
		if len(details) == 1 {
			return a.build(details[0], extracted)
		}
	}
	return a.build(extracted)
}

var detailLabels = []string{"时间", "地点", "费用", "票价", "类型", "主办", "发起"}

// cutAtLabel ends a captured field value where the next field label starts.
func cutAtLabel(v string) string {
	end := len(v)
	for _, l := range detailLabels {
		for _, sep := range []string{"：", ":"} {
			if i := strings.Index(v, l+sep); i >= 0 && i < end {
				end = i
			}
		}
	}
	return NormalizeSpace(v[:end])
}

// ParseDetailText pulls the time, place and fee fields out of an event
// detail page's flattened text.
func ParseDetailText(text string) Partial {
	var p Partial
	if m := detailTimeRegex.FindStringSubmatch(text); m != nil {
		p.TimeHint = cutAtLabel(m[1])
	}
	if m := detailPlaceRegex.FindStringSubmatch(text); m != nil {
		p.Area = TruncateRunes(cutAtLabel(m[1]), AreaMaxRunes)
	}
	if m := detailFeeRegex.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			p.Cost = CostFromPrice(v)
		}
	} else if detailFreeRegex.MatchString(text) {
		p.Cost = models.LevelLow
	}
	return p
}

// PageURL returns the list view at the given start offset. Offset 0 is the
// bare category URL.
func PageURL(raw string, start int) string {
	if start <= 0 {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	q.Set("start", strconv.Itoa(start))
	u.RawQuery = q.Encode()
	return u.String()
}
