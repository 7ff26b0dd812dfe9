package ingest

import (
	"strings"

	"github.com/david/eventfeed/internal/models"
)

// DefaultHardKeywords always disqualify a title: photo-op and promotional
// vocabulary.
var DefaultHardKeywords = []string{
	"打卡", "探店", "网红", "拍照", "出片", "双人特惠", "约拍",
	"团购", "必打卡", "小红书", "种草",
}

// DefaultSoftKeywords never reject on their own. A hard match that sits
// inside a soft match (e.g. 拍照 inside 禁止拍照) does not count.
var DefaultSoftKeywords = []string{
	"约会", "市集", "禁止拍照", "拍照须知",
}

// ContentFilter decides whether a candidate title is unwanted. It is
// immutable once built and safe to share.
type ContentFilter struct {
	hard []string
	soft []string
}

// NewContentFilter copies and normalizes the keyword sets. Empty keywords
// are dropped.
func NewContentFilter(hard, soft []string) *ContentFilter {
	return &ContentFilter{
		hard: normalizeKeywords(hard),
		soft: normalizeKeywords(soft),
	}
}

// DefaultContentFilter builds a filter over the default vocabulary.
func DefaultContentFilter() *ContentFilter {
	return NewContentFilter(DefaultHardKeywords, DefaultSoftKeywords)
}

func normalizeKeywords(in []string) []string {
	out := make([]string, 0, len(in))
	for _, k := range in {
		k = strings.ToLower(NormalizeSpace(k))
		if k != "" {
			out = append(out, k)
		}
	}
	return out
}

// IsRejected reports whether title contains a hard keyword occurrence that
// is not covered by a soft keyword occurrence.
func (f *ContentFilter) IsRejected(title string) bool {
	_, rejected := f.firstHardMatch(title)
	return rejected
}

// Match returns the hard keyword that rejected title, if any.
func (f *ContentFilter) Match(title string) (string, bool) {
	return f.firstHardMatch(title)
}

func (f *ContentFilter) firstHardMatch(title string) (string, bool) {
	if f == nil {
		return "", false
	}
	t := strings.ToLower(NormalizeSpace(title))
	if t == "" {
		return "", false
	}

	var softSpans [][2]int
	for _, k := range f.soft {
		softSpans = append(softSpans, occurrences(t, k)...)
	}

	for _, k := range f.hard {
		for _, span := range occurrences(t, k) {
			if !covered(span, softSpans) {
				return k, true
			}
		}
	}
	return "", false
}

// occurrences returns the byte spans of every (possibly overlapping)
// occurrence of keyword in text.
func occurrences(text, keyword string) [][2]int {
	var spans [][2]int
	for start := 0; start <= len(text)-len(keyword); {
		idx := strings.Index(text[start:], keyword)
		if idx < 0 {
			break
		}
		begin := start + idx
		spans = append(spans, [2]int{begin, begin + len(keyword)})
		start = begin + 1
	}
	return spans
}

func covered(span [2]int, by [][2]int) bool {
	for _, s := range by {
		if s[0] <= span[0] && span[1] <= s[1] {
			return true
		}
	}
	return false
}

// FilterItems keeps the items whose names pass the filter. The input slice
// is not modified.
func (f *ContentFilter) FilterItems(items []models.Item) []models.Item {
	out := make([]models.Item, 0, len(items))
	for _, it := range items {
		if f.IsRejected(it.Name) {
			continue
		}
		out = append(out, it)
	}
	return out
}
