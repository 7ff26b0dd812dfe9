package ingest

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/david/eventfeed/internal/models"
)

const (
	MinLineRunes      = 4
	MinSpanRunes      = 12
	MaxBlockLines     = 8
	OpenerMinRunes    = 10
	TitleMaxRunes     = 40
	TitlePrefixWindow = 20
	MinDocumentRunes  = 80
)

var (
	dateRegex  = regexp.MustCompile(`(?:((?:19|20)\d{2})\s*[年./-]\s*)?(\d{1,2})\s*[月./-]\s*(\d{1,2})\s*[日号]?`)
	timeRegex  = regexp.MustCompile(`\d{1,2}[:：]\d{2}\s*[-–—~～至到]\s*\d{1,2}[:：]\d{2}`)
	placeRegex = regexp.MustCompile(`(?i)(?:活动地点|地点|地址|场地|场馆|venue|location|address)\s*[:：]\s*([^\s，。；;,|]{1,40})`)

	// a time or date label left dangling once its value is cut out
	tokenLabelRegex = regexp.MustCompile(`(?:活动时间|开始时间|演出时间|开放时间|活动日期|日期|时间)\s*[:：]\s*$`)
	weekdayRegex    = regexp.MustCompile(`[（(](?:周|星期)[一二三四五六日天][）)]|(?:^|\s)(?:星期|周)[一二三四五六日天](?:\s|$)`)
)

// tagFamily adds Tag to a segment whose text mentions any of Words.
type tagFamily struct {
	Tag   string
	Words []string
}

var tagFamilies = []tagFamily{
	{Tag: "展览", Words: []string{"展览", "特展", "展出", "陈列", "画展"}},
	{Tag: "音乐会", Words: []string{"音乐会", "交响", "演奏", "合唱", "独奏"}},
	{Tag: "戏剧", Words: []string{"话剧", "戏剧", "粤剧", "舞剧", "剧场", "曲艺", "木偶"}},
	{Tag: "亲子", Words: []string{"亲子", "儿童", "少儿", "家庭", "绘本"}},
	{Tag: "花事", Words: []string{"花展", "赏花", "花市", "花海", "木棉", "紫荆", "桃花"}},
}

// FindDate returns the first date-like token whose month and day are in
// range, or "".
func FindDate(s string) string {
	loc := findDateIndex(s)
	if loc == nil {
		return ""
	}
	return NormalizeSpace(s[loc[0]:loc[1]])
}

func findDateIndex(s string) []int {
	clocks := timeRegex.FindAllStringIndex(s, -1)
	for _, m := range dateRegex.FindAllStringSubmatchIndex(s, -1) {
		if overlapsAny(m[0], m[1], clocks) || clockAdjacent(s, m[0], m[1]) {
			continue
		}
		month, _ := strconv.Atoi(s[m[4]:m[5]])
		day, _ := strconv.Atoi(s[m[6]:m[7]])
		if month >= 1 && month <= 12 && day >= 1 && day <= 31 {
			return m[:2]
		}
	}
	return nil
}

func overlapsAny(start, end int, spans [][]int) bool {
	for _, sp := range spans {
		if start < sp[1] && sp[0] < end {
			return true
		}
	}
	return false
}

// clockAdjacent reports whether s[start:end] is glued to clock digits, as
// the "10-16" inside "14:10-16". A label colon such as 时间： does not count.
func clockAdjacent(s string, start, end int) bool {
	prev, size := utf8.DecodeLastRuneInString(s[:start])
	if unicode.IsDigit(prev) {
		return true
	}
	if prev == ':' || prev == '：' {
		if before, _ := utf8.DecodeLastRuneInString(s[:start-size]); unicode.IsDigit(before) {
			return true
		}
	}
	if last, _ := utf8.DecodeLastRuneInString(s[:end]); !unicode.IsDigit(last) {
		return false
	}
	r, _ := utf8.DecodeRuneInString(s[end:])
	return r == ':' || r == '：'
}

// FindTimeRange returns the first clock range such as 19:30-21:00.
func FindTimeRange(s string) string {
	return NormalizeSpace(timeRegex.FindString(s))
}

// FindPlace returns the value of the first location label.
func FindPlace(s string) string {
	m := placeRegex.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return m[1]
}

// MatchTagFamilies returns the family tags whose words occur in s, in
// family order.
func MatchTagFamilies(s string) []string {
	var tags []string
	for _, f := range tagFamilies {
		if containsAny(s, f.Words) {
			tags = append(tags, f.Tag)
		}
	}
	return tags
}

const titleTrimSet = " ，。；;,|:：-–—~～、·"

// ExtractTitle derives a short title from a block span: location, time
// and date tokens are removed together with their labels, text after a
// leading label colon is preferred, and the result is bounded to
// TitleMaxRunes. A span with nothing left falls back to its raw text.
func ExtractTitle(span string) string {
	if t := stripTokens(span); t != "" {
		return boundTitle(t)
	}
	return TruncateRunes(NormalizeSpace(span), TitleMaxRunes)
}

// blockTitle takes the title from the first line of block that still has
// text once its tokens are removed, so trailing remarks never lead.
func blockTitle(block []string) string {
	for _, line := range block {
		if t := stripTokens(line); runeLen(t) >= minTitleRunes {
			return boundTitle(t)
		}
	}
	return ExtractTitle(strings.Join(block, " "))
}

const minTitleRunes = 2

func stripTokens(s string) string {
	t := placeRegex.ReplaceAllString(s, " ")
	for {
		loc := timeRegex.FindStringIndex(t)
		if loc == nil {
			break
		}
		t = cutToken(t, loc[0], loc[1])
	}
	for {
		loc := findDateIndex(t)
		if loc == nil {
			break
		}
		t = cutToken(t, loc[0], loc[1])
	}
	t = weekdayRegex.ReplaceAllString(t, " ")
	return strings.Trim(NormalizeSpace(t), titleTrimSet)
}

// cutToken blanks s[start:end] and a time or date label right before it.
func cutToken(s string, start, end int) string {
	prefix := s[:start]
	if loc := tokenLabelRegex.FindStringIndex(prefix); loc != nil {
		prefix = prefix[:loc[0]]
	}
	return prefix + " " + s[end:]
}

func boundTitle(t string) string {
	if idx := strings.IndexAny(t, ":："); idx >= 0 && runeLen(t[:idx]) < TitlePrefixWindow {
		_, size := utf8.DecodeRuneInString(t[idx:])
		if after := strings.Trim(NormalizeSpace(t[idx+size:]), titleTrimSet); after != "" {
			t = after
		}
	}
	return TruncateRunes(t, TitleMaxRunes)
}

// SplitLines breaks decoded pages into normalized lines, dropping lines
// shorter than MinLineRunes.
func SplitLines(pages []string) []string {
	var out []string
	for _, p := range pages {
		for _, raw := range strings.Split(p, "\n") {
			line := NormalizeSpace(raw)
			if runeLen(line) >= MinLineRunes {
				out = append(out, line)
			}
		}
	}
	return out
}

// SegmentLines groups lines into candidate event blocks. A dated line
// always starts a new block; undated lines extend the open block, or open
// one when they are long enough to stand on their own.
func SegmentLines(lines []string) [][]string {
	var blocks [][]string
	var open []string
	flush := func() {
		if len(open) > 0 {
			blocks = append(blocks, open)
			open = nil
		}
	}

	for _, line := range lines {
		switch {
		case findDateIndex(line) != nil:
			flush()
			open = []string{line}
		case open != nil:
			open = append(open, line)
		case runeLen(line) >= OpenerMinRunes:
			open = []string{line}
		default:
			continue
		}
		if len(open) >= MaxBlockLines {
			flush()
		}
	}
	flush()
	return blocks
}

// IsScannedText reports whether decoded pages carry too little text to be a
// real text layer.
func IsScannedText(pages []string) bool {
	return runeLen(NormalizeSpace(strings.Join(pages, " "))) < MinDocumentRunes
}

// Segmenter turns decoded bulletin pages into items.
type Segmenter struct {
	Filter *ContentFilter
	Priors Partial
}

// Items segments pages into filtered items linked to the document URL.
// scanned is true when the document has no usable text layer.
func (s Segmenter) Items(pages []string, link string) (items []models.Item, scanned bool) {
	if IsScannedText(pages) {
		return nil, true
	}

	for _, block := range SegmentLines(SplitLines(pages)) {
		span := strings.Join(block, " ")
		if runeLen(span) < MinSpanRunes {
			continue
		}

		title := blockTitle(block)
		if s.Filter.IsRejected(title) {
			continue
		}

		extracted := Partial{
			Name:     title,
			Area:     FindPlace(span),
			Date:     FindDate(span),
			TimeHint: FindTimeRange(span),
			Tags:     withTags(s.Priors.Tags, MatchTagFamilies(span)...),
			Notes:    TruncateRunes(span, NotesMaxRunes),
			Link:     link,
		}
		if cost, ok := CostFromText(span); ok {
			extracted.Cost = cost
		}
		items = append(items, BuildItem(s.Priors, extracted))
	}
	return items, false
}
