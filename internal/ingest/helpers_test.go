package ingest

import (
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParseURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func mustDoc(t *testing.T, body string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	require.NoError(t, err)
	return doc
}

func TestExtractAnchors(t *testing.T) {
	doc := mustDoc(t, `<html><body>
		<a href="/a.html">  春季  花展 </a>
		<a href="javascript:void(0)">脚本</a>
		<a href="#top">顶部</a>
		<a href="mailto:x@y.org">邮件</a>
		<a href="https://other.org/b.html#frag" title="外链"></a>
		<a href="files/c.pdf"></a>
	</body></html>`)

	got := ExtractAnchors(doc, "https://x.org/news/index.html")
	assert.Equal(t, []Anchor{
		{Text: "春季 花展", URL: "https://x.org/a.html"},
		{Text: "外链", URL: "https://other.org/b.html"},
		{Text: "", URL: "https://x.org/news/files/c.pdf"},
	}, got)
}

func TestDocumentLinks(t *testing.T) {
	anchors := []Anchor{
		{Text: "三月活动安排", URL: "https://x.org/march.pdf"},
		{Text: "四月活动预告", URL: "https://x.org/april.html"},
		{Text: "重复", URL: "https://x.org/march.pdf"},
		{Text: "首页", URL: "https://x.org/"},
	}
	assert.Equal(t,
		[]string{"https://x.org/march.pdf", "https://x.org/april.html"},
		documentLinks(anchors, []string{"预告"}))
}

func TestPageTextSkipsScripts(t *testing.T) {
	doc := mustDoc(t, `<html><head><style>p{}</style></head><body>
		<h1>标题</h1><script>var x = 1;</script><p>正文<b>加粗</b></p></body></html>`)
	assert.Equal(t, "标题 正文 加粗", pageText(doc))
}

func TestHTMLLines(t *testing.T) {
	doc := mustDoc(t, `<html><body><h2>三月安排</h2>
		<ul><li>3月5日 手工坊</li><li> </li><li>3月8日 <span>讲座</span></li></ul>
		<div><p>备注</p></div></body></html>`)
	assert.Equal(t, "三月安排\n3月5日 手工坊\n3月8日 讲座\n备注", htmlLines(doc))
}

func TestSmallHelpers(t *testing.T) {
	t.Run("looksLikePDF", func(t *testing.T) {
		assert.True(t, looksLikePDF("https://x.org/a/B.PDF?v=2"))
		assert.False(t, looksLikePDF("https://x.org/a.pdf.html"))
	})

	t.Run("containsAll ignores blank keywords", func(t *testing.T) {
		assert.True(t, containsAll("春季花展开幕", []string{"花展", ""}))
		assert.False(t, containsAll("春季花展", []string{"花展", "开幕"}))
		assert.True(t, containsAll("任意", nil))
	})

	t.Run("appendUnique", func(t *testing.T) {
		out := appendUnique(nil, " 展览 ")
		out = appendUnique(out, "展览")
		out = appendUnique(out, "  ")
		out = appendUnique(out, "亲子")
		assert.Equal(t, []string{"展览", "亲子"}, out)
	})

	t.Run("sameOrigin", func(t *testing.T) {
		assert.True(t, sameOrigin("https://X.org/a", "https://x.org/b"))
		assert.False(t, sameOrigin("http://x.org/a", "https://x.org/a"))
		assert.False(t, sameOrigin("not a url", "not a url"))
	})
}
