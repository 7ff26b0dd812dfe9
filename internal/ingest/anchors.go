package ingest

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

func parseHTML(body []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

// ExtractAnchors returns every a[href] of doc in document order, with text
// normalized and href resolved against base. Anchors whose href cannot be
// resolved to an http(s) URL are skipped; anchors with empty text are kept.
func ExtractAnchors(doc *goquery.Document, base string) []Anchor {
	baseURL, err := url.Parse(base)
	if err != nil {
		baseURL = nil
	}

	var out []Anchor
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		abs := resolveURL(baseURL, href)
		if abs == "" {
			return
		}
		text := NormalizeSpace(sel.Text())
		if text == "" {
			text = NormalizeSpace(sel.AttrOr("title", ""))
		}
		out = append(out, Anchor{Text: text, URL: abs})
	})
	return out
}

// documentLinks picks anchors that point at downloadable bulletins: an href
// ending in .pdf, or anchor text containing one of keywords. Order is kept
// and duplicates are dropped.
func documentLinks(anchors []Anchor, keywords []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, a := range anchors {
		if !looksLikePDF(a.URL) && !containsAny(a.Text, keywords) {
			continue
		}
		if seen[a.URL] {
			continue
		}
		seen[a.URL] = true
		out = append(out, a.URL)
	}
	return out
}

// pageText returns the visible text of doc with a space between text nodes,
// normalized to a single line.
func pageText(doc *goquery.Document) string {
	root := doc.Find("body")
	if root.Length() == 0 {
		root = doc.Selection
	}
	var b strings.Builder
	for _, n := range root.Nodes {
		collectText(n, &b)
	}
	return NormalizeSpace(b.String())
}

func collectText(n *html.Node, b *strings.Builder) {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "script", "style", "noscript", "template":
			return
		}
	}
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
		b.WriteByte(' ')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, b)
	}
}

// htmlLines renders the block-level text of doc one element per line, the
// way a bulletin page lists its programme.
func htmlLines(doc *goquery.Document) string {
	var lines []string
	doc.Find("h1, h2, h3, h4, h5, h6, p, li, tr").Each(func(_ int, sel *goquery.Selection) {
		if sel.Find("p, li, tr").Length() > 0 {
			return
		}
		if line := NormalizeSpace(sel.Text()); line != "" {
			lines = append(lines, line)
		}
	})
	return strings.Join(lines, "\n")
}
