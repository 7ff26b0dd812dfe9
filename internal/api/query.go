package api

import (
	"strings"

	"github.com/david/eventfeed/internal/models"
)

type itemQuery struct {
	Sources []string
	Tags    []string
	Text    string // lowercased
}

// filterItems keeps dataset order. Sources and tags match when any listed
// value matches; Text is a substring of name, area or notes.
func filterItems(items []models.Item, q itemQuery) []models.Item {
	out := []models.Item{}
	for _, it := range items {
		if len(q.Sources) > 0 && !containsString(q.Sources, it.Source) {
			continue
		}
		if len(q.Tags) > 0 && !anyTag(it, q.Tags) {
			continue
		}
		if q.Text != "" && !matchesText(it, q.Text) {
			continue
		}
		out = append(out, it)
	}
	return out
}

func anyTag(it models.Item, tags []string) bool {
	for _, t := range tags {
		if it.HasTag(t) {
			return true
		}
	}
	return false
}

func matchesText(it models.Item, text string) bool {
	for _, field := range []string{it.Name, it.Area, it.Notes} {
		if strings.Contains(strings.ToLower(field), text) {
			return true
		}
	}
	return false
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// splitCSV splits a comma-separated query parameter into trimmed non-empty strings.
func splitCSV(s string) []string {
	var result []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			result = append(result, part)
		}
	}
	return result
}
