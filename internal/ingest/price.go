package ingest

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/david/eventfeed/internal/models"
)

var priceRegex = regexp.MustCompile(`(?:费用|票价|门票)\s*[:：]?\s*[¥￥]?\s*(\d+(?:\.\d+)?)`)

const (
	lowCostCeiling = 60
	midCostCeiling = 160
)

// ParsePrice finds the first labelled price (费用/票价/门票) in text.
func ParsePrice(text string) (float64, bool) {
	m := priceRegex.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(m[1]), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// CostFromPrice maps a ticket price in yuan to a cost level.
func CostFromPrice(v float64) models.Level {
	switch {
	case v <= lowCostCeiling:
		return models.LevelLow
	case v <= midCostCeiling:
		return models.LevelMid
	default:
		return models.LevelHigh
	}
}

// CostFromText derives a cost level from a labelled price or a 免费 mention.
// ok is false when text says nothing about cost.
func CostFromText(text string) (level models.Level, ok bool) {
	if v, found := ParsePrice(text); found {
		return CostFromPrice(v), true
	}
	if strings.Contains(text, "免费") {
		return models.LevelLow, true
	}
	return "", false
}
