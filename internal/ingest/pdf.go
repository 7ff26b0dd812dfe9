package ingest

import (
	"bytes"
	"fmt"
	"math"
	"sort"
	"strings"

	rpdf "rsc.io/pdf"
)

// PDFDecoder extracts text from the text layer of a PDF. Scanned PDFs decode
// without error but yield little or no text.
type PDFDecoder struct {
	// LineTolerance is the maximum baseline distance, in points, for two
	// fragments to share a line. Zero means half the font size.
	LineTolerance float64
}

// Decode returns one string per page (at most maxPages, 0 meaning all),
// with reconstructed lines separated by newlines.
func (d PDFDecoder) Decode(content []byte, maxPages int) (pages []string, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("pdf parser panic: %v", recovered)
			pages = nil
		}
	}()

	reader, err := rpdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	n := reader.NumPage()
	if maxPages > 0 && n > maxPages {
		n = maxPages
	}
	for pageIndex := 1; pageIndex <= n; pageIndex++ {
		page := reader.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}
		pages = append(pages, strings.Join(d.lines(page.Content().Text), "\n"))
	}
	return pages, nil
}

// lines groups positioned fragments into text lines, top to bottom and left
// to right.
func (d PDFDecoder) lines(frags []rpdf.Text) []string {
	if len(frags) == 0 {
		return nil
	}
	sorted := make([]rpdf.Text, len(frags))
	copy(sorted, frags)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Y != sorted[j].Y {
			return sorted[i].Y > sorted[j].Y
		}
		return sorted[i].X < sorted[j].X
	})

	var out []string
	var line []rpdf.Text
	flush := func() {
		if len(line) == 0 {
			return
		}
		sort.SliceStable(line, func(i, j int) bool { return line[i].X < line[j].X })
		out = append(out, joinFragments(line))
		line = line[:0]
	}
	for _, f := range sorted {
		if len(line) > 0 && math.Abs(line[0].Y-f.Y) > d.tolerance(line[0], f) {
			flush()
		}
		line = append(line, f)
	}
	flush()
	return out
}

func (d PDFDecoder) tolerance(a, b rpdf.Text) float64 {
	if d.LineTolerance > 0 {
		return d.LineTolerance
	}
	size := math.Max(a.FontSize, b.FontSize)
	if size <= 0 {
		return 2
	}
	return size / 2
}

// joinFragments concatenates fragments on one line, inserting a space where
// the horizontal gap is wider than a third of the font size.
func joinFragments(line []rpdf.Text) string {
	var b strings.Builder
	for i, f := range line {
		if i > 0 {
			prev := line[i-1]
			gap := f.X - (prev.X + prev.W)
			if gap > math.Max(prev.FontSize, 1)/3 {
				b.WriteByte(' ')
			}
		}
		b.WriteString(f.S)
	}
	return b.String()
}
