package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	rpdf "rsc.io/pdf"
)

func TestPDFDecoder_LinesGroupsByBaseline(t *testing.T) {
	frags := []rpdf.Text{
		{S: "专场", X: 154, Y: 700.4, W: 24, FontSize: 12},
		{S: "2025年4月1日", X: 50, Y: 680, W: 70, FontSize: 12},
		{S: "粤剧", X: 130, Y: 700, W: 24, FontSize: 12},
		{S: "2025年3月5日", X: 50, Y: 700, W: 70, FontSize: 12},
		{S: "地点：大剧院", X: 140, Y: 680.2, W: 60, FontSize: 12},
	}

	lines := PDFDecoder{}.lines(frags)
	require.Len(t, lines, 2)
	assert.Equal(t, "2025年3月5日 粤剧专场", lines[0])
	assert.Equal(t, "2025年4月1日 地点：大剧院", lines[1])
}

func TestPDFDecoder_CorruptInputIsAnError(t *testing.T) {
	pages, err := PDFDecoder{}.Decode([]byte("%PDF-1.4 this is not really a pdf"), 12)
	assert.Error(t, err)
	assert.Nil(t, pages)
}

func TestPDFDecoder_EmptyFragments(t *testing.T) {
	assert.Nil(t, PDFDecoder{}.lines(nil))
}
