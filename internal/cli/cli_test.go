package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/david/eventfeed/internal/config"
	"github.com/david/eventfeed/internal/ingest"
)

type pageFetcher map[string]string

func (p pageFetcher) Fetch(ctx context.Context, url string) (*ingest.FetchedDocument, error) {
	body, ok := p[url]
	if !ok {
		return nil, fmt.Errorf("mock 404: %s", url)
	}
	return &ingest.FetchedDocument{URL: url, StatusCode: 200, Body: io.NopCloser(strings.NewReader(body))}, nil
}

const testRegistry = `
sources:
  - id: portal
    kind: index
    url: https://portal.example/
    keywords_all: [活动]
    max_links: 5
    priors:
      area: 越秀
`

const portalHome = `<html><body>
<a href="/a/1">周末活动：古琴雅集</a>
<a href="/a/2">网红打卡活动</a>
<a href="/a/3">本月活动预告</a>
</body></html>`

func setup(t *testing.T, pages pageFetcher) (*Runner, *bytes.Buffer, *bytes.Buffer, string, string) {
	t.Helper()
	dir := t.TempDir()
	reg := filepath.Join(dir, "sources.yaml")
	require.NoError(t, os.WriteFile(reg, []byte(testRegistry), 0o644))

	var stdout, stderr bytes.Buffer
	r := &Runner{Deps: ingest.Deps{HTTP: pages}, Stdout: &stdout, Stderr: &stderr}
	return r, &stdout, &stderr, reg, filepath.Join(dir, "data.json")
}

func TestRunner_WritesDataset(t *testing.T) {
	r, stdout, stderr, reg, out := setup(t, pageFetcher{"https://portal.example/": portalHome})

	code, err := r.Run(context.Background(), Options{Out: out, Sources: reg, Stats: true})
	require.NoError(t, err)
	assert.Equal(t, ExitSuccess, code)
	assert.Empty(t, stderr.String())
	assert.Contains(t, stdout.String(), fmt.Sprintf("Generated %s with 2 items.", out))
	assert.Contains(t, stdout.String(), "portal")

	ds, err := ingest.ReadDataset(out)
	require.NoError(t, err)
	require.Len(t, ds.Items, 2)
	assert.Equal(t, "周末活动：古琴雅集", ds.Items[0].Name)
	assert.Equal(t, "越秀", ds.Items[0].Area)
	assert.Equal(t, []string{"https://portal.example/"}, ds.Meta.Sources)
}

func TestRunner_MaxItemsOverride(t *testing.T) {
	r, _, _, reg, out := setup(t, pageFetcher{"https://portal.example/": portalHome})

	code, err := r.Run(context.Background(), Options{Out: out, Sources: reg, MaxItems: 1})
	require.NoError(t, err)
	assert.Equal(t, ExitSuccess, code)

	ds, err := ingest.ReadDataset(out)
	require.NoError(t, err)
	assert.Len(t, ds.Items, 1)
}

func TestRunner_AllSourcesFailed(t *testing.T) {
	r, stdout, stderr, reg, out := setup(t, pageFetcher{})

	code, err := r.Run(context.Background(), Options{Out: out, Sources: reg})
	require.NoError(t, err)
	assert.Equal(t, ExitAllSourcesFailed, code)
	assert.Contains(t, stderr.String(), "[portal] failed: https://portal.example/: mock 404")
	assert.Contains(t, stdout.String(), "with 0 items.")

	ds, err := ingest.ReadDataset(out)
	require.NoError(t, err)
	assert.Empty(t, ds.Items)
}

func TestRunner_BadRegistry(t *testing.T) {
	r, _, _, _, out := setup(t, pageFetcher{})
	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("sources: [{id: x, kind: rss}]"), 0o644))

	code, err := r.Run(context.Background(), Options{Out: out, Sources: bad})
	assert.Error(t, err)
	assert.Equal(t, ExitError, code)
	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr), "nothing is written on a config error")
}

func TestRootCmd_Flags(t *testing.T) {
	r, stdout, _, reg, out := setup(t, pageFetcher{"https://portal.example/": portalHome})

	code := -1
	cmd := NewRootCmd(config.Config{Output: "ignored.json", MaxItems: 200}, r, &code)
	cmd.SetArgs([]string{"--out", out, "--sources", reg, "--stats"})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, stdout.String(), "Generated "+out)
	assert.Contains(t, stdout.String(), "COLLECTED")
}

func TestRootCmd_RejectsArgs(t *testing.T) {
	r, _, _, _, _ := setup(t, pageFetcher{})
	code := -1
	cmd := NewRootCmd(config.Config{}, r, &code)
	cmd.SetArgs([]string{"extra"})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	assert.Error(t, cmd.Execute())
}
