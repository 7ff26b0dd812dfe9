package ingest

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPFetcher_SendsHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, "<html><body>你好</body></html>")
	}))
	defer srv.Close()

	f := NewHTTPFetcher(WithHTTPClient(srv.Client()), WithRateLimit(100))
	doc, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)

	body, err := readDocument(doc)
	require.NoError(t, err)
	assert.Contains(t, string(body), "你好")
	assert.Equal(t, DefaultUserAgent, got.Get("User-Agent"))
	assert.Equal(t, DefaultAcceptLanguage, got.Get("Accept-Language"))
	assert.Equal(t, http.StatusOK, doc.StatusCode)
	assert.Equal(t, DefaultTimeout, f.Client.Timeout)
}

func TestHTTPFetcher_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(WithHTTPClient(srv.Client()))
	_, err := f.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnexpectedStatus))
}

func TestHTTPFetcher_TranscodesGBK(t *testing.T) {
	// 中文 in GBK
	page := []byte("<html><body>\xd6\xd0\xce\xc4</body></html>")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=gbk")
		_, _ = w.Write(page)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(WithHTTPClient(srv.Client()))
	doc, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	body, err := readDocument(doc)
	require.NoError(t, err)
	assert.Contains(t, string(body), "中文")
}

func TestHTTPFetcher_LeavesPDFBytes(t *testing.T) {
	pdf := []byte("%PDF-1.4\n\xd6\xd0")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write(pdf)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(WithHTTPClient(srv.Client()))
	doc, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	body, err := readDocument(doc)
	require.NoError(t, err)
	assert.Equal(t, pdf, body)
}

func TestHTTPFetcher_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	client := srv.Client()
	client.Timeout = 50 * time.Millisecond
	f := NewHTTPFetcher(WithHTTPClient(client))
	_, err := f.Fetch(context.Background(), srv.URL)
	assert.Error(t, err)
}

func TestHTTPFetcher_BlocksLoopbackByDefault(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	_, err := NewHTTPFetcher(WithTimeout(time.Second)).Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blocked private IP")
}

func TestIsPrivateIP(t *testing.T) {
	tests := []struct {
		ip   string
		want bool
	}{
		{"127.0.0.1", true},
		{"10.1.2.3", true},
		{"192.168.0.10", true},
		{"169.254.1.1", true},
		{"::1", true},
		{"8.8.8.8", false},
		{"2001:4860:4860::8888", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isPrivateIP(net.ParseIP(tt.ip)), tt.ip)
	}
	assert.True(t, isPrivateIP(nil))
}

func TestSafeCheckRedirect(t *testing.T) {
	req := func(raw string) *http.Request {
		u, _ := url.Parse(raw)
		return &http.Request{URL: u}
	}
	assert.NoError(t, safeCheckRedirect(req("https://x.example/a"), nil))
	assert.Error(t, safeCheckRedirect(req("ftp://x.example/a"), nil))
	assert.Error(t, safeCheckRedirect(req("http://localhost/a"), nil))
	assert.Error(t, safeCheckRedirect(req("https://x.example/a"), make([]*http.Request, 10)))
}
