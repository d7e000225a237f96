package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/cogentx/cogentx/internal/common"
)

const samplePage = `<!DOCTYPE html>
<html>
<head>
  <title>Install Guide</title>
  <script>window.tracker = true;</script>
  <style>body { color: red; }</style>
</head>
<body>
  <nav><a href="/home">Home</a></nav>
  <header>Site Header</header>
  <main>
    <h1>Installation</h1>
    <p>Run the installer. Follow the prompts.</p>
  </main>
  <footer>Copyright 2025</footer>
</body>
</html>`

func newTestFetcher(t *testing.T) *Service {
	t.Helper()
	cfg := &common.FetcherConfig{
		UserAgent:    "cogentx-test/1.0",
		Timeout:      5 * time.Second,
		MaxBodyBytes: 1 << 20,
	}
	svc, err := New(cfg, arbor.NewLogger())
	require.NoError(t, err)
	return svc
}

func TestFetchStripsBoilerplate(t *testing.T) {
	var gotUserAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserAgent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(samplePage))
	}))
	defer server.Close()

	page, err := newTestFetcher(t).Fetch(context.Background(), server.URL)
	require.NoError(t, err)

	assert.Equal(t, "Install Guide", page.Title)
	assert.Contains(t, page.Content, "Installation")
	assert.Contains(t, page.Content, "Run the installer.")

	assert.NotContains(t, page.Content, "window.tracker")
	assert.NotContains(t, page.Content, "color: red")
	assert.NotContains(t, page.Content, "Site Header")
	assert.NotContains(t, page.Content, "Copyright 2025")
	assert.NotContains(t, page.Content, "Home")

	assert.Equal(t, "cogentx-test/1.0", gotUserAgent)
}

func TestFetchNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	_, err := newTestFetcher(t).Fetch(context.Background(), server.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestFetchEmptyPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body><script>only js</script></body></html>"))
	}))
	defer server.Close()

	_, err := newTestFetcher(t).Fetch(context.Background(), server.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no extractable content")
}

func TestFetchBodySizeCap(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><head><title>Big</title></head><body><p>"))
		for i := 0; i < 10000; i++ {
			w.Write([]byte("padding text to exceed the configured body cap. "))
		}
		w.Write([]byte("</p></body></html>"))
	}))
	defer server.Close()

	cfg := &common.FetcherConfig{
		UserAgent:    "cogentx-test/1.0",
		Timeout:      5 * time.Second,
		MaxBodyBytes: 2048,
	}
	svc, err := New(cfg, arbor.NewLogger())
	require.NoError(t, err)

	page, err := svc.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(page.Content), 4096)
}