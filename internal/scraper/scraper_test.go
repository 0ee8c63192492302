// internal/scraper/scraper_test.go
package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"insight-agent/internal/common/config"
	apperrors "insight-agent/internal/common/errors"
	"insight-agent/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

const homepageHTML = `<!DOCTYPE html>
<html>
<head>
  <title>Acme Corp - Everything Store</title>
  <meta name="description" content="Acme sells everything to everyone.">
  <script>var tracking = "noise";</script>
</head>
<body>
  <nav><a href="/pricing">Pricing</a></nav>
  <main>
    <h1>Welcome to Acme Corp</h1>
    <p>We build industrial-grade anvils and rockets.</p>
    <ul><li>Anvils</li><li>Rockets</li></ul>
  </main>
  <footer>
    <p>Contact us: sales@acme.example or +1 (555) 123-4567</p>
    <a href="https://linkedin.com/company/acme-corp">LinkedIn</a>
  </footer>
</body>
</html>`

func newTestScraper(t *testing.T) *Scraper {
	cfg := config.ScraperConfig{
		Timeout:         5000,
		MaxRedirects:    3,
		MaxContentChars: 16000,
		UserAgent:       "test-agent",
	}
	return New(cfg, logger.NewTestLogger(t))
}

func serve(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

// ==========================
// Core Functionality Tests
// ==========================

func TestScraper_FetchExtractsContent(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		fmt.Fprint(w, homepageHTML)
	})

	content, err := newTestScraper(t).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, "Acme Corp - Everything Store", content.Title)
	assert.Equal(t, "Acme sells everything to everyone.", content.Description)
	assert.Contains(t, content.Text, "industrial-grade anvils")
	assert.Contains(t, content.Text, "Anvils")
	assert.NotContains(t, content.Text, "tracking", "script content must be stripped")
	assert.NotContains(t, content.Text, "Pricing", "nav content must be stripped")
}

func TestScraper_FetchFindsContactDetails(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, homepageHTML)
	})

	content, err := newTestScraper(t).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, []string{"sales@acme.example"}, content.Emails)
	require.NotEmpty(t, content.Phones)
	assert.Equal(t, "https://linkedin.com/company/acme-corp", content.SocialLinks["linkedin"])
}

// ==========================
// Error Path Tests
// ==========================

func TestScraper_FetchRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"relative url", "/just/a/path"},
		{"unsupported scheme", "ftp://acme.example"},
		{"file scheme", "file:///etc/passwd"},
	}

	scraper := newTestScraper(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := scraper.Fetch(context.Background(), tt.url)
			require.Error(t, err)
			assert.Equal(t, apperrors.ErrCodeInvalidInput, apperrors.AsStandard(err).Code)
		})
	}
}

func TestScraper_FetchUpstreamFailureStatus(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	})

	_, err := newTestScraper(t).Fetch(context.Background(), srv.URL)
	require.Error(t, err)

	stdErr := apperrors.AsStandard(err)
	assert.Equal(t, apperrors.ErrCodeFetchFailed, stdErr.Code)
	assert.Equal(t, http.StatusNotFound, stdErr.Metadata["upstreamStatus"])
}

func TestScraper_FetchUnreachableHost(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {})
	srv.Close()

	_, err := newTestScraper(t).Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeFetchFailed, apperrors.AsStandard(err).Code)
}

func TestScraper_FetchEmptyPageIsUnusable(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><script>x()</script></head><body><nav>menu</nav></body></html>`)
	})

	_, err := newTestScraper(t).Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeContentUnusable, apperrors.AsStandard(err).Code)
}

func TestScraper_FetchBoundsRedirects(t *testing.T) {
	var srv *httptest.Server
	srv = serve(t, func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, srv.URL+r.URL.Path+"x", http.StatusFound)
	})

	_, err := newTestScraper(t).Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeFetchFailed, apperrors.AsStandard(err).Code)
}

func TestScraper_FetchFollowsBoundedRedirects(t *testing.T) {
	hops := 0
	var srv *httptest.Server
	srv = serve(t, func(w http.ResponseWriter, r *http.Request) {
		if hops < 2 {
			hops++
			http.Redirect(w, r, srv.URL, http.StatusMovedPermanently)
			return
		}
		fmt.Fprint(w, homepageHTML)
	})

	content, err := newTestScraper(t).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp - Everything Store", content.Title)
}
