package inventory

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/coastvine/seoauditor/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(testWriter{}, nil))
}

type testWriter struct{}

func (testWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestBuild_StaticRoutesWithExclusions(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	cfg := config.AuditConfig{
		StaticRoutes:    []string{"/", "/about", "/drafts/hidden"},
		ExcludePatterns: []string{"/drafts/**"},
		Crawl:           config.CrawlSettings{TimeoutMs: 1000},
	}

	result := Build(context.Background(), cfg, ts.URL, testLogger())

	if len(result.URLs) != 2 {
		t.Fatalf("expected 2 URLs after exclusion, got %d: %v", len(result.URLs), result.URLs)
	}
	for _, u := range result.URLs {
		if strings.Contains(u, "drafts") {
			t.Errorf("excluded URL leaked through: %s", u)
		}
	}
}

func TestBuild_DedupTrailingSlash(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	cfg := config.AuditConfig{
		StaticRoutes: []string{"/about", "/about/"},
		Crawl:        config.CrawlSettings{TimeoutMs: 1000},
	}

	result := Build(context.Background(), cfg, ts.URL, testLogger())
	if len(result.URLs) != 1 {
		t.Fatalf("expected trailing-slash dedup to collapse to 1 URL, got %d: %v", len(result.URLs), result.URLs)
	}
}

func TestBuild_ArVariants(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	cfg := config.AuditConfig{
		StaticRoutes:      []string{"/", "/about"},
		IncludeArVariants: true,
		Crawl:             config.CrawlSettings{TimeoutMs: 1000},
	}

	result := Build(context.Background(), cfg, ts.URL, testLogger())
	wantURLs := map[string]bool{
		ts.URL + "/":       false,
		ts.URL + "/about":  false,
		ts.URL + "/ar":     false,
		ts.URL + "/ar/about": false,
	}
	for _, u := range result.URLs {
		if _, ok := wantURLs[u]; ok {
			wantURLs[u] = true
		}
	}
	for u, found := range wantURLs {
		if !found {
			t.Errorf("expected ar-variant inventory to include %s", u)
		}
	}
}

func TestBuild_SitemapIndexConcatenatesRawXML(t *testing.T) {
	var tsURL string
	mux := http.NewServeMux()
	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		w.Write([]byte(`<?xml version="1.0"?>
<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <sitemap><loc>` + tsURL + `/sitemap-pages.xml</loc></sitemap>
</sitemapindex>`))
	})
	mux.HandleFunc("/sitemap-pages.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		w.Write([]byte(`<?xml version="1.0"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>` + tsURL + `/page-1</loc></url>
  <url><loc>` + tsURL + `/page-2?a=b&amp;c=d</loc></url>
</urlset>`))
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()
	tsURL = ts.URL

	cfg := config.AuditConfig{Crawl: config.CrawlSettings{TimeoutMs: 2000}}
	result := Build(context.Background(), cfg, ts.URL, testLogger())

	if !strings.Contains(result.SitemapXML, "sitemapindex") || !strings.Contains(result.SitemapXML, "urlset") {
		t.Errorf("expected concatenated raw XML to contain both documents, got: %s", result.SitemapXML)
	}
	if len(result.URLs) < 2 {
		t.Errorf("expected sitemap index recursion to surface nested URLs, got %v", result.URLs)
	}
}
