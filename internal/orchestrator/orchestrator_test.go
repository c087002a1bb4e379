package orchestrator

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
)

// newTestSite starts an httptest server whose sitemap and pages reference
// its own URL, resolved lazily since the server's address isn't known
// until after Start() returns.
func newTestSite() *httptest.Server {
	srv := httptest.NewUnstartedServer(nil)
	mux := http.NewServeMux()
	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		base := "http://" + r.Host
		fmt.Fprint(w, `<?xml version="1.0"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>`+base+`/</loc></url>
  <url><loc>`+base+`/about</loc></url>
</urlset>`)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		base := "http://" + r.Host
		fmt.Fprint(w, `<html><head><title>Home Page Title Long Enough</title>
<meta name="description" content="A sufficiently long meta description for the home page to pass length checks easily.">
<link rel="canonical" href="`+base+`/"></head>
<body>`+longParagraph()+`<a href="/about">About</a></body></html>`)
	})
	mux.HandleFunc("/about", func(w http.ResponseWriter, r *http.Request) {
		base := "http://" + r.Host
		fmt.Fprint(w, `<html><head><title>About Page Title Long Enough</title>
<meta name="description" content="A sufficiently long meta description for the about page to pass length checks easily.">
<link rel="canonical" href="`+base+`/about"></head>
<body>`+longParagraph()+`</body></html>`)
	})
	srv.Config.Handler = mux
	srv.Start()
	return srv
}

func longParagraph() string {
	s := ""
	for i := 0; i < 250; i++ {
		s += "word "
	}
	return s
}

func writeTestConfig(t *testing.T, dir, siteID, baseURL string) {
	t.Helper()
	content := fmt.Sprintf(`{
		"baseUrl": %q,
		"outputDir": %q,
		"batchSize": 10,
		"crawl": {"concurrency": 2, "rateDelayMs": 0, "timeoutMs": 5000, "maxRetries": 0, "retryBaseDelayMs": 10, "maxRedirects": 3, "userAgent": "test-bot"},
		"riskScanners": {"enabled": false}
	}`, baseURL, dir+"/runs")
	if err := os.WriteFile(dir+"/"+siteID+".audit.json", []byte(content), 0o644); err != nil {
		t.Fatalf("write test config: %v", err)
	}
}

func TestRun_FreshFullAuditProducesResultAndOutputs(t *testing.T) {
	srv := newTestSite()
	defer srv.Close()

	dir := t.TempDir()
	writeTestConfig(t, dir, "testsite", srv.URL)

	o := New(dir)
	ctx := context.Background()

	result, err := o.Run(ctx, RunOptions{SiteID: "testsite", Mode: "full", BatchSize: 10})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.RunID == "" {
		t.Error("expected a non-empty run ID")
	}
	if result.TotalURLs == 0 {
		t.Error("expected at least one crawled URL")
	}

	runDir := dir + "/runs/" + result.RunID
	for _, f := range []string{"state.json", "result.json", "issues.json", "url_inventory.json", "config_snapshot.json", "EXEC_SUMMARY.md", "FIX_PLAN.md"} {
		if _, err := os.Stat(runDir + "/" + f); err != nil {
			t.Errorf("expected output file %s to exist: %v", f, err)
		}
	}
	if _, err := os.Stat(dir + "/runs/CHANGELOG.md"); err != nil {
		t.Errorf("expected CHANGELOG.md to exist: %v", err)
	}
}

func TestRun_ResumeContinuesFromSavedState(t *testing.T) {
	srv := newTestSite()
	defer srv.Close()

	dir := t.TempDir()
	writeTestConfig(t, dir, "testsite", srv.URL)

	o := New(dir)
	ctx := context.Background()

	first, err := o.Run(ctx, RunOptions{SiteID: "testsite", Mode: "full", BatchSize: 10})
	if err != nil {
		t.Fatalf("first run: %v", err)
	}

	second, err := o.Run(ctx, RunOptions{SiteID: "testsite", Mode: "resume", ResumeRun: first.RunID})
	if err != nil {
		t.Fatalf("resume run: %v", err)
	}

	if second.RunID != first.RunID {
		t.Errorf("expected resume to reuse run ID %s, got %s", first.RunID, second.RunID)
	}
}

func TestRun_MissingConfigFailsFast(t *testing.T) {
	dir := t.TempDir()
	o := New(dir)
	_, err := o.Run(context.Background(), RunOptions{SiteID: "nonexistent-site", Mode: "full"})
	if err == nil {
		t.Error("expected an error for a site with no baseUrl configured")
	}
}
