package validators

import (
	"sort"

	"github.com/coastvine/seoauditor/internal/config"
	"github.com/coastvine/seoauditor/internal/model"
)

// Inputs bundles everything the eight validators need. CrawlResults and
// Signals are keyed by the URL that was requested.
type Inputs struct {
	Config       config.AuditConfig
	CrawlResults map[string]model.CrawlResult
	Signals      map[string]model.ExtractedSignals
	SitemapXML   string
	SitemapURLs  map[string]bool
}

// RunAll runs every validator over in and returns the concatenated issue
// list. Order is: http, canonical, hreflang, sitemap, schema, links,
// metadata, robots — matching the component order in §4.5.
func RunAll(in Inputs) []model.AuditIssue {
	var issues []model.AuditIssue

	for _, pageURL := range sortedCrawlURLs(in.CrawlResults) {
		issues = append(issues, HTTP(pageURL, in.CrawlResults[pageURL], in.Config)...)
	}

	for _, pageURL := range sortedURLs(in.Signals) {
		issues = append(issues, Canonical(pageURL, in.Signals[pageURL], in.Config.Validators)...)
	}

	issues = append(issues, Hreflang(in.Signals, in.Config.Validators)...)
	issues = append(issues, Sitemap(in.SitemapXML, in.CrawlResults, in.Config.Validators)...)
	issues = append(issues, Schema(in.Signals, in.Config.Validators)...)
	issues = append(issues, Links(in.Signals, in.CrawlResults)...)
	issues = append(issues, Metadata(in.Signals, in.Config.Validators)...)

	for _, pageURL := range sortedURLs(in.Signals) {
		issues = append(issues, Robots(pageURL, in.Signals[pageURL], in.SitemapURLs[pageURL])...)
	}

	return issues
}

func sortedCrawlURLs(m map[string]model.CrawlResult) []string {
	urls := make([]string, 0, len(m))
	for u := range m {
		urls = append(urls, u)
	}
	sort.Strings(urls)
	return urls
}
