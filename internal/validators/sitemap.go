package validators

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/coastvine/seoauditor/internal/config"
	"github.com/coastvine/seoauditor/internal/model"
)

var (
	urlsetOrIndexRe = regexp.MustCompile(`(?is)<\s*(urlset|sitemapindex)\b`)
	urlsetXmlnsRe   = regexp.MustCompile(`(?is)<urlset\b[^>]*xmlns\s*=\s*["']http://www\.sitemaps\.org/schemas/sitemap/0\.9["']`)
	locRe           = regexp.MustCompile(`(?is)<loc>(.*?)</loc>`)
)

const maxIndividualFailures = 20

// Sitemap validates the raw sitemap XML payload — schema presence, entry
// count, duplicates — and cross-references each entry against its crawl
// result and its x-robots-tag response header (§4.5.4).
func Sitemap(sitemapXML string, crawlResults map[string]model.CrawlResult, cfg config.ValidatorConfig) []model.AuditIssue {
	trimmed := strings.TrimSpace(sitemapXML)
	if trimmed == "" {
		return []model.AuditIssue{
			issue(model.SeverityP0, model.CategorySitemap, "", "sitemap is empty or unreachable", ""),
		}
	}
	if !urlsetOrIndexRe.MatchString(trimmed) {
		return []model.AuditIssue{
			issue(model.SeverityP0, model.CategorySitemap, "", "sitemap XML is missing a <urlset> or <sitemapindex> root element", ""),
		}
	}

	var issues []model.AuditIssue

	if strings.Contains(strings.ToLower(trimmed), "<urlset") && !urlsetXmlnsRe.MatchString(trimmed) {
		issues = append(issues, issue(model.SeverityP2, model.CategorySitemap, "",
			"<urlset> is missing the sitemaps.org xmlns declaration", ""))
	}

	locs := extractLocs(trimmed)
	if len(locs) == 0 {
		issues = append(issues, issue(model.SeverityP0, model.CategorySitemap, "", "sitemap contains zero <loc> entries", ""))
		return issues
	}

	if cfg.MaxSitemapUrls > 0 && len(locs) > cfg.MaxSitemapUrls {
		issues = append(issues, issue(model.SeverityP1, model.CategorySitemap, "",
			fmt.Sprintf("sitemap contains %d URLs, exceeding the configured maximum of %d", len(locs), cfg.MaxSitemapUrls), ""))
	}

	issues = append(issues, duplicateLocIssues(locs)...)
	issues = append(issues, crossReferenceIssues(locs, crawlResults)...)

	return issues
}

func extractLocs(xml string) []string {
	var locs []string
	for _, m := range locRe.FindAllStringSubmatch(xml, -1) {
		loc := strings.TrimSpace(m[1])
		if loc != "" {
			locs = append(locs, loc)
		}
	}
	return locs
}

func duplicateLocIssues(locs []string) []model.AuditIssue {
	seen := map[string]int{}
	order := []string{}
	for _, loc := range locs {
		norm, err := NormalizeURL(loc)
		if err != nil {
			continue
		}
		if seen[norm] == 0 {
			order = append(order, norm)
		}
		seen[norm]++
	}
	var dupes []string
	for _, norm := range order {
		if seen[norm] > 1 {
			dupes = append(dupes, norm)
		}
	}
	if len(dupes) == 0 {
		return nil
	}
	sort.Strings(dupes)
	return []model.AuditIssue{
		issue(model.SeverityP2, model.CategorySitemap, "", "sitemap contains duplicate URL entries",
			strings.Join(sampleURLs(dupes, 10), ", ")),
	}
}

func crossReferenceIssues(locs []string, crawlResults map[string]model.CrawlResult) []model.AuditIssue {
	var issues []model.AuditIssue
	var failing []string

	for _, loc := range locs {
		r, ok := lookupCrawlResult(crawlResults, loc)
		if !ok {
			continue
		}
		if !r.Success() || r.StatusCode >= 300 {
			failing = append(failing, loc)
			continue
		}
		if xrt, ok := r.Headers["x-robots-tag"]; ok && isNoindex(xrt) {
			issues = append(issues, issue(model.SeverityP1, model.CategorySitemap, loc,
				"sitemap entry is marked noindex via x-robots-tag", ""))
		}
	}

	for i, loc := range failing {
		if i >= maxIndividualFailures {
			break
		}
		r, _ := lookupCrawlResult(crawlResults, loc)
		issues = append(issues, issue(model.SeverityP1, model.CategorySitemap, loc,
			fmt.Sprintf("sitemap entry does not resolve to a clean 200 (status=%d)", r.StatusCode), ""))
	}
	if len(failing) > maxIndividualFailures {
		issues = append(issues, issue(model.SeverityP1, model.CategorySitemap, "",
			fmt.Sprintf("%d additional sitemap entries also fail to resolve cleanly", len(failing)-maxIndividualFailures), ""))
	}

	return issues
}

func lookupCrawlResult(crawlResults map[string]model.CrawlResult, loc string) (model.CrawlResult, bool) {
	if r, ok := crawlResults[loc]; ok {
		return r, true
	}
	norm, err := NormalizeURL(loc)
	if err != nil {
		return model.CrawlResult{}, false
	}
	for u, r := range crawlResults {
		if n, err := NormalizeURL(u); err == nil && n == norm {
			return r, true
		}
	}
	return model.CrawlResult{}, false
}
