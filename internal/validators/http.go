package validators

import (
	"fmt"

	"github.com/coastvine/seoauditor/internal/config"
	"github.com/coastvine/seoauditor/internal/model"
)

// HTTP checks one page's transport-level health: connectivity, status code,
// redirect chain length, and response latency (§4.5.1).
func HTTP(pageURL string, r model.CrawlResult, cfg config.AuditConfig) []model.AuditIssue {
	var issues []model.AuditIssue

	if !r.Success() {
		issues = append(issues, withFix(
			issue(model.SeverityP0, model.CategoryHTTP, pageURL, "connection failed: "+r.Error, ""),
			model.FixScopePageLevel, pageURL, "Investigate DNS/TLS/connectivity for this host.",
		))
		return issues
	}

	flagged := false
	switch {
	case r.StatusCode >= 500:
		issues = append(issues, issue(model.SeverityP0, model.CategoryHTTP, pageURL,
			fmt.Sprintf("server error: status %d", r.StatusCode), ""))
		flagged = true
	case r.StatusCode == 404:
		issues = append(issues, issue(model.SeverityP1, model.CategoryHTTP, pageURL,
			"page not found (404)", ""))
		flagged = true
	case r.StatusCode >= 400:
		issues = append(issues, issue(model.SeverityP2, model.CategoryHTTP, pageURL,
			fmt.Sprintf("client error: status %d", r.StatusCode), ""))
		flagged = true
	}

	if !flagged && !containsInt(cfg.Validators.AllowedStatuses, r.StatusCode) {
		issues = append(issues, issue(model.SeverityP2, model.CategoryHTTP, pageURL,
			fmt.Sprintf("status %d is not in the allowed list", r.StatusCode), ""))
	}

	if n := len(r.Redirects); n > 0 {
		if n > cfg.Crawl.MaxRedirects {
			issues = append(issues, issue(model.SeverityP1, model.CategoryHTTP, pageURL,
				fmt.Sprintf("redirect chain of %d hops exceeds the configured maximum of %d", n, cfg.Crawl.MaxRedirects),
				redirectChainEvidence(r)))
		} else {
			issues = append(issues, issue(model.SeverityP2, model.CategoryHTTP, pageURL,
				fmt.Sprintf("%d redirect hop(s) before reaching final destination", n),
				redirectChainEvidence(r)))
		}
	}

	switch {
	case r.DurationMs > 5000:
		issues = append(issues, issue(model.SeverityP1, model.CategoryHTTP, pageURL,
			fmt.Sprintf("response took %dms, exceeding 5000ms", r.DurationMs), ""))
	case r.DurationMs > 3000:
		issues = append(issues, issue(model.SeverityP2, model.CategoryHTTP, pageURL,
			fmt.Sprintf("response took %dms, exceeding 3000ms", r.DurationMs), ""))
	}

	return issues
}

func redirectChainEvidence(r model.CrawlResult) string {
	out := ""
	for i, hop := range r.Redirects {
		if i > 0 {
			out += " -> "
		}
		out += fmt.Sprintf("%s (%d)", hop.URL, hop.Status)
	}
	return out
}

func containsInt(list []int, v int) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
