// Package validators implements the eight SEO/compliance rule sets that
// turn crawl results and extracted signals into AuditIssues. Every
// validator is a pure function: given the same inputs it returns the same
// issues, and it never returns an error — a missing or malformed signal is
// itself the finding.
package validators

import (
	"net/url"
	"sort"
	"strings"

	"github.com/coastvine/seoauditor/internal/model"
)

func issue(sev model.Severity, cat model.Category, url, msg, evidence string) model.AuditIssue {
	return model.AuditIssue{Severity: sev, Category: cat, URL: url, Message: msg, Evidence: evidence}
}

func withFix(i model.AuditIssue, scope model.FixScope, target, notes string) model.AuditIssue {
	i.SuggestedFix = &model.SuggestedFix{Scope: scope, Target: target, Notes: notes}
	return i
}

// sortedURLs returns the keys of m sorted lexicographically, so validators
// that compare pages pairwise (duplicates, reciprocity) produce
// deterministic issue ordering.
func sortedURLs(m map[string]model.ExtractedSignals) []string {
	urls := make([]string, 0, len(m))
	for u := range m {
		urls = append(urls, u)
	}
	sort.Strings(urls)
	return urls
}

// isNoindex reports whether a robots-meta content string contains the
// noindex (or none) directive.
func isNoindex(robotsMeta string) bool {
	for _, d := range robotsDirectives(robotsMeta) {
		if d == "noindex" || d == "none" {
			return true
		}
	}
	return false
}

func robotsDirectives(robotsMeta string) []string {
	parts := strings.Split(robotsMeta, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		d := strings.ToLower(strings.TrimSpace(p))
		if d != "" {
			out = append(out, d)
		}
	}
	return out
}

// NormalizeURL lowercases the host and strips trailing slashes from the
// path (an empty path is left as-is; a path of only slashes becomes "/")
// for comparison purposes. It is idempotent:
// NormalizeURL(NormalizeURL(u)) == NormalizeURL(u).
func NormalizeURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	u.Host = strings.ToLower(u.Host)
	if u.Path != "/" {
		trimmed := strings.TrimRight(u.Path, "/")
		if trimmed == "" && u.Path != "" {
			trimmed = "/"
		}
		u.Path = trimmed
	}
	return u.String(), nil
}

func effectiveDir(s model.ExtractedSignals) string {
	if s.HTMLDir != "" {
		return s.HTMLDir
	}
	return s.BodyDir
}

func sampleURLs(urls []string, max int) []string {
	if len(urls) <= max {
		return urls
	}
	return urls[:max]
}
