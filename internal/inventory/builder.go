// Package inventory produces the ordered list of URLs an audit run will
// crawl, combining the site's sitemap, configured static routes, and
// (optionally) Arabic URL variants, deduplicated and filtered against
// exclude globs.
package inventory

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/coastvine/seoauditor/internal/config"
	"github.com/coastvine/seoauditor/internal/model"
	"github.com/coastvine/seoauditor/pkg/globmatch"
)

// BuildResult is the inventory builder's output.
type BuildResult struct {
	URLs       []string
	Inventory  []model.UrlInventoryEntry
	SitemapXML string
}

// Build produces the ordered, deduplicated URL inventory for one run.
func Build(ctx context.Context, cfg config.AuditConfig, baseURL string, logger *slog.Logger) BuildResult {
	if logger == nil {
		logger = slog.Default()
	}
	baseURL = strings.TrimRight(baseURL, "/")

	var result BuildResult
	seen := make(map[string]bool)

	addEntry := func(rawURL string, source model.InventorySource) {
		norm, ok := normalizeForDedup(rawURL)
		if !ok {
			return
		}
		if seen[norm] {
			return
		}
		if isExcluded(rawURL, cfg.ExcludePatterns) {
			return
		}
		seen[norm] = true
		result.URLs = append(result.URLs, rawURL)
		result.Inventory = append(result.Inventory, model.UrlInventoryEntry{URL: rawURL, Source: source})
	}

	timeout := time.Duration(cfg.Crawl.TimeoutMs) * time.Millisecond
	tree := fetchSitemapTree(ctx, baseURL+"/sitemap.xml", timeout, logger)
	result.SitemapXML = tree.raw
	for _, u := range tree.urls {
		addEntry(decodeSitemapEntities(u), model.SourceSitemap)
	}

	for _, route := range cfg.StaticRoutes {
		resolved := resolveAgainstBase(baseURL, route)
		if resolved != "" {
			addEntry(resolved, model.SourceStatic)
		}
	}

	if cfg.IncludeArVariants {
		// Snapshot before mutating: only URLs present before this step get
		// an Arabic variant, so variants of variants are never produced.
		base := append([]string(nil), result.URLs...)
		for _, u := range base {
			arURL, ok := withArPrefix(u)
			if ok {
				addEntry(arURL, model.SourceArVariant)
			}
		}
	}

	return result
}

// normalizeForDedup strips the URL fragment and trailing slash (empty path
// becomes "/"), lowercases the host, for deduplication purposes.
func normalizeForDedup(rawURL string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	path := u.Path
	if path == "" {
		path = "/"
	} else if path != "/" {
		path = strings.TrimRight(path, "/")
	}
	u.Path = path
	return u.String(), true
}

func resolveAgainstBase(baseURL, route string) string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}
	ref, err := url.Parse(route)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

// withArPrefix returns a parallel URL with "/ar" prepended to the path, for
// any URL whose path does not already start with "/ar".
func withArPrefix(rawURL string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	if u.Path == "/ar" || strings.HasPrefix(u.Path, "/ar/") {
		return "", false
	}
	arURL := *u
	if u.Path == "" || u.Path == "/" {
		arURL.Path = "/ar"
	} else {
		arURL.Path = "/ar" + u.Path
	}
	return arURL.String(), true
}

// isExcluded matches rawURL's path+query against every exclude glob.
func isExcluded(rawURL string, patterns []string) bool {
	if len(patterns) == 0 {
		return false
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	target := u.Path
	if u.RawQuery != "" {
		target += "?" + u.RawQuery
	}
	return globmatch.MatchAny(patterns, target)
}

var entityReplacer = strings.NewReplacer(
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&apos;", "'",
)

func decodeSitemapEntities(s string) string {
	return entityReplacer.Replace(s)
}
