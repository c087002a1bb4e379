package inventory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"time"

	sitemap "github.com/oxffaa/gopher-parse-sitemap"
)

// sitemapIndexTag matches a <sitemap ...> or <sitemap> child element
// anywhere in the document, but not the <sitemapindex> wrapper tag itself.
var sitemapIndexTag = regexp.MustCompile(`(?i)<sitemap[\s>/]`)

// fetchRaw performs a bounded GET, used for both the sitemap root and any
// nested sitemap documents it references.
func fetchRaw(ctx context.Context, url string, timeout time.Duration) ([]byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build sitemap request: %w", err)
	}
	req.Header.Set("Accept", "text/xml,application/xml,*/*;q=0.8")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch sitemap: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("sitemap fetch returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read sitemap body: %w", err)
	}
	return body, nil
}

// sitemapResult is one sitemap document's URLs plus its raw XML, combined
// recursively across a sitemap index's children.
type sitemapResult struct {
	urls []string
	raw  string
}

// fetchSitemapTree fetches sitemapURL and, if it is a sitemap index,
// recurses into every child <sitemap><loc> document, concatenating both the
// URL lists and the raw XML payloads (newline-separated) so sitemap
// validation can see the full text.
func fetchSitemapTree(ctx context.Context, sitemapURL string, timeout time.Duration, logger *slog.Logger) sitemapResult {
	body, err := fetchRaw(ctx, sitemapURL, timeout)
	if err != nil {
		logger.Warn("sitemap fetch failed, treating as empty", "url", sitemapURL, "err", err)
		return sitemapResult{}
	}

	if sitemapIndexTag.Match(body) {
		var childURLs []string
		err := sitemap.ParseIndex(bytes.NewReader(body), func(e sitemap.IndexEntry) error {
			childURLs = append(childURLs, e.GetLocation())
			return nil
		})
		if err != nil {
			logger.Warn("failed to parse sitemap index", "url", sitemapURL, "err", err)
			return sitemapResult{raw: string(body)}
		}

		result := sitemapResult{raw: string(body)}
		for _, childURL := range childURLs {
			child := fetchSitemapTree(ctx, childURL, timeout, logger)
			result.urls = append(result.urls, child.urls...)
			if child.raw != "" {
				result.raw += "\n" + child.raw
			}
		}
		return result
	}

	var urls []string
	err = sitemap.Parse(bytes.NewReader(body), func(e sitemap.Entry) error {
		urls = append(urls, e.GetLocation())
		return nil
	})
	if err != nil {
		logger.Warn("failed to parse sitemap urlset", "url", sitemapURL, "err", err)
	}
	return sitemapResult{urls: urls, raw: string(body)}
}
