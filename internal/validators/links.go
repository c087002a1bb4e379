package validators

import (
	"fmt"
	"net/url"

	"github.com/coastvine/seoauditor/internal/model"
)

// Links validates internal link health (every internal href must resolve
// cleanly) and flags orphan pages that receive no internal inbound links
// (§4.5.6).
func Links(signals map[string]model.ExtractedSignals, crawlResults map[string]model.CrawlResult) []model.AuditIssue {
	var issues []model.AuditIssue
	inbound := map[string]int{}
	seenPairs := map[string]bool{}

	for _, pageURL := range sortedURLs(signals) {
		s := signals[pageURL]
		for _, link := range s.InternalLinks {
			normTarget, err := NormalizeURL(link.Href)
			if err != nil {
				continue
			}
			inbound[normTarget]++

			pairKey := pageURL + "|" + normTarget
			if seenPairs[pairKey] {
				continue
			}
			seenPairs[pairKey] = true

			target, ok := lookupCrawlResult(crawlResults, link.Href)
			if !ok {
				continue
			}
			switch {
			case !target.Success():
				issues = append(issues, issue(model.SeverityP1, model.CategoryLinks, pageURL,
					fmt.Sprintf("internal link to %s failed to connect", link.Href), ""))
			case target.StatusCode == 404:
				issues = append(issues, issue(model.SeverityP1, model.CategoryLinks, pageURL,
					fmt.Sprintf("internal link to %s returns 404", link.Href), ""))
			case target.StatusCode >= 400:
				issues = append(issues, issue(model.SeverityP2, model.CategoryLinks, pageURL,
					fmt.Sprintf("internal link to %s returns status %d", link.Href, target.StatusCode), ""))
			case target.StatusCode != 200:
				issues = append(issues, issue(model.SeverityP2, model.CategoryLinks, pageURL,
					fmt.Sprintf("internal link to %s returns status %d", link.Href, target.StatusCode), ""))
			}
		}
	}

	for _, pageURL := range sortedURLs(signals) {
		norm, err := NormalizeURL(pageURL)
		if err != nil || isExemptFromOrphanCheck(norm) {
			continue
		}
		if inbound[norm] == 0 {
			issues = append(issues, issue(model.SeverityP2, model.CategoryLinks, pageURL,
				"page receives no internal inbound links (orphan)", ""))
		}
	}

	return issues
}

func isExemptFromOrphanCheck(normURL string) bool {
	u, err := url.Parse(normURL)
	if err != nil {
		return false
	}
	switch u.Path {
	case "", "/", "/ar":
		return true
	}
	return false
}
