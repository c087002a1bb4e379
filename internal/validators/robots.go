package validators

import (
	"fmt"

	"github.com/coastvine/seoauditor/internal/model"
)

// Robots checks one page's robots-meta directives for internal
// contradictions against sitemap inclusion, and surfaces informational
// findings for indexing-affecting directives (§4.5.8).
func Robots(pageURL string, s model.ExtractedSignals, inSitemap bool) []model.AuditIssue {
	directives := robotsDirectives(s.RobotsMeta)
	if len(directives) == 0 {
		return nil
	}

	var issues []model.AuditIssue
	has := func(d string) bool {
		for _, x := range directives {
			if x == d {
				return true
			}
		}
		return false
	}

	blocksIndexing := has("noindex") || has("none")
	if blocksIndexing {
		if inSitemap {
			issues = append(issues, issue(model.SeverityP1, model.CategoryRobots, pageURL,
				"page is marked noindex but is listed in the sitemap", ""))
		}
		issues = append(issues, issue(model.SeverityP2, model.CategoryRobots, pageURL,
			fmt.Sprintf("page is marked %s", directiveLabel(has)), ""))
	}

	if has("nofollow") || has("none") {
		issues = append(issues, issue(model.SeverityP2, model.CategoryRobots, pageURL, "page is marked nofollow", ""))
	}
	if has("noarchive") {
		issues = append(issues, issue(model.SeverityP2, model.CategoryRobots, pageURL, "page is marked noarchive", ""))
	}
	if has("nosnippet") {
		issues = append(issues, issue(model.SeverityP1, model.CategoryRobots, pageURL, "page is marked nosnippet", ""))
	}

	return issues
}

func directiveLabel(has func(string) bool) string {
	if has("none") {
		return "none"
	}
	return "noindex"
}
