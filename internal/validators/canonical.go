package validators

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/coastvine/seoauditor/internal/config"
	"github.com/coastvine/seoauditor/internal/model"
)

// Canonical validates one page's <link rel="canonical"> tag: presence,
// well-formedness, scheme, self-reference, host, and allowed query
// parameters (§4.5.2). Noindexed pages are skipped entirely.
func Canonical(pageURL string, s model.ExtractedSignals, cfg config.ValidatorConfig) []model.AuditIssue {
	if isNoindex(s.RobotsMeta) {
		return nil
	}

	var issues []model.AuditIssue

	if s.Canonical == "" {
		return []model.AuditIssue{withFix(
			issue(model.SeverityP1, model.CategoryCanonical, pageURL, "missing canonical tag", ""),
			model.FixScopeSystemic, "missing-canonical", "Every indexable page needs a self-referencing canonical tag.",
		)}
	}

	canon, err := url.Parse(s.Canonical)
	if err != nil {
		return []model.AuditIssue{
			issue(model.SeverityP0, model.CategoryCanonical, pageURL, "canonical tag is not a parseable URL", s.Canonical),
		}
	}

	if canon.Scheme != "https" {
		issues = append(issues, issue(model.SeverityP1, model.CategoryCanonical, pageURL,
			"canonical tag does not use https", s.Canonical))
	}

	page, pageErr := url.Parse(pageURL)
	if pageErr == nil && canon.IsAbs() && !strings.EqualFold(canon.Hostname(), page.Hostname()) {
		issues = append(issues, issue(model.SeverityP1, model.CategoryCanonical, pageURL,
			"canonical tag points to a different host", s.Canonical))
	}

	normCanon, cErr := NormalizeURL(s.Canonical)
	normPage, pErr := NormalizeURL(pageURL)
	if cErr == nil && pErr == nil && normCanon != normPage {
		issues = append(issues, issue(model.SeverityP2, model.CategoryCanonical, pageURL,
			"canonical tag is not self-referencing", fmt.Sprintf("canonical=%s page=%s", normCanon, normPage)))
	}

	if len(cfg.AllowedCanonicalParams) > 0 || canon.RawQuery != "" {
		disallowed := disallowedParams(canon.Query(), cfg.AllowedCanonicalParams)
		if len(disallowed) > 0 {
			issues = append(issues, issue(model.SeverityP1, model.CategoryCanonical, pageURL,
				"canonical tag carries disallowed query parameters", strings.Join(disallowed, ", ")))
		}
	}

	return issues
}

func disallowedParams(q url.Values, allowed []string) []string {
	allowedSet := make(map[string]bool, len(allowed))
	for _, a := range allowed {
		allowedSet[a] = true
	}
	var out []string
	for key := range q {
		if !allowedSet[key] {
			out = append(out, key)
		}
	}
	sort.Strings(out)
	return out
}
