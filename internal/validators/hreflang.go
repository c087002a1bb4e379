package validators

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/coastvine/seoauditor/internal/config"
	"github.com/coastvine/seoauditor/internal/model"
)

var bcp47Re = regexp.MustCompile(`^[a-z]{2}(-[A-Z]{2})?$`)

func isValidHreflangValue(lang string) bool {
	return lang == "x-default" || bcp47Re.MatchString(lang)
}

// Hreflang validates the hreflang annotation graph across the whole site:
// tag format, presence of every expected language, self-reference,
// x-default, duplicates, and pairwise reciprocity (§4.5.3). Pages must be
// processed in a stable order so duplicate/reciprocity findings are
// deterministic.
func Hreflang(signals map[string]model.ExtractedSignals, cfg config.ValidatorConfig) []model.AuditIssue {
	var issues []model.AuditIssue

	for _, pageURL := range sortedURLs(signals) {
		s := signals[pageURL]
		if isNoindex(s.RobotsMeta) {
			continue
		}

		if len(cfg.ExpectedHreflangLangs) > 0 && len(s.Hreflangs) == 0 {
			issues = append(issues, withFix(
				issue(model.SeverityP1, model.CategoryHreflang, pageURL, "missing hreflang annotations", ""),
				model.FixScopePageLevel, pageURL, "Add hreflang alternates for every supported locale.",
			))
			continue
		}

		seenLangs := map[string]bool{}
		selfReferenced := false
		hasXDefault := false

		for _, alt := range s.Hreflangs {
			if !isValidHreflangValue(alt.Lang) {
				issues = append(issues, issue(model.SeverityP1, model.CategoryHreflang, pageURL,
					fmt.Sprintf("invalid hreflang value %q", alt.Lang), alt.Href))
			}
			if seenLangs[alt.Lang] {
				issues = append(issues, issue(model.SeverityP1, model.CategoryHreflang, pageURL,
					fmt.Sprintf("duplicate hreflang value %q", alt.Lang), alt.Href))
			}
			seenLangs[alt.Lang] = true

			if alt.Lang == "x-default" {
				hasXDefault = true
			}
			if normTarget, err := NormalizeURL(alt.Href); err == nil {
				if normPage, err := NormalizeURL(pageURL); err == nil && normTarget == normPage {
					selfReferenced = true
				}
			}
		}

		for _, expected := range cfg.ExpectedHreflangLangs {
			if !seenLangs[expected] {
				issues = append(issues, issue(model.SeverityP1, model.CategoryHreflang, pageURL,
					fmt.Sprintf("missing expected hreflang language %q", expected), ""))
			}
		}

		if cfg.ExpectXDefault && !hasXDefault {
			issues = append(issues, issue(model.SeverityP2, model.CategoryHreflang, pageURL,
				"missing x-default hreflang alternate", ""))
		}

		if len(s.Hreflangs) > 0 && !selfReferenced {
			issues = append(issues, issue(model.SeverityP1, model.CategoryHreflang, pageURL,
				"hreflang set does not include a self-referencing entry", ""))
		}
	}

	issues = append(issues, reciprocityIssues(signals)...)
	return issues
}

// reciprocityIssues checks that for every A -> B hreflang alternate, B
// carries a matching alternate back to A.
func reciprocityIssues(signals map[string]model.ExtractedSignals) []model.AuditIssue {
	var issues []model.AuditIssue

	for _, pageURL := range sortedURLs(signals) {
		s := signals[pageURL]
		normPage, err := NormalizeURL(pageURL)
		if err != nil {
			continue
		}
		for _, alt := range s.Hreflangs {
			if alt.Lang == "x-default" {
				continue
			}
			normTarget, err := NormalizeURL(alt.Href)
			if err != nil {
				continue
			}
			target, ok := findSignalsByNormalizedURL(signals, normTarget)
			if !ok {
				continue
			}
			if !hasReciprocalAlternate(target, normPage) {
				issues = append(issues, issue(model.SeverityP1, model.CategoryHreflang, pageURL,
					fmt.Sprintf("%s does not reciprocate hreflang back to this page", alt.Href), ""))
			}
		}
	}

	sort.SliceStable(issues, func(i, j int) bool { return issues[i].URL < issues[j].URL })
	return issues
}

func findSignalsByNormalizedURL(signals map[string]model.ExtractedSignals, normURL string) (model.ExtractedSignals, bool) {
	for u, s := range signals {
		if n, err := NormalizeURL(u); err == nil && n == normURL {
			return s, true
		}
	}
	return model.ExtractedSignals{}, false
}

func hasReciprocalAlternate(target model.ExtractedSignals, normSource string) bool {
	for _, alt := range target.Hreflangs {
		if n, err := NormalizeURL(alt.Href); err == nil && n == normSource {
			return true
		}
	}
	return false
}
