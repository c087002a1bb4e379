package validators

import (
	"fmt"
	"sort"
	"strings"

	"github.com/coastvine/seoauditor/internal/config"
	"github.com/coastvine/seoauditor/internal/model"
)

// Metadata validates title/description length and uniqueness, and
// lang/dir consistency (§4.5.7). Noindexed pages are skipped.
func Metadata(signals map[string]model.ExtractedSignals, cfg config.ValidatorConfig) []model.AuditIssue {
	var issues []model.AuditIssue
	titleGroups := map[string][]string{}
	descGroups := map[string][]string{}

	for _, pageURL := range sortedURLs(signals) {
		s := signals[pageURL]
		if isNoindex(s.RobotsMeta) {
			continue
		}

		issues = append(issues, perPageMetadataIssues(pageURL, s, cfg)...)

		if s.Title != "" {
			titleGroups[s.Title] = append(titleGroups[s.Title], pageURL)
		}
		if s.MetaDescription != "" {
			descGroups[s.MetaDescription] = append(descGroups[s.MetaDescription], pageURL)
		}
	}

	issues = append(issues, duplicateGroupIssues(titleGroups, model.SeverityP1, "title")...)
	issues = append(issues, duplicateGroupIssues(descGroups, model.SeverityP2, "meta description")...)

	return issues
}

func perPageMetadataIssues(pageURL string, s model.ExtractedSignals, cfg config.ValidatorConfig) []model.AuditIssue {
	var issues []model.AuditIssue

	if s.Title == "" {
		issues = append(issues, issue(model.SeverityP0, model.CategoryMetadata, pageURL, "missing title tag", ""))
	} else {
		n := len([]rune(s.Title))
		if n < cfg.TitleLength.Min {
			issues = append(issues, issue(model.SeverityP1, model.CategoryMetadata, pageURL,
				fmt.Sprintf("title is %d characters, below the minimum of %d", n, cfg.TitleLength.Min), s.Title))
		} else if n > cfg.TitleLength.Max {
			issues = append(issues, issue(model.SeverityP2, model.CategoryMetadata, pageURL,
				fmt.Sprintf("title is %d characters, above the maximum of %d", n, cfg.TitleLength.Max), s.Title))
		}
	}

	if s.MetaDescription == "" {
		issues = append(issues, issue(model.SeverityP1, model.CategoryMetadata, pageURL, "missing meta description", ""))
	} else {
		n := len([]rune(s.MetaDescription))
		if n < cfg.DescriptionLength.Min || n > cfg.DescriptionLength.Max {
			issues = append(issues, issue(model.SeverityP2, model.CategoryMetadata, pageURL,
				fmt.Sprintf("meta description is %d characters, outside the [%d, %d] range", n, cfg.DescriptionLength.Min, cfg.DescriptionLength.Max), ""))
		}
	}

	if s.HTMLLang == "" {
		issues = append(issues, issue(model.SeverityP2, model.CategoryMetadata, pageURL, "missing html lang attribute", ""))
	} else if strings.HasPrefix(strings.ToLower(s.HTMLLang), "ar") {
		if dir := strings.ToLower(effectiveDir(s)); dir != "rtl" {
			issues = append(issues, issue(model.SeverityP1, model.CategoryMetadata, pageURL,
				"lang is Arabic but dir is not rtl", fmt.Sprintf("lang=%s dir=%s", s.HTMLLang, dir)))
		}
	}

	return issues
}

func duplicateGroupIssues(groups map[string][]string, sev model.Severity, field string) []model.AuditIssue {
	var issues []model.AuditIssue
	for value, urls := range groups {
		if len(urls) < 2 {
			continue
		}
		reportURL := minString(urls)
		issues = append(issues, issue(sev, model.CategoryMetadata, reportURL,
			fmt.Sprintf("duplicate %s shared by %d pages", field, len(urls)), value))
	}
	sort.Slice(issues, func(i, j int) bool { return issues[i].URL < issues[j].URL })
	return issues
}

func minString(ss []string) string {
	m := ss[0]
	for _, s := range ss[1:] {
		if s < m {
			m = s
		}
	}
	return m
}
