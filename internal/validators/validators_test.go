package validators

import (
	"testing"

	"github.com/coastvine/seoauditor/internal/config"
	"github.com/coastvine/seoauditor/internal/model"
)

func hasCategory(issues []model.AuditIssue, cat model.Category) bool {
	for _, i := range issues {
		if i.Category == cat {
			return true
		}
	}
	return false
}

func countSeverity(issues []model.AuditIssue, sev model.Severity) int {
	n := 0
	for _, i := range issues {
		if i.Severity == sev {
			n++
		}
	}
	return n
}

func TestHTTP_ConnectionFailureIsP0AndShortCircuits(t *testing.T) {
	r := model.CrawlResult{RequestedURL: "https://ex.com/", Error: "dial tcp: timeout"}
	issues := HTTP("https://ex.com/", r, config.AuditConfig{})
	if len(issues) != 1 || issues[0].Severity != model.SeverityP0 {
		t.Fatalf("expected exactly one P0 issue, got %+v", issues)
	}
}

func TestHTTP_RedirectChainOverMax(t *testing.T) {
	cfg := config.AuditConfig{Crawl: config.CrawlSettings{MaxRedirects: 1}, Validators: config.ValidatorConfig{AllowedStatuses: []int{200}}}
	r := model.CrawlResult{
		StatusCode: 200,
		Redirects: []model.RedirectHop{
			{URL: "https://ex.com/a", Status: 301},
			{URL: "https://ex.com/b", Status: 301},
		},
	}
	issues := HTTP("https://ex.com/a", r, cfg)
	found := false
	for _, i := range issues {
		if i.Severity == model.SeverityP1 {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a P1 issue for exceeding max redirects, got %+v", issues)
	}
}

func TestCanonical_MissingIsSystemicP1(t *testing.T) {
	issues := Canonical("https://ex.com/", model.ExtractedSignals{}, config.ValidatorConfig{})
	if len(issues) != 1 || issues[0].Severity != model.SeverityP1 || issues[0].SuggestedFix.Scope != model.FixScopeSystemic {
		t.Fatalf("expected one systemic P1 issue, got %+v", issues)
	}
}

func TestCanonical_NoindexedPageSkipped(t *testing.T) {
	issues := Canonical("https://ex.com/", model.ExtractedSignals{RobotsMeta: "noindex"}, config.ValidatorConfig{})
	if len(issues) != 0 {
		t.Fatalf("expected noindexed page to be skipped, got %+v", issues)
	}
}

func TestHreflang_ReciprocitySymmetry(t *testing.T) {
	signals := map[string]model.ExtractedSignals{
		"https://ex.com/en": {
			Hreflangs: []model.HreflangAlternate{{Lang: "ar", Href: "https://ex.com/ar"}},
		},
		"https://ex.com/ar": {
			// Missing reciprocal link back to /en.
		},
	}
	issues := Hreflang(signals, config.ValidatorConfig{})
	if !hasCategory(issues, model.CategoryHreflang) {
		t.Fatalf("expected a hreflang reciprocity issue, got %+v", issues)
	}
}

func TestHreflang_MutualReciprocityHasNoIssue(t *testing.T) {
	signals := map[string]model.ExtractedSignals{
		"https://ex.com/en": {
			Hreflangs: []model.HreflangAlternate{
				{Lang: "en", Href: "https://ex.com/en"},
				{Lang: "ar", Href: "https://ex.com/ar"},
			},
		},
		"https://ex.com/ar": {
			Hreflangs: []model.HreflangAlternate{
				{Lang: "en", Href: "https://ex.com/en"},
				{Lang: "ar", Href: "https://ex.com/ar"},
			},
		},
	}
	issues := Hreflang(signals, config.ValidatorConfig{})
	if len(issues) != 0 {
		t.Fatalf("expected no issues for fully reciprocal hreflang graph, got %+v", issues)
	}
}

func TestSitemap_EmptyIsP0(t *testing.T) {
	issues := Sitemap("", nil, config.ValidatorConfig{})
	if len(issues) != 1 || issues[0].Severity != model.SeverityP0 {
		t.Fatalf("expected one P0 issue for empty sitemap, got %+v", issues)
	}
}

func TestSitemap_DuplicateEntries(t *testing.T) {
	xml := `<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
<url><loc>https://ex.com/a</loc></url>
<url><loc>https://ex.com/a/</loc></url>
</urlset>`
	issues := Sitemap(xml, map[string]model.CrawlResult{}, config.ValidatorConfig{})
	found := false
	for _, i := range issues {
		if i.Severity == model.SeverityP2 {
			found = true
		}
	}
	if !found {
		t.Errorf("expected duplicate-entry P2 issue, got %+v", issues)
	}
}

func TestSchema_MissingContextAndType(t *testing.T) {
	signals := map[string]model.ExtractedSignals{
		"https://ex.com/": {JSONLD: []model.JSONLDBlock{{Data: map[string]any{}}}},
	}
	issues := Schema(signals, config.ValidatorConfig{})
	if countSeverity(issues, model.SeverityP1) < 2 {
		t.Fatalf("expected missing @context and missing @type to each raise P1, got %+v", issues)
	}
}

func TestLinks_BrokenInternalLinkIsP1(t *testing.T) {
	signals := map[string]model.ExtractedSignals{
		"https://ex.com/": {InternalLinks: []model.Link{{Href: "https://ex.com/missing"}}},
	}
	crawlResults := map[string]model.CrawlResult{
		"https://ex.com/missing": {StatusCode: 404},
	}
	issues := Links(signals, crawlResults)
	found := false
	for _, i := range issues {
		if i.Severity == model.SeverityP1 && i.Category == model.CategoryLinks {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected P1 for broken internal link, got %+v", issues)
	}
}

func TestLinks_OrphanPageDetected(t *testing.T) {
	signals := map[string]model.ExtractedSignals{
		"https://ex.com/":       {InternalLinks: nil},
		"https://ex.com/orphan": {},
	}
	issues := Links(signals, map[string]model.CrawlResult{})
	found := false
	for _, i := range issues {
		if i.URL == "https://ex.com/orphan" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected orphan page to be flagged, got %+v", issues)
	}
}

func TestMetadata_DuplicateTitleReportedOnce(t *testing.T) {
	signals := map[string]model.ExtractedSignals{
		"https://ex.com/b": {Title: "Same Title Used Twice", MetaDescription: "x"},
		"https://ex.com/a": {Title: "Same Title Used Twice", MetaDescription: "x"},
	}
	cfg := config.ValidatorConfig{TitleLength: config.LengthBounds{Min: 1, Max: 1000}, DescriptionLength: config.LengthBounds{Min: 1, Max: 1000}}
	issues := Metadata(signals, cfg)
	count := 0
	for _, i := range issues {
		if i.Message == "duplicate title shared by 2 pages" {
			count++
			if i.URL != "https://ex.com/a" {
				t.Errorf("expected duplicate title reported on lexicographically smaller URL, got %s", i.URL)
			}
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly one duplicate-title issue, got %d", count)
	}
}

func TestMetadata_ArabicLangRequiresRTL(t *testing.T) {
	signals := map[string]model.ExtractedSignals{
		"https://ex.com/ar": {Title: "Title long enough for bounds", MetaDescription: "A description that is long enough to satisfy the configured bounds here.", HTMLLang: "ar", HTMLDir: "ltr"},
	}
	cfg := config.ValidatorConfig{TitleLength: config.LengthBounds{Min: 1, Max: 1000}, DescriptionLength: config.LengthBounds{Min: 1, Max: 1000}}
	issues := Metadata(signals, cfg)
	found := false
	for _, i := range issues {
		if i.Severity == model.SeverityP1 && i.Category == model.CategoryMetadata {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected P1 for Arabic lang without rtl dir, got %+v", issues)
	}
}

func TestRobots_NoindexInSitemapContradicts(t *testing.T) {
	issues := Robots("https://ex.com/", model.ExtractedSignals{RobotsMeta: "noindex"}, true)
	found := false
	for _, i := range issues {
		if i.Severity == model.SeverityP1 {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected P1 contradiction issue, got %+v", issues)
	}
}

func TestRobots_NoDirectivesYieldsNoIssues(t *testing.T) {
	issues := Robots("https://ex.com/", model.ExtractedSignals{}, false)
	if len(issues) != 0 {
		t.Fatalf("expected no issues when robots meta is absent, got %+v", issues)
	}
}
