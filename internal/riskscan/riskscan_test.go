package riskscan

import (
	"testing"

	"github.com/coastvine/seoauditor/internal/config"
	"github.com/coastvine/seoauditor/internal/model"
)

func defaultCfg() config.RiskScannerConfig {
	return config.RiskScannerConfig{
		Enabled:                      true,
		DuplicateSimilarityThreshold: 0.8,
		ScaledContentMinClusterSize:  3,
		ThinContentThreshold:         200,
		EntityCoverageMinScore:       0.3,
		OutboundDominanceThreshold:   0.7,
		TopicPivotScoreThreshold:     0.7,
	}
}

func pageWithTitle(title string, wordCount int) model.ExtractedSignals {
	return model.ExtractedSignals{
		Title:           title,
		MetaDescription: "A generic travel description about hotels and experiences in the region.",
		WordCount:       wordCount,
	}
}

func TestScaledContent_NearDuplicateClusterDetected(t *testing.T) {
	base := "Book your luxury beachfront hotel room today with us"
	// The differing token is the last heading, so it ends the combined
	// title+description+headings text and changes only the final shingle.
	withTrailing := func(token string) model.ExtractedSignals {
		s := pageWithTitle(base, 300)
		s.Headings = []model.Heading{{Level: 2, Text: token}}
		return s
	}
	signals := map[string]model.ExtractedSignals{
		"https://ex.com/a": withTrailing("one"),
		"https://ex.com/b": withTrailing("two"),
		"https://ex.com/c": withTrailing("three"),
		"https://ex.com/d": pageWithTitle("Completely unrelated page about something else entirely", 300),
	}
	issues := ScaledContent(signals, defaultCfg())

	found := false
	for _, i := range issues {
		if i.Severity == model.SeverityP1 {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a near-duplicate cluster P1 issue, got %+v", issues)
	}
}

func TestScaledContent_ThinContentClusterDetected(t *testing.T) {
	signals := map[string]model.ExtractedSignals{
		"https://ex.com/a": pageWithTitle("Short page one", 50),
		"https://ex.com/b": pageWithTitle("Short page two", 60),
		"https://ex.com/c": pageWithTitle("Short page three", 70),
	}
	cfg := defaultCfg()
	issues := ScaledContent(signals, cfg)
	found := false
	for _, i := range issues {
		if i.Message != "" && i.Severity == model.SeverityP1 {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a thin-content cluster issue, got %+v", issues)
	}
}

func TestSiteReputation_InsufficientVocabularySkipsDriftCheck(t *testing.T) {
	signals := map[string]model.ExtractedSignals{
		"https://ex.com/": {Title: "Hi", MetaDescription: "ok"},
	}
	issues := SiteReputation(signals, defaultCfg())
	if len(issues) != 0 {
		t.Fatalf("expected no issues with insufficient vocabulary, got %+v", issues)
	}
}

func TestSiteReputation_OutboundDominance(t *testing.T) {
	var ext []model.Link
	for i := 0; i < 8; i++ {
		ext = append(ext, model.Link{Href: "https://other.com/x"})
	}
	signals := map[string]model.ExtractedSignals{
		"https://ex.com/page": {
			InternalLinks: []model.Link{{Href: "https://ex.com/other"}},
			ExternalLinks: ext,
		},
	}
	issues := SiteReputation(signals, defaultCfg())
	found := false
	for _, i := range issues {
		if i.Category == model.CategoryRisk {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an outbound dominance issue, got %+v", issues)
	}
}

func TestExpiredDomain_NoTopicsWhenHostUnparseable(t *testing.T) {
	issues := ExpiredDomain(map[string]model.ExtractedSignals{}, "not-a-url", defaultCfg())
	if issues != nil {
		t.Fatalf("expected nil when no domain topics can be derived, got %+v", issues)
	}
}

func TestExpiredDomain_SiteWidePivotDetected(t *testing.T) {
	signals := map[string]model.ExtractedSignals{
		"https://travelbookings.com/a": {Title: "Buy cheap pharmaceutical products online now", WordCount: 300},
		"https://travelbookings.com/b": {Title: "Discount medication deals shipped worldwide fast", WordCount: 300},
	}
	issues := ExpiredDomain(signals, "https://travelbookings.com", defaultCfg())
	found := false
	for _, i := range issues {
		if i.Severity == model.SeverityP1 {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a site-wide pivot P1 issue, got %+v", issues)
	}
}
