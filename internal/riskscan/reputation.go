package riskscan

import (
	"fmt"
	"strings"

	"github.com/coastvine/seoauditor/internal/config"
	"github.com/coastvine/seoauditor/internal/model"
)

var reputationStoplist = wordSet([]string{
	"the", "and", "for", "with", "that", "this", "from", "your", "our",
	"are", "you", "all", "can", "has", "have", "not", "but", "was",
	"will", "about", "more", "into", "than", "then", "when", "what",
	"where", "which", "their", "they", "them", "been", "were", "also",
	"just", "only", "some", "such", "over", "most", "very", "here",
})

var keyPages = map[string]bool{"/": true, "/blog": true, "/about": true, "/hotels": true, "/experiences": true}

const minVocabularySize = 5

func isContentPagePath(path string) bool {
	return strings.HasPrefix(path, "/blog/") || strings.HasPrefix(path, "/information/") || strings.HasPrefix(path, "/news/")
}

// SiteReputation implements §4.6.2: topic-drift detection against a core
// vocabulary built from key pages, outbound-link dominance, and missing
// editorial ownership on content pages.
func SiteReputation(signals map[string]model.ExtractedSignals, cfg config.RiskScannerConfig) []model.AuditIssue {
	vocabulary := coreVocabulary(signals)
	var issues []model.AuditIssue

	if len(vocabulary) >= minVocabularySize {
		issues = append(issues, topicDriftIssues(signals, vocabulary, cfg)...)
	}
	issues = append(issues, outboundDominanceIssues(signals, cfg)...)
	issues = append(issues, missingOwnershipIssues(signals)...)

	return issues
}

func coreVocabulary(signals map[string]model.ExtractedSignals) map[string]bool {
	words := map[string]bool{}
	for _, u := range sortedURLs(signals) {
		if !keyPages[pathOf(u)] {
			continue
		}
		s := signals[u]
		text := combinedText(s)
		for _, w := range significantWords(text, 3, reputationStoplist) {
			words[w] = true
		}
	}
	return words
}

func topicWords(s model.ExtractedSignals) []string {
	return significantWords(combinedText(s), 3, reputationStoplist)
}

func topicDriftIssues(signals map[string]model.ExtractedSignals, vocabulary map[string]bool, cfg config.RiskScannerConfig) []model.AuditIssue {
	var drifted []string
	for _, u := range sortedURLs(signals) {
		if !isContentPagePath(pathOf(u)) {
			continue
		}
		words := topicWords(signals[u])
		if len(words) <= 3 {
			continue
		}
		matched := 0
		for _, w := range words {
			if vocabulary[w] {
				matched++
			}
		}
		relevance := float64(matched) / float64(len(words))
		if relevance < 0.1 {
			drifted = append(drifted, u)
		}
	}
	if len(drifted) == 0 {
		return nil
	}
	return []model.AuditIssue{
		issue(model.SeverityP2, drifted[0],
			fmt.Sprintf("%d content page(s) have drifted away from the site's core topic vocabulary", len(drifted)),
			strings.Join(sample(drifted, 10), ", ")),
	}
}

func outboundDominanceIssues(signals map[string]model.ExtractedSignals, cfg config.RiskScannerConfig) []model.AuditIssue {
	var issues []model.AuditIssue
	for _, u := range sortedURLs(signals) {
		s := signals[u]
		total := len(s.InternalLinks) + len(s.ExternalLinks)
		if total == 0 || len(s.ExternalLinks) <= 5 {
			continue
		}
		ratio := float64(len(s.ExternalLinks)) / float64(total)
		if ratio >= cfg.OutboundDominanceThreshold {
			issues = append(issues, issue(model.SeverityP2, u,
				fmt.Sprintf("outbound link ratio is %.2f with %d external links", ratio, len(s.ExternalLinks)), ""))
		}
	}
	return issues
}

func missingOwnershipIssues(signals map[string]model.ExtractedSignals) []model.AuditIssue {
	var missing []string
	for _, u := range sortedURLs(signals) {
		if !isContentPagePath(pathOf(u)) {
			continue
		}
		if !hasAuthorField(signals[u].JSONLD) {
			missing = append(missing, u)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return []model.AuditIssue{
		issue(model.SeverityP2, missing[0],
			fmt.Sprintf("%d content page(s) are missing editorial ownership (author) in structured data", len(missing)),
			strings.Join(sample(missing, 10), ", ")),
	}
}

func hasAuthorField(blocks []model.JSONLDBlock) bool {
	for _, b := range blocks {
		if b.ParseError {
			continue
		}
		if _, ok := b.Data["author"]; ok {
			return true
		}
		if graph, ok := b.Data["@graph"].([]any); ok {
			for _, item := range graph {
				if node, ok := item.(map[string]any); ok {
					if _, ok := node["author"]; ok {
						return true
					}
				}
			}
		}
	}
	return false
}
