package riskscan

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/coastvine/seoauditor/internal/config"
	"github.com/coastvine/seoauditor/internal/model"
)

var camelBoundaryRe = regexp.MustCompile(`([a-z0-9])([A-Z])`)

// ExpiredDomain implements §4.6.3: detects a site whose published topics
// have pivoted away from what its own hostname suggests, a common signal
// for repurposed/expired-domain abuse.
func ExpiredDomain(signals map[string]model.ExtractedSignals, baseURL string, cfg config.RiskScannerConfig) []model.AuditIssue {
	domainTopics := domainTopicsFrom(baseURL)
	if len(domainTopics) == 0 {
		return nil
	}

	var issues []model.AuditIssue
	var pivoted []string
	var orphanPivoted []string
	inbound := inboundCounts(signals)

	var totalScore float64
	count := 0

	for _, u := range sortedURLs(signals) {
		score := pivotScore(topicWords(signals[u]), domainTopics)
		totalScore += score
		count++
		if score >= cfg.TopicPivotScoreThreshold {
			pivoted = append(pivoted, u)
			if norm, err := normalizeForInbound(u); err == nil && inbound[norm] == 0 {
				orphanPivoted = append(orphanPivoted, u)
			}
		}
	}

	if count == 0 {
		return nil
	}
	sitePivot := totalScore / float64(count)
	if sitePivot >= cfg.TopicPivotScoreThreshold {
		issues = append(issues, issue(model.SeverityP1, baseURL,
			fmt.Sprintf("site-wide topic pivot score is %.2f, at or above the configured threshold", sitePivot), ""))
	}

	if len(pivoted) > 3 {
		issues = append(issues, issue(model.SeverityP2, pivoted[0],
			fmt.Sprintf("%d pages individually exceed the topic pivot threshold", len(pivoted)),
			strings.Join(sample(pivoted, 10), ", ")))
	}

	for _, u := range orphanPivoted {
		issues = append(issues, issue(model.SeverityP2, u,
			"orphan page whose topics have pivoted away from the site's domain name", ""))
	}

	return issues
}

func domainTopicsFrom(baseURL string) []string {
	host := strings.TrimPrefix(hostOf(baseURL), "www.")
	if host == "" {
		return nil
	}
	if colon := strings.IndexByte(host, ':'); colon >= 0 {
		host = host[:colon]
	}
	if dot := strings.LastIndexByte(host, '.'); dot > 0 {
		host = host[:dot]
	}
	spaced := camelBoundaryRe.ReplaceAllString(host, "$1 $2")
	spaced = strings.NewReplacer("-", " ", "_", " ", ".", " ").Replace(spaced)

	var out []string
	for _, w := range strings.Fields(strings.ToLower(spaced)) {
		if len(w) > 2 {
			out = append(out, w)
		}
	}
	return out
}

func pivotScore(contentWords, domainTopics []string) float64 {
	if len(domainTopics) == 0 {
		return 0
	}
	contentSet := wordSet(contentWords)
	matched := 0
	for _, topic := range domainTopics {
		if wordMatches(topic, contentSet) {
			matched++
		}
	}
	return 1 - float64(matched)/float64(len(domainTopics))
}

func wordMatches(topic string, contentSet map[string]bool) bool {
	for w := range contentSet {
		if strings.Contains(w, topic) || strings.Contains(topic, w) {
			return true
		}
	}
	return false
}

func inboundCounts(signals map[string]model.ExtractedSignals) map[string]int {
	counts := map[string]int{}
	for _, s := range signals {
		for _, link := range s.InternalLinks {
			if norm, err := normalizeForInbound(link.Href); err == nil {
				counts[norm]++
			}
		}
	}
	return counts
}
