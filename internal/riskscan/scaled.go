package riskscan

import (
	"fmt"
	"sort"
	"strings"

	"github.com/coastvine/seoauditor/internal/config"
	"github.com/coastvine/seoauditor/internal/model"
)

var entityCoverageStoplist = wordSet([]string{
	"the", "and", "for", "with", "that", "this", "from", "your", "our",
	"are", "you", "all", "can", "has", "have", "not", "but", "was",
	"will", "about",
})

// ScaledContent implements §4.6.1: near-duplicate clustering via shingle
// Jaccard similarity, thin-content aggregation, and per-page entity
// coverage.
func ScaledContent(signals map[string]model.ExtractedSignals, cfg config.RiskScannerConfig) []model.AuditIssue {
	var issues []model.AuditIssue

	issues = append(issues, nearDuplicateClusters(signals, cfg)...)
	issues = append(issues, thinContentCluster(signals, cfg)...)
	issues = append(issues, entityCoverageIssues(signals, cfg)...)

	return issues
}

func nearDuplicateClusters(signals map[string]model.ExtractedSignals, cfg config.RiskScannerConfig) []model.AuditIssue {
	urls := sortedURLs(signals)
	var eligible []string
	shingleSets := map[string]map[string]bool{}
	for _, u := range urls {
		s := signals[u]
		if s.WordCount <= 50 {
			continue
		}
		eligible = append(eligible, u)
		shingleSets[u] = shingles(tokenize(combinedText(s)), 3)
	}

	uf := newUnionFind(len(eligible))
	for i := 0; i < len(eligible); i++ {
		for j := i + 1; j < len(eligible); j++ {
			if jaccard(shingleSets[eligible[i]], shingleSets[eligible[j]]) >= cfg.DuplicateSimilarityThreshold {
				uf.union(i, j)
			}
		}
	}

	var clusters [][]string
	for _, members := range uf.clusters() {
		if len(members) < cfg.ScaledContentMinClusterSize {
			continue
		}
		var memberURLs []string
		for _, idx := range members {
			memberURLs = append(memberURLs, eligible[idx])
		}
		clusters = append(clusters, memberURLs)
	}
	sort.Slice(clusters, func(i, j int) bool { return clusters[i][0] < clusters[j][0] })

	var issues []model.AuditIssue
	for _, memberURLs := range clusters {
		issues = append(issues, issue(model.SeverityP1, memberURLs[0],
			fmt.Sprintf("near-duplicate content cluster of %d pages", len(memberURLs)),
			strings.Join(sample(memberURLs, 10), ", ")))
	}
	return issues
}

func thinContentCluster(signals map[string]model.ExtractedSignals, cfg config.RiskScannerConfig) []model.AuditIssue {
	var thin []string
	for _, u := range sortedURLs(signals) {
		if signals[u].WordCount < cfg.ThinContentThreshold {
			thin = append(thin, u)
		}
	}
	if len(thin) < cfg.ScaledContentMinClusterSize {
		return nil
	}
	return []model.AuditIssue{
		issue(model.SeverityP1, thin[0],
			fmt.Sprintf("thin content cluster of %d pages below %d words", len(thin), cfg.ThinContentThreshold),
			strings.Join(sample(thin, 10), ", ")),
	}
}

func entityCoverageIssues(signals map[string]model.ExtractedSignals, cfg config.RiskScannerConfig) []model.AuditIssue {
	var issues []model.AuditIssue
	for _, u := range sortedURLs(signals) {
		s := signals[u]
		if len(s.Headings) == 0 {
			continue
		}
		var headingWords []string
		for _, h := range s.Headings {
			headingWords = append(headingWords, significantWords(h.Text, 2, entityCoverageStoplist)...)
		}
		if len(headingWords) == 0 {
			continue
		}
		titleDesc := wordSet(tokenize(s.Title + " " + s.MetaDescription))
		matched := 0
		for _, w := range headingWords {
			if titleDesc[w] {
				matched++
			}
		}
		coverage := float64(matched) / float64(len(headingWords))
		if coverage < cfg.EntityCoverageMinScore {
			issues = append(issues, issue(model.SeverityP2, u,
				fmt.Sprintf("heading entity coverage is %.2f, below the minimum of %.2f", coverage, cfg.EntityCoverageMinScore), ""))
		}
	}
	return issues
}
