package riskscan

import (
	"github.com/coastvine/seoauditor/internal/config"
	"github.com/coastvine/seoauditor/internal/model"
)

// RunAll runs every enabled risk scanner over signals and returns the
// concatenated issue list. The single cfg.Enabled flag turns all three
// scanners on or off together.
func RunAll(signals map[string]model.ExtractedSignals, baseURL string, cfg config.RiskScannerConfig) []model.AuditIssue {
	if !cfg.Enabled {
		return nil
	}
	var issues []model.AuditIssue
	issues = append(issues, ScaledContent(signals, cfg)...)
	issues = append(issues, SiteReputation(signals, cfg)...)
	issues = append(issues, ExpiredDomain(signals, baseURL, cfg)...)
	return issues
}
