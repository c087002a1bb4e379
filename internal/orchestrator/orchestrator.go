// Package orchestrator sequences the engine's stages for one run: load
// config, build or resume an inventory, crawl it in batches, extract
// signals, run validators and risk scanners, evaluate gates, and write
// the run's outputs (§4.8 of the audit specification).
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/coastvine/seoauditor/internal/config"
	"github.com/coastvine/seoauditor/internal/crawler"
	"github.com/coastvine/seoauditor/internal/extractor"
	"github.com/coastvine/seoauditor/internal/history"
	"github.com/coastvine/seoauditor/internal/inventory"
	"github.com/coastvine/seoauditor/internal/metrics"
	"github.com/coastvine/seoauditor/internal/model"
	"github.com/coastvine/seoauditor/internal/report"
	"github.com/coastvine/seoauditor/internal/riskscan"
	"github.com/coastvine/seoauditor/internal/state"
	"github.com/coastvine/seoauditor/internal/validators"
)

// Orchestrator wires the engine's stages together for one invocation.
type Orchestrator struct {
	ConfigDir string
	History   history.Store
	Logger    *slog.Logger
}

// New builds an Orchestrator with a no-op history store and the default
// logger; callers override History/Logger as needed.
func New(configDir string) *Orchestrator {
	return &Orchestrator{ConfigDir: configDir, History: history.Noop{}, Logger: slog.Default()}
}

// RunOptions configures one invocation of Run.
type RunOptions struct {
	SiteID    string
	Mode      string // full|quick|preview|prod|resume
	BatchSize int
	ResumeRun string // explicit run ID for mode=resume; "" finds the latest
	Overrides config.Overrides
}

// Run executes one audit end to end and returns the assembled result. A
// non-nil error means the engine itself failed (config, I/O); a returned
// result with failing hard gates is not an error.
func (o *Orchestrator) Run(ctx context.Context, opts RunOptions) (model.AuditRunResult, error) {
	logger := o.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cfg, err := config.Load(opts.SiteID, o.ConfigDir, opts.Overrides, logger)
	if err != nil {
		return model.AuditRunResult{}, fmt.Errorf("load config: %w", err)
	}
	if opts.BatchSize > 0 {
		cfg.BatchSize = opts.BatchSize
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	isResume := opts.Mode == "resume"

	var (
		runState     model.AuditState
		crawlResults map[string]model.CrawlResult
		sitemapXML   string
		invEntries   []model.UrlInventoryEntry
	)

	var mgr *state.Manager

	if isResume {
		runID := opts.ResumeRun
		if runID == "" {
			found, ok := state.FindLatestRunID(cfg.OutputDir, opts.SiteID)
			if !ok {
				return model.AuditRunResult{}, fmt.Errorf("resume: no prior run found for site %q", opts.SiteID)
			}
			runID = found
		}
		mgr = state.New(cfg.OutputDir, runID)

		runState, err = mgr.LoadState()
		if err != nil {
			return model.AuditRunResult{}, fmt.Errorf("resume: load state: %w", err)
		}
		crawlResults, err = mgr.LoadCrawlResults()
		if err != nil {
			return model.AuditRunResult{}, fmt.Errorf("resume: load crawl results: %w", err)
		}
		runState.Status = model.RunRunning
		if err := mgr.SaveState(&runState); err != nil {
			return model.AuditRunResult{}, fmt.Errorf("resume: save state: %w", err)
		}

		invEntries, sitemapXML = loadInventorySnapshot(mgr.RunDir(), logger)
	} else {
		runID := state.NewRunID(opts.SiteID)
		mgr = state.New(cfg.OutputDir, runID)

		built := inventory.Build(ctx, cfg, cfg.BaseURL, logger)
		invEntries = built.Inventory
		sitemapXML = built.SitemapXML

		runState = state.CreateState(runID, opts.SiteID, opts.Mode, cfg.BaseURL, built.URLs, cfg.BatchSize)
		crawlResults = make(map[string]model.CrawlResult, len(built.URLs))

		if err := mgr.SaveState(&runState); err != nil {
			return model.AuditRunResult{}, fmt.Errorf("save initial state: %w", err)
		}
	}

	if err := os.MkdirAll(mgr.RunDir(), 0o755); err != nil {
		return model.AuditRunResult{}, fmt.Errorf("create run directory: %w", err)
	}
	saveInventorySnapshot(mgr.RunDir(), invEntries, sitemapXML, logger)

	c := crawler.New(cfg.Crawl)
	defer c.Stop()

	for _, idx := range state.GetPendingBatchIndices(runState) {
		batch := runState.Batches[idx]
		state.MarkBatchStarted(&runState, idx)
		if err := mgr.SaveState(&runState); err != nil {
			logger.Error("save state after batch start failed", "batch", idx, "err", err)
		}

		results, err := crawlBatchSafely(ctx, c, batch.URLs)
		if err != nil {
			logger.Error("crawl batch failed", "batch", idx, "err", err)
			state.MarkBatchFailed(&runState, idx, err.Error())
			state.RecordError(&runState, err.Error(), "")
			if saveErr := mgr.SaveState(&runState); saveErr != nil {
				logger.Error("save state after batch failure failed", "batch", idx, "err", saveErr)
			}
			continue
		}

		issuesFound := 0
		for i, u := range batch.URLs {
			crawlResults[u] = results[i]
			metrics.RecordCrawl(opts.SiteID, results[i])
			if !results[i].Success() {
				issuesFound++
			}
		}
		state.MarkBatchCompleted(&runState, idx, issuesFound)
		if err := mgr.SaveState(&runState); err != nil {
			logger.Error("save state after batch completion failed", "batch", idx, "err", err)
		}
		if err := mgr.SaveCrawlResults(crawlResults); err != nil {
			logger.Error("save crawl results snapshot failed", "batch", idx, "err", err)
		}
	}

	signals := extractSignals(crawlResults, cfg.BaseURL, logger)

	sitemapURLs := make(map[string]bool, len(invEntries))
	for _, e := range invEntries {
		if e.Source == model.SourceSitemap {
			sitemapURLs[e.URL] = true
		}
	}

	issues := validators.RunAll(validators.Inputs{
		Config:       cfg,
		CrawlResults: crawlResults,
		Signals:      signals,
		SitemapXML:   sitemapXML,
		SitemapURLs:  sitemapURLs,
	})
	issues = append(issues, riskscan.RunAll(signals, cfg.BaseURL, cfg.RiskScanners)...)

	hardGates := evaluateHardGates(cfg.HardGates, issues)
	softGates := evaluateSoftGates(cfg.SoftGates, signals, cfg.Validators)

	decoratedInventory := decorateInventory(invEntries, crawlResults, issues)

	runState.Status = model.RunCompleted
	runState.LastUpdated = time.Now().UTC()
	if err := mgr.SaveState(&runState); err != nil {
		logger.Error("save final state failed", "err", err)
	}

	result := model.AuditRunResult{
		RunID:     runState.RunID,
		SiteID:    opts.SiteID,
		Mode:      opts.Mode,
		StartTime: runState.StartTime,
		EndTime:   time.Now().UTC(),
		TotalURLs: runState.Progress.TotalURLs,
		Issues:    issues,
		HardGates: hardGates,
		SoftGates: softGates,
		Inventory: decoratedInventory,
	}

	metrics.RecordRun(opts.SiteID, result)

	if err := writeOutputs(mgr.RunDir(), cfg, result); err != nil {
		return result, fmt.Errorf("write run outputs: %w", err)
	}

	summary := history.RunSummary{
		RunID:       result.RunID,
		SiteID:      result.SiteID,
		Mode:        result.Mode,
		StartedAt:   result.StartTime,
		EndedAt:     result.EndTime,
		TotalURLs:   result.TotalURLs,
		IssueCounts: severityCountStrings(result),
		GatesPassed: result.AllHardGatesPassed(),
	}
	if o.History != nil {
		if err := o.History.Save(ctx, summary); err != nil {
			logger.Warn("save run summary to history failed", "err", err)
		}
	}

	return result, nil
}

func crawlBatchSafely(ctx context.Context, c *crawler.Crawler, urls []string) (results []model.CrawlResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("crawl batch panicked: %v", r)
		}
	}()
	return c.CrawlBatch(ctx, urls), nil
}

func extractSignals(crawlResults map[string]model.CrawlResult, baseURL string, logger *slog.Logger) map[string]model.ExtractedSignals {
	signals := make(map[string]model.ExtractedSignals, len(crawlResults))
	for u, res := range crawlResults {
		if res.StatusCode != 200 || strings.TrimSpace(res.Body) == "" {
			continue
		}
		func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Warn("signal extraction panicked", "url", u, "err", r)
				}
			}()
			signals[u] = extractor.Extract(res.Body, u, baseURL)
		}()
	}
	return signals
}

func evaluateHardGates(gates []config.HardGateConfig, issues []model.AuditIssue) []model.HardGateResult {
	out := make([]model.HardGateResult, 0, len(gates))
	for _, g := range gates {
		var p0 int
		var total int
		var sampleURLs []string
		for _, issue := range issues {
			if string(issue.Category) != g.Category {
				continue
			}
			total++
			if issue.Severity == model.SeverityP0 {
				p0++
			}
			if len(sampleURLs) < 20 && issue.URL != "" {
				sampleURLs = append(sampleURLs, issue.URL)
			}
		}
		passed := p0 <= g.MaxP0 && (g.MaxTotal < 0 || total <= g.MaxTotal)
		out = append(out, model.HardGateResult{
			Name:       g.Name,
			Category:   model.Category(g.Category),
			P0Count:    p0,
			TotalCount: total,
			MaxP0:      g.MaxP0,
			MaxTotal:   g.MaxTotal,
			Passed:     passed,
			SampleURLs: sampleURLs,
		})
	}
	return out
}

func evaluateSoftGates(cfg config.SoftGateConfig, signals map[string]model.ExtractedSignals, vcfg config.ValidatorConfig) []model.SoftGateSummary {
	var noDescription, thin, noStructuredData, noHreflang []string

	for u, s := range signals {
		if strings.TrimSpace(s.MetaDescription) == "" {
			noDescription = append(noDescription, u)
		}
		if s.WordCount < cfg.MinWordCount {
			thin = append(thin, u)
		}
		if len(s.JSONLD) == 0 {
			noStructuredData = append(noStructuredData, u)
		}
		if len(vcfg.ExpectedHreflangLangs) > 0 && len(s.Hreflangs) == 0 {
			noHreflang = append(noHreflang, u)
		}
	}

	summaries := []model.SoftGateSummary{
		{Name: "pages-without-meta-description", Count: len(noDescription), URLs: sampleOf(noDescription, 20)},
		{Name: "thin-content", Count: len(thin), URLs: sampleOf(thin, 20)},
		{Name: "pages-without-structured-data", Count: len(noStructuredData), URLs: sampleOf(noStructuredData, 20)},
	}
	if len(vcfg.ExpectedHreflangLangs) > 0 {
		summaries = append(summaries, model.SoftGateSummary{Name: "pages-without-hreflang", Count: len(noHreflang), URLs: sampleOf(noHreflang, 20)})
	}
	return summaries
}

func sampleOf(urls []string, n int) []string {
	if len(urls) <= n {
		return urls
	}
	return urls[:n]
}

func decorateInventory(entries []model.UrlInventoryEntry, crawlResults map[string]model.CrawlResult, issues []model.AuditIssue) []model.UrlInventoryEntry {
	issueCounts := make(map[string]int, len(entries))
	for _, issue := range issues {
		if issue.URL != "" {
			issueCounts[issue.URL]++
		}
	}

	out := make([]model.UrlInventoryEntry, len(entries))
	for i, e := range entries {
		e := e
		if res, ok := crawlResults[e.URL]; ok {
			status := res.StatusCode
			e.FinalStatus = &status
		}
		count := issueCounts[e.URL]
		e.IssueCount = &count
		out[i] = e
	}
	return out
}

func severityCountStrings(result model.AuditRunResult) map[string]int {
	counts := result.SeverityCounts()
	out := make(map[string]int, len(counts))
	for sev, n := range counts {
		out[string(sev)] = n
	}
	return out
}

type inventorySnapshot struct {
	Entries    []model.UrlInventoryEntry `json:"entries"`
	SitemapXML string                    `json:"sitemapXml"`
}

func saveInventorySnapshot(runDir string, entries []model.UrlInventoryEntry, sitemapXML string, logger *slog.Logger) {
	snap := inventorySnapshot{Entries: entries, SitemapXML: sitemapXML}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		logger.Warn("marshal inventory snapshot failed", "err", err)
		return
	}
	if err := os.WriteFile(filepath.Join(runDir, "inventory-snapshot.json"), data, 0o644); err != nil {
		logger.Warn("write inventory snapshot failed", "err", err)
	}
}

func loadInventorySnapshot(runDir string, logger *slog.Logger) ([]model.UrlInventoryEntry, string) {
	data, err := os.ReadFile(filepath.Join(runDir, "inventory-snapshot.json"))
	if err != nil {
		logger.Warn("load inventory snapshot failed, resuming with empty inventory", "err", err)
		return nil, ""
	}
	var snap inventorySnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		logger.Warn("unmarshal inventory snapshot failed", "err", err)
		return nil, ""
	}
	return snap.Entries, snap.SitemapXML
}

func writeOutputs(runDir string, cfg config.AuditConfig, result model.AuditRunResult) error {
	if err := writeJSON(filepath.Join(runDir, "result.json"), result); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(runDir, "issues.json"), result.Issues); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(runDir, "url_inventory.json"), result.Inventory); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(runDir, "config_snapshot.json"), cfg); err != nil {
		return err
	}

	var execBuf, fixBuf strings.Builder
	if err := report.GenerateExecSummary(&execBuf, result); err != nil {
		return fmt.Errorf("generate exec summary: %w", err)
	}
	if err := os.WriteFile(filepath.Join(runDir, "EXEC_SUMMARY.md"), []byte(execBuf.String()), 0o644); err != nil {
		return fmt.Errorf("write exec summary: %w", err)
	}

	if err := report.GenerateFixPlan(&fixBuf, result); err != nil {
		return fmt.Errorf("generate fix plan: %w", err)
	}
	if err := os.WriteFile(filepath.Join(runDir, "FIX_PLAN.md"), []byte(fixBuf.String()), 0o644); err != nil {
		return fmt.Errorf("write fix plan: %w", err)
	}

	changelogLine := fmt.Sprintf("- %s: run %s (%s) — %d URLs, verdict %s\n",
		result.EndTime.Format(time.RFC3339), result.RunID, result.Mode, result.TotalURLs, report.ComputeVerdict(result))
	f, err := os.OpenFile(filepath.Join(runDir, "..", "CHANGELOG.md"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open changelog: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(changelogLine); err != nil {
		return fmt.Errorf("append changelog: %w", err)
	}

	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}
