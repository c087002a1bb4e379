// Command seoaudit crawls a site, validates its SEO/compliance signals,
// scans for spam-policy risk, and writes a structured audit report.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/coastvine/seoauditor/internal/config"
	"github.com/coastvine/seoauditor/internal/history"
	"github.com/coastvine/seoauditor/internal/history/pgstore"
	"github.com/coastvine/seoauditor/internal/history/sqlitestore"
	"github.com/coastvine/seoauditor/internal/metrics"
	"github.com/coastvine/seoauditor/internal/model"
	"github.com/coastvine/seoauditor/internal/orchestrator"
	"github.com/coastvine/seoauditor/internal/report"
)

var (
	flagSite        string
	flagMode        string
	flagBatchSize   int
	flagConcurrency int
	flagBaseURL     string
	flagResume      string
	flagConfigDir   string
	flagHistoryDSN  string
	flagMetricsPort int
)

var rootCmd = &cobra.Command{
	Use:   "seoaudit",
	Short: "Crawl a site and audit it for SEO, compliance, and spam-policy risk.",
	Long: `seoaudit crawls a configured site's sitemap and static routes, validates
the extracted SEO signals against eight rule sets, scans for scaled-content,
site-reputation, and expired-domain abuse patterns, and writes a structured
report with pass/fail gates.`,
	RunE: runAudit,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent run summaries for a site.",
	RunE:  runHistory,
}

func init() {
	rootCmd.Flags().StringVar(&flagSite, "site", "", "site identifier (required unless --resume)")
	rootCmd.Flags().StringVar(&flagMode, "mode", "full", "full|quick|preview|prod|resume")
	rootCmd.Flags().IntVar(&flagBatchSize, "batchSize", 0, "override configured batch size")
	rootCmd.Flags().IntVar(&flagConcurrency, "concurrency", 0, "override configured crawl concurrency")
	rootCmd.Flags().StringVar(&flagBaseURL, "baseUrl", "", "override configured base URL")
	rootCmd.Flags().StringVar(&flagResume, "resume", "", "run ID to resume (mode is forced to resume)")
	rootCmd.PersistentFlags().StringVar(&flagConfigDir, "configDir", "config/sites", "directory holding _default.audit.json and <siteId>.audit.json")
	rootCmd.PersistentFlags().StringVar(&flagHistoryDSN, "historyDSN", "", "history store DSN: file path (sqlite, default) or postgres://... ")
	rootCmd.Flags().IntVar(&flagMetricsPort, "metricsPort", 0, "expose Prometheus /metrics on this port while the run executes (0 disables)")

	historyCmd.Flags().StringVar(&flagSite, "site", "", "site identifier")
	historyCmd.MarkFlagRequired("site")

	rootCmd.AddCommand(historyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(2)
	}
}

func runAudit(cmd *cobra.Command, args []string) error {
	logger := slog.Default()

	if flagResume != "" {
		flagMode = "resume"
	}
	if flagMode != "resume" && flagSite == "" {
		fmt.Fprintln(os.Stderr, "Error: --site is required unless --resume is given")
		os.Exit(2)
	}

	baseURL := flagBaseURL
	concurrency := flagConcurrency
	switch flagMode {
	case "preview":
		if baseURL == "" {
			baseURL = "http://localhost:3000"
		}
	case "prod":
		if concurrency == 0 {
			concurrency = 6
		}
	}

	overrides := config.Overrides{}
	if baseURL != "" {
		overrides["baseUrl"] = baseURL
	}
	if concurrency > 0 {
		overrides["crawl"] = map[string]any{"concurrency": concurrency}
	}

	store, err := openHistoryStore(flagHistoryDSN)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(2)
	}
	defer store.Close()

	if flagMetricsPort > 0 {
		metricsSrv := metrics.Start(flagMetricsPort)
		defer metricsSrv.Stop(context.Background())
	}

	o := orchestrator.New(flagConfigDir)
	o.History = store
	o.Logger = logger

	result, err := o.Run(context.Background(), orchestrator.RunOptions{
		SiteID:    flagSite,
		Mode:      flagMode,
		BatchSize: flagBatchSize,
		ResumeRun: flagResume,
		Overrides: overrides,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Audit failed: %s\n", err)
		os.Exit(2)
	}

	printSummary(result)

	if !result.AllHardGatesPassed() {
		os.Exit(1)
	}
	return nil
}

func printSummary(result model.AuditRunResult) {
	sev := result.SeverityCounts()
	fmt.Printf("Run %s (%s) — %d URLs in %s\n", result.RunID, result.Mode, result.TotalURLs, result.EndTime.Sub(result.StartTime))
	fmt.Printf("Verdict: %s\n", report.ComputeVerdict(result))
	fmt.Printf("Severity: P0=%d P1=%d P2=%d\n", sev[model.SeverityP0], sev[model.SeverityP1], sev[model.SeverityP2])
	fmt.Println("Hard gates:")
	for _, gate := range result.HardGates {
		status := "PASS"
		if !gate.Passed {
			status = "FAIL"
		}
		fmt.Printf("  [%s] %s (p0=%d/%d total=%d/%s)\n", status, gate.Name, gate.P0Count, gate.MaxP0, gate.TotalCount, maxTotalLabel(gate.MaxTotal))
	}
}

func maxTotalLabel(maxTotal int) string {
	if maxTotal < 0 {
		return "∞"
	}
	return fmt.Sprintf("%d", maxTotal)
}

func runHistory(cmd *cobra.Command, args []string) error {
	store, err := openHistoryStore(flagHistoryDSN)
	if err != nil {
		return fmt.Errorf("open history store: %w", err)
	}
	defer store.Close()

	runs, err := store.Recent(context.Background(), flagSite, 20)
	if err != nil {
		return fmt.Errorf("fetch run history: %w", err)
	}
	if len(runs) == 0 {
		fmt.Printf("No run history found for site %q.\n", flagSite)
		return nil
	}

	fmt.Printf("%-28s %-8s %-20s %-8s %-6s %s\n", "RUN ID", "MODE", "STARTED", "URLS", "GATES", "ISSUES")
	for _, r := range runs {
		gates := "PASS"
		if !r.GatesPassed {
			gates = "FAIL"
		}
		fmt.Printf("%-28s %-8s %-20s %-8d %-6s %s\n",
			r.RunID, r.Mode, r.StartedAt.Format("2006-01-02 15:04:05"), r.TotalURLs, gates, formatIssueCounts(r.IssueCounts))
	}
	return nil
}

func formatIssueCounts(counts map[string]int) string {
	parts := make([]string, 0, len(counts))
	for _, sev := range []string{"P0", "P1", "P2"} {
		if n, ok := counts[sev]; ok {
			parts = append(parts, fmt.Sprintf("%s=%d", sev, n))
		}
	}
	return strings.Join(parts, " ")
}

func openHistoryStore(dsn string) (history.Store, error) {
	if dsn == "" {
		return sqlitestore.New("seoaudit-history.db")
	}
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return pgstore.New(context.Background(), dsn)
	}
	return sqlitestore.New(dsn)
}
