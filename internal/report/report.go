// Package report renders an AuditRunResult into the human-readable
// markdown documents operators actually read: an executive summary and a
// prioritized fix plan.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/template"

	"github.com/coastvine/seoauditor/internal/model"
)

const maxFailedGateSampleURLs = 10
const maxTopIssues = 30

// Verdict is the overall pass/fail/warn headline of a run.
type Verdict string

const (
	VerdictPass Verdict = "PASS"
	VerdictWarn Verdict = "WARN"
	VerdictFail Verdict = "FAIL"
)

// ComputeVerdict is FAIL if any hard gate failed, WARN if gates passed but
// P1/P2 issues remain, PASS otherwise.
func ComputeVerdict(r model.AuditRunResult) Verdict {
	if !r.AllHardGatesPassed() {
		return VerdictFail
	}
	counts := r.SeverityCounts()
	if counts[model.SeverityP1] > 0 || counts[model.SeverityP2] > 0 {
		return VerdictWarn
	}
	return VerdictPass
}

const execSummaryTmpl = `# Audit Summary: {{.Result.SiteID}}

- **Run ID:** {{.Result.RunID}}
- **Mode:** {{.Result.Mode}}
- **Duration:** {{.Duration}}
- **URLs audited:** {{.Result.TotalURLs}}
- **Verdict:** {{.Verdict}}

## Severity Counts

| Severity | Count |
|---|---|
| P0 | {{.SeverityCounts.P0}} |
| P1 | {{.SeverityCounts.P1}} |
| P2 | {{.SeverityCounts.P2}} |

## Category Counts

| Category | Count |
|---|---|
{{- range .CategoryRows}}
| {{.Category}} | {{.Count}} |
{{- end}}

## Hard Gates

| Gate | Category | P0 | Total | Max P0 | Max Total | Result |
|---|---|---|---|---|---|---|
{{- range .Result.HardGates}}
| {{.Name}} | {{.Category}} | {{.P0Count}} | {{.TotalCount}} | {{.MaxP0}} | {{if lt .MaxTotal 0}}∞{{else}}{{.MaxTotal}}{{end}} | {{if .Passed}}PASS{{else}}FAIL{{end}} |
{{- end}}

{{range .FailedGateDetails}}
### Failed gate: {{.Name}}

{{range .SampleURLs}}- {{.}}
{{end}}{{if .Overflow}}- ...and {{.Overflow}} more
{{end}}
{{- end}}

## Soft Gates (informational)

{{- range .Result.SoftGates}}
- **{{.Name}}**: {{.Count}}
{{- else}}
- None configured.
{{- end}}

## Top Issues

{{range .TopIssues}}- **[{{.Severity}}/{{.Category}}]** {{.URL}}: {{.Message}}{{if .Evidence}} ({{.Evidence}}){{end}}{{if .SuggestedFix}} — fix: {{.SuggestedFix.Notes}}{{end}}
{{end}}

## Inventory Sources

{{- range .InventoryBySource}}
- **{{.Source}}**: {{.Count}}
{{- end}}
`

type execSummaryData struct {
	Result            model.AuditRunResult
	Duration          string
	Verdict           Verdict
	SeverityCounts    severityCountsView
	CategoryRows      []categoryRow
	FailedGateDetails []failedGateDetail
	TopIssues         []model.AuditIssue
	InventoryBySource []inventorySourceRow
}

type severityCountsView struct {
	P0, P1, P2 int
}

type categoryRow struct {
	Category string
	Count    int
}

type failedGateDetail struct {
	Name       string
	SampleURLs []string
	Overflow   int
}

type inventorySourceRow struct {
	Source string
	Count  int
}

// GenerateExecSummary renders the executive summary markdown for result.
func GenerateExecSummary(w io.Writer, result model.AuditRunResult) error {
	sevCounts := result.SeverityCounts()
	catCounts := result.CategoryCounts()

	catRows := make([]categoryRow, 0, len(catCounts))
	for cat, count := range catCounts {
		catRows = append(catRows, categoryRow{Category: string(cat), Count: count})
	}
	sort.Slice(catRows, func(i, j int) bool { return catRows[i].Category < catRows[j].Category })

	var failedDetails []failedGateDetail
	for _, gate := range result.HardGates {
		if gate.Passed {
			continue
		}
		detail := failedGateDetail{Name: gate.Name}
		if len(gate.SampleURLs) > maxFailedGateSampleURLs {
			detail.SampleURLs = gate.SampleURLs[:maxFailedGateSampleURLs]
			detail.Overflow = len(gate.SampleURLs) - maxFailedGateSampleURLs
		} else {
			detail.SampleURLs = gate.SampleURLs
		}
		failedDetails = append(failedDetails, detail)
	}

	topIssues := topPriorityIssues(result.Issues, maxTopIssues)

	sourceCounts := map[model.InventorySource]int{}
	for _, entry := range result.Inventory {
		sourceCounts[entry.Source]++
	}
	var sourceRows []inventorySourceRow
	for src, count := range sourceCounts {
		sourceRows = append(sourceRows, inventorySourceRow{Source: string(src), Count: count})
	}
	sort.Slice(sourceRows, func(i, j int) bool { return sourceRows[i].Source < sourceRows[j].Source })

	data := execSummaryData{
		Result:            result,
		Duration:          result.EndTime.Sub(result.StartTime).String(),
		Verdict:           ComputeVerdict(result),
		SeverityCounts:    severityCountsView{P0: sevCounts[model.SeverityP0], P1: sevCounts[model.SeverityP1], P2: sevCounts[model.SeverityP2]},
		CategoryRows:      catRows,
		FailedGateDetails: failedDetails,
		TopIssues:         topIssues,
		InventoryBySource: sourceRows,
	}

	t, err := template.New("execSummary").Parse(execSummaryTmpl)
	if err != nil {
		return fmt.Errorf("parse exec summary template: %w", err)
	}
	if err := t.Execute(w, data); err != nil {
		return fmt.Errorf("render exec summary: %w", err)
	}
	return nil
}

// topPriorityIssues returns up to n issues, P0s first then P1s, in input order.
func topPriorityIssues(issues []model.AuditIssue, n int) []model.AuditIssue {
	var out []model.AuditIssue
	for _, sev := range []model.Severity{model.SeverityP0, model.SeverityP1} {
		for _, issue := range issues {
			if len(out) >= n {
				return out
			}
			if issue.Severity == sev {
				out = append(out, issue)
			}
		}
	}
	return out
}

const fixPlanHeader = "# Fix Plan: %s\n\n"

// GenerateFixPlan renders the prioritized remediation plan for result.
func GenerateFixPlan(w io.Writer, result model.AuditRunResult) error {
	var b strings.Builder
	fmt.Fprintf(&b, fixPlanHeader, result.SiteID)

	writeP0Section(&b, result.Issues)
	writeSystemicSection(&b, result.Issues)
	writeByCategorySection(&b, result.Issues, model.SeverityP1, "## 3. Page-Level P1 Issues")
	writeByCategorySection(&b, result.Issues, model.SeverityP2, "## 4. P2 Issues")

	b.WriteString("\n## Checklist\n\n")
	step := 1
	for _, cat := range sortedCategories(result.Issues) {
		fmt.Fprintf(&b, "%d. Resolve %s issues.\n", step, cat)
		step++
	}
	fmt.Fprintf(&b, "%d. Re-run audit to verify fixes.\n", step)

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("write fix plan: %w", err)
	}
	return nil
}

func writeP0Section(b *strings.Builder, issues []model.AuditIssue) {
	b.WriteString("## 1. Critical (P0) Issues\n\n")
	byCat := groupByCategory(filterSeverity(issues, model.SeverityP0))
	if len(byCat) == 0 {
		b.WriteString("None.\n\n")
		return
	}
	for _, cat := range sortedKeys(byCat) {
		fmt.Fprintf(b, "### %s\n\n", cat)
		for _, issue := range byCat[cat] {
			fmt.Fprintf(b, "- %s: %s\n", issue.URL, issue.Message)
		}
		b.WriteString("\n")
	}
}

func writeSystemicSection(b *strings.Builder, issues []model.AuditIssue) {
	b.WriteString("## 2. Systemic Fixes\n\n")
	byTarget := map[string][]model.AuditIssue{}
	for _, issue := range issues {
		if issue.SuggestedFix != nil && issue.SuggestedFix.Scope == model.FixScopeSystemic {
			byTarget[issue.SuggestedFix.Target] = append(byTarget[issue.SuggestedFix.Target], issue)
		}
	}
	if len(byTarget) == 0 {
		b.WriteString("None.\n\n")
		return
	}
	targets := make([]string, 0, len(byTarget))
	for t := range byTarget {
		targets = append(targets, t)
	}
	sort.Strings(targets)

	for _, target := range targets {
		group := byTarget[target]
		sevMix := map[model.Severity]int{}
		for _, issue := range group {
			sevMix[issue.Severity]++
		}
		fmt.Fprintf(b, "### %s\n\n", target)
		fmt.Fprintf(b, "Severity mix: P0=%d P1=%d P2=%d\n\n", sevMix[model.SeverityP0], sevMix[model.SeverityP1], sevMix[model.SeverityP2])
		sample := group
		if len(sample) > 10 {
			sample = sample[:10]
		}
		for _, issue := range sample {
			fmt.Fprintf(b, "- %s\n", issue.URL)
		}
		if group[0].SuggestedFix.Notes != "" {
			fmt.Fprintf(b, "\nFix: %s\n", group[0].SuggestedFix.Notes)
		}
		b.WriteString("\n")
	}
}

func writeByCategorySection(b *strings.Builder, issues []model.AuditIssue, sev model.Severity, heading string) {
	fmt.Fprintf(b, "%s\n\n", heading)
	byCat := groupByCategory(filterSeverity(issues, sev))
	if len(byCat) == 0 {
		b.WriteString("None.\n\n")
		return
	}
	for _, cat := range sortedKeys(byCat) {
		group := byCat[cat]
		fmt.Fprintf(b, "### %s (%d)\n\n", cat, len(group))
		sample := group
		if len(sample) > 15 {
			sample = sample[:15]
		}
		for _, issue := range sample {
			fmt.Fprintf(b, "- %s: %s\n", issue.URL, issue.Message)
		}
		b.WriteString("\n")
	}
}

func filterSeverity(issues []model.AuditIssue, sev model.Severity) []model.AuditIssue {
	var out []model.AuditIssue
	for _, issue := range issues {
		if issue.Severity == sev {
			out = append(out, issue)
		}
	}
	return out
}

func groupByCategory(issues []model.AuditIssue) map[model.Category][]model.AuditIssue {
	out := map[model.Category][]model.AuditIssue{}
	for _, issue := range issues {
		out[issue.Category] = append(out[issue.Category], issue)
	}
	return out
}

func sortedKeys(m map[model.Category][]model.AuditIssue) []model.Category {
	keys := make([]model.Category, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func sortedCategories(issues []model.AuditIssue) []model.Category {
	seen := map[model.Category]bool{}
	var out []model.Category
	for _, issue := range issues {
		if !seen[issue.Category] {
			seen[issue.Category] = true
			out = append(out, issue.Category)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
