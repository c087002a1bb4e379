package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/coastvine/seoauditor/internal/model"
)

func sampleResult() model.AuditRunResult {
	now := time.Now()
	return model.AuditRunResult{
		RunID:     "site-20260101-000000-aaaa",
		SiteID:    "site",
		Mode:      "full",
		StartTime: now,
		EndTime:   now.Add(2 * time.Minute),
		TotalURLs: 3,
		Issues: []model.AuditIssue{
			{Severity: model.SeverityP0, Category: model.CategoryHTTP, URL: "https://ex.com/a", Message: "connection failed"},
			{
				Severity: model.SeverityP1, Category: model.CategoryCanonical, URL: "https://ex.com/b", Message: "missing canonical",
				SuggestedFix: &model.SuggestedFix{Scope: model.FixScopeSystemic, Target: "canonical-template", Notes: "add canonical tag to base layout"},
			},
			{Severity: model.SeverityP2, Category: model.CategoryMetadata, URL: "https://ex.com/c", Message: "short title"},
		},
		HardGates: []model.HardGateResult{
			{Name: "no-critical-http-errors", Category: model.CategoryHTTP, P0Count: 1, TotalCount: 1, MaxP0: 0, MaxTotal: -1, Passed: false, SampleURLs: []string{"https://ex.com/a"}},
			{Name: "no-missing-canonical", Category: model.CategoryCanonical, P0Count: 0, TotalCount: 1, MaxP0: 0, MaxTotal: 0, Passed: false, SampleURLs: []string{"https://ex.com/b"}},
		},
		SoftGates: []model.SoftGateSummary{
			{Name: "pages-without-meta-description", Count: 1},
		},
		Inventory: []model.UrlInventoryEntry{
			{URL: "https://ex.com/a", Source: model.SourceSitemap},
			{URL: "https://ex.com/b", Source: model.SourceStatic},
			{URL: "https://ex.com/c", Source: model.SourceSitemap},
		},
	}
}

func TestComputeVerdict_FailsWhenAnyHardGateFails(t *testing.T) {
	if v := ComputeVerdict(sampleResult()); v != VerdictFail {
		t.Errorf("expected FAIL, got %s", v)
	}
}

func TestComputeVerdict_PassWithNoIssuesAndPassingGates(t *testing.T) {
	r := model.AuditRunResult{
		HardGates: []model.HardGateResult{{Name: "g", Passed: true}},
	}
	if v := ComputeVerdict(r); v != VerdictPass {
		t.Errorf("expected PASS, got %s", v)
	}
}

func TestGenerateExecSummary_ContainsKeySections(t *testing.T) {
	var buf bytes.Buffer
	if err := GenerateExecSummary(&buf, sampleResult()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"# Audit Summary: site",
		"Verdict:** FAIL",
		"no-critical-http-errors",
		"Failed gate: no-missing-canonical",
		"pages-without-meta-description",
		"connection failed",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestGenerateFixPlan_GroupsBySeverityAndSystemicTarget(t *testing.T) {
	var buf bytes.Buffer
	if err := GenerateFixPlan(&buf, sampleResult()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"## 1. Critical (P0) Issues",
		"connection failed",
		"## 2. Systemic Fixes",
		"canonical-template",
		"add canonical tag to base layout",
		"## 3. Page-Level P1 Issues",
		"## 4. P2 Issues",
		"Re-run audit to verify fixes.",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected fix plan to contain %q, got:\n%s", want, out)
		}
	}
}

func TestGenerateFixPlan_NoSystemicFixesIsExplicit(t *testing.T) {
	r := model.AuditRunResult{
		SiteID: "site",
		Issues: []model.AuditIssue{
			{Severity: model.SeverityP0, Category: model.CategoryHTTP, URL: "https://ex.com/a", Message: "down"},
		},
	}
	var buf bytes.Buffer
	if err := GenerateFixPlan(&buf, r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()
	idx := strings.Index(out, "## 2. Systemic Fixes")
	if idx == -1 {
		t.Fatal("expected systemic fixes section")
	}
	if !strings.Contains(out[idx:idx+60], "None.") {
		t.Errorf("expected explicit None. after systemic fixes heading, got:\n%s", out[idx:idx+60])
	}
}
