package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad_DefaultsAndSiteID(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load("acme", dir, Overrides{"baseUrl": "https://acme.example"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.SiteID != "acme" {
		t.Errorf("siteId = %q, want acme", cfg.SiteID)
	}
	if cfg.Crawl.Concurrency != 5 {
		t.Errorf("default concurrency = %d, want 5", cfg.Crawl.Concurrency)
	}
	if cfg.BatchSize != 20 {
		t.Errorf("default batchSize = %d, want 20", cfg.BatchSize)
	}
}

func TestLoad_SiteIDAlwaysForcedToArgument(t *testing.T) {
	dir := t.TempDir()
	writeJSON(t, filepath.Join(dir, "_default.audit.json"), `{"siteId":"wrong","baseUrl":"https://a.example"}`)
	cfg, err := Load("correct", dir, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.SiteID != "correct" {
		t.Errorf("siteId = %q, want correct", cfg.SiteID)
	}
}

func TestLoad_PerSiteOverridesDefault(t *testing.T) {
	dir := t.TempDir()
	writeJSON(t, filepath.Join(dir, "_default.audit.json"), `{"baseUrl":"https://default.example","batchSize":10}`)
	writeJSON(t, filepath.Join(dir, "acme.audit.json"), `{"batchSize":30,"crawl":{"concurrency":8}}`)

	cfg, err := Load("acme", dir, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.BaseURL != "https://default.example" {
		t.Errorf("baseUrl = %q, want inherited default", cfg.BaseURL)
	}
	if cfg.BatchSize != 30 {
		t.Errorf("batchSize = %d, want 30 (site override)", cfg.BatchSize)
	}
	if cfg.Crawl.Concurrency != 8 {
		t.Errorf("crawl.concurrency = %d, want 8 (site override, other crawl fields preserved)", cfg.Crawl.Concurrency)
	}
	if cfg.Crawl.TimeoutMs != 15000 {
		t.Errorf("crawl.timeoutMs = %d, want default 15000 preserved by deep merge", cfg.Crawl.TimeoutMs)
	}
}

func TestLoad_MissingFilesSkippedSilently(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load("acme", dir, Overrides{"baseUrl": "https://acme.example"}, nil)
	if err != nil {
		t.Fatalf("unexpected error with no config files present: %v", err)
	}
	if cfg.BaseURL != "https://acme.example" {
		t.Errorf("baseUrl = %q", cfg.BaseURL)
	}
}

func TestLoad_MalformedJSONLoggedAndSkipped(t *testing.T) {
	dir := t.TempDir()
	writeJSON(t, filepath.Join(dir, "_default.audit.json"), `{not json`)
	cfg, err := Load("acme", dir, Overrides{"baseUrl": "https://acme.example"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.BatchSize != 20 {
		t.Errorf("expected hardcoded default to survive malformed file, got batchSize=%d", cfg.BatchSize)
	}
}

func TestLoad_ValidationAggregatesAllViolations(t *testing.T) {
	dir := t.TempDir()
	overrides := Overrides{
		"baseUrl":   "",
		"batchSize": 0,
		"crawl":     map[string]any{"concurrency": 0, "timeoutMs": 10},
	}
	_, err := Load("", dir, overrides, nil)
	if err == nil {
		t.Fatal("expected error for multiple violations")
	}
	msg := err.Error()
	for _, want := range []string{"siteId", "baseUrl", "batchSize", "concurrency", "timeoutMs"} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected error message to mention %q, got: %s", want, msg)
		}
	}
}

func TestDeepMerge_ArraysReplaceWholesale(t *testing.T) {
	dst := map[string]any{"list": []any{"a", "b"}}
	src := map[string]any{"list": []any{"c"}}
	out := deepMerge(dst, src)
	list := out["list"].([]any)
	if len(list) != 1 || list[0] != "c" {
		t.Errorf("expected array to be replaced wholesale, got %v", list)
	}
}

func TestDeepMerge_NilNeverOverwrites(t *testing.T) {
	dst := map[string]any{"keep": "value"}
	src := map[string]any{"keep": nil}
	out := deepMerge(dst, src)
	if out["keep"] != "value" {
		t.Errorf("expected nil in source to be a no-op, got %v", out["keep"])
	}
}

func TestDeepMerge_PlainObjectsMergeKeyWise(t *testing.T) {
	dst := map[string]any{"obj": map[string]any{"a": 1, "b": 2}}
	src := map[string]any{"obj": map[string]any{"b": 3, "c": 4}}
	out := deepMerge(dst, src)
	obj := out["obj"].(map[string]any)
	if obj["a"] != 1.0 && obj["a"] != 1 {
		t.Errorf("expected a to be preserved, got %v", obj["a"])
	}
	if obj["b"] != 3 {
		t.Errorf("expected b to be overwritten, got %v", obj["b"])
	}
	if obj["c"] != 4 {
		t.Errorf("expected c to be added, got %v", obj["c"])
	}
}

func writeJSON(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
}
