// Package config loads and merges the audit engine's configuration:
// hardcoded defaults, a shared default file, a per-site override file, and
// runtime overrides, in that precedence order.
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// CrawlSettings controls the Crawler (§4.3).
type CrawlSettings struct {
	Concurrency      int     `json:"concurrency"`
	RateDelayMs      int     `json:"rateDelayMs"`
	TimeoutMs        int     `json:"timeoutMs"`
	MaxRetries       int     `json:"maxRetries"`
	RetryBaseDelayMs int     `json:"retryBaseDelayMs"`
	MaxRedirects     int     `json:"maxRedirects"`
	UserAgent        string  `json:"userAgent"`
}

// LengthBounds is an inclusive [Min, Max] character bound, used for both
// titleLength and descriptionLength.
type LengthBounds struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// ValidatorConfig controls the eight validators (§4.5).
type ValidatorConfig struct {
	AllowedStatuses        []int        `json:"allowedStatuses"`
	AllowedCanonicalParams []string     `json:"allowedCanonicalParams"`
	ExpectedHreflangLangs  []string     `json:"expectedHreflangLangs"`
	ExpectXDefault         bool         `json:"expectXDefault"`
	MaxSitemapUrls         int          `json:"maxSitemapUrls"`
	DeprecatedSchemaTypes  []string     `json:"deprecatedSchemaTypes"`
	RequiredSchemaByRoute  map[string][]string `json:"requiredSchemaByRoute"`
	TitleLength            LengthBounds `json:"titleLength"`
	DescriptionLength      LengthBounds `json:"descriptionLength"`
}

// RiskScannerConfig controls the three risk scanners (§4.6).
type RiskScannerConfig struct {
	Enabled                     bool    `json:"enabled"`
	DuplicateSimilarityThreshold float64 `json:"duplicateSimilarityThreshold"`
	ScaledContentMinClusterSize int     `json:"scaledContentMinClusterSize"`
	ThinContentThreshold        int     `json:"thinContentThreshold"`
	EntityCoverageMinScore      float64 `json:"entityCoverageMinScore"`
	OutboundDominanceThreshold  float64 `json:"outboundDominanceThreshold"`
	TopicPivotScoreThreshold    float64 `json:"topicPivotScoreThreshold"`
}

// HardGateConfig is one pass/fail gate definition (§4.8 step 5).
type HardGateConfig struct {
	Name     string   `json:"name"`
	Category string   `json:"category"`
	MaxP0    int      `json:"maxP0"`
	MaxTotal int      `json:"maxTotal"` // -1 = unlimited
}

// SoftGateConfig controls the informational soft-gate thresholds (§4.8 step 6).
type SoftGateConfig struct {
	MinWordCount int `json:"minWordCount"`
}

// AuditConfig is the fully merged, validated configuration for one run.
type AuditConfig struct {
	SiteID             string            `json:"siteId"`
	BaseURL            string            `json:"baseUrl"`
	OutputDir          string            `json:"outputDir"`
	BatchSize          int               `json:"batchSize"`
	StaticRoutes       []string          `json:"staticRoutes"`
	IncludeArVariants  bool              `json:"includeArVariants"`
	ExcludePatterns    []string          `json:"excludePatterns"`
	Crawl              CrawlSettings     `json:"crawl"`
	Validators         ValidatorConfig   `json:"validators"`
	RiskScanners       RiskScannerConfig `json:"riskScanners"`
	HardGates          []HardGateConfig  `json:"hardGates"`
	SoftGates          SoftGateConfig    `json:"softGates"`
}

// Overrides is a partial, runtime-supplied configuration layer. Nil fields
// are a no-op; they never overwrite a lower layer.
type Overrides map[string]any

func defaults() AuditConfig {
	return AuditConfig{
		OutputDir:         "audit-runs",
		BatchSize:         20,
		IncludeArVariants: false,
		ExcludePatterns:   []string{},
		Crawl: CrawlSettings{
			Concurrency:      5,
			RateDelayMs:      200,
			TimeoutMs:        15000,
			MaxRetries:       2,
			RetryBaseDelayMs: 500,
			MaxRedirects:     5,
			UserAgent:        "SEOAuditBot/1.0 (+https://example.invalid/bot)",
		},
		Validators: ValidatorConfig{
			AllowedStatuses:        []int{200, 301, 308},
			AllowedCanonicalParams: []string{},
			ExpectedHreflangLangs:  []string{},
			ExpectXDefault:         false,
			MaxSitemapUrls:         50000,
			DeprecatedSchemaTypes:  []string{},
			RequiredSchemaByRoute:  map[string][]string{},
			TitleLength:            LengthBounds{Min: 15, Max: 60},
			DescriptionLength:      LengthBounds{Min: 50, Max: 160},
		},
		RiskScanners: RiskScannerConfig{
			Enabled:                      true,
			DuplicateSimilarityThreshold: 0.8,
			ScaledContentMinClusterSize:  3,
			ThinContentThreshold:         200,
			EntityCoverageMinScore:       0.3,
			OutboundDominanceThreshold:   0.7,
			TopicPivotScoreThreshold:     0.7,
		},
		HardGates: []HardGateConfig{
			{Name: "no-critical-http-errors", Category: "http", MaxP0: 0, MaxTotal: -1},
			{Name: "no-missing-canonical", Category: "canonical", MaxP0: 0, MaxTotal: 0},
			{Name: "no-broken-schema", Category: "schema", MaxP0: 0, MaxTotal: -1},
			{Name: "no-invalid-sitemap", Category: "sitemap", MaxP0: 0, MaxTotal: -1},
		},
		SoftGates: SoftGateConfig{MinWordCount: 200},
	}
}

// Load resolves the final AuditConfig for siteID: hardcoded defaults, then
// the shared default file, then the per-site file, then runtime overrides.
// siteId is forced to the argument value after the final merge.
func Load(siteID string, configDir string, overrides Overrides, logger *slog.Logger) (AuditConfig, error) {
	if logger == nil {
		logger = slog.Default()
	}

	merged := toMap(defaults())

	if configDir == "" {
		configDir = "config/sites"
	}

	if layer, ok := readJSONFile(filepath.Join(configDir, "_default.audit.json"), logger); ok {
		merged = deepMerge(merged, layer)
	}
	if layer, ok := readJSONFile(filepath.Join(configDir, siteID+".audit.json"), logger); ok {
		merged = deepMerge(merged, layer)
	}
	if overrides != nil {
		merged = deepMerge(merged, map[string]any(overrides))
	}

	merged["siteId"] = siteID

	var cfg AuditConfig
	raw, err := json.Marshal(merged)
	if err != nil {
		return AuditConfig{}, fmt.Errorf("marshal merged config: %w", err)
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return AuditConfig{}, fmt.Errorf("unmarshal merged config: %w", err)
	}

	if errs := validate(cfg); len(errs) > 0 {
		return AuditConfig{}, fmt.Errorf("invalid config: %s", joinErrors(errs))
	}

	return cfg, nil
}

func readJSONFile(path string, logger *slog.Logger) (map[string]any, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("failed to read config file", "path", path, "err", err)
		}
		return nil, false
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		logger.Warn("malformed config JSON, skipping", "path", path, "err", err)
		return nil, false
	}
	return m, true
}

func toMap(cfg AuditConfig) map[string]any {
	raw, err := json.Marshal(cfg)
	if err != nil {
		panic(fmt.Sprintf("marshal hardcoded defaults: %v", err))
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		panic(fmt.Sprintf("unmarshal hardcoded defaults: %v", err))
	}
	return m
}

// deepMerge merges src into dst, src winning. Plain-object keys deep-merge
// recursively; arrays and primitives are replaced wholesale; a nil value in
// src never overwrites dst.
func deepMerge(dst, src map[string]any) map[string]any {
	out := make(map[string]any, len(dst))
	for k, v := range dst {
		out[k] = v
	}
	for k, v := range src {
		if v == nil {
			continue
		}
		if srcObj, ok := v.(map[string]any); ok {
			if dstObj, ok := out[k].(map[string]any); ok {
				out[k] = deepMerge(dstObj, srcObj)
				continue
			}
		}
		out[k] = v
	}
	return out
}

func validate(cfg AuditConfig) []string {
	var errs []string
	if cfg.SiteID == "" {
		errs = append(errs, "siteId must not be empty")
	}
	if cfg.BaseURL == "" {
		errs = append(errs, "baseUrl must not be empty")
	}
	if cfg.Crawl.Concurrency < 1 {
		errs = append(errs, "crawl.concurrency must be >= 1")
	}
	if cfg.BatchSize < 1 {
		errs = append(errs, "batchSize must be >= 1")
	}
	if cfg.Crawl.TimeoutMs < 1000 {
		errs = append(errs, "crawl.timeoutMs must be >= 1000")
	}
	if cfg.Validators.TitleLength.Min >= cfg.Validators.TitleLength.Max {
		errs = append(errs, "validators.titleLength.min must be < max")
	}
	if cfg.Validators.DescriptionLength.Min >= cfg.Validators.DescriptionLength.Max {
		errs = append(errs, "validators.descriptionLength.min must be < max")
	}
	return errs
}

func joinErrors(errs []string) string {
	out := ""
	for i, e := range errs {
		if i > 0 {
			out += "; "
		}
		out += e
	}
	return out
}
