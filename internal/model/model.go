// Package model defines the audit engine's shared data types: the record
// produced by a single fetch, the signals extracted from it, the issues
// validators emit, and the run-level state and result types the
// orchestrator assembles.
package model

import "time"

// RedirectHop is one entry in a CrawlResult's redirect chain.
type RedirectHop struct {
	URL    string `json:"url"`
	Status int    `json:"status"`
}

// CrawlResult is what one fetch produced. StatusCode is 0 if the connection
// failed outright. Headers are lowercased keys. Body is empty on failure.
type CrawlResult struct {
	RequestedURL string            `json:"requestedUrl"`
	FinalURL     string            `json:"finalUrl"`
	StatusCode   int               `json:"statusCode"`
	Redirects    []RedirectHop     `json:"redirects"`
	Headers      map[string]string `json:"headers"`
	Body         string            `json:"body"`
	StartedAt    time.Time         `json:"startedAt"`
	EndedAt      time.Time         `json:"endedAt"`
	DurationMs   int64             `json:"durationMs"`
	Error        string            `json:"error,omitempty"`
}

// Success reports whether the fetch produced an HTTP response at all
// (connection failures leave StatusCode at 0).
func (r CrawlResult) Success() bool {
	return r.StatusCode != 0
}

// HreflangAlternate is one <link rel="alternate" hreflang="..."> entry.
type HreflangAlternate struct {
	Lang string `json:"lang"`
	Href string `json:"href"`
}

// Heading is one hN element's level and stripped text.
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}

// JSONLDBlock is a parsed <script type="application/ld+json"> payload, or a
// sentinel recording that it failed to parse.
type JSONLDBlock struct {
	Data       map[string]any `json:"data,omitempty"`
	ParseError bool           `json:"parseError,omitempty"`
	RawSnippet string         `json:"rawSnippet,omitempty"`
}

// Link is one resolved anchor, classified internal or external by the
// extractor.
type Link struct {
	Href string `json:"href"`
	Text string `json:"text"`
	Rel  string `json:"rel"`
}

// ExtractedSignals is the parsed head-level projection of one HTML
// document. A missing signal is the zero value (empty string / nil slice),
// never an error.
type ExtractedSignals struct {
	URL             string              `json:"url"`
	Title           string              `json:"title"`
	MetaDescription string              `json:"metaDescription"`
	Canonical       string              `json:"canonical"`
	RobotsMeta      string              `json:"robotsMeta"`
	Hreflangs       []HreflangAlternate `json:"hreflangs"`
	Headings        []Heading           `json:"headings"`
	JSONLD          []JSONLDBlock       `json:"jsonLd"`
	InternalLinks   []Link              `json:"internalLinks"`
	ExternalLinks   []Link              `json:"externalLinks"`
	HTMLLang        string              `json:"htmlLang"`
	HTMLDir         string              `json:"htmlDir"`
	BodyDir         string              `json:"bodyDir"`
	WordCount       int                 `json:"wordCount"`
}

// Severity is the closed set of issue severities.
type Severity string

const (
	SeverityP0 Severity = "P0"
	SeverityP1 Severity = "P1"
	SeverityP2 Severity = "P2"
)

// Category is the closed set of issue categories.
type Category string

const (
	CategoryHTTP       Category = "http"
	CategoryCanonical  Category = "canonical"
	CategoryHreflang   Category = "hreflang"
	CategorySitemap    Category = "sitemap"
	CategorySchema     Category = "schema"
	CategoryLinks      Category = "links"
	CategoryMetadata   Category = "metadata"
	CategoryRobots     Category = "robots"
	CategoryRisk       Category = "risk"
)

// FixScope is the scope of a suggested fix.
type FixScope string

const (
	FixScopeSystemic  FixScope = "systemic"
	FixScopePageLevel FixScope = "page-level"
)

// SuggestedFix is an optional remediation hint attached to an AuditIssue.
type SuggestedFix struct {
	Scope  FixScope `json:"scope"`
	Target string   `json:"target"`
	Notes  string   `json:"notes,omitempty"`
}

// AuditIssue is one finding. Issues are append-only once produced.
type AuditIssue struct {
	Severity     Severity      `json:"severity"`
	Category     Category      `json:"category"`
	URL          string        `json:"url"`
	Message      string        `json:"message"`
	Evidence     string        `json:"evidence,omitempty"`
	SuggestedFix *SuggestedFix `json:"suggestedFix,omitempty"`
}

// InventorySource is the closed set of where an inventory URL came from.
type InventorySource string

const (
	SourceSitemap   InventorySource = "sitemap"
	SourceStatic    InventorySource = "static"
	SourceArVariant InventorySource = "ar-variant"
)

// UrlInventoryEntry is one URL slated for crawling, decorated after the
// crawl with its final status and issue count.
type UrlInventoryEntry struct {
	URL         string          `json:"url"`
	Source      InventorySource `json:"source"`
	FinalStatus *int            `json:"finalStatus,omitempty"`
	IssueCount  *int            `json:"issueCount,omitempty"`
}

// BatchStatus is the lifecycle of one crawl batch.
type BatchStatus string

const (
	BatchPending   BatchStatus = "pending"
	BatchRunning   BatchStatus = "running"
	BatchCompleted BatchStatus = "completed"
	BatchFailed    BatchStatus = "failed"
)

// Batch is a slice of the inventory assigned a sequential index.
type Batch struct {
	Index     int         `json:"index"`
	URLs      []string    `json:"urls"`
	Status    BatchStatus `json:"status"`
	StartedAt *time.Time  `json:"startedAt,omitempty"`
	EndedAt   *time.Time  `json:"endedAt,omitempty"`
}

// RunStatus is the lifecycle of an audit run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunPaused    RunStatus = "paused"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// ErrorLogEntry records one engine-level failure (not an SEO finding).
type ErrorLogEntry struct {
	Message   string    `json:"message"`
	URL       string    `json:"url,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Progress tracks how many URLs of the inventory have been processed.
type Progress struct {
	ProcessedURLs int `json:"processedUrls"`
	TotalURLs     int `json:"totalUrls"`
}

// AuditState is the durable run descriptor persisted to state.json.
// Invariant: CompletedBatchIndices is a subset of the indices whose
// Batches[i].Status == BatchCompleted.
type AuditState struct {
	RunID                 string          `json:"runId"`
	SiteID                string          `json:"siteId"`
	Mode                  string          `json:"mode"`
	BaseURL               string          `json:"baseUrl"`
	Status                RunStatus       `json:"status"`
	Batches               []Batch         `json:"batches"`
	CompletedBatchIndices map[int]bool    `json:"completedBatchIndices"`
	CumulativeIssueCount  int             `json:"cumulativeIssueCount"`
	Errors                []ErrorLogEntry `json:"errors"`
	Progress              Progress        `json:"progress"`
	StartTime             time.Time       `json:"startTime"`
	LastUpdated           time.Time       `json:"lastUpdated"`
}

// HardGateResult is the pass/fail evaluation of one configured hard gate.
type HardGateResult struct {
	Name        string   `json:"name"`
	Category    Category `json:"category"`
	P0Count     int      `json:"p0Count"`
	TotalCount  int      `json:"totalCount"`
	MaxP0       int      `json:"maxP0"`
	MaxTotal    int      `json:"maxTotal"`
	Passed      bool     `json:"passed"`
	SampleURLs  []string `json:"sampleUrls,omitempty"`
}

// SoftGateSummary is an informational, non-blocking grouping.
type SoftGateSummary struct {
	Name  string   `json:"name"`
	Count int      `json:"count"`
	URLs  []string `json:"urls,omitempty"`
}

// AuditRunResult is the engine's public output.
type AuditRunResult struct {
	RunID            string              `json:"runId"`
	SiteID           string              `json:"siteId"`
	Mode             string              `json:"mode"`
	StartTime        time.Time           `json:"startTime"`
	EndTime          time.Time           `json:"endTime"`
	TotalURLs        int                 `json:"totalUrls"`
	Issues           []AuditIssue        `json:"issues"`
	HardGates        []HardGateResult    `json:"hardGates"`
	SoftGates        []SoftGateSummary   `json:"softGates"`
	Inventory        []UrlInventoryEntry `json:"inventory"`
}

// AllHardGatesPassed reports whether every hard gate result passed.
func (r AuditRunResult) AllHardGatesPassed() bool {
	for _, g := range r.HardGates {
		if !g.Passed {
			return false
		}
	}
	return true
}

// SeverityCounts tallies issues by severity.
func (r AuditRunResult) SeverityCounts() map[Severity]int {
	counts := map[Severity]int{SeverityP0: 0, SeverityP1: 0, SeverityP2: 0}
	for _, issue := range r.Issues {
		counts[issue.Severity]++
	}
	return counts
}

// CategoryCounts tallies issues by category.
func (r AuditRunResult) CategoryCounts() map[Category]int {
	counts := map[Category]int{}
	for _, issue := range r.Issues {
		counts[issue.Category]++
	}
	return counts
}
