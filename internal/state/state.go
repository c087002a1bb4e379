// Package state persists and restores the durable run descriptor
// (AuditState) and the crawl-results snapshot that together make resume
// possible (§4.7 of the audit specification). Each write is one
// os.WriteFile call, with no temp file or rename: a crash mid-write can
// leave a partial file, which then fails to parse and LoadState returns an
// error rather than a half-read state.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/coastvine/seoauditor/internal/model"
)

// Manager owns the on-disk state for one run.
type Manager struct {
	outputDir string
	runID     string
}

// NewRunID generates a fresh run identifier: <siteId>-YYYYMMDD-HHMMSS-<4hex>.
// The uuid-derived suffix makes collisions across concurrent fresh runs for
// the same site effectively impossible (§5).
func NewRunID(siteID string) string {
	nonce := uuid.New().String()[:4]
	return fmt.Sprintf("%s-%s-%s", siteID, time.Now().UTC().Format("20060102-150405"), nonce)
}

// New returns a Manager rooted at <outputDir>/<runID>/.
func New(outputDir, runID string) *Manager {
	return &Manager{outputDir: outputDir, runID: runID}
}

func (m *Manager) runDir() string {
	return filepath.Join(m.outputDir, m.runID)
}

// RunDir returns the directory this Manager persists state under:
// <outputDir>/<runID>/.
func (m *Manager) RunDir() string {
	return m.runDir()
}

func (m *Manager) statePath() string {
	return filepath.Join(m.runDir(), "state.json")
}

func (m *Manager) crawlResultsPath() string {
	return filepath.Join(m.runDir(), "crawl-results.json")
}

// CreateState materializes batches by slicing urls into chunks of
// batchSize; every batch starts pending.
func CreateState(runID, siteID, mode, baseURL string, urls []string, batchSize int) model.AuditState {
	var batches []model.Batch
	if batchSize <= 0 {
		batchSize = len(urls)
	}
	for start, idx := 0, 0; start < len(urls); start, idx = start+batchSize, idx+1 {
		end := start + batchSize
		if end > len(urls) {
			end = len(urls)
		}
		batches = append(batches, model.Batch{Index: idx, URLs: urls[start:end], Status: model.BatchPending})
	}
	now := time.Now().UTC()
	return model.AuditState{
		RunID:                 runID,
		SiteID:                siteID,
		Mode:                  mode,
		BaseURL:               baseURL,
		Status:                model.RunRunning,
		Batches:               batches,
		CompletedBatchIndices: map[int]bool{},
		Progress:              model.Progress{TotalURLs: len(urls)},
		StartTime:             now,
		LastUpdated:           now,
	}
}

// SaveState recomputes progress and lastUpdated, then writes state.json.
func (m *Manager) SaveState(s *model.AuditState) error {
	s.Progress.ProcessedURLs = 0
	for _, b := range s.Batches {
		if b.Status == model.BatchCompleted {
			s.Progress.ProcessedURLs += len(b.URLs)
		}
	}
	s.LastUpdated = time.Now().UTC()

	if err := os.MkdirAll(m.runDir(), 0o755); err != nil {
		return fmt.Errorf("create run dir: %w", err)
	}
	raw, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	if err := os.WriteFile(m.statePath(), raw, 0o644); err != nil {
		return fmt.Errorf("write state.json: %w", err)
	}
	return nil
}

// LoadState reads and parses state.json.
func (m *Manager) LoadState() (model.AuditState, error) {
	raw, err := os.ReadFile(m.statePath())
	if err != nil {
		return model.AuditState{}, fmt.Errorf("read state.json: %w", err)
	}
	var s model.AuditState
	if err := json.Unmarshal(raw, &s); err != nil {
		return model.AuditState{}, fmt.Errorf("parse state.json: %w", err)
	}
	if s.CompletedBatchIndices == nil {
		s.CompletedBatchIndices = map[int]bool{}
	}
	return s, nil
}

// crawlResultPair mirrors the [url, CrawlResult] tuple format written to
// crawl-results.json.
type crawlResultPair struct {
	URL    string            `json:"url"`
	Result model.CrawlResult `json:"result"`
}

// SaveCrawlResults rewrites crawl-results.json as a full snapshot.
func (m *Manager) SaveCrawlResults(results map[string]model.CrawlResult) error {
	urls := make([]string, 0, len(results))
	for u := range results {
		urls = append(urls, u)
	}
	sort.Strings(urls)

	pairs := make([]crawlResultPair, 0, len(urls))
	for _, u := range urls {
		pairs = append(pairs, crawlResultPair{URL: u, Result: results[u]})
	}

	if err := os.MkdirAll(m.runDir(), 0o755); err != nil {
		return fmt.Errorf("create run dir: %w", err)
	}
	raw, err := json.MarshalIndent(pairs, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal crawl results: %w", err)
	}
	if err := os.WriteFile(m.crawlResultsPath(), raw, 0o644); err != nil {
		return fmt.Errorf("write crawl-results.json: %w", err)
	}
	return nil
}

// LoadCrawlResults reads crawl-results.json, returning an empty map if it
// does not exist.
func (m *Manager) LoadCrawlResults() (map[string]model.CrawlResult, error) {
	raw, err := os.ReadFile(m.crawlResultsPath())
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]model.CrawlResult{}, nil
		}
		return nil, fmt.Errorf("read crawl-results.json: %w", err)
	}
	var pairs []crawlResultPair
	if err := json.Unmarshal(raw, &pairs); err != nil {
		return nil, fmt.Errorf("parse crawl-results.json: %w", err)
	}
	out := make(map[string]model.CrawlResult, len(pairs))
	for _, p := range pairs {
		out[p.URL] = p.Result
	}
	return out, nil
}

// MarkBatchStarted transitions batch index to running and stamps StartedAt.
func MarkBatchStarted(s *model.AuditState, index int) {
	now := time.Now().UTC()
	for i := range s.Batches {
		if s.Batches[i].Index == index {
			s.Batches[i].Status = model.BatchRunning
			s.Batches[i].StartedAt = &now
			return
		}
	}
}

// MarkBatchCompleted transitions batch index to completed and accumulates
// issuesFound into the state's cumulative issue count.
func MarkBatchCompleted(s *model.AuditState, index, issuesFound int) {
	now := time.Now().UTC()
	for i := range s.Batches {
		if s.Batches[i].Index == index {
			s.Batches[i].Status = model.BatchCompleted
			s.Batches[i].EndedAt = &now
			break
		}
	}
	if s.CompletedBatchIndices == nil {
		s.CompletedBatchIndices = map[int]bool{}
	}
	s.CompletedBatchIndices[index] = true
	s.CumulativeIssueCount += issuesFound
}

// MarkBatchFailed transitions batch index to failed and records the error.
func MarkBatchFailed(s *model.AuditState, index int, errMsg string) {
	now := time.Now().UTC()
	for i := range s.Batches {
		if s.Batches[i].Index == index {
			s.Batches[i].Status = model.BatchFailed
			s.Batches[i].EndedAt = &now
			break
		}
	}
	RecordError(s, errMsg, "")
}

// RecordError appends an engine-level error entry, distinct from an SEO
// finding.
func RecordError(s *model.AuditState, message, url string) {
	s.Errors = append(s.Errors, model.ErrorLogEntry{Message: message, URL: url, Timestamp: time.Now().UTC()})
}

// GetPendingBatchIndices returns the indices of every batch not yet
// completed, in ascending order.
func GetPendingBatchIndices(s model.AuditState) []int {
	var pending []int
	for _, b := range s.Batches {
		if b.Status != model.BatchCompleted {
			pending = append(pending, b.Index)
		}
	}
	sort.Ints(pending)
	return pending
}

// FindLatestRunID scans outputDir for directories prefixed "<siteID>-" and
// returns the lexicographically greatest, which is also the most recent
// given the runId format <siteId>-YYYYMMDD-HHMMSS-<hex>.
func FindLatestRunID(outputDir, siteID string) (string, bool) {
	entries, err := os.ReadDir(outputDir)
	if err != nil {
		return "", false
	}
	prefix := siteID + "-"
	var candidates []string
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), prefix) {
			candidates = append(candidates, e.Name())
		}
	}
	if len(candidates) == 0 {
		return "", false
	}
	sort.Sort(sort.Reverse(sort.StringSlice(candidates)))
	return candidates[0], true
}
