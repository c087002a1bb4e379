// Package sqlitestore is the default history.Store: a single local file,
// no external services, via modernc.org/sqlite (pure Go, no cgo).
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/coastvine/seoauditor/internal/history"
	_ "modernc.org/sqlite"
)

var _ history.Store = (*Store)(nil)

type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS run_summaries (
	run_id TEXT PRIMARY KEY,
	site_id TEXT NOT NULL,
	mode TEXT NOT NULL,
	started_at DATETIME NOT NULL,
	ended_at DATETIME NOT NULL,
	total_urls INTEGER NOT NULL,
	issue_counts TEXT NOT NULL,
	gates_passed BOOLEAN NOT NULL
);
`

// New opens (creating if absent) a sqlite database at dsn and ensures the
// run_summaries table exists.
func New(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite history store: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create run_summaries table: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Save(ctx context.Context, r history.RunSummary) error {
	countsJSON, err := json.Marshal(r.IssueCounts)
	if err != nil {
		return fmt.Errorf("marshal issue counts: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO run_summaries (run_id, site_id, mode, started_at, ended_at, total_urls, issue_counts, gates_passed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET ended_at=excluded.ended_at, total_urls=excluded.total_urls,
			issue_counts=excluded.issue_counts, gates_passed=excluded.gates_passed
	`, r.RunID, r.SiteID, r.Mode, r.StartedAt, r.EndedAt, r.TotalURLs, string(countsJSON), r.GatesPassed)
	if err != nil {
		return fmt.Errorf("save run summary: %w", err)
	}
	return nil
}

func (s *Store) Recent(ctx context.Context, siteID string, limit int) ([]history.RunSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, site_id, mode, started_at, ended_at, total_urls, issue_counts, gates_passed
		FROM run_summaries WHERE site_id = ? ORDER BY started_at DESC LIMIT ?
	`, siteID, limit)
	if err != nil {
		return nil, fmt.Errorf("query run summaries: %w", err)
	}
	defer rows.Close()

	var out []history.RunSummary
	for rows.Next() {
		var r history.RunSummary
		var countsJSON string
		if err := rows.Scan(&r.RunID, &r.SiteID, &r.Mode, &r.StartedAt, &r.EndedAt, &r.TotalURLs, &countsJSON, &r.GatesPassed); err != nil {
			return nil, fmt.Errorf("scan run summary: %w", err)
		}
		if err := json.Unmarshal([]byte(countsJSON), &r.IssueCounts); err != nil {
			return nil, fmt.Errorf("unmarshal issue counts: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}
