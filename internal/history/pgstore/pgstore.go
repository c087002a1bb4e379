// Package pgstore is the opt-in Postgres-backed history.Store, selected
// via --historyDSN=postgres://... when a shared, queryable history across
// machines is wanted instead of a local sqlite file.
package pgstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coastvine/seoauditor/internal/history"
)

var _ history.Store = (*Store)(nil)

type Store struct {
	pool *pgxpool.Pool
}

const schema = `
CREATE TABLE IF NOT EXISTS run_summaries (
	run_id TEXT PRIMARY KEY,
	site_id TEXT NOT NULL,
	mode TEXT NOT NULL,
	started_at TIMESTAMPTZ NOT NULL,
	ended_at TIMESTAMPTZ NOT NULL,
	total_urls INTEGER NOT NULL,
	issue_counts JSONB NOT NULL,
	gates_passed BOOLEAN NOT NULL
);
`

// New connects to dsn and ensures the run_summaries table exists.
func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to history database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping history database: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create run_summaries table: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Save(ctx context.Context, r history.RunSummary) error {
	countsJSON, err := json.Marshal(r.IssueCounts)
	if err != nil {
		return fmt.Errorf("marshal issue counts: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO run_summaries (run_id, site_id, mode, started_at, ended_at, total_urls, issue_counts, gates_passed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (run_id) DO UPDATE SET ended_at=excluded.ended_at, total_urls=excluded.total_urls,
			issue_counts=excluded.issue_counts, gates_passed=excluded.gates_passed
	`, r.RunID, r.SiteID, r.Mode, r.StartedAt, r.EndedAt, r.TotalURLs, countsJSON, r.GatesPassed)
	if err != nil {
		return fmt.Errorf("save run summary: %w", err)
	}
	return nil
}

func (s *Store) Recent(ctx context.Context, siteID string, limit int) ([]history.RunSummary, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT run_id, site_id, mode, started_at, ended_at, total_urls, issue_counts, gates_passed
		FROM run_summaries WHERE site_id = $1 ORDER BY started_at DESC LIMIT $2
	`, siteID, limit)
	if err != nil {
		return nil, fmt.Errorf("query run summaries: %w", err)
	}
	defer rows.Close()

	var out []history.RunSummary
	for rows.Next() {
		var r history.RunSummary
		var countsJSON []byte
		if err := rows.Scan(&r.RunID, &r.SiteID, &r.Mode, &r.StartedAt, &r.EndedAt, &r.TotalURLs, &countsJSON, &r.GatesPassed); err != nil {
			return nil, fmt.Errorf("scan run summary: %w", err)
		}
		if err := json.Unmarshal(countsJSON, &r.IssueCounts); err != nil {
			return nil, fmt.Errorf("unmarshal issue counts: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
