// Package history persists a one-row summary of each completed run so
// operators can see a site's audit trend over time, without needing the
// full result.json of every past run on disk.
package history

import (
	"context"
	"time"
)

// RunSummary is one completed (or failed) run's headline numbers.
type RunSummary struct {
	RunID        string
	SiteID       string
	Mode         string
	StartedAt    time.Time
	EndedAt      time.Time
	TotalURLs    int
	IssueCounts  map[string]int // severity -> count
	GatesPassed  bool
}

// Store persists and retrieves RunSummary rows.
type Store interface {
	Save(ctx context.Context, s RunSummary) error
	Recent(ctx context.Context, siteID string, limit int) ([]RunSummary, error)
	Close() error
}

// Noop discards every Save and returns no history. It is the default
// when no history backend is configured, so the rest of the engine
// behaves exactly as if history did not exist.
type Noop struct{}

func (Noop) Save(context.Context, RunSummary) error                 { return nil }
func (Noop) Recent(context.Context, string, int) ([]RunSummary, error) { return nil, nil }
func (Noop) Close() error                                            { return nil }
