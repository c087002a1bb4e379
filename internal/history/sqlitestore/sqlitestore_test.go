package sqlitestore

import (
	"context"
	"testing"
	"time"

	"github.com/coastvine/seoauditor/internal/history"
)

func TestStore_SaveAndRecent(t *testing.T) {
	s, err := New("file::memory:?cache=shared")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	now := time.Now().UTC()

	older := history.RunSummary{
		RunID: "site-20260101-000000-aaaa", SiteID: "site", Mode: "full",
		StartedAt: now.Add(-time.Hour), EndedAt: now.Add(-time.Hour + time.Minute),
		TotalURLs: 10, IssueCounts: map[string]int{"P0": 0, "P1": 2}, GatesPassed: true,
	}
	newer := history.RunSummary{
		RunID: "site-20260102-000000-bbbb", SiteID: "site", Mode: "full",
		StartedAt: now, EndedAt: now.Add(time.Minute),
		TotalURLs: 12, IssueCounts: map[string]int{"P0": 1, "P1": 0}, GatesPassed: false,
	}

	if err := s.Save(ctx, older); err != nil {
		t.Fatalf("Save older: %v", err)
	}
	if err := s.Save(ctx, newer); err != nil {
		t.Fatalf("Save newer: %v", err)
	}

	recent, err := s.Recent(ctx, "site", 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(recent))
	}
	if recent[0].RunID != newer.RunID {
		t.Errorf("expected most recent run first, got %s", recent[0].RunID)
	}
	if recent[0].IssueCounts["P0"] != 1 {
		t.Errorf("issue counts not round-tripped: %+v", recent[0].IssueCounts)
	}
}

func TestStore_SaveUpsertsOnConflict(t *testing.T) {
	s, err := New("file::memory:?cache=shared")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	run := history.RunSummary{RunID: "site-r1", SiteID: "site", Mode: "full", TotalURLs: 5, GatesPassed: false}
	if err := s.Save(ctx, run); err != nil {
		t.Fatalf("Save: %v", err)
	}
	run.GatesPassed = true
	run.TotalURLs = 7
	if err := s.Save(ctx, run); err != nil {
		t.Fatalf("Save (upsert): %v", err)
	}

	recent, err := s.Recent(ctx, "site", 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 1 {
		t.Fatalf("expected upsert to keep a single row, got %d", len(recent))
	}
	if !recent[0].GatesPassed || recent[0].TotalURLs != 7 {
		t.Errorf("expected updated values, got %+v", recent[0])
	}
}
