package mirror

import (
	"context"
	"testing"
	"time"

	"github.com/org/consentd/pkg/models"
)

func TestAppendDeduplicatesByID(t *testing.T) {
	m := NewMemoryMirror()
	ctx := context.Background()

	entries := []*models.AuditLogEntry{
		{ID: "a1", Action: models.ActionRequested, IssuedAt: time.Now()},
		{ID: "a2", Action: models.ActionConsentGranted, IssuedAt: time.Now()},
	}
	if err := m.Append(ctx, entries); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	// Re-mirroring the same page must not duplicate.
	if err := m.Append(ctx, entries); err != nil {
		t.Fatalf("second Append failed: %v", err)
	}

	count, err := m.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 mirrored entries, got %d", count)
	}
}

func TestHistoryNewestFirstAndFiltered(t *testing.T) {
	m := NewMemoryMirror()
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	m.Append(ctx, []*models.AuditLogEntry{ //nolint:errcheck
		{ID: "a1", AgentID: "agent-1", Scope: "s1", IssuedAt: base},
		{ID: "a2", AgentID: "agent-1", Scope: "s2", IssuedAt: base.Add(time.Minute)},
		{ID: "a3", AgentID: "agent-2", Scope: "s1", IssuedAt: base.Add(2 * time.Minute)},
	})

	all, err := m.History(ctx, Filter{})
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(all) != 3 || all[0].ID != "a3" || all[2].ID != "a1" {
		t.Errorf("expected newest-first ordering, got %+v", all)
	}

	byAgent, _ := m.History(ctx, Filter{AgentID: "agent-1"})
	if len(byAgent) != 2 {
		t.Errorf("agent filter: expected 2, got %d", len(byAgent))
	}

	byScope, _ := m.History(ctx, Filter{Scope: "s1"})
	if len(byScope) != 2 {
		t.Errorf("scope filter: expected 2, got %d", len(byScope))
	}
}

func TestHistoryLimitAndOffset(t *testing.T) {
	m := NewMemoryMirror()
	ctx := context.Background()
	base := time.Now()

	for i := 0; i < 5; i++ {
		m.Append(ctx, []*models.AuditLogEntry{ //nolint:errcheck
			{ID: string(rune('a' + i)), IssuedAt: base.Add(time.Duration(i) * time.Second)},
		})
	}

	page, _ := m.History(ctx, Filter{Limit: 2})
	if len(page) != 2 {
		t.Errorf("limit: expected 2, got %d", len(page))
	}

	rest, _ := m.History(ctx, Filter{Offset: 4})
	if len(rest) != 1 {
		t.Errorf("offset: expected 1, got %d", len(rest))
	}

	none, _ := m.History(ctx, Filter{Offset: 10})
	if len(none) != 0 {
		t.Errorf("offset past end: expected 0, got %d", len(none))
	}
}
