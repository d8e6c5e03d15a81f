package mirror

import (
	"context"
	"sort"
	"sync"

	"github.com/org/consentd/pkg/models"
)

// MemoryMirror is an in-process Mirror for tests and cache-only mode.
type MemoryMirror struct {
	mu      sync.Mutex
	entries map[string]*models.AuditLogEntry
}

// NewMemoryMirror creates an empty MemoryMirror.
func NewMemoryMirror() *MemoryMirror {
	return &MemoryMirror{entries: make(map[string]*models.AuditLogEntry)}
}

func (m *MemoryMirror) Append(ctx context.Context, entries []*models.AuditLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range entries {
		if _, ok := m.entries[e.ID]; !ok {
			m.entries[e.ID] = e
		}
	}
	return nil
}

func (m *MemoryMirror) History(ctx context.Context, filter Filter) ([]*models.AuditLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*models.AuditLogEntry
	for _, e := range m.entries {
		if filter.AgentID != "" && e.AgentID != filter.AgentID {
			continue
		}
		if filter.Scope != "" && e.Scope != filter.Scope {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].IssuedAt.After(out[j].IssuedAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryMirror) Count(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.entries)), nil
}

func (m *MemoryMirror) Close() {}
