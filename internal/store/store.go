// Package store holds the in-memory read model: the daemon's ephemeral,
// possibly-stale replica of the three backend-owned collections.
package store

import (
	"sort"
	"sync"
	"time"

	"github.com/org/consentd/pkg/models"
)

// ReadModel is the mutex-guarded projection of pending requests, active
// consents, and audit history. Writers are the fetch functions; readers
// are the local API handlers. Last write wins per collection.
type ReadModel struct {
	mu      sync.RWMutex
	closed  bool
	pending []*models.PendingConsentRequest
	active  []*models.ActiveConsent
	audit   []*models.AuditLogEntry

	pendingAt time.Time
	activeAt  time.Time
	auditAt   time.Time
}

// New creates an empty ReadModel.
func New() *ReadModel {
	return &ReadModel{}
}

// Close marks the model torn down. Fetch results resolving after Close
// are discarded silently; a slow response racing shutdown is expected,
// not a fault.
func (m *ReadModel) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
}

// SetPending replaces the pending collection. Returns false if the model
// is closed and the write was discarded.
func (m *ReadModel) SetPending(list []*models.PendingConsentRequest) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false
	}
	m.pending = list
	m.pendingAt = time.Now()
	return true
}

// SetActive replaces the active-consent collection.
func (m *ReadModel) SetActive(list []*models.ActiveConsent) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false
	}
	m.active = list
	m.activeAt = time.Now()
	return true
}

// SetAudit replaces the audit collection.
func (m *ReadModel) SetAudit(list []*models.AuditLogEntry) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false
	}
	m.audit = list
	m.auditAt = time.Now()
	return true
}

// Pending returns a snapshot of the pending collection.
func (m *ReadModel) Pending() []*models.PendingConsentRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.PendingConsentRequest, len(m.pending))
	copy(out, m.pending)
	return out
}

// Active returns a snapshot of the active-consent collection.
func (m *ReadModel) Active() []*models.ActiveConsent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.ActiveConsent, len(m.active))
	copy(out, m.active)
	return out
}

// Audit returns a snapshot of the audit collection.
func (m *ReadModel) Audit() []*models.AuditLogEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.AuditLogEntry, len(m.audit))
	copy(out, m.audit)
	return out
}

// RefreshedAt reports the last successful write time per collection.
func (m *ReadModel) RefreshedAt() (pending, active, audit time.Time) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pendingAt, m.activeAt, m.auditAt
}

// TrailsByAgent groups the audit log by originating agent, building
// per-agent event trails keyed by request id, entries newest-first.
func (m *ReadModel) TrailsByAgent() map[string][]*models.AgentTrail {
	entries := m.Audit()

	// agent id → request id → entries
	byAgent := make(map[string]map[string][]*models.AuditLogEntry)
	for _, e := range entries {
		agent := e.AgentID
		if agent == "" {
			agent = "unknown"
		}
		if byAgent[agent] == nil {
			byAgent[agent] = make(map[string][]*models.AuditLogEntry)
		}
		byAgent[agent][e.RequestID] = append(byAgent[agent][e.RequestID], e)
	}

	out := make(map[string][]*models.AgentTrail, len(byAgent))
	for agent, byReq := range byAgent {
		trails := make([]*models.AgentTrail, 0, len(byReq))
		for reqID, list := range byReq {
			sort.Slice(list, func(i, j int) bool {
				return list[i].IssuedAt.After(list[j].IssuedAt)
			})
			trails = append(trails, &models.AgentTrail{RequestID: reqID, Entries: list})
		}
		// Newest trail first, by its most recent entry.
		sort.Slice(trails, func(i, j int) bool {
			return trails[i].Entries[0].IssuedAt.After(trails[j].Entries[0].IssuedAt)
		})
		out[agent] = trails
	}
	return out
}
