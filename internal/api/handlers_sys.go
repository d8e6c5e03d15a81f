package api

import (
	"net/http"
	"time"

	syncer "github.com/org/consentd/internal/sync"
)

// HealthHandler handles GET /v1/sys/health
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	pendingAt, activeAt, auditAt := s.model.RefreshedAt()
	info := s.sessions.Info()

	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"session_active": info.IsActive,
		"refreshed_at": map[string]any{
			"pending": formatTime(pendingAt),
			"active":  formatTime(activeAt),
			"audit":   formatTime(auditAt),
		},
	})
}

// RefreshHandler handles POST /v1/sys/refresh, forcing a full refresh of
// all three collections against the backend of record.
func (s *Server) RefreshHandler(w http.ResponseWriter, r *http.Request) {
	s.engine.Refresh(r.Context(), syncer.TargetAll, true)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// SessionHandler handles GET /v1/session. The token itself is never
// returned, only the derived session view.
func (s *Server) SessionHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sessions.Info())
}

// NotificationsHandler handles GET /v1/notifications, draining the
// pending transient notices.
func (s *Server) NotificationsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"notifications": s.notifier.Drain()})
}

func formatTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
