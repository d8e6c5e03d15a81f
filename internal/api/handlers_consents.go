package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/org/consentd/internal/mirror"
	syncer "github.com/org/consentd/internal/sync"
	"github.com/org/consentd/pkg/models"
)

// PendingHandler handles GET /v1/consents/pending
func (s *Server) PendingHandler(w http.ResponseWriter, r *http.Request) {
	pending := s.model.Pending()
	loading := make(map[string]bool, len(pending))
	for _, p := range pending {
		if s.dispatcher.InFlightRequest(p.ID) {
			loading[p.ID] = true
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"pending": pending,
		"loading": loading,
	})
}

// ActiveHandler handles GET /v1/consents/active
func (s *Server) ActiveHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"active": s.model.Active()})
}

// AuditHandler handles GET /v1/consents/audit
func (s *Server) AuditHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"audit": s.model.Audit()})
}

// TrailsHandler handles GET /v1/consents/trails
func (s *Server) TrailsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"trails": s.model.TrailsByAgent()})
}

// MirrorHandler handles GET /v1/consents/mirror, serving locally mirrored
// audit history. Unlike /v1/consents/audit this works with the backend
// unreachable.
func (s *Server) MirrorHandler(w http.ResponseWriter, r *http.Request) {
	if s.mirror == nil {
		writeError(w, http.StatusNotFound, "audit mirror disabled")
		return
	}

	q := r.URL.Query()
	filter := mirror.Filter{
		AgentID: q.Get("agent"),
		Scope:   q.Get("scope"),
		Limit:   100,
	}
	if l := q.Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil {
			filter.Limit = n
		}
	}
	if o := q.Get("offset"); o != "" {
		if n, err := strconv.Atoi(o); err == nil {
			filter.Offset = n
		}
	}

	entries, err := s.mirror.History(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if entries == nil {
		entries = []*models.AuditLogEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": entries})
}

// ApproveHandler handles POST /v1/consents/{id}/approve
func (s *Server) ApproveHandler(w http.ResponseWriter, r *http.Request) {
	s.runAction(w, r, func() error {
		return s.dispatcher.Approve(r.Context(), chi.URLParam(r, "id"))
	})
}

// DenyHandler handles POST /v1/consents/{id}/deny
func (s *Server) DenyHandler(w http.ResponseWriter, r *http.Request) {
	s.runAction(w, r, func() error {
		return s.dispatcher.Deny(r.Context(), chi.URLParam(r, "id"))
	})
}

// RevokeHandler handles POST /v1/consents/revoke
func (s *Server) RevokeHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Scope string `json:"scope"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Scope == "" {
		writeError(w, http.StatusBadRequest, "scope required")
		return
	}
	s.runAction(w, r, func() error {
		return s.dispatcher.Revoke(r.Context(), req.Scope)
	})
}

func (s *Server) runAction(w http.ResponseWriter, r *http.Request, action func() error) {
	if err := action(); err != nil {
		if errors.Is(err, syncer.ErrActionInFlight) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
