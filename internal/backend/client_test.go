package backend

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNormalizeAuditShapes(t *testing.T) {
	entry := `{"id":"a1","agent_id":"agent-1","scope":"read-financial-domain","action":"REQUESTED","request_id":"r1"}`

	cases := map[string]string{
		"bare array": `[` + entry + `]`,
		"items":      `{"items":[` + entry + `]}`,
		"history":    `{"history":[` + entry + `]}`,
	}
	for name, body := range cases {
		entries := NormalizeAudit([]byte(body))
		if len(entries) != 1 {
			t.Errorf("%s: expected 1 entry, got %d", name, len(entries))
			continue
		}
		if entries[0].ID != "a1" || entries[0].Action != "REQUESTED" {
			t.Errorf("%s: entry not decoded: %+v", name, entries[0])
		}
	}
}

func TestNormalizeAuditUnrecognizedShape(t *testing.T) {
	for _, body := range []string{`{"weird":true}`, `"just a string"`, `not json`, `{}`} {
		entries := NormalizeAudit([]byte(body))
		if entries == nil {
			t.Errorf("%q: expected empty list, got nil", body)
		}
		if len(entries) != 0 {
			t.Errorf("%q: expected empty list, got %d entries", body, len(entries))
		}
	}
}

func TestGetPending(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/pending-consents" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("userId") != "u1" {
			t.Errorf("missing userId param, got %q", r.URL.Query().Get("userId"))
		}
		w.Write([]byte(`{"pending":[{"id":"p1","developer":"dev-co","scope":"read-financial-domain"}]}`))
	}))
	defer srv.Close()

	c := New(Config{Address: srv.URL})
	pending, err := c.GetPending(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetPending failed: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != "p1" {
		t.Errorf("unexpected result: %+v", pending)
	}
}

func TestGetActiveSendsBearerToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok_123" {
			t.Errorf("expected bearer token header, got %q", got)
		}
		w.Write([]byte(`{"active":[{"id":"c1","scope":"read-financial-domain"}]}`))
	}))
	defer srv.Close()

	c := New(Config{Address: srv.URL})
	active, err := c.GetActive(context.Background(), "u1", "tok_123")
	if err != nil {
		t.Fatalf("GetActive failed: %v", err)
	}
	if len(active) != 1 || active[0].ID != "c1" {
		t.Errorf("unexpected result: %+v", active)
	}
}

func TestBackendErrorSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"errors":["permission denied"]}`))
	}))
	defer srv.Close()

	c := New(Config{Address: srv.URL})
	if _, err := c.GetActive(context.Background(), "u1", "bad"); err == nil {
		t.Fatal("expected error from 403 response")
	}
}

func TestApproveHitsCorrectPath(t *testing.T) {
	var gotPath, gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMethod = r.Method
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(Config{Address: srv.URL})
	if err := c.Approve(context.Background(), "req-9", "tok"); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	if gotMethod != "POST" || gotPath != "/v1/consents/req-9/approve" {
		t.Errorf("unexpected request %s %s", gotMethod, gotPath)
	}
}

func TestGetAuditHistoryNormalizesOverHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"history":[{"id":"a1","action":"CONSENT_GRANTED"}]}`))
	}))
	defer srv.Close()

	c := New(Config{Address: srv.URL})
	entries, err := c.GetAuditHistory(context.Background(), "u1", 1, 50)
	if err != nil {
		t.Fatalf("GetAuditHistory failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Action != "CONSENT_GRANTED" {
		t.Errorf("unexpected result: %+v", entries)
	}
}
