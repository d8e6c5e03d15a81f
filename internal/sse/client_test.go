package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/org/consentd/pkg/models"
)

func serveFrames(t *testing.T, frames []string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, f := range frames {
			w.Write([]byte(f)) //nolint:errcheck
		}
		if fl, ok := w.(http.Flusher); ok {
			fl.Flush()
		}
	}))
}

func TestParsesEventFrames(t *testing.T) {
	srv := serveFrames(t, []string{
		"data: connected\n\n",
		": keepalive\n\n",
		"data: {\"action\":\"CONSENT_GRANTED\",\"request_id\":\"r1\",\"scope\":\"read-financial-domain\"}\n\n",
	})
	defer srv.Close()

	s := New(srv.URL, func() string { return "tok" })
	if err := s.consume(context.Background()); err != nil {
		t.Fatalf("consume failed: %v", err)
	}

	select {
	case ev := <-s.events:
		if ev.Action != models.ActionConsentGranted || ev.RequestID != "r1" {
			t.Errorf("unexpected event: %+v", ev)
		}
	default:
		t.Fatal("expected one decoded event")
	}
	if s.EventCount() != 1 {
		t.Errorf("expected event count 1, got %d", s.EventCount())
	}
}

func TestIgnoresNonEventFrames(t *testing.T) {
	srv := serveFrames(t, []string{
		"data: connected\n\n",
		": keepalive\n\n",
	})
	defer srv.Close()

	s := New(srv.URL, func() string { return "" })
	if err := s.consume(context.Background()); err != nil {
		t.Fatalf("consume failed: %v", err)
	}
	if s.EventCount() != 0 {
		t.Errorf("hello/keepalive frames must not count as events, got %d", s.EventCount())
	}
}

func TestEventCountAdvancesForIdenticalEvents(t *testing.T) {
	frame := "data: {\"action\":\"REQUESTED\",\"request_id\":\"r1\",\"scope\":\"s\"}\n\n"
	srv := serveFrames(t, []string{frame, frame})
	defer srv.Close()

	s := New(srv.URL, func() string { return "" })
	if err := s.consume(context.Background()); err != nil {
		t.Fatalf("consume failed: %v", err)
	}
	// Two structurally identical events still advance the counter so
	// consumers can tell them apart.
	if s.EventCount() != 2 {
		t.Errorf("expected event count 2, got %d", s.EventCount())
	}
}

func TestSendsBearerToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "text/event-stream")
	}))
	defer srv.Close()

	s := New(srv.URL, func() string { return "tok_sse" })
	if err := s.consume(context.Background()); err != nil {
		t.Fatalf("consume failed: %v", err)
	}
	if gotAuth != "Bearer tok_sse" {
		t.Errorf("expected bearer header on stream connect, got %q", gotAuth)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	srv := serveFrames(t, []string{"data: connected\n\n"})
	defer srv.Close()

	s := New(srv.URL, func() string { return "" })
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * reconnectDelay):
		t.Fatal("Run did not stop after context cancel")
	}

	// Events channel is closed on return.
	if _, ok := <-s.Events(); ok {
		t.Error("events channel should be closed after Run returns")
	}
}
