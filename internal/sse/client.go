// Package sse consumes the backend's consent lifecycle event stream.
package sse

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/org/consentd/pkg/models"
	"github.com/rs/zerolog/log"
)

const reconnectDelay = 5 * time.Second

// Subscriber maintains a long-lived server-sent-event connection and
// delivers decoded consent events on Events(). The connection reconnects
// after a fixed delay until the context is cancelled.
type Subscriber struct {
	addr   string
	token  func() string
	http   *http.Client
	events chan models.ConsentEvent
	count  atomic.Uint64
}

// New creates a Subscriber for the given stream URL. token is consulted
// on each (re)connect so a rotated session is picked up without restart.
func New(addr string, token func() string) *Subscriber {
	return &Subscriber{
		addr:  addr,
		token: token,
		// No overall timeout: the stream is intentionally long-lived.
		http:   &http.Client{},
		events: make(chan models.ConsentEvent, 32),
	}
}

// Events returns the decoded event stream.
func (s *Subscriber) Events() <-chan models.ConsentEvent {
	return s.events
}

// EventCount returns a monotonically increasing count of delivered
// events. Two structurally identical events still advance the count, so
// consumers can distinguish them.
func (s *Subscriber) EventCount() uint64 {
	return s.count.Load()
}

// Run connects and consumes the stream until ctx is cancelled. The events
// channel is closed on return.
func (s *Subscriber) Run(ctx context.Context) {
	defer close(s.events)
	for {
		if err := s.consume(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warn().Err(err).Msg("event stream disconnected, will reconnect")
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
	}
}

func (s *Subscriber) consume(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", s.addr, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	if tok := s.token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("stream: HTTP %d", resp.StatusCode)
	}

	log.Info().Str("url", s.addr).Msg("event stream connected")

	scanner := bufio.NewScanner(resp.Body)
	var data strings.Builder
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			// Blank line terminates a frame.
			if data.Len() > 0 {
				s.dispatch(data.String())
				data.Reset()
			}
		case strings.HasPrefix(line, ":"):
			// Comment / keepalive, ignored.
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		default:
			// event:/id:/retry: fields carry nothing we act on.
		}
	}
	return scanner.Err()
}

func (s *Subscriber) dispatch(payload string) {
	var ev models.ConsentEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		// Non-JSON frames (e.g. the "connected" hello) are not events.
		log.Debug().Str("payload", payload).Msg("ignoring non-event frame")
		return
	}
	s.count.Add(1)
	select {
	case s.events <- ev:
	default:
		log.Warn().Str("action", ev.Action).Msg("event channel full, dropping event")
	}
}
