package sync

import (
	"context"
	"errors"
	gosync "sync"

	"github.com/org/consentd/internal/bus"
	"github.com/org/consentd/internal/notify"
	"github.com/rs/zerolog/log"
)

// ErrActionInFlight is returned when the same request or scope already
// has an action running. A second submission is rejected outright rather
// than queued or sent twice.
var ErrActionInFlight = errors.New("action already in flight")

// Dispatcher runs the user-initiated consent mutations. In-flight flags
// are keyed per request/scope, so actions on different items proceed
// independently.
type Dispatcher struct {
	backend  Backend
	session  Session
	signals  *bus.Bus
	notifier *notify.Service

	mu       gosync.Mutex
	inflight map[string]bool
}

// NewDispatcher wires a Dispatcher.
func NewDispatcher(backend Backend, session Session, signals *bus.Bus, notifier *notify.Service) *Dispatcher {
	return &Dispatcher{
		backend:  backend,
		session:  session,
		signals:  signals,
		notifier: notifier,
		inflight: make(map[string]bool),
	}
}

// Approve grants a pending consent request.
func (d *Dispatcher) Approve(ctx context.Context, requestID string) error {
	return d.run(ctx, "approve", "request:"+requestID, requestID, func(token string) error {
		return d.backend.Approve(ctx, requestID, token)
	})
}

// Deny rejects a pending consent request.
func (d *Dispatcher) Deny(ctx context.Context, requestID string) error {
	return d.run(ctx, "deny", "request:"+requestID, requestID, func(token string) error {
		return d.backend.Deny(ctx, requestID, token)
	})
}

// Revoke withdraws an active consent by scope.
func (d *Dispatcher) Revoke(ctx context.Context, scope string) error {
	return d.run(ctx, "revoke", "scope:"+scope, scope, func(token string) error {
		return d.backend.Revoke(ctx, scope, token)
	})
}

// InFlightRequest reports whether an action on the given request id is
// still running (the API exposes this as a per-item loading flag).
func (d *Dispatcher) InFlightRequest(requestID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.inflight["request:"+requestID]
}

// InFlightScope reports whether a revoke on the given scope is running.
func (d *Dispatcher) InFlightScope(scope string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.inflight["scope:"+scope]
}

func (d *Dispatcher) run(ctx context.Context, action, key, item string, call func(token string) error) error {
	if !d.begin(key) {
		return ErrActionInFlight
	}
	// Cleared on every exit path, success or failure.
	defer d.end(key)

	if err := call(d.session.Token()); err != nil {
		log.Error().Err(err).Str("action", action).Str("item", item).Msg("consent action failed")
		actionsTotal.WithLabelValues(action, "error").Inc()
		d.notifier.Error(action + " failed: " + err.Error())
		return err
	}

	actionsTotal.WithLabelValues(action, "ok").Inc()
	d.notifier.Info(action + " succeeded")
	// Only successful actions trigger the refresh round.
	d.signals.Publish(bus.Event{Kind: bus.ActionComplete, Action: action, RequestID: item})
	return nil
}

func (d *Dispatcher) begin(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.inflight[key] {
		return false
	}
	d.inflight[key] = true
	return true
}

func (d *Dispatcher) end(key string) {
	d.mu.Lock()
	delete(d.inflight, key)
	d.mu.Unlock()
}
