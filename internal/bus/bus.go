// Package bus is a small in-process signal bus. Producers and consumers
// both receive the bus explicitly at construction, so every cross-component
// signal path is visible in the wiring rather than ambient.
package bus

import "sync"

// Kind identifies a signal topic.
type Kind int

const (
	// PushNotification fires when an out-of-process push channel signals
	// that backend consent state may have changed. Payload is opaque.
	PushNotification Kind = iota
	// ActionComplete fires after a user-initiated approve/deny/revoke
	// finishes successfully.
	ActionComplete
	// VaultLockRequested fires when the owner's master grant is revoked
	// remotely; consumers must force re-authentication.
	VaultLockRequested
)

// Event is one published signal.
type Event struct {
	Kind      Kind
	Action    string // ActionComplete: the completed action name
	RequestID string // ActionComplete: the affected request id
	Reason    string // VaultLockRequested: human-readable cause
}

// Bus fan-outs events to subscribers by kind. Publish never blocks: a
// subscriber that has fallen behind its buffer misses the event, which is
// acceptable because every signal is a refresh hint, not data.
type Bus struct {
	mu   sync.Mutex
	subs map[Kind][]chan Event
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{subs: make(map[Kind][]chan Event)}
}

// Subscribe returns a channel receiving events of the given kind and a
// cancel function that must be called on teardown.
func (b *Bus) Subscribe(kind Kind) (<-chan Event, func()) {
	ch := make(chan Event, 16)
	b.mu.Lock()
	b.subs[kind] = append(b.subs[kind], ch)
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		list := b.subs[kind]
		for i, c := range list {
			if c == ch {
				b.subs[kind] = append(list[:i], list[i+1:]...)
				close(c)
				return
			}
		}
	}
	return ch, cancel
}

// Publish delivers an event to all current subscribers of its kind. Sends
// happen under the same lock that cancel closes channels under, so a
// publish can never race a teardown onto a closed channel. The sends are
// non-blocking, so holding the lock across them is safe.
func (b *Bus) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs[ev.Kind] {
		select {
		case ch <- ev:
		default:
		}
	}
}
