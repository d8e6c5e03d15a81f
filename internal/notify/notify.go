// Package notify collects transient user-visible notices. The service is
// constructed once at bootstrap and injected wherever notices originate,
// so there is no hidden module-level registry shared between tests.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/org/consentd/pkg/models"
)

const defaultCapacity = 64

// Service is a bounded ring of notifications. When full, the oldest
// notice is dropped.
type Service struct {
	mu    sync.Mutex
	cap   int
	items []*models.Notification
}

// New creates a Service with the default capacity.
func New() *Service {
	return &Service{cap: defaultCapacity}
}

// Info records an informational notice.
func (s *Service) Info(msg string) {
	s.add("info", msg)
}

// Error records a user-visible error notice. Only user-initiated action
// failures are surfaced here; background sync failures never are.
func (s *Service) Error(msg string) {
	s.add("error", msg)
}

func (s *Service) add(level, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, &models.Notification{
		ID:      uuid.NewString(),
		Level:   level,
		Message: msg,
		At:      time.Now().UTC(),
	})
	if len(s.items) > s.cap {
		s.items = s.items[len(s.items)-s.cap:]
	}
}

// Drain returns all pending notifications and clears the ring.
func (s *Service) Drain() []*models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.items
	s.items = nil
	return out
}

// Peek returns pending notifications without clearing them.
func (s *Service) Peek() []*models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Notification, len(s.items))
	copy(out, s.items)
	return out
}
