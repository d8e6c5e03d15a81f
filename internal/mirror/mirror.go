// Package mirror keeps a local, append-only copy of fetched audit
// entries so history stays queryable when the backend of record is
// unreachable. The mirror is write-once per entry id; the backend never
// mutates published entries, so no update path exists.
package mirror

import (
	"context"
	"errors"

	"github.com/org/consentd/pkg/models"
)

// ErrNotFound is returned when a requested entry does not exist.
var ErrNotFound = errors.New("not found")

// Filter specifies query parameters for mirrored history retrieval.
type Filter struct {
	AgentID string
	Scope   string
	Limit   int
	Offset  int
}

// Mirror is the persistence interface for the local audit copy.
type Mirror interface {
	// Append stores entries, skipping ids already mirrored.
	Append(ctx context.Context, entries []*models.AuditLogEntry) error
	// History returns mirrored entries, newest first.
	History(ctx context.Context, filter Filter) ([]*models.AuditLogEntry, error)
	// Count returns the number of mirrored entries.
	Count(ctx context.Context) (int64, error)
	// Lifecycle
	Close()
}
