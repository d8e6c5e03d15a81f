package models

import "time"

// Audit log actions emitted by the backend of record.
const (
	ActionRequested          = "REQUESTED"
	ActionConsentGranted     = "CONSENT_GRANTED"
	ActionConsentDenied      = "CONSENT_DENIED"
	ActionCancelled          = "CANCELLED"
	ActionTimedOut           = "TIMED_OUT"
	ActionTimeout            = "TIMEOUT"
	ActionRevoked            = "REVOKED"
	ActionOperationPerformed = "OPERATION_PERFORMED"
)

// Owner grant scopes. Revoking either locks the vault and forces re-auth.
const (
	ScopeVaultOwner      = "vault.owner"
	ScopeVaultOwnerUpper = "VAULT_OWNER"
)

// IsOwnerScope reports whether a scope denotes the owner's full-access grant.
func IsOwnerScope(scope string) bool {
	return scope == ScopeVaultOwner || scope == ScopeVaultOwnerUpper
}

// PendingConsentRequest is a developer's access request awaiting a decision.
type PendingConsentRequest struct {
	ID               string    `json:"id"`
	Developer        string    `json:"developer"`
	Scope            string    `json:"scope"`
	ScopeDescription string    `json:"scopeDescription"`
	RequestedAt      time.Time `json:"requestedAt"`
	ExpiryHours      int       `json:"expiryHours"`
}

// ActiveConsent is a granted, time-bounded consent.
type ActiveConsent struct {
	ID              string    `json:"id"`
	Scope           string    `json:"scope"`
	Developer       string    `json:"developer"`
	IssuedAt        time.Time `json:"issued_at"`
	ExpiresAt       time.Time `json:"expires_at"`
	TimeRemainingMs int64     `json:"time_remaining_ms"`
}

// IsExpired returns true if the consent has passed its expiry time.
func (c *ActiveConsent) IsExpired() bool {
	return !c.ExpiresAt.IsZero() && time.Now().After(c.ExpiresAt)
}

// AuditLogEntry is one append-only record of a consent lifecycle action.
// Entries are owned by the backend; the local copy is never mutated.
type AuditLogEntry struct {
	ID         string    `json:"id"`
	TokenID    string    `json:"token_id"`
	AgentID    string    `json:"agent_id"`
	Scope      string    `json:"scope"`
	Action     string    `json:"action"`
	IssuedAt   time.Time `json:"issued_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	TokenType  string    `json:"token_type"`
	RequestID  string    `json:"request_id"`
	IsTimedOut bool      `json:"is_timed_out"`
}

// ConsentEvent is one typed message from the consent lifecycle event stream.
type ConsentEvent struct {
	Action    string `json:"action"`
	RequestID string `json:"request_id"`
	Scope     string `json:"scope"`
}

// AgentTrail groups audit entries for a single request id, newest first.
type AgentTrail struct {
	RequestID string           `json:"request_id"`
	Entries   []*AuditLogEntry `json:"entries"`
}
