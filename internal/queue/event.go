// Package queue defines the audit events exchanged over the message broker
// and the background consumer that drains them. Delivery is best effort and
// at most once: a lost audit event never blocks or fails the credential
// operation that produced it.
package queue

// AuditEvent mirrors one audit trail entry. Backend names which state store
// ("sql" or "redis") recorded the entry, so downstream tooling can compare
// the two.
type AuditEvent struct {
	UserID    uint64 `json:"user_id"`
	Action    string `json:"action"`
	TokenJTI  string `json:"token_jti,omitempty"`
	IPAddress string `json:"ip_address,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
	Backend   string `json:"backend"`
	CreatedAt string `json:"created_at"`
}
