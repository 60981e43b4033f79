package repository

import (
	"context"
	"database/sql"
	"log"
	"time"
)

// AuditEntry is one row of the credential lifecycle log. Entries are append
// only and are returned most recent first.
type AuditEntry struct {
	UserID    uint64    `json:"user_id"`
	Username  string    `json:"username,omitempty"`
	Action    string    `json:"action"`
	TokenJTI  string    `json:"token_jti,omitempty"`
	IPAddress string    `json:"ip_address,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Audit actions recorded by the lifecycle operations.
const (
	ActionLogin   = "login"
	ActionLogout  = "logout"
	ActionRefresh = "refresh"
	ActionRevoke  = "revoke"
)

// AuditRepo is the durable audit trail. Every method swallows store errors:
// a broken audit path must never fail the login/logout/refresh that
// triggered it, so failures are logged and reported as false/empty.
type AuditRepo struct{ DB *sql.DB }

func NewAuditRepo(db *sql.DB) *AuditRepo { return &AuditRepo{DB: db} }

// Record appends one entry. jti, ip and userAgent may be empty.
func (r *AuditRepo) Record(ctx context.Context, userID uint64, action, jti, ip, userAgent string) bool {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO token_audit (user_id, action, token_jti, ip_address, user_agent) VALUES (?,?,?,?,?)",
		userID, action, nullable(jti), nullable(ip), nullable(userAgent))
	if err != nil {
		log.Printf("audit: record %s for user %d failed: %v", action, userID, err)
		return false
	}
	return true
}

// GetForUser returns the user's entries, most recent first, capped at limit.
func (r *AuditRepo) GetForUser(ctx context.Context, userID uint64, limit int) []AuditEntry {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT user_id, action, token_jti, ip_address, user_agent, created_at
		 FROM token_audit WHERE user_id=? ORDER BY created_at DESC LIMIT ?`,
		userID, limit)
	if err != nil {
		log.Printf("audit: query for user %d failed: %v", userID, err)
		return nil
	}
	defer rows.Close()
	return scanAuditRows(rows, false)
}

// GetAll returns entries across all users with the owning username joined
// in, most recent first, capped at limit.
func (r *AuditRepo) GetAll(ctx context.Context, limit int) []AuditEntry {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT ta.user_id, ta.action, ta.token_jti, ta.ip_address, ta.user_agent, ta.created_at, u.username
		 FROM token_audit ta JOIN users u ON ta.user_id = u.id
		 ORDER BY ta.created_at DESC LIMIT ?`,
		limit)
	if err != nil {
		log.Printf("audit: global query failed: %v", err)
		return nil
	}
	defer rows.Close()
	return scanAuditRows(rows, true)
}

func scanAuditRows(rows *sql.Rows, withUsername bool) []AuditEntry {
	var entries []AuditEntry
	for rows.Next() {
		var (
			e           AuditEntry
			jti, ip, ua sql.NullString
			username    sql.NullString
		)
		scanTargets := []interface{}{&e.UserID, &e.Action, &jti, &ip, &ua, &e.CreatedAt}
		if withUsername {
			scanTargets = append(scanTargets, &username)
		}
		if err := rows.Scan(scanTargets...); err != nil {
			log.Printf("audit: scan failed: %v", err)
			return entries
		}
		e.TokenJTI = jti.String
		e.IPAddress = ip.String
		e.UserAgent = ua.String
		e.Username = username.String
		entries = append(entries, e)
	}
	return entries
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
