package domain

import "time"

// Audit status constants.
const (
	AuditStatusSuccess = "success"
	AuditStatusDenied  = "denied"
	AuditStatusFailed  = "failed"
)

// AuditEntry records one operation for the compliance trail.
type AuditEntry struct {
	ID            string // uuid
	PrincipalName string
	Action        string // "query", "grant_access", "create_user", ...
	QueryText     string
	Tables        []string
	Columns       []string
	Status        string
	Reason        string
	CreatedAt     time.Time
}

// AuditFilter holds filter parameters for listing audit entries.
type AuditFilter struct {
	PrincipalName *string
	Status        *string
	Since         *time.Time
	Limit         int
	Offset        int
}
