package domain

import "time"

// Access level constants for grants.
const (
	AccessRead  = "read"
	AccessWrite = "write"
)

// ValidAccessLevel reports whether level is a defined access level.
func ValidAccessLevel(level string) bool {
	return level == AccessRead || level == AccessWrite
}

// Grant ties a principal to a table (ColumnName == nil) or a specific column
// at a read/write level. At most one grant exists per
// (principal_id, table_name, column_name) tuple; re-granting the same tuple
// overwrites the access level and refreshes the timestamp.
type Grant struct {
	ID          int64
	PrincipalID int64
	TableName   string
	ColumnName  *string // nil means table-wide
	AccessLevel string
	GrantedAt   time.Time
}

// IsTableWide reports whether the grant covers every column of the table.
func (g *Grant) IsTableWide() bool { return g.ColumnName == nil }
