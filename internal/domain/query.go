package domain

// StatementKind classifies a SQL statement by its leading keyword.
type StatementKind string

// Statement kinds recognized by the reference extractor.
const (
	StatementSelect  StatementKind = "SELECT"
	StatementInsert  StatementKind = "INSERT"
	StatementUpdate  StatementKind = "UPDATE"
	StatementDelete  StatementKind = "DELETE"
	StatementUnknown StatementKind = "UNKNOWN"
)

// QueryReferences is the transient decomposition of a single SQL statement:
// the ordered, deduplicated tables and columns it touches. Wildcard is set
// when the SELECT list is a bare *, which the gateway expands against the
// datastore schema before authorization.
type QueryReferences struct {
	Kind     StatementKind
	Tables   []string
	Columns  []string
	Wildcard bool
}

// Decision is the outcome of one authorization evaluation. Built fresh per
// query, never cached, since grants can change between queries.
type Decision struct {
	Allowed     bool
	Reason      string
	DeniedItems []string
}

// ColumnInfo describes one column of a datastore table.
type ColumnInfo struct {
	Name string
	Type string
}

// ResultSet is an ordered set of rows returned by the datastore. Column
// order matches the underlying result exactly.
type ResultSet struct {
	Columns []string
	Rows    [][]any
}

// QueryResult is the gateway's response to one Run call. Denials and parse
// failures are represented here as Success=false, never as faults.
type QueryResult struct {
	Success     bool
	Message     string
	Columns     []string
	Rows        [][]any
	DeniedItems []string
}
