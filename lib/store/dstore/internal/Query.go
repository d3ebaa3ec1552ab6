package internal

import "github.com/ValentinKolb/rmap/lib/db"

// QueryType defines the possible queries for the state machine.
type QueryType uint8

const (
	QueryTHGet      QueryType = iota // Retrieve a field of a hash.
	QueryTHExists                    // Check if a field of a hash exists.
	QueryTHLen                       // Count the fields of a hash.
	QueryTHScan                      // Retrieve the next page of fields of a hash.
	QueryTGet                        // Retrieve the raw value of a counter.
	QueryTGetDBInfo                  // Retrieve metadata about the database underlying the machine.
	QueryTExec                       // Run a transaction without write operations.
)

func (q QueryType) String() string {
	switch q {
	case QueryTHGet:
		return "HGet"
	case QueryTHExists:
		return "HExists"
	case QueryTHLen:
		return "HLen"
	case QueryTHScan:
		return "HScan"
	case QueryTGet:
		return "Get"
	case QueryTGetDBInfo:
		return "GetDBInfo"
	case QueryTExec:
		return "Exec"
	default:
		return "Unknown"
	}
}

// Query defines the structure for lookup requests (read-only) sent via SyncRead or ReadStale
type Query struct {
	Type   QueryType // The type of Query to perform.
	Key    string    // The key for the Query (emtpy for some queries).
	Field  string    // The field of the hash (only hash queries)
	Cursor uint64    // Scan position (only QueryTHScan)
	Count  int       // Page size (only QueryTHScan)
	Ops    []db.Op   // Read operations (only QueryTExec)
}

// QueryResult is the result of all queries except QueryTGetDBInfo (which returns db.DatabaseInfo)
// and QueryTExec (which returns []db.OpResult).
type QueryResult struct {
	Ok     bool
	Value  []byte
	Int    int64
	Cursor uint64
	Fields []db.Field
}
