// Package ledger provides repositories over the ledger database: accounts,
// holdings, and the immutable transaction audit trail. Repository methods
// that participate in the purchase atomic unit accept a Querier so they run
// against the caller's transaction; everything else is bound to the pooled
// connection.
package ledger

import "database/sql"

// Querier is the query surface shared by *sql.DB and *sql.Tx. Purchase
// execution passes a *sql.Tx so all four writes commit or roll back
// together.
type Querier interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}
