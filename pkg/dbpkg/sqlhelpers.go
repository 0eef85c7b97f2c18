// Package dbpkg provides helpers to make db initialization and testing easier.
package dbpkg

import (
	"context"
	"database/sql"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
)

// SQLInterface provides neccessary db methods to perform queries.
//
// Both *sql.DB and *sql.Tx satisfy it, so repositories work the same
// inside and outside of a transaction.
type SQLInterface interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	PrepareContext(context.Context, string) (*sql.Stmt, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

// Setup sets up connection with database.
//
// The database is pinged with exponential backoff until it answers or timeout elapses.
func Setup(driver, source string, timeout time.Duration) (*sql.DB, error) {
	db, err := sql.Open(driver, source)
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = timeout

	if err := backoff.Retry(db.Ping, b); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "ping database")
	}

	return db, nil
}
