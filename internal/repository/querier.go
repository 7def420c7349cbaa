package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// Querier is the subset of database/sql used by tx-scoped repository
// methods. Both *sql.DB and *sql.Tx satisfy it, so the same method can
// run standalone or inside a checkout transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// TxRunner executes a function inside a single database transaction.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(tx Querier) error) error
}

type sqlTxRunner struct {
	db *sql.DB
}

// NewTxRunner creates a TxRunner backed by the given database.
func NewTxRunner(db *sql.DB) TxRunner {
	return &sqlTxRunner{db: db}
}

// WithinTx begins a transaction, runs fn with it, and commits if fn
// returns nil. Any error or panic rolls back every write made inside
// the scope.
func (r *sqlTxRunner) WithinTx(ctx context.Context, fn func(tx Querier) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
