// Package dbtx threads a single *sql.Tx through context.Context so that components sharing one
// connection (the entity catalog, the change log, the store-cursor registry, the photo row
// repository) can be made to apply a change and record it as one atomic unit, the same
// context-value technique already used for capture suppression.
package dbtx

import (
	"context"
	"database/sql"
)

type txKey struct{}

// Executor is the subset of *sql.DB/*sql.Tx every repository in this tree actually calls.
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Beginner is an Executor that can also start a transaction on its underlying connection.
type Beginner interface {
	Executor
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// ContextWithTx returns a context carrying tx, retrievable with TxFromContext.
func ContextWithTx(ctx context.Context, tx *sql.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// TxFromContext returns the *sql.Tx carried by ctx, or nil if none was set.
func TxFromContext(ctx context.Context) *sql.Tx {
	tx, _ := ctx.Value(txKey{}).(*sql.Tx)
	return tx
}

// GetExecutor returns the transaction carried by ctx if one is present, otherwise db. Every
// repository in this tree runs its queries through the executor this returns instead of calling
// its own db handle directly, so a query issued inside RunInTransaction joins that transaction.
func GetExecutor(ctx context.Context, db Executor) Executor {
	if tx := TxFromContext(ctx); tx != nil {
		return tx
	}

	return db
}

// RunInTransaction begins a transaction on db, runs fn with that transaction bound to ctx, and
// commits on success or rolls back on error or panic. A nil db runs fn directly against ctx
// unchanged: callers that have no live connection to begin against (unit tests wiring components
// straight to fakes) still get correct behavior, just without the atomicity guarantee.
func RunInTransaction(ctx context.Context, db Beginner, fn func(ctx context.Context) error) (err error) {
	if db == nil {
		return fn(ctx)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(ContextWithTx(ctx, tx)); err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit()
}
