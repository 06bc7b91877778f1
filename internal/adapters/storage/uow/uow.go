// Package uow runs booking engine work inside one database transaction.
package uow

import (
	"context"
	"fmt"

	"classbook/internal/adapters/storage"
	accessstore "classbook/internal/adapters/storage/access"
	bookingstore "classbook/internal/adapters/storage/booking"
	classinstancestore "classbook/internal/adapters/storage/classinstance"
	waitliststore "classbook/internal/adapters/storage/waitlist"
)

// Repos are the stores bound to a single transaction.
type Repos struct {
	Classes  classinstancestore.Store
	Bookings bookingstore.Store
	Waitlist waitliststore.Store
	Access   accessstore.Store
}

// Runner executes fn atomically.
type Runner interface {
	// RunInTx runs fn inside a transaction.
	// PRE: fn does not use the pool outside the given Repos
	// POST: Committed if fn returns nil, rolled back otherwise
	RunInTx(ctx context.Context, fn func(Repos) error) error
}

// SQLRunner is a Runner over a database/sql pool.
type SQLRunner struct {
	db storage.SQLDB
}

// NewSQLRunner creates a runner over db.
func NewSQLRunner(db storage.SQLDB) *SQLRunner {
	return &SQLRunner{db: db}
}

// Ensure SQLRunner implements Runner.
var _ Runner = (*SQLRunner)(nil)

// RunInTx runs fn inside a transaction.
// With _txlock=immediate the write lock is held from BEGIN to COMMIT.
// PRE: fn does not use the pool outside the given Repos
// POST: Committed if fn returns nil, rolled back otherwise; fn's error is returned unwrapped
func (r *SQLRunner) RunInTx(ctx context.Context, fn func(Repos) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(Bind(tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Bind creates Repos over q, which may be a pool or a transaction.
func Bind(q storage.Querier) Repos {
	return Repos{
		Classes:  classinstancestore.NewSQLiteStore(q),
		Bookings: bookingstore.NewSQLiteStore(q),
		Waitlist: waitliststore.NewSQLiteStore(q),
		Access:   accessstore.NewSQLiteStore(q),
	}
}
