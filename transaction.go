package entwine

import (
	"context"
	"fmt"
	"time"
)

type txContextKey struct{}

// txFromContext the ambient transaction engine, if the context carries one
func txFromContext(ctx context.Context) (TxEngine, bool) {
	tx, ok := ctx.Value(txContextKey{}).(TxEngine)
	return tx, ok
}

// withTx derive a context carrying an open transaction; every query built
// from it runs inside that transaction without threading a handle around.
func withTx(ctx context.Context, tx TxEngine) context.Context {
	return context.WithValue(ctx, txContextKey{}, tx)
}

// TxOptions tunes Transaction retry behavior.
type TxOptions struct {
	// Attempts total tries including the first; values below 1 mean 1
	Attempts int
	// RetryIf decides whether a failed attempt is worth retrying, for
	// deadlock and serialization errors. Nil never retries.
	RetryIf func(err error) bool
	// Backoff the pause before each retry; nil means none
	Backoff func(attempt int) time.Duration
}

// Transaction run fn inside a transaction. The callback's context carries
// the transaction; a nil error commits, anything else rolls back. When the
// context already carries a transaction, fn joins it and commit stays with
// the outermost caller.
func (db *DB) Transaction(ctx context.Context, fn func(ctx context.Context) error, opts ...TxOptions) error {
	if _, ok := txFromContext(ctx); ok {
		return fn(ctx)
	}

	var opt TxOptions
	if len(opts) > 0 {
		opt = opts[0]
	}
	attempts := opt.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 && opt.Backoff != nil {
			select {
			case <-time.After(opt.Backoff(attempt)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		err = db.runTransaction(ctx, fn)
		if err == nil {
			return nil
		}
		if opt.RetryIf == nil || !opt.RetryIf(err) {
			return err
		}
	}
	return err
}

func (db *DB) runTransaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	tx, err := db.Engine.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback()
			panic(r)
		}
	}()

	if err = fn(withTx(ctx, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Begin open a transaction explicitly. The returned context carries it; the
// caller owns Commit or Rollback through the returned handle.
func (db *DB) Begin(ctx context.Context) (context.Context, TxEngine, error) {
	if _, ok := txFromContext(ctx); ok {
		return ctx, nil, ErrInvalidTransaction
	}
	tx, err := db.Engine.Begin(ctx)
	if err != nil {
		return ctx, nil, err
	}
	return withTx(ctx, tx), tx, nil
}
