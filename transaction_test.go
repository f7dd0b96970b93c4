package entwine_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entwine-orm/entwine"
)

func TestTransactionCommitsOnNil(t *testing.T) {
	db, engine := openFake()

	err := db.Transaction(context.Background(), func(ctx context.Context) error {
		_, err := db.Model("Customer").Where("id", 1).Update(ctx, map[string]interface{}{"name": "Ada"})
		return err
	})
	require.NoError(t, err)

	require.Len(t, engine.txs, 1)
	assert.True(t, engine.txs[0].committed)
	assert.False(t, engine.txs[0].rolledBack)
}

func TestTransactionRollsBackOnError(t *testing.T) {
	db, engine := openFake()

	boom := errors.New("boom")
	err := db.Transaction(context.Background(), func(ctx context.Context) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)

	require.Len(t, engine.txs, 1)
	assert.True(t, engine.txs[0].rolledBack)
	assert.False(t, engine.txs[0].committed)
}

func TestNestedTransactionJoinsAmbient(t *testing.T) {
	db, engine := openFake()

	err := db.Transaction(context.Background(), func(ctx context.Context) error {
		return db.Transaction(ctx, func(ctx context.Context) error {
			return nil
		})
	})
	require.NoError(t, err)
	assert.Len(t, engine.txs, 1, "a nested call joins the open transaction")
}

func TestTransactionRetries(t *testing.T) {
	db, engine := openFake()

	transient := errors.New("deadlock detected")
	attempts := 0
	err := db.Transaction(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return transient
		}
		return nil
	}, entwine.TxOptions{
		Attempts: 3,
		RetryIf:  func(err error) bool { return errors.Is(err, transient) },
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)

	require.Len(t, engine.txs, 3)
	assert.True(t, engine.txs[0].rolledBack)
	assert.True(t, engine.txs[1].rolledBack)
	assert.True(t, engine.txs[2].committed)
}

func TestTransactionRetryStopsOnPermanentError(t *testing.T) {
	db, engine := openFake()

	permanent := errors.New("constraint violation")
	attempts := 0
	err := db.Transaction(context.Background(), func(ctx context.Context) error {
		attempts++
		return permanent
	}, entwine.TxOptions{
		Attempts: 5,
		RetryIf:  func(err error) bool { return false },
	})
	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, attempts)
	assert.Len(t, engine.txs, 1)
}

func TestTransactionRollsBackOnPanic(t *testing.T) {
	db, engine := openFake()

	assert.Panics(t, func() {
		_ = db.Transaction(context.Background(), func(ctx context.Context) error {
			panic("boom")
		})
	})

	require.Len(t, engine.txs, 1)
	assert.True(t, engine.txs[0].rolledBack)
}

func TestExplicitBegin(t *testing.T) {
	db, engine := openFake()

	ctx, tx, err := db.Begin(context.Background())
	require.NoError(t, err)

	_, err = db.Model("Customer").Where("id", 1).Update(ctx, map[string]interface{}{"name": "Ada"})
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	require.Len(t, engine.txs, 1)
	assert.True(t, engine.txs[0].committed)

	_, _, err = db.Begin(ctx)
	assert.ErrorIs(t, err, entwine.ErrInvalidTransaction, "a context already in a transaction cannot begin another")
}

func TestAmbientTransactionRoutesQueries(t *testing.T) {
	db, engine := openFake()

	err := db.Transaction(context.Background(), func(ctx context.Context) error {
		_, err := db.Model("Customer").Get(ctx)
		return err
	})
	require.NoError(t, err)

	// the fake tx shares the recorder, so reaching it proves routing worked
	require.Len(t, engine.txs, 1)
	assert.Len(t, engine.queriesFor("customers"), 1)
}
