package entwine

import "context"

// Engine is the external query execution engine. The core hands it logical
// query descriptions and gets back plain rows; dialects, pooling and
// statement caching are its business entirely.
type Engine interface {
	// Query run a select described by stmt and return its rows
	Query(ctx context.Context, stmt *Statement) ([]map[string]interface{}, error)
	// Exec run an insert/update/delete/upsert and report affected rows
	Exec(ctx context.Context, stmt *Statement) (int64, error)
	// InsertReturningKey run an insert and return the generated primary key
	InsertReturningKey(ctx context.Context, stmt *Statement) (interface{}, error)
	// Begin open a transaction; the returned engine is bound to it
	Begin(ctx context.Context) (TxEngine, error)
}

// TxEngine is an Engine scoped to one open transaction.
type TxEngine interface {
	Engine
	Commit() error
	Rollback() error
}
