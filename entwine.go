// Package entwine maps rows produced by an external query execution engine
// onto identity-bearing entities with dirty tracking, typed attribute casts,
// lifecycle hooks and a declarative relationship algebra with batched eager
// loading.
package entwine

import (
	"context"
	"time"

	"github.com/entwine-orm/entwine/logger"
)

// Config runtime configuration for a DB handle
type Config struct {
	// Engine the external query execution engine
	Engine Engine
	// Logger defaults to logger.Default
	Logger logger.Interface
	// NamingStrategy tables, columns naming strategy
	NamingStrategy Namer
	// NowFunc the function used for timestamps
	NowFunc func() time.Time
}

// DB the handle application code works through. It is cheap, immutable after
// Open, and every query builder it produces is exclusively owned by its
// creating call stack.
type DB struct {
	*Config
}

// Open initialize a DB on top of a query execution engine
func Open(engine Engine, config *Config) (*DB, error) {
	if config == nil {
		config = &Config{}
	}
	if engine != nil {
		config.Engine = engine
	}
	if config.Engine == nil {
		return nil, ErrMissingEngine
	}

	if config.Logger == nil {
		config.Logger = logger.Default
	}
	if config.NamingStrategy == nil {
		config.NamingStrategy = DefaultNamer
	}
	if config.NowFunc == nil {
		config.NowFunc = func() time.Time { return time.Now() }
	}

	return &DB{Config: config}, nil
}

// Model start a query builder for a registered type. Global scopes apply
// ahead of any caller predicate; a missing registration surfaces as a sticky
// builder error so chains stay fluent.
func (db *DB) Model(typeName string) *Query {
	schema, err := LookupSchema(typeName)
	if err != nil {
		return &Query{db: db, stmt: newStatement("", ""), Error: err}
	}

	q := &Query{
		db:     db,
		schema: schema,
		stmt:   newStatement(schema.Table, schema.PrimaryKey),
	}
	q.stmt.SoftDeleteColumn = schema.DeletedAtColumn
	q.pendingScopes = append(q.pendingScopes, schema.globalScopes...)
	return q
}

// Table start a schema-less query builder against a bare table; no casts,
// hooks, scopes or soft deletes apply. Used for pivot tables and similar
// bookkeeping.
func (db *DB) Table(table string) *Query {
	return &Query{db: db, stmt: newStatement(table, "")}
}

// NewEntity construct an unsaved entity of a registered type, mass-assigning
// attrs through the fill policy.
func (db *DB) NewEntity(typeName string, attrs map[string]interface{}) (*Entity, error) {
	schema, err := LookupSchema(typeName)
	if err != nil {
		return nil, err
	}

	e := newEntity(db, schema)
	if err := e.Fill(attrs); err != nil {
		return nil, err
	}
	return e, nil
}

// Create construct, fill and persist an entity in one step
func (db *DB) Create(ctx context.Context, typeName string, attrs map[string]interface{}) (*Entity, error) {
	return db.Model(typeName).Create(ctx, attrs)
}

// Find fetch by primary key; a miss returns (nil, nil)
func (db *DB) Find(ctx context.Context, typeName string, key interface{}) (*Entity, error) {
	return db.Model(typeName).Find(ctx, key)
}

// FindOrFail fetch by primary key; a miss returns ErrRecordNotFound
func (db *DB) FindOrFail(ctx context.Context, typeName string, key interface{}) (*Entity, error) {
	return db.Model(typeName).FindOrFail(ctx, key)
}

// All fetch every row of a type
func (db *DB) All(ctx context.Context, typeName string) (*Collection, error) {
	return db.Model(typeName).Get(ctx)
}

// With start a builder with eager-load requests
func (db *DB) With(typeName string, paths ...string) *Query {
	return db.Model(typeName).With(paths...)
}

// engine resolve the engine for a context, preferring an ambient transaction
func (db *DB) engine(ctx context.Context) Engine {
	if tx, ok := txFromContext(ctx); ok {
		return tx
	}
	return db.Engine
}
