// Package sqldb runs logical query descriptions against any database/sql
// driver. It owns SQL rendering, placeholder style and key retrieval; the
// core never sees SQL text.
package sqldb

import (
	"context"
	"database/sql"
	"time"

	"github.com/entwine-orm/entwine"
	"github.com/entwine-orm/entwine/clause"
	"github.com/entwine-orm/entwine/logger"
)

// Config tunes rendering for the underlying driver.
type Config struct {
	// Placeholder bind parameter syntax, Question unless set
	Placeholder PlaceholderStyle
	// QuoteChar identifier quote, `"` unless set
	QuoteChar byte
	// UseReturning retrieve generated keys through INSERT ... RETURNING
	// instead of LastInsertId; required for PostgreSQL
	UseReturning bool
	// Logger traces rendered SQL when set; the core traces logical
	// descriptions separately
	Logger logger.Interface
}

type conn interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Engine implements entwine.Engine on top of a *sql.DB.
type Engine struct {
	db   *sql.DB
	conn conn
	cfg  Config
}

// New wrap a sql.DB into a query execution engine
func New(db *sql.DB, cfg ...Config) *Engine {
	var c Config
	if len(cfg) > 0 {
		c = cfg[0]
	}
	if c.QuoteChar == 0 {
		c.QuoteChar = '"'
	}
	return &Engine{db: db, conn: db, cfg: c}
}

func (e *Engine) render(stmt *entwine.Statement) (string, []interface{}, error) {
	return newBuilder(e.cfg, stmt).render()
}

func (e *Engine) trace(ctx context.Context, begin time.Time, query string, vars []interface{}, rows int64, err error) {
	if e.cfg.Logger == nil {
		return
	}
	e.cfg.Logger.Trace(ctx, begin, func() (string, int64) {
		sql, params := query, vars
		if filter, ok := e.cfg.Logger.(logger.ParamsFilter); ok {
			sql, params = filter.ParamsFilter(ctx, sql, params...)
		}
		return logger.ExplainSQL(sql, nil, `'`, params...), rows
	}, err)
}

// Query implements entwine.Engine
func (e *Engine) Query(ctx context.Context, stmt *entwine.Statement) ([]map[string]interface{}, error) {
	query, vars, err := e.render(stmt)
	if err != nil {
		return nil, err
	}

	begin := time.Now()
	rows, err := e.conn.QueryContext(ctx, query, vars...)
	if err != nil {
		e.trace(ctx, begin, query, vars, 0, err)
		return nil, err
	}
	defer rows.Close()

	out, err := scanRows(rows)
	e.trace(ctx, begin, query, vars, int64(len(out)), err)
	return out, err
}

// Exec implements entwine.Engine
func (e *Engine) Exec(ctx context.Context, stmt *entwine.Statement) (int64, error) {
	query, vars, err := e.render(stmt)
	if err != nil {
		return 0, err
	}

	begin := time.Now()
	result, err := e.conn.ExecContext(ctx, query, vars...)
	if err != nil {
		e.trace(ctx, begin, query, vars, 0, err)
		return 0, err
	}

	affected, err := result.RowsAffected()
	e.trace(ctx, begin, query, vars, affected, err)
	return affected, err
}

// InsertReturningKey implements entwine.Engine. Drivers without RETURNING
// support fall back to LastInsertId.
func (e *Engine) InsertReturningKey(ctx context.Context, stmt *entwine.Statement) (interface{}, error) {
	query, vars, err := e.render(stmt)
	if err != nil {
		return nil, err
	}

	begin := time.Now()
	if e.cfg.UseReturning {
		b := newBuilder(e.cfg, stmt)
		b.sql.WriteByte(' ')
		clause.Clause{
			Name:       "RETURNING",
			Expression: clause.Returning{Columns: []clause.Column{{Name: stmt.PrimaryKey}}},
		}.Build(b)
		query += b.sql.String()

		var key interface{}
		err := e.conn.QueryRowContext(ctx, query, vars...).Scan(&key)
		e.trace(ctx, begin, query, vars, 1, err)
		if err != nil {
			return nil, err
		}
		return key, nil
	}

	result, err := e.conn.ExecContext(ctx, query, vars...)
	if err != nil {
		e.trace(ctx, begin, query, vars, 0, err)
		return nil, err
	}
	key, err := result.LastInsertId()
	e.trace(ctx, begin, query, vars, 1, err)
	if err != nil {
		return nil, err
	}
	return key, nil
}

// Begin implements entwine.Engine
func (e *Engine) Begin(ctx context.Context) (entwine.TxEngine, error) {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &Tx{Engine: Engine{db: e.db, conn: tx, cfg: e.cfg}, tx: tx}, nil
}

// Tx is an Engine bound to one open transaction.
type Tx struct {
	Engine
	tx *sql.Tx
}

// Begin nested transactions are joined by the core, never reopened here
func (t *Tx) Begin(ctx context.Context) (entwine.TxEngine, error) {
	return nil, entwine.ErrInvalidTransaction
}

// Commit implements entwine.TxEngine
func (t *Tx) Commit() error {
	return t.tx.Commit()
}

// Rollback implements entwine.TxEngine
func (t *Tx) Rollback() error {
	return t.tx.Rollback()
}

// scanRows turn a result set into loosely typed rows. Byte slices become
// strings so values survive driver buffer reuse and compare naturally.
func scanRows(rows *sql.Rows) ([]map[string]interface{}, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []map[string]interface{}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		row := make(map[string]interface{}, len(columns))
		for i, column := range columns {
			v := values[i]
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			row[column] = v
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
