package entwine

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/entwine-orm/entwine/cast"
	"github.com/entwine-orm/entwine/clause"
)

// prepare finalize the statement before execution: sticky errors first, then
// global scopes, then the soft-delete visibility filter.
func (q *Query) prepare() error {
	if q.Error != nil {
		return q.Error
	}
	q.applyGlobalScopes()
	q.applyTrashedFilter()
	return q.Error
}

// applyTrashedFilter append the soft-delete sentinel predicate. Runs once.
func (q *Query) applyTrashedFilter() {
	if q.trashedFiltered {
		return
	}
	q.trashedFiltered = true

	if q.schema == nil || !q.schema.SoftDeleteEnabled() {
		return
	}
	switch q.stmt.TrashedMode {
	case TrashedDefault:
		q.WhereNull(q.schema.DeletedAtColumn)
	case TrashedOnly:
		q.WhereNotNull(q.schema.DeletedAtColumn)
	}
}

// describeStatement a short human description for trace logs; the engine
// owns the real SQL.
func describeStatement(stmt *Statement) string {
	op := [...]string{"SELECT", "INSERT", "UPDATE", "DELETE", "UPSERT"}[stmt.Op]
	return op + " " + stmt.Table
}

func (q *Query) runQuery(ctx context.Context) ([]map[string]interface{}, error) {
	begin := time.Now()
	rows, err := q.db.engine(ctx).Query(ctx, q.stmt)
	q.db.Logger.Trace(ctx, begin, func() (string, int64) {
		return describeStatement(q.stmt), int64(len(rows))
	}, err)
	return rows, err
}

func (q *Query) runExec(ctx context.Context) (int64, error) {
	begin := time.Now()
	affected, err := q.db.engine(ctx).Exec(ctx, q.stmt)
	q.db.Logger.Trace(ctx, begin, func() (string, int64) {
		return describeStatement(q.stmt), affected
	}, err)
	return affected, err
}

func (q *Query) hydrationSchema() *Schema {
	if q.schema != nil {
		return q.schema
	}
	return bareSchema(q.stmt.Table)
}

// Get run the select and materialize its rows, resolving eager loads in
// batches afterwards.
func (q *Query) Get(ctx context.Context) (*Collection, error) {
	if err := q.prepare(); err != nil {
		return nil, err
	}

	rows, err := q.runQuery(ctx)
	if err != nil {
		return nil, err
	}

	schema := q.hydrationSchema()
	items := make([]*Entity, len(rows))
	for i, row := range rows {
		items[i] = hydrateEntity(q.db, schema, row)
	}

	if len(items) > 0 && len(q.stmt.Preloads) > 0 {
		if err := q.db.eagerLoad(ctx, schema, items, q.stmt.Preloads); err != nil {
			return nil, err
		}
	}
	return NewCollection(items...), nil
}

// First the first matching entity; a miss is (nil, nil)
func (q *Query) First(ctx context.Context) (*Entity, error) {
	c, err := q.Limit(1).Get(ctx)
	if err != nil {
		return nil, err
	}
	return c.First(), nil
}

// FirstOrFail like First but a miss is ErrRecordNotFound
func (q *Query) FirstOrFail(ctx context.Context) (*Entity, error) {
	e, err := q.First(ctx)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, q.stmt.Table)
	}
	return e, nil
}

// Find fetch by primary key; a miss is (nil, nil)
func (q *Query) Find(ctx context.Context, key interface{}) (*Entity, error) {
	return q.Where(q.stmt.PrimaryKey, key).First(ctx)
}

// FindOrFail fetch by primary key; a miss is ErrRecordNotFound
func (q *Query) FindOrFail(ctx context.Context, key interface{}) (*Entity, error) {
	return q.Where(q.stmt.PrimaryKey, key).FirstOrFail(ctx)
}

// FindMany fetch several primary keys in one query; missing keys simply do
// not appear.
func (q *Query) FindMany(ctx context.Context, keys ...interface{}) (*Collection, error) {
	if len(keys) == 0 {
		return NewCollection(), nil
	}
	return q.WhereIn(q.stmt.PrimaryKey, keys...).Get(ctx)
}

// Exists whether at least one row matches
func (q *Query) Exists(ctx context.Context) (bool, error) {
	e, err := q.Select(q.stmt.PrimaryKey).First(ctx)
	if err != nil {
		return false, err
	}
	return e != nil, nil
}

// Pluck the raw values of one column, in result order
func (q *Query) Pluck(ctx context.Context, column string) ([]interface{}, error) {
	if err := q.prepare(); err != nil {
		return nil, err
	}
	q.stmt.Selects = []string{column}

	rows, err := q.runQuery(ctx)
	if err != nil {
		return nil, err
	}

	name := columnFromName(column).Name
	out := make([]interface{}, len(rows))
	for i, row := range rows {
		out[i] = row[name]
	}
	return out, nil
}

// Value the raw value of one column from the first matching row
func (q *Query) Value(ctx context.Context, column string) (interface{}, error) {
	values, err := q.Limit(1).Pluck(ctx, column)
	if err != nil || len(values) == 0 {
		return nil, err
	}
	return values[0], nil
}

func (q *Query) aggregate(ctx context.Context, fn, column string) (interface{}, error) {
	if err := q.prepare(); err != nil {
		return nil, err
	}
	q.stmt.Selects = []string{fmt.Sprintf("%s(%s) AS aggregate", fn, column)}

	rows, err := q.runQuery(ctx)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0]["aggregate"], nil
}

// Count the number of matching rows
func (q *Query) Count(ctx context.Context) (int64, error) {
	v, err := q.aggregate(ctx, "COUNT", "*")
	if err != nil {
		return 0, err
	}
	return toInt64Value(v), nil
}

// Sum the numeric sum of a column over matching rows
func (q *Query) Sum(ctx context.Context, column string) (float64, error) {
	v, err := q.aggregate(ctx, "SUM", column)
	if err != nil {
		return 0, err
	}
	return toFloatValue(v), nil
}

// Avg the numeric average of a column over matching rows
func (q *Query) Avg(ctx context.Context, column string) (float64, error) {
	v, err := q.aggregate(ctx, "AVG", column)
	if err != nil {
		return 0, err
	}
	return toFloatValue(v), nil
}

// Min the smallest value of a column over matching rows
func (q *Query) Min(ctx context.Context, column string) (interface{}, error) {
	return q.aggregate(ctx, "MIN", column)
}

// Max the largest value of a column over matching rows
func (q *Query) Max(ctx context.Context, column string) (interface{}, error) {
	return q.aggregate(ctx, "MAX", column)
}

// Insert write one or more rows directly. No entity lifecycle runs; values
// are stored as given.
func (q *Query) Insert(ctx context.Context, rows ...map[string]interface{}) (int64, error) {
	if q.Error != nil {
		return 0, q.Error
	}
	if len(rows) == 0 {
		return 0, nil
	}

	q.stmt.Op = OpInsert
	q.stmt.InsertValues = rows
	q.buildInsertClauses(rows)
	return q.runExec(ctx)
}

func (q *Query) insertReturningKey(ctx context.Context, values map[string]interface{}) (interface{}, error) {
	if q.Error != nil {
		return nil, q.Error
	}

	q.stmt.Op = OpInsert
	q.stmt.InsertValues = []map[string]interface{}{values}
	q.buildInsertClauses(q.stmt.InsertValues)

	begin := time.Now()
	key, err := q.db.engine(ctx).InsertReturningKey(ctx, q.stmt)
	q.db.Logger.Trace(ctx, begin, func() (string, int64) {
		return describeStatement(q.stmt), 1
	}, err)
	return key, err
}

// buildInsertClauses mirror the row maps into INSERT/VALUES clauses with a
// deterministic column order shared by every row.
func (q *Query) buildInsertClauses(rows []map[string]interface{}) {
	columnSet := map[string]struct{}{}
	for _, row := range rows {
		for column := range row {
			columnSet[column] = struct{}{}
		}
	}
	names := make([]string, 0, len(columnSet))
	for column := range columnSet {
		names = append(names, column)
	}
	sort.Strings(names)

	columns := make([]clause.Column, len(names))
	for i, name := range names {
		columns[i] = clause.Column{Name: name}
	}

	values := make([][]interface{}, len(rows))
	for i, row := range rows {
		value := make([]interface{}, len(names))
		for j, name := range names {
			value[j] = row[name]
		}
		values[i] = value
	}

	q.stmt.AddClause(clause.Insert{Table: clause.Table{Name: q.stmt.Table}})
	q.stmt.AddClause(clause.Values{Columns: columns, Values: values})
}

// Update mass-update matching rows. Entity hooks do not run; schema casts
// apply to known attributes and updated_at is stamped. Refuses to run
// without conditions.
func (q *Query) Update(ctx context.Context, values map[string]interface{}) (int64, error) {
	if q.Error != nil {
		return 0, q.Error
	}
	q.applyGlobalScopes()
	if len(q.stmt.WhereExprs()) == 0 {
		return 0, ErrMissingWhereClause
	}
	q.applyTrashedFilter()
	if q.Error != nil {
		return 0, q.Error
	}

	stored := make(map[string]interface{}, len(values)+1)
	for key, value := range values {
		if q.schema != nil {
			if c, ok := q.schema.casts[key]; ok {
				v, err := c.Set(value)
				if err != nil {
					return 0, err
				}
				stored[key] = v
				continue
			}
		}
		stored[key] = value
	}
	if q.schema != nil && q.schema.Timestamps {
		if _, ok := stored[q.schema.UpdatedAtColumn]; !ok {
			stored[q.schema.UpdatedAtColumn] = q.db.NowFunc()
		}
	}

	return q.updateRaw(ctx, stored)
}

// updateRaw run an update with the values exactly as given. Callers own the
// conditions and any stamping.
func (q *Query) updateRaw(ctx context.Context, values map[string]interface{}) (int64, error) {
	if q.Error != nil {
		return 0, q.Error
	}

	q.stmt.Op = OpUpdate
	q.stmt.SetValues = values
	q.stmt.AddClause(clause.Update{Table: clause.Table{Name: q.stmt.Table}})
	q.stmt.AddClause(clause.Assignments(values))
	return q.runExec(ctx)
}

// Delete mass-delete matching rows: a soft delete when the schema enables
// it, a hard delete otherwise. Refuses to run without conditions.
func (q *Query) Delete(ctx context.Context) (int64, error) {
	if q.Error != nil {
		return 0, q.Error
	}
	q.applyGlobalScopes()
	if len(q.stmt.WhereExprs()) == 0 {
		return 0, ErrMissingWhereClause
	}

	if q.schema != nil && q.schema.SoftDeleteEnabled() && q.stmt.TrashedMode == TrashedDefault {
		q.applyTrashedFilter()
		values := map[string]interface{}{q.schema.DeletedAtColumn: q.db.NowFunc()}
		if q.schema.Timestamps {
			values[q.schema.UpdatedAtColumn] = q.db.NowFunc()
		}
		return q.updateRaw(ctx, values)
	}

	q.applyTrashedFilter()
	return q.deleteRaw(ctx)
}

// ForceDelete mass-delete matching rows bypassing soft deletes
func (q *Query) ForceDelete(ctx context.Context) (int64, error) {
	if q.Error != nil {
		return 0, q.Error
	}
	q.applyGlobalScopes()
	if len(q.stmt.WhereExprs()) == 0 {
		return 0, ErrMissingWhereClause
	}
	q.stmt.TrashedMode = TrashedWith
	return q.deleteRaw(ctx)
}

func (q *Query) deleteRaw(ctx context.Context) (int64, error) {
	if q.Error != nil {
		return 0, q.Error
	}

	q.stmt.Op = OpDelete
	q.stmt.AddClause(clause.Delete{})
	q.stmt.AddClause(clause.From{Tables: []clause.Table{{Name: q.stmt.Table}}})
	return q.runExec(ctx)
}

// Restore clear the soft-delete sentinel on matching rows
func (q *Query) Restore(ctx context.Context) (int64, error) {
	if q.Error != nil {
		return 0, q.Error
	}
	if q.schema == nil || !q.schema.SoftDeleteEnabled() {
		return 0, ErrSoftDeleteNotEnabled
	}
	if q.stmt.TrashedMode == TrashedDefault {
		q.stmt.TrashedMode = TrashedOnly
	}
	q.applyGlobalScopes()
	q.applyTrashedFilter()

	values := map[string]interface{}{q.schema.DeletedAtColumn: nil}
	if q.schema.Timestamps {
		values[q.schema.UpdatedAtColumn] = q.db.NowFunc()
	}
	return q.updateRaw(ctx, values)
}

// Upsert insert rows, updating the named columns from the incoming row when
// the conflict target already exists.
func (q *Query) Upsert(ctx context.Context, rows []map[string]interface{}, conflictColumns []string, updateColumns []string) (int64, error) {
	if q.Error != nil {
		return 0, q.Error
	}
	if len(rows) == 0 {
		return 0, nil
	}

	q.stmt.Op = OpUpsert
	q.stmt.InsertValues = rows
	q.buildInsertClauses(rows)

	target := make([]clause.Column, len(conflictColumns))
	for i, column := range conflictColumns {
		target[i] = clause.Column{Name: column}
	}
	conflict := clause.OnConflict{Columns: target}
	if len(updateColumns) > 0 {
		conflict.DoUpdates = clause.AssignmentColumns(updateColumns)
	} else {
		conflict.DoNothing = true
	}
	q.stmt.Conflict = &conflict
	q.stmt.AddClause(conflict)

	return q.runExec(ctx)
}

// Create construct, mass-assign and save an entity through the full
// lifecycle.
func (q *Query) Create(ctx context.Context, attrs map[string]interface{}) (*Entity, error) {
	if q.Error != nil {
		return nil, q.Error
	}
	if q.schema == nil {
		return nil, fmt.Errorf("%w: create requires a registered type", ErrInvalidData)
	}

	e := newEntity(q.db, q.schema)
	if err := e.Fill(attrs); err != nil {
		return nil, err
	}
	if _, err := e.Save(ctx); err != nil {
		return nil, err
	}
	return e, nil
}

// FirstOrCreate fetch the first row matching attrs, creating it from attrs
// plus extra when absent.
func (q *Query) FirstOrCreate(ctx context.Context, attrs map[string]interface{}, extra ...map[string]interface{}) (*Entity, error) {
	e, err := q.clone().Where(attrs).First(ctx)
	if err != nil || e != nil {
		return e, err
	}

	merged := mergeAttrs(attrs, extra...)
	return q.Create(ctx, merged)
}

// UpdateOrCreate fetch the first row matching attrs and update it with
// values, creating from the union when absent.
func (q *Query) UpdateOrCreate(ctx context.Context, attrs map[string]interface{}, values map[string]interface{}) (*Entity, error) {
	e, err := q.clone().Where(attrs).First(ctx)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return q.Create(ctx, mergeAttrs(attrs, values))
	}
	if _, err := e.Update(ctx, values); err != nil {
		return nil, err
	}
	return e, nil
}

// clone an independent copy of the builder sharing no statement state
func (q *Query) clone() *Query {
	return &Query{
		db:            q.db,
		schema:        q.schema,
		stmt:          q.stmt.clone(),
		Error:         q.Error,
		pendingScopes: q.pendingScopes,
		skipScopes:    append([]string(nil), q.skipScopes...),
		skipAllScopes: q.skipAllScopes,
	}
}

// Chunk page through matching rows in primary key order, size rows at a
// time, stopping on the first error from fn.
func (q *Query) Chunk(ctx context.Context, size int, fn func(c *Collection) error) error {
	if size <= 0 {
		return fmt.Errorf("%w: chunk size must be positive", ErrInvalidData)
	}

	for page := 0; ; page++ {
		c, err := q.clone().
			Order(q.stmt.PrimaryKey).
			Limit(size).
			Offset(page * size).
			Get(ctx)
		if err != nil {
			return err
		}
		if c.IsEmpty() {
			return nil
		}
		if err := fn(c); err != nil {
			return err
		}
		if c.Len() < size {
			return nil
		}
	}
}

// ChunkByID page through matching rows keyset-style, immune to rows shifting
// under an offset while fn mutates them.
func (q *Query) ChunkByID(ctx context.Context, size int, fn func(c *Collection) error) error {
	if size <= 0 {
		return fmt.Errorf("%w: chunk size must be positive", ErrInvalidData)
	}

	var lastKey interface{}
	for {
		sub := q.clone().Order(q.stmt.PrimaryKey).Limit(size)
		if lastKey != nil {
			sub.Where(clause.Gt{Column: columnFromName(q.stmt.PrimaryKey), Value: lastKey})
		}

		c, err := sub.Get(ctx)
		if err != nil {
			return err
		}
		if c.IsEmpty() {
			return nil
		}
		if err := fn(c); err != nil {
			return err
		}
		if c.Len() < size {
			return nil
		}
		lastKey = c.Last().Key()
	}
}

// Each visit matching entities one by one, fetching size rows per page
func (q *Query) Each(ctx context.Context, size int, fn func(e *Entity) error) error {
	return q.Chunk(ctx, size, func(c *Collection) error {
		for _, e := range c.All() {
			if err := fn(e); err != nil {
				return err
			}
		}
		return nil
	})
}

func mergeAttrs(attrs map[string]interface{}, extra ...map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{}, len(attrs))
	for k, v := range attrs {
		merged[k] = v
	}
	for _, m := range extra {
		for k, v := range m {
			merged[k] = v
		}
	}
	return merged
}

func toInt64Value(v interface{}) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case uint64:
		return int64(n)
	case float64:
		return int64(n)
	case float32:
		return int64(n)
	case []byte:
		i, _ := strconv.ParseInt(string(n), 10, 64)
		return i
	case string:
		i, _ := strconv.ParseInt(n, 10, 64)
		return i
	default:
		return 0
	}
}

func toFloatValue(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int64:
		return float64(n)
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case uint64:
		return float64(n)
	case []byte:
		f, _ := strconv.ParseFloat(string(n), 64)
		return f
	case string:
		f, _ := strconv.ParseFloat(n, 64)
		return f
	default:
		return 0
	}
}

// bareSchema a throwaway schema for schema-less table queries: no casts,
// hooks, timestamps or fill policy.
func bareSchema(table string) *Schema {
	return &Schema{
		Name:       table,
		Table:      table,
		PrimaryKey: "id",
		casts:      map[string]cast.Cast{},
		getters:    map[string]Getter{},
		setters:    map[string]Setter{},
		appends:    map[string]Appender{},
		relations:  map[string]*relationConfig{},
		scopes:     map[string]ScopeFunc{},
		hooks:      map[Event][]Hook{},
	}
}
