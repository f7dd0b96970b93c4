package entwine

import (
	"github.com/entwine-orm/entwine/clause"
	"github.com/entwine-orm/entwine/utils"
)

// Query is a mutable query description under construction. Chainable methods
// mutate and return the same builder; terminal methods in finisher_api.go
// hand the description to the engine.
type Query struct {
	db     *DB
	schema *Schema
	stmt   *Statement
	Error  error

	pendingScopes   []namedScope
	skipScopes      []string
	skipAllScopes   bool
	scopesApplied   bool
	trashedFiltered bool
}

// AddError record a sticky builder error, first one wins
func (q *Query) AddError(err error) *Query {
	if q.Error == nil {
		q.Error = err
	}
	return q
}

// Where add conditions; accepts a raw fragment with `?` placeholders, a
// column/value pair, a map of equalities, or clause expressions.
func (q *Query) Where(query interface{}, args ...interface{}) *Query {
	if exprs := buildCondition(query, args...); len(exprs) > 0 {
		q.stmt.AddClause(clause.Where{Exprs: exprs})
	}
	return q
}

// OrWhere add an OR condition
func (q *Query) OrWhere(query interface{}, args ...interface{}) *Query {
	if exprs := buildCondition(query, args...); len(exprs) > 0 {
		q.stmt.AddClause(clause.Where{Exprs: []clause.Expression{
			clause.Or(clause.And(exprs...)),
		}})
	}
	return q
}

// Not add a negated condition
func (q *Query) Not(query interface{}, args ...interface{}) *Query {
	if exprs := buildCondition(query, args...); len(exprs) > 0 {
		q.stmt.AddClause(clause.Where{Exprs: []clause.Expression{clause.Not(exprs...)}})
	}
	return q
}

// WhereIn constrain a column to a set of values
func (q *Query) WhereIn(column string, values ...interface{}) *Query {
	q.stmt.AddClause(clause.Where{Exprs: []clause.Expression{
		clause.IN{Column: columnFromName(column), Values: values},
	}})
	return q
}

// WhereNull constrain a column to NULL
func (q *Query) WhereNull(column string) *Query {
	q.stmt.AddClause(clause.Where{Exprs: []clause.Expression{
		clause.Eq{Column: columnFromName(column), Value: nil},
	}})
	return q
}

// WhereNotNull constrain a column to NOT NULL
func (q *Query) WhereNotNull(column string) *Query {
	q.stmt.AddClause(clause.Where{Exprs: []clause.Expression{
		clause.Neq{Column: columnFromName(column), Value: nil},
	}})
	return q
}

// Join add a join
func (q *Query) Join(joinType clause.JoinType, table string, on string, args ...interface{}) *Query {
	q.stmt.Joins = append(q.stmt.Joins, clause.Join{
		Type:  joinType,
		Table: clause.Table{Name: table},
		ON:    clause.Where{Exprs: buildCondition(on, args...)},
	})
	return q
}

// Order add an ordering; defaults ascending
func (q *Query) Order(column string, desc ...bool) *Query {
	q.stmt.AddClause(clause.OrderBy{Columns: []clause.OrderByColumn{{
		Column: columnFromName(column),
		Desc:   len(desc) > 0 && desc[0],
	}}})
	return q
}

// Reorder drop prior orderings and order by column
func (q *Query) Reorder(column string, desc ...bool) *Query {
	q.stmt.AddClause(clause.OrderBy{Columns: []clause.OrderByColumn{{
		Column:  columnFromName(column),
		Desc:    len(desc) > 0 && desc[0],
		Reorder: true,
	}}})
	return q
}

// Group add group by columns
func (q *Query) Group(columns ...string) *Query {
	cols := make([]clause.Column, len(columns))
	for i, c := range columns {
		cols[i] = columnFromName(c)
	}
	q.stmt.AddClause(clause.GroupBy{Columns: cols})
	return q
}

// Having add having conditions for group by
func (q *Query) Having(query interface{}, args ...interface{}) *Query {
	q.stmt.AddClause(clause.GroupBy{Having: buildCondition(query, args...)})
	return q
}

// Limit cap the number of rows
func (q *Query) Limit(limit int) *Query {
	q.stmt.AddClause(clause.Limit{Limit: &limit})
	return q
}

// Offset skip rows before returning
func (q *Query) Offset(offset int) *Query {
	q.stmt.AddClause(clause.Limit{Offset: offset})
	return q
}

// Select restrict the selected columns
func (q *Query) Select(columns ...string) *Query {
	q.stmt.Selects = columns
	return q
}

// Distinct select distinct rows
func (q *Query) Distinct() *Query {
	q.stmt.Distinct = true
	return q
}

// With request eager loading of a dot path, optionally with a constraint on
// the supplemental query of the final segment.
func (q *Query) With(paths ...string) *Query {
	for _, path := range paths {
		q.stmt.Preloads = append(q.stmt.Preloads, Preload{Path: path})
	}
	return q
}

// WithConstraint request eager loading of one path with a constraint
func (q *Query) WithConstraint(path string, constrain func(q *Query)) *Query {
	q.stmt.Preloads = append(q.stmt.Preloads, Preload{Path: path, Constraint: constrain})
	return q
}

// Scope apply a named scope registered on the schema
func (q *Query) Scope(name string, args ...interface{}) *Query {
	if q.schema == nil {
		return q.AddError(ErrScopeNotFound)
	}
	fn, ok := q.schema.scopes[name]
	if !ok {
		return q.AddError(newNamedError(ErrScopeNotFound, q.schema.Name, name))
	}
	fn(q, args...)
	return q
}

// WithoutGlobalScope exclude one global scope by name
func (q *Query) WithoutGlobalScope(name string) *Query {
	q.skipScopes = append(q.skipScopes, name)
	return q
}

// WithoutGlobalScopes exclude every global scope
func (q *Query) WithoutGlobalScopes() *Query {
	q.skipAllScopes = true
	return q
}

// WithTrashed include soft-deleted rows
func (q *Query) WithTrashed() *Query {
	q.stmt.TrashedMode = TrashedWith
	return q
}

// OnlyTrashed only soft-deleted rows
func (q *Query) OnlyTrashed() *Query {
	if q.schema != nil && !q.schema.SoftDeleteEnabled() {
		return q.AddError(ErrSoftDeleteNotEnabled)
	}
	q.stmt.TrashedMode = TrashedOnly
	return q
}

// Unscoped drop global scopes and the soft-delete filter
func (q *Query) Unscoped() *Query {
	q.skipAllScopes = true
	q.stmt.TrashedMode = TrashedWith
	return q
}

// applyGlobalScopes run the surviving global scopes into the statement with
// their predicates placed ahead of caller predicates. Runs once.
func (q *Query) applyGlobalScopes() {
	if q.scopesApplied {
		return
	}
	q.scopesApplied = true

	if q.skipAllScopes || len(q.pendingScopes) == 0 || q.schema == nil {
		return
	}

	sub := &Query{db: q.db, schema: q.schema, stmt: newStatement(q.stmt.Table, q.stmt.PrimaryKey), scopesApplied: true}
	for _, scope := range q.pendingScopes {
		if !utils.Contains(q.skipScopes, scope.name) {
			scope.apply(sub)
		}
	}

	for name, c := range sub.stmt.Clauses {
		if name == "WHERE" {
			scoped, _ := c.Expression.(clause.Where)
			if existing, ok := q.stmt.Clauses["WHERE"]; ok {
				if w, ok := existing.Expression.(clause.Where); ok {
					scoped.Exprs = append(scoped.Exprs, w.Exprs...)
				}
			}
			q.stmt.Clauses["WHERE"] = clause.Clause{Name: "WHERE", Expression: scoped}
			continue
		}
		if _, ok := q.stmt.Clauses[name]; !ok {
			q.stmt.Clauses[name] = c
		}
	}
	q.stmt.Joins = append(sub.stmt.Joins, q.stmt.Joins...)
}
