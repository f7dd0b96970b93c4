package entwine

import (
	"sort"
	"strings"

	"github.com/entwine-orm/entwine/clause"
	"github.com/entwine-orm/entwine/utils"
)

// Op the statement kind handed to the engine
type Op int

const (
	OpSelect Op = iota
	OpInsert
	OpUpdate
	OpDelete
	OpUpsert
)

// TrashedMode soft-deleted row visibility
type TrashedMode int

const (
	// TrashedDefault hide soft-deleted rows
	TrashedDefault TrashedMode = iota
	// TrashedWith include soft-deleted rows
	TrashedWith
	// TrashedOnly only soft-deleted rows
	TrashedOnly
)

// Preload one eager-load request: a dot path plus an optional constraint
// applied to the supplemental query of the final segment.
type Preload struct {
	Path       string
	Constraint func(q *Query)
}

// Statement is the logical description of one query. The core assembles it;
// the engine renders and runs it. It never contains SQL text, only clauses.
type Statement struct {
	Op               Op
	Table            string
	PrimaryKey       string
	Clauses          map[string]clause.Clause
	Distinct         bool
	Selects          []string
	Joins            []clause.Join
	Preloads         []Preload
	TrashedMode      TrashedMode
	SoftDeleteColumn string

	// structured mirrors of the write clauses, for engines that prefer not
	// to walk clause trees
	InsertValues []map[string]interface{}
	SetValues    map[string]interface{}
	Conflict     *clause.OnConflict
}

func newStatement(table, primaryKey string) *Statement {
	return &Statement{
		Table:      table,
		PrimaryKey: primaryKey,
		Clauses:    map[string]clause.Clause{},
	}
}

// AddClause merge a clause into its named slot
func (stmt *Statement) AddClause(v clause.Interface) {
	name := v.Name()
	c := stmt.Clauses[name]
	c.Name = name
	v.MergeClause(&c)
	stmt.Clauses[name] = c
}

// Build render the named clauses in order through the builder
func (stmt *Statement) Build(builder clause.Builder, names ...string) {
	var firstClauseWritten bool

	for _, name := range names {
		if c, ok := stmt.Clauses[name]; ok {
			if firstClauseWritten {
				builder.WriteByte(' ')
			}
			firstClauseWritten = true
			c.Build(builder)
		}
	}
}

// WhereExprs the flattened WHERE expressions, convenience for engines and
// tests
func (stmt *Statement) WhereExprs() []clause.Expression {
	if c, ok := stmt.Clauses["WHERE"]; ok {
		if where, ok := c.Expression.(clause.Where); ok {
			return where.Exprs
		}
	}
	return nil
}

// Limit the current limit, or -1 when unset
func (stmt *Statement) Limit() int {
	if c, ok := stmt.Clauses["LIMIT"]; ok {
		if limit, ok := c.Expression.(clause.Limit); ok && limit.Limit != nil {
			return *limit.Limit
		}
	}
	return -1
}

// Offset the current offset
func (stmt *Statement) Offset() int {
	if c, ok := stmt.Clauses["LIMIT"]; ok {
		if limit, ok := c.Expression.(clause.Limit); ok {
			return limit.Offset
		}
	}
	return 0
}

func (stmt *Statement) clone() *Statement {
	newStmt := *stmt

	newStmt.Clauses = make(map[string]clause.Clause, len(stmt.Clauses))
	for k, c := range stmt.Clauses {
		newStmt.Clauses[k] = c
	}
	newStmt.Selects = append([]string(nil), stmt.Selects...)
	newStmt.Joins = append([]clause.Join(nil), stmt.Joins...)
	newStmt.Preloads = append([]Preload(nil), stmt.Preloads...)

	return &newStmt
}

// buildCondition turn the loose condition forms of the chainable API into
// clause expressions: a raw string with placeholders, a column/value pair,
// a map of equalities, or an already-built expression.
func buildCondition(query interface{}, args ...interface{}) []clause.Expression {
	switch v := query.(type) {
	case clause.Expression:
		exprs := []clause.Expression{v}
		for _, arg := range args {
			if e, ok := arg.(clause.Expression); ok {
				exprs = append(exprs, e)
			}
		}
		return exprs
	case map[string]interface{}:
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		exprs := make([]clause.Expression, 0, len(keys))
		for _, key := range keys {
			exprs = append(exprs, clause.Eq{Column: columnFromName(key), Value: v[key]})
		}
		return exprs
	case string:
		if fields := strings.FieldsFunc(v, utils.IsValidDBNameChar); len(fields) == 1 && !strings.Contains(v, "?") {
			// bare column name: `Where("state", "open")` means equality,
			// `Where("state", "a", "b")` means IN
			switch len(args) {
			case 0:
				return nil
			case 1:
				return []clause.Expression{clause.Eq{Column: columnFromName(v), Value: args[0]}}
			default:
				return []clause.Expression{clause.IN{Column: columnFromName(v), Values: args}}
			}
		}
		return []clause.Expression{clause.Expr{SQL: v, Vars: args}}
	case nil:
		return nil
	default:
		return []clause.Expression{clause.Expr{SQL: "?", Vars: []interface{}{query}}}
	}
}

// columnFromName split an optionally qualified "table.column" name
func columnFromName(name string) clause.Column {
	if idx := strings.IndexByte(name, '.'); idx > 0 {
		return clause.Column{Table: name[:idx], Name: name[idx+1:]}
	}
	return clause.Column{Name: name}
}
