package sqldb

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/entwine-orm/entwine"
	"github.com/entwine-orm/entwine/clause"
)

// PlaceholderStyle bind parameter syntax.
type PlaceholderStyle int

const (
	// Question `?` placeholders (MySQL, SQLite)
	Question PlaceholderStyle = iota
	// Dollar `$1, $2, ...` placeholders (PostgreSQL)
	Dollar
)

// builder renders a logical statement into SQL text plus bind variables. It
// resolves the CurrentTable and PrimaryKey placeholders against the
// statement being rendered.
type builder struct {
	sql  strings.Builder
	vars []interface{}
	cfg  Config
	stmt *entwine.Statement
	err  error
}

func newBuilder(cfg Config, stmt *entwine.Statement) *builder {
	return &builder{cfg: cfg, stmt: stmt}
}

func (b *builder) WriteByte(c byte) error {
	return b.sql.WriteByte(c)
}

func (b *builder) WriteString(s string) (int, error) {
	return b.sql.WriteString(s)
}

func (b *builder) AddError(err error) error {
	if b.err == nil {
		b.err = err
	}
	return b.err
}

func (b *builder) resolve(name string) string {
	switch name {
	case clause.CurrentTable:
		return b.stmt.Table
	case clause.PrimaryKey:
		return b.stmt.PrimaryKey
	}
	return name
}

func (b *builder) quote(name string) {
	b.sql.WriteByte(b.cfg.QuoteChar)
	b.sql.WriteString(name)
	b.sql.WriteByte(b.cfg.QuoteChar)
}

func (b *builder) WriteQuoted(field interface{}) {
	switch v := field.(type) {
	case clause.Table:
		name := b.resolve(v.Name)
		if v.Raw {
			b.sql.WriteString(name)
		} else {
			b.quote(name)
		}
		if v.Alias != "" {
			b.sql.WriteString(" AS ")
			b.quote(v.Alias)
		}
	case clause.Column:
		if v.Table != "" {
			b.quote(b.resolve(v.Table))
			b.sql.WriteByte('.')
		}
		name := b.resolve(v.Name)
		switch {
		case name == "*":
			b.sql.WriteByte('*')
		case v.Raw:
			b.sql.WriteString(name)
		default:
			b.quote(name)
		}
		if v.Alias != "" {
			b.sql.WriteString(" AS ")
			b.quote(v.Alias)
		}
	case string:
		b.quote(b.resolve(v))
	default:
		b.AddError(fmt.Errorf("cannot quote %#v", field))
	}
}

func (b *builder) AddVar(writer clause.Writer, vars ...interface{}) {
	for idx, v := range vars {
		if idx > 0 {
			writer.WriteByte(',')
		}

		switch v := v.(type) {
		case clause.Table, clause.Column:
			b.WriteQuoted(v)
		case clause.Expression:
			v.Build(b)
		case []interface{}:
			if len(v) > 0 {
				b.AddVar(writer, v...)
			} else {
				writer.WriteString("(NULL)")
			}
		default:
			b.vars = append(b.vars, v)
			b.writePlaceholder(writer)
		}
	}
}

func (b *builder) writePlaceholder(writer clause.Writer) {
	if b.cfg.Placeholder == Dollar {
		writer.WriteByte('$')
		writer.WriteString(strconv.Itoa(len(b.vars)))
		return
	}
	writer.WriteByte('?')
}

// buildTrailing render the named clauses preceded by one space when any of
// them is present.
func (b *builder) buildTrailing(names ...string) {
	for _, name := range names {
		if _, ok := b.stmt.Clauses[name]; ok {
			b.sql.WriteByte(' ')
			b.stmt.Build(b, names...)
			return
		}
	}
}

func (b *builder) render() (string, []interface{}, error) {
	switch b.stmt.Op {
	case entwine.OpSelect:
		b.renderSelect()
	case entwine.OpInsert:
		b.stmt.Build(b, "INSERT", "VALUES")
	case entwine.OpUpsert:
		b.stmt.Build(b, "INSERT", "VALUES", "ON CONFLICT")
	case entwine.OpUpdate:
		b.stmt.Build(b, "UPDATE", "SET", "WHERE")
	case entwine.OpDelete:
		b.stmt.Build(b, "DELETE", "FROM", "WHERE")
	default:
		b.AddError(fmt.Errorf("unsupported statement op %d", b.stmt.Op))
	}
	return b.sql.String(), b.vars, b.err
}

func (b *builder) renderSelect() {
	b.sql.WriteString("SELECT ")
	if b.stmt.Distinct {
		b.sql.WriteString("DISTINCT ")
	}

	if len(b.stmt.Selects) == 0 {
		b.sql.WriteByte('*')
	} else {
		// selects may carry qualified names, aliases and aggregate
		// expressions; they render verbatim
		for idx, column := range b.stmt.Selects {
			if idx > 0 {
				b.sql.WriteString(", ")
			}
			b.sql.WriteString(column)
		}
	}

	b.sql.WriteString(" FROM ")
	b.WriteQuoted(clause.Table{Name: b.stmt.Table})

	for _, join := range b.stmt.Joins {
		b.sql.WriteByte(' ')
		join.Build(b)
	}

	b.buildTrailing("WHERE", "GROUP BY", "ORDER BY", "LIMIT")
}
