package clause

type OrderByColumn struct {
	Column  Column
	Desc    bool
	Reorder bool
}

// OrderBy order by clause
type OrderBy struct {
	Columns []OrderByColumn
}

// Name where clause name
func (orderBy OrderBy) Name() string {
	return "ORDER BY"
}

// Build build order by clause
func (orderBy OrderBy) Build(builder Builder) {
	for idx, column := range orderBy.Columns {
		if idx > 0 {
			builder.WriteByte(',')
		}

		builder.WriteQuoted(column.Column)
		if column.Desc {
			builder.WriteString(" DESC")
		}
	}
}

// MergeClause merge order by clauses; a Reorder column discards what came
// before it.
func (orderBy OrderBy) MergeClause(cl *Clause) {
	if v, ok := cl.Expression.(OrderBy); ok {
		for i := len(orderBy.Columns) - 1; i >= 0; i-- {
			if orderBy.Columns[i].Reorder {
				orderBy.Columns = orderBy.Columns[i:]
				cl.Expression = orderBy
				return
			}
		}

		columns := make([]OrderByColumn, 0, len(v.Columns)+len(orderBy.Columns))
		columns = append(columns, v.Columns...)
		columns = append(columns, orderBy.Columns...)
		orderBy.Columns = columns
	}
	cl.Expression = orderBy
}
