package clause

// GroupBy group by clause
type GroupBy struct {
	Columns []Column
	Having  []Expression
}

// Name from clause name
func (groupBy GroupBy) Name() string {
	return "GROUP BY"
}

// Build build group by clause
func (groupBy GroupBy) Build(builder Builder) {
	for idx, column := range groupBy.Columns {
		if idx > 0 {
			builder.WriteByte(',')
		}

		builder.WriteQuoted(column)
	}

	if len(groupBy.Having) > 0 {
		builder.WriteString(" HAVING ")
		Where{Exprs: groupBy.Having}.Build(builder)
	}
}

// MergeClause merge group by clause
func (groupBy GroupBy) MergeClause(cl *Clause) {
	if v, ok := cl.Expression.(GroupBy); ok {
		columns := make([]Column, 0, len(v.Columns)+len(groupBy.Columns))
		columns = append(columns, v.Columns...)
		columns = append(columns, groupBy.Columns...)
		groupBy.Columns = columns

		having := make([]Expression, 0, len(v.Having)+len(groupBy.Having))
		having = append(having, v.Having...)
		having = append(having, groupBy.Having...)
		groupBy.Having = having
	}
	cl.Expression = groupBy
}
