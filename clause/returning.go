package clause

// Returning returning clause
type Returning struct {
	Columns []Column
}

func (returning Returning) Name() string {
	return "RETURNING"
}

// Build build returning clause
func (returning Returning) Build(builder Builder) {
	if len(returning.Columns) > 0 {
		for idx, column := range returning.Columns {
			if idx > 0 {
				builder.WriteByte(',')
			}
			builder.WriteQuoted(column)
		}
	} else {
		builder.WriteByte('*')
	}
}

// MergeClause merge returning clause
func (returning Returning) MergeClause(cl *Clause) {
	if v, ok := cl.Expression.(Returning); ok && len(returning.Columns) > 0 {
		returning.Columns = append(v.Columns, returning.Columns...)
	}

	cl.Expression = returning
}
