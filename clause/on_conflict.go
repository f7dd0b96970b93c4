package clause

// OnConflict on conflict clause for upserts
type OnConflict struct {
	Columns   []Column
	DoNothing bool
	DoUpdates Set
	UpdateAll bool
}

func (OnConflict) Name() string {
	return "ON CONFLICT"
}

// Build build onConflict clause
func (onConflict OnConflict) Build(builder Builder) {
	if len(onConflict.Columns) > 0 {
		builder.WriteByte('(')
		for idx, column := range onConflict.Columns {
			if idx > 0 {
				builder.WriteByte(',')
			}
			builder.WriteQuoted(column)
		}
		builder.WriteByte(')')
		builder.WriteByte(' ')
	}

	if onConflict.DoNothing {
		builder.WriteString("DO NOTHING")
	} else {
		builder.WriteString("DO UPDATE SET ")
		onConflict.DoUpdates.Build(builder)
	}
}

// MergeClause merge onConflict clauses
func (onConflict OnConflict) MergeClause(cl *Clause) {
	cl.Expression = onConflict
}
