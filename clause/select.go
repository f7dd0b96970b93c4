package clause

// Select select columns when querying
type Select struct {
	Distinct bool
	Columns  []Column
}

func (s Select) Name() string {
	return "SELECT"
}

func (s Select) Build(builder Builder) {
	if s.Distinct {
		builder.WriteString("DISTINCT ")
	}

	if len(s.Columns) == 0 {
		builder.WriteByte('*')
		return
	}

	for idx, column := range s.Columns {
		if idx > 0 {
			builder.WriteByte(',')
		}
		builder.WriteQuoted(column)
	}
}

// MergeClause the last Select wins, Distinct is sticky
func (s Select) MergeClause(cl *Clause) {
	if v, ok := cl.Expression.(Select); ok && v.Distinct {
		s.Distinct = true
	}
	cl.Expression = s
}
