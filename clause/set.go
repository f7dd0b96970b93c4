package clause

import "sort"

// Assignment one column assignment in a SET clause
type Assignment struct {
	Column Column
	Value  interface{}
}

// Set update assignments
type Set []Assignment

func (set Set) Name() string {
	return "SET"
}

func (set Set) Build(builder Builder) {
	if len(set) == 0 {
		builder.WriteQuoted(Column{Name: PrimaryKey})
		builder.WriteByte('=')
		builder.WriteQuoted(Column{Name: PrimaryKey})
		return
	}

	for idx, assignment := range set {
		if idx > 0 {
			builder.WriteByte(',')
		}
		builder.WriteQuoted(assignment.Column)
		builder.WriteByte('=')
		builder.AddVar(builder, assignment.Value)
	}
}

// MergeClause merge assignments, a later assignment to the same column wins
func (set Set) MergeClause(cl *Clause) {
	if v, ok := cl.Expression.(Set); ok {
		merged := make(Set, 0, len(v)+len(set))
		merged = append(merged, v...)
		for _, assignment := range set {
			replaced := false
			for idx := range merged {
				if merged[idx].Column.Name == assignment.Column.Name && merged[idx].Column.Table == assignment.Column.Table {
					merged[idx] = assignment
					replaced = true
					break
				}
			}
			if !replaced {
				merged = append(merged, assignment)
			}
		}
		set = merged
	}
	cl.Expression = set
}

// AssignmentColumns assign the named columns from the incoming row, for
// upsert DO UPDATE sets.
func AssignmentColumns(values []string) Set {
	assignments := make(Set, len(values))
	for idx, value := range values {
		assignments[idx] = Assignment{
			Column: Column{Name: value},
			Value:  Column{Table: "excluded", Name: value},
		}
	}
	return assignments
}

// Assignments convert a map to sorted assignments so rendering stays
// deterministic.
func Assignments(values map[string]interface{}) Set {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	assignments := make(Set, 0, len(keys))
	for _, key := range keys {
		assignments = append(assignments, Assignment{Column: Column{Name: key}, Value: values[key]})
	}
	return assignments
}
