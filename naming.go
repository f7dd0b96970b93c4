package entwine

import (
	"strings"

	"github.com/jinzhu/inflection"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Namer tables, columns naming strategy
type Namer interface {
	TableName(typeName string) string
	ColumnName(name string) string
	JoinTableName(a, b string) string
	ForeignKeyName(typeName string) string
}

// NamingStrategy the default naming strategy: snake_case columns, pluralized
// snake_case tables.
type NamingStrategy struct {
	TablePrefix   string
	SingularTable bool
}

// TableName convert a type name to a table name
func (ns NamingStrategy) TableName(typeName string) string {
	if ns.SingularTable {
		return ns.TablePrefix + toDBName(typeName)
	}
	return ns.TablePrefix + inflection.Plural(toDBName(typeName))
}

// ColumnName convert an attribute name to a column name
func (ns NamingStrategy) ColumnName(name string) string {
	return toDBName(name)
}

// JoinTableName derive a pivot table name from the two related type names,
// singular and alphabetical, the common relational convention.
func (ns NamingStrategy) JoinTableName(a, b string) string {
	first, second := toDBName(a), toDBName(b)
	if first > second {
		first, second = second, first
	}
	return ns.TablePrefix + first + "_" + second
}

// ForeignKeyName derive the default foreign key column for a type
func (ns NamingStrategy) ForeignKeyName(typeName string) string {
	return toDBName(typeName) + "_id"
}

var titleCaser = cases.Title(language.Und, cases.NoLower)

// TypeNameFromTable reverse a table name back to a type name, used only for
// diagnostics.
func (ns NamingStrategy) TypeNameFromTable(table string) string {
	singular := inflection.Singular(strings.TrimPrefix(table, ns.TablePrefix))
	parts := strings.Split(singular, "_")
	for i, p := range parts {
		parts[i] = titleCaser.String(p)
	}
	return strings.Join(parts, "")
}

func toDBName(name string) string {
	if name == "" {
		return ""
	}

	var (
		value                          = name
		buf                            strings.Builder
		lastCase, nextCase, nextNumber bool // upper case == true
		curCase                        = value[0] <= 'Z' && value[0] >= 'A'
	)

	for i, v := range value[:len(value)-1] {
		nextCase = value[i+1] <= 'Z' && value[i+1] >= 'A'
		nextNumber = value[i+1] >= '0' && value[i+1] <= '9'

		if curCase {
			if lastCase && (nextCase || nextNumber) {
				buf.WriteRune(v + 32)
			} else {
				if i > 0 && value[i-1] != '_' && value[i+1] != '_' {
					buf.WriteByte('_')
				}
				buf.WriteRune(v + 32)
			}
		} else {
			buf.WriteRune(v)
		}

		lastCase = curCase
		curCase = nextCase
	}

	if curCase {
		if !lastCase && len(value) > 1 {
			buf.WriteByte('_')
		}
		buf.WriteByte(value[len(value)-1] + 32)
	} else {
		buf.WriteByte(value[len(value)-1])
	}

	return buf.String()
}
