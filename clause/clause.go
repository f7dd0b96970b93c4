package clause

// Expression is the building block of a logical query description. An
// expression knows how to write itself through a Builder; it never executes
// anything.
type Expression interface {
	Build(builder Builder)
}

// NegationExpressionBuilder lets an expression render its own negated form
// instead of being wrapped in NOT (...).
type NegationExpressionBuilder interface {
	NegationBuild(builder Builder)
}

// Writer write interface
type Writer interface {
	WriteByte(byte) error
	WriteString(string) (int, error)
}

// Builder is implemented by whoever renders a query description, typically a
// query execution engine. Quoting and placeholder style live behind it.
type Builder interface {
	Writer
	WriteQuoted(field interface{})
	AddVar(Writer, ...interface{})
	AddError(error) error
}

// Interface clause interface
type Interface interface {
	Name() string
	Build(Builder)
	MergeClause(*Clause)
}

// Clause is a named slot of the query description (WHERE, ORDER BY, ...).
type Clause struct {
	Name       string
	Expression Expression
}

// Build build clause
func (c Clause) Build(builder Builder) {
	if c.Expression != nil {
		if c.Name != "" {
			builder.WriteString(c.Name)
			builder.WriteByte(' ')
		}
		c.Expression.Build(builder)
	}
}

const (
	// CurrentTable is a placeholder resolved to the statement's table by the
	// rendering engine.
	CurrentTable = "~~~ct~~~"
	// PrimaryKey is a placeholder resolved to the statement's primary key
	// column by the rendering engine.
	PrimaryKey = "~~~py~~~"
)

var currentTable = Table{Name: CurrentTable}

// Table quoted table name
type Table struct {
	Name  string
	Alias string
	Raw   bool
}

// Column quoted column name
type Column struct {
	Table string
	Name  string
	Alias string
	Raw   bool
}
