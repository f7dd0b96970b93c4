package entwine_test

import (
	"context"
	"sync"
	"time"

	"github.com/entwine-orm/entwine"
	"github.com/entwine-orm/entwine/clause"
)

// fakeEngine records every statement it receives and answers selects through
// a pluggable respond function.
type fakeEngine struct {
	mu      sync.Mutex
	queries []*entwine.Statement
	execs   []*entwine.Statement
	respond func(stmt *entwine.Statement) []map[string]interface{}
	nextKey int64
	txs     []*fakeTx
}

func (f *fakeEngine) Query(ctx context.Context, stmt *entwine.Statement) ([]map[string]interface{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, stmt)
	if f.respond != nil {
		return f.respond(stmt), nil
	}
	return nil, nil
}

func (f *fakeEngine) Exec(ctx context.Context, stmt *entwine.Statement) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.execs = append(f.execs, stmt)
	return 1, nil
}

func (f *fakeEngine) InsertReturningKey(ctx context.Context, stmt *entwine.Statement) (interface{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.execs = append(f.execs, stmt)
	f.nextKey++
	return f.nextKey, nil
}

func (f *fakeEngine) Begin(ctx context.Context) (entwine.TxEngine, error) {
	tx := &fakeTx{fakeEngine: f}
	f.mu.Lock()
	f.txs = append(f.txs, tx)
	f.mu.Unlock()
	return tx, nil
}

// queriesFor the recorded selects against one table
func (f *fakeEngine) queriesFor(table string) []*entwine.Statement {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entwine.Statement
	for _, stmt := range f.queries {
		if stmt.Table == table {
			out = append(out, stmt)
		}
	}
	return out
}

func (f *fakeEngine) execsFor(table string) []*entwine.Statement {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entwine.Statement
	for _, stmt := range f.execs {
		if stmt.Table == table {
			out = append(out, stmt)
		}
	}
	return out
}

type fakeTx struct {
	*fakeEngine
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Commit() error {
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback() error {
	t.rolledBack = true
	return nil
}

// inValues the IN (or collapsed equality) values of one column in a where
// clause, nil when absent.
func inValues(stmt *entwine.Statement, column string) []interface{} {
	for _, expr := range stmt.WhereExprs() {
		switch v := expr.(type) {
		case clause.IN:
			if c, ok := v.Column.(clause.Column); ok && c.Name == column {
				return v.Values
			}
		case clause.Eq:
			if c, ok := v.Column.(clause.Column); ok && c.Name == column {
				return []interface{}{v.Value}
			}
		}
	}
	return nil
}

// eqValue the equality value of one column in a where clause
func eqValue(stmt *entwine.Statement, column string) (interface{}, bool) {
	for _, expr := range stmt.WhereExprs() {
		if v, ok := expr.(clause.Eq); ok {
			if c, ok := v.Column.(clause.Column); ok && c.Name == column {
				return v.Value, true
			}
		}
	}
	return nil, false
}

func hasNullCheck(stmt *entwine.Statement, column string) bool {
	for _, expr := range stmt.WhereExprs() {
		if v, ok := expr.(clause.Eq); ok && v.Value == nil {
			if c, ok := v.Column.(clause.Column); ok && c.Name == column {
				return true
			}
		}
	}
	return false
}

func hasNotNullCheck(stmt *entwine.Statement, column string) bool {
	for _, expr := range stmt.WhereExprs() {
		if v, ok := expr.(clause.Neq); ok && v.Value == nil {
			if c, ok := v.Column.(clause.Column); ok && c.Name == column {
				return true
			}
		}
	}
	return false
}

var frozenNow = time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

func openFake() (*entwine.DB, *fakeEngine) {
	engine := &fakeEngine{}
	db, err := entwine.Open(engine, &entwine.Config{
		NowFunc: func() time.Time { return frozenNow },
	})
	if err != nil {
		panic(err)
	}
	return db, engine
}

func init() {
	entwine.Define("Customer", func(s *entwine.Schema) {
		s.Fillable("name", "email").
			HasMany("orders", "Order")
	})

	entwine.Define("Order", func(s *entwine.Schema) {
		s.Fillable("reference", "state", "customer_id").
			BelongsTo("customer", "Customer").
			HasMany("items", "OrderItem")
	})

	entwine.Define("OrderItem", func(s *entwine.Schema) {
		s.SetTable("order_items").
			Fillable("order_id", "product_id", "quantity").
			BelongsTo("order", "Order").
			BelongsTo("product", "Product")
	})

	entwine.Define("Product", func(s *entwine.Schema) {
		s.Fillable("name", "price")
	})

	entwine.Define("User", func(s *entwine.Schema) {
		s.Fillable("name", "country_id").
			BelongsTo("country", "Country")
	})

	entwine.Define("Country", func(s *entwine.Schema) {
		s.Fillable("name").
			HasManyThrough("posts", "Post", "User")
	})

	post := entwine.Define("Post", func(s *entwine.Schema) {
		s.Fillable("title", "user_id").
			BelongsTo("author", "User").
			MorphMany("comments", "Comment", "commentable")
	})
	post.BelongsToMany("tags", "Tag").WithPivot("assigned_at")

	entwine.Define("Tag", func(s *entwine.Schema) {
		s.Fillable("name")
	})

	entwine.Define("Video", func(s *entwine.Schema) {
		s.Fillable("title").
			MorphMany("comments", "Comment", "commentable")
	})

	entwine.Define("Comment", func(s *entwine.Schema) {
		s.Fillable("body", "commentable_type", "commentable_id").
			MorphTo("commentable", "commentable")
	})

	entwine.Define("Document", func(s *entwine.Schema) {
		s.Fillable("title", "body").
			SoftDeletes("deleted_at")
	})

	entwine.Define("Ticket", func(s *entwine.Schema) {
		s.Fillable("subject", "state", "priority", "assignee").
			GlobalScope("open", func(q *entwine.Query) {
				q.Where("state", "open")
			}).
			Scope("assignedTo", func(q *entwine.Query, args ...interface{}) {
				q.Where("assignee", args[0])
			})
	})

	entwine.Define("Invoice", func(s *entwine.Schema) {
		s.Fillable("number", "total", "meta").
			CastNamed("total", "money").
			CastNamed("meta", "json")
	})
}
