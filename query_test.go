package entwine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entwine-orm/entwine"
	"github.com/entwine-orm/entwine/clause"
)

func gtValue(stmt *entwine.Statement, column string) (interface{}, bool) {
	for _, expr := range stmt.WhereExprs() {
		if v, ok := expr.(clause.Gt); ok {
			if c, ok := v.Column.(clause.Column); ok && c.Name == column {
				return v.Value, true
			}
		}
	}
	return nil, false
}

func TestGlobalScopeAppliesAheadOfCallerPredicates(t *testing.T) {
	db, engine := openFake()

	_, err := db.Model("Ticket").Where("priority", 1).Get(context.Background())
	require.NoError(t, err)

	stmts := engine.queriesFor("tickets")
	require.Len(t, stmts, 1)

	exprs := stmts[0].WhereExprs()
	require.Len(t, exprs, 2)

	first, ok := exprs[0].(clause.Eq)
	require.True(t, ok)
	assert.Equal(t, "state", first.Column.(clause.Column).Name)
	assert.Equal(t, "open", first.Value)

	second, ok := exprs[1].(clause.Eq)
	require.True(t, ok)
	assert.Equal(t, "priority", second.Column.(clause.Column).Name)
}

func TestWithoutGlobalScope(t *testing.T) {
	db, engine := openFake()

	_, err := db.Model("Ticket").WithoutGlobalScope("open").Get(context.Background())
	require.NoError(t, err)

	stmts := engine.queriesFor("tickets")
	require.Len(t, stmts, 1)
	_, scoped := eqValue(stmts[0], "state")
	assert.False(t, scoped)

	_, err = db.Model("Ticket").WithoutGlobalScopes().Get(context.Background())
	require.NoError(t, err)
	assert.Empty(t, engine.queriesFor("tickets")[1].WhereExprs())
}

func TestNamedScope(t *testing.T) {
	db, engine := openFake()

	_, err := db.Model("Ticket").Scope("assignedTo", "ada").Get(context.Background())
	require.NoError(t, err)

	stmts := engine.queriesFor("tickets")
	require.Len(t, stmts, 1)
	v, ok := eqValue(stmts[0], "assignee")
	require.True(t, ok)
	assert.Equal(t, "ada", v)
}

func TestUnknownScopeIsStickyError(t *testing.T) {
	db, engine := openFake()

	_, err := db.Model("Ticket").Scope("nope").Get(context.Background())
	assert.ErrorIs(t, err, entwine.ErrScopeNotFound)
	assert.Empty(t, engine.queries, "a sticky builder error must not reach the engine")
}

func TestSoftDeleteVisibility(t *testing.T) {
	db, engine := openFake()
	ctx := context.Background()

	_, err := db.Model("Document").Get(ctx)
	require.NoError(t, err)
	_, err = db.Model("Document").WithTrashed().Get(ctx)
	require.NoError(t, err)
	_, err = db.Model("Document").OnlyTrashed().Get(ctx)
	require.NoError(t, err)

	stmts := engine.queriesFor("documents")
	require.Len(t, stmts, 3)
	assert.True(t, hasNullCheck(stmts[0], "deleted_at"), "default queries hide trashed rows")
	assert.Empty(t, stmts[1].WhereExprs(), "WithTrashed drops the filter")
	assert.True(t, hasNotNullCheck(stmts[2], "deleted_at"), "OnlyTrashed inverts the filter")
}

func TestOnlyTrashedRequiresSoftDeletes(t *testing.T) {
	db, _ := openFake()

	_, err := db.Model("Customer").OnlyTrashed().Get(context.Background())
	assert.ErrorIs(t, err, entwine.ErrSoftDeleteNotEnabled)
}

func TestMassSoftDeleteAndRestore(t *testing.T) {
	db, engine := openFake()
	ctx := context.Background()

	_, err := db.Model("Document").Where("title", "Spec").Delete(ctx)
	require.NoError(t, err)

	execs := engine.execsFor("documents")
	require.Len(t, execs, 1)
	assert.Equal(t, entwine.OpUpdate, execs[0].Op, "deleting a soft-delete type updates the sentinel")
	assert.Equal(t, frozenNow, execs[0].SetValues["deleted_at"])
	assert.Equal(t, frozenNow, execs[0].SetValues["updated_at"])

	_, err = db.Model("Document").Where("title", "Spec").Restore(ctx)
	require.NoError(t, err)

	execs = engine.execsFor("documents")
	require.Len(t, execs, 2)
	assert.Nil(t, execs[1].SetValues["deleted_at"])
	assert.True(t, hasNotNullCheck(execs[1], "deleted_at"), "restore targets trashed rows")

	_, err = db.Model("Document").Where("title", "Spec").ForceDelete(ctx)
	require.NoError(t, err)

	execs = engine.execsFor("documents")
	require.Len(t, execs, 3)
	assert.Equal(t, entwine.OpDelete, execs[2].Op)
}

func TestMassUpdateAppliesCasts(t *testing.T) {
	db, engine := openFake()

	_, err := db.Model("Invoice").Where("id", 1).Update(context.Background(), map[string]interface{}{
		"total": 12.5,
	})
	require.NoError(t, err)

	execs := engine.execsFor("invoices")
	require.Len(t, execs, 1)
	assert.Equal(t, int64(1250), execs[0].SetValues["total"])
	assert.Equal(t, frozenNow, execs[0].SetValues["updated_at"])
}

func TestFirstMissReturnsNil(t *testing.T) {
	db, _ := openFake()

	e, err := db.Model("Customer").Where("id", 404).First(context.Background())
	require.NoError(t, err)
	assert.Nil(t, e)

	_, err = db.Model("Customer").Where("id", 404).FirstOrFail(context.Background())
	assert.ErrorIs(t, err, entwine.ErrRecordNotFound)
}

func TestAggregates(t *testing.T) {
	db, engine := openFake()
	engine.respond = func(stmt *entwine.Statement) []map[string]interface{} {
		return []map[string]interface{}{{"aggregate": int64(3)}}
	}

	n, err := db.Model("Customer").Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	engine.respond = func(stmt *entwine.Statement) []map[string]interface{} {
		return []map[string]interface{}{{"aggregate": 42.5}}
	}
	sum, err := db.Model("Invoice").Sum(context.Background(), "total")
	require.NoError(t, err)
	assert.Equal(t, 42.5, sum)
}

func TestPluckAndValue(t *testing.T) {
	db, engine := openFake()
	engine.respond = func(stmt *entwine.Statement) []map[string]interface{} {
		return []map[string]interface{}{{"name": "Ada"}, {"name": "Grace"}}
	}

	names, err := db.Model("Customer").Pluck(context.Background(), "name")
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"Ada", "Grace"}, names)

	v, err := db.Model("Customer").Value(context.Background(), "name")
	require.NoError(t, err)
	assert.Equal(t, "Ada", v)
}

func TestFirstOrCreate(t *testing.T) {
	db, engine := openFake()

	e, err := db.Model("Customer").FirstOrCreate(context.Background(),
		map[string]interface{}{"email": "ada@example.com"},
		map[string]interface{}{"name": "Ada"},
	)
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, int64(1), e.Key())
	assert.Equal(t, "Ada", e.Raw("name"))

	execs := engine.execsFor("customers")
	require.Len(t, execs, 1)
	assert.Equal(t, entwine.OpInsert, execs[0].Op)
}

func TestUpdateOrCreateUpdatesExisting(t *testing.T) {
	db, engine := openFake()
	engine.respond = func(stmt *entwine.Statement) []map[string]interface{} {
		return []map[string]interface{}{{"id": int64(5), "email": "ada@example.com", "name": "Ada"}}
	}

	e, err := db.Model("Customer").UpdateOrCreate(context.Background(),
		map[string]interface{}{"email": "ada@example.com"},
		map[string]interface{}{"name": "Grace"},
	)
	require.NoError(t, err)
	assert.Equal(t, int64(5), e.Key())
	assert.Equal(t, "Grace", e.Raw("name"))

	execs := engine.execsFor("customers")
	require.Len(t, execs, 1)
	assert.Equal(t, entwine.OpUpdate, execs[0].Op)
}

func TestPaginate(t *testing.T) {
	db, engine := openFake()
	engine.respond = func(stmt *entwine.Statement) []map[string]interface{} {
		if len(stmt.Selects) == 1 && stmt.Selects[0] == "COUNT(*) AS aggregate" {
			return []map[string]interface{}{{"aggregate": int64(5)}}
		}
		return []map[string]interface{}{{"id": int64(3)}, {"id": int64(4)}}
	}

	page, err := db.Model("Customer").Paginate(context.Background(), 2, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), page.Total)
	assert.Equal(t, 2, page.CurrentPage)
	assert.Equal(t, 3, page.LastPage)
	assert.Equal(t, 2, page.Items.Len())

	var pageStmt *entwine.Statement
	for _, stmt := range engine.queriesFor("customers") {
		if len(stmt.Selects) == 0 {
			pageStmt = stmt
		}
	}
	require.NotNil(t, pageStmt)
	assert.Equal(t, 2, pageStmt.Limit())
	assert.Equal(t, 2, pageStmt.Offset())
}

func TestSimplePaginateOverfetchesByOne(t *testing.T) {
	db, engine := openFake()
	engine.respond = func(stmt *entwine.Statement) []map[string]interface{} {
		return []map[string]interface{}{{"id": int64(1)}, {"id": int64(2)}, {"id": int64(3)}}
	}

	page, err := db.Model("Customer").SimplePaginate(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.True(t, page.HasMore)
	assert.Equal(t, 2, page.Items.Len(), "the surplus row is discarded")

	stmts := engine.queriesFor("customers")
	require.Len(t, stmts, 1)
	assert.Equal(t, 3, stmts[0].Limit())
}

func TestCursorPaginate(t *testing.T) {
	db, engine := openFake()
	engine.respond = func(stmt *entwine.Statement) []map[string]interface{} {
		return []map[string]interface{}{{"id": int64(1)}, {"id": int64(2)}, {"id": int64(3)}}
	}

	page, err := db.Model("Customer").CursorPaginate(context.Background(), "id", "", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Items.Len())
	require.NotEmpty(t, page.NextCursor)

	engine.respond = func(stmt *entwine.Statement) []map[string]interface{} {
		return []map[string]interface{}{{"id": int64(3)}}
	}
	next, err := db.Model("Customer").CursorPaginate(context.Background(), "id", page.NextCursor, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, next.Items.Len())
	assert.Empty(t, next.NextCursor, "an exhausted result has no continuation")
}

func TestCursorPaginateRejectsMalformedCursor(t *testing.T) {
	db, _ := openFake()

	_, err := db.Model("Customer").CursorPaginate(context.Background(), "id", "not-a-cursor", 2)
	assert.ErrorIs(t, err, entwine.ErrInvalidData)
}

func TestChunkByID(t *testing.T) {
	db, engine := openFake()
	engine.respond = func(stmt *entwine.Statement) []map[string]interface{} {
		after, ok := gtValue(stmt, "id")
		if !ok {
			return []map[string]interface{}{{"id": int64(1)}, {"id": int64(2)}}
		}
		if after == int64(2) {
			return []map[string]interface{}{{"id": int64(3)}}
		}
		return nil
	}

	var seen []int64
	err := db.Model("Customer").ChunkByID(context.Background(), 2, func(c *entwine.Collection) error {
		for _, e := range c.All() {
			seen = append(seen, e.Key().(int64))
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, seen)
	assert.Len(t, engine.queriesFor("customers"), 2, "the short page ends the walk")
}

func TestModelUnknownTypeIsStickyError(t *testing.T) {
	db, _ := openFake()

	_, err := db.Model("Nope").Where("id", 1).Get(context.Background())
	assert.ErrorIs(t, err, entwine.ErrSchemaNotRegistered)
}
