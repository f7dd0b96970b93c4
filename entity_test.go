package entwine_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entwine-orm/entwine"
)

func TestFillRespectsPolicy(t *testing.T) {
	db, _ := openFake()

	e, err := db.NewEntity("Customer", map[string]interface{}{
		"name":  "Ada",
		"email": "ada@example.com",
		"role":  "admin",
	})
	require.NoError(t, err)

	assert.Equal(t, "Ada", e.Raw("name"))
	assert.Equal(t, "ada@example.com", e.Raw("email"))
	assert.Nil(t, e.Raw("role"), "guarded attribute must be skipped silently")

	require.NoError(t, e.ForceFill(map[string]interface{}{"role": "admin"}))
	assert.Equal(t, "admin", e.Raw("role"))
}

func TestSaveInsertsAndAdoptsGeneratedKey(t *testing.T) {
	db, engine := openFake()

	e, err := db.NewEntity("Customer", map[string]interface{}{"name": "Ada"})
	require.NoError(t, err)
	assert.False(t, e.Exists())

	saved, err := e.Save(context.Background())
	require.NoError(t, err)
	assert.True(t, saved)
	assert.True(t, e.Exists())
	assert.Equal(t, int64(1), e.Key())
	assert.False(t, e.IsDirty())

	execs := engine.execsFor("customers")
	require.Len(t, execs, 1)
	require.Len(t, execs[0].InsertValues, 1)
	row := execs[0].InsertValues[0]
	assert.Equal(t, "Ada", row["name"])
	assert.Equal(t, frozenNow, row["created_at"])
	assert.Equal(t, frozenNow, row["updated_at"])
}

func TestSaveIsNoopWhenClean(t *testing.T) {
	db, engine := openFake()
	engine.respond = func(stmt *entwine.Statement) []map[string]interface{} {
		return []map[string]interface{}{{"id": int64(1), "name": "Ada"}}
	}

	e, err := db.Model("Customer").Find(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.False(t, e.IsDirty())

	saved, err := e.Save(context.Background())
	require.NoError(t, err)
	assert.True(t, saved)
	assert.Empty(t, engine.execs, "a clean save must not touch the engine")
}

func TestDirtyTrackingDeepEquality(t *testing.T) {
	db, engine := openFake()
	engine.respond = func(stmt *entwine.Statement) []map[string]interface{} {
		return []map[string]interface{}{{"id": int64(1), "name": "Ada", "email": "ada@example.com"}}
	}

	e, err := db.Model("Customer").Find(context.Background(), 1)
	require.NoError(t, err)

	require.NoError(t, e.Set("name", "Ada"))
	assert.False(t, e.IsDirty(), "re-setting the stored value is not a change")

	require.NoError(t, e.Set("name", "Grace"))
	assert.True(t, e.IsDirty("name"))
	assert.Equal(t, []string{"name"}, e.Dirty())

	require.NoError(t, e.Set("name", "Ada"))
	assert.False(t, e.IsDirty(), "reverting to the original clears the dirt")
}

func TestUpdatePersistsOnlyDirtyAttributes(t *testing.T) {
	db, engine := openFake()
	engine.respond = func(stmt *entwine.Statement) []map[string]interface{} {
		return []map[string]interface{}{{"id": int64(1), "name": "Ada", "email": "ada@example.com"}}
	}

	e, err := db.Model("Customer").Find(context.Background(), 1)
	require.NoError(t, err)

	require.NoError(t, e.Set("email", "grace@example.com"))
	saved, err := e.Save(context.Background())
	require.NoError(t, err)
	assert.True(t, saved)

	execs := engine.execsFor("customers")
	require.Len(t, execs, 1)
	assert.Equal(t, entwine.OpUpdate, execs[0].Op)
	assert.Equal(t, "grace@example.com", execs[0].SetValues["email"])
	assert.Equal(t, frozenNow, execs[0].SetValues["updated_at"])
	assert.NotContains(t, execs[0].SetValues, "name")
	assert.NotContains(t, execs[0].SetValues, "created_at")

	key, ok := eqValue(execs[0], "id")
	require.True(t, ok)
	assert.Equal(t, int64(1), key)
	assert.False(t, e.IsDirty())
}

func TestHookAbortCancelsWithoutError(t *testing.T) {
	entwine.Define("AuditedNote", func(s *entwine.Schema) {
		s.Fillable("body").
			On(entwine.EventCreating, func(ctx context.Context, e *entwine.Entity) error {
				if e.Raw("body") == "" {
					return entwine.Abort()
				}
				return nil
			})
	})

	db, engine := openFake()
	e, err := db.NewEntity("AuditedNote", map[string]interface{}{"body": ""})
	require.NoError(t, err)
	require.NoError(t, e.Set("body", ""))

	saved, err := e.Save(context.Background())
	require.NoError(t, err)
	assert.False(t, saved)
	assert.False(t, e.Exists())
	assert.Empty(t, engine.execs)
}

func TestHooksMutateBeforePersist(t *testing.T) {
	entwine.Define("SluggedPage", func(s *entwine.Schema) {
		s.Fillable("title", "slug").
			On(entwine.EventSaving, func(ctx context.Context, e *entwine.Entity) error {
				if e.Raw("slug") == nil {
					e.SetRaw("slug", "draft")
				}
				return nil
			})
	})

	db, engine := openFake()
	e, err := db.NewEntity("SluggedPage", map[string]interface{}{"title": "Hello"})
	require.NoError(t, err)

	_, err = e.Save(context.Background())
	require.NoError(t, err)

	execs := engine.execsFor("slugged_pages")
	require.Len(t, execs, 1)
	assert.Equal(t, "draft", execs[0].InsertValues[0]["slug"])
}

func TestUUIDKeyGeneratedBeforeInsert(t *testing.T) {
	entwine.Define("Session", func(s *entwine.Schema) {
		s.Key("id", entwine.KeyUUID).
			WithoutTimestamps().
			Fillable("token")
	})

	db, engine := openFake()
	e, err := db.NewEntity("Session", map[string]interface{}{"token": "abc"})
	require.NoError(t, err)

	_, err = e.Save(context.Background())
	require.NoError(t, err)

	key, ok := e.Key().(string)
	require.True(t, ok)
	assert.Len(t, key, 36)

	execs := engine.execsFor("sessions")
	require.Len(t, execs, 1)
	assert.Equal(t, entwine.OpInsert, execs[0].Op)
	assert.Equal(t, key, execs[0].InsertValues[0]["id"])
}

func TestSoftDeleteLifecycle(t *testing.T) {
	db, engine := openFake()
	engine.respond = func(stmt *entwine.Statement) []map[string]interface{} {
		return []map[string]interface{}{{"id": int64(1), "title": "Spec", "deleted_at": nil}}
	}

	e, err := db.Model("Document").Find(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, e.Trashed())

	deleted, err := e.Delete(context.Background())
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.True(t, e.Exists(), "a soft-deleted entity still exists")
	assert.True(t, e.Trashed())

	execs := engine.execsFor("documents")
	require.Len(t, execs, 1)
	assert.Equal(t, entwine.OpUpdate, execs[0].Op)
	assert.Equal(t, frozenNow, execs[0].SetValues["deleted_at"])
	assert.Equal(t, frozenNow, execs[0].SetValues["updated_at"])
	assert.Equal(t, frozenNow, e.Raw("updated_at"))

	restored, err := e.Restore(context.Background())
	require.NoError(t, err)
	assert.True(t, restored)
	assert.False(t, e.Trashed())

	execs = engine.execsFor("documents")
	require.Len(t, execs, 2)
	assert.Nil(t, execs[1].SetValues["deleted_at"])
	assert.Equal(t, frozenNow, execs[1].SetValues["updated_at"])

	forced, err := e.ForceDelete(context.Background())
	require.NoError(t, err)
	assert.True(t, forced)
	assert.False(t, e.Exists())

	execs = engine.execsFor("documents")
	require.Len(t, execs, 3)
	assert.Equal(t, entwine.OpDelete, execs[2].Op)
}

func TestDeleteUnsavedIsNoop(t *testing.T) {
	db, engine := openFake()

	e, err := db.NewEntity("Customer", map[string]interface{}{"name": "Ada"})
	require.NoError(t, err)

	deleted, err := e.Delete(context.Background())
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.Empty(t, engine.execs)
}

func TestRestoreRequiresSoftDeletes(t *testing.T) {
	db, _ := openFake()

	e, err := db.NewEntity("Customer", map[string]interface{}{"name": "Ada"})
	require.NoError(t, err)

	_, err = e.Restore(context.Background())
	assert.ErrorIs(t, err, entwine.ErrSoftDeleteNotEnabled)
}

func TestCastRoundTrip(t *testing.T) {
	db, engine := openFake()

	e, err := db.NewEntity("Invoice", map[string]interface{}{
		"number": "INV-1",
		"total":  19.99,
		"meta":   map[string]interface{}{"channel": "web"},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(1999), e.Raw("total"), "money stores integer cents")
	total, err := e.Get("total")
	require.NoError(t, err)
	assert.InDelta(t, 19.99, total, 0.0001)

	meta, err := e.Get("meta")
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"channel": "web"}, meta)

	_, err = e.Save(context.Background())
	require.NoError(t, err)

	execs := engine.execsFor("invoices")
	require.Len(t, execs, 1)
	assert.Equal(t, int64(1999), execs[0].InsertValues[0]["total"], "the stored representation goes to the engine")
}

func TestReplicateDropsIdentity(t *testing.T) {
	db, engine := openFake()
	engine.respond = func(stmt *entwine.Statement) []map[string]interface{} {
		return []map[string]interface{}{{
			"id": int64(3), "name": "Ada", "created_at": frozenNow, "updated_at": frozenNow,
		}}
	}

	e, err := db.Model("Customer").Find(context.Background(), 3)
	require.NoError(t, err)

	clone := e.Replicate()
	assert.False(t, clone.Exists())
	assert.Nil(t, clone.Key())
	assert.Nil(t, clone.Raw("created_at"))
	assert.Equal(t, "Ada", clone.Raw("name"))
}

func TestSerialization(t *testing.T) {
	entwine.Define("Profile", func(s *entwine.Schema) {
		s.Fillable("name", "secret", "first", "last").
			Hidden("secret").
			Append("full_name", func(e *entwine.Entity) interface{} {
				return e.Raw("first").(string) + " " + e.Raw("last").(string)
			})
	})

	db, _ := openFake()
	e, err := db.NewEntity("Profile", map[string]interface{}{
		"name": "ada", "secret": "s3cret", "first": "Ada", "last": "Lovelace",
	})
	require.NoError(t, err)

	m, err := e.ToMap()
	require.NoError(t, err)
	assert.NotContains(t, m, "secret")
	assert.Equal(t, "Ada Lovelace", m["full_name"])

	raw, err := json.Marshal(e)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "ada", decoded["name"])
	assert.NotContains(t, decoded, "secret")
}
