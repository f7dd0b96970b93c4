package entwine

import (
	"context"
	"fmt"
	"reflect"
	"sort"
)

// Entity is the identity-bearing in-memory representation of one relational
// row. Attributes hold the storage representation; casts and accessors apply
// on the way in and out, never caching the domain value.
type Entity struct {
	db     *DB
	schema *Schema

	attributes map[string]interface{}
	attrOrder  []string
	original   map[string]interface{}
	dirty      map[string]struct{}
	relations  map[string]interface{}
	pivot      *Entity
	exists     bool
}

func newEntity(db *DB, schema *Schema) *Entity {
	return &Entity{
		db:         db,
		schema:     schema,
		attributes: map[string]interface{}{},
		original:   map[string]interface{}{},
		dirty:      map[string]struct{}{},
		relations:  map[string]interface{}{},
	}
}

// hydrateEntity materialize a row fetched from the engine. Hydration never
// produces dirt.
func hydrateEntity(db *DB, schema *Schema, row map[string]interface{}) *Entity {
	e := newEntity(db, schema)

	columns := make([]string, 0, len(row))
	for column := range row {
		columns = append(columns, column)
	}
	sort.Strings(columns)

	for _, column := range columns {
		e.storeRaw(column, row[column])
	}

	e.exists = true
	e.syncOriginal()
	return e
}

// Schema the schema this entity was built from
func (e *Entity) Schema() *Schema {
	return e.schema
}

// Exists whether this entity corresponds to a persisted row
func (e *Entity) Exists() bool {
	return e.exists
}

// Key the raw primary key value
func (e *Entity) Key() interface{} {
	return e.Raw(e.schema.PrimaryKey)
}

// Raw the stored representation of an attribute, casts not applied
func (e *Entity) Raw(key string) interface{} {
	return e.attributes[key]
}

// Has whether an attribute is present at all
func (e *Entity) Has(key string) bool {
	_, ok := e.attributes[key]
	return ok
}

// AttributeKeys attribute names in insertion order
func (e *Entity) AttributeKeys() []string {
	return append([]string(nil), e.attrOrder...)
}

// Get the domain value of an attribute: an explicit accessor wins, then the
// cast, then the raw value passes through. A failing cast surfaces unchanged.
func (e *Entity) Get(key string) (interface{}, error) {
	raw := e.attributes[key]

	if getter, ok := e.schema.getters[key]; ok {
		return getter(e, raw), nil
	}
	if c, ok := e.schema.casts[key]; ok {
		return c.Get(raw)
	}
	return raw, nil
}

// MustGet like Get but panics on a cast failure, for computed attributes and
// tests.
func (e *Entity) MustGet(key string) interface{} {
	v, err := e.Get(key)
	if err != nil {
		panic(err)
	}
	return v
}

// Set write an attribute through its mutator or cast. The key becomes dirty
// only when the entity already exists and the stored value actually changed.
func (e *Entity) Set(key string, value interface{}) error {
	stored := value

	if setter, ok := e.schema.setters[key]; ok {
		stored = setter(e, value)
	} else if c, ok := e.schema.casts[key]; ok {
		var err error
		if stored, err = c.Set(value); err != nil {
			return err
		}
	}

	e.storeRaw(key, stored)
	return nil
}

// SetRaw write an attribute bypassing mutators and casts
func (e *Entity) SetRaw(key string, value interface{}) {
	e.storeRaw(key, value)
}

func (e *Entity) storeRaw(key string, value interface{}) {
	if _, ok := e.attributes[key]; !ok {
		e.attrOrder = append(e.attrOrder, key)
	}
	e.attributes[key] = value

	if e.exists {
		if valuesEqual(e.original[key], value) {
			delete(e.dirty, key)
		} else {
			e.dirty[key] = struct{}{}
		}
	}
}

// takeAttribute remove an attribute entirely, returning its stored value.
// Used for bookkeeping columns smuggled through a join.
func (e *Entity) takeAttribute(key string) (interface{}, bool) {
	v, ok := e.attributes[key]
	if !ok {
		return nil, false
	}
	delete(e.attributes, key)
	delete(e.original, key)
	delete(e.dirty, key)
	for i, k := range e.attrOrder {
		if k == key {
			e.attrOrder = append(e.attrOrder[:i], e.attrOrder[i+1:]...)
			break
		}
	}
	return v, true
}

// extractPrefixed remove every attribute under prefix, returning them keyed
// by the remainder of their name.
func (e *Entity) extractPrefixed(prefix string) map[string]interface{} {
	out := map[string]interface{}{}
	kept := e.attrOrder[:0]
	for _, key := range e.attrOrder {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			out[key[len(prefix):]] = e.attributes[key]
			delete(e.attributes, key)
			delete(e.original, key)
			delete(e.dirty, key)
			continue
		}
		kept = append(kept, key)
	}
	e.attrOrder = kept
	return out
}

// valuesEqual dirty comparison policy: deep equality on the stored
// representation, so re-setting an equal JSON document clears the dirt.
func valuesEqual(a, b interface{}) bool {
	return reflect.DeepEqual(a, b)
}

// Fill mass-assign attributes under the schema's allow/deny policy; keys the
// policy rejects are skipped silently.
func (e *Entity) Fill(attrs map[string]interface{}) error {
	keys := make([]string, 0, len(attrs))
	for key := range attrs {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if !e.schema.fillPermitted(key) {
			continue
		}
		if err := e.Set(key, attrs[key]); err != nil {
			return err
		}
	}
	return nil
}

// ForceFill mass-assign bypassing the policy
func (e *Entity) ForceFill(attrs map[string]interface{}) error {
	keys := make([]string, 0, len(attrs))
	for key := range attrs {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if err := e.Set(key, attrs[key]); err != nil {
			return err
		}
	}
	return nil
}

// IsDirty whether any (or any of the given) attributes changed since the
// last sync with persisted state.
func (e *Entity) IsDirty(keys ...string) bool {
	if len(keys) == 0 {
		return len(e.dirty) > 0
	}
	for _, key := range keys {
		if _, ok := e.dirty[key]; ok {
			return true
		}
	}
	return false
}

// Dirty the dirty attribute names, sorted
func (e *Entity) Dirty() []string {
	keys := make([]string, 0, len(e.dirty))
	for key := range e.dirty {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// GetOriginal the stored value as of the last load or persist
func (e *Entity) GetOriginal(key string) interface{} {
	return e.original[key]
}

func (e *Entity) syncOriginal() {
	e.original = make(map[string]interface{}, len(e.attributes))
	for k, v := range e.attributes {
		e.original[k] = v
	}
	e.dirty = map[string]struct{}{}
}

// newQuery an internal builder for this type without global scopes or the
// soft-delete filter; persistence must reach the row regardless of
// visibility rules.
func (e *Entity) newQuery() *Query {
	return e.db.Model(e.schema.Name).Unscoped()
}

// Save persist the entity: insert when new, flush the dirty subset when it
// exists. Returns false without error when a pre-action hook aborts.
func (e *Entity) Save(ctx context.Context) (bool, error) {
	if !e.exists {
		return e.performInsert(ctx)
	}
	return e.performUpdate(ctx)
}

func (e *Entity) performInsert(ctx context.Context) (bool, error) {
	for _, event := range []Event{EventCreating, EventSaving} {
		proceed, err := e.fireHooks(ctx, event)
		if err != nil || !proceed {
			return false, err
		}
	}

	if e.schema.Timestamps {
		now := e.db.NowFunc()
		if e.Raw(e.schema.CreatedAtColumn) == nil {
			e.storeRaw(e.schema.CreatedAtColumn, now)
		}
		if e.Raw(e.schema.UpdatedAtColumn) == nil {
			e.storeRaw(e.schema.UpdatedAtColumn, now)
		}
	}

	if e.Key() == nil {
		if generated := generateKey(e.schema.KeyStrategy); generated != nil {
			e.storeRaw(e.schema.PrimaryKey, generated)
		}
	}

	values := make(map[string]interface{}, len(e.attributes))
	for k, v := range e.attributes {
		values[k] = v
	}

	q := e.newQuery()
	if e.schema.KeyStrategy == KeySequential && e.Key() == nil {
		key, err := q.insertReturningKey(ctx, values)
		if err != nil {
			return false, err
		}
		e.storeRaw(e.schema.PrimaryKey, key)
	} else {
		if _, err := q.Insert(ctx, values); err != nil {
			return false, err
		}
	}

	e.exists = true
	e.syncOriginal()

	for _, event := range []Event{EventCreated, EventSaved} {
		if _, err := e.fireHooks(ctx, event); err != nil {
			return true, err
		}
	}
	return true, nil
}

func (e *Entity) performUpdate(ctx context.Context) (bool, error) {
	if len(e.dirty) == 0 {
		return true, nil
	}

	for _, event := range []Event{EventUpdating, EventSaving} {
		proceed, err := e.fireHooks(ctx, event)
		if err != nil || !proceed {
			return false, err
		}
	}

	if e.schema.Timestamps {
		e.storeRaw(e.schema.UpdatedAtColumn, e.db.NowFunc())
	}

	values := make(map[string]interface{}, len(e.dirty))
	for key := range e.dirty {
		if e.schema.Timestamps && key == e.schema.CreatedAtColumn {
			continue
		}
		values[key] = e.attributes[key]
	}

	if len(values) > 0 {
		q := e.newQuery().Where(e.schema.PrimaryKey, e.Key())
		if _, err := q.updateRaw(ctx, values); err != nil {
			return false, err
		}
	}

	e.syncOriginal()

	for _, event := range []Event{EventUpdated, EventSaved} {
		if _, err := e.fireHooks(ctx, event); err != nil {
			return true, err
		}
	}
	return true, nil
}

// Update mass-assign then save
func (e *Entity) Update(ctx context.Context, attrs map[string]interface{}) (bool, error) {
	if err := e.Fill(attrs); err != nil {
		return false, err
	}
	return e.Save(ctx)
}

// Delete soft-delete when the schema enables it, otherwise remove the row.
// Deleting an entity that never persisted is a no-op.
func (e *Entity) Delete(ctx context.Context) (bool, error) {
	return e.delete(ctx, e.schema.SoftDeleteEnabled())
}

// ForceDelete remove the row even when soft deletes are enabled
func (e *Entity) ForceDelete(ctx context.Context) (bool, error) {
	return e.delete(ctx, false)
}

func (e *Entity) delete(ctx context.Context, soft bool) (bool, error) {
	if !e.exists {
		return false, nil
	}

	proceed, err := e.fireHooks(ctx, EventDeleting)
	if err != nil || !proceed {
		return false, err
	}

	q := e.newQuery().Where(e.schema.PrimaryKey, e.Key())
	if soft {
		now := e.db.NowFunc()
		values := map[string]interface{}{e.schema.DeletedAtColumn: now}
		e.storeRaw(e.schema.DeletedAtColumn, now)
		if e.schema.Timestamps {
			e.storeRaw(e.schema.UpdatedAtColumn, now)
			values[e.schema.UpdatedAtColumn] = now
		}
		if _, err := q.updateRaw(ctx, values); err != nil {
			return false, err
		}
		e.syncOriginal()
	} else {
		if _, err := q.deleteRaw(ctx); err != nil {
			return false, err
		}
		e.exists = false
	}

	if _, err := e.fireHooks(ctx, EventDeleted); err != nil {
		return true, err
	}
	return true, nil
}

// Trashed whether the entity is currently soft-deleted
func (e *Entity) Trashed() bool {
	return e.schema.SoftDeleteEnabled() && e.Raw(e.schema.DeletedAtColumn) != nil
}

// Restore clear the soft-delete sentinel so the row reappears in default
// queries.
func (e *Entity) Restore(ctx context.Context) (bool, error) {
	if !e.schema.SoftDeleteEnabled() {
		return false, ErrSoftDeleteNotEnabled
	}
	if !e.exists {
		return false, nil
	}

	proceed, err := e.fireHooks(ctx, EventRestoring)
	if err != nil || !proceed {
		return false, err
	}

	values := map[string]interface{}{e.schema.DeletedAtColumn: nil}
	e.storeRaw(e.schema.DeletedAtColumn, nil)
	if e.schema.Timestamps {
		now := e.db.NowFunc()
		e.storeRaw(e.schema.UpdatedAtColumn, now)
		values[e.schema.UpdatedAtColumn] = now
	}
	q := e.newQuery().Where(e.schema.PrimaryKey, e.Key())
	if _, err := q.updateRaw(ctx, values); err != nil {
		return false, err
	}
	e.syncOriginal()

	if _, err := e.fireHooks(ctx, EventRestored); err != nil {
		return true, err
	}
	return true, nil
}

// Fresh re-fetch this entity from storage, trashed rows included
func (e *Entity) Fresh(ctx context.Context) (*Entity, error) {
	if !e.exists {
		return nil, nil
	}
	return e.newQuery().Where(e.schema.PrimaryKey, e.Key()).First(ctx)
}

// Replicate copy the entity minus identity and timestamps, not yet persisted
func (e *Entity) Replicate() *Entity {
	clone := newEntity(e.db, e.schema)
	for _, key := range e.attrOrder {
		if key == e.schema.PrimaryKey {
			continue
		}
		if e.schema.Timestamps && (key == e.schema.CreatedAtColumn || key == e.schema.UpdatedAtColumn) {
			continue
		}
		clone.storeRaw(key, e.attributes[key])
	}
	return clone
}

// Relation build the relation descriptor declared under name; a missing
// declaration is a hard failure naming the reference.
func (e *Entity) Relation(name string) (Relation, error) {
	cfg, ok := e.schema.relations[name]
	if !ok {
		return nil, newNamedError(ErrRelationNotFound, e.schema.Name, name)
	}
	return cfg.bind(e.db, e.schema, e), nil
}

// BelongsToManyRelation the typed descriptor for pivot mutation helpers
func (e *Entity) BelongsToManyRelation(name string) (*BelongsToMany, error) {
	rel, err := e.Relation(name)
	if err != nil {
		return nil, err
	}
	btm, ok := rel.(*BelongsToMany)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s is not a belongs-to-many relation", ErrInvalidData, e.schema.Name, name)
	}
	return btm, nil
}

// Load eager-load the given dot paths onto this entity
func (e *Entity) Load(ctx context.Context, paths ...string) error {
	preloads := make([]Preload, len(paths))
	for i, p := range paths {
		preloads[i] = Preload{Path: p}
	}
	return e.db.eagerLoad(ctx, e.schema, []*Entity{e}, preloads)
}

// RelationLoaded whether a relation has been resolved onto this entity
func (e *Entity) RelationLoaded(name string) bool {
	_, ok := e.relations[name]
	return ok
}

// RelationValue the resolved relation value: *Entity, *Collection or nil
func (e *Entity) RelationValue(name string) interface{} {
	return e.relations[name]
}

// SetRelation attach a resolved relation value
func (e *Entity) SetRelation(name string, value interface{}) {
	e.relations[name] = value
}

// Pivot the pivot row carried by entities loaded through a belongs-to-many
// relation, nil otherwise.
func (e *Entity) Pivot() *Entity {
	return e.pivot
}
