package entwine

import (
	"context"
	"fmt"

	"github.com/entwine-orm/entwine/clause"
	"github.com/entwine-orm/entwine/utils"
)

// pivotAliasPrefix column alias prefix used to smuggle pivot columns through
// the relation query; stripped off during hydration.
const pivotAliasPrefix = "pivot_"

// throughKeyAlias column alias used to carry the grouping key of a
// has-many-through query; stripped off during hydration.
const throughKeyAlias = "__through_key"

type relationKind int

const (
	relHasOne relationKind = iota
	relHasMany
	relBelongsTo
	relBelongsToMany
	relHasManyThrough
	relMorphTo
	relMorphMany
)

// relationConfig one relation declaration on a schema. Keys left empty are
// derived lazily from the naming strategy, so two schemas can declare
// relations at each other before both are registered.
type relationConfig struct {
	kind    relationKind
	name    string
	related string

	foreignKey string
	localKey   string

	// belongs-to-many
	pivotTable      string
	foreignPivotKey string
	relatedPivotKey string
	pivotColumns    []string
	pivotTimestamps bool

	// has-many-through
	through        string
	firstKey       string
	secondKey      string
	secondLocalKey string

	// polymorphic
	morphType string
	morphID   string
}

// HasOne declare a one-to-one where the related table holds the foreign key.
// keys optionally override [foreignKey, localKey].
func (s *Schema) HasOne(name, related string, keys ...string) *Schema {
	cfg := &relationConfig{kind: relHasOne, name: name, related: related}
	if len(keys) > 0 {
		cfg.foreignKey = keys[0]
	}
	if len(keys) > 1 {
		cfg.localKey = keys[1]
	}
	s.relations[name] = cfg
	return s
}

// HasMany declare a one-to-many where the related table holds the foreign
// key. keys optionally override [foreignKey, localKey].
func (s *Schema) HasMany(name, related string, keys ...string) *Schema {
	cfg := &relationConfig{kind: relHasMany, name: name, related: related}
	if len(keys) > 0 {
		cfg.foreignKey = keys[0]
	}
	if len(keys) > 1 {
		cfg.localKey = keys[1]
	}
	s.relations[name] = cfg
	return s
}

// BelongsTo declare the inverse of a has relation: this table holds the
// foreign key. keys optionally override [foreignKey, ownerKey].
func (s *Schema) BelongsTo(name, related string, keys ...string) *Schema {
	cfg := &relationConfig{kind: relBelongsTo, name: name, related: related}
	if len(keys) > 0 {
		cfg.foreignKey = keys[0]
	}
	if len(keys) > 1 {
		cfg.localKey = keys[1]
	}
	s.relations[name] = cfg
	return s
}

// BelongsToManyDef continues a belongs-to-many declaration fluently.
type BelongsToManyDef struct {
	cfg *relationConfig
}

// BelongsToMany declare a many-to-many through a pivot table. The pivot
// table name and key columns derive from the naming strategy unless
// overridden on the returned definition.
func (s *Schema) BelongsToMany(name, related string) *BelongsToManyDef {
	cfg := &relationConfig{kind: relBelongsToMany, name: name, related: related}
	s.relations[name] = cfg
	return &BelongsToManyDef{cfg: cfg}
}

// Pivot override the pivot table name
func (d *BelongsToManyDef) Pivot(table string) *BelongsToManyDef {
	d.cfg.pivotTable = table
	return d
}

// Keys override the pivot key columns referencing the owner and the related
// type.
func (d *BelongsToManyDef) Keys(foreignPivotKey, relatedPivotKey string) *BelongsToManyDef {
	d.cfg.foreignPivotKey = foreignPivotKey
	d.cfg.relatedPivotKey = relatedPivotKey
	return d
}

// WithPivot expose extra pivot columns on loaded entities
func (d *BelongsToManyDef) WithPivot(columns ...string) *BelongsToManyDef {
	d.cfg.pivotColumns = append(d.cfg.pivotColumns, columns...)
	return d
}

// WithTimestamps maintain created_at/updated_at on the pivot rows
func (d *BelongsToManyDef) WithTimestamps() *BelongsToManyDef {
	d.cfg.pivotTimestamps = true
	return d
}

// HasManyThrough declare a distant one-to-many reached through an
// intermediate type. keys optionally override
// [firstKey, secondKey, localKey, secondLocalKey].
func (s *Schema) HasManyThrough(name, related, through string, keys ...string) *Schema {
	cfg := &relationConfig{kind: relHasManyThrough, name: name, related: related, through: through}
	if len(keys) > 0 {
		cfg.firstKey = keys[0]
	}
	if len(keys) > 1 {
		cfg.secondKey = keys[1]
	}
	if len(keys) > 2 {
		cfg.localKey = keys[2]
	}
	if len(keys) > 3 {
		cfg.secondLocalKey = keys[3]
	}
	s.relations[name] = cfg
	return s
}

// MorphTo declare a polymorphic parent reference: this table holds a type
// column and an id column naming its owner. Column names derive from
// morphName ("<morphName>_type", "<morphName>_id") unless overridden.
func (s *Schema) MorphTo(name, morphName string, columns ...string) *Schema {
	cfg := &relationConfig{
		kind:      relMorphTo,
		name:      name,
		morphType: morphName + "_type",
		morphID:   morphName + "_id",
	}
	if len(columns) > 0 {
		cfg.morphType = columns[0]
	}
	if len(columns) > 1 {
		cfg.morphID = columns[1]
	}
	s.relations[name] = cfg
	return s
}

// MorphMany declare the inverse of MorphTo: the related table holds the
// morph columns pointing back at this type.
func (s *Schema) MorphMany(name, related, morphName string) *Schema {
	s.relations[name] = &relationConfig{
		kind:      relMorphMany,
		name:      name,
		related:   related,
		morphType: morphName + "_type",
		morphID:   morphName + "_id",
	}
	return s
}

// Relation is one bound relation: lazy access for a single parent, batched
// eager loading for a set of owners.
type Relation interface {
	// Query the constrained supplemental query for a single parent
	Query() *Query
	// Get resolve for the bound parent: *Entity for single-valued kinds,
	// *Collection for many-valued kinds
	Get(ctx context.Context) (interface{}, error)
	// EagerLoad resolve for every owner in batch and attach the results
	EagerLoad(ctx context.Context, owners []*Entity, constrain func(q *Query)) error
}

// bind materialize a relation descriptor for a parent (nil during eager
// loading).
func (cfg *relationConfig) bind(db *DB, owner *Schema, parent *Entity) Relation {
	switch cfg.kind {
	case relHasOne:
		return &HasOne{hasRelation: cfg.bindHas(db, owner, parent)}
	case relHasMany:
		return &HasMany{hasRelation: cfg.bindHas(db, owner, parent)}
	case relBelongsTo:
		return cfg.bindBelongsTo(db, owner, parent)
	case relBelongsToMany:
		return cfg.bindBelongsToMany(db, owner, parent)
	case relHasManyThrough:
		return cfg.bindThrough(db, owner, parent)
	case relMorphTo:
		return &MorphTo{db: db, owner: owner, parent: parent, cfg: cfg}
	case relMorphMany:
		return &MorphMany{db: db, owner: owner, parent: parent, cfg: cfg}
	default:
		panic(fmt.Sprintf("unknown relation kind %d", cfg.kind))
	}
}

// groupKey normalize a key value for in-memory matching, so an int64 id from
// the engine matches an int id supplied by the caller.
func groupKey(v interface{}) string {
	return utils.ToString(v)
}

// distinctKeys the non-nil values of one attribute across owners, de-duped
// in first-seen order.
func distinctKeys(owners []*Entity, attr string) []interface{} {
	seen := map[string]struct{}{}
	keys := make([]interface{}, 0, len(owners))
	for _, owner := range owners {
		v := owner.Raw(attr)
		if v == nil {
			continue
		}
		k := groupKey(v)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, v)
	}
	return keys
}

// hasRelation the shared shape of has-one and has-many: the related table
// holds the foreign key.
type hasRelation struct {
	db      *DB
	owner   *Schema
	parent  *Entity
	name    string
	related string

	foreignKey string
	localKey   string
}

func (cfg *relationConfig) bindHas(db *DB, owner *Schema, parent *Entity) hasRelation {
	r := hasRelation{
		db: db, owner: owner, parent: parent,
		name: cfg.name, related: cfg.related,
		foreignKey: cfg.foreignKey, localKey: cfg.localKey,
	}
	if r.foreignKey == "" {
		r.foreignKey = db.NamingStrategy.ForeignKeyName(owner.Name)
	}
	if r.localKey == "" {
		r.localKey = owner.PrimaryKey
	}
	return r
}

func (r hasRelation) Query() *Query {
	q := r.db.Model(r.related)
	if r.parent != nil {
		q.Where(r.foreignKey, r.parent.Raw(r.localKey))
	}
	return q
}

// load run the batched query and bucket results by foreign key
func (r hasRelation) load(ctx context.Context, owners []*Entity, constrain func(q *Query)) (map[string][]*Entity, error) {
	keys := distinctKeys(owners, r.localKey)
	if len(keys) == 0 {
		return map[string][]*Entity{}, nil
	}

	q := r.db.Model(r.related).WhereIn(r.foreignKey, keys...)
	if constrain != nil {
		constrain(q)
	}
	c, err := q.Get(ctx)
	if err != nil {
		return nil, err
	}
	return c.GroupBy(r.foreignKey), nil
}

// HasOne a one-to-one held by the related table.
type HasOne struct {
	hasRelation
}

func (r *HasOne) Get(ctx context.Context) (interface{}, error) {
	if r.parent == nil || r.parent.Raw(r.localKey) == nil {
		return nil, nil
	}
	return r.Query().First(ctx)
}

func (r *HasOne) EagerLoad(ctx context.Context, owners []*Entity, constrain func(q *Query)) error {
	dict, err := r.load(ctx, owners, constrain)
	if err != nil {
		return err
	}
	for _, owner := range owners {
		matches := dict[groupKey(owner.Raw(r.localKey))]
		if len(matches) > 0 {
			owner.SetRelation(r.name, matches[0])
		} else {
			owner.SetRelation(r.name, (*Entity)(nil))
		}
	}
	return nil
}

// HasMany a one-to-many held by the related table.
type HasMany struct {
	hasRelation
}

func (r *HasMany) Get(ctx context.Context) (interface{}, error) {
	if r.parent == nil || r.parent.Raw(r.localKey) == nil {
		return NewCollection(), nil
	}
	return r.Query().Get(ctx)
}

func (r *HasMany) EagerLoad(ctx context.Context, owners []*Entity, constrain func(q *Query)) error {
	dict, err := r.load(ctx, owners, constrain)
	if err != nil {
		return err
	}
	for _, owner := range owners {
		owner.SetRelation(r.name, NewCollection(dict[groupKey(owner.Raw(r.localKey))]...))
	}
	return nil
}

// BelongsTo the inverse: this table holds the foreign key.
type BelongsTo struct {
	db      *DB
	owner   *Schema
	parent  *Entity
	name    string
	related string

	foreignKey string
	ownerKey   string
}

func (cfg *relationConfig) bindBelongsTo(db *DB, owner *Schema, parent *Entity) *BelongsTo {
	r := &BelongsTo{
		db: db, owner: owner, parent: parent,
		name: cfg.name, related: cfg.related,
		foreignKey: cfg.foreignKey, ownerKey: cfg.localKey,
	}
	if r.foreignKey == "" {
		r.foreignKey = db.NamingStrategy.ForeignKeyName(cfg.related)
	}
	if r.ownerKey == "" {
		if s, err := LookupSchema(cfg.related); err == nil {
			r.ownerKey = s.PrimaryKey
		} else {
			r.ownerKey = "id"
		}
	}
	return r
}

func (r *BelongsTo) Query() *Query {
	q := r.db.Model(r.related)
	if r.parent != nil {
		q.Where(r.ownerKey, r.parent.Raw(r.foreignKey))
	}
	return q
}

func (r *BelongsTo) Get(ctx context.Context) (interface{}, error) {
	if r.parent == nil || r.parent.Raw(r.foreignKey) == nil {
		return nil, nil
	}
	return r.Query().First(ctx)
}

func (r *BelongsTo) EagerLoad(ctx context.Context, owners []*Entity, constrain func(q *Query)) error {
	keys := distinctKeys(owners, r.foreignKey)
	dict := map[string]*Entity{}
	if len(keys) > 0 {
		q := r.db.Model(r.related).WhereIn(r.ownerKey, keys...)
		if constrain != nil {
			constrain(q)
		}
		c, err := q.Get(ctx)
		if err != nil {
			return err
		}
		dict = c.KeyBy(r.ownerKey)
	}

	for _, owner := range owners {
		fk := owner.Raw(r.foreignKey)
		if fk == nil {
			owner.SetRelation(r.name, (*Entity)(nil))
			continue
		}
		if match, ok := dict[groupKey(fk)]; ok {
			owner.SetRelation(r.name, match)
		} else {
			owner.SetRelation(r.name, (*Entity)(nil))
		}
	}
	return nil
}

// BelongsToMany a many-to-many through a pivot table. Loaded entities carry
// their pivot row; Attach/Detach/Sync/Toggle mutate the pivot table.
type BelongsToMany struct {
	db      *DB
	owner   *Schema
	parent  *Entity
	name    string
	related string

	pivotTable      string
	foreignPivotKey string
	relatedPivotKey string
	parentKey       string
	relatedKey      string
	pivotColumns    []string
	pivotTimestamps bool
}

func (cfg *relationConfig) bindBelongsToMany(db *DB, owner *Schema, parent *Entity) *BelongsToMany {
	r := &BelongsToMany{
		db: db, owner: owner, parent: parent,
		name: cfg.name, related: cfg.related,
		pivotTable:      cfg.pivotTable,
		foreignPivotKey: cfg.foreignPivotKey,
		relatedPivotKey: cfg.relatedPivotKey,
		pivotColumns:    cfg.pivotColumns,
		pivotTimestamps: cfg.pivotTimestamps,
		parentKey:       owner.PrimaryKey,
		relatedKey:      "id",
	}
	if s, err := LookupSchema(cfg.related); err == nil {
		r.relatedKey = s.PrimaryKey
	}
	if r.pivotTable == "" {
		r.pivotTable = db.NamingStrategy.JoinTableName(owner.Name, cfg.related)
	}
	if r.foreignPivotKey == "" {
		r.foreignPivotKey = db.NamingStrategy.ForeignKeyName(owner.Name)
	}
	if r.relatedPivotKey == "" {
		r.relatedPivotKey = db.NamingStrategy.ForeignKeyName(cfg.related)
	}
	return r
}

// baseQuery join the related table to the pivot and select the related
// columns plus the aliased pivot columns.
func (r *BelongsToMany) baseQuery() (*Query, error) {
	relatedSchema, err := LookupSchema(r.related)
	if err != nil {
		return nil, err
	}

	q := r.db.Model(r.related).Join(
		clause.InnerJoin,
		r.pivotTable,
		fmt.Sprintf("%s.%s = %s.%s", r.pivotTable, r.relatedPivotKey, relatedSchema.Table, r.relatedKey),
	)

	selects := []string{relatedSchema.Table + ".*"}
	for _, column := range r.pivotSelectColumns() {
		selects = append(selects, fmt.Sprintf("%s.%s AS %s%s", r.pivotTable, column, pivotAliasPrefix, column))
	}
	q.Select(selects...)
	return q, nil
}

func (r *BelongsToMany) pivotSelectColumns() []string {
	columns := []string{r.foreignPivotKey, r.relatedPivotKey}
	columns = append(columns, r.pivotColumns...)
	if r.pivotTimestamps {
		columns = append(columns, "created_at", "updated_at")
	}
	return columns
}

func (r *BelongsToMany) Query() *Query {
	q, err := r.baseQuery()
	if err != nil {
		return (&Query{db: r.db, stmt: newStatement("", "")}).AddError(err)
	}
	if r.parent != nil {
		q.Where(r.pivotTable+"."+r.foreignPivotKey, r.parent.Raw(r.parentKey))
	}
	return q
}

func (r *BelongsToMany) Get(ctx context.Context) (interface{}, error) {
	if r.parent == nil || r.parent.Raw(r.parentKey) == nil {
		return NewCollection(), nil
	}
	c, err := r.Query().Get(ctx)
	if err != nil {
		return nil, err
	}
	r.hydratePivots(c.All())
	return c, nil
}

func (r *BelongsToMany) EagerLoad(ctx context.Context, owners []*Entity, constrain func(q *Query)) error {
	keys := distinctKeys(owners, r.parentKey)
	dict := map[string][]*Entity{}
	if len(keys) > 0 {
		q, err := r.baseQuery()
		if err != nil {
			return err
		}
		q.WhereIn(r.pivotTable+"."+r.foreignPivotKey, keys...)
		if constrain != nil {
			constrain(q)
		}
		c, err := q.Get(ctx)
		if err != nil {
			return err
		}

		r.hydratePivots(c.All())
		for _, e := range c.All() {
			k := groupKey(e.pivot.Raw(r.foreignPivotKey))
			dict[k] = append(dict[k], e)
		}
	}

	for _, owner := range owners {
		owner.SetRelation(r.name, NewCollection(dict[groupKey(owner.Raw(r.parentKey))]...))
	}
	return nil
}

// hydratePivots split the aliased pivot columns off each entity into its
// pivot row.
func (r *BelongsToMany) hydratePivots(items []*Entity) {
	for _, e := range items {
		attrs := e.extractPrefixed(pivotAliasPrefix)
		e.pivot = hydrateEntity(r.db, bareSchema(r.pivotTable), attrs)
	}
}

// HasManyThrough a distant one-to-many reached through an intermediate type,
// resolved in one join query.
type HasManyThrough struct {
	db      *DB
	owner   *Schema
	parent  *Entity
	name    string
	related string
	through string

	firstKey       string
	secondKey      string
	localKey       string
	secondLocalKey string
}

func (cfg *relationConfig) bindThrough(db *DB, owner *Schema, parent *Entity) *HasManyThrough {
	r := &HasManyThrough{
		db: db, owner: owner, parent: parent,
		name: cfg.name, related: cfg.related, through: cfg.through,
		firstKey: cfg.firstKey, secondKey: cfg.secondKey,
		localKey: cfg.localKey, secondLocalKey: cfg.secondLocalKey,
	}
	if r.firstKey == "" {
		r.firstKey = db.NamingStrategy.ForeignKeyName(owner.Name)
	}
	if r.secondKey == "" {
		r.secondKey = db.NamingStrategy.ForeignKeyName(cfg.through)
	}
	if r.localKey == "" {
		r.localKey = owner.PrimaryKey
	}
	if r.secondLocalKey == "" {
		if s, err := LookupSchema(cfg.through); err == nil {
			r.secondLocalKey = s.PrimaryKey
		} else {
			r.secondLocalKey = "id"
		}
	}
	return r
}

func (r *HasManyThrough) baseQuery() (*Query, error) {
	relatedSchema, err := LookupSchema(r.related)
	if err != nil {
		return nil, err
	}
	throughSchema, err := LookupSchema(r.through)
	if err != nil {
		return nil, err
	}

	q := r.db.Model(r.related).Join(
		clause.InnerJoin,
		throughSchema.Table,
		fmt.Sprintf("%s.%s = %s.%s", throughSchema.Table, r.secondLocalKey, relatedSchema.Table, r.secondKey),
	)
	q.Select(
		relatedSchema.Table+".*",
		fmt.Sprintf("%s.%s AS %s", throughSchema.Table, r.firstKey, throughKeyAlias),
	)
	if throughSchema.SoftDeleteEnabled() {
		q.WhereNull(throughSchema.Table + "." + throughSchema.DeletedAtColumn)
	}
	return q, nil
}

func (r *HasManyThrough) throughTable() string {
	if s, err := LookupSchema(r.through); err == nil {
		return s.Table
	}
	return r.through
}

func (r *HasManyThrough) Query() *Query {
	q, err := r.baseQuery()
	if err != nil {
		return (&Query{db: r.db, stmt: newStatement("", "")}).AddError(err)
	}
	if r.parent != nil {
		q.Where(r.throughTable()+"."+r.firstKey, r.parent.Raw(r.localKey))
	}
	return q
}

func (r *HasManyThrough) Get(ctx context.Context) (interface{}, error) {
	if r.parent == nil || r.parent.Raw(r.localKey) == nil {
		return NewCollection(), nil
	}
	c, err := r.Query().Get(ctx)
	if err != nil {
		return nil, err
	}
	for _, e := range c.All() {
		e.takeAttribute(throughKeyAlias)
	}
	return c, nil
}

func (r *HasManyThrough) EagerLoad(ctx context.Context, owners []*Entity, constrain func(q *Query)) error {
	keys := distinctKeys(owners, r.localKey)
	dict := map[string][]*Entity{}
	if len(keys) > 0 {
		q, err := r.baseQuery()
		if err != nil {
			return err
		}
		q.WhereIn(r.throughTable()+"."+r.firstKey, keys...)
		if constrain != nil {
			constrain(q)
		}
		c, err := q.Get(ctx)
		if err != nil {
			return err
		}

		for _, e := range c.All() {
			throughKey, _ := e.takeAttribute(throughKeyAlias)
			k := groupKey(throughKey)
			dict[k] = append(dict[k], e)
		}
	}

	for _, owner := range owners {
		owner.SetRelation(r.name, NewCollection(dict[groupKey(owner.Raw(r.localKey))]...))
	}
	return nil
}

// schemaByMorphClass resolve the schema whose morph class matches the stored
// type discriminator. An unmatched class is a hard failure.
func schemaByMorphClass(class string) (*Schema, error) {
	var found *Schema
	schemaRegistry.Range(func(_, v interface{}) bool {
		s := v.(*Schema)
		if s.MorphClass == class {
			found = s
			return false
		}
		return true
	})
	if found == nil {
		return nil, fmt.Errorf("%w: no schema with morph class %q", ErrSchemaNotRegistered, class)
	}
	return found, nil
}

// MorphTo a polymorphic parent reference: the owning row stores its parent's
// type discriminator and key.
type MorphTo struct {
	db     *DB
	owner  *Schema
	parent *Entity
	cfg    *relationConfig
}

// Query the supplemental query for the parent's current target type
func (r *MorphTo) Query() *Query {
	if r.parent == nil {
		return (&Query{db: r.db, stmt: newStatement("", "")}).
			AddError(fmt.Errorf("%w: morph-to requires a parent entity", ErrInvalidData))
	}
	class, _ := r.parent.Raw(r.cfg.morphType).(string)
	target, err := schemaByMorphClass(class)
	if err != nil {
		return (&Query{db: r.db, stmt: newStatement("", "")}).AddError(err)
	}
	return r.db.Model(target.Name).Where(target.PrimaryKey, r.parent.Raw(r.cfg.morphID))
}

func (r *MorphTo) Get(ctx context.Context) (interface{}, error) {
	if r.parent == nil || r.parent.Raw(r.cfg.morphID) == nil || r.parent.Raw(r.cfg.morphType) == nil {
		return nil, nil
	}
	return r.Query().First(ctx)
}

// EagerLoad group owners by their stored type discriminator and run one
// batched query per distinct target type.
func (r *MorphTo) EagerLoad(ctx context.Context, owners []*Entity, constrain func(q *Query)) error {
	byClass := map[string][]*Entity{}
	classes := []string{}
	for _, owner := range owners {
		class, ok := owner.Raw(r.cfg.morphType).(string)
		if !ok || class == "" || owner.Raw(r.cfg.morphID) == nil {
			owner.SetRelation(r.cfg.name, (*Entity)(nil))
			continue
		}
		if _, seen := byClass[class]; !seen {
			classes = append(classes, class)
		}
		byClass[class] = append(byClass[class], owner)
	}

	for _, class := range classes {
		target, err := schemaByMorphClass(class)
		if err != nil {
			return err
		}

		group := byClass[class]
		keys := distinctKeys(group, r.cfg.morphID)
		q := r.db.Model(target.Name).WhereIn(target.PrimaryKey, keys...)
		if constrain != nil {
			constrain(q)
		}
		c, err := q.Get(ctx)
		if err != nil {
			return err
		}

		dict := c.KeyBy(target.PrimaryKey)
		for _, owner := range group {
			if match, ok := dict[groupKey(owner.Raw(r.cfg.morphID))]; ok {
				owner.SetRelation(r.cfg.name, match)
			} else {
				owner.SetRelation(r.cfg.name, (*Entity)(nil))
			}
		}
	}
	return nil
}

// MorphMany the inverse of MorphTo: related rows point back at this type
// through a type column and an id column.
type MorphMany struct {
	db     *DB
	owner  *Schema
	parent *Entity
	cfg    *relationConfig
}

func (r *MorphMany) Query() *Query {
	q := r.db.Model(r.cfg.related).Where(r.cfg.morphType, r.owner.MorphClass)
	if r.parent != nil {
		q.Where(r.cfg.morphID, r.parent.Key())
	}
	return q
}

func (r *MorphMany) Get(ctx context.Context) (interface{}, error) {
	if r.parent == nil || r.parent.Key() == nil {
		return NewCollection(), nil
	}
	return r.Query().Get(ctx)
}

func (r *MorphMany) EagerLoad(ctx context.Context, owners []*Entity, constrain func(q *Query)) error {
	keys := distinctKeys(owners, r.owner.PrimaryKey)
	dict := map[string][]*Entity{}
	if len(keys) > 0 {
		q := r.db.Model(r.cfg.related).
			Where(r.cfg.morphType, r.owner.MorphClass).
			WhereIn(r.cfg.morphID, keys...)
		if constrain != nil {
			constrain(q)
		}
		c, err := q.Get(ctx)
		if err != nil {
			return err
		}
		dict = c.GroupBy(r.cfg.morphID)
	}

	for _, owner := range owners {
		owner.SetRelation(r.cfg.name, NewCollection(dict[groupKey(owner.Key())]...))
	}
	return nil
}
