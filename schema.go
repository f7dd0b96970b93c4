package entwine

import (
	"fmt"
	"sync"

	"github.com/entwine-orm/entwine/cast"
)

// DefaultNamer names tables and columns for schemas that don't override them.
var DefaultNamer Namer = NamingStrategy{}

// Getter computes the domain value of one attribute from its stored value.
type Getter func(e *Entity, value interface{}) interface{}

// Setter computes the stored value of one attribute from a domain value.
type Setter func(e *Entity, value interface{}) interface{}

// Appender computes a derived attribute included in serialized output.
type Appender func(e *Entity) interface{}

// ScopeFunc a named reusable query refinement.
type ScopeFunc func(q *Query, args ...interface{})

// Schema describes one entity type: its table, key, attribute policies,
// relations, scopes and lifecycle hooks. Schemas register themselves into a
// process-wide registry at definition time so two types can reference each
// other by name.
type Schema struct {
	Name            string
	Table           string
	PrimaryKey      string
	KeyStrategy     KeyStrategy
	Timestamps      bool
	CreatedAtColumn string
	UpdatedAtColumn string
	DeletedAtColumn string
	MorphClass      string

	fillable     []string
	guarded      []string
	hidden       []string
	visible      []string
	casts        map[string]cast.Cast
	getters      map[string]Getter
	setters      map[string]Setter
	appends      map[string]Appender
	appendOrder  []string
	relations    map[string]*relationConfig
	scopes       map[string]ScopeFunc
	globalScopes []namedScope
	hooks        map[Event][]Hook
}

type namedScope struct {
	name  string
	apply func(q *Query)
}

var schemaRegistry sync.Map

// Define declare and register a schema. Redefining a name replaces the
// earlier registration, which is what tests want.
func Define(name string, define func(s *Schema)) *Schema {
	s := &Schema{
		Name:            name,
		PrimaryKey:      "id",
		Timestamps:      true,
		CreatedAtColumn: "created_at",
		UpdatedAtColumn: "updated_at",
		MorphClass:      name,
		guarded:         []string{"*"},
		casts:           map[string]cast.Cast{},
		getters:         map[string]Getter{},
		setters:         map[string]Setter{},
		appends:         map[string]Appender{},
		relations:       map[string]*relationConfig{},
		scopes:          map[string]ScopeFunc{},
		hooks:           map[Event][]Hook{},
	}

	if define != nil {
		define(s)
	}

	if s.Table == "" {
		s.Table = DefaultNamer.TableName(name)
	}

	schemaRegistry.Store(name, s)
	return s
}

// LookupSchema resolve a registered type name. Unregistered names are a hard
// failure, never an empty result.
func LookupSchema(name string) (*Schema, error) {
	v, ok := schemaRegistry.Load(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSchemaNotRegistered, name)
	}
	return v.(*Schema), nil
}

// SetTable override the derived table name
func (s *Schema) SetTable(table string) *Schema {
	s.Table = table
	return s
}

// Key override the primary key column and its generation strategy
func (s *Schema) Key(column string, strategy KeyStrategy) *Schema {
	s.PrimaryKey = column
	s.KeyStrategy = strategy
	return s
}

// WithoutTimestamps disable created/updated stamping
func (s *Schema) WithoutTimestamps() *Schema {
	s.Timestamps = false
	return s
}

// SoftDeletes enable soft deletes through the given sentinel column
func (s *Schema) SoftDeletes(column string) *Schema {
	s.DeletedAtColumn = column
	return s
}

// Fillable set the mass-assignment allow-list; it takes precedence over
// Guarded.
func (s *Schema) Fillable(keys ...string) *Schema {
	s.fillable = keys
	return s
}

// Guarded set the mass-assignment deny-list; "*" denies everything not
// explicitly fillable. A fresh schema guards everything.
func (s *Schema) Guarded(keys ...string) *Schema {
	s.guarded = keys
	return s
}

// Hidden omit keys from serialized output
func (s *Schema) Hidden(keys ...string) *Schema {
	s.hidden = keys
	return s
}

// Visible restrict serialized output to these keys
func (s *Schema) Visible(keys ...string) *Schema {
	s.visible = keys
	return s
}

// Cast assign a cast strategy to an attribute
func (s *Schema) Cast(key string, c cast.Cast) *Schema {
	s.casts[key] = c
	return s
}

// CastNamed assign a registered cast by name, failing fast on typos
func (s *Schema) CastNamed(key, castName string) *Schema {
	s.casts[key] = cast.MustLookup(castName)
	return s
}

// Getter register an explicit accessor for one attribute
func (s *Schema) Getter(key string, fn Getter) *Schema {
	s.getters[key] = fn
	return s
}

// Setter register an explicit mutator for one attribute
func (s *Schema) Setter(key string, fn Setter) *Schema {
	s.setters[key] = fn
	return s
}

// Append declare a computed attribute merged into serialized output
func (s *Schema) Append(name string, fn Appender) *Schema {
	if _, ok := s.appends[name]; !ok {
		s.appendOrder = append(s.appendOrder, name)
	}
	s.appends[name] = fn
	return s
}

// Scope register a named scope invoked via Query.Scope
func (s *Schema) Scope(name string, fn ScopeFunc) *Schema {
	s.scopes[name] = fn
	return s
}

// GlobalScope register a named predicate applied to every query for this
// type, ahead of caller predicates, unless excluded by name.
func (s *Schema) GlobalScope(name string, apply func(q *Query)) *Schema {
	s.globalScopes = append(s.globalScopes, namedScope{name: name, apply: apply})
	return s
}

// On register a lifecycle hook
func (s *Schema) On(event Event, hook Hook) *Schema {
	s.hooks[event] = append(s.hooks[event], hook)
	return s
}

// Observe register every non-nil hook of an observer
func (s *Schema) Observe(o Observer) *Schema {
	for event, hook := range map[Event]Hook{
		EventCreating: o.Creating, EventCreated: o.Created,
		EventUpdating: o.Updating, EventUpdated: o.Updated,
		EventSaving: o.Saving, EventSaved: o.Saved,
		EventDeleting: o.Deleting, EventDeleted: o.Deleted,
		EventRestoring: o.Restoring, EventRestored: o.Restored,
	} {
		if hook != nil {
			s.On(event, hook)
		}
	}
	return s
}

// SoftDeleteEnabled reports whether this type uses a sentinel column
func (s *Schema) SoftDeleteEnabled() bool {
	return s.DeletedAtColumn != ""
}

// fillPermitted reports whether a key passes the mass-assignment policy.
// An explicit allow-list wins; otherwise the deny-list applies, where "*"
// denies everything.
func (s *Schema) fillPermitted(key string) bool {
	if len(s.fillable) > 0 {
		for _, k := range s.fillable {
			if k == key {
				return true
			}
		}
		return false
	}

	for _, k := range s.guarded {
		if k == "*" || k == key {
			return false
		}
	}
	return true
}

// serializeVisible reports whether a key survives hidden/visible filtering
func (s *Schema) serializeVisible(key string) bool {
	if len(s.visible) > 0 {
		for _, k := range s.visible {
			if k == key {
				return true
			}
		}
		return false
	}
	for _, k := range s.hidden {
		if k == key {
			return false
		}
	}
	return true
}
