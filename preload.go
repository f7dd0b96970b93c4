package entwine

import (
	"context"
	"strings"
)

// preloadGroup the requests sharing one head relation: an optional
// constraint on the head itself plus the nested tails.
type preloadGroup struct {
	constraint func(q *Query)
	nested     []Preload
}

// eagerLoad resolve a set of eager-load requests for owners of one type.
// Paths sharing a head segment are loaded once; each segment costs one
// batched query regardless of the number of owners, except a polymorphic
// head which costs one per distinct target type.
func (db *DB) eagerLoad(ctx context.Context, schema *Schema, owners []*Entity, preloads []Preload) error {
	if len(owners) == 0 || len(preloads) == 0 {
		return nil
	}

	groups := map[string]*preloadGroup{}
	var order []string
	for _, p := range preloads {
		head, rest := splitPath(p.Path)
		g, ok := groups[head]
		if !ok {
			g = &preloadGroup{}
			groups[head] = g
			order = append(order, head)
		}
		if rest == "" {
			if p.Constraint != nil {
				g.constraint = p.Constraint
			}
		} else {
			g.nested = append(g.nested, Preload{Path: rest, Constraint: p.Constraint})
		}
	}

	for _, name := range order {
		g := groups[name]

		cfg, ok := schema.relations[name]
		if !ok {
			return newNamedError(ErrRelationNotFound, schema.Name, name)
		}

		rel := cfg.bind(db, schema, nil)
		if err := rel.EagerLoad(ctx, owners, g.constraint); err != nil {
			return err
		}

		if len(g.nested) == 0 {
			continue
		}
		// descend: the loaded entities become the owners of the tail paths,
		// bucketed by schema because a polymorphic head mixes types
		for childSchema, children := range collectLoaded(owners, name) {
			if err := db.eagerLoad(ctx, childSchema, children, g.nested); err != nil {
				return err
			}
		}
	}
	return nil
}

// collectLoaded gather the entities a resolved relation attached, bucketed
// by their schema.
func collectLoaded(owners []*Entity, name string) map[*Schema][]*Entity {
	out := map[*Schema][]*Entity{}
	add := func(e *Entity) {
		if e != nil {
			out[e.schema] = append(out[e.schema], e)
		}
	}

	for _, owner := range owners {
		switch v := owner.RelationValue(name).(type) {
		case *Entity:
			add(v)
		case *Collection:
			for _, e := range v.All() {
				add(e)
			}
		}
	}
	return out
}

func splitPath(path string) (head, rest string) {
	if idx := strings.IndexByte(path, '.'); idx >= 0 {
		return path[:idx], path[idx+1:]
	}
	return path, ""
}
