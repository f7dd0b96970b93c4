package entwine

import "encoding/json"

// Collection an ordered set of entities of one type
type Collection struct {
	items []*Entity
}

func NewCollection(items ...*Entity) *Collection {
	return &Collection{items: items}
}

// Len the number of entities
func (c *Collection) Len() int {
	return len(c.items)
}

// IsEmpty whether the collection holds no entities
func (c *Collection) IsEmpty() bool {
	return len(c.items) == 0
}

// All the underlying slice
func (c *Collection) All() []*Entity {
	return c.items
}

// At the entity at position i, nil when out of range
func (c *Collection) At(i int) *Entity {
	if i < 0 || i >= len(c.items) {
		return nil
	}
	return c.items[i]
}

// First the first entity, nil when empty
func (c *Collection) First() *Entity {
	return c.At(0)
}

// Last the last entity, nil when empty
func (c *Collection) Last() *Entity {
	return c.At(len(c.items) - 1)
}

// Each call fn for every entity in order
func (c *Collection) Each(fn func(*Entity)) {
	for _, e := range c.items {
		fn(e)
	}
}

// Filter the entities fn keeps, order preserved
func (c *Collection) Filter(fn func(*Entity) bool) *Collection {
	kept := make([]*Entity, 0, len(c.items))
	for _, e := range c.items {
		if fn(e) {
			kept = append(kept, e)
		}
	}
	return &Collection{items: kept}
}

// Map collect fn's result per entity, in order
func (c *Collection) Map(fn func(*Entity) interface{}) []interface{} {
	out := make([]interface{}, len(c.items))
	for i, e := range c.items {
		out[i] = fn(e)
	}
	return out
}

// Pluck the raw values of one attribute, in order
func (c *Collection) Pluck(key string) []interface{} {
	out := make([]interface{}, len(c.items))
	for i, e := range c.items {
		out[i] = e.Raw(key)
	}
	return out
}

// Keys the primary key of every entity, in order
func (c *Collection) Keys() []interface{} {
	out := make([]interface{}, len(c.items))
	for i, e := range c.items {
		out[i] = e.Key()
	}
	return out
}

// KeyBy index the collection by an attribute's grouping key; later entities
// win on collision.
func (c *Collection) KeyBy(key string) map[string]*Entity {
	out := make(map[string]*Entity, len(c.items))
	for _, e := range c.items {
		out[groupKey(e.Raw(key))] = e
	}
	return out
}

// GroupBy bucket entities by an attribute's grouping key, order preserved
// inside each bucket.
func (c *Collection) GroupBy(key string) map[string][]*Entity {
	out := map[string][]*Entity{}
	for _, e := range c.items {
		k := groupKey(e.Raw(key))
		out[k] = append(out[k], e)
	}
	return out
}

// ToMaps the serialized shape of every entity, in order
func (c *Collection) ToMaps() ([]map[string]interface{}, error) {
	out := make([]map[string]interface{}, len(c.items))
	for i, e := range c.items {
		m, err := e.ToMap()
		if err != nil {
			return nil, err
		}
		out[i] = m
	}
	return out, nil
}

// ToJSON the JSON array of ToMaps
func (c *Collection) ToJSON() ([]byte, error) {
	ms, err := c.ToMaps()
	if err != nil {
		return nil, err
	}
	return json.Marshal(ms)
}

// MarshalJSON implements json.Marshaler
func (c *Collection) MarshalJSON() ([]byte, error) {
	return c.ToJSON()
}
