package entwine

import "encoding/json"

// ToMap the serialized shape of the entity: visibility filter, then casts and
// accessors, then appended computed attributes, then loaded relations
// recursively. Relations that were never loaded do not appear.
func (e *Entity) ToMap() (map[string]interface{}, error) {
	out := map[string]interface{}{}

	for _, key := range e.attrOrder {
		if !e.schema.serializeVisible(key) {
			continue
		}
		v, err := e.Get(key)
		if err != nil {
			return nil, err
		}
		out[key] = v
	}

	for _, name := range e.schema.appendOrder {
		out[name] = e.schema.appends[name](e)
	}

	for name, value := range e.relations {
		switch rel := value.(type) {
		case nil:
			out[name] = nil
		case *Entity:
			if rel == nil {
				out[name] = nil
				continue
			}
			m, err := rel.ToMap()
			if err != nil {
				return nil, err
			}
			out[name] = m
		case *Collection:
			ms, err := rel.ToMaps()
			if err != nil {
				return nil, err
			}
			out[name] = ms
		default:
			out[name] = value
		}
	}

	if e.pivot != nil {
		m, err := e.pivot.ToMap()
		if err != nil {
			return nil, err
		}
		out["pivot"] = m
	}

	return out, nil
}

// ToJSON the JSON document of ToMap
func (e *Entity) ToJSON() ([]byte, error) {
	m, err := e.ToMap()
	if err != nil {
		return nil, err
	}
	return json.Marshal(m)
}

// MarshalJSON implements json.Marshaler
func (e *Entity) MarshalJSON() ([]byte, error) {
	return e.ToJSON()
}
