package cast

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Msgpack stores structured values msgpack encoded, for columns holding
// binary blobs where JSON text would be wasteful.
type Msgpack struct{}

func (Msgpack) Get(raw interface{}) (interface{}, error) {
	if raw == nil {
		return nil, nil
	}

	data, err := toBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("msgpack cast: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var out interface{}
	if err := msgpack.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("msgpack cast: %w", err)
	}
	return out, nil
}

func (Msgpack) Set(domain interface{}) (interface{}, error) {
	if domain == nil {
		return nil, nil
	}

	data, err := msgpack.Marshal(domain)
	if err != nil {
		return nil, fmt.Errorf("msgpack cast: %w", err)
	}
	return data, nil
}
