package cast

import (
	"encoding/json"
	"fmt"
)

// JSON stores structured values as JSON text.
type JSON struct{}

func (JSON) Get(raw interface{}) (interface{}, error) {
	if raw == nil {
		return nil, nil
	}

	data, err := toBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("json cast: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var out interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("json cast: %w", err)
	}
	return out, nil
}

func (JSON) Set(domain interface{}) (interface{}, error) {
	if domain == nil {
		return nil, nil
	}

	data, err := json.Marshal(domain)
	if err != nil {
		return nil, fmt.Errorf("json cast: %w", err)
	}
	return string(data), nil
}

// Array stores an ordered sequence as a JSON array.
type Array struct{}

func (Array) Get(raw interface{}) (interface{}, error) {
	if raw == nil {
		return nil, nil
	}

	data, err := toBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("array cast: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var out []interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("array cast: %w", err)
	}
	return out, nil
}

func (Array) Set(domain interface{}) (interface{}, error) {
	if domain == nil {
		return nil, nil
	}

	data, err := json.Marshal(domain)
	if err != nil {
		return nil, fmt.Errorf("array cast: %w", err)
	}
	if len(data) > 0 && data[0] != '[' {
		return nil, fmt.Errorf("array cast: %T does not encode to a JSON array", domain)
	}
	return string(data), nil
}

func toBytes(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("cannot convert %T to bytes", value)
	}
}
