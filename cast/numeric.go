package cast

import (
	"fmt"
	"strconv"
)

// Bool stores booleans as 0/1 integers.
type Bool struct{}

func (Bool) Get(raw interface{}) (interface{}, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("bool cast: %w", err)
		}
		return b, nil
	case []byte:
		b, err := strconv.ParseBool(string(v))
		if err != nil {
			return nil, fmt.Errorf("bool cast: %w", err)
		}
		return b, nil
	default:
		n, err := toInt64(raw)
		if err != nil {
			return nil, fmt.Errorf("bool cast: %w", err)
		}
		return n != 0, nil
	}
}

func (Bool) Set(domain interface{}) (interface{}, error) {
	switch v := domain.(type) {
	case nil:
		return nil, nil
	case bool:
		if v {
			return int64(1), nil
		}
		return int64(0), nil
	default:
		return nil, fmt.Errorf("bool cast: unsupported type %T", domain)
	}
}

// Int coerces numeric-ish stored values to int64.
type Int struct{}

func (Int) Get(raw interface{}) (interface{}, error) {
	if raw == nil {
		return nil, nil
	}
	n, err := toInt64(raw)
	if err != nil {
		return nil, fmt.Errorf("int cast: %w", err)
	}
	return n, nil
}

func (Int) Set(domain interface{}) (interface{}, error) {
	if domain == nil {
		return nil, nil
	}
	n, err := toInt64(domain)
	if err != nil {
		return nil, fmt.Errorf("int cast: %w", err)
	}
	return n, nil
}

// Float coerces numeric-ish stored values to float64.
type Float struct{}

func (Float) Get(raw interface{}) (interface{}, error) {
	return toFloatValue(raw, "float cast")
}

func (Float) Set(domain interface{}) (interface{}, error) {
	return toFloatValue(domain, "float cast")
}

func toFloatValue(value interface{}, label string) (interface{}, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", label, err)
		}
		return f, nil
	case []byte:
		f, err := strconv.ParseFloat(string(v), 64)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", label, err)
		}
		return f, nil
	default:
		n, err := toInt64(value)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", label, err)
		}
		return float64(n), nil
	}
}
