package cast

import (
	"fmt"
	"math"
	"strconv"
)

// Money stores monetary amounts as integer cents and exposes them as floats.
type Money struct{}

// Get convert stored cents to a float amount
func (Money) Get(raw interface{}) (interface{}, error) {
	if raw == nil {
		return nil, nil
	}

	cents, err := toInt64(raw)
	if err != nil {
		return nil, fmt.Errorf("money cast: %w", err)
	}
	return float64(cents) / 100, nil
}

// Set convert a float amount to stored cents
func (Money) Set(domain interface{}) (interface{}, error) {
	if domain == nil {
		return nil, nil
	}

	switch v := domain.(type) {
	case float64:
		return int64(math.Round(v * 100)), nil
	case float32:
		return int64(math.Round(float64(v) * 100)), nil
	case int:
		return int64(v) * 100, nil
	case int64:
		return v * 100, nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("money cast: %w", err)
		}
		return int64(math.Round(f * 100)), nil
	default:
		return nil, fmt.Errorf("money cast: unsupported type %T", domain)
	}
}

func toInt64(value interface{}) (int64, error) {
	switch v := value.(type) {
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case uint:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint64:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case float32:
		return int64(v), nil
	case []byte:
		return strconv.ParseInt(string(v), 10, 64)
	case string:
		return strconv.ParseInt(v, 10, 64)
	default:
		return 0, fmt.Errorf("cannot convert %T to int64", value)
	}
}
