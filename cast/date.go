package cast

import (
	"fmt"
	"time"

	"github.com/jinzhu/now"
)

const (
	dateFormat     = "2006-01-02"
	dateTimeFormat = "2006-01-02 15:04:05"
)

// Date stores calendar dates as `YYYY-MM-DD` strings and exposes them as
// time.Time truncated to midnight UTC.
type Date struct{}

func (Date) Get(raw interface{}) (interface{}, error) {
	t, err := parseTime(raw)
	if err != nil || t == nil {
		return nil, err
	}
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return day, nil
}

func (Date) Set(domain interface{}) (interface{}, error) {
	t, err := parseTime(domain)
	if err != nil || t == nil {
		return nil, err
	}
	return t.Format(dateFormat), nil
}

// DateTime stores timestamps as `YYYY-MM-DD hh:mm:ss` strings.
type DateTime struct{}

func (DateTime) Get(raw interface{}) (interface{}, error) {
	t, err := parseTime(raw)
	if err != nil || t == nil {
		return nil, err
	}
	return *t, nil
}

func (DateTime) Set(domain interface{}) (interface{}, error) {
	t, err := parseTime(domain)
	if err != nil || t == nil {
		return nil, err
	}
	return t.UTC().Format(dateTimeFormat), nil
}

func parseTime(value interface{}) (*time.Time, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return &v, nil
	case *time.Time:
		return v, nil
	case []byte:
		return parseTimeString(string(v))
	case string:
		return parseTimeString(v)
	default:
		return nil, fmt.Errorf("date cast: unsupported type %T", value)
	}
}

func parseTimeString(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}

	cfg := now.Config{TimeLocation: time.UTC}
	t, err := cfg.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("date cast: %w", err)
	}
	return &t, nil
}
