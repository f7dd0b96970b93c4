package logger

import (
	"database/sql/driver"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"
)

func isPrintable(s []byte) bool {
	for _, r := range s {
		if !unicode.IsPrint(rune(r)) {
			return false
		}
	}
	return true
}

// ExplainSQL inline the bound vars into sql for trace output. When
// numericPlaceholder is nil, vars replace `?` in order, otherwise it matches
// the numbered placeholder style ($1, $2, ...).
func ExplainSQL(sql string, numericPlaceholder *regexp.Regexp, escaper string, vars ...interface{}) string {
	convert := make([]string, len(vars))

	for idx, v := range vars {
		if valuer, ok := v.(driver.Valuer); ok {
			v, _ = valuer.Value()
		}

		switch v := v.(type) {
		case bool:
			convert[idx] = fmt.Sprint(v)
		case time.Time:
			convert[idx] = escaper + v.Format("2006-01-02 15:04:05") + escaper
		case *time.Time:
			if v == nil {
				convert[idx] = "NULL"
			} else {
				convert[idx] = escaper + v.Format("2006-01-02 15:04:05") + escaper
			}
		case []byte:
			if isPrintable(v) {
				convert[idx] = escaper + strings.ReplaceAll(string(v), escaper, "\\"+escaper) + escaper
			} else {
				convert[idx] = escaper + "<binary>" + escaper
			}
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
			convert[idx] = fmt.Sprintf("%d", v)
		case float32, float64:
			convert[idx] = fmt.Sprintf("%v", v)
		case string:
			convert[idx] = escaper + strings.ReplaceAll(v, escaper, "\\"+escaper) + escaper
		default:
			if v == nil {
				convert[idx] = "NULL"
			} else {
				convert[idx] = escaper + strings.ReplaceAll(fmt.Sprint(v), escaper, "\\"+escaper) + escaper
			}
		}
	}

	if numericPlaceholder == nil {
		for _, v := range convert {
			sql = strings.Replace(sql, "?", v, 1)
		}
		return sql
	}

	sql = numericPlaceholder.ReplaceAllStringFunc(sql, func(placeholder string) string {
		digits := strings.TrimFunc(placeholder, func(r rune) bool { return !unicode.IsDigit(r) })
		var idx int
		fmt.Sscanf(digits, "%d", &idx)
		if idx > 0 && idx <= len(convert) {
			return convert[idx-1]
		}
		return placeholder
	})
	return sql
}
