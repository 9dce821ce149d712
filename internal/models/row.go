package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Logical medication columns. Physical names may differ in spelling, see
// Row.Lookup.
const (
	ColID         = "id"
	ColName       = "name"
	ColDose       = "dose"
	ColFrequency  = "frequency"
	ColNotes      = "notes"
	ColStartTime  = "start_time"
	ColCreatedAt  = "created_at"
	ColOwnerEmail = "owner_email"
)

// Row is a record as a storage backend returns it. Keys are physical column
// names or JSON keys and may be snake_case or camelCase depending on which
// revision of the app wrote them.
type Row map[string]any

// NormalizeName folds a column or key name for alias matching:
// "start_time", "startTime" and "StartTime" all become "starttime".
func NormalizeName(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, "_", ""))
}

// Lookup returns the value stored under col or under any spelling of it.
func (r Row) Lookup(col string) (any, bool) {
	if v, ok := r[col]; ok {
		return v, true
	}
	want := NormalizeName(col)
	for k, v := range r {
		if NormalizeName(k) == want {
			return v, true
		}
	}
	return nil, false
}

// String returns col as text. Missing and NULL values are "".
func (r Row) String(col string) string {
	v, ok := r.Lookup(col)
	if !ok || v == nil {
		return ""
	}
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(x)
	}
}

// Int64 returns col as an integer. JSON decoders and SQL drivers disagree on
// numeric types, so every common encoding is accepted.
func (r Row) Int64(col string) (int64, bool) {
	v, ok := r.Lookup(col)
	if !ok || v == nil {
		return 0, false
	}
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case int32:
		return int64(x), true
	case float64:
		return int64(x), true
	case json.Number:
		n, err := x.Int64()
		if err != nil {
			f, ferr := x.Float64()
			if ferr != nil {
				return 0, false
			}
			return int64(f), true
		}
		return n, true
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		return n, err == nil
	case []byte:
		n, err := strconv.ParseInt(strings.TrimSpace(string(x)), 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999-07",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Time returns col as a UTC timestamp. Text in RFC 3339 or SQLite's
// CURRENT_TIMESTAMP form and numeric Unix milliseconds are understood;
// anything else yields the zero time.
func (r Row) Time(col string) time.Time {
	v, ok := r.Lookup(col)
	if !ok || v == nil {
		return time.Time{}
	}
	switch x := v.(type) {
	case time.Time:
		return x.UTC()
	case string:
		return parseTime(x)
	case []byte:
		return parseTime(string(x))
	}
	if ms, ok := r.Int64(col); ok {
		return time.UnixMilli(ms).UTC()
	}
	return time.Time{}
}

func parseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC()
	}
	return time.Time{}
}

// FormatTime is the text form timestamps are persisted in.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
