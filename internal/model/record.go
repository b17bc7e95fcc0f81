// Package model defines the helpdesk records and workspace entities shared by
// the fetcher, analytics pipeline, bot and store.
package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Record is a decoded helpdesk JSON object. Field lookups follow the
// helpdesk's loose typing: ids may be numbers or strings, flags may be
// booleans or strings, and nested objects may be absent.
type Record map[string]any

// Get returns the raw value stored under key.
func (r Record) Get(key string) any {
	if r == nil {
		return nil
	}
	return r[key]
}

// First returns the first truthy value among keys.
func (r Record) First(keys ...string) any {
	for _, k := range keys {
		if v := r.Get(k); Truthy(v) {
			return v
		}
	}
	return nil
}

// String returns the text of the first truthy value among keys, or "".
func (r Record) String(keys ...string) string {
	return Text(r.First(keys...))
}

// Object returns the first truthy nested object among keys.
func (r Record) Object(keys ...string) Record {
	for _, k := range keys {
		switch v := r.Get(k).(type) {
		case map[string]any:
			if len(v) > 0 {
				return Record(v)
			}
		case Record:
			if len(v) > 0 {
				return v
			}
		}
	}
	return nil
}

// List returns the value under key as a slice of objects, skipping entries
// that are not objects.
func (r Record) List(key string) []Record {
	items, ok := r.Get(key).([]any)
	if !ok {
		return nil
	}
	out := make([]Record, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			out = append(out, Record(m))
		}
	}
	return out
}

// Int returns the first truthy value among keys as an integer.
func (r Record) Int(keys ...string) (int64, bool) {
	return ToInt(r.First(keys...))
}

// Flatten copies r, JSON-encoding nested objects and arrays so every value is
// a scalar suitable for a table cell.
func (r Record) Flatten() map[string]any {
	out := make(map[string]any, len(r))
	for k, v := range r {
		switch v.(type) {
		case map[string]any, []any, Record:
			b, err := json.Marshal(v)
			if err != nil {
				out[k] = fmt.Sprint(v)
				continue
			}
			out[k] = string(b)
		default:
			out[k] = v
		}
	}
	return out
}

// Truthy reports whether v would count as set: non-nil, non-empty,
// non-zero and not false.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case bool:
		return t
	case float64:
		return t != 0
	case int:
		return t != 0
	case int64:
		return t != 0
	case json.Number:
		return t.String() != "0" && t.String() != ""
	case map[string]any:
		return len(t) > 0
	case Record:
		return len(t) > 0
	case []any:
		return len(t) > 0
	default:
		return true
	}
}

// Text renders a scalar the way it appears in the helpdesk UI: integral
// numbers without a decimal point, strings as-is, nil as "".
func Text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1e15 {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case json.Number:
		return t.String()
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprint(t)
	}
}

// ToInt converts numeric JSON values and digit strings to int64.
func ToInt(v any) (int64, bool) {
	switch t := v.(type) {
	case float64:
		if t != math.Trunc(t) {
			return 0, false
		}
		return int64(t), true
	case int:
		return int64(t), true
	case int64:
		return t, true
	case json.Number:
		i, err := t.Int64()
		return i, err == nil
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		return i, err == nil
	default:
		return 0, false
	}
}

// ToBool interprets the helpdesk's boolean-ish flags. Strings count as true
// for "true", "1", "yes" and "sim".
func ToBool(v any) bool {
	switch t := v.(type) {
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "1", "yes", "sim":
			return true
		}
		return false
	default:
		return Truthy(v)
	}
}
