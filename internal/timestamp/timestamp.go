// Package timestamp normalizes the helpdesk's mixed timestamp encodings and
// renders instants in the workspace's display timezone.
package timestamp

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"
	_ "time/tzdata"
)

const (
	// DefaultZone is the display timezone for every rendered instant.
	DefaultZone = "America/Sao_Paulo"

	// DisplayLayout is the day-first layout used in tables and exports.
	DisplayLayout = "02/01/2006 15:04:05"
	// DisplayMillisLayout adds milliseconds for message tables.
	DisplayMillisLayout = "02/01/2006 15:04:05.000"
	// DateLayout renders a day without time.
	DateLayout = "02/01/2006"
)

var (
	zoneMu sync.RWMutex
	zone   = loadZone(DefaultZone)
)

func loadZone(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone("-03", -3*60*60)
	}
	return loc
}

// SetZone changes the display timezone. Unknown names fall back to UTC-3.
func SetZone(name string) {
	if name == "" {
		name = DefaultZone
	}
	loc := loadZone(name)
	zoneMu.Lock()
	zone = loc
	zoneMu.Unlock()
}

// Local returns the display timezone.
func Local() *time.Location {
	zoneMu.RLock()
	defer zoneMu.RUnlock()
	return zone
}

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02",
}

// Parse converts a decoded JSON value into an instant. Numbers are epoch
// seconds (UTC); strings are ISO-8601 with a numeric-string fallback. The
// second result is false for nil or anything unparseable.
func Parse(v any) (time.Time, bool) {
	switch t := v.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		return t, !t.IsZero()
	case float64:
		return fromEpoch(t)
	case float32:
		return fromEpoch(float64(t))
	case int:
		return fromEpoch(float64(t))
	case int64:
		return fromEpoch(float64(t))
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return time.Time{}, false
		}
		return fromEpoch(f)
	case string:
		return parseString(t)
	default:
		return time.Time{}, false
	}
}

func parseString(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range isoLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return time.Time{}, false
	}
	return fromEpoch(f)
}

// maxEpoch is 9999-12-31T23:59:59Z. Larger magnitudes, such as epochs in
// milliseconds, are not timestamps.
const maxEpoch = 253402300799

func fromEpoch(f float64) (time.Time, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > maxEpoch {
		return time.Time{}, false
	}
	sec, frac := math.Modf(f)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC(), true
}

// ParseLocal parses v and converts it to the display timezone.
func ParseLocal(v any) (time.Time, bool) {
	ts, ok := Parse(v)
	if !ok {
		return time.Time{}, false
	}
	return ts.In(Local()), true
}

// Format renders t in the display timezone, or "" for the zero instant.
func Format(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(Local()).Format(DisplayLayout)
}

// FormatMillis is Format with millisecond precision.
func FormatMillis(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(Local()).Format(DisplayMillisLayout)
}

// FormatValue renders a raw value when it parses as a timestamp and otherwise
// returns its plain text form unchanged.
func FormatValue(v any, millis bool) string {
	ts, ok := Parse(v)
	if !ok {
		if v == nil {
			return ""
		}
		return fmt.Sprint(v)
	}
	if millis {
		return FormatMillis(ts)
	}
	return Format(ts)
}

// FormatDuration renders end-start as HH:MM:SS. Missing or negative spans
// yield "".
func FormatDuration(start, end time.Time) string {
	if start.IsZero() || end.IsZero() {
		return ""
	}
	total := int64(end.Sub(start) / time.Second)
	if total < 0 {
		return ""
	}
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

// DayBounds expands two calendar days into [start-of-from, end-of-to] in the
// display timezone.
func DayBounds(from, to time.Time) (time.Time, time.Time) {
	loc := Local()
	from = from.In(loc)
	to = to.In(loc)
	start := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, loc)
	end := time.Date(to.Year(), to.Month(), to.Day(), 23, 59, 59, int(time.Second-time.Microsecond), loc)
	return start, end
}

// ParseDay parses a YYYY-MM-DD or DD/MM/YYYY date in the display timezone.
func ParseDay(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2006-01-02", DateLayout} {
		if d, err := time.ParseInLocation(layout, s, Local()); err == nil {
			return d, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}
