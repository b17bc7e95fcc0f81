package timestamp

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	want := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		in   any
		ok   bool
	}{
		{"nil", nil, false},
		{"float epoch", float64(want.Unix()), true},
		{"int epoch", want.Unix(), true},
		{"json number", json.Number("1704110400"), true},
		{"iso with Z", "2024-01-01T12:00:00Z", true},
		{"iso with offset", "2024-01-01T09:00:00-03:00", true},
		{"iso with millis", "2024-01-01T12:00:00.000Z", true},
		{"numeric string", "1704110400", true},
		{"garbage", "not a date", false},
		{"empty", "", false},
		{"bool", true, false},
		{"epoch in millis", float64(want.Unix()) * 1000, false},
		{"millis string", "1704110400000", false},
		{"huge negative", -1e19, false},
		{"huge int", int64(math.MaxInt64), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Parse(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.True(t, want.Equal(got), "got %s", got)
			}
		})
	}
}

func TestFormat(t *testing.T) {
	ts := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, "01/01/2024 09:00:00", Format(ts))
	assert.Equal(t, "01/01/2024 09:00:00.000", FormatMillis(ts))
	assert.Equal(t, "", Format(time.Time{}))
	assert.Equal(t, "01/01/2024 09:00:00", FormatValue("2024-01-01T12:00:00Z", false))
	assert.Equal(t, "pending", FormatValue("pending", false))
	assert.Equal(t, "", FormatValue(nil, false))
}

func TestFormatDuration(t *testing.T) {
	start := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)

	assert.Equal(t, "01:02:03", FormatDuration(start, start.Add(time.Hour+2*time.Minute+3*time.Second)))
	assert.Equal(t, "26:00:00", FormatDuration(start, start.Add(26*time.Hour)))
	assert.Equal(t, "", FormatDuration(start, start.Add(-time.Second)))
	assert.Equal(t, "", FormatDuration(time.Time{}, start))
}

func TestDayBounds(t *testing.T) {
	from, err := ParseDay("2024-01-01")
	require.NoError(t, err)
	to, err := ParseDay("02/01/2024")
	require.NoError(t, err)

	start, end := DayBounds(from, to)
	assert.Equal(t, "01/01/2024 00:00:00", Format(start))
	assert.Equal(t, "02/01/2024 23:59:59", Format(end))
	assert.True(t, end.After(start))

	_, err = ParseDay("2024/01/01")
	assert.Error(t, err)
}
