package analytics

import (
	"strconv"
	"time"

	"github.com/capitalize-ai/supportbot-workspace/internal/chatwoot"
	"github.com/capitalize-ai/supportbot-workspace/internal/timestamp"
)

// HourBucket is one hour of the conversations-per-hour report.
type HourBucket struct {
	Hour          string  `json:"hora"`
	Conversations int     `json:"conversas"`
	Percent       float64 `json:"percentual"`
	Average       float64 `json:"media"`
}

// HourlyBreakdown folds an hourly conversations_count series into the 24
// hours of the display timezone, plus a trailing "Total" bucket. days is the
// number of days covered and drives the per-hour average.
func HourlyBreakdown(points []chatwoot.ReportPoint, days int) []HourBucket {
	if days < 1 {
		days = 1
	}
	var counts [24]int
	for _, p := range points {
		h := time.Unix(p.Timestamp, 0).In(timestamp.Local()).Hour()
		counts[h] += int(p.Value)
	}
	total := 0
	for _, c := range counts {
		total += c
	}
	out := make([]HourBucket, 0, 25)
	for h, c := range counts {
		b := HourBucket{
			Hour:          twoDigits(h),
			Conversations: c,
			Average:       float64(c) / float64(days),
		}
		if total > 0 {
			b.Percent = float64(c) / float64(total) * 100
		}
		out = append(out, b)
	}
	out = append(out, HourBucket{
		Hour:          "Total",
		Conversations: total,
		Percent:       100,
		Average:       float64(total) / float64(days),
	})
	return out
}

func twoDigits(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}
