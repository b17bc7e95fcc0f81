package bot

import (
	"strconv"
	"time"

	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/br"

	"github.com/capitalize-ai/supportbot-workspace/internal/model"
	"github.com/capitalize-ai/supportbot-workspace/internal/timestamp"
)

// BusinessHours decides whether a human team is expected to be online.
// Working days and holidays come from a business calendar; each day's open
// window is the whole-hour range [Start, End) from the schedule.
type BusinessHours struct {
	calendar *cal.BusinessCalendar
	schedule model.Schedule
}

// NewBusinessHours builds the calendar for schedule. An empty schedule uses
// the default Monday to Friday 8 to 18 window. With holidays, Brazilian
// national holidays are closed days.
func NewBusinessHours(schedule model.Schedule, holidays bool) *BusinessHours {
	if len(schedule) == 0 {
		schedule = model.DefaultSchedule()
	}
	c := cal.NewBusinessCalendar()
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		day, ok := schedule[scheduleKey(wd)]
		c.SetWorkday(wd, ok && day.Enabled)
	}
	if holidays {
		c.AddHoliday(br.Holidays...)
	}
	return &BusinessHours{calendar: c, schedule: schedule}
}

// scheduleKey maps a weekday to the schedule key, where "0" is Monday.
func scheduleKey(wd time.Weekday) string {
	return strconv.Itoa((int(wd) + 6) % 7)
}

// IsOpen reports whether t, taken in the display timezone, falls inside the
// configured window of a working day.
func (b *BusinessHours) IsOpen(t time.Time) bool {
	local := t.In(timestamp.Local())
	if !b.calendar.IsWorkday(local) {
		return false
	}
	day := b.schedule[scheduleKey(local.Weekday())]
	hour := local.Hour()
	return day.Start <= hour && hour < day.End
}
