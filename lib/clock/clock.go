package clock

import "time"

const (
	DayLayout    = "2006-01-02"
	MinuteLayout = "2006-01-02 15:04"
)

func Now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// Day returns the calendar-day key used for daily stat buckets.
func Day(t time.Time) string {
	return t.Format(DayLayout)
}

// Minute formats a timestamp for chat display, minute precision.
func Minute(t time.Time) string {
	return t.Format(MinuteLayout)
}

// LastDays returns day keys for the window ending at now, most recent first.
func LastDays(now time.Time, n int) []string {
	days := make([]string, 0, n)
	for i := 0; i < n; i++ {
		days = append(days, Day(now.AddDate(0, 0, -i)))
	}
	return days
}
