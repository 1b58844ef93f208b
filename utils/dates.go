// utils/dates.go
package utils

import (
	"strconv"
	"time"
)

func BeginningOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

func DaysBetween(start, end time.Time) int {
	start = BeginningOfDay(start)
	end = BeginningOfDay(end)
	return int(end.Sub(start).Hours() / 24)
}

func BeginningOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

func BeginningOfQuarter(t time.Time) time.Time {
	month := time.Month((int(t.Month())-1)/3*3 + 1)
	return time.Date(t.Year(), month, 1, 0, 0, 0, 0, t.Location())
}

func BeginningOfYear(t time.Time) time.Time {
	return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, t.Location())
}

// RelativeDay labels a past time as "Today", "Yesterday" or "N days ago".
func RelativeDay(t, now time.Time) string {
	switch days := DaysBetween(t, now); {
	case days <= 0:
		return "Today"
	case days == 1:
		return "Yesterday"
	default:
		return strconv.Itoa(days) + " days ago"
	}
}

// UpcomingDay labels a future time as "Today", "Tomorrow" or "N days".
func UpcomingDay(t, now time.Time) string {
	switch days := DaysBetween(now, t); {
	case days <= 0:
		return "Today"
	case days == 1:
		return "Tomorrow"
	default:
		return strconv.Itoa(days) + " days"
	}
}
