package expiry

import (
	"strings"
	"time"
)

// Set holds the near/mid/far contract expiries relative to one trading day.
type Set struct {
	Today time.Time
	Near  time.Time
	Mid   time.Time
	Far   time.Time

	DaysLeftNear int
	DaysLeftMid  int
	DaysLeftFar  int
}

// LastThursday returns the final Thursday of the given calendar month.
// Months past December carry into the following year, so (2024, 13) is
// January 2025.
func LastThursday(year, month int) time.Time {
	if month > 12 {
		year += (month - 1) / 12
		month = (month-1)%12 + 1
	}

	firstOfNext := time.Date(year, time.Month(month)+1, 1, 0, 0, 0, 0, time.UTC)
	lastDay := firstOfNext.AddDate(0, 0, -1)
	back := (int(lastDay.Weekday()) - int(time.Thursday) + 7) % 7
	return lastDay.AddDate(0, 0, -back)
}

// Code formats the contract month token for a date, e.g. 24FEB.
func Code(t time.Time) string {
	return strings.ToUpper(t.Format("06Jan"))
}

// MonthCodes returns contract month tokens for now's month and the n-1
// months after it.
func MonthCodes(now time.Time, n int) []string {
	codes := make([]string, 0, n)
	for i := 0; i < n; i++ {
		codes = append(codes, Code(time.Date(now.Year(), now.Month()+time.Month(i), 1, 0, 0, 0, 0, time.UTC)))
	}
	return codes
}

// SetFor computes the near/mid/far expiries for today. Near is the last
// Thursday of the current month; once today is past it the whole window
// rolls forward a month, since that contract has already settled.
// Day counts are whole days and can be non-positive only when the caller
// passes a date inside a rolled-over window.
func SetFor(today time.Time) Set {
	today = Midnight(today)
	year, month := today.Year(), int(today.Month())

	near := LastThursday(year, month)
	if today.After(near) {
		month++
		near = LastThursday(year, month)
	}
	mid := LastThursday(year, month+1)
	far := LastThursday(year, month+2)

	return Set{
		Today:        today,
		Near:         near,
		Mid:          mid,
		Far:          far,
		DaysLeftNear: DaysBetween(today, near),
		DaysLeftMid:  DaysBetween(today, mid),
		DaysLeftFar:  DaysBetween(today, far),
	}
}

// Midnight truncates t to its civil date in UTC.
func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the whole-day difference until other.
func DaysBetween(today, other time.Time) int {
	return int(other.Sub(today).Hours() / 24)
}
