package period

import "time"

// Subtract applies years, then months, then weeks, then days of p to now,
// in that order, using a last-valid-day clamp for month/year arithmetic:
// if the resulting month doesn't have a day-of-month matching now's,
// the result clamps to the last day of that month (e.g. March 31 minus
// 1 month is February 28, or 29 in a leap year).
func Subtract(now time.Time, p Period) time.Time {
	t := now
	t = addMonthsClamped(t, -(p.Years*12 + p.Months))
	t = t.AddDate(0, 0, -(p.Weeks*7 + p.Days))
	return t
}

// addMonthsClamped adds n months (may be negative) to t, clamping the
// day-of-month to the last day of the resulting month when t's
// day-of-month doesn't exist there.
func addMonthsClamped(t time.Time, n int) time.Time {
	year, month, day := t.Date()
	hour, min, sec := t.Clock()
	nsec := t.Nanosecond()
	loc := t.Location()

	totalMonths := int(month) - 1 + n
	targetYear := year + totalMonths/12
	targetMonthIdx := totalMonths % 12
	if targetMonthIdx < 0 {
		targetMonthIdx += 12
		targetYear--
	}
	targetMonth := time.Month(targetMonthIdx + 1)

	lastDay := daysInMonth(targetYear, targetMonth)
	if day > lastDay {
		day = lastDay
	}

	return time.Date(targetYear, targetMonth, day, hour, min, sec, nsec, loc)
}

func daysInMonth(year int, month time.Month) int {
	// The first day of the following month, minus one day, lands on the
	// last day of `month` — time.Date normalizes month overflow.
	firstOfNext := time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC)
	lastOfMonth := firstOfNext.AddDate(0, 0, -1)
	return lastOfMonth.Day()
}
