package timeutil

import "time"

// StartOfDay returns UTC midnight of the day containing t.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// StartOfNextDay returns the UTC midnight that ends the day containing t.
func StartOfNextDay(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1)
}

// DaysAgo returns UTC midnight days days before the day containing t.
func DaysAgo(t time.Time, days int) time.Time {
	return StartOfDay(t).AddDate(0, 0, -days)
}
