package database

import (
	"fmt"
	"time"
)

// CurrentWeek returns the ISO week and year of now.
func CurrentWeek() WeekKey {
	return WeekOf(time.Now())
}

// WeekOf returns the ISO week and year containing t.
func WeekOf(t time.Time) WeekKey {
	year, week := t.ISOWeek()
	return WeekKey{Week: week, Year: year}
}

// Valid reports whether the key names a possible ISO week.
func (k WeekKey) Valid() bool {
	return k.Week >= 1 && k.Week <= 53 && k.Year >= 2000
}

// String formats the key for display, e.g. "Week 07, 2026".
func (k WeekKey) String() string {
	return fmt.Sprintf("Week %02d, %d", k.Week, k.Year)
}

// Monday returns the first day of the ISO week.
func (k WeekKey) Monday() time.Time {
	// January 4th is always in ISO week 1.
	jan4 := time.Date(k.Year, time.January, 4, 0, 0, 0, 0, time.UTC)
	offset := int(jan4.Weekday()+6) % 7
	week1 := jan4.AddDate(0, 0, -offset)
	return week1.AddDate(0, 0, (k.Week-1)*7)
}

// FormatWeekDisplay formats a week as a date range, e.g. "Feb 09 - Feb 15, 2026".
func FormatWeekDisplay(k WeekKey) string {
	if !k.Valid() {
		return k.String()
	}
	start := k.Monday()
	end := start.AddDate(0, 0, 6)
	return fmt.Sprintf("%s - %s", start.Format("Jan 02"), end.Format("Jan 02, 2006"))
}
