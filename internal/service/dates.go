package service

import (
	"errors"
	"time"
)

var ErrInvalidDate = errors.New("invalid date, use YYYY-MM-DD")

// ParseDate parses a YYYY-MM-DD string as a local calendar date. Parsing in
// UTC would shift the date for west-of-Greenwich deployments and mismatch
// menus against orders.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(time.DateOnly, s, time.Local)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return t, nil
}

// DateOf truncates a timestamp to a local midnight carrying the timestamp's
// own calendar components. DATE columns scan back as UTC midnight; converting
// to local before reading the components would shift the day west of
// Greenwich.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

// SameDate reports whether two timestamps carry the same calendar date, each
// read in its own location.
func SameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// atTimeOfDay combines a calendar date with an HH:MM wall-clock string.
func atTimeOfDay(date time.Time, hhmm string) (time.Time, bool) {
	clock, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, false
	}
	d := DateOf(date)
	return time.Date(d.Year(), d.Month(), d.Day(), clock.Hour(), clock.Minute(), 0, 0, time.Local), true
}
