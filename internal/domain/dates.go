package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidDate is returned when a dotted date does not name a real calendar day.
var ErrInvalidDate = errors.New("invalid date")

// FormatDate converts "DD.MM.YYYY" or "DD.MM.YYYY HH:MM" into "YYYY-MM-DD".
// Values that are not dotted dates are returned unchanged.
func FormatDate(value string) (string, error) {
	value = strings.TrimSpace(value)
	if i := strings.IndexByte(value, ' '); i >= 0 {
		value = value[:i]
	}

	parts := strings.Split(value, ".")
	if len(parts) != 3 {
		return value, nil
	}

	day, errD := strconv.Atoi(parts[0])
	month, errM := strconv.Atoi(parts[1])
	year, errY := strconv.Atoi(parts[2])
	if errD != nil || errM != nil || errY != nil || len(parts[2]) != 4 {
		return "", fmt.Errorf("%w: %q", ErrInvalidDate, value)
	}

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || int(t.Month()) != month {
		return "", fmt.Errorf("%w: %q", ErrInvalidDate, value)
	}
	return t.Format(DateLayout), nil
}

// IsWinterBreak reports whether the outdoor pool is closed on the given day.
// The season break runs from September 15th through April 30th.
func IsWinterBreak(date time.Time) bool {
	switch m := date.Month(); {
	case m <= time.April:
		return true
	case m == time.September:
		return date.Day() >= 15
	case m > time.September:
		return true
	default:
		return false
	}
}

// isWeekendDate reports whether an ISO date falls on Saturday or Sunday.
func isWeekendDate(date string) bool {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return false
	}
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
