package clock

import (
	"errors"
	"strings"
	"time"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

var ErrInvalidDate = errors.New("invalid_date")

// Calendar turns instants into calendar dates for a fixed billing location.
// Dates are represented as midnight UTC so they compare and subtract cleanly.
type Calendar struct {
	loc *time.Location
}

func NewCalendar(loc *time.Location) Calendar {
	if loc == nil {
		loc = time.UTC
	}
	return Calendar{loc: loc}
}

// LoadCalendar resolves an IANA zone name; an empty name means UTC.
func LoadCalendar(name string) (Calendar, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return NewCalendar(time.UTC), nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return Calendar{}, err
	}
	return NewCalendar(loc), nil
}

func (c Calendar) Location() *time.Location {
	if c.loc == nil {
		return time.UTC
	}
	return c.loc
}

// DateOf returns the calendar date t falls on in the billing location.
func (c Calendar) DateOf(t time.Time) time.Time {
	local := t.In(c.Location())
	return Date(local.Year(), local.Month(), local.Day())
}

// Today is DateOf(clk.Now()).
func (c Calendar) Today(clk Clock) time.Time {
	return c.DateOf(clk.Now())
}

func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Truncate strips the clock part of an already-calendar value.
func Truncate(t time.Time) time.Time {
	t = t.UTC()
	return Date(t.Year(), t.Month(), t.Day())
}

func AddDays(date time.Time, days int) time.Time {
	return Truncate(date).AddDate(0, 0, days)
}

// DaysBetween returns the whole days from a to b; negative when b is before a.
func DaysBetween(a, b time.Time) int {
	return int(Truncate(b).Sub(Truncate(a)).Hours() / 24)
}

func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, ErrInvalidDate
	}
	parsed, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return parsed, nil
}

// MonthStart returns the first day of the month containing date.
func MonthStart(date time.Time) time.Time {
	date = Truncate(date)
	return Date(date.Year(), date.Month(), 1)
}

// MonthEnd returns the last day of the month containing date.
func MonthEnd(date time.Time) time.Time {
	return MonthStart(date).AddDate(0, 1, -1)
}
