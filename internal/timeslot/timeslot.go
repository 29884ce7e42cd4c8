// Package timeslot converts between the date and time-of-day strings used by
// the front desk and combined timestamps, and produces the fixed list of
// bookable slots for a day.
package timeslot

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/hackgods/clinic-frontdesk/internal/apperr"
)

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"

	DayStartHour = 9
	DayEndHour   = 17
	SlotLength   = 30 * time.Minute
)

var (
	ErrInvalidTimeFormat = fmt.Errorf("%w: time must be HH:MM or HH:MM AM/PM", apperr.ErrInvalidInput)
	ErrInvalidDate       = fmt.Errorf("%w: date must be YYYY-MM-DD", apperr.ErrInvalidInput)
	ErrInvalidDateTime   = fmt.Errorf("%w: date does not exist in the calendar", apperr.ErrInvalidInput)
)

var (
	clock24 = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)
	clock12 = regexp.MustCompile(`^(\d{1,2}):(\d{2})\s*([AaPp][Mm])$`)
	dateRe  = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)
)

// ParseClock returns the 24-hour hour and minute of a time-of-day string.
// Both "14:30" and "02:30 PM" are accepted; 12 AM is hour 0 and 12 PM is 12.
func ParseClock(s string) (hour, minute int, err error) {
	s = strings.TrimSpace(s)

	if m := clock12.FindStringSubmatch(s); m != nil {
		hour, _ = strconv.Atoi(m[1])
		minute, _ = strconv.Atoi(m[2])
		if hour < 1 || hour > 12 || minute > 59 {
			return 0, 0, ErrInvalidTimeFormat
		}
		hour %= 12
		if strings.EqualFold(m[3], "PM") {
			hour += 12
		}
		return hour, minute, nil
	}

	if m := clock24.FindStringSubmatch(s); m != nil {
		hour, _ = strconv.Atoi(m[1])
		minute, _ = strconv.Atoi(m[2])
		if hour > 23 || minute > 59 {
			return 0, 0, ErrInvalidTimeFormat
		}
		return hour, minute, nil
	}

	return 0, 0, ErrInvalidTimeFormat
}

// ParseDate validates a calendar date and returns midnight of that day in loc.
func ParseDate(date string, loc *time.Location) (time.Time, error) {
	m := dateRe.FindStringSubmatch(strings.TrimSpace(date))
	if m == nil {
		return time.Time{}, ErrInvalidDate
	}
	y, _ := strconv.Atoi(m[1])
	mo, _ := strconv.Atoi(m[2])
	d, _ := strconv.Atoi(m[3])

	t := time.Date(y, time.Month(mo), d, 0, 0, 0, 0, location(loc))
	// time.Date normalizes Feb 30 into March; a round trip exposes it.
	if t.Year() != y || int(t.Month()) != mo || t.Day() != d {
		return time.Time{}, ErrInvalidDateTime
	}
	return t, nil
}

// Combine joins a date and a time-of-day into one minute-precision timestamp.
func Combine(date, clock string, loc *time.Location) (time.Time, error) {
	day, err := ParseDate(date, loc)
	if err != nil {
		return time.Time{}, err
	}
	hour, minute, err := ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	t := time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, day.Location())
	// Wall times skipped by a DST change come back shifted.
	if t.Hour() != hour || t.Minute() != minute {
		return time.Time{}, ErrInvalidDateTime
	}
	return t, nil
}

// Split is the inverse of Combine, returning "YYYY-MM-DD" and "HH:MM" in loc.
func Split(t time.Time, loc *time.Location) (date, clock string) {
	t = t.In(location(loc))
	return t.Format(DateLayout), t.Format(ClockLayout)
}

// DayBounds returns [start, end) of the given date in loc.
func DayBounds(date string, loc *time.Location) (time.Time, time.Time, error) {
	start, err := ParseDate(date, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, start.AddDate(0, 0, 1), nil
}

// DayRange returns [start, end) of the calendar day containing t in loc.
func DayRange(t time.Time, loc *time.Location) (time.Time, time.Time) {
	t = t.In(location(loc))
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 0, 1)
}

// DaySlots lists every bookable slot from 09:00 up to, not including, 17:00.
func DaySlots() []string {
	slots := make([]string, 0, (DayEndHour-DayStartHour)*int(time.Hour/SlotLength))
	for m := DayStartHour * 60; m < DayEndHour*60; m += int(SlotLength / time.Minute) {
		slots = append(slots, fmt.Sprintf("%02d:%02d", m/60, m%60))
	}
	return slots
}

// Available removes the booked timestamps from DaySlots. Booked values are
// compared by their HH:MM in loc, so callers pass timestamps of a single day.
func Available(booked []time.Time, loc *time.Location) []string {
	taken := make(map[string]struct{}, len(booked))
	for _, b := range booked {
		_, clock := Split(b, loc)
		taken[clock] = struct{}{}
	}

	all := DaySlots()
	free := make([]string, 0, len(all))
	for _, s := range all {
		if _, ok := taken[s]; !ok {
			free = append(free, s)
		}
	}
	return free
}

func location(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}
