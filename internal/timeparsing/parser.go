// Package timeparsing turns user input such as "+2d", "next friday" or
// "2025-07-01" into instants and due dates.
//
// An expression is read as, in order:
//  1. an offset from now (+6h, -1d, 2w)
//  2. a date (2006-01-02, local midnight) or an RFC3339 timestamp
//  3. English (tomorrow, next monday, in 3 days)
//
// ParseDueDate additionally understands "today", "eom" and "eoy", and
// "none" to clear a date.
package timeparsing

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var offsetRe = regexp.MustCompile(`^([+-]?)(\d{1,6})([hdwmy])$`)

// Offset is a signed distance in one calendar unit. Day and larger units
// move by calendar dates, so "+1d" keeps the wall clock across a DST change.
type Offset struct {
	Amount int
	Unit   byte // h, d, w, m or y
}

// ParseOffset parses [+-]N followed by a unit letter. A missing sign means
// forward.
func ParseOffset(s string) (Offset, error) {
	m := offsetRe.FindStringSubmatch(s)
	if m == nil {
		return Offset{}, fmt.Errorf("not an offset: %q (want e.g. +3d, -1w, 2m)", s)
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return Offset{}, fmt.Errorf("offset %q: %w", s, err)
	}
	if m[1] == "-" {
		n = -n
	}
	return Offset{Amount: n, Unit: m[3][0]}, nil
}

// IsOffset reports whether s is offset syntax.
func IsOffset(s string) bool {
	return offsetRe.MatchString(s)
}

// From returns t moved by o.
func (o Offset) From(t time.Time) time.Time {
	switch o.Unit {
	case 'h':
		return t.Add(time.Duration(o.Amount) * time.Hour)
	case 'd':
		return t.AddDate(0, 0, o.Amount)
	case 'w':
		return t.AddDate(0, 0, 7*o.Amount)
	case 'm':
		return t.AddDate(0, o.Amount, 0)
	case 'y':
		return t.AddDate(o.Amount, 0, 0)
	}
	return t
}

func (o Offset) String() string {
	return fmt.Sprintf("%+d%c", o.Amount, o.Unit)
}

// ParseRelativeTime parses s as an instant relative to now.
func ParseRelativeTime(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty time expression")
	}
	if IsOffset(s) {
		o, err := ParseOffset(s)
		if err != nil {
			return time.Time{}, err
		}
		return o.From(now), nil
	}
	if t, err := time.ParseInLocation("2006-01-02", s, now.Location()); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := ParseNaturalLanguage(s, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("cannot parse %q as a time (try +3d, 2025-07-01 or \"next friday\")", s)
	}
	return t, nil
}

// ParseDueDate parses s as a due date: the calendar date, in now's location,
// of the instant s names, returned as midnight UTC. "", "-" and "none"
// clear the date and return nil.
func ParseDueDate(s string, now time.Time) (*time.Time, error) {
	y, m, _ := now.Date()
	var t time.Time
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "-":
		return nil, nil
	case "today":
		t = now
	case "eom":
		t = time.Date(y, m+1, 0, 12, 0, 0, 0, now.Location())
	case "eoy":
		t = time.Date(y, time.December, 31, 12, 0, 0, 0, now.Location())
	default:
		var err error
		if t, err = ParseRelativeTime(s, now); err != nil {
			return nil, err
		}
	}
	d := dateOf(t, now.Location())
	return &d, nil
}

func dateOf(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
