// Package timeofday converts between "HH:MM" wall-clock strings and
// minute-of-day offsets in [0, 1440).
package timeofday

import (
	"fmt"
)

const MinutesPerDay = 24 * 60

// FormatError reports a malformed time string
type FormatError struct {
	Input  string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid time %q: %s", e.Input, e.Reason)
}

// ToMinutes parses a strict zero-padded "HH:MM" (00:00 to 23:59)
func ToMinutes(hhmm string) (int, error) {
	if len(hhmm) != 5 || hhmm[2] != ':' {
		return 0, &FormatError{Input: hhmm, Reason: "expected HH:MM"}
	}

	hours, ok := twoDigits(hhmm[0], hhmm[1])
	if !ok {
		return 0, &FormatError{Input: hhmm, Reason: "hours are not numeric"}
	}
	minutes, ok := twoDigits(hhmm[3], hhmm[4])
	if !ok {
		return 0, &FormatError{Input: hhmm, Reason: "minutes are not numeric"}
	}
	if hours > 23 {
		return 0, &FormatError{Input: hhmm, Reason: "hours out of range"}
	}
	if minutes > 59 {
		return 0, &FormatError{Input: hhmm, Reason: "minutes out of range"}
	}

	return hours*60 + minutes, nil
}

func twoDigits(a, b byte) (int, bool) {
	if a < '0' || a > '9' || b < '0' || b > '9' {
		return 0, false
	}
	return int(a-'0')*10 + int(b-'0'), true
}

// ToTimeString formats a minute offset as "HH:MM". No wraparound.
func ToTimeString(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// Range is a half-open interval [Start, End) of minute offsets
type Range struct {
	Start int
	End   int
}

// ParseRange parses start and end and requires start < end
func ParseRange(start, end string) (Range, error) {
	s, err := ToMinutes(start)
	if err != nil {
		return Range{}, err
	}
	e, err := ToMinutes(end)
	if err != nil {
		return Range{}, err
	}
	if s >= e {
		return Range{}, &FormatError{Input: start + "-" + end, Reason: "end must be after start"}
	}
	return Range{Start: s, End: e}, nil
}

// Duration in minutes
func (r Range) Duration() int {
	return r.End - r.Start
}

// StartString is Start formatted as "HH:MM"
func (r Range) StartString() string { return ToTimeString(r.Start) }

// EndString is End formatted as "HH:MM"
func (r Range) EndString() string { return ToTimeString(r.End) }

func (r Range) String() string {
	return r.StartString() + "-" + r.EndString()
}

// Contains reports whether inner lies entirely within outer
func Contains(outer, inner Range) bool {
	return inner.Start >= outer.Start && inner.End <= outer.End
}

// Overlaps reports whether the two half-open ranges share at least one minute
func Overlaps(a, b Range) bool {
	return a.Start < b.End && b.Start < a.End
}
