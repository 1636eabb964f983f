// Package timeslot holds the clock arithmetic the availability engine is
// built on. All times are minutes since midnight; intervals are half-open.
package timeslot

import "regexp"

// InvalidMinutes is the sentinel returned by ToMinutes for malformed input.
// Callers validate format with ValidClock before trusting the numeric value.
const InvalidMinutes = -1

var clockPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

func ValidClock(s string) bool {
	return clockPattern.MatchString(s)
}

// ToMinutes converts a strict "HH:MM" clock string to minutes since
// midnight, or InvalidMinutes when the input does not match.
func ToMinutes(s string) int {
	if !clockPattern.MatchString(s) {
		return InvalidMinutes
	}
	h := int(s[0]-'0')*10 + int(s[1]-'0')
	m := int(s[3]-'0')*10 + int(s[4]-'0')
	return h*60 + m
}

func FormatMinutes(m int) string {
	if m < 0 || m >= 24*60 {
		return ""
	}
	h := m / 60
	mm := m % 60
	return string([]byte{byte('0' + h/10), byte('0' + h%10), ':', byte('0' + mm/10), byte('0' + mm%10)})
}

// Overlaps is the half-open interval test: [aStart,aEnd) and [bStart,bEnd)
// overlap iff aStart < bEnd && bStart < aEnd. Intervals that merely touch
// at an endpoint do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd int) bool {
	return aStart < bEnd && bStart < aEnd
}

type Slot struct {
	Start int
	End   int
}

// Tile emits consecutive duration-length slots inside [windowStart,
// windowEnd): [t, t+d) for t = windowStart, windowStart+d, ... while
// t+d <= windowEnd. A window shorter than the duration yields no slots.
// Output is ascending by start.
func Tile(windowStart, windowEnd, duration int) []Slot {
	if duration <= 0 || windowEnd <= windowStart {
		return nil
	}
	var slots []Slot
	for t := windowStart; t+duration <= windowEnd; t += duration {
		slots = append(slots, Slot{Start: t, End: t + duration})
	}
	return slots
}
