package booking

import (
	"fmt"
	"strconv"
	"strings"

	models "github.com/trainwise/backend/internal/models"
)

// ParseClock parses "HH:MM" into minutes since midnight.
func ParseClock(s string) (int, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time %q: want HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return h*60 + m, nil
}

// Overlaps reports whether a requested slot [start, start+hours) collides
// with any of the trainer's active bookings on the same date. Intervals are
// half-open, so touching endpoints do not conflict.
//
// Known limitation carried from the original scheduler: a booking whose
// duration pushes past midnight is clamped at 24:00 and is not checked
// against the next day's schedule.
func Overlaps(startMinutes, durationHours int, existing []*models.Booking) bool {
	reqStart := startMinutes
	reqEnd := clampDay(startMinutes + durationHours*60)

	for _, b := range existing {
		s, err := ParseClock(b.StartTime)
		if err != nil {
			continue
		}
		e := clampDay(s + b.DurationHours*60)
		if reqStart < e && reqEnd > s {
			return true
		}
	}
	return false
}

func clampDay(minutes int) int {
	if minutes > 24*60 {
		return 24 * 60
	}
	return minutes
}
