package membership

import (
	"time"

	models "github.com/trainwise/backend/internal/models"
)

// FindStartDate places a new membership period of durationDays on the
// member's timeline: earliest gap that fits wins (first-fit), otherwise the
// day after the last active subscription ends. Cancelled subscriptions are
// ignored entirely; active must be sorted by start date ascending.
//
// Deterministic over its inputs, so staging and commit resolve the same
// start date for the same snapshot.
func FindStartDate(today time.Time, durationDays int, active []*models.Subscription) time.Time {
	if len(active) == 0 {
		return today
	}

	// Gap before the first subscription.
	if first := active[0]; first.StartDate.After(today) {
		if daysBetween(today, first.StartDate) >= durationDays {
			return today
		}
	}

	// Gaps between consecutive subscriptions.
	for i := 0; i < len(active)-1; i++ {
		candidate := active[i].EndDate.AddDate(0, 0, 1)
		if daysBetween(candidate, active[i+1].StartDate) >= durationDays {
			return candidate
		}
	}

	// No gap fits: append after the tail.
	return active[len(active)-1].EndDate.AddDate(0, 0, 1)
}

// daysBetween is the whole number of days from a to b.
func daysBetween(a, b time.Time) int {
	return int(b.Sub(a) / (24 * time.Hour))
}
