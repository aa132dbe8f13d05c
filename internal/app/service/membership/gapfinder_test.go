package membership

import (
	"testing"
	"time"

	models "github.com/trainwise/backend/internal/models"

	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func sub(start, end time.Time) *models.Subscription {
	return &models.Subscription{StartDate: start, EndDate: end, IsActive: true}
}

func TestFindStartDate_EmptyStartsToday(t *testing.T) {
	today := day(2026, time.January, 1)
	require.Equal(t, today, FindStartDate(today, 30, nil))
}

func TestFindStartDate_FillsGap(t *testing.T) {
	today := day(2026, time.January, 1)
	active := []*models.Subscription{
		sub(day(2026, time.January, 1), day(2026, time.January, 31)),
		sub(day(2026, time.March, 1), day(2026, time.March, 31)),
	}
	// A 28-day plan fits in the February gap, so it lands on Feb 1 rather
	// than after March.
	require.Equal(t, day(2026, time.February, 1), FindStartDate(today, 28, active))
}

func TestFindStartDate_GapTooSmallAppends(t *testing.T) {
	today := day(2026, time.January, 1)
	active := []*models.Subscription{
		sub(day(2026, time.January, 1), day(2026, time.January, 31)),
		sub(day(2026, time.March, 1), day(2026, time.March, 31)),
	}
	// 60 days does not fit the February gap; append after the last period.
	require.Equal(t, day(2026, time.April, 1), FindStartDate(today, 60, active))
}

func TestFindStartDate_NoGapAppends(t *testing.T) {
	today := day(2026, time.January, 1)
	active := []*models.Subscription{
		sub(day(2026, time.January, 1), day(2026, time.January, 31)),
		sub(day(2026, time.February, 1), day(2026, time.February, 28)),
	}
	require.Equal(t, day(2026, time.March, 1), FindStartDate(today, 30, active))
}

func TestFindStartDate_LeadingGapBeforeFirstPeriod(t *testing.T) {
	today := day(2026, time.January, 1)
	active := []*models.Subscription{
		sub(day(2026, time.March, 1), day(2026, time.March, 31)),
	}
	require.Equal(t, today, FindStartDate(today, 30, active))
}

func TestFindStartDate_LeadingGapTooSmall(t *testing.T) {
	today := day(2026, time.February, 20)
	active := []*models.Subscription{
		sub(day(2026, time.March, 1), day(2026, time.March, 31)),
	}
	require.Equal(t, day(2026, time.April, 1), FindStartDate(today, 30, active))
}
