package booking

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPrice_ExperienceMultiplier(t *testing.T) {
	// 500 * 1.5 * 2h * 3mo = 4500 rupees
	require.Equal(t, int64(450000), Price(500, 2, 3, 5))
}

func TestPrice_NoExperience(t *testing.T) {
	require.Equal(t, int64(50000), Price(500, 1, 1, 0))
}

func TestPrice_NegativeExperienceClamped(t *testing.T) {
	require.Equal(t, Price(500, 1, 1, 0), Price(500, 1, 1, -3))
}

func TestPrice_DeterministicAcrossCalls(t *testing.T) {
	a := Price(500, 3, 12, 10)
	b := Price(500, 3, 12, 10)
	require.Equal(t, a, b)
	require.Equal(t, int64(3600000), a)
}
